/*
Copyright SUSE LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package action

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/solver"
)

//go:embed schema.sql
var historySchema string

// Transaction status values.
const (
	TransactionCompleted = "completed"
	TransactionFailed    = "failed"
)

// Transaction is one recorded commit.
type Transaction struct {
	ID      string          `json:"id"`
	Time    time.Time       `json:"time"`
	Command string          `json:"command"`
	Status  string          `json:"status"`
	Changes []solver.Change `json:"changes"`
}

// History is the ledger of commits, kept in a SQLite database.
type History struct {
	db *sql.DB
}

// OpenHistory creates or opens the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open history (%s)", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "couldn't open history (%s)", path)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "executing %q", pragma)
		}
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "applying history schema")
	}
	return &History{db: db}, nil
}

// Close closes the database.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record stores a transaction and returns its id.
func (h *History) Record(ctx context.Context, command, status string, changes []solver.Change) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "beginning history transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (id, started_at, command, status) VALUES (?, ?, ?, ?)",
		id, Timestamper().UnixNano(), command, status); err != nil {
		return "", errors.Wrap(err, "recording transaction")
	}
	for i, c := range changes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO changes (transaction_id, seq, name, arch, action, old_version, new_version, auto) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			id, i, c.Name, c.Arch, string(c.Action), c.OldVersion, c.NewVersion, c.Auto); err != nil {
			return "", errors.Wrapf(err, "recording change %s", c)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "committing history transaction")
	}
	return id, nil
}

// List returns the recorded transactions, oldest first. A positive limit
// keeps only the most recent ones.
func (h *History) List(ctx context.Context, limit int) ([]*Transaction, error) {
	q := "SELECT id, started_at, command, status FROM transactions ORDER BY started_at, rowid"
	args := []interface{}{}
	if limit > 0 {
		q = "SELECT * FROM (SELECT id, started_at, command, status, rowid AS r FROM transactions ORDER BY started_at DESC, rowid DESC LIMIT ?) ORDER BY started_at, r"
		args = append(args, limit)
	}
	rows, err := h.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing history")
	}
	var out []*Transaction
	for rows.Next() {
		t := &Transaction{Changes: []solver.Change{}}
		var ts int64
		dest := []interface{}{&t.ID, &ts, &t.Command, &t.Status}
		if limit > 0 {
			var r int64
			dest = append(dest, &r)
		}
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "reading history")
		}
		t.Time = time.Unix(0, ts).UTC()
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "reading history")
	}

	for _, t := range out {
		if err := h.loadChanges(ctx, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (h *History) loadChanges(ctx context.Context, t *Transaction) error {
	rows, err := h.db.QueryContext(ctx,
		"SELECT name, arch, action, old_version, new_version, auto FROM changes WHERE transaction_id = ? ORDER BY seq", t.ID)
	if err != nil {
		return errors.Wrapf(err, "reading changes of %s", t.ID)
	}
	defer rows.Close()
	for rows.Next() {
		var c solver.Change
		var action string
		if err := rows.Scan(&c.Name, &c.Arch, &action, &c.OldVersion, &c.NewVersion, &c.Auto); err != nil {
			return errors.Wrapf(err, "reading changes of %s", t.ID)
		}
		c.Action = solver.Action(action)
		t.Changes = append(t.Changes, c)
	}
	return rows.Err()
}
