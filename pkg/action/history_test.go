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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancher-sandbox/depcache/internal/solver"
)

func TestHistory(t *testing.T) {
	is := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	defer func(f func() time.Time) { Timestamper = f }(Timestamper)
	Timestamper = func() time.Time { return now }

	path := filepath.Join(t.TempDir(), "history.db")
	h, err := OpenHistory(path)
	require.NoError(t, err)

	first := []solver.Change{
		{Name: "helper", Arch: "amd64", Action: solver.ActionInstall, NewVersion: "1.0-1", Auto: true},
		{Name: "tool", Arch: "amd64", Action: solver.ActionInstall, NewVersion: "3.1-1"},
	}
	id1, err := h.Record(ctx, "install tool", TransactionCompleted, first)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	id2, err := h.Record(ctx, "remove orphan", TransactionFailed, []solver.Change{
		{Name: "orphan", Arch: "amd64", Action: solver.ActionPurge, OldVersion: "0.5-1"},
	})
	require.NoError(t, err)
	is.NotEqual(id1, id2)
	require.NoError(t, h.Close())

	// reopening keeps what was recorded
	h, err = OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	all, err := h.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	is.Equal(id1, all[0].ID)
	is.Equal("install tool", all[0].Command)
	is.Equal(TransactionCompleted, all[0].Status)
	is.Equal(now.Add(-time.Hour), all[0].Time)
	is.Equal(first, all[0].Changes)
	is.Equal(id2, all[1].ID)
	is.Equal(solver.ActionPurge, all[1].Changes[0].Action)
	is.Equal("0.5-1", all[1].Changes[0].OldVersion)

	last, err := h.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	is.Equal(id2, last[0].ID)
	is.Equal("remove orphan", last[0].Command)
}

func TestHistoryEmpty(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	ts, err := h.List(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, ts)
}
