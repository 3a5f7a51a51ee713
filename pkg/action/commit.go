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
	"fmt"
	"os"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/solver"
	"github.com/rancher-sandbox/depcache/pkg/eyecandy"
	"github.com/rancher-sandbox/depcache/pkg/statepath"
)

// ItemStatus is the state of one download after a fetch run.
type ItemStatus int

const (
	// ItemIdle is a transient failure: the item was not attempted or
	// should be retried.
	ItemIdle ItemStatus = iota
	ItemDone
	ItemError
)

func (s ItemStatus) String() string {
	switch s {
	case ItemDone:
		return "done"
	case ItemError:
		return "error"
	}
	return "idle"
}

// Item is one archive to download.
type Item struct {
	Pkg      *pkg.Pkg
	Ver      *pkg.Ver
	URI      string
	DestFile string
	Size     int64

	Status    ItemStatus
	Complete  bool
	ErrorText string
}

// InstallResult is the outcome of an install run.
type InstallResult int

const (
	InstallCompleted InstallResult = iota
	InstallFailed
	// InstallIncomplete asks for another fetch and install round.
	InstallIncomplete
)

func (r InstallResult) String() string {
	switch r {
	case InstallCompleted:
		return "completed"
	case InstallFailed:
		return "failed"
	}
	return "incomplete"
}

// Fetcher downloads the items of a commit, setting the status of each. An
// error means the whole run failed.
type Fetcher interface {
	Fetch(ctx context.Context, items []*Item) error
}

// Installer applies the pending changes once their archives are present.
type Installer interface {
	Install(ctx context.Context, changes []solver.Change) (InstallResult, error)
}

// maxCommitRounds bounds the fetch and install loop when the installer
// keeps reporting an incomplete run.
const maxCommitRounds = 10

// Commit downloads and installs the pending changes of a DepCache.
type Commit struct {
	Fetcher   Fetcher
	Installer Installer
	// Command is recorded in the history with the changes.
	Command string

	Config *Configuration
}

// NewCommit creates a new Commit object with the given configuration.
func NewCommit(cfg *Configuration, f Fetcher, i Installer) *Commit {
	return &Commit{
		Fetcher:   f,
		Installer: i,
		Config:    cfg,
	}
}

// Run holds the archive lock and loops fetching and installing until the
// installer completes. A transient failure together with a hard one aborts
// the commit. Hard failures alone keep the failed packages back; the
// resulting state is left in d for the caller and Run reports false.
func (c *Commit) Run(ctx context.Context, d *solver.DepCache) (bool, error) {
	cfg := c.Config
	if ok, err := cfg.handleErrors(true); !ok {
		return false, err
	}
	if n := d.BrokenCount(); n > 0 {
		cfg.Errors.Errorf(errorlist.ErrResolutionFailure, "refusing to commit with %d broken packages", n)
		return cfg.handleErrors(false)
	}

	if !cfg.Config.NoLocking {
		unlock, err := c.lock()
		if err != nil {
			cfg.Errors.Error(err)
			return cfg.handleErrors(false)
		}
		defer unlock()
	}

	for round := 0; round < maxCommitRounds; round++ {
		items, ok := c.downloads(d)
		if !ok {
			return cfg.handleErrors(false)
		}

		if len(items) > 0 {
			if err := c.Fetcher.Fetch(ctx, items); err != nil {
				cfg.Errors.Error(errors.Wrap(errorlist.ErrFetchFailure, err.Error()))
				return cfg.handleErrors(false)
			}
		}

		transient, failed := false, []*Item{}
		for _, it := range items {
			if it.Status == ItemDone && it.Complete {
				continue
			}
			if it.Status == ItemIdle {
				transient = true
				continue
			}
			cfg.Errors.Warning(errors.Wrapf(errorlist.ErrFetchFailure, "%s  %s", it.URI, it.ErrorText))
			failed = append(failed, it)
		}

		if transient && len(failed) > 0 {
			cfg.Errors.Errorf(errorlist.ErrCommitAborted, "--fix-missing and media swapping is not supported")
			return cfg.handleErrors(false)
		}
		if len(failed) > 0 {
			if !c.fixMissing(d, failed) {
				cfg.Errors.Errorf(errorlist.ErrCommitAborted, "aborting install")
			}
			return cfg.handleErrors(false)
		}

		changes := d.Changes()
		res, err := c.Installer.Install(ctx, changes)
		if err != nil {
			cfg.Errors.Error(err)
		}
		cfg.Log.Debugf("install round %d: %s", round+1, res)
		if res == InstallFailed || cfg.Errors.PendingError() {
			c.record(ctx, TransactionFailed, changes)
			return cfg.handleErrors(false)
		}
		if res == InstallCompleted {
			c.record(ctx, TransactionCompleted, changes)
			for _, ch := range changes {
				cfg.Log.Debug(eyecandy.ESPrintf(cfg.NoEmojis, eyecandy.Action(string(ch.Action))+"%s %s (%s)", ch.Action, ch.Name, ch.NewVersion))
			}
			cfg.Log.Info(eyecandy.ESPrintf(cfg.NoEmojis, ":white_check_mark: %d changes applied", len(changes)))
			return cfg.handleErrors(true)
		}
	}
	cfg.Errors.Errorf(errorlist.ErrCommitAborted, "install still incomplete after %d rounds", maxCommitRounds)
	return cfg.handleErrors(false)
}

func (c *Commit) lock() (func(), error) {
	dir := c.Config.Config.ArchivesDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(errorlist.ErrLockUnavailable, "creating %s: %s", dir, err)
	}
	path, err := statepath.LockFile(dir)
	if err != nil {
		return nil, errors.Wrapf(errorlist.ErrLockUnavailable, "%s", err)
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(errorlist.ErrLockUnavailable, "could not get lock %s: %s", path, err)
	}
	if !locked {
		return nil, errors.Wrapf(errorlist.ErrLockUnavailable, "could not get lock %s, is another process using it?", path)
	}
	c.Config.Log.Debugf("acquired %s", path)
	return func() {
		if err := fl.Unlock(); err != nil {
			c.Config.Log.Warnf("releasing %s: %s", path, err)
		}
	}, nil
}

// ArchiveName is the file name an archive of v is stored under.
func ArchiveName(v *pkg.Ver) string {
	return fmt.Sprintf("%s_%s_%s.deb", v.Pkg.Name, strings.ReplaceAll(v.Version, ":", "%3a"), v.Arch)
}

// downloads lists the archives the pending installs need. Archives already
// present in the archives directory are done from the start.
func (c *Commit) downloads(d *solver.DepCache) ([]*Item, bool) {
	cfg := c.Config
	var items []*Item
	ok := true
	for _, p := range d.Cache().Packages() {
		st := d.State(p)
		if st.Mode != solver.ModeInstall && !d.MarkedReinstall(p) {
			continue
		}
		v := st.InstallVer
		if v == nil {
			v = p.Current
		}
		var src *pkg.Index
		for _, f := range v.Files {
			if !f.Installed {
				src = f
				break
			}
		}
		if src == nil {
			cfg.Errors.Errorf(errorlist.ErrFetchFailure, "can't find a source to download version '%s' of '%s'", v.Version, p.FullName())
			ok = false
			continue
		}
		name := ArchiveName(v)
		dest, err := securejoin.SecureJoin(cfg.Config.ArchivesDir, name)
		if err != nil {
			cfg.Errors.Error(err)
			ok = false
			continue
		}
		it := &Item{
			Pkg:      p,
			Ver:      v,
			URI:      fmt.Sprintf("http://%s/pool/%s/%s/%s", src.Site, src.Component, p.Name, name),
			DestFile: dest,
			Size:     v.Size,
		}
		if info, err := os.Stat(dest); err == nil && (v.Size == 0 || info.Size() == v.Size) {
			it.Status, it.Complete = ItemDone, true
		}
		items = append(items, it)
	}
	return items, ok
}

// fixMissing keeps back every package whose archive could not be fetched
// and resolves by keeping what that breaks.
func (c *Commit) fixMissing(d *solver.DepCache, failed []*Item) bool {
	g := d.NewActionGroup()
	for _, it := range failed {
		c.Config.Log.Debugf("keeping back %s, its archive is missing", it.Pkg.FullName())
		d.MarkKeep(it.Pkg)
	}
	ok := true
	if d.BrokenCount() > 0 {
		ok = solver.NewProblemResolver(d).ResolveByKeep()
	}
	g.Release()
	return ok && !c.Config.Errors.PendingError()
}

func (c *Commit) record(ctx context.Context, status string, changes []solver.Change) {
	h := c.Config.History
	if h == nil {
		return
	}
	id, err := h.Record(ctx, c.Command, status, changes)
	if err != nil {
		c.Config.Errors.Warning(err)
		return
	}
	c.Config.Log.Debugf("recorded transaction %s (%s)", id, status)
}
