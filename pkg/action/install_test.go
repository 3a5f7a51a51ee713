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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/solver"
)

func TestInstall(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		reinstall  bool
		noAutoInst bool
		install    []string
		upgrade    []string
		reinst     []string
		remove     []string
	}{
		{
			name:    "new package pulls its dependencies",
			args:    []string{"tool"},
			install: []string{"helper", "tool"},
		},
		{
			name:       "without dependencies",
			args:       []string{"tool"},
			noAutoInst: true,
			install:    []string{"helper", "tool"},
		},
		{
			name: "already newest",
			args: []string{"libc6"},
		},
		{
			name:    "upgrade with new dependency",
			args:    []string{"app"},
			install: []string{"newlib"},
			upgrade: []string{"app", "libapp"},
		},
		{
			name: "pinned to the installed version",
			args: []string{"app=1.0-1"},
		},
		{
			name:      "reinstall",
			args:      []string{"libc6"},
			reinstall: true,
			reinst:    []string{"libc6"},
		},
		{
			name:      "reinstall without archive",
			args:      []string{"local"},
			reinstall: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := assert.New(t)
			cfg := actionConfigFixture(t)
			d := depCacheFixture(t, cfg, worldFixture)

			inst := NewInstall(cfg)
			inst.Reinstall = tt.reinstall
			inst.NoAutoInst = tt.noAutoInst
			rs, err := inst.Run(d, targets(t, d, tt.args...))
			require.NoError(t, err)

			// the resolver installs what MarkInstall left out
			is.Equal(orEmpty(tt.install), names(rs.ToInstall))
			is.Equal(orEmpty(tt.upgrade), names(rs.ToUpgrade))
			is.Equal(orEmpty(tt.reinst), names(rs.ToReinstall))
			is.Equal(orEmpty(tt.remove), names(rs.ToRemove))
			is.True(rs.IsConsistent())
		})
	}
}

func TestInstallMarksAuto(t *testing.T) {
	is := assert.New(t)
	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, worldFixture)

	rs, err := NewInstall(cfg).Run(d, targets(t, d, "tool"))
	require.NoError(t, err)
	require.Len(t, rs.ToInstall, 2)
	is.True(rs.ToInstall[0].Auto, "helper is a dependency")
	is.False(rs.ToInstall[1].Auto, "tool was asked for")
	is.Equal(int64(70), rs.DebSize)
}

func TestInstallConflict(t *testing.T) {
	is := assert.New(t)
	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, []pkg.MockVer{
		{Name: "oldmta", Version: "1.0", Installed: true, Provides: "mta"},
		{Name: "newmta", Version: "2.0", Conflicts: "oldmta", Provides: "mta"},
	})

	rs, err := NewInstall(cfg).Run(d, targets(t, d, "newmta"))
	require.NoError(t, err)
	is.Equal([]string{"newmta"}, names(rs.ToInstall))
	is.Equal([]string{"oldmta"}, names(rs.ToRemove))
	is.Equal(solver.ActionRemove, rs.ToRemove[0].Action)
}

func TestInstallPendingErrors(t *testing.T) {
	is := assert.New(t)
	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, worldFixture)
	ts := targets(t, d, "tool")

	cfg.Errors.Errorf(errorlist.ErrParse, "leftover")
	rs, err := NewInstall(cfg).Run(d, ts)
	is.Nil(rs)
	is.True(errors.Is(err, errorlist.ErrParse))
	is.Zero(d.InstCount())
}

func TestUninstall(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		purge      bool
		autoRemove bool
		remove     []string
		action     solver.Action
	}{
		{
			name:   "reverse dependencies go too",
			args:   []string{"libapp"},
			remove: []string{"app", "libapp"},
			action: solver.ActionRemove,
		},
		{
			name:   "purge",
			args:   []string{"orphan"},
			purge:  true,
			remove: []string{"orphan"},
			action: solver.ActionPurge,
		},
		{
			name: "not installed",
			args: []string{"tool"},
		},
		{
			name:       "with autoremove",
			args:       []string{"app"},
			autoRemove: true,
			remove:     []string{"app", "libapp", "orphan"},
			action:     solver.ActionRemove,
		},
		{
			name:       "purge with autoremove",
			args:       []string{"app"},
			purge:      true,
			autoRemove: true,
			remove:     []string{"app", "libapp", "orphan"},
			action:     solver.ActionPurge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := assert.New(t)
			cfg := actionConfigFixture(t)
			d := depCacheFixture(t, cfg, worldFixture)

			un := NewUninstall(cfg)
			un.Purge = tt.purge
			un.AutoRemove = tt.autoRemove
			rs, err := un.Run(d, targets(t, d, tt.args...))
			require.NoError(t, err)

			is.Equal(orEmpty(tt.remove), names(rs.ToRemove))
			is.Empty(rs.ToInstall)
			for _, c := range rs.ToRemove {
				is.Equal(tt.action, c.Action, c.Name)
			}
			is.True(rs.IsConsistent())
		})
	}
}

func TestUpgrade(t *testing.T) {
	is := assert.New(t)

	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, worldFixture)
	rs, err := NewUpgrade(cfg).Run(d)
	require.NoError(t, err)
	is.Empty(rs.ToInstall, "a plain upgrade installs nothing new")
	is.Equal([]string{"libapp"}, names(rs.ToUpgrade))
	is.Equal([]string{"app:amd64"}, rs.KeptBack)

	cfg = actionConfigFixture(t)
	d = depCacheFixture(t, cfg, worldFixture)
	up := NewUpgrade(cfg)
	up.Dist = true
	rs, err = up.Run(d)
	require.NoError(t, err)
	is.Equal([]string{"newlib"}, names(rs.ToInstall))
	is.Equal([]string{"app", "libapp"}, names(rs.ToUpgrade))
	is.Empty(rs.KeptBack)
	is.True(rs.IsConsistent())
}

func TestFixBroken(t *testing.T) {
	is := assert.New(t)
	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, []pkg.MockVer{
		{Name: "broken", Version: "1.0", Depends: "helper", Installed: true},
		{Name: "helper", Version: "1.0-1"},
	})
	is.Equal(1, d.BrokenCount())

	rs, err := NewFixBroken(cfg).Run(d)
	require.NoError(t, err)
	is.Equal([]string{"helper"}, names(rs.ToInstall))
	is.Zero(d.BrokenCount())

	// nothing to fix
	cfg = actionConfigFixture(t)
	d = depCacheFixture(t, cfg, worldFixture)
	rs, err = NewFixBroken(cfg).Run(d)
	require.NoError(t, err)
	is.True(rs.Empty())
}

func TestAutoremove(t *testing.T) {
	is := assert.New(t)

	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, worldFixture)
	rs, err := NewAutoremove(cfg).Run(d)
	require.NoError(t, err)
	is.Equal([]string{"orphan"}, names(rs.ToRemove))
	is.Equal(solver.ActionRemove, rs.ToRemove[0].Action)
	is.Empty(rs.Autoremovable)

	cfg = actionConfigFixture(t)
	d = depCacheFixture(t, cfg, worldFixture)
	ar := NewAutoremove(cfg)
	ar.Purge = true
	rs, err = ar.Run(d)
	require.NoError(t, err)
	is.Equal([]string{"orphan"}, names(rs.ToRemove))
	is.Equal(solver.ActionPurge, rs.ToRemove[0].Action)
}

func TestList(t *testing.T) {
	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, worldFixture)

	entryNames := func(entries []ListEntry) []string {
		out := []string{}
		for _, e := range entries {
			out = append(out, e.Name)
		}
		return out
	}

	tests := []struct {
		name    string
		list    List
		want    []string
		wantErr bool
	}{
		{name: "installed", list: List{Installed: true}, want: []string{"app", "libapp", "libc6", "local", "orphan"}},
		{name: "upgradable", list: List{Upgradable: true}, want: []string{"app", "libapp"}},
		{name: "autoremovable", list: List{Autoremovable: true}, want: []string{"orphan"}},
		{name: "pattern", list: List{Pattern: "lib*"}, want: []string{"libapp", "libc6"}},
		{name: "pattern and filter", list: List{Pattern: "lib*", Upgradable: true}, want: []string{"libapp"}},
		{name: "broken", list: List{Broken: true}, want: []string{}},
		{name: "bad pattern", list: List{Pattern: "["}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := assert.New(t)
			l := tt.list
			l.Config = cfg
			entries, err := l.Run(d)
			if tt.wantErr {
				is.Error(err)
				return
			}
			require.NoError(t, err)
			is.Equal(tt.want, entryNames(entries))
		})
	}

	entries, err := (&List{Pattern: "app", Config: cfg}).Run(d)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	is := assert.New(t)
	is.Equal("1.0-1", e.Installed)
	is.Equal("2.0-1", e.Candidate)
	is.Equal("unstable", e.Archive)
	is.True(e.Upgradable)
	is.False(e.Auto)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
