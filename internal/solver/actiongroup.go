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

package solver

import "github.com/rancher-sandbox/depcache/internal/pkg"

// ActionGroup defers the garbage sweep while it is held. Groups nest; the
// sweep runs once when the last one is released. Use it as
//
//	defer d.NewActionGroup().Release()
type ActionGroup struct {
	d        *DepCache
	released bool
}

// NewActionGroup opens a group on d.
func (d *DepCache) NewActionGroup() *ActionGroup {
	d.groupLevel++
	return &ActionGroup{d: d}
}

// Release closes the group. Releasing twice is a no-op.
func (g *ActionGroup) Release() {
	if g.released {
		return
	}
	g.released = true
	if g.d.groupLevel == 0 {
		return
	}
	g.d.groupLevel--
	if g.d.groupLevel == 0 {
		g.d.markAndSweep()
	}
}

// InGroup reports whether an action group is held.
func (d *DepCache) InGroup() bool {
	return d.groupLevel > 0
}

// markAndSweep recomputes the Garbage flags. Packages to be installed that
// are not auto installed, plus essential ones, are the roots; everything
// reachable from them through Depends and Pre-Depends (and Recommends when
// configured important) is needed. Auto installed packages left unreached
// are garbage.
func (d *DepCache) markAndSweep() {
	pkgs := d.cache.Packages()
	reached := make([]bool, len(pkgs))

	var mark func(p *pkg.Pkg)
	mark = func(p *pkg.Pkg) {
		if reached[p.ID] {
			return
		}
		v := d.instVer(p)
		if v == nil {
			return
		}
		reached[p.ID] = true
		for _, rel := range v.Relations {
			if !d.keepsAlive(rel.Type) {
				continue
			}
			for _, dep := range rel.Alternatives {
				for _, t := range d.cache.Targets(dep) {
					if d.instVer(t.Pkg) == t {
						mark(t.Pkg)
					}
				}
			}
		}
	}

	for _, p := range pkgs {
		st := d.states[p.ID]
		if st.InstallVer == nil {
			continue
		}
		if !st.Auto || p.Essential || p.Important {
			mark(p)
		}
	}
	garbage := 0
	for _, p := range pkgs {
		st := &d.states[p.ID]
		st.Garbage = st.InstallVer != nil && st.Auto && !reached[p.ID]
		if st.Garbage {
			garbage++
		}
	}
	d.logger.Debugf("mark and sweep: %d garbage packages", garbage)
}

func (d *DepCache) keepsAlive(t pkg.DepType) bool {
	switch t {
	case pkg.Depends, pkg.PreDepends:
		return true
	case pkg.Recommends:
		return d.cfg.RecommendsImportant
	}
	return false
}
