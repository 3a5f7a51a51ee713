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

import (
	"github.com/rancher-sandbox/depcache/internal/pkg"
)

// minimizePasses bounds the sweeps of MinimizeUpgrade.
const minimizePasses = 10

// Upgrade marks every upgradable package for installation at its
// candidate. A plain upgrade installs nothing new and keeps back whatever
// would break; a dist upgrade pulls in new dependencies and lets the
// resolver remove packages that stand in the way.
func (d *DepCache) Upgrade(distUpgrade bool) bool {
	if !d.ready() {
		return false
	}
	defer d.NewActionGroup().Release()

	pkgs := d.cache.Packages()
	step := len(pkgs)/20 + 1
	for i, p := range pkgs {
		if d.progress != nil && i%step == 0 {
			d.progress.Update(100*float64(i)/float64(len(pkgs)), "Calculating upgrade")
		}
		if !d.IsUpgradable(p) || d.states[p.ID].Mode != ModeKeep {
			continue
		}
		d.markInstall(p, distUpgrade, 0, 0, false)
	}

	r := NewProblemResolver(d)
	var ok bool
	if distUpgrade {
		ok = r.resolve(true, false)
	} else {
		ok = r.resolveByKeep()
	}
	if d.progress != nil {
		d.progress.Done()
	}
	d.logger.Debugf("upgrade (dist: %t): %d to install, %d to remove, %d kept back", distUpgrade, d.instCount, d.delCount, d.keepCount)
	return ok
}

// MinimizeUpgrade reverts, one package at a time in ID order, every upgrade
// that is not needed to keep the state consistent.
func (d *DepCache) MinimizeUpgrade() bool {
	if !d.ready() {
		return false
	}
	defer d.NewActionGroup().Release()
	return d.minimizeUpgrade()
}

func (d *DepCache) minimizeUpgrade() bool {
	for pass := 0; pass < minimizePasses; pass++ {
		changed := false
		for _, p := range d.cache.Packages() {
			if !d.MarkedUpgrade(p) {
				continue
			}
			s := d.snapshot()
			d.markKeep(p)
			if d.brokenCount > 0 {
				d.restore(s)
				continue
			}
			d.logger.Debugf("minimize: %s upgrade not needed", p.FullName())
			changed = true
		}
		if !changed {
			break
		}
	}
	return d.brokenCount == 0
}

// FixBroken installs missing dependencies of broken packages, resolves the
// rest without removing anything and then drops unneeded upgrades.
func (d *DepCache) FixBroken() bool {
	if !d.ready() {
		return false
	}
	defer d.NewActionGroup().Release()

	for _, p := range d.cache.Packages() {
		if d.states[p.ID].InstBroken {
			d.installMissing(p)
		}
	}
	ok := NewProblemResolver(d).resolve(true, true)
	d.minimizeUpgrade()
	return ok && d.brokenCount == 0
}

// installMissing marks targets for the unsatisfied dependencies of p,
// dropping any attempt that would remove a package.
func (d *DepCache) installMissing(p *pkg.Pkg) {
	v := d.instVer(p)
	if v == nil {
		return
	}
	for _, rel := range v.Relations {
		if rel.Type.Negative() || !d.followed(rel.Type) || d.relationSatisfied(rel, false) {
			continue
		}
		target := d.bestTarget(rel)
		if target == nil {
			continue
		}
		s := d.snapshot()
		dels := d.delCount
		d.markInstall(target, true, 1, 0, false)
		if d.delCount > dels {
			d.restore(s)
		}
	}
}

// Autoremove marks every garbage package for removal, purging its
// configuration when purge is set, and returns how many were marked.
func (d *DepCache) Autoremove(purge bool) int {
	if !d.ready() {
		return 0
	}
	defer d.NewActionGroup().Release()
	if d.groupLevel > 1 {
		// flags are stale inside an enclosing group
		d.markAndSweep()
	}
	n := 0
	for _, p := range d.cache.Packages() {
		if !d.states[p.ID].Garbage {
			continue
		}
		d.markDelete(p, purge)
		n++
	}
	return n
}
