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
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/debver"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
)

func compareVer(a, b *pkg.Ver) int {
	switch {
	case a == b:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return debver.Compare(a.Version, b.Version)
}

// MarkKeep keeps p at its installed version, or not installed.
func (d *DepCache) MarkKeep(p *pkg.Pkg) {
	if !d.ready() {
		return
	}
	defer d.NewActionGroup().Release()
	d.markKeep(p)
}

func (d *DepCache) markKeep(p *pkg.Pkg) {
	st := d.states[p.ID]
	if st.Mode == ModeKeep && st.InstallVer == p.Current && !st.ReInstall && !st.Purge {
		return
	}
	d.logger.Debugf("keep %s", p.FullName())
	d.update(p, func(st *StateCache) {
		st.Mode = ModeKeep
		st.InstallVer = p.Current
		st.ReInstall = false
		st.Purge = false
		if p.Current == nil {
			st.Auto = p.Auto
		}
	})
}

// MarkDelete marks p for removal, along with its configuration when purge
// is set. Packages left unneeded are not removed, only flagged as garbage.
func (d *DepCache) MarkDelete(p *pkg.Pkg, purge bool) {
	if !d.ready() {
		return
	}
	defer d.NewActionGroup().Release()
	d.markDelete(p, purge)
}

func (d *DepCache) markDelete(p *pkg.Pkg, purge bool) {
	if p.Current == nil {
		// nothing to remove
		d.markKeep(p)
		return
	}
	st := d.states[p.ID]
	if st.Mode == ModeDelete && st.Purge == purge {
		return
	}
	d.logger.Debugf("delete %s (purge: %t)", p.FullName(), purge)
	d.update(p, func(st *StateCache) {
		st.Mode = ModeDelete
		st.InstallVer = nil
		st.Purge = purge
		st.ReInstall = false
	})
}

// MarkInstall marks p for installation at its candidate version. With
// autoInst set the unsatisfied dependencies of the candidate are marked too,
// recursively, as automatically installed; conflicting packages are upgraded
// or removed. depthLimit bounds the recursion, zero meaning unbounded.
// fromUser clears the Auto flag, otherwise a newly installed package gets
// it. It reports whether p ends up marked for installation or kept at its
// candidate.
func (d *DepCache) MarkInstall(p *pkg.Pkg, autoInst bool, depthLimit int, fromUser bool) bool {
	if !d.ready() {
		return false
	}
	defer d.NewActionGroup().Release()
	return d.markInstall(p, autoInst, 0, depthLimit, fromUser)
}

func (d *DepCache) markInstall(p *pkg.Pkg, autoInst bool, depth, depthLimit int, fromUser bool) bool {
	if depthLimit > 0 && depth > depthLimit {
		d.logger.Debugf("install %s: depth limit %d reached", p.FullName(), depthLimit)
		return false
	}
	st := d.states[p.ID]
	cand := st.CandidateVer
	if cand == nil {
		d.logger.Debugf("install %s: no candidate version", p.FullName())
		return false
	}
	if st.Mode == ModeInstall && st.InstallVer == cand {
		// already resolved; this is what ends dependency cycles
		if fromUser && st.Auto {
			d.update(p, func(st *StateCache) { st.Auto = false })
		}
		return true
	}
	if p.Current == cand && !st.ReInstall {
		d.markKeep(p)
		if fromUser && d.states[p.ID].Auto {
			d.update(p, func(st *StateCache) { st.Auto = false })
		}
		return true
	}

	d.logger.Debugf("%*sinstall %s", 2*depth, "", cand)
	d.update(p, func(st *StateCache) {
		st.Mode = ModeInstall
		st.InstallVer = cand
		st.Purge = false
		if fromUser {
			st.Auto = false
		} else if p.Current == nil {
			st.Auto = true
		}
	})

	if autoInst {
		d.satisfyDeps(p, cand, depth, depthLimit)
	}
	return d.instVer(p) == cand
}

// followed reports whether MarkInstall pulls in relations of type t.
func (d *DepCache) followed(t pkg.DepType) bool {
	switch t {
	case pkg.Depends, pkg.PreDepends:
		return true
	case pkg.Recommends:
		return d.cfg.InstallRecommends
	case pkg.Suggests:
		return d.cfg.InstallSuggests
	}
	return false
}

// satisfyDeps marks what the relations of v need: a target for every
// unsatisfied positive relation, and an upgrade or removal for every package
// a negative relation forbids.
func (d *DepCache) satisfyDeps(p *pkg.Pkg, v *pkg.Ver, depth, depthLimit int) {
	for _, rel := range v.Relations {
		if d.instVer(p) != v {
			// a conflict resolution below removed p again
			return
		}
		switch {
		case rel.Type.Negative():
			for _, t := range d.conflicting(p, rel, false) {
				d.resolveConflict(p, rel, t, depth, depthLimit)
			}
		case d.followed(rel.Type):
			if d.relationSatisfied(rel, false) {
				continue
			}
			target := d.bestTarget(rel)
			if target == nil {
				d.logger.Debugf("%*s%s: nothing satisfies %s", 2*depth, "", p.FullName(), rel)
				continue
			}
			d.markInstall(target, true, depth+1, depthLimit, false)
		}
	}
}

// resolveConflict gets the present version t out of the way of rel: by
// upgrading its package to a candidate rel allows, or by removing it.
func (d *DepCache) resolveConflict(p *pkg.Pkg, rel pkg.Relation, t *pkg.Ver, depth, depthLimit int) {
	tp := t.Pkg
	cand := d.states[tp.ID].CandidateVer
	if cand != nil && cand != t && !d.forbids(rel, cand) {
		d.logger.Debugf("%*s%s: upgrading %s out of %s", 2*depth, "", p.FullName(), tp.FullName(), rel)
		d.markInstall(tp, true, depth+1, depthLimit, false)
		if d.instVer(tp) == cand {
			return
		}
	}
	d.logger.Debugf("%*s%s: removing %s for %s", 2*depth, "", p.FullName(), tp.FullName(), rel)
	d.markDelete(tp, false)
}

// forbids reports whether the negative relation rel targets v.
func (d *DepCache) forbids(rel pkg.Relation, v *pkg.Ver) bool {
	for _, dep := range rel.Alternatives {
		for _, t := range d.cache.Targets(dep) {
			if t == v {
				return true
			}
		}
	}
	return false
}

// installTargets returns the packages whose candidate would satisfy rel, in
// relation order and without duplicates.
func (d *DepCache) installTargets(rel pkg.Relation) []*pkg.Pkg {
	seen := map[int]bool{}
	var out []*pkg.Pkg
	for _, dep := range rel.Alternatives {
		for _, t := range d.cache.Targets(dep) {
			tp := t.Pkg
			if seen[tp.ID] || d.states[tp.ID].CandidateVer != t {
				continue
			}
			seen[tp.ID] = true
			out = append(out, tp)
		}
	}
	return out
}

// bestTarget picks the package to install for an unsatisfied positive
// relation: an installed one if any, else the one whose candidate has the
// best policy priority. Earlier alternatives win ties.
func (d *DepCache) bestTarget(rel pkg.Relation) *pkg.Pkg {
	var best *pkg.Pkg
	bestInstalled := false
	bestPr := 0
	for _, tp := range d.installTargets(rel) {
		if d.states[tp.ID].Mode == ModeDelete {
			// the user or the resolver asked for it to go
			continue
		}
		installed := tp.Current != nil
		pr := d.policy.VerPriority(d.states[tp.ID].CandidateVer)
		switch {
		case best == nil,
			installed && !bestInstalled,
			installed == bestInstalled && pr > bestPr:
			best, bestInstalled, bestPr = tp, installed, pr
		}
	}
	return best
}

// SetCandidateVer makes v the candidate of p. It fails with ErrTypeMismatch,
// leaving everything unchanged, when v is not a version of p.
func (d *DepCache) SetCandidateVer(p *pkg.Pkg, v *pkg.Ver) error {
	if v == nil || v.Pkg != p {
		return errors.Wrapf(errorlist.ErrTypeMismatch, "version %s does not belong to %s", v, p.FullName())
	}
	if !d.ready() {
		return errors.WithStack(errorlist.ErrNotInitialized)
	}
	defer d.NewActionGroup().Release()
	d.update(p, func(st *StateCache) {
		st.CandidateVer = v
		if st.Mode == ModeInstall {
			st.InstallVer = v
		}
	})
	return nil
}

// SetReInstall toggles reinstallation of p without changing its mode.
func (d *DepCache) SetReInstall(p *pkg.Pkg, reinstall bool) {
	if !d.ready() {
		return
	}
	defer d.NewActionGroup().Release()
	d.update(p, func(st *StateCache) {
		st.ReInstall = reinstall
	})
}

// MarkAuto sets or clears the automatically installed flag of p.
func (d *DepCache) MarkAuto(p *pkg.Pkg, auto bool) {
	if !d.ready() {
		return
	}
	defer d.NewActionGroup().Release()
	d.update(p, func(st *StateCache) {
		st.Auto = auto
	})
}
