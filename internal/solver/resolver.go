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
	"sort"

	"github.com/rancher-sandbox/depcache/internal/pkg"
)

// Score biases used to order broken packages and to pick which side of a
// conflict goes. Higher scores are kept.
const (
	ScoreInstalled = 10
	ScoreManual    = 5
	ScoreEssential = 100
	ScoreNewAuto   = -5
	ScoreRevDep    = 1
	ScoreProtected = 10000
	ScoreRemove    = -10000
)

// priorityScores rank the archive priority class of a version.
var priorityScores = map[string]int{
	"required":  3,
	"important": 2,
	"standard":  1,
	"optional":  0,
	"extra":     -1,
}

type resolverFlag uint8

const (
	flagProtected resolverFlag = 1 << iota
	flagRemove
)

// ProblemResolver drives a DepCache with broken packages back to a
// consistent state. Protected packages are never changed; packages
// annotated for removal are the first to go.
type ProblemResolver struct {
	d        *DepCache
	flags    []resolverFlag
	scores   []int
	noRemove bool
}

// NewProblemResolver creates a resolver working on d.
func NewProblemResolver(d *DepCache) *ProblemResolver {
	return &ProblemResolver{
		d:     d,
		flags: make([]resolverFlag, d.cache.Len()),
	}
}

// Protect freezes the current marking of p.
func (r *ProblemResolver) Protect(p *pkg.Pkg) {
	r.flags[p.ID] = (r.flags[p.ID] | flagProtected) &^ flagRemove
}

// Remove makes p the preferred victim of conflicts it takes part in.
func (r *ProblemResolver) Remove(p *pkg.Pkg) {
	r.flags[p.ID] = (r.flags[p.ID] | flagRemove) &^ flagProtected
}

// Clear drops any annotation on p.
func (r *ProblemResolver) Clear(p *pkg.Pkg) {
	r.flags[p.ID] = 0
}

// InstallProtect protects every package marked for installation.
func (r *ProblemResolver) InstallProtect() {
	for _, p := range r.d.cache.Packages() {
		if r.d.states[p.ID].Mode == ModeInstall {
			r.Protect(p)
		}
	}
}

func (r *ProblemResolver) protected(p *pkg.Pkg) bool {
	return r.flags[p.ID]&flagProtected != 0
}

// Score returns the weight of p as computed by the last resolver run,
// including its current annotations.
func (r *ProblemResolver) Score(p *pkg.Pkg) int {
	s := 0
	if r.scores != nil {
		s = r.scores[p.ID]
	}
	switch {
	case r.flags[p.ID]&flagProtected != 0:
		s += ScoreProtected
	case r.flags[p.ID]&flagRemove != 0:
		s += ScoreRemove
	}
	return s
}

// makeScores computes the base scores from the state at the start of a
// run, so that ordering stays fixed while the resolver mutates.
func (r *ProblemResolver) makeScores() {
	d := r.d
	pkgs := d.cache.Packages()
	r.scores = make([]int, len(pkgs))
	for _, p := range pkgs {
		st := d.states[p.ID]
		s := 0
		if p.Current != nil {
			s += ScoreInstalled
		}
		if !st.Auto && (p.Current != nil || st.Mode == ModeInstall) {
			s += ScoreManual
		}
		if p.Essential || p.Important {
			s += ScoreEssential
		}
		if v := st.CandidateVer; v != nil {
			s += priorityScores[v.Priority]
		} else if p.Current != nil {
			s += priorityScores[p.Current.Priority]
		}
		if st.Mode == ModeInstall && p.Current == nil && st.Auto {
			s += ScoreNewAuto
		}
		seen := map[int]bool{}
		for _, rv := range d.cache.RevDepends(p.Name) {
			if seen[rv.Pkg.ID] || d.instVer(rv.Pkg) != rv || !dependsOn(rv, p.Name) {
				continue
			}
			seen[rv.Pkg.ID] = true
			s += ScoreRevDep
		}
		r.scores[p.ID] = s
	}
}

// dependsOn reports whether a Depends or Pre-Depends of v names name.
func dependsOn(v *pkg.Ver, name string) bool {
	for _, rel := range v.Relations {
		if rel.Type != pkg.Depends && rel.Type != pkg.PreDepends {
			continue
		}
		for _, dep := range rel.Alternatives {
			if dep.Name == name {
				return true
			}
		}
	}
	return false
}

// passes returns the iteration bound of a run.
func (r *ProblemResolver) passes() int {
	if n := r.d.cfg.MaxResolvePasses; n > 0 {
		return n
	}
	return 2*r.d.cache.Len() + 10
}

// broken lists the InstBroken packages, best score first, then by ID.
func (r *ProblemResolver) broken() []*pkg.Pkg {
	var out []*pkg.Pkg
	for _, p := range r.d.cache.Packages() {
		if r.d.states[p.ID].InstBroken {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := r.Score(out[i]), r.Score(out[j])
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolve repairs every broken package, removing packages when nothing
// else helps. With fixBroken set a package that cannot be satisfied is kept
// back at its installed version as a last resort. It reports whether no
// package is left broken; changes made on the way are not rolled back.
func (r *ProblemResolver) Resolve(fixBroken bool) bool {
	if !r.d.ready() {
		return false
	}
	defer r.d.NewActionGroup().Release()
	return r.resolve(fixBroken, false)
}

func (r *ProblemResolver) resolve(fixBroken, noRemove bool) bool {
	d := r.d
	r.noRemove = noRemove
	defer func() { r.noRemove = false }()
	r.makeScores()
	bound := r.passes()
	pass := 0
	for ; pass < bound && d.brokenCount > 0; pass++ {
		changed := false
		for _, p := range r.broken() {
			if !d.states[p.ID].InstBroken {
				continue
			}
			if r.fix(p, fixBroken, noRemove) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	if d.brokenCount > 0 {
		d.logger.Debugf("resolver: giving up after %d passes, %d broken packages", pass, d.brokenCount)
		return false
	}
	d.logger.Debugf("resolver: done after %d passes", pass)
	return true
}

// fix works through the violated relations of p. It reports whether
// anything was changed.
func (r *ProblemResolver) fix(p *pkg.Pkg, fixBroken, noRemove bool) bool {
	d := r.d
	v := d.instVer(p)
	changed := false
	for _, rel := range d.brokenRelations(p) {
		if d.instVer(p) != v {
			break
		}
		if !d.relationBroken(p, rel, false) {
			continue
		}
		if r.tryAlternatives(p, rel) {
			changed = true
			continue
		}
		if !noRemove && r.removeBlocker(p, rel, fixBroken) {
			changed = true
			continue
		}
		if fixBroken && r.keepBack(p) {
			d.logger.Debugf("resolver: keeping back %s, nothing satisfies %s", p.FullName(), rel)
			changed = true
			break
		}
	}
	return changed
}

// trial applies fn and keeps the outcome only when rel of p holds
// afterwards, no other package broke and no protected package changed. In
// no-remove mode it must not remove anything either.
func (r *ProblemResolver) trial(p *pkg.Pkg, rel pkg.Relation, fn func()) bool {
	d := r.d
	s := d.snapshot()
	dels := d.delCount
	others := d.brokenCount
	if d.states[p.ID].InstBroken {
		others--
	}
	fn()
	after := d.brokenCount
	if d.states[p.ID].InstBroken {
		after--
	}
	if d.instVer(p) != nil && !d.relationBroken(p, rel, false) && after <= others &&
		!(r.noRemove && d.delCount > dels) && !r.protectedChanged(s) {
		return true
	}
	d.restore(s)
	return false
}

func (r *ProblemResolver) protectedChanged(s *snapshot) bool {
	for id, f := range r.flags {
		if f&flagProtected == 0 {
			continue
		}
		before, now := s.states[id], r.d.states[id]
		if before.Mode != now.Mode || before.InstallVer != now.InstallVer {
			return true
		}
	}
	return false
}

// tryAlternatives looks for a change that satisfies rel without breaking
// anything else: moving p to its candidate, bringing back or installing a
// target of a dependency, or moving a conflicting package out of the way.
func (r *ProblemResolver) tryAlternatives(p *pkg.Pkg, rel pkg.Relation) bool {
	d := r.d
	st := d.states[p.ID]
	if !r.protected(p) && st.CandidateVer != nil && st.InstallVer != st.CandidateVer {
		if r.trial(p, rel, func() { d.markInstall(p, true, 0, 0, false) }) {
			d.logger.Debugf("resolver: %s moved to %s for %s", p.FullName(), st.CandidateVer, rel)
			return true
		}
	}

	if rel.Type.Negative() {
		fixed := false
		for _, t := range d.conflicting(p, rel, false) {
			q := t.Pkg
			if r.protected(q) || d.instVer(q) != t {
				continue
			}
			qs := d.states[q.ID]
			if qs.CandidateVer != nil && qs.CandidateVer != t && !d.forbids(rel, qs.CandidateVer) {
				if r.trial(p, rel, func() { d.markInstall(q, true, 0, 0, false) }) {
					d.logger.Debugf("resolver: %s moved to %s for %s", q.FullName(), qs.CandidateVer, p.FullName())
					fixed = true
					continue
				}
			}
			if q.Current != t && !d.forbids(rel, q.Current) {
				if r.trial(p, rel, func() { d.markKeep(q) }) {
					d.logger.Debugf("resolver: %s kept for %s", q.FullName(), p.FullName())
					fixed = true
				}
			}
		}
		return fixed
	}

	for _, dep := range rel.Alternatives {
		for _, t := range d.cache.Targets(dep) {
			q := t.Pkg
			if r.protected(q) || d.instVer(q) == t {
				continue
			}
			var fn func()
			switch t {
			case q.Current:
				fn = func() { d.markKeep(q) }
			case d.states[q.ID].CandidateVer:
				fn = func() { d.markInstall(q, true, 0, 0, false) }
			default:
				continue
			}
			if r.trial(p, rel, fn) {
				d.logger.Debugf("resolver: %s now at %s for %s", q.FullName(), t, p.FullName())
				return true
			}
		}
	}
	return false
}

// removeBlocker gives up one side of rel: for a conflict the package with
// the lower score, otherwise p itself unless fixBroken prefers keeping it.
func (r *ProblemResolver) removeBlocker(p *pkg.Pkg, rel pkg.Relation, fixBroken bool) bool {
	d := r.d
	if rel.Type.Negative() {
		removed := false
		for _, t := range d.conflicting(p, rel, false) {
			q := t.Pkg
			if r.protected(q) {
				continue
			}
			if !r.protected(p) && r.Score(q) > r.Score(p) {
				continue
			}
			if q.Current == nil || d.instVer(q) != q.Current {
				d.logger.Debugf("resolver: %s kept back, conflicts with %s", q.FullName(), p.FullName())
				d.markKeep(q)
			} else {
				d.logger.Debugf("resolver: removing %s, conflicts with %s", q.FullName(), p.FullName())
				d.markDelete(q, false)
			}
			removed = true
		}
		if removed {
			return true
		}
	}
	if r.protected(p) {
		return false
	}
	st := d.states[p.ID]
	if st.Mode == ModeInstall && fixBroken {
		return false
	}
	if p.Current == nil && st.Mode == ModeKeep {
		return false
	}
	d.logger.Debugf("resolver: removing %s, unable to satisfy %s", p.FullName(), rel)
	d.markDelete(p, false)
	return true
}

// keepBack undoes any pending change of p.
func (r *ProblemResolver) keepBack(p *pkg.Pkg) bool {
	if r.protected(p) {
		return false
	}
	st := r.d.states[p.ID]
	if st.Mode == ModeKeep && st.InstallVer == p.Current {
		return false
	}
	r.d.markKeep(p)
	return true
}

// ResolveByKeep repairs broken packages by keeping back pending changes
// only, never removing anything. It reports whether no package is left
// broken.
func (r *ProblemResolver) ResolveByKeep() bool {
	if !r.d.ready() {
		return false
	}
	defer r.d.NewActionGroup().Release()
	return r.resolveByKeep()
}

func (r *ProblemResolver) resolveByKeep() bool {
	d := r.d
	r.makeScores()
	bound := r.passes()
	for pass := 0; pass < bound && d.brokenCount > 0; pass++ {
		changed := false
		for _, p := range r.broken() {
			if !d.states[p.ID].InstBroken {
				continue
			}
			if r.keepBack(p) {
				d.logger.Debugf("resolver: keeping back %s", p.FullName())
				changed = true
				continue
			}
			for _, rel := range d.brokenRelations(p) {
				for _, q := range r.culprits(p, rel) {
					if r.keepBack(q) {
						d.logger.Debugf("resolver: keeping back %s, it breaks %s", q.FullName(), p.FullName())
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	return d.brokenCount == 0
}

// culprits returns the packages whose pending changes violate rel of p.
func (r *ProblemResolver) culprits(p *pkg.Pkg, rel pkg.Relation) []*pkg.Pkg {
	d := r.d
	var out []*pkg.Pkg
	if rel.Type.Negative() {
		for _, t := range d.conflicting(p, rel, false) {
			if t != t.Pkg.Current {
				out = append(out, t.Pkg)
			}
		}
		return out
	}
	for _, dep := range rel.Alternatives {
		for _, t := range d.cache.Targets(dep) {
			if t == t.Pkg.Current && d.instVer(t.Pkg) != t {
				out = append(out, t.Pkg)
			}
		}
	}
	return out
}
