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
	"context"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/policy"
)

// Mode is the pending action for a package.
type Mode int

const (
	ModeKeep Mode = iota
	ModeDelete
	ModeInstall
)

func (m Mode) String() string {
	switch m {
	case ModeDelete:
		return "delete"
	case ModeInstall:
		return "install"
	}
	return "keep"
}

// StateCache is the mutable state of one package.
type StateCache struct {
	CandidateVer *pkg.Ver
	InstallVer   *pkg.Ver
	Mode         Mode
	Purge        bool // only meaningful with ModeDelete
	Auto         bool
	ReInstall    bool

	NowBroken  bool // unsatisfied with the installed versions
	InstBroken bool // unsatisfied with the versions to be installed
	Garbage    bool // auto installed and required by nothing
}

// Progress receives coarse progress reports from long operations.
type Progress interface {
	Update(percent float64, message string)
	Done()
}

// DepCache is the per package state overlay on top of a sealed package
// cache. The cache and policy must outlive it.
//
// A DepCache is not safe for concurrent use. Queries may run between
// mutations, never during one.
type DepCache struct {
	cache  *pkg.Cache
	policy *policy.Policy
	cfg    *config.Config
	errs   *errorlist.List
	logger log.Logger

	states      []StateCache
	initialized bool
	groupLevel  int
	progress    Progress

	keepCount   int
	instCount   int
	delCount    int
	brokenCount int
	usrSize     int64
	debSize     int64
}

// New creates a DepCache. Init must be called before using it.
func New(cache *pkg.Cache, pol *policy.Policy, cfg *config.Config, errs *errorlist.List, logger log.Logger) *DepCache {
	if cfg == nil {
		cfg = config.Default()
	}
	if errs == nil {
		errs = errorlist.New()
	}
	if logger == nil {
		logger = log.Current
	}
	cache.Seal()
	return &DepCache{
		cache:  cache,
		policy: pol,
		cfg:    cfg,
		errs:   errs,
		logger: logger,
	}
}

// Cache returns the package cache the DepCache is built on.
func (d *DepCache) Cache() *pkg.Cache {
	return d.cache
}

// Policy returns the policy candidates come from.
func (d *DepCache) Policy() *policy.Policy {
	return d.policy
}

// Errors returns the shared error list.
func (d *DepCache) Errors() *errorlist.List {
	return d.errs
}

// Config returns the configuration the DepCache was built with.
func (d *DepCache) Config() *config.Config {
	return d.cfg
}

// Initialized reports whether the last Init completed.
func (d *DepCache) Initialized() bool {
	return d.initialized
}

// Init resets every package to Keep at its installed version, takes the
// candidates from the policy and computes every flag and counter from
// scratch. Canceling ctx aborts it and leaves the DepCache to be
// initialized again. Held action groups stay open across Init; the sweep
// then waits for the last of them to be released.
func (d *DepCache) Init(ctx context.Context, progress Progress) error {
	d.initialized = false
	d.progress = progress
	d.keepCount, d.instCount, d.delCount, d.brokenCount = 0, 0, 0, 0
	d.usrSize, d.debSize = 0, 0

	pkgs := d.cache.Packages()
	d.states = make([]StateCache, len(pkgs))
	total := float64(2 * len(pkgs))
	step := len(pkgs)/20 + 1

	report := func(done int, msg string) error {
		if done%step != 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errorlist.ErrNotInitialized, err.Error())
		}
		if progress != nil {
			progress.Update(100*float64(done)/total, msg)
		}
		return nil
	}

	for i, p := range pkgs {
		if err := report(i, "Building dependency tree"); err != nil {
			return err
		}
		d.states[p.ID] = StateCache{
			CandidateVer: d.policy.GetCandidateVer(p),
			InstallVer:   p.Current,
			Mode:         ModeKeep,
			Auto:         p.Auto,
		}
	}
	for i, p := range pkgs {
		if err := report(len(pkgs)+i, "Calculating dependencies"); err != nil {
			return err
		}
		st := &d.states[p.ID]
		st.NowBroken = d.verBroken(p, p.Current, true)
		st.InstBroken = d.verBroken(p, st.InstallVer, false)
		d.addStates(p, st, 1)
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errorlist.ErrNotInitialized, err.Error())
	}
	if !d.InGroup() {
		d.markAndSweep()
	}
	d.initialized = true
	if progress != nil {
		progress.Done()
	}
	d.logger.Debugf("dependency cache initialized: %d packages, %d broken", len(pkgs), d.brokenCount)
	return nil
}

// ready reports whether mutators may run, recording an error when not.
func (d *DepCache) ready() bool {
	if !d.initialized {
		d.errs.Error(errors.WithStack(errorlist.ErrNotInitialized))
		return false
	}
	return true
}

// State returns a copy of the state of p.
func (d *DepCache) State(p *pkg.Pkg) StateCache {
	return d.states[p.ID]
}

// instVer returns the version p would be at after committing.
func (d *DepCache) instVer(p *pkg.Pkg) *pkg.Ver {
	return d.states[p.ID].InstallVer
}

// addStates adds (add=1) or removes (add=-1) the contribution of one
// package to the counters.
func (d *DepCache) addStates(p *pkg.Pkg, st *StateCache, add int) {
	if st.InstBroken {
		d.brokenCount += add
	}
	d.addSizes(p, st, int64(add))

	if p.Current == nil {
		if st.Mode == ModeInstall {
			d.instCount += add
		}
		return
	}
	if st.CandidateVer == nil || st.CandidateVer == p.Current {
		// installed, nothing to upgrade
		switch {
		case st.Mode == ModeDelete:
			d.delCount += add
		case st.Mode == ModeInstall && (st.ReInstall || st.InstallVer != p.Current):
			d.instCount += add
		}
		return
	}
	switch st.Mode {
	case ModeDelete:
		d.delCount += add
	case ModeKeep:
		d.keepCount += add
	case ModeInstall:
		d.instCount += add
	}
}

func (d *DepCache) addSizes(p *pkg.Pkg, st *StateCache, mult int64) {
	switch st.Mode {
	case ModeInstall:
		iv := st.InstallVer
		if iv == nil {
			return
		}
		if p.Current == nil {
			d.usrSize += mult * iv.InstalledSize
			d.debSize += mult * iv.Size
			return
		}
		if iv != p.Current || st.ReInstall {
			d.usrSize += mult * (iv.InstalledSize - p.Current.InstalledSize)
			d.debSize += mult * iv.Size
		}
	case ModeDelete:
		if p.Current != nil {
			d.usrSize -= mult * p.Current.InstalledSize
		}
	}
}

// update is the single point through which package states change. It
// applies fn to the state of p, keeps the counters in step and refreshes the
// InstBroken flag of p and of every package whose relations may have
// changed outcome.
func (d *DepCache) update(p *pkg.Pkg, fn func(st *StateCache)) {
	st := &d.states[p.ID]
	oldInst := st.InstallVer

	d.addStates(p, st, -1)
	fn(st)
	st.InstBroken = d.verBroken(p, st.InstallVer, false)
	d.addStates(p, st, 1)

	if oldInst == st.InstallVer {
		return
	}
	for _, rp := range d.affected(p, oldInst, st.InstallVer) {
		d.refreshInstBroken(rp)
	}
}

// affected lists the packages whose install version has a relation naming p
// or a name provided by either of its versions.
func (d *DepCache) affected(p *pkg.Pkg, vers ...*pkg.Ver) []*pkg.Pkg {
	names := []string{p.Name}
	for _, v := range vers {
		if v == nil {
			continue
		}
		for _, prv := range v.Provides {
			names = append(names, prv.Name)
		}
	}
	seen := map[int]bool{p.ID: true}
	var out []*pkg.Pkg
	for _, n := range names {
		for _, rv := range d.cache.RevDepends(n) {
			rp := rv.Pkg
			if seen[rp.ID] || d.instVer(rp) != rv {
				continue
			}
			seen[rp.ID] = true
			out = append(out, rp)
		}
	}
	return out
}

func (d *DepCache) refreshInstBroken(p *pkg.Pkg) {
	st := &d.states[p.ID]
	broken := d.verBroken(p, st.InstallVer, false)
	if broken == st.InstBroken {
		return
	}
	if st.InstBroken {
		d.brokenCount--
	}
	st.InstBroken = broken
	if broken {
		d.brokenCount++
	}
}

// selected returns the version of p considered present: the installed one
// when now is set, otherwise the one to be installed.
func (d *DepCache) selected(p *pkg.Pkg, now bool) *pkg.Ver {
	if now {
		return p.Current
	}
	return d.instVer(p)
}

// relationBroken reports whether a critical relation of owner is violated.
func (d *DepCache) relationBroken(owner *pkg.Pkg, rel pkg.Relation, now bool) bool {
	if rel.Type.Negative() {
		return len(d.conflicting(owner, rel, now)) > 0
	}
	return !d.relationSatisfied(rel, now)
}

// relationSatisfied reports whether any alternative of a positive relation
// is present.
func (d *DepCache) relationSatisfied(rel pkg.Relation, now bool) bool {
	for _, dep := range rel.Alternatives {
		for _, t := range d.cache.Targets(dep) {
			if d.selected(t.Pkg, now) == t {
				return true
			}
		}
	}
	return false
}

// conflicting returns the present versions a negative relation of owner
// forbids. A package never conflicts with itself.
func (d *DepCache) conflicting(owner *pkg.Pkg, rel pkg.Relation, now bool) []*pkg.Ver {
	var out []*pkg.Ver
	for _, dep := range rel.Alternatives {
		for _, t := range d.cache.Targets(dep) {
			if t.Pkg == owner || t.Pkg.Name == owner.Name {
				continue
			}
			if d.selected(t.Pkg, now) == t {
				out = append(out, t)
			}
		}
	}
	return out
}

// verBroken reports whether v, as a version of p, has a violated critical
// relation.
func (d *DepCache) verBroken(p *pkg.Pkg, v *pkg.Ver, now bool) bool {
	if v == nil {
		return false
	}
	for _, rel := range v.Relations {
		if rel.Type.Critical() && d.relationBroken(p, rel, now) {
			return true
		}
	}
	return false
}

// brokenRelations returns the violated critical relations of the version p
// is to be installed at.
func (d *DepCache) brokenRelations(p *pkg.Pkg) []pkg.Relation {
	v := d.instVer(p)
	if v == nil {
		return nil
	}
	var out []pkg.Relation
	for _, rel := range v.Relations {
		if rel.Type.Critical() && d.relationBroken(p, rel, false) {
			out = append(out, rel)
		}
	}
	return out
}

// snapshot captures the mutable state for a later restore.
type snapshot struct {
	states []StateCache
	counts [4]int
	sizes  [2]int64
}

func (d *DepCache) snapshot() *snapshot {
	s := &snapshot{
		states: make([]StateCache, len(d.states)),
		counts: [4]int{d.keepCount, d.instCount, d.delCount, d.brokenCount},
		sizes:  [2]int64{d.usrSize, d.debSize},
	}
	copy(s.states, d.states)
	return s
}

func (d *DepCache) restore(s *snapshot) {
	copy(d.states, s.states)
	d.keepCount, d.instCount, d.delCount, d.brokenCount = s.counts[0], s.counts[1], s.counts[2], s.counts[3]
	d.usrSize, d.debSize = s.sizes[0], s.sizes[1]
}

// Counters.

func (d *DepCache) KeepCount() int   { return d.keepCount }
func (d *DepCache) InstCount() int   { return d.instCount }
func (d *DepCache) DelCount() int    { return d.delCount }
func (d *DepCache) BrokenCount() int { return d.brokenCount }
func (d *DepCache) UsrSize() int64   { return d.usrSize }
func (d *DepCache) DebSize() int64   { return d.debSize }

// Queries.

// GetCandidateVer returns the current candidate of p.
func (d *DepCache) GetCandidateVer(p *pkg.Pkg) *pkg.Ver {
	return d.states[p.ID].CandidateVer
}

func (d *DepCache) IsUpgradable(p *pkg.Pkg) bool {
	st := d.states[p.ID]
	return p.Current != nil && st.CandidateVer != nil && st.CandidateVer != p.Current
}

func (d *DepCache) IsGarbage(p *pkg.Pkg) bool {
	return d.states[p.ID].Garbage
}

func (d *DepCache) IsNowBroken(p *pkg.Pkg) bool {
	return d.states[p.ID].NowBroken
}

func (d *DepCache) IsInstBroken(p *pkg.Pkg) bool {
	return d.states[p.ID].InstBroken
}

func (d *DepCache) IsAutoInstalled(p *pkg.Pkg) bool {
	return d.states[p.ID].Auto
}

func (d *DepCache) MarkedKeep(p *pkg.Pkg) bool {
	return d.states[p.ID].Mode == ModeKeep
}

func (d *DepCache) MarkedDelete(p *pkg.Pkg) bool {
	return d.states[p.ID].Mode == ModeDelete
}

func (d *DepCache) MarkedPurge(p *pkg.Pkg) bool {
	return d.MarkedDelete(p) && d.states[p.ID].Purge
}

// MarkedInstall reports a package to be newly installed.
func (d *DepCache) MarkedInstall(p *pkg.Pkg) bool {
	return d.states[p.ID].Mode == ModeInstall && p.Current == nil
}

// MarkedUpgrade reports an installed package to be replaced by a newer
// version.
func (d *DepCache) MarkedUpgrade(p *pkg.Pkg) bool {
	st := d.states[p.ID]
	return st.Mode == ModeInstall && p.Current != nil && st.InstallVer != p.Current &&
		compareVer(st.InstallVer, p.Current) > 0
}

// MarkedDowngrade reports an installed package to be replaced by an older
// version.
func (d *DepCache) MarkedDowngrade(p *pkg.Pkg) bool {
	st := d.states[p.ID]
	return st.Mode == ModeInstall && p.Current != nil && st.InstallVer != p.Current &&
		compareVer(st.InstallVer, p.Current) < 0
}

// MarkedReinstall reports an installed package to be installed again at
// the same version.
func (d *DepCache) MarkedReinstall(p *pkg.Pkg) bool {
	st := d.states[p.ID]
	return st.ReInstall && p.Current != nil && st.Mode != ModeDelete &&
		(st.InstallVer == p.Current || st.InstallVer == nil)
}
