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

/*
Package policy ranks the versions of a package and picks its candidate.

Every version gets a priority. A pin whose package pattern and data match the
version decides it; the first matching pin wins, exact package names are
tried before patterns and patterns before pins for every package. Without a
matching pin the version takes the best default priority of the indexes it
comes from:

	990  index matches the configured default release
	500  any other index
	100  installed only, or a NotAutomatic index with ButAutomaticUpgrades
	1    NotAutomatic index

The candidate is the version with the highest priority. Ties go to the newer
version; between versions comparing equal they go to the installed one. A
version older than the installed one is only a candidate with priority 1000
or more, and a negative priority keeps a version from ever being a candidate
unless it is installed.
*/
package policy

import (
	"math"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/internal/debver"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
)

const (
	PriorityDefaultRelease = 990
	PriorityDefault        = 500
	PriorityInstalled      = 100
	PriorityNotAutomatic   = 1

	// PriorityDowngrade is the lowest priority allowing a downgrade.
	PriorityDowngrade = 1000
)

// Policy holds the pins for one package cache.
type Policy struct {
	cache  *pkg.Cache
	cfg    *config.Config
	errs   *errorlist.List
	logger log.Logger

	pins []*Pin
}

// New creates a Policy without pins. The cache must outlive it.
func New(cache *pkg.Cache, cfg *config.Config, errs *errorlist.List, logger log.Logger) *Policy {
	if cfg == nil {
		cfg = config.Default()
	}
	if errs == nil {
		errs = errorlist.New()
	}
	if logger == nil {
		logger = log.Current
	}
	return &Policy{
		cache:  cache,
		cfg:    cfg,
		errs:   errs,
		logger: logger,
	}
}

// Errors returns the shared error list the policy reports to.
func (p *Policy) Errors() *errorlist.List {
	return p.errs
}

// CreatePin registers a pin. typ is one of version, release or origin; any
// other value is rejected with ErrParse.
func (p *Policy) CreatePin(typ, pattern, data string, priority int) error {
	mt, err := ParseMatchType(typ)
	if err != nil {
		return err
	}
	return p.AddPin(&Pin{Type: mt, Package: pattern, Data: data, Priority: priority})
}

// AddPin registers an already built pin.
func (p *Policy) AddPin(pin *Pin) error {
	if pin.Type < MatchVersion || pin.Type > MatchOrigin {
		return errors.Wrapf(errorlist.ErrParse, "unknown pin type %d", int(pin.Type))
	}
	if err := pin.compile(); err != nil {
		return err
	}
	p.logger.Debugf("adding pin %s", pin)
	p.pins = append(p.pins, pin)
	return nil
}

// Pins returns the registered pins in registration order.
func (p *Policy) Pins() []*Pin {
	return p.pins
}

// applicablePins returns the pins whose package pattern matches name, most
// specific first.
func (p *Policy) applicablePins(name string) []*Pin {
	var specific, patterns, general []*Pin
	for _, pin := range p.pins {
		if !pin.matchesPackage(name) {
			continue
		}
		switch {
		case pin.Specific():
			specific = append(specific, pin)
		case pin.General():
			general = append(general, pin)
		default:
			patterns = append(patterns, pin)
		}
	}
	out := append(specific, patterns...)
	return append(out, general...)
}

// PinFor returns the pin deciding the priority of v, or nil.
func (p *Policy) PinFor(v *pkg.Ver) *Pin {
	for _, pin := range p.applicablePins(v.Pkg.Name) {
		if pin.matchesVer(v) {
			return pin
		}
	}
	return nil
}

// IndexPriority returns the default priority of a package index.
func (p *Policy) IndexPriority(f *pkg.Index) int {
	switch {
	case f.Installed:
		return PriorityInstalled
	case f.NotAutomatic && f.ButAutomaticUpgrades:
		return PriorityInstalled
	case f.NotAutomatic:
		return PriorityNotAutomatic
	case p.cfg.DefaultRelease != "" &&
		(f.Archive == p.cfg.DefaultRelease || f.Codename == p.cfg.DefaultRelease):
		return PriorityDefaultRelease
	}
	return PriorityDefault
}

// VerPriority returns the priority of a single version.
func (p *Policy) VerPriority(v *pkg.Ver) int {
	if pin := p.PinFor(v); pin != nil {
		return pin.Priority
	}
	best := math.MinInt32
	for _, f := range v.Files {
		if pr := p.IndexPriority(f); pr > best {
			best = pr
		}
	}
	if best == math.MinInt32 {
		return 0
	}
	return best
}

// GetPriority returns the priority a pin for this package assigns, or 0 if
// no pin names the package.
func (p *Policy) GetPriority(pk *pkg.Pkg) int {
	for _, pin := range p.applicablePins(pk.Name) {
		if pin.General() {
			continue
		}
		return pin.Priority
	}
	return 0
}

// GetMatch returns the newest version selected by the most specific pin
// that selects any version of the package, or nil.
func (p *Policy) GetMatch(pk *pkg.Pkg) *pkg.Ver {
	for _, pin := range p.applicablePins(pk.Name) {
		for _, v := range pk.Versions {
			if pin.matchesVer(v) {
				return v
			}
		}
	}
	return nil
}

// GetCandidateVer picks the version the package should be installed at, or
// nil when no version qualifies.
func (p *Policy) GetCandidateVer(pk *pkg.Pkg) *pkg.Ver {
	inst := pk.Current
	var best *pkg.Ver
	bestPr := math.MinInt32
	for _, v := range pk.Versions {
		pr := p.VerPriority(v)
		if v != inst {
			if pr < 0 {
				continue
			}
			if inst != nil && pr < PriorityDowngrade && debver.Compare(v.Version, inst.Version) < 0 {
				continue
			}
		}
		// versions come newest first, so on a tie the earlier one stays
		// unless both compare equal and the later one is installed
		if best == nil || pr > bestPr ||
			(pr == bestPr && v == inst && debver.Compare(v.Version, best.Version) == 0) {
			best, bestPr = v, pr
		}
	}
	return best
}
