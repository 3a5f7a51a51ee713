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
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/solver"
	"github.com/rancher-sandbox/depcache/pkg/eyecandy"
)

// Install marks packages for installation and repairs what that breaks.
type Install struct {
	// NoAutoInst marks only the targets. Missing dependencies are left to
	// the resolver.
	NoAutoInst bool
	// Reinstall reinstalls targets already at their candidate.
	Reinstall bool
	// DepthLimit bounds dependency recursion, zero meaning unbounded.
	DepthLimit int

	// Config stores the actionconfig so it can be retrieved and used again
	Config *Configuration
}

// NewInstall creates a new Install object with the given configuration.
func NewInstall(cfg *Configuration) *Install {
	return &Install{
		Config: cfg,
	}
}

// Run marks the targets for installation inside one action group, protects
// them and calls the problem resolver if anything broke. The returned
// result describes the pending changes.
func (i *Install) Run(d *solver.DepCache, targets []*Target) (*solver.ResultSet, error) {
	cfg := i.Config
	if ok, err := cfg.handleErrors(true); !ok {
		return nil, err
	}

	g := d.NewActionGroup()
	defer g.Release()

	for _, t := range targets {
		if t.Ver != nil {
			if err := d.SetCandidateVer(t.Pkg, t.Ver); err != nil {
				return nil, err
			}
		}
		cand := d.GetCandidateVer(t.Pkg)
		if cand == nil {
			cfg.Errors.Errorf(errorlist.ErrResolutionFailure, "package %s has no installation candidate", t.Pkg.FullName())
			continue
		}
		if t.Pkg.Current == cand {
			if !i.Reinstall {
				cfg.Log.Infof("%s is already the newest version (%s).", t.Pkg.Name, cand.Version)
				d.MarkInstall(t.Pkg, false, 0, true)
				continue
			}
			if !cand.Downloadable() {
				cfg.Errors.Warning(errors.Errorf("reinstallation of %s is not possible, it cannot be downloaded", t.Pkg.Name))
				continue
			}
			d.SetReInstall(t.Pkg, true)
		}
		cfg.Log.Debug(eyecandy.ESPrintf(cfg.NoEmojis, eyecandy.Action(string(solver.ActionInstall))+"marking %s for installation", cand))
		d.MarkInstall(t.Pkg, !i.NoAutoInst, i.DepthLimit, true)
	}

	if d.BrokenCount() > 0 {
		r := solver.NewProblemResolver(d)
		for _, t := range targets {
			r.Protect(t.Pkg)
		}
		if !r.Resolve(true) {
			cfg.Errors.Errorf(errorlist.ErrResolutionFailure, "%d broken packages remain", d.BrokenCount())
		}
	}
	g.Release()

	if _, err := cfg.handleErrors(true); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}
