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

// Uninstall marks packages for removal.
type Uninstall struct {
	Purge bool
	// AutoRemove also removes what becomes garbage.
	AutoRemove bool
	Config     *Configuration
}

// NewUninstall creates a new Uninstall object with the given configuration.
func NewUninstall(cfg *Configuration) *Uninstall {
	return &Uninstall{
		Config: cfg,
	}
}

// Run marks the targets for removal and lets the resolver remove what
// depends on them. The removals themselves are protected. Targets that are not installed are skipped with a
// warning.
func (u *Uninstall) Run(d *solver.DepCache, targets []*Target) (*solver.ResultSet, error) {
	cfg := u.Config
	if ok, err := cfg.handleErrors(true); !ok {
		return nil, err
	}

	g := d.NewActionGroup()
	defer g.Release()

	r := solver.NewProblemResolver(d)
	for _, t := range targets {
		if t.Pkg.Current == nil {
			cfg.Errors.Warning(errors.Errorf("package '%s' is not installed, so not removed", t.Pkg.Name))
			continue
		}
		cfg.Log.Debug(eyecandy.ESPrintf(cfg.NoEmojis, eyecandy.Action(string(solver.ActionRemove))+"marking %s for removal", t.Pkg.FullName()))
		d.MarkDelete(t.Pkg, u.Purge)
		r.Protect(t.Pkg)
	}
	if d.BrokenCount() > 0 && !r.Resolve(false) {
		cfg.Errors.Errorf(errorlist.ErrResolutionFailure, "%d broken packages remain", d.BrokenCount())
	}
	g.Release()

	if u.AutoRemove {
		d.Autoremove(u.Purge)
	}

	if _, err := cfg.handleErrors(true); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}
