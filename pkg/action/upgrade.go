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
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/solver"
)

// Upgrade moves installed packages to their candidates.
type Upgrade struct {
	// Dist allows installing new packages and removing blockers.
	Dist bool
	// Minimize undoes upgrades nothing needs, after a Dist upgrade.
	Minimize bool
	Config   *Configuration
}

// NewUpgrade creates a new Upgrade object with the given configuration.
func NewUpgrade(cfg *Configuration) *Upgrade {
	return &Upgrade{
		Config: cfg,
	}
}

// Run performs the upgrade and returns the pending changes.
func (u *Upgrade) Run(d *solver.DepCache) (*solver.ResultSet, error) {
	cfg := u.Config
	if ok, err := cfg.handleErrors(true); !ok {
		return nil, err
	}

	if !d.Upgrade(u.Dist) {
		cfg.Errors.Errorf(errorlist.ErrResolutionFailure, "%d broken packages remain", d.BrokenCount())
	} else if u.Dist && u.Minimize {
		d.MinimizeUpgrade()
	}

	if _, err := cfg.handleErrors(true); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}

// FixBroken installs missing dependencies of broken packages and resolves
// what remains without removing anything the user did not ask for.
type FixBroken struct {
	Config *Configuration
}

// NewFixBroken creates a new FixBroken object with the given configuration.
func NewFixBroken(cfg *Configuration) *FixBroken {
	return &FixBroken{
		Config: cfg,
	}
}

// Run repairs d and returns the pending changes.
func (f *FixBroken) Run(d *solver.DepCache) (*solver.ResultSet, error) {
	cfg := f.Config
	if ok, err := cfg.handleErrors(true); !ok {
		return nil, err
	}
	if !d.FixBroken() {
		cfg.Errors.Errorf(errorlist.ErrResolutionFailure, "unmet dependencies, %d broken packages remain", d.BrokenCount())
	}
	if _, err := cfg.handleErrors(true); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}

// Autoremove removes every automatically installed package nothing needs.
type Autoremove struct {
	Purge  bool
	Config *Configuration
}

// NewAutoremove creates a new Autoremove object with the given configuration.
func NewAutoremove(cfg *Configuration) *Autoremove {
	return &Autoremove{
		Config: cfg,
	}
}

// Run marks the garbage for removal and returns the pending changes.
func (a *Autoremove) Run(d *solver.DepCache) (*solver.ResultSet, error) {
	cfg := a.Config
	if ok, err := cfg.handleErrors(true); !ok {
		return nil, err
	}
	n := d.Autoremove(a.Purge)
	cfg.Log.Debugf("%d packages marked for autoremoval", n)

	if _, err := cfg.handleErrors(true); err != nil {
		return d.Result(), err
	}
	return d.Result(), nil
}
