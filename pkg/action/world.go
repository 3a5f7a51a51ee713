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
	"context"

	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/policy"
	"github.com/rancher-sandbox/depcache/internal/solver"
	"github.com/rancher-sandbox/depcache/pkg/repo"
)

// BuildWorld loads every source of the world file, applies the pin files
// and returns an initialized DepCache over the result.
func BuildWorld(ctx context.Context, cfg *Configuration, world *repo.File, pinFiles []string,
	progress solver.Progress) (*solver.DepCache, error) {

	c, err := world.Load(cfg.Config.Architecture, cfg.Log)
	if err != nil {
		return nil, err
	}
	return buildDepCache(ctx, cfg, c, pinFiles, progress)
}

func buildDepCache(ctx context.Context, cfg *Configuration, c *pkg.Cache, pinFiles []string,
	progress solver.Progress) (*solver.DepCache, error) {

	c.Seal()
	if cfg.Config.Debug {
		c.DebugPrintDB(cfg.Log)
	}

	pol := policy.New(c, cfg.Config, cfg.Errors, cfg.Log)
	for _, pf := range pinFiles {
		ok, err := cfg.handleErrors(pol.ReadPinFile(pf))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Wrapf(errorlist.ErrParse, "couldn't read pin file (%s)", pf)
		}
	}

	d := solver.New(c, pol, cfg.Config, cfg.Errors, cfg.Log)
	if err := d.Init(ctx, progress); err != nil {
		return nil, err
	}
	if _, err := cfg.handleErrors(true); err != nil {
		return nil, err
	}
	return d, nil
}
