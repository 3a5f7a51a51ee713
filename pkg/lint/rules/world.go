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
Package rules contains all the rules that depcache will run against a world
file and its pin files when depcache lint is run. Loading the world catches
outright errors; these rules also cover what loads fine but resolves badly.
*/
package rules

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
	"helm.sh/helm/v3/pkg/lint/support"

	"github.com/rancher-sandbox/depcache/pkg/repo"
)

// World runs the world file rules. linter.ChartDir holds the directory of
// the world file and name its base name.
func World(linter *support.Linter, name string) {
	world, err := loadWorldStrict(linter.ChartDir, name)
	if !linter.RunLinterRule(support.ErrorSev, name, err) {
		return
	}
	linter.RunLinterRule(support.InfoSev, name, validateArchitecture(world))
	linter.RunLinterRule(support.WarningSev, name, validateStatus(world))
	linter.RunLinterRule(support.ErrorSev, name, validateStateFiles(world))
	if !linter.RunLinterRule(support.ErrorSev, name, validateSources(world)) {
		return
	}
	for i, s := range world.Sources {
		linter.RunLinterRule(support.ErrorSev, name, validatePackagesFile(world, s))
		linter.RunLinterRule(support.WarningSev, name, validateSourceRelease(i, s))
		linter.RunLinterRule(support.InfoSev, name, validateSourceSite(i, s))
	}
}

// loadWorldStrict also fails on keys the world file format doesn't know,
// which a plain load silently drops.
func loadWorldStrict(dir, name string) (*repo.File, error) {
	world := repo.NewFile(dir)
	path, err := world.Path(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read world file")
	}
	if err := yaml.UnmarshalStrict(b, world); err != nil {
		return nil, errors.Wrap(err, "world file is broken, please check the correct format")
	}
	return world, nil
}

// validateArchitecture checks that the world names its architecture
func validateArchitecture(world *repo.File) error {
	if world.Architecture == "" {
		return errors.New("Setting architecture is optional, the configured one is used otherwise")
	}
	return nil
}

// validateStatus checks that the world has an installed system
func validateStatus(world *repo.File) error {
	if world.Status == "" {
		return errors.New("Setting status is recommended, nothing is installed otherwise")
	}
	return nil
}

// validateStateFiles checks that the status and extended states files exist
func validateStateFiles(world *repo.File) error {
	for _, f := range []string{world.Status, world.ExtendedStates} {
		if f == "" {
			continue
		}
		if err := exists(world, f); err != nil {
			return err
		}
	}
	return nil
}

// validateSources checks that there is something to install from, once
func validateSources(world *repo.File) error {
	if len(world.Sources) == 0 {
		return errors.New("no sources listed")
	}
	seen := map[string]bool{}
	for _, s := range world.Sources {
		if s.Packages == "" {
			return errors.New("a source has no packages index")
		}
		if seen[s.Packages] {
			return errors.Errorf("packages index %s is listed more than once", s.Packages)
		}
		seen[s.Packages] = true
	}
	return nil
}

// validatePackagesFile checks that the packages index and release file exist
func validatePackagesFile(world *repo.File, s *repo.Source) error {
	if err := exists(world, s.Packages); err != nil {
		return err
	}
	if s.Release != "" {
		return exists(world, s.Release)
	}
	return nil
}

// validateSourceRelease checks that release pins can match the source
func validateSourceRelease(i int, s *repo.Source) error {
	if s.Release == "" && s.Archive == "" && s.Codename == "" {
		return fmt.Errorf("Setting archive or release on source %d (%s) is recommended, release pins can't match it otherwise", i, s.Packages)
	}
	return nil
}

// validateSourceSite checks that archives of the source can be located
func validateSourceSite(i int, s *repo.Source) error {
	if s.Release == "" && s.Site == "" {
		return fmt.Errorf("Setting site on source %d (%s) is recommended, its archives can't be fetched otherwise", i, s.Packages)
	}
	return nil
}

func exists(world *repo.File, p string) error {
	path, err := world.Path(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Errorf("%s not found", p)
	}
	return nil
}
