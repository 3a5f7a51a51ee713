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

package lint

import (
	"path/filepath"

	"helm.sh/helm/v3/pkg/lint/support"

	"github.com/rancher-sandbox/depcache/pkg/lint/rules"
)

// All runs all of the available linters on the given world file and pin
// files or directories.
func All(worldPath string, pinFiles []string) support.Linter {
	// Using abs path to get directory context
	dir, _ := filepath.Abs(filepath.Dir(worldPath))

	linter := support.Linter{ChartDir: dir}
	rules.World(&linter, filepath.Base(worldPath))
	for _, p := range pinFiles {
		rules.Pins(&linter, p)
	}
	return linter
}
