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

package rules

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"helm.sh/helm/v3/pkg/lint/support"

	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/pkg/repo"
)

func lintWorld(t *testing.T, dir string) support.Linter {
	t.Helper()
	abs, err := filepath.Abs(dir)
	assert.NoError(t, err)
	linter := support.Linter{ChartDir: abs}
	World(&linter, "world.yaml")
	return linter
}

func TestWorldGood(t *testing.T) {
	linter := lintWorld(t, "testdata/goodworld")
	assert.Empty(t, linter.Messages)
	assert.Equal(t, support.UnknownSev, linter.HighestSeverity)
}

func TestWorldBad(t *testing.T) {
	is := assert.New(t)
	linter := lintWorld(t, "testdata/badworld")
	is.Len(linter.Messages, 5, "got %v", linter.Messages)
	is.Equal(support.ErrorSev, linter.HighestSeverity)

	want := map[int][]string{
		support.InfoSev:    {"Setting architecture is optional", "Setting site on source 0 (Packages)"},
		support.WarningSev: {"Setting status is recommended", "Setting archive or release on source 0 (Packages)"},
		support.ErrorSev:   {"Packages-missing not found"},
	}
	for sev, msgs := range want {
		for _, w := range msgs {
			found := false
			for _, m := range linter.Messages {
				if m.Severity == sev && strings.Contains(m.Err.Error(), w) {
					found = true
				}
			}
			is.True(found, "missing %q in %v", w, linter.Messages)
		}
	}
}

func TestWorldBroken(t *testing.T) {
	is := assert.New(t)
	linter := lintWorld(t, "testdata/brokenworld")
	if is.Len(linter.Messages, 1) {
		is.Equal(support.ErrorSev, linter.Messages[0].Severity)
		is.Contains(linter.Messages[0].Err.Error(), "world file is broken")
	}

	linter = lintWorld(t, "testdata/nosuch")
	if is.Len(linter.Messages, 1) {
		is.Contains(linter.Messages[0].Err.Error(), "unable to read world file")
	}
}

func TestValidateSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []*repo.Source
		wantErr string
	}{
		{name: "none", wantErr: "no sources listed"},
		{name: "no index", sources: []*repo.Source{{Release: "Release"}}, wantErr: "no packages index"},
		{
			name:    "duplicate",
			sources: []*repo.Source{{Packages: "Packages"}, {Packages: "Packages"}},
			wantErr: "listed more than once",
		},
		{
			name:    "fine",
			sources: []*repo.Source{{Packages: "Packages"}, {Packages: "Packages-backports"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := repo.NewFile("")
			w.Add(tt.sources...)
			err := validateSources(w)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSourceRelease(t *testing.T) {
	is := assert.New(t)
	is.Error(validateSourceRelease(0, &repo.Source{Packages: "Packages"}))
	is.NoError(validateSourceRelease(0, &repo.Source{Packages: "Packages", Release: "Release"}))
	is.NoError(validateSourceRelease(0, &repo.Source{Packages: "Packages", Index: pkg.Index{Codename: "sid"}}))
	is.Error(validateSourceSite(0, &repo.Source{Packages: "Packages"}))
	is.NoError(validateSourceSite(0, &repo.Source{Packages: "Packages", Index: pkg.Index{Site: "deb.example.org"}}))
}
