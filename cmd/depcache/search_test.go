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

package main

import (
	"testing"
)

func TestSearchCmd(t *testing.T) {
	tests := []cmdTestCase{
		{
			name:     "keyword",
			cmd:      world + " search app",
			contains: []string{"NAME", "app:amd64", "libapp:amd64", "2.0-1", "unstable"},
			excludes: []string{"tool"},
		},
		{
			name:     "virtual package",
			cmd:      world + " search frobnicator",
			contains: []string{"tool:amd64", "frobnicator"},
		},
		{
			name:     "all versions with constraint",
			cmd:      world + " search libapp --versions --version '<< 2.0'",
			contains: []string{"libapp:amd64 [installed]", "1.0-1"},
			excludes: []string{"2.0-1"},
		},
		{
			name:     "regexp as json",
			cmd:      world + " search -r '^(app|tool)$' -o json",
			contains: []string{`"name":"app"`, `"name":"tool"`},
			excludes: []string{`"name":"libapp"`},
		},
		{
			name:     "no results",
			cmd:      world + " search nosuch",
			contains: []string{"No results found"},
		},
		{
			name:      "bad constraint",
			cmd:       world + " search app --version '>>'",
			wantError: true,
		},
	}
	runTestCmd(t, tests)
}
