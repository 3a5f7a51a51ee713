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

func TestListCmd(t *testing.T) {
	tests := []cmdTestCase{
		{
			name:     "list all",
			cmd:      world + " list",
			contains: []string{"NAME", "CANDIDATE", "tool", "helper", "unstable"},
		},
		{
			name:     "list upgradable names",
			cmd:      world + " list -u -q",
			contains: []string{"app\n", "libapp\n"},
			excludes: []string{"tool", "NAME"},
		},
		{
			name:     "list with pattern",
			cmd:      world + " ls 'lib*'",
			contains: []string{"libapp"},
			excludes: []string{"tool"},
		},
		{
			name:     "list autoremovable as json",
			cmd:      world + " list -a -q -o json",
			contains: []string{`["orphan"]`},
		},
		{
			name:      "bad pattern",
			cmd:       world + " list '['",
			wantError: true,
		},
		{
			name:      "too many patterns",
			cmd:       world + " list app tool",
			wantError: true,
		},
	}
	runTestCmd(t, tests)
}
