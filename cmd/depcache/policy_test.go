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

func TestPolicyCmd(t *testing.T) {
	tests := []cmdTestCase{
		{
			name:     "index priorities",
			cmd:      world + " policy",
			contains: []string{"PRIORITY", "500", "unstable/main", "Debian", "100", "now"},
		},
		{
			name:     "pins",
			cmd:      world + " --pin-file testdata/preferences policy",
			contains: []string{"PACKAGE", "app", "version", "1.0*", "1001"},
		},
		{
			name:     "package",
			cmd:      world + " policy app",
			contains: []string{"Installed: 1.0-1", "Candidate: 2.0-1", "Version table:", "*** 1.0-1", "/var/lib/dpkg/status", "http://deb.debian.org unstable/main"},
		},
		{
			name:     "pinned package",
			cmd:      world + " --pin-file testdata/preferences policy app",
			contains: []string{"Candidate: 1.0-1", "Package pin: 1001"},
		},
		{
			name:     "not installed",
			cmd:      world + " policy tool",
			contains: []string{"Installed: (none)", "Candidate: 3.1-1"},
		},
		{
			name:      "unknown package",
			cmd:       world + " policy nosuch",
			wantError: true,
		},
	}
	runTestCmd(t, tests)
}

func TestShowCmd(t *testing.T) {
	tests := []cmdTestCase{
		{
			name: "candidate",
			cmd:  world + " show tool",
			contains: []string{
				"Package: tool",
				"Version: 3.1-1",
				"Depends: helper",
				"Provides: frobnicator",
				"Download-Size: 500",
			},
		},
		{
			name:     "explicit version",
			cmd:      world + " show app=1.0-1",
			contains: []string{"Version: 1.0-1", "Depends: libapp"},
		},
		{
			name:      "needs one package",
			cmd:       world + " show",
			wantError: true,
		},
	}
	runTestCmd(t, tests)
}
