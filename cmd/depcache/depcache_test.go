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
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"helm.sh/helm/v3/pkg/helmpath/xdg"

	"github.com/rancher-sandbox/depcache/pkg/cli"
)

const world = "--world testdata/world.yaml"

// cmdTestCase describes a command run and what its output must contain.
type cmdTestCase struct {
	name      string
	cmd       string
	wantError bool
	// contains and excludes are checked against the combined output.
	contains []string
	excludes []string
	// Number of repeats (in case a feature was previously flaky and the test checks
	// it's now stably producing identical results). 0 means test is run exactly once.
	repeat int
}

func runTestCmd(t *testing.T, tests []cmdTestCase) {
	t.Helper()
	for _, tt := range tests {
		for i := 0; i <= tt.repeat; i++ {
			t.Run(tt.name, func(t *testing.T) {
				defer resetEnv(t)()
				is := assert.New(t)

				t.Logf("running cmd (attempt %d): %s", i+1, tt.cmd)
				_, out, err := executeCommandStdinC(tt.cmd)
				if (err != nil) != tt.wantError {
					t.Errorf("expected error %t, got '%v'", tt.wantError, err)
				}
				if err != nil {
					out += err.Error()
				}
				for _, s := range tt.contains {
					is.Contains(out, s)
				}
				for _, s := range tt.excludes {
					is.NotContains(out, s)
				}
			})
		}
	}
}

func executeCommandStdinC(cmd string) (*cobra.Command, string, error) {
	return executeCommandStdinCWithInput(cmd, "")
}

func executeCommandStdinCWithInput(cmd, input string) (*cobra.Command, string, error) {
	args, err := shellwords.Parse(cmd)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	root, err := newRootCmd(buf, buf, args)
	if err != nil {
		return nil, "", err
	}

	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	c, err := root.ExecuteC()
	return c, buf.String(), err
}

// resetEnv points every state path into a temporary directory and restores
// the environment and the global settings afterwards.
func resetEnv(t *testing.T) func() {
	origEnv := os.Environ()

	for e := range cli.New().EnvVars() {
		os.Unsetenv(e)
	}
	dir := t.TempDir()
	os.Setenv(xdg.CacheHomeEnvVar, dir+"/cache")
	os.Setenv(xdg.ConfigHomeEnvVar, dir+"/config")
	os.Setenv(xdg.DataHomeEnvVar, dir+"/data")
	settings = cli.New()

	return func() {
		os.Clearenv()
		for _, pair := range origEnv {
			kv := strings.SplitN(pair, "=", 2)
			os.Setenv(kv[0], kv[1])
		}
		settings = cli.New()
	}
}
