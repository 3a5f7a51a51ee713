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
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/rancher-sandbox/depcache/pkg/cli"
)

func TestRootCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		envvars map[string]string
		debug   bool
		world   string
	}{
		{
			name:  "defaults",
			args:  "version",
			world: "",
		},
		{
			name:  "with flags",
			args:  "version --debug --world /srv/world.yaml",
			debug: true,
			world: "/srv/world.yaml",
		},
		{
			name:    "with envvars",
			args:    "version",
			envvars: map[string]string{"DEPCACHE_DEBUG": "1", "DEPCACHE_WORLD": "/srv/world.yaml"},
			debug:   true,
			world:   "/srv/world.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer resetEnv(t)()
			for k, v := range tt.envvars {
				os.Setenv(k, v)
			}
			settings = cli.New()

			if _, _, err := executeCommandStdinC(tt.args); err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			assert.Equal(t, tt.debug, settings.Debug)
			if tt.world != "" {
				assert.Equal(t, tt.world, settings.World)
			}
			assert.True(t, color.NoColor, "colors are off when not writing to a terminal")
		})
	}
}

func TestRootCmdNoColors(t *testing.T) {
	defer resetEnv(t)()
	defer func(v bool) { color.NoColor = v }(color.NoColor)

	_, _, err := executeCommandStdinC("version --no-colors")
	assert.NoError(t, err)
	assert.True(t, settings.NoColors)
	assert.True(t, color.NoColor)
}

func TestUnknownCommand(t *testing.T) {
	defer resetEnv(t)()
	_, _, err := executeCommandStdinC("frobnicate")
	assert.Error(t, err)
}

func TestRootCmdPinFilesOnce(t *testing.T) {
	defer resetEnv(t)()

	_, out, err := executeCommandStdinC(world + " --pin-file testdata/preferences policy")
	assert.NoError(t, err)
	assert.Equal(t, []string{"testdata/preferences"}, settings.PinFiles)
	assert.Equal(t, 1, strings.Count(out, "1001"))
}
