//go:build !windows
// +build !windows

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

package statepath

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"helm.sh/helm/v3/pkg/helmpath/xdg"
)

func TestStatePaths(t *testing.T) {
	is := assert.New(t)
	defer resetEnv()()

	os.Setenv(xdg.CacheHomeEnvVar, "/cache")
	os.Setenv(xdg.ConfigHomeEnvVar, "/config")
	os.Setenv(xdg.DataHomeEnvVar, "/data")

	is.Equal("/cache/depcache", CachePath())
	is.Equal("/config/depcache", ConfigPath())
	is.Equal("/data/depcache", DataPath())
	is.Equal("/config/depcache/config.yaml", ConfigFile())
	is.Equal("/config/depcache/world.yaml", WorldFile())
	is.Equal("/cache/depcache/archives", ArchivesDir())
	is.Equal("/data/depcache/history.db", HistoryDB())

	os.Setenv(xdg.CacheHomeEnvVar, "/cache2")
	is.Equal("/cache2/depcache/archives", ArchivesDir())
}

func TestStatePathDefaults(t *testing.T) {
	defer resetEnv()()
	home := t.TempDir()
	os.Setenv("HOME", home)
	os.Unsetenv(xdg.CacheHomeEnvVar)
	os.Unsetenv(xdg.DataHomeEnvVar)

	if runtime.GOOS == "darwin" {
		assert.Equal(t, filepath.Join(home, "Library", "Caches", "depcache", "archives"), ArchivesDir())
		return
	}
	assert.Equal(t, filepath.Join(home, ".cache", "depcache", "archives"), ArchivesDir())
	assert.Equal(t, filepath.Join(home, ".local", "share", "depcache", "history.db"), HistoryDB())
}

func TestLockFile(t *testing.T) {
	is := assert.New(t)

	p, err := LockFile("/var/cache/depcache/archives")
	is.NoError(err)
	is.Equal("/var/cache/depcache/archives/lock", p)
}

func resetEnv() func() {
	vars := []string{"HOME", xdg.CacheHomeEnvVar, xdg.ConfigHomeEnvVar, xdg.DataHomeEnvVar}
	orig := map[string]string{}
	set := map[string]bool{}
	for _, v := range vars {
		orig[v], set[v] = os.LookupEnv(v)
	}
	return func() {
		for _, v := range vars {
			if set[v] {
				os.Setenv(v, orig[v])
			} else {
				os.Unsetenv(v)
			}
		}
	}
}
