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

// Package statepath calculates the on-disk locations depcache keeps its
// configuration, downloaded archives and history in.
package statepath

import (
	securejoin "github.com/cyphar/filepath-securejoin"
)

const lp = lazypath("depcache")

// ConfigPath returns the path where depcache stores configuration.
func ConfigPath(elem ...string) string { return lp.configPath(elem...) }

// CachePath returns the path where depcache stores downloaded archives.
func CachePath(elem ...string) string { return lp.cachePath(elem...) }

// DataPath returns the path where depcache stores its history.
func DataPath(elem ...string) string { return lp.dataPath(elem...) }

// ConfigFile is the default configuration file.
func ConfigFile() string { return ConfigPath("config.yaml") }

// WorldFile is the default world file.
func WorldFile() string { return ConfigPath("world.yaml") }

// ArchivesDir is the default directory fetched archives go to.
func ArchivesDir() string { return CachePath("archives") }

// HistoryDB is the default history database.
func HistoryDB() string { return DataPath("history.db") }

// LockFile returns the lock file guarding an archives directory.
func LockFile(archivesDir string) (string, error) {
	return securejoin.SecureJoin(archivesDir, "lock")
}
