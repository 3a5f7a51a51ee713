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

// Package config holds the settings the engine is constructed with.
package config

import "runtime"

// Config is passed to every engine component at construction. Nothing in
// the engine reads process-wide settings.
type Config struct {
	// Architecture is the native package architecture, e.g. amd64.
	Architecture string `mapstructure:"architecture" json:"architecture"`
	// DefaultRelease gets priority 990 when matching an index archive or
	// codename.
	DefaultRelease string `mapstructure:"default-release" json:"defaultRelease"`
	// InstallRecommends makes MarkInstall follow Recommends.
	InstallRecommends bool `mapstructure:"install-recommends" json:"installRecommends"`
	// InstallSuggests makes MarkInstall follow Suggests.
	InstallSuggests bool `mapstructure:"install-suggests" json:"installSuggests"`
	// RecommendsImportant keeps packages reachable through Recommends out
	// of the garbage set.
	RecommendsImportant bool `mapstructure:"recommends-important" json:"recommendsImportant"`
	// MaxResolvePasses bounds the problem resolver. Zero derives the bound
	// from the package count.
	MaxResolvePasses int `mapstructure:"max-resolve-passes" json:"maxResolvePasses"`
	// NoLocking skips the archive lock during commit.
	NoLocking bool `mapstructure:"no-locking" json:"noLocking"`
	// ArchivesDir is where fetched archives and the lock file live.
	ArchivesDir string `mapstructure:"archives-dir" json:"archivesDir"`
	Debug       bool   `mapstructure:"debug" json:"debug"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Architecture:        NativeArch(),
		InstallRecommends:   true,
		RecommendsImportant: true,
		ArchivesDir:         "/var/cache/apt/archives",
	}
}

// NativeArch maps the Go architecture of the running binary to its Debian
// name.
func NativeArch() string {
	switch runtime.GOARCH {
	case "386":
		return "i386"
	case "arm":
		return "armhf"
	case "ppc64le":
		return "ppc64el"
	}
	return runtime.GOARCH
}
