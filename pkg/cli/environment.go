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

/*Package cli describes the operating environment of the depcache CLI:
settings coming from DEPCACHE_* environment variables, global flags and the
configuration file.
*/
package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/pkg/statepath"
)

// EnvSettings describes all of the environment settings.
type EnvSettings struct {
	Debug    bool
	NoColors bool
	NoEmojis bool
	// World is the world file listing the package indexes.
	World string
	// PinFiles are read in order; later pins win ties.
	PinFiles []string
	// ConfigFile holds config.Config overrides, in any format viper reads.
	ConfigFile string
	// MetricsFile, when set, gets a Prometheus textfile after each command.
	MetricsFile string
	HistoryDB   string
	// Commit applies the changes instead of only showing them.
	Commit bool
}

// New returns the settings with the environment applied over the defaults.
func New() *EnvSettings {
	env := &EnvSettings{
		World:       envOr("DEPCACHE_WORLD", statepath.WorldFile()),
		ConfigFile:  envOr("DEPCACHE_CONFIG", statepath.ConfigFile()),
		MetricsFile: os.Getenv("DEPCACHE_METRICS_FILE"),
		HistoryDB:   envOr("DEPCACHE_HISTORY_DB", statepath.HistoryDB()),
	}
	env.Debug, _ = strconv.ParseBool(os.Getenv("DEPCACHE_DEBUG"))
	env.NoColors, _ = strconv.ParseBool(os.Getenv("DEPCACHE_NOCOLORS"))
	env.NoEmojis, _ = strconv.ParseBool(os.Getenv("DEPCACHE_NOEMOJIS"))
	env.Commit, _ = strconv.ParseBool(os.Getenv("DEPCACHE_COMMIT"))
	if v := os.Getenv("DEPCACHE_PIN_FILES"); v != "" {
		env.PinFiles = strings.Split(v, string(os.PathListSeparator))
	}
	return env
}

// AddFlags binds flags to the given flagset.
func (s *EnvSettings) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&s.Debug, "debug", s.Debug, "enable verbose output")
	fs.BoolVar(&s.NoColors, "no-colors", s.NoColors, "disable colors")
	fs.BoolVar(&s.NoEmojis, "no-emojis", s.NoEmojis, "disable emojis")
	fs.StringVar(&s.World, "world", s.World, "path to the world file listing package indexes")
	fs.StringSliceVar(&s.PinFiles, "pin-file", s.PinFiles, "read pins from an APT preferences file or directory (can be repeated)")
	fs.StringVar(&s.ConfigFile, "config", s.ConfigFile, "path to the configuration file")
	fs.StringVar(&s.MetricsFile, "metrics-file", s.MetricsFile, "write Prometheus metrics to this file")
	fs.StringVar(&s.HistoryDB, "history-db", s.HistoryDB, "path to the history database")
	fs.BoolVar(&s.Commit, "commit", s.Commit, "fetch and install the changes instead of only showing them")
}

// EnvVars returns the environment variables depcache reads, with the
// current value of each.
func (s *EnvSettings) EnvVars() map[string]string {
	return map[string]string{
		"DEPCACHE_DEBUG":        strconv.FormatBool(s.Debug),
		"DEPCACHE_NOCOLORS":     strconv.FormatBool(s.NoColors),
		"DEPCACHE_NOEMOJIS":     strconv.FormatBool(s.NoEmojis),
		"DEPCACHE_WORLD":        s.World,
		"DEPCACHE_PIN_FILES":    strings.Join(s.PinFiles, string(os.PathListSeparator)),
		"DEPCACHE_CONFIG":       s.ConfigFile,
		"DEPCACHE_METRICS_FILE": s.MetricsFile,
		"DEPCACHE_HISTORY_DB":   s.HistoryDB,
		"DEPCACHE_COMMIT":       strconv.FormatBool(s.Commit),
	}
}

// LoadConfig builds the engine configuration: defaults, then the config
// file, then DEPCACHE_<KEY> variables. A missing config file is only an
// error when it is not the default one.
func (s *EnvSettings) LoadConfig() (*config.Config, error) {
	v := viper.New()

	defaults := config.Default()
	v.SetDefault("architecture", defaults.Architecture)
	v.SetDefault("default-release", defaults.DefaultRelease)
	v.SetDefault("install-recommends", defaults.InstallRecommends)
	v.SetDefault("install-suggests", defaults.InstallSuggests)
	v.SetDefault("recommends-important", defaults.RecommendsImportant)
	v.SetDefault("max-resolve-passes", defaults.MaxResolvePasses)
	v.SetDefault("no-locking", defaults.NoLocking)
	v.SetDefault("archives-dir", statepath.ArchivesDir())
	v.SetDefault("debug", false)

	v.SetEnvPrefix("depcache")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if s.ConfigFile != "" {
		_, err := os.Stat(s.ConfigFile)
		switch {
		case os.IsNotExist(err) && s.ConfigFile == statepath.ConfigFile():
		case err != nil:
			return nil, errors.Wrapf(err, "couldn't load config file (%s)", s.ConfigFile)
		default:
			v.SetConfigFile(s.ConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "couldn't load config file (%s)", s.ConfigFile)
			}
		}
	}

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "couldn't parse configuration")
	}
	if s.Debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
