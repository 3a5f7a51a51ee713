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
	"errors"
	"io"
	"os"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

var globalUsage = `Usage: depcache command

Plan package installations, upgrades and removals against Debian package
indexes, the way APT does.

The package indexes and the installed system are described by a world file
(--world): a YAML list of Packages files with their release metadata, the
dpkg status file and the extended states file. Pin files in the APT
preferences format adjust which version of each package is the candidate.

Commands only show the changes they would make. With --commit the changes
are fetched and installed through a simulated backend and recorded in the
history database.

Environment variables:

| Name                   | Description                                      |
|------------------------|--------------------------------------------------|
| $DEPCACHE_DEBUG        | enable verbose output                            |
| $DEPCACHE_NOCOLORS     | disable colors                                   |
| $DEPCACHE_NOEMOJIS     | disable emojis                                   |
| $DEPCACHE_WORLD        | path to the world file                           |
| $DEPCACHE_PIN_FILES    | pin files, separated by the OS list separator    |
| $DEPCACHE_CONFIG       | path to the configuration file                   |
| $DEPCACHE_METRICS_FILE | write Prometheus metrics to this file            |
| $DEPCACHE_HISTORY_DB   | path to the history database                     |
| $DEPCACHE_COMMIT       | apply the changes                                |
| $DEPCACHE_<KEY>        | override a configuration key, e.g. ARCHIVES_DIR  |
`

func newLogger(out, errOut io.Writer) log.Logger {
	logger := logcli.NewStandard()
	logger.InfoOut = out
	logger.WarnOut = errOut
	logger.ErrorOut = errOut
	logger.DebugOut = errOut
	if settings.Debug {
		logger.Level = log.DebugLevel
	}
	return logger
}

func newRootCmd(out, errOut io.Writer, args []string) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:          "depcache",
		Short:        "An APT-like dependency cache and problem resolver",
		Long:         globalUsage,
		SilenceUsage: true,
	}

	// The global flags are parsed ahead of cobra so the logger sees --debug.
	// A separate set keeps cobra from appending to --pin-file a second time.
	early := pflag.NewFlagSet(cmd.Use, pflag.ContinueOnError)
	early.SetOutput(io.Discard)
	early.ParseErrorsWhitelist.UnknownFlags = true
	settings.AddFlags(early)
	err := early.Parse(args)
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		return nil, err
	}
	settings.AddFlags(cmd.PersistentFlags())

	logger := newLogger(out, errOut)

	cmd.AddCommand(
		newInstallCmd(logger),
		newRemoveCmd(logger),
		newUpgradeCmd(logger),
		newFixBrokenCmd(logger),
		newAutoremoveCmd(logger),
		newListCmd(logger),
		newPolicyCmd(logger),
		newShowCmd(logger),
		newSearchCmd(logger),
		newLintCmd(logger),
		newHistoryCmd(logger),
		newVersionCmd(logger),
	)

	if settings.NoColors || out != io.Writer(os.Stdout) || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true // disable colorized output
	}

	return cmd, nil
}
