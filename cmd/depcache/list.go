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
	"io"
	"strings"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"helm.sh/helm/v3/cmd/helm/require"
	"helm.sh/helm/v3/pkg/cli/output"

	"github.com/rancher-sandbox/depcache/pkg/action"
)

var listHelp = `
List packages with their installed and candidate versions.

An optional shell pattern restricts the listing to matching package names.
The filter flags combine: --installed --upgradable lists installed packages
that have an upgrade.
`

func newListCmd(logger log.Logger) *cobra.Command {
	var outfmt output.Format
	var short bool
	client := &action.List{}

	cmd := &cobra.Command{
		Use:     "list [PATTERN]",
		Short:   "list packages",
		Long:    listHelp,
		Aliases: []string{"ls"},
		Args:    require.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actionConfig, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			client.Config = actionConfig
			if len(args) == 1 {
				client.Pattern = args[0]
			}
			results, err := client.Run(d)
			if err != nil {
				return err
			}

			// Get an io.Writer compliant logger instance at the info level.
			wInfo := logio.NewWriter(logger, log.InfoLevel)

			if short {
				names := make([]string, 0, len(results))
				for _, res := range results {
					names = append(names, res.Name)
				}
				switch outfmt {
				case output.JSON:
					return output.EncodeJSON(wInfo, names)
				case output.YAML:
					return output.EncodeYAML(wInfo, names)
				}
				for _, n := range names {
					logger.Info(n)
				}
				return writeMetrics(d, logger)
			}

			if err := outfmt.Write(wInfo, &listWriter{results}); err != nil {
				return err
			}
			return writeMetrics(d, logger)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&short, "short", "q", false, "output short (quiet) listing format")
	f.BoolVarP(&client.Installed, "installed", "i", false, "show installed packages only")
	f.BoolVarP(&client.Upgradable, "upgradable", "u", false, "show packages with an upgrade only")
	f.BoolVarP(&client.Autoremovable, "autoremovable", "a", false, "show packages nothing needs anymore only")
	f.BoolVar(&client.Broken, "broken", false, "show packages with unmet dependencies only")
	bindOutputFlag(cmd, &outfmt)

	return cmd
}

type listWriter struct {
	entries []action.ListEntry
}

func (l *listWriter) WriteTable(out io.Writer) error {
	table := uitable.New()
	table.AddRow("NAME", "ARCH", "INSTALLED", "CANDIDATE", "ARCHIVE", "STATE")
	for _, e := range l.entries {
		table.AddRow(e.Name, e.Arch, orDash(e.Installed), orDash(e.Candidate), orDash(e.Archive), listState(e))
	}
	return output.EncodeTable(out, table)
}

func (l *listWriter) WriteJSON(out io.Writer) error {
	return output.EncodeJSON(out, l.entries)
}

func (l *listWriter) WriteYAML(out io.Writer) error {
	return output.EncodeYAML(out, l.entries)
}

func listState(e action.ListEntry) string {
	var states []string
	if e.Installed != "" {
		if e.Auto {
			states = append(states, "installed,automatic")
		} else {
			states = append(states, "installed")
		}
	}
	if e.Upgradable {
		states = append(states, yellow("upgradable"))
	}
	if e.Autoremovable {
		states = append(states, yellow("autoremovable"))
	}
	if e.Broken {
		states = append(states, red("broken"))
	}
	return strings.Join(states, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
