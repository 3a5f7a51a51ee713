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
	"github.com/Masterminds/log-go"
	"github.com/spf13/cobra"
	"helm.sh/helm/v3/cmd/helm/require"

	"github.com/rancher-sandbox/depcache/pkg/action"
)

const removeDesc = `
This command marks packages for removal.

Installed packages that depend on them are removed as well. With --purge the
configuration files are removed too.
`

func newRemoveCmd(logger log.Logger) *cobra.Command {
	var cf changeFlags
	var purge, autoRemove bool

	cmd := &cobra.Command{
		Use:     "remove [PKG...]",
		Short:   "remove packages",
		Long:    removeDesc,
		Aliases: []string{"uninstall"},
		Args:    require.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actionConfig, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			targets, err := action.ParseTargets(d.Cache(), args, logger)
			if err != nil {
				return err
			}

			client := action.NewUninstall(actionConfig)
			client.Purge = purge
			client.AutoRemove = autoRemove
			rs, err := client.Run(d, targets)
			if err != nil {
				return err
			}
			return finishChanges(cmd, actionConfig, d, rs, &cf, logger)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&purge, "purge", false, "remove configuration files too")
	f.BoolVar(&autoRemove, "autoremove", false, "also remove packages nothing needs anymore")
	bindChangeFlags(cmd, &cf)
	return cmd
}
