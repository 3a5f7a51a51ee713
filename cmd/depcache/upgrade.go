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

const upgradeDesc = `
This command upgrades every installed package to its candidate version.

A plain upgrade never installs or removes packages: upgrades that would
need that are kept back. With --dist new dependencies are installed and
conflicting packages removed as needed.
`

func newUpgradeCmd(logger log.Logger) *cobra.Command {
	var cf changeFlags
	var dist, minimize bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "upgrade installed packages",
		Long:  upgradeDesc,
		Args:  require.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actionConfig, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			client := action.NewUpgrade(actionConfig)
			client.Dist = dist
			client.Minimize = minimize
			rs, err := client.Run(d)
			if err != nil {
				return err
			}
			return finishChanges(cmd, actionConfig, d, rs, &cf, logger)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&dist, "dist", false, "install and remove packages as needed")
	f.BoolVar(&minimize, "minimize", false, "with --dist, only upgrade what the new installs need")
	bindChangeFlags(cmd, &cf)
	return cmd
}

func newFixBrokenCmd(logger log.Logger) *cobra.Command {
	var cf changeFlags

	cmd := &cobra.Command{
		Use:   "fix-broken",
		Short: "repair packages with unmet dependencies",
		Args:  require.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actionConfig, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			rs, err := action.NewFixBroken(actionConfig).Run(d)
			if err != nil {
				return err
			}
			return finishChanges(cmd, actionConfig, d, rs, &cf, logger)
		},
	}
	bindChangeFlags(cmd, &cf)
	return cmd
}

func newAutoremoveCmd(logger log.Logger) *cobra.Command {
	var cf changeFlags
	var purge bool

	cmd := &cobra.Command{
		Use:   "autoremove",
		Short: "remove automatically installed packages nothing needs anymore",
		Args:  require.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actionConfig, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			client := action.NewAutoremove(actionConfig)
			client.Purge = purge
			rs, err := client.Run(d)
			if err != nil {
				return err
			}
			return finishChanges(cmd, actionConfig, d, rs, &cf, logger)
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "remove configuration files too")
	bindChangeFlags(cmd, &cf)
	return cmd
}
