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

const installDesc = `
This command marks packages for installation, with their dependencies.

Each argument names a package, optionally qualified:

  name            the candidate version of name
  name:arch       a package of another architecture
  name=version    a specific version
  name/release    the version from a release, by archive or codename

A virtual package provided by exactly one package selects that package.
Packages that are already installed at their candidate are marked manually
installed.
`

func newInstallCmd(logger log.Logger) *cobra.Command {
	var cf changeFlags
	var noAutoInst, reinstall bool
	var depthLimit int

	cmd := &cobra.Command{
		Use:   "install [PKG...]",
		Short: "install packages",
		Long:  installDesc,
		Args:  require.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actionConfig, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			targets, err := action.ParseTargets(d.Cache(), args, logger)
			if err != nil {
				return err
			}

			client := action.NewInstall(actionConfig)
			client.NoAutoInst = noAutoInst
			client.Reinstall = reinstall
			client.DepthLimit = depthLimit
			rs, err := client.Run(d, targets)
			if err != nil {
				return err
			}
			return finishChanges(cmd, actionConfig, d, rs, &cf, logger)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&noAutoInst, "no-auto-install", false, "do not mark the dependencies of the packages")
	f.BoolVar(&reinstall, "reinstall", false, "reinstall packages that are already at their candidate version")
	f.IntVar(&depthLimit, "depth-limit", 0, "how deep dependencies are followed, 0 for no limit")
	bindChangeFlags(cmd, &cf)
	return cmd
}
