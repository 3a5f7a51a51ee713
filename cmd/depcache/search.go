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

	"github.com/rancher-sandbox/depcache/pkg/search"
)

const searchDesc = `
Search looks for packages whose name, or the name of a virtual package they
provide, contains every keyword. Exact names are listed first.

It will display the candidate version of the packages found. If you want
every version, use --versions. If you want to search using a version
constraint, use --version with the relation syntax of dependency fields.

Examples:

    # Search for packages matching the keyword "ssl"
    $ depcache search ssl

    # Search for packages providing a mail transport agent
    $ depcache search mta

    # Search for every version of libssl older than 3.0
    $ depcache search libssl --version '<< 3.0'
`

func newSearchCmd(logger log.Logger) *cobra.Command {
	o := &search.Options{}

	cmd := &cobra.Command{
		Use:   "search [KEYWORD...]",
		Short: "search for a keyword in package names",
		Long:  searchDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			return o.Run(d, logger, args)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&o.Regexp, "regexp", "r", false, "use regular expressions for searching")
	f.BoolVarP(&o.Versions, "versions", "l", false, "show the long listing, with each version of each package on its own line")
	f.StringVar(&o.Version, "version", "", "search using a version constraint such as '>= 2.0'")
	f.UintVar(&o.MaxColWidth, "max-col-width", 50, "maximum column width for output table")
	bindOutputFlag(cmd, &o.OutputFormat)

	return cmd
}
