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
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"helm.sh/helm/v3/pkg/cli/output"
)

const outputFlag = "output"

// bindOutputFlag adds -o/--output to cmd, defaulting format to a table.
func bindOutputFlag(cmd *cobra.Command, format *output.Format) {
	*format = output.Table
	cmd.Flags().VarP((*formatValue)(format), outputFlag, "o",
		fmt.Sprintf("output format, one of: %s", strings.Join(output.Formats(), ", ")))
	if err := cmd.RegisterFlagCompletionFunc(outputFlag, completeFormat); err != nil {
		log.Fatal(err)
	}
}

func completeFormat(_ *cobra.Command, _ []string, prefix string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, f := range output.Formats() {
		if strings.HasPrefix(f, prefix) {
			names = append(names, f)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// formatValue is an output.Format as a pflag.Value.
type formatValue output.Format

func (f *formatValue) String() string { return string(*f) }

func (f *formatValue) Type() string { return "format" }

func (f *formatValue) Set(s string) error {
	parsed, err := output.ParseFormat(s)
	if err != nil {
		return err
	}
	*f = formatValue(parsed)
	return nil
}

// changeFlags are shared by the commands that mark changes.
type changeFlags struct {
	outfmt output.Format
	// yes skips the confirmation before a commit.
	yes bool
}

func bindChangeFlags(cmd *cobra.Command, cf *changeFlags) {
	bindOutputFlag(cmd, &cf.outfmt)
	cmd.Flags().BoolVarP(&cf.yes, "yes", "y", false, "do not ask before committing the changes")
}
