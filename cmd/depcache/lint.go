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
	"strings"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"helm.sh/helm/v3/pkg/lint/support"

	"github.com/rancher-sandbox/depcache/pkg/lint"
)

var lintHelp = `
This command takes world files and examines them for possible issues. Pin
files given with --pin-file are examined along with each of them.

If the linter encounters things that will cause the world to fail loading,
it will emit [ERROR] messages. If it encounters issues that break with
convention or recommendation, it will emit [WARNING] messages.

Without arguments the world file from --world is linted.
`

func newLintCmd(logger log.Logger) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "lint [WORLD...]",
		Short: "examine a world file and its pin files for possible issues",
		Long:  lintHelp,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{settings.World}
			}

			var message strings.Builder
			failed := 0
			for _, path := range paths {
				linter := lint.All(path, settings.PinFiles)

				fmt.Fprintf(&message, "==> Linting %s\n", path)
				for _, msg := range linter.Messages {
					fmt.Fprintf(&message, "%s\n", msg)
				}
				if linter.HighestSeverity >= support.ErrorSev || (strict && linter.HighestSeverity >= support.WarningSev) {
					failed++
				}
				message.WriteString("\n")
			}

			logger.Info(strings.TrimSuffix(message.String(), "\n"))

			summary := fmt.Sprintf("%d world file(s) linted, %d world file(s) failed", len(paths), failed)
			if failed > 0 {
				return errors.New(summary)
			}
			logger.Info(summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail on lint warnings")
	return cmd
}
