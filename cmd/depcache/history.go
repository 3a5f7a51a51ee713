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
	"os"
	"strconv"
	"time"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"helm.sh/helm/v3/cmd/helm/require"
	"helm.sh/helm/v3/pkg/cli/output"

	"github.com/rancher-sandbox/depcache/pkg/action"
)

var historyHelp = `
List the committed transactions, oldest first, with the changes each made.
`

func newHistoryCmd(logger log.Logger) *cobra.Command {
	var outfmt output.Format
	var max int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "show the commit history",
		Long:  historyHelp,
		Args:  require.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wInfo := logio.NewWriter(logger, log.InfoLevel)
			if _, err := os.Stat(settings.HistoryDB); os.IsNotExist(err) {
				return outfmt.Write(wInfo, &historyWriter{})
			}
			h, err := action.OpenHistory(settings.HistoryDB)
			if err != nil {
				return err
			}
			defer h.Close()

			ts, err := h.List(cmdContext(cmd), max)
			if err != nil {
				return err
			}
			return outfmt.Write(wInfo, &historyWriter{ts})
		},
	}
	cmd.Flags().IntVarP(&max, "max", "m", 0, "show only the most recent transactions, 0 for all")
	bindOutputFlag(cmd, &outfmt)
	return cmd
}

type historyWriter struct {
	transactions []*action.Transaction
}

func (h *historyWriter) WriteTable(out io.Writer) error {
	table := uitable.New()
	table.AddRow("ID", "DATE", "COMMAND", "STATUS", "CHANGES")
	for _, t := range h.transactions {
		status := green(t.Status)
		if t.Status != action.TransactionCompleted {
			status = red(t.Status)
		}
		table.AddRow(t.ID, t.Time.Format(time.RFC3339), t.Command, status, strconv.Itoa(len(t.Changes)))
	}
	return output.EncodeTable(out, table)
}

func (h *historyWriter) WriteJSON(out io.Writer) error {
	return output.EncodeJSON(out, h.list())
}

func (h *historyWriter) WriteYAML(out io.Writer) error {
	return output.EncodeYAML(out, h.list())
}

// list never returns nil so that no results encode as an empty list
func (h *historyWriter) list() []*action.Transaction {
	if h.transactions == nil {
		return []*action.Transaction{}
	}
	return h.transactions
}
