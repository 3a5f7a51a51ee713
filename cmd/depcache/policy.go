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
	"io"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"helm.sh/helm/v3/pkg/cli/output"

	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/solver"
	"github.com/rancher-sandbox/depcache/pkg/action"
)

const policyDesc = `
Show the priorities that decide candidate versions.

Without arguments the priority of every package index and the configured
pins are shown. With package arguments, the installed and candidate version
of each package is shown along with the priority of every version.
`

type policyIndex struct {
	Priority int    `json:"priority"`
	Index    string `json:"index"`
	Origin   string `json:"origin,omitempty"`
	Codename string `json:"codename,omitempty"`
	Site     string `json:"site,omitempty"`
}

type policyPin struct {
	Package  string `json:"package"`
	Type     string `json:"type"`
	Data     string `json:"data"`
	Priority int    `json:"priority"`
}

type policyVersion struct {
	Version  string   `json:"version"`
	Priority int      `json:"priority"`
	Indexes  []string `json:"indexes"`
}

type policyPackage struct {
	Name      string          `json:"name"`
	Installed string          `json:"installed,omitempty"`
	Candidate string          `json:"candidate,omitempty"`
	Pin       int             `json:"pin,omitempty"`
	Versions  []policyVersion `json:"versions"`
}

type policyReport struct {
	Indexes  []policyIndex   `json:"indexes,omitempty"`
	Pins     []policyPin     `json:"pins,omitempty"`
	Packages []policyPackage `json:"packages,omitempty"`
}

func newPolicyCmd(logger log.Logger) *cobra.Command {
	var outfmt output.Format

	cmd := &cobra.Command{
		Use:   "policy [PKG...]",
		Short: "show candidate selection priorities",
		Long:  policyDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			report, err := buildPolicyReport(d, args, logger)
			if err != nil {
				return err
			}
			wInfo := logio.NewWriter(logger, log.InfoLevel)
			return outfmt.Write(wInfo, report)
		},
	}
	bindOutputFlag(cmd, &outfmt)
	return cmd
}

func buildPolicyReport(d *solver.DepCache, args []string, logger log.Logger) (*policyReport, error) {
	pol := d.Policy()
	report := &policyReport{}

	if len(args) == 0 {
		for _, ix := range d.Cache().Indexes() {
			report.Indexes = append(report.Indexes, policyIndex{
				Priority: pol.IndexPriority(ix),
				Index:    ix.String(),
				Origin:   ix.Origin,
				Codename: ix.Codename,
				Site:     ix.Site,
			})
		}
		for _, pin := range pol.Pins() {
			report.Pins = append(report.Pins, policyPin{
				Package:  pin.Package,
				Type:     pin.Type.String(),
				Data:     pin.Data,
				Priority: pin.Priority,
			})
		}
		return report, nil
	}

	targets, err := action.ParseTargets(d.Cache(), args, logger)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		p := t.Pkg
		pp := policyPackage{
			Name: p.FullName(),
			Pin:  pol.GetPriority(p),
		}
		if p.Current != nil {
			pp.Installed = p.Current.Version
		}
		if cand := d.GetCandidateVer(p); cand != nil {
			pp.Candidate = cand.Version
		}
		for _, v := range p.Versions {
			pv := policyVersion{Version: v.Version, Priority: pol.VerPriority(v)}
			for _, f := range v.Files {
				pv.Indexes = append(pv.Indexes, fmt.Sprintf("%d %s", pol.IndexPriority(f), indexLine(f)))
			}
			pp.Versions = append(pp.Versions, pv)
		}
		report.Packages = append(report.Packages, pp)
	}
	return report, nil
}

func indexLine(f *pkg.Index) string {
	if f.Installed {
		return "/var/lib/dpkg/status"
	}
	return fmt.Sprintf("http://%s %s/%s", f.Site, f.Archive, f.Component)
}

func (r *policyReport) WriteTable(out io.Writer) error {
	if len(r.Packages) == 0 {
		table := uitable.New()
		table.AddRow("PRIORITY", "INDEX", "ORIGIN", "CODENAME", "SITE")
		for _, ix := range r.Indexes {
			table.AddRow(ix.Priority, ix.Index, ix.Origin, ix.Codename, ix.Site)
		}
		if err := output.EncodeTable(out, table); err != nil {
			return err
		}
		if len(r.Pins) == 0 {
			return nil
		}
		fmt.Fprintln(out, "Pinned packages:")
		table = uitable.New()
		table.AddRow("PACKAGE", "TYPE", "DATA", "PRIORITY")
		for _, pin := range r.Pins {
			table.AddRow(pin.Package, pin.Type, pin.Data, pin.Priority)
		}
		return output.EncodeTable(out, table)
	}

	for _, pp := range r.Packages {
		fmt.Fprintf(out, "%s:\n", pp.Name)
		fmt.Fprintf(out, "  Installed: %s\n", noneIfEmpty(pp.Installed))
		fmt.Fprintf(out, "  Candidate: %s\n", noneIfEmpty(pp.Candidate))
		if pp.Pin != 0 {
			fmt.Fprintf(out, "  Package pin: %d\n", pp.Pin)
		}
		fmt.Fprintln(out, "  Version table:")
		for _, v := range pp.Versions {
			marker := "   "
			if v.Version == pp.Installed {
				marker = green("***")
			}
			fmt.Fprintf(out, " %s %s %d\n", marker, v.Version, v.Priority)
			for _, ix := range v.Indexes {
				fmt.Fprintf(out, "        %s\n", ix)
			}
		}
	}
	return nil
}

func (r *policyReport) WriteJSON(out io.Writer) error {
	return output.EncodeJSON(out, r)
}

func (r *policyReport) WriteYAML(out io.Writer) error {
	return output.EncodeYAML(out, r)
}

func noneIfEmpty(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
