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
	"strings"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"helm.sh/helm/v3/cmd/helm/require"
	"helm.sh/helm/v3/pkg/cli/output"

	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/pkg/action"
)

const showDesc = `
Show the details of a package version: the candidate, or the version given
as name=version or name/release.
`

type showVersion struct {
	Package       string            `json:"package"`
	Version       string            `json:"version"`
	Architecture  string            `json:"architecture"`
	Priority      string            `json:"priority,omitempty"`
	Section       string            `json:"section,omitempty"`
	Essential     bool              `json:"essential,omitempty"`
	AutoInstalled bool              `json:"autoInstalled"`
	InstalledSize int64             `json:"installedSize"`
	DownloadSize  int64             `json:"downloadSize"`
	Relations     map[string]string `json:"relations,omitempty"`
	Provides      []string          `json:"provides,omitempty"`
	Sources       []string          `json:"sources"`
}

var showRelationOrder = []pkg.DepType{pkg.PreDepends, pkg.Depends, pkg.Recommends, pkg.Suggests,
	pkg.Conflicts, pkg.Breaks, pkg.Replaces}

func newShowCmd(logger log.Logger) *cobra.Command {
	var outfmt output.Format

	cmd := &cobra.Command{
		Use:   "show PKG",
		Short: "show package details",
		Long:  showDesc,
		Args:  require.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, d, err := loadDepCache(cmdContext(cmd), logger)
			if err != nil {
				return err
			}
			t, err := action.ParseTarget(d.Cache(), args[0], logger)
			if err != nil {
				return err
			}
			v := t.Ver
			if v == nil {
				v = d.GetCandidateVer(t.Pkg)
			}
			if v == nil {
				v = t.Pkg.Current
			}
			if v == nil {
				return fmt.Errorf("package %s has no version to show", t.Pkg.FullName())
			}

			sv := &showVersion{
				Package:       t.Pkg.Name,
				Version:       v.Version,
				Architecture:  v.Arch,
				Priority:      v.Priority,
				Section:       v.Section,
				Essential:     t.Pkg.Essential,
				AutoInstalled: d.IsAutoInstalled(t.Pkg),
				InstalledSize: v.InstalledSize,
				DownloadSize:  v.Size,
				Relations:     map[string]string{},
			}
			for _, typ := range showRelationOrder {
				var rels []string
				for _, rel := range v.RelationsOf(typ) {
					alts := make([]string, 0, len(rel.Alternatives))
					for _, dep := range rel.Alternatives {
						alts = append(alts, dep.String())
					}
					rels = append(rels, strings.Join(alts, " | "))
				}
				if len(rels) > 0 {
					sv.Relations[typ.String()] = strings.Join(rels, ", ")
				}
			}
			for _, pr := range v.Provides {
				if pr.Version != "" {
					sv.Provides = append(sv.Provides, fmt.Sprintf("%s (= %s)", pr.Name, pr.Version))
				} else {
					sv.Provides = append(sv.Provides, pr.Name)
				}
			}
			for _, f := range v.Files {
				sv.Sources = append(sv.Sources, indexLine(f))
			}

			wInfo := logio.NewWriter(logger, log.InfoLevel)
			return outfmt.Write(wInfo, sv)
		},
	}
	bindOutputFlag(cmd, &outfmt)
	return cmd
}

func (s *showVersion) WriteTable(out io.Writer) error {
	fmt.Fprintf(out, "Package: %s\n", s.Package)
	fmt.Fprintf(out, "Version: %s\n", s.Version)
	fmt.Fprintf(out, "Architecture: %s\n", s.Architecture)
	if s.Priority != "" {
		fmt.Fprintf(out, "Priority: %s\n", s.Priority)
	}
	if s.Section != "" {
		fmt.Fprintf(out, "Section: %s\n", s.Section)
	}
	if s.Essential {
		fmt.Fprintln(out, "Essential: yes")
	}
	fmt.Fprintf(out, "APT-Manual-Installed: %s\n", yesNo(!s.AutoInstalled))
	fmt.Fprintf(out, "Installed-Size: %s\n", units.HumanSize(float64(s.InstalledSize)))
	fmt.Fprintf(out, "Download-Size: %s\n", units.HumanSize(float64(s.DownloadSize)))
	for _, typ := range showRelationOrder {
		if rels, ok := s.Relations[typ.String()]; ok {
			fmt.Fprintf(out, "%s: %s\n", typ, rels)
		}
	}
	if len(s.Provides) > 0 {
		fmt.Fprintf(out, "Provides: %s\n", strings.Join(s.Provides, ", "))
	}
	fmt.Fprintf(out, "APT-Sources: %s\n", strings.Join(s.Sources, ", "))
	return nil
}

func (s *showVersion) WriteJSON(out io.Writer) error {
	return output.EncodeJSON(out, s)
}

func (s *showVersion) WriteYAML(out io.Writer) error {
	return output.EncodeYAML(out, s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
