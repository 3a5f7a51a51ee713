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

/* Package search looks for packages of a DepCache by name and by the virtual
packages they provide. It mirrors what the list command does for exact
patterns, but ranks fuzzy keyword matches.
*/
package search

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"helm.sh/helm/v3/pkg/cli/output"

	"github.com/rancher-sandbox/depcache/internal/debver"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/solver"
)

// searchMaxScore suggests that any score higher than this is not considered a match.
const searchMaxScore = 25

// providesPenalty ranks matches through Provides after name matches.
const providesPenalty = 10

// Result is one matching package version.
type Result struct {
	Name      string
	Arch      string
	Version   string
	Archive   string
	Provides  []string
	Installed bool
	Score     int
}

// Options configures a search and how its results are printed.
type Options struct {
	Regexp bool
	// Versions lists every version instead of only the candidate.
	Versions bool
	// Version is a constraint like ">= 2.0" in dependency field syntax.
	Version      string
	MaxColWidth  uint
	OutputFormat output.Format
}

// Run searches and prints the packages found.
func (o *Options) Run(d *solver.DepCache, logger log.Logger, args []string) error {
	wInfo := logio.NewWriter(logger, log.InfoLevel)

	res, err := o.Search(d, args)
	if err != nil {
		return err
	}
	logger.Debugf("%d packages match %q", len(res), strings.Join(args, " "))
	return o.OutputFormat.Write(wInfo, &searchWriter{res, o.MaxColWidth})
}

// Search returns the versions matching every keyword in args, best matches
// first. Without keywords every package matches.
func (o *Options) Search(d *solver.DepCache, args []string) ([]*Result, error) {
	matchers, err := o.matchers(args)
	if err != nil {
		return nil, err
	}
	op, target, err := o.constraint()
	if err != nil {
		return nil, err
	}

	var res []*Result
	for _, p := range d.Cache().Packages() {
		var vers []*pkg.Ver
		if o.Versions || o.Version != "" {
			vers = p.Versions
		} else if cand := d.GetCandidateVer(p); cand != nil {
			vers = []*pkg.Ver{cand}
		}

		for _, v := range vers {
			score, ok := scoreVer(v, matchers)
			if !ok || score > searchMaxScore {
				continue
			}
			if target != "" && !debver.Check(v.Version, op, target) {
				continue
			}
			res = append(res, newResult(p, v, score))
			// the newest matching version is enough without --versions
			if !o.Versions {
				break
			}
		}
	}

	SortScore(res)
	return res, nil
}

func newResult(p *pkg.Pkg, v *pkg.Ver, score int) *Result {
	r := &Result{
		Name:      p.Name,
		Arch:      p.Arch,
		Version:   v.Version,
		Installed: p.Current == v,
		Score:     score,
	}
	for _, f := range v.Files {
		if !f.Installed {
			r.Archive = f.Archive
			break
		}
	}
	for _, pr := range v.Provides {
		r.Provides = append(r.Provides, pr.Name)
	}
	return r
}

// matcher returns the bounds of the first match of a keyword in s, or nil.
type matcher func(s string) []int

func (o *Options) matchers(args []string) ([]matcher, error) {
	var ms []matcher
	for _, a := range args {
		if o.Regexp {
			re, err := regexp.Compile(a)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid expression %q", a)
			}
			ms = append(ms, re.FindStringIndex)
			continue
		}
		kw := strings.ToLower(a)
		ms = append(ms, func(s string) []int {
			i := strings.Index(strings.ToLower(s), kw)
			if i < 0 {
				return nil
			}
			return []int{i, i + len(kw)}
		})
	}
	return ms, nil
}

// constraint parses Options.Version, which may omit the operator.
func (o *Options) constraint() (debver.Op, string, error) {
	c := strings.TrimSpace(o.Version)
	if c == "" {
		return 0, "", nil
	}
	i := strings.IndexFunc(c, func(r rune) bool { return !strings.ContainsRune("<>=", r) })
	if i < 0 {
		return 0, "", errors.Errorf("an invalid version/constraint format: %q", o.Version)
	}
	opStr, target := c[:i], strings.TrimSpace(c[i:])
	if opStr == "" {
		opStr = "="
	}
	op, err := debver.ParseOp(opStr)
	if err != nil {
		return 0, "", errors.Wrap(err, "an invalid version/constraint format")
	}
	if !debver.Valid(target) {
		return 0, "", errors.Errorf("an invalid version/constraint format: %q is not a version", target)
	}
	return op, target, nil
}

// scoreVer adds up, for every keyword, where it matches and how much of
// the name it leaves unmatched, so exact names rank first. Names are looked
// at before provided names. A keyword matching nowhere fails the version.
func scoreVer(v *pkg.Ver, matchers []matcher) (int, bool) {
	score := 0
	for _, m := range matchers {
		if loc := m(v.Pkg.Name); loc != nil {
			score += loc[0] + len(v.Pkg.Name) - loc[1]
			continue
		}
		best := -1
		for _, pr := range v.Provides {
			if loc := m(pr.Name); loc != nil {
				if sc := loc[0] + len(pr.Name) - loc[1]; best < 0 || sc < best {
					best = sc
				}
			}
		}
		if best < 0 {
			return 0, false
		}
		score += best + providesPenalty
	}
	return score, true
}

// SortScore does an in-place sort of the results: lowest score first, then
// by name and by newest version.
func SortScore(r []*Result) {
	sort.SliceStable(r, func(i, j int) bool {
		a, b := r[i], r[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Arch != b.Arch {
			return a.Arch < b.Arch
		}
		return debver.Compare(a.Version, b.Version) > 0
	})
}

// searchElement is used to store the final values that will get printed
type searchElement struct {
	Name      string   `json:"name"`
	Arch      string   `json:"arch"`
	Version   string   `json:"version"`
	Archive   string   `json:"archive,omitempty"`
	Provides  []string `json:"provides,omitempty"`
	Installed bool     `json:"installed,omitempty"`
}

// searchWriter is used to store and print the search results
type searchWriter struct {
	results     []*Result
	columnWidth uint
}

// WriteTable writes the results as a table
func (r *searchWriter) WriteTable(out io.Writer) error {
	if len(r.results) == 0 {
		_, err := out.Write([]byte("No results found\n"))
		if err != nil {
			return fmt.Errorf("unable to write results: %s", err)
		}
		return nil
	}
	table := uitable.New()
	table.MaxColWidth = r.columnWidth
	table.AddRow("NAME", "VERSION", "ARCHIVE", "PROVIDES")
	for _, r := range r.results {
		name := r.Name + ":" + r.Arch
		if r.Installed {
			name += " [installed]"
		}
		archive := r.Archive
		if archive == "" {
			archive = "now"
		}
		table.AddRow(name, r.Version, archive, strings.Join(r.Provides, ", "))
	}
	return output.EncodeTable(out, table)
}

// WriteJSON prints the results as a json
func (r *searchWriter) WriteJSON(out io.Writer) error {
	return r.encodeByFormat(out, output.JSON)
}

// WriteYAML prints the results as a yaml
func (r *searchWriter) WriteYAML(out io.Writer) error {
	return r.encodeByFormat(out, output.YAML)
}

func (r *searchWriter) encodeByFormat(out io.Writer, format output.Format) error {
	// Initialize the array so no results returns an empty array instead of null
	list := make([]searchElement, 0, len(r.results))
	for _, r := range r.results {
		list = append(list, searchElement{r.Name, r.Arch, r.Version, r.Archive, r.Provides, r.Installed})
	}

	switch format {
	case output.JSON:
		return output.EncodeJSON(out, list)
	case output.YAML:
		return output.EncodeYAML(out, list)
	}
	return nil
}
