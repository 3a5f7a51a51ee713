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

package pkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/debver"
)

// DepType is the kind of a relation between a version and other packages.
type DepType int

const (
	Depends DepType = iota + 1
	PreDepends
	Suggests
	Recommends
	Conflicts
	Replaces
	Breaks
)

var depTypeNames = map[DepType]string{
	Depends:    "Depends",
	PreDepends: "Pre-Depends",
	Suggests:   "Suggests",
	Recommends: "Recommends",
	Conflicts:  "Conflicts",
	Replaces:   "Replaces",
	Breaks:     "Breaks",
}

func (t DepType) String() string {
	return depTypeNames[t]
}

// ParseDepType maps a control file field name to its DepType.
func ParseDepType(field string) (DepType, bool) {
	for t, name := range depTypeNames {
		if strings.EqualFold(name, field) {
			return t, true
		}
	}
	return 0, false
}

// Critical reports whether an unsatisfied relation of this type makes the
// owning package broken.
func (t DepType) Critical() bool {
	return t == Depends || t == PreDepends || t == Conflicts || t == Breaks
}

// Negative reports whether the relation forbids its targets.
func (t DepType) Negative() bool {
	return t == Conflicts || t == Breaks
}

// Dep is a single alternative of a relation: a package name with an optional
// version restriction.
type Dep struct {
	Name    string    `json:"name"`
	Op      debver.Op `json:"op,omitempty"`
	Version string    `json:"version,omitempty"`
}

func (d Dep) String() string {
	if d.Op == debver.NoOp {
		return d.Name
	}
	return fmt.Sprintf("%s (%s %s)", d.Name, d.Op, d.Version)
}

// Relation is an or-group of alternatives. Negative relations are written
// without alternatives, so they hold exactly one Dep.
type Relation struct {
	Type         DepType `json:"type"`
	Alternatives []Dep   `json:"alternatives"`
}

func (r Relation) String() string {
	alts := make([]string, 0, len(r.Alternatives))
	for _, d := range r.Alternatives {
		alts = append(alts, d.String())
	}
	return fmt.Sprintf("%s: %s", r.Type, strings.Join(alts, " | "))
}

// Provide is a virtual package name a version satisfies.
type Provide struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Index describes one source of package versions: a repository component,
// or the local status database when Installed is set.
type Index struct {
	Archive              string `json:"archive,omitempty" yaml:"archive,omitempty"`
	Codename             string `json:"codename,omitempty" yaml:"codename,omitempty"`
	Origin               string `json:"origin,omitempty" yaml:"origin,omitempty"`
	Label                string `json:"label,omitempty" yaml:"label,omitempty"`
	Component            string `json:"component,omitempty" yaml:"component,omitempty"`
	Version              string `json:"version,omitempty" yaml:"version,omitempty"`
	Site                 string `json:"site,omitempty" yaml:"site,omitempty"`
	NotAutomatic         bool   `json:"notAutomatic,omitempty" yaml:"notAutomatic,omitempty"`
	ButAutomaticUpgrades bool   `json:"butAutomaticUpgrades,omitempty" yaml:"butAutomaticUpgrades,omitempty"`
	Installed            bool   `json:"installed,omitempty" yaml:"installed,omitempty"`
}

func (ix *Index) String() string {
	if ix.Installed {
		return "now"
	}
	return fmt.Sprintf("%s/%s", ix.Archive, ix.Component)
}

// Ver is one version of a package. Versions are immutable once the cache
// they belong to has been sealed.
type Ver struct {
	Pkg           *Pkg       `json:"-" yaml:"-"`
	Version       string     `json:"version"`
	Arch          string     `json:"arch"`
	Size          int64      `json:"size"`
	InstalledSize int64      `json:"installedSize"`
	Section       string     `json:"section,omitempty"`
	Priority      string     `json:"priority,omitempty"`
	Relations     []Relation `json:"relations,omitempty"`
	Provides      []Provide  `json:"provides,omitempty"`
	Files         []*Index   `json:"-" yaml:"-"`
}

func (v *Ver) String() string {
	if v == nil {
		return "(none)"
	}
	return fmt.Sprintf("%s=%s", v.Pkg.FullName(), v.Version)
}

// Downloadable reports whether the version is available from a repository
// rather than only from the local status database.
func (v *Ver) Downloadable() bool {
	for _, f := range v.Files {
		if !f.Installed {
			return true
		}
	}
	return false
}

// RelationsOf returns the relations of the given type.
func (v *Ver) RelationsOf(t DepType) []Relation {
	var out []Relation
	for _, r := range v.Relations {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Pkg is the unit of state in the cache: a package name on one architecture,
// with all its known versions.
type Pkg struct {
	ID        int    `json:"-" yaml:"-"` // position in the sealed cache, starting at 0
	Name      string `json:"name"`
	Arch      string `json:"arch"`
	Versions  []*Ver `json:"versions"` // newest first once sealed
	Current   *Ver   `json:"-" yaml:"-"`
	Auto      bool   `json:"auto"` // persisted auto-installed bit
	Essential bool   `json:"essential,omitempty"`
	Important bool   `json:"important,omitempty"`
}

// FullName returns "name:arch".
func (p *Pkg) FullName() string {
	return CreateFullName(p.Name, p.Arch)
}

// CreateFullName returns "name:arch", the key packages are stored under.
func CreateFullName(name, arch string) string {
	return fmt.Sprintf("%s:%s", name, arch)
}

func (p *Pkg) String() string {
	cur := "not installed"
	if p.Current != nil {
		cur = p.Current.Version
	}
	return fmt.Sprintf("%s [%d] %s", p.FullName(), p.ID, cur)
}

// FindVersion returns the version with the given version string, or nil.
func (p *Pkg) FindVersion(version string) *Ver {
	for _, v := range p.Versions {
		if v.Version == version {
			return v
		}
	}
	return nil
}

// JSON serializes package p into JSON, returning a []byte
func (p *Pkg) JSON() ([]byte, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(p)
	return buffer.Bytes(), err
}

// Encode encodes the package to string.
func (p *Pkg) Encode() (string, error) {
	encodedPackage, err := p.JSON()
	if err != nil {
		return "", err
	}
	return string(encodedPackage), nil
}

// ParseRelations parses a dependency field value such as
// "libc6 (>= 2.36), foo | bar:any" into relations of the given type.
func ParseRelations(t DepType, field string) ([]Relation, error) {
	var rels []Relation
	for _, group := range strings.Split(field, ",") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		rel := Relation{Type: t}
		for _, alt := range strings.Split(group, "|") {
			d, err := ParseDep(alt)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s field %q", t, field)
			}
			rel.Alternatives = append(rel.Alternatives, d)
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// ParseDep parses a single alternative like "foo:any (<< 1.0)".
func ParseDep(s string) (Dep, error) {
	s = strings.TrimSpace(s)
	var d Dep
	name := s
	if i := strings.Index(s, "("); i >= 0 {
		j := strings.Index(s, ")")
		if j < i {
			return d, errors.Errorf("unbalanced parenthesis in %q", s)
		}
		name = strings.TrimSpace(s[:i])
		restr := strings.TrimSpace(s[i+1 : j])
		opEnd := strings.IndexFunc(restr, func(r rune) bool {
			return !strings.ContainsRune("<>=!", r)
		})
		if opEnd <= 0 {
			return d, errors.Errorf("missing version operator in %q", s)
		}
		op, err := debver.ParseOp(restr[:opEnd])
		if err != nil {
			return d, err
		}
		d.Op = op
		d.Version = strings.TrimSpace(restr[opEnd:])
	}
	// architecture qualifiers are matched by name only
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return d, errors.Errorf("empty package name in %q", s)
	}
	d.Name = name
	return d, nil
}

// ParseProvides parses a Provides field, which allows only "=" restrictions.
func ParseProvides(field string) ([]Provide, error) {
	var out []Provide
	for _, item := range strings.Split(field, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		d, err := ParseDep(item)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing Provides field %q", field)
		}
		if d.Op != debver.NoOp && d.Op != debver.Equal {
			return nil, errors.Errorf("only '=' is allowed in Provides: %q", item)
		}
		out = append(out, Provide{Name: d.Name, Version: d.Version})
	}
	return out, nil
}
