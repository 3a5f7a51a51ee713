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

import "fmt"

// MockIndex is the repository mock versions come from unless told otherwise.
var MockIndex = &Index{
	Archive:   "unstable",
	Codename:  "sid",
	Origin:    "mock",
	Label:     "mock",
	Component: "main",
	Site:      "example.org",
}

// MockStatusIndex is the status database of installed mock versions.
var MockStatusIndex = &Index{Installed: true}

// MockVer describes one version for NewCacheMock. Relation fields use the
// control file syntax.
type MockVer struct {
	Name          string
	Version       string
	Arch          string
	Depends       string
	PreDepends    string
	Recommends    string
	Suggests      string
	Conflicts     string
	Breaks        string
	Provides      string
	Priority      string
	Size          int64
	InstalledSize int64
	Essential     bool
	Installed     bool   // version is the installed one
	InstalledOnly bool   // version is not available from any repository
	Auto          bool   // installed as a dependency
	Index         *Index // repository, MockIndex when nil
}

// NewCacheMock creates a sealed cache out of mock versions. It panics on
// malformed relation fields.
// Useful for testing.
func NewCacheMock(arch string, vers []MockVer) *Cache {
	c := NewCache(arch)
	c.AddIndex(MockStatusIndex)
	seen := map[*Index]bool{MockStatusIndex: true}
	for _, mv := range vers {
		ix := mv.Index
		if ix == nil {
			ix = MockIndex
		}
		if !seen[ix] {
			c.AddIndex(ix)
			seen[ix] = true
		}
		v := &Ver{
			Version:       mv.Version,
			Size:          mv.Size,
			InstalledSize: mv.InstalledSize,
			Priority:      mv.Priority,
		}
		if !mv.InstalledOnly {
			v.Files = append(v.Files, ix)
		}
		if mv.Installed || mv.InstalledOnly {
			v.Files = append(v.Files, MockStatusIndex)
		}
		for t, field := range map[DepType]string{
			Depends:    mv.Depends,
			PreDepends: mv.PreDepends,
			Recommends: mv.Recommends,
			Suggests:   mv.Suggests,
			Conflicts:  mv.Conflicts,
			Breaks:     mv.Breaks,
		} {
			rels, err := ParseRelations(t, field)
			if err != nil {
				panic(fmt.Sprintf("mock %s: %v", mv.Name, err))
			}
			v.Relations = append(v.Relations, rels...)
		}
		sortRelations(v.Relations)
		prv, err := ParseProvides(mv.Provides)
		if err != nil {
			panic(fmt.Sprintf("mock %s: %v", mv.Name, err))
		}
		v.Provides = prv

		v = c.AddVersion(mv.Name, mv.Arch, v)
		if mv.Essential {
			v.Pkg.Essential = true
		}
		if mv.Installed || mv.InstalledOnly {
			c.SetCurrent(v)
			v.Pkg.Auto = mv.Auto
		}
	}
	c.Seal()
	return c
}

// sortRelations orders relations by type so that map iteration above does
// not leak into relation order.
func sortRelations(rels []Relation) {
	for i := 1; i < len(rels); i++ {
		for j := i; j > 0 && rels[j].Type < rels[j-1].Type; j-- {
			rels[j], rels[j-1] = rels[j-1], rels[j]
		}
	}
}
