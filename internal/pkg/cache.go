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
	"sort"

	"github.com/Masterminds/log-go"

	"github.com/rancher-sandbox/depcache/internal/debver"
)

// Cache implements the package graph: a database keyed by "name:arch" with
// secondary indexes by bare name, by provided name, and by the names
// referenced from relations.
//
// Packages and versions are added while loading indexes. If a version is
// already present when adding, it gets merged with the existing entry so
// that only unknown info of that version is filled in.
//
// Once Seal is called the cache is read-only: versions are sorted newest
// first and packages get stable IDs in name:arch order.
type Cache struct {
	Arch string // native architecture

	pkgs       []*Pkg
	byFullName map[string]*Pkg
	byName     map[string][]*Pkg
	providers  map[string][]*Ver
	revDeps    map[string][]*Ver
	indexes    []*Index
	sealed     bool
}

// NewCache creates an empty cache for the given native architecture.
func NewCache(arch string) *Cache {
	return &Cache{
		Arch:       arch,
		byFullName: make(map[string]*Pkg),
		byName:     make(map[string][]*Pkg),
		providers:  make(map[string][]*Ver),
		revDeps:    make(map[string][]*Ver),
	}
}

// AddIndex registers a package source and returns it.
func (c *Cache) AddIndex(ix *Index) *Index {
	c.indexes = append(c.indexes, ix)
	return ix
}

// Indexes returns all registered package sources.
func (c *Cache) Indexes() []*Index {
	return c.indexes
}

// Pkg returns the package name:arch, creating it if needed. An empty or
// "all" arch maps to the native architecture.
func (c *Cache) Pkg(name, arch string) *Pkg {
	arch = c.normalizeArch(arch)
	fn := CreateFullName(name, arch)
	if p, ok := c.byFullName[fn]; ok {
		return p
	}
	if c.sealed {
		panic("pkg: adding package " + fn + " to a sealed cache")
	}
	p := &Pkg{ID: -1, Name: name, Arch: arch}
	c.byFullName[fn] = p
	c.byName[name] = append(c.byName[name], p)
	c.pkgs = append(c.pkgs, p)
	return p
}

func (c *Cache) normalizeArch(arch string) string {
	if arch == "" || arch == "all" {
		return c.Arch
	}
	return arch
}

// MergeVers fills the unknown info of old with what new knows, and adds the
// indexes new was seen in.
func MergeVers(old, new *Ver) *Ver {
	if old.Size == 0 {
		old.Size = new.Size
	}
	if old.InstalledSize == 0 {
		old.InstalledSize = new.InstalledSize
	}
	if old.Section == "" {
		old.Section = new.Section
	}
	if old.Priority == "" {
		old.Priority = new.Priority
	}
	if len(old.Relations) == 0 {
		old.Relations = new.Relations
	}
	if len(old.Provides) == 0 {
		old.Provides = new.Provides
	}
	for _, f := range new.Files {
		seen := false
		for _, of := range old.Files {
			if of == f {
				seen = true
				break
			}
		}
		if !seen {
			old.Files = append(old.Files, f)
		}
	}
	return old
}

// AddVersion adds v to package name:arch and returns the stored version,
// which is an existing one when the version string was already known.
func (c *Cache) AddVersion(name, arch string, v *Ver) *Ver {
	p := c.Pkg(name, arch)
	if v.Arch == "" {
		v.Arch = p.Arch
	}
	if existing := p.FindVersion(v.Version); existing != nil {
		return MergeVers(existing, v)
	}
	v.Pkg = p
	p.Versions = append(p.Versions, v)
	return v
}

// SetCurrent records v as the installed version of its package.
func (c *Cache) SetCurrent(v *Ver) {
	v.Pkg.Current = v
}

// Seal sorts versions, assigns IDs and builds the lookup indexes. Calling
// it more than once is a no-op.
func (c *Cache) Seal() {
	if c.sealed {
		return
	}
	c.sealed = true

	sort.SliceStable(c.pkgs, func(i, j int) bool {
		if c.pkgs[i].Name != c.pkgs[j].Name {
			return c.pkgs[i].Name < c.pkgs[j].Name
		}
		return c.pkgs[i].Arch < c.pkgs[j].Arch
	})
	for id, p := range c.pkgs {
		p.ID = id
		sort.SliceStable(p.Versions, func(i, j int) bool {
			return debver.Compare(p.Versions[i].Version, p.Versions[j].Version) > 0
		})
		for _, v := range p.Versions {
			for _, prv := range v.Provides {
				c.providers[prv.Name] = append(c.providers[prv.Name], v)
			}
			for _, rel := range v.Relations {
				for _, d := range rel.Alternatives {
					c.addRevDep(d.Name, v)
				}
			}
		}
	}
	for name := range c.byName {
		sort.SliceStable(c.byName[name], func(i, j int) bool {
			return c.byName[name][i].ID < c.byName[name][j].ID
		})
	}
}

func (c *Cache) addRevDep(name string, v *Ver) {
	list := c.revDeps[name]
	if n := len(list); n > 0 && list[n-1] == v {
		return
	}
	c.revDeps[name] = append(list, v)
}

// Sealed reports whether Seal was called.
func (c *Cache) Sealed() bool {
	return c.sealed
}

// Len returns the number of packages.
func (c *Cache) Len() int {
	return len(c.pkgs)
}

// Packages returns all packages in ID order.
func (c *Cache) Packages() []*Pkg {
	return c.pkgs
}

// GetPackageByID returns the package with the given ID, or nil.
func (c *Cache) GetPackageByID(id int) *Pkg {
	if id < 0 || id >= len(c.pkgs) {
		return nil
	}
	return c.pkgs[id]
}

// FindPkg looks a package up by name and architecture. An empty arch
// prefers the native architecture and then any other.
func (c *Cache) FindPkg(name, arch string) *Pkg {
	if arch != "" {
		return c.byFullName[CreateFullName(name, c.normalizeArch(arch))]
	}
	if p, ok := c.byFullName[CreateFullName(name, c.Arch)]; ok {
		return p
	}
	if list := c.byName[name]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Lookup returns every package with the given name, on any architecture.
func (c *Cache) Lookup(name string) []*Pkg {
	return c.byName[name]
}

// Providers returns the versions providing the given virtual name.
func (c *Cache) Providers(name string) []*Ver {
	return c.providers[name]
}

// RevDepends returns the versions with a relation naming the given package.
func (c *Cache) RevDepends(name string) []*Ver {
	return c.revDeps[name]
}

// Targets returns every version that satisfies the dependency d: versions of
// packages named d.Name matching the version restriction, plus versions that
// provide d.Name. An unversioned provide only satisfies unversioned deps.
func (c *Cache) Targets(d Dep) []*Ver {
	var out []*Ver
	for _, p := range c.byName[d.Name] {
		for _, v := range p.Versions {
			if debver.Check(v.Version, d.Op, d.Version) {
				out = append(out, v)
			}
		}
	}
	for _, v := range c.providers[d.Name] {
		for _, prv := range v.Provides {
			if prv.Name != d.Name {
				continue
			}
			if d.Op == debver.NoOp || (prv.Version != "" && debver.Check(prv.Version, d.Op, d.Version)) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// DebugPrintDB logs every package of the cache at debug level.
func (c *Cache) DebugPrintDB(logger log.Logger) {
	logger.Debugf("Printing package cache")
	for _, p := range c.pkgs {
		logger.Debug(p.String())
	}
}
