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

package repo

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
)

// relation fields in the order they are stored on a version
var relationFields = []pkg.DepType{
	pkg.PreDepends,
	pkg.Depends,
	pkg.Recommends,
	pkg.Suggests,
	pkg.Conflicts,
	pkg.Breaks,
	pkg.Replaces,
}

func parseVer(s Stanza) (name, arch string, v *pkg.Ver, err error) {
	name = s.Get("Package")
	if name == "" {
		return "", "", nil, errors.Wrap(errorlist.ErrParse, "stanza without a Package field")
	}
	version := s.Get("Version")
	if version == "" {
		return "", "", nil, errors.Wrapf(errorlist.ErrParse, "package %s has no Version", name)
	}
	arch = s.Get("Architecture")
	v = &pkg.Ver{
		Version:  version,
		Arch:     arch,
		Section:  s.Get("Section"),
		Priority: s.Get("Priority"),
	}
	if size := s.Get("Size"); size != "" {
		if v.Size, err = strconv.ParseInt(size, 10, 64); err != nil {
			return "", "", nil, errors.Wrapf(errorlist.ErrParse, "package %s: bad Size %q", name, size)
		}
	}
	if size := s.Get("Installed-Size"); size != "" {
		kib, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return "", "", nil, errors.Wrapf(errorlist.ErrParse, "package %s: bad Installed-Size %q", name, size)
		}
		v.InstalledSize = kib * 1024
	}
	for _, t := range relationFields {
		field := s.Get(t.String())
		if field == "" {
			continue
		}
		rels, err := pkg.ParseRelations(t, field)
		if err != nil {
			return "", "", nil, errors.Wrap(errorlist.ErrParse, err.Error())
		}
		v.Relations = append(v.Relations, rels...)
	}
	if field := s.Get("Provides"); field != "" {
		if v.Provides, err = pkg.ParseProvides(field); err != nil {
			return "", "", nil, errors.Wrap(errorlist.ErrParse, err.Error())
		}
	}
	return name, arch, v, nil
}

func addVer(c *pkg.Cache, ix *pkg.Index, s Stanza) (*pkg.Ver, error) {
	name, arch, v, err := parseVer(s)
	if err != nil {
		return nil, err
	}
	v.Files = []*pkg.Index{ix}
	stored := c.AddVersion(name, arch, v)
	p := stored.Pkg
	if strings.EqualFold(s.Get("Essential"), "yes") {
		p.Essential = true
	}
	if strings.EqualFold(s.Get("Important"), "yes") || strings.EqualFold(v.Priority, "required") {
		p.Important = true
	}
	return stored, nil
}

// LoadPackages adds every version of a Packages index to c, recording ix as
// the source of each. It returns the number of stanzas read.
func LoadPackages(c *pkg.Cache, ix *pkg.Index, r io.Reader) (int, error) {
	stanzas, err := ParseControl(r)
	if err != nil {
		return 0, err
	}
	c.AddIndex(ix)
	for _, s := range stanzas {
		if _, err := addVer(c, ix, s); err != nil {
			return 0, err
		}
	}
	return len(stanzas), nil
}

// installedState reports whether a dpkg Status field describes an unpacked
// package.
func installedState(status string) bool {
	fields := strings.Fields(status)
	if len(fields) != 3 {
		return false
	}
	switch fields[2] {
	case "not-installed", "config-files":
		return false
	}
	return true
}

// LoadStatus reads the dpkg status database and marks the listed versions
// as the current ones.
func LoadStatus(c *pkg.Cache, r io.Reader) (int, error) {
	stanzas, err := ParseControl(r)
	if err != nil {
		return 0, err
	}
	ix := c.AddIndex(&pkg.Index{Installed: true})
	n := 0
	for _, s := range stanzas {
		if !installedState(s.Get("Status")) {
			continue
		}
		v, err := addVer(c, ix, s)
		if err != nil {
			return n, err
		}
		c.SetCurrent(v)
		n++
	}
	return n, nil
}

// ParseRelease reads the metadata of a repository Release file.
func ParseRelease(r io.Reader) (*pkg.Index, error) {
	stanzas, err := ParseControl(r)
	if err != nil {
		return nil, err
	}
	if len(stanzas) == 0 {
		return nil, errors.Wrap(errorlist.ErrParse, "empty Release file")
	}
	s := stanzas[0]
	return &pkg.Index{
		Archive:              s.Get("Suite"),
		Codename:             s.Get("Codename"),
		Origin:               s.Get("Origin"),
		Label:                s.Get("Label"),
		Version:              s.Get("Version"),
		NotAutomatic:         strings.EqualFold(s.Get("NotAutomatic"), "yes"),
		ButAutomaticUpgrades: strings.EqualFold(s.Get("ButAutomaticUpgrades"), "yes"),
	}, nil
}

// LoadExtendedStates applies the Auto-Installed flags of an
// extended_states file. Unknown packages are skipped.
func LoadExtendedStates(c *pkg.Cache, r io.Reader) error {
	stanzas, err := ParseControl(r)
	if err != nil {
		return err
	}
	for _, s := range stanzas {
		p := c.FindPkg(s.Get("Package"), s.Get("Architecture"))
		if p == nil {
			continue
		}
		p.Auto = s.Get("Auto-Installed") == "1"
	}
	return nil
}
