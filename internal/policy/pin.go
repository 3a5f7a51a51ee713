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

package policy

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
)

// MatchType selects what the data of a pin is compared against.
type MatchType int

const (
	MatchVersion MatchType = iota + 1
	MatchRelease
	MatchOrigin
)

func (m MatchType) String() string {
	switch m {
	case MatchVersion:
		return "version"
	case MatchRelease:
		return "release"
	case MatchOrigin:
		return "origin"
	}
	return fmt.Sprintf("MatchType(%d)", int(m))
}

// ParseMatchType parses a pin type case-insensitively. Anything but
// version, release and origin is an ErrParse.
func ParseMatchType(s string) (MatchType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "version":
		return MatchVersion, nil
	case "release":
		return MatchRelease, nil
	case "origin":
		return MatchOrigin, nil
	}
	return 0, errors.Wrapf(errorlist.ErrParse, "unknown pin type %q", s)
}

// Pin raises or lowers the priority of the versions it matches.
type Pin struct {
	Type     MatchType
	Package  string // name, glob, /regex/, or "*" for every package
	Data     string
	Priority int

	pkgRe  *regexp.Regexp
	dataRe *regexp.Regexp
	semver *semver.Constraints
}

// Specific reports whether the pin names exactly one package.
func (p *Pin) Specific() bool {
	return p.Package != "" && p.Package != "*" && p.pkgRe == nil && !isGlob(p.Package)
}

// General reports whether the pin applies to every package.
func (p *Pin) General() bool {
	return p.Package == "" || p.Package == "*"
}

func (p *Pin) String() string {
	return fmt.Sprintf("%s %s %q = %d", p.Package, p.Type, p.Data, p.Priority)
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func isRegex(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/")
}

// compile validates the patterns of the pin.
func (p *Pin) compile() error {
	if isRegex(p.Package) {
		re, err := regexp.Compile(p.Package[1 : len(p.Package)-1])
		if err != nil {
			return errors.Wrapf(errorlist.ErrParse, "invalid package pattern %q: %s", p.Package, err)
		}
		p.pkgRe = re
	} else if isGlob(p.Package) && !p.General() {
		if _, err := path.Match(p.Package, ""); err != nil {
			return errors.Wrapf(errorlist.ErrParse, "invalid package pattern %q: %s", p.Package, err)
		}
	}

	if p.Type == MatchVersion {
		switch {
		case isRegex(p.Data):
			re, err := regexp.Compile(p.Data[1 : len(p.Data)-1])
			if err != nil {
				return errors.Wrapf(errorlist.ErrParse, "invalid version pattern %q: %s", p.Data, err)
			}
			p.dataRe = re
		case isGlob(p.Data):
		default:
			// data like "^1.2" or ">= 1.0, < 2" is a semver range; plain
			// versions only match exactly
			if c, err := semver.NewConstraint(p.Data); err == nil && strings.ContainsAny(p.Data, "^~<>=!,| ") {
				p.semver = c
			}
		}
	}
	return nil
}

// matchesPackage reports whether the pin applies to the named package.
func (p *Pin) matchesPackage(name string) bool {
	switch {
	case p.General():
		return true
	case p.pkgRe != nil:
		return p.pkgRe.MatchString(name)
	case isGlob(p.Package):
		ok, _ := path.Match(p.Package, name)
		return ok
	}
	return p.Package == name
}

// matchesVer reports whether the pin data selects the given version.
func (p *Pin) matchesVer(v *pkg.Ver) bool {
	switch p.Type {
	case MatchVersion:
		return p.matchesVersionString(v.Version)
	case MatchRelease:
		for _, f := range v.Files {
			if p.matchesIndex(f) {
				return true
			}
		}
	case MatchOrigin:
		for _, f := range v.Files {
			if p.matchesOrigin(f) {
				return true
			}
		}
	}
	return false
}

func (p *Pin) matchesVersionString(version string) bool {
	if p.Data == version {
		return true
	}
	switch {
	case p.dataRe != nil:
		return p.dataRe.MatchString(version)
	case isGlob(p.Data):
		ok, _ := path.Match(p.Data, version)
		return ok
	case p.semver != nil:
		sv, err := semver.NewVersion(version)
		if err != nil {
			return false
		}
		return p.semver.Check(sv)
	}
	return false
}

func (p *Pin) matchesOrigin(f *pkg.Index) bool {
	if f.Installed {
		return false
	}
	return globOrEqual(p.Data, f.Site)
}

// matchesIndex evaluates release data: either a bare archive or codename,
// or comma separated key=value terms that must all hold.
func (p *Pin) matchesIndex(f *pkg.Index) bool {
	if f.Installed {
		return false
	}
	data := strings.TrimSpace(p.Data)
	if !strings.Contains(data, "=") {
		return globOrEqual(data, f.Archive) || globOrEqual(data, f.Codename)
	}
	for _, term := range strings.Split(data, ",") {
		kv := strings.SplitN(strings.TrimSpace(term), "=", 2)
		if len(kv) != 2 {
			return false
		}
		want := strings.TrimSpace(kv[1])
		var have string
		switch strings.TrimSpace(kv[0]) {
		case "a":
			have = f.Archive
		case "n":
			have = f.Codename
		case "o":
			have = f.Origin
		case "l":
			have = f.Label
		case "c":
			have = f.Component
		case "v":
			have = f.Version
		default:
			return false
		}
		if !globOrEqual(want, have) {
			return false
		}
	}
	return true
}

func globOrEqual(pattern, s string) bool {
	if isGlob(pattern) {
		ok, _ := path.Match(pattern, s)
		return ok
	}
	return pattern == s
}
