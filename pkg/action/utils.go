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

package action

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/Masterminds/log-go"
	"github.com/pkg/errors"

	"github.com/rancher-sandbox/depcache/internal/pkg"
)

// Target is a package named on the command line, with the version it asks
// for if any.
type Target struct {
	Pkg *pkg.Pkg
	Ver *pkg.Ver
}

// ParseTarget resolves "name[:arch][=version]" or "name[:arch]/release".
// A virtual name provided by exactly one package selects that package.
func ParseTarget(c *pkg.Cache, arg string, logger log.Logger) (*Target, error) {
	name, version, release := arg, "", ""
	if i := strings.Index(name, "="); i >= 0 {
		name, version = name[:i], name[i+1:]
	} else if i := strings.Index(name, "/"); i >= 0 {
		name, release = name[:i], name[i+1:]
	}
	arch := ""
	if i := strings.Index(name, ":"); i >= 0 {
		name, arch = name[:i], name[i+1:]
	}
	if name == "" {
		return nil, errors.Errorf("invalid package reference %q", arg)
	}

	p := c.FindPkg(name, arch)
	if p == nil || len(p.Versions) == 0 {
		var providers []*pkg.Pkg
		seen := map[*pkg.Pkg]bool{}
		for _, v := range c.Providers(name) {
			if !seen[v.Pkg] && (arch == "" || v.Pkg.Arch == arch) {
				seen[v.Pkg] = true
				providers = append(providers, v.Pkg)
			}
		}
		switch len(providers) {
		case 0:
			return nil, errors.Errorf("unable to locate package %s", arg)
		case 1:
			p = providers[0]
			logger.Infof("Note, selecting '%s' instead of '%s'", p.Name, name)
		default:
			names := make([]string, 0, len(providers))
			for _, pr := range providers {
				names = append(names, pr.FullName())
			}
			sort.Strings(names)
			return nil, errors.Errorf("package %s is a virtual package provided by %s, you should explicitly select one",
				name, strings.Join(names, ", "))
		}
	}

	t := &Target{Pkg: p}
	switch {
	case version != "":
		if t.Ver = p.FindVersion(version); t.Ver == nil {
			return nil, errors.Errorf("version '%s' for '%s' was not found", version, name)
		}
	case release != "":
		for _, v := range p.Versions {
			for _, f := range v.Files {
				if f.Archive == release || f.Codename == release {
					t.Ver = v
					break
				}
			}
			if t.Ver != nil {
				break
			}
		}
		if t.Ver == nil {
			return nil, errors.Errorf("release '%s' for '%s' was not found", release, name)
		}
	}
	return t, nil
}

// ParseTargets resolves every argument with ParseTarget.
func ParseTargets(c *pkg.Cache, args []string, logger log.Logger) ([]*Target, error) {
	targets := make([]*Target, 0, len(args))
	for _, a := range args {
		t, err := ParseTarget(c, a, logger)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// PromptBool asks a yes/no question, defaulting to yes.
func PromptBool(question string, reader *bufio.Reader, logger log.Logger) (bool, error) {
	for {
		logger.Infof("%s [Y/n]:", question)

		response, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || response == "") {
			return false, err
		}

		response = strings.ToLower(strings.TrimSpace(response))

		if response == "y" || response == "yes" || response == "" {
			return true, nil
		} else if response == "n" || response == "no" {
			return false, nil
		}
	}
}
