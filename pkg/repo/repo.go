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
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/Masterminds/log-go"
	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/rancher-sandbox/depcache/internal/pkg"
)

// File represents the world file: the architecture, the local state files
// and the package sources a cache is built from. Relative paths are
// resolved against the directory of the world file.
type File struct {
	Architecture   string    `yaml:"architecture,omitempty"`
	Status         string    `yaml:"status,omitempty"`
	ExtendedStates string    `yaml:"extendedStates,omitempty"`
	Sources        []*Source `yaml:"sources"`

	dir string
}

// Source is one Packages index. Index fields set inline override what the
// Release file says.
type Source struct {
	Packages  string `yaml:"packages"`
	Release   string `yaml:"release,omitempty"`
	pkg.Index `yaml:",inline"`
}

// NewFile generates an empty world file rooted at dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

// LoadFile takes a file at the given path and returns a File object
func LoadFile(path string) (*File, error) {
	r := NewFile(filepath.Dir(path))
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return r, errors.Wrapf(err, "couldn't load world file (%s)", path)
	}

	err = yaml.Unmarshal(b, r)
	return r, err
}

// Has reports whether a source reads the given Packages path.
func (f *File) Has(packages string) bool {
	for _, s := range f.Sources {
		if s.Packages == packages {
			return true
		}
	}
	return false
}

// Add appends sources to the world file.
func (f *File) Add(sources ...*Source) {
	f.Sources = append(f.Sources, sources...)
}

// Path resolves p against the directory of the world file.
func (f *File) Path(p string) (string, error) {
	if filepath.IsAbs(p) || f.dir == "" {
		return p, nil
	}
	return securejoin.SecureJoin(f.dir, p)
}

// Load builds an unsealed cache from the world file. native is used when
// the file names no architecture.
func (f *File) Load(native string, logger log.Logger) (*pkg.Cache, error) {
	arch := f.Architecture
	if arch == "" {
		arch = native
	}
	c := pkg.NewCache(arch)

	for _, s := range f.Sources {
		ix, err := f.index(s)
		if err != nil {
			return nil, err
		}
		path, err := f.Path(s.Packages)
		if err != nil {
			return nil, err
		}
		rc, err := OpenIndex(path)
		if err != nil {
			return nil, err
		}
		n, err := LoadPackages(c, ix, rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
		logger.Debugf("loaded %d versions from %s (%s)", n, path, ix)
	}

	if f.Status != "" {
		path, err := f.Path(f.Status)
		if err != nil {
			return nil, err
		}
		fh, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't open status file (%s)", path)
		}
		n, err := LoadStatus(c, fh)
		fh.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
		logger.Debugf("%d packages installed", n)
	}

	if f.ExtendedStates != "" {
		path, err := f.Path(f.ExtendedStates)
		if err != nil {
			return nil, err
		}
		fh, err := os.Open(path)
		switch {
		case os.IsNotExist(err):
			logger.Debugf("no extended states at %s", path)
		case err != nil:
			return nil, errors.Wrapf(err, "couldn't open extended states (%s)", path)
		default:
			err = LoadExtendedStates(c, fh)
			fh.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "loading %s", path)
			}
		}
	}
	return c, nil
}

func (f *File) index(s *Source) (*pkg.Index, error) {
	ix := &pkg.Index{}
	if s.Release != "" {
		path, err := f.Path(s.Release)
		if err != nil {
			return nil, err
		}
		fh, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't open release file (%s)", path)
		}
		ix, err = ParseRelease(fh)
		fh.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
	}
	over := s.Index
	if over.Archive != "" {
		ix.Archive = over.Archive
	}
	if over.Codename != "" {
		ix.Codename = over.Codename
	}
	if over.Origin != "" {
		ix.Origin = over.Origin
	}
	if over.Label != "" {
		ix.Label = over.Label
	}
	if over.Component != "" {
		ix.Component = over.Component
	}
	if over.Version != "" {
		ix.Version = over.Version
	}
	if over.Site != "" {
		ix.Site = over.Site
	}
	ix.NotAutomatic = ix.NotAutomatic || over.NotAutomatic
	ix.ButAutomaticUpgrades = ix.ButAutomaticUpgrades || over.ButAutomaticUpgrades
	return ix, nil
}
