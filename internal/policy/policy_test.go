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
	"bytes"
	"testing"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
)

var (
	stableIndex = &pkg.Index{
		Archive: "stable", Codename: "bookworm", Origin: "Debian", Label: "Debian",
		Component: "main", Site: "deb.debian.org",
	}
	experimentalIndex = &pkg.Index{
		Archive: "experimental", Codename: "rc-buggy", Origin: "Debian", Label: "Debian",
		Component: "main", Site: "deb.debian.org", NotAutomatic: true,
	}
)

func newTestLogger() log.Logger {
	buf := new(bytes.Buffer)
	logger := logcli.NewStandard()
	logger.InfoOut = buf
	logger.WarnOut = buf
	logger.ErrorOut = buf
	logger.DebugOut = buf
	return logger
}

func newTestPolicy(cfg *config.Config, vers []pkg.MockVer) (*Policy, *pkg.Cache) {
	if cfg == nil {
		cfg = &config.Config{Architecture: "amd64"}
	}
	c := pkg.NewCacheMock("amd64", vers)
	return New(c, cfg, errorlist.New(), newTestLogger()), c
}

func TestCandidateDefaults(t *testing.T) {
	is := assert.New(t)

	p, c := newTestPolicy(nil, []pkg.MockVer{
		{Name: "foo", Version: "1.0", Index: stableIndex},
		{Name: "foo", Version: "2.0"},
		{Name: "foo", Version: "3.0", Index: experimentalIndex},
		{Name: "bar", Version: "1.0", Installed: true},
		{Name: "bar", Version: "0.9", Index: stableIndex},
		{Name: "baz", Version: "5.0", InstalledOnly: true},
		{Name: "baz", Version: "4.0"},
		{Name: "virtual-only", Version: "1.0", InstalledOnly: true},
	})

	foo := c.FindPkg("foo", "")
	is.Equal("2.0", p.GetCandidateVer(foo).Version)
	is.Equal(PriorityNotAutomatic, p.VerPriority(foo.FindVersion("3.0")))
	is.Equal(PriorityDefault, p.VerPriority(foo.FindVersion("1.0")))

	// no downgrade without a priority of 1000
	bar := c.FindPkg("bar", "")
	is.Equal("1.0", p.GetCandidateVer(bar).Version)

	// installed only versions rank 100 but older versions are never chosen
	baz := c.FindPkg("baz", "")
	is.Equal(PriorityInstalled, p.VerPriority(baz.Current))
	is.Equal("5.0", p.GetCandidateVer(baz).Version)

	is.Equal(0, p.GetPriority(foo))
	is.Nil(p.GetMatch(foo))
}

func TestCandidateTieGoesToNewer(t *testing.T) {
	is := assert.New(t)

	p, c := newTestPolicy(nil, []pkg.MockVer{
		{Name: "foo", Version: "1.0", Installed: true},
		{Name: "foo", Version: "2.0"},
	})
	foo := c.FindPkg("foo", "")
	is.Equal(p.VerPriority(foo.Current), p.VerPriority(foo.FindVersion("2.0")))
	is.Equal("2.0", p.GetCandidateVer(foo).Version)
}

func TestCandidateDefaultRelease(t *testing.T) {
	is := assert.New(t)

	p, c := newTestPolicy(&config.Config{DefaultRelease: "bookworm"}, []pkg.MockVer{
		{Name: "foo", Version: "1.0", Index: stableIndex},
		{Name: "foo", Version: "2.0"},
	})
	foo := c.FindPkg("foo", "")
	is.Equal(PriorityDefaultRelease, p.VerPriority(foo.FindVersion("1.0")))
	is.Equal("1.0", p.GetCandidateVer(foo).Version)
}

func TestReleasePinBeatsNewerVersion(t *testing.T) {
	is := assert.New(t)

	vers := []pkg.MockVer{
		{Name: "foo", Version: "1.0", Index: stableIndex},
		{Name: "foo", Version: "2.0"},
	}

	for _, tcase := range []struct {
		name    string
		pattern string
		data    string
	}{
		{"bare archive", "foo", "stable"},
		{"bare codename", "foo", "bookworm"},
		{"keyed", "foo", "a=stable, o=Debian"},
		{"glob package", "fo*", "n=bookworm"},
		{"regex package", "/^f.o$/", "l=Debian,c=main"},
		{"every package", "*", "a=stable"},
	} {
		p, c := newTestPolicy(nil, vers)
		is.NoError(p.CreatePin("Release", tcase.pattern, tcase.data, 990), tcase.name)
		foo := c.FindPkg("foo", "")
		is.Equal("1.0", p.GetCandidateVer(foo).Version, tcase.name)
		is.Equal(990, p.VerPriority(foo.FindVersion("1.0")), tcase.name)
		is.Equal(PriorityDefault, p.VerPriority(foo.FindVersion("2.0")), tcase.name)
	}

	p, c := newTestPolicy(nil, vers)
	is.NoError(p.CreatePin("release", "foo", "a=stable, o=Ubuntu", 990))
	is.Equal("2.0", p.GetCandidateVer(c.FindPkg("foo", "")).Version)
}

func TestCreatePinType(t *testing.T) {
	is := assert.New(t)

	p, _ := newTestPolicy(nil, nil)
	for _, typ := range []string{"Version", "RELEASE", "origin"} {
		is.NoError(p.CreatePin(typ, "foo", "x", 1))
	}
	is.Len(p.Pins(), 3)
	is.Equal(MatchVersion, p.Pins()[0].Type)
	is.Equal(MatchRelease, p.Pins()[1].Type)
	is.Equal(MatchOrigin, p.Pins()[2].Type)

	err := p.CreatePin("Label", "foo", "x", 1)
	is.True(errors.Is(err, errorlist.ErrParse))
	is.Len(p.Pins(), 3)

	err = p.CreatePin("version", "/foo(/", "1.0", 1)
	is.True(errors.Is(err, errorlist.ErrParse))
}

func TestVersionPins(t *testing.T) {
	is := assert.New(t)

	vers := []pkg.MockVer{
		{Name: "foo", Version: "2.0", Installed: true},
		{Name: "foo", Version: "1.0", Index: stableIndex},
		{Name: "foo", Version: "1.1", Index: stableIndex},
		{Name: "qux", Version: "1.1.0"},
		{Name: "qux", Version: "1.2.5"},
		{Name: "qux", Version: "2.0.0"},
	}

	// a downgrade needs 1000
	p, c := newTestPolicy(nil, vers)
	foo := c.FindPkg("foo", "")
	is.NoError(p.CreatePin("version", "foo", "1.0", 999))
	is.Equal("2.0", p.GetCandidateVer(foo).Version)
	is.Equal(999, p.GetPriority(foo))
	is.Equal("1.0", p.GetMatch(foo).Version)

	p, c = newTestPolicy(nil, vers)
	foo = c.FindPkg("foo", "")
	is.NoError(p.CreatePin("version", "foo", "1.*", 1001))
	is.Equal("1.1", p.GetCandidateVer(foo).Version)
	is.Equal("1.1", p.GetMatch(foo).Version)

	// a negative priority rules a version out
	p, c = newTestPolicy(nil, vers)
	qux := c.FindPkg("qux", "")
	is.NoError(p.CreatePin("version", "qux", "2.0.0", -1))
	is.Equal("1.2.5", p.GetCandidateVer(qux).Version)

	// semver ranges
	p, c = newTestPolicy(nil, vers)
	qux = c.FindPkg("qux", "")
	is.NoError(p.CreatePin("version", "qux", "^1.2", 700))
	is.Equal("1.2.5", p.GetCandidateVer(qux).Version)
	is.Equal(700, p.VerPriority(qux.FindVersion("1.2.5")))
	is.Equal(PriorityDefault, p.VerPriority(qux.FindVersion("1.1.0")))

	// specific pins win over general ones regardless of order
	p, c = newTestPolicy(nil, vers)
	qux = c.FindPkg("qux", "")
	is.NoError(p.CreatePin("origin", "*", "example.org", 100))
	is.NoError(p.CreatePin("version", "qux", "/^1\\.1/", 600))
	is.Equal("1.1.0", p.GetCandidateVer(qux).Version)
	is.Equal(100, p.VerPriority(qux.FindVersion("2.0.0")))
	is.Equal(600, p.GetPriority(qux))
}

func TestOriginPin(t *testing.T) {
	is := assert.New(t)

	p, c := newTestPolicy(nil, []pkg.MockVer{
		{Name: "foo", Version: "1.0", Index: stableIndex},
		{Name: "foo", Version: "2.0"},
	})
	is.NoError(p.CreatePin("origin", "foo", "deb.debian.org", 700))
	foo := c.FindPkg("foo", "")
	is.Equal("1.0", p.GetCandidateVer(foo).Version)

	is.NoError(p.CreatePin("origin", "foo", "*.org", 800))
	// first matching pin wins
	is.Equal(700, p.VerPriority(foo.FindVersion("1.0")))
	is.Equal(800, p.VerPriority(foo.FindVersion("2.0")))
	is.Equal("2.0", p.GetCandidateVer(foo).Version)
}

func TestReadPinFile(t *testing.T) {
	is := assert.New(t)

	vers := []pkg.MockVer{
		{Name: "foo", Version: "1.0.1", Index: stableIndex},
		{Name: "foo", Version: "2.0"},
		{Name: "bar", Version: "1.0"},
		{Name: "gcc-12", Version: "12.1", Index: stableIndex},
		{Name: "gcc-12", Version: "12.2"},
		{Name: "baz", Version: "1.0", Index: stableIndex},
		{Name: "baz", Version: "2.0"},
		{Name: "qux", Version: "1.2.0"},
		{Name: "qux", Version: "1.3.0", Index: stableIndex},
	}

	p, c := newTestPolicy(nil, vers)
	is.True(p.ReadPinFile("testdata/preferences"))
	is.True(p.Errors().Empty())
	is.Len(p.Pins(), 4)
	is.Equal("12.1", p.GetCandidateVer(c.FindPkg("gcc-12", "")).Version)
	is.Equal("1.0.1", p.GetCandidateVer(c.FindPkg("foo", "")).Version)
	is.Equal(1001, p.GetPriority(c.FindPkg("bar", "")))
	is.Equal(400, p.VerPriority(c.FindPkg("baz", "").FindVersion("2.0")))

	p, c = newTestPolicy(nil, vers)
	is.True(p.ReadPinFile("testdata/preferences.d"))
	is.Len(p.Pins(), 2)
	is.Equal("1.0", p.GetCandidateVer(c.FindPkg("baz", "")).Version)
	is.Equal(700, p.GetPriority(c.FindPkg("qux", "")))
	is.Equal("1.3.0", p.GetCandidateVer(c.FindPkg("qux", "")).Version)

	for _, bad := range []string{"testdata/bad-type", "testdata/bad-priority", "testdata/strict.yaml"} {
		p, _ = newTestPolicy(nil, vers)
		is.False(p.ReadPinFile(bad), bad)
		is.True(p.Errors().PendingError(), bad)
		_, err := p.Errors().Drain()
		is.True(errors.Is(err, errorlist.ErrParse), bad)
	}

	p, _ = newTestPolicy(nil, vers)
	is.False(p.ReadPinFile("testdata/missing"))
	is.True(p.Errors().PendingError())
}
