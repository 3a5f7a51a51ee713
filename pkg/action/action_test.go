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
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/Masterminds/log-go"
	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/solver"
)

var verbose = flag.Bool("test.log", false, "enable test logging")

// worldFixture is a small installed system: app depends on libapp, both
// have newer versions, and app 2.0 needs a library that is not installed.
var worldFixture = []pkg.MockVer{
	{Name: "libc6", Version: "2.36-9", Installed: true, Essential: true, Size: 1000},
	{Name: "app", Version: "1.0-1", Depends: "libapp", Installed: true, Size: 300},
	{Name: "app", Version: "2.0-1", Depends: "libapp (>= 2.0), newlib", Size: 400},
	{Name: "libapp", Version: "1.0-1", Installed: true, Auto: true, Size: 100},
	{Name: "libapp", Version: "2.0-1", Size: 120},
	{Name: "newlib", Version: "1.0-1", Size: 80},
	{Name: "orphan", Version: "0.5-1", Installed: true, Auto: true},
	{Name: "tool", Version: "3.1-1", Depends: "libc6, helper", Size: 50},
	{Name: "helper", Version: "1.0-1", Size: 20},
	{Name: "local", Version: "0.1", InstalledOnly: true},
	{Name: "postfix", Version: "3.7.6-1", Provides: "mta, smtp-server"},
	{Name: "exim4", Version: "4.96-15", Provides: "mta"},
}

func newTestLogger() log.Logger {
	buf := new(bytes.Buffer)
	logger := logcli.NewStandard()
	logger.InfoOut = buf
	logger.WarnOut = buf
	logger.ErrorOut = buf
	logger.DebugOut = buf
	if *verbose {
		logger.Level = log.DebugLevel
	}
	return logger
}

func actionConfigFixture(t *testing.T) *Configuration {
	t.Helper()

	cfg := &config.Config{
		Architecture: "amd64",
		ArchivesDir:  t.TempDir(),
	}
	return NewConfiguration(cfg, newTestLogger())
}

func depCacheFixture(t *testing.T, cfg *Configuration, vers []pkg.MockVer) *solver.DepCache {
	t.Helper()

	d, err := buildDepCache(context.Background(), cfg, pkg.NewCacheMock("amd64", vers), nil, nil)
	require.NoError(t, err)
	return d
}

func targets(t *testing.T, d *solver.DepCache, args ...string) []*Target {
	t.Helper()

	ts, err := ParseTargets(d.Cache(), args, newTestLogger())
	require.NoError(t, err)
	return ts
}

func names(changes []solver.Change) []string {
	out := []string{}
	for _, c := range changes {
		out = append(out, c.Name)
	}
	return out
}

func TestHandleErrors(t *testing.T) {
	is := assert.New(t)
	errs := errorlist.New()
	logger := newTestLogger()

	ok, err := HandleErrors(true, errs, logger)
	is.True(ok)
	is.NoError(err)

	ok, err = HandleErrors(false, errs, logger)
	is.False(ok)
	is.NoError(err)

	errs.Warning(errors.New("just a warning"))
	ok, err = HandleErrors(true, errs, logger)
	is.True(ok)
	is.NoError(err)
	is.True(errs.Empty())

	errs.Errorf(errorlist.ErrParse, "bad pin")
	errs.Warning(errors.New("another warning"))
	ok, err = HandleErrors(true, errs, logger)
	is.False(ok)
	is.True(errors.Is(err, errorlist.ErrParse))
	is.True(errs.Empty())
}

func TestParseTarget(t *testing.T) {
	cfg := actionConfigFixture(t)
	d := depCacheFixture(t, cfg, worldFixture)
	c := d.Cache()

	tests := []struct {
		name    string
		arg     string
		pkg     string
		version string
		wantErr string
	}{
		{name: "plain name", arg: "tool", pkg: "tool"},
		{name: "with arch", arg: "tool:amd64", pkg: "tool"},
		{name: "with version", arg: "app=1.0-1", pkg: "app", version: "1.0-1"},
		{name: "with release", arg: "app/unstable", pkg: "app", version: "2.0-1"},
		{name: "with codename", arg: "app/sid", pkg: "app", version: "2.0-1"},
		{name: "single provider", arg: "smtp-server", pkg: "postfix"},
		{name: "unknown version", arg: "app=9", wantErr: "version '9' for 'app' was not found"},
		{name: "unknown release", arg: "app/stable", wantErr: "release 'stable' for 'app' was not found"},
		{name: "unknown arch", arg: "tool:arm64", wantErr: "unable to locate package tool:arm64"},
		{name: "unknown package", arg: "nosuch", wantErr: "unable to locate package nosuch"},
		{name: "several providers", arg: "mta", wantErr: "provided by exim4:amd64, postfix:amd64"},
		{name: "empty", arg: "=1.0", wantErr: "invalid package reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := assert.New(t)
			target, err := ParseTarget(c, tt.arg, newTestLogger())
			if tt.wantErr != "" {
				if is.Error(err) {
					is.Contains(err.Error(), tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			is.Equal(tt.pkg, target.Pkg.Name)
			if tt.version == "" {
				is.Nil(target.Ver)
			} else if is.NotNil(target.Ver) {
				is.Equal(tt.version, target.Ver.Version)
			}
		})
	}
}

func TestPromptBool(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{input: "\n", want: true},
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "maybe\nno\n", want: false},
		{input: "no", want: false},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := PromptBool("continue?", bufio.NewReader(strings.NewReader(tt.input)), newTestLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
