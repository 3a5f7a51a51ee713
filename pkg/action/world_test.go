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
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/pkg/repo"
)

func TestBuildWorld(t *testing.T) {
	is := assert.New(t)
	world, err := repo.LoadFile("testdata/world.yaml")
	require.NoError(t, err)

	cfg := actionConfigFixture(t)
	d, err := BuildWorld(context.Background(), cfg, world, nil, nil)
	require.NoError(t, err)
	app := d.Cache().FindPkg("app", "")
	require.NotNil(t, app)
	libapp := d.Cache().FindPkg("libapp", "")
	require.NotNil(t, libapp)
	is.True(d.IsUpgradable(app))
	is.True(d.IsUpgradable(libapp))
	is.Zero(d.BrokenCount())

	cfg = actionConfigFixture(t)
	d, err = BuildWorld(context.Background(), cfg, world, []string{"testdata/preferences"}, nil)
	require.NoError(t, err)
	app = d.Cache().FindPkg("app", "")
	libapp = d.Cache().FindPkg("libapp", "")
	is.False(d.IsUpgradable(app), "pinned to the installed version")
	is.Equal("1.0-1", d.GetCandidateVer(app).Version)
	is.True(d.IsUpgradable(libapp))

	cfg = actionConfigFixture(t)
	d, err = BuildWorld(context.Background(), cfg, world, []string{"testdata/bad-preferences"}, nil)
	is.Nil(d)
	is.True(errors.Is(err, errorlist.ErrParse))
}

func TestBuildWorldMissingSource(t *testing.T) {
	world := repo.NewFile(t.TempDir())
	world.Add(&repo.Source{Packages: "Packages"})

	d, err := BuildWorld(context.Background(), actionConfigFixture(t), world, nil, nil)
	assert.Nil(t, d)
	assert.Error(t, err)
}
