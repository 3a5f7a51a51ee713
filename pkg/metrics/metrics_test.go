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

package metrics

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	logcli "github.com/Masterminds/log-go/impl/cli"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rancher-sandbox/depcache/internal/config"
	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/pkg"
	"github.com/rancher-sandbox/depcache/internal/policy"
	"github.com/rancher-sandbox/depcache/internal/solver"
)

func depCacheFixture(t *testing.T) *solver.DepCache {
	t.Helper()

	logger := logcli.NewStandard()
	buf := new(bytes.Buffer)
	logger.InfoOut, logger.WarnOut, logger.ErrorOut, logger.DebugOut = buf, buf, buf, buf

	cfg := &config.Config{Architecture: "amd64"}
	c := pkg.NewCacheMock("amd64", []pkg.MockVer{
		{Name: "app", Version: "1.0-1", Installed: true},
		{Name: "app", Version: "2.0-1"},
		{Name: "libfoo", Version: "1.0-1", Installed: true},
		{Name: "libfoo", Version: "1.1-1"},
		{Name: "orphan", Version: "0.5-1", Installed: true, Auto: true},
		{Name: "tool", Version: "3.1-1"},
	})
	errs := errorlist.New()
	d := solver.New(c, policy.New(c, cfg, errs, logger), cfg, errs, logger)
	require.NoError(t, d.Init(context.Background(), nil))
	return d
}

func TestCollectorUpdate(t *testing.T) {
	is := assert.New(t)
	d := depCacheFixture(t)

	c := NewCollector()
	c.Update(d)
	is.Equal(float64(2), testutil.ToFloat64(c.upgradesPending.WithLabelValues("mock", "amd64")))
	is.Equal(float64(1), testutil.ToFloat64(c.autoremovePending))
	is.Equal(float64(0), testutil.ToFloat64(c.packagesBroken))
	is.Equal(float64(0), testutil.ToFloat64(c.changes.WithLabelValues("install")))

	tool := d.Cache().FindPkg("tool", "")
	app := d.Cache().FindPkg("app", "")
	orphan := d.Cache().FindPkg("orphan", "")
	g := d.NewActionGroup()
	d.MarkInstall(tool, true, 0, true)
	d.MarkInstall(app, true, 0, true)
	d.MarkDelete(orphan, false)
	g.Release()

	c.Update(d)
	is.Equal(float64(1), testutil.ToFloat64(c.changes.WithLabelValues("install")))
	is.Equal(float64(1), testutil.ToFloat64(c.changes.WithLabelValues("upgrade")))
	is.Equal(float64(1), testutil.ToFloat64(c.changes.WithLabelValues("remove")))
	is.Equal(float64(0), testutil.ToFloat64(c.autoremovePending))
	// still upgradable until committed
	is.Equal(float64(2), testutil.ToFloat64(c.upgradesPending.WithLabelValues("mock", "amd64")))
}

func TestWriteTextfile(t *testing.T) {
	is := assert.New(t)
	d := depCacheFixture(t)
	path := filepath.Join(t.TempDir(), "depcache.prom")

	require.NoError(t, WriteTextfile(path, d))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	is.Contains(out, "# TYPE depcache_upgrades_pending gauge")
	is.Contains(out, `depcache_upgrades_pending{arch="amd64",origin="mock"} 2`)
	is.Contains(out, "depcache_autoremove_pending 1")
	is.Contains(out, "depcache_packages_broken 0")
	is.Contains(out, `depcache_changes{action="purge"} 0`)

	is.Error(WriteTextfile(filepath.Join(t.TempDir(), "missing", "depcache.prom"), d))
}
