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

// Package metrics exports the state of a DepCache in the Prometheus text
// format, for the node exporter textfile collector.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rancher-sandbox/depcache/internal/solver"
)

// Collector holds the gauges describing one DepCache.
type Collector struct {
	registry *prometheus.Registry

	upgradesPending   *prometheus.GaugeVec
	packagesBroken    prometheus.Gauge
	changes           *prometheus.GaugeVec
	autoremovePending prometheus.Gauge
}

// NewCollector creates the gauges and registers them on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		upgradesPending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "depcache_upgrades_pending",
				Help: "Number of installed packages whose candidate is another version.",
			},
			[]string{"origin", "arch"},
		),
		packagesBroken: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depcache_packages_broken",
				Help: "Number of packages whose dependencies are not satisfied after the pending changes.",
			},
		),
		changes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "depcache_changes",
				Help: "Number of pending changes by action.",
			},
			[]string{"action"},
		),
		autoremovePending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "depcache_autoremove_pending",
				Help: "Number of automatically installed packages nothing needs anymore.",
			},
		),
	}
	c.registry.MustRegister(c.upgradesPending, c.packagesBroken, c.changes, c.autoremovePending)
	return c
}

// Registry returns the registry the gauges live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Update sets every gauge from the current state of d.
func (c *Collector) Update(d *solver.DepCache) {
	c.upgradesPending.Reset()
	c.changes.Reset()

	for _, a := range []solver.Action{
		solver.ActionInstall, solver.ActionUpgrade, solver.ActionDowngrade,
		solver.ActionReinstall, solver.ActionRemove, solver.ActionPurge,
	} {
		c.changes.WithLabelValues(string(a)).Set(0)
	}
	for _, ch := range d.Changes() {
		c.changes.WithLabelValues(string(ch.Action)).Inc()
	}

	garbage := 0
	for _, p := range d.Cache().Packages() {
		if d.IsGarbage(p) && !d.MarkedDelete(p) {
			garbage++
		}
		if !d.IsUpgradable(p) {
			continue
		}
		origin := ""
		for _, f := range d.GetCandidateVer(p).Files {
			if !f.Installed {
				origin = f.Origin
				break
			}
		}
		c.upgradesPending.WithLabelValues(origin, p.Arch).Inc()
	}
	c.autoremovePending.Set(float64(garbage))
	c.packagesBroken.Set(float64(d.BrokenCount()))
}

// WriteTextfile writes the metrics of d to path. The file is replaced
// atomically.
func WriteTextfile(path string, d *solver.DepCache) error {
	c := NewCollector()
	c.Update(d)
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return errors.Wrapf(err, "couldn't write metrics (%s)", path)
	}
	return nil
}
