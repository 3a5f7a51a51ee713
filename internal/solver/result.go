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

package solver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docker/go-units"
	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v2"
)

// Action is what a Commit does to one package.
type Action string

const (
	ActionInstall   Action = "install"
	ActionUpgrade   Action = "upgrade"
	ActionDowngrade Action = "downgrade"
	ActionReinstall Action = "reinstall"
	ActionRemove    Action = "remove"
	ActionPurge     Action = "purge"
)

// Change is one pending change.
type Change struct {
	Name       string `json:"name"`
	Arch       string `json:"arch"`
	Action     Action `json:"action"`
	OldVersion string `json:"old_version,omitempty" yaml:"old_version,omitempty"`
	NewVersion string `json:"new_version,omitempty" yaml:"new_version,omitempty"`
	Auto       bool   `json:"auto,omitempty" yaml:"auto,omitempty"`
}

func (c Change) String() string {
	switch c.Action {
	case ActionInstall:
		return fmt.Sprintf("%s %s:%s (%s)", c.Action, c.Name, c.Arch, c.NewVersion)
	case ActionRemove, ActionPurge, ActionReinstall:
		return fmt.Sprintf("%s %s:%s (%s)", c.Action, c.Name, c.Arch, c.OldVersion)
	}
	return fmt.Sprintf("%s %s:%s (%s => %s)", c.Action, c.Name, c.Arch, c.OldVersion, c.NewVersion)
}

// Changes lists the pending changes in package ID order.
func (d *DepCache) Changes() []Change {
	var out []Change
	for _, p := range d.cache.Packages() {
		st := d.states[p.ID]
		c := Change{Name: p.Name, Arch: p.Arch, Auto: st.Auto}
		if p.Current != nil {
			c.OldVersion = p.Current.Version
		}
		if st.InstallVer != nil {
			c.NewVersion = st.InstallVer.Version
		}
		switch {
		case d.MarkedPurge(p):
			c.Action = ActionPurge
		case d.MarkedDelete(p):
			c.Action = ActionRemove
		case d.MarkedInstall(p):
			c.Action = ActionInstall
		case d.MarkedUpgrade(p):
			c.Action = ActionUpgrade
		case d.MarkedDowngrade(p):
			c.Action = ActionDowngrade
		case d.MarkedReinstall(p):
			c.Action = ActionReinstall
		default:
			continue
		}
		out = append(out, c)
	}
	return out
}

// ResultSet is the outcome of a series of marks, grouped the way it is
// shown to users. It is marshalled into YAML and JSON.
type ResultSet struct {
	Status          string   `json:"status"`
	ToInstall       []Change `json:"to_install" yaml:"to_install"`
	ToUpgrade       []Change `json:"to_upgrade" yaml:"to_upgrade"`
	ToDowngrade     []Change `json:"to_downgrade" yaml:"to_downgrade"`
	ToReinstall     []Change `json:"to_reinstall" yaml:"to_reinstall"`
	ToRemove        []Change `json:"to_remove" yaml:"to_remove"`
	KeptBack        []string `json:"kept_back" yaml:"kept_back"`
	Autoremovable   []string `json:"autoremovable" yaml:"autoremovable"`
	Inconsistencies []string `json:"inconsistencies" yaml:"inconsistencies"`
	UsrSize         int64    `json:"usr_size" yaml:"usr_size"`
	DebSize         int64    `json:"deb_size" yaml:"deb_size"`
}

// Status values of a ResultSet.
const (
	StatusConsistent = "consistent"
	StatusBroken     = "broken"
)

type OutputMode int

const (
	JSON OutputMode = iota
	YAML
	Table
)

// Result groups the pending changes of d.
func (d *DepCache) Result() *ResultSet {
	rs := &ResultSet{
		Status:          StatusConsistent,
		ToInstall:       []Change{},
		ToUpgrade:       []Change{},
		ToDowngrade:     []Change{},
		ToReinstall:     []Change{},
		ToRemove:        []Change{},
		KeptBack:        []string{},
		Autoremovable:   []string{},
		Inconsistencies: []string{},
		UsrSize:         d.usrSize,
		DebSize:         d.debSize,
	}
	for _, c := range d.Changes() {
		switch c.Action {
		case ActionInstall:
			rs.ToInstall = append(rs.ToInstall, c)
		case ActionUpgrade:
			rs.ToUpgrade = append(rs.ToUpgrade, c)
		case ActionDowngrade:
			rs.ToDowngrade = append(rs.ToDowngrade, c)
		case ActionReinstall:
			rs.ToReinstall = append(rs.ToReinstall, c)
		case ActionRemove, ActionPurge:
			rs.ToRemove = append(rs.ToRemove, c)
		}
	}
	for _, p := range d.cache.Packages() {
		st := d.states[p.ID]
		if st.Mode == ModeKeep && d.IsUpgradable(p) {
			rs.KeptBack = append(rs.KeptBack, p.FullName())
		}
		if st.Garbage && st.Mode != ModeDelete {
			rs.Autoremovable = append(rs.Autoremovable, p.FullName())
		}
		if !st.InstBroken {
			continue
		}
		rs.Status = StatusBroken
		for _, rel := range d.brokenRelations(p) {
			rs.Inconsistencies = append(rs.Inconsistencies, fmt.Sprintf("%s %s but it is not going to be satisfied", st.InstallVer, rel))
		}
	}
	return rs
}

// IsConsistent reports whether no package is broken.
func (rs *ResultSet) IsConsistent() bool {
	return rs.Status == StatusConsistent
}

// Empty reports whether there is nothing to do.
func (rs *ResultSet) Empty() bool {
	return len(rs.ToInstall)+len(rs.ToUpgrade)+len(rs.ToDowngrade)+len(rs.ToReinstall)+len(rs.ToRemove) == 0
}

func (rs *ResultSet) FormatOutput(t OutputMode) (string, error) {
	var sb strings.Builder
	switch t {
	case Table:
		if !rs.IsConsistent() {
			sb.WriteString("Inconsistencies:\n")
			for _, incos := range rs.Inconsistencies {
				sb.WriteString(fmt.Sprintf("\t%s\n", incos))
			}
			return sb.String(), nil
		}
		if rs.Empty() && len(rs.KeptBack) == 0 && len(rs.Autoremovable) == 0 {
			sb.WriteString("Nothing to do.\n")
			return sb.String(), nil
		}
		table := uitable.New()
		table.AddRow("PACKAGE", "ARCH", "ACTION", "FROM", "TO")
		for _, set := range [][]Change{rs.ToInstall, rs.ToUpgrade, rs.ToDowngrade, rs.ToReinstall, rs.ToRemove} {
			for _, c := range set {
				table.AddRow(c.Name, c.Arch, c.Action, c.OldVersion, c.NewVersion)
			}
		}
		for _, n := range rs.KeptBack {
			table.AddRow(n, "", "kept back", "", "")
		}
		for _, n := range rs.Autoremovable {
			table.AddRow(n, "", "autoremovable", "", "")
		}
		sb.WriteString(table.String())
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%d to install, %d to upgrade, %d to remove, %d kept back.\n",
			len(rs.ToInstall), len(rs.ToUpgrade), len(rs.ToRemove), len(rs.KeptBack)))
		sb.WriteString(fmt.Sprintf("Need to get %s of archives.\n", units.HumanSize(float64(rs.DebSize))))
		switch {
		case rs.UsrSize > 0:
			sb.WriteString(fmt.Sprintf("After this operation, %s of additional disk space will be used.\n", units.HumanSize(float64(rs.UsrSize))))
		case rs.UsrSize < 0:
			sb.WriteString(fmt.Sprintf("After this operation, %s disk space will be freed.\n", units.HumanSize(float64(-rs.UsrSize))))
		}
	case YAML:
		o, err := yaml.Marshal(rs)
		if err != nil {
			return "", err
		}
		sb.Write(o)
	case JSON:
		o, err := json.Marshal(rs)
		if err != nil {
			return "", err
		}
		sb.Write(o)
	}
	return sb.String(), nil
}

// DebugPrint logs every package with a non default state.
func (d *DepCache) DebugPrint() {
	d.logger.Debug("depcache:")
	for _, p := range d.cache.Packages() {
		st := d.states[p.ID]
		if st.Mode == ModeKeep && !st.InstBroken && !st.Garbage {
			continue
		}
		d.logger.Debugf("  %s: mode %s, install %s, candidate %s, auto %t, broken %t, garbage %t",
			p.FullName(), st.Mode, st.InstallVer, st.CandidateVer, st.Auto, st.InstBroken, st.Garbage)
	}
	d.logger.Debugf("  keep %d, install %d, delete %d, broken %d, usr %s, deb %s",
		d.keepCount, d.instCount, d.delCount, d.brokenCount,
		units.HumanSize(float64(d.usrSize)), units.HumanSize(float64(d.debSize)))
}
