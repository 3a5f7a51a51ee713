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
	"path"

	"github.com/rancher-sandbox/depcache/internal/solver"
)

// List reports package states, like apt list.
type List struct {
	// Pattern is a shell glob on package names; empty matches all.
	Pattern    string
	Installed  bool
	Upgradable bool
	// Autoremovable selects garbage packages.
	Autoremovable bool
	Broken        bool

	Config *Configuration
}

// ListEntry is one line of a listing.
type ListEntry struct {
	Name          string `json:"name"`
	Arch          string `json:"arch"`
	Installed     string `json:"installed,omitempty"`
	Candidate     string `json:"candidate,omitempty"`
	Archive       string `json:"archive,omitempty"`
	Auto          bool   `json:"auto"`
	Upgradable    bool   `json:"upgradable"`
	Autoremovable bool   `json:"autoremovable"`
	Broken        bool   `json:"broken"`
}

// NewList constructs a new *List.
func NewList(cfg *Configuration) *List {
	return &List{
		Config: cfg,
	}
}

// Run lists the packages of d matching every selected filter, in ID order.
func (l *List) Run(d *solver.DepCache) ([]ListEntry, error) {
	entries := []ListEntry{}
	for _, p := range d.Cache().Packages() {
		if l.Pattern != "" {
			ok, err := path.Match(l.Pattern, p.Name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		e := ListEntry{
			Name:          p.Name,
			Arch:          p.Arch,
			Auto:          d.IsAutoInstalled(p),
			Upgradable:    d.IsUpgradable(p),
			Autoremovable: d.IsGarbage(p),
			Broken:        d.IsNowBroken(p),
		}
		if p.Current != nil {
			e.Installed = p.Current.Version
		}
		if cand := d.GetCandidateVer(p); cand != nil {
			e.Candidate = cand.Version
			for _, f := range cand.Files {
				if !f.Installed {
					e.Archive = f.Archive
					break
				}
			}
		}
		if (l.Installed && e.Installed == "") ||
			(l.Upgradable && !e.Upgradable) ||
			(l.Autoremovable && !e.Autoremovable) ||
			(l.Broken && !e.Broken) {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
