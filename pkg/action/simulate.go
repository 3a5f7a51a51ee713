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
	"fmt"
	"io"

	"github.com/docker/go-units"

	"github.com/rancher-sandbox/depcache/internal/solver"
)

// SimulatedFetcher pretends to download archives and prints what it would
// get. Statuses lists, by package name, items that end in another state
// than ItemDone.
type SimulatedFetcher struct {
	Out      io.Writer
	Statuses map[string]ItemStatus
}

// Fetch implements Fetcher.
func (f *SimulatedFetcher) Fetch(ctx context.Context, items []*Item) error {
	var total int64
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if it.Status == ItemDone && it.Complete {
			continue
		}
		status, ok := f.Statuses[it.Pkg.Name]
		if !ok {
			status = ItemDone
		}
		it.Status = status
		switch status {
		case ItemDone:
			it.Complete = true
			total += it.Size
			fmt.Fprintf(f.Out, "Get:%d %s %s %s [%s]\n", i+1, it.URI, it.Pkg.FullName(), it.Ver.Version,
				units.HumanSize(float64(it.Size)))
		case ItemError:
			it.ErrorText = "404  Not Found"
			fmt.Fprintf(f.Out, "Err:%d %s\n  %s\n", i+1, it.URI, it.ErrorText)
		default:
			fmt.Fprintf(f.Out, "Ign:%d %s\n", i+1, it.URI)
		}
	}
	fmt.Fprintf(f.Out, "Fetched %s\n", units.HumanSize(float64(total)))
	return nil
}

// SimulatedInstaller prints the changes the way apt-get -s does. Results
// are returned one per call; once used up every call completes.
type SimulatedInstaller struct {
	Out     io.Writer
	Results []InstallResult
}

// Install implements Installer.
func (s *SimulatedInstaller) Install(ctx context.Context, changes []solver.Change) (InstallResult, error) {
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return InstallFailed, err
		}
		switch c.Action {
		case solver.ActionRemove:
			fmt.Fprintf(s.Out, "Remv %s [%s]\n", c.Name, c.OldVersion)
		case solver.ActionPurge:
			fmt.Fprintf(s.Out, "Purg %s [%s]\n", c.Name, c.OldVersion)
		case solver.ActionInstall:
			fmt.Fprintf(s.Out, "Inst %s (%s %s)\n", c.Name, c.NewVersion, c.Arch)
		default:
			fmt.Fprintf(s.Out, "Inst %s [%s] (%s %s)\n", c.Name, c.OldVersion, c.NewVersion, c.Arch)
		}
	}
	if len(s.Results) == 0 {
		return InstallCompleted, nil
	}
	res := s.Results[0]
	s.Results = s.Results[1:]
	return res, nil
}
