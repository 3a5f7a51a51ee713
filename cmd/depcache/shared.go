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

package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/log-go"
	logio "github.com/Masterminds/log-go/io"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rancher-sandbox/depcache/internal/errorlist"
	"github.com/rancher-sandbox/depcache/internal/solver"
	"github.com/rancher-sandbox/depcache/pkg/action"
	"github.com/rancher-sandbox/depcache/pkg/eyecandy"
	"github.com/rancher-sandbox/depcache/pkg/metrics"
	"github.com/rancher-sandbox/depcache/pkg/repo"
)

// logProgress reports DepCache progress at debug level, once per tenth.
type logProgress struct {
	logger log.Logger
	last   int
}

func (p *logProgress) Update(percent float64, message string) {
	if step := int(percent) / 10; step > p.last {
		p.last = step
		p.logger.Debugf("%s... %d%%", message, step*10)
	}
}

func (p *logProgress) Done() {
	p.last = 0
	p.logger.Debug("done")
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadDepCache reads the configuration and the world file and returns a
// DepCache over it.
func loadDepCache(ctx context.Context, logger log.Logger) (*action.Configuration, *solver.DepCache, error) {
	cfg, err := settings.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	actionConfig := action.NewConfiguration(cfg, logger)
	actionConfig.NoEmojis = settings.NoEmojis

	world, err := repo.LoadFile(settings.World)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugf("world file %s: %d sources", settings.World, len(world.Sources))

	d, err := action.BuildWorld(ctx, actionConfig, world, settings.PinFiles, &logProgress{logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return actionConfig, d, nil
}

type resultWriter struct {
	rs *solver.ResultSet
}

func (w *resultWriter) write(out io.Writer, mode solver.OutputMode) error {
	s, err := w.rs.FormatOutput(mode)
	if err != nil {
		return err
	}
	if mode != solver.Table && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err = io.WriteString(out, s)
	return err
}

func (w *resultWriter) WriteTable(out io.Writer) error { return w.write(out, solver.Table) }

func (w *resultWriter) WriteJSON(out io.Writer) error { return w.write(out, solver.JSON) }

func (w *resultWriter) WriteYAML(out io.Writer) error { return w.write(out, solver.YAML) }

// finishChanges prints the pending changes of d and, with --commit, applies
// them. Metrics are written last so they describe what is left.
func finishChanges(cmd *cobra.Command, actionConfig *action.Configuration, d *solver.DepCache,
	rs *solver.ResultSet, cf *changeFlags, logger log.Logger) error {

	wInfo := logio.NewWriter(logger, log.InfoLevel)
	if err := cf.outfmt.Write(wInfo, &resultWriter{rs}); err != nil {
		return err
	}

	if settings.Commit && !rs.Empty() {
		if err := commit(cmd, actionConfig, d, cf, wInfo, logger); err != nil {
			return err
		}
	}
	return writeMetrics(d, logger)
}

func commit(cmd *cobra.Command, actionConfig *action.Configuration, d *solver.DepCache,
	cf *changeFlags, wInfo io.Writer, logger log.Logger) error {

	if !cf.yes {
		ok, err := action.PromptBool("Do you want to continue?", bufio.NewReader(cmd.InOrStdin()), logger)
		if err != nil {
			return err
		}
		if !ok {
			logger.Info("Abort.")
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(settings.HistoryDB), 0755); err != nil {
		return err
	}
	h, err := action.OpenHistory(settings.HistoryDB)
	if err != nil {
		return err
	}
	defer h.Close()
	actionConfig.History = h

	c := action.NewCommit(actionConfig, &action.SimulatedFetcher{Out: wInfo}, &action.SimulatedInstaller{Out: wInfo})
	c.Command = commandLine(cmd)
	ok, err := c.Run(cmdContext(cmd), d)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(errorlist.ErrCommitAborted, "some archives could not be fetched, the changes were not applied")
	}
	logger.Info(eyecandy.ESPrint(settings.NoEmojis, "Done! :clapping_hands:"))
	return nil
}

func commandLine(cmd *cobra.Command) string {
	return strings.TrimSpace(strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()) + " " + strings.Join(cmd.Flags().Args(), " "))
}

func writeMetrics(d *solver.DepCache, logger log.Logger) error {
	if settings.MetricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(settings.MetricsFile, d); err != nil {
		return err
	}
	logger.Debugf("metrics written to %s", settings.MetricsFile)
	return nil
}
