package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const watchDebounce = 200 * time.Millisecond

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "re-run the scenario whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				return fmt.Errorf("watch needs --config")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchConfig(ctx, cmd, configFile)
		},
	}
	addScenarioFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// watchConfig runs the scenario once, then again after every write to
// path, until ctx is done. Invalid configs are reported and skipped.
func watchConfig(ctx context.Context, cmd *cobra.Command, path string) error {
	log := logger(cmd)
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	rerun := func() {
		cfg, err := loadScenario(cmd)
		if err != nil {
			log.Error("config rejected", "path", path, "err", err)
			return
		}
		if _, err := runScenario(ctx, cmd, cfg); err != nil {
			log.Error("run failed", "err", err)
		}
	}
	rerun()
	log.Info("watching", "path", path)

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			log.Debug("config changed", "op", ev.Op.String())
			debounce.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "err", err)
		case <-debounce.C:
			rerun()
		}
	}
}
