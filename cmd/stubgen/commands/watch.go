package commands

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/basalt-data/stubgen/errors"
	"github.com/basalt-data/stubgen/logger"
	"github.com/basalt-data/stubgen/pipeline"
)

// watchDebounce coalesces the burst of fsnotify events a single feed rewrite
// produces.
const watchDebounce = 500 * time.Millisecond

// WatchCmd re-runs the pipeline whenever the introspection feed changes.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate stub files whenever the introspection feed changes",
	Long: `Watch the introspection feed and re-run the pipeline on every change.

Useful next to a build loop: rebuild the extension, re-dump introspection,
and the stub files follow. Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return errors.Wrap(err, "create watcher")
		}
		defer watcher.Close()
		if err := watcher.Add(cfg.Feed); err != nil {
			return errors.Wrapf(err, "watch %s", cfg.Feed)
		}

		runOnce := func() {
			rep, err := pipeline.Run(ctx, cfg, logger.Named("pipeline"), pipeline.Options{})
			if err != nil {
				logger.Logger.Errorw("run failed", "error", err)
				return
			}
			rep.Print()
		}

		logger.Logger.Infow("watching feed", "path", cfg.Feed)
		runOnce()

		var debounce *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				logger.Logger.Infow("watch stopped")
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
				// Editors replace files; re-add in case the inode changed.
				_ = watcher.Add(cfg.Feed)

			case <-fire:
				logger.Logger.Infow("feed changed, regenerating")
				runOnce()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Logger.Warnw("watch error", "error", err)
			}
		}
	},
}
