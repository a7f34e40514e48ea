package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tpzcyx/pkg/format"
	"tpzcyx/pkg/inspect"
)

// watchDebounce is how long a dataset must stay unchanged before it is
// validated again. Writers replace the descriptor and payload in two steps.
const watchDebounce = 200 * time.Millisecond

func (a *app) newWatchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch PATH",
		Short: "Re-validate a dataset whenever its files change, until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := &datasetWatcher{
				path:     a.path(args[0]),
				out:      cmd.OutOrStdout(),
				logger:   a.logger,
				debounce: debounce,
			}
			return w.run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watchDebounce, "Quiet period before re-validating")
	return cmd
}

// datasetWatcher validates one dataset each time its files settle
type datasetWatcher struct {
	path     string
	out      io.Writer
	logger   *zap.Logger
	debounce time.Duration
}

// run blocks until ctx is cancelled
func (w *datasetWatcher) run(ctx context.Context) error {
	meta, data := format.Paths(w.path)
	if w.debounce <= 0 {
		w.debounce = watchDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// The directory is watched rather than the files so that datasets
	// created or replaced by rename are seen.
	dir := filepath.Dir(meta)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching dataset", zap.String("meta", meta), zap.String("dir", dir))

	w.check()

	ticker := time.NewTicker(w.debounce / 4)
	defer ticker.Stop()

	var changed time.Time
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", zap.String("meta", meta))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if name != meta && name != data {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("dataset file changed", zap.String("file", name), zap.Stringer("op", event.Op))
			changed = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-ticker.C:
			if !changed.IsZero() && time.Since(changed) >= w.debounce {
				changed = time.Time{}
				w.check()
			}
		}
	}
}

// check validates the dataset and prints one status line
func (w *datasetWatcher) check() {
	stamp := mutedStyle.Render(time.Now().Format("15:04:05"))
	s, err := inspect.Validate(w.path)
	if err != nil {
		fmt.Fprintf(w.out, "%s %s\n", stamp, errorStyle.Render("✗ invalid: "+err.Error()))
		return
	}
	fmt.Fprintf(w.out, "%s %s %s\n", stamp, okStyle.Render("✓ valid:"), s.Dimensions)
}
