package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc re-reads the configuration file and returns the settings it
// now describes.
type ReloadFunc func() (Settings, error)

// Watch observes the config file and replaces the store's snapshot when it
// changes, until ctx is cancelled. Editors often write via rename, so the
// parent directory is watched and events are filtered by file name and
// debounced.
func Watch(ctx context.Context, store *Store, configPath string, reload ReloadFunc, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(configPath)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("settings watcher started", slog.String("config", configPath))

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(200 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case <-debounceCh:
			next, err := reload()
			if err != nil {
				logger.Warn("settings reload failed, keeping previous values",
					slog.String("error", err.Error()))
				continue
			}
			store.Replace(next)
			logger.Info("settings reloaded",
				slog.String("timezone", next.Location.String()),
				slog.Duration("default_duration", next.DefaultDuration),
				slog.Duration("slot_granularity", next.SlotGranularity))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", slog.String("error", err.Error()))
		}
	}
}
