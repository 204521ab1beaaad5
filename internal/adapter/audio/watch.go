package audio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/couchcryptid/quake-alert/internal/observability"
	"github.com/fsnotify/fsnotify"
)

// WatchCueTable reloads table from path whenever the file changes, until ctx
// is cancelled. The parent directory is watched so editors that replace the
// file on save are picked up too. A file that fails to parse leaves the
// previous table in place.
func WatchCueTable(ctx context.Context, path string, table *CueTable, logger *slog.Logger, metrics *observability.Metrics) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != target || evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloadCueTable(target, table, logger, metrics)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("cue table watcher error", "error", err)
			}
		}
	}()
	return nil
}

func reloadCueTable(path string, table *CueTable, logger *slog.Logger, metrics *observability.Metrics) {
	files, err := LoadCueTable(path)
	if err != nil {
		metrics.CueTableReload.WithLabelValues("error").Inc()
		logger.Warn("cue table reload failed, keeping previous table", "path", path, "error", err)
		return
	}
	table.Replace(files)
	metrics.CueTableReload.WithLabelValues("success").Inc()
	logger.Info("cue table reloaded", "path", path, "cues", len(files))
}
