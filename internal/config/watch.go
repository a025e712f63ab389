package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes on disk and hands each
// successfully loaded Config to onChange. Updates that fail to load (bad
// YAML, validation errors) are logged and dropped, so the caller keeps
// running on the config it already has. Watch blocks until ctx is cancelled.
//
// The watch is placed on the file's directory, not the file: editors and
// provisioning tools replace the file in one rename, and a watch pinned to
// the old inode goes quiet after the first such save.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	base := filepath.Base(path)

	slog.Info("config: watching", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// The directory watch reports every neighbor; only writes and
			// creates of the config file itself matter.
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: ignoring unloadable update", "path", path, "err", err)
				continue
			}
			slog.Info("config: reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watch error", "err", err)
		}
	}
}
