package config

import (
	"context"
	"path/filepath"
	"time"

	fsnotify "github.com/fsnotify/fsnotify"

	"termhost/internal/system"
)

// Watch reloads the config file at path whenever it changes and passes the
// new value to onChange. Invalid files are logged and skipped. The parent
// directory is watched so editors that replace the file are handled.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	log := system.Component("config")

	// editors emit bursts of events; coalesce them
	const settle = 100 * time.Millisecond
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(settle)
		case <-pending:
			pending = nil
			cfg, err := LoadFile(path)
			if err != nil {
				log.Warn("config reload failed", "path", path, "err", err)
				continue
			}
			log.Info("config reloaded", "path", path)
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", "err", err)
		}
	}
}
