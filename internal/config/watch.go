package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/ice-station/internal/logger"
)

// Reloadable is the part of the settings applied without a restart.
type Reloadable struct {
	// SoundEnabled turns the alert audio loop on or off.
	SoundEnabled bool
	// LogLevel is the new minimum log level.
	LogLevel string
}

// ReloadableOf extracts the hot-reloadable subset of cfg.
func ReloadableOf(cfg *Config) Reloadable {
	return Reloadable{
		SoundEnabled: cfg.SoundEnabled,
		LogLevel:     cfg.LogLevel,
	}
}

// Watch reloads the settings file whenever it is written and passes the
// hot-reloadable subset to onChange. Invalid files are logged and skipped.
// The watcher stops when ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(Reloadable)) error {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}

	// Editors replace files on save, so the directory is watched instead of the file.
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()

		return fmt.Errorf("config watcher add %s: %w", path, err)
	}

	ctx = logger.WithName(ctx, "config-watcher")

	go func() {
		defer func() {
			_ = watcher.Close()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}

				cfg, err := Load(path)
				if err != nil {
					logger.WarnKV(ctx, "Settings reload skipped", "path", path, "error", err)

					continue
				}

				logger.InfoKV(ctx, "Settings reloaded", "path", path, "sound_enabled", cfg.SoundEnabled, "log_level", cfg.LogLevel)
				onChange(ReloadableOf(cfg))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				logger.WarnKV(ctx, "Settings watcher error", "error", err)
			}
		}
	}()

	return nil
}
