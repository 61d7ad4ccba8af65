// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/watch.go
// Summary: Hot reload of the config file via fsnotify.

package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle coalesces the burst of events editors produce on save.
const watchSettle = 120 * time.Millisecond

// Watch reloads the system config whenever its file changes and passes the
// fresh config to onChange. It blocks until ctx is done. The parent
// directory is watched so atomic rename-on-save is seen.
func Watch(ctx context.Context, onChange func(Config)) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return WatchFile(ctx, path, func() {
		if err := Reload(); err != nil {
			logger.Warnf("Reload after change failed: %v", err)
			return
		}
		onChange(System())
	})
}

// WatchFile calls fn after path is written, created or renamed into place.
func WatchFile(ctx context.Context, path string, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	name := filepath.Clean(path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchSettle)
			} else {
				timer.Reset(watchSettle)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Watcher error: %v", err)
		case <-fire:
			fire = nil
			logger.Debugf("Config file %s changed", name)
			fn()
		}
	}
}
