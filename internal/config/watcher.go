// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// watchedFiles are the config directory entries that trigger a reload.
var watchedFiles = map[string]bool{
	"config.toml": true,
	"config.json": true,
	"api_key":     true,
}

// Watcher is the interface for config-watching implementations.
type Watcher interface {
	// Watch starts watching for config changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// ReloadFunc is invoked with the freshly loaded config after a change.
type ReloadFunc func(*Config)

// FsnotifyWatcher reloads configuration when the config files change on disk.
type FsnotifyWatcher struct {
	dir      string
	onReload ReloadFunc
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]time.Time // File path -> last change time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewFsnotifyWatcher creates a new fsnotify-based config watcher over the
// default config directory.
func NewFsnotifyWatcher(debounce time.Duration, onReload ReloadFunc) (*FsnotifyWatcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FsnotifyWatcher{
		dir:      dir,
		onReload: onReload,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching the config directory.
func (fw *FsnotifyWatcher) Watch() error {
	// Watch the directory, not the files: editors replace files on save and
	// per-file watches break across that rename.
	if err := fw.watcher.Add(fw.dir); err != nil {
		return err
	}

	go fw.processEvents()
	go fw.processPending()

	return nil
}

// processEvents processes file system events.
func (fw *FsnotifyWatcher) processEvents() {
	defer func() {
		if r := recover(); r != nil {
			_ = r
		}
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if !watchedFiles[filepath.Base(event.Name)] {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fw.mu.Lock()
				fw.pending[event.Name] = time.Now()
				fw.mu.Unlock()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			_ = err
		}
	}
}

// processPending fires the reload once changes settle past the debounce.
func (fw *FsnotifyWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			fw.mu.Lock()
			settled := false
			for path, changeTime := range fw.pending {
				if now.Sub(changeTime) >= fw.debounce {
					delete(fw.pending, path)
					settled = true
				}
			}
			fw.mu.Unlock()

			if settled {
				fw.reload()
			}
		}
	}
}

// reload loads the config fresh and hands it to the callback. A config that
// fails to load keeps the previous one in effect.
func (fw *FsnotifyWatcher) reload() {
	cfg, err := Load()
	if err != nil {
		return
	}
	SetGlobal(cfg)
	if fw.onReload != nil {
		fw.onReload(cfg)
	}
}

// Close stops watching and releases resources.
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher reloads configuration by periodically checking modification
// times. Used where fsnotify is unavailable.
type PollingWatcher struct {
	dir      string
	onReload ReloadFunc
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	files    map[string]time.Time // File path -> mod time
	mu       sync.Mutex
}

// NewPollingWatcher creates a new polling-based config watcher.
func NewPollingWatcher(interval time.Duration, onReload ReloadFunc) (*PollingWatcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &PollingWatcher{
		dir:      dir,
		onReload: onReload,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		files:    make(map[string]time.Time),
	}, nil
}

// Watch starts polling for config changes.
func (pw *PollingWatcher) Watch() error {
	pw.scan()
	go pw.poll()
	return nil
}

// scan records the modification times of watched files.
func (pw *PollingWatcher) scan() map[string]time.Time {
	snapshot := make(map[string]time.Time)
	for name := range watchedFiles {
		path := filepath.Join(pw.dir, name)
		if info, err := os.Stat(path); err == nil {
			snapshot[path] = info.ModTime()
		}
	}

	pw.mu.Lock()
	prev := pw.files
	pw.files = snapshot
	pw.mu.Unlock()
	return prev
}

// poll periodically checks for config changes.
func (pw *PollingWatcher) poll() {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			pw.checkChanges()
		}
	}
}

// checkChanges reloads when any watched file appeared, vanished, or changed.
func (pw *PollingWatcher) checkChanges() {
	prev := pw.scan()

	pw.mu.Lock()
	current := pw.files
	changed := len(prev) != len(current)
	if !changed {
		for path, modTime := range current {
			if old, ok := prev[path]; !ok || !old.Equal(modTime) {
				changed = true
				break
			}
		}
	}
	pw.mu.Unlock()

	if !changed {
		return
	}

	cfg, err := Load()
	if err != nil {
		return
	}
	SetGlobal(cfg)
	if pw.onReload != nil {
		pw.onReload(cfg)
	}
}

// Close stops polling.
func (pw *PollingWatcher) Close() error {
	pw.cancel()
	return nil
}

// =============================================================================
// WATCHER FACTORY
// =============================================================================

// StartWatcher starts a config watcher, preferring fsnotify with a polling
// fallback. The caller owns the returned watcher and must Close it.
func StartWatcher(onReload ReloadFunc) (Watcher, error) {
	fw, err := NewFsnotifyWatcher(500*time.Millisecond, onReload)
	if err == nil {
		if err := fw.Watch(); err == nil {
			return fw, nil
		}
		fw.Close()
	}

	pw, err := NewPollingWatcher(5*time.Second, onReload)
	if err != nil {
		return nil, err
	}
	if err := pw.Watch(); err != nil {
		return nil, err
	}
	return pw, nil
}
