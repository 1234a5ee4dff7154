// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adpod/internal/ads"
	"github.com/ManuGH/adpod/internal/log"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a manifest file whenever it changes on disk. A reload that
// fails to parse is logged and the previous break list stays in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload func([]*ads.AdBreak)
	logger   zerolog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
}

// NewWatcher returns a watcher for path. onReload receives every successfully
// parsed version of the file.
func NewWatcher(path string, onReload func([]*ads.AdBreak)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: defaultDebounce,
		onReload: onReload,
		logger:   log.WithComponent("manifest"),
	}
}

// Start begins watching. The watch ends when ctx is cancelled or Close is called.
// The parent directory is watched so that editors replacing the file are seen.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch manifest dir: %w", err)
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	w.logger.Info().
		Str(log.FieldEvent, "manifest.watcher_started").
		Str(log.FieldPath, w.path).
		Msg("watching manifest for changes")

	go w.loop(ctx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str(log.FieldEvent, "manifest.watcher_error").
				Msg("manifest watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	breaks, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error().
			Err(err).
			Str(log.FieldEvent, "manifest.reload_failed").
			Str(log.FieldPath, w.path).
			Msg("manifest reload failed, keeping previous ad breaks")
		return
	}
	w.logger.Info().
		Str(log.FieldEvent, "manifest.reloaded").
		Int(log.FieldBreakCount, len(breaks)).
		Msg("manifest reloaded")
	if w.onReload != nil {
		w.onReload(breaks)
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.watcher != nil {
		_ = w.watcher.Close()
		w.watcher = nil
	}
}
