// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cached datasets when their files change on
// disk, so long-running servers pick up edited ground truth without a
// restart.
//
// Thread Safety: Safe for concurrent use. Start should only be called
// once.
type Watcher struct {
	dir      string
	cache    *CachingLoader
	watcher  *fsnotify.Watcher
	callback func(dataset string)
}

// NewWatcher creates a watcher over the loader directory.
//
// Inputs:
//   - dir: The dataset directory to watch.
//   - cache: The caching loader to invalidate. May be nil.
//   - callback: Optional callback per invalidated dataset.
//
// Outputs:
//   - *Watcher: Ready-to-start watcher.
//   - error: Non-nil if watcher creation fails.
func NewWatcher(dir string, cache *CachingLoader, callback func(dataset string)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		cache:    cache,
		watcher:  watcher,
		callback: callback,
	}, nil
}

// Start begins watching for dataset changes.
//
// Description:
//
//	Watches the dataset directory for writes, creates, and removes of
//	files with a supported extension. Blocks until the context is
//	cancelled. Should be run in a goroutine.
//
// Example:
//
//	watcher, _ := dataset.NewWatcher(dir, cache, nil)
//	go watcher.Start(ctx)
func (w *Watcher) Start(ctx context.Context) {
	if err := w.watcher.Add(w.dir); err != nil {
		slog.Warn("Failed to watch dataset directory",
			"dir", w.dir,
			"error", err)
		return
	}

	slog.Debug("Started watching datasets", "dir", w.dir)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Dataset watcher error", "error", err)

		case <-ctx.Done():
			slog.Debug("Dataset watcher stopping")
			return
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	ext := filepath.Ext(event.Name)
	if !supportedExtension(ext) {
		return
	}
	dataset := strings.TrimSuffix(filepath.Base(event.Name), ext)

	slog.Info("Dataset changed on disk, invalidating cache",
		"dataset", dataset,
		"path", event.Name)

	if w.cache != nil {
		w.cache.Invalidate(dataset)
	}
	if w.callback != nil {
		w.callback(dataset)
	}
}

// Stop stops the watcher and releases resources. Safe to call
// multiple times.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func supportedExtension(ext string) bool {
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}
