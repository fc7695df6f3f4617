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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AleutianAI/Benchtide/services/harness"
	"github.com/fsnotify/fsnotify"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
}

func TestFileLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("bare yaml list", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "qa_v2.yaml", "- paris\n- berlin\n- 42\n")

		entries, err := NewFileLoader(dir).Load(ctx, "qa_v2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		if entries[0] != "paris" {
			t.Errorf("expected first entry paris, got %v", entries[0])
		}
		if entries[2] != 42 {
			t.Errorf("expected numeric entry preserved, got %T %v", entries[2], entries[2])
		}
	})

	t.Run("mapping with ground_truth key", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "qa.yaml", "ground_truth:\n  - yes\n  - no\n")

		entries, err := NewFileLoader(dir).Load(ctx, "qa")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("expected 2 entries, got %d", len(entries))
		}
	})

	t.Run("json dataset", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "qa.json", `{"ground_truth": ["a", "b"]}`)

		entries, err := NewFileLoader(dir).Load(ctx, "qa")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 2 || entries[1] != "b" {
			t.Errorf("unexpected entries: %v", entries)
		}
	})

	t.Run("missing dataset", func(t *testing.T) {
		_, err := NewFileLoader(t.TempDir()).Load(ctx, "absent")
		if !errors.Is(err, ErrDatasetNotFound) {
			t.Fatalf("expected ErrDatasetNotFound, got %v", err)
		}
	})

	t.Run("empty dataset rejected", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "empty.yaml", "ground_truth: []\n")

		_, err := NewFileLoader(dir).Load(ctx, "empty")
		if !errors.Is(err, ErrEmptyDataset) {
			t.Fatalf("expected ErrEmptyDataset, got %v", err)
		}
	})

	t.Run("yaml preferred over json", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "qa.yaml", "- from_yaml\n")
		writeFile(t, dir, "qa.json", `["from_json"]`)

		entries, err := NewFileLoader(dir).Load(ctx, "qa")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entries[0] != "from_yaml" {
			t.Errorf("expected yaml to win, got %v", entries[0])
		}
	})
}

func TestCachingLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("caches until invalidated", func(t *testing.T) {
		calls := 0
		inner := harness.DatasetLoaderFunc(func(context.Context, string) ([]any, error) {
			calls++
			return []any{"a"}, nil
		})
		loader := NewCachingLoader(inner)

		for i := 0; i < 3; i++ {
			if _, err := loader.Load(ctx, "qa"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if calls != 1 {
			t.Errorf("expected 1 inner call, got %d", calls)
		}

		loader.Invalidate("qa")
		if _, err := loader.Load(ctx, "qa"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected reload after invalidation, got %d calls", calls)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		calls := 0
		boom := errors.New("backend down")
		inner := harness.DatasetLoaderFunc(func(context.Context, string) ([]any, error) {
			calls++
			if calls == 1 {
				return nil, boom
			}
			return []any{"a"}, nil
		})
		loader := NewCachingLoader(inner)

		if _, err := loader.Load(ctx, "qa"); !errors.Is(err, boom) {
			t.Fatalf("expected first call to fail, got %v", err)
		}
		if _, err := loader.Load(ctx, "qa"); err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
	})
}

func TestWatcher_HandleEvent(t *testing.T) {
	t.Run("write to dataset file invalidates and notifies", func(t *testing.T) {
		loader := NewCachingLoader(harness.DatasetLoaderFunc(func(context.Context, string) ([]any, error) {
			return []any{"a"}, nil
		}))
		_, _ = loader.Load(context.Background(), "qa")

		var notified string
		w := &Watcher{cache: loader, callback: func(dataset string) { notified = dataset }}
		w.handleEvent(fsnotify.Event{Name: "/data/qa.yaml", Op: fsnotify.Write})

		if notified != "qa" {
			t.Errorf("expected callback for qa, got %q", notified)
		}
		loader.mu.RLock()
		_, cached := loader.cache["qa"]
		loader.mu.RUnlock()
		if cached {
			t.Error("expected cache entry dropped")
		}
	})

	t.Run("unrelated files ignored", func(t *testing.T) {
		var notified bool
		w := &Watcher{callback: func(string) { notified = true }}
		w.handleEvent(fsnotify.Event{Name: "/data/qa.tmp", Op: fsnotify.Write})
		w.handleEvent(fsnotify.Event{Name: "/data/qa.yaml", Op: fsnotify.Chmod})
		if notified {
			t.Error("expected no callback for unrelated events")
		}
	})
}
