// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset provides ground-truth loaders for the evaluation
// harness: local files, GCS buckets, and a Weaviate-backed evidence
// store for citation grounding. All loaders implement
// harness.DatasetLoader.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/Benchtide/services/harness"
)

var (
	// ErrDatasetNotFound indicates no file matched the dataset
	// identifier under any supported extension.
	ErrDatasetNotFound = errors.New("dataset file not found")

	// ErrEmptyDataset indicates the dataset file parsed to zero
	// entries.
	ErrEmptyDataset = errors.New("dataset contains no entries")
)

// extensions are probed in order when resolving a dataset file.
var extensions = []string{".yaml", ".yml", ".json"}

// datasetFile is the on-disk shape: either a bare list or a mapping
// with a ground_truth key.
type datasetFile struct {
	GroundTruth []any `yaml:"ground_truth" json:"ground_truth"`
}

// FileLoader resolves datasets from a directory of YAML or JSON
// files named <dataset>.<ext>.
//
// Description:
//
//	A dataset file is either a bare list of ground-truth entries or a
//	mapping with a ground_truth list. Entries keep their decoded types
//	(string, number, nested map) so structured metrics receive real
//	values rather than strings.
//
// Thread Safety: Safe for concurrent use.
type FileLoader struct {
	dir string
}

// NewFileLoader creates a loader rooted at dir.
func NewFileLoader(dir string) *FileLoader {
	return &FileLoader{dir: dir}
}

// Load reads and parses the dataset file.
//
// Outputs:
//   - []any: The ground-truth entries, in file order.
//   - error: ErrDatasetNotFound when no file matches, ErrEmptyDataset
//     for a file with no entries, otherwise a parse error.
func (l *FileLoader) Load(ctx context.Context, dataset string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := l.resolve(dataset)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}

	entries, err := parseDataset(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDataset, path)
	}
	return entries, nil
}

// resolve probes the supported extensions for the dataset file.
func (l *FileLoader) resolve(dataset string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(l.dir, dataset+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrDatasetNotFound, dataset, l.dir)
}

// parseDataset decodes a dataset payload in either supported shape.
func parseDataset(raw []byte, ext string) ([]any, error) {
	unmarshal := yaml.Unmarshal
	if ext == ".json" {
		unmarshal = json.Unmarshal
	}

	var list []any
	if err := unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var file datasetFile
	if err := unmarshal(raw, &file); err != nil {
		return nil, err
	}
	return file.GroundTruth, nil
}

// -----------------------------------------------------------------------------
// Caching
// -----------------------------------------------------------------------------

// CachingLoader memoizes another loader's results until invalidated.
// Pair it with a Watcher for hot reload of on-disk datasets.
//
// Thread Safety: Safe for concurrent use.
type CachingLoader struct {
	mu    sync.RWMutex
	inner harness.DatasetLoader
	cache map[string][]any
}

// NewCachingLoader wraps a loader with an invalidation cache.
func NewCachingLoader(inner harness.DatasetLoader) *CachingLoader {
	return &CachingLoader{
		inner: inner,
		cache: make(map[string][]any),
	}
}

// Load returns the cached entries or delegates to the inner loader.
func (l *CachingLoader) Load(ctx context.Context, dataset string) ([]any, error) {
	l.mu.RLock()
	entries, ok := l.cache[dataset]
	l.mu.RUnlock()
	if ok {
		return entries, nil
	}

	entries, err := l.inner.Load(ctx, dataset)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[dataset] = entries
	l.mu.Unlock()
	return entries, nil
}

// Invalidate drops one dataset from the cache.
func (l *CachingLoader) Invalidate(dataset string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, dataset)
}

// InvalidateAll drops the whole cache.
func (l *CachingLoader) InvalidateAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string][]any)
}

var (
	_ harness.DatasetLoader = (*FileLoader)(nil)
	_ harness.DatasetLoader = (*CachingLoader)(nil)
)
