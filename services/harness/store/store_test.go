// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/Benchtide/services/harness"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResult(name string) *harness.Result {
	return harness.BuildResult(name, "qa_v2",
		[]harness.MetricRecord{
			{"exact_match": 1.0, "f1": 0.9},
			{"exact_match": 0.0, "f1": 0.6},
		},
		100*time.Millisecond,
		map[string]any{"model": "m1"},
	)
}

func TestStore_PutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	original := sampleResult("qa_run")
	require.NoError(t, s.Put(ctx, original))

	loaded, err := s.Get(ctx, "qa_run")
	require.NoError(t, err)

	assert.Equal(t, original.Name, loaded.Name)
	assert.Equal(t, original.Dataset, loaded.Dataset)
	assert.Equal(t, original.Samples, loaded.Samples)
	assert.Len(t, loaded.Records, 2)
	assert.InDelta(t, 0.75, loaded.Aggregates["f1"].Mean, 1e-9)

	// Raw values survive the round trip so comparisons stay possible.
	assert.Equal(t, []float64{1.0, 0.0}, loaded.MetricValues("exact_match"))
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, harness.ErrNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := sampleResult("qa_run")
	require.NoError(t, s.Put(ctx, first))

	second := harness.BuildResult("qa_run", "qa_v3", nil, 0, nil)
	require.NoError(t, s.Put(ctx, second))

	loaded, err := s.Get(ctx, "qa_run")
	require.NoError(t, err)
	assert.Equal(t, "qa_v3", loaded.Dataset)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleResult("qa_run")))
	require.NoError(t, s.Delete(ctx, "qa_run"))

	_, err := s.Get(ctx, "qa_run")
	assert.ErrorIs(t, err, harness.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "qa_run"), harness.ErrNotFound)
}

func TestStore_ListVersionOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"qa@v1.10.0", "qa@v1.2.0", "zeta", "alpha", "qa@v1.9.0"} {
		require.NoError(t, s.Put(ctx, sampleResult(name)))
	}

	names, err := s.List(ctx)
	require.NoError(t, err)

	// Semver precedence within the qa base: v1.2.0 < v1.9.0 < v1.10.0
	// (lexicographic would put v1.10.0 before v1.2.0).
	assert.Equal(t, []string{"alpha", "qa@v1.2.0", "qa@v1.9.0", "qa@v1.10.0", "zeta"}, names)
}

func TestStore_GetAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sampleResult("a")))
	require.NoError(t, s.Put(ctx, sampleResult("b")))

	results, err := s.GetAll(ctx, []string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Name)
	assert.Equal(t, "a", results[1].Name)

	_, err = s.GetAll(ctx, []string{"a", "missing"})
	assert.ErrorIs(t, err, harness.ErrNotFound)
}

func TestStore_DirectoryLock(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig(dir)
	cfg.GCInterval = 0
	first, err := Open(cfg)
	require.NoError(t, err)

	_, err = Open(cfg)
	assert.ErrorIs(t, err, ErrStoreLocked)

	require.NoError(t, first.Close())

	second, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSplitRunVersion(t *testing.T) {
	t.Run("valid semver suffix", func(t *testing.T) {
		base, ver := splitRunVersion("qa@v1.2.3")
		assert.Equal(t, "qa", base)
		assert.Equal(t, "v1.2.3", ver)
	})
	t.Run("no suffix", func(t *testing.T) {
		base, ver := splitRunVersion("qa_run")
		assert.Equal(t, "qa_run", base)
		assert.Empty(t, ver)
	})
	t.Run("invalid version ignored", func(t *testing.T) {
		base, ver := splitRunVersion("qa@latest")
		assert.Equal(t, "qa@latest", base)
		assert.Empty(t, ver)
	})
}
