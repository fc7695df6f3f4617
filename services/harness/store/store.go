// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists evaluation results in an embedded BadgerDB
// so runs survive process restarts and can be compared later.
//
// Results are stored as JSON under run/<name>. A directory lock
// guards persistent stores against concurrent processes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/mod/semver"

	"github.com/AleutianAI/Benchtide/services/harness"
)

// runPrefix namespaces result keys in the keyspace.
const runPrefix = "run/"

var (
	// ErrStoreLocked indicates another process holds the store
	// directory lock.
	ErrStoreLocked = errors.New("store directory locked by another process")
)

// Config holds configuration for a result store.
type Config struct {
	// Path is the directory for database files. Required unless
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful
	// for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. Nil disables it.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Zero disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before
	// GC runs.
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults: durable writes and
// five-minute GC.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: no disk I/O, no
// GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed result store.
//
// Thread Safety: Safe for concurrent use; BadgerDB transactions
// provide isolation.
type Store struct {
	db     *badger.DB
	lock   *dirLock
	gcStop chan struct{}
	gcDone chan struct{}
	logger *slog.Logger
}

// Open creates and opens a result store.
//
// Description:
//
//	Opens BadgerDB at the configured path (creating the directory) or
//	in memory. Persistent stores take an advisory directory lock so a
//	second process gets ErrStoreLocked instead of a corrupted
//	database. Starts the GC loop when an interval is configured.
//
// Outputs:
//   - *Store: The opened store. Caller must Close.
//   - error: ErrStoreLocked, or any open failure.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	store := &Store{logger: cfg.Logger}
	if store.logger == nil {
		store.logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		lock, err := acquireDirLock(cfg.Path)
		if err != nil {
			return nil, err
		}
		store.lock = lock
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		if store.lock != nil {
			_ = store.lock.release()
		}
		return nil, fmt.Errorf("open result store: %w", err)
	}
	store.db = db

	if cfg.GCInterval > 0 && !cfg.InMemory {
		store.gcStop = make(chan struct{})
		store.gcDone = make(chan struct{})
		go store.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return store, nil
}

// runGC periodically triggers BadgerDB value log GC.
func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err == nil {
				s.logger.Debug("store value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("store value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops GC, closes the database, and releases the directory
// lock.
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
		s.gcStop = nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if lerr := s.lock.release(); lerr != nil && err == nil {
			err = lerr
		}
		s.lock = nil
	}
	return err
}

// Put stores a result under its name, overwriting any previous run
// with the same name.
func (s *Store) Put(ctx context.Context, result *harness.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil || result.Name == "" {
		return errors.New("result must be non-nil with a name")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", result.Name, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runPrefix+result.Name), payload)
	})
}

// Get retrieves a result by name.
//
// Outputs:
//   - *harness.Result: The stored result.
//   - error: harness.ErrNotFound when the name is unknown.
func (s *Store) Get(ctx context.Context, name string) (*harness.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result harness.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: run %s", harness.ErrNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("stored run %s is corrupt: %w", name, err)
	}
	return &result, nil
}

// Delete removes a stored result.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(runPrefix + name)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: run %s", harness.ErrNotFound, name)
		}
		return txn.Delete(key)
	})
}

// List returns all stored run names, ordered version-aware: names
// sharing a base are sorted by their trailing @vX.Y.Z tag via semver
// precedence, everything else lexicographically.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(names, func(i, j int) bool {
		return lessRunName(names[i], names[j])
	})
	return names, nil
}

// GetAll loads the named runs in order, for comparison workflows.
func (s *Store) GetAll(ctx context.Context, names []string) ([]*harness.Result, error) {
	results := make([]*harness.Result, 0, len(names))
	for _, name := range names {
		result, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// lessRunName orders run names, comparing semver tags when both names
// carry one after the same base.
func lessRunName(a, b string) bool {
	baseA, verA := splitRunVersion(a)
	baseB, verB := splitRunVersion(b)
	if baseA == baseB && verA != "" && verB != "" {
		if cmp := semver.Compare(verA, verB); cmp != 0 {
			return cmp < 0
		}
	}
	return a < b
}

// splitRunVersion splits "name@v1.2.3" into base and version. The
// version part is empty when absent or not valid semver.
func splitRunVersion(name string) (base, version string) {
	idx := strings.LastIndex(name, "@")
	if idx < 0 {
		return name, ""
	}
	ver := name[idx+1:]
	if !semver.IsValid(ver) {
		return name, ""
	}
	return name[:idx], ver
}
