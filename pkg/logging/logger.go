// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Benchtide components.
//
// The package wraps Go's standard slog with a small layer that gives
// every component the same defaults:
//
//   - stderr output for CLI compatibility (Unix conventions)
//   - optional JSON output for service deployments
//   - an exporter hook so evaluation runs can ship their logs to an
//     external collector without the core depending on one
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("starting evaluation", "run_id", runID)
//	logger.Error("run failed", "error", err)
//
// # Service Usage
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    Service: "harness-server",
//	    JSON:    true,
//	})
//	defer logger.Close()
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Levels
// -----------------------------------------------------------------------------

// Level represents a logging severity level.
type Level int

const (
	// LevelDebug enables verbose diagnostic output.
	LevelDebug Level = iota
	// LevelInfo is the default operational level.
	LevelInfo
	// LevelWarn reports recoverable problems.
	LevelWarn
	// LevelError reports failures.
	LevelError
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// toSlogLevel bridges Level to the standard library.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a config string into a Level. Unknown strings
// fall back to LevelInfo rather than failing, so a bad config value
// never silences logging entirely.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity to emit.
	Level Level

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON selects JSON output instead of text. Services should set
	// this; CLI invocations usually leave it false.
	JSON bool

	// Output overrides the destination. Defaults to os.Stderr.
	Output io.Writer

	// Exporter, if set, receives a copy of every emitted entry.
	Exporter LogExporter
}

// LogExporter receives log entries for delivery to an external system.
//
// Implementations must be safe for concurrent use. Export must not
// block the logging hot path for long; buffer internally if delivery
// is slow.
type LogExporter interface {
	Export(ctx context.Context, entry LogEntry) error
	Flush(ctx context.Context) error
	Close() error
}

// LogEntry is the exporter-facing view of one log record.
type LogEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Service string         `json:"service,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// -----------------------------------------------------------------------------
// Logger
// -----------------------------------------------------------------------------

// Logger is a thin wrapper over slog that adds exporter fan-out.
//
// Thread Safety: Safe for concurrent use.
type Logger struct {
	slogger  *slog.Logger
	config   Config
	exporter LogExporter
}

// New creates a logger from the given config.
//
// Outputs:
//   - *Logger: The configured logger. Never nil.
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	return &Logger{
		slogger:  slog.New(handler),
		config:   config,
		exporter: config.Exporter,
	}
}

var (
	defaultLogger     *Logger
	defaultLoggerOnce sync.Once
)

// Default returns the shared process-wide logger (stderr, info level).
func Default() *Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = New(Config{Level: LevelInfo})
	})
	return defaultLogger
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// With returns a logger with additional persistent attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger:  l.slogger.With(args...),
		config:   l.config,
		exporter: l.exporter,
	}
}

// Slog exposes the underlying slog.Logger for libraries that take one
// directly (badger, gin middleware, otel error handlers).
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close flushes and closes the exporter, if any.
func (l *Logger) Close() error {
	if l.exporter == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.exporter.Flush(ctx); err != nil {
		return err
	}
	return l.exporter.Close()
}

func (l *Logger) log(level Level, msg string, args ...any) {
	switch level {
	case LevelDebug:
		l.slogger.Debug(msg, args...)
	case LevelWarn:
		l.slogger.Warn(msg, args...)
	case LevelError:
		l.slogger.Error(msg, args...)
	default:
		l.slogger.Info(msg, args...)
	}

	if l.exporter != nil {
		entry := LogEntry{
			Time:    time.Now(),
			Level:   level.String(),
			Message: msg,
			Service: l.config.Service,
			Attrs:   argsToMap(args),
		}
		// Export errors are intentionally dropped: logging must never
		// fail the caller.
		_ = l.exporter.Export(context.Background(), entry)
	}
}

// argsToMap converts alternating key/value args into a map.
func argsToMap(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	m := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		m[key] = args[i+1]
	}
	return m
}

// -----------------------------------------------------------------------------
// Exporters
// -----------------------------------------------------------------------------

// NopExporter discards all entries. Useful as a default.
type NopExporter struct{}

// Export discards the entry.
func (e *NopExporter) Export(ctx context.Context, entry LogEntry) error { return nil }

// Flush does nothing.
func (e *NopExporter) Flush(ctx context.Context) error { return nil }

// Close does nothing.
func (e *NopExporter) Close() error { return nil }

// BufferedExporter retains entries in memory. Intended for tests.
//
// Thread Safety: Safe for concurrent use.
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewBufferedExporter creates an empty buffered exporter.
func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{entries: make([]LogEntry, 0, 64)}
}

// Export appends the entry to the buffer.
func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

// Flush does nothing; entries are already retained.
func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }

// Close clears the buffer.
func (e *BufferedExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = nil
	return nil
}

// Entries returns a copy of the buffered entries.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

var _ LogExporter = (*NopExporter)(nil)
var _ LogExporter = (*BufferedExporter)(nil)
