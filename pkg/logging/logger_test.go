// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("expected debug/info to be filtered, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn and error messages, got: %s", out)
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "harness", JSON: true, Output: &buf})

	logger.Info("run complete", "run_id", "abc", "samples", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["msg"] != "run complete" {
		t.Errorf("expected msg 'run complete', got %v", record["msg"])
	}
	if record["service"] != "harness" {
		t.Errorf("expected service 'harness', got %v", record["service"])
	}
	if record["run_id"] != "abc" {
		t.Errorf("expected run_id 'abc', got %v", record["run_id"])
	}
}

func TestLogger_ExporterReceivesEntries(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewBufferedExporter()
	logger := New(Config{Level: LevelInfo, Service: "cli", Output: &buf, Exporter: exporter})

	logger.Info("first", "key", "value")
	logger.Debug("filtered but still exported")
	logger.Error("second")

	entries := exporter.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 exported entries, got %d", len(entries))
	}
	if entries[0].Message != "first" {
		t.Errorf("expected first message, got %q", entries[0].Message)
	}
	if entries[0].Attrs["key"] != "value" {
		t.Errorf("expected attr key=value, got %v", entries[0].Attrs)
	}
	if entries[2].Level != "error" {
		t.Errorf("expected level error, got %q", entries[2].Level)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := exporter.Entries(); len(got) != 0 {
		t.Errorf("expected buffer cleared after close, got %d entries", len(got))
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, JSON: true, Output: &buf})

	child := logger.With("dataset", "qa_v2")
	child.Info("paired")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["dataset"] != "qa_v2" {
		t.Errorf("expected inherited dataset attr, got %v", record)
	}
}

func TestNopExporter(t *testing.T) {
	var e NopExporter
	ctx := context.Background()
	if err := e.Export(ctx, LogEntry{}); err != nil {
		t.Errorf("nop export returned error: %v", err)
	}
	if err := e.Flush(ctx); err != nil {
		t.Errorf("nop flush returned error: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("nop close returned error: %v", err)
	}
}
