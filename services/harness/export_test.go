// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harness

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func exportFixture() *Result {
	return BuildResult("qa_run", "qa_v2",
		[]MetricRecord{
			{"exact_match": 1.0, "f1": 0.9},
			{"exact_match": 0.0, "f1": 0.5},
		},
		125*time.Millisecond,
		map[string]any{"model": "m1"},
	)
}

func TestExport(t *testing.T) {
	t.Run("json round trip", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Export(&buf, exportFixture(), FormatJSON); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded ExportRecord
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON produced: %v", err)
		}
		if decoded.Name != "qa_run" || decoded.Dataset != "qa_v2" {
			t.Errorf("identity fields lost: %+v", decoded)
		}
		if decoded.DurationMS != 125 {
			t.Errorf("expected duration 125ms, got %d", decoded.DurationMS)
		}
		if !almostEqual(decoded.Aggregates["f1"].Mean, 0.7) {
			t.Errorf("expected f1 mean 0.7, got %f", decoded.Aggregates["f1"].Mean)
		}
		if !strings.Contains(buf.String(), "T") {
			t.Error("expected ISO-8601 timestamp in output")
		}
	})

	t.Run("csv one row per metric, sorted", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Export(&buf, exportFixture(), FormatCSV); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV produced: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected header plus 2 metric rows, got %d", len(rows))
		}
		if rows[1][3] != "exact_match" || rows[2][3] != "f1" {
			t.Errorf("expected sorted metric rows, got %q / %q", rows[1][3], rows[2][3])
		}
		if rows[1][0] != "qa_run" {
			t.Errorf("expected evaluation name in row, got %q", rows[1][0])
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		err := Export(&buf, exportFixture(), ExportFormat("parquet"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
		}
	})
}
