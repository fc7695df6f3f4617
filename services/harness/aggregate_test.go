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
	"errors"
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestAggregate(t *testing.T) {
	t.Run("empty input yields empty map", func(t *testing.T) {
		got := Aggregate(nil)
		if got == nil {
			t.Fatal("expected empty map, got nil")
		}
		if len(got) != 0 {
			t.Errorf("expected empty map, got %v", got)
		}
	})

	t.Run("identical values", func(t *testing.T) {
		records := []MetricRecord{
			{"f1": 0.7},
			{"f1": 0.7},
			{"f1": 0.7},
		}
		agg := Aggregate(records)["f1"]
		if !almostEqual(agg.Mean, 0.7) {
			t.Errorf("expected mean 0.7, got %f", agg.Mean)
		}
		if !almostEqual(agg.Std, 0.0) {
			t.Errorf("expected std 0 for identical values, got %f", agg.Std)
		}
		if agg.Count != 3 {
			t.Errorf("expected count 3, got %d", agg.Count)
		}
	})

	t.Run("population std", func(t *testing.T) {
		// Values {1, 3}: mean 2, population variance 1, std 1.
		// Sample variance would be 2.
		records := []MetricRecord{{"m": 1.0}, {"m": 3.0}}
		agg := Aggregate(records)["m"]
		if !almostEqual(agg.Std, 1.0) {
			t.Errorf("expected population std 1.0, got %f", agg.Std)
		}
	})

	t.Run("median interpolates even counts", func(t *testing.T) {
		records := []MetricRecord{{"m": 0.1}, {"m": 0.2}, {"m": 0.6}, {"m": 0.9}}
		agg := Aggregate(records)["m"]
		if !almostEqual(agg.Median, 0.4) {
			t.Errorf("expected median 0.4, got %f", agg.Median)
		}
	})

	t.Run("median odd count", func(t *testing.T) {
		records := []MetricRecord{{"m": 0.9}, {"m": 0.1}, {"m": 0.5}}
		agg := Aggregate(records)["m"]
		if !almostEqual(agg.Median, 0.5) {
			t.Errorf("expected median 0.5, got %f", agg.Median)
		}
	})

	t.Run("missing metrics aggregated over present records only", func(t *testing.T) {
		records := []MetricRecord{
			{"always": 1.0, "sometimes": 0.5},
			{"always": 0.0},
			{"always": 1.0, "sometimes": 1.5},
		}
		aggs := Aggregate(records)
		if aggs["always"].Count != 3 {
			t.Errorf("expected count 3, got %d", aggs["always"].Count)
		}
		if aggs["sometimes"].Count != 2 {
			t.Errorf("expected count 2, got %d", aggs["sometimes"].Count)
		}
		if !almostEqual(aggs["sometimes"].Mean, 1.0) {
			t.Errorf("expected mean 1.0, got %f", aggs["sometimes"].Mean)
		}
	})

	t.Run("string values skipped, ints widened", func(t *testing.T) {
		records := []MetricRecord{
			{"label": "positive", "score": 1},
			{"label": "negative", "score": 0},
		}
		aggs := Aggregate(records)
		if _, ok := aggs["label"]; ok {
			t.Error("expected string metric to be skipped")
		}
		if !almostEqual(aggs["score"].Mean, 0.5) {
			t.Errorf("expected int values widened, mean 0.5, got %f", aggs["score"].Mean)
		}
	})

	t.Run("min and max", func(t *testing.T) {
		records := []MetricRecord{{"m": 0.4}, {"m": 0.1}, {"m": 0.8}}
		agg := Aggregate(records)["m"]
		if !almostEqual(agg.Min, 0.1) || !almostEqual(agg.Max, 0.8) {
			t.Errorf("expected min 0.1 max 0.8, got %f / %f", agg.Min, agg.Max)
		}
	})
}

func TestBuildResult(t *testing.T) {
	records := []MetricRecord{{"em": 1.0}, {"em": 0.0}}
	result := BuildResult("qa_run", "qa_v2", records, 250*time.Millisecond, map[string]any{"k": "v"})

	if result.Samples != len(records) {
		t.Errorf("expected samples to equal record count, got %d vs %d", result.Samples, len(records))
	}
	if result.Name != "qa_run" || result.Dataset != "qa_v2" {
		t.Errorf("identity fields not set: %+v", result)
	}
	if result.Timestamp.IsZero() {
		t.Error("expected capture timestamp")
	}
	if !almostEqual(result.Aggregates["em"].Mean, 0.5) {
		t.Errorf("expected aggregates computed, got %v", result.Aggregates)
	}
}

func TestMetricRecord_Float(t *testing.T) {
	rec := MetricRecord{"f": 0.5, "i": 3, "s": "text"}

	if v, ok := rec.Float("f"); !ok || !almostEqual(v, 0.5) {
		t.Errorf("expected 0.5, got %f ok=%v", v, ok)
	}
	if v, ok := rec.Float("i"); !ok || !almostEqual(v, 3.0) {
		t.Errorf("expected widened 3.0, got %f ok=%v", v, ok)
	}
	if _, ok := rec.Float("s"); ok {
		t.Error("expected string value to report ok=false")
	}
	if _, ok := rec.Float("missing"); ok {
		t.Error("expected missing key to report ok=false")
	}
}

func TestResult_MetricValues(t *testing.T) {
	result := BuildResult("r", "d", []MetricRecord{
		{"m": 0.1},
		{"other": 1.0},
		{"m": 0.3},
	}, 0, nil)

	values := result.MetricValues("m")
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	if !almostEqual(values[0], 0.1) || !almostEqual(values[1], 0.3) {
		t.Errorf("unexpected values: %v", values)
	}
}

func TestResult_Validate(t *testing.T) {
	result := BuildResult("r", "d", []MetricRecord{{"m": 1.0}}, 0, nil)
	if err := result.Validate(); err != nil {
		t.Fatalf("built result should validate: %v", err)
	}

	result.Samples = 5
	if err := result.Validate(); !errors.Is(err, ErrSampleCountMismatch) {
		t.Fatalf("expected ErrSampleCountMismatch, got %v", err)
	}
}
