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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing scenario: %v", err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	t.Run("full scenario", func(t *testing.T) {
		path := writeScenario(t, `
evaluation:
  spec: qa_exact
  name: qa_exact_gpt4o
run:
  parallel: false
  timeout_ms: 2500
  workers: 2
predictions:
  - "paris"
  - "london"
ground_truth:
  - "Paris"
  - "Berlin"
`)
		scenario, err := LoadScenario(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if scenario.Evaluation.Spec != "qa_exact" {
			t.Errorf("unexpected spec: %q", scenario.Evaluation.Spec)
		}
		if scenario.Run.Parallel == nil || *scenario.Run.Parallel {
			t.Error("expected parallel=false")
		}
		if len(scenario.Predictions) != 2 || len(scenario.GroundTruth) != 2 {
			t.Errorf("unexpected payload sizes: %d/%d",
				len(scenario.Predictions), len(scenario.GroundTruth))
		}
	})

	t.Run("missing spec fails validation", func(t *testing.T) {
		path := writeScenario(t, `
evaluation:
  name: unnamed
`)
		if _, err := LoadScenario(path); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeScenario(t, "evaluation: [unclosed")
		if _, err := LoadScenario(path); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestScenarioRunOptions(t *testing.T) {
	parallel := false
	scenario := &Scenario{
		Evaluation:  ScenarioEvaluation{Spec: "qa_exact", Name: "labelled"},
		Run:         ScenarioRun{Parallel: &parallel, TimeoutMS: 1200, Workers: 3},
		GroundTruth: []any{"a"},
	}

	config := DefaultRunConfig()
	for _, opt := range scenario.RunOptions() {
		opt(config)
	}

	if config.Name != "labelled" {
		t.Errorf("expected name labelled, got %q", config.Name)
	}
	if config.Parallel {
		t.Error("expected parallel disabled")
	}
	if config.Timeout != 1200*time.Millisecond {
		t.Errorf("unexpected timeout: %s", config.Timeout)
	}
	if config.Workers != 3 {
		t.Errorf("unexpected workers: %d", config.Workers)
	}
	if len(config.GroundTruth) != 1 {
		t.Errorf("expected ground truth carried over, got %v", config.GroundTruth)
	}
}

func TestScenarioResultName(t *testing.T) {
	pinned := &Scenario{Evaluation: ScenarioEvaluation{Spec: "qa_exact", Name: "fixed"}}
	if got := pinned.ResultName(); got != "fixed" {
		t.Errorf("expected fixed, got %q", got)
	}

	unpinned := &Scenario{Evaluation: ScenarioEvaluation{Spec: "qa_exact"}}
	first := unpinned.ResultName()
	if !strings.HasPrefix(first, "qa_exact_") {
		t.Errorf("expected qa_exact_ prefix, got %q", first)
	}
	if second := unpinned.ResultName(); second == first {
		t.Error("expected a fresh suffix per call")
	}
}
