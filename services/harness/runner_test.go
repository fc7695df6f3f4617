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
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// echoSpec scores each pair with its index-independent equality so
// tests can check positional pairing.
func echoSpec() *SimpleSpec {
	return &SimpleSpec{
		SpecName:    "echo",
		SpecDataset: "echo_ds",
		MetricNames: []string{"match"},
		EvaluateFunc: func(_ context.Context, prediction, truth any) (MetricRecord, error) {
			score := 0.0
			if prediction == truth {
				score = 1.0
			}
			return MetricRecord{"match": score, "pair": fmt.Sprintf("%v|%v", prediction, truth)}, nil
		},
	}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit ground truth, sequential", func(t *testing.T) {
		runner := NewRunner(nil)
		result, err := runner.Run(ctx, echoSpec(),
			[]any{"a", "b", "c"},
			WithGroundTruth([]any{"a", "x", "c"}),
			WithParallel(false),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Samples != 3 {
			t.Fatalf("expected 3 samples, got %d", result.Samples)
		}
		if !almostEqual(result.Aggregates["match"].Mean, 2.0/3.0) {
			t.Errorf("expected mean 2/3, got %f", result.Aggregates["match"].Mean)
		}
	})

	t.Run("parallel preserves input order", func(t *testing.T) {
		n := 64
		predictions := make([]any, n)
		truth := make([]any, n)
		for i := range predictions {
			predictions[i] = fmt.Sprintf("p%d", i)
			truth[i] = fmt.Sprintf("t%d", i)
		}

		runner := NewRunner(nil)
		result, err := runner.Run(ctx, echoSpec(), predictions,
			WithGroundTruth(truth), WithWorkers(8))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, rec := range result.Records {
			want := fmt.Sprintf("p%d|t%d", i, i)
			if rec["pair"] != want {
				t.Fatalf("record %d out of order: got %v want %s", i, rec["pair"], want)
			}
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		runner := NewRunner(nil)
		result, err := runner.Run(ctx, echoSpec(),
			[]any{"a", "b"}, WithGroundTruth([]any{"a"}))
		if !errors.Is(err, ErrLengthMismatch) {
			t.Fatalf("expected ErrLengthMismatch, got %v", err)
		}
		if result != nil {
			t.Error("expected nil result on pairing failure")
		}
	})

	t.Run("no ground truth source", func(t *testing.T) {
		runner := NewRunner(nil)
		_, err := runner.Run(ctx, echoSpec(), []any{"a"})
		if !errors.Is(err, ErrNoGroundTruth) {
			t.Fatalf("expected ErrNoGroundTruth, got %v", err)
		}
	})

	t.Run("loader resolves ground truth", func(t *testing.T) {
		loader := DatasetLoaderFunc(func(_ context.Context, dataset string) ([]any, error) {
			if dataset != "echo_ds" {
				return nil, fmt.Errorf("unexpected dataset %s", dataset)
			}
			return []any{"a", "b"}, nil
		})
		runner := NewRunner(loader)
		result, err := runner.Run(ctx, echoSpec(), []any{"a", "z"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(result.Aggregates["match"].Mean, 0.5) {
			t.Errorf("expected mean 0.5, got %f", result.Aggregates["match"].Mean)
		}
	})

	t.Run("loader failure maps to ErrNoGroundTruth", func(t *testing.T) {
		loader := DatasetLoaderFunc(func(context.Context, string) ([]any, error) {
			return nil, errors.New("backend unavailable")
		})
		runner := NewRunner(loader)
		_, err := runner.Run(ctx, echoSpec(), []any{"a"})
		if !errors.Is(err, ErrNoGroundTruth) {
			t.Fatalf("expected ErrNoGroundTruth, got %v", err)
		}
	})

	t.Run("empty predictions yield empty result", func(t *testing.T) {
		runner := NewRunner(nil)
		result, err := runner.Run(ctx, echoSpec(), []any{}, WithGroundTruth([]any{}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Samples != 0 || len(result.Aggregates) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("timeout maps to ErrEvaluationTimeout with no partial result", func(t *testing.T) {
		slow := &SimpleSpec{
			SpecName: "slow",
			EvaluateFunc: func(ctx context.Context, _, _ any) (MetricRecord, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(5 * time.Second):
					return MetricRecord{"m": 1.0}, nil
				}
			},
		}
		runner := NewRunner(nil)
		result, err := runner.Run(ctx, slow,
			[]any{"a", "b", "c"},
			WithGroundTruth([]any{"a", "b", "c"}),
			WithTimeout(50*time.Millisecond),
		)
		if !errors.Is(err, ErrEvaluationTimeout) {
			t.Fatalf("expected ErrEvaluationTimeout, got %v", err)
		}
		if result != nil {
			t.Error("expected no partial result on timeout")
		}
	})

	t.Run("fail fast on sample error", func(t *testing.T) {
		boom := errors.New("scoring failed")
		spec := &SimpleSpec{
			SpecName: "flaky",
			EvaluateFunc: func(_ context.Context, prediction, _ any) (MetricRecord, error) {
				if prediction == "bad" {
					return nil, boom
				}
				return MetricRecord{"m": 1.0}, nil
			},
		}
		runner := NewRunner(nil)
		result, err := runner.Run(ctx, spec,
			[]any{"ok", "bad", "ok"},
			WithGroundTruth([]any{"ok", "bad", "ok"}),
			WithParallel(false),
		)
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped sample error, got %v", err)
		}
		if result != nil {
			t.Error("expected nil result on sample failure")
		}
	})

	t.Run("pre and post hooks applied", func(t *testing.T) {
		spec := echoSpec()
		spec.PreprocessFunc = func(prediction any) (any, error) {
			if s, ok := prediction.(string); ok {
				return s + "!", nil
			}
			return prediction, nil
		}
		spec.PostprocessFunc = func(record MetricRecord) (MetricRecord, error) {
			record["post"] = true
			return record, nil
		}

		runner := NewRunner(nil)
		result, err := runner.Run(ctx, spec,
			[]any{"a"}, WithGroundTruth([]any{"a!"}), WithParallel(false))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rec := result.Records[0]
		if !almostEqual(rec["match"].(float64), 1.0) {
			t.Error("expected preprocessed prediction to match")
		}
		if rec["post"] != true {
			t.Error("expected postprocess marker on record")
		}
	})

	t.Run("name option overrides spec name", func(t *testing.T) {
		runner := NewRunner(nil)
		result, err := runner.Run(ctx, echoSpec(),
			[]any{"a"}, WithGroundTruth([]any{"a"}), WithName("echo_gpt4o"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Name != "echo_gpt4o" {
			t.Errorf("expected overridden name, got %s", result.Name)
		}
	})

	t.Run("nil spec", func(t *testing.T) {
		runner := NewRunner(nil)
		if _, err := runner.Run(ctx, nil, nil); !errors.Is(err, ErrNilSpec) {
			t.Fatalf("expected ErrNilSpec, got %v", err)
		}
	})
}

func TestWorkerCount(t *testing.T) {
	t.Run("explicit workers clamped to samples", func(t *testing.T) {
		got := workerCount(&RunConfig{Workers: 16}, 4)
		if got != 4 {
			t.Errorf("expected clamp to 4, got %d", got)
		}
	})
	t.Run("explicit workers below samples kept", func(t *testing.T) {
		got := workerCount(&RunConfig{Workers: 2}, 100)
		if got != 2 {
			t.Errorf("expected 2, got %d", got)
		}
	})
	t.Run("never below one", func(t *testing.T) {
		got := workerCount(&RunConfig{}, 0)
		if got < 1 {
			t.Errorf("expected at least one worker, got %d", got)
		}
	})
}
