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
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "harness.runner"

// DefaultTimeout is the batch deadline applied when none is given.
const DefaultTimeout = 5000 * time.Millisecond

// -----------------------------------------------------------------------------
// Run Options
// -----------------------------------------------------------------------------

// RunConfig holds the effective options for one run.
type RunConfig struct {
	// Name overrides the produced Result's name. Empty keeps the spec
	// name.
	Name string

	// GroundTruth, when non-nil, overrides the dataset loader.
	GroundTruth []any

	// Parallel selects concurrent per-sample evaluation. Default true.
	Parallel bool

	// Timeout is the shared deadline for the whole batch.
	Timeout time.Duration

	// Workers bounds the worker pool in parallel mode. Zero selects
	// min(samples, 4·GOMAXPROCS).
	Workers int
}

// DefaultRunConfig returns the documented defaults.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Parallel: true,
		Timeout:  DefaultTimeout,
	}
}

// RunOption configures a run. Options are applied in order, so later
// options override earlier ones.
type RunOption func(*RunConfig)

// WithName labels the produced Result, e.g. with a model or variant
// suffix. Empty values are ignored.
func WithName(name string) RunOption {
	return func(c *RunConfig) {
		if name != "" {
			c.Name = name
		}
	}
}

// WithGroundTruth supplies explicit ground truth, bypassing any
// dataset loader.
func WithGroundTruth(truth []any) RunOption {
	return func(c *RunConfig) {
		c.GroundTruth = truth
	}
}

// WithParallel enables or disables concurrent evaluation.
func WithParallel(parallel bool) RunOption {
	return func(c *RunConfig) {
		c.Parallel = parallel
	}
}

// WithTimeout sets the batch deadline. Non-positive values are
// ignored.
func WithTimeout(d time.Duration) RunOption {
	return func(c *RunConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// WithWorkers bounds the parallel worker pool. Non-positive values
// are ignored.
func WithWorkers(n int) RunOption {
	return func(c *RunConfig) {
		if n > 0 {
			c.Workers = n
		}
	}
}

// -----------------------------------------------------------------------------
// Runner
// -----------------------------------------------------------------------------

// Runner pairs predictions with ground truth and drives per-sample
// evaluation into a Result.
//
// State machine per run: Pairing → Evaluating → Aggregated, with
// failures possible in the first two phases. Failures abort the run
// wholesale; a partial Result is never produced.
//
// Thread Safety: Safe for concurrent use; each Run is independent.
type Runner struct {
	loader DatasetLoader
	logger *slog.Logger
}

// NewRunner creates a runner. The loader resolves ground truth for
// specs run without explicit ground truth; nil is allowed, in which
// case every run must supply WithGroundTruth.
func NewRunner(loader DatasetLoader) *Runner {
	return &Runner{
		loader: loader,
		logger: slog.Default(),
	}
}

// SetLogger replaces the runner's logger. Nil values are ignored.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Run executes one evaluation.
//
// Description:
//
//	Ground truth is resolved from options or the dataset loader, then
//	paired with predictions strictly by position. Each pair flows
//	through Preprocess → Evaluate → Postprocess (identity defaults),
//	sequentially or through a bounded worker pool sharing one batch
//	deadline. Records are collected by pair index so the final order
//	always matches input order regardless of completion order.
//
// Inputs:
//   - ctx: Context for cancellation. Must not be nil.
//   - spec: The evaluation spec. Must not be nil.
//   - predictions: Model outputs to score.
//   - opts: Optional configuration.
//
// Outputs:
//   - *Result: The aggregated result. Nil on any failure.
//   - error: ErrNoGroundTruth, ErrLengthMismatch, ErrEvaluationTimeout,
//     or the first per-sample hook error (fail-fast).
//
// Limitations:
//   - Hooks must be side-effect free: units still in flight when the
//     deadline expires are cancelled through their context but their
//     work is discarded either way.
func (r *Runner) Run(ctx context.Context, spec Spec, predictions []any, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}
	if spec == nil {
		return nil, ErrNilSpec
	}

	config := DefaultRunConfig()
	for _, opt := range opts {
		opt(config)
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "harness.Runner.Run",
		trace.WithAttributes(
			attribute.String("eval.spec", spec.Name()),
			attribute.String("eval.dataset", spec.Dataset()),
			attribute.Int("eval.predictions", len(predictions)),
			attribute.Bool("eval.parallel", config.Parallel),
		),
	)
	defer span.End()

	started := time.Now()

	// Pairing phase.
	truth, err := r.resolveGroundTruth(ctx, spec, config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pairing failed")
		return nil, err
	}
	if len(predictions) != len(truth) {
		err := fmt.Errorf("%w: %d predictions vs %d ground truth entries",
			ErrLengthMismatch, len(predictions), len(truth))
		span.RecordError(err)
		span.SetStatus(codes.Error, "pairing failed")
		return nil, err
	}

	// Evaluating phase.
	var records []MetricRecord
	if config.Parallel {
		records, err = r.evaluateParallel(ctx, spec, predictions, truth, config)
	} else {
		records, err = r.evaluateSequential(ctx, spec, predictions, truth, config)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
		recordRunMetrics(ctx, spec, time.Since(started), 0, false)
		return nil, err
	}

	// Aggregated phase.
	metadata := map[string]any{
		"metrics": spec.Metrics(),
		"options": map[string]any{
			"parallel":   config.Parallel,
			"timeout_ms": config.Timeout.Milliseconds(),
			"workers":    workerCount(config, len(predictions)),
		},
	}
	name := spec.Name()
	if config.Name != "" {
		name = config.Name
	}
	result := BuildResult(name, spec.Dataset(), records, time.Since(started), metadata)

	span.SetAttributes(
		attribute.Int("eval.result.samples", result.Samples),
		attribute.Int64("eval.result.duration_ms", result.Duration.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "evaluation completed")
	recordRunMetrics(ctx, spec, result.Duration, result.Samples, true)

	r.logger.Info("evaluation completed",
		slog.String("spec", spec.Name()),
		slog.String("dataset", spec.Dataset()),
		slog.Int("samples", result.Samples),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// resolveGroundTruth prefers explicit options over the loader.
func (r *Runner) resolveGroundTruth(ctx context.Context, spec Spec, config *RunConfig) ([]any, error) {
	if config.GroundTruth != nil {
		return config.GroundTruth, nil
	}
	if r.loader == nil {
		return nil, fmt.Errorf("%w: no explicit ground truth and no dataset loader", ErrNoGroundTruth)
	}
	truth, err := r.loader.Load(ctx, spec.Dataset())
	if err != nil {
		return nil, fmt.Errorf("%w: loading dataset %q: %v", ErrNoGroundTruth, spec.Dataset(), err)
	}
	return truth, nil
}

// evaluateSequential scores pairs one at a time, in input order.
func (r *Runner) evaluateSequential(ctx context.Context, spec Spec, predictions, truth []any, config *RunConfig) ([]MetricRecord, error) {
	runCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	records := make([]MetricRecord, len(predictions))
	for i := range predictions {
		if err := runCtx.Err(); err != nil {
			return nil, r.timeoutErr(runCtx, err)
		}
		record, err := evaluateOne(runCtx, spec, predictions[i], truth[i])
		if err != nil {
			return nil, fmt.Errorf("evaluating sample %d: %w", i, err)
		}
		records[i] = record
	}
	return records, nil
}

// evaluateParallel fans samples out over a bounded worker pool joined
// under the shared batch deadline. Each unit writes its record by
// pair index.
func (r *Runner) evaluateParallel(ctx context.Context, spec Spec, predictions, truth []any, config *RunConfig) ([]MetricRecord, error) {
	runCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workerCount(config, len(predictions)))

	records := make([]MetricRecord, len(predictions))
	for i := range predictions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record, err := evaluateOne(gctx, spec, predictions[i], truth[i])
			if err != nil {
				return fmt.Errorf("evaluating sample %d: %w", i, err)
			}
			records[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, r.timeoutErr(runCtx, err)
	}
	return records, nil
}

// timeoutErr maps a deadline expiry on the batch context to the
// harness sentinel; other errors pass through.
func (r *Runner) timeoutErr(runCtx context.Context, err error) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrEvaluationTimeout, err)
	}
	return err
}

// evaluateOne applies the hook pipeline to a single pair.
func evaluateOne(ctx context.Context, spec Spec, prediction, truth any) (MetricRecord, error) {
	if pre, ok := spec.(Preprocessor); ok {
		processed, err := pre.Preprocess(prediction)
		if err != nil {
			return nil, fmt.Errorf("preprocess: %w", err)
		}
		prediction = processed
	}

	record, err := spec.Evaluate(ctx, prediction, truth)
	if err != nil {
		return nil, err
	}

	if post, ok := spec.(Postprocessor); ok {
		record, err = post.Postprocess(record)
		if err != nil {
			return nil, fmt.Errorf("postprocess: %w", err)
		}
	}
	return record, nil
}

// workerCount resolves the effective pool size.
func workerCount(config *RunConfig, samples int) int {
	workers := config.Workers
	if workers <= 0 {
		workers = 4 * runtime.GOMAXPROCS(0)
	}
	if samples > 0 && workers > samples {
		workers = samples
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
