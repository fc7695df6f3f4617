// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harness is the core of the Benchtide model-output evaluation
// harness: it pairs predictions with ground truth, drives per-sample
// evaluation, and folds the per-sample metric records into an
// immutable Result.
//
// The harness never invokes a model directly. Anything that needs a
// generation or embedding backend (LLM-as-judge scorers, semantic
// similarity) receives it as an injected collaborator, which keeps
// this package pure and testable.
package harness

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrLengthMismatch is returned when predictions and ground truth
	// have different lengths. Pairing is strictly positional; there is
	// no partial pairing.
	ErrLengthMismatch = errors.New("predictions and ground truth length mismatch")

	// ErrNoGroundTruth is returned when neither explicit ground truth
	// nor a dataset loader is available.
	ErrNoGroundTruth = errors.New("no ground truth source resolvable")

	// ErrEvaluationTimeout is returned when the batch deadline is
	// exceeded. No partial Result is produced.
	ErrEvaluationTimeout = errors.New("evaluation batch deadline exceeded")

	// ErrInsufficientData is returned by statistical operations that
	// need at least two groups or values.
	ErrInsufficientData = errors.New("insufficient data for statistical analysis")

	// ErrUnsupportedFormat is returned by export encoders for unknown
	// output formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrNotFound is returned when a spec or loader is not registered.
	ErrNotFound = errors.New("component not found")

	// ErrAlreadyRegistered is returned when registering a duplicate name.
	ErrAlreadyRegistered = errors.New("component already registered")

	// ErrNilSpec is returned when attempting to register or run nil.
	ErrNilSpec = errors.New("spec must not be nil")

	// ErrSampleCountMismatch is returned when a Result is built with a
	// sample count that does not equal its record count.
	ErrSampleCountMismatch = errors.New("sample count does not match record count")
)

// -----------------------------------------------------------------------------
// Metric Records
// -----------------------------------------------------------------------------

// MetricRecord maps metric names to values for exactly one sample.
// Values are float64 for numeric metrics or string for categorical
// ones. Records are produced once during a run and never mutated.
type MetricRecord map[string]any

// Clone returns a shallow copy of the record.
func (r MetricRecord) Clone() MetricRecord {
	if r == nil {
		return nil
	}
	out := make(MetricRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Float returns the named metric as a float64. Integer values are
// widened; missing or non-numeric values report ok=false.
func (r MetricRecord) Float(name string) (float64, bool) {
	v, ok := r[name]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// toFloat widens the numeric types a record may legitimately carry.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// AggregatedMetric summarizes one metric across all samples of a
// Result.
//
// Std uses population variance (divide by n). The standard-error
// helper in the metrics package uses sample variance (n-1); callers
// must not conflate the two conventions.
type AggregatedMetric struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Count  int     `json:"count"`
}

// -----------------------------------------------------------------------------
// Result
// -----------------------------------------------------------------------------

// Result captures one completed evaluation run. Immutable once
// constructed; Samples always equals len(Records).
//
// Records carries the raw per-sample metric values so the comparison
// engine can run real statistical tests instead of reconstructing
// synthetic samples from aggregates.
type Result struct {
	// Name identifies the evaluation (typically the spec name plus a
	// model or variant label).
	Name string `json:"name"`

	// Dataset is the ground-truth dataset identifier.
	Dataset string `json:"dataset"`

	// Records holds the per-sample metric records in pairing order.
	Records []MetricRecord `json:"records"`

	// Aggregates maps each metric name to its summary statistics.
	Aggregates map[string]AggregatedMetric `json:"aggregates"`

	// Samples is the number of evaluated pairs.
	Samples int `json:"samples"`

	// Duration is wall-clock time from pairing start to aggregation.
	Duration time.Duration `json:"duration"`

	// Timestamp is when the Result was built.
	Timestamp time.Time `json:"timestamp"`

	// Metadata carries free-form run context: declared metric names,
	// effective options, model identifiers.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the Result's internal consistency. Results built
// through BuildResult always pass; deserialized ones may not.
//
// Outputs:
//   - error: ErrSampleCountMismatch when Samples != len(Records).
func (r *Result) Validate() error {
	if r.Samples != len(r.Records) {
		return fmt.Errorf("%w: %d samples vs %d records", ErrSampleCountMismatch, r.Samples, len(r.Records))
	}
	return nil
}

// MetricValues extracts the raw numeric values of one metric across
// the Result's records, skipping records that lack the metric.
func (r *Result) MetricValues(name string) []float64 {
	values := make([]float64, 0, len(r.Records))
	for _, rec := range r.Records {
		if v, ok := rec.Float(name); ok {
			values = append(values, v)
		}
	}
	return values
}

// MetricMean returns the aggregated mean for a metric, with ok=false
// when the Result does not carry the metric.
func (r *Result) MetricMean(name string) (float64, bool) {
	agg, ok := r.Aggregates[name]
	if !ok {
		return 0, false
	}
	return agg.Mean, true
}

// -----------------------------------------------------------------------------
// Evaluation Spec
// -----------------------------------------------------------------------------

// Spec describes one evaluation: its identity, declared metrics, and
// the per-sample scoring function.
//
// Thread Safety: Evaluate may be called concurrently by the runner;
// implementations must be safe for concurrent use and side-effect
// free. Outstanding calls are cancelled through ctx when the batch
// deadline expires.
type Spec interface {
	// Name returns a stable identifier suitable for metric labels
	// (lowercase, underscore-separated).
	Name() string

	// Dataset returns the ground-truth dataset identifier, used to
	// resolve a loader when no explicit ground truth is supplied.
	Dataset() string

	// Metrics returns the declared metric names for bookkeeping. The
	// runner records them in Result metadata; records may carry more.
	Metrics() []string

	// Evaluate scores one (prediction, ground truth) pair.
	Evaluate(ctx context.Context, prediction, truth any) (MetricRecord, error)
}

// Preprocessor is an optional Spec hook applied to each prediction
// before Evaluate. The default is identity.
type Preprocessor interface {
	Preprocess(prediction any) (any, error)
}

// Postprocessor is an optional Spec hook applied to each record after
// Evaluate. The default is identity.
type Postprocessor interface {
	Postprocess(record MetricRecord) (MetricRecord, error)
}

// DatasetLoader resolves ground truth for a dataset identifier. The
// caller injects an implementation (file, GCS, vector store); the
// harness never probes for one at runtime.
type DatasetLoader interface {
	Load(ctx context.Context, dataset string) ([]any, error)
}

// DatasetLoaderFunc adapts a function to the DatasetLoader interface.
type DatasetLoaderFunc func(ctx context.Context, dataset string) ([]any, error)

// Load calls the wrapped function.
func (f DatasetLoaderFunc) Load(ctx context.Context, dataset string) ([]any, error) {
	return f(ctx, dataset)
}

// -----------------------------------------------------------------------------
// SimpleSpec
// -----------------------------------------------------------------------------

// SimpleSpec builds a Spec from plain fields and functions, for tests
// and quick registrations.
//
// Example:
//
//	spec := &harness.SimpleSpec{
//	    SpecName:    "qa_exact",
//	    SpecDataset: "qa_v2",
//	    MetricNames: []string{"exact_match", "f1"},
//	    EvaluateFunc: func(ctx context.Context, p, t any) (harness.MetricRecord, error) {
//	        return harness.MetricRecord{
//	            "exact_match": metrics.ExactMatch(p, t),
//	            "f1":          metrics.F1(p, t),
//	        }, nil
//	    },
//	}
type SimpleSpec struct {
	SpecName        string
	SpecDataset     string
	MetricNames     []string
	EvaluateFunc    func(ctx context.Context, prediction, truth any) (MetricRecord, error)
	PreprocessFunc  func(prediction any) (any, error)
	PostprocessFunc func(record MetricRecord) (MetricRecord, error)
}

// Name returns the spec name.
func (s *SimpleSpec) Name() string { return s.SpecName }

// Dataset returns the dataset identifier.
func (s *SimpleSpec) Dataset() string { return s.SpecDataset }

// Metrics returns the declared metric names.
func (s *SimpleSpec) Metrics() []string { return s.MetricNames }

// Evaluate scores one pair via EvaluateFunc.
func (s *SimpleSpec) Evaluate(ctx context.Context, prediction, truth any) (MetricRecord, error) {
	if s.EvaluateFunc == nil {
		return MetricRecord{}, nil
	}
	return s.EvaluateFunc(ctx, prediction, truth)
}

// Preprocess applies PreprocessFunc when set, identity otherwise.
func (s *SimpleSpec) Preprocess(prediction any) (any, error) {
	if s.PreprocessFunc == nil {
		return prediction, nil
	}
	return s.PreprocessFunc(prediction)
}

// Postprocess applies PostprocessFunc when set, identity otherwise.
func (s *SimpleSpec) Postprocess(record MetricRecord) (MetricRecord, error) {
	if s.PostprocessFunc == nil {
		return record, nil
	}
	return s.PostprocessFunc(record)
}

var (
	_ Spec          = (*SimpleSpec)(nil)
	_ Preprocessor  = (*SimpleSpec)(nil)
	_ Postprocessor = (*SimpleSpec)(nil)
)
