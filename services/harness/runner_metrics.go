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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for evaluation run instrumentation.
var meter = otel.Meter("benchtide.harness")

// Metrics for evaluation runs.
var (
	runLatency metric.Float64Histogram
	runTotal   metric.Int64Counter
	runSamples metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"harness_run_duration_seconds",
			metric.WithDescription("Duration of evaluation runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"harness_run_total",
			metric.WithDescription("Total number of evaluation runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runSamples, err = meter.Int64Histogram(
			"harness_run_samples",
			metric.WithDescription("Number of samples evaluated per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordRunMetrics records metrics for one evaluation run.
func recordRunMetrics(ctx context.Context, spec Spec, duration time.Duration, samples int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("spec", spec.Name()),
		attribute.Bool("success", success),
	)

	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
	if success {
		runSamples.Record(ctx, int64(samples), attrs)
	}
}
