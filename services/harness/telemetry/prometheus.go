// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/Benchtide/services/harness"
)

// PrometheusSink exposes run outcomes as Prometheus collectors:
// a run counter, a duration histogram, and a gauge per metric mean.
//
// Thread Safety: Safe for concurrent use.
type PrometheusSink struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	metricMean  *prometheus.GaugeVec
	samples     *prometheus.GaugeVec
}

// NewPrometheusSink creates a sink registered on the given registry.
// A nil registry selects the default one.
func NewPrometheusSink(registry *prometheus.Registry) *PrometheusSink {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	if registry != nil {
		registerer = registry
	}

	sink := &PrometheusSink{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchtide_runs_total",
			Help: "Completed evaluation runs.",
		}, []string{"evaluation", "dataset"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "benchtide_run_duration_seconds",
			Help:    "Wall-clock duration of evaluation runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"evaluation"}),
		metricMean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "benchtide_metric_mean",
			Help: "Latest aggregated mean per evaluation metric.",
		}, []string{"evaluation", "dataset", "metric"}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "benchtide_run_samples",
			Help: "Sample count of the latest run per evaluation.",
		}, []string{"evaluation"}),
	}

	registerer.MustRegister(sink.runsTotal, sink.runDuration, sink.metricMean, sink.samples)
	return sink
}

// RecordRun updates the collectors from one result.
func (s *PrometheusSink) RecordRun(_ context.Context, result *harness.Result) error {
	s.runsTotal.WithLabelValues(result.Name, result.Dataset).Inc()
	s.runDuration.WithLabelValues(result.Name).Observe(result.Duration.Seconds())
	s.samples.WithLabelValues(result.Name).Set(float64(result.Samples))
	for metric, agg := range result.Aggregates {
		s.metricMean.WithLabelValues(result.Name, result.Dataset, metric).Set(agg.Mean)
	}
	return nil
}

// Close is a no-op; collectors stay registered for scraping.
func (s *PrometheusSink) Close() error { return nil }

var _ Sink = (*PrometheusSink)(nil)
