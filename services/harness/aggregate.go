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
	"math"
	"sort"
	"time"
)

// Aggregate folds per-sample metric records into summary statistics.
//
// Description:
//
//	For every metric key appearing in any record, the numeric values
//	are collected across all records that contain it and summarized
//	as mean, population std (divide by n), min, max, median (linear
//	interpolation of the two middle values for even counts), and
//	count. String-valued metrics are skipped.
//
// Inputs:
//   - records: Per-sample metric records. May be empty.
//
// Outputs:
//   - map[string]AggregatedMetric: One entry per numeric metric.
//     Empty input yields an empty map, not nil and not an error.
func Aggregate(records []MetricRecord) map[string]AggregatedMetric {
	valuesByMetric := make(map[string][]float64)
	for _, rec := range records {
		for name, v := range rec {
			if f, ok := toFloat(v); ok {
				valuesByMetric[name] = append(valuesByMetric[name], f)
			}
		}
	}

	aggregates := make(map[string]AggregatedMetric, len(valuesByMetric))
	for name, values := range valuesByMetric {
		aggregates[name] = summarize(values)
	}
	return aggregates
}

// summarize computes the summary statistics for one metric's values.
func summarize(values []float64) AggregatedMetric {
	n := len(values)
	if n == 0 {
		return AggregatedMetric{}
	}

	minV := values[0]
	maxV := values[0]
	var sum float64
	for _, v := range values {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := sum / float64(n)

	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	// Population variance by convention; see AggregatedMetric.
	std := math.Sqrt(sumSq / float64(n))

	return AggregatedMetric{
		Mean:   mean,
		Std:    std,
		Min:    minV,
		Max:    maxV,
		Median: median(values),
		Count:  n,
	}
}

// median returns the median with linear interpolation for even
// counts. The input is not modified.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// BuildResult wraps aggregated records with identity fields and a
// capture timestamp.
//
// Inputs:
//   - name: Evaluation name.
//   - dataset: Dataset identifier.
//   - records: Completed per-sample records in pairing order.
//   - duration: Wall-clock elapsed since pairing began.
//   - metadata: Free-form run context. May be nil.
//
// Outputs:
//   - *Result: The immutable result. Samples equals len(records).
func BuildResult(name, dataset string, records []MetricRecord, duration time.Duration, metadata map[string]any) *Result {
	return &Result{
		Name:       name,
		Dataset:    dataset,
		Records:    records,
		Aggregates: Aggregate(records),
		Samples:    len(records),
		Duration:   duration,
		Timestamp:  time.Now().UTC(),
		Metadata:   metadata,
	}
}
