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
	"fmt"
	"os"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/AleutianAI/Benchtide/services/harness"
)

// evaluationMeasurement is the InfluxDB measurement for run points.
const evaluationMeasurement = "evaluation_runs"

// InfluxSink writes one point per (run, metric) to InfluxDB so run
// history can be charted over time.
//
// Thread Safety: Safe for concurrent use; the blocking write API is.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

// NewInfluxSink creates a sink from explicit settings. Empty values
// fall back to the INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, and
// INFLUXDB_BUCKET environment variables, then to dev defaults.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	if url == "" {
		url = getEnvOr("INFLUXDB_URL", "http://localhost:8086")
	}
	if token == "" {
		token = os.Getenv("INFLUXDB_TOKEN")
	}
	if org == "" {
		org = getEnvOr("INFLUXDB_ORG", "benchtide")
	}
	if bucket == "" {
		bucket = getEnvOr("INFLUXDB_BUCKET", "evaluations")
	}

	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		bucket:   bucket,
		org:      org,
	}
}

// RecordRun writes one point per aggregated metric, tagged by
// evaluation and dataset.
func (s *InfluxSink) RecordRun(ctx context.Context, result *harness.Result) error {
	for metric, agg := range result.Aggregates {
		p := influxdb2.NewPointWithMeasurement(evaluationMeasurement).
			AddTag("evaluation", result.Name).
			AddTag("dataset", result.Dataset).
			AddTag("metric", metric).
			AddField("mean", agg.Mean).
			AddField("std", agg.Std).
			AddField("min", agg.Min).
			AddField("max", agg.Max).
			AddField("median", agg.Median).
			AddField("count", agg.Count).
			AddField("samples", result.Samples).
			AddField("duration_ms", result.Duration.Milliseconds()).
			SetTime(result.Timestamp)

		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return fmt.Errorf("writing point for %s/%s: %w", result.Name, metric, err)
		}
	}
	return nil
}

// Close shuts the underlying client down.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

var _ Sink = (*InfluxSink)(nil)
