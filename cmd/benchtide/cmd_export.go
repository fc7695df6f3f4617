// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Benchtide/pkg/ux"
)

func runExportResult(cmd *cobra.Command, args []string) {
	name := args[0]

	outputFile := exportOutput
	if outputFile == "" {
		outputFile = fmt.Sprintf("%s.%s", name, exportFormat)
	}

	if exportFromInflux {
		exportFromInfluxDB(name, outputFile)
		return
	}

	st, err := openStore()
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to open result store: %v", err))
		return
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("Failed to close result store", "error", closeErr)
		}
	}()

	result, err := st.Get(context.Background(), name)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to load %q: %v", name, err))
		return
	}

	if err := exportResultToFile(result, outputFile, exportFormat); err != nil {
		ux.Error(fmt.Sprintf("Export failed: %v", err))
		return
	}
	ux.Success(fmt.Sprintf("Exported %q to %s", name, outputFile))
}

// exportFromInfluxDB pulls the run's aggregated points back out of the
// Influx sink and writes them as CSV, one row per metric.
func exportFromInfluxDB(name, outputFile string) {
	if config.Influx.URL == "" {
		ux.Error("No influx.url configured; cannot export from InfluxDB.")
		return
	}
	token := config.Influx.Token
	if token == "" {
		token = os.Getenv("INFLUXDB_TOKEN")
	}
	if token == "" {
		ux.Error("INFLUXDB_TOKEN not set and no influx.token configured.")
		return
	}

	client := influxdb2.NewClient(config.Influx.URL, token)
	defer client.Close()
	queryAPI := client.QueryAPI(config.Influx.Org)

	query := fmt.Sprintf(`
		from(bucket: "%s")
		  |> range(start: -1y)
		  |> filter(fn: (r) => r["_measurement"] == "evaluation_runs")
		  |> filter(fn: (r) => r["evaluation"] == "%s")
		  |> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
		  |> sort(columns: ["_time"])
	`, config.Influx.Bucket, name)

	result, err := queryAPI.Query(context.Background(), query)
	if err != nil {
		ux.Error(fmt.Sprintf("InfluxDB query failed: %v", err))
		return
	}

	f, err := os.Create(outputFile)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to create output file: %v", err))
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close output file", "error", closeErr)
		}
	}()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	header := []string{"Time", "Evaluation", "Dataset", "Metric", "Mean", "Std", "Min", "Max", "Median", "Count"}
	if err := writer.Write(header); err != nil {
		ux.Error(fmt.Sprintf("Failed to write CSV header: %v", err))
		return
	}

	count := 0
	for result.Next() {
		r := result.Record()

		getFloat := func(k string) string {
			if v, ok := r.ValueByKey(k).(float64); ok {
				return fmt.Sprintf("%.6f", v)
			}
			return "0.000000"
		}
		getString := func(k string) string {
			if v, ok := r.ValueByKey(k).(string); ok {
				return v
			}
			return ""
		}
		getInt := func(k string) string {
			if v, ok := r.ValueByKey(k).(int64); ok {
				return fmt.Sprintf("%d", v)
			}
			return "0"
		}

		row := []string{
			r.Time().Format(time.RFC3339),
			getString("evaluation"),
			getString("dataset"),
			getString("metric"),
			getFloat("mean"),
			getFloat("std"),
			getFloat("min"),
			getFloat("max"),
			getFloat("median"),
			getInt("count"),
		}
		if err := writer.Write(row); err != nil {
			ux.Error(fmt.Sprintf("Failed to write CSV row: %v", err))
			return
		}
		count++
	}
	if result.Err() != nil {
		ux.Error(fmt.Sprintf("Error reading query results: %v", result.Err()))
		return
	}

	ux.Success(fmt.Sprintf("Export complete: %d rows written to %s", count, outputFile))
}
