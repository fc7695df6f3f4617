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
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Benchtide/pkg/ux"
	"github.com/AleutianAI/Benchtide/services/harness"
)

func runScenario(cmd *cobra.Command, args []string) {
	scenario, err := harness.LoadScenario(args[0])
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to load scenario: %v", err))
		return
	}

	registry := newRegistry()
	spec, ok := registry.Get(scenario.Evaluation.Spec)
	if !ok {
		ux.Error(fmt.Sprintf("Unknown spec %q. Run 'benchtide specs' to list them.", scenario.Evaluation.Spec))
		return
	}

	runner := harness.NewRunner(newDatasetLoader())

	name := scenario.ResultName()
	ux.Title(fmt.Sprintf("Starting evaluation run: %s", name))
	ux.Info(fmt.Sprintf("Spec:    %s", scenario.Evaluation.Spec))
	ux.Info(fmt.Sprintf("Dataset: %s", spec.Dataset()))
	ux.Info(fmt.Sprintf("Samples: %d", len(scenario.Predictions)))

	ctx := context.Background()
	result, err := runner.Run(ctx, spec, scenario.Predictions, scenario.RunOptions()...)
	if err != nil {
		ux.Error(fmt.Sprintf("Evaluation failed: %v", err))
		return
	}

	means := make(map[string]float64, len(result.Aggregates))
	for metric, agg := range result.Aggregates {
		means[metric] = agg.Mean
	}
	ux.Box(result.Name, ux.MetricTable(means))
	ux.Muted(fmt.Sprintf("%d samples in %s", result.Samples, result.Duration))

	if !noStore {
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
		if err := st.Put(ctx, result); err != nil {
			ux.Error(fmt.Sprintf("Failed to persist result: %v", err))
			return
		}
		ux.Success(fmt.Sprintf("Stored as %q", result.Name))
	}

	sink := newSink()
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			slog.Warn("Failed to close telemetry sink", "error", closeErr)
		}
	}()
	if err := sink.RecordRun(ctx, result); err != nil {
		slog.Warn("Telemetry sink rejected run", "error", err)
	}

	if exportOutput != "" {
		if err := exportResultToFile(result, exportOutput, exportFormat); err != nil {
			ux.Error(fmt.Sprintf("Export failed: %v", err))
			return
		}
		ux.Success(fmt.Sprintf("Exported to %s", exportOutput))
	}
}

func runListSpecs(cmd *cobra.Command, _ []string) {
	registry := newRegistry()
	ux.Title("Registered evaluation specs")
	for _, name := range registry.List() {
		spec, _ := registry.Get(name)
		ux.Info(fmt.Sprintf("%-16s dataset=%s metrics=%v", name, spec.Dataset(), spec.Metrics()))
	}
}

// exportResultToFile encodes one result to disk in the given format.
func exportResultToFile(result *harness.Result, path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close export file", "path", path, "error", closeErr)
		}
	}()
	return harness.Export(f, result, harness.ExportFormat(format))
}
