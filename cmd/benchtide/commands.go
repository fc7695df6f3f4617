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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath       string
	personalityLevel string // UX personality level (full/standard/minimal/machine)
	exportOutput     string
	exportFormat     string
	noStore          bool
	serveAddr        string
	resultsPlain     bool
	exportFromInflux bool
	compareMetric    string
	compareLevel     float64

	rootCmd = &cobra.Command{
		Use:   "benchtide",
		Short: "A cli to run, store, and compare model-output evaluations",
		Long: `Benchtide scores model outputs against ground truth with a
				library of lexical, overlap, and structural metrics, persists
				the results, and compares runs with real statistical tests.`,
	}

	// --- Evaluation ---
	runCmd = &cobra.Command{
		Use:   "run [scenario.yaml]",
		Short: "Run an evaluation described by a scenario file",
		Args:  cobra.ExactArgs(1),
		Run:   runScenario, // Defined in cmd_run.go
	}

	specsCmd = &cobra.Command{
		Use:   "specs",
		Short: "List the registered evaluation specs",
		Run:   runListSpecs, // Defined in cmd_run.go
	}

	// --- Comparison ---
	compareCmd = &cobra.Command{
		Use:   "compare [run names...]",
		Short: "Compare stored runs: rankings, winners, and pairwise tests",
		Run:   runCompare, // Defined in cmd_compare.go
	}

	// --- Stored Results ---
	resultsCmd = &cobra.Command{
		Use:   "results",
		Short: "Browse stored evaluation results",
		Run:   runResults, // Defined in cmd_results.go
	}
	deleteResultCmd = &cobra.Command{
		Use:   "delete [run name]",
		Short: "Delete a stored evaluation result",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteResult, // Defined in cmd_results.go
	}

	// --- Export ---
	exportCmd = &cobra.Command{
		Use:   "export [run name]",
		Short: "Export a stored run to JSON or CSV",
		Args:  cobra.ExactArgs(1),
		Run:   runExportResult, // Defined in cmd_export.go
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluation harness over HTTP",
		Run:   runServe, // Defined in cmd_serve.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "benchtide.yaml",
		"Path to the benchtide configuration file")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the result to a file after the run")
	runCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or csv")
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "Skip persisting the result")

	rootCmd.AddCommand(specsCmd)

	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVar(&compareMetric, "anova", "", "Also run a one-way ANOVA screen on this metric")
	compareCmd.Flags().Float64Var(&compareLevel, "ci", 0.95, "Confidence level for per-run intervals")

	rootCmd.AddCommand(resultsCmd)
	resultsCmd.Flags().BoolVar(&resultsPlain, "plain", false, "Print a plain listing instead of the interactive table")
	resultsCmd.AddCommand(deleteResultCmd)

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output filename (default: {run}.{format})")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format: json or csv")
	exportCmd.Flags().BoolVar(&exportFromInflux, "from-influx", false,
		"Export from the InfluxDB sink instead of the local store")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}
