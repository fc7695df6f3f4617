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

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/Benchtide/pkg/ux"
	"github.com/AleutianAI/Benchtide/services/harness/compare"
)

func runCompare(cmd *cobra.Command, args []string) {
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

	ctx := context.Background()
	names := args
	if len(names) < 2 {
		names, err = pickRuns(ctx, st)
		if err != nil {
			ux.Error(err.Error())
			return
		}
	}
	if len(names) < 2 {
		ux.Error("Need at least two runs to compare.")
		return
	}

	results, err := st.GetAll(ctx, names)
	if err != nil {
		ux.Error(fmt.Sprintf("Failed to load runs: %v", err))
		return
	}

	report, err := compare.Compare(results)
	if err != nil {
		ux.Error(fmt.Sprintf("Comparison failed: %v", err))
		return
	}

	ux.Title("Rankings")
	for _, r := range report.Rankings {
		fmt.Println(ux.RankingLine(r.Rank, r.Name, r.Score, r.Name == report.Best))
	}

	ux.Title("Metric winners")
	for metric, winner := range report.MetricWinners {
		ux.Info(fmt.Sprintf("%-24s %s", metric, winner))
	}

	if len(report.Pairwise) > 0 {
		ux.Title("Pairwise tests")
		for _, p := range report.Pairwise {
			printPairwise(p)
		}
	}

	for _, result := range results {
		intervals := compare.ConfidenceIntervals(result, compareLevel)
		rows := make(map[string]float64, len(intervals))
		for metric, ci := range intervals {
			rows[metric+" ±"] = ci.Width() / 2
		}
		ux.Box(fmt.Sprintf("%s (%.0f%% CI half-widths)", result.Name, compareLevel*100),
			ux.MetricTable(rows))
	}

	if compareMetric != "" {
		anova, err := compare.Anova(results, compareMetric)
		if err != nil {
			ux.Error(fmt.Sprintf("ANOVA on %q failed: %v", compareMetric, err))
			return
		}
		verdict := "groups look alike"
		if anova.Significant {
			verdict = "group means differ"
		}
		ux.Info(fmt.Sprintf("ANOVA %s: F=%.3f (df %d/%d) · %s",
			compareMetric, anova.FStatistic, anova.DFBetween, anova.DFWithin, verdict))
	}
}

// pickRuns drops into an interactive multi-select over the stored run
// names when the user did not name runs on the command line.
func pickRuns(ctx context.Context, st resultLister) ([]string, error) {
	names, err := st.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored runs: %w", err)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("only %d stored run(s); run evaluations first", len(names))
	}

	var selected []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Select runs to compare").
			Options(huh.NewOptions(names...)...).
			Value(&selected),
	))
	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("run selection cancelled: %w", err)
	}
	return selected, nil
}

// resultLister is the slice of the store the picker needs.
type resultLister interface {
	List(ctx context.Context) ([]string, error)
}

func printPairwise(p compare.PairwiseTest) {
	if p.InsufficientData {
		ux.Muted(fmt.Sprintf("  %s vs %s on %s: insufficient samples", p.A, p.B, p.Metric))
		return
	}
	line := fmt.Sprintf("  %s vs %s on %s: p=%.4f", p.A, p.B, p.Metric, p.TTest.PValue)
	if p.Effect != nil {
		line += fmt.Sprintf(" d=%.2f (%s)", p.Effect.D, p.Effect.Category)
	}
	if p.TTest.Significant {
		ux.Success(line)
	} else {
		ux.Muted(line)
	}
}
