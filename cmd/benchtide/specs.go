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

	"github.com/AleutianAI/Benchtide/services/harness"
	"github.com/AleutianAI/Benchtide/services/harness/metrics"
)

// registerBuiltinSpecs installs the evaluations the CLI ships with.
// Scenario files reference these by spec name; library users register
// their own.
func registerBuiltinSpecs(registry *harness.Registry) {
	registry.MustRegister(&harness.SimpleSpec{
		SpecName:    "qa_exact",
		SpecDataset: "qa",
		MetricNames: []string{"exact_match", "f1", "fuzzy_match"},
		EvaluateFunc: func(_ context.Context, prediction, truth any) (harness.MetricRecord, error) {
			return harness.MetricRecord{
				"exact_match": metrics.ExactMatch(prediction, truth),
				"f1":          metrics.F1(prediction, truth),
				"fuzzy_match": metrics.FuzzyMatch(prediction, truth),
			}, nil
		},
	})

	registry.MustRegister(&harness.SimpleSpec{
		SpecName:    "summarization",
		SpecDataset: "summaries",
		MetricNames: []string{"rouge_l", "bleu", "meteor", "factual_consistency", "distinct_2"},
		EvaluateFunc: func(_ context.Context, prediction, truth any) (harness.MetricRecord, error) {
			return harness.MetricRecord{
				"rouge_l":             metrics.RougeL(prediction, truth),
				"bleu":                metrics.BLEU(prediction, truth, 4),
				"meteor":              metrics.Meteor(prediction, truth),
				"factual_consistency": metrics.FactualConsistency(prediction, truth),
				"distinct_2":          metrics.Diversity(prediction).Distinct2,
			}, nil
		},
	})

	registry.MustRegister(&harness.SimpleSpec{
		SpecName:    "code_go",
		SpecDataset: "code_go",
		MetricNames: []string{"syntax_validity", "diff_similarity", "exact_match"},
		EvaluateFunc: func(_ context.Context, prediction, truth any) (harness.MetricRecord, error) {
			pred := fmt.Sprintf("%v", prediction)
			want := fmt.Sprintf("%v", truth)
			return harness.MetricRecord{
				"syntax_validity": metrics.SyntaxValidity(pred, "go"),
				"diff_similarity": metrics.DiffSimilarity(pred, want),
				"exact_match":     metrics.ExactMatch(prediction, truth),
			}, nil
		},
	})
}
