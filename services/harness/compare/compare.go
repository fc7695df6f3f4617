// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compare ranks evaluation results and quantifies whether the
// differences between them are statistically meaningful.
//
// All analyses work from harness.Result values. Rankings and winners
// use aggregated means; the pairwise tests use the raw per-sample
// values each Result carries, so significance claims rest on real
// sample variance rather than on reconstructed distributions.
package compare

import (
	"fmt"
	"math"
	"sort"

	"github.com/AleutianAI/Benchtide/services/harness"
)

// DefaultAlpha is the significance level used for pairwise tests.
const DefaultAlpha = 0.05

// anovaFThreshold is the fixed F threshold used to flag an ANOVA as
// significant. A deliberate heuristic: the exact critical value
// depends on both degrees of freedom, but for the group counts and
// sample sizes seen in practice F > 3.0 tracks the 0.05 level closely
// enough for a screening signal. Callers needing exact p-values
// should run the pairwise tests instead.
const anovaFThreshold = 3.0

// -----------------------------------------------------------------------------
// Report
// -----------------------------------------------------------------------------

// Ranking is one row of the comparison leaderboard.
type Ranking struct {
	// Rank is 1-based, 1 being best.
	Rank int `json:"rank"`

	// Name is the Result name.
	Name string `json:"name"`

	// Score is the normalized composite score in [0, 1].
	Score float64 `json:"score"`
}

// PairwiseTest holds a Welch's t-test between two adjacent results for
// one metric.
type PairwiseTest struct {
	// A and B are the Result names, in input order.
	A string `json:"a"`
	B string `json:"b"`

	// Metric is the compared metric name.
	Metric string `json:"metric"`

	// TTest is nil when InsufficientData is set.
	TTest *TTestResult `json:"t_test,omitempty"`

	// Effect is Cohen's d for the pair, nil when it cannot be
	// computed.
	Effect *Effect `json:"effect,omitempty"`

	// InsufficientData marks pairs where either side lacks the raw
	// per-sample values (or variance) a t-test needs. No synthetic
	// samples are ever substituted.
	InsufficientData bool `json:"insufficient_data"`
}

// Report is the full output of a comparison.
type Report struct {
	// Names lists the compared Results in input order.
	Names []string `json:"names"`

	// MetricTable maps metric name → result name → mean.
	MetricTable map[string]map[string]float64 `json:"metric_table"`

	// MetricWinners maps each metric to the result with the highest
	// mean. Ties resolve to the lexicographically smallest name.
	MetricWinners map[string]string `json:"metric_winners"`

	// Rankings is the leaderboard sorted best-first.
	Rankings []Ranking `json:"rankings"`

	// Best is the name of the top-ranked result.
	Best string `json:"best"`

	// Pairwise holds per-metric Welch tests between consecutive
	// results in input order.
	Pairwise []PairwiseTest `json:"pairwise,omitempty"`
}

// -----------------------------------------------------------------------------
// Compare
// -----------------------------------------------------------------------------

// Compare builds a comparison report over one or more results.
//
// Description:
//
//	Each result's composite score is the mean, over the metrics that
//	result carries, of its mean divided by the best mean any result
//	achieved for that metric (0 when the best is 0). Scores therefore
//	land in [0, 1] and a result is never penalized for metrics it does
//	not report. Rankings sort by score descending; exact ties order
//	lexicographically by result name so repeated runs produce the same
//	leaderboard.
//
// Inputs:
//   - results: At least one result. Order determines pairwise test
//     adjacency.
//
// Outputs:
//   - *Report: The comparison report. Nil on error.
//   - error: harness.ErrInsufficientData when results is empty.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func Compare(results []*harness.Result) (*Report, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: need at least one result", harness.ErrInsufficientData)
	}

	report := &Report{
		Names:         make([]string, len(results)),
		MetricTable:   make(map[string]map[string]float64),
		MetricWinners: make(map[string]string),
	}

	// Metric table and per-metric maxima.
	maxima := make(map[string]float64)
	for i, result := range results {
		report.Names[i] = result.Name
		for metric, agg := range result.Aggregates {
			row, ok := report.MetricTable[metric]
			if !ok {
				row = make(map[string]float64)
				report.MetricTable[metric] = row
			}
			row[result.Name] = agg.Mean
			if agg.Mean > maxima[metric] {
				maxima[metric] = agg.Mean
			}
		}
	}

	// Winners per metric.
	for metric, row := range report.MetricTable {
		winner := ""
		best := math.Inf(-1)
		for name, m := range row {
			if m > best || (m == best && (winner == "" || name < winner)) {
				best = m
				winner = name
			}
		}
		report.MetricWinners[metric] = winner
	}

	// Composite scores and leaderboard.
	report.Rankings = make([]Ranking, len(results))
	for i, result := range results {
		report.Rankings[i] = Ranking{
			Name:  result.Name,
			Score: compositeScore(result, maxima),
		}
	}
	sort.SliceStable(report.Rankings, func(i, j int) bool {
		a, b := report.Rankings[i], report.Rankings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Name < b.Name
	})
	for i := range report.Rankings {
		report.Rankings[i].Rank = i + 1
	}
	report.Best = report.Rankings[0].Name

	report.Pairwise = pairwiseTests(results)
	return report, nil
}

// compositeScore is the mean of own/max over the result's own metrics.
func compositeScore(result *harness.Result, maxima map[string]float64) float64 {
	if len(result.Aggregates) == 0 {
		return 0
	}
	var sum float64
	for metric, agg := range result.Aggregates {
		if max := maxima[metric]; max > 0 {
			sum += agg.Mean / max
		}
	}
	return sum / float64(len(result.Aggregates))
}

// pairwiseTests runs Welch tests between each consecutive result pair
// over their shared metrics, using the raw per-sample values.
func pairwiseTests(results []*harness.Result) []PairwiseTest {
	var tests []PairwiseTest
	for i := 0; i+1 < len(results); i++ {
		a, b := results[i], results[i+1]
		for _, metric := range sharedMetrics(a, b) {
			test := PairwiseTest{A: a.Name, B: b.Name, Metric: metric}

			tt, err := WelchTTest(a.MetricValues(metric), b.MetricValues(metric), DefaultAlpha)
			if err != nil {
				test.InsufficientData = true
			} else {
				test.TTest = tt
			}
			test.Effect = EffectSize(a, b, metric)

			tests = append(tests, test)
		}
	}
	return tests
}

// sharedMetrics returns the sorted metric names both results carry.
func sharedMetrics(a, b *harness.Result) []string {
	var shared []string
	for metric := range a.Aggregates {
		if _, ok := b.Aggregates[metric]; ok {
			shared = append(shared, metric)
		}
	}
	sort.Strings(shared)
	return shared
}

// -----------------------------------------------------------------------------
// Confidence Intervals
// -----------------------------------------------------------------------------

// ConfidenceIntervals computes a parametric interval for each metric
// mean of a result.
//
// Description:
//
//	Each interval is mean ± q·std/√n where q is the two-tailed t
//	critical value for n-1 degrees of freedom below 30 samples and the
//	exact normal quantile above. Metrics with fewer than two samples
//	get a degenerate interval at the mean.
//
// Inputs:
//   - result: The result to analyze. Must not be nil.
//   - level: Confidence level in (0, 1), e.g. 0.95.
//
// Outputs:
//   - map[string]ConfidenceInterval: One interval per aggregated metric.
func ConfidenceIntervals(result *harness.Result, level float64) map[string]ConfidenceInterval {
	intervals := make(map[string]ConfidenceInterval, len(result.Aggregates))
	for metric, agg := range result.Aggregates {
		ci := ConfidenceInterval{Level: level, Center: agg.Mean, Lower: agg.Mean, Upper: agg.Mean}
		if agg.Count >= 2 {
			q := tCriticalValue(agg.Count-1, level)
			margin := q * agg.Std / math.Sqrt(float64(agg.Count))
			ci.Lower = agg.Mean - margin
			ci.Upper = agg.Mean + margin
		}
		intervals[metric] = ci
	}
	return intervals
}

// -----------------------------------------------------------------------------
// Effect Size
// -----------------------------------------------------------------------------

// Effect is Cohen's d between two results for one metric.
type Effect struct {
	// Metric is the compared metric name.
	Metric string `json:"metric"`

	// D is Cohen's d. Positive means the first result scored higher.
	D float64 `json:"d"`

	// Category buckets |d| by Cohen's conventions.
	Category EffectCategory `json:"category"`
}

// EffectSize calculates Cohen's d between two results for one metric.
//
// Description:
//
//	Uses the pooled standard deviation computed from each result's
//	aggregated std and sample count.
//
// Outputs:
//   - *Effect: The effect size. Nil when either result lacks the
//     metric. D is 0 when the pooled standard deviation is 0.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func EffectSize(a, b *harness.Result, metric string) *Effect {
	aggA, okA := a.Aggregates[metric]
	aggB, okB := b.Aggregates[metric]
	if !okA || !okB {
		return nil
	}

	n1 := float64(aggA.Count)
	n2 := float64(aggB.Count)
	effect := &Effect{Metric: metric}
	if n1+n2 <= 2 {
		effect.Category = CategorizeEffect(0)
		return effect
	}

	pooledVar := ((n1-1)*aggA.Std*aggA.Std + (n2-1)*aggB.Std*aggB.Std) / (n1 + n2 - 2)
	pooledStd := math.Sqrt(pooledVar)
	if pooledStd > 0 {
		effect.D = (aggA.Mean - aggB.Mean) / pooledStd
	}
	effect.Category = CategorizeEffect(effect.D)
	return effect
}

// -----------------------------------------------------------------------------
// ANOVA
// -----------------------------------------------------------------------------

// AnovaResult holds a one-way analysis of variance across results.
type AnovaResult struct {
	// FStatistic is MSbetween / MSwithin.
	FStatistic float64 `json:"f_statistic"`

	// DFBetween is k-1 for k groups.
	DFBetween int `json:"df_between"`

	// DFWithin is N-k across all samples.
	DFWithin int `json:"df_within"`

	// Significant reports whether FStatistic exceeds the fixed
	// screening threshold.
	Significant bool `json:"significant"`
}

// Anova runs a one-way ANOVA for one metric across results.
//
// Description:
//
//	Computed entirely from each group's aggregated (mean, std, count):
//	the between-group sum of squares weights each group's squared
//	deviation from the grand mean by its count, and the within-group
//	sum of squares is Σ n·std² (population std times its own count
//	recovers the group's sum of squared deviations). Significance is
//	the fixed F > 3.0 screening threshold.
//
// Inputs:
//   - results: The compared results.
//   - metric: The metric to analyze.
//
// Outputs:
//   - *AnovaResult: The analysis. Nil on error.
//   - error: harness.ErrInsufficientData when fewer than two results
//     carry the metric or within-group degrees of freedom are zero.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func Anova(results []*harness.Result, metric string) (*AnovaResult, error) {
	type group struct {
		mean  float64
		std   float64
		count float64
	}
	var groups []group
	for _, result := range results {
		if agg, ok := result.Aggregates[metric]; ok && agg.Count > 0 {
			groups = append(groups, group{mean: agg.Mean, std: agg.Std, count: float64(agg.Count)})
		}
	}
	if len(groups) < 2 {
		return nil, fmt.Errorf("%w: metric %q present in %d result(s), need 2",
			harness.ErrInsufficientData, metric, len(groups))
	}

	var total, grandSum float64
	for _, g := range groups {
		total += g.count
		grandSum += g.mean * g.count
	}
	grandMean := grandSum / total

	var ssBetween, ssWithin float64
	for _, g := range groups {
		diff := g.mean - grandMean
		ssBetween += g.count * diff * diff
		ssWithin += g.count * g.std * g.std
	}

	dfBetween := len(groups) - 1
	dfWithin := int(total) - len(groups)
	if dfWithin <= 0 {
		return nil, fmt.Errorf("%w: no within-group degrees of freedom", harness.ErrInsufficientData)
	}

	msBetween := ssBetween / float64(dfBetween)
	msWithin := ssWithin / float64(dfWithin)

	var f float64
	switch {
	case msWithin > 0:
		f = msBetween / msWithin
	case msBetween > 0:
		f = math.Inf(1)
	}

	return &AnovaResult{
		FStatistic:  f,
		DFBetween:   dfBetween,
		DFWithin:    dfWithin,
		Significant: f > anovaFThreshold,
	}, nil
}
