// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compare

import (
	"errors"
	"math"
	"sort"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrInsufficientSamples indicates not enough samples for analysis.
	ErrInsufficientSamples = errors.New("insufficient samples for statistical analysis")

	// ErrZeroVariance indicates a sample set has zero variance.
	ErrZeroVariance = errors.New("sample set has zero variance")
)

// -----------------------------------------------------------------------------
// Statistical Analysis
// -----------------------------------------------------------------------------

// TTestResult holds the results of a t-test.
type TTestResult struct {
	// TStatistic is the computed t-statistic.
	TStatistic float64 `json:"t_statistic"`

	// PValue is the two-tailed p-value.
	PValue float64 `json:"p_value"`

	// DegreesOfFreedom is the Welch-Satterthwaite df.
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`

	// Significant is true if PValue < significance level.
	Significant bool `json:"significant"`

	// SignificanceLevel is the alpha used (e.g., 0.05).
	SignificanceLevel float64 `json:"significance_level"`
}

// WelchTTest performs Welch's t-test for two sample sets.
//
// Description:
//
//	Welch's t-test is used when the two samples may have unequal variances.
//	It does not assume equal population variances, making it more robust
//	than Student's t-test.
//
// Inputs:
//   - values1: First sample set. Must have at least 2 values.
//   - values2: Second sample set. Must have at least 2 values.
//   - alpha: Significance level (e.g., 0.05 for 95% confidence).
//
// Outputs:
//   - *TTestResult: Test results with t-statistic, p-value, and significance.
//   - error: Non-nil if samples are insufficient or both sets have zero
//     variance.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func WelchTTest(values1, values2 []float64, alpha float64) (*TTestResult, error) {
	if len(values1) < 2 || len(values2) < 2 {
		return nil, ErrInsufficientSamples
	}

	mean1 := mean(values1)
	mean2 := mean(values2)

	var1 := variance(values1, mean1)
	var2 := variance(values2, mean2)

	n1 := float64(len(values1))
	n2 := float64(len(values2))

	se := math.Sqrt(var1/n1 + var2/n2)
	if se == 0 {
		return nil, ErrZeroVariance
	}

	tStat := (mean1 - mean2) / se

	// Degrees of freedom (Welch-Satterthwaite equation)
	num := math.Pow(var1/n1+var2/n2, 2)
	denom := math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1)
	if denom == 0 {
		return nil, ErrZeroVariance
	}
	df := num / denom

	pValue := tDistributionPValue(math.Abs(tStat), df)

	return &TTestResult{
		TStatistic:        tStat,
		PValue:            pValue,
		DegreesOfFreedom:  df,
		Significant:       pValue < alpha,
		SignificanceLevel: alpha,
	}, nil
}

// ConfidenceInterval represents a statistical confidence interval.
type ConfidenceInterval struct {
	// Lower is the lower bound.
	Lower float64 `json:"lower"`

	// Upper is the upper bound.
	Upper float64 `json:"upper"`

	// Level is the confidence level (e.g., 0.95).
	Level float64 `json:"level"`

	// Center is the point estimate (mean).
	Center float64 `json:"center"`
}

// Contains returns true if the interval contains the value.
func (ci *ConfidenceInterval) Contains(v float64) bool {
	return v >= ci.Lower && v <= ci.Upper
}

// Width returns the interval width.
func (ci *ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

// -----------------------------------------------------------------------------
// Bootstrap Methods
// -----------------------------------------------------------------------------

// DefaultBootstrapIterations is the iteration count used when callers
// pass a non-positive count.
const DefaultBootstrapIterations = 1000

// BootstrapCI calculates a bootstrap confidence interval for the mean.
//
// Description:
//
//	Uses bootstrap resampling with the percentile method to construct a
//	confidence interval for the sample mean. More robust than parametric
//	methods when the sample distribution is non-normal. Resampling uses
//	a fixed-seed linear congruential generator so repeated runs on the
//	same input produce identical intervals.
//
// Inputs:
//   - values: The sample set. Empty input yields a zero interval.
//   - iterations: Bootstrap iterations. Non-positive selects the default.
//   - level: Confidence level (e.g., 0.95).
//
// Outputs:
//   - ConfidenceInterval: Percentile interval around the sample mean.
//
// Thread Safety: This function is stateless and safe for concurrent use.
func BootstrapCI(values []float64, iterations int, level float64) ConfidenceInterval {
	if len(values) == 0 {
		return ConfidenceInterval{Level: level}
	}
	if iterations <= 0 {
		iterations = DefaultBootstrapIterations
	}

	// Linear congruential generator for deterministic results
	seed := uint64(12345)
	lcg := func() uint64 {
		seed = seed*6364136223846793005 + 1442695040888963407
		return seed
	}

	means := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		means[i] = mean(resample(values, lcg))
	}
	sort.Float64s(means)

	// Percentile method
	alphaLower := (1 - level) / 2
	alphaUpper := 1 - alphaLower

	lowerIdx := int(alphaLower * float64(iterations))
	upperIdx := int(alphaUpper * float64(iterations))

	if lowerIdx < 0 {
		lowerIdx = 0
	}
	if upperIdx >= iterations {
		upperIdx = iterations - 1
	}

	return ConfidenceInterval{
		Lower:  means[lowerIdx],
		Upper:  means[upperIdx],
		Level:  level,
		Center: mean(values),
	}
}

// resample creates a bootstrap sample using the provided RNG.
func resample(values []float64, rng func() uint64) []float64 {
	n := len(values)
	result := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := int(rng() % uint64(n))
		result[i] = values[idx]
	}
	return result
}

// -----------------------------------------------------------------------------
// Effect Sizes
// -----------------------------------------------------------------------------

// EffectCategory categorizes effect sizes using Cohen's conventions.
type EffectCategory int

const (
	// EffectNegligible indicates |d| < 0.2
	EffectNegligible EffectCategory = iota
	// EffectSmall indicates 0.2 <= |d| < 0.5
	EffectSmall
	// EffectMedium indicates 0.5 <= |d| < 0.8
	EffectMedium
	// EffectLarge indicates |d| >= 0.8
	EffectLarge
)

// String returns the string representation.
func (e EffectCategory) String() string {
	switch e {
	case EffectNegligible:
		return "negligible"
	case EffectSmall:
		return "small"
	case EffectMedium:
		return "medium"
	case EffectLarge:
		return "large"
	default:
		return "unknown"
	}
}

// CategorizeEffect returns the category for a Cohen's d value.
func CategorizeEffect(d float64) EffectCategory {
	absD := math.Abs(d)
	switch {
	case absD < 0.2:
		return EffectNegligible
	case absD < 0.5:
		return EffectSmall
	case absD < 0.8:
		return EffectMedium
	default:
		return EffectLarge
	}
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// mean calculates the arithmetic mean.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance calculates population variance.
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(values))
}

// normalCDF approximates the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt(2)))
}

// zScore returns the z-score for a given percentile.
func zScore(p float64) float64 {
	if p <= 0 {
		return math.Inf(-1)
	}
	if p >= 1 {
		return math.Inf(1)
	}

	// For p in (0,1): z = sqrt(2) * erfinv(2p - 1)
	return math.Sqrt(2) * math.Erfinv(2*p-1)
}

// tDistributionPValue approximates the two-tailed p-value.
func tDistributionPValue(t, df float64) float64 {
	if df <= 0 {
		return 1
	}

	// For large df, use normal approximation
	if df >= 30 {
		return 2 * (1 - normalCDF(t))
	}

	// For smaller df, adjust the t-statistic to approximate the
	// t-distribution's heavier tails
	adjustedT := t * math.Sqrt(df/(df-2+0.001))
	pValue := 2 * (1 - normalCDF(adjustedT))

	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}
	return pValue
}

// tCriticalValue returns approximate t critical value for two-tailed test.
func tCriticalValue(df int, level float64) float64 {
	// Large df converges to the normal quantile; compute it exactly
	// rather than hard-coding the common levels so arbitrary levels
	// work.
	if df >= 30 {
		return zScore(1 - (1-level)/2)
	}

	// Table lookup for small df
	t95 := []float64{12.706, 4.303, 3.182, 2.776, 2.571, 2.447, 2.365, 2.306, 2.262, 2.228,
		2.201, 2.179, 2.160, 2.145, 2.131, 2.120, 2.110, 2.101, 2.093, 2.086,
		2.080, 2.074, 2.069, 2.064, 2.060, 2.056, 2.052, 2.048, 2.045, 2.042}
	t99 := []float64{63.657, 9.925, 5.841, 4.604, 4.032, 3.707, 3.499, 3.355, 3.250, 3.169,
		3.106, 3.055, 3.012, 2.977, 2.947, 2.921, 2.898, 2.878, 2.861, 2.845,
		2.831, 2.819, 2.807, 2.797, 2.787, 2.779, 2.771, 2.763, 2.756, 2.750}

	if df < 1 {
		df = 1
	}

	switch {
	case level >= 0.99:
		return t99[df-1]
	case level >= 0.95:
		return t95[df-1]
	default:
		// Scale the 95% entry toward the exact normal quantile for
		// other levels
		scale := zScore(1-(1-level)/2) / 1.96
		return t95[df-1] * scale
	}
}
