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
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestWelchTTest(t *testing.T) {
	t.Run("clearly different samples are significant", func(t *testing.T) {
		low := []float64{0.10, 0.12, 0.11, 0.09, 0.13, 0.10, 0.11, 0.12}
		high := []float64{0.90, 0.88, 0.91, 0.92, 0.89, 0.90, 0.91, 0.88}

		result, err := WelchTTest(low, high, 0.05)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Significant {
			t.Errorf("expected significance, p=%f", result.PValue)
		}
		if result.TStatistic >= 0 {
			t.Errorf("expected negative t for low < high, got %f", result.TStatistic)
		}
	})

	t.Run("overlapping samples are not significant", func(t *testing.T) {
		a := []float64{0.50, 0.55, 0.45, 0.52, 0.48, 0.51, 0.49, 0.53}
		b := []float64{0.51, 0.49, 0.52, 0.50, 0.54, 0.47, 0.50, 0.52}

		result, err := WelchTTest(a, b, 0.05)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Significant {
			t.Errorf("expected no significance, p=%f", result.PValue)
		}
	})

	t.Run("insufficient samples", func(t *testing.T) {
		if _, err := WelchTTest([]float64{1}, []float64{1, 2}, 0.05); !errors.Is(err, ErrInsufficientSamples) {
			t.Fatalf("expected ErrInsufficientSamples, got %v", err)
		}
	})

	t.Run("zero variance in both samples", func(t *testing.T) {
		a := []float64{0.5, 0.5, 0.5}
		b := []float64{0.5, 0.5, 0.5}
		if _, err := WelchTTest(a, b, 0.05); !errors.Is(err, ErrZeroVariance) {
			t.Fatalf("expected ErrZeroVariance, got %v", err)
		}
	})

	t.Run("p-value within valid range", func(t *testing.T) {
		a := []float64{0.2, 0.4, 0.6, 0.8}
		b := []float64{0.3, 0.5, 0.7, 0.9}
		result, err := WelchTTest(a, b, 0.05)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PValue < 0 || result.PValue > 1 {
			t.Errorf("p-value out of range: %f", result.PValue)
		}
	})
}

func TestBootstrapCI(t *testing.T) {
	t.Run("deterministic across calls", func(t *testing.T) {
		values := []float64{0.1, 0.3, 0.5, 0.7, 0.9, 0.2, 0.4, 0.6}
		first := BootstrapCI(values, 1000, 0.95)
		second := BootstrapCI(values, 1000, 0.95)
		if first != second {
			t.Errorf("expected identical intervals, got %+v vs %+v", first, second)
		}
	})

	t.Run("interval brackets the sample mean", func(t *testing.T) {
		values := []float64{0.40, 0.45, 0.50, 0.55, 0.60, 0.42, 0.58, 0.51}
		ci := BootstrapCI(values, 2000, 0.95)
		if !ci.Contains(ci.Center) {
			t.Errorf("interval [%f, %f] does not contain center %f", ci.Lower, ci.Upper, ci.Center)
		}
		if ci.Width() <= 0 {
			t.Errorf("expected positive width for varied samples, got %f", ci.Width())
		}
	})

	t.Run("higher level widens the interval", func(t *testing.T) {
		values := []float64{0.1, 0.9, 0.3, 0.7, 0.5, 0.2, 0.8, 0.4}
		narrow := BootstrapCI(values, 2000, 0.90)
		wide := BootstrapCI(values, 2000, 0.99)
		if wide.Width() < narrow.Width() {
			t.Errorf("expected 99%% interval at least as wide: %f vs %f", wide.Width(), narrow.Width())
		}
	})

	t.Run("empty input yields zero interval", func(t *testing.T) {
		ci := BootstrapCI(nil, 1000, 0.95)
		if ci.Lower != 0 || ci.Upper != 0 || ci.Center != 0 {
			t.Errorf("expected zero interval, got %+v", ci)
		}
		if !almostEqual(ci.Level, 0.95) {
			t.Errorf("expected level preserved, got %f", ci.Level)
		}
	})

	t.Run("constant input collapses to a point", func(t *testing.T) {
		values := []float64{0.5, 0.5, 0.5, 0.5}
		ci := BootstrapCI(values, 500, 0.95)
		if !almostEqual(ci.Lower, 0.5) || !almostEqual(ci.Upper, 0.5) {
			t.Errorf("expected point interval at 0.5, got [%f, %f]", ci.Lower, ci.Upper)
		}
	})
}

func TestCategorizeEffect(t *testing.T) {
	cases := []struct {
		d    float64
		want EffectCategory
	}{
		{0.1, EffectNegligible},
		{-0.1, EffectNegligible},
		{0.3, EffectSmall},
		{0.6, EffectMedium},
		{-0.9, EffectLarge},
		{2.5, EffectLarge},
	}
	for _, tc := range cases {
		if got := CategorizeEffect(tc.d); got != tc.want {
			t.Errorf("CategorizeEffect(%f) = %v, want %v", tc.d, got, tc.want)
		}
	}
}

func TestTCriticalValue(t *testing.T) {
	t.Run("small df wider than normal quantile", func(t *testing.T) {
		small := tCriticalValue(4, 0.95)
		large := tCriticalValue(100, 0.95)
		if small <= large {
			t.Errorf("expected t critical for df=4 (%f) above normal quantile (%f)", small, large)
		}
	})

	t.Run("large df matches normal quantile", func(t *testing.T) {
		got := tCriticalValue(100, 0.95)
		if math.Abs(got-1.96) > 0.01 {
			t.Errorf("expected ~1.96, got %f", got)
		}
	})

	t.Run("99 percent exceeds 95 percent", func(t *testing.T) {
		if tCriticalValue(10, 0.99) <= tCriticalValue(10, 0.95) {
			t.Error("expected 99% critical value above 95%")
		}
	})
}

func TestZScore(t *testing.T) {
	t.Run("median is zero", func(t *testing.T) {
		if !almostEqual(zScore(0.5), 0) {
			t.Errorf("expected 0, got %f", zScore(0.5))
		}
	})
	t.Run("97.5th percentile near 1.96", func(t *testing.T) {
		if math.Abs(zScore(0.975)-1.96) > 0.001 {
			t.Errorf("expected ~1.96, got %f", zScore(0.975))
		}
	})
	t.Run("symmetry", func(t *testing.T) {
		if !almostEqual(zScore(0.25), -zScore(0.75)) {
			t.Error("expected symmetric quantiles")
		}
	})
}
