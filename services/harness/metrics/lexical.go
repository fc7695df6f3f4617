// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package metrics

import (
	"math"
	"strings"
)

// ExactMatch scores 1.0 when prediction and truth normalize to the
// same string, 0.0 otherwise.
func ExactMatch(prediction, truth any) float64 {
	if Normalize(prediction) == Normalize(truth) {
		return 1.0
	}
	return 0.0
}

// F1 computes the token-set F1 score between prediction and truth.
//
// Description:
//
//	Precision and recall are computed over unique-token sets, so
//	duplicate tokens contribute once. This is a known simplification
//	versus multiset F1.
//
// Outputs:
//   - float64: Harmonic mean of set precision and recall. Both-empty
//     inputs score 1.0; an empty intersection scores 0.0.
func F1(prediction, truth any) float64 {
	pSet := tokenSet(Tokenize(prediction))
	tSet := tokenSet(Tokenize(truth))

	if len(pSet) == 0 && len(tSet) == 0 {
		return 1.0
	}
	if len(pSet) == 0 || len(tSet) == 0 {
		return 0.0
	}

	common := intersectionSize(pSet, tSet)
	if common == 0 {
		return 0.0
	}

	precision := float64(common) / float64(len(pSet))
	recall := float64(common) / float64(len(tSet))
	return 2 * precision * recall / (precision + recall)
}

// FuzzyMatch scores character-level similarity as
// 1 - editDistance/maxLen over rune sequences.
//
// Description:
//
//	Edit distance is Levenshtein with unit insert, delete, and
//	substitute costs, computed with a two-row dynamic-programming
//	table. Inputs are normalized first.
//
// Outputs:
//   - float64: Similarity in [0, 1]. Both-empty inputs score 1.0.
func FuzzyMatch(prediction, truth any) float64 {
	p := []rune(Normalize(prediction))
	t := []rune(Normalize(truth))

	if len(p) == 0 && len(t) == 0 {
		return 1.0
	}

	maxLen := len(p)
	if len(t) > maxLen {
		maxLen = len(t)
	}

	dist := levenshtein(p, t)
	return 1.0 - float64(dist)/float64(maxLen)
}

// levenshtein computes the edit distance between two rune sequences.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// FactualConsistency scores the fraction of ground-truth tokens that
// appear as substrings of the normalized prediction.
//
// Outputs:
//   - float64: Fraction in [0, 1]. No truth tokens scores 0.0.
func FactualConsistency(prediction, truth any) float64 {
	normalized := Normalize(prediction)
	tokens := Tokenize(truth)
	if len(tokens) == 0 {
		return 0.0
	}

	found := 0
	for _, tok := range tokens {
		if strings.Contains(normalized, tok) {
			found++
		}
	}
	return float64(found) / float64(len(tokens))
}

// Accuracy returns the arithmetic mean of the values, 0.0 for empty
// input.
func Accuracy(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdErr returns the standard error of the mean: sample standard
// deviation (n-1 denominator) divided by sqrt(n).
//
// Note: This deliberately uses the sample variance convention, unlike
// result aggregation which uses population variance. The two must not
// be conflated.
//
// Outputs:
//   - float64: Standard error, 0.0 for fewer than two values.
func StdErr(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}

	mean := Accuracy(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	sampleSD := math.Sqrt(sumSq / float64(n-1))
	return sampleSD / math.Sqrt(float64(n))
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
