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

// DefaultBLEUOrder is the highest n-gram order used by BLEU when the
// caller does not override it.
const DefaultBLEUOrder = 4

// BLEU computes a simplified BLEU score.
//
// Description:
//
//	For each order n from 1 to min(maxN, shorter token count), the
//	per-order precision is the set overlap of n-grams:
//	|ngrams(p) ∩ ngrams(t)| / |ngrams(p)|. The score is the geometric
//	mean of the per-order precisions.
//
// Outputs:
//   - float64: Score in [0, 1]. Both-empty inputs score 1.0. Any
//     zero-precision order forces 0.0.
//
// Limitations:
//   - No smoothing and no brevity penalty, unlike standard BLEU.
//   - Overlap is set-based, so repeated n-grams count once.
func BLEU(prediction, truth any, maxN int) float64 {
	pTokens := Tokenize(prediction)
	tTokens := Tokenize(truth)

	if len(pTokens) == 0 && len(tTokens) == 0 {
		return 1.0
	}
	if len(pTokens) == 0 || len(tTokens) == 0 {
		return 0.0
	}
	if maxN < 1 {
		maxN = DefaultBLEUOrder
	}

	shorter := len(pTokens)
	if len(tTokens) < shorter {
		shorter = len(tTokens)
	}
	if maxN > shorter {
		maxN = shorter
	}

	logSum := 0.0
	for n := 1; n <= maxN; n++ {
		pGrams := ngramSet(pTokens, n)
		tGrams := ngramSet(tTokens, n)

		common := intersectionSize(pGrams, tGrams)
		if common == 0 {
			return 0.0
		}
		logSum += math.Log(float64(common) / float64(len(pGrams)))
	}
	return math.Exp(logSum / float64(maxN))
}

// RougeL computes the ROUGE-L F-measure between token sequences.
//
// Description:
//
//	Precision is LCS/|p| and recall is LCS/|t| where LCS is the
//	longest common subsequence length, computed with an O(|p|·|t|)
//	dynamic-programming table.
//
// Outputs:
//   - float64: F-measure in [0, 1]. Both-empty inputs score 1.0.
func RougeL(prediction, truth any) float64 {
	pTokens := Tokenize(prediction)
	tTokens := Tokenize(truth)

	if len(pTokens) == 0 && len(tTokens) == 0 {
		return 1.0
	}
	if len(pTokens) == 0 || len(tTokens) == 0 {
		return 0.0
	}

	lcs := lcsLength(pTokens, tTokens)
	if lcs == 0 {
		return 0.0
	}

	precision := float64(lcs) / float64(len(pTokens))
	recall := float64(lcs) / float64(len(tTokens))
	return 2 * precision * recall / (precision + recall)
}

// lcsLength computes the longest-common-subsequence length with a
// rolling two-row DP table. The naive recursive definition is
// exponential and must not be used here.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}
	return prev[len(b)]
}

// Meteor computes an approximated METEOR score.
//
// Description:
//
//	Matches are the unique-token intersection. The F-mean weights
//	recall 9:1 over precision (10·P·R/(9·P+R)). The fragmentation
//	penalty is approximated as 0.5·(m/(m+1))³ since no chunk
//	alignment is computed.
//
// Outputs:
//   - float64: Score in [0, 1]. Both-empty inputs score 1.0; zero
//     matches score 0.0.
func Meteor(prediction, truth any) float64 {
	pTokens := Tokenize(prediction)
	tTokens := Tokenize(truth)

	if len(pTokens) == 0 && len(tTokens) == 0 {
		return 1.0
	}
	if len(pTokens) == 0 || len(tTokens) == 0 {
		return 0.0
	}

	matches := intersectionSize(tokenSet(pTokens), tokenSet(tTokens))
	if matches == 0 {
		return 0.0
	}

	precision := float64(matches) / float64(len(pTokens))
	recall := float64(matches) / float64(len(tTokens))
	fMean := 10 * precision * recall / (9*precision + recall)

	frag := float64(matches) / float64(matches+1)
	penalty := 0.5 * frag * frag * frag

	return fMean * (1 - penalty)
}

// DiversityScores holds distinct-n ratios for n in {1, 2, 3}.
type DiversityScores struct {
	Distinct1 float64 `json:"distinct_1"`
	Distinct2 float64 `json:"distinct_2"`
	Distinct3 float64 `json:"distinct_3"`
}

// Diversity computes distinct-n ratios (unique n-grams over total
// n-grams) for n in {1, 2, 3}. Empty text yields all zeros.
func Diversity(text any) DiversityScores {
	tokens := Tokenize(text)
	return DiversityScores{
		Distinct1: distinctRatio(tokens, 1),
		Distinct2: distinctRatio(tokens, 2),
		Distinct3: distinctRatio(tokens, 3),
	}
}

// distinctRatio returns unique/total n-gram counts, 0.0 when no
// n-grams exist.
func distinctRatio(tokens []string, n int) float64 {
	total := len(tokens) - n + 1
	if total <= 0 {
		return 0.0
	}

	unique := make(map[string]struct{}, total)
	for i := 0; i < total; i++ {
		unique[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return float64(len(unique)) / float64(total)
}

// ngramSet builds the unique n-gram set of a token sequence.
func ngramSet(tokens []string, n int) map[string]struct{} {
	total := len(tokens) - n + 1
	set := make(map[string]struct{}, maxOf(total, 0))
	for i := 0; i < total; i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return set
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
