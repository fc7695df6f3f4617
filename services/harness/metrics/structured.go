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
	"regexp"
	"strings"
)

// citationMarker matches bracketed id tags like [doc-3] or [S1].
var citationMarker = regexp.MustCompile(`\[[A-Za-z0-9_:.\-]+\]`)

// Evidence is one ground-truth evidence entry for citation checks.
type Evidence struct {
	// ID is the evidence identifier predictions are expected to cite.
	ID string `json:"id"`
}

// CitedAnswer is the structured prediction form for citation checks.
type CitedAnswer struct {
	// Text is the answer body. Unused for scoring but kept so callers
	// can pass the full structured output through.
	Text string `json:"text"`

	// Citations is the list of evidence ids the answer cites.
	Citations []string `json:"citations"`
}

// CitationAccuracy scores how well a prediction cites its sources.
//
// Description:
//
//	For a raw text prediction the score is 1.0 iff a bracketed
//	citation marker is present, else 0.0. For a structured prediction
//	(CitedAnswer or []string of ids) the score is the fraction of
//	cited ids that match an id in the ground-truth evidence list,
//	where a match is exact or substring containment in either
//	direction.
//
// Outputs:
//   - float64: Score in [0, 1]. No citations present scores 0.0.
func CitationAccuracy(prediction any, evidence []Evidence) float64 {
	var ids []string
	switch p := prediction.(type) {
	case string:
		if citationMarker.MatchString(p) {
			return 1.0
		}
		return 0.0
	case CitedAnswer:
		ids = p.Citations
	case *CitedAnswer:
		if p != nil {
			ids = p.Citations
		}
	case []string:
		ids = p
	}

	if len(ids) == 0 {
		return 0.0
	}

	matched := 0
	for _, id := range ids {
		if matchesEvidence(id, evidence) {
			matched++
		}
	}
	return float64(matched) / float64(len(ids))
}

// matchesEvidence reports whether the id matches any evidence entry,
// exactly or by substring in either direction.
func matchesEvidence(id string, evidence []Evidence) bool {
	normalized := Normalize(id)
	if normalized == "" {
		return false
	}
	for _, ev := range evidence {
		evID := Normalize(ev.ID)
		if evID == "" {
			continue
		}
		if normalized == evID ||
			strings.Contains(evID, normalized) ||
			strings.Contains(normalized, evID) {
			return true
		}
	}
	return false
}

// Schema declares the required keys for structured-output checks.
type Schema struct {
	Required []string `json:"required" yaml:"required"`
}

// SchemaCompliance scores the fraction of required schema keys that
// are present in the prediction map.
//
// Description:
//
//	Keys are matched after trimming a leading colon, so both "name"
//	and ":name" (the serialized symbol form some producers emit)
//	satisfy a required key "name".
//
// Outputs:
//   - float64: Fraction in [0, 1]. An empty required list scores 1.0;
//     a nil prediction scores 0.0.
func SchemaCompliance(prediction map[string]any, schema Schema) float64 {
	if len(schema.Required) == 0 {
		return 1.0
	}
	if len(prediction) == 0 {
		return 0.0
	}

	present := make(map[string]struct{}, len(prediction))
	for key := range prediction {
		present[strings.TrimPrefix(strings.TrimSpace(key), ":")] = struct{}{}
	}

	found := 0
	for _, key := range schema.Required {
		if _, ok := present[strings.TrimPrefix(strings.TrimSpace(key), ":")]; ok {
			found++
		}
	}
	return float64(found) / float64(len(schema.Required))
}

// PassAtK scores the fraction of the first k execution outcomes that
// passed.
//
// Outputs:
//   - float64: Fraction in [0, 1]. Empty outcomes score 0.0. A single
//     outcome scores 1.0 or 0.0. k values outside [1, len] are
//     clamped to the full list.
func PassAtK(outcomes []bool, k int) float64 {
	if len(outcomes) == 0 {
		return 0.0
	}
	if k < 1 || k > len(outcomes) {
		k = len(outcomes)
	}

	passed := 0
	for _, ok := range outcomes[:k] {
		if ok {
			passed++
		}
	}
	return float64(passed) / float64(k)
}

// Perplexity computes exp(-mean(logProbs)).
//
// Limitations:
//   - Empty input scores 0.0 as an approximation; true perplexity is
//     undefined for zero samples.
func Perplexity(logProbs []float64) float64 {
	if len(logProbs) == 0 {
		return 0.0
	}
	var sum float64
	for _, lp := range logProbs {
		sum += lp
	}
	return math.Exp(-sum / float64(len(logProbs)))
}
