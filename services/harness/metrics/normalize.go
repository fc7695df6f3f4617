// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metrics implements the pure similarity and quality functions
// used by the evaluation harness.
//
// Every function in this package is total: malformed or degenerate
// input maps to a defined sentinel score (commonly 0.0 or 1.0), never
// an error. Callers must not treat a sentinel score as a failure
// signal.
//
// Thread Safety: All functions are stateless and safe for concurrent use.
package metrics

import (
	"fmt"
	"regexp"
	"strings"
)

// nonWordRuns matches runs of characters outside the word class used
// for tokenization (lowercase letters, digits, underscore).
var nonWordRuns = regexp.MustCompile(`[^a-z0-9_]+`)

// Normalize canonicalizes a value for comparison.
//
// Description:
//
//	Textual values are lowercased and stripped of surrounding
//	whitespace. Non-textual values are first converted to their
//	canonical string form and then lowercased and trimmed, which
//	makes the function idempotent for every input:
//	Normalize(Normalize(x)) == Normalize(x).
//
// Inputs:
//   - v: Any value. Nil yields the empty string.
//
// Outputs:
//   - string: The canonical form.
func Normalize(v any) string {
	if v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	return strings.TrimSpace(strings.ToLower(s))
}

// Tokenize splits a value into word tokens.
//
// Description:
//
//	The value is normalized, then split on runs of non-word
//	characters. Empty tokens are discarded. Non-textual input yields
//	an empty sequence.
//
// Inputs:
//   - v: Any value. Only strings produce tokens.
//
// Outputs:
//   - []string: Ordered lowercase tokens. Never nil.
func Tokenize(v any) []string {
	s, ok := v.(string)
	if !ok {
		return []string{}
	}
	parts := nonWordRuns.Split(Normalize(s), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// tokenSet builds the unique-token set of a token sequence.
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// intersectionSize counts tokens present in both sets.
func intersectionSize(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
