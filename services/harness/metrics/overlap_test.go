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
	"testing"
)

func TestBLEU(t *testing.T) {
	t.Run("identical is 1", func(t *testing.T) {
		text := "the quick brown fox jumps over the lazy dog"
		if got := BLEU(text, text, DefaultBLEUOrder); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("both empty is 1", func(t *testing.T) {
		if got := BLEU("", "", DefaultBLEUOrder); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("one empty is 0", func(t *testing.T) {
		if got := BLEU("some text", "", DefaultBLEUOrder); !almostEqual(got, 0.0) {
			t.Errorf("expected 0.0, got %f", got)
		}
	})

	t.Run("disjoint is 0", func(t *testing.T) {
		if got := BLEU("alpha beta gamma delta", "one two three four", DefaultBLEUOrder); !almostEqual(got, 0.0) {
			t.Errorf("expected 0.0, got %f", got)
		}
	})

	t.Run("zero precision at any order forces 0", func(t *testing.T) {
		// Every unigram matches but no bigram does.
		got := BLEU("a c b d", "a b c d", 2)
		if !almostEqual(got, 0.0) {
			t.Errorf("expected 0.0 from missing bigram overlap, got %f", got)
		}
	})

	t.Run("order clamped to shorter input", func(t *testing.T) {
		// Single-token inputs cannot have bigrams; score must come
		// from unigrams alone rather than collapsing to 0.
		if got := BLEU("fox", "fox", 4); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("bounded", func(t *testing.T) {
		pairs := [][2]string{
			{"the cat sat", "the cat sat on the mat"},
			{"a b c d e", "a b x d e"},
			{"partial overlap here", "some overlap here too"},
		}
		for _, pair := range pairs {
			got := BLEU(pair[0], pair[1], DefaultBLEUOrder)
			if got < 0 || got > 1 {
				t.Errorf("BLEU(%q, %q) = %f out of [0,1]", pair[0], pair[1], got)
			}
		}
	})
}

func TestRougeL(t *testing.T) {
	t.Run("identical is 1", func(t *testing.T) {
		text := "results are aggregated into summary statistics"
		if got := RougeL(text, text); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("both empty is 1", func(t *testing.T) {
		if got := RougeL("", ""); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("known value", func(t *testing.T) {
		// LCS("a b c d", "a x c d") = 3 (a c d).
		// P = 3/4, R = 3/4, F = 0.75.
		if got := RougeL("a b c d", "a x c d"); !almostEqual(got, 0.75) {
			t.Errorf("expected 0.75, got %f", got)
		}
	})

	t.Run("order sensitivity", func(t *testing.T) {
		// Same token sets, different order: LCS drops below full length.
		same := RougeL("a b c", "a b c")
		reordered := RougeL("c b a", "a b c")
		if reordered >= same {
			t.Errorf("expected reordered (%f) < same order (%f)", reordered, same)
		}
	})

	t.Run("disjoint is 0", func(t *testing.T) {
		if got := RougeL("alpha beta", "gamma delta"); !almostEqual(got, 0.0) {
			t.Errorf("expected 0.0, got %f", got)
		}
	})
}

func TestLCSLength(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want int
	}{
		{"empty", nil, nil, 0},
		{"one empty", []string{"a"}, nil, 0},
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 3},
		{"subsequence", []string{"a", "b", "c", "d"}, []string{"b", "d"}, 2},
		{"interleaved", []string{"a", "x", "b", "y", "c"}, []string{"a", "b", "c"}, 3},
		{"disjoint", []string{"a", "b"}, []string{"c", "d"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lcsLength(tc.a, tc.b); got != tc.want {
				t.Errorf("lcsLength(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestMeteor(t *testing.T) {
	t.Run("both empty is 1", func(t *testing.T) {
		if got := Meteor("", ""); !almostEqual(got, 1.0) {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("zero matches is 0", func(t *testing.T) {
		if got := Meteor("alpha beta", "gamma delta"); !almostEqual(got, 0.0) {
			t.Errorf("expected 0.0, got %f", got)
		}
	})

	t.Run("identical known value", func(t *testing.T) {
		// m=3, P=R=1, F=1. Penalty = 0.5*(3/4)^3 = 0.2109375.
		got := Meteor("a b c", "a b c")
		want := 1.0 * (1 - 0.5*math.Pow(3.0/4.0, 3))
		if !almostEqual(got, want) {
			t.Errorf("expected %f, got %f", want, got)
		}
	})

	t.Run("bounded", func(t *testing.T) {
		pairs := [][2]string{
			{"the cat", "the cat sat"},
			{"x", "x y z"},
			{"one two three", "two three four"},
		}
		for _, pair := range pairs {
			got := Meteor(pair[0], pair[1])
			if got < 0 || got > 1 {
				t.Errorf("Meteor(%q, %q) = %f out of [0,1]", pair[0], pair[1], got)
			}
		}
	})
}

func TestDiversity(t *testing.T) {
	t.Run("empty text is all zero", func(t *testing.T) {
		got := Diversity("")
		if got.Distinct1 != 0 || got.Distinct2 != 0 || got.Distinct3 != 0 {
			t.Errorf("expected all zeros, got %+v", got)
		}
	})

	t.Run("all unique tokens", func(t *testing.T) {
		got := Diversity("alpha beta gamma delta")
		if !almostEqual(got.Distinct1, 1.0) {
			t.Errorf("expected distinct-1 of 1.0, got %f", got.Distinct1)
		}
		if !almostEqual(got.Distinct2, 1.0) {
			t.Errorf("expected distinct-2 of 1.0, got %f", got.Distinct2)
		}
	})

	t.Run("repetition lowers distinct-1", func(t *testing.T) {
		got := Diversity("word word word word")
		if !almostEqual(got.Distinct1, 0.25) {
			t.Errorf("expected 0.25, got %f", got.Distinct1)
		}
	})

	t.Run("short text has zero higher orders", func(t *testing.T) {
		got := Diversity("single")
		if !almostEqual(got.Distinct1, 1.0) {
			t.Errorf("expected distinct-1 of 1.0, got %f", got.Distinct1)
		}
		if got.Distinct2 != 0 || got.Distinct3 != 0 {
			t.Errorf("expected zero distinct-2/3 for one token, got %+v", got)
		}
	})
}
