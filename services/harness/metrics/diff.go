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
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// DiffSimilarity scores how closely a predicted unified diff matches
// the ground-truth diff.
//
// Description:
//
//	Both inputs are parsed as multi-file unified diffs. The score is
//	the mean of two Jaccard overlaps: touched file names, and changed
//	lines (added/removed hunk lines, normalized). Identical patches
//	score 1.0.
//
// Outputs:
//   - float64: Score in [0, 1]. Either input failing to parse as a
//     diff scores 0.0 (sentinel, not an error).
func DiffSimilarity(prediction, truth string) float64 {
	pFiles, err := parseDiff(prediction)
	if err != nil || len(pFiles) == 0 {
		return 0.0
	}
	tFiles, err := parseDiff(truth)
	if err != nil || len(tFiles) == 0 {
		return 0.0
	}

	fileScore := jaccard(diffFileNames(pFiles), diffFileNames(tFiles))
	lineScore := jaccard(diffChangedLines(pFiles), diffChangedLines(tFiles))
	return (fileScore + lineScore) / 2
}

// parseDiff reads all file diffs from a unified-diff string.
func parseDiff(patch string) ([]*diff.FileDiff, error) {
	return diff.NewMultiFileDiffReader(strings.NewReader(patch)).ReadAllFiles()
}

// diffFileNames collects the set of touched file names, preferring
// the post-image name and stripping the a/ b/ prefixes.
func diffFileNames(files []*diff.FileDiff) map[string]struct{} {
	names := make(map[string]struct{}, len(files))
	for _, f := range files {
		name := f.NewName
		if name == "" || name == "/dev/null" {
			name = f.OrigName
		}
		name = strings.TrimPrefix(strings.TrimPrefix(name, "a/"), "b/")
		if name != "" {
			names[name] = struct{}{}
		}
	}
	return names
}

// diffChangedLines collects the set of added/removed lines across all
// hunks, with the +/- sign kept so an addition never matches a
// removal.
func diffChangedLines(files []*diff.FileDiff) map[string]struct{} {
	lines := make(map[string]struct{})
	for _, f := range files {
		for _, h := range f.Hunks {
			for _, line := range strings.Split(string(h.Body), "\n") {
				if len(line) < 2 {
					continue
				}
				if line[0] != '+' && line[0] != '-' {
					continue
				}
				key := string(line[0]) + strings.TrimSpace(line[1:])
				if key != "+" && key != "-" {
					lines[key] = struct{}{}
				}
			}
		}
	}
	return lines
}

// jaccard computes |a ∩ b| / |a ∪ b| for two string sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := intersectionSize(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
