// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package judge provides model-graded scoring for dimensions lexical
// metrics cannot capture: rubric quality judged by an LLM and
// semantic similarity over embeddings.
//
// The judges never own a backend. Both take their model client as an
// injected collaborator, which keeps the harness runnable without any
// network access when these scorers are not in play.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/Benchtide/services/llm"
)

var (
	// ErrUnparsableVerdict indicates the judge model's reply carried
	// no recognizable score.
	ErrUnparsableVerdict = errors.New("judge verdict not parsable")
)

// scorePattern matches the first decimal in the model's reply.
var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// defaultRubric is used when callers don't supply one.
const defaultRubric = `Rate how well the candidate answer matches the reference answer
in meaning and completeness. Reply with only a number between 0.0 (no match)
and 1.0 (perfect match).`

// Judge scores predictions by asking an LLM to grade them against a
// rubric.
//
// Thread Safety: Safe for concurrent use; the limiter serializes
// request admission.
type Judge struct {
	client  llm.Client
	rubric  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Judge.
type Option func(*Judge)

// WithRubric replaces the default grading rubric.
func WithRubric(rubric string) Option {
	return func(j *Judge) {
		if rubric != "" {
			j.rubric = rubric
		}
	}
}

// WithRateLimit bounds judge requests to n per second with the given
// burst.
func WithRateLimit(n float64, burst int) Option {
	return func(j *Judge) {
		j.limiter = rate.NewLimiter(rate.Limit(n), burst)
	}
}

// WithLogger replaces the judge's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Judge) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// New creates a judge over the given client. Default: no rubric
// override, 2 requests per second.
func New(client llm.Client, opts ...Option) *Judge {
	j := &Judge{
		client:  client,
		rubric:  defaultRubric,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Score grades one prediction against the reference.
//
// Description:
//
//	Waits for limiter admission, prompts the model with the rubric,
//	candidate, and reference, and parses the first decimal out of the
//	reply, clamped to [0, 1].
//
// Outputs:
//   - float64: The parsed score.
//   - error: Context errors, backend errors, or ErrUnparsableVerdict.
func (j *Judge) Score(ctx context.Context, prediction, reference string) (float64, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("waiting for judge rate limit: %w", err)
	}

	prompt := fmt.Sprintf("%s\n\nReference answer:\n%s\n\nCandidate answer:\n%s\n\nScore:",
		j.rubric, reference, prediction)

	temperature := float32(0)
	maxTokens := 16
	reply, err := j.client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return 0, fmt.Errorf("judge generation failed: %w", err)
	}

	score, err := parseVerdict(reply)
	if err != nil {
		j.logger.Warn("judge returned unparsable verdict",
			slog.String("reply", reply))
		return 0, err
	}
	return score, nil
}

// parseVerdict extracts the first decimal from the reply, clamped to
// [0, 1]. Replies like "Score: 0.8" and bare "0.8" both parse; a
// bare percentage like "80" is treated as out of 100.
func parseVerdict(reply string) (float64, error) {
	match := scorePattern.FindString(strings.TrimSpace(reply))
	if match == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableVerdict, reply)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsableVerdict, reply)
	}
	if score > 1 && score <= 100 {
		score /= 100
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
