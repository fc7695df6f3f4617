// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package judge

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tmc/langchaingo/embeddings"
)

var (
	// ErrEmbeddingMismatch indicates the embedder returned vectors of
	// different dimensions.
	ErrEmbeddingMismatch = errors.New("embedding dimensions differ")
)

// SemanticScorer measures similarity in embedding space, catching
// paraphrases that token-overlap metrics score as misses.
//
// Thread Safety: Safe for concurrent use when the embedder is.
type SemanticScorer struct {
	embedder embeddings.Embedder
}

// NewSemanticScorer wraps an embedder.
func NewSemanticScorer(embedder embeddings.Embedder) *SemanticScorer {
	return &SemanticScorer{embedder: embedder}
}

// Score returns the cosine similarity of the two texts' embeddings,
// shifted into [0, 1].
//
// Outputs:
//   - float64: (cosine + 1) / 2, so orthogonal texts score 0.5 and
//     identical directions score 1.0.
//   - error: Embedder errors or ErrEmbeddingMismatch.
func (s *SemanticScorer) Score(ctx context.Context, prediction, reference string) (float64, error) {
	vectors, err := s.embedder.EmbedDocuments(ctx, []string{prediction, reference})
	if err != nil {
		return 0, fmt.Errorf("embedding texts: %w", err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("embedder returned %d vectors, want 2", len(vectors))
	}

	cos, err := cosineSimilarity(vectors[0], vectors[1])
	if err != nil {
		return 0, err
	}
	return (cos + 1) / 2, nil
}

// cosineSimilarity computes the cosine of two float32 vectors.
// Zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrEmbeddingMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
