// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/AleutianAI/Benchtide/services/harness/metrics"
)

// EvidenceClassName is the Weaviate class name for evidence documents.
const EvidenceClassName = "EvidenceDoc"

// evidenceBatchSize is the number of documents to batch import at once.
const evidenceBatchSize = 100

// EvidenceDoc is one retrievable evidence passage a cited answer may
// reference.
type EvidenceDoc struct {
	// EvidenceID is the citation marker identifier, e.g. "doc_3".
	EvidenceID string

	// Dataset groups evidence by the dataset it belongs to.
	Dataset string

	// Content is the passage text.
	Content string
}

// EvidenceSchema returns the Weaviate schema for the EvidenceDoc class.
func EvidenceSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       EvidenceClassName,
		Description: "Evidence passages that cited answers may reference",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "evidenceId",
				DataType:        []string{"text"},
				Description:     "Citation marker identifier",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "dataset",
				DataType:        []string{"text"},
				Description:     "Dataset the evidence belongs to",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Passage text",
				Tokenization: "word",
			},
		},
	}
}

// EvidenceStore indexes and retrieves the evidence sets that
// citation-accuracy scoring validates answers against.
//
// Thread Safety: Safe for concurrent use; the underlying client is.
type EvidenceStore struct {
	client *weaviate.Client
}

// NewEvidenceStore wraps a Weaviate client.
func NewEvidenceStore(client *weaviate.Client) *EvidenceStore {
	return &EvidenceStore{client: client}
}

// EnsureSchema creates the EvidenceDoc class if it doesn't exist.
// Idempotent.
func (s *EvidenceStore) EnsureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().WithClassName(EvidenceClassName).Do(ctx)
	if err == nil {
		slog.Info("EvidenceDoc schema already exists")
		return nil
	}

	slog.Info("Creating EvidenceDoc schema")
	if err := s.client.Schema().ClassCreator().WithClass(EvidenceSchema()).Do(ctx); err != nil {
		return fmt.Errorf("creating EvidenceDoc schema: %w", err)
	}
	return nil
}

// Index batch imports evidence documents.
//
// Outputs:
//   - int: Number of documents successfully indexed.
//   - error: Non-nil if a batch import fails.
func (s *EvidenceStore) Index(ctx context.Context, docs []EvidenceDoc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	indexed := 0
	for i := 0; i < len(docs); i += evidenceBatchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		end := i + evidenceBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[i:end]

		objects := make([]*models.Object, len(batch))
		for j, doc := range batch {
			objects[j] = &models.Object{
				Class: EvidenceClassName,
				Properties: map[string]interface{}{
					"evidenceId": doc.EvidenceID,
					"dataset":    doc.Dataset,
					"content":    doc.Content,
				},
			}
		}

		result, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return indexed, fmt.Errorf("batch import failed: %w", err)
		}
		for _, obj := range result {
			if obj.Result != nil && obj.Result.Errors == nil {
				indexed++
			}
		}

		slog.Info("Indexed evidence batch", "count", len(batch), "total_indexed", indexed)
	}
	return indexed, nil
}

// Evidence fetches the evidence set for one dataset in the form the
// citation-accuracy metric consumes.
func (s *EvidenceStore) Evidence(ctx context.Context, dataset string) ([]metrics.Evidence, error) {
	whereFilter := filters.Where().
		WithPath([]string{"dataset"}).
		WithOperator(filters.Equal).
		WithValueString(dataset)

	result, err := s.client.GraphQL().Get().
		WithClassName(EvidenceClassName).
		WithFields(graphql.Field{Name: "evidenceId"}).
		WithWhere(whereFilter).
		WithLimit(1000).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying evidence for %s: %w", dataset, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("querying evidence for %s: %s", dataset, result.Errors[0].Message)
	}

	raw, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	items, ok := raw[EvidenceClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	evidence := make([]metrics.Evidence, 0, len(items))
	for _, item := range items {
		props, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := props["evidenceId"].(string); ok {
			evidence = append(evidence, metrics.Evidence{ID: id})
		}
	}
	return evidence, nil
}
