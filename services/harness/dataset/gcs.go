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
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/Benchtide/services/harness"
)

// GCSLoader resolves datasets from objects in a GCS bucket, named
// <prefix>/<dataset>.<ext> with the same extensions and payload
// shapes as FileLoader.
//
// Thread Safety: Safe for concurrent use.
type GCSLoader struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSLoader creates a loader for the given bucket and prefix.
//
// Inputs:
//   - ctx: Context for client creation.
//   - bucket: The GCS bucket name.
//   - prefix: Object key prefix, may be empty.
//   - saKeyPath: Path to a service account key. Empty selects
//     application default credentials.
//
// Outputs:
//   - *GCSLoader: The loader. Nil on error.
//   - error: Non-nil if the key file is missing or the client cannot
//     be created.
func NewGCSLoader(ctx context.Context, bucket, prefix, saKeyPath string) (*GCSLoader, error) {
	var opts []option.ClientOption
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
		}
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSLoader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Load fetches and parses the dataset object.
func (l *GCSLoader) Load(ctx context.Context, dataset string) ([]any, error) {
	for _, ext := range extensions {
		key := path.Join(l.prefix, dataset+ext)
		reader, err := l.client.Bucket(l.bucket).Object(key).NewReader(ctx)
		if err == storage.ErrObjectNotExist {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("opening gs://%s/%s: %w", l.bucket, key, err)
		}

		raw, err := io.ReadAll(reader)
		closeErr := reader.Close()
		if err != nil {
			return nil, fmt.Errorf("reading gs://%s/%s: %w", l.bucket, key, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("closing gs://%s/%s: %w", l.bucket, key, closeErr)
		}

		entries, err := parseDataset(raw, ext)
		if err != nil {
			return nil, fmt.Errorf("parsing gs://%s/%s: %w", l.bucket, key, err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrEmptyDataset, l.bucket, key)
		}
		return entries, nil
	}
	return nil, fmt.Errorf("%w: %s under gs://%s/%s", ErrDatasetNotFound, dataset, l.bucket, l.prefix)
}

// Close releases the underlying client.
func (l *GCSLoader) Close() error {
	return l.client.Close()
}

var _ harness.DatasetLoader = (*GCSLoader)(nil)
