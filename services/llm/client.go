// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm abstracts the generation backends the harness's judge
// scorers call into. The harness core never talks to a model; judge
// components receive a Client as an injected collaborator.
package llm

import "context"

// GenerationParams carries per-request sampling parameters. Nil
// pointers keep the backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// ClientFunc adapts a function to the Client interface, mainly for
// tests.
type ClientFunc func(ctx context.Context, prompt string, params GenerationParams) (string, error)

// Generate calls the wrapped function.
func (f ClientFunc) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return f(ctx, prompt, params)
}
