// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against the OpenAI chat completion
// API.
//
// The API key lives in a memguard enclave: mlocked, guarded, and only
// decrypted for the moment a request client is built. It never sits
// in a plain Go string for the process lifetime.
type OpenAIClient struct {
	key   *memguard.Enclave
	model string
}

// NewOpenAIClient builds a client from the environment.
//
// Description:
//
//	Reads OPENAI_API_KEY, falling back to the container secret at
//	/run/secrets/openai_api_key. The model comes from OPENAI_MODEL,
//	defaulting to gpt-4o-mini.
//
// Outputs:
//   - *OpenAIClient: The client. Nil on error.
//   - error: Non-nil when no API key source is available.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		raw, err := os.ReadFile(secretPath)
		if err != nil {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		apiKey = strings.TrimSpace(string(raw))
		slog.Info("Read the OpenAI API key from container secrets")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}

	slog.Info("Initializing OpenAI client", "model", model)
	return &OpenAIClient{
		key:   memguard.NewEnclave([]byte(apiKey)),
		model: model,
	}, nil
}

// Generate implements the Client interface.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via OpenAI", "model", o.model)

	keyBuf, err := o.key.Open()
	if err != nil {
		return "", fmt.Errorf("opening API key enclave: %w", err)
	}
	client := openai.NewClient(keyBuf.String())
	keyBuf.Destroy()

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.MaxTokens != nil {
		req.MaxCompletionTokens = *params.MaxTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if len(params.Stop) > 0 {
		req.Stop = params.Stop
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("OpenAI returned no choices")
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	slog.Debug("Received response from OpenAI", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

var _ Client = (*OpenAIClient)(nil)
