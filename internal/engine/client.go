// Copyright 2024 Saudi Government Services Navigator Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package engine wraps the text-generation backend behind a single-method
// client. The backend is any OpenAI-compatible completion endpoint; the
// default deployment points at a local Ollama server.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrUnavailable wraps every failed engine call. Callers check for it with
// errors.Is and degrade to a user-visible message; the call is never
// retried here.
var ErrUnavailable = errors.New("generation engine unavailable")

// DefaultTimeout bounds a single completion call when the config does not
// set one. Local models can take tens of seconds on a long prompt.
const DefaultTimeout = 60 * time.Second

// Config holds the engine connection settings.
type Config struct {
	// Model is the backend model name, e.g. "qwen2.5:14b".
	Model string
	// BaseURL is the OpenAI-compatible API root, e.g.
	// "http://localhost:11434/v1" for Ollama.
	BaseURL string
	// APIKey is the bearer token; local backends accept any value.
	APIKey string
	// Timeout bounds each completion call.
	Timeout time.Duration
}

// Client invokes the generation engine. Safe for concurrent use.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates an engine client. It validates settings but does not
// probe the backend: the first query surfaces connectivity problems as a
// per-query failure rather than refusing to start.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("engine model is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = cfg.BaseURL

	client := &Client{
		api:     openai.NewClientWithConfig(apiConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}

	logger.Info("Generation engine client initialized",
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", cfg.Timeout),
	)

	return client, nil
}

// Complete issues one completion call for the prompt and returns the raw
// reply text. The call is bounded by the configured timeout and made
// exactly once: any failure, including a timeout, is wrapped in
// ErrUnavailable and returned to the caller.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		// Keep the context error visible in the chain so callers can tell
		// a timeout from other failures.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: backend returned no choices", ErrUnavailable)
	}

	reply := resp.Choices[0].Message.Content

	c.logger.Debug("Completion call finished",
		zap.String("model", c.model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("reply_length", len(reply)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return reply, nil
}
