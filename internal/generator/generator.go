// Package generator provides the external text generation backends used to
// write business plan sections.
package generator

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured indicates the backend has no API key.
	ErrNotConfigured = errors.New("generator API key not configured")

	// ErrEmptyResponse indicates the upstream reply carried no text block.
	ErrEmptyResponse = errors.New("generator returned no text content")
)

// Generator turns a prompt into generated prose.
// Implementations make a single attempt; callers decide what a failure means.
type Generator interface {
	// Generate sends prompt upstream and returns the generated text.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Name identifies the backend in logs.
	Name() string
}

// Ensure AnthropicClient implements Generator.
var _ Generator = (*AnthropicClient)(nil)
