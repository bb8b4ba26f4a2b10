package ai

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"

	"github.com/ent0n29/aurora/internal/reliability"
)

// Message is one prompt entry handed to the generation model.
type Message struct {
	Role    string
	Content string
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Generator produces the assistant reply for an assembled prompt. The
// implementation owns the persona system instruction.
type Generator interface {
	Generate(ctx context.Context, prompt []Message) (string, error)
}

// IsRetryable is the default classifier for executor policies wrapping the
// embedding and generation calls: API errors with a non-retryable status
// (malformed input, auth) short-circuit, everything else is treated as
// transient.
func IsRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	return true
}
