package ai

import (
	"fmt"
	"log"
	"strings"
)

// NewClients builds the embedding and generation clients for the configured
// provider mode. "auto" picks the OpenAI-compatible clients when an API key
// is present and falls back to deterministic mocks otherwise.
func NewClients(mode string, cfg OpenAIConfig) (Embedder, Generator, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIEmbedder(cfg), NewOpenAIGenerator(cfg), nil
		}
		log.Printf("ai provider: mock (no OPENAI_API_KEY set)")
		return NewMockEmbedder(cfg.EmbeddingDim), NewMockGenerator(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, nil, fmt.Errorf("AI_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		return NewOpenAIEmbedder(cfg), NewOpenAIGenerator(cfg), nil
	case "mock":
		return NewMockEmbedder(cfg.EmbeddingDim), NewMockGenerator(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported ai provider mode %q", mode)
	}
}
