package embedding

import (
	"fmt"

	"github.com/scrypster/engram/internal/config"
)

// NewEmbedder creates the appropriate Embedder based on the configured
// provider.
func NewEmbedder(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:           cfg.OllamaURL,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
