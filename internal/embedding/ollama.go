package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// OllamaConfig holds Ollama embedding client configuration.
type OllamaConfig struct {
	// BaseURL is the base URL for the Ollama API (default: http://localhost:11434)
	BaseURL string

	// Model is the embedding model name (default: nomic-embed-text)
	Model string

	// Dimensions is the width of vectors the model produces (default: 768,
	// matching nomic-embed-text).
	Dimensions int

	// Timeout is the per-request timeout (default: 30s)
	Timeout time.Duration

	// RequestsPerSecond caps outbound request rate (default: 10).
	RequestsPerSecond float64
}

// OllamaClient generates embeddings via a local Ollama instance.
// All HTTP calls are wrapped with circuit breaker protection and pass
// through a client-side rate limiter, so a misbehaving enrichment loop
// cannot hammer the provider.
type OllamaClient struct {
	cfg            OllamaConfig
	client         *http.Client
	circuitBreaker *CircuitBreaker
	limiter        *rate.Limiter
}

var _ Embedder = (*OllamaClient)(nil)

// embedRequest is the request body for POST /api/embed.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the response from POST /api/embed. The embeddings
// field is a 2D array; we always use the first (and only) embedding.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaClient creates a new Ollama embedding client, applying
// defaults for any zero-valued configuration fields.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 768
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 10
	}

	return &OllamaClient{
		cfg:            cfg,
		client:         &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: NewCircuitBreaker(),
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Embed generates an embedding vector for the given text.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("ollama circuit breaker open: %w", err)
		}
		return nil, err
	}
	return result.([]float32), nil
}

// embed is the internal implementation of Embed without circuit breaker
// wrapping.
func (c *OllamaClient) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqBody := embedRequest{
		Model: c.cfg.Model,
		Input: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/api/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var respData embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(respData.Embeddings) == 0 || len(respData.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding vector")
	}
	return respData.Embeddings[0], nil
}

// Dimensions returns the configured embedding width.
func (c *OllamaClient) Dimensions() int {
	return c.cfg.Dimensions
}

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string {
	return c.cfg.Model
}
