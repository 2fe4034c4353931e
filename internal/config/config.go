// Package config provides configuration management for Engram.
// It loads settings from environment variables with the ENGRAM_ prefix
// and provides sensible defaults for all configuration options.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the Engram application.
type Config struct {
	Storage   StorageConfig
	Embedding EmbeddingConfig
	Service   ServiceConfig
}

// StorageConfig contains persistence configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: file, sqlite, postgres (default: file)
	DataPath      string // Path to data directory for the file engine (default: ./data)
	SQLitePath    string // Path to the SQLite database file (default: ./data/engram.db)
	PostgresDSN   string // Postgres connection string for the postgres engine
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider          string  // Embedding provider: ollama, openai, mock (default: ollama)
	OllamaURL         string  // Ollama API URL (default: http://localhost:11434)
	OpenAIAPIKey      string  // OpenAI API key
	Model             string  // Embedding model name (provider default when empty)
	Dimensions        int     // Embedding vector width (provider default when 0)
	RequestsPerSecond float64 // Outbound request rate cap (default: 10)
}

// ServiceConfig contains memory service settings.
type ServiceConfig struct {
	DefaultOwner string // Owner used when a request carries no owner id
	CacheSize    int    // Number of owner collections kept in the LRU cache (default: 64)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the ENGRAM_ prefix.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			StorageEngine: getEnv("ENGRAM_STORAGE_ENGINE", "file"),
			DataPath:      getEnv("ENGRAM_DATA_PATH", "./data"),
			SQLitePath:    getEnv("ENGRAM_SQLITE_PATH", "./data/engram.db"),
			PostgresDSN:   getEnv("ENGRAM_POSTGRES_DSN", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:          getEnv("ENGRAM_EMBEDDING_PROVIDER", "ollama"),
			OllamaURL:         getEnv("ENGRAM_OLLAMA_URL", "http://localhost:11434"),
			OpenAIAPIKey:      getEnv("ENGRAM_OPENAI_API_KEY", ""),
			Model:             getEnv("ENGRAM_EMBEDDING_MODEL", ""),
			Dimensions:        getEnvInt("ENGRAM_EMBEDDING_DIMENSIONS", 0),
			RequestsPerSecond: getEnvFloat("ENGRAM_EMBEDDING_RPS", 10),
		},
		Service: ServiceConfig{
			DefaultOwner: getEnv("ENGRAM_DEFAULT_OWNER", ""),
			CacheSize:    getEnvInt("ENGRAM_CACHE_SIZE", 64),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.StorageEngine {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported storage engine: %q", c.Storage.StorageEngine)
	}
	if c.Storage.StorageEngine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: ENGRAM_POSTGRES_DSN is required for the postgres engine")
	}
	if c.Service.CacheSize <= 0 {
		return fmt.Errorf("config: cache size must be positive, got %d", c.Service.CacheSize)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
