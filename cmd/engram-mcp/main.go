// cmd/engram-mcp is the entry point for the Engram MCP (Model Context
// Protocol) server.  It wires the configured blob backend and embedding
// provider into the memory service and serves the store/search/delete
// tools over stdio.
//
// Startup sequence:
//  1. Load configuration from environment variables.
//  2. Open the configured blob store (file, sqlite, or postgres).
//  3. Create the embedding client for the configured provider.
//  4. Compose the memory service and MCP server.
//  5. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr.  Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scrypster/engram/internal/api/mcp"
	"github.com/scrypster/engram/internal/config"
	"github.com/scrypster/engram/internal/embedding"
	"github.com/scrypster/engram/internal/engine"
	"github.com/scrypster/engram/internal/storage"
	"github.com/scrypster/engram/internal/storage/file"
	"github.com/scrypster/engram/internal/storage/postgres"
	"github.com/scrypster/engram/internal/storage/sqlite"
)

// openBlobStore opens the blob backend selected by the configuration.
func openBlobStore(cfg *config.Config) (storage.BlobStore, error) {
	switch cfg.Storage.StorageEngine {
	case "sqlite":
		return sqlite.NewStore(cfg.Storage.SQLitePath)
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	default:
		return file.NewStore(cfg.Storage.DataPath)
	}
}

func main() {
	// Redirect the default logger to stderr so that any incidental log calls
	// (e.g. from imported packages) never pollute the stdout JSON-RPC stream.
	log.SetOutput(os.Stderr)
	log.SetPrefix("engram-mcp: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.Storage.StorageEngine != "postgres" {
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
		}
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		log.Fatalf("failed to open %s storage: %v", cfg.Storage.StorageEngine, err)
	}
	defer func() {
		if err := blobs.Close(); err != nil {
			log.Printf("storage close error: %v", err)
		}
	}()

	embedder, err := embedding.NewEmbedder(cfg.Embedding)
	if err != nil {
		log.Fatalf("failed to create embedder: %v", err)
	}
	log.Printf("embedding provider: %s model: %s", cfg.Embedding.Provider, embedder.GetModel())

	logger := log.New(os.Stderr, "engram-mcp: ", log.LstdFlags)
	store, err := engine.NewCollectionStore(blobs, cfg.Service.CacheSize, logger)
	if err != nil {
		log.Fatalf("failed to create collection store: %v", err)
	}
	service := engine.NewService(store, embedder, logger)

	// Set up a root context that is cancelled on SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	var opts []mcp.ServerOption
	if cfg.Service.DefaultOwner != "" {
		log.Printf("default owner: %s", cfg.Service.DefaultOwner)
		opts = append(opts, mcp.WithDefaultOwner(cfg.Service.DefaultOwner))
	}
	srv := mcp.NewServer(service, opts...)

	// Wrap the server in a StdioTransport that reads line-delimited JSON-RPC
	// from stdin and writes responses to stdout.  All logging inside the
	// transport is directed to stderr.
	transport := mcp.NewStdioTransport(srv, os.Stdin, os.Stdout)

	log.Println("ready, serving JSON-RPC 2.0 on stdin/stdout")

	if err := transport.Serve(ctx); err != nil {
		// A non-nil error here is normal (context cancellation) or indicates a
		// fatal stdin/stdout problem.  Either way it is informational only.
		log.Printf("transport stopped: %v", err)
	}
}
