// cmd/engram-import bulk-imports a directory of Markdown notes into an
// owner's memory collection.  Each note is embedded and stored through
// the same service the MCP server uses, so imported notes are
// deduplicated and searchable like any other memory.
//
// Usage:
//
//	engram-import -dir ./notes -owner alice
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/scrypster/engram/internal/config"
	"github.com/scrypster/engram/internal/embedding"
	"github.com/scrypster/engram/internal/engine"
	"github.com/scrypster/engram/internal/importer"
	"github.com/scrypster/engram/internal/storage"
	"github.com/scrypster/engram/internal/storage/file"
	"github.com/scrypster/engram/internal/storage/postgres"
	"github.com/scrypster/engram/internal/storage/sqlite"
)

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
	log.SetOutput(os.Stderr)
	log.SetPrefix("engram-import: ")
	log.SetFlags(log.LstdFlags)

	dir := flag.String("dir", "", "directory of Markdown notes to import (required)")
	owner := flag.String("owner", "", "owner to import into (default: ENGRAM_DEFAULT_OWNER)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	effectiveOwner := *owner
	if effectiveOwner == "" {
		effectiveOwner = cfg.Service.DefaultOwner
	}
	if effectiveOwner == "" {
		log.Fatal("no owner: pass -owner or set ENGRAM_DEFAULT_OWNER")
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

	logger := log.New(os.Stderr, "engram-import: ", log.LstdFlags)
	store, err := engine.NewCollectionStore(blobs, cfg.Service.CacheSize, logger)
	if err != nil {
		log.Fatalf("failed to create collection store: %v", err)
	}
	service := engine.NewService(store, embedder, logger)

	im := importer.New(service, logger)
	stats, err := im.ImportDir(context.Background(), effectiveOwner, *dir)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	log.Printf("done: imported=%d skipped=%d failed=%d owner=%s",
		stats.Imported, stats.Skipped, stats.Failed, effectiveOwner)
}
