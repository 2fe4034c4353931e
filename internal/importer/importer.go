package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/scrypster/engram/internal/engine"
)

// DefaultImportance is assigned to notes without an importance field.
const DefaultImportance = 0.7

// Importer walks a directory of Markdown notes and stores each one
// through the memory service.
type Importer struct {
	service *engine.Service
	logger  *log.Logger
}

// Stats summarises one import run.
type Stats struct {
	Imported int // notes stored successfully
	Skipped  int // empty or non-Markdown files
	Failed   int // notes that could not be parsed or stored
}

// New creates an Importer storing through the given service.
func New(service *engine.Service, logger *log.Logger) *Importer {
	return &Importer{service: service, logger: logger}
}

// ImportDir recursively imports every .md file under dir into the
// owner's collection. Individual file failures are logged and counted
// but do not abort the run.
func (im *Importer) ImportDir(ctx context.Context, owner, dir string) (*Stats, error) {
	stats := &Stats{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Skip hidden directories like .obsidian or .git.
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			stats.Skipped++
			return nil
		}

		if err := im.importFile(ctx, owner, path); err != nil {
			im.logger.Printf("WARN: failed to import %s: %v", path, err)
			stats.Failed++
			return nil
		}
		stats.Imported++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("import walk failed: %w", err)
	}
	return stats, nil
}

// importFile parses and stores a single note.
func (im *Importer) importFile(ctx context.Context, owner, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	note, err := ParseNote(data)
	if err != nil {
		return err
	}
	if note.Content == "" {
		return fmt.Errorf("note has no content")
	}

	importance := note.Importance
	if importance < 0 {
		importance = DefaultImportance
	}

	_, err = im.service.Store(ctx, owner, engine.StoreRequest{
		Content:    note.Content,
		Importance: importance,
		Category:   note.Category,
		Topics:     note.Topics,
		Timestamp:  note.Timestamp,
	})
	return err
}
