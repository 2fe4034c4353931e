package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scrypster/engram/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Read(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Read error = %v, want ErrNotFound", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"memories":[]}`)
	if err := store.Write(ctx, "user-1", payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, "user-1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read = %q, want %q", got, payload)
	}
}

func TestWriteReplacesPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "user-1", []byte("old")); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := store.Write(ctx, "user-1", []byte("new")); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	got, err := store.Read(ctx, "user-1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("Read = %q, want %q", got, "new")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Write(context.Background(), "user-1", []byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "user-1"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("owner dir has %d entries, want 1", len(entries))
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "user-1", []byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("first Delete: %v", err)
	}
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}

	if _, err := store.Read(ctx, "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Read after delete error = %v, want ErrNotFound", err)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "alice", []byte("alice-data")); err != nil {
		t.Fatalf("Write alice: %v", err)
	}
	if err := store.Write(ctx, "bob", []byte("bob-data")); err != nil {
		t.Fatalf("Write bob: %v", err)
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete alice: %v", err)
	}

	got, err := store.Read(ctx, "bob")
	if err != nil {
		t.Fatalf("Read bob: %v", err)
	}
	if string(got) != "bob-data" {
		t.Errorf("bob's data = %q, want %q", got, "bob-data")
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		want       string // exact match; empty when wantPrefix is used instead
		wantPrefix string // altered keys carry a hash suffix after this prefix
		wantErr    bool
	}{
		{name: "plain", key: "user-1", want: "user-1"},
		{name: "path separators flattened", key: "a/b\\c", wantPrefix: "a-b-c-"},
		{name: "parent escape neutralised", key: "../../etc", wantPrefix: "..-..-etc-"},
		{name: "empty", key: "  ", wantErr: true},
		{name: "dots only", key: "..", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, storage.ErrInvalidInput) {
					t.Errorf("sanitizeKey(%q) error = %v, want ErrInvalidInput", tt.key, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitizeKey(%q): %v", tt.key, err)
			}
			if tt.wantPrefix != "" {
				if !strings.HasPrefix(got, tt.wantPrefix) {
					t.Errorf("sanitizeKey(%q) = %q, want prefix %q", tt.key, got, tt.wantPrefix)
				}
				if strings.ContainsAny(got, "/\\") {
					t.Errorf("sanitizeKey(%q) = %q contains a path separator", tt.key, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("sanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestSanitizeKeyDistinctKeysNeverCollide(t *testing.T) {
	// "a/b" flattens to the same text as the literal key "a-b"; the hash
	// suffix must keep their directories apart.
	flattened, err := sanitizeKey("a/b")
	if err != nil {
		t.Fatalf("sanitizeKey(a/b): %v", err)
	}
	literal, err := sanitizeKey("a-b")
	if err != nil {
		t.Fatalf("sanitizeKey(a-b): %v", err)
	}
	if flattened == literal {
		t.Errorf("sanitizeKey(a/b) and sanitizeKey(a-b) both map to %q", flattened)
	}
}

func TestOwnersWithCollidingSanitizedKeysStayIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, "a/b", []byte("slash-data")); err != nil {
		t.Fatalf("Write a/b: %v", err)
	}
	if err := store.Write(ctx, "a-b", []byte("dash-data")); err != nil {
		t.Fatalf("Write a-b: %v", err)
	}

	got, err := store.Read(ctx, "a/b")
	if err != nil {
		t.Fatalf("Read a/b: %v", err)
	}
	if string(got) != "slash-data" {
		t.Errorf("a/b data = %q, want %q", got, "slash-data")
	}

	got, err = store.Read(ctx, "a-b")
	if err != nil {
		t.Fatalf("Read a-b: %v", err)
	}
	if string(got) != "dash-data" {
		t.Errorf("a-b data = %q, want %q", got, "dash-data")
	}
}
