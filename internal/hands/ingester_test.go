package hands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/markizano/asthralios/internal/hands"
	memmock "github.com/markizano/asthralios/pkg/memory/mock"
	embmock "github.com/markizano/asthralios/pkg/provider/embeddings/mock"
)

func newIngester(t *testing.T, fsys afero.Fs, embedder *embmock.Provider, store *memmock.Store) *hands.Ingester {
	t.Helper()
	in, err := hands.NewIngester(embedder, store, hands.WithFs(fsys))
	if err != nil {
		t.Fatalf("NewIngester: %v", err)
	}
	return in
}

func TestNewIngesterValidation(t *testing.T) {
	if _, err := hands.NewIngester(nil, memmock.NewStore()); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := hands.NewIngester(&embmock.Provider{}, nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestIngestWalksTree(t *testing.T) {
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"docs/readme.md":     "# Asthralios\n\nA voice assistant.",
		"docs/sub/notes.txt": "remember the milk",
		"docs/skipme.bin":    "binary blob",
		"docs/sub/data.yaml": "key: value",
	}
	for path, content := range files {
		if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %q: %v", path, err)
		}
	}

	store := memmock.NewStore()
	in := newIngester(t, fsys, &embmock.Provider{}, store)

	n, err := in.Ingest(context.Background(), "docs")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 3 {
		t.Errorf("ingested %d chunks, want 3 (one per supported file)", n)
	}
	if store.Len() != 3 {
		t.Errorf("store holds %d documents, want 3", store.Len())
	}

	sources := map[string]bool{}
	for _, doc := range store.Docs {
		sources[doc.Source] = true
		if doc.ID == "" || doc.Content == "" || len(doc.Embedding) == 0 {
			t.Errorf("incomplete document: %+v", doc)
		}
	}
	if sources["docs/skipme.bin"] {
		t.Error("unsupported file was ingested")
	}
}

func TestIngestFileReplacesOldChunks(t *testing.T) {
	fsys := afero.NewMemMapFs()
	long := make([]byte, 2500)
	for i := range long {
		long[i] = 'a'
	}
	if err := afero.WriteFile(fsys, "big.txt", long, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := memmock.NewStore()
	in := newIngester(t, fsys, &embmock.Provider{}, store)

	n1, err := in.IngestFile(context.Background(), "big.txt")
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n1 < 2 {
		t.Fatalf("long file produced %d chunks, want several", n1)
	}

	// Shrink the file; re-ingest must not leave stale chunks behind.
	if err := afero.WriteFile(fsys, "big.txt", []byte("tiny now"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	n2, err := in.IngestFile(context.Background(), "big.txt")
	if err != nil {
		t.Fatalf("IngestFile (again): %v", err)
	}
	if n2 != 1 {
		t.Errorf("re-ingest produced %d chunks, want 1", n2)
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d documents after shrink, want 1", store.Len())
	}
}

func TestIngestEmbedFailureAborts(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "a.txt", []byte("text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	embedder := &embmock.Provider{EmbedErr: errors.New("ollama down")}
	store := memmock.NewStore()
	in := newIngester(t, fsys, embedder, store)

	if _, err := in.Ingest(context.Background(), "a.txt"); err == nil {
		t.Fatal("expected embed error")
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d documents after failure, want 0", store.Len())
	}
}

func TestSearchEmbedsQuery(t *testing.T) {
	fsys := afero.NewMemMapFs()
	store := memmock.NewStore()
	embedder := &embmock.Provider{}
	in := newIngester(t, fsys, embedder, store)

	if err := afero.WriteFile(fsys, "a.txt", []byte("the kettle is on"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := in.IngestFile(context.Background(), "a.txt"); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}

	results, err := in.Search(context.Background(), "kettle", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	calls := embedder.Calls()
	if calls[len(calls)-1] != "kettle" {
		t.Errorf("last embedded text = %q, want query", calls[len(calls)-1])
	}
}
