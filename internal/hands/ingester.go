// Package hands ingests documents into the agent's vector memory.
//
// An [Ingester] walks a directory tree, converts each supported file to plain
// text, splits the text into overlapping chunks, embeds them, and upserts the
// result into a [memory.Store]. Re-ingesting a file replaces its previous
// chunks.
package hands

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/markizano/asthralios/internal/observe"
	"github.com/markizano/asthralios/pkg/memory"
	"github.com/markizano/asthralios/pkg/provider/embeddings"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 200
)

// Ingester loads documents, embeds them, and writes them to the store.
type Ingester struct {
	fsys      afero.Fs
	embedder  embeddings.Provider
	store     memory.Store
	chunkSize int
	overlap   int
	log       *slog.Logger
}

// Option is a functional option for Ingester.
type Option func(*Ingester)

// WithFs replaces the filesystem documents are read from. Defaults to the
// OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(in *Ingester) { in.fsys = fsys }
}

// WithChunking overrides the chunk size and overlap (in runes).
func WithChunking(chunkSize, overlap int) Option {
	return func(in *Ingester) {
		if chunkSize > 0 {
			in.chunkSize = chunkSize
		}
		if overlap >= 0 {
			in.overlap = overlap
		}
	}
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(in *Ingester) { in.log = log }
}

// NewIngester constructs an Ingester writing through embedder into store.
func NewIngester(embedder embeddings.Provider, store memory.Store, opts ...Option) (*Ingester, error) {
	if embedder == nil {
		return nil, fmt.Errorf("hands: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("hands: store must not be nil")
	}
	in := &Ingester{
		fsys:      afero.NewOsFs(),
		embedder:  embedder,
		store:     store,
		chunkSize: defaultChunkSize,
		overlap:   defaultOverlap,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(in)
	}
	return in, nil
}

// Ingest walks root and ingests every supported file. It returns the number
// of chunks written. Unsupported files are logged and skipped; a failing file
// aborts the walk.
func (in *Ingester) Ingest(ctx context.Context, root string) (int, error) {
	total := 0
	err := afero.Walk(in.fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("hands: walk %q: %w", path, err)
		}
		if info.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := in.ingestFile(ctx, path)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	return total, err
}

// IngestFile ingests a single file. Returns the number of chunks written,
// zero for unsupported extensions.
func (in *Ingester) IngestFile(ctx context.Context, path string) (int, error) {
	return in.ingestFile(ctx, path)
}

func (in *Ingester) ingestFile(ctx context.Context, path string) (int, error) {
	var n int
	err := observe.WithSpan(ctx, "ingest "+path, func(ctx context.Context) error {
		var err error
		n, err = in.replaceChunks(ctx, path)
		return err
	})
	return n, err
}

func (in *Ingester) replaceChunks(ctx context.Context, path string) (int, error) {
	text, contentType, supported, err := loadFile(in.fsys, path)
	if err != nil {
		return 0, err
	}
	if !supported {
		in.log.Warn("unsupported file type, skipping", "path", path)
		return 0, nil
	}

	chunks := splitText(text, in.chunkSize, in.overlap)
	if len(chunks) == 0 {
		in.log.Debug("file produced no text", "path", path)
		return 0, nil
	}

	vecs, err := in.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("hands: embed %q: %w", path, err)
	}

	now := time.Now().UTC()
	docs := make([]memory.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = memory.Document{
			ID:          chunkID(path, i),
			Source:      path,
			ChunkIndex:  i,
			Content:     chunk,
			Embedding:   vecs[i],
			ContentType: contentType,
			IngestedAt:  now,
		}
	}

	// Drop stale chunks first so shrinking files do not leave orphans.
	if err := in.store.DeleteSource(ctx, path); err != nil {
		return 0, fmt.Errorf("hands: replace %q: %w", path, err)
	}
	if err := in.store.UpsertBatch(ctx, docs); err != nil {
		return 0, fmt.Errorf("hands: upsert %q: %w", path, err)
	}

	in.log.Info("ingested file", "path", path, "chunks", len(docs), "type", contentType)
	return len(docs), nil
}

// Search embeds query and returns the topK closest chunks.
func (in *Ingester) Search(ctx context.Context, query string, topK int) ([]memory.Result, error) {
	vec, err := in.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("hands: embed query: %w", err)
	}
	results, err := in.store.Search(ctx, vec, topK, memory.Filter{})
	if err != nil {
		return nil, fmt.Errorf("hands: search: %w", err)
	}
	return results, nil
}

// chunkID derives a stable document ID from the source path and chunk index.
func chunkID(source string, index int) string {
	sum := sha256.Sum256([]byte(source))
	return fmt.Sprintf("%x-%d", sum[:8], index)
}
