// Package memory defines the document-memory layer: a vector store over
// chunks of ingested documents.
//
// The ingester (internal/hands) walks a directory tree, splits each file into
// overlapping text chunks, embeds them, and upserts the result here. At
// conversation time the agent embeds a query and recalls the closest chunks
// by cosine similarity.
//
// Implementations must be safe for concurrent use.
package memory

import (
	"context"
	"time"
)

// Document is one embedded chunk of an ingested file.
type Document struct {
	// ID uniquely identifies the chunk. The ingester derives it from the
	// source path and chunk index so re-ingesting a file overwrites its old
	// chunks instead of duplicating them.
	ID string

	// Source is the path of the file this chunk came from.
	Source string

	// ChunkIndex is the zero-based position of this chunk within Source.
	ChunkIndex int

	// Content is the chunk's plain text.
	Content string

	// Embedding is the vector representation of Content. Its dimension must
	// match the store's configured embedding size.
	Embedding []float32

	// ContentType is the loader that produced the text ("markdown", "csv",
	// "html", ...).
	ContentType string

	// IngestedAt is when this chunk was written.
	IngestedAt time.Time
}

// Filter narrows a similarity search. Zero-valued fields match everything.
type Filter struct {
	// Source restricts results to chunks from one file.
	Source string

	// ContentType restricts results to one loader kind.
	ContentType string
}

// Result pairs a recalled document with its cosine distance from the query
// embedding. Lower distance means higher similarity.
type Result struct {
	Document Document
	Distance float64
}

// Store is the vector store the ingester writes to and the agent recalls
// from.
type Store interface {
	// Upsert stores doc, replacing any existing document with the same ID.
	Upsert(ctx context.Context, doc Document) error

	// UpsertBatch stores docs in one round-trip. Either all documents are
	// written or an error is returned.
	UpsertBatch(ctx context.Context, docs []Document) error

	// Search returns the topK documents closest to embedding, filtered by
	// filter and ordered by ascending distance. Returns an empty (non-nil)
	// slice when nothing matches.
	Search(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Result, error)

	// DeleteSource removes every chunk ingested from source. Deleting an
	// unknown source is not an error.
	DeleteSource(ctx context.Context, source string) error
}
