// Package postgres provides a PostgreSQL-backed [memory.Store] using the
// pgvector extension for cosine-similarity search.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it via CREATE EXTENSION IF NOT EXISTS and creates the documents
// table with the configured embedding dimension.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 768)
//	if err != nil { ... }
//	defer store.Close()
//
//	_ = store.UpsertBatch(ctx, docs)
//	results, _ := store.Search(ctx, queryVec, 5, memory.Filter{})
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/markizano/asthralios/pkg/memory"
)

// Compile-time check that *Store satisfies memory.Store.
var _ memory.Store = (*Store)(nil)

// Store is the PostgreSQL document store. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, registers pgvector types on
// every connection, and runs [Migrate].
//
// embeddingDimensions must match the output dimension of the configured
// embeddings model (e.g., 768 for nomic-embed-text). Changing it after the
// first migration requires a manual schema change.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// ddlDocuments returns the documents DDL with the embedding dimension
// substituted. The dimension is baked into the column type at creation time.
func ddlDocuments(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
    id           TEXT         PRIMARY KEY,
    source       TEXT         NOT NULL,
    chunk_index  INT          NOT NULL DEFAULT 0,
    content      TEXT         NOT NULL,
    embedding    vector(%d),
    content_type TEXT         NOT NULL DEFAULT '',
    ingested_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_source
    ON documents (source);

CREATE INDEX IF NOT EXISTS idx_documents_embedding
    ON documents USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the documents table and indexes if they do not exist.
// Idempotent and safe to run on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlDocuments(embeddingDimensions)); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

const upsertQuery = `
	INSERT INTO documents
	    (id, source, chunk_index, content, embedding, content_type, ingested_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
	    source       = EXCLUDED.source,
	    chunk_index  = EXCLUDED.chunk_index,
	    content      = EXCLUDED.content,
	    embedding    = EXCLUDED.embedding,
	    content_type = EXCLUDED.content_type,
	    ingested_at  = EXCLUDED.ingested_at`

// Upsert implements [memory.Store].
func (s *Store) Upsert(ctx context.Context, doc memory.Document) error {
	_, err := s.pool.Exec(ctx, upsertQuery,
		doc.ID,
		doc.Source,
		doc.ChunkIndex,
		doc.Content,
		pgvector.NewVector(doc.Embedding),
		doc.ContentType,
		doc.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres store: upsert %q: %w", doc.ID, err)
	}
	return nil
}

// UpsertBatch implements [memory.Store]. All documents are written inside a
// single transaction so a failed batch leaves the table untouched.
func (s *Store) UpsertBatch(ctx context.Context, docs []memory.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(upsertQuery,
			doc.ID,
			doc.Source,
			doc.ChunkIndex,
			doc.Content,
			pgvector.NewVector(doc.Embedding),
			doc.ContentType,
			doc.IngestedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres store: upsert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit batch: %w", err)
	}
	return nil
}

// Search implements [memory.Store]. Results are ordered by ascending cosine
// distance to the query embedding.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int, filter memory.Filter) ([]memory.Result, error) {
	args := []any{pgvector.NewVector(embedding)} // $1 = query vector
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conditions []string
	if filter.Source != "" {
		conditions = append(conditions, "source = "+next(filter.Source))
	}
	if filter.ContentType != "" {
		conditions = append(conditions, "content_type = "+next(filter.ContentType))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	q := fmt.Sprintf(`
		SELECT id, source, chunk_index, content, embedding, content_type, ingested_at,
		       embedding <=> $1 AS distance
		FROM   documents
		%s
		ORDER  BY distance
		LIMIT  %s`, whereClause, next(topK))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.Result, error) {
		var (
			r   memory.Result
			vec pgvector.Vector
		)
		if err := row.Scan(
			&r.Document.ID,
			&r.Document.Source,
			&r.Document.ChunkIndex,
			&r.Document.Content,
			&vec,
			&r.Document.ContentType,
			&r.Document.IngestedAt,
			&r.Distance,
		); err != nil {
			return memory.Result{}, err
		}
		r.Document.Embedding = vec.Slice()
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan rows: %w", err)
	}
	if results == nil {
		results = []memory.Result{}
	}
	return results, nil
}

// DeleteSource implements [memory.Store].
func (s *Store) DeleteSource(ctx context.Context, source string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE source = $1`, source); err != nil {
		return fmt.Errorf("postgres store: delete source %q: %w", source, err)
	}
	return nil
}

// Ping verifies the database connection is still usable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}
