// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// An embeddings provider maps text to dense float32 vectors. The memory layer
// stores these vectors alongside ingested document chunks and uses
// cosine-similarity search to recall relevant passages during a conversation.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by one Provider instance share the dimensionality
// reported by Dimensions. Vectors from different providers (or models) live
// in different spaces and must not be compared against each other.
type Provider interface {
	// Embed computes the embedding vector for a single text string.
	// The text is passed to the model verbatim; any model-specific prefixes
	// ("query: ", "passage: ") are the caller's responsibility.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for a slice of texts in one provider call.
	// The result is ordered like texts; on error the whole result is nil,
	// partial results are never returned. An empty texts slice returns
	// (nil, nil) without a network round-trip.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces, determined by the underlying model.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging
	// and for verifying that stored vectors match the active model.
	ModelID() string
}
