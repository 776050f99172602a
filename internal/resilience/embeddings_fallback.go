package resilience

import (
	"context"

	"github.com/markizano/asthralios/pkg/provider/embeddings"
)

// EmbeddingsFallback implements [embeddings.Provider] over a chain of
// embedding backends.
//
// All backends in one chain must produce vectors of the same dimensionality;
// the memory store's table is fixed to one width. Dimensions and ModelID
// report the primary's values without participating in failover because they
// are static metadata.
type EmbeddingsFallback struct {
	chain *Chain[embeddings.Provider]
}

// Compile-time interface assertion.
var _ embeddings.Provider = (*EmbeddingsFallback)(nil)

// NewEmbeddingsFallback creates an [EmbeddingsFallback] with primary as the
// preferred backend.
func NewEmbeddingsFallback(primary embeddings.Provider, primaryName string, cfg ChainConfig) *EmbeddingsFallback {
	return &EmbeddingsFallback{
		chain: NewChain(primaryName, primary, cfg),
	}
}

// AddFallback registers an additional embedding backend as a standby.
func (f *EmbeddingsFallback) AddFallback(name string, provider embeddings.Provider) {
	f.chain.Add(name, provider)
}

// Embed produces one vector on the first healthy backend.
func (f *EmbeddingsFallback) Embed(ctx context.Context, text string) ([]float32, error) {
	return Attempt(f.chain, func(p embeddings.Provider) ([]float32, error) {
		return p.Embed(ctx, text)
	})
}

// EmbedBatch produces one vector per text on the first healthy backend.
func (f *EmbeddingsFallback) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return Attempt(f.chain, func(p embeddings.Provider) ([][]float32, error) {
		return p.EmbedBatch(ctx, texts)
	})
}

// Dimensions reports the primary backend's vector width.
func (f *EmbeddingsFallback) Dimensions() int {
	return f.chain.Primary().Dimensions()
}

// ModelID reports the primary backend's model identifier.
func (f *EmbeddingsFallback) ModelID() string {
	return f.chain.Primary().ModelID()
}
