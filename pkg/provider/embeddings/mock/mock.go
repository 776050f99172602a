// Package mock provides a test double for the embeddings package.
package mock

import (
	"context"
	"sync"

	"github.com/markizano/asthralios/pkg/provider/embeddings"
)

// Provider is a mock implementation of embeddings.Provider.
//
// By default it returns a deterministic vector derived from the text length,
// so distinct inputs get distinct (but reproducible) embeddings. Set Vectors
// to script exact results keyed by input text.
type Provider struct {
	mu sync.Mutex

	// Dims is the dimension of generated vectors. Defaults to 4.
	Dims int

	// Model is returned by ModelID. Defaults to "mock-embed".
	Model string

	// Vectors maps input text to a scripted result, overriding generation.
	Vectors map[string][]float32

	// EmbedErr, if non-nil, is returned by Embed and EmbedBatch.
	EmbedErr error

	// EmbedCalls records every text passed to Embed or EmbedBatch, in order.
	EmbedCalls []string
}

// Compile-time check that *Provider satisfies embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)

// Embed records the call and returns the scripted or generated vector.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, text)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vectorFor(text), nil
}

// EmbedBatch records every text and returns one vector per input.
func (p *Provider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EmbedCalls = append(p.EmbedCalls, texts...)
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = p.vectorFor(t)
	}
	return vecs, nil
}

// Dimensions returns Dims, defaulting to 4.
func (p *Provider) Dimensions() int {
	if p.Dims == 0 {
		return 4
	}
	return p.Dims
}

// ModelID returns Model, defaulting to "mock-embed".
func (p *Provider) ModelID() string {
	if p.Model == "" {
		return "mock-embed"
	}
	return p.Model
}

// Calls returns a snapshot of every embedded text.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.EmbedCalls...)
}

func (p *Provider) vectorFor(text string) []float32 {
	if v, ok := p.Vectors[text]; ok {
		return append([]float32(nil), v...)
	}
	vec := make([]float32, p.Dimensions())
	seed := float32(len(text)%16) / 16
	for i := range vec {
		vec[i] = seed + float32(i)*0.01
	}
	return vec
}
