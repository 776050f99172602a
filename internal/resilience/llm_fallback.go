package resilience

import (
	"context"

	"github.com/markizano/asthralios/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] over a chain of LLM backends. Each
// backend has its own breaker; when the primary fails or its breaker is open,
// the next healthy standby is tried.
type LLMFallback struct {
	chain *Chain[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg ChainConfig) *LLMFallback {
	return &LLMFallback{
		chain: NewChain(primaryName, primary, cfg),
	}
}

// AddFallback registers an additional LLM backend as a standby.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.chain.Add(name, provider)
}

// Complete sends the message list to the first healthy backend and returns its
// reply. If the primary fails, standbys receive the same messages.
func (f *LLMFallback) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return Attempt(f.chain, func(p llm.Provider) (string, error) {
		return p.Complete(ctx, messages)
	})
}
