package resilience

import (
	"context"
	"errors"

	"github.com/markizano/asthralios/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] over a chain of transcription
// backends. Each backend has its own breaker; when the primary fails or its
// breaker is open, the next healthy standby is tried.
type STTFallback struct {
	chain *Chain[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg ChainConfig) *STTFallback {
	return &STTFallback{
		chain: NewChain(primaryName, primary, cfg),
	}
}

// AddFallback registers an additional transcription backend as a standby.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.chain.Add(name, provider)
}

// Transcribe submits the utterance to the first healthy backend and returns
// its text. If the primary fails, standbys are tried with the same samples.
func (f *STTFallback) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	return Attempt(f.chain, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, samples, language)
	})
}

// Close releases every backend in the chain, joining their errors.
func (f *STTFallback) Close() error {
	var errs []error
	f.chain.Each(func(_ string, p stt.Provider) {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
