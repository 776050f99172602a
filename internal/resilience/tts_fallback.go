package resilience

import (
	"context"

	"github.com/markizano/asthralios/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] over a chain of synthesis backends.
// Each backend has its own breaker.
type TTSFallback struct {
	chain *Chain[tts.Provider]
}

// Compile-time interface assertion.
var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg ChainConfig) *TTSFallback {
	return &TTSFallback{
		chain: NewChain(primaryName, primary, cfg),
	}
}

// AddFallback registers an additional synthesis backend as a standby.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.chain.Add(name, provider)
}

// synthResult carries both return values of Synthesize through the generic
// failover helper.
type synthResult struct {
	samples []float32
	rate    int
}

// Synthesize renders text on the first healthy backend. Different backends
// may answer at different sample rates; the playback path converts.
func (f *TTSFallback) Synthesize(ctx context.Context, text, language string) ([]float32, int, error) {
	res, err := Attempt(f.chain, func(p tts.Provider) (synthResult, error) {
		samples, rate, err := p.Synthesize(ctx, text, language)
		return synthResult{samples: samples, rate: rate}, err
	})
	return res.samples, res.rate, err
}

// ListVoices returns available voices from the first healthy backend.
func (f *TTSFallback) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	return Attempt(f.chain, func(p tts.Provider) ([]tts.VoiceProfile, error) {
		return p.ListVoices(ctx)
	})
}
