// Package mock provides a test double for the tts package interfaces.
//
// Script Provider with canned samples (or an error) and inspect the recorded
// calls to verify what text was synthesized.
package mock

import (
	"context"
	"sync"

	"github.com/markizano/asthralios/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Provider.Synthesize.
type SynthesizeCall struct {
	Text     string
	Language string
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Samples and SampleRate are returned by every Synthesize call. When
	// Samples is nil a short non-silent clip is returned so playback paths
	// have something to write.
	Samples    []float32
	SampleRate int

	// SynthesizeErr, if non-nil, is returned by every Synthesize call.
	SynthesizeErr error

	// Voices is returned by ListVoices.
	Voices []tts.VoiceProfile

	// ListVoicesErr, if non-nil, is returned by ListVoices.
	ListVoicesErr error

	// SynthesizeCalls records every Synthesize invocation in order.
	SynthesizeCalls []SynthesizeCall
}

// Compile-time check that *Provider satisfies tts.Provider.
var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns the scripted samples.
func (p *Provider) Synthesize(_ context.Context, text, language string) ([]float32, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Text: text, Language: language})
	if p.SynthesizeErr != nil {
		return nil, 0, p.SynthesizeErr
	}
	samples := p.Samples
	rate := p.SampleRate
	if samples == nil {
		samples = []float32{0.1, 0.2, 0.3, 0.2}
	}
	if rate == 0 {
		rate = 22050
	}
	return append([]float32(nil), samples...), rate, nil
}

// ListVoices returns the scripted voice catalogue.
func (p *Provider) ListVoices(context.Context) ([]tts.VoiceProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ListVoicesErr != nil {
		return nil, p.ListVoicesErr
	}
	return append([]tts.VoiceProfile(nil), p.Voices...), nil
}

// Calls returns a snapshot of all Synthesize invocations so far.
func (p *Provider) Calls() []SynthesizeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SynthesizeCall(nil), p.SynthesizeCalls...)
}
