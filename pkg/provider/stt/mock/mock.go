// Package mock provides a test double for the stt package interfaces.
//
// Script Provider with a sequence of texts (or a single error) and inspect
// the recorded calls to verify what audio was submitted for transcription.
package mock

import (
	"context"
	"sync"

	"github.com/markizano/asthralios/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// SampleCount is the number of samples submitted.
	SampleCount int
	// Language is the language code passed by the caller.
	Language string
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Texts are returned one per Transcribe call, in order. Once exhausted
	// every further call returns an empty string.
	Texts []string

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// TranscribeCalls records every Transcribe invocation in order.
	TranscribeCalls []TranscribeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Compile-time check that *Provider satisfies stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns the next scripted text.
func (p *Provider) Transcribe(_ context.Context, samples []float32, language string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.TranscribeCalls)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{
		SampleCount: len(samples),
		Language:    language,
	})
	if p.TranscribeErr != nil {
		return "", p.TranscribeErr
	}
	if i < len(p.Texts) {
		return p.Texts[i], nil
	}
	return "", nil
}

// Close records the call and returns CloseErr.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCallCount++
	return p.CloseErr
}
