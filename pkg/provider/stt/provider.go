// Package stt defines the Provider interface for speech-to-text backends.
//
// Providers transcribe one finished utterance at a time: the duplex pipeline
// already segments the microphone stream into speech spans, so there is no
// streaming session to manage. Samples are normalized mono float32 in [-1, 1]
// at the rate the provider was configured for (16 kHz for whisper).
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts an utterance's samples to text. language is a
	// BCP-47 code ("en", "de"); empty lets the provider pick its default.
	// An utterance with no recognizable speech yields an empty string and a
	// nil error.
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)

	// Close releases the provider's model or connection. Calling Close more
	// than once is safe.
	Close() error
}
