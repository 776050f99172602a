// Package tts defines the Provider interface for text-to-speech backends.
//
// Providers synthesize one reply fragment at a time into normalized mono
// float32 samples; the duplex pipeline handles fragment ordering, format
// conversion and playback. Implementations must be safe for concurrent use —
// the pipeline synthesizes several fragments in parallel.
package tts

import "context"

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text to mono samples in [-1, 1] and reports the
	// sample rate they carry. language is a BCP-47 code; empty lets the
	// provider use its default.
	Synthesize(ctx context.Context, text, language string) ([]float32, int, error)

	// ListVoices returns the provider's current voice catalogue. The list may
	// change between calls if the underlying service adds or removes voices.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}

// VoiceProfile identifies one synthesis voice offered by a provider.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier used in synthesis requests.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Provider names the backend this voice belongs to (e.g., "coqui").
	Provider string

	// Metadata carries provider-specific details (model name, voice type).
	Metadata map[string]string
}
