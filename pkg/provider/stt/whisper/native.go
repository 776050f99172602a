// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/markizano/asthralios/pkg/provider/stt"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// Compile-time assertions that both providers satisfy stt.Provider.
var (
	_ stt.Provider = (*Provider)(nil)
	_ stt.Provider = (*NativeProvider)(nil)
)

// NativeProvider implements stt.Provider using the whisper.cpp Go bindings
// (CGO). The model is loaded once at construction and shared across calls;
// each Transcribe call creates its own whisper context, so concurrent calls
// do not interfere.
type NativeProvider struct {
	model    whisperlib.Model
	language string

	closeOnce sync.Once
	closeErr  error
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the default BCP-47 language code for transcription
// (e.g., "en", "de"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// NewNative creates a NativeProvider that loads the ggml model from the given
// file path. The caller must call Close when the provider is no longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &NativeProvider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe runs whisper.cpp inference over the samples using a fresh
// context and returns the concatenated segment text.
func (p *NativeProvider) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	if len(samples) == 0 {
		return "", nil
	}
	if language == "" {
		language = p.language
	}

	// A whisper context is not thread-safe but the model is shareable, so
	// each call gets its own.
	wctx, err := p.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(language); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", language,
			"err", err,
		)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// Close releases the whisper model. Calling Close more than once is safe.
func (p *NativeProvider) Close() error {
	p.closeOnce.Do(func() {
		if p.model != nil {
			p.closeErr = p.model.Close()
		}
	})
	return p.closeErr
}
