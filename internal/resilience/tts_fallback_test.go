package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/markizano/asthralios/pkg/provider/tts"
	ttsmock "github.com/markizano/asthralios/pkg/provider/tts/mock"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Provider{Samples: []float32{0.5}, SampleRate: 24000}
	secondary := &ttsmock.Provider{}

	f := NewTTSFallback(primary, "primary", ChainConfig{})
	f.AddFallback("secondary", secondary)

	samples, rate, err := f.Synthesize(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || rate != 24000 {
		t.Errorf("got %d samples at %d Hz, want 1 at 24000", len(samples), rate)
	}
	if len(secondary.Calls()) != 0 {
		t.Error("secondary was called although the primary succeeded")
	}
}

func TestTTSFallback_FailoverCarriesText(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("server gone")}
	secondary := &ttsmock.Provider{SampleRate: 22050}

	f := NewTTSFallback(primary, "primary", ChainConfig{})
	f.AddFallback("secondary", secondary)

	_, rate, err := f.Synthesize(context.Background(), "good morning", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 22050 {
		t.Errorf("rate = %d, want the secondary's 22050", rate)
	}

	calls := secondary.Calls()
	if len(calls) != 1 || calls[0].Text != "good morning" {
		t.Errorf("secondary calls = %v, want the original text", calls)
	}
}

func TestTTSFallback_AllFail(t *testing.T) {
	primary := &ttsmock.Provider{SynthesizeErr: errors.New("down")}

	f := NewTTSFallback(primary, "primary", ChainConfig{})

	_, _, err := f.Synthesize(context.Background(), "hello", "")
	if !errors.Is(err, ErrChainExhausted) {
		t.Errorf("error = %v, want ErrChainExhausted", err)
	}
}

func TestTTSFallback_ListVoices(t *testing.T) {
	primary := &ttsmock.Provider{ListVoicesErr: errors.New("down")}
	secondary := &ttsmock.Provider{Voices: []tts.VoiceProfile{{ID: "v1", Name: "Alfred"}}}

	f := NewTTSFallback(primary, "primary", ChainConfig{})
	f.AddFallback("secondary", secondary)

	voices, err := f.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "v1" {
		t.Errorf("voices = %v, want the secondary's catalogue", voices)
	}
}
