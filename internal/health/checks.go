package health

import (
	"context"
	"fmt"

	"github.com/markizano/asthralios/pkg/provider/llm"
	"github.com/markizano/asthralios/pkg/provider/tts"
)

// Pinger is the probe surface of the memory store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckTTS probes the synthesis backend by listing its voice catalogue, which
// exercises the full HTTP round-trip without producing audio.
func CheckTTS(p tts.Provider) Checker {
	return Checker{
		Name: "tts",
		Check: func(ctx context.Context) error {
			if _, err := p.ListVoices(ctx); err != nil {
				return fmt.Errorf("health: tts voice list: %w", err)
			}
			return nil
		},
	}
}

// CheckLLM probes the dialogue backend with a one-word completion. The
// Provider surface offers no cheaper call, so readiness costs one tiny
// inference.
func CheckLLM(p llm.Provider) Checker {
	return Checker{
		Name: "llm",
		Check: func(ctx context.Context) error {
			_, err := p.Complete(ctx, []llm.Message{
				{Role: llm.RoleSystem, Content: "Reply with the single word: ok"},
				{Role: llm.RoleUser, Content: "ok"},
			})
			if err != nil {
				return fmt.Errorf("health: llm completion: %w", err)
			}
			return nil
		},
	}
}

// CheckMemory probes the document store connection.
func CheckMemory(p Pinger) Checker {
	return Checker{
		Name: "memory",
		Check: func(ctx context.Context) error {
			if err := p.Ping(ctx); err != nil {
				return fmt.Errorf("health: memory store: %w", err)
			}
			return nil
		},
	}
}
