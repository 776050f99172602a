package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/markizano/asthralios/pkg/provider/llm"
	llmmock "github.com/markizano/asthralios/pkg/provider/llm/mock"
)

func TestLLMFallback_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Provider{Reply: "from primary"}
	secondary := &llmmock.Provider{Reply: "from secondary"}

	f := NewLLMFallback(primary, "primary", ChainConfig{})
	f.AddFallback("secondary", secondary)

	got, err := f.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from primary" {
		t.Errorf("reply = %q, want %q", got, "from primary")
	}
	if len(secondary.Calls()) != 0 {
		t.Error("secondary was called although the primary succeeded")
	}
}

func TestLLMFallback_FailoverToSecondary(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("backend down")}
	secondary := &llmmock.Provider{Reply: "from secondary"}

	f := NewLLMFallback(primary, "primary", ChainConfig{})
	f.AddFallback("secondary", secondary)

	messages := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	got, err := f.Complete(context.Background(), messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from secondary" {
		t.Errorf("reply = %q, want %q", got, "from secondary")
	}

	calls := secondary.Calls()
	if len(calls) != 1 || len(calls[0]) != 1 || calls[0][0].Content != "hi" {
		t.Errorf("secondary did not receive the original messages: %v", calls)
	}
}

func TestLLMFallback_AllFail(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("down")}
	secondary := &llmmock.Provider{CompleteErr: errors.New("also down")}

	f := NewLLMFallback(primary, "primary", ChainConfig{})
	f.AddFallback("secondary", secondary)

	_, err := f.Complete(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if !errors.Is(err, ErrChainExhausted) {
		t.Errorf("error = %v, want ErrChainExhausted", err)
	}
}

func TestLLMFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("down")}
	secondary := &llmmock.Provider{Reply: "ok"}

	f := NewLLMFallback(primary, "primary", ChainConfig{
		Breaker: BreakerConfig{Trip: 2},
	})
	f.AddFallback("secondary", secondary)

	ctx := context.Background()
	messages := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}
	for range 3 {
		if _, err := f.Complete(ctx, messages); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Two failures trip the primary's breaker; the third call must not
	// reach it.
	if got := len(primary.Calls()); got != 2 {
		t.Errorf("primary calls = %d, want 2", got)
	}
	if got := len(secondary.Calls()); got != 3 {
		t.Errorf("secondary calls = %d, want 3", got)
	}
}
