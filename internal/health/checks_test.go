package health

import (
	"context"
	"errors"
	"testing"

	llmmock "github.com/markizano/asthralios/pkg/provider/llm/mock"
	ttsmock "github.com/markizano/asthralios/pkg/provider/tts/mock"
)

func TestCheckTTS(t *testing.T) {
	ok := CheckTTS(&ttsmock.Provider{})
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("healthy tts reported %v", err)
	}

	bad := CheckTTS(&ttsmock.Provider{ListVoicesErr: errors.New("refused")})
	if err := bad.Check(context.Background()); err == nil {
		t.Error("unreachable tts reported healthy")
	}
	if ok.Name != "tts" {
		t.Errorf("check name = %q, want tts", ok.Name)
	}
}

func TestCheckLLM(t *testing.T) {
	provider := &llmmock.Provider{Reply: "ok"}
	if err := CheckLLM(provider).Check(context.Background()); err != nil {
		t.Errorf("healthy llm reported %v", err)
	}
	if len(provider.Calls()) != 1 {
		t.Errorf("llm probe made %d calls, want 1", len(provider.Calls()))
	}

	bad := CheckLLM(&llmmock.Provider{CompleteErr: errors.New("model not loaded")})
	if err := bad.Check(context.Background()); err == nil {
		t.Error("failing llm reported healthy")
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestCheckMemory(t *testing.T) {
	if err := CheckMemory(fakePinger{}).Check(context.Background()); err != nil {
		t.Errorf("healthy store reported %v", err)
	}
	if err := CheckMemory(fakePinger{err: errors.New("connection reset")}).Check(context.Background()); err == nil {
		t.Error("failing store reported healthy")
	}
}
