package config_test

import (
	"errors"
	"testing"

	"github.com/markizano/asthralios/internal/config"
	"github.com/markizano/asthralios/pkg/provider/llm"
	llmmock "github.com/markizano/asthralios/pkg/provider/llm/mock"
	"github.com/markizano/asthralios/pkg/provider/stt"
	sttmock "github.com/markizano/asthralios/pkg/provider/stt/mock"
)

func TestRegistryCreate(t *testing.T) {
	r := config.NewRegistry()

	var gotEntry config.ProviderEntry
	r.RegisterLLM("ollama", func(e config.ProviderEntry) (llm.Provider, error) {
		gotEntry = e
		return &llmmock.Provider{}, nil
	})

	entry := config.ProviderEntry{Name: "ollama", Model: "llama3.1"}
	p, err := r.CreateLLM(entry)
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if p == nil {
		t.Fatal("CreateLLM returned nil provider")
	}
	if gotEntry.Model != "llama3.1" {
		t.Errorf("factory entry = %+v", gotEntry)
	}
}

func TestRegistryUnregisteredName(t *testing.T) {
	r := config.NewRegistry()
	_, err := r.CreateSTT(config.ProviderEntry{Name: "parakeet"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestRegistryOverwrite(t *testing.T) {
	r := config.NewRegistry()
	first := &sttmock.Provider{}
	second := &sttmock.Provider{}
	r.RegisterSTT("whisper", func(config.ProviderEntry) (stt.Provider, error) { return first, nil })
	r.RegisterSTT("whisper", func(config.ProviderEntry) (stt.Provider, error) { return second, nil })

	p, err := r.CreateSTT(config.ProviderEntry{Name: "whisper"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if p != second {
		t.Error("later registration should win")
	}
}
