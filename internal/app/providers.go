package app

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/markizano/asthralios/internal/config"
	"github.com/markizano/asthralios/internal/resilience"
	"github.com/markizano/asthralios/pkg/provider/embeddings"
	embollama "github.com/markizano/asthralios/pkg/provider/embeddings/ollama"
	embopenai "github.com/markizano/asthralios/pkg/provider/embeddings/openai"
	"github.com/markizano/asthralios/pkg/provider/llm"
	"github.com/markizano/asthralios/pkg/provider/llm/anyllm"
	"github.com/markizano/asthralios/pkg/provider/stt"
	"github.com/markizano/asthralios/pkg/provider/stt/whisper"
	"github.com/markizano/asthralios/pkg/provider/tts"
	"github.com/markizano/asthralios/pkg/provider/tts/coqui"
	"github.com/markizano/asthralios/pkg/provider/vad"
	"github.com/markizano/asthralios/pkg/provider/vad/flux"
)

// Providers holds one interface value per collaborator slot. Embeddings may
// be nil when no memory store is configured; the rest are required.
type Providers struct {
	STT        stt.Provider
	TTS        tts.Provider
	LLM        llm.Provider
	Embeddings embeddings.Provider
	VAD        vad.Engine
}

// NewRegistry returns a provider registry with every built-in backend
// registered under the names the config validator knows.
func NewRegistry() *config.Registry {
	r := config.NewRegistry()

	r.RegisterSTT("whisper", func(e config.ProviderEntry) (stt.Provider, error) {
		if e.BaseURL == "" {
			return nil, fmt.Errorf("app: whisper stt needs base_url")
		}
		var opts []whisper.Option
		if e.Model != "" {
			opts = append(opts, whisper.WithModel(e.Model))
		}
		return whisper.New(e.BaseURL, opts...)
	})
	r.RegisterSTT("whisper-native", func(e config.ProviderEntry) (stt.Provider, error) {
		path := e.StringOption("model_path", e.Model)
		return whisper.NewNative(path)
	})

	r.RegisterTTS("coqui", func(e config.ProviderEntry) (tts.Provider, error) {
		return newCoqui(e, coqui.APIModeStandard)
	})
	r.RegisterTTS("coqui-xtts", func(e config.ProviderEntry) (tts.Provider, error) {
		return newCoqui(e, coqui.APIModeXTTS)
	})

	// Every any-llm-go backend shares one factory shape.
	for _, name := range []string{
		"ollama", "openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		backend := name
		r.RegisterLLM(backend, func(e config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if e.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(e.BaseURL))
			}
			return anyllm.New(backend, e.Model, opts...)
		})
	}

	r.RegisterEmbeddings("ollama", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embollama.New(e.BaseURL, e.Model)
	})
	r.RegisterEmbeddings("openai", func(e config.ProviderEntry) (embeddings.Provider, error) {
		return embopenai.New(e.APIKey, e.Model)
	})

	r.RegisterVAD("flux", func(config.ProviderEntry) (vad.Engine, error) {
		return flux.New(), nil
	})

	return r
}

// BuildProviders creates every configured collaborator through the registry.
// An entry with a fallback block becomes a resilience chain that fails over
// to the standbys. The embeddings slot stays nil when no memory store is
// configured, so a voice-only setup does not need an embedding backend
// running.
func BuildProviders(cfg *config.Config, r *config.Registry) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.STT, err = buildSTT(r, cfg.Providers.STT); err != nil {
		return nil, fmt.Errorf("app: stt provider: %w", err)
	}
	if p.TTS, err = buildTTS(r, cfg.Providers.TTS); err != nil {
		return nil, fmt.Errorf("app: tts provider: %w", err)
	}
	if p.LLM, err = buildLLM(r, cfg.Providers.LLM); err != nil {
		return nil, fmt.Errorf("app: llm provider: %w", err)
	}
	if p.VAD, err = r.CreateVAD(cfg.Providers.VAD); err != nil {
		return nil, fmt.Errorf("app: vad engine: %w", err)
	}
	if cfg.Memory.PostgresDSN != "" {
		if p.Embeddings, err = buildEmbeddings(r, cfg.Providers.Embeddings); err != nil {
			return nil, fmt.Errorf("app: embeddings provider: %w", err)
		}
	}
	return p, nil
}

func buildSTT(r *config.Registry, entry config.ProviderEntry) (stt.Provider, error) {
	primary, err := r.CreateSTT(entry)
	if err != nil || entry.Fallback == nil {
		return primary, err
	}
	chain := resilience.NewSTTFallback(primary, entry.Name, resilience.ChainConfig{})
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		standby, err := r.CreateSTT(*fb)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", fb.Name, err)
		}
		chain.AddFallback(fb.Name, standby)
	}
	return chain, nil
}

func buildTTS(r *config.Registry, entry config.ProviderEntry) (tts.Provider, error) {
	primary, err := r.CreateTTS(entry)
	if err != nil || entry.Fallback == nil {
		return primary, err
	}
	chain := resilience.NewTTSFallback(primary, entry.Name, resilience.ChainConfig{})
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		standby, err := r.CreateTTS(*fb)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", fb.Name, err)
		}
		chain.AddFallback(fb.Name, standby)
	}
	return chain, nil
}

func buildLLM(r *config.Registry, entry config.ProviderEntry) (llm.Provider, error) {
	primary, err := r.CreateLLM(entry)
	if err != nil || entry.Fallback == nil {
		return primary, err
	}
	chain := resilience.NewLLMFallback(primary, entry.Name, resilience.ChainConfig{})
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		standby, err := r.CreateLLM(*fb)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", fb.Name, err)
		}
		chain.AddFallback(fb.Name, standby)
	}
	return chain, nil
}

func buildEmbeddings(r *config.Registry, entry config.ProviderEntry) (embeddings.Provider, error) {
	primary, err := r.CreateEmbeddings(entry)
	if err != nil || entry.Fallback == nil {
		return primary, err
	}
	chain := resilience.NewEmbeddingsFallback(primary, entry.Name, resilience.ChainConfig{})
	for fb := entry.Fallback; fb != nil; fb = fb.Fallback {
		standby, err := r.CreateEmbeddings(*fb)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", fb.Name, err)
		}
		chain.AddFallback(fb.Name, standby)
	}
	return chain, nil
}

func newCoqui(e config.ProviderEntry, mode coqui.APIMode) (tts.Provider, error) {
	if e.BaseURL == "" {
		return nil, fmt.Errorf("app: coqui tts needs base_url")
	}
	opts := []coqui.Option{coqui.WithAPIMode(mode)}
	if voice := e.StringOption("voice", ""); voice != "" {
		opts = append(opts, coqui.WithVoice(voice))
	}
	return coqui.New(e.BaseURL, opts...)
}
