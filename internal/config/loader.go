package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"whisper", "whisper-native"},
	"tts":        {"coqui", "coqui-xtts"},
	"llm":        {"ollama", "openai", "anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"ollama", "openai"},
	"vad":        {"flux"},
}

// Load reads the YAML configuration file at path, expands ${ENV} references,
// and returns a validated [Config] with defaults applied.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Unlike [Load] it performs no ${ENV} expansion, which
// keeps tests hermetic.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}

	if cfg.Audio.Capture.SampleRate == 0 {
		cfg.Audio.Capture.SampleRate = 16000
	}
	if cfg.Audio.Capture.Channels == 0 {
		cfg.Audio.Capture.Channels = 1
	}
	if cfg.Audio.Capture.FrameSize == 0 {
		cfg.Audio.Capture.FrameSize = 480
	}
	if cfg.Audio.Playback.SampleRate == 0 {
		cfg.Audio.Playback.SampleRate = 22050
	}
	if cfg.Audio.Playback.Channels == 0 {
		cfg.Audio.Playback.Channels = 1
	}
	if cfg.Audio.Playback.FrameSize == 0 {
		cfg.Audio.Playback.FrameSize = 1024
	}

	if cfg.Listening.SpeechThreshold == 0 {
		cfg.Listening.SpeechThreshold = 0.3
	}
	if cfg.Listening.SilenceTimeoutMs == 0 {
		cfg.Listening.SilenceTimeoutMs = 2000
	}
	if cfg.Listening.MinSpeechMs == 0 {
		cfg.Listening.MinSpeechMs = 450
	}
	if cfg.Listening.PadMs == 0 {
		cfg.Listening.PadMs = 250
	}

	if cfg.Conversation.Language == "" {
		cfg.Conversation.Language = "en"
	}
	if cfg.Conversation.Greeting == "" {
		cfg.Conversation.Greeting = "Good morning."
	}
	if cfg.Conversation.Farewell == "" {
		cfg.Conversation.Farewell = "Goodbye."
	}
	if cfg.Conversation.MaxTurns == 0 {
		cfg.Conversation.MaxTurns = 32
	}
	if cfg.Conversation.SynthWorkers == 0 {
		cfg.Conversation.SynthWorkers = 4
	}

	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = "whisper"
	}
	if cfg.Providers.TTS.Name == "" {
		cfg.Providers.TTS.Name = "coqui"
	}
	if cfg.Providers.LLM.Name == "" {
		cfg.Providers.LLM.Name = "ollama"
	}
	if cfg.Providers.VAD.Name == "" {
		cfg.Providers.VAD.Name = "flux"
	}

	if cfg.Recorder.Dir == "" {
		cfg.Recorder.Dir = "data/samples"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	for _, dev := range []struct {
		name string
		cfg  DeviceConfig
	}{
		{"audio.capture", cfg.Audio.Capture},
		{"audio.playback", cfg.Audio.Playback},
	} {
		if dev.cfg.SampleRate <= 0 {
			errs = append(errs, fmt.Errorf("%s.sample_rate must be positive, got %d", dev.name, dev.cfg.SampleRate))
		}
		if dev.cfg.Channels < 1 || dev.cfg.Channels > 2 {
			errs = append(errs, fmt.Errorf("%s.channels must be 1 or 2, got %d", dev.name, dev.cfg.Channels))
		}
		if dev.cfg.FrameSize <= 0 {
			errs = append(errs, fmt.Errorf("%s.frame_size must be positive, got %d", dev.name, dev.cfg.FrameSize))
		}
	}

	if t := cfg.Listening.SpeechThreshold; t <= 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("listening.speech_threshold %.2f is out of range (0, 1)", t))
	} else if t < 0.1 || t > 0.8 {
		slog.Warn("listening.speech_threshold is outside the usual range [0.1, 0.8]", "threshold", t)
	}
	if ms := cfg.Listening.SilenceTimeoutMs; ms < 200 || ms > 3000 {
		errs = append(errs, fmt.Errorf("listening.silence_timeout_ms %d is out of range [200, 3000]", ms))
	}
	if cfg.Listening.MinSpeechMs < 0 {
		errs = append(errs, fmt.Errorf("listening.min_speech_ms must not be negative, got %d", cfg.Listening.MinSpeechMs))
	}
	if cfg.Listening.PadMs < 0 {
		errs = append(errs, fmt.Errorf("listening.pad_ms must not be negative, got %d", cfg.Listening.PadMs))
	}

	if cfg.Conversation.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("conversation.max_turns must be positive, got %d", cfg.Conversation.MaxTurns))
	}
	if cfg.Conversation.SynthWorkers < 1 {
		errs = append(errs, fmt.Errorf("conversation.synth_workers must be positive, got %d", cfg.Conversation.SynthWorkers))
	}

	for _, prov := range []struct {
		kind  string
		entry ProviderEntry
	}{
		{"stt", cfg.Providers.STT},
		{"tts", cfg.Providers.TTS},
		{"llm", cfg.Providers.LLM},
		{"embeddings", cfg.Providers.Embeddings},
		{"vad", cfg.Providers.VAD},
	} {
		validateProviderName(prov.kind, prov.entry.Name)
		for fb := prov.entry.Fallback; fb != nil; fb = fb.Fallback {
			if fb.Name == "" {
				errs = append(errs, fmt.Errorf("providers.%s: fallback entry needs a name", prov.kind))
				break
			}
			validateProviderName(prov.kind, fb.Name)
		}
	}
	if cfg.Providers.VAD.Fallback != nil {
		errs = append(errs, errors.New("providers.vad does not support fallback; the detector runs in-process"))
	}

	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.PostgresDSN == "" {
		slog.Warn("providers.embeddings is configured but memory.postgres_dsn is empty; document memory will not be available")
	}
	if cfg.Memory.PostgresDSN != "" && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("memory.postgres_dsn is set but providers.embeddings is not configured"))
	}
	if cfg.Memory.EmbeddingDimensions < 0 {
		errs = append(errs, fmt.Errorf("memory.embedding_dimensions must not be negative, got %d", cfg.Memory.EmbeddingDimensions))
	}

	if (cfg.Chat.Slack.AppToken == "") != (cfg.Chat.Slack.BotToken == "") {
		errs = append(errs, errors.New("chat.slack requires both app_token and bot_token"))
	}

	if cfg.Recorder.Enabled && cfg.Recorder.Dir == "" {
		errs = append(errs, errors.New("recorder.dir is required when recorder.enabled is true"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
