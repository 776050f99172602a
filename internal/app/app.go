// Package app wires all Asthralios subsystems into a running agent.
//
// The App struct owns the full lifecycle: New creates and connects the
// subsystems described by the config, Run drives the conversation loop and
// the chat adapters until the context is cancelled, and Shutdown tears
// everything down in order.
//
// For testing, inject mock devices and stores via functional options. When an
// option is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/markizano/asthralios/internal/chat"
	"github.com/markizano/asthralios/internal/chat/discord"
	"github.com/markizano/asthralios/internal/chat/slack"
	"github.com/markizano/asthralios/internal/config"
	"github.com/markizano/asthralios/internal/conversation"
	"github.com/markizano/asthralios/internal/duplex"
	"github.com/markizano/asthralios/internal/hands"
	"github.com/markizano/asthralios/internal/health"
	"github.com/markizano/asthralios/internal/observe"
	"github.com/markizano/asthralios/internal/voice"
	"github.com/markizano/asthralios/pkg/audio"
	"github.com/markizano/asthralios/pkg/audio/portaudio"
	"github.com/markizano/asthralios/pkg/memory"
	"github.com/markizano/asthralios/pkg/memory/postgres"
	"github.com/markizano/asthralios/pkg/provider/llm"
	"github.com/markizano/asthralios/pkg/provider/vad"
)

// App owns all subsystem lifetimes and orchestrates the voice agent.
type App struct {
	cfg       *config.Config
	providers *Providers

	dialog   *llm.Conversation
	store    memory.Store
	pg       *postgres.Store
	ingester *hands.Ingester
	recorder *voice.Recorder
	adapters  []chat.Adapter
	audio     *duplex.Controller
	loopAudio *instrumentedAudio
	loop      *conversation.Loop
	metrics  *observe.Metrics
	obsrv    *http.Server

	capture  audio.Device
	playback audio.Device

	otelShutdown func(context.Context) error

	// closers run in reverse registration order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
	stopErr  error
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCaptureDevice injects a microphone device instead of opening one
// through portaudio.
func WithCaptureDevice(d audio.Device) Option {
	return func(a *App) { a.capture = d }
}

// WithPlaybackDevice injects a speaker device instead of opening one through
// portaudio.
func WithPlaybackDevice(d audio.Device) Option {
	return func(a *App) { a.playback = d }
}

// WithStore injects a document store instead of connecting to Postgres.
func WithStore(s memory.Store) Option {
	return func(a *App) { a.store = s }
}

// WithRecorder injects an utterance recorder.
func WithRecorder(r *voice.Recorder) Option {
	return func(a *App) { a.recorder = r }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main (populated via [BuildProviders]).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil || providers == nil {
		return nil, fmt.Errorf("app: config and providers are required")
	}
	if providers.STT == nil || providers.TTS == nil || providers.LLM == nil || providers.VAD == nil {
		return nil, fmt.Errorf("app: stt, tts, llm, and vad providers are required")
	}

	a := &App{cfg: cfg, providers: providers}
	for _, o := range opts {
		o(a)
	}

	// The Prometheus bridge registers global collectors, so it is only set up
	// when an endpoint will expose it. Without one the instruments bind to the
	// no-op global provider.
	if cfg.Metrics.ListenAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "asthralios"})
		if err != nil {
			return nil, fmt.Errorf("app: init telemetry: %w", err)
		}
		a.otelShutdown = shutdown
	}
	a.metrics = observe.DefaultMetrics()

	a.dialog = llm.NewConversation(providers.LLM,
		llm.WithMaxTurns(cfg.Conversation.MaxTurns),
	)

	if err := a.initMemory(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initRecorder(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initAudio(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initLoop(); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initChat(); err != nil {
		a.close()
		return nil, err
	}
	a.initObservability()

	return a, nil
}

// initMemory connects the document store and the ingestion pipeline when a
// DSN is configured. Without one the agent runs voice-only.
func (a *App) initMemory(ctx context.Context) error {
	if a.store == nil {
		if a.cfg.Memory.PostgresDSN == "" {
			return nil
		}
		dims := a.cfg.Memory.EmbeddingDimensions
		if dims <= 0 {
			dims = a.providers.Embeddings.Dimensions()
		}
		pg, err := postgres.NewStore(ctx, a.cfg.Memory.PostgresDSN, dims)
		if err != nil {
			return fmt.Errorf("app: memory store: %w", err)
		}
		a.pg = pg
		a.store = pg
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
	}

	if a.providers.Embeddings == nil {
		return nil
	}
	ing, err := hands.NewIngester(a.providers.Embeddings, a.store)
	if err != nil {
		return fmt.Errorf("app: ingester: %w", err)
	}
	a.ingester = ing
	return nil
}

func (a *App) initRecorder() error {
	if a.recorder != nil || !a.cfg.Recorder.Enabled {
		return nil
	}
	rec, err := voice.NewRecorder(a.cfg.Recorder.Dir)
	if err != nil {
		return fmt.Errorf("app: recorder: %w", err)
	}
	a.recorder = rec
	return nil
}

// initAudio opens the capture and playback devices and builds the duplex
// controller around them.
func (a *App) initAudio() error {
	if a.capture == nil {
		dev, err := portaudio.Open(audio.Capture, deviceConfig(a.cfg.Audio.Capture))
		if err != nil {
			return fmt.Errorf("app: open capture device: %w", err)
		}
		a.capture = dev
	}
	if a.playback == nil {
		dev, err := portaudio.Open(audio.Playback, deviceConfig(a.cfg.Audio.Playback))
		if err != nil {
			return fmt.Errorf("app: open playback device: %w", err)
		}
		a.playback = dev
	}

	listening := a.cfg.Listening
	ctl, err := duplex.New(duplex.Config{
		Capture:    a.capture,
		Playback:   a.playback,
		Classifier: a.providers.VAD,
		VAD: vad.Config{
			SampleRate:      a.cfg.Audio.Capture.SampleRate,
			FrameSize:       a.cfg.Audio.Capture.FrameSize,
			SpeechThreshold: listening.SpeechThreshold,
		},
		Segmenter: duplex.SegmenterConfig{
			SampleRate:        a.cfg.Audio.Capture.SampleRate,
			MinSpeechDuration: listening.MinSpeech(),
			SilenceTimeout:    listening.SilenceTimeout(),
			Pad:               listening.Pad(),
		},
		Synthesizer: a.providers.TTS,
		Language:    a.cfg.Conversation.Language,
		PlaybackFormat: audio.Format{
			SampleRate: a.cfg.Audio.Playback.SampleRate,
			Channels:   a.cfg.Audio.Playback.Channels,
		},
		SynthWorkers: a.cfg.Conversation.SynthWorkers,
	})
	if err != nil {
		return fmt.Errorf("app: duplex pipeline: %w", err)
	}
	a.audio = ctl
	return nil
}

func (a *App) initLoop() error {
	a.loopAudio = newInstrumentedAudio(a.audio, a.metrics, a.recorder)
	loop, err := conversation.New(conversation.Config{
		Audio:       a.loopAudio,
		Transcriber: a.instrumentedTranscriber(),
		Dialoguer:   a.instrumentedDialoguer(),
		Language:    a.cfg.Conversation.Language,
		Greeting:    a.cfg.Conversation.Greeting,
		Farewell:    a.cfg.Conversation.Farewell,
	})
	if err != nil {
		return fmt.Errorf("app: conversation loop: %w", err)
	}
	a.loop = loop
	return nil
}

// initChat builds one adapter per configured chat platform. All adapters
// share the voice loop's conversation so the agent has one memory.
func (a *App) initChat() error {
	if token := a.cfg.Chat.Discord.Token; token != "" {
		ad, err := discord.New(token, a.dialog)
		if err != nil {
			return fmt.Errorf("app: discord adapter: %w", err)
		}
		a.adapters = append(a.adapters, ad)
	}
	if s := a.cfg.Chat.Slack; s.AppToken != "" && s.BotToken != "" {
		ad, err := slack.New(s.AppToken, s.BotToken, a.dialog)
		if err != nil {
			return fmt.Errorf("app: slack adapter: %w", err)
		}
		a.adapters = append(a.adapters, ad)
	}
	for _, ad := range a.adapters {
		a.closers = append(a.closers, ad.Close)
	}
	return nil
}

func (a *App) initObservability() {
	if a.cfg.Metrics.ListenAddr == "" {
		return
	}
	checks := []health.Checker{
		health.CheckTTS(a.providers.TTS),
		health.CheckLLM(a.providers.LLM),
	}
	if a.pg != nil {
		checks = append(checks, health.CheckMemory(a.pg))
	}
	h := health.New(checks...)
	a.obsrv = observe.NewServer(a.cfg.Metrics.ListenAddr, a.metrics, h.Register)
}

// Run drives the conversation loop, the chat adapters, and the metrics
// endpoint until ctx is cancelled or the voice loop ends. It always calls
// Shutdown before returning.
func (a *App) Run(ctx context.Context) error {
	defer func() { _ = a.Shutdown(context.Background()) }()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.loop.Run(gctx)
	})
	for _, ad := range a.adapters {
		adapter := ad
		g.Go(func() error {
			slog.Info("chat adapter starting", "adapter", adapter.Name())
			if err := adapter.Run(gctx); err != nil {
				return fmt.Errorf("app: %s adapter: %w", adapter.Name(), err)
			}
			return nil
		})
	}
	if a.obsrv != nil {
		g.Go(func() error {
			slog.Info("observability endpoint listening", "addr", a.obsrv.Addr)
			if err := a.obsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: observability server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return a.obsrv.Shutdown(context.Background())
		})
	}

	return g.Wait()
}

// Ingester returns the document ingestion pipeline, or nil when no memory
// store is configured.
func (a *App) Ingester() *hands.Ingester { return a.ingester }

// Shutdown tears the application down: chat adapters first, then the audio
// pipeline, the store, and finally telemetry. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		var errs []error
		switch {
		case a.loopAudio != nil:
			if err := a.loopAudio.Stop(); err != nil {
				errs = append(errs, err)
			}
		case a.audio != nil:
			if err := a.audio.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
		errs = append(errs, a.close())
		if err := a.providers.STT.Close(); err != nil {
			errs = append(errs, err)
		}
		if a.otelShutdown != nil {
			if err := a.otelShutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		a.stopErr = errors.Join(errs...)
		slog.Info("asthralios stopped")
	})
	return a.stopErr
}

// close runs the registered closers in reverse order.
func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func deviceConfig(c config.DeviceConfig) audio.DeviceConfig {
	return audio.DeviceConfig{
		Name:       c.Device,
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		FrameSize:  c.FrameSize,
	}
}
