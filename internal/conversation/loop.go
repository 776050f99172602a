// Package conversation drives the turn-taking state machine between the
// duplex audio pipeline and the speech and dialogue collaborators: greet,
// listen for an utterance, transcribe it, converse, speak the reply, repeat
// until a farewell or a fatal audio error.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/markizano/asthralios/pkg/audio"
)

// Transcriber converts an utterance's samples to text.
// pkg/provider/stt implementations satisfy it.
type Transcriber interface {
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)
}

// Dialoguer produces a reply for the user's words, holding whatever
// conversation history it needs. pkg/provider/llm implementations satisfy it.
type Dialoguer interface {
	Converse(ctx context.Context, text string) (string, error)
}

// Audio is the duplex pipeline surface the loop drives.
// internal/duplex.Controller satisfies it.
//
// Interrupt reports whether any speech was actually cancelled.
type Audio interface {
	Listen() <-chan audio.Utterance
	Speak(ctx context.Context, text string) error
	Interrupt() bool
	Wait(ctx context.Context) error
	Stop() error
	Err() error
}

// State identifies where the loop is in its turn cycle.
type State int32

const (
	StateGreeting State = iota
	StateListening
	StateProcessing
	StateSpeaking
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateGreeting:
		return "greeting"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config supplies the loop's collaborators and phrasing.
type Config struct {
	Audio       Audio
	Transcriber Transcriber
	Dialoguer   Dialoguer

	// Language is the BCP-47 code passed to the transcriber.
	Language string

	// Greeting is spoken once on entry. Defaults to "Good morning.".
	Greeting string

	// Farewell is spoken once before termination. Defaults to "Goodbye.".
	Farewell string
}

func (c Config) validate() error {
	if c.Audio == nil {
		return fmt.Errorf("conversation: an audio pipeline is required")
	}
	if c.Transcriber == nil {
		return fmt.Errorf("conversation: a transcriber is required")
	}
	if c.Dialoguer == nil {
		return fmt.Errorf("conversation: a dialoguer is required")
	}
	return nil
}

// Option customizes a Loop.
type Option func(*Loop)

// WithSleeper replaces the pause-instruction sleep. Tests use it to observe
// pauses without waiting them out.
func WithSleeper(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(l *Loop) {
		l.sleep = sleep
	}
}

// Loop is the conversation state machine. Create with New, drive with Run.
type Loop struct {
	cfg   Config
	state atomic.Int32
	sleep func(ctx context.Context, d time.Duration)
}

// New validates cfg and returns a ready Loop.
func New(cfg Config, opts ...Option) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Greeting == "" {
		cfg.Greeting = "Good morning."
	}
	if cfg.Farewell == "" {
		cfg.Farewell = "Goodbye."
	}
	l := &Loop{cfg: cfg, sleep: sleepCtx}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// State returns the loop's current state. Safe from any goroutine.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	slog.Debug("conversation state", "state", s)
}

// Run speaks the greeting and then cycles Listening → Processing → Speaking
// until a farewell reply, a fatal audio error, or ctx cancellation. It always
// stops the audio pipeline before returning.
//
// Collaborator failures (transcription, dialogue) skip the turn; only the
// audio pipeline terminates the loop with an error.
func (l *Loop) Run(ctx context.Context) error {
	defer l.setState(StateTerminated)
	defer func() { _ = l.cfg.Audio.Stop() }()

	l.setState(StateGreeting)
	if err := l.cfg.Audio.Speak(ctx, l.cfg.Greeting); err != nil {
		return fmt.Errorf("conversation: greeting: %w", err)
	}

	utterances := l.cfg.Audio.Listen()
	l.setState(StateListening)

	for {
		select {
		case <-ctx.Done():
			return nil

		case utt, ok := <-utterances:
			if !ok {
				// Capture ended underneath us: fatal device or classifier
				// failure unless we were cancelled.
				if err := l.cfg.Audio.Err(); err != nil {
					return fmt.Errorf("conversation: audio pipeline: %w", err)
				}
				return nil
			}

			// The user spoke: anything still being read aloud is stale.
			l.cfg.Audio.Interrupt()

			done, err := l.turn(ctx, utt)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			l.setState(StateListening)
		}
	}
}

// turn runs one Processing/Speaking cycle for a finished utterance. done is
// true when the reply ended the session.
func (l *Loop) turn(ctx context.Context, utt audio.Utterance) (done bool, err error) {
	l.setState(StateProcessing)

	text, err := l.cfg.Transcriber.Transcribe(ctx, utt.Samples, l.cfg.Language)
	if err != nil {
		slog.Error("transcription failed, skipping turn", "err", err)
		return false, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Debug("empty transcription discarded", "duration", utt.Duration())
		return false, nil
	}
	slog.Info("heard", "text", text)

	reply, err := l.cfg.Dialoguer.Converse(ctx, text)
	if err != nil {
		slog.Error("dialogue failed, skipping turn", "err", err)
		return false, nil
	}

	if d, ok := parsePause(reply); ok {
		slog.Info("pausing", "duration", d)
		l.sleep(ctx, d)
		return false, nil
	}

	if isFarewell(reply) {
		l.setState(StateSpeaking)
		if err := l.cfg.Audio.Speak(ctx, l.cfg.Farewell); err != nil {
			return true, fmt.Errorf("conversation: farewell: %w", err)
		}
		if err := l.cfg.Audio.Wait(ctx); err != nil {
			slog.Warn("farewell playback interrupted", "err", err)
		}
		return true, nil
	}

	l.setState(StateSpeaking)
	slog.Info("speaking", "chars", len(reply))
	if err := l.cfg.Audio.Speak(ctx, reply); err != nil {
		return false, fmt.Errorf("conversation: speak: %w", err)
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
