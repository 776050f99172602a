package duplex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/markizano/asthralios/pkg/audio"
	"github.com/markizano/asthralios/pkg/provider/vad"
)

// Synthesizer is the narrow text-to-speech surface the controller needs.
// pkg/provider/tts implementations satisfy it.
type Synthesizer interface {
	// Synthesize renders text to normalized mono samples at the returned
	// sample rate.
	Synthesize(ctx context.Context, text, language string) ([]float32, int, error)
}

// Config supplies everything the controller needs at construction. It is
// read-only afterwards; to change devices or thresholds, Stop and rebuild.
type Config struct {
	// Capture is the microphone device. Owned by the controller after New.
	Capture audio.Device

	// Playback is the speaker device. Owned by the controller after New.
	Playback audio.Device

	// Classifier creates the VAD session for the capture worker.
	Classifier vad.Engine

	// VAD configures the classifier session.
	VAD vad.Config

	// Segmenter configures utterance boundaries.
	Segmenter SegmenterConfig

	// Synthesizer renders reply fragments to audio.
	Synthesizer Synthesizer

	// Language is the BCP-47 code passed to the synthesizer.
	Language string

	// PlaybackFormat is the playback device's native format.
	PlaybackFormat audio.Format

	// QueueDepth bounds the utterance channel. Defaults to 4. When full,
	// capture blocks rather than dropping segmented speech.
	QueueDepth int

	// SynthWorkers bounds concurrent synthesis requests. Defaults to 2.
	SynthWorkers int
}

// Controller composes the capture and playback workers into the duplex
// pipeline the conversation loop drives: Listen yields utterances, Speak
// queues synthesis, Interrupt implements barge-in, Stop tears everything down.
//
// All methods are safe for concurrent use. Stop is the single cancellation
// entrypoint and may be called from a signal-handling goroutine.
type Controller struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	capture  *captureWorker
	playback *playbackWorker
	session  vad.Session

	workers *errgroup.Group
	synth   *errgroup.Group

	genCounter  atomic.Uint64
	playWG      sync.WaitGroup
	outstanding atomic.Int64

	listenOnce sync.Once
	stopOnce   sync.Once

	mu      sync.Mutex
	fatal   error
	stopped bool
}

// New validates cfg, opens the VAD session, and prepares (but does not start)
// both workers. The capture worker starts on the first Listen call; the
// playback worker starts immediately so greetings can play before listening
// begins.
func New(cfg Config) (*Controller, error) {
	if cfg.Capture == nil || cfg.Playback == nil {
		return nil, fmt.Errorf("duplex: both capture and playback devices are required")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("duplex: a VAD engine is required")
	}
	if cfg.Synthesizer == nil {
		return nil, fmt.Errorf("duplex: a synthesizer is required")
	}
	if err := cfg.Segmenter.Validate(); err != nil {
		return nil, err
	}
	if cfg.PlaybackFormat.SampleRate <= 0 || cfg.PlaybackFormat.Channels <= 0 {
		return nil, fmt.Errorf("duplex: playback format %dHz/%dch invalid",
			cfg.PlaybackFormat.SampleRate, cfg.PlaybackFormat.Channels)
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 4
	}
	if cfg.SynthWorkers <= 0 {
		cfg.SynthWorkers = 2
	}

	session, err := cfg.Classifier.NewSession(cfg.VAD)
	if err != nil {
		return nil, fmt.Errorf("duplex: classifier session: %w", err)
	}
	seg, err := NewSegmenter(session, cfg.Segmenter)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		session: session,
		capture: &captureWorker{
			dev: cfg.Capture,
			seg: seg,
			out: make(chan audio.Utterance, cfg.QueueDepth),
		},
		playback: &playbackWorker{
			dev:    cfg.Playback,
			in:     make(chan playbackItem, 16),
			format: cfg.PlaybackFormat,
			// 100 ms chunks bound barge-in latency on long clips.
			chunk: cfg.PlaybackFormat.SampleRate / 10,
		},
		workers: &errgroup.Group{},
		synth:   &errgroup.Group{},
	}
	c.synth.SetLimit(cfg.SynthWorkers)

	c.workers.Go(func() error {
		err := c.playback.run(c.ctx)
		if err != nil {
			c.fail(err)
		}
		return err
	})

	return c, nil
}

// Listen starts the capture worker on first call and returns the utterance
// channel. Receiving blocks until an utterance completes; the channel closes
// once Stop is called (or a fatal device error stops the pipeline), after
// which the sequence is finite.
func (c *Controller) Listen() <-chan audio.Utterance {
	c.listenOnce.Do(func() {
		c.workers.Go(func() error {
			err := c.capture.run(c.ctx)
			if err != nil {
				c.fail(err)
			}
			return err
		})
	})
	return c.capture.out
}

// Speak splits text into paragraph fragments and submits one synthesis job
// per fragment, returning as soon as the jobs are queued. Fragments are
// played in submission order regardless of synthesis completion order. Use
// Wait to find out when everything queued so far has been played.
//
// A fragment whose synthesis fails is logged and replaced with silence so the
// remaining fragments still play in order.
func (c *Controller) Speak(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("duplex: controller stopped")
	}
	c.mu.Unlock()

	fragments := splitParagraphs(text)
	if len(fragments) == 0 {
		return nil
	}

	gen := c.genCounter.Add(1)
	total := len(fragments)

	// Register all fragments before returning so a Wait right after Speak
	// covers them, then queue the jobs without blocking the caller on the
	// synthesis worker limit.
	c.playWG.Add(total)
	c.outstanding.Add(int64(total))
	go func() {
		for i, fragment := range fragments {
			c.submit(ctx, gen, i, total, fragment)
		}
	}()
	return nil
}

// submit schedules synthesis of one fragment on the bounded worker group and
// hands the resulting clip to the playback worker.
func (c *Controller) submit(ctx context.Context, gen uint64, i, total int, fragment string) {
	c.synth.Go(func() error {
		clip := audio.Clip{Ordinal: i, SampleRate: c.cfg.PlaybackFormat.SampleRate}

		samples, rate, err := c.cfg.Synthesizer.Synthesize(ctx, fragment, c.cfg.Language)
		if err != nil {
			// Recoverable: skip this fragment's audio, keep ordinal
			// progression so later fragments still play.
			slog.Error("synthesis failed, skipping fragment",
				"ordinal", i,
				"err", err,
			)
		} else {
			clip.Samples = samples
			clip.SampleRate = rate
		}

		item := playbackItem{clip: clip, gen: gen, total: total, done: c.clipDone}
		select {
		case c.playback.in <- item:
		case <-c.ctx.Done():
			c.clipDone()
		}
		return nil
	})
}

// Wait blocks until every fragment queued by previous Speak calls has been
// played or discarded, or until ctx is cancelled.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.playWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clipDone resolves one queued fragment, whether it was played, discarded,
// or drained at shutdown.
func (c *Controller) clipDone() {
	c.outstanding.Add(-1)
	c.playWG.Done()
}

// Interrupt discards all queued and playing synthesis output (barge-in). The
// capture path is untouched; synthesis jobs already running finish and their
// clips are discarded on arrival.
//
// It reports whether any output was actually cancelled, so callers can tell a
// barge-in apart from an interrupt issued while the agent was silent.
func (c *Controller) Interrupt() bool {
	gen := c.genCounter.Load()
	prev := c.playback.flushGen.Swap(gen)
	return gen > prev && c.outstanding.Load() > 0
}

// Stop tears the pipeline down: no further utterances are delivered and no
// further playback writes occur after it returns. Idempotent and safe to call
// from any goroutine; blocked device reads and writes unblock within roughly
// one frame duration because the devices are closed here.
func (c *Controller) Stop() error {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.mu.Unlock()

		c.Interrupt()
		c.cancel()

		// Closing the devices unblocks workers stuck in blocking reads/writes.
		if err := c.cfg.Capture.Close(); err != nil {
			slog.Warn("capture device close", "err", err)
		}
		if err := c.cfg.Playback.Close(); err != nil {
			slog.Warn("playback device close", "err", err)
		}

		_ = c.synth.Wait()
		_ = c.workers.Wait()
		_ = c.session.Close()
	})
	return c.Err()
}

// Err returns the fatal device or classifier error that stopped the pipeline,
// or nil after a clean Stop.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fatal
}

// fail records the first fatal error and stops the whole pipeline: a
// corrupted audio session must not continue unnoticed.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	if c.fatal == nil {
		c.fatal = err
	}
	already := c.stopped
	c.mu.Unlock()

	slog.Error("audio pipeline failure", "err", err)
	if !already {
		go func() { _ = c.Stop() }()
	}
}

// splitParagraphs breaks reply text into paragraph-sized synthesis fragments:
// blank-line separated blocks, with leading/trailing space trimmed and empty
// blocks dropped.
func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
