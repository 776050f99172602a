package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/markizano/asthralios/internal/conversation"
	"github.com/markizano/asthralios/internal/observe"
	"github.com/markizano/asthralios/internal/voice"
	"github.com/markizano/asthralios/pkg/audio"
	"github.com/markizano/asthralios/pkg/provider/stt"
)

// instrumentedAudio wraps the duplex pipeline with metrics and the optional
// utterance recorder. Listen is teed so every heard utterance is counted and
// saved before the conversation loop consumes it.
type instrumentedAudio struct {
	inner    conversation.Audio
	m        *observe.Metrics
	recorder *voice.Recorder

	// turnStart is the unix-nano timestamp of the last delivered utterance,
	// used to measure utterance-to-speech turn latency.
	turnStart atomic.Int64

	// done releases the tee goroutine when the loop stops consuming.
	done     chan struct{}
	stopOnce sync.Once
}

func newInstrumentedAudio(inner conversation.Audio, m *observe.Metrics, rec *voice.Recorder) *instrumentedAudio {
	return &instrumentedAudio{
		inner:    inner,
		m:        m,
		recorder: rec,
		done:     make(chan struct{}),
	}
}

func (ia *instrumentedAudio) Listen() <-chan audio.Utterance {
	in := ia.inner.Listen()
	out := make(chan audio.Utterance)
	go func() {
		defer close(out)
		for utt := range in {
			ia.m.RecordUtterance(context.Background(), utt.Duration())
			ia.turnStart.Store(time.Now().UnixNano())
			if ia.recorder != nil {
				if _, err := ia.recorder.Save(utt); err != nil {
					slog.Warn("failed to save utterance sample", "error", err)
				}
			}
			select {
			case out <- utt:
			case <-ia.done:
				// The consumer is gone. Keep emptying the capture side so
				// its worker is not left blocked on a full queue.
				audio.Drain(in)
				return
			}
		}
	}()
	return out
}

func (ia *instrumentedAudio) Speak(ctx context.Context, text string) error {
	err := ia.inner.Speak(ctx, text)
	if start := ia.turnStart.Swap(0); start != 0 && err == nil {
		elapsed := time.Since(time.Unix(0, start))
		ia.m.TurnDuration.Record(ctx, elapsed.Seconds())
	}
	return err
}

// Interrupt counts a barge-in only when speech was actually cancelled; the
// loop interrupts on every utterance, silent or not.
func (ia *instrumentedAudio) Interrupt() bool {
	cancelled := ia.inner.Interrupt()
	if cancelled {
		ia.m.RecordBargeIn(context.Background())
	}
	return cancelled
}

func (ia *instrumentedAudio) Wait(ctx context.Context) error { return ia.inner.Wait(ctx) }

func (ia *instrumentedAudio) Err() error { return ia.inner.Err() }

func (ia *instrumentedAudio) Stop() error {
	ia.stopOnce.Do(func() { close(ia.done) })
	return ia.inner.Stop()
}

// instrumentedTranscriber wraps the STT provider with latency and status
// metrics.
type instrumentedTranscriber struct {
	stt  stt.Provider
	name string
	m    *observe.Metrics
}

func (a *App) instrumentedTranscriber() conversation.Transcriber {
	return &instrumentedTranscriber{
		stt:  a.providers.STT,
		name: a.cfg.Providers.STT.Name,
		m:    a.metrics,
	}
}

func (t *instrumentedTranscriber) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	start := time.Now()
	text, err := t.stt.Transcribe(ctx, samples, language)
	t.m.STTDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		t.m.RecordProviderError(ctx, t.name, "stt")
		t.m.RecordProviderRequest(ctx, t.name, "stt", "error")
		return "", err
	}
	t.m.RecordProviderRequest(ctx, t.name, "stt", "ok")
	return text, nil
}

// instrumentedDialoguer wraps the shared conversation with latency and status
// metrics.
type instrumentedDialoguer struct {
	dialog conversation.Dialoguer
	name   string
	m      *observe.Metrics
}

func (a *App) instrumentedDialoguer() conversation.Dialoguer {
	return &instrumentedDialoguer{
		dialog: a.dialog,
		name:   a.cfg.Providers.LLM.Name,
		m:      a.metrics,
	}
}

func (d *instrumentedDialoguer) Converse(ctx context.Context, text string) (string, error) {
	start := time.Now()
	reply, err := d.dialog.Converse(ctx, text)
	d.m.LLMDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		d.m.RecordProviderError(ctx, d.name, "llm")
		d.m.RecordProviderRequest(ctx, d.name, "llm", "error")
		return "", err
	}
	d.m.RecordProviderRequest(ctx, d.name, "llm", "ok")
	return reply, nil
}
