package app

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/markizano/asthralios/internal/observe"
	"github.com/markizano/asthralios/pkg/audio"
)

// fakeLoopAudio is a scriptable conversation.Audio for the wrapper tests.
type fakeLoopAudio struct {
	utts      chan audio.Utterance
	cancelled bool // what Interrupt reports
	closeOnce sync.Once
}

func newFakeLoopAudio(buf int) *fakeLoopAudio {
	return &fakeLoopAudio{utts: make(chan audio.Utterance, buf)}
}

func (f *fakeLoopAudio) Listen() <-chan audio.Utterance { return f.utts }

func (f *fakeLoopAudio) Speak(context.Context, string) error { return nil }

func (f *fakeLoopAudio) Interrupt() bool { return f.cancelled }

func (f *fakeLoopAudio) Wait(context.Context) error { return nil }

func (f *fakeLoopAudio) Err() error { return nil }

func (f *fakeLoopAudio) Stop() error {
	f.closeOnce.Do(func() { close(f.utts) })
	return nil
}

func (f *fakeLoopAudio) push() {
	f.utts <- audio.Utterance{Samples: make([]float32, 160), SampleRate: 16000}
}

func testMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			if met.Name != name {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: data is %T, want Sum[int64]", name, met.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestInterruptCountsOnlyCancelledSpeech(t *testing.T) {
	m, reader := testMetrics(t)
	inner := newFakeLoopAudio(1)
	ia := newInstrumentedAudio(inner, m, nil)

	// The loop interrupts on every utterance; silence must not count.
	inner.cancelled = false
	if ia.Interrupt() {
		t.Error("Interrupt reported cancelled speech while the agent was silent")
	}
	if got := counterValue(t, reader, "asthralios.barge_ins"); got != 0 {
		t.Errorf("barge-ins = %d after a silent interrupt, want 0", got)
	}

	inner.cancelled = true
	if !ia.Interrupt() {
		t.Error("Interrupt did not report cancelled speech")
	}
	if got := counterValue(t, reader, "asthralios.barge_ins"); got != 1 {
		t.Errorf("barge-ins = %d, want 1", got)
	}
}

func TestListenTeeRecordsAndForwards(t *testing.T) {
	m, reader := testMetrics(t)
	inner := newFakeLoopAudio(1)
	ia := newInstrumentedAudio(inner, m, nil)

	out := ia.Listen()
	inner.push()

	select {
	case utt := <-out:
		if len(utt.Samples) != 160 {
			t.Errorf("utterance samples = %d, want 160", len(utt.Samples))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("utterance not forwarded")
	}
	if got := counterValue(t, reader, "asthralios.utterances"); got != 1 {
		t.Errorf("utterances = %d, want 1", got)
	}

	if err := ia.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case _, ok := <-out:
		if ok {
			t.Error("utterance delivered after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("utterance channel did not close after Stop")
	}
}

func TestStopReleasesListenTee(t *testing.T) {
	m, _ := testMetrics(t)
	inner := newFakeLoopAudio(4)
	ia := newInstrumentedAudio(inner, m, nil)

	before := runtime.NumGoroutine()
	out := ia.Listen()
	inner.push()

	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("utterance not forwarded")
	}

	// A second utterance arrives with nobody left to read it, as happens
	// when the loop returns while capture is still segmenting speech.
	inner.push()
	time.Sleep(20 * time.Millisecond)

	if err := ia.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatal("listen tee still running after Stop")
		}
		time.Sleep(time.Millisecond)
	}
}
