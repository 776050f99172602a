package voice

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/markizano/asthralios/pkg/audio"
)

func testClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder("samples",
		WithFs(afero.NewMemMapFs()),
		WithClock(testClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))),
	)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func sineUtterance(n int) audio.Utterance {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return audio.Utterance{Samples: samples, SampleRate: 16000}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	r := newTestRecorder(t)

	want := sineUtterance(1600)
	name, err := r.Save(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(name, "utterance-") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("unexpected sample name %q", name)
	}

	got, err := r.Load(name)
	if err != nil {
		t.Fatal(err)
	}
	if got.SampleRate != want.SampleRate {
		t.Errorf("sample rate = %d, want %d", got.SampleRate, want.SampleRate)
	}
	if len(got.Samples) != len(want.Samples) {
		t.Fatalf("sample count = %d, want %d", len(got.Samples), len(want.Samples))
	}
	for i := range got.Samples {
		if diff := math.Abs(float64(got.Samples[i] - want.Samples[i])); diff > 1.0/32768 {
			t.Fatalf("sample %d differs by %v after the round trip", i, diff)
		}
	}
}

func TestSaveRejectsEmptyUtterance(t *testing.T) {
	r := newTestRecorder(t)
	if _, err := r.Save(audio.Utterance{SampleRate: 16000}); err == nil {
		t.Error("expected error for empty utterance")
	}
	if _, err := r.Save(audio.Utterance{Samples: []float32{0.1}}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestListReturnsChronologicalWavs(t *testing.T) {
	r := newTestRecorder(t)

	first, err := r.Save(sineUtterance(160))
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Save(sineUtterance(160))
	if err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(r.fsys, "samples/notes.txt", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := r.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != first || names[1] != second {
		t.Errorf("List = %v, want [%s %s]", names, first, second)
	}
}

func TestLoadRejectsNonWav(t *testing.T) {
	r := newTestRecorder(t)
	if err := afero.WriteFile(r.fsys, "samples/bogus.wav", []byte("not a wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Load("bogus.wav"); err == nil {
		t.Error("expected error for a non-wav payload")
	}
}

func TestInt16Clamping(t *testing.T) {
	out := int16FromFloat32([]float32{2.0, -2.0, 0})
	if out[0] != 32767 || out[1] != -32767 || out[2] != 0 {
		t.Errorf("int16FromFloat32 = %v", out)
	}
}
