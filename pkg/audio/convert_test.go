package audio_test

import (
	"math"
	"testing"

	"github.com/markizano/asthralios/pkg/audio"
)

func TestFloat32FromPCM16(t *testing.T) {
	// Samples: 0, 16384 (0.5), -32768 (-1.0).
	pcm := []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80}
	got := audio.Float32FromPCM16(pcm)
	want := []float32{0, 0.5, -1.0}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCM16FromFloat32_Clamping(t *testing.T) {
	pcm := audio.PCM16FromFloat32([]float32{2.0, -2.0})
	s0 := int16(pcm[0]) | int16(pcm[1])<<8
	s1 := int16(pcm[2]) | int16(pcm[3])<<8
	if s0 != 32767 {
		t.Errorf("positive overflow: got %d, want 32767", s0)
	}
	if s1 != -32767 {
		t.Errorf("negative overflow: got %d, want -32767", s1)
	}
}

func TestRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.99, -0.99}
	out := audio.Float32FromPCM16(audio.PCM16FromFloat32(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > 0.001 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestScrubNonFinite(t *testing.T) {
	in := []float32{0.1, float32(math.NaN()), 0.2, float32(math.Inf(1)), float32(math.Inf(-1)), 0.3}
	got := audio.ScrubNonFinite(in)
	want := []float32{0.1, 0.2, 0.3}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScrubNonFinite_AllFinite(t *testing.T) {
	in := []float32{0.5, -0.5}
	got := audio.ScrubNonFinite(in)
	if len(got) != 2 {
		t.Fatalf("finite samples must survive: got %d, want 2", len(got))
	}
}

func TestMonoToStereo(t *testing.T) {
	got := audio.MonoToStereo([]float32{0.1, -0.2})
	want := []float32{0.1, 0.1, -0.2, -0.2}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	got := audio.StereoToMono([]float32{0.2, 0.4, -0.2, -0.4})
	want := []float32{0.3, -0.3}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if diff := math.Abs(float64(got[i] - want[i])); diff > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResample_SameRate(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	got := audio.Resample(in, 16000, 16000)
	if len(got) != 3 {
		t.Fatalf("same-rate resample must be a no-op, got %d samples", len(got))
	}
}

func TestResample_Upsample(t *testing.T) {
	in := []float32{0, 1}
	got := audio.Resample(in, 8000, 16000)
	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(got))
	}
	// Linear interpolation: 0, 0.5, 1, 1 (last sample held).
	want := []float32{0, 0.5, 1, 1}
	for i := range want {
		if diff := math.Abs(float64(got[i] - want[i])); diff > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	in := make([]float32, 480) // 10 ms at 48 kHz
	got := audio.Resample(in, 48000, 16000)
	if len(got) != 160 {
		t.Fatalf("expected 160 samples, got %d", len(got))
	}
}

func TestFormatConverter_NoOp(t *testing.T) {
	conv := audio.FormatConverter{Target: audio.Format{SampleRate: 16000, Channels: 1}}
	in := audio.Frame{Samples: []float32{0.1}, SampleRate: 16000, Channels: 1}
	out := conv.Convert(in)
	if &out.Samples[0] != &in.Samples[0] {
		t.Error("matching format should return the frame unchanged")
	}
}

func TestFormatConverter_FullConversion(t *testing.T) {
	conv := audio.FormatConverter{Target: audio.Format{SampleRate: 16000, Channels: 1}}
	in := audio.Frame{
		Samples:    make([]float32, 960*2), // 20 ms stereo at 48 kHz
		SampleRate: 48000,
		Channels:   2,
	}
	out := conv.Convert(in)
	if out.SampleRate != 16000 {
		t.Errorf("sample rate: got %d, want 16000", out.SampleRate)
	}
	if out.Channels != 1 {
		t.Errorf("channels: got %d, want 1", out.Channels)
	}
	if len(out.Samples) != 320 {
		t.Errorf("samples: got %d, want 320", len(out.Samples))
	}
}

func TestFrameDuration(t *testing.T) {
	f := audio.Frame{Samples: make([]float32, 16000), SampleRate: 16000, Channels: 1}
	if f.Duration().Seconds() != 1.0 {
		t.Errorf("duration: got %v, want 1s", f.Duration())
	}
}
