package whisper

import (
	"encoding/binary"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	wav := encodeWAV(samples, 16000)

	if want := 44 + len(samples)*2; len(wav) != want {
		t.Fatalf("wav size = %d, want %d", len(wav), want)
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(wav[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if bits := binary.LittleEndian.Uint16(wav[34:36]); bits != 16 {
		t.Errorf("bits per sample = %d, want 16", bits)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != uint32(len(samples)*2) {
		t.Errorf("data size = %d, want %d", size, len(samples)*2)
	}
}

func TestEncodeWAVClampsSamples(t *testing.T) {
	wav := encodeWAV([]float32{2, -2}, 16000)
	hi := int16(binary.LittleEndian.Uint16(wav[44:46]))
	lo := int16(binary.LittleEndian.Uint16(wav[46:48]))
	if hi != 32767 {
		t.Errorf("over-range sample = %d, want 32767", hi)
	}
	if lo != -32767 {
		t.Errorf("under-range sample = %d, want -32767", lo)
	}
}
