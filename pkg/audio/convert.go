package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
)

// Float32FromPCM16 decodes little-endian signed 16-bit PCM into normalized
// float32 samples in [-1, 1]. A trailing odd byte is ignored.
func Float32FromPCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out
}

// PCM16FromFloat32 encodes normalized float32 samples as little-endian signed
// 16-bit PCM. Samples outside [-1, 1] are clamped rather than wrapped.
func PCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// ScrubNonFinite removes NaN and Inf samples in place and returns the
// compacted slice. Driver glitches occasionally surface non-finite values;
// they must never reach the VAD model or an utterance buffer.
func ScrubNonFinite(samples []float32) []float32 {
	n := 0
	for _, v := range samples {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			continue
		}
		samples[n] = v
		n++
	}
	return samples[:n]
}

// MonoToStereo duplicates each mono sample into an L+R pair.
func MonoToStereo(samples []float32) []float32 {
	out := make([]float32, len(samples)*2)
	for i, v := range samples {
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}

// StereoToMono averages each interleaved L+R pair into one mono sample.
func StereoToMono(samples []float32) []float32 {
	frames := len(samples) / 2
	out := make([]float32, frames)
	for i := range out {
		out[i] = (samples[i*2] + samples[i*2+1]) / 2
	}
	return out
}

// Resample converts mono samples from srcRate to dstRate using linear
// interpolation. If the rates match (or either is non-positive) the input is
// returned unchanged.
func Resample(samples []float32, srcRate, dstRate int) []float32 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]float32, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0*(1-frac) + s1*frac
	}
	return out
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// FormatConverter converts Frames to a target format, logging a warning on the
// first mismatch. Create one per stream; not designed for shared use across
// goroutines.
type FormatConverter struct {
	Target         Format
	warnedMismatch sync.Once
}

// Convert converts a frame to the target format. If the source already matches
// the target, the frame is returned unchanged (zero allocation). Conversion
// order: channel-reduce first when going stereo→mono, then resample, so the
// resampler always runs on the narrower stream.
func (c *FormatConverter) Convert(frame Frame) Frame {
	if frame.SampleRate == c.Target.SampleRate && frame.Channels == c.Target.Channels {
		return frame
	}

	c.warnedMismatch.Do(func() {
		slog.Warn("audio format mismatch: converting",
			"from", formatString(frame.SampleRate, frame.Channels),
			"to", formatString(c.Target.SampleRate, c.Target.Channels),
		)
	})

	samples := frame.Samples
	channels := frame.Channels

	if channels == 2 && c.Target.Channels == 1 {
		samples = StereoToMono(samples)
		channels = 1
	}
	if frame.SampleRate != c.Target.SampleRate {
		if channels == 1 {
			samples = Resample(samples, frame.SampleRate, c.Target.SampleRate)
		} else {
			// Interleaved stereo: resample each channel independently.
			left := make([]float32, 0, len(samples)/2)
			right := make([]float32, 0, len(samples)/2)
			for i := 0; i+1 < len(samples); i += 2 {
				left = append(left, samples[i])
				right = append(right, samples[i+1])
			}
			left = Resample(left, frame.SampleRate, c.Target.SampleRate)
			right = Resample(right, frame.SampleRate, c.Target.SampleRate)
			samples = make([]float32, len(left)*2)
			for i := range left {
				samples[i*2] = left[i]
				samples[i*2+1] = right[i]
			}
		}
	}
	if channels == 1 && c.Target.Channels == 2 {
		samples = MonoToStereo(samples)
		channels = 2
	}

	return Frame{
		Samples:    samples,
		SampleRate: c.Target.SampleRate,
		Channels:   channels,
		Timestamp:  frame.Timestamp,
	}
}

// formatString returns a human-readable string for a sample rate and channel
// count, e.g. "48000Hz stereo".
func formatString(rate, channels int) string {
	ch := "mono"
	if channels == 2 {
		ch = "stereo"
	} else if channels > 2 {
		ch = fmt.Sprintf("%dch", channels)
	}
	return fmt.Sprintf("%dHz %s", rate, ch)
}
