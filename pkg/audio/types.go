// Package audio defines the frame type, device contract, and PCM conversion
// helpers shared by the capture and playback paths of the Asthralios pipeline.
//
// The two primary abstractions are:
//
//   - [Frame] — one fixed-duration buffer of normalized float32 samples, the
//     atomic unit of audio transport between the device layer, the voice
//     activity segmenter, and the speech collaborators.
//   - [Device] — an exclusive handle to one physical capture or playback
//     endpoint with blocking frame reads and writes.
//
// Concrete devices are provided by endpoint-specific packages (e.g.
// audio/portaudio for local microphones and speakers, audio/mock for tests).
// The interfaces are intentionally narrow so the pipeline never depends on
// driver details.
package audio

import "time"

// Frame is a single fixed-duration buffer of audio flowing through the pipeline.
//
// Samples are normalized to [-1.0, 1.0]. Devices produce frames from signed
// 16-bit PCM and scrub NaN/Inf values on read, so downstream consumers may
// assume every sample is finite. A Frame is exclusively owned by whoever holds
// it: devices hand frames to the capture worker, the segmenter either discards
// them or concatenates them into an [Utterance].
type Frame struct {
	// Samples is normalized PCM. Length is fixed per stream
	// (SampleRate × Channels × frame duration).
	Samples []float32

	// SampleRate in Hz (e.g. 16000 for the capture path, 24000 for Coqui output).
	SampleRate int

	// Channels: 1 for the mono capture path, 2 for stereo playback endpoints.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play time of the frame at its sample rate.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := len(f.Samples) / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Utterance is a contiguous span of captured speech, bounded by detected
// silence. It is produced by the segmenter, handed once to the capture worker's
// output channel, and consumed exactly once by the conversation loop.
type Utterance struct {
	// Samples is the concatenated speech audio, including up to one pad window
	// of pre-speech audio and excluding the trailing silence that closed it.
	Samples []float32

	// SampleRate of Samples in Hz.
	SampleRate int

	// Start is the capture-stream timestamp of the first buffered frame.
	Start time.Duration

	// TrailingSilence is the post-speech silence duration that closed the
	// utterance.
	TrailingSilence time.Duration
}

// Duration returns the play time of the utterance audio.
func (u Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(u.Samples)) * time.Second / time.Duration(u.SampleRate)
}

// Clip is a synthesized span of speech queued for playback. Ordinal carries the
// submission order of the originating synthesis job so the playback worker can
// reorder clips that finished synthesis out of order.
type Clip struct {
	// Samples is normalized PCM as returned by the TTS collaborator.
	Samples []float32

	// SampleRate of Samples in Hz.
	SampleRate int

	// Ordinal is the zero-based submission index within one Speak call.
	Ordinal int
}
