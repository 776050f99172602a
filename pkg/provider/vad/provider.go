// Package vad defines the Engine interface for voice activity detection backends.
//
// A VAD engine wraps a frame-level speech classifier and surfaces it as a
// stateful per-stream session. Each session carries its own recurrent state
// (previous spectra, adaptive noise floor) so that multiple audio streams can
// be classified independently; the state lives for the whole session, not per
// utterance, so the classifier's view of the noise floor survives utterance
// boundaries.
//
// VAD is synchronous by design: ProcessFrame returns immediately with a
// detection result, making it suitable for the per-frame capture loop that
// gates utterance segmentation.
//
// Implementations must be safe for concurrent use across different sessions.
// A single Session must not be shared across goroutines.
package vad

import "fmt"

// Config holds the parameters for a VAD session.
//
// The speech threshold is deliberately a knob, not a constant: values between
// 0.1 and 0.8 are all defensible depending on microphone and room. Too low
// over-segments on noise, too high drops soft speech.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the frames passed
	// to ProcessFrame. Common values: 8000, 16000, 48000.
	SampleRate int

	// FrameSize is the number of samples per frame. ProcessFrame returns an
	// error if a frame of a different length is supplied.
	FrameSize int

	// SpeechThreshold is the probability above which a frame is classified as
	// speech. Range: (0.0, 1.0).
	SpeechThreshold float64
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("vad: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("vad: frame size must be positive, got %d", c.FrameSize)
	}
	if c.SpeechThreshold <= 0 || c.SpeechThreshold >= 1 {
		return fmt.Errorf("vad: speech threshold must be in (0, 1), got %v", c.SpeechThreshold)
	}
	return nil
}

// Session is an active VAD session for a single audio stream.
//
// A Session holds recurrent classifier state threaded from frame to frame. It
// is owned by exactly one goroutine (the capture worker).
type Session interface {
	// ProcessFrame classifies a single frame of normalized samples and returns
	// the detection result, updating the session's recurrent state. Returns an
	// error if the frame length does not match the configured FrameSize or the
	// classifier fails internally; classifier failures are fatal to the stream.
	ProcessFrame(samples []float32) (Event, error)

	// Reset clears the recurrent state without closing the session. Use when
	// the audio stream is restarted, so stale spectra from the previous stream
	// do not bias the first frames of the new one.
	Reset()

	// Close releases the session. Calling Close more than once is safe.
	Close() error
}

// Engine is the factory for VAD sessions, implemented by each backend.
//
// Implementations must be safe for concurrent use: multiple goroutines may
// call NewSession simultaneously to create independent sessions.
type Engine interface {
	// NewSession creates a session with the given configuration, immediately
	// ready to accept frames. Returns an error if the configuration is invalid
	// or resources cannot be allocated.
	NewSession(cfg Config) (Session, error)
}
