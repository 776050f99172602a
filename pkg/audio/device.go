package audio

import (
	"context"
	"errors"
	"fmt"
)

// Direction distinguishes capture (microphone) from playback (speaker) endpoints.
type Direction int

const (
	// Capture reads audio from a recording endpoint.
	Capture Direction = iota

	// Playback writes audio to an output endpoint.
	Playback
)

// String returns the human-readable name of the direction.
func (d Direction) String() string {
	switch d {
	case Capture:
		return "capture"
	case Playback:
		return "playback"
	default:
		return "unknown"
	}
}

// Device errors. All device failures are fatal to the owning worker: a
// half-open stream risks corrupt audio, so the pipeline surfaces the error and
// stops rather than retrying silently.
var (
	// ErrDeviceUnavailable indicates the requested endpoint does not exist or
	// could not be opened.
	ErrDeviceUnavailable = errors.New("audio: device unavailable")

	// ErrDeviceBusy indicates this process already holds an open device for the
	// same direction. Device handles are never duplicated; callers must Close
	// the existing handle first.
	ErrDeviceBusy = errors.New("audio: device busy")

	// ErrDeviceClosed is returned by Read and Write after Close. Workers treat
	// it as the normal end of stream during shutdown.
	ErrDeviceClosed = errors.New("audio: device closed")
)

// IOError wraps a mid-stream device failure with the direction it occurred on.
type IOError struct {
	Direction Direction
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("audio: %s stream error: %v", e.Direction, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *IOError) Unwrap() error { return e.Err }

// DeviceConfig holds the fixed stream parameters a device is opened with.
// Configuration is read-only after construction; a caller that needs different
// parameters must Close and reopen.
type DeviceConfig struct {
	// Name selects a specific endpoint. Empty means the system default.
	Name string

	// SampleRate in Hz. Must be positive.
	SampleRate int

	// Channels per frame. Must be positive.
	Channels int

	// FrameSize is the number of samples per channel delivered by each Read and
	// accepted by each Write. Must be positive.
	FrameSize int
}

// Validate reports whether the configuration is usable.
func (c DeviceConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("audio: channel count must be positive, got %d", c.Channels)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("audio: frame size must be positive, got %d", c.FrameSize)
	}
	return nil
}

// Device is an exclusive handle to one audio endpoint at a fixed format.
//
// A Device is owned by exactly one worker goroutine; the handle is never
// shared or duplicated. Close may be called from any goroutine and must
// unblock a pending Read or Write within roughly one frame duration.
type Device interface {
	// Read blocks until one full frame of audio is available and returns it
	// with samples normalized to [-1, 1] and NaN/Inf values scrubbed.
	// Returns ErrDeviceClosed after Close, or an *IOError on stream failure.
	// Only valid on capture devices.
	Read(ctx context.Context) (Frame, error)

	// Write blocks until the device buffer accepts the frame. Samples outside
	// [-1, 1] are clamped. Returns ErrDeviceClosed after Close, or an *IOError
	// on stream failure. Only valid on playback devices.
	Write(ctx context.Context, frame Frame) error

	// Close releases the endpoint. Idempotent and safe to call concurrently
	// with a blocked Read or Write, which it unblocks.
	Close() error
}
