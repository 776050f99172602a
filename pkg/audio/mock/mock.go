// Package mock provides test doubles for the audio package interfaces.
//
// Device is a scriptable audio.Device: queue frames for the capture side with
// PushFrame, inspect playback writes via WriteCalls, and use Close to simulate
// shutdown (a blocked Read unblocks with audio.ErrDeviceClosed).
package mock

import (
	"context"
	"sync"

	"github.com/markizano/asthralios/pkg/audio"
)

// Device is a mock implementation of audio.Device.
type Device struct {
	mu sync.Mutex

	// ReadErr, if non-nil, is returned by Read once the frame queue is empty.
	// When nil, Read blocks until a frame is pushed or the device is closed.
	ReadErr error

	// WriteErr, if non-nil, is returned by every Write call.
	WriteErr error

	// CloseErr, if non-nil, is returned by the first Close call.
	CloseErr error

	// WriteCalls records every frame passed to Write, in order.
	WriteCalls []audio.Frame

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	frames chan audio.Frame
	done   chan struct{}
	closed bool
}

// Compile-time check that *Device satisfies audio.Device.
var _ audio.Device = (*Device)(nil)

// NewDevice returns a Device with room for buf queued frames.
func NewDevice(buf int) *Device {
	return &Device{
		frames: make(chan audio.Frame, buf),
		done:   make(chan struct{}),
	}
}

// PushFrame queues a frame for a future Read. Blocks if the queue is full.
func (d *Device) PushFrame(f audio.Frame) {
	d.frames <- f
}

// Read returns the next queued frame. With an empty queue it returns ReadErr
// if set, otherwise blocks until a frame arrives, the context is cancelled, or
// the device is closed.
func (d *Device) Read(ctx context.Context) (audio.Frame, error) {
	select {
	case f := <-d.frames:
		return f, nil
	default:
	}

	d.mu.Lock()
	err := d.ReadErr
	d.mu.Unlock()
	if err != nil {
		return audio.Frame{}, err
	}

	select {
	case f := <-d.frames:
		return f, nil
	case <-d.done:
		return audio.Frame{}, audio.ErrDeviceClosed
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

// Write records the frame and returns WriteErr.
func (d *Device) Write(ctx context.Context, frame audio.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return audio.ErrDeviceClosed
	}
	if d.WriteErr != nil {
		return d.WriteErr
	}
	cp := audio.Frame{
		Samples:    append([]float32(nil), frame.Samples...),
		SampleRate: frame.SampleRate,
		Channels:   frame.Channels,
		Timestamp:  frame.Timestamp,
	}
	d.WriteCalls = append(d.WriteCalls, cp)
	return nil
}

// Close marks the device closed, unblocking pending reads. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCallCount++
	if d.closed {
		return nil
	}
	d.closed = true
	close(d.done)
	return d.CloseErr
}

// Written returns a snapshot of all frames passed to Write so far.
func (d *Device) Written() []audio.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]audio.Frame(nil), d.WriteCalls...)
}
