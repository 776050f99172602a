// Package portaudio implements the audio.Device contract on top of the
// PortAudio bindings, giving the pipeline exclusive blocking access to one
// local microphone or speaker endpoint.
//
// The package keeps a process-wide registry of open directions: opening a
// second capture (or playback) device while one is already open fails with
// audio.ErrDeviceBusy. PortAudio itself is initialised on first open and
// terminated when the last device closes.
package portaudio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/markizano/asthralios/pkg/audio"
)

// Compile-time check that *Device satisfies audio.Device.
var _ audio.Device = (*Device)(nil)

// Process-wide bookkeeping: PortAudio init refcount and the per-direction
// exclusivity guard.
var (
	globalMu  sync.Mutex
	initCount int
	openDirs  = map[audio.Direction]bool{}
)

func acquire(dir audio.Direction) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if openDirs[dir] {
		return fmt.Errorf("portaudio: %s already open in this process: %w", dir, audio.ErrDeviceBusy)
	}
	if initCount == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("portaudio: initialize: %w", audio.ErrDeviceUnavailable)
		}
	}
	initCount++
	openDirs[dir] = true
	return nil
}

func release(dir audio.Direction) {
	globalMu.Lock()
	defer globalMu.Unlock()
	delete(openDirs, dir)
	initCount--
	if initCount == 0 {
		if err := portaudio.Terminate(); err != nil {
			slog.Warn("portaudio terminate failed", "err", err)
		}
	}
}

// Device is an exclusive handle to one PortAudio stream.
//
// Read and Write are owned by a single worker goroutine; Close may be called
// from any goroutine and aborts the stream to unblock a pending call.
type Device struct {
	direction audio.Direction
	cfg       audio.DeviceConfig
	stream    *portaudio.Stream
	buf       []int16

	mu     sync.Mutex
	closed bool
	read   time.Duration // cumulative capture time, stamps outgoing frames
}

// Open opens the endpoint named in cfg (or the system default) for the given
// direction and starts the stream. The returned device delivers (or accepts)
// frames of exactly cfg.FrameSize samples per channel.
func Open(direction audio.Direction, cfg audio.DeviceConfig) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := acquire(direction); err != nil {
		return nil, err
	}

	d := &Device{
		direction: direction,
		cfg:       cfg,
		buf:       make([]int16, cfg.FrameSize*cfg.Channels),
	}

	stream, err := d.open()
	if err != nil {
		release(direction)
		return nil, err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		release(direction)
		return nil, fmt.Errorf("portaudio: start %s stream: %w", direction, audio.ErrDeviceUnavailable)
	}
	d.stream = stream

	slog.Debug("audio device open",
		"direction", direction.String(),
		"device", cfg.Name,
		"rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"frame_size", cfg.FrameSize,
	)
	return d, nil
}

func (d *Device) open() (*portaudio.Stream, error) {
	endpoint, err := d.endpoint()
	if err != nil {
		return nil, err
	}

	var params portaudio.StreamParameters
	if d.direction == audio.Capture {
		params = portaudio.LowLatencyParameters(endpoint, nil)
		params.Input.Channels = d.cfg.Channels
	} else {
		params = portaudio.LowLatencyParameters(nil, endpoint)
		params.Output.Channels = d.cfg.Channels
	}
	params.SampleRate = float64(d.cfg.SampleRate)
	params.FramesPerBuffer = d.cfg.FrameSize

	stream, err := portaudio.OpenStream(params, &d.buf)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open %s stream: %w", d.direction, audio.ErrDeviceUnavailable)
	}
	return stream, nil
}

// endpoint resolves cfg.Name to a PortAudio device, falling back to the system
// default when the name is empty.
func (d *Device) endpoint() (*portaudio.DeviceInfo, error) {
	if d.cfg.Name == "" {
		if d.direction == audio.Capture {
			info, err := portaudio.DefaultInputDevice()
			if err != nil {
				return nil, fmt.Errorf("portaudio: no default input: %w", audio.ErrDeviceUnavailable)
			}
			return info, nil
		}
		info, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("portaudio: no default output: %w", audio.ErrDeviceUnavailable)
		}
		return info, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", audio.ErrDeviceUnavailable)
	}
	for _, info := range devices {
		if info.Name == d.cfg.Name {
			return info, nil
		}
	}
	return nil, fmt.Errorf("portaudio: no device named %q: %w", d.cfg.Name, audio.ErrDeviceUnavailable)
}

// Read blocks until one frame of audio has been captured and returns it
// normalized with NaN/Inf samples scrubbed.
func (d *Device) Read(ctx context.Context) (audio.Frame, error) {
	if d.direction != audio.Capture {
		return audio.Frame{}, fmt.Errorf("portaudio: read on %s device", d.direction)
	}
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	if d.isClosed() {
		return audio.Frame{}, audio.ErrDeviceClosed
	}

	if err := d.stream.Read(); err != nil {
		if d.isClosed() {
			return audio.Frame{}, audio.ErrDeviceClosed
		}
		return audio.Frame{}, &audio.IOError{Direction: d.direction, Err: err}
	}

	samples := make([]float32, len(d.buf))
	for i, s := range d.buf {
		samples[i] = float32(s) / 32768.0
	}
	samples = audio.ScrubNonFinite(samples)

	d.mu.Lock()
	ts := d.read
	d.read += time.Duration(d.cfg.FrameSize) * time.Second / time.Duration(d.cfg.SampleRate)
	d.mu.Unlock()

	return audio.Frame{
		Samples:    samples,
		SampleRate: d.cfg.SampleRate,
		Channels:   d.cfg.Channels,
		Timestamp:  ts,
	}, nil
}

// Write blocks until the device buffer has accepted the whole frame. Frames
// are written in FrameSize chunks; a short trailing chunk is zero-padded.
func (d *Device) Write(ctx context.Context, frame audio.Frame) error {
	if d.direction != audio.Playback {
		return fmt.Errorf("portaudio: write on %s device", d.direction)
	}

	for off := 0; off < len(frame.Samples); off += len(d.buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.isClosed() {
			return audio.ErrDeviceClosed
		}

		chunk := frame.Samples[off:min(off+len(d.buf), len(frame.Samples))]
		for i := range d.buf {
			if i < len(chunk) {
				v := chunk[i]
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
				d.buf[i] = int16(v * 32767)
			} else {
				d.buf[i] = 0
			}
		}

		if err := d.stream.Write(); err != nil {
			if d.isClosed() {
				return audio.ErrDeviceClosed
			}
			return &audio.IOError{Direction: d.direction, Err: err}
		}
	}
	return nil
}

// Close aborts the stream, unblocking any pending Read or Write, and releases
// the endpoint. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	// Abort rather than Stop: Stop waits for the buffer to drain, Abort
	// unblocks a pending blocking Read/Write immediately.
	if err := d.stream.Abort(); err != nil {
		slog.Debug("portaudio abort", "direction", d.direction.String(), "err", err)
	}
	err := d.stream.Close()
	release(d.direction)
	if err != nil {
		return &audio.IOError{Direction: d.direction, Err: err}
	}
	return nil
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
