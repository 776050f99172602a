// Package flux implements a spectral-flux voice activity detector on top of
// the go-dsp FFT. It implements the vad.Engine interface.
//
// Speech is detected by how much the magnitude spectrum changes from one frame
// to the next. Steady background noise (fans, hum) has a nearly constant
// spectrum and therefore low flux; speech is spectrally restless and produces
// sustained positive flux. The detector keeps an adaptive noise floor per
// session and maps the ratio of current flux to that floor onto a probability
// in [0, 1], so the same threshold works across microphones with different
// baseline noise.
//
// The per-session recurrent state (previous spectrum, noise floor) is created
// once per session and threaded frame to frame; it is never reset between
// utterances, which keeps the noise-floor estimate warm across pauses.
package flux

import (
	"fmt"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/markizano/asthralios/pkg/provider/vad"
)

// Compile-time check that *Engine satisfies vad.Engine.
var _ vad.Engine = (*Engine)(nil)

const (
	// floorAlpha is the smoothing factor for the adaptive noise floor.
	floorAlpha = 0.05

	// floorGate stops the noise floor from absorbing speech: the floor only
	// adapts while the current flux is below floorGate × floor.
	floorGate = 2.0

	// floorMin keeps the ratio well-defined on digital silence.
	floorMin = 1e-6
)

// Engine creates spectral-flux VAD sessions.
type Engine struct{}

// New returns a flux VAD engine.
func New() *Engine {
	return &Engine{}
}

// NewSession creates a session with the given configuration.
func (e *Engine) NewSession(cfg vad.Config) (vad.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		win:    window.Hann(cfg.FrameSize),
		buf:    make([]float64, cfg.FrameSize),
		floor:  floorMin,
		prev:   nil,
		closed: false,
	}, nil
}

// session holds the recurrent detector state for one audio stream.
type session struct {
	mu     sync.Mutex
	cfg    vad.Config
	win    []float64
	buf    []float64
	prev   []float64 // previous magnitude spectrum; nil until the first frame
	floor  float64   // adaptive noise-floor flux estimate
	closed bool
}

// Compile-time check that *session satisfies vad.Session.
var _ vad.Session = (*session)(nil)

// ProcessFrame classifies one frame and updates the recurrent state.
func (s *session) ProcessFrame(samples []float32) (vad.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return vad.Event{}, fmt.Errorf("flux: session closed")
	}
	if len(samples) != s.cfg.FrameSize {
		return vad.Event{}, fmt.Errorf("flux: frame size %d does not match configured %d", len(samples), s.cfg.FrameSize)
	}

	for i, v := range samples {
		s.buf[i] = float64(v) * s.win[i]
	}
	spectrum := fft.FFTReal(s.buf)

	// Magnitudes of the non-redundant half, normalized by frame size so flux
	// is independent of the configured frame length.
	bins := len(spectrum)/2 + 1
	mags := make([]float64, bins)
	for i := range mags {
		mags[i] = cmplx.Abs(spectrum[i]) / float64(s.cfg.FrameSize)
	}

	if s.prev == nil {
		// First frame of the stream: nothing to diff against yet.
		s.prev = mags
		return vad.Event{Speech: false, Probability: 0}, nil
	}

	var f float64
	for i := range mags {
		if d := mags[i] - s.prev[i]; d > 0 {
			f += d
		}
	}
	s.prev = mags

	// Map the flux-to-floor ratio onto [0, 1): 0 at or below the floor,
	// 0.5 at three times the floor, asymptotically 1 for loud onsets.
	ratio := f / s.floor
	prob := (ratio - 1) / (ratio + 1)
	if prob < 0 {
		prob = 0
	}

	// Adapt the floor only on frames that look like background, so sustained
	// speech does not teach the detector that speech is silence.
	if f < s.floor*floorGate {
		s.floor = s.floor*(1-floorAlpha) + f*floorAlpha
		if s.floor < floorMin {
			s.floor = floorMin
		}
	}

	return vad.Event{
		Speech:      prob > s.cfg.SpeechThreshold,
		Probability: prob,
	}, nil
}

// Reset clears the previous spectrum and noise floor.
func (s *session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prev = nil
	s.floor = floorMin
}

// Close releases the session. Idempotent.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
