// Package duplex implements the real-time duplex audio pipeline: a capture
// worker that segments microphone audio into utterances, a playback worker
// that plays synthesized clips in submission order, and a controller that owns
// both and exposes the listen/speak surface the conversation loop drives.
package duplex

import (
	"fmt"
	"time"

	"github.com/markizano/asthralios/pkg/audio"
	"github.com/markizano/asthralios/pkg/provider/vad"
)

// SegmenterConfig holds the utterance-boundary knobs. These are tunable by
// design — the useful ranges are wide (silence timeouts from 200 ms to 3 s are
// all defensible) and the right values depend on room and speaker.
type SegmenterConfig struct {
	// SampleRate of the incoming frames in Hz.
	SampleRate int

	// MinSpeechDuration is the least accumulated speech that counts as an
	// utterance. Shorter bursts (coughs, keyboard clacks that fool the
	// classifier for a frame) are discarded.
	MinSpeechDuration time.Duration

	// SilenceTimeout is the post-speech silence that closes an utterance.
	// Long enough to tolerate mid-sentence pauses.
	SilenceTimeout time.Duration

	// Pad is how much audio immediately before the first speech frame is
	// prepended to the utterance, so a soft first syllable is not clipped.
	Pad time.Duration
}

// Validate reports whether the configuration is usable.
func (c SegmenterConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("duplex: segmenter sample rate must be positive, got %d", c.SampleRate)
	}
	if c.MinSpeechDuration < 0 {
		return fmt.Errorf("duplex: min speech duration must not be negative, got %v", c.MinSpeechDuration)
	}
	if c.SilenceTimeout <= 0 {
		return fmt.Errorf("duplex: silence timeout must be positive, got %v", c.SilenceTimeout)
	}
	if c.Pad < 0 {
		return fmt.Errorf("duplex: pad must not be negative, got %v", c.Pad)
	}
	return nil
}

// segState is the segmenter's two-state machine.
type segState int

const (
	segIdle     segState = iota // no speech observed in the current utterance
	segSpeaking                 // at least one frame exceeded the threshold
)

// Segmenter turns a stream of fixed-size frames into complete utterances.
//
// Buffering begins only once the classifier confirms speech — long idle
// periods cost one pad window of memory, nothing more — and an utterance
// closes only after a deliberate post-speech silence window. Pure silence
// never becomes an utterance.
//
// A Segmenter is owned by a single goroutine (the capture worker). The VAD
// session it wraps is created once per worker lifetime and threads its
// recurrent state across utterance boundaries.
type Segmenter struct {
	cfg     SegmenterConfig
	session vad.Session

	state   segState
	pad     *padRing
	buf     []float32
	start   time.Duration
	speech  time.Duration
	silence time.Duration
}

// NewSegmenter wraps an active VAD session with utterance segmentation.
func NewSegmenter(session vad.Session, cfg SegmenterConfig) (*Segmenter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	padSamples := int(int64(cfg.SampleRate) * int64(cfg.Pad) / int64(time.Second))
	return &Segmenter{
		cfg:     cfg,
		session: session,
		pad:     newPadRing(padSamples),
	}, nil
}

// Push feeds one frame through the classifier and advances the state machine.
// It returns a completed utterance when the trailing silence window elapses,
// or nil while one is still in progress (or no speech has been heard).
// A classifier error is fatal to the stream.
func (s *Segmenter) Push(frame audio.Frame) (*audio.Utterance, error) {
	ev, err := s.session.ProcessFrame(frame.Samples)
	if err != nil {
		return nil, fmt.Errorf("duplex: classifier failed: %w", err)
	}

	dur := frame.Duration()

	if ev.Speech {
		if s.state == segIdle {
			s.state = segSpeaking
			s.start = frame.Timestamp - s.pad.duration(s.cfg.SampleRate)
			if s.start < 0 {
				s.start = 0
			}
			s.buf = append(s.buf, s.pad.read()...)
			s.pad.clear()
		}
		s.silence = 0
		s.speech += dur
		s.buf = append(s.buf, frame.Samples...)
		return nil, nil
	}

	switch s.state {
	case segIdle:
		// Keep at most one pad window of pre-speech audio.
		s.pad.add(frame.Samples)
		return nil, nil

	case segSpeaking:
		s.silence += dur
		if s.silence < s.cfg.SilenceTimeout {
			return nil, nil
		}
		utt := s.close()
		if utt == nil {
			return nil, nil
		}
		return utt, nil
	}
	return nil, nil
}

// close finalizes the in-progress utterance and resets to idle. Returns nil
// when the accumulated speech was too short to count.
func (s *Segmenter) close() *audio.Utterance {
	buf, speech, silence, start := s.buf, s.speech, s.silence, s.start
	s.buf = nil
	s.speech = 0
	s.silence = 0
	s.state = segIdle

	if speech < s.cfg.MinSpeechDuration || len(buf) == 0 {
		return nil
	}
	return &audio.Utterance{
		Samples:         buf,
		SampleRate:      s.cfg.SampleRate,
		Start:           start,
		TrailingSilence: silence,
	}
}

// padRing keeps the most recent pre-speech samples, up to a fixed window.
type padRing struct {
	buf    []float32
	head   int
	filled int
}

func newPadRing(size int) *padRing {
	return &padRing{buf: make([]float32, size)}
}

func (r *padRing) add(samples []float32) {
	if len(r.buf) == 0 {
		return
	}
	for _, v := range samples {
		r.buf[r.head] = v
		r.head = (r.head + 1) % len(r.buf)
		if r.filled < len(r.buf) {
			r.filled++
		}
	}
}

// read returns the buffered samples oldest-first.
func (r *padRing) read() []float32 {
	out := make([]float32, 0, r.filled)
	start := (r.head - r.filled + len(r.buf)) % max(len(r.buf), 1)
	for i := 0; i < r.filled; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

func (r *padRing) clear() {
	r.head = 0
	r.filled = 0
}

func (r *padRing) duration(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(r.filled) * time.Second / time.Duration(rate)
}
