// Package mock provides test doubles for the vad package interfaces.
//
// Use Engine to verify that sessions are created with the expected Config.
// Use Session to script per-frame Event responses and inspect the frames that
// were submitted for classification.
package mock

import (
	"sync"

	"github.com/markizano/asthralios/pkg/provider/vad"
)

// Engine is a mock implementation of vad.Engine.
type Engine struct {
	mu sync.Mutex

	// Session is returned by NewSession. If nil, NewSession returns a new
	// default Session.
	Session vad.Session

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records the Config of every NewSession call in order.
	NewSessionCalls []vad.Config
}

// Compile-time check that *Engine satisfies vad.Engine.
var _ vad.Engine = (*Engine)(nil)

// NewSession records the call and returns Session, NewSessionErr.
func (e *Engine) NewSession(cfg vad.Config) (vad.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.NewSessionCalls = append(e.NewSessionCalls, cfg)
	if e.NewSessionErr != nil {
		return nil, e.NewSessionErr
	}
	if e.Session != nil {
		return e.Session, nil
	}
	return &Session{}, nil
}

// Session is a mock implementation of vad.Session. Script it with a sequence
// of Events; once the script is exhausted every further frame returns the zero
// Event (silence).
type Session struct {
	mu sync.Mutex

	// Events are returned one per ProcessFrame call, in order.
	Events []vad.Event

	// ProcessFrameErr, if non-nil, is returned by every ProcessFrame call.
	ProcessFrameErr error

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// FrameCount is the number of ProcessFrame calls so far.
	FrameCount int

	// ResetCallCount is the number of times Reset was called.
	ResetCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Compile-time check that *Session satisfies vad.Session.
var _ vad.Session = (*Session)(nil)

// ProcessFrame returns the next scripted Event.
func (s *Session) ProcessFrame(_ []float32) (vad.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ProcessFrameErr != nil {
		return vad.Event{}, s.ProcessFrameErr
	}
	var ev vad.Event
	if s.FrameCount < len(s.Events) {
		ev = s.Events[s.FrameCount]
	}
	s.FrameCount++
	return ev, nil
}

// Reset records the call.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCallCount++
}

// Close records the call and returns CloseErr.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}
