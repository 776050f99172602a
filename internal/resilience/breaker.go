// Package resilience keeps the agent conversing while a collaborator backend
// degrades. A [Chain] holds the configured primary backend plus standbys and
// routes each call to the first one that is healthy; a per-backend [Breaker]
// stops the chain from hammering a backend that keeps erroring, so a dead
// whisper or coqui server costs one timeout, not one per turn.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when a breaker rejects a call outright because
// its backend failed too recently.
var ErrBreakerOpen = errors.New("resilience: breaker open")

// BreakerState is the breaker's current admission policy.
type BreakerState uint8

const (
	// BreakerClosed admits every call.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects every call until the cooldown elapses.
	BreakerOpen

	// BreakerProbing admits calls again after the cooldown; consecutive
	// successes close the breaker, the first failure re-opens it.
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerProbing:
		return "probing"
	default:
		return "invalid"
	}
}

// BreakerConfig tunes a [Breaker]. The zero value gets usable defaults.
type BreakerConfig struct {
	// Name labels the protected backend in logs.
	Name string

	// Trip is how many consecutive failures open the breaker. Default 5.
	Trip int

	// Cooldown is how long an open breaker rejects calls before it starts
	// probing the backend again. Default 30s.
	Cooldown time.Duration

	// Probes is how many consecutive probe successes close the breaker
	// again. Default 3.
	Probes int
}

// Breaker guards one backend. Safe for concurrent use; during probing,
// concurrent callers may all be admitted as probes, which only means the
// backend sees a few extra requests while recovering.
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration
	probes   int

	mu       sync.Mutex
	state    BreakerState
	fails    int
	probeOK  int
	openedAt time.Time
}

// NewBreaker returns a closed [Breaker], filling zero config fields with
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		cooldown: cfg.Cooldown,
		probes:   cfg.Probes,
	}
}

// Do runs fn unless the breaker rejects the call, and feeds the outcome back
// into the breaker's failure accounting. The returned error is fn's own, or
// [ErrBreakerOpen] when fn was never called.
func (b *Breaker) Do(fn func() error) error {
	if !b.admit() {
		return ErrBreakerOpen
	}
	err := fn()
	b.observe(err)
	return err
}

// State reports the breaker's admission policy as of now: an open breaker
// whose cooldown has elapsed reports [BreakerProbing] even though the
// transition is recorded on the next Do.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerProbing
	}
	return b.state
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerOpen {
		return true
	}
	if time.Since(b.openedAt) < b.cooldown {
		return false
	}
	b.state = BreakerProbing
	b.probeOK = 0
	slog.Info("probing backend again after cooldown", "backend", b.name)
	return true
}

func (b *Breaker) observe(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		if b.state == BreakerProbing {
			// A failed probe means the backend is still down.
			b.open()
			return
		}
		b.fails++
		if b.fails >= b.trip {
			b.open()
		}
		return
	}

	switch b.state {
	case BreakerProbing:
		b.probeOK++
		if b.probeOK >= b.probes {
			b.state = BreakerClosed
			b.fails = 0
			slog.Info("backend recovered, breaker closed", "backend", b.name)
		}
	default:
		b.fails = 0
	}
}

// open must be called with b.mu held.
func (b *Breaker) open() {
	b.state = BreakerOpen
	b.fails = b.trip
	b.openedAt = time.Now()
	slog.Warn("backend failing, breaker opened",
		"backend", b.name, "cooldown", b.cooldown)
}
