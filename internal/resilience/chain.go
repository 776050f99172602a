package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrChainExhausted is returned when every backend in a [Chain] either failed
// or was rejected by its breaker. It wraps the last backend error.
var ErrChainExhausted = errors.New("resilience: every backend failed")

// ChainConfig configures a [Chain]. Every backend added to the chain gets its
// own [Breaker] built from the Breaker template (the name is filled in per
// backend).
type ChainConfig struct {
	Breaker BreakerConfig
}

// link is one backend in a chain with its guarding breaker.
type link[T any] struct {
	name    string
	backend T
	breaker *Breaker
}

// Chain routes calls to an ordered list of interchangeable backends: the
// primary first, then each standby in the order added. A backend whose
// breaker is open is skipped without being called.
//
// Chain is safe for concurrent use after construction; Add is not safe to
// call concurrently with Try.
type Chain[T any] struct {
	links      []link[T]
	breakerCfg BreakerConfig
}

// NewChain returns a chain with primary as its only backend.
func NewChain[T any](name string, primary T, cfg ChainConfig) *Chain[T] {
	c := &Chain[T]{breakerCfg: cfg.Breaker}
	c.links = append(c.links, c.newLink(name, primary))
	return c
}

// Add appends a standby backend. Standbys are tried in the order added.
func (c *Chain[T]) Add(name string, standby T) {
	c.links = append(c.links, c.newLink(name, standby))
}

func (c *Chain[T]) newLink(name string, backend T) link[T] {
	cfg := c.breakerCfg
	cfg.Name = name
	return link[T]{name: name, backend: backend, breaker: NewBreaker(cfg)}
}

// Each visits every backend in chain order. Used by wrappers whose interface
// has lifecycle calls (Close) that must reach all backends, not just the
// healthy one.
func (c *Chain[T]) Each(fn func(name string, backend T)) {
	for _, l := range c.links {
		fn(l.name, l.backend)
	}
}

// Primary returns the first backend. Static metadata queries (an embedding
// model's dimensionality) come from here rather than whichever backend
// happens to be healthy.
func (c *Chain[T]) Primary() T {
	return c.links[0].backend
}

// Try runs fn against each backend in order until one succeeds, skipping
// backends with open breakers. When every backend fails it returns
// [ErrChainExhausted] wrapping the last error.
func (c *Chain[T]) Try(fn func(T) error) error {
	var last error
	for i := range c.links {
		l := &c.links[i]
		err := l.breaker.Do(func() error { return fn(l.backend) })
		if err == nil {
			return nil
		}
		last = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend, breaker open", "backend", l.name)
			continue
		}
		slog.Warn("backend failed, trying next in chain",
			"backend", l.name, "err", err)
	}
	return fmt.Errorf("%w: %v", ErrChainExhausted, last)
}

// Attempt is [Chain.Try] for calls that produce a value. It is a function
// rather than a method because methods cannot add type parameters.
func Attempt[T, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var out R
	err := c.Try(func(backend T) error {
		var err error
		out, err = fn(backend)
		return err
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return out, nil
}
