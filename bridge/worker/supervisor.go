// Package worker schedules the fire-and-forget background units spawned by
// the webhook coordinator, with a supervising error boundary so no failure
// or panic ever crashes the process.
package worker

import (
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Supervisor runs background units on a bounded pool. Units run to
// completion or failure; there is no cancellation, and in-flight work is
// lost on process shutdown (accepted, not a delivery guarantee).
type Supervisor struct {
	pool   *pool.Pool
	logger zerolog.Logger
}

// NewSupervisor bounds the number of concurrently processing units.
// maxWorkers <= 0 means unbounded.
func NewSupervisor(maxWorkers int, logger zerolog.Logger) *Supervisor {
	p := pool.New()
	if maxWorkers > 0 {
		p = p.WithMaxGoroutines(maxWorkers)
	}
	return &Supervisor{
		pool:   p,
		logger: logger.With().Str("component", "worker").Logger(),
	}
}

// Go schedules fn without awaiting it. Panics are caught and logged; errors
// are logged. fn itself is responsible for its fallback behavior (the
// coordinator guarantees the final callback inside fn).
func (s *Supervisor) Go(name string, fn func() error) {
	s.pool.Go(func() {
		var err error
		recovered := panics.Try(func() { err = fn() })
		switch {
		case recovered != nil:
			s.logger.Error().
				Str("unit", name).
				Str("panic", recovered.String()).
				Msg("background unit panicked")
		case err != nil:
			s.logger.Error().Err(err).Str("unit", name).Msg("background unit failed")
		}
	})
}

// Wait drains scheduled units; used on shutdown and in tests.
func (s *Supervisor) Wait() { s.pool.Wait() }
