// SPDX-License-Identifier: MIT
// Package: pulsetrain/stim
//
// options.go — functional options for Derive and Schedule.
//
// Contract:
//   • Option constructors validate and PANIC on meaningless inputs (nil
//     logger, nil rng). The pipeline itself never panics.
//   • Determinism is explicit: jitter draws only from the configured rng.
//   • Defaults: discard logger, rng = train.RandFromSeed(0), created once
//     per Derive and shared by every Snapshot.With derived from it.

package stim

import (
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/katalvlaran/pulsetrain/train"
)

// Option customizes a derivation by mutating its config before it starts.
type Option func(*config)

// config aggregates the knobs shared by Derive, Schedule and Snapshot.With.
type config struct {
	logger *slog.Logger
	rng    *rand.Rand
}

// newConfig returns deterministic defaults with opts applied in order.
func newConfig(opts ...Option) config {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)})),
		rng:    nil,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rng == nil {
		cfg.rng = train.RandFromSeed(0)
	}

	return cfg
}

// WithLogger routes debug records of fit decisions to l. Panics on nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("stim: WithLogger(nil)")
	}

	return func(c *config) { c.logger = l }
}

// WithRand provides the source consumed by jitter permutations. The source
// is advanced by every derivation that uses jitter. Panics on nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic("stim: WithRand(nil)")
	}

	return func(c *config) { c.rng = r }
}

// WithSeed is WithRand(train.RandFromSeed(seed)).
func WithSeed(seed int64) Option {
	return func(c *config) { c.rng = train.RandFromSeed(seed) }
}
