// Package telemetry provides engine-internal phase tracing. It is distinct
// from internal/diag: diag holds user-facing compile diagnostics that are
// part of the stats surface, while telemetry is operational tracing (phase
// timings, fixed-point iteration counts) consumed by whoever embeds the
// engine, never by the end user reading build output.
package telemetry

import (
	"time"

	"github.com/rs/zerolog"
)

// Tracer wraps a zerolog.Logger scoped to one compilation.
type Tracer struct {
	log zerolog.Logger
}

// New builds a Tracer writing to the given zerolog logger. Passing
// zerolog.Nop() disables tracing entirely at negligible cost, which is the
// default for library callers that haven't opted into it.
func New(base zerolog.Logger) *Tracer {
	return &Tracer{log: base.With().Str("component", "bundlecore").Logger()}
}

// Phase records the wall-clock duration of one top-level lifecycle phase
// (make, finish-modules, seal, code-generation, emit — see spec.md §3
// "Lifecycle").
func (t *Tracer) Phase(name string, fn func()) {
	start := time.Now()
	fn()
	t.log.Debug().Str("phase", name).Dur("elapsed", time.Since(start)).Msg("phase complete")
}

// FixedPoint records how many rounds a fixed-point pass (usage propagation,
// remove-available-modules) took to converge, and how long it took overall.
func (t *Tracer) FixedPoint(name string, rounds int, elapsed time.Duration) {
	t.log.Debug().
		Str("pass", name).
		Int("rounds", rounds).
		Dur("elapsed", elapsed).
		Msg("fixed point converged")
}

// Cancelled records that a phase was abandoned due to cancellation.
func (t *Tracer) Cancelled(phase string) {
	t.log.Info().Str("phase", phase).Msg("compilation cancelled")
}

// ChunkCounts records the shape of the produced chunk graph, useful for
// regression-watching chunk count/size drift across builds.
func (t *Tracer) ChunkCounts(chunks, chunkGroups, modules int) {
	t.log.Info().
		Int("chunks", chunks).
		Int("chunk_groups", chunkGroups).
		Int("modules", modules).
		Msg("chunk graph materialized")
}
