package calib

import (
	"math"

	"qrsdp/internal/rng"
	"qrsdp/internal/security"
)

// Phase is the current stress regime for a stress-flagged security.
type Phase int

const (
	PhaseCalm Phase = iota
	PhaseActive
	PhaseBurst
)

func (p Phase) String() string {
	switch p {
	case PhaseCalm:
		return "calm"
	case PhaseActive:
		return "active"
	case PhaseBurst:
		return "burst"
	default:
		return "unknown"
	}
}

// StressPhaseController modulates a producer's total event rate by a
// phase multiplier on top of the ordinary intensity model. It advances
// purely from simulation time and the producer's own RNG, never from the
// wall clock, so determinism holds: given the same seed, the same
// sequence of phase multipliers results.
type StressPhaseController struct {
	cfg security.StressConfig
	rng *rng.RNG

	phase         Phase
	phaseElapsed  float64
	phaseDuration float64
	level         float64 // smoothed intensity level in [0, 1]
	t             float64
	randomWalk    float64
}

// NewStressPhaseController constructs a controller seeded from the same
// RNG stream the producer uses for all other draws, so every stress
// transition remains part of the deterministic call order.
func NewStressPhaseController(r *rng.RNG, cfg security.StressConfig) *StressPhaseController {
	if cfg.PhaseSeconds <= 0 {
		cfg.PhaseSeconds = 60
	}
	return &StressPhaseController{
		cfg:           cfg,
		rng:           r,
		phase:         PhaseCalm,
		phaseDuration: cfg.PhaseSeconds,
	}
}

// Multiplier returns the multiplier in effect for the step about to be
// sampled, reflecting the phase as of the last Advance call (or the
// initial calm phase before the first one). It makes no RNG draws.
func (sc *StressPhaseController) Multiplier() float64 {
	return sc.multiplierForPhase()
}

// Advance moves the controller forward by dtSeconds of simulated time,
// updating the phase that Multiplier will report on the next step. Callers
// must invoke Advance exactly once per step, after Δt has been sampled, so
// that the single Gaussian draw it makes falls at a fixed point in the
// step's RNG call order.
func (sc *StressPhaseController) Advance(dtSeconds float64) {
	sc.t += dtSeconds * 0.05
	sine := (math.Sin(sc.t) + 1) / 2

	sc.randomWalk += sc.rng.Gaussian() * 0.02
	sc.randomWalk *= 0.98

	sc.level = sine + sc.randomWalk
	if sc.level < 0 {
		sc.level = 0
	}
	if sc.level > 1 {
		sc.level = 1
	}

	sc.phaseElapsed += dtSeconds
	if sc.phaseElapsed >= sc.phaseDuration {
		sc.phaseElapsed = 0
		sc.updatePhase()
	}
}

func (sc *StressPhaseController) updatePhase() {
	switch {
	case sc.level < 0.3:
		sc.phase = PhaseCalm
		sc.phaseDuration = sc.cfg.PhaseSeconds
	case sc.level < 0.7:
		sc.phase = PhaseActive
		sc.phaseDuration = sc.cfg.PhaseSeconds / 2
	default:
		sc.phase = PhaseBurst
		sc.phaseDuration = sc.cfg.PhaseSeconds / 4
	}
}

func (sc *StressPhaseController) multiplierForPhase() float64 {
	var base float64
	switch sc.phase {
	case PhaseCalm:
		base = sc.cfg.CalmMultiplier
	case PhaseActive:
		base = sc.cfg.ActiveMultiplier
	default:
		base = sc.cfg.BurstMultiplier
	}
	if base <= 0 {
		base = 1
	}
	return base * (0.5 + 0.5*sc.level)
}

// Phase returns the controller's current phase.
func (sc *StressPhaseController) Phase() Phase { return sc.phase }

// DefaultStressConfig returns sensible defaults when a stress-flagged
// security omits StressConfig.
func DefaultStressConfig() security.StressConfig {
	return security.StressConfig{
		CalmMultiplier:   1.0,
		ActiveMultiplier: 3.0,
		BurstMultiplier:  8.0,
		PhaseSeconds:     60,
	}
}
