// Package sampler turns intensities and RNG draws into event timing and
// event selection. Every function here takes the RNG
// explicitly so the producer controls call order, which is part of the
// determinism contract.
package sampler

import (
	"math"

	"qrsdp/internal/book"
	"qrsdp/internal/intensity"
	"qrsdp/internal/rng"
)

// SentinelDeltaT is returned when λ_total is non-positive or non-finite, to
// end the session harmlessly instead of producing an invalid Δt.
const SentinelDeltaT = 1e9

// SampleDeltaT draws an exponential interarrival time with rate lambdaTotal.
// Consumes one RNG draw; none when lambdaTotal is non-positive or
// non-finite.
func SampleDeltaT(r *rng.RNG, lambdaTotal float64) float64 {
	if lambdaTotal <= 0 || math.IsNaN(lambdaTotal) || math.IsInf(lambdaTotal, 0) {
		return SentinelDeltaT
	}
	u := r.Uniform01()
	dt := -math.Log(u) / lambdaTotal
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return SentinelDeltaT
	}
	return dt
}

// SampleType draws an event type via cumulative-sum categorical sampling
// over the six rates in canonical order. Consumes one RNG draw; none when
// the total rate is non-positive.
func SampleType(r *rng.RNG, in intensity.Intensities) book.EventType {
	rates := in.AsSlice()
	total := in.Total()
	if total <= 0 {
		return book.ExecuteSell
	}
	target := r.Float64() * total
	cumulative := 0.0
	for i, v := range rates {
		cumulative += v
		if target < cumulative {
			return book.EventType(i)
		}
	}
	return book.ExecuteSell
}

// SampleIndexFromWeights performs the same categorical procedure over an
// arbitrary non-negative weight vector, used for HLR's joint type+level
// draw. Consumes one RNG draw; none when the weights sum to zero or less.
func SampleIndexFromWeights(r *rng.RNG, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return len(weights) - 1
	}
	target := r.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if target < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
