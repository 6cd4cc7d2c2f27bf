// Package intensity implements the two state-dependent rate models that
// drive event selection: the closed-form Simple imbalance model and the
// queue-reactive HLR curve model. Both compute six non-negative rates from
// a BookState snapshot; HLR additionally exposes a flat per-level weight
// vector for joint type+level sampling.
package intensity

import (
	"math"

	"qrsdp/internal/book"
)

// Floor is the minimum value any intensity is clamped to. NaN, +Inf, and
// negative results are all replaced with this floor rather than propagated,
// per the no-panic-on-data error handling policy.
const Floor = 1e-9

// EventType mirrors book.EventType's canonical cumulative-sum order.
type EventType = book.EventType

// Intensities holds the six competing-risk rates for one step.
type Intensities struct {
	AddBid    float64
	AddAsk    float64
	CancelBid float64
	CancelAsk float64
	ExecBuy   float64
	ExecSell  float64
}

// Total returns the sum of all six rates, used as λ_total for Δt sampling.
func (in Intensities) Total() float64 {
	return in.AddBid + in.AddAsk + in.CancelBid + in.CancelAsk + in.ExecBuy + in.ExecSell
}

// AsSlice returns the six rates in the canonical order used by sample_type's
// cumulative sum: ADD_BID, ADD_ASK, CANCEL_BID, CANCEL_ASK, EXECUTE_BUY,
// EXECUTE_SELL.
func (in Intensities) AsSlice() [6]float64 {
	return [6]float64{in.AddBid, in.AddAsk, in.CancelBid, in.CancelAsk, in.ExecBuy, in.ExecSell}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < Floor {
		return Floor
	}
	return v
}

// BookState is the snapshot an intensity model consumes: top-of-book
// features plus, for HLR, the full per-level depth vectors needed by the
// curve lookups.
type BookState struct {
	Features book.Features
	BidDepth []uint32 // depth_at(BID, k) for k in [0, K)
	AskDepth []uint32 // depth_at(ASK, k) for k in [0, K)
}

// Model computes Intensities from a BookState. HLR additionally implements
// PerLevelModel, which callers detect by type assertion; Simple does not,
// since its six rates fully describe the event, with the attribute sampler
// choosing level independently.
type Model interface {
	Compute(state BookState) Intensities
}

// PerLevelModel is implemented by models that can draw type and level
// jointly.
type PerLevelModel interface {
	Model
	PerLevelWeights(state BookState) []float64
}
