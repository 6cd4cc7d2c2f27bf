package intensity

import "qrsdp/internal/book"

// TailRule governs lookup behaviour for queue sizes beyond a curve's
// tabulated range.
type TailRule int

const (
	// TailFlat reuses the value at n_max for any n > n_max.
	TailFlat TailRule = iota
	// TailZero returns 0 for any n > n_max.
	TailZero
)

// Curve is a table of non-negative rates indexed by queue size, with a
// tail rule for sizes beyond the table.
type Curve struct {
	Values []float64
	Tail   TailRule
}

// Value returns the rate at queue size n, applying the tail rule if n is
// beyond the table.
func (c Curve) Value(n int) float64 {
	if n < 0 {
		n = 0
	}
	if n < len(c.Values) {
		return c.Values[n]
	}
	if len(c.Values) == 0 {
		return 0
	}
	switch c.Tail {
	case TailZero:
		return 0
	default: // TailFlat
		return c.Values[len(c.Values)-1]
	}
}

// HLRParams is the queue-reactive parameter set: K per-level add/cancel
// curves on each side, plus two market-order curves keyed on the opposing
// best-level depth.
type HLRParams struct {
	K int

	AddBidCurves    []Curve // length K
	AddAskCurves    []Curve // length K
	CancelBidCurves []Curve // length K
	CancelAskCurves []Curve // length K

	MarketBuyCurve  Curve // keyed on q_ask0
	MarketSellCurve Curve // keyed on q_bid0

	NMax int
}

// HLR is the queue-reactive curve-table intensity model.
type HLR struct {
	P HLRParams
}

// NewHLR constructs an HLR model from the given parameters.
func NewHLR(p HLRParams) *HLR {
	return &HLR{P: p}
}

// Compute sums the per-level curve lookups into the six aggregate rates.
// Per-level identity is recovered separately via PerLevelWeights; Compute
// alone is sufficient for Δt sampling.
func (h *HLR) Compute(state BookState) Intensities {
	p := h.P
	var addBid, addAsk, cancelBid, cancelAsk float64

	for i := 0; i < p.K; i++ {
		addBid += p.AddBidCurves[i].Value(depthAt(state.BidDepth, i))
		addAsk += p.AddAskCurves[i].Value(depthAt(state.AskDepth, i))
		cancelBid += p.CancelBidCurves[i].Value(depthAt(state.BidDepth, i))
		cancelAsk += p.CancelAskCurves[i].Value(depthAt(state.AskDepth, i))
	}

	execBuy := p.MarketBuyCurve.Value(int(state.Features.BestAskSize))
	execSell := p.MarketSellCurve.Value(int(state.Features.BestBidSize))

	return Intensities{
		AddBid:    clamp(addBid),
		AddAsk:    clamp(addAsk),
		CancelBid: clamp(cancelBid),
		CancelAsk: clamp(cancelAsk),
		ExecBuy:   clamp(execBuy),
		ExecSell:  clamp(execSell),
	}
}

// PerLevelWeights returns a flat weight vector of length 4K+2 in the fixed
// order [add_bid_0..K-1, add_ask_0..K-1, cancel_bid_0..K-1, cancel_ask_0..K-1,
// exec_buy, exec_sell]. The producer draws a single categorical index
// over this vector and decodes it into (type, level).
func (h *HLR) PerLevelWeights(state BookState) []float64 {
	p := h.P
	w := make([]float64, 4*p.K+2)

	for i := 0; i < p.K; i++ {
		w[i] = clampNonNeg(p.AddBidCurves[i].Value(depthAt(state.BidDepth, i)))
		w[p.K+i] = clampNonNeg(p.AddAskCurves[i].Value(depthAt(state.AskDepth, i)))
		w[2*p.K+i] = clampNonNeg(p.CancelBidCurves[i].Value(depthAt(state.BidDepth, i)))
		w[3*p.K+i] = clampNonNeg(p.CancelAskCurves[i].Value(depthAt(state.AskDepth, i)))
	}
	w[4*p.K] = clampNonNeg(p.MarketBuyCurve.Value(int(state.Features.BestAskSize)))
	w[4*p.K+1] = clampNonNeg(p.MarketSellCurve.Value(int(state.Features.BestBidSize)))

	return w
}

// DecodeLevelIndex maps an index into the PerLevelWeights vector back to an
// event type and level hint (level hint is -1 for the two market-order
// slots, which carry no level).
func DecodeLevelIndex(idx, k int) (EventType, int) {
	switch {
	case idx < k:
		return book.AddBid, idx
	case idx < 2*k:
		return book.AddAsk, idx - k
	case idx < 3*k:
		return book.CancelBid, idx - 2*k
	case idx < 4*k:
		return book.CancelAsk, idx - 3*k
	case idx == 4*k:
		return book.ExecuteBuy, -1
	default:
		return book.ExecuteSell, -1
	}
}

func depthAt(depths []uint32, i int) int {
	if i < 0 || i >= len(depths) {
		return 0
	}
	return int(depths[i])
}

func clampNonNeg(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
