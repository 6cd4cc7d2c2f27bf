package intensity

import "math"

// SimpleParams are the six scalar parameters of the imbalance model, plus
// the spread-multiplier sensitivity and neutral spread.
type SimpleParams struct {
	L             float64 // base add rate
	C             float64 // base cancel rate
	M             float64 // base execution rate
	EpsExec       float64 // execution floor term
	SI            float64 // imbalance sensitivity (add/exec skew)
	SC            float64 // cancel-depth sensitivity
	SpreadSens    float64 // spread multiplier sensitivity
	NeutralSpread float64 // spread at which spread_mult == 1
}

// Simple is the closed-form six-rate imbalance model.
type Simple struct {
	P SimpleParams
}

// NewSimple constructs a Simple model from the given parameters.
func NewSimple(p SimpleParams) *Simple {
	return &Simple{P: p}
}

// Compute implements Model. All six results pass through the shared Floor
// clamp, which also absorbs NaN/Inf from degenerate parameter
// combinations.
func (s *Simple) Compute(state BookState) Intensities {
	p := s.P
	imb := state.Features.Imbalance
	spread := float64(state.Features.Spread)

	spreadMult := math.Exp(p.SpreadSens * (spread - p.NeutralSpread))

	addBid := p.L * (1 - p.SI*imb) * spreadMult
	addAsk := p.L * (1 + p.SI*imb) * spreadMult

	execSell := p.M * (p.EpsExec + math.Max(p.SI*imb, 0)) / spreadMult
	execBuy := p.M * (p.EpsExec + math.Max(-p.SI*imb, 0)) / spreadMult

	cancelBid := p.C * p.SC * float64(state.Features.TotalBidDepth)
	cancelAsk := p.C * p.SC * float64(state.Features.TotalAskDepth)

	return Intensities{
		AddBid:    clamp(addBid),
		AddAsk:    clamp(addAsk),
		CancelBid: clamp(cancelBid),
		CancelAsk: clamp(cancelAsk),
		ExecBuy:   clamp(execBuy),
		ExecSell:  clamp(execSell),
	}
}
