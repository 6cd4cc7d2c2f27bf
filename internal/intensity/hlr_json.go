package intensity

import (
	"encoding/json"
	"fmt"
	"os"
)

// curveJSON is the on-disk form of one Curve: a value table plus a tail
// rule ("flat" or "zero", defaulting to flat).
type curveJSON struct {
	Values []float64 `json:"values"`
	Tail   string    `json:"tail"`
}

// hlrParamsJSON is the on-disk form of a calibrated HLR parameter set.
type hlrParamsJSON struct {
	K               int         `json:"k"`
	AddBidCurves    []curveJSON `json:"add_bid_curves"`
	AddAskCurves    []curveJSON `json:"add_ask_curves"`
	CancelBidCurves []curveJSON `json:"cancel_bid_curves"`
	CancelAskCurves []curveJSON `json:"cancel_ask_curves"`
	MarketBuyCurve  curveJSON   `json:"market_buy_curve"`
	MarketSellCurve curveJSON   `json:"market_sell_curve"`
	NMax            int         `json:"n_max"`
}

// LoadHLRParams reads a calibrated HLR parameter set from a JSON file,
// validating that every per-level curve table has exactly K entries.
func LoadHLRParams(path string) (HLRParams, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return HLRParams{}, fmt.Errorf("intensity: read hlr params: %w", err)
	}

	var raw hlrParamsJSON
	if err := json.Unmarshal(buf, &raw); err != nil {
		return HLRParams{}, fmt.Errorf("intensity: parse hlr params %s: %w", path, err)
	}
	if raw.K <= 0 {
		return HLRParams{}, fmt.Errorf("intensity: hlr params %s: k must be positive, got %d", path, raw.K)
	}
	for name, curves := range map[string][]curveJSON{
		"add_bid_curves":    raw.AddBidCurves,
		"add_ask_curves":    raw.AddAskCurves,
		"cancel_bid_curves": raw.CancelBidCurves,
		"cancel_ask_curves": raw.CancelAskCurves,
	} {
		if len(curves) != raw.K {
			return HLRParams{}, fmt.Errorf("intensity: hlr params %s: %s has %d curves, want k=%d", path, name, len(curves), raw.K)
		}
	}

	p := HLRParams{
		K:               raw.K,
		AddBidCurves:    decodeCurves(raw.AddBidCurves),
		AddAskCurves:    decodeCurves(raw.AddAskCurves),
		CancelBidCurves: decodeCurves(raw.CancelBidCurves),
		CancelAskCurves: decodeCurves(raw.CancelAskCurves),
		MarketBuyCurve:  decodeCurve(raw.MarketBuyCurve),
		MarketSellCurve: decodeCurve(raw.MarketSellCurve),
		NMax:            raw.NMax,
	}
	if p.NMax == 0 && len(p.AddBidCurves) > 0 {
		p.NMax = len(p.AddBidCurves[0].Values) - 1
	}
	return p, nil
}

func decodeCurves(raw []curveJSON) []Curve {
	out := make([]Curve, len(raw))
	for i, c := range raw {
		out[i] = decodeCurve(c)
	}
	return out
}

func decodeCurve(raw curveJSON) Curve {
	tail := TailFlat
	if raw.Tail == "zero" {
		tail = TailZero
	}
	return Curve{Values: raw.Values, Tail: tail}
}
