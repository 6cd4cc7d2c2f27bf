// Package attrs implements the attribute sampler: given an event type and
// the current book, it draws the side/price/quantity triple that completes
// an EventRecord.
package attrs

import (
	"math"

	"qrsdp/internal/book"
	"qrsdp/internal/rng"
)

// Params controls the level-weighting and spread-improvement behaviour of
// the attribute sampler.
type Params struct {
	// Alpha is the decay rate for the exp(-alpha*k) level-weighting used
	// when no level hint is supplied.
	Alpha float64
	// SpreadImproveCoeff enables spread-improving adds when > 0; with
	// probability min(1, (spread-1)*coeff), an add is placed one tick
	// inside the current spread instead of at a sampled existing level.
	SpreadImproveCoeff float64
}

// Attrs is the sampled side/price/quantity triple for one event.
type Attrs struct {
	Side       book.Side
	PriceTicks int32
	Qty        uint32
}

// Sample draws attributes for eventType given the current book and an
// optional level hint (>= 0 when the HLR per-level draw already chose a
// level; -1 otherwise). RNG draws follow a fixed order: adds consume one
// draw for the spread-improvement coin when that coefficient is enabled
// and the spread is open, then one draw for level selection when no hint
// is supplied; cancels consume one draw when no hint is supplied and the
// side has resting depth;
// executions consume none.
func Sample(r *rng.RNG, p Params, b *book.Book, eventType book.EventType, levelHint int) Attrs {
	switch eventType {
	case book.AddBid:
		return sampleAdd(r, p, b, book.SideBid, levelHint)
	case book.AddAsk:
		return sampleAdd(r, p, b, book.SideAsk, levelHint)
	case book.CancelBid:
		return sampleCancel(r, b, book.SideBid, levelHint)
	case book.CancelAsk:
		return sampleCancel(r, b, book.SideAsk, levelHint)
	case book.ExecuteBuy:
		return Attrs{Side: book.SideAsk, PriceTicks: b.PriceAt(book.SideAsk, 0), Qty: 1}
	case book.ExecuteSell:
		return Attrs{Side: book.SideBid, PriceTicks: b.PriceAt(book.SideBid, 0), Qty: 1}
	default:
		return Attrs{Side: book.SideNA, Qty: 1}
	}
}

func sampleAdd(r *rng.RNG, p Params, b *book.Book, side book.Side, levelHint int) Attrs {
	feat := b.Features()

	if feat.Spread > 1 && p.SpreadImproveCoeff > 0 {
		prob := math.Min(1, float64(feat.Spread-1)*p.SpreadImproveCoeff)
		if r.Float64() < prob {
			var price int32
			if side == book.SideBid {
				price = feat.BestBid + 1
			} else {
				price = feat.BestAsk - 1
			}
			return Attrs{Side: side, PriceTicks: price, Qty: 1}
		}
	}

	levels := levelsFor(b, side)
	k := levelHint
	if k < 0 {
		k = weightedLevel(r, p.Alpha, len(levels))
	}
	if k >= len(levels) {
		k = len(levels) - 1
	}
	return Attrs{Side: side, PriceTicks: levels[k].PriceTicks, Qty: 1}
}

func sampleCancel(r *rng.RNG, b *book.Book, side book.Side, levelHint int) Attrs {
	levels := levelsFor(b, side)
	k := levelHint
	if k < 0 {
		k = weightByDepth(r, levels)
	}
	if k < 0 || k >= len(levels) {
		k = 0
	}
	return Attrs{Side: side, PriceTicks: levels[k].PriceTicks, Qty: 1}
}

func levelsFor(b *book.Book, side book.Side) []book.Level {
	if side == book.SideBid {
		return b.Bid
	}
	return b.Ask
}

// weightedLevel draws a level index with weight exp(-alpha*k). Consumes
// exactly one RNG draw.
func weightedLevel(r *rng.RNG, alpha float64, n int) int {
	weights := make([]float64, n)
	total := 0.0
	for k := 0; k < n; k++ {
		w := math.Exp(-alpha * float64(k))
		weights[k] = w
		total += w
	}
	if total <= 0 {
		return 0
	}
	target := r.Float64() * total
	cumulative := 0.0
	for k, w := range weights {
		cumulative += w
		if target < cumulative {
			return k
		}
	}
	return n - 1
}

// weightByDepth draws a level index weighted by current depth, falling
// back to level 0 if all levels are empty. Consumes one RNG draw, or none
// when all levels are empty.
func weightByDepth(r *rng.RNG, levels []book.Level) int {
	total := 0.0
	for _, lv := range levels {
		total += float64(lv.Depth)
	}
	if total <= 0 {
		return 0
	}
	target := r.Float64() * total
	cumulative := 0.0
	for k, lv := range levels {
		cumulative += float64(lv.Depth)
		if target < cumulative {
			return k
		}
	}
	return len(levels) - 1
}
