// Package book implements the per-security limit order book: a pair of
// fixed-size, price-ordered level arrays mutated only through apply. A Book
// is owned exclusively by one producer; there is no internal locking,
// matching the no-shared-state rule for producer threads.
package book

import "math"

// Side identifies which side of the book an event or level belongs to.
type Side byte

const (
	SideBid Side = 0
	SideAsk Side = 1
	SideNA  Side = 2
)

// EventType enumerates the six event kinds the producer can emit, in the
// canonical cumulative-sum order used by the sampler.
type EventType byte

const (
	AddBid EventType = iota
	AddAsk
	CancelBid
	CancelAsk
	ExecuteBuy
	ExecuteSell
)

// Level holds the aggregate depth resting at one price tick.
type Level struct {
	PriceTicks int32
	Depth      uint32
}

// Seed carries the parameters needed to initialize a fresh Book.
type Seed struct {
	P0Ticks            int32
	InitialSpreadTicks int32
	InitialDepth       uint32
	LevelsPerSide      int
}

// Event describes a single state transition to apply to the book.
type Event struct {
	Type       EventType
	PriceTicks int32
	Qty        uint32
}

// Features is a point-in-time snapshot of top-of-book statistics.
type Features struct {
	BestBid       int32
	BestAsk       int32
	BestBidSize   uint32
	BestAskSize   uint32
	Spread        int32
	Imbalance     float64
	TotalBidDepth uint64
	TotalAskDepth uint64
}

// Book is a two-sided, fixed-depth, price-ordered limit order book.
// Bid[0] is always the best (highest) bid; Ask[0] is always the best
// (lowest) ask. Both slices keep a constant length equal to LevelsPerSide.
type Book struct {
	Bid []Level
	Ask []Level

	levelsPerSide int
	initialDepth  uint32
}

// New constructs an empty Book sized for levelsPerSide price levels per
// side. Call Seed (or construct through NewSeeded) before use.
func New(levelsPerSide int) *Book {
	return &Book{
		Bid:           make([]Level, levelsPerSide),
		Ask:           make([]Level, levelsPerSide),
		levelsPerSide: levelsPerSide,
	}
}

// NewSeeded constructs and immediately seeds a Book.
func NewSeeded(s Seed) *Book {
	b := New(s.LevelsPerSide)
	b.Seed(s)
	return b
}

// Seed (re)initializes every level on both sides around p0Ticks, splitting
// the configured spread as floor/ceil around the midpoint.
func (b *Book) Seed(s Seed) {
	half := s.InitialSpreadTicks / 2
	bestBid := s.P0Ticks - half
	bestAsk := s.P0Ticks + (s.InitialSpreadTicks - half)

	b.initialDepth = s.InitialDepth
	for k := 0; k < b.levelsPerSide; k++ {
		b.Bid[k] = Level{PriceTicks: bestBid - int32(k), Depth: s.InitialDepth}
		b.Ask[k] = Level{PriceTicks: bestAsk + int32(k), Depth: s.InitialDepth}
	}
}

// Reinitialize resamples every level's depth from a Poisson distribution
// with the given mean, using Knuth's algorithm driven by the supplied
// uniform-draw function (kept generic so callers pass the producer's own
// RNG without book depending on the rng package).
func (b *Book) Reinitialize(mean float64, uniform func() float64) {
	for k := range b.Bid {
		b.Bid[k].Depth = poisson(mean, uniform)
	}
	for k := range b.Ask {
		b.Ask[k].Depth = poisson(mean, uniform)
	}
}

func poisson(mean float64, uniform func() float64) uint32 {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := uint32(0)
	p := 1.0
	for {
		k++
		p *= uniform()
		if p <= l {
			return k - 1
		}
	}
}

// Features computes the current top-of-book snapshot.
func (b *Book) Features() Features {
	bestBid := b.Bid[0]
	bestAsk := b.Ask[0]
	denom := float64(bestBid.Depth) + float64(bestAsk.Depth) + 1e-9

	var totalBid, totalAsk uint64
	for _, lv := range b.Bid {
		totalBid += uint64(lv.Depth)
	}
	for _, lv := range b.Ask {
		totalAsk += uint64(lv.Depth)
	}

	return Features{
		BestBid:       bestBid.PriceTicks,
		BestAsk:       bestAsk.PriceTicks,
		BestBidSize:   bestBid.Depth,
		BestAskSize:   bestAsk.Depth,
		Spread:        bestAsk.PriceTicks - bestBid.PriceTicks,
		Imbalance:     (float64(bestBid.Depth) - float64(bestAsk.Depth)) / denom,
		TotalBidDepth: totalBid,
		TotalAskDepth: totalAsk,
	}
}

// DepthAt returns the depth at level k on the given side, or 0 if k is out
// of range.
func (b *Book) DepthAt(side Side, k int) uint32 {
	lv, ok := b.levelAt(side, k)
	if !ok {
		return 0
	}
	return lv.Depth
}

// PriceAt returns the price at level k on the given side, or 0 if k is out
// of range.
func (b *Book) PriceAt(side Side, k int) int32 {
	lv, ok := b.levelAt(side, k)
	if !ok {
		return 0
	}
	return lv.PriceTicks
}

func (b *Book) levelAt(side Side, k int) (Level, bool) {
	var levels []Level
	switch side {
	case SideBid:
		levels = b.Bid
	case SideAsk:
		levels = b.Ask
	default:
		return Level{}, false
	}
	if k < 0 || k >= len(levels) {
		return Level{}, false
	}
	return levels[k], true
}

// ApplyResult reports what happened as a result of Apply, so the producer
// can set EventRecord flag bits without re-deriving them from book state.
type ApplyResult struct {
	AskShifted bool
	BidShifted bool
}

// Apply mutates the book according to event.Type. Out-of-range prices are
// silently ignored for cancels and adds
// that don't land on an existing level; the caller (attribute sampler) is
// responsible for keeping adds in range except for explicit
// spread-improvement placements, which Apply also handles by inserting a
// new best level one tick inside the current spread.
func (b *Book) Apply(event Event) ApplyResult {
	switch event.Type {
	case AddBid:
		b.applyAdd(b.Bid, event.PriceTicks, event.Qty, true)
	case AddAsk:
		b.applyAdd(b.Ask, event.PriceTicks, event.Qty, false)
	case CancelBid:
		applyCancel(b.Bid, event.PriceTicks, event.Qty)
	case CancelAsk:
		applyCancel(b.Ask, event.PriceTicks, event.Qty)
	case ExecuteBuy:
		shifted := b.executeAndShift(b.Ask, false)
		return ApplyResult{AskShifted: shifted}
	case ExecuteSell:
		shifted := b.executeAndShift(b.Bid, true)
		return ApplyResult{BidShifted: shifted}
	}
	return ApplyResult{}
}

func (b *Book) applyAdd(levels []Level, price int32, qty uint32, bidSide bool) {
	for i := range levels {
		if levels[i].PriceTicks == price {
			levels[i].Depth += qty
			return
		}
	}

	// Spread-improving add: price sits strictly better than the current
	// best on this side. Insert at level 0 and shift the rest out one tick
	// worse, dropping the former worst level. This keeps the array length
	// constant and preserves strict monotonicity.
	best := levels[0].PriceTicks
	improves := (bidSide && price > best) || (!bidSide && price < best)
	if !improves {
		return
	}
	copy(levels[1:], levels[:len(levels)-1])
	levels[0] = Level{PriceTicks: price, Depth: qty}
}

func applyCancel(levels []Level, price int32, qty uint32) {
	for i := range levels {
		if levels[i].PriceTicks == price {
			if qty >= levels[i].Depth {
				levels[i].Depth = 0
			} else {
				levels[i].Depth -= qty
			}
			return
		}
	}
}

// executeAndShift decrements level 0's depth by one share. If it reaches
// zero, the side shifts one level worse: levels[1:] move down to
// levels[:n-1] and a fresh worst level is appended at one tick beyond the
// prior worst, reseeded to the initial depth. Returns whether a shift
// occurred.
func (b *Book) executeAndShift(levels []Level, bidSide bool) bool {
	if levels[0].Depth > 0 {
		levels[0].Depth--
	}
	if levels[0].Depth != 0 {
		return false
	}

	n := len(levels)
	worst := levels[n-1].PriceTicks
	copy(levels[:n-1], levels[1:])
	if bidSide {
		levels[n-1] = Level{PriceTicks: worst - 1, Depth: b.initialDepth}
	} else {
		levels[n-1] = Level{PriceTicks: worst + 1, Depth: b.initialDepth}
	}
	return true
}
