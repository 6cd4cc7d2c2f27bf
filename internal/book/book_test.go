package book

import "testing"

func seeded() *Book {
	return NewSeeded(Seed{
		P0Ticks:            10000,
		InitialSpreadTicks: 4,
		InitialDepth:       50,
		LevelsPerSide:      5,
	})
}

func TestSeedMonotonic(t *testing.T) {
	b := seeded()
	for k := 1; k < len(b.Bid); k++ {
		if b.Bid[k].PriceTicks >= b.Bid[k-1].PriceTicks {
			t.Fatalf("bid level %d not strictly below level %d", k, k-1)
		}
	}
	for k := 1; k < len(b.Ask); k++ {
		if b.Ask[k].PriceTicks <= b.Ask[k-1].PriceTicks {
			t.Fatalf("ask level %d not strictly above level %d", k, k-1)
		}
	}
	if b.Ask[0].PriceTicks <= b.Bid[0].PriceTicks {
		t.Fatal("crossed book after seed")
	}
}

func TestFeaturesBalanced(t *testing.T) {
	b := seeded()
	f := b.Features()
	if f.Imbalance != 0 {
		t.Fatalf("expected balanced imbalance, got %f", f.Imbalance)
	}
	if f.Spread != b.Ask[0].PriceTicks-b.Bid[0].PriceTicks {
		t.Fatal("spread mismatch")
	}
}

func TestApplyAddExistingLevel(t *testing.T) {
	b := seeded()
	before := b.Bid[0].Depth
	b.Apply(Event{Type: AddBid, PriceTicks: b.Bid[0].PriceTicks, Qty: 5})
	if b.Bid[0].Depth != before+5 {
		t.Fatalf("depth = %d, want %d", b.Bid[0].Depth, before+5)
	}
}

func TestApplyAddSpreadImproving(t *testing.T) {
	b := seeded()
	oldBest := b.Bid[0].PriceTicks
	improved := oldBest + 1
	b.Apply(Event{Type: AddBid, PriceTicks: improved, Qty: 7})
	if b.Bid[0].PriceTicks != improved || b.Bid[0].Depth != 7 {
		t.Fatalf("new best bid = %+v, want price %d depth 7", b.Bid[0], improved)
	}
	if b.Bid[1].PriceTicks != oldBest {
		t.Fatalf("old best bid shifted to wrong slot: %+v", b.Bid[1])
	}
}

func TestApplyAddNonImprovingNoOp(t *testing.T) {
	b := seeded()
	snapshot := append([]Level(nil), b.Bid...)
	b.Apply(Event{Type: AddBid, PriceTicks: b.Bid[0].PriceTicks - 100, Qty: 3})
	for k := range snapshot {
		if b.Bid[k] != snapshot[k] {
			t.Fatalf("level %d mutated on non-improving, non-matching add", k)
		}
	}
}

func TestApplyCancelPartial(t *testing.T) {
	b := seeded()
	b.Apply(Event{Type: CancelBid, PriceTicks: b.Bid[0].PriceTicks, Qty: 10})
	if b.Bid[0].Depth != 40 {
		t.Fatalf("depth = %d, want 40", b.Bid[0].Depth)
	}
}

func TestApplyCancelFloorsAtZero(t *testing.T) {
	b := seeded()
	b.Apply(Event{Type: CancelBid, PriceTicks: b.Bid[0].PriceTicks, Qty: 1000})
	if b.Bid[0].Depth != 0 {
		t.Fatalf("depth = %d, want 0", b.Bid[0].Depth)
	}
}

func TestExecuteBuyDepletesAndShiftsAsk(t *testing.T) {
	b := seeded()
	worstBefore := b.Ask[len(b.Ask)-1].PriceTicks
	secondBefore := b.Ask[1].PriceTicks

	var res ApplyResult
	for i := 0; i < 50; i++ {
		res = b.Apply(Event{Type: ExecuteBuy})
	}
	if !res.AskShifted {
		t.Fatal("expected ask shift after depleting level 0")
	}
	if b.Ask[0].PriceTicks != secondBefore {
		t.Fatalf("new best ask = %d, want %d", b.Ask[0].PriceTicks, secondBefore)
	}
	newWorst := b.Ask[len(b.Ask)-1]
	if newWorst.PriceTicks != worstBefore+1 {
		t.Fatalf("new worst ask price = %d, want %d", newWorst.PriceTicks, worstBefore+1)
	}
	if newWorst.Depth != 50 {
		t.Fatalf("new worst ask depth = %d, want reseeded 50", newWorst.Depth)
	}
}

func TestExecuteSellDepletesAndShiftsBid(t *testing.T) {
	b := seeded()
	worstBefore := b.Bid[len(b.Bid)-1].PriceTicks

	var res ApplyResult
	for i := 0; i < 50; i++ {
		res = b.Apply(Event{Type: ExecuteSell})
	}
	if !res.BidShifted {
		t.Fatal("expected bid shift after depleting level 0")
	}
	newWorst := b.Bid[len(b.Bid)-1]
	if newWorst.PriceTicks != worstBefore-1 {
		t.Fatalf("new worst bid price = %d, want %d", newWorst.PriceTicks, worstBefore-1)
	}
}

func TestExecuteBuyNoShiftWhileDepthRemains(t *testing.T) {
	b := seeded()
	res := b.Apply(Event{Type: ExecuteBuy})
	if res.AskShifted {
		t.Fatal("should not shift before depth reaches zero")
	}
	if b.Ask[0].Depth != 49 {
		t.Fatalf("depth = %d, want 49", b.Ask[0].Depth)
	}
}

func TestDepthAtAndPriceAtOutOfRange(t *testing.T) {
	b := seeded()
	if b.DepthAt(SideBid, 999) != 0 {
		t.Fatal("expected 0 depth out of range")
	}
	if b.PriceAt(SideAsk, -1) != 0 {
		t.Fatal("expected 0 price out of range")
	}
	if b.DepthAt(SideNA, 0) != 0 {
		t.Fatal("expected 0 depth for SideNA")
	}
}

func TestReinitializeResamplesDepths(t *testing.T) {
	b := seeded()
	calls := 0
	seq := []float64{0.9, 0.9, 0.01}
	uniform := func() float64 {
		v := seq[calls%len(seq)]
		calls++
		return v
	}
	b.Reinitialize(3.0, uniform)
	for _, lv := range b.Bid {
		if lv.Depth == 50 {
			t.Fatal("depth unchanged after reinitialize")
		}
	}
}
