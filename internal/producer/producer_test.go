package producer

import (
	"testing"

	"qrsdp/internal/attrs"
	"qrsdp/internal/book"
	"qrsdp/internal/intensity"
	"qrsdp/internal/security"
)

type recordingSink struct {
	records []EventRecord
}

func (s *recordingSink) Append(rec EventRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func baseSession(seed uint64, seconds uint32) security.TradingSession {
	return security.TradingSession{
		Symbol:             "TEST",
		Seed:               seed,
		P0Ticks:            10000,
		SessionSeconds:     seconds,
		LevelsPerSide:      5,
		TickSize:           100,
		InitialSpreadTicks: 2,
		InitialDepth:       50,
		ModelKind:          security.ModelSimple,
		Simple: intensity.SimpleParams{
			L: 20, C: 0.1, M: 5, EpsExec: 0.2, SI: 1, SC: 1, SpreadSens: 0, NeutralSpread: 2,
		},
	}
}

func TestRunSessionDeterministic(t *testing.T) {
	session := baseSession(42, 30)
	attrParams := attrs.Params{Alpha: 0.5}

	p1 := New(session, attrParams)
	sink1 := &recordingSink{}
	res1, err := p1.RunSession(sink1)
	if err != nil {
		t.Fatal(err)
	}

	p2 := New(session, attrParams)
	sink2 := &recordingSink{}
	res2, err := p2.RunSession(sink2)
	if err != nil {
		t.Fatal(err)
	}

	if res1 != res2 {
		t.Fatalf("results diverged: %+v != %+v", res1, res2)
	}
	if len(sink1.records) != len(sink2.records) {
		t.Fatalf("record counts diverged: %d != %d", len(sink1.records), len(sink2.records))
	}
	for i := range sink1.records {
		if sink1.records[i] != sink2.records[i] {
			t.Fatalf("record %d diverged: %+v != %+v", i, sink1.records[i], sink2.records[i])
		}
	}
}

func TestRunSessionDifferentSeedsDiverge(t *testing.T) {
	s1 := baseSession(1, 30)
	s2 := baseSession(2, 30)
	attrParams := attrs.Params{Alpha: 0.5}

	sink1 := &recordingSink{}
	sink2 := &recordingSink{}
	if _, err := New(s1, attrParams).RunSession(sink1); err != nil {
		t.Fatal(err)
	}
	if _, err := New(s2, attrParams).RunSession(sink2); err != nil {
		t.Fatal(err)
	}

	n := 50
	if len(sink1.records) < n {
		n = len(sink1.records)
	}
	if len(sink2.records) < n {
		n = len(sink2.records)
	}
	diverged := false
	for i := 0; i < n; i++ {
		if sink1.records[i] != sink2.records[i] {
			diverged = true
			break
		}
	}
	if !diverged {
		t.Fatal("expected different seeds to diverge within first 50 records")
	}
}

func TestStepEventsHavePositiveIncreasingTimestamps(t *testing.T) {
	session := baseSession(7, 5)
	p := New(session, attrs.Params{Alpha: 0.5})
	sink := &recordingSink{}
	if _, err := p.RunSession(sink); err != nil {
		t.Fatal(err)
	}
	var lastTs uint64
	for i, rec := range sink.records {
		if rec.TsNs == 0 {
			t.Fatalf("record %d has non-positive ts_ns", i)
		}
		if rec.TsNs < lastTs {
			t.Fatalf("record %d ts_ns went backwards: %d < %d", i, rec.TsNs, lastTs)
		}
		lastTs = rec.TsNs
	}
}

func TestShiftOnDepletionWithDepthOne(t *testing.T) {
	session := baseSession(777, 2)
	session.LevelsPerSide = 3
	session.InitialDepth = 1
	// Execution-heavy rates, so a depth-1 best level is depleted before
	// adds rebuild it.
	session.Simple.M = 50
	p := New(session, attrs.Params{Alpha: 0.5})
	sink := &recordingSink{}
	res, err := p.RunSession(sink)
	if err != nil {
		t.Fatal(err)
	}
	if res.ShiftCount == 0 {
		t.Fatal("expected at least one shift with initial_depth=1")
	}
}

func TestBookInvariantsHoldThroughoutReplay(t *testing.T) {
	session := baseSession(4242, 10)
	p := New(session, attrs.Params{Alpha: 0.5})
	sink := &recordingSink{}
	if _, err := p.RunSession(sink); err != nil {
		t.Fatal(err)
	}

	replay := book.NewSeeded(book.Seed{
		P0Ticks:            session.P0Ticks,
		InitialSpreadTicks: session.InitialSpreadTicks,
		InitialDepth:       session.InitialDepth,
		LevelsPerSide:      session.LevelsPerSide,
	})
	for _, rec := range sink.records {
		replay.Apply(book.Event{Type: rec.Type, PriceTicks: rec.PriceTicks, Qty: rec.Qty})
		if replay.Bid[0].PriceTicks >= replay.Ask[0].PriceTicks {
			t.Fatal("crossed book during replay")
		}
		if spread := replay.Ask[0].PriceTicks - replay.Bid[0].PriceTicks; spread < 1 {
			t.Fatalf("spread = %d, want >= 1", spread)
		}
	}
}

func TestHLRModelProducesAllSixEventTypes(t *testing.T) {
	k := 2
	flat := func(v float64) intensity.Curve {
		return intensity.Curve{Values: []float64{v, v}, Tail: intensity.TailFlat}
	}
	curves := func(v float64) []intensity.Curve {
		cs := make([]intensity.Curve, k)
		for i := range cs {
			cs[i] = flat(v)
		}
		return cs
	}
	session := baseSession(4242, 5)
	session.LevelsPerSide = k
	session.InitialDepth = 10
	session.ModelKind = security.ModelHLR
	session.HLR = intensity.HLRParams{
		K:               k,
		AddBidCurves:    curves(3),
		AddAskCurves:    curves(3),
		CancelBidCurves: curves(1),
		CancelAskCurves: curves(1),
		MarketBuyCurve:  flat(2),
		MarketSellCurve: flat(2),
		NMax:            k,
	}

	p := New(session, attrs.Params{Alpha: 0.5})
	sink := &recordingSink{}
	if _, err := p.RunSession(sink); err != nil {
		t.Fatal(err)
	}

	seen := map[book.EventType]bool{}
	for _, rec := range sink.records {
		seen[rec.Type] = true
	}
	for _, et := range []book.EventType{book.AddBid, book.AddAsk, book.CancelBid, book.CancelAsk, book.ExecuteBuy, book.ExecuteSell} {
		if !seen[et] {
			t.Fatalf("event type %d never produced", et)
		}
	}
}

func TestRealtimePacingDoesNotChangeRecordStream(t *testing.T) {
	session := baseSession(42, 2)
	attrParams := attrs.Params{Alpha: 0.5}

	plain := &recordingSink{}
	if _, err := New(session, attrParams).RunSession(plain); err != nil {
		t.Fatal(err)
	}

	// A very large speed multiplier keeps the paced run from actually
	// sleeping while still exercising the pacing path.
	paced := &recordingSink{}
	if _, err := New(session, attrParams).RunSessionRealtime(paced, 1e9, nil); err != nil {
		t.Fatal(err)
	}

	if len(plain.records) != len(paced.records) {
		t.Fatalf("record counts diverged: %d != %d", len(plain.records), len(paced.records))
	}
	for i := range plain.records {
		if plain.records[i] != paced.records[i] {
			t.Fatalf("record %d diverged under pacing", i)
		}
	}
}
