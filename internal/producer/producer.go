// Package producer implements the continuous-time competing-risk event
// loop: one Producer owns exactly one RNG, Book, intensity Model, and
// attribute sampler, and drives them through step_one_event until the
// session's time budget is exhausted.
package producer

import (
	"time"

	"qrsdp/internal/attrs"
	"qrsdp/internal/book"
	"qrsdp/internal/calib"
	"qrsdp/internal/intensity"
	"qrsdp/internal/rng"
	"qrsdp/internal/sampler"
	"qrsdp/internal/security"
)

// Flag bits recorded on each emitted EventRecord.
const (
	FlagAskShifted uint32 = 1 << 0
	FlagBidShifted uint32 = 1 << 1
	FlagReinit     uint32 = 1 << 2
)

// EventRecord is the in-memory representation produced by the loop and
// consumed by sinks.
type EventRecord struct {
	TsNs       uint64
	Type       book.EventType
	Side       book.Side
	PriceTicks int32
	Qty        uint32
	OrderID    uint64
	Flags      uint32
}

// Sink receives EventRecords as they're produced and is closed once the
// session ends. Defined here (rather than imported from internal/sink) to
// keep producer free of a dependency on concrete sink implementations;
// internal/sink.Sink satisfies this interface.
type Sink interface {
	Append(rec EventRecord) error
}

// SessionResult is returned by RunSession once the step budget is
// exhausted.
type SessionResult struct {
	CloseTicks    int32
	EventsWritten uint64
	ShiftCount    uint64
}

// Producer drives one security's book through one trading session. It is
// never shared across goroutines; every field it touches is exclusively
// owned.
type Producer struct {
	session security.TradingSession

	rng   *rng.RNG
	book  *book.Book
	model intensity.Model

	attrParams attrs.Params
	stress     *calib.StressPhaseController

	t             float64 // simulated seconds since session open
	nextOrderID   uint64
	eventsWritten uint64
	shiftCount    uint64
}

// New constructs a Producer for session, seeding its RNG, book, and
// intensity model. attrParams controls the attribute sampler's
// level-weighting and spread-improvement behaviour.
func New(session security.TradingSession, attrParams attrs.Params) *Producer {
	r := rng.New(session.Seed)
	b := book.NewSeeded(book.Seed{
		P0Ticks:            session.P0Ticks,
		InitialSpreadTicks: session.InitialSpreadTicks,
		InitialDepth:       session.InitialDepth,
		LevelsPerSide:      session.LevelsPerSide,
	})

	var model intensity.Model
	if session.ModelKind == security.ModelHLR {
		model = intensity.NewHLR(session.HLR)
	} else {
		model = intensity.NewSimple(session.Simple)
	}

	p := &Producer{
		session:    session,
		rng:        r,
		book:       b,
		model:      model,
		attrParams: attrParams,
	}

	if session.Stress {
		p.stress = calib.NewStressPhaseController(r, session.StressConfig)
	}
	return p
}

func (p *Producer) bookState() intensity.BookState {
	feat := p.book.Features()
	bidDepth := make([]uint32, p.session.LevelsPerSide)
	askDepth := make([]uint32, p.session.LevelsPerSide)
	for k := 0; k < p.session.LevelsPerSide; k++ {
		bidDepth[k] = p.book.DepthAt(book.SideBid, k)
		askDepth[k] = p.book.DepthAt(book.SideAsk, k)
	}
	return intensity.BookState{Features: feat, BidDepth: bidDepth, AskDepth: askDepth}
}

// StepOneEvent performs one iteration of the event loop and reports
// whether an event was produced. It returns false exactly when the
// session's time budget is exhausted. The RNG call order within one call
// is fixed: sample_delta_t, then (for stress-flagged sessions) the stress
// controller's phase draw, then sample_type or sample_index_from_weights,
// then the attribute sampler, then the optional reinit coin flip followed,
// when it succeeds, by the reinit depth draws. This
// order is part of the determinism contract and must never change.
func (p *Producer) StepOneEvent(sink Sink) (bool, error) {
	sessionSeconds := float64(p.session.SessionSeconds)
	if p.t >= sessionSeconds {
		return false, nil
	}

	state := p.bookState()
	in := p.model.Compute(state)
	lambdaTotal := in.Total()
	if p.stress != nil {
		lambdaTotal *= p.stress.Multiplier()
	}

	dt := sampler.SampleDeltaT(p.rng, lambdaTotal)
	p.t += dt
	if p.stress != nil {
		p.stress.Advance(dt)
	}
	if p.t >= sessionSeconds {
		return false, nil
	}

	var eventType book.EventType
	levelHint := -1
	if plm, ok := p.model.(intensity.PerLevelModel); ok {
		weights := plm.PerLevelWeights(state)
		idx := sampler.SampleIndexFromWeights(p.rng, weights)
		eventType, levelHint = intensity.DecodeLevelIndex(idx, p.session.HLR.K)
	} else {
		eventType = sampler.SampleType(p.rng, in)
	}

	attr := attrs.Sample(p.rng, p.attrParams, p.book, eventType, levelHint)

	preBid, preAsk := p.book.PriceAt(book.SideBid, 0), p.book.PriceAt(book.SideAsk, 0)
	orderID := p.nextOrderID
	p.nextOrderID++

	result := p.book.Apply(book.Event{Type: eventType, PriceTicks: attr.PriceTicks, Qty: attr.Qty})

	postBid, postAsk := p.book.PriceAt(book.SideBid, 0), p.book.PriceAt(book.SideAsk, 0)
	shifted := postBid != preBid || postAsk != preAsk

	var flags uint32
	if result.AskShifted {
		flags |= FlagAskShifted
	}
	if result.BidShifted {
		flags |= FlagBidShifted
	}

	if shifted {
		p.shiftCount++
		if p.session.ThetaReinit > 0 && p.rng.Float64() < p.session.ThetaReinit {
			p.book.Reinitialize(float64(p.session.InitialDepth), p.rng.Float64)
			flags |= FlagReinit
		}
	}

	rec := EventRecord{
		TsNs:       p.session.MarketOpenNs + uint64(p.t*1e9),
		Type:       eventType,
		Side:       attr.Side,
		PriceTicks: attr.PriceTicks,
		Qty:        attr.Qty,
		OrderID:    orderID,
		Flags:      flags,
	}
	p.eventsWritten++

	if err := sink.Append(rec); err != nil {
		return false, err
	}
	return true, nil
}

// RunSession repeatedly calls StepOneEvent until it returns false, then
// returns the session's SessionResult.
func (p *Producer) RunSession(sink Sink) (SessionResult, error) {
	return p.RunSessionWithCancel(sink, nil)
}

// RunSessionWithCancel behaves like RunSession, but checks cancelled
// (when non-nil) between events, the fast-path cooperative cancellation
// point. A cancelled run ends the session early and still returns a
// valid SessionResult reflecting the book's state at the point of
// cancellation.
func (p *Producer) RunSessionWithCancel(sink Sink, cancelled func() bool) (SessionResult, error) {
	return p.runSession(sink, cancelled, 0)
}

// RunSessionRealtime paces the step loop to wall-clock time: after each
// emitted event, the worker sleeps until wall_elapsed*speed has caught up
// with the simulated elapsed seconds. Pacing is an outer-loop concern
// only; step semantics and the RNG call order are identical to an
// unpaced run.
func (p *Producer) RunSessionRealtime(sink Sink, speed float64, cancelled func() bool) (SessionResult, error) {
	if speed <= 0 {
		speed = 1
	}
	return p.runSession(sink, cancelled, speed)
}

func (p *Producer) runSession(sink Sink, cancelled func() bool, speed float64) (SessionResult, error) {
	start := time.Now()
	for {
		if cancelled != nil && cancelled() {
			break
		}
		more, err := p.StepOneEvent(sink)
		if err != nil {
			return SessionResult{}, err
		}
		if !more {
			break
		}
		if speed > 0 {
			wall := time.Since(start).Seconds()
			if lag := p.t/speed - wall; lag > 0 {
				time.Sleep(time.Duration(lag * float64(time.Second)))
			}
		}
	}
	bestBid := p.book.PriceAt(book.SideBid, 0)
	bestAsk := p.book.PriceAt(book.SideAsk, 0)
	return SessionResult{
		CloseTicks:    (bestBid + bestAsk) / 2,
		EventsWritten: p.eventsWritten,
		ShiftCount:    p.shiftCount,
	}, nil
}
