package catalog

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"qrsdp/internal/book"
	"qrsdp/internal/producer"
)

// TradeDoc mirrors one document in the trades collection: one execution
// denormalized off the event stream.
type TradeDoc struct {
	MatchNumber int64     `bson:"match_number" json:"match_number"`
	Symbol      string    `bson:"symbol"        json:"symbol"`
	PriceTicks  int32     `bson:"price_ticks"   json:"price_ticks"`
	Shares      uint32    `bson:"shares"        json:"shares"`
	Aggressor   string    `bson:"aggressor"     json:"aggressor"` // "buy" or "sell"
	ExecutedAt  time.Time `bson:"executed_at"   json:"executed_at"`
}

// DayDoc mirrors one document in the days collection: a per-security,
// per-day run summary, carrying a subset of the fields of a runner
// DayResult plus the run ID.
type DayDoc struct {
	RunID         string `bson:"run_id"`
	Symbol        string `bson:"symbol"`
	Date          string `bson:"date"` // YYYY-MM-DD
	Seed          uint64 `bson:"seed"`
	OpenTicks     int32  `bson:"open_ticks"`
	CloseTicks    int32  `bson:"close_ticks"`
	EventsWritten uint64 `bson:"events_written"`
	FileSizeBytes int64  `bson:"file_size_bytes"`
}

// Sink is the catalog's best-effort fanout target: it persists each
// execution as a trade document. Append logs a failed insert itself and
// returns nil, so its errors never reach Multiplex or the producer.
type Sink struct {
	db     *mongo.Database
	symbol string

	// dayEpochNs anchors the session's ts_ns=0 to a wall-clock instant, so
	// trades can be queried by real time even though ts_ns is
	// simulation-relative.
	dayEpochNs int64

	nextMatch int64
}

// NewSink constructs a Sink for symbol, anchoring ts_ns=0 to dayEpoch.
func NewSink(db *mongo.Database, symbol string, dayEpoch time.Time) *Sink {
	return &Sink{db: db, symbol: symbol, dayEpochNs: dayEpoch.UnixNano()}
}

// Append persists executions as trade documents; every other event type
// is a no-op, since the catalog only tracks the trade tape.
func (s *Sink) Append(rec producer.EventRecord) error {
	if rec.Type != book.ExecuteBuy && rec.Type != book.ExecuteSell {
		return nil
	}
	s.nextMatch++

	aggressor := "sell"
	if rec.Type == book.ExecuteBuy {
		aggressor = "buy"
	}

	doc := TradeDoc{
		MatchNumber: s.nextMatch,
		Symbol:      s.symbol,
		PriceTicks:  rec.PriceTicks,
		Shares:      rec.Qty,
		Aggressor:   aggressor,
		ExecutedAt:  time.Unix(0, s.dayEpochNs+int64(rec.TsNs)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.db.Collection("trades").InsertOne(ctx, doc); err != nil {
		log.Printf("catalog sink: insert trade for %s failed: %v", s.symbol, err)
	}
	return nil
}

// Close is a no-op: the Sink does not own the Mongo client's lifecycle
// (the runner's shared Store does), but it implements internal/sink.Sink
// so it composes into Multiplex like any other sink.
func (s *Sink) Close() error {
	return nil
}
