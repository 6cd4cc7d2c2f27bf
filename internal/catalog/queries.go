package catalog

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TradeFilter controls which trades QueryTrades returns.
type TradeFilter struct {
	Symbol string
	Limit  int
	Offset int
	From   *time.Time
	To     *time.Time
}

// Candle is one OHLCV bar over price_ticks.
type Candle struct {
	Bucket time.Time `json:"t"`
	Open   int32     `json:"o"`
	High   int32     `json:"h"`
	Low    int32     `json:"l"`
	Close  int32     `json:"c"`
	Volume int64     `json:"v"`
	Count  int64     `json:"n"`
}

// CandleFilter controls candle query parameters.
type CandleFilter struct {
	Symbol   string
	Interval string // "1m","5m","15m","1h","4h","1d"
	Limit    int
	From     *time.Time
	To       *time.Time
}

// TradeStats holds aggregate trade statistics.
type TradeStats struct {
	TotalTrades int64 `json:"total_trades"`
	TotalVolume int64 `json:"total_volume"`
}

var intervalSeconds = map[string]int{
	"1m": 60, "5m": 300, "15m": 900, "1h": 3600, "4h": 14400, "1d": 86400,
}

// Reader exposes read-only trade/candle/stats queries over the catalog.
type Reader struct {
	db *mongo.Database
}

// NewReader constructs a Reader over db.
func NewReader(db *mongo.Database) *Reader {
	return &Reader{db: db}
}

// QueryTrades returns trades for a symbol with optional time range and
// pagination.
func (r *Reader) QueryTrades(ctx context.Context, f TradeFilter) ([]TradeDoc, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	filter := bson.M{"symbol": f.Symbol}
	addTimeRange(filter, f.From, f.To)

	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}}).
		SetLimit(int64(f.Limit)).
		SetSkip(int64(f.Offset))
	cursor, err := r.db.Collection("trades").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: query trades: %w", err)
	}
	defer cursor.Close(ctx)

	trades := []TradeDoc{}
	if err := cursor.All(ctx, &trades); err != nil {
		return nil, fmt.Errorf("catalog: decode trades: %w", err)
	}
	return trades, nil
}

// QueryCandles returns OHLCV bars for a symbol at the given interval.
func (r *Reader) QueryCandles(ctx context.Context, f CandleFilter) ([]Candle, error) {
	secs, ok := intervalSeconds[f.Interval]
	if !ok {
		return nil, fmt.Errorf("catalog: unsupported interval %q", f.Interval)
	}
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}

	matchFilter := bson.M{"symbol": f.Symbol}
	addTimeRange(matchFilter, f.From, f.To)

	millisPerBucket := int64(secs) * 1000
	bucketExpr := bson.M{
		"$toDate": bson.M{
			"$subtract": bson.A{
				bson.M{"$toLong": "$executed_at"},
				bson.M{"$mod": bson.A{bson.M{"$toLong": "$executed_at"}, millisPerBucket}},
			},
		},
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: matchFilter}},
		{{Key: "$sort", Value: bson.D{{Key: "executed_at", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bucketExpr},
			{Key: "open", Value: bson.M{"$first": "$price_ticks"}},
			{Key: "high", Value: bson.M{"$max": "$price_ticks"}},
			{Key: "low", Value: bson.M{"$min": "$price_ticks"}},
			{Key: "close", Value: bson.M{"$last": "$price_ticks"}},
			{Key: "volume", Value: bson.M{"$sum": "$shares"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: -1}}}},
		{{Key: "$limit", Value: int64(f.Limit)}},
	}

	cursor, err := r.db.Collection("trades").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("catalog: query candles: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []struct {
		Bucket time.Time `bson:"_id"`
		Open   int32     `bson:"open"`
		High   int32     `bson:"high"`
		Low    int32     `bson:"low"`
		Close  int32     `bson:"close"`
		Volume int64     `bson:"volume"`
		Count  int64     `bson:"count"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decode candles: %w", err)
	}

	candles := make([]Candle, len(raw))
	for i, x := range raw {
		candles[i] = Candle{Bucket: x.Bucket, Open: x.Open, High: x.High, Low: x.Low, Close: x.Close, Volume: x.Volume, Count: x.Count}
	}
	return candles, nil
}

// QueryTradeStats returns aggregate trade count and volume across all
// symbols.
func (r *Reader) QueryTradeStats(ctx context.Context) (TradeStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_trades", Value: bson.M{"$sum": 1}},
			{Key: "total_volume", Value: bson.M{"$sum": "$shares"}},
		}}},
	}
	cursor, err := r.db.Collection("trades").Aggregate(ctx, pipeline)
	if err != nil {
		return TradeStats{}, fmt.Errorf("catalog: query trade stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalTrades int64 `bson:"total_trades"`
		TotalVolume int64 `bson:"total_volume"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return TradeStats{}, fmt.Errorf("catalog: decode trade stats: %w", err)
	}
	if len(results) == 0 {
		return TradeStats{}, nil
	}
	return TradeStats{TotalTrades: results[0].TotalTrades, TotalVolume: results[0].TotalVolume}, nil
}

func addTimeRange(filter bson.M, from, to *time.Time) {
	if from == nil && to == nil {
		return
	}
	timeFilter := bson.M{}
	if from != nil {
		timeFilter["$gte"] = *from
	}
	if to != nil {
		timeFilter["$lte"] = *to
	}
	filter["executed_at"] = timeFilter
}
