// Package catalog implements an optional MongoDB run/trade catalog: a
// best-effort third fanout sink that denormalizes executions into a
// trades collection, records per-day run summaries, and exposes
// candle/trade read paths plus day-granular retention and gzip archival.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultDatabase = "qrsdp"

// pingTimeout bounds the reachability check in Open so a dead endpoint
// fails the runner's startup fast instead of hanging it.
const pingTimeout = 5 * time.Second

// Store is one run's handle on the catalog database. It is scoped to a
// run id: day summaries written through it carry that id, and the
// catalog sink chain (DaySink, RecordDay, PruneExpired) hangs off it.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	runID  string
}

// Open connects to the catalog database at uri, verifies it is
// reachable, and ensures the collection indexes exist, returning a
// Store scoped to runID. The database name comes from the URI path
// segment; a URI without one lands in the "qrsdp" database.
func Open(ctx context.Context, uri, runID string) (*Store, error) {
	opts := options.Client().ApplyURI(uri).SetAppName("qrsdp-" + runID)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}

	db := client.Database(databaseName(uri))
	if err := EnsureIndexes(ctx, db); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}

	return &Store{client: client, db: db, runID: runID}, nil
}

func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultDatabase
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		return name
	}
	return defaultDatabase
}

// RunID returns the run id this Store is scoped to.
func (s *Store) RunID() string { return s.runID }

// DB returns the underlying database handle, for read paths (Reader)
// and the archiver.
func (s *Store) DB() *mongo.Database { return s.db }

// Close disconnects from the catalog database.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("catalog: disconnect: %w", err)
	}
	return nil
}

// DaySink returns a best-effort fanout Sink persisting one security-day's
// executions as trade documents, anchoring the session's ts_ns=0 to
// dayEpoch.
func (s *Store) DaySink(symbol string, dayEpoch time.Time) *Sink {
	return NewSink(s.db, symbol, dayEpoch)
}

// RecordDay upserts a per-day run summary under this Store's run id,
// keyed by (run_id, symbol, date) so a re-run of the same day replaces
// its summary instead of duplicating it.
func (s *Store) RecordDay(ctx context.Context, d DayDoc) error {
	d.RunID = s.runID
	_, err := s.db.Collection("days").UpdateOne(ctx,
		bson.M{"run_id": d.RunID, "symbol": d.Symbol, "date": d.Date},
		bson.M{"$set": d},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("catalog: record day: %w", err)
	}
	return nil
}
