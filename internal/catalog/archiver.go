package catalog

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Archiver writes pruned session-days' trade tapes to disk as gzipped
// NDJSON, one file per security-day, mirroring the journal tree's
// <symbol>/<date> layout so a day's cold trade tape sits next to the
// journal file it came from.
type Archiver struct {
	db  *mongo.Database
	dir string
}

// NewArchiver constructs an Archiver writing under dir.
func NewArchiver(db *mongo.Database, dir string) *Archiver {
	return &Archiver{db: db, dir: dir}
}

// ArchivePath returns where a security-day's archive file lands:
// <dir>/<symbol>/<date>.trades.jsonl.gz.
func (a *Archiver) ArchivePath(symbol, date string) string {
	return filepath.Join(a.dir, symbol, date+".trades.jsonl.gz")
}

// ArchiveDay writes one session-day's trades, ordered by match number,
// to its archive file. The file is written to a temporary name and
// renamed into place, so a crash mid-archive never leaves a truncated
// archive behind and a retried prune simply rewrites it. Returns the
// number of trades archived; a day with no executions produces no file.
func (a *Archiver) ArchiveDay(ctx context.Context, day DayDoc) (int, error) {
	from, to, err := dayWindow(day.Date)
	if err != nil {
		return 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "match_number", Value: 1}})
	cur, err := a.db.Collection("trades").Find(ctx, bson.M{
		"symbol":      day.Symbol,
		"executed_at": bson.M{"$gte": from, "$lt": to},
	}, opts)
	if err != nil {
		return 0, fmt.Errorf("find trades: %w", err)
	}
	defer cur.Close(ctx)

	path := a.ArchivePath(day.Symbol, day.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	count := 0
	for cur.Next(ctx) {
		var t TradeDoc
		if err := cur.Decode(&t); err != nil {
			abortArchive(f, tmp)
			return 0, fmt.Errorf("decode trade: %w", err)
		}
		if err := enc.Encode(t); err != nil {
			abortArchive(f, tmp)
			return 0, fmt.Errorf("encode trade: %w", err)
		}
		count++
	}
	if err := cur.Err(); err != nil {
		abortArchive(f, tmp)
		return 0, fmt.Errorf("iterate trades: %w", err)
	}

	if err := gz.Close(); err != nil {
		abortArchive(f, tmp)
		return 0, fmt.Errorf("gzip close: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close: %w", err)
	}

	if count == 0 {
		os.Remove(tmp)
		return 0, nil
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("rename: %w", err)
	}
	return count, nil
}

func abortArchive(f *os.File, tmp string) {
	f.Close()
	os.Remove(tmp)
}
