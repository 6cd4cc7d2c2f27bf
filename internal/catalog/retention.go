package catalog

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PruneExpired removes catalog session-days dated more than keepDays
// calendar days ago, deleting each expired day's trade tape together
// with its day summary. When arch is non-nil, the day's tape is
// archived to disk first; a day whose archive fails is kept so the next
// run retries it. The unit of retention is the session-day, never a
// bare trade row, so the trades and days collections cannot drift out
// of step. Returns the number of days pruned.
//
// The runner calls this once at the end of a run; keepDays <= 0
// disables pruning.
func (s *Store) PruneExpired(ctx context.Context, keepDays int, arch *Archiver) (int, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	// Day documents store dates as YYYY-MM-DD, so lexicographic order is
	// chronological order and the cutoff comparison stays a string match
	// the days index can serve.
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Format("2006-01-02")

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.db.Collection("days").Find(ctx, bson.M{"date": bson.M{"$lt": cutoff}}, opts)
	if err != nil {
		return 0, fmt.Errorf("catalog: find expired days: %w", err)
	}
	var expired []DayDoc
	if err := cur.All(ctx, &expired); err != nil {
		return 0, fmt.Errorf("catalog: decode expired days: %w", err)
	}

	pruned := 0
	for _, d := range expired {
		if arch != nil {
			n, err := arch.ArchiveDay(ctx, d)
			if err != nil {
				log.Printf("catalog: archive %s %s failed, keeping day: %v", d.Symbol, d.Date, err)
				continue
			}
			if n > 0 {
				log.Printf("catalog: archived %d trades for %s %s", n, d.Symbol, d.Date)
			}
		}
		if err := s.deleteDay(ctx, d); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

// deleteDay removes one session-day's trades and its day summary.
func (s *Store) deleteDay(ctx context.Context, d DayDoc) error {
	from, to, err := dayWindow(d.Date)
	if err != nil {
		return fmt.Errorf("catalog: day %s/%s: %w", d.Symbol, d.Date, err)
	}
	_, err = s.db.Collection("trades").DeleteMany(ctx, bson.M{
		"symbol":      d.Symbol,
		"executed_at": bson.M{"$gte": from, "$lt": to},
	})
	if err != nil {
		return fmt.Errorf("catalog: delete trades for %s %s: %w", d.Symbol, d.Date, err)
	}
	_, err = s.db.Collection("days").DeleteOne(ctx, bson.M{
		"run_id": d.RunID, "symbol": d.Symbol, "date": d.Date,
	})
	if err != nil {
		return fmt.Errorf("catalog: delete day %s %s: %w", d.Symbol, d.Date, err)
	}
	return nil
}

// dayWindow converts a YYYY-MM-DD date into the [midnight, next
// midnight) UTC interval its trades fall in.
func dayWindow(date string) (time.Time, time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad date %q: %w", date, err)
	}
	return day, day.AddDate(0, 0, 1), nil
}
