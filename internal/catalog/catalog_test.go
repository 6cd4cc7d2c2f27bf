package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"qrsdp/internal/book"
	"qrsdp/internal/producer"
)

func TestSinkIgnoresNonExecutionEvents(t *testing.T) {
	s := NewSink(nil, "ACME", time.Unix(0, 0))
	if err := s.Append(producer.EventRecord{Type: book.AddBid}); err != nil {
		t.Fatal(err)
	}
	if s.nextMatch != 0 {
		t.Fatalf("nextMatch = %d, want 0 for a non-execution event", s.nextMatch)
	}
}

func TestDatabaseNameFromURIPath(t *testing.T) {
	if got := databaseName("mongodb://localhost:27017/markets"); got != "markets" {
		t.Fatalf("databaseName = %q, want markets", got)
	}
	if got := databaseName("mongodb://localhost:27017"); got != defaultDatabase {
		t.Fatalf("databaseName = %q, want default %q", got, defaultDatabase)
	}
	if got := databaseName("://not a uri"); got != defaultDatabase {
		t.Fatalf("databaseName = %q, want default for unparseable URI", got)
	}
}

func TestDayWindowCoversWholeUTCDay(t *testing.T) {
	from, to, err := dayWindow("2026-01-02")
	if err != nil {
		t.Fatal(err)
	}
	if from != time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("from = %v", from)
	}
	if to != time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("to = %v", to)
	}

	inside := time.Date(2026, 1, 2, 23, 59, 59, 0, time.UTC)
	if inside.Before(from) || !inside.Before(to) {
		t.Fatal("late-evening trade falls outside its day window")
	}
}

func TestDayWindowRejectsMalformedDate(t *testing.T) {
	if _, _, err := dayWindow("02/01/2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestArchivePathMirrorsJournalTree(t *testing.T) {
	a := NewArchiver(nil, "/cold")
	want := filepath.Join("/cold", "ACME", "2026-01-02.trades.jsonl.gz")
	if got := a.ArchivePath("ACME", "2026-01-02"); got != want {
		t.Fatalf("ArchivePath = %q, want %q", got, want)
	}
}

func TestAddTimeRangeSetsBothBounds(t *testing.T) {
	from := time.Unix(100, 0)
	to := time.Unix(200, 0)
	filter := bson.M{}
	addTimeRange(filter, &from, &to)

	tf, ok := filter["executed_at"].(bson.M)
	if !ok {
		t.Fatal("expected executed_at range filter")
	}
	if tf["$gte"] != from || tf["$lte"] != to {
		t.Fatal("unexpected time range bounds")
	}
}

func TestAddTimeRangeNoOpWhenBothNil(t *testing.T) {
	filter := bson.M{"symbol": "ACME"}
	addTimeRange(filter, nil, nil)
	if _, ok := filter["executed_at"]; ok {
		t.Fatal("expected no executed_at key when both bounds are nil")
	}
}
