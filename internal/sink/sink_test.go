package sink

import (
	"errors"
	"path/filepath"
	"testing"

	"qrsdp/internal/journal"
	"qrsdp/internal/producer"
)

type fakeSink struct {
	appends   []producer.EventRecord
	appendErr error
	closed    bool
	closeErr  error
}

func (f *fakeSink) Append(rec producer.EventRecord) error {
	f.appends = append(f.appends, rec)
	return f.appendErr
}

func (f *fakeSink) Close() error {
	f.closed = true
	return f.closeErr
}

func TestMultiplexForwardsToAllInOrder(t *testing.T) {
	a, b := &fakeSink{}, &fakeSink{}
	m := NewMultiplex(a, b)

	rec := producer.EventRecord{TsNs: 100, OrderID: 1}
	if err := m.Append(rec); err != nil {
		t.Fatal(err)
	}
	if len(a.appends) != 1 || len(b.appends) != 1 {
		t.Fatal("expected both sinks to receive the record")
	}
}

func TestMultiplexPrimaryErrorPropagates(t *testing.T) {
	primary := &fakeSink{appendErr: errors.New("disk full")}
	secondary := &fakeSink{}
	m := NewMultiplex(primary, secondary)

	err := m.Append(producer.EventRecord{})
	if err == nil {
		t.Fatal("expected primary error to propagate")
	}
	if len(secondary.appends) != 0 {
		t.Fatal("secondary should not be touched after primary failure")
	}
}

func TestMultiplexSecondaryErrorIsSwallowed(t *testing.T) {
	primary := &fakeSink{}
	secondary := &fakeSink{appendErr: errors.New("broker unreachable")}
	m := NewMultiplex(primary, secondary)

	if err := m.Append(producer.EventRecord{}); err != nil {
		t.Fatalf("expected nil error when only secondary fails, got %v", err)
	}
	if len(primary.appends) != 1 {
		t.Fatal("primary should still have received the record")
	}
}

func TestMultiplexCloseClosesAll(t *testing.T) {
	a, b := &fakeSink{}, &fakeSink{closeErr: errors.New("broker close failed")}
	m := NewMultiplex(a, b)
	if err := m.Close(); err != nil {
		t.Fatalf("expected nil error when only secondary close fails, got %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatal("expected both sinks closed")
	}
}

func TestJournalSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.qrsdp")
	js, err := NewJournalSink(path, journal.WriterConfig{Seed: 1, ChunkCapacity: 4})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		rec := producer.EventRecord{TsNs: uint64(i), OrderID: uint64(i), Qty: 1}
		if err := js.Append(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := js.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d records, want 10", len(got))
	}
}
