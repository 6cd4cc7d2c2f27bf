package feedhandler

import (
	"testing"

	"github.com/twmb/franz-go/pkg/kgo"

	"qrsdp/internal/book"
	"qrsdp/internal/journal"
	"qrsdp/internal/wire/itch"
	"qrsdp/internal/wire/mold"
)

// newTestHandler builds a Handler with no live bus client, exercising only
// the framing/encoding logic that handleRecord/detectDayBoundary drive.
func newTestHandler(sent *[][]byte) *Handler {
	return &Handler{
		cfg:        Config{TickSize: 1},
		framer:     mold.NewFramer("SESS", 0, func(b []byte) error { *sent = append(*sent, append([]byte(nil), b...)); return nil }),
		sysEncoder: itch.NewEncoder("", 0, 1),
		encoders:   make(map[string]*itch.Encoder),
	}
}

func diskRecord(tsNs uint64, typ book.EventType, priceTicks int32, qty uint32, orderID uint64) journal.DiskEventRecord {
	return journal.DiskEventRecord{TsNs: tsNs, Type: uint8(typ), PriceTicks: priceTicks, Qty: qty, OrderID: orderID}
}

func messageCount(packet []byte) uint16 {
	return uint16(packet[18])<<8 | uint16(packet[19])
}

func TestHandleRecordCreatesEncoderAndEmitsStockDirectory(t *testing.T) {
	var sent [][]byte
	h := newTestHandler(&sent)

	rec := diskRecord(100, book.AddBid, 10000, 1, 1)
	kgoRec := &kgo.Record{Key: []byte("ACME"), Value: journal.EncodeRecord(rec)}
	if err := h.handleRecord(kgoRec); err != nil {
		t.Fatal(err)
	}
	if err := h.framer.Flush(); err != nil {
		t.Fatal(err)
	}

	if len(sent) != 1 {
		t.Fatalf("got %d packets, want 1", len(sent))
	}
	// packet carries: System Event 'Q' (market open, first event) + Stock
	// Directory + Add Order = 3 messages.
	if count := messageCount(sent[0]); count != 3 {
		t.Fatalf("message count = %d, want 3", count)
	}
}

func TestDetectDayBoundaryEmitsMarketCloseOpenOnRegression(t *testing.T) {
	var sent [][]byte
	h := newTestHandler(&sent)

	if err := h.detectDayBoundary(100); err != nil {
		t.Fatal(err)
	}
	if err := h.detectDayBoundary(200); err != nil {
		t.Fatal(err)
	}
	if err := h.detectDayBoundary(50); err != nil { // regression -> new day
		t.Fatal(err)
	}
	if err := h.framer.Flush(); err != nil {
		t.Fatal(err)
	}

	// 'Q'@100 (first event) + 'M'@200 + 'Q'@50 = 3 system events.
	if count := messageCount(sent[0]); count != 3 {
		t.Fatalf("message count = %d, want 3", count)
	}
}

func TestEncodeDispatchesAllEventTypes(t *testing.T) {
	h := newTestHandler(&[][]byte{})
	enc := itch.NewEncoder("ACME", 1, 1)

	cases := []struct {
		typ      book.EventType
		wantType byte
	}{
		{book.AddBid, itch.MsgAddOrder},
		{book.AddAsk, itch.MsgAddOrder},
		{book.CancelBid, itch.MsgOrderDelete},
		{book.CancelAsk, itch.MsgOrderDelete},
		{book.ExecuteBuy, itch.MsgOrderExecuted},
		{book.ExecuteSell, itch.MsgOrderExecuted},
	}
	for _, c := range cases {
		msg, err := h.encode(enc, diskRecord(1, c.typ, 100, 1, 1))
		if err != nil {
			t.Fatal(err)
		}
		if msg[0] != c.wantType {
			t.Fatalf("type %v -> wire type %q, want %q", c.typ, msg[0], c.wantType)
		}
	}
}

func TestEncodeRejectsUnknownEventType(t *testing.T) {
	h := newTestHandler(&[][]byte{})
	enc := itch.NewEncoder("ACME", 1, 1)
	if _, err := h.encode(enc, diskRecord(1, book.EventType(99), 100, 1, 1)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestHandleRecordRejectsWrongSizedValue(t *testing.T) {
	h := newTestHandler(&[][]byte{})
	rec := &kgo.Record{Key: []byte("ACME"), Value: []byte{1, 2, 3}}
	if err := h.handleRecord(rec); err == nil {
		t.Fatal("expected error for malformed record")
	}
}
