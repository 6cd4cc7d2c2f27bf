package itch

import (
	"testing"

	"qrsdp/internal/book"
)

func TestAddOrderMatchesEndToEndScenario(t *testing.T) {
	// ADD_BID with price_ticks=10000, qty=1, ts_ns=1_500_000_000.
	enc := NewEncoder("ACME", 1, 1)
	msg := enc.AddOrder(1_500_000_000, 42, book.SideBid, 1, 10000)

	if len(msg) != 36 {
		t.Fatalf("message size = %d, want 36", len(msg))
	}
	if msg[0] != MsgAddOrder {
		t.Fatalf("type = %q, want 'A'", msg[0])
	}
	if msg[19] != SideBuy {
		t.Fatalf("side = %q, want 'B'", msg[19])
	}

	var ts uint64
	for i := 0; i < 6; i++ {
		ts = ts<<8 | uint64(msg[5+i])
	}
	if ts != 1_500_000_000 {
		t.Fatalf("timestamp = %d, want 1500000000", ts)
	}

	shares := uint32(msg[20])<<24 | uint32(msg[21])<<16 | uint32(msg[22])<<8 | uint32(msg[23])
	if shares != 1 {
		t.Fatalf("shares = %d, want 1", shares)
	}

	price := uint32(msg[32])<<24 | uint32(msg[33])<<16 | uint32(msg[34])<<8 | uint32(msg[35])
	if price != 10000 {
		t.Fatalf("price = %d, want 10000", price)
	}
}

func TestAddOrderSellSide(t *testing.T) {
	enc := NewEncoder("ACME", 1, 1)
	msg := enc.AddOrder(0, 1, book.SideAsk, 5, 100)
	if msg[19] != SideSell {
		t.Fatalf("side = %q, want 'S'", msg[19])
	}
}

func TestAddOrderAppliesTickSizeMultiplier(t *testing.T) {
	enc := NewEncoder("ACME", 1, 5)
	msg := enc.AddOrder(0, 1, book.SideBid, 1, 100)
	price := uint32(msg[32])<<24 | uint32(msg[33])<<16 | uint32(msg[34])<<8 | uint32(msg[35])
	if price != 500 {
		t.Fatalf("price = %d, want 500 (100 ticks * tickSize 5)", price)
	}
}

func TestSystemEventSize(t *testing.T) {
	enc := NewEncoder("ACME", 7, 1)
	msg := enc.SystemEvent(123, EventStartOfMarket)
	if len(msg) != 12 {
		t.Fatalf("size = %d, want 12", len(msg))
	}
	if msg[0] != MsgSystemEvent || msg[11] != EventStartOfMarket {
		t.Fatal("unexpected system event encoding")
	}
	locate := uint16(msg[1])<<8 | uint16(msg[2])
	if locate != 7 {
		t.Fatalf("stock locate = %d, want 7", locate)
	}
}

func TestStockDirectorySize(t *testing.T) {
	enc := NewEncoder("ACME", 1, 1)
	msg := enc.StockDirectory(0)
	if len(msg) != 39 {
		t.Fatalf("size = %d, want 39", len(msg))
	}
	if msg[0] != MsgStockDirectory {
		t.Fatalf("type = %q, want 'R'", msg[0])
	}
	if string(msg[11:19]) != "ACME    " {
		t.Fatalf("stock field = %q, want right-padded ACME", msg[11:19])
	}
}

func TestOrderDeleteSize(t *testing.T) {
	enc := NewEncoder("ACME", 1, 1)
	msg := enc.OrderDelete(0, 99)
	if len(msg) != 19 {
		t.Fatalf("size = %d, want 19", len(msg))
	}
	if msg[0] != MsgOrderDelete {
		t.Fatalf("type = %q, want 'D'", msg[0])
	}
	var ref uint64
	for i := 0; i < 8; i++ {
		ref = ref<<8 | uint64(msg[11+i])
	}
	if ref != 99 {
		t.Fatalf("order ref = %d, want 99", ref)
	}
}

func TestOrderExecutedSizeAndMatchNumberIncrements(t *testing.T) {
	enc := NewEncoder("ACME", 1, 1)
	m1 := enc.OrderExecuted(0, 1, 10)
	m2 := enc.OrderExecuted(0, 2, 20)

	if len(m1) != 31 || len(m2) != 31 {
		t.Fatalf("size = %d/%d, want 31/31", len(m1), len(m2))
	}
	if m1[0] != MsgOrderExecuted {
		t.Fatalf("type = %q, want 'E'", m1[0])
	}

	var match1, match2 uint64
	for i := 0; i < 8; i++ {
		match1 = match1<<8 | uint64(m1[23+i])
		match2 = match2<<8 | uint64(m2[23+i])
	}
	if match1 != 1 || match2 != 2 {
		t.Fatalf("match numbers = %d, %d, want 1, 2 (ever-increasing)", match1, match2)
	}
}

func TestPadStockTruncatesAndPads(t *testing.T) {
	short := PadStock("AB")
	if string(short[:]) != "AB      " {
		t.Fatalf("short pad = %q", short)
	}
	long := PadStock("ABCDEFGHIJ")
	if string(long[:]) != "ABCDEFGH" {
		t.Fatalf("long pad = %q", long)
	}
}
