// Package itch implements an ITCH 5.0-style binary message encoder. All
// multi-byte fields are big-endian; timestamps are 6-byte
// nanoseconds-since-midnight.
package itch

import (
	"encoding/binary"

	"qrsdp/internal/book"
)

// Message type bytes.
const (
	MsgSystemEvent    byte = 'S'
	MsgStockDirectory byte = 'R'
	MsgAddOrder       byte = 'A'
	MsgOrderDelete    byte = 'D'
	MsgOrderExecuted  byte = 'E'
)

// System event codes.
const (
	EventStartOfMessages byte = 'O'
	EventStartOfMarket   byte = 'Q'
	EventEndOfMarket     byte = 'M'
	EventEndOfMessages   byte = 'E'
)

// Side bytes on the wire.
const (
	SideBuy  byte = 'B'
	SideSell byte = 'S'
)

// PadStock right-space-pads a ticker to 8 bytes.
func PadStock(s string) [8]byte {
	var out [8]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[:], s)
	return out
}

func putTimestamp(buf []byte, nanosSinceMidnight uint64) {
	buf[0] = byte(nanosSinceMidnight >> 40)
	buf[1] = byte(nanosSinceMidnight >> 32)
	buf[2] = byte(nanosSinceMidnight >> 24)
	buf[3] = byte(nanosSinceMidnight >> 16)
	buf[4] = byte(nanosSinceMidnight >> 8)
	buf[5] = byte(nanosSinceMidnight)
}

// Encoder holds the per-symbol state needed to produce ITCH messages: its
// assigned stock-locate id, an ever-increasing match number, the
// space-padded symbol, and the tick-size multiplier applied to
// price_ticks for the wire price field.
type Encoder struct {
	StockLocate uint16
	Stock       [8]byte
	TickSize    uint32 // multiplier applied to price_ticks

	nextMatch uint64
}

// NewEncoder constructs an Encoder for symbol, assigned stockLocate (1..N
// on first sight) and tickSize.
func NewEncoder(symbol string, stockLocate uint16, tickSize uint32) *Encoder {
	return &Encoder{
		StockLocate: stockLocate,
		Stock:       PadStock(symbol),
		TickSize:    tickSize,
	}
}

// SystemEvent encodes a 12-byte System Event message.
func (e *Encoder) SystemEvent(tsNs uint64, eventCode byte) []byte {
	buf := make([]byte, 12)
	buf[0] = MsgSystemEvent
	binary.BigEndian.PutUint16(buf[1:3], e.StockLocate)
	binary.BigEndian.PutUint16(buf[3:5], 0) // tracking number, unused
	putTimestamp(buf[5:11], tsNs)
	buf[11] = eventCode
	return buf
}

// StockDirectory encodes a 39-byte Stock Directory message, emitted on
// first sighting of a new symbol.
func (e *Encoder) StockDirectory(tsNs uint64) []byte {
	buf := make([]byte, 39)
	buf[0] = MsgStockDirectory
	binary.BigEndian.PutUint16(buf[1:3], e.StockLocate)
	binary.BigEndian.PutUint16(buf[3:5], 0)
	putTimestamp(buf[5:11], tsNs)
	copy(buf[11:19], e.Stock[:])
	buf[19] = 'N' // market category: NASDAQ-style placeholder
	buf[20] = 'N' // financial status: normal
	binary.BigEndian.PutUint32(buf[21:25], 100) // round lot size
	buf[25] = 'Y'                                // round lots only
	buf[26] = 'C'                                // issue classification: common stock
	copy(buf[27:29], "  ")
	buf[29] = 'P' // authenticity: production
	buf[30] = 'N' // short sale threshold
	buf[31] = 'N' // IPO flag
	buf[32] = ' ' // LULD ref price tier
	buf[33] = 'N' // ETP flag
	binary.BigEndian.PutUint32(buf[34:38], 0)
	buf[38] = 'N' // inverse indicator
	return buf
}

// AddOrder encodes a 36-byte Add Order (no MPID) message for an
// ADD_BID/ADD_ASK event.
func (e *Encoder) AddOrder(tsNs uint64, orderRef uint64, side book.Side, shares uint32, priceTicks int32) []byte {
	buf := make([]byte, 36)
	buf[0] = MsgAddOrder
	binary.BigEndian.PutUint16(buf[1:3], e.StockLocate)
	binary.BigEndian.PutUint16(buf[3:5], 0)
	putTimestamp(buf[5:11], tsNs)
	binary.BigEndian.PutUint64(buf[11:19], orderRef)
	if side == book.SideBid {
		buf[19] = SideBuy
	} else {
		buf[19] = SideSell
	}
	binary.BigEndian.PutUint32(buf[20:24], shares)
	copy(buf[24:32], e.Stock[:])
	binary.BigEndian.PutUint32(buf[32:36], e.wirePrice(priceTicks))
	return buf
}

// OrderDelete encodes a 19-byte Order Delete message for a
// CANCEL_BID/CANCEL_ASK event (modeled as a full delete).
func (e *Encoder) OrderDelete(tsNs uint64, orderRef uint64) []byte {
	buf := make([]byte, 19)
	buf[0] = MsgOrderDelete
	binary.BigEndian.PutUint16(buf[1:3], e.StockLocate)
	binary.BigEndian.PutUint16(buf[3:5], 0)
	putTimestamp(buf[5:11], tsNs)
	binary.BigEndian.PutUint64(buf[11:19], orderRef)
	return buf
}

// OrderExecuted encodes a 31-byte Order Executed message for an
// EXECUTE_BUY/EXECUTE_SELL event, assigning the next match number.
func (e *Encoder) OrderExecuted(tsNs uint64, orderRef uint64, shares uint32) []byte {
	e.nextMatch++
	buf := make([]byte, 31)
	buf[0] = MsgOrderExecuted
	binary.BigEndian.PutUint16(buf[1:3], e.StockLocate)
	binary.BigEndian.PutUint16(buf[3:5], 0)
	putTimestamp(buf[5:11], tsNs)
	binary.BigEndian.PutUint64(buf[11:19], orderRef)
	binary.BigEndian.PutUint32(buf[19:23], shares)
	binary.BigEndian.PutUint64(buf[23:31], e.nextMatch)
	return buf
}

// wirePrice applies the tick-size multiplier to price_ticks.
func (e *Encoder) wirePrice(priceTicks int32) uint32 {
	return uint32(priceTicks) * e.TickSize
}
