// Package mold implements MoldUDP64 session framing: packing one or more
// length-prefixed messages into MTU-bounded packets with a 20-byte session
// header.
package mold

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the fixed MoldUDP64 packet header size.
	HeaderSize = 20
	// SessionIDSize is the fixed, space-padded session identifier width.
	SessionIDSize = 10
	// DefaultMTU bounds the total packet size (header + framed messages).
	DefaultMTU = 1400
	// lengthPrefixSize is the per-message 2-byte big-endian length prefix.
	lengthPrefixSize = 2
)

// PadSessionID right-space-pads id to SessionIDSize bytes, truncating if
// longer.
func PadSessionID(id string) [SessionIDSize]byte {
	var out [SessionIDSize]byte
	for i := range out {
		out[i] = ' '
	}
	copy(out[:], id)
	return out
}

// Framer accumulates messages into MTU-bounded MoldUDP64 packets and hands
// each finished packet to a send callback. A Framer owns exactly one
// monotonically increasing sequence number, starting at 1.
type Framer struct {
	sessionID [SessionIDSize]byte
	mtu       int
	send      func([]byte) error

	seq      uint64
	buf      []byte
	msgCount uint16
}

// NewFramer constructs a Framer for sessionID (padded/truncated to 10
// bytes) that flushes finished packets via send. mtu of 0 uses DefaultMTU.
func NewFramer(sessionID string, mtu int, send func([]byte) error) *Framer {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &Framer{
		sessionID: PadSessionID(sessionID),
		mtu:       mtu,
		send:      send,
		seq:       1,
	}
}

// AddMessage appends payload as the next length-prefixed message in the
// current packet, flushing first if payload would not fit within the MTU
// budget.
func (f *Framer) AddMessage(payload []byte) error {
	frameSize := lengthPrefixSize + len(payload)
	if HeaderSize+len(f.buf)+frameSize > f.mtu && len(f.buf) > 0 {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	if HeaderSize+frameSize > f.mtu {
		return fmt.Errorf("mold: message of %d bytes exceeds MTU budget %d", len(payload), f.mtu)
	}

	var lenBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	f.buf = append(f.buf, lenBuf[:]...)
	f.buf = append(f.buf, payload...)
	f.msgCount++
	return nil
}

// Flush emits the current packet (header plus any buffered messages) via
// the send callback and advances the sequence number by the number of
// messages it carried. It is a no-op if no messages are buffered.
func (f *Framer) Flush() error {
	if f.msgCount == 0 {
		return nil
	}

	packet := make([]byte, HeaderSize+len(f.buf))
	copy(packet[0:SessionIDSize], f.sessionID[:])
	binary.BigEndian.PutUint64(packet[10:18], f.seq)
	binary.BigEndian.PutUint16(packet[18:20], f.msgCount)
	copy(packet[HeaderSize:], f.buf)

	if err := f.send(packet); err != nil {
		return fmt.Errorf("mold: send: %w", err)
	}

	f.seq += uint64(f.msgCount)
	f.buf = f.buf[:0]
	f.msgCount = 0
	return nil
}

// SequenceNumber returns the sequence number that will be assigned to the
// next packet's first message.
func (f *Framer) SequenceNumber() uint64 {
	return f.seq
}
