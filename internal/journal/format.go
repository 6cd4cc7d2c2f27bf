// Package journal implements the chunked, LZ4-compressed, self-describing
// binary journal format.
package journal

import (
	"encoding/binary"
	"fmt"
)

const (
	// MagicHeader is the 8-byte file header magic.
	MagicHeader = "QRSDPLOG"
	// MagicIndex is the 4-byte index-tail magic.
	MagicIndex = "QIDX"

	// VersionMajor/VersionMinor are the format versions this package
	// writes; on read, files with a major version above VersionMajor are
	// rejected.
	VersionMajor = 1
	VersionMinor = 0

	// RecordSize is the packed size of a DiskEventRecord in bytes.
	RecordSize = 26

	// HeaderSize is the fixed file header size in bytes.
	HeaderSize = 64
	// ChunkHeaderSize is the fixed per-chunk header size in bytes.
	ChunkHeaderSize = 32
	// IndexEntrySize is the fixed per-chunk index entry size in bytes.
	IndexEntrySize = 32
	// IndexTailSize is the fixed index-tail size in bytes.
	IndexTailSize = 16

	// DefaultChunkCapacity is the default record count per chunk.
	DefaultChunkCapacity = 4096

	// HasIndexFlag is bit 0 of FileHeader.HeaderFlags.
	HasIndexFlag uint32 = 1 << 0
)

// FileHeader is the 64-byte file header written at open and, when an
// index footer is produced, re-patched at close with HasIndexFlag set.
type FileHeader struct {
	VersionMajor       uint16
	VersionMinor       uint16
	RecordSize         uint32
	Seed               uint64
	P0Ticks            int32
	TickSize           uint32
	SessionSeconds     uint32
	LevelsPerSide      uint32
	InitialSpreadTicks uint32
	InitialDepth       uint32
	ChunkCapacity      uint32
	HeaderFlags        uint32
}

// ChunkHeader is the 32-byte header preceding each chunk's compressed
// payload.
type ChunkHeader struct {
	UncompressedSize uint32
	CompressedSize   uint32
	RecordCount      uint32
	ChunkFlags       uint32
	FirstTsNs        uint64
	LastTsNs         uint64
}

// DiskEventRecord is the 26-byte packed, little-endian on-disk/on-wire
// representation of an EventRecord, minus Flags.
type DiskEventRecord struct {
	TsNs       uint64
	Type       uint8
	Side       uint8
	PriceTicks int32
	Qty        uint32
	OrderID    uint64
}

// ChunkIndexEntry is one 32-byte entry in the optional index footer.
type ChunkIndexEntry struct {
	FileOffset  uint64
	FirstTsNs   uint64
	LastTsNs    uint64
	RecordCount uint32
}

func encodeFileHeader(h FileHeader) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], MagicHeader)
	binary.LittleEndian.PutUint16(buf[8:10], h.VersionMajor)
	binary.LittleEndian.PutUint16(buf[10:12], h.VersionMinor)
	binary.LittleEndian.PutUint32(buf[12:16], h.RecordSize)
	binary.LittleEndian.PutUint64(buf[16:24], h.Seed)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.P0Ticks))
	binary.LittleEndian.PutUint32(buf[28:32], h.TickSize)
	binary.LittleEndian.PutUint32(buf[32:36], h.SessionSeconds)
	binary.LittleEndian.PutUint32(buf[36:40], h.LevelsPerSide)
	binary.LittleEndian.PutUint32(buf[40:44], h.InitialSpreadTicks)
	binary.LittleEndian.PutUint32(buf[44:48], h.InitialDepth)
	binary.LittleEndian.PutUint32(buf[48:52], h.ChunkCapacity)
	binary.LittleEndian.PutUint32(buf[52:56], h.HeaderFlags)
	// bytes 56..64 reserved, left zero.
	return buf
}

func decodeFileHeader(buf []byte) (FileHeader, bool) {
	if len(buf) < HeaderSize || string(buf[0:8]) != MagicHeader {
		return FileHeader{}, false
	}
	h := FileHeader{
		VersionMajor:       binary.LittleEndian.Uint16(buf[8:10]),
		VersionMinor:       binary.LittleEndian.Uint16(buf[10:12]),
		RecordSize:         binary.LittleEndian.Uint32(buf[12:16]),
		Seed:               binary.LittleEndian.Uint64(buf[16:24]),
		P0Ticks:            int32(binary.LittleEndian.Uint32(buf[24:28])),
		TickSize:           binary.LittleEndian.Uint32(buf[28:32]),
		SessionSeconds:     binary.LittleEndian.Uint32(buf[32:36]),
		LevelsPerSide:      binary.LittleEndian.Uint32(buf[36:40]),
		InitialSpreadTicks: binary.LittleEndian.Uint32(buf[40:44]),
		InitialDepth:       binary.LittleEndian.Uint32(buf[44:48]),
		ChunkCapacity:      binary.LittleEndian.Uint32(buf[48:52]),
		HeaderFlags:        binary.LittleEndian.Uint32(buf[52:56]),
	}
	if h.RecordSize == 0 {
		return FileHeader{}, false
	}
	return h, true
}

func encodeChunkHeader(h ChunkHeader) []byte {
	buf := make([]byte, ChunkHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.RecordCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.ChunkFlags)
	binary.LittleEndian.PutUint64(buf[16:24], h.FirstTsNs)
	binary.LittleEndian.PutUint64(buf[24:32], h.LastTsNs)
	return buf
}

func decodeChunkHeader(buf []byte) ChunkHeader {
	return ChunkHeader{
		UncompressedSize: binary.LittleEndian.Uint32(buf[0:4]),
		CompressedSize:   binary.LittleEndian.Uint32(buf[4:8]),
		RecordCount:      binary.LittleEndian.Uint32(buf[8:12]),
		ChunkFlags:       binary.LittleEndian.Uint32(buf[12:16]),
		FirstTsNs:        binary.LittleEndian.Uint64(buf[16:24]),
		LastTsNs:         binary.LittleEndian.Uint64(buf[24:32]),
	}
}

func encodeDiskRecord(r DiskEventRecord, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], r.TsNs)
	buf[8] = r.Type
	buf[9] = r.Side
	binary.LittleEndian.PutUint32(buf[10:14], uint32(r.PriceTicks))
	binary.LittleEndian.PutUint32(buf[14:18], r.Qty)
	binary.LittleEndian.PutUint64(buf[18:26], r.OrderID)
}

// EncodeRecord packs r into a standalone 26-byte wire record, suitable for
// publishing to the bus or for tests exercising bus consumers.
func EncodeRecord(r DiskEventRecord) []byte {
	buf := make([]byte, RecordSize)
	encodeDiskRecord(r, buf)
	return buf
}

// DecodeRecord decodes a standalone 26-byte wire record, as published to
// the bus, into a DiskEventRecord. It is exported for consumers (such as
// the feed handler) that read records off the bus rather than out of a
// journal file.
func DecodeRecord(buf []byte) (DiskEventRecord, error) {
	if len(buf) != RecordSize {
		return DiskEventRecord{}, fmt.Errorf("journal: record is %d bytes, want %d", len(buf), RecordSize)
	}
	return decodeDiskRecord(buf), nil
}

func decodeDiskRecord(buf []byte) DiskEventRecord {
	return DiskEventRecord{
		TsNs:       binary.LittleEndian.Uint64(buf[0:8]),
		Type:       buf[8],
		Side:       buf[9],
		PriceTicks: int32(binary.LittleEndian.Uint32(buf[10:14])),
		Qty:        binary.LittleEndian.Uint32(buf[14:18]),
		OrderID:    binary.LittleEndian.Uint64(buf[18:26]),
	}
}

func encodeIndexEntry(e ChunkIndexEntry, buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], e.FileOffset)
	binary.LittleEndian.PutUint64(buf[8:16], e.FirstTsNs)
	binary.LittleEndian.PutUint64(buf[16:24], e.LastTsNs)
	binary.LittleEndian.PutUint32(buf[24:28], e.RecordCount)
	// bytes 28..32 reserved, left zero.
}

func decodeIndexEntry(buf []byte) ChunkIndexEntry {
	return ChunkIndexEntry{
		FileOffset:  binary.LittleEndian.Uint64(buf[0:8]),
		FirstTsNs:   binary.LittleEndian.Uint64(buf[8:16]),
		LastTsNs:    binary.LittleEndian.Uint64(buf[16:24]),
		RecordCount: binary.LittleEndian.Uint32(buf[24:28]),
	}
}
