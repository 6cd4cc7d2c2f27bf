package journal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
)

// WriterConfig mirrors the session fields recorded in the file header.
type WriterConfig struct {
	Seed               uint64
	P0Ticks            int32
	TickSize           uint32
	SessionSeconds     uint32
	LevelsPerSide      uint32
	InitialSpreadTicks uint32
	InitialDepth       uint32
	ChunkCapacity      uint32
}

// Writer appends DiskEventRecords to a chunked, LZ4-compressed journal
// file, buffering up to ChunkCapacity records per chunk.
type Writer struct {
	f      *os.File
	cfg    WriterConfig
	buf    []DiskEventRecord
	index  []ChunkIndexEntry
	offset int64 // current write offset, tracked to build index entries
}

// Create opens path for writing and emits the 64-byte file header with
// HeaderFlags = 0.
func Create(path string, cfg WriterConfig) (*Writer, error) {
	if cfg.ChunkCapacity == 0 {
		cfg.ChunkCapacity = DefaultChunkCapacity
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("journal: create %s: %w", path, err)
	}
	header := encodeFileHeader(FileHeader{
		VersionMajor:       VersionMajor,
		VersionMinor:       VersionMinor,
		RecordSize:         RecordSize,
		Seed:               cfg.Seed,
		P0Ticks:            cfg.P0Ticks,
		TickSize:           cfg.TickSize,
		SessionSeconds:     cfg.SessionSeconds,
		LevelsPerSide:      cfg.LevelsPerSide,
		InitialSpreadTicks: cfg.InitialSpreadTicks,
		InitialDepth:       cfg.InitialDepth,
		ChunkCapacity:      cfg.ChunkCapacity,
		HeaderFlags:        0,
	})
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: write header: %w", err)
	}
	return &Writer{f: f, cfg: cfg, offset: HeaderSize}, nil
}

// Append buffers one record, flushing a chunk if the buffer reaches
// ChunkCapacity.
func (w *Writer) Append(r DiskEventRecord) error {
	w.buf = append(w.buf, r)
	if uint32(len(w.buf)) >= w.cfg.ChunkCapacity {
		return w.flushChunk()
	}
	return nil
}

func (w *Writer) flushChunk() error {
	if len(w.buf) == 0 {
		return nil
	}

	raw := make([]byte, len(w.buf)*RecordSize)
	for i, r := range w.buf {
		encodeDiskRecord(r, raw[i*RecordSize:(i+1)*RecordSize])
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	var c lz4.Compressor
	n, err := c.CompressBlock(raw, compressed)
	if err != nil {
		return fmt.Errorf("journal: lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible payload (CompressBlock signals this with n==0).
		// Emit a literal-only block so the chunk stays valid LZ4.
		compressed = literalBlock(raw)
	} else {
		compressed = compressed[:n]
	}

	chunkHeader := ChunkHeader{
		UncompressedSize: uint32(len(raw)),
		CompressedSize:   uint32(len(compressed)),
		RecordCount:      uint32(len(w.buf)),
		ChunkFlags:       0,
		FirstTsNs:        w.buf[0].TsNs,
		LastTsNs:         w.buf[len(w.buf)-1].TsNs,
	}

	entry := ChunkIndexEntry{
		FileOffset:  uint64(w.offset),
		FirstTsNs:   chunkHeader.FirstTsNs,
		LastTsNs:    chunkHeader.LastTsNs,
		RecordCount: chunkHeader.RecordCount,
	}

	if _, err := w.f.Write(encodeChunkHeader(chunkHeader)); err != nil {
		return fmt.Errorf("journal: write chunk header: %w", err)
	}
	if _, err := w.f.Write(compressed); err != nil {
		return fmt.Errorf("journal: write chunk payload: %w", err)
	}

	w.offset += int64(ChunkHeaderSize) + int64(len(compressed))
	w.index = append(w.index, entry)
	w.buf = w.buf[:0]
	return nil
}

// literalBlock encodes src as a single LZ4 sequence of literals with no
// match, the fallback representation for data the compressor could not
// shrink.
func literalBlock(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/255+2)
	n := len(src)
	if n < 15 {
		out = append(out, byte(n)<<4)
	} else {
		out = append(out, 0xF0)
		for rem := n - 15; ; rem -= 255 {
			if rem < 255 {
				out = append(out, byte(rem))
				break
			}
			out = append(out, 255)
		}
	}
	return append(out, src...)
}

// Close flushes any partially filled chunk, writes the index footer if
// any chunks exist, and patches the file header's HeaderFlags.
func (w *Writer) Close() error {
	if err := w.flushChunk(); err != nil {
		w.f.Close()
		return err
	}

	hasIndex := len(w.index) > 0
	if hasIndex {
		indexStart := w.offset
		for _, e := range w.index {
			buf := make([]byte, IndexEntrySize)
			encodeIndexEntry(e, buf)
			if _, err := w.f.Write(buf); err != nil {
				w.f.Close()
				return fmt.Errorf("journal: write index entry: %w", err)
			}
		}
		tail := make([]byte, IndexTailSize)
		binary.LittleEndian.PutUint32(tail[0:4], uint32(len(w.index)))
		copy(tail[4:8], MagicIndex)
		binary.LittleEndian.PutUint64(tail[8:16], uint64(indexStart))
		if _, err := w.f.Write(tail); err != nil {
			w.f.Close()
			return fmt.Errorf("journal: write index tail: %w", err)
		}
	}

	if hasIndex {
		if _, err := w.f.Seek(0, io.SeekStart); err != nil {
			w.f.Close()
			return fmt.Errorf("journal: seek to patch header: %w", err)
		}
		var flagsBuf [4]byte
		binary.LittleEndian.PutUint32(flagsBuf[:], HasIndexFlag)
		if _, err := w.f.WriteAt(flagsBuf[:], 52); err != nil {
			w.f.Close()
			return fmt.Errorf("journal: patch header flags: %w", err)
		}
	}

	return w.f.Close()
}
