package journal

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pierrec/lz4/v4"
)

// Reader reads a chunked, LZ4-compressed journal file. If the file carries
// an index footer, timestamp lookups binary-search it; without one,
// timestamp lookups find no chunk. Reading records always scans the chunks
// sequentially.
type Reader struct {
	f          *os.File
	Header     FileHeader
	index      []ChunkIndexEntry // empty if no footer
	indexStart int64             // file offset where the index footer begins, 0 if none
}

// Open validates the file header and, if HasIndexFlag is set, loads the
// index footer.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: read header: %w", err)
	}
	header, ok := decodeFileHeader(headerBuf)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("journal: %s: invalid header", path)
	}
	if header.VersionMajor > VersionMajor {
		f.Close()
		return nil, fmt.Errorf("journal: %s: unsupported version %d.%d", path, header.VersionMajor, header.VersionMinor)
	}

	r := &Reader{f: f, Header: header}

	if header.HeaderFlags&HasIndexFlag != 0 {
		if err := r.loadIndex(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Reader) loadIndex() error {
	size, err := r.f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("journal: seek end: %w", err)
	}
	if size < int64(IndexTailSize) {
		return fmt.Errorf("journal: file too small for index tail")
	}
	if _, err := r.f.Seek(size-int64(IndexTailSize), io.SeekStart); err != nil {
		return fmt.Errorf("journal: seek to index tail: %w", err)
	}
	tail := make([]byte, IndexTailSize)
	if _, err := io.ReadFull(r.f, tail); err != nil {
		return fmt.Errorf("journal: read index tail: %w", err)
	}
	chunkCount := leUint32(tail[0:4])
	if string(tail[4:8]) != MagicIndex {
		return fmt.Errorf("journal: bad index magic")
	}
	indexStart := int64(leUint64(tail[8:16]))
	r.indexStart = indexStart

	if _, err := r.f.Seek(indexStart, io.SeekStart); err != nil {
		return fmt.Errorf("journal: seek to index start: %w", err)
	}
	entries := make([]ChunkIndexEntry, chunkCount)
	buf := make([]byte, IndexEntrySize)
	for i := uint32(0); i < chunkCount; i++ {
		if _, err := io.ReadFull(r.f, buf); err != nil {
			return fmt.Errorf("journal: read index entry %d: %w", i, err)
		}
		entries[i] = decodeIndexEntry(buf)
	}
	r.index = entries

	if _, err := r.f.Seek(HeaderSize, io.SeekStart); err != nil {
		return fmt.Errorf("journal: seek back to data: %w", err)
	}
	return nil
}

// HasIndex reports whether this journal carries an index footer.
func (r *Reader) HasIndex() bool { return len(r.index) > 0 }

// Index returns the loaded chunk index entries, or nil if there is none.
func (r *Reader) Index() []ChunkIndexEntry { return r.index }

// FindChunkByTimestamp binary-searches the index for the first chunk whose
// range could contain ts. Returns -1 if there is
// no index or ts is out of range.
func (r *Reader) FindChunkByTimestamp(ts uint64) int {
	if len(r.index) == 0 {
		return -1
	}
	idx := sort.Search(len(r.index), func(i int) bool {
		return r.index[i].LastTsNs >= ts
	})
	if idx >= len(r.index) || r.index[idx].FirstTsNs > ts {
		return -1
	}
	return idx
}

// ReadAll reads every record in the file by sequential chunk scan,
// regardless of whether an index is present.
func (r *Reader) ReadAll() ([]DiskEventRecord, error) {
	if _, err := r.f.Seek(HeaderSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("journal: seek to data: %w", err)
	}

	var out []DiskEventRecord
	chunkHeaderBuf := make([]byte, ChunkHeaderSize)
	for {
		if r.indexStart > 0 {
			pos, err := r.f.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, fmt.Errorf("journal: tell position: %w", err)
			}
			if pos >= r.indexStart {
				break
			}
		}

		_, err := io.ReadFull(r.f, chunkHeaderBuf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			// Truncated chunk header: stop cleanly at the last complete chunk.
			break
		}
		if err != nil {
			return nil, fmt.Errorf("journal: read chunk header: %w", err)
		}
		ch := decodeChunkHeader(chunkHeaderBuf)

		compressed := make([]byte, ch.CompressedSize)
		if _, err := io.ReadFull(r.f, compressed); err != nil {
			if err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("journal: read chunk payload: %w", err)
		}

		raw := make([]byte, ch.UncompressedSize)
		n, err := lz4.UncompressBlock(compressed, raw)
		if err != nil {
			return nil, fmt.Errorf("journal: lz4 decompress: %w", err)
		}
		if uint32(n) != ch.UncompressedSize {
			return nil, fmt.Errorf("journal: decompressed size mismatch: got %d want %d", n, ch.UncompressedSize)
		}

		for i := uint32(0); i < ch.RecordCount; i++ {
			out = append(out, decodeDiskRecord(raw[i*RecordSize:(i+1)*RecordSize]))
		}
	}
	return out, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
