package sink

import (
	"fmt"

	"qrsdp/internal/journal"
	"qrsdp/internal/producer"
)

// JournalSink is the primary, non-best-effort sink: it writes every
// EventRecord to a chunked LZ4 journal file. Any I/O error here
// propagates to the runner and terminates the worker's day.
type JournalSink struct {
	w *journal.Writer
}

// NewJournalSink opens a journal.Writer at path with the given config.
func NewJournalSink(path string, cfg journal.WriterConfig) (*JournalSink, error) {
	w, err := journal.Create(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("journal sink: %w", err)
	}
	return &JournalSink{w: w}, nil
}

// Append converts rec to its 26-byte disk representation (dropping Flags)
// and appends it to the journal.
func (s *JournalSink) Append(rec producer.EventRecord) error {
	disk := journal.DiskEventRecord{
		TsNs:       rec.TsNs,
		Type:       uint8(rec.Type),
		Side:       uint8(rec.Side),
		PriceTicks: rec.PriceTicks,
		Qty:        rec.Qty,
		OrderID:    rec.OrderID,
	}
	if err := s.w.Append(disk); err != nil {
		return fmt.Errorf("journal sink: append: %w", err)
	}
	return nil
}

// Close flushes the final chunk and writes the index footer.
func (s *JournalSink) Close() error {
	if err := s.w.Close(); err != nil {
		return fmt.Errorf("journal sink: close: %w", err)
	}
	return nil
}
