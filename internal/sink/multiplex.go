package sink

import (
	"fmt"
	"log"

	"qrsdp/internal/producer"
)

// Multiplex forwards Append/Close to every downstream sink in registration
// order. The first sink is treated as primary (its errors propagate); every
// other sink is best-effort: its errors are logged and otherwise
// swallowed.
type Multiplex struct {
	primary   Sink
	secondary []Sink
}

// NewMultiplex constructs a Multiplex with primary as the non-best-effort
// sink (normally the JournalSink) and secondary as additional best-effort
// sinks (normally BrokerSink, and optionally a catalog sink).
func NewMultiplex(primary Sink, secondary ...Sink) *Multiplex {
	return &Multiplex{primary: primary, secondary: secondary}
}

// Append writes to the primary sink first; a primary failure is returned
// immediately without touching secondaries. Secondary failures are logged
// and never returned.
func (m *Multiplex) Append(rec producer.EventRecord) error {
	if err := m.primary.Append(rec); err != nil {
		return fmt.Errorf("multiplex: primary sink: %w", err)
	}
	for _, s := range m.secondary {
		if err := s.Append(rec); err != nil {
			log.Printf("multiplex: secondary sink append failed (ignored): %v", err)
		}
	}
	return nil
}

// Close closes every sink in registration order, returning the primary's
// error (if any) while logging and continuing past secondary errors.
func (m *Multiplex) Close() error {
	var primaryErr error
	if err := m.primary.Close(); err != nil {
		primaryErr = fmt.Errorf("multiplex: primary sink close: %w", err)
	}
	for _, s := range m.secondary {
		if err := s.Close(); err != nil {
			log.Printf("multiplex: secondary sink close failed (ignored): %v", err)
		}
	}
	return primaryErr
}
