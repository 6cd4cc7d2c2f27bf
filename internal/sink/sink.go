// Package sink implements the producer's output fanout: a Sink interface,
// a fault-isolating Multiplex sink, a Journal sink wrapping
// internal/journal.Writer, and a best-effort Broker sink publishing to a
// Kafka-compatible bus.
package sink

import "qrsdp/internal/producer"

// Sink receives produced events and is closed once the session ends.
// internal/producer.Sink is satisfied by this same shape so a Sink can be
// passed directly to Producer.RunSession.
type Sink interface {
	Append(rec producer.EventRecord) error
	Close() error
}
