package sink

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"qrsdp/internal/journal"
	"qrsdp/internal/producer"
)

// BrokerConfig configures the Kafka-compatible bus producer.
type BrokerConfig struct {
	Brokers []string
	Topic   string
	Symbol  string // message key, for partition affinity per symbol

	// LingerMs and BatchMaxBytes bound the asynchronous batching window;
	// the broker sink never blocks the producer's hot loop for longer
	// than one flush.
	LingerMs      int
	BatchMaxBytes int32

	// Partitions and ReplicationFactor size the topic if NewBrokerSink has
	// to create it (see ensureTopic); they have no effect on an
	// already-existing topic.
	Partitions        int32
	ReplicationFactor int16
}

// DefaultBrokerConfig returns sensible idempotent, batched, compressed
// producer defaults.
func DefaultBrokerConfig(brokers []string, topic, symbol string) BrokerConfig {
	return BrokerConfig{
		Brokers:           brokers,
		Topic:             topic,
		Symbol:            symbol,
		LingerMs:          5,
		BatchMaxBytes:     1 << 20,
		Partitions:        6,
		ReplicationFactor: 1,
	}
}

// ensureTopic creates cfg.Topic via the cluster's admin API if it doesn't
// already exist. The event producer never assumes a human operator has
// pre-provisioned the topic for a newly added security.
func ensureTopic(client *kgo.Client, cfg BrokerConfig) error {
	admin := kadm.NewClient(client)
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := admin.CreateTopics(ctx, cfg.Partitions, cfg.ReplicationFactor, nil, cfg.Topic)
	if err != nil {
		return fmt.Errorf("broker sink: create topic %s: %w", cfg.Topic, err)
	}
	if t, ok := resp[cfg.Topic]; ok && t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("broker sink: create topic %s: %w", cfg.Topic, t.Err)
	}
	return nil
}

// BrokerSink is a best-effort fanout target publishing each DiskEventRecord
// to a named bus topic, keyed by symbol. It is never the primary sink;
// Multiplex treats its errors as non-fatal.
type BrokerSink struct {
	client *kgo.Client
	cfg    BrokerConfig
}

// NewBrokerSink constructs a producer-client for cfg.Brokers/cfg.Topic,
// with idempotent publication, short batching, and compression enabled.
func NewBrokerSink(cfg BrokerConfig) (*BrokerSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(time.Duration(cfg.LingerMs)*time.Millisecond),
		kgo.ProducerBatchMaxBytes(cfg.BatchMaxBytes),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("broker sink: new client: %w", err)
	}
	if err := ensureTopic(client, cfg); err != nil {
		client.Close()
		return nil, err
	}
	return &BrokerSink{client: client, cfg: cfg}, nil
}

// Append serializes rec's 26-byte DiskEventRecord as the message value,
// using the symbol as the key and attaching ts_ns as a header. Delivery is
// asynchronous; failures are logged, not returned, matching its
// best-effort role in the multiplex.
func (s *BrokerSink) Append(rec producer.EventRecord) error {
	disk := journal.DiskEventRecord{
		TsNs:       rec.TsNs,
		Type:       uint8(rec.Type),
		Side:       uint8(rec.Side),
		PriceTicks: rec.PriceTicks,
		Qty:        rec.Qty,
		OrderID:    rec.OrderID,
	}
	buf := journal.EncodeRecord(disk)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], rec.TsNs)

	record := &kgo.Record{
		Topic: s.cfg.Topic,
		Key:   []byte(s.cfg.Symbol),
		Value: buf,
		Headers: []kgo.RecordHeader{
			{Key: "ts_ns", Value: tsBuf[:]},
		},
	}

	s.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			log.Printf("broker sink: delivery failed for %s: %v", s.cfg.Symbol, err)
		}
	})
	return nil
}

// Close flushes outstanding messages and tears down the client.
func (s *BrokerSink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.client.Flush(ctx); err != nil {
		log.Printf("broker sink: flush failed: %v", err)
	}
	s.client.Close()
	return nil
}
