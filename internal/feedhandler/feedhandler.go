// Package feedhandler consumes published event records from the bus and
// re-emits them as ITCH-5.0-style messages framed in MoldUDP64 packets
// over UDP. It runs as a separate process from the
// producer; its crash or lag never affects the producer.
package feedhandler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"qrsdp/internal/book"
	"qrsdp/internal/journal"
	"qrsdp/internal/wire/itch"
	"qrsdp/internal/wire/mold"
)

// Config configures a Handler's bus consumer and wire output.
type Config struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	SessionID     string
	TickSize      uint32
}

// Sender is the minimal interface a Handler needs to emit finished
// MoldUDP64 packets; wire/udpsender.Sender satisfies it.
type Sender interface {
	Send(buf []byte) error
}

// Handler is a single-threaded bus consumer that maintains one ITCH
// encoder per symbol, detects day boundaries by timestamp regression, and
// drives a mold.Framer toward a Sender.
type Handler struct {
	cfg    Config
	client *kgo.Client
	framer *mold.Framer

	sysEncoder *itch.Encoder // stock locate 0, used for symbol-less System Event messages

	encoders   map[string]*itch.Encoder
	nextLocate uint16
	lastTsNs   uint64
	seenFirst  bool
}

// New constructs a Handler consuming cfg.Topic via cfg.ConsumerGroup
// (offset policy "earliest" for a never-before-seen group, auto-commit
// enabled) and emitting framed packets via send.
func New(cfg Config, send func([]byte) error) (*Handler, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.AutoCommitInterval(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("feedhandler: new client: %w", err)
	}

	return &Handler{
		cfg:        cfg,
		client:     client,
		framer:     mold.NewFramer(cfg.SessionID, 0, send),
		sysEncoder: itch.NewEncoder("", 0, cfg.TickSize),
		encoders:   make(map[string]*itch.Encoder),
	}, nil
}

// Run polls the bus until ctx is cancelled, translating each record into
// ITCH messages and feeding them to the framer. It emits the System Event
// 'O' before the first poll and, on exit, emits the closing 'M'/'E' pair
// and flushes.
func (h *Handler) Run(ctx context.Context) error {
	if err := h.emitSystemEvent(0, itch.EventStartOfMessages); err != nil {
		return err
	}
	if err := h.framer.Flush(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return h.stop()
		default:
		}

		fetches := h.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return h.stop()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			log.Printf("feedhandler: fetch error topic %s partition %d: %v", topic, partition, err)
		})

		var handleErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			if handleErr != nil {
				return
			}
			handleErr = h.handleRecord(rec)
		})
		if handleErr != nil {
			return handleErr
		}

		if err := h.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Printf("feedhandler: commit error: %v", err)
		}
	}
}

// handleRecord validates, decodes, performs day-boundary detection, looks
// up or creates the symbol's encoder, and pushes the encoded message into
// the framer.
func (h *Handler) handleRecord(rec *kgo.Record) error {
	if len(rec.Value) != journal.RecordSize {
		return fmt.Errorf("feedhandler: record is %d bytes, want %d", len(rec.Value), journal.RecordSize)
	}
	symbol := string(rec.Key)

	disk, err := journal.DecodeRecord(rec.Value)
	if err != nil {
		return fmt.Errorf("feedhandler: %w", err)
	}
	if err := h.detectDayBoundary(disk.TsNs); err != nil {
		return err
	}

	enc, created := h.encoderFor(symbol)
	if created {
		if err := h.push(enc.StockDirectory(disk.TsNs)); err != nil {
			return err
		}
	}

	msg, err := h.encode(enc, disk)
	if err != nil {
		return err
	}
	return h.push(msg)
}

func (h *Handler) encoderFor(symbol string) (*itch.Encoder, bool) {
	if enc, ok := h.encoders[symbol]; ok {
		return enc, false
	}
	h.nextLocate++
	enc := itch.NewEncoder(symbol, h.nextLocate, h.cfg.TickSize)
	h.encoders[symbol] = enc
	return enc, true
}

func (h *Handler) encode(enc *itch.Encoder, r journal.DiskEventRecord) ([]byte, error) {
	switch book.EventType(r.Type) {
	case book.AddBid:
		return enc.AddOrder(r.TsNs, r.OrderID, book.SideBid, r.Qty, r.PriceTicks), nil
	case book.AddAsk:
		return enc.AddOrder(r.TsNs, r.OrderID, book.SideAsk, r.Qty, r.PriceTicks), nil
	case book.CancelBid, book.CancelAsk:
		return enc.OrderDelete(r.TsNs, r.OrderID), nil
	case book.ExecuteBuy, book.ExecuteSell:
		return enc.OrderExecuted(r.TsNs, r.OrderID, r.Qty), nil
	default:
		return nil, fmt.Errorf("feedhandler: unknown event type %d", r.Type)
	}
}

// detectDayBoundary emits the market-open/market-close System Events:
// 'Q' on the very first event, and an
// 'M' (at the prior timestamp) followed by 'Q' (at tsNs) whenever tsNs
// regresses relative to the last seen timestamp.
func (h *Handler) detectDayBoundary(tsNs uint64) error {
	if !h.seenFirst {
		h.seenFirst = true
		h.lastTsNs = tsNs
		return h.emitSystemEvent(tsNs, itch.EventStartOfMarket)
	}
	if tsNs < h.lastTsNs {
		if err := h.emitSystemEvent(h.lastTsNs, itch.EventEndOfMarket); err != nil {
			return err
		}
		if err := h.emitSystemEvent(tsNs, itch.EventStartOfMarket); err != nil {
			return err
		}
	}
	h.lastTsNs = tsNs
	return nil
}

func (h *Handler) emitSystemEvent(tsNs uint64, code byte) error {
	return h.push(h.sysEncoder.SystemEvent(tsNs, code))
}

func (h *Handler) push(msg []byte) error {
	return h.framer.AddMessage(msg)
}

// stop emits the closing System Events and flushes the framer.
func (h *Handler) stop() error {
	if h.seenFirst {
		if err := h.emitSystemEvent(h.lastTsNs, itch.EventEndOfMarket); err != nil {
			return err
		}
	}
	if err := h.emitSystemEvent(h.lastTsNs, itch.EventEndOfMessages); err != nil {
		return err
	}
	if err := h.framer.Flush(); err != nil {
		return err
	}
	h.client.Close()
	return nil
}
