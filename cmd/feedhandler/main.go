// Command feedhandler is the wire-protocol feed handler: a separate
// process that consumes published event records from the bus, encodes
// them as ITCH-5.0-style messages framed in MoldUDP64 packets, and sends
// them over UDP (multicast or unicast). Its crash or lag never affects
// the producer side.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"qrsdp/internal/config"
	"qrsdp/internal/feedhandler"
	"qrsdp/internal/wire/udpsender"
)

func main() {
	cfg := config.LoadFeedHandlerConfig()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("feedhandler starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	sender, err := newSender(cfg)
	if err != nil {
		log.Fatalf("udp sender: %v", err)
	}
	defer sender.Close()

	h, err := feedhandler.New(feedhandler.Config{
		Brokers:       strings.Split(cfg.Brokers, ","),
		Topic:         cfg.Topic,
		ConsumerGroup: cfg.ConsumerGroup,
		SessionID:     cfg.SessionID,
		TickSize:      uint32(cfg.TickSize),
	}, sender.Send)
	if err != nil {
		log.Fatalf("feedhandler: %v", err)
	}

	log.Printf("consuming topic=%s group=%s -> %s", cfg.Topic, cfg.ConsumerGroup, destinationLabel(cfg))
	if err := h.Run(ctx); err != nil {
		log.Fatalf("feedhandler run: %v", err)
	}

	log.Println("feedhandler stopped")
}

func newSender(cfg *config.FeedHandlerConfig) (*udpsender.Sender, error) {
	if cfg.MulticastGroup != "" {
		return udpsender.NewMulticast(cfg.MulticastGroup, cfg.MulticastTTL, nil)
	}
	return udpsender.NewUnicast(cfg.UnicastAddr)
}

func destinationLabel(cfg *config.FeedHandlerConfig) string {
	if cfg.MulticastGroup != "" {
		return "multicast " + cfg.MulticastGroup
	}
	return "unicast " + cfg.UnicastAddr
}
