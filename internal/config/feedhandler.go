package config

import "flag"

// FeedHandlerConfig holds the feed handler binary's configuration:
// brokers, topic, consumer group, a multicast or unicast wire
// destination, and a tick size.
type FeedHandlerConfig struct {
	Brokers       string // comma-separated
	Topic         string
	ConsumerGroup string
	SessionID     string
	TickSize      int

	MulticastGroup string // "host:port"; "" disables multicast
	MulticastTTL   int
	UnicastAddr    string // "host:port"; used when MulticastGroup is ""
}

// LoadFeedHandlerConfig parses flags (with environment fallbacks) into a
// FeedHandlerConfig.
func LoadFeedHandlerConfig() *FeedHandlerConfig {
	c := &FeedHandlerConfig{}

	flag.StringVar(&c.Brokers, "brokers", envStr("QRSDP_FH_BROKERS", "localhost:9092"), "comma-separated broker addresses")
	flag.StringVar(&c.Topic, "topic", envStr("QRSDP_FH_TOPIC", "qrsdp-events"), "broker topic to consume")
	flag.StringVar(&c.ConsumerGroup, "consumer-group", envStr("QRSDP_FH_GROUP", "qrsdp-feedhandler"), "consumer group name")
	flag.StringVar(&c.SessionID, "session-id", envStr("QRSDP_FH_SESSION_ID", "QRSDP01"), "MoldUDP64 session id (<=10 chars)")
	flag.IntVar(&c.TickSize, "tick-size", envInt("QRSDP_FH_TICK_SIZE", 1), "multiplier applied to price_ticks on the wire")

	flag.StringVar(&c.MulticastGroup, "multicast-group", envStr("QRSDP_FH_MCAST_GROUP", ""), "multicast group:port (empty uses unicast)")
	flag.IntVar(&c.MulticastTTL, "multicast-ttl", envInt("QRSDP_FH_MCAST_TTL", 1), "multicast TTL")
	flag.StringVar(&c.UnicastAddr, "unicast-addr", envStr("QRSDP_FH_UNICAST_ADDR", "127.0.0.1:9001"), "unicast destination host:port")

	flag.Parse()
	return c
}
