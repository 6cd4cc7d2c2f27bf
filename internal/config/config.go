// Package config parses flag/environment configuration for the qrsdpd
// session runner and feedhandler binaries. Every flag takes its default
// from an environment variable, so container deployments can configure
// either way.
package config

import (
	"flag"
	"os"
	"strconv"
)

// RunnerConfig holds qrsdpd's run configuration.
type RunnerConfig struct {
	BaseSeed       int64
	Days           int // 0 = infinite
	SessionSeconds int
	OutputDir      string
	StartDate      string // YYYY-MM-DD
	Securities     string // comma-separated tickers, "" = full catalog
	ChunkCapacity  int
	ModelKind      string // "simple" or "hlr"
	HLRParamsPath  string // JSON file with calibrated HLR curves, "" = defaults

	MarketOpenSeconds int  // seconds since midnight added to every ts_ns
	MeasureRead       bool // re-read each finished journal for a throughput figure

	BrokerBrokers string // comma-separated, "" = broker sink disabled
	BrokerTopic   string

	MongoURI           string // "" = catalog sink disabled
	TradeRetentionDays int
	ArchiveDir         string // "" = prune without archiving

	Realtime        bool
	SpeedMultiplier float64
}

// LoadRunnerConfig parses flags (with environment fallbacks) into a
// RunnerConfig.
func LoadRunnerConfig() *RunnerConfig {
	c := &RunnerConfig{}

	flag.Int64Var(&c.BaseSeed, "seed", envInt64("QRSDP_SEED", 42), "base PRNG seed")
	flag.IntVar(&c.Days, "days", envInt("QRSDP_DAYS", 1), "number of business days to run (0 = infinite)")
	flag.IntVar(&c.SessionSeconds, "session-seconds", envInt("QRSDP_SESSION_SECONDS", 23400), "trading session length in seconds")
	flag.StringVar(&c.OutputDir, "output", envStr("QRSDP_OUTPUT_DIR", "./runs"), "output directory for journal files and manifest")
	flag.StringVar(&c.StartDate, "start-date", envStr("QRSDP_START_DATE", ""), "first business day, YYYY-MM-DD (default: today)")
	flag.StringVar(&c.Securities, "securities", envStr("QRSDP_SECURITIES", ""), "comma-separated tickers to run (default: full catalog)")
	flag.IntVar(&c.ChunkCapacity, "chunk-capacity", envInt("QRSDP_CHUNK_CAPACITY", 4096), "records per journal chunk")
	flag.StringVar(&c.ModelKind, "model", envStr("QRSDP_MODEL", "simple"), "intensity model: simple or hlr")
	flag.StringVar(&c.HLRParamsPath, "hlr-params", envStr("QRSDP_HLR_PARAMS", ""), "JSON file with calibrated HLR curves (empty uses defaults)")

	flag.IntVar(&c.MarketOpenSeconds, "market-open", envInt("QRSDP_MARKET_OPEN_SECONDS", 34200), "market open as seconds since midnight, added to every timestamp")
	flag.BoolVar(&c.MeasureRead, "measure-read", envBool("QRSDP_MEASURE_READ", false), "re-read each finished journal and record read throughput")

	flag.StringVar(&c.BrokerBrokers, "broker-brokers", envStr("QRSDP_BROKER_BROKERS", ""), "comma-separated broker addresses (empty disables the broker sink)")
	flag.StringVar(&c.BrokerTopic, "broker-topic", envStr("QRSDP_BROKER_TOPIC", "qrsdp-events"), "broker topic name")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("QRSDP_MONGO_URI", ""), "MongoDB URI for the optional run catalog (empty disables it)")
	flag.IntVar(&c.TradeRetentionDays, "trade-retention", envInt("QRSDP_TRADE_RETENTION_DAYS", 30), "prune catalog session-days older than this many days (0 = keep forever)")
	flag.StringVar(&c.ArchiveDir, "archive-dir", envStr("QRSDP_ARCHIVE_DIR", ""), "archive pruned session-days as gzipped NDJSON under this directory (empty prunes without archiving)")

	flag.BoolVar(&c.Realtime, "realtime", envBool("QRSDP_REALTIME", false), "pace event emission to wall-clock time")
	flag.Float64Var(&c.SpeedMultiplier, "speed", envFloat("QRSDP_SPEED", 1.0), "realtime speed multiplier")

	flag.Parse()
	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
