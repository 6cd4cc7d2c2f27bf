// Command qrsdpd is the session runner: it spawns one worker per
// configured security, chains business days, writes each day's chunked
// LZ4 journal (optionally fanned out to a broker topic and a MongoDB run
// catalog), and emits manifest.json once every worker finishes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qrsdp/internal/attrs"
	"qrsdp/internal/calib"
	"qrsdp/internal/catalog"
	"qrsdp/internal/config"
	"qrsdp/internal/intensity"
	"qrsdp/internal/runner"
	"qrsdp/internal/security"
)

func main() {
	cfg := config.LoadRunnerConfig()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("qrsdpd starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	startDate := time.Now()
	if cfg.StartDate != "" {
		d, err := time.Parse("2006-01-02", cfg.StartDate)
		if err != nil {
			log.Fatalf("invalid -start-date %q: %v", cfg.StartDate, err)
		}
		startDate = d
	}

	securities := selectSecurities(cfg.Securities)
	log.Printf("seed=%d days=%d securities=%d model=%s", cfg.BaseSeed, cfg.Days, len(securities), cfg.ModelKind)

	var hlrParams intensity.HLRParams
	if cfg.ModelKind == "hlr" {
		if cfg.HLRParamsPath != "" {
			p, err := intensity.LoadHLRParams(cfg.HLRParamsPath)
			if err != nil {
				log.Fatalf("loading -hlr-params: %v", err)
			}
			hlrParams = p
		} else {
			hlrParams = defaultHLRParams(10)
		}
	}

	specs := make([]runner.SecuritySpec, len(securities))
	for i, s := range securities {
		spec := runner.BuildSecuritySpec(s, 10, 50, 2, 0.05)
		if cfg.ModelKind == "hlr" {
			spec.ModelKind = security.ModelHLR
			spec.HLR = hlrParams
		}
		specs[i] = spec
	}

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())

	var catalogStore *catalog.Store
	var catalogArchiver *catalog.Archiver
	if cfg.MongoURI != "" {
		store, err := catalog.Open(ctx, cfg.MongoURI, runID)
		if err != nil {
			log.Fatalf("catalog connection failed: %v", err)
		}
		defer store.Close(context.Background())
		catalogStore = store
		if cfg.ArchiveDir != "" {
			catalogArchiver = catalog.NewArchiver(store.DB(), cfg.ArchiveDir)
		}
	}

	var brokerBrokers []string
	if cfg.BrokerBrokers != "" {
		brokerBrokers = strings.Split(cfg.BrokerBrokers, ",")
	}

	r := runner.New(runner.Config{
		BaseSeed:        cfg.BaseSeed,
		Stride:          security.MinStride,
		SessionSeconds:  uint32(cfg.SessionSeconds),
		Days:            cfg.Days,
		StartDate:       startDate,
		OutputDir:       cfg.OutputDir,
		ChunkCapacity:   uint32(cfg.ChunkCapacity),
		Securities:      specs,
		AttrParams:      attrs.Params{Alpha: 0.3, SpreadImproveCoeff: 0.1},
		MarketOpenNs:    uint64(cfg.MarketOpenSeconds) * 1_000_000_000,
		Realtime:        cfg.Realtime,
		Speed:           cfg.SpeedMultiplier,
		MeasureReadback: cfg.MeasureRead,
		BrokerBrokers:   brokerBrokers,
		BrokerTopic:     cfg.BrokerTopic,
		CatalogStore:    catalogStore,
		CatalogKeepDays: cfg.TradeRetentionDays,
		CatalogArchiver: catalogArchiver,
		RunID:           runID,
	})

	if err := r.Run(ctx); err != nil {
		log.Fatalf("run failed: %v", err)
	}

	log.Println("qrsdpd finished")
}

// defaultHLRParams builds a level-independent curve set (add rates falling
// and cancel rates rising with queue size) for each of
// the four per-level rate tables plus the two market-order curves, giving
// -model=hlr a usable default without requiring a calibrated JSON file.
func defaultHLRParams(k int) intensity.HLRParams {
	addCurve := intensity.Curve{Values: []float64{12, 9, 6, 4, 2}, Tail: intensity.TailFlat}
	cancelCurve := intensity.Curve{Values: []float64{1, 2, 3, 4, 5}, Tail: intensity.TailFlat}

	mk := func(c intensity.Curve) []intensity.Curve {
		out := make([]intensity.Curve, k)
		for i := range out {
			out[i] = c
		}
		return out
	}

	return intensity.HLRParams{
		K:               k,
		AddBidCurves:    mk(addCurve),
		AddAskCurves:    mk(addCurve),
		CancelBidCurves: mk(cancelCurve),
		CancelAskCurves: mk(cancelCurve),
		MarketBuyCurve:  intensity.Curve{Values: []float64{0.5, 1, 2, 3, 5}, Tail: intensity.TailFlat},
		MarketSellCurve: intensity.Curve{Values: []float64{0.5, 1, 2, 3, 5}, Tail: intensity.TailFlat},
		NMax:            len(addCurve.Values) - 1,
	}
}

// selectSecurities resolves the -securities flag (comma-separated
// tickers, empty = full catalog) against the calibration catalog.
func selectSecurities(tickers string) []calib.Security {
	if tickers == "" {
		return calib.Catalog()
	}
	byTicker := calib.ByTicker()
	wanted := strings.Split(tickers, ",")
	out := make([]calib.Security, 0, len(wanted))
	for _, t := range wanted {
		t = strings.TrimSpace(strings.ToUpper(t))
		if s, ok := byTicker[t]; ok {
			out = append(out, s)
		} else {
			log.Printf("warning: unknown ticker %q, skipping", t)
		}
	}
	return out
}
