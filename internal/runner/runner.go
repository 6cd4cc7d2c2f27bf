// Package runner implements the session runner: it
// spawns one worker per security, chains business days, writes each
// day's journal (optionally fanned out to a broker and a catalog sink),
// and emits a manifest once every worker finishes.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"qrsdp/internal/attrs"
	"qrsdp/internal/calib"
	"qrsdp/internal/catalog"
	"qrsdp/internal/intensity"
	"qrsdp/internal/journal"
	"qrsdp/internal/producer"
	"qrsdp/internal/security"
	"qrsdp/internal/sink"
)

// SecuritySpec is one security's run configuration: enough to build its
// per-day TradingSession.
type SecuritySpec struct {
	Symbol         string
	InitialP0Ticks int32
	TickSize       uint32
	LevelsPerSide  int
	InitialSpread  int32
	InitialDepth   uint32
	ModelKind      security.ModelKind
	Simple         intensity.SimpleParams
	HLR            intensity.HLRParams
	ThetaReinit    float64
	Stress         bool
	StressConfig   security.StressConfig
}

// Config configures a full run.
type Config struct {
	BaseSeed       int64
	Stride         int // must be >= security.MinStride
	SessionSeconds uint32
	Days           int // 0 = infinite, bounded by ctx cancellation
	StartDate      time.Time
	OutputDir      string
	ChunkCapacity  uint32
	Securities     []SecuritySpec
	AttrParams     attrs.Params

	// MarketOpenNs is the session-open offset added to every emitted
	// ts_ns, typically nanoseconds since midnight of the session open.
	MarketOpenNs uint64

	// Realtime paces each worker to wall-clock time at Speed x.
	Realtime bool
	Speed    float64

	// MeasureReadback re-reads each finished journal sequentially and
	// records the elapsed read time in the day's result.
	MeasureReadback bool

	BrokerBrokers []string // empty disables the broker sink
	BrokerTopic   string

	CatalogStore *catalog.Store // nil disables the catalog sink
	// CatalogKeepDays and CatalogArchiver drive the end-of-run retention
	// pass: session-days older than CatalogKeepDays are archived (when an
	// Archiver is configured) and pruned from the catalog.
	CatalogKeepDays int
	CatalogArchiver *catalog.Archiver
	RunID           string
}

// DayResult records one security-day's outcome.
type DayResult struct {
	Symbol        string  `json:"symbol"`
	Date          string  `json:"date"`
	Filename      string  `json:"file"`
	Seed          uint64  `json:"seed"`
	OpenTicks     int32   `json:"open_ticks"`
	CloseTicks    int32   `json:"close_ticks"`
	EventsWritten uint64  `json:"events_written"`
	FileSizeBytes int64   `json:"file_size_bytes"`
	WriteSeconds  float64 `json:"write_seconds"`
	ReadSeconds   float64 `json:"read_seconds,omitempty"`
}

// SecurityManifest nests a security's day results under securities[] for
// multi-security runs.
type SecurityManifest struct {
	Symbol   string      `json:"symbol"`
	Sessions []DayResult `json:"sessions"`
}

// Manifest is the run's final manifest.json. For a single configured
// security, Sessions is populated flat; for multiple securities,
// Securities is populated instead.
type Manifest struct {
	FormatVersion  string             `json:"format_version"`
	RunID          string             `json:"run_id"`
	Producer       string             `json:"producer"`
	BaseSeed       int64              `json:"base_seed"`
	SeedStrategy   string             `json:"seed_strategy"`
	SessionSeconds uint32             `json:"session_seconds"`
	Sessions       []DayResult        `json:"sessions,omitempty"`
	Securities     []SecurityManifest `json:"securities,omitempty"`
}

// Runner owns one run's worker goroutines and cooperative shutdown flag.
type Runner struct {
	cfg       Config
	cancelled int32
}

// New constructs a Runner for cfg.
func New(cfg Config) *Runner {
	if cfg.Stride < security.MinStride {
		cfg.Stride = security.MinStride
	}
	return &Runner{cfg: cfg}
}

// RequestShutdown sets the cooperative cancellation flag, checked by
// workers between events and between days.
func (r *Runner) RequestShutdown() {
	atomic.StoreInt32(&r.cancelled, 1)
}

func (r *Runner) isCancelled() bool {
	return atomic.LoadInt32(&r.cancelled) == 1
}

// Run spawns one worker per configured security, waits for all to finish
// (or for ctx to be cancelled), and writes manifest.json.
func (r *Runner) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.RequestShutdown()
	}()

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("runner: create output dir: %w", err)
	}

	results := make([][]DayResult, len(r.cfg.Securities))
	errs := make([]error, len(r.cfg.Securities))

	var wg sync.WaitGroup
	for i, spec := range r.cfg.Securities {
		wg.Add(1)
		go func(i int, spec SecuritySpec) {
			defer wg.Done()
			days, err := r.runSecurity(i, spec)
			results[i] = days
			errs[i] = err
		}(i, spec)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("runner: security %s: %w", r.cfg.Securities[i].Symbol, err)
		}
	}

	if err := r.writeManifest(results); err != nil {
		return err
	}
	if r.cfg.MeasureReadback {
		if err := r.writePerfResults(results); err != nil {
			return err
		}
	}
	r.pruneCatalog()
	return nil
}

// pruneCatalog runs the end-of-run retention pass over the catalog.
// Retention is housekeeping, never a run failure: errors are logged.
func (r *Runner) pruneCatalog() {
	if r.cfg.CatalogStore == nil || r.cfg.CatalogKeepDays <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	pruned, err := r.cfg.CatalogStore.PruneExpired(ctx, r.cfg.CatalogKeepDays, r.cfg.CatalogArchiver)
	if err != nil {
		log.Printf("runner: catalog retention: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("runner: catalog retention pruned %d expired session-days", pruned)
	}
}

// perfEntry is one row of the optional performance-results document.
type perfEntry struct {
	Symbol         string  `json:"symbol"`
	Date           string  `json:"date"`
	Events         uint64  `json:"events"`
	FileSizeBytes  int64   `json:"file_size_bytes"`
	WriteSeconds   float64 `json:"write_seconds"`
	ReadSeconds    float64 `json:"read_seconds"`
	WriteEventsSec float64 `json:"write_events_per_sec"`
	ReadEventsSec  float64 `json:"read_events_per_sec"`
}

func (r *Runner) writePerfResults(results [][]DayResult) error {
	var entries []perfEntry
	for _, days := range results {
		for _, d := range days {
			e := perfEntry{
				Symbol:        d.Symbol,
				Date:          d.Date,
				Events:        d.EventsWritten,
				FileSizeBytes: d.FileSizeBytes,
				WriteSeconds:  d.WriteSeconds,
				ReadSeconds:   d.ReadSeconds,
			}
			if d.WriteSeconds > 0 {
				e.WriteEventsSec = float64(d.EventsWritten) / d.WriteSeconds
			}
			if d.ReadSeconds > 0 {
				e.ReadEventsSec = float64(d.EventsWritten) / d.ReadSeconds
			}
			entries = append(entries, e)
		}
	}
	buf, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("runner: marshal perf results: %w", err)
	}
	path := filepath.Join(r.cfg.OutputDir, "perf_results.json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("runner: write perf results: %w", err)
	}
	return nil
}

// runSecurity runs one security's worker: the day loop, sequentially,
// chaining close_ticks into the next day's opening price.
func (r *Runner) runSecurity(index int, spec SecuritySpec) ([]DayResult, error) {
	days := security.BusinessDays(r.cfg.StartDate, r.effectiveDayCount())
	results := make([]DayResult, 0, len(days))

	p0 := spec.InitialP0Ticks
	for j, date := range days {
		if r.isCancelled() {
			break
		}

		seed := security.DeriveSeed(uint64(r.cfg.BaseSeed), index, j, r.cfg.Stride)
		session := security.TradingSession{
			Symbol:             spec.Symbol,
			Seed:               seed,
			P0Ticks:            p0,
			SessionSeconds:     r.cfg.SessionSeconds,
			LevelsPerSide:      spec.LevelsPerSide,
			TickSize:           spec.TickSize,
			InitialSpreadTicks: spec.InitialSpread,
			InitialDepth:       spec.InitialDepth,
			ModelKind:          spec.ModelKind,
			Simple:             spec.Simple,
			HLR:                spec.HLR,
			ThetaReinit:        spec.ThetaReinit,
			MarketOpenNs:       r.cfg.MarketOpenNs,
			Stress:             spec.Stress,
			StressConfig:       spec.StressConfig,
		}

		result, err := r.runDay(index, j, date, session)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		p0 = result.CloseTicks
	}
	return results, nil
}

// effectiveDayCount resolves Days==0 ("infinite") to a large bound; the
// cooperative cancellation flag, not this count, is what actually ends an
// unbounded run.
func (r *Runner) effectiveDayCount() int {
	if r.cfg.Days > 0 {
		return r.cfg.Days
	}
	return 1 << 20
}

func (r *Runner) runDay(index, dayIndex int, date time.Time, session security.TradingSession) (DayResult, error) {
	dateStr := date.Format("2006-01-02")
	path := r.journalPath(session.Symbol, dateStr)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return DayResult{}, fmt.Errorf("runner: mkdir: %w", err)
	}

	js, err := sink.NewJournalSink(path, journal.WriterConfig{
		Seed:               session.Seed,
		P0Ticks:            session.P0Ticks,
		TickSize:           session.TickSize,
		SessionSeconds:     session.SessionSeconds,
		LevelsPerSide:      uint32(session.LevelsPerSide),
		InitialSpreadTicks: uint32(session.InitialSpreadTicks),
		InitialDepth:       session.InitialDepth,
		ChunkCapacity:      r.cfg.ChunkCapacity,
	})
	if err != nil {
		return DayResult{}, fmt.Errorf("runner: open journal: %w", err)
	}

	var secondarySinks []sink.Sink
	if len(r.cfg.BrokerBrokers) > 0 {
		bs, err := sink.NewBrokerSink(sink.DefaultBrokerConfig(r.cfg.BrokerBrokers, r.cfg.BrokerTopic, session.Symbol))
		if err != nil {
			log.Printf("runner: broker sink unavailable for %s, continuing without it: %v", session.Symbol, err)
		} else {
			secondarySinks = append(secondarySinks, bs)
		}
	}
	if r.cfg.CatalogStore != nil {
		secondarySinks = append(secondarySinks, r.cfg.CatalogStore.DaySink(session.Symbol, date))
	}

	var s producer.Sink
	var closer interface{ Close() error }
	if len(secondarySinks) > 0 {
		mux := sink.NewMultiplex(js, secondarySinks...)
		s, closer = mux, mux
	} else {
		s, closer = js, js
	}

	p := producer.New(session, r.cfg.AttrParams)
	start := time.Now()
	var result producer.SessionResult
	var runErr error
	if r.cfg.Realtime {
		result, runErr = p.RunSessionRealtime(s, r.cfg.Speed, r.isCancelled)
	} else {
		result, runErr = p.RunSessionWithCancel(s, r.isCancelled)
	}
	writeSeconds := time.Since(start).Seconds()

	if err := closer.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("runner: close sinks: %w", err)
	}
	if runErr != nil {
		return DayResult{}, runErr
	}

	info, statErr := os.Stat(path)
	var size int64
	if statErr == nil {
		size = info.Size()
	}

	var readSeconds float64
	if r.cfg.MeasureReadback {
		readSeconds, err = readBack(path)
		if err != nil {
			log.Printf("runner: read-back of %s failed: %v", path, err)
		}
	}

	if r.cfg.CatalogStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		doc := catalog.DayDoc{
			Symbol:        session.Symbol,
			Date:          dateStr,
			Seed:          session.Seed,
			OpenTicks:     session.P0Ticks,
			CloseTicks:    result.CloseTicks,
			EventsWritten: result.EventsWritten,
			FileSizeBytes: size,
		}
		if err := r.cfg.CatalogStore.RecordDay(ctx, doc); err != nil {
			log.Printf("runner: catalog day record failed for %s %s: %v", session.Symbol, dateStr, err)
		}
	}

	return DayResult{
		Symbol:        session.Symbol,
		Date:          dateStr,
		Filename:      path,
		Seed:          session.Seed,
		OpenTicks:     session.P0Ticks,
		CloseTicks:    result.CloseTicks,
		EventsWritten: result.EventsWritten,
		FileSizeBytes: size,
		WriteSeconds:  writeSeconds,
		ReadSeconds:   readSeconds,
	}, nil
}

// readBack sequentially re-reads a finished journal, timing the scan for
// the day's throughput measurement.
func readBack(path string) (float64, error) {
	start := time.Now()
	jr, err := journal.Open(path)
	if err != nil {
		return 0, err
	}
	defer jr.Close()
	if _, err := jr.ReadAll(); err != nil {
		return 0, err
	}
	return time.Since(start).Seconds(), nil
}

// journalPath places single-security runs flat under OutputDir and
// multi-security runs under a per-symbol subdirectory.
func (r *Runner) journalPath(symbol, dateStr string) string {
	if len(r.cfg.Securities) == 1 {
		return filepath.Join(r.cfg.OutputDir, dateStr+".qrsdp")
	}
	return filepath.Join(r.cfg.OutputDir, symbol, dateStr+".qrsdp")
}

func (r *Runner) writeManifest(results [][]DayResult) error {
	m := Manifest{
		RunID:          r.cfg.RunID,
		Producer:       "qrsdp",
		BaseSeed:       r.cfg.BaseSeed,
		SeedStrategy:   "sequential",
		SessionSeconds: r.cfg.SessionSeconds,
	}

	if len(r.cfg.Securities) == 1 {
		m.FormatVersion = "1.0"
		m.Sessions = results[0]
	} else {
		m.FormatVersion = "1.1"
		m.Securities = make([]SecurityManifest, len(r.cfg.Securities))
		for i, spec := range r.cfg.Securities {
			m.Securities[i] = SecurityManifest{Symbol: spec.Symbol, Sessions: results[i]}
		}
	}

	buf, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("runner: marshal manifest: %w", err)
	}
	path := filepath.Join(r.cfg.OutputDir, "manifest.json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("runner: write manifest: %w", err)
	}
	return nil
}

// BuildSecuritySpec derives a SecuritySpec from a calib.Security using its
// default calibrated Simple-model parameters.
func BuildSecuritySpec(s calib.Security, levelsPerSide int, initialDepth uint32, initialSpread int32, thetaReinit float64) SecuritySpec {
	return SecuritySpec{
		Symbol:         s.Ticker,
		InitialP0Ticks: s.PriceTicks(),
		TickSize:       s.TickSizeTicks(),
		LevelsPerSide:  levelsPerSide,
		InitialSpread:  initialSpread,
		InitialDepth:   initialDepth,
		ModelKind:      security.ModelSimple,
		Simple:         s.DefaultSimpleParams(),
		ThetaReinit:    thetaReinit,
		Stress:         s.IsStress,
		StressConfig:   calib.DefaultStressConfig(),
	}
}
