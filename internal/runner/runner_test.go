package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"qrsdp/internal/attrs"
	"qrsdp/internal/intensity"
	"qrsdp/internal/security"
)

func testSpec(symbol string) SecuritySpec {
	return SecuritySpec{
		Symbol:         symbol,
		InitialP0Ticks: 10000,
		TickSize:       100,
		LevelsPerSide:  5,
		InitialSpread:  2,
		InitialDepth:   50,
		ModelKind:      security.ModelSimple,
		Simple: intensity.SimpleParams{
			L: 20, C: 0.1, M: 5, EpsExec: 0.2, SI: 1, SC: 1, SpreadSens: 0, NeutralSpread: 2,
		},
		ThetaReinit: 0,
	}
}

func TestMultiDayChainingCarriesCloseIntoNextOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		BaseSeed:       100,
		Stride:         security.MinStride,
		SessionSeconds: 60,
		Days:           5,
		StartDate:      time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		OutputDir:      dir,
		ChunkCapacity:  4096,
		Securities:     []SecuritySpec{testSpec("TEST")},
		AttrParams:     attrs.Params{Alpha: 0.5},
	}

	r := New(cfg)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	buf, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(buf, &m); err != nil {
		t.Fatal(err)
	}

	if m.FormatVersion != "1.0" {
		t.Fatalf("expected format_version 1.0 for single security, got %q", m.FormatVersion)
	}
	if len(m.Sessions) != 5 {
		t.Fatalf("expected 5 sessions, got %d", len(m.Sessions))
	}

	wantDates := []string{"2026-01-02", "2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08"}
	for i, s := range m.Sessions {
		if s.Date != wantDates[i] {
			t.Fatalf("session %d: expected date %s, got %s", i, wantDates[i], s.Date)
		}
		if i > 0 && s.OpenTicks != m.Sessions[i-1].CloseTicks {
			t.Fatalf("session %d: open_ticks %d != previous close_ticks %d", i, s.OpenTicks, m.Sessions[i-1].CloseTicks)
		}
	}
}

func TestMultiSecurityManifestNestsUnderSecurities(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		BaseSeed:       7,
		Stride:         security.MinStride,
		SessionSeconds: 30,
		Days:           2,
		StartDate:      time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		OutputDir:      dir,
		ChunkCapacity:  4096,
		Securities:     []SecuritySpec{testSpec("AAA"), testSpec("BBB")},
		AttrParams:     attrs.Params{Alpha: 0.5},
	}

	r := New(cfg)
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	buf, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(buf, &m); err != nil {
		t.Fatal(err)
	}

	if m.FormatVersion != "1.1" {
		t.Fatalf("expected format_version 1.1 for multi security, got %q", m.FormatVersion)
	}
	if len(m.Securities) != 2 {
		t.Fatalf("expected 2 securities, got %d", len(m.Securities))
	}
	for _, sm := range m.Securities {
		if len(sm.Sessions) != 2 {
			t.Fatalf("security %s: expected 2 sessions, got %d", sm.Symbol, len(sm.Sessions))
		}
		if _, err := os.Stat(filepath.Join(dir, sm.Symbol, sm.Sessions[0].Date+".qrsdp")); err != nil {
			t.Fatalf("expected per-symbol journal file: %v", err)
		}
	}
}

func TestCooperativeShutdownStopsBeforeAllDays(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		BaseSeed:       9,
		Stride:         security.MinStride,
		SessionSeconds: 30,
		Days:           5,
		StartDate:      time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		OutputDir:      dir,
		ChunkCapacity:  4096,
		Securities:     []SecuritySpec{testSpec("TEST")},
		AttrParams:     attrs.Params{Alpha: 0.5},
	}

	r := New(cfg)
	r.RequestShutdown()
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	buf, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(buf, &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Sessions) >= 5 {
		t.Fatalf("expected shutdown to cut the run short, got %d sessions", len(m.Sessions))
	}
}
