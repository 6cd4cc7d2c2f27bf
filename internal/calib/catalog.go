// Package calib is the calibration estimator scaffold: a fixed catalog of
// synthetic securities grouped by sector with per-sector volatility
// multipliers, used to seed starting intensity parameters instead of
// requiring an operator to hand-write every one. It does not run its own
// pricing model; the book/intensity loop in internal/producer remains the
// sole price-formation mechanism.
package calib

import "qrsdp/internal/intensity"

// Sector groups securities with a shared volatility profile.
type Sector string

const (
	SectorTech       Sector = "Tech"
	SectorFinance    Sector = "Finance"
	SectorHealthcare Sector = "Healthcare"
	SectorEnergy     Sector = "Energy"
	SectorConsumer   Sector = "Consumer"
	SectorIndustrial Sector = "Industrial"
	SectorStress     Sector = "Stress"
	SectorETF        Sector = "ETF"
)

// Security describes one catalog entry: enough to derive both a starting
// price in ticks and a volatility-scaled set of intensity parameters.
type Security struct {
	Ticker               string
	Name                 string
	Sector               Sector
	BasePrice            float64
	TickSize             float64
	VolatilityMultiplier float64
	IsStress             bool
}

// Catalog returns the fixed set of synthetic securities used to seed
// calibration, grouped by sector with distinct volatility profiles.
func Catalog() []Security {
	return []Security{
		{"NEXO", "Nexo Dynamics Inc", SectorTech, 185.00, 0.01, 1.4, false},
		{"QBIT", "Qbit Quantum Corp", SectorTech, 92.50, 0.01, 1.6, false},
		{"FLUX", "Flux Systems Ltd", SectorTech, 310.00, 0.01, 1.3, false},
		{"SYNK", "Synk Networks Inc", SectorTech, 67.25, 0.01, 1.5, false},

		{"LEDG", "Ledger Capital Group", SectorFinance, 78.50, 0.01, 0.8, false},
		{"VALT", "Vault Securities Inc", SectorFinance, 125.00, 0.01, 0.7, false},
		{"CRDT", "Credt Financial Corp", SectorFinance, 52.00, 0.01, 0.9, false},

		{"HELX", "Helix Biomedical Inc", SectorHealthcare, 195.00, 0.01, 0.5, false},
		{"CURA", "Cura Therapeutics", SectorHealthcare, 72.00, 0.01, 0.6, false},

		{"VOLT", "Volt Energy Corp", SectorEnergy, 98.00, 0.01, 1.1, false},
		{"SOLR", "Solaris Power Inc", SectorEnergy, 42.50, 0.01, 1.0, false},

		{"BRND", "Brand Global Inc", SectorConsumer, 112.00, 0.01, 0.8, false},
		{"LUXE", "Luxe Retail Corp", SectorConsumer, 285.00, 0.01, 0.7, false},

		{"FORG", "Forge Manufacturing", SectorIndustrial, 132.00, 0.01, 1.0, false},
		{"BLDR", "Builder Heavy Ind", SectorIndustrial, 88.00, 0.01, 1.1, false},

		{"BLITZ", "Blitz Trading Corp", SectorStress, 125.00, 0.01, 2.0, true},

		{"MKTS", "Markets Broad ETF", SectorETF, 350.00, 0.01, 0.4, false},
		{"GRWT", "Growth Select ETF", SectorETF, 180.00, 0.01, 0.5, false},
	}
}

// ByTicker indexes Catalog() by ticker.
func ByTicker() map[string]Security {
	cat := Catalog()
	m := make(map[string]Security, len(cat))
	for _, s := range cat {
		m[s.Ticker] = s
	}
	return m
}

// PriceTicks converts a security's decimal base price into integer ticks.
func (s Security) PriceTicks() int32 {
	return int32(s.BasePrice/s.TickSize + 0.5)
}

// TickSizeTicks converts the security's tick size into the journal's
// integer tick_size field (the tick size in units of 1/10000 of the
// decimal price, e.g. 0.01 -> 100, so downstream wire price scaling stays
// an integer multiplier).
func (s Security) TickSizeTicks() uint32 {
	return uint32(s.TickSize*10000 + 0.5)
}

// DefaultSimpleParams derives a SimpleParams set from the security's
// volatility multiplier: higher volatility scales up the add, cancel and
// execute base rates; the imbalance and cancel sensitivities stay fixed.
// Price formation stays with the book's
// shift-on-depletion mechanics; no separate pricing model runs.
func (s Security) DefaultSimpleParams() intensity.SimpleParams {
	v := s.VolatilityMultiplier
	return intensity.SimpleParams{
		L:             20 * v,
		C:             0.1 * v,
		M:             5 * v,
		EpsExec:       0.2,
		SI:            1,
		SC:            1,
		SpreadSens:    0.05,
		NeutralSpread: 2,
	}
}
