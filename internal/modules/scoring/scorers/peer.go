package scorers

import (
	"math"

	"github.com/aristath/research-trader/internal/modules/research"
	"github.com/aristath/research-trader/pkg/formulas"
)

// PeerScorer scores a symbol relative to the median of its same-sector
// peers drawn from the current candidate universe.
type PeerScorer struct{}

// NewPeerScorer creates a new peer-relative scorer
func NewPeerScorer() *PeerScorer {
	return &PeerScorer{}
}

// peerDiffScale converts a median-relative difference into score distance:
// a metric one full median-magnitude above the peers saturates the score.
const peerDiffScale = 0.5

// PeerMedians holds the same-sector medians the comparison runs against.
// A nil field means fewer than the minimum peers reported that metric.
type PeerMedians struct {
	Sector        string
	PeerCount     int
	RevenueGrowth *float64
	NetMargin     *float64
	PERatio       *float64
	FCFYield      *float64
}

// MediansBySector computes per-sector peer medians over the universe.
// A symbol's own metrics are part of its sector median; with a single
// symbol in a sector every comparison degenerates to neutral.
func (s *PeerScorer) MediansBySector(data *research.Data, universe []string) map[string]PeerMedians {
	type sectorMetrics struct {
		revenueGrowth []float64
		netMargin     []float64
		peRatio       []float64
		fcfYield      []float64
		count         int
	}

	bySector := make(map[string]*sectorMetrics)
	for _, symbol := range universe {
		sector := data.Profile(symbol).Sector
		if sector == "" {
			continue
		}
		f := data.Fundamentals[symbol]
		if f == nil {
			continue
		}

		m := bySector[sector]
		if m == nil {
			m = &sectorMetrics{}
			bySector[sector] = m
		}
		m.count++
		if usable(f.RevenueGrowth) {
			m.revenueGrowth = append(m.revenueGrowth, *f.RevenueGrowth)
		}
		if usable(f.NetMargin) {
			m.netMargin = append(m.netMargin, *f.NetMargin)
		}
		if usable(f.PERatio) && *f.PERatio > 0 {
			m.peRatio = append(m.peRatio, *f.PERatio)
		}
		if usable(f.FCFYield) {
			m.fcfYield = append(m.fcfYield, *f.FCFYield)
		}
	}

	medians := make(map[string]PeerMedians, len(bySector))
	for sector, m := range bySector {
		medians[sector] = PeerMedians{
			Sector:        sector,
			PeerCount:     m.count,
			RevenueGrowth: medianOf(m.revenueGrowth),
			NetMargin:     medianOf(m.netMargin),
			PERatio:       medianOf(m.peRatio),
			FCFYield:      medianOf(m.fcfYield),
		}
	}
	return medians
}

// Calculate scores the symbol against its sector medians. Each present
// comparison maps the signed difference, scaled by the median's magnitude,
// onto [0,1]; absent comparisons are excluded from the average.
func (s *PeerScorer) Calculate(f *research.Fundamentals, medians *PeerMedians) Score {
	if f == nil || medians == nil || medians.PeerCount < 2 {
		return NeutralScore()
	}

	var growth, margin, pe, fcf *float64

	if usable(f.RevenueGrowth) && medians.RevenueGrowth != nil {
		growth = sub(relativeScore(*f.RevenueGrowth, *medians.RevenueGrowth, false))
	}
	if usable(f.NetMargin) && medians.NetMargin != nil {
		margin = sub(relativeScore(*f.NetMargin, *medians.NetMargin, false))
	}
	if usable(f.PERatio) && *f.PERatio > 0 && medians.PERatio != nil {
		pe = sub(relativeScore(*f.PERatio, *medians.PERatio, true))
	}
	if usable(f.FCFYield) && medians.FCFYield != nil {
		fcf = sub(relativeScore(*f.FCFYield, *medians.FCFYield, false))
	}

	score := blend(growth, margin, pe, fcf)

	components := map[string]float64{}
	if growth != nil {
		components["revenue_growth"] = round3(*growth)
	}
	if margin != nil {
		components["net_margin"] = round3(*margin)
	}
	if pe != nil {
		components["pe"] = round3(*pe)
	}
	if fcf != nil {
		components["fcf_yield"] = round3(*fcf)
	}

	return Score{Score: round3(score), Components: components}
}

// relativeScore maps a signed difference from the peer median, scaled by
// the median's magnitude, onto [0,1]. Inverted metrics (lower is better)
// flip the sign.
func relativeScore(value, median float64, inverted bool) float64 {
	scale := math.Abs(median)
	if scale < 1e-9 {
		return Neutral
	}

	diff := (value - median) / scale
	if inverted {
		diff = -diff
	}
	return clamp01(0.5 + peerDiffScale*diff)
}

// medianOf returns the median of the values, or nil for an empty slice
func medianOf(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	m := formulas.Median(values)
	return &m
}
