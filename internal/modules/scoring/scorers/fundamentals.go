package scorers

import (
	"github.com/aristath/research-trader/internal/modules/research"
)

// FundamentalsScorer scores growth, profitability and leverage
type FundamentalsScorer struct{}

// NewFundamentalsScorer creates a new fundamentals scorer
func NewFundamentalsScorer() *FundamentalsScorer {
	return &FundamentalsScorer{}
}

// Scoring thresholds. Growth metrics saturate at the ceiling; leverage is
// inverted between a good and a bad debt-to-equity level.
const (
	growthMidpoint = 0.05
	growthCeiling  = 0.30
	marginMidpoint = 0.05
	marginCeiling  = 0.25
	leverageGood   = 0.5
	leverageBad    = 2.0
)

// Calculate scores fundamentals as the unweighted mean of three sub-scores:
// growth (revenue/EPS growth), profitability (operating/net margin), and
// inverted leverage (debt-to-equity, lower is better).
func (s *FundamentalsScorer) Calculate(f *research.Fundamentals) Score {
	if f == nil {
		return NeutralScore()
	}

	var growth, profitability, leverage *float64

	if g := blendGrowth(f.RevenueGrowth, f.EPSGrowth); g != nil {
		growth = g
	}
	if p := blendMargins(f.OperatingMargin, f.NetMargin); p != nil {
		profitability = p
	}
	if usable(f.DebtToEquity) {
		leverage = sub(scoreInverted(*f.DebtToEquity, leverageGood, leverageBad))
	}

	score := blend(growth, profitability, leverage)

	components := map[string]float64{}
	if growth != nil {
		components["growth"] = round3(*growth)
	}
	if profitability != nil {
		components["profitability"] = round3(*profitability)
	}
	if leverage != nil {
		components["leverage"] = round3(*leverage)
	}

	return Score{Score: round3(score), Components: components}
}

// blendGrowth averages the present growth metrics, or nil if none
func blendGrowth(revenueGrowth, epsGrowth *float64) *float64 {
	var subs []*float64
	if usable(revenueGrowth) {
		subs = append(subs, sub(scoreAbove(*revenueGrowth, growthMidpoint, growthCeiling)))
	}
	if usable(epsGrowth) {
		subs = append(subs, sub(scoreAbove(*epsGrowth, growthMidpoint, growthCeiling)))
	}
	if len(subs) == 0 {
		return nil
	}
	return sub(blend(subs...))
}

// blendMargins averages the present margin metrics, or nil if none
func blendMargins(operatingMargin, netMargin *float64) *float64 {
	var subs []*float64
	if usable(operatingMargin) {
		subs = append(subs, sub(scoreAbove(*operatingMargin, marginMidpoint, marginCeiling)))
	}
	if usable(netMargin) {
		subs = append(subs, sub(scoreAbove(*netMargin, marginMidpoint, marginCeiling)))
	}
	if len(subs) == 0 {
		return nil
	}
	return sub(blend(subs...))
}
