package scorers

import (
	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/research"
)

// MacroScorer scores the macro backdrop shared by all symbols in a cycle
type MacroScorer struct{}

// NewMacroScorer creates a new macro scorer
func NewMacroScorer() *MacroScorer {
	return &MacroScorer{}
}

// volPenaltyCeiling is the volatility index level at which the inverted
// volatility sub-score reaches zero.
const volPenaltyCeiling = 50.0

// Regime scaling applied after the blend: discounted in high_vol, nudged
// up or down in the directional regimes.
const (
	highVolScale = 0.80
	riskOnScale  = 1.10
	riskOffScale = 0.90
)

// Calculate blends the risk-on score, a trend score, and an inverted
// volatility penalty, then scales the result for the detected regime.
func (s *MacroScorer) Calculate(macro research.MacroData, r regime.Regime) Score {
	var riskOn, trend, vol *float64

	if usable(macro.RiskOnScore) {
		riskOn = sub(clamp01(*macro.RiskOnScore))
	}
	if macro.TrendDirection != "" {
		trend = sub(trendScore(macro.TrendDirection))
	}
	if usable(macro.VolatilityIndex) && *macro.VolatilityIndex >= 0 {
		vol = sub(clamp01(1 - *macro.VolatilityIndex/volPenaltyCeiling))
	}

	score := blend(riskOn, trend, vol)

	switch r {
	case regime.RegimeHighVol:
		score *= highVolScale
	case regime.RegimeRiskOn:
		score *= riskOnScale
	case regime.RegimeRiskOff:
		score *= riskOffScale
	}
	score = clamp01(score)

	components := map[string]float64{}
	if riskOn != nil {
		components["risk_on"] = round3(*riskOn)
	}
	if trend != nil {
		components["trend"] = round3(*trend)
	}
	if vol != nil {
		components["volatility"] = round3(*vol)
	}

	return Score{Score: round3(score), Components: components}
}

// trendScore maps the trend direction onto [0,1]
func trendScore(t research.TrendDirection) float64 {
	switch t {
	case research.TrendUp:
		return 1.0
	case research.TrendDown:
		return 0.0
	default:
		return Neutral
	}
}
