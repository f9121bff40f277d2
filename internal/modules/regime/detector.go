// Package regime classifies macro-market conditions and derives the factor
// weight vector used by the candidate ranker.
package regime

import (
	"github.com/aristath/research-trader/internal/modules/research"
)

// Regime is a coarse macro-market classification
type Regime string

const (
	RegimeRiskOn  Regime = "risk_on"
	RegimeRiskOff Regime = "risk_off"
	RegimeHighVol Regime = "high_vol"
	RegimeNeutral Regime = "neutral"
)

// Classification thresholds. Evaluated in fixed priority order: volatility
// first, then risk-on, then risk-off.
const (
	highVolThreshold = 25.0
	riskOnThreshold  = 0.6
	riskOffThreshold = 0.4
)

// Detect classifies the current regime from macro signals. It is a total
// function: missing fields default the risk-on score to 0.5 and the trend
// to flat, which lands in the neutral regime.
func Detect(macro research.MacroData) Regime {
	if macro.VolatilityIndex != nil && *macro.VolatilityIndex >= highVolThreshold {
		return RegimeHighVol
	}

	riskOn := 0.5
	if macro.RiskOnScore != nil {
		riskOn = *macro.RiskOnScore
	}

	trend := macro.TrendDirection
	if trend == "" {
		trend = research.TrendFlat
	}

	if riskOn >= riskOnThreshold && trend == research.TrendUp {
		return RegimeRiskOn
	}
	if riskOn <= riskOffThreshold && trend == research.TrendDown {
		return RegimeRiskOff
	}

	return RegimeNeutral
}

// IsValid reports whether the regime is one of the known classifications
func (r Regime) IsValid() bool {
	switch r {
	case RegimeRiskOn, RegimeRiskOff, RegimeHighVol, RegimeNeutral:
		return true
	}
	return false
}
