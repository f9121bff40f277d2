package scorers

import (
	"math"

	"github.com/aristath/research-trader/internal/modules/research"
)

// TechnicalsScorer scores price action: mean-reversion neutrality,
// multi-horizon momentum, and trend position.
type TechnicalsScorer struct{}

// NewTechnicalsScorer creates a new technicals scorer
func NewTechnicalsScorer() *TechnicalsScorer {
	return &TechnicalsScorer{}
}

const (
	momentum1MCeiling = 0.10
	momentum3MCeiling = 0.20
	momentum6MCeiling = 0.30
	trendCeiling      = 0.15
)

// Calculate scores technicals as the unweighted mean of three sub-scores:
// RSI closeness to 50, momentum over 1/3/6 months, and price position
// relative to the 200-day moving average.
func (s *TechnicalsScorer) Calculate(t *research.Technicals) Score {
	if t == nil {
		return NeutralScore()
	}

	var rsi, momentum, trend *float64

	if usable(t.RSI14) {
		rsi = sub(clamp01(1 - math.Abs(*t.RSI14-50)/50))
	}
	if m := blendMomentum(t); m != nil {
		momentum = m
	}
	if usable(t.Price) && usable(t.MA200) && *t.MA200 > 0 {
		position := (*t.Price - *t.MA200) / *t.MA200
		trend = sub(scoreAbove(position, 0, trendCeiling))
	}

	score := blend(rsi, momentum, trend)

	components := map[string]float64{}
	if rsi != nil {
		components["rsi"] = round3(*rsi)
	}
	if momentum != nil {
		components["momentum"] = round3(*momentum)
	}
	if trend != nil {
		components["trend"] = round3(*trend)
	}

	return Score{Score: round3(score), Components: components}
}

// blendMomentum averages the present momentum horizons, or nil if none
func blendMomentum(t *research.Technicals) *float64 {
	var subs []*float64
	if usable(t.Momentum1M) {
		subs = append(subs, sub(scoreAbove(*t.Momentum1M, 0, momentum1MCeiling)))
	}
	if usable(t.Momentum3M) {
		subs = append(subs, sub(scoreAbove(*t.Momentum3M, 0, momentum3MCeiling)))
	}
	if usable(t.Momentum6M) {
		subs = append(subs, sub(scoreAbove(*t.Momentum6M, 0, momentum6MCeiling)))
	}
	if len(subs) == 0 {
		return nil
	}
	return sub(blend(subs...))
}
