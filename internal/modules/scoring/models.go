// Package scoring combines the factor scorers into ranked research
// candidates with confidence, checklist and explanatory metadata.
package scoring

import (
	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/scoring/scorers"
)

// FactorScores is the closed set of per-factor scores for one symbol.
// The six base factors are weighted by the regime-adjusted vector; peer
// carries its fixed separate contribution.
type FactorScores struct {
	Fundamentals float64 `json:"fundamentals"`
	Technicals   float64 `json:"technicals"`
	Macro        float64 `json:"macro"`
	Sentiment    float64 `json:"sentiment"`
	Quality      float64 `json:"quality"`
	Valuation    float64 `json:"valuation"`
	Peer         float64 `json:"peer"`
}

// Base returns the score of the given base factor
func (fs FactorScores) Base(f regime.Factor) float64 {
	switch f {
	case regime.FactorFundamentals:
		return fs.Fundamentals
	case regime.FactorTechnicals:
		return fs.Technicals
	case regime.FactorMacro:
		return fs.Macro
	case regime.FactorSentiment:
		return fs.Sentiment
	case regime.FactorQuality:
		return fs.Quality
	case regime.FactorValuation:
		return fs.Valuation
	}
	return 0
}

// CheckStatus is the outcome of one checklist item
type CheckStatus string

const (
	CheckPass    CheckStatus = "pass"
	CheckNeutral CheckStatus = "neutral"
	CheckFail    CheckStatus = "fail"
)

// CheckItem is one qualitative checklist entry
type CheckItem struct {
	Status CheckStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// Checklist holds the five qualitative pass/neutral/fail flags derived for
// display and audit. It does not feed the composite score.
type Checklist struct {
	Growth        CheckItem `json:"growth"`
	Profitability CheckItem `json:"profitability"`
	Leverage      CheckItem `json:"leverage"`
	Moat          CheckItem `json:"moat"`
	Cheapness     CheckItem `json:"cheapness"`
}

// Candidate is one ranked research candidate. Immutable after creation;
// it lives only inside the cycle's analysis record.
type Candidate struct {
	Symbol      string                   `json:"symbol"`
	Sector      string                   `json:"sector,omitempty"`
	Industry    string                   `json:"industry,omitempty"`
	Score       float64                  `json:"score"`
	Confidence  float64                  `json:"confidence"`
	Factors     FactorScores             `json:"factors"`
	Breakdown   map[string]scorers.Score `json:"breakdown,omitempty"`
	Checklist   Checklist                `json:"checklist"`
	RedFlags    []string                 `json:"red_flags,omitempty"`
	Drivers     []string                 `json:"drivers,omitempty"`
	Risks       []string                 `json:"risks,omitempty"`
	NextSteps   []string                 `json:"next_steps,omitempty"`
	Sources     []string                 `json:"sources,omitempty"`
	DataQuality float64                  `json:"data_quality"`
	Regime      regime.Regime            `json:"regime"`
}
