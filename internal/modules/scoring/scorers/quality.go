package scorers

import (
	"github.com/aristath/research-trader/internal/modules/research"
)

// QualityScorer scores capital efficiency and cash generation
type QualityScorer struct{}

// NewQualityScorer creates a new quality scorer
func NewQualityScorer() *QualityScorer {
	return &QualityScorer{}
}

const (
	roicMidpoint     = 0.08
	roicCeiling      = 0.20
	roeMidpoint      = 0.10
	roeCeiling       = 0.25
	fcfYieldMidpoint = 0.02
	fcfYieldCeiling  = 0.08
)

// Calculate scores quality as the unweighted mean of ROIC, ROE and
// free-cash-flow yield sub-scores, each positive-is-better.
func (s *QualityScorer) Calculate(f *research.Fundamentals) Score {
	if f == nil {
		return NeutralScore()
	}

	var roic, roe, fcf *float64

	if usable(f.ROIC) {
		roic = sub(scoreAbove(*f.ROIC, roicMidpoint, roicCeiling))
	}
	if usable(f.ROE) {
		roe = sub(scoreAbove(*f.ROE, roeMidpoint, roeCeiling))
	}
	if usable(f.FCFYield) {
		fcf = sub(scoreAbove(*f.FCFYield, fcfYieldMidpoint, fcfYieldCeiling))
	}

	score := blend(roic, roe, fcf)

	components := map[string]float64{}
	if roic != nil {
		components["roic"] = round3(*roic)
	}
	if roe != nil {
		components["roe"] = round3(*roe)
	}
	if fcf != nil {
		components["fcf_yield"] = round3(*fcf)
	}

	return Score{Score: round3(score), Components: components}
}
