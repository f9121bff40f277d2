package scorers

import (
	"github.com/aristath/research-trader/internal/modules/research"
)

// ValuationScorer scores cheapness on inverted multiples
type ValuationScorer struct{}

// NewValuationScorer creates a new valuation scorer
func NewValuationScorer() *ValuationScorer {
	return &ValuationScorer{}
}

// Lower multiples score higher, linearly interpolated between cheap and
// expensive thresholds. Non-positive multiples are not meaningful and are
// treated as absent.
const (
	peCheap       = 10.0
	peExpensive   = 40.0
	psCheap       = 1.0
	psExpensive   = 10.0
	evebCheap     = 8.0
	evebExpensive = 25.0
)

// Calculate scores valuation as the unweighted mean of inverted P/E, P/S
// and EV/EBITDA sub-scores.
func (s *ValuationScorer) Calculate(f *research.Fundamentals) Score {
	if f == nil {
		return NeutralScore()
	}

	var pe, ps, eveb *float64

	if usable(f.PERatio) && *f.PERatio > 0 {
		pe = sub(scoreInverted(*f.PERatio, peCheap, peExpensive))
	}
	if usable(f.PSRatio) && *f.PSRatio > 0 {
		ps = sub(scoreInverted(*f.PSRatio, psCheap, psExpensive))
	}
	if usable(f.EVToEBITDA) && *f.EVToEBITDA > 0 {
		eveb = sub(scoreInverted(*f.EVToEBITDA, evebCheap, evebExpensive))
	}

	score := blend(pe, ps, eveb)

	components := map[string]float64{}
	if pe != nil {
		components["pe"] = round3(*pe)
	}
	if ps != nil {
		components["ps"] = round3(*ps)
	}
	if eveb != nil {
		components["ev_ebitda"] = round3(*eveb)
	}

	return Score{Score: round3(score), Components: components}
}
