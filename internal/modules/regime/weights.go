package regime

import "math"

// Factor identifies one of the six base scoring factors. The peer factor
// sits outside this set: it carries a fixed contribution and is not part of
// the renormalized weight vector.
type Factor string

const (
	FactorFundamentals Factor = "fundamentals"
	FactorTechnicals   Factor = "technicals"
	FactorMacro        Factor = "macro"
	FactorSentiment    Factor = "sentiment"
	FactorQuality      Factor = "quality"
	FactorValuation    Factor = "valuation"
)

// BaseFactors lists the six factors of the weight vector in canonical order
var BaseFactors = []Factor{
	FactorFundamentals,
	FactorTechnicals,
	FactorMacro,
	FactorSentiment,
	FactorQuality,
	FactorValuation,
}

// PeerWeight is the fixed composite contribution of the peer-relative
// factor, applied outside the renormalized base vector.
const PeerWeight = 0.05

// WeightSumTolerance is the accepted deviation of a weight vector sum from 1
const WeightSumTolerance = 1e-9

// Weights is the factor weight vector. It is a value type: the pipeline
// passes it by value and never mutates it through a shared reference.
type Weights struct {
	Fundamentals float64 `json:"fundamentals"`
	Technicals   float64 `json:"technicals"`
	Macro        float64 `json:"macro"`
	Sentiment    float64 `json:"sentiment"`
	Quality      float64 `json:"quality"`
	Valuation    float64 `json:"valuation"`
}

// DefaultWeights returns the starting base weight vector
func DefaultWeights() Weights {
	return Weights{
		Fundamentals: 0.25,
		Technicals:   0.20,
		Macro:        0.10,
		Sentiment:    0.15,
		Quality:      0.15,
		Valuation:    0.15,
	}
}

// Factor returns the weight of the given base factor
func (w Weights) Factor(f Factor) float64 {
	switch f {
	case FactorFundamentals:
		return w.Fundamentals
	case FactorTechnicals:
		return w.Technicals
	case FactorMacro:
		return w.Macro
	case FactorSentiment:
		return w.Sentiment
	case FactorQuality:
		return w.Quality
	case FactorValuation:
		return w.Valuation
	}
	return 0
}

// WithFactor returns a copy of the vector with one weight replaced
func (w Weights) WithFactor(f Factor, value float64) Weights {
	switch f {
	case FactorFundamentals:
		w.Fundamentals = value
	case FactorTechnicals:
		w.Technicals = value
	case FactorMacro:
		w.Macro = value
	case FactorSentiment:
		w.Sentiment = value
	case FactorQuality:
		w.Quality = value
	case FactorValuation:
		w.Valuation = value
	}
	return w
}

// Sum returns the total of all six weights
func (w Weights) Sum() float64 {
	return w.Fundamentals + w.Technicals + w.Macro + w.Sentiment + w.Quality + w.Valuation
}

// Normalized returns the vector scaled to sum to 1. Negative weights are
// floored at zero first. A degenerate all-zero vector falls back to the
// default weights.
func (w Weights) Normalized() Weights {
	for _, f := range BaseFactors {
		if w.Factor(f) < 0 {
			w = w.WithFactor(f, 0)
		}
	}

	sum := w.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}

	for _, f := range BaseFactors {
		w = w.WithFactor(f, w.Factor(f)/sum)
	}
	return w
}

// IsNormalized reports whether the vector sums to 1 within tolerance
func (w Weights) IsNormalized() bool {
	return math.Abs(w.Sum()-1.0) <= WeightSumTolerance
}

// AdjustedFor nudges the base vector for the detected regime and
// renormalizes. The persisted base vector is never modified by this step;
// only the returned adjusted copy is used by the ranker.
func (w Weights) AdjustedFor(r Regime) Weights {
	switch r {
	case RegimeHighVol:
		w.Quality += 0.05
		w.Valuation += 0.05
		w.Technicals -= 0.05
		w.Sentiment -= 0.05
	case RegimeRiskOn:
		w.Technicals += 0.05
		w.Sentiment += 0.05
		w.Valuation -= 0.05
		w.Fundamentals -= 0.05
	case RegimeRiskOff:
		w.Fundamentals += 0.05
		w.Quality += 0.05
		w.Technicals -= 0.05
		w.Sentiment -= 0.05
	}
	return w.Normalized()
}
