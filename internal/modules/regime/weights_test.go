package regime

import (
	"math"
	"testing"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	if !w.IsNormalized() {
		t.Errorf("Default weights sum = %v, want 1.0", w.Sum())
	}
}

func TestAdjustedForSumsToOne(t *testing.T) {
	base := DefaultWeights()

	for _, regime := range []Regime{RegimeRiskOn, RegimeRiskOff, RegimeHighVol, RegimeNeutral} {
		t.Run(string(regime), func(t *testing.T) {
			adjusted := base.AdjustedFor(regime)
			if math.Abs(adjusted.Sum()-1.0) > WeightSumTolerance {
				t.Errorf("Adjusted weights for %s sum = %v, want 1.0", regime, adjusted.Sum())
			}
		})
	}
}

func TestAdjustedForDoesNotMutateBase(t *testing.T) {
	base := DefaultWeights()
	before := base

	_ = base.AdjustedFor(RegimeHighVol)

	if base != before {
		t.Error("AdjustedFor mutated the base vector")
	}
}

func TestAdjustedForHighVolShifts(t *testing.T) {
	base := DefaultWeights()
	adjusted := base.AdjustedFor(RegimeHighVol)

	if adjusted.Quality <= base.Quality {
		t.Errorf("high_vol should boost quality: base %v, adjusted %v", base.Quality, adjusted.Quality)
	}
	if adjusted.Technicals >= base.Technicals {
		t.Errorf("high_vol should discount technicals: base %v, adjusted %v", base.Technicals, adjusted.Technicals)
	}
}

func TestNormalizedFloorsNegativeWeights(t *testing.T) {
	w := Weights{
		Fundamentals: 0.5,
		Technicals:   -0.1,
		Macro:        0.2,
		Sentiment:    0.2,
		Quality:      0.1,
		Valuation:    0.1,
	}

	normalized := w.Normalized()

	if normalized.Technicals != 0 {
		t.Errorf("Negative weight should be floored at 0, got %v", normalized.Technicals)
	}
	if math.Abs(normalized.Sum()-1.0) > WeightSumTolerance {
		t.Errorf("Normalized sum = %v, want 1.0", normalized.Sum())
	}
}

func TestNormalizedDegenerate(t *testing.T) {
	var w Weights
	normalized := w.Normalized()

	if normalized != DefaultWeights() {
		t.Errorf("All-zero vector should normalize to defaults, got %+v", normalized)
	}
}

func TestWithFactorRoundTrip(t *testing.T) {
	w := DefaultWeights()
	for _, f := range BaseFactors {
		updated := w.WithFactor(f, 0.42)
		if updated.Factor(f) != 0.42 {
			t.Errorf("WithFactor(%s) not reflected in Factor()", f)
		}
	}
}
