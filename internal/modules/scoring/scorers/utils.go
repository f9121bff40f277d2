// Package scorers contains the seven factor scorers. Each scorer is a pure
// function of possibly-absent inputs: every output is clamped to [0,1] and a
// scorer with no usable inputs returns the neutral 0.5 rather than an error.
package scorers

import (
	"math"
)

// Neutral is the score assigned when the relevant inputs are absent
const Neutral = 0.5

// clamp01 clamps a value to [0, 1]
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// usable reports whether an optional metric is present and finite
func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// scoreAbove maps a positive-is-better metric onto [0,1]: 0.5 at the
// midpoint, saturating at 1.0 at the ceiling, linear in between and below.
func scoreAbove(v, midpoint, ceiling float64) float64 {
	if ceiling == midpoint {
		return Neutral
	}
	return clamp01(0.5 + 0.5*(v-midpoint)/(ceiling-midpoint))
}

// scoreInverted maps a lower-is-better metric onto [0,1]: 1.0 at or below
// the good threshold, 0.0 at or above the bad threshold, linear in between.
func scoreInverted(v, good, bad float64) float64 {
	if bad == good {
		return Neutral
	}
	return clamp01(1 - (v-good)/(bad-good))
}

// blend averages the defined sub-scores. Absent sub-scores are excluded
// from the average, never defaulted. No defined sub-scores yields Neutral.
func blend(subs ...*float64) float64 {
	sum := 0.0
	n := 0
	for _, s := range subs {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return Neutral
	}
	return sum / float64(n)
}

// sub wraps a computed sub-score for use with blend
func sub(v float64) *float64 {
	return &v
}

// round3 rounds to 3 decimal places
func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
