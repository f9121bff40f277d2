package scorers

// Score is the result of one factor scorer: the total score in [0,1] plus
// the named sub-scores that produced it, for explanation and audit.
type Score struct {
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components,omitempty"`
}

// NeutralScore is the score for a factor with no usable inputs
func NeutralScore() Score {
	return Score{Score: Neutral, Components: map[string]float64{}}
}
