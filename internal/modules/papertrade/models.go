// Package papertrade simulates trades on top-ranked candidates without
// placing orders. Each trade records the entry snapshot, waits out a fixed
// horizon, and closes exactly once with a realized return used by the
// weight feedback loop.
package papertrade

import (
	"time"

	"github.com/aristath/research-trader/internal/modules/scoring"
)

// Trade status values
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// PaperTrade is one simulated trade
type PaperTrade struct {
	ID              string               `json:"id"`
	Symbol          string               `json:"symbol"`
	EntryAt         time.Time            `json:"entry_at"`
	EntryPrice      float64              `json:"entry_price"`
	HorizonDays     int                  `json:"horizon_days"`
	EntryScore      float64              `json:"entry_score"`
	EntryConfidence float64              `json:"entry_confidence"`
	EntryFactors    scoring.FactorScores `json:"entry_factors"`
	Status          string               `json:"status"`
	ExitAt          *time.Time           `json:"exit_at,omitempty"`
	ExitPrice       *float64             `json:"exit_price,omitempty"`
	ReturnPct       *float64             `json:"return_pct,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// IsOpen reports whether the trade has not yet closed
func (t *PaperTrade) IsOpen() bool {
	return t.Status == StatusOpen
}

// MatureAt returns the earliest time the trade may close
func (t *PaperTrade) MatureAt() time.Time {
	return t.EntryAt.Add(time.Duration(t.HorizonDays) * 24 * time.Hour)
}
