// Package analysis runs the research cycle end to end: load the research
// snapshot, detect the regime, filter and rank symbols, settle and open
// paper trades, apply weight feedback, and persist the full analysis record
// for the API to serve.
package analysis

import (
	"time"

	"github.com/aristath/research-trader/internal/modules/constraints"
	"github.com/aristath/research-trader/internal/modules/papertrade"
	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/scoring"
)

// Run status values
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Analysis is the complete output of one research cycle. Everything the
// cycle decided and why, self-contained for audit.
type Analysis struct {
	ID              string                  `json:"id"`
	Regime          regime.Regime           `json:"regime"`
	BaseWeights     regime.Weights          `json:"base_weights"`
	AdjustedWeights regime.Weights          `json:"adjusted_weights"`
	Candidates      []scoring.Candidate     `json:"candidates"`
	Exclusions      []constraints.Exclusion `json:"exclusions"`
	Constraints     constraints.Config      `json:"constraints"`
	Performance     papertrade.Performance  `json:"performance"`
	NextSteps       []string                `json:"next_steps"`
	SymbolCount     int                     `json:"symbol_count"`
	AvgDataQuality  float64                 `json:"avg_data_quality"`
	GeneratedAt     time.Time               `json:"generated_at"`
}

// Run is the bookkeeping record of one cycle execution
type Run struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Error          string     `json:"error,omitempty"`
	SymbolCount    int        `json:"symbol_count"`
	CandidateCount int        `json:"candidate_count"`
	ExclusionCount int        `json:"exclusion_count"`
	TradesOpened   int        `json:"trades_opened"`
	TradesClosed   int        `json:"trades_closed"`
	WeightsUpdated bool       `json:"weights_updated"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}
