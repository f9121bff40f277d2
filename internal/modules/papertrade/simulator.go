package papertrade

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/scoring"
	"github.com/aristath/research-trader/pkg/formulas"
)

// Simulator opens paper trades for top candidates and settles matured ones
// against current price snapshots.
type Simulator struct {
	repo        *Repository
	topN        int
	horizonDays int
	now         func() time.Time
	log         zerolog.Logger
}

// NewSimulator creates a new paper trade simulator
func NewSimulator(repo *Repository, topN, horizonDays int, log zerolog.Logger) *Simulator {
	return NewSimulatorAt(repo, topN, horizonDays, time.Now, log)
}

// NewSimulatorAt creates a simulator with an injected clock
func NewSimulatorAt(repo *Repository, topN, horizonDays int, now func() time.Time, log zerolog.Logger) *Simulator {
	return &Simulator{
		repo:        repo,
		topN:        topN,
		horizonDays: horizonDays,
		now:         now,
		log:         log.With().Str("component", "papertrade").Logger(),
	}
}

// CloseMatured settles every open trade whose horizon has elapsed, using
// the given price snapshot. Trades without a current price stay open until
// a later cycle can price them.
func (s *Simulator) CloseMatured(prices map[string]float64) ([]PaperTrade, error) {
	open, err := s.repo.GetOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to load open trades: %w", err)
	}

	now := s.now()
	var closed []PaperTrade

	for _, trade := range open {
		if now.Before(trade.MatureAt()) {
			continue
		}

		exitPrice, ok := prices[trade.Symbol]
		if !ok || exitPrice <= 0 {
			s.log.Warn().Str("symbol", trade.Symbol).Msg("No price for matured trade, leaving open")
			continue
		}

		returnPct := (exitPrice - trade.EntryPrice) / trade.EntryPrice
		if err := s.repo.Close(trade.ID, now, exitPrice, returnPct); err != nil {
			return nil, err
		}

		trade.Status = StatusClosed
		trade.ExitAt = &now
		trade.ExitPrice = &exitPrice
		trade.ReturnPct = &returnPct
		closed = append(closed, trade)

		s.log.Info().
			Str("symbol", trade.Symbol).
			Float64("return_pct", returnPct).
			Msg("Paper trade closed")
	}

	return closed, nil
}

// OpenForCandidates opens trades for the top ranked candidates that have a
// current price and no open trade already. Returns the trades opened.
func (s *Simulator) OpenForCandidates(candidates []scoring.Candidate, prices map[string]float64) ([]PaperTrade, error) {
	now := s.now()
	var opened []PaperTrade

	// Only the top ranked candidates are eligible. A skipped candidate does
	// not promote the one ranked below it.
	eligible := candidates
	if len(eligible) > s.topN {
		eligible = eligible[:s.topN]
	}

	for _, c := range eligible {
		price, ok := prices[c.Symbol]
		if !ok || price <= 0 {
			s.log.Debug().Str("symbol", c.Symbol).Msg("No price for candidate, skipping paper trade")
			continue
		}

		hasOpen, err := s.repo.HasOpenForSymbol(c.Symbol)
		if err != nil {
			return nil, err
		}
		if hasOpen {
			continue
		}

		trade, err := s.repo.Open(PaperTrade{
			Symbol:          c.Symbol,
			EntryAt:         now,
			EntryPrice:      price,
			HorizonDays:     s.horizonDays,
			EntryScore:      c.Score,
			EntryConfidence: c.Confidence,
			EntryFactors:    c.Factors,
			CreatedAt:       now,
		})
		if err != nil {
			return nil, err
		}
		opened = append(opened, *trade)
	}

	return opened, nil
}

// Performance summarizes closed trade outcomes
type Performance struct {
	ClosedCount int      `json:"closed_count"`
	WinRate     float64  `json:"win_rate"`
	MeanReturn  float64  `json:"mean_return"`
	Sharpe      *float64 `json:"sharpe,omitempty"`
}

// Summarize computes aggregate performance over the given closed trades
func Summarize(closed []PaperTrade) Performance {
	returns := make([]float64, 0, len(closed))
	for _, t := range closed {
		if t.ReturnPct != nil {
			returns = append(returns, *t.ReturnPct)
		}
	}

	perf := Performance{ClosedCount: len(returns)}
	if len(returns) == 0 {
		return perf
	}

	if wr := formulas.WinRate(returns); wr != nil {
		perf.WinRate = *wr
	}
	perf.MeanReturn = formulas.Mean(returns)
	// Trades settle on a multi-day horizon; annualize on ~52 horizons/year
	// for a week-scale horizon.
	perf.Sharpe = formulas.CalculateSharpeRatio(returns, 0, 52)
	return perf
}
