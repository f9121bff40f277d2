package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/clients/tradernet"
	"github.com/aristath/research-trader/internal/config"
	"github.com/aristath/research-trader/internal/events"
	"github.com/aristath/research-trader/internal/locking"
	"github.com/aristath/research-trader/internal/modules/constraints"
	"github.com/aristath/research-trader/internal/modules/feedback"
	"github.com/aristath/research-trader/internal/modules/papertrade"
	"github.com/aristath/research-trader/internal/modules/portfolio"
	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/research"
	"github.com/aristath/research-trader/internal/modules/scoring"
)

// cycleLock names the lock that keeps cycles from overlapping
const cycleLock = "research_cycle"

// PriceSource provides current market prices
type PriceSource interface {
	GetPrices(symbols []string) (map[string]float64, error)
}

// PositionSource provides current brokerage positions
type PositionSource interface {
	GetPortfolio() ([]tradernet.Position, error)
}

// Service orchestrates the research cycle
type Service struct {
	loader    *research.Loader
	ranker    *scoring.Ranker
	filter    *constraints.Filter
	simulator *papertrade.Simulator
	trades    *papertrade.Repository
	updater   *feedback.Updater
	weights   *feedback.WeightRepository
	positions *portfolio.PositionRepository
	repo      *Repository
	broker    PositionSource
	quotes    PriceSource
	locks     *locking.Manager
	events    *events.Manager
	cfg       config.ResearchConfig
	now       func() time.Time
	log       zerolog.Logger
}

// ServiceDeps bundles the collaborators of the cycle orchestrator
type ServiceDeps struct {
	Loader    *research.Loader
	Ranker    *scoring.Ranker
	Filter    *constraints.Filter
	Simulator *papertrade.Simulator
	Trades    *papertrade.Repository
	Updater   *feedback.Updater
	Weights   *feedback.WeightRepository
	Positions *portfolio.PositionRepository
	Repo      *Repository
	Broker    PositionSource
	Quotes    PriceSource
	Locks     *locking.Manager
	Events    *events.Manager
	Config    config.ResearchConfig
	Now       func() time.Time
}

// NewService creates a new research cycle service
func NewService(deps ServiceDeps, log zerolog.Logger) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		loader:    deps.Loader,
		ranker:    deps.Ranker,
		filter:    deps.Filter,
		simulator: deps.Simulator,
		trades:    deps.Trades,
		updater:   deps.Updater,
		weights:   deps.Weights,
		positions: deps.Positions,
		repo:      deps.Repo,
		broker:    deps.Broker,
		quotes:    deps.Quotes,
		locks:     deps.Locks,
		events:    deps.Events,
		cfg:       deps.Config,
		now:       now,
		log:       log.With().Str("service", "analysis").Logger(),
	}
}

// RunCycle executes one full research cycle. A cycle already in progress
// makes this call a no-op returning nil, nil.
func (s *Service) RunCycle() (*Analysis, error) {
	if err := s.locks.Acquire(cycleLock); err != nil {
		s.log.Warn().Msg("Research cycle already running, skipping")
		return nil, nil
	}
	defer s.locks.Release(cycleLock)

	runID := uuid.New().String()
	startedAt := s.now()
	if err := s.repo.StartRun(runID, startedAt); err != nil {
		return nil, err
	}

	s.events.Emit(events.ResearchCycleStart, "analysis", map[string]interface{}{"run_id": runID})

	result, err := s.runCycle(runID, startedAt)
	if err != nil {
		s.failRun(runID, startedAt, err)
		s.events.Emit(events.ResearchCycleFailed, "analysis", map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		return nil, err
	}

	s.events.Emit(events.ResearchCycleComplete, "analysis", map[string]interface{}{
		"run_id":     runID,
		"regime":     string(result.Regime),
		"candidates": len(result.Candidates),
		"exclusions": len(result.Exclusions),
	})

	return result, nil
}

func (s *Service) runCycle(runID string, startedAt time.Time) (*Analysis, error) {
	data, err := s.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load research data: %w", err)
	}

	positions := s.refreshPositions()
	reg := regime.Detect(data.Macro)
	base := s.currentBaseWeights()
	adjusted := base.AdjustedFor(reg)

	eligible, exclusions := s.applyConstraints(data, positions)
	candidates := s.ranker.Rank(data, eligible, adjusted, reg)

	prices := s.fetchPrices(data, candidates)

	closed, err := s.simulator.CloseMatured(prices)
	if err != nil {
		return nil, fmt.Errorf("failed to close matured trades: %w", err)
	}
	for _, t := range closed {
		s.events.Emit(events.PaperTradeClosed, "papertrade", map[string]interface{}{
			"symbol":     t.Symbol,
			"return_pct": *t.ReturnPct,
		})
	}

	updatedBase, weightsChanged, err := s.applyFeedback(base, closed)
	if err != nil {
		return nil, err
	}
	if weightsChanged {
		base = updatedBase
		adjusted = base.AdjustedFor(reg)
	}

	opened, err := s.simulator.OpenForCandidates(candidates, prices)
	if err != nil {
		return nil, fmt.Errorf("failed to open paper trades: %w", err)
	}
	for _, t := range opened {
		s.events.Emit(events.PaperTradeOpened, "papertrade", map[string]interface{}{
			"symbol":      t.Symbol,
			"entry_price": t.EntryPrice,
		})
	}

	perf, err := s.recentPerformance()
	if err != nil {
		return nil, err
	}

	result := &Analysis{
		ID:              runID,
		Regime:          reg,
		BaseWeights:     base,
		AdjustedWeights: adjusted,
		Candidates:      candidates,
		Exclusions:      exclusions,
		Constraints:     s.filter.Config(),
		Performance:     perf,
		NextSteps:       aggregateNextSteps(candidates),
		SymbolCount:     len(data.Symbols()),
		AvgDataQuality:  avgDataQuality(candidates),
		GeneratedAt:     s.now(),
	}

	if err := s.repo.SaveAnalysis(result); err != nil {
		return nil, err
	}

	finishedAt := s.now()
	err = s.repo.FinishRun(Run{
		ID:             runID,
		Status:         RunStatusSuccess,
		SymbolCount:    result.SymbolCount,
		CandidateCount: len(candidates),
		ExclusionCount: len(exclusions),
		TradesOpened:   len(opened),
		TradesClosed:   len(closed),
		WeightsUpdated: weightsChanged,
		StartedAt:      startedAt,
		FinishedAt:     &finishedAt,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("regime", string(reg)).
		Int("candidates", len(candidates)).
		Int("exclusions", len(exclusions)).
		Int("opened", len(opened)).
		Int("closed", len(closed)).
		Bool("weights_updated", weightsChanged).
		Msg("Research cycle complete")

	return result, nil
}

// refreshPositions pulls the broker snapshot into storage. On broker
// failure the previously stored positions carry the cycle.
func (s *Service) refreshPositions() []portfolio.Position {
	brokerPositions, err := s.broker.GetPortfolio()
	if err != nil {
		s.log.Warn().Err(err).Msg("Broker unavailable, using stored positions")
		s.events.EmitError("analysis", err, map[string]interface{}{"source": "broker"})
	} else {
		stored := make([]portfolio.Position, 0, len(brokerPositions))
		for _, p := range brokerPositions {
			stored = append(stored, portfolio.Position{
				Symbol:      strings.ToUpper(p.Symbol),
				Quantity:    p.Quantity,
				MarketValue: p.MarketValue,
				CostBasis:   p.AvgPrice * p.Quantity,
			})
		}
		if err := s.positions.ReplaceAll(stored); err != nil {
			s.log.Warn().Err(err).Msg("Failed to store broker positions")
		}
	}

	positions, err := s.positions.GetAll()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load stored positions")
		return nil
	}
	return positions
}

func (s *Service) currentBaseWeights() regime.Weights {
	record, err := s.weights.GetLatest()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load weight history, using defaults")
		return regime.DefaultWeights()
	}
	if record == nil {
		return regime.DefaultWeights()
	}
	return record.Weights.Normalized()
}

func (s *Service) applyConstraints(data *research.Data, positions []portfolio.Position) ([]string, []constraints.Exclusion) {
	port := constraints.PortfolioContext{Positions: positions}

	var eligible []string
	var exclusions []constraints.Exclusion
	for _, symbol := range data.Symbols() {
		if excl := s.filter.Evaluate(data, symbol, port); excl != nil {
			exclusions = append(exclusions, *excl)
			s.events.Emit(events.SymbolExcluded, "constraints", map[string]interface{}{
				"symbol":  excl.Symbol,
				"reasons": excl.Reasons,
			})
			continue
		}
		eligible = append(eligible, symbol)
	}
	return eligible, exclusions
}

// fetchPrices collects one price snapshot covering open trades and the
// paper trade candidates. Quote gaps and outages fall back to prices from
// the research documents; symbols still unpriced wait for a later cycle.
func (s *Service) fetchPrices(data *research.Data, candidates []scoring.Candidate) map[string]float64 {
	wanted := make(map[string]bool)

	open, err := s.trades.GetOpen()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load open trades for pricing")
	}
	for _, t := range open {
		wanted[t.Symbol] = true
	}

	limit := s.cfg.TopN
	if limit > len(candidates) {
		limit = len(candidates)
	}
	for _, c := range candidates[:limit] {
		wanted[c.Symbol] = true
	}

	if len(wanted) == 0 {
		return map[string]float64{}
	}

	symbols := make([]string, 0, len(wanted))
	for symbol := range wanted {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	prices, err := s.quotes.GetPrices(symbols)
	if err != nil {
		s.log.Warn().Err(err).Msg("Quote fetch failed, falling back to research document prices")
		s.events.EmitError("analysis", err, map[string]interface{}{"source": "quotes"})
		prices = map[string]float64{}
	}

	// Research data prices backfill quote gaps
	for _, symbol := range symbols {
		if _, ok := prices[symbol]; ok {
			continue
		}
		if tech := data.Technicals[symbol]; tech != nil && tech.Price != nil && *tech.Price > 0 {
			prices[symbol] = *tech.Price
		}
	}

	return prices
}

func (s *Service) applyFeedback(base regime.Weights, closed []papertrade.PaperTrade) (regime.Weights, bool, error) {
	updated, changed, err := s.updater.Update(base, closed)
	if err != nil {
		return base, false, fmt.Errorf("failed to update weights: %w", err)
	}
	if changed {
		s.events.Emit(events.WeightsUpdated, "feedback", map[string]interface{}{
			"closures": len(closed),
		})
	}

	if err := s.updater.RecordLossDiagnostics(closed); err != nil {
		return updated, changed, fmt.Errorf("failed to record loss diagnostics: %w", err)
	}

	return updated, changed, nil
}

func (s *Service) recentPerformance() (papertrade.Performance, error) {
	closed, err := s.trades.GetClosed(100)
	if err != nil {
		return papertrade.Performance{}, fmt.Errorf("failed to load closed trades: %w", err)
	}
	return papertrade.Summarize(closed), nil
}

func (s *Service) failRun(runID string, startedAt time.Time, runErr error) {
	finishedAt := s.now()
	err := s.repo.FinishRun(Run{
		ID:         runID,
		Status:     RunStatusFailed,
		Error:      runErr.Error(),
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to record failed run")
	}
}

// aggregateNextSteps collects the per-candidate next-step suggestions into
// one deduplicated list, preserving rank order of first appearance.
func aggregateNextSteps(candidates []scoring.Candidate) []string {
	seen := make(map[string]bool)
	var steps []string
	for _, c := range candidates {
		for _, step := range c.NextSteps {
			if seen[step] {
				continue
			}
			seen[step] = true
			steps = append(steps, step)
		}
	}
	return steps
}

func avgDataQuality(candidates []scoring.Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range candidates {
		total += c.DataQuality
	}
	return total / float64(len(candidates))
}
