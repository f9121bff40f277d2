package analysis

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

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

type stubBroker struct {
	positions []tradernet.Position
	err       error
}

func (s *stubBroker) GetPortfolio() ([]tradernet.Position, error) {
	return s.positions, s.err
}

type stubQuotes struct {
	prices map[string]float64
	err    error
}

func (s *stubQuotes) GetPrices(symbols []string) (map[string]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]float64)
	for _, sym := range symbols {
		if p, ok := s.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

func setupDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, schema := range []string{
		Schema,
		papertrade.Schema,
		feedback.WeightsSchema,
		feedback.ErrorsSchema,
		portfolio.PositionsSchema,
	} {
		_, err = db.Exec(schema)
		require.NoError(t, err)
	}

	return db
}

func writeDoc(t *testing.T, dir, name string, doc interface{}) {
	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), payload, 0o644))
}

func setupResearchDir(t *testing.T) string {
	dataDir := t.TempDir()
	dir := filepath.Join(dataDir, "research")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	marketCap := 5_000_000_000.0
	volume := 50_000_000.0

	writeDoc(t, dir, "grow.json", map[string]interface{}{
		"profile": map[string]string{"sector": "Technology", "industry": "Software"},
		"fundamentals": map[string]float64{
			"revenue_growth": 0.25,
			"net_margin":     0.20,
			"market_cap":     marketCap,
		},
		"technicals": map[string]float64{"price": 100},
		"liquidity":  map[string]float64{"avg_dollar_volume": volume},
	})
	writeDoc(t, dir, "deny.json", map[string]interface{}{
		"profile":      map[string]string{"sector": "Tobacco", "industry": "Cigarettes"},
		"fundamentals": map[string]float64{"market_cap": marketCap},
		"liquidity":    map[string]float64{"avg_dollar_volume": volume},
	})
	writeDoc(t, dir, "macro.json", map[string]interface{}{
		"volatility_index": 18.0,
		"risk_on_score":    0.7,
		"trend_direction":  "up",
	})

	return dataDir
}

func newTestService(t *testing.T, dataDir string, broker *stubBroker, quotes *stubQuotes, now time.Time) (*Service, *sql.DB) {
	db := setupDB(t)
	return buildService(t, dataDir, broker, quotes, now, db), db
}

func buildService(t *testing.T, dataDir string, broker *stubBroker, quotes *stubQuotes, now time.Time, db *sql.DB) *Service {
	log := zerolog.Nop()

	cfg := config.ResearchConfig{
		LearningRate:      0.05,
		MinClosures:       3,
		TopN:              5,
		HorizonDays:       7,
		OrderNotional:     1000,
		MaxSectorWeight:   0.30,
		MaxIndustryWeight: 0.20,
		MaxCorrelation:    0.85,
		MinMarketCap:      250_000_000,
		MinDollarVolume:   1_000_000,
		MaxDrawdown:       0.60,
		DeniedSectors:     []string{"TOBACCO"},
	}

	weightRepo := feedback.NewWeightRepository(db, log)
	errorRepo := feedback.NewErrorRepository(db, log)
	tradeRepo := papertrade.NewRepository(db, log)
	clock := func() time.Time { return now }

	return NewService(ServiceDeps{
		Loader: research.NewLoader(dataDir, log),
		Ranker: scoring.NewRankerAt(now, log),
		Filter: constraints.NewFilter(constraints.Config{
			DeniedSectors:     cfg.DeniedSectors,
			MinMarketCap:      cfg.MinMarketCap,
			MinDollarVolume:   cfg.MinDollarVolume,
			MaxDrawdown:       cfg.MaxDrawdown,
			MaxCorrelation:    cfg.MaxCorrelation,
			MaxSectorWeight:   cfg.MaxSectorWeight,
			MaxIndustryWeight: cfg.MaxIndustryWeight,
			OrderNotional:     cfg.OrderNotional,
		}, log),
		Simulator: papertrade.NewSimulatorAt(tradeRepo, cfg.TopN, cfg.HorizonDays, clock, log),
		Trades:    tradeRepo,
		Updater:   feedback.NewUpdater(weightRepo, errorRepo, cfg.LearningRate, cfg.MinClosures, -0.05, log),
		Weights:   weightRepo,
		Positions: portfolio.NewPositionRepository(db, log),
		Repo:      NewRepository(db, log),
		Broker:    broker,
		Quotes:    quotes,
		Locks:     locking.NewManager(),
		Events:    events.NewManager(log),
		Config:    cfg,
		Now:       clock,
	}, log)
}

func TestRunCycleEndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	dataDir := setupResearchDir(t)
	broker := &stubBroker{}
	quotes := &stubQuotes{prices: map[string]float64{"GROW": 100}}

	svc, _ := newTestService(t, dataDir, broker, quotes, now)

	result, err := svc.RunCycle()
	require.NoError(t, err)
	require.NotNil(t, result)

	// risk_on regime from vix 18, risk-on 0.7
	assert.Equal(t, regime.RegimeRiskOn, result.Regime)
	assert.InDelta(t, 1.0, result.AdjustedWeights.Sum(), regime.WeightSumTolerance)

	// GROW ranks, DENY is excluded for its sector
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "GROW", result.Candidates[0].Symbol)
	require.Len(t, result.Exclusions, 1)
	assert.Equal(t, "DENY", result.Exclusions[0].Symbol)

	assert.Equal(t, 2, result.SymbolCount)
	assert.GreaterOrEqual(t, result.AvgDataQuality, 0.2)

	// GROW's doc carries no news or earnings, so the aggregated next steps
	// surface both gaps.
	assert.Contains(t, result.NextSteps, "collect recent news coverage")
	assert.Contains(t, result.NextSteps, "review latest earnings call")
}

func TestRunCycleOpensAndSettlesTrades(t *testing.T) {
	entry := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	dataDir := setupResearchDir(t)
	broker := &stubBroker{}
	quotes := &stubQuotes{prices: map[string]float64{"GROW": 100}}

	svc, db := newTestService(t, dataDir, broker, quotes, entry)

	_, err := svc.RunCycle()
	require.NoError(t, err)

	tradeRepo := papertrade.NewRepository(db, zerolog.Nop())
	open, err := tradeRepo.GetOpen()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "GROW", open[0].Symbol)
	assert.Equal(t, 100.0, open[0].EntryPrice)

	// Eight days on, a second cycle over the same database settles the
	// trade at the new price.
	later := entry.Add(8 * 24 * time.Hour)
	quotes.prices["GROW"] = 110
	svcLater := buildService(t, dataDir, broker, quotes, later, db)
	_, err = svcLater.RunCycle()
	require.NoError(t, err)

	closed, err := tradeRepo.GetClosed(10)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.NotNil(t, closed[0].ReturnPct)
	assert.InDelta(t, 0.10, *closed[0].ReturnPct, 1e-12)
}

func TestRunCycleRecordsFailedRun(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	dataDir := t.TempDir()

	// A file where the research directory should be makes the load fail
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "research"), []byte("not a dir"), 0o644))

	broker := &stubBroker{err: errors.New("broker down")}
	quotes := &stubQuotes{}
	svc, db := newTestService(t, dataDir, broker, quotes, now)

	_, err := svc.RunCycle()
	require.Error(t, err)

	runs, err := NewRepository(db, zerolog.Nop()).GetRecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRunCycleSurvivesQuoteOutage(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	dataDir := setupResearchDir(t)
	broker := &stubBroker{}
	quotes := &stubQuotes{err: errors.New("quota exceeded")}

	svc, db := newTestService(t, dataDir, broker, quotes, now)

	result, err := svc.RunCycle()
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Candidates, 1)

	// GROW still gets a trade: the research document price backfills
	open, err := papertrade.NewRepository(db, zerolog.Nop()).GetOpen()
	require.NoError(t, err)
	assert.Len(t, open, 1)
}
