package feedback

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/research-trader/internal/modules/papertrade"
	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/scoring"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(WeightsSchema)
	require.NoError(t, err)
	_, err = db.Exec(ErrorsSchema)
	require.NoError(t, err)

	return db
}

func newTestUpdater(t *testing.T) (*Updater, *WeightRepository, *ErrorRepository) {
	db := setupTestDB(t)
	weights := NewWeightRepository(db, zerolog.Nop())
	errs := NewErrorRepository(db, zerolog.Nop())
	return NewUpdater(weights, errs, 0.05, 3, -0.05, zerolog.Nop()), weights, errs
}

func settledTrade(symbol string, returnPct float64, factors scoring.FactorScores) papertrade.PaperTrade {
	return papertrade.PaperTrade{
		Symbol:       symbol,
		Status:       papertrade.StatusClosed,
		HorizonDays:  7,
		ReturnPct:    &returnPct,
		EntryFactors: factors,
	}
}

func TestUpdateSkipsBelowClosureFloor(t *testing.T) {
	updater, weights, _ := newTestUpdater(t)
	current := regime.DefaultWeights()

	closed := []papertrade.PaperTrade{
		settledTrade("AAA", 0.10, scoring.FactorScores{}),
		settledTrade("BBB", -0.05, scoring.FactorScores{}),
	}

	updated, changed, err := updater.Update(current, closed)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, current, updated)

	latest, err := weights.GetLatest()
	require.NoError(t, err)
	assert.Nil(t, latest, "no revision should persist below the floor")
}

func TestUpdateSkipsOneSidedOutcomes(t *testing.T) {
	updater, _, _ := newTestUpdater(t)
	current := regime.DefaultWeights()

	closed := []papertrade.PaperTrade{
		settledTrade("AAA", 0.10, scoring.FactorScores{}),
		settledTrade("BBB", 0.05, scoring.FactorScores{}),
		settledTrade("CCC", 0.02, scoring.FactorScores{}),
	}

	_, changed, err := updater.Update(current, closed)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestUpdateMovesWeightTowardWinningFactor(t *testing.T) {
	updater, weights, _ := newTestUpdater(t)
	current := regime.DefaultWeights()

	// Technicals separated winners from losers: winner mean 0.7 vs loser
	// mean 0.3. Every other factor is flat at 0.5 on both sides.
	flat := scoring.FactorScores{Fundamentals: 0.5, Technicals: 0.5, Macro: 0.5, Sentiment: 0.5, Quality: 0.5, Valuation: 0.5}
	w1, w2 := flat, flat
	w1.Technicals = 0.8
	w2.Technicals = 0.6
	l1, l2 := flat, flat
	l1.Technicals = 0.2
	l2.Technicals = 0.4

	closed := []papertrade.PaperTrade{
		settledTrade("W1", 0.10, w1),
		settledTrade("W2", 0.05, w2),
		settledTrade("L1", -0.08, l1),
		settledTrade("L2", -0.03, l2),
	}

	updated, changed, err := updater.Update(current, closed)
	require.NoError(t, err)
	require.True(t, changed)

	assert.Greater(t, updated.Technicals, current.Technicals)
	assert.InDelta(t, 1.0, updated.Sum(), regime.WeightSumTolerance)

	// Pre-normalization: technicals gains 0.05 * (0.7 - 0.3) = 0.02 and no
	// other factor moves, so the sum is 1.02 and the normalized technicals
	// weight is 0.22 / 1.02.
	assert.InDelta(t, 0.22/1.02, updated.Technicals, 1e-12)
	assert.InDelta(t, 0.25/1.02, updated.Fundamentals, 1e-12)

	latest, err := weights.GetLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 4, latest.ClosuresUsed)
	assert.InDelta(t, updated.Technicals, latest.Weights.Technicals, 1e-12)
}

func TestRecordLossDiagnostics(t *testing.T) {
	updater, _, errs := newTestUpdater(t)

	// Technicals is the lowest entry factor and gets flagged.
	factors := scoring.FactorScores{Fundamentals: 0.9, Technicals: 0.3, Macro: 0.5, Sentiment: 0.4, Quality: 0.6, Valuation: 0.5}
	closed := []papertrade.PaperTrade{
		settledTrade("DEEP", -0.12, factors), // below threshold
		settledTrade("EDGE", -0.05, factors), // exactly at threshold
		settledTrade("MILD", -0.02, factors), // above threshold
		settledTrade("GOOD", 0.08, factors),
	}
	closed[0].ID = "trade-deep"

	require.NoError(t, updater.RecordLossDiagnostics(closed))

	recorded, err := errs.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, recorded, 2)

	// Newest first: EDGE then DEEP
	assert.Equal(t, "EDGE", recorded[0].Symbol)
	assert.Equal(t, "DEEP", recorded[1].Symbol)
	assert.Equal(t, "weak_technicals", recorded[1].Kind)
	assert.Equal(t, "trade-deep", recorded[1].TradeID)
	require.NotNil(t, recorded[1].ReturnPct)
	assert.InDelta(t, -0.12, *recorded[1].ReturnPct, 1e-12)
}

func TestWeightRepositoryHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewWeightRepository(db, zerolog.Nop())

	first := regime.DefaultWeights()
	second := first.WithFactor(regime.FactorTechnicals, 0.3).Normalized()

	require.NoError(t, repo.Save(first, 3, "first"))
	require.NoError(t, repo.Save(second, 5, "second"))

	latest, err := repo.GetLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "second", latest.Note)
	assert.InDelta(t, second.Technicals, latest.Weights.Technicals, 1e-12)

	history, err := repo.GetHistory(10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Note)
	assert.Equal(t, "first", history[1].Note)
}
