package feedback

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/papertrade"
	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/pkg/formulas"
)

// Updater nudges the base weight vector from settled paper trades
type Updater struct {
	weights      *WeightRepository
	errors       *ErrorRepository
	learningRate float64
	minClosures  int
	lossPct      float64
	log          zerolog.Logger
}

// NewUpdater creates a new feedback updater
func NewUpdater(weights *WeightRepository, errors *ErrorRepository, learningRate float64, minClosures int, lossPct float64, log zerolog.Logger) *Updater {
	return &Updater{
		weights:      weights,
		errors:       errors,
		learningRate: learningRate,
		minClosures:  minClosures,
		lossPct:      lossPct,
		log:          log.With().Str("component", "feedback").Logger(),
	}
}

// Update applies one feedback step from the given settled trades. With
// fewer settled trades than the closure floor the current weights come back
// untouched and nothing is persisted; otherwise each base factor moves by
// learningRate times the gap between winner and loser factor score means,
// the vector renormalizes, and the revision is saved.
func (u *Updater) Update(current regime.Weights, closed []papertrade.PaperTrade) (regime.Weights, bool, error) {
	settled := make([]papertrade.PaperTrade, 0, len(closed))
	for _, t := range closed {
		if t.ReturnPct != nil {
			settled = append(settled, t)
		}
	}

	if len(settled) < u.minClosures {
		u.log.Debug().
			Int("settled", len(settled)).
			Int("required", u.minClosures).
			Msg("Not enough closures for a weight update")
		return current, false, nil
	}

	var winners, losers []papertrade.PaperTrade
	for _, t := range settled {
		if *t.ReturnPct >= 0 {
			winners = append(winners, t)
		} else {
			losers = append(losers, t)
		}
	}

	if len(winners) == 0 || len(losers) == 0 {
		// The winner-loser gap is undefined with only one side present
		u.log.Debug().
			Int("winners", len(winners)).
			Int("losers", len(losers)).
			Msg("One-sided outcomes, skipping weight update")
		return current, false, nil
	}

	updated := current
	for _, factor := range regime.BaseFactors {
		diff := factorMean(winners, factor) - factorMean(losers, factor)
		updated = updated.WithFactor(factor, updated.Factor(factor)+u.learningRate*diff)
	}
	updated = updated.Normalized()

	note := fmt.Sprintf("%d winners, %d losers", len(winners), len(losers))
	if err := u.weights.Save(updated, len(settled), note); err != nil {
		return current, false, err
	}

	u.log.Info().
		Int("winners", len(winners)).
		Int("losers", len(losers)).
		Msg("Base weights updated from trade outcomes")

	return updated, true, nil
}

// RecordLossDiagnostics writes a weak-factor research error for every
// settled trade at or below the loss threshold. The flagged factor is the
// one with the lowest score at entry, the signal that warned against the
// trade and was outvoted.
func (u *Updater) RecordLossDiagnostics(closed []papertrade.PaperTrade) error {
	for _, t := range closed {
		if t.ReturnPct == nil || *t.ReturnPct > u.lossPct {
			continue
		}

		factor := weakestFactor(t)
		err := u.errors.Save(ResearchError{
			Symbol:    t.Symbol,
			Kind:      fmt.Sprintf("weak_%s", factor),
			Detail:    fmt.Sprintf("lost %.1f%% over %dd, weakest entry factor %s at %.2f", *t.ReturnPct*100, t.HorizonDays, factor, t.EntryFactors.Base(factor)),
			TradeID:   t.ID,
			ReturnPct: t.ReturnPct,
		})
		if err != nil {
			return err
		}

		u.log.Warn().
			Str("symbol", t.Symbol).
			Str("factor", string(factor)).
			Float64("return_pct", *t.ReturnPct).
			Msg("Loss diagnostic recorded")
	}
	return nil
}

func factorMean(trades []papertrade.PaperTrade, factor regime.Factor) float64 {
	scores := make([]float64, len(trades))
	for i, t := range trades {
		scores[i] = t.EntryFactors.Base(factor)
	}
	return formulas.Mean(scores)
}

func weakestFactor(t papertrade.PaperTrade) regime.Factor {
	worst := regime.BaseFactors[0]
	for _, factor := range regime.BaseFactors[1:] {
		if t.EntryFactors.Base(factor) < t.EntryFactors.Base(worst) {
			worst = factor
		}
	}
	return worst
}
