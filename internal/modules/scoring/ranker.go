package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/research"
	"github.com/aristath/research-trader/internal/modules/scoring/scorers"
	"github.com/aristath/research-trader/pkg/formulas"
)

// Data-quality bounds: the fraction of present data categories is floored
// so sparse symbols retain a minimal confidence contribution.
const (
	dataQualityFloor = 0.2
	dataQualityCap   = 1.0
)

// Confidence blend coefficients
const (
	confidenceScoreWeight   = 0.7
	confidenceQualityWeight = 0.3
)

// Thresholds for explanatory driver/risk classification
const (
	driverThreshold = 0.65
	riskThreshold   = 0.35
)

// Ranker scores symbols and orders them into candidates
type Ranker struct {
	fundamentals *scorers.FundamentalsScorer
	quality      *scorers.QualityScorer
	valuation    *scorers.ValuationScorer
	technicals   *scorers.TechnicalsScorer
	sentiment    *scorers.SentimentScorer
	macro        *scorers.MacroScorer
	peer         *scorers.PeerScorer
	log          zerolog.Logger
}

// NewRanker creates a new candidate ranker
func NewRanker(log zerolog.Logger) *Ranker {
	return NewRankerAt(time.Now(), log)
}

// NewRankerAt creates a ranker with a fixed reference time for the
// recency-decayed sentiment scorer. Used for deterministic replays.
func NewRankerAt(now time.Time, log zerolog.Logger) *Ranker {
	return &Ranker{
		fundamentals: scorers.NewFundamentalsScorer(),
		quality:      scorers.NewQualityScorer(),
		valuation:    scorers.NewValuationScorer(),
		technicals:   scorers.NewTechnicalsScorer(),
		sentiment:    scorers.NewSentimentScorerAt(now),
		macro:        scorers.NewMacroScorer(),
		peer:         scorers.NewPeerScorer(),
		log:          log.With().Str("component", "ranker").Logger(),
	}
}

// Rank scores every symbol in the universe and returns candidates ordered
// by descending composite score (symbol ascending on ties). The input
// snapshot and weight vector are never modified; identical inputs yield
// identical output.
func (r *Ranker) Rank(data *research.Data, universe []string, weights regime.Weights, reg regime.Regime) []Candidate {
	medians := r.peer.MediansBySector(data, universe)

	candidates := make([]Candidate, 0, len(universe))
	for _, symbol := range universe {
		candidates = append(candidates, r.score(data, symbol, weights, reg, medians))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})

	return candidates
}

// score builds the full candidate record for one symbol
func (r *Ranker) score(data *research.Data, symbol string, weights regime.Weights, reg regime.Regime, medians map[string]scorers.PeerMedians) Candidate {
	profile := data.Profile(symbol)
	fundamentals := data.Fundamentals[symbol]
	technicals := data.Technicals[symbol]

	var sectorMedians *scorers.PeerMedians
	if m, ok := medians[profile.Sector]; ok {
		sectorMedians = &m
	}

	breakdown := map[string]scorers.Score{
		"fundamentals": r.fundamentals.Calculate(fundamentals),
		"quality":      r.quality.Calculate(fundamentals),
		"valuation":    r.valuation.Calculate(fundamentals),
		"technicals":   r.technicals.Calculate(technicals),
		"macro":        r.macro.Calculate(data.Macro, reg),
		"peer":         r.peer.Calculate(fundamentals, sectorMedians),
		"sentiment": r.sentiment.Calculate(scorers.SentimentInputs{
			News:          data.News[symbol],
			Earnings:      data.Earnings[symbol],
			Insider:       data.Insider[symbol],
			Institutional: data.Institutional[symbol],
		}),
	}

	factors := FactorScores{
		Fundamentals: breakdown["fundamentals"].Score,
		Technicals:   breakdown["technicals"].Score,
		Macro:        breakdown["macro"].Score,
		Sentiment:    breakdown["sentiment"].Score,
		Quality:      breakdown["quality"].Score,
		Valuation:    breakdown["valuation"].Score,
		Peer:         breakdown["peer"].Score,
	}

	composite := 0.0
	for _, f := range regime.BaseFactors {
		composite += factors.Base(f) * weights.Factor(f)
	}
	composite += factors.Peer * regime.PeerWeight
	composite = clamp01(composite)

	dataQuality := dataQuality(data.PresentCategories(symbol))
	confidence := clamp01(confidenceScoreWeight*composite + confidenceQualityWeight*dataQuality)

	checklist := buildChecklist(fundamentals)

	return Candidate{
		Symbol:      symbol,
		Sector:      profile.Sector,
		Industry:    profile.Industry,
		Score:       composite,
		Confidence:  confidence,
		Factors:     factors,
		Breakdown:   breakdown,
		Checklist:   checklist,
		RedFlags:    cautionFlags(data, symbol),
		Drivers:     drivers(factors, weights),
		Risks:       risks(factors, weights),
		NextSteps:   nextSteps(data, symbol, checklist),
		Sources:     data.Sources[symbol],
		DataQuality: dataQuality,
		Regime:      reg,
	}
}

// dataQuality maps a present-category count onto the floored, capped ratio
func dataQuality(present int) float64 {
	ratio := float64(present) / float64(research.CategoryCount)
	return math.Max(dataQualityFloor, math.Min(dataQualityCap, ratio))
}

// Checklist thresholds
const (
	checkGrowthPass   = 0.05
	checkMarginPass   = 0.05
	checkLeveragePass = 1.0
	checkLeverageFail = 2.0
	checkMoatPass     = 0.15
	checkMoatFail     = 0.05
	checkPEPass       = 20.0
	checkPEFail       = 35.0
)

// buildChecklist derives the five display/audit flags from fundamentals
func buildChecklist(f *research.Fundamentals) Checklist {
	if f == nil {
		missing := CheckItem{Status: CheckNeutral, Note: "missing data"}
		return Checklist{Growth: missing, Profitability: missing, Leverage: missing, Moat: missing, Cheapness: missing}
	}

	return Checklist{
		Growth:        checkAbove(f.RevenueGrowth, checkGrowthPass, 0),
		Profitability: checkAbove(f.NetMargin, checkMarginPass, 0),
		Leverage:      checkBelow(f.DebtToEquity, checkLeveragePass, checkLeverageFail),
		Moat:          checkAbove(f.OperatingMargin, checkMoatPass, checkMoatFail),
		Cheapness:     checkBelow(f.PERatio, checkPEPass, checkPEFail),
	}
}

// checkAbove passes above passAt, fails below failAt, neutral in between or
// when the metric is missing.
func checkAbove(v *float64, passAt, failAt float64) CheckItem {
	if v == nil || math.IsNaN(*v) {
		return CheckItem{Status: CheckNeutral, Note: "missing data"}
	}
	if *v >= passAt {
		return CheckItem{Status: CheckPass}
	}
	if *v < failAt {
		return CheckItem{Status: CheckFail}
	}
	return CheckItem{Status: CheckNeutral}
}

// checkBelow passes below passAt, fails above failAt
func checkBelow(v *float64, passAt, failAt float64) CheckItem {
	if v == nil || math.IsNaN(*v) {
		return CheckItem{Status: CheckNeutral, Note: "missing data"}
	}
	if *v <= passAt {
		return CheckItem{Status: CheckPass}
	}
	if *v > failAt {
		return CheckItem{Status: CheckFail}
	}
	return CheckItem{Status: CheckNeutral}
}

// drivers names the base factors pulling the composite up, strongest first
func drivers(factors FactorScores, weights regime.Weights) []string {
	return classifyFactors(factors, weights, func(score float64) bool {
		return score >= driverThreshold
	}, "strong %s (%.2f)")
}

// risks names the base factors dragging the composite down, weakest first
func risks(factors FactorScores, weights regime.Weights) []string {
	items := classifyFactors(factors, weights, func(score float64) bool {
		return score <= riskThreshold
	}, "weak %s (%.2f)")
	// Weakest first reads better for risks
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

// classifyFactors collects matching base factors ordered by score descending
func classifyFactors(factors FactorScores, weights regime.Weights, match func(float64) bool, format string) []string {
	type entry struct {
		factor regime.Factor
		score  float64
	}

	var entries []entry
	for _, f := range regime.BaseFactors {
		if score := factors.Base(f); match(score) {
			entries = append(entries, entry{f, score})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].factor < entries[j].factor
	})

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, fmt.Sprintf(format, e.factor, e.score))
	}
	return items
}

// cautionFlags lists advisory (non-excluding) warning signals
func cautionFlags(data *research.Data, symbol string) []string {
	var flags []string

	if risk := data.Risk[symbol]; risk != nil {
		if risk.ShortInterestPct != nil && *risk.ShortInterestPct >= 0.10 && !risk.HighShortInterest {
			flags = append(flags, fmt.Sprintf("elevated short interest (%.1f%%)", *risk.ShortInterestPct*100))
		}
	}
	if tech := data.Technicals[symbol]; tech != nil {
		if tech.MaxDrawdown1Y != nil && *tech.MaxDrawdown1Y >= 0.40 {
			flags = append(flags, fmt.Sprintf("deep trailing drawdown (%.0f%%)", *tech.MaxDrawdown1Y*100))
		}
		if vol := formulas.AnnualizedVolatility(tech.DailyReturns); vol >= 0.60 {
			flags = append(flags, fmt.Sprintf("high annualized volatility (%.0f%%)", vol*100))
		}
		if dd := formulas.CalculateCurrentDrawdown(tech.DailyCloses); dd != nil && *dd >= 0.20 {
			flags = append(flags, fmt.Sprintf("trading %.0f%% below recent peak", *dd*100))
		}
	}
	if liq := data.Liquidity[symbol]; liq != nil {
		if liq.BidAskSpreadPct != nil && *liq.BidAskSpreadPct >= 0.01 {
			flags = append(flags, "wide bid/ask spread")
		}
	}

	return flags
}

// nextSteps suggests follow-ups from missing categories and failed checks
func nextSteps(data *research.Data, symbol string, checklist Checklist) []string {
	var steps []string

	if data.Fundamentals[symbol] == nil {
		steps = append(steps, "backfill fundamentals data")
	}
	if data.Technicals[symbol] == nil {
		steps = append(steps, "backfill price history")
	}
	if len(data.News[symbol]) == 0 {
		steps = append(steps, "collect recent news coverage")
	}
	if len(data.Earnings[symbol]) == 0 {
		steps = append(steps, "review latest earnings call")
	}

	failed := map[string]CheckItem{
		"growth":        checklist.Growth,
		"profitability": checklist.Profitability,
		"leverage":      checklist.Leverage,
		"moat":          checklist.Moat,
		"cheapness":     checklist.Cheapness,
	}
	for _, name := range []string{"growth", "profitability", "leverage", "moat", "cheapness"} {
		if failed[name].Status == CheckFail {
			steps = append(steps, fmt.Sprintf("investigate failed %s check", name))
		}
	}

	return steps
}

// clamp01 clamps a value to [0, 1]
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
