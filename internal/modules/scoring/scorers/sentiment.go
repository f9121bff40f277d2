package scorers

import (
	"math"
	"time"

	"github.com/aristath/research-trader/internal/modules/research"
)

// SentimentScorer scores qualitative flow: news, earnings tone, insider and
// institutional activity. Older signals decay with a half-life.
type SentimentScorer struct {
	now func() time.Time
}

// NewSentimentScorer creates a new sentiment scorer
func NewSentimentScorer() *SentimentScorer {
	return &SentimentScorer{now: time.Now}
}

// NewSentimentScorerAt creates a sentiment scorer with a fixed clock,
// for deterministic tests.
func NewSentimentScorerAt(now time.Time) *SentimentScorer {
	return &SentimentScorer{now: func() time.Time { return now }}
}

const (
	newsHalfLifeDays     = 7.0
	earningsHalfLifeDays = 90.0
	insiderBand          = 1_000_000.0
	institutionalBand    = 5_000_000.0
)

// SentimentInputs bundles the qualitative data for one symbol
type SentimentInputs struct {
	News          []research.NewsItem
	Earnings      []research.EarningsCallSummary
	Insider       *research.InsiderActivity
	Institutional *research.InstitutionalFlow
}

// Calculate scores sentiment as the unweighted mean of the present
// sub-scores: recency-decayed news sentiment (weight = importance x decay),
// decayed earnings-call tone, and net insider/institutional dollar flow
// normalized against fixed bands.
func (s *SentimentScorer) Calculate(in SentimentInputs) Score {
	now := s.now()

	var news, earnings, insider, institutional *float64

	if n := s.scoreNews(in.News, now); n != nil {
		news = n
	}
	if e := s.scoreEarnings(in.Earnings, now); e != nil {
		earnings = e
	}
	if in.Insider != nil {
		insider = sub(normalizeFlow(in.Insider.NetDollars, insiderBand))
	}
	if in.Institutional != nil {
		institutional = sub(normalizeFlow(in.Institutional.NetDollars, institutionalBand))
	}

	score := blend(news, earnings, insider, institutional)

	components := map[string]float64{}
	if news != nil {
		components["news"] = round3(*news)
	}
	if earnings != nil {
		components["earnings_tone"] = round3(*earnings)
	}
	if insider != nil {
		components["insider"] = round3(*insider)
	}
	if institutional != nil {
		components["institutional"] = round3(*institutional)
	}

	return Score{Score: round3(score), Components: components}
}

// scoreNews computes the decay-and-importance weighted news average, or nil
// when no item contributes weight.
func (s *SentimentScorer) scoreNews(items []research.NewsItem, now time.Time) *float64 {
	weightedSum := 0.0
	totalWeight := 0.0

	for _, item := range items {
		decay := halfLifeDecay(now.Sub(item.PublishedAt), newsHalfLifeDays)
		weight := clamp01(item.Importance) * decay
		if weight <= 0 {
			continue
		}
		weightedSum += toUnit(item.Sentiment) * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return nil
	}
	return sub(clamp01(weightedSum / totalWeight))
}

// scoreEarnings computes the decay-weighted earnings-tone average, or nil
// when no call contributes weight.
func (s *SentimentScorer) scoreEarnings(calls []research.EarningsCallSummary, now time.Time) *float64 {
	weightedSum := 0.0
	totalWeight := 0.0

	for _, call := range calls {
		weight := halfLifeDecay(now.Sub(call.HeldAt), earningsHalfLifeDays)
		if weight <= 0 {
			continue
		}
		weightedSum += toUnit(call.Tone) * weight
		totalWeight += weight
	}

	if totalWeight == 0 {
		return nil
	}
	return sub(clamp01(weightedSum / totalWeight))
}

// halfLifeDecay returns 0.5^(age/halfLife). Future-dated items get full
// weight rather than extrapolated growth.
func halfLifeDecay(age time.Duration, halfLifeDays float64) float64 {
	days := age.Hours() / 24
	if days <= 0 {
		return 1.0
	}
	return math.Pow(0.5, days/halfLifeDays)
}

// toUnit maps a [-1, 1] signal onto [0, 1]
func toUnit(v float64) float64 {
	return clamp01((v + 1) / 2)
}

// normalizeFlow maps a net dollar flow onto [0,1] against a fixed +/- band
func normalizeFlow(netDollars, band float64) float64 {
	return clamp01(0.5 + netDollars/(2*band))
}
