package scorers

import (
	"testing"
	"time"

	"github.com/aristath/research-trader/internal/modules/regime"
	"github.com/aristath/research-trader/internal/modules/research"
)

func fp(v float64) *float64 { return &v }

func assertInRange(t *testing.T, score float64) {
	t.Helper()
	if score < 0 || score > 1 {
		t.Errorf("score %v outside [0,1]", score)
	}
}

func TestFundamentalsScorer(t *testing.T) {
	scorer := NewFundamentalsScorer()

	tests := []struct {
		name string
		f    *research.Fundamentals
		want func(t *testing.T, s Score)
	}{
		{
			name: "nil input is neutral",
			f:    nil,
			want: func(t *testing.T, s Score) {
				if s.Score != Neutral {
					t.Errorf("want neutral 0.5, got %v", s.Score)
				}
			},
		},
		{
			name: "empty struct is neutral",
			f:    &research.Fundamentals{},
			want: func(t *testing.T, s Score) {
				if s.Score != Neutral {
					t.Errorf("want neutral 0.5, got %v", s.Score)
				}
			},
		},
		{
			name: "strong grower scores above neutral",
			f: &research.Fundamentals{
				RevenueGrowth:   fp(0.30),
				EPSGrowth:       fp(0.25),
				OperatingMargin: fp(0.22),
				NetMargin:       fp(0.18),
				DebtToEquity:    fp(0.3),
			},
			want: func(t *testing.T, s Score) {
				if s.Score <= 0.7 {
					t.Errorf("strong fundamentals should score high, got %v", s.Score)
				}
			},
		},
		{
			name: "heavy leverage drags the score",
			f: &research.Fundamentals{
				DebtToEquity: fp(3.5),
			},
			want: func(t *testing.T, s Score) {
				if s.Score != 0 {
					t.Errorf("only metric is bad leverage, want 0, got %v", s.Score)
				}
			},
		},
		{
			name: "growth only blends from present metrics",
			f: &research.Fundamentals{
				RevenueGrowth: fp(0.05),
			},
			want: func(t *testing.T, s Score) {
				if s.Score != 0.5 {
					t.Errorf("growth at midpoint should be 0.5, got %v", s.Score)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Calculate(tt.f)
			assertInRange(t, got.Score)
			tt.want(t, got)
		})
	}
}

func TestQualityScorerNeutralOnMissing(t *testing.T) {
	scorer := NewQualityScorer()

	if got := scorer.Calculate(nil); got.Score != Neutral {
		t.Errorf("nil fundamentals should be neutral, got %v", got.Score)
	}
	if got := scorer.Calculate(&research.Fundamentals{}); got.Score != Neutral {
		t.Errorf("empty fundamentals should be neutral, got %v", got.Score)
	}

	strong := scorer.Calculate(&research.Fundamentals{
		ROIC:     fp(0.25),
		ROE:      fp(0.30),
		FCFYield: fp(0.09),
	})
	assertInRange(t, strong.Score)
	if strong.Score != 1.0 {
		t.Errorf("metrics above every ceiling should saturate at 1, got %v", strong.Score)
	}
}

func TestValuationScorer(t *testing.T) {
	scorer := NewValuationScorer()

	tests := []struct {
		name string
		f    *research.Fundamentals
		want float64
	}{
		{name: "missing is neutral", f: &research.Fundamentals{}, want: Neutral},
		{name: "cheap multiples score 1", f: &research.Fundamentals{PERatio: fp(8), PSRatio: fp(0.8), EVToEBITDA: fp(6)}, want: 1.0},
		{name: "expensive multiples score 0", f: &research.Fundamentals{PERatio: fp(60), PSRatio: fp(15), EVToEBITDA: fp(40)}, want: 0.0},
		{name: "negative pe treated as absent", f: &research.Fundamentals{PERatio: fp(-12)}, want: Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Calculate(tt.f)
			assertInRange(t, got.Score)
			if got.Score != tt.want {
				t.Errorf("want %v, got %v", tt.want, got.Score)
			}
		})
	}
}

func TestTechnicalsScorer(t *testing.T) {
	scorer := NewTechnicalsScorer()

	if got := scorer.Calculate(nil); got.Score != Neutral {
		t.Errorf("nil technicals should be neutral, got %v", got.Score)
	}

	// RSI at exactly 50 is perfectly neutral mean-reversion positioning
	balanced := scorer.Calculate(&research.Technicals{RSI14: fp(50)})
	if balanced.Score != 1.0 {
		t.Errorf("RSI 50 alone should score 1.0 on closeness, got %v", balanced.Score)
	}

	// Price above its 200-day average scores the trend sub-score up
	trending := scorer.Calculate(&research.Technicals{
		Price: fp(115),
		MA200: fp(100),
	})
	assertInRange(t, trending.Score)
	if trending.Score != 1.0 {
		t.Errorf("15%% above MA200 saturates the trend sub-score, got %v", trending.Score)
	}
}

func TestSentimentScorerDecay(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	scorer := NewSentimentScorerAt(now)

	if got := scorer.Calculate(SentimentInputs{}); got.Score != Neutral {
		t.Errorf("no inputs should be neutral, got %v", got.Score)
	}

	// A fresh positive item should outweigh a stale negative one of equal
	// importance: after four half-lives the old item carries 1/16 weight.
	mixed := scorer.Calculate(SentimentInputs{
		News: []research.NewsItem{
			{Sentiment: 1.0, Importance: 1.0, PublishedAt: now.Add(-2 * time.Hour)},
			{Sentiment: -1.0, Importance: 1.0, PublishedAt: now.AddDate(0, 0, -28)},
		},
	})
	assertInRange(t, mixed.Score)
	if mixed.Score <= 0.8 {
		t.Errorf("fresh positive news should dominate, got %v", mixed.Score)
	}

	// Insider flow saturates at the band edge
	bullishInsiders := scorer.Calculate(SentimentInputs{
		Insider: &research.InsiderActivity{NetDollars: 2_000_000},
	})
	if bullishInsiders.Score != 1.0 {
		t.Errorf("insider flow beyond +1M band should saturate, got %v", bullishInsiders.Score)
	}
}

func TestMacroScorerRegimeScaling(t *testing.T) {
	scorer := NewMacroScorer()

	macro := research.MacroData{
		VolatilityIndex: fp(20),
		RiskOnScore:     fp(0.7),
		TrendDirection:  research.TrendUp,
	}

	neutral := scorer.Calculate(macro, regime.RegimeNeutral)
	highVol := scorer.Calculate(macro, regime.RegimeHighVol)
	riskOn := scorer.Calculate(macro, regime.RegimeRiskOn)

	assertInRange(t, neutral.Score)
	if highVol.Score >= neutral.Score {
		t.Errorf("high_vol should discount macro: neutral %v, high_vol %v", neutral.Score, highVol.Score)
	}
	if riskOn.Score <= neutral.Score {
		t.Errorf("risk_on should boost macro: neutral %v, risk_on %v", neutral.Score, riskOn.Score)
	}

	if got := scorer.Calculate(research.MacroData{}, regime.RegimeNeutral); got.Score != Neutral {
		t.Errorf("empty macro should be neutral, got %v", got.Score)
	}
}

func TestPeerScorer(t *testing.T) {
	scorer := NewPeerScorer()

	data := research.NewData()
	for symbol, growth := range map[string]float64{"AAA": 0.10, "BBB": 0.20, "CCC": 0.30} {
		data.Profiles[symbol] = &research.SymbolProfile{Symbol: symbol, Sector: "Technology"}
		g := growth
		data.Fundamentals[symbol] = &research.Fundamentals{RevenueGrowth: &g}
	}

	medians := scorer.MediansBySector(data, []string{"AAA", "BBB", "CCC"})
	tech, ok := medians["Technology"]
	if !ok {
		t.Fatal("expected Technology sector medians")
	}
	if tech.RevenueGrowth == nil || *tech.RevenueGrowth != 0.20 {
		t.Fatalf("expected median revenue growth 0.20, got %+v", tech.RevenueGrowth)
	}

	above := scorer.Calculate(data.Fundamentals["CCC"], &tech)
	below := scorer.Calculate(data.Fundamentals["AAA"], &tech)
	at := scorer.Calculate(data.Fundamentals["BBB"], &tech)

	assertInRange(t, above.Score)
	if above.Score <= at.Score || below.Score >= at.Score {
		t.Errorf("peer ordering wrong: above %v, at %v, below %v", above.Score, at.Score, below.Score)
	}
	if at.Score != Neutral {
		t.Errorf("at-median symbol should be neutral, got %v", at.Score)
	}

	// Single-symbol sectors cannot be compared
	if got := scorer.Calculate(data.Fundamentals["AAA"], &PeerMedians{PeerCount: 1}); got.Score != Neutral {
		t.Errorf("lone symbol should be neutral, got %v", got.Score)
	}
}
