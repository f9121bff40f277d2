package constraints

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/portfolio"
	"github.com/aristath/research-trader/internal/modules/research"
)

func f(v float64) *float64 { return &v }

func testConfig() Config {
	return Config{
		MinMarketCap:      250_000_000,
		MinDollarVolume:   1_000_000,
		MaxDrawdown:       0.60,
		MaxCorrelation:    0.85,
		MaxSectorWeight:   0.30,
		MaxIndustryWeight: 0.20,
		OrderNotional:     1000,
	}
}

func newTestFilter(cfg Config) *Filter {
	return NewFilter(cfg, zerolog.Nop())
}

func snapshot() *research.Data {
	data := research.NewData()
	data.Profiles["AAA"] = &research.SymbolProfile{Symbol: "AAA", Sector: "Technology", Industry: "Software"}
	data.Fundamentals["AAA"] = &research.Fundamentals{MarketCap: f(5_000_000_000)}
	data.Liquidity["AAA"] = &research.LiquidityMetrics{AvgDollarVolume: f(50_000_000)}
	data.Technicals["AAA"] = &research.Technicals{MaxDrawdown1Y: f(0.25)}
	return data
}

func TestEvaluatePassesCleanSymbol(t *testing.T) {
	filter := newTestFilter(testConfig())

	excl := filter.Evaluate(snapshot(), "AAA", PortfolioContext{})
	if excl != nil {
		t.Fatalf("expected no exclusion, got reasons %v", excl.Reasons)
	}
}

func TestEvaluateAllowlist(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedSymbols = []string{"BBB"}
	filter := newTestFilter(cfg)

	excl := filter.Evaluate(snapshot(), "AAA", PortfolioContext{})
	if excl == nil {
		t.Fatal("expected exclusion for symbol outside allowlist")
	}
	if !hasReason(excl, "allowlist") {
		t.Errorf("missing allowlist reason, got %v", excl.Reasons)
	}
}

func TestEvaluateDenylists(t *testing.T) {
	cfg := testConfig()
	cfg.DeniedSymbols = []string{"aaa"} // case-insensitive
	cfg.DeniedSectors = []string{"TECHNOLOGY"}
	cfg.DeniedIndustries = []string{"Software"}
	filter := newTestFilter(cfg)

	excl := filter.Evaluate(snapshot(), "AAA", PortfolioContext{})
	if excl == nil {
		t.Fatal("expected exclusion")
	}
	if len(excl.Reasons) != 3 {
		t.Errorf("expected all three denylist reasons to accumulate, got %v", excl.Reasons)
	}
}

func TestEvaluateRedFlags(t *testing.T) {
	data := snapshot()
	data.Fundamentals["AAA"].MarketCap = f(100_000_000)
	data.Liquidity["AAA"].AvgDollarVolume = f(500_000)
	data.Technicals["AAA"].MaxDrawdown1Y = f(0.70)
	data.Risk["AAA"] = &research.RiskFlags{LegalIssue: true, HighShortInterest: true}

	filter := newTestFilter(testConfig())
	excl := filter.Evaluate(data, "AAA", PortfolioContext{})
	if excl == nil {
		t.Fatal("expected exclusion")
	}
	if len(excl.Reasons) != 5 {
		t.Errorf("expected 5 accumulated red-flag reasons, got %d: %v", len(excl.Reasons), excl.Reasons)
	}
}

func TestEvaluateDrawdownAtCeilingPasses(t *testing.T) {
	data := snapshot()
	data.Technicals["AAA"].MaxDrawdown1Y = f(0.60)

	filter := newTestFilter(testConfig())
	if excl := filter.Evaluate(data, "AAA", PortfolioContext{}); excl != nil {
		t.Errorf("drawdown exactly at ceiling should pass, got %v", excl.Reasons)
	}
}

func TestEvaluateCorrelation(t *testing.T) {
	data := snapshot()
	returns := []float64{0.01, -0.02, 0.015, 0.005, -0.01, 0.02, -0.005, 0.01}
	data.Technicals["AAA"].DailyReturns = returns
	data.Technicals["HELD"] = &research.Technicals{DailyReturns: returns} // identical, corr = 1

	port := PortfolioContext{Positions: []portfolio.Position{
		{Symbol: "HELD", MarketValue: 10000},
	}}

	filter := newTestFilter(testConfig())
	excl := filter.Evaluate(data, "AAA", port)
	if excl == nil {
		t.Fatal("expected exclusion for perfectly correlated candidate")
	}
	if !hasReason(excl, "correlation") {
		t.Errorf("missing correlation reason, got %v", excl.Reasons)
	}
}

func TestEvaluateCorrelationSkippedWithoutReturns(t *testing.T) {
	data := snapshot()
	data.Technicals["HELD"] = &research.Technicals{DailyReturns: []float64{0.01, 0.02, 0.01}}

	port := PortfolioContext{Positions: []portfolio.Position{
		{Symbol: "HELD", MarketValue: 10000},
	}}

	filter := newTestFilter(testConfig())
	if excl := filter.Evaluate(data, "AAA", port); excl != nil {
		t.Errorf("candidate without return history should skip correlation, got %v", excl.Reasons)
	}
}

func TestEvaluateSectorConcentration(t *testing.T) {
	// 700 in the candidate's sector, 300 elsewhere, order notional 1000:
	// (700+1000)/(1000+1000) = 0.85 exceeds a 0.5 cap.
	data := snapshot()
	data.Profiles["HELD1"] = &research.SymbolProfile{Symbol: "HELD1", Sector: "Technology", Industry: "Hardware"}
	data.Profiles["HELD2"] = &research.SymbolProfile{Symbol: "HELD2", Sector: "Utilities", Industry: "Electric"}

	cfg := testConfig()
	cfg.MaxSectorWeight = 0.5
	cfg.MaxIndustryWeight = 0.9
	filter := newTestFilter(cfg)

	port := PortfolioContext{Positions: []portfolio.Position{
		{Symbol: "HELD1", MarketValue: 700},
		{Symbol: "HELD2", MarketValue: 300},
	}}

	excl := filter.Evaluate(data, "AAA", port)
	if excl == nil {
		t.Fatal("expected sector concentration exclusion")
	}
	if !hasReason(excl, "sector weight") {
		t.Errorf("missing sector weight reason, got %v", excl.Reasons)
	}
}

func TestEvaluateFreshSectorAtCapPasses(t *testing.T) {
	// No held value in the candidate's sector: 1000/(1000+1000) = 0.5 is
	// not strictly above a 0.5 cap.
	data := snapshot()
	data.Profiles["HELD"] = &research.SymbolProfile{Symbol: "HELD", Sector: "Utilities", Industry: "Electric"}

	cfg := testConfig()
	cfg.MaxSectorWeight = 0.5
	cfg.MaxIndustryWeight = 0.5
	filter := newTestFilter(cfg)

	port := PortfolioContext{Positions: []portfolio.Position{
		{Symbol: "HELD", MarketValue: 1000},
	}}

	if excl := filter.Evaluate(data, "AAA", port); excl != nil {
		t.Errorf("weight exactly at cap should pass, got %v", excl.Reasons)
	}
}

func TestEvaluateConcentrationSkippedOnEmptyPortfolio(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSectorWeight = 0.01
	filter := newTestFilter(cfg)

	if excl := filter.Evaluate(snapshot(), "AAA", PortfolioContext{}); excl != nil {
		t.Errorf("empty portfolio should skip concentration, got %v", excl.Reasons)
	}
}

func hasReason(excl *Exclusion, substr string) bool {
	for _, r := range excl.Reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}
