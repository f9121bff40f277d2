// Package research defines the per-cycle research data snapshot: structured
// per-symbol facts loaded from the data store plus shared macro data. The
// snapshot is immutable for the duration of a cycle; every field that may be
// absent in the source data is a pointer, and scorers treat nil as "unknown".
package research

import (
	"sort"
	"time"

	"github.com/aristath/research-trader/pkg/formulas"
)

// TrendDirection is the coarse macro trend signal
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// SymbolProfile identifies a symbol and its sector/industry classification
type SymbolProfile struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// Fundamentals holds per-symbol fundamental metrics. All metrics are
// fractions (0.15 = 15%) except the valuation multiples and market cap.
type Fundamentals struct {
	RevenueGrowth   *float64 `json:"revenue_growth,omitempty"`
	EPSGrowth       *float64 `json:"eps_growth,omitempty"`
	OperatingMargin *float64 `json:"operating_margin,omitempty"`
	NetMargin       *float64 `json:"net_margin,omitempty"`
	DebtToEquity    *float64 `json:"debt_to_equity,omitempty"`
	ROIC            *float64 `json:"roic,omitempty"`
	ROE             *float64 `json:"roe,omitempty"`
	FCFYield        *float64 `json:"fcf_yield,omitempty"`
	PERatio         *float64 `json:"pe_ratio,omitempty"`
	PSRatio         *float64 `json:"ps_ratio,omitempty"`
	EVToEBITDA      *float64 `json:"ev_to_ebitda,omitempty"`
	MarketCap       *float64 `json:"market_cap,omitempty"`
}

// Technicals holds per-symbol technical indicators, either precomputed by
// the data-loading collaborator or derived from DailyCloses at load time.
type Technicals struct {
	RSI14         *float64  `json:"rsi_14,omitempty"`
	Momentum1M    *float64  `json:"momentum_1m,omitempty"`
	Momentum3M    *float64  `json:"momentum_3m,omitempty"`
	Momentum6M    *float64  `json:"momentum_6m,omitempty"`
	Price         *float64  `json:"price,omitempty"`
	MA200         *float64  `json:"ma_200,omitempty"`
	MaxDrawdown1Y *float64  `json:"max_drawdown_1y,omitempty"`
	DailyReturns  []float64 `json:"daily_returns,omitempty"` // most recent last
	DailyCloses   []float64 `json:"daily_closes,omitempty"`  // most recent last
}

// Trading-day bar counts for indicator derivation
const (
	barsPerMonth    = 21
	barsPerQuarter  = 63
	barsPerHalfYear = 126
	barsPerYear     = 252
)

// FillFromCloses derives any missing indicator from the daily close history.
// Fields supplied by the document are never overwritten, and fields the
// history is too short to support stay nil.
func (t *Technicals) FillFromCloses() {
	if len(t.DailyCloses) == 0 {
		return
	}

	closes := t.DailyCloses
	if t.Price == nil {
		latest := closes[len(closes)-1]
		t.Price = &latest
	}
	if t.RSI14 == nil {
		t.RSI14 = formulas.CalculateRSI(closes, 14)
	}
	if t.MA200 == nil {
		t.MA200 = formulas.CalculateSMA(closes, 200)
	}
	if t.Momentum1M == nil {
		t.Momentum1M = formulas.CalculateMomentum(closes, barsPerMonth)
	}
	if t.Momentum3M == nil {
		t.Momentum3M = formulas.CalculateMomentum(closes, barsPerQuarter)
	}
	if t.Momentum6M == nil {
		t.Momentum6M = formulas.CalculateMomentum(closes, barsPerHalfYear)
	}
	if t.MaxDrawdown1Y == nil {
		window := closes
		if len(window) > barsPerYear {
			window = window[len(window)-barsPerYear:]
		}
		t.MaxDrawdown1Y = formulas.CalculateMaxDrawdown(window)
	}
	if len(t.DailyReturns) == 0 {
		t.DailyReturns = formulas.CalculateReturns(closes)
	}
}

// NewsItem is a single scored news article
type NewsItem struct {
	Headline    string    `json:"headline"`
	Sentiment   float64   `json:"sentiment"`  // [-1, 1]
	Importance  float64   `json:"importance"` // [0, 1]
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source,omitempty"`
}

// EarningsCallSummary is the scored tone of one earnings call
type EarningsCallSummary struct {
	Quarter    string    `json:"quarter"`
	Tone       float64   `json:"tone"` // [-1, 1]
	HeldAt     time.Time `json:"held_at"`
	Highlights []string  `json:"highlights,omitempty"`
}

// InsiderActivity summarizes recent insider transactions
type InsiderActivity struct {
	NetDollars float64 `json:"net_dollars"` // buys minus sells
	BuyCount   int     `json:"buy_count"`
	SellCount  int     `json:"sell_count"`
}

// InstitutionalFlow summarizes recent institutional position changes
type InstitutionalFlow struct {
	NetDollars    float64 `json:"net_dollars"`
	HoldersChange int     `json:"holders_change"`
}

// LiquidityMetrics holds tradability metrics
type LiquidityMetrics struct {
	AvgDollarVolume *float64 `json:"avg_dollar_volume,omitempty"`
	BidAskSpreadPct *float64 `json:"bid_ask_spread_pct,omitempty"`
}

// RiskFlags holds hard qualitative risk signals
type RiskFlags struct {
	LegalIssue         bool     `json:"legal_issue"`
	AccountingAnomaly  bool     `json:"accounting_anomaly"`
	RegulatoryOverhang bool     `json:"regulatory_overhang"`
	HighShortInterest  bool     `json:"high_short_interest"`
	ShortInterestPct   *float64 `json:"short_interest_pct,omitempty"`
}

// MacroData holds shared macro-market signals for the cycle
type MacroData struct {
	VolatilityIndex *float64       `json:"volatility_index,omitempty"`
	RiskOnScore     *float64       `json:"risk_on_score,omitempty"` // [0, 1]
	TrendDirection  TrendDirection `json:"trend_direction,omitempty"`
}

// Data is the immutable per-cycle research snapshot
type Data struct {
	AsOf          time.Time                        `json:"as_of"`
	Profiles      map[string]*SymbolProfile        `json:"profiles"`
	Fundamentals  map[string]*Fundamentals         `json:"fundamentals"`
	Technicals    map[string]*Technicals           `json:"technicals"`
	News          map[string][]NewsItem            `json:"news"`
	Earnings      map[string][]EarningsCallSummary `json:"earnings"`
	Insider       map[string]*InsiderActivity      `json:"insider"`
	Institutional map[string]*InstitutionalFlow    `json:"institutional"`
	Liquidity     map[string]*LiquidityMetrics     `json:"liquidity"`
	Risk          map[string]*RiskFlags            `json:"risk"`
	Macro         MacroData                        `json:"macro"`
	Sources       map[string][]string              `json:"sources"`
}

// NewData creates an empty snapshot with all maps initialized
func NewData() *Data {
	return &Data{
		AsOf:          time.Now(),
		Profiles:      make(map[string]*SymbolProfile),
		Fundamentals:  make(map[string]*Fundamentals),
		Technicals:    make(map[string]*Technicals),
		News:          make(map[string][]NewsItem),
		Earnings:      make(map[string][]EarningsCallSummary),
		Insider:       make(map[string]*InsiderActivity),
		Institutional: make(map[string]*InstitutionalFlow),
		Liquidity:     make(map[string]*LiquidityMetrics),
		Risk:          make(map[string]*RiskFlags),
		Sources:       make(map[string][]string),
	}
}

// Symbols returns the sorted union of symbols across all data categories
func (d *Data) Symbols() []string {
	seen := make(map[string]bool)
	for sym := range d.Profiles {
		seen[sym] = true
	}
	for sym := range d.Fundamentals {
		seen[sym] = true
	}
	for sym := range d.Technicals {
		seen[sym] = true
	}
	for sym := range d.News {
		seen[sym] = true
	}
	for sym := range d.Earnings {
		seen[sym] = true
	}
	for sym := range d.Insider {
		seen[sym] = true
	}
	for sym := range d.Institutional {
		seen[sym] = true
	}
	for sym := range d.Liquidity {
		seen[sym] = true
	}
	for sym := range d.Risk {
		seen[sym] = true
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Profile returns the profile for a symbol, or a bare profile carrying just
// the symbol when none was loaded.
func (d *Data) Profile(symbol string) SymbolProfile {
	if p, ok := d.Profiles[symbol]; ok && p != nil {
		return *p
	}
	return SymbolProfile{Symbol: symbol}
}

// PresentCategories counts how many of the eight per-symbol data categories
// are present for the symbol. Used for the data-quality signal.
func (d *Data) PresentCategories(symbol string) int {
	present := 0
	if d.Fundamentals[symbol] != nil {
		present++
	}
	if d.Technicals[symbol] != nil {
		present++
	}
	if len(d.News[symbol]) > 0 {
		present++
	}
	if len(d.Earnings[symbol]) > 0 {
		present++
	}
	if d.Insider[symbol] != nil {
		present++
	}
	if d.Institutional[symbol] != nil {
		present++
	}
	if d.Liquidity[symbol] != nil {
		present++
	}
	if d.Risk[symbol] != nil {
		present++
	}
	return present
}

// CategoryCount is the number of per-symbol data categories tracked for
// data-quality purposes.
const CategoryCount = 8
