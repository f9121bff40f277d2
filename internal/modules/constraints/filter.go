// Package constraints applies the hard exclusion rules that run before a
// symbol can be scored into a candidate: allowlist/denylist membership,
// computed red flags, correlation with the existing portfolio, and
// sector/industry concentration caps. All matching reasons accumulate; the
// filter never short-circuits on the first failure.
package constraints

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/research-trader/internal/modules/portfolio"
	"github.com/aristath/research-trader/internal/modules/research"
	"github.com/aristath/research-trader/pkg/formulas"
)

// Config holds the exclusion rule parameters. Captured into each cycle's
// analysis record so exclusions can be audited against the rules that
// produced them.
type Config struct {
	AllowedSymbols    []string `json:"allowed_symbols,omitempty"`
	DeniedSymbols     []string `json:"denied_symbols,omitempty"`
	DeniedSectors     []string `json:"denied_sectors,omitempty"`
	DeniedIndustries  []string `json:"denied_industries,omitempty"`
	MinMarketCap      float64  `json:"min_market_cap"`
	MinDollarVolume   float64  `json:"min_dollar_volume"`
	MaxDrawdown       float64  `json:"max_drawdown"`
	MaxCorrelation    float64  `json:"max_correlation"`
	MaxSectorWeight   float64  `json:"max_sector_weight"`
	MaxIndustryWeight float64  `json:"max_industry_weight"`
	OrderNotional     float64  `json:"order_notional"`
}

// Exclusion records why a symbol was removed from the cycle. A symbol is
// either ranked or excluded, never both.
type Exclusion struct {
	Symbol   string   `json:"symbol"`
	Sector   string   `json:"sector,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Reasons  []string `json:"reasons"`
}

// PortfolioContext carries the position state the portfolio-relative rules
// need: concentration math runs on market values, correlation on the return
// histories of held symbols.
type PortfolioContext struct {
	Positions []portfolio.Position
}

// Filter evaluates the exclusion rules
type Filter struct {
	cfg Config
	log zerolog.Logger
}

// NewFilter creates a new constraint filter
func NewFilter(cfg Config, log zerolog.Logger) *Filter {
	return &Filter{
		cfg: cfg,
		log: log.With().Str("component", "constraints").Logger(),
	}
}

// Config returns the rule configuration snapshot
func (f *Filter) Config() Config {
	return f.cfg
}

// Evaluate returns the exclusion record for a symbol, or nil when every
// rule passes. Rules run in fixed order and all matching reasons are
// collected.
func (f *Filter) Evaluate(data *research.Data, symbol string, port PortfolioContext) *Exclusion {
	profile := data.Profile(symbol)
	var reasons []string

	// 1. Explicit symbol allow/deny lists
	if len(f.cfg.AllowedSymbols) > 0 && !containsFold(f.cfg.AllowedSymbols, symbol) {
		reasons = append(reasons, "symbol not in allowlist")
	}
	if containsFold(f.cfg.DeniedSymbols, symbol) {
		reasons = append(reasons, "symbol denylisted")
	}

	// 2. Sector / industry deny lists
	if profile.Sector != "" && containsFold(f.cfg.DeniedSectors, profile.Sector) {
		reasons = append(reasons, fmt.Sprintf("sector denylisted: %s", profile.Sector))
	}
	if profile.Industry != "" && containsFold(f.cfg.DeniedIndustries, profile.Industry) {
		reasons = append(reasons, fmt.Sprintf("industry denylisted: %s", profile.Industry))
	}

	// 3. Computed red flags
	reasons = append(reasons, f.redFlags(data, symbol)...)

	// 4. Correlation with existing portfolio
	if reason := f.correlationReason(data, symbol, port); reason != "" {
		reasons = append(reasons, reason)
	}

	// 5. Post-inclusion sector / industry concentration
	reasons = append(reasons, f.concentrationReasons(data, profile, port)...)

	if len(reasons) == 0 {
		return nil
	}

	return &Exclusion{
		Symbol:   symbol,
		Sector:   profile.Sector,
		Industry: profile.Industry,
		Reasons:  reasons,
	}
}

// redFlags collects the hard risk signals that force exclusion
func (f *Filter) redFlags(data *research.Data, symbol string) []string {
	var reasons []string

	if fund := data.Fundamentals[symbol]; fund != nil && fund.MarketCap != nil {
		if *fund.MarketCap < f.cfg.MinMarketCap {
			reasons = append(reasons, fmt.Sprintf("market cap below floor (%.0f < %.0f)", *fund.MarketCap, f.cfg.MinMarketCap))
		}
	}

	if liq := data.Liquidity[symbol]; liq != nil && liq.AvgDollarVolume != nil {
		if *liq.AvgDollarVolume < f.cfg.MinDollarVolume {
			reasons = append(reasons, fmt.Sprintf("dollar volume below floor (%.0f < %.0f)", *liq.AvgDollarVolume, f.cfg.MinDollarVolume))
		}
	}

	if tech := data.Technicals[symbol]; tech != nil && tech.MaxDrawdown1Y != nil {
		if *tech.MaxDrawdown1Y > f.cfg.MaxDrawdown {
			reasons = append(reasons, fmt.Sprintf("max drawdown above ceiling (%.0f%% > %.0f%%)", *tech.MaxDrawdown1Y*100, f.cfg.MaxDrawdown*100))
		}
	}

	if risk := data.Risk[symbol]; risk != nil {
		if risk.LegalIssue {
			reasons = append(reasons, "red flag: legal issue")
		}
		if risk.AccountingAnomaly {
			reasons = append(reasons, "red flag: accounting anomaly")
		}
		if risk.RegulatoryOverhang {
			reasons = append(reasons, "red flag: regulatory overhang")
		}
		if risk.HighShortInterest {
			reasons = append(reasons, "red flag: high short interest")
		}
	}

	return reasons
}

// correlationReason checks the candidate's return history against the
// aggregate return history of held symbols. Missing return data on either
// side skips the rule rather than excluding.
func (f *Filter) correlationReason(data *research.Data, symbol string, port PortfolioContext) string {
	tech := data.Technicals[symbol]
	if tech == nil || len(tech.DailyReturns) < 2 || len(port.Positions) == 0 {
		return ""
	}

	portfolioReturns := aggregateReturns(data, port.Positions, symbol)
	if len(portfolioReturns) < 2 {
		return ""
	}

	corr := formulas.Correlation(tech.DailyReturns, portfolioReturns)
	if corr > f.cfg.MaxCorrelation {
		return fmt.Sprintf("portfolio correlation above ceiling (%.2f > %.2f)", corr, f.cfg.MaxCorrelation)
	}
	return ""
}

// aggregateReturns builds the value-weighted daily return series of the
// held symbols that have return histories, excluding the candidate itself.
func aggregateReturns(data *research.Data, positions []portfolio.Position, excludeSymbol string) []float64 {
	series := make([][]float64, 0, len(positions))
	weights := make([]float64, 0, len(positions))
	minLen := -1

	for _, p := range positions {
		if strings.EqualFold(p.Symbol, excludeSymbol) || p.MarketValue <= 0 {
			continue
		}
		tech := data.Technicals[strings.ToUpper(p.Symbol)]
		if tech == nil || len(tech.DailyReturns) < 2 {
			continue
		}
		series = append(series, tech.DailyReturns)
		weights = append(weights, p.MarketValue)
		if minLen < 0 || len(tech.DailyReturns) < minLen {
			minLen = len(tech.DailyReturns)
		}
	}

	if len(series) == 0 {
		return nil
	}

	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}

	aggregate := make([]float64, minLen)
	for i := range series {
		returns := series[i][len(series[i])-minLen:]
		for j, r := range returns {
			aggregate[j] += r * weights[i] / totalWeight
		}
	}
	return aggregate
}

// concentrationReasons applies the post-inclusion sector and industry caps:
// the candidate's hypothetical order notional joins both the group value
// and the total before comparison.
func (f *Filter) concentrationReasons(data *research.Data, profile research.SymbolProfile, port PortfolioContext) []string {
	total := portfolio.TotalMarketValue(port.Positions)
	if total <= 0 {
		// Empty portfolio: nothing to concentrate against
		return nil
	}

	var reasons []string

	if profile.Sector != "" && f.cfg.MaxSectorWeight > 0 {
		weight := groupWeight(data, port.Positions, profile.Sector, sectorOf, f.cfg.OrderNotional, total)
		if weight > f.cfg.MaxSectorWeight {
			reasons = append(reasons, fmt.Sprintf("sector weight above cap (%s: %.0f%% > %.0f%%)", profile.Sector, weight*100, f.cfg.MaxSectorWeight*100))
		}
	}

	if profile.Industry != "" && f.cfg.MaxIndustryWeight > 0 {
		weight := groupWeight(data, port.Positions, profile.Industry, industryOf, f.cfg.OrderNotional, total)
		if weight > f.cfg.MaxIndustryWeight {
			reasons = append(reasons, fmt.Sprintf("industry weight above cap (%s: %.0f%% > %.0f%%)", profile.Industry, weight*100, f.cfg.MaxIndustryWeight*100))
		}
	}

	return reasons
}

// groupWeight computes the post-inclusion fraction of portfolio value in
// the named group, with the hypothetical notional added to both sides.
func groupWeight(data *research.Data, positions []portfolio.Position, group string, groupOf func(*research.Data, string) string, notional, total float64) float64 {
	groupValue := 0.0
	for _, p := range positions {
		if strings.EqualFold(groupOf(data, strings.ToUpper(p.Symbol)), group) {
			groupValue += p.MarketValue
		}
	}
	return (groupValue + notional) / (total + notional)
}

func sectorOf(data *research.Data, symbol string) string {
	return data.Profile(symbol).Sector
}

func industryOf(data *research.Data, symbol string) string {
	return data.Profile(symbol).Industry
}

// containsFold reports case-insensitive membership
func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
