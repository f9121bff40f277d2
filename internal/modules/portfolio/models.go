// Package portfolio tracks current brokerage positions. The research engine
// reads them for sector/industry concentration and correlation checks only;
// order placement is out of scope.
package portfolio

import "time"

// Position represents a current position in a security
type Position struct {
	Symbol      string    `json:"symbol"`
	Quantity    float64   `json:"quantity"`
	MarketValue float64   `json:"market_value"`
	CostBasis   float64   `json:"cost_basis"`
	LastUpdated time.Time `json:"last_updated"`
}

// TotalMarketValue sums the market value of all positions
func TotalMarketValue(positions []Position) float64 {
	total := 0.0
	for _, p := range positions {
		total += p.MarketValue
	}
	return total
}
