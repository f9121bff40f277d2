package formulas

import (
	"math"
)

// CalculateSharpeRatio calculates the annualized Sharpe Ratio
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Mean Return - Risk-free Rate) / Standard Deviation of Returns
//	Annualized: Sharpe x sqrt(periodsPerYear)
//
// Args:
//
//	returns: Array of periodic returns
//	riskFreeRate: Risk-free rate (annual, as decimal, e.g., 0.02 for 2%)
//	periodsPerYear: Number of periods per year (252 for daily, 12 for monthly)
//
// Returns:
//
//	Sharpe ratio or nil if insufficient data
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	meanReturn := Mean(returns)

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)

	sharpe := (meanReturn - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualized
}

// WinRate returns the fraction of returns that are >= 0, or nil for an
// empty input.
func WinRate(returns []float64) *float64 {
	if len(returns) == 0 {
		return nil
	}

	wins := 0
	for _, r := range returns {
		if r >= 0 {
			wins++
		}
	}

	rate := float64(wins) / float64(len(returns))
	return &rate
}
