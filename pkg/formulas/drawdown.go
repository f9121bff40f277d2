package formulas

// CalculateMaxDrawdown calculates the maximum drawdown from a price series
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Args:
//
//	prices: Array of prices (daily, adjusted close)
//
// Returns:
//
//	Maximum drawdown as positive percentage (0.25 = 25% loss from peak) or nil
func CalculateMaxDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}

		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CalculateCurrentDrawdown calculates the drawdown of the latest price from
// the series peak, as a positive fraction. Returns nil for insufficient data.
func CalculateCurrentDrawdown(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	peak := prices[0]
	for _, price := range prices {
		if price > peak {
			peak = price
		}
	}

	if peak <= 0 {
		return nil
	}

	current := (peak - prices[len(prices)-1]) / peak
	return &current
}
