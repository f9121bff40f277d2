package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Args:
//
//	closes: Array of closing prices
//	length: RSI period (typically 14)
//
// Returns:
//
//	Current RSI value (0-100) or nil if insufficient data
func CalculateRSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}

	rsi := talib.Rsi(closes, length)

	if len(rsi) > 0 && !math.IsNaN(rsi[len(rsi)-1]) {
		result := rsi[len(rsi)-1]
		return &result
	}

	return nil
}

// CalculateSMA calculates the simple moving average over the given period
// and returns the latest value, or nil if insufficient data.
func CalculateSMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}

	sma := talib.Sma(closes, period)

	if len(sma) > 0 && !math.IsNaN(sma[len(sma)-1]) {
		result := sma[len(sma)-1]
		return &result
	}

	return nil
}

// CalculateMomentum calculates the fractional price change over the last
// `periods` bars: (latest - past) / past. Returns nil if insufficient data.
func CalculateMomentum(closes []float64, periods int) *float64 {
	if len(closes) < periods+1 || periods <= 0 {
		return nil
	}

	past := closes[len(closes)-1-periods]
	if past == 0 {
		return nil
	}

	result := (closes[len(closes)-1] - past) / past
	return &result
}
