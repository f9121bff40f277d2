package formulas

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"empty", []float64{}, 0},
		{"single", []float64{5}, 5},
		{"mixed", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.data); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("Mean() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{"odd count", []float64{3, 1, 2}, 2},
		{"even count", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.data); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Median() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	data := []float64{3, 1, 2}
	Median(data)
	if data[0] != 3 || data[1] != 1 || data[2] != 2 {
		t.Errorf("input mutated: %v", data)
	}
}

func TestCalculateReturns(t *testing.T) {
	prices := []float64{100, 110, 99}
	returns := CalculateReturns(prices)

	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-0.10) > 1e-12 {
		t.Errorf("returns[0] = %v, want 0.10", returns[0])
	}
	if math.Abs(returns[1]-(-0.10)) > 1e-12 {
		t.Errorf("returns[1] = %v, want -0.10", returns[1])
	}

	if got := CalculateReturns([]float64{100}); len(got) != 0 {
		t.Errorf("single price should yield no returns, got %v", got)
	}
}

func TestCorrelation(t *testing.T) {
	up := []float64{0.01, 0.02, 0.03, 0.04}
	down := []float64{0.04, 0.03, 0.02, 0.01}

	if got := Correlation(up, up); math.Abs(got-1) > 1e-9 {
		t.Errorf("self correlation = %v, want 1", got)
	}
	if got := Correlation(up, down); math.Abs(got-(-1)) > 1e-9 {
		t.Errorf("inverse correlation = %v, want -1", got)
	}
	if got := Correlation(up, []float64{0.01}); got != 0 {
		t.Errorf("insufficient overlap should be 0, got %v", got)
	}
	// Flat series has zero variance; correlation is undefined, reported as 0
	if got := Correlation(up, []float64{0.01, 0.01, 0.01, 0.01}); got != 0 {
		t.Errorf("flat series correlation = %v, want 0", got)
	}
}

func TestCorrelationAlignsTails(t *testing.T) {
	long := []float64{0.5, -0.5, 0.01, 0.02, 0.03, 0.04}
	short := []float64{0.01, 0.02, 0.03, 0.04}

	if got := Correlation(long, short); math.Abs(got-1) > 1e-9 {
		t.Errorf("tail-aligned correlation = %v, want 1", got)
	}
}

func TestCalculateSharpeRatio(t *testing.T) {
	if got := CalculateSharpeRatio([]float64{0.01}, 0, 252); got != nil {
		t.Errorf("single return should yield nil, got %v", *got)
	}
	if got := CalculateSharpeRatio([]float64{0.01, 0.01}, 0, 252); got != nil {
		t.Errorf("zero stddev should yield nil, got %v", *got)
	}

	got := CalculateSharpeRatio([]float64{0.01, 0.02, 0.03}, 0, 252)
	if got == nil {
		t.Fatal("expected a value")
	}
	// mean 0.02, stddev 0.01 (sample), sharpe 2 * sqrt(252)
	want := 2 * math.Sqrt(252)
	if math.Abs(*got-want) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", *got, want)
	}
}

func TestWinRate(t *testing.T) {
	if got := WinRate(nil); got != nil {
		t.Errorf("empty input should yield nil, got %v", *got)
	}

	got := WinRate([]float64{0.1, 0, -0.1, 0.05})
	if got == nil {
		t.Fatal("expected a value")
	}
	// Zero counts as a win
	if math.Abs(*got-0.75) > 1e-12 {
		t.Errorf("win rate = %v, want 0.75", *got)
	}
}

func TestCalculateMaxDrawdown(t *testing.T) {
	if got := CalculateMaxDrawdown([]float64{100}); got != nil {
		t.Errorf("single price should yield nil, got %v", *got)
	}

	got := CalculateMaxDrawdown([]float64{100, 120, 90, 110})
	if got == nil {
		t.Fatal("expected a value")
	}
	// Peak 120, trough 90 is a 25% drawdown
	if math.Abs(*got-0.25) > 1e-12 {
		t.Errorf("max drawdown = %v, want 0.25", *got)
	}

	got = CalculateMaxDrawdown([]float64{100, 110, 120})
	if got == nil || *got != 0 {
		t.Errorf("monotonic prices should yield 0, got %v", got)
	}
}
