package research

import (
	"math"
	"testing"
)

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func TestFillFromClosesDerivesMissingIndicators(t *testing.T) {
	tech := &Technicals{DailyCloses: risingCloses(30)}
	tech.FillFromCloses()

	if tech.Price == nil || *tech.Price != 129 {
		t.Fatalf("Price = %v, want 129", tech.Price)
	}
	if tech.RSI14 == nil || *tech.RSI14 < 99 {
		t.Errorf("RSI14 = %v, want ~100 for monotonic gains", tech.RSI14)
	}
	if tech.Momentum1M == nil {
		t.Fatal("Momentum1M should derive from 30 closes")
	}
	want := (129.0 - 108.0) / 108.0
	if math.Abs(*tech.Momentum1M-want) > 1e-12 {
		t.Errorf("Momentum1M = %v, want %v", *tech.Momentum1M, want)
	}
	if tech.MaxDrawdown1Y == nil || *tech.MaxDrawdown1Y != 0 {
		t.Errorf("MaxDrawdown1Y = %v, want 0 for a rising series", tech.MaxDrawdown1Y)
	}
	if len(tech.DailyReturns) != 29 {
		t.Errorf("DailyReturns length = %d, want 29", len(tech.DailyReturns))
	}

	// 30 closes cannot support a 200-day average or 3/6-month momentum
	if tech.MA200 != nil {
		t.Errorf("MA200 should stay nil, got %v", *tech.MA200)
	}
	if tech.Momentum3M != nil || tech.Momentum6M != nil {
		t.Error("long-horizon momentum should stay nil on a short history")
	}
}

func TestFillFromClosesKeepsDocumentValues(t *testing.T) {
	rsi := 55.0
	tech := &Technicals{RSI14: &rsi, DailyCloses: risingCloses(30)}
	tech.FillFromCloses()

	if *tech.RSI14 != 55.0 {
		t.Errorf("document-supplied RSI14 was overwritten: %v", *tech.RSI14)
	}
}

func TestFillFromClosesNoHistoryIsNoop(t *testing.T) {
	tech := &Technicals{}
	tech.FillFromCloses()

	if tech.Price != nil || tech.RSI14 != nil || len(tech.DailyReturns) != 0 {
		t.Errorf("nothing should derive without closes: %+v", tech)
	}
}
