package indicator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPartialSMA_UsesAvailableHistory(t *testing.T) {
	v, ok := PartialSMA([]float64{1, 2, 3}, 14)
	if !ok {
		t.Fatalf("expected a value from 3 closes")
	}
	if !almostEqual(v, 2.0) {
		t.Errorf("expected 2.0, got %v", v)
	}
}

func TestPartialSMA_FullWindow(t *testing.T) {
	closes := []float64{10, 20, 30, 40}
	v, ok := PartialSMA(closes, 2)
	if !ok || !almostEqual(v, 35) {
		t.Errorf("expected avg of last 2 = 35, got %v ok=%v", v, ok)
	}
}

func TestPartialSMA_Empty(t *testing.T) {
	if _, ok := PartialSMA(nil, 14); ok {
		t.Errorf("expected no value from empty closes")
	}
}

func TestPartialAbsDelta(t *testing.T) {
	v, ok := PartialAbsDelta([]float64{1, 2, 4}, 20)
	if !ok {
		t.Fatalf("expected a value from 3 closes")
	}
	if !almostEqual(v, 1.5) {
		t.Errorf("expected 1.5, got %v", v)
	}

	if _, ok := PartialAbsDelta([]float64{1}, 20); ok {
		t.Errorf("expected no value from a single close")
	}
}

func TestSlope_Thresholds(t *testing.T) {
	// 7 closes: below the minimum
	if _, ok := Slope([]float64{1, 2, 3, 4, 5, 6, 7}); ok {
		t.Errorf("expected no slope below 8 closes")
	}

	// 8 closes: lookback capped at len-1
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 9}
	v, ok := Slope(closes)
	if !ok || !almostEqual(v, 8) {
		t.Errorf("expected slope=8 (9-1), got %v ok=%v", v, ok)
	}

	// 25 closes: lookback is exactly 20
	long := make([]float64, 25)
	for i := range long {
		long[i] = float64(i)
	}
	v, ok = Slope(long)
	if !ok || !almostEqual(v, 20) {
		t.Errorf("expected slope=20, got %v ok=%v", v, ok)
	}
}

func TestCompute_PartialPresence(t *testing.T) {
	s := Compute([]float64{1, 1, 1})
	if !s.HasFast || !s.HasSlow || !s.HasVolatility {
		t.Errorf("expected fast/slow/volatility present from 3 closes: %+v", s)
	}
	if s.HasSlope {
		t.Errorf("expected slope absent below 8 closes")
	}
	if !almostEqual(s.Fast, 1) || !almostEqual(s.Volatility, 0) {
		t.Errorf("unexpected values: %+v", s)
	}
}
