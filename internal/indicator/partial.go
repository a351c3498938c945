// Package indicator provides partial technical indicators over candle closes.
//
// "Partial" means best-effort: each indicator uses however much history is
// available instead of requiring a full fixed window, so downstream signal
// derivation can populate from the first few candles. Every function reports
// whether a value could be produced at all.
package indicator

import "math"

// Default lookbacks. Fast/slow mirror a classic 9/21 moving-average pair.
const (
	FastPeriod = 9
	SlowPeriod = 21
	VolPeriod  = 20

	slopeLookback  = 20
	slopeMinCloses = 8
)

// PartialSMA returns the average of the last min(period, len) closes.
// ok is false when there are no closes at all.
func PartialSMA(closes []float64, period int) (float64, bool) {
	n := len(closes)
	if n == 0 || period < 1 {
		return 0, false
	}
	if period > n {
		period = n
	}
	sum := 0.0
	for _, c := range closes[n-period:] {
		sum += c
	}
	return sum / float64(period), true
}

// PartialAbsDelta returns the average absolute close-to-close move over the
// last min(period, len-1) consecutive pairs. Used as a volatility proxy.
// ok is false with fewer than two closes.
func PartialAbsDelta(closes []float64, period int) (float64, bool) {
	n := len(closes)
	if n < 2 || period < 1 {
		return 0, false
	}
	if period > n-1 {
		period = n - 1
	}
	sum := 0.0
	for i := n - period; i < n; i++ {
		sum += math.Abs(closes[i] - closes[i-1])
	}
	return sum / float64(period), true
}

// Slope returns close[last] - close[last-min(20, len-1)].
// ok is false with fewer than 8 closes.
func Slope(closes []float64) (float64, bool) {
	n := len(closes)
	if n < slopeMinCloses {
		return 0, false
	}
	back := slopeLookback
	if back > n-1 {
		back = n - 1
	}
	return closes[n-1] - closes[n-1-back], true
}

// Snapshot bundles one derivation pass over a closes sequence. Each value is
// independently present depending on how much history exists.
type Snapshot struct {
	Fast       float64 `json:"fast"`
	Slow       float64 `json:"slow"`
	Volatility float64 `json:"volatility"`
	Slope      float64 `json:"slope"`

	HasFast       bool `json:"has_fast"`
	HasSlow       bool `json:"has_slow"`
	HasVolatility bool `json:"has_volatility"`
	HasSlope      bool `json:"has_slope"`
}

// Compute derives a full snapshot from the closes sequence (oldest→newest).
func Compute(closes []float64) Snapshot {
	var s Snapshot
	s.Fast, s.HasFast = PartialSMA(closes, FastPeriod)
	s.Slow, s.HasSlow = PartialSMA(closes, SlowPeriod)
	s.Volatility, s.HasVolatility = PartialAbsDelta(closes, VolPeriod)
	s.Slope, s.HasSlope = Slope(closes)
	return s
}
