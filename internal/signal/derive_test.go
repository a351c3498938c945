package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthdesk/internal/model"
)

func candlesFromCloses(closes []float64, width int64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi, lo := open, c
		if c > open {
			hi = c
			lo = open
		}
		out[i] = model.Candle{
			Instrument: "R_100",
			Bucket:     int64(i) * width,
			Open:       open,
			High:       hi + 0.01,
			Low:        lo - 0.01,
			Close:      c,
		}
	}
	return out
}

func TestDerive_UptrendFromRisingCloses(t *testing.T) {
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	sig := Derive("R_100", 60, candlesFromCloses(closes, 60))

	assert.Equal(t, Uptrend, sig.Structure)
	assert.Equal(t, BiasBuy, sig.Bias)
	assert.True(t, sig.Indicators.Fast > sig.Indicators.Slow)
	assert.True(t, sig.Indicators.Slope > 0)
	assert.True(t, sig.Regular.Actionable)
}

func TestDerive_FlatShortHistoryIsUnclear(t *testing.T) {
	sig := Derive("R_100", 60, candlesFromCloses([]float64{1, 1, 1}, 60))

	assert.Equal(t, Unclear, sig.Structure)
	assert.Equal(t, BiasWait, sig.Bias)
	assert.False(t, sig.Regular.Actionable)
}

func TestDerive_CloseComparisonFallback(t *testing.T) {
	// 7 closes: too few for slope, enough for the 6-candle comparison
	sig := Derive("R_100", 60, candlesFromCloses([]float64{10, 9, 8, 7, 6, 5, 4}, 60))
	assert.Equal(t, Downtrend, sig.Structure)
	assert.Equal(t, BiasSell, sig.Bias)

	sig = Derive("R_100", 60, candlesFromCloses([]float64{4, 5, 6, 7, 8, 9, 10}, 60))
	assert.Equal(t, Uptrend, sig.Structure)
}

func TestDerive_EmptyCandles(t *testing.T) {
	sig := Derive("R_100", 60, nil)
	assert.Equal(t, Unclear, sig.Structure)
	assert.Equal(t, BiasWait, sig.Bias)
	assert.Zero(t, sig.TakeProfit)
	assert.Zero(t, sig.StopLoss)
}

func TestDerive_TargetStopBand(t *testing.T) {
	// Unit steps: volatility = 1, so risk = 6 and reward = 9
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 1 + float64(i)
	}
	sig := Derive("R_100", 60, candlesFromCloses(closes, 60))

	require.Equal(t, BiasBuy, sig.Bias)
	assert.InDelta(t, 21.0, sig.TakeProfit, 1e-9) // 12 + 9
	assert.InDelta(t, 6.0, sig.StopLoss, 1e-9)    // 12 - 6

	// Mirrored for a downtrend
	for i := range closes {
		closes[i] = 30 - float64(i)
	}
	sig = Derive("R_100", 60, candlesFromCloses(closes, 60))
	require.Equal(t, BiasSell, sig.Bias)
	assert.InDelta(t, 10.0, sig.TakeProfit, 1e-9) // 19 - 9
	assert.InDelta(t, 25.0, sig.StopLoss, 1e-9)   // 19 + 6
}

func TestDerive_SniperBullishEngulfing(t *testing.T) {
	candles := make([]model.Candle, 18)
	for i := 0; i < 16; i++ {
		close := 100 + 0.1*float64(i)
		candles[i] = model.Candle{
			Instrument: "R_100",
			Bucket:     int64(i) * 60,
			Open:       close - 0.05,
			High:       close + 0.02,
			Low:        close - 0.07,
			Close:      close,
		}
	}
	// Previous candle: bearish
	candles[16] = model.Candle{
		Instrument: "R_100", Bucket: 960,
		Open: 101.38, High: 101.40, Low: 101.28, Close: 101.30,
	}
	// Current candle: full bullish engulfing closing near the fast average
	candles[17] = model.Candle{
		Instrument: "R_100", Bucket: 1020,
		Open: 101.28, High: 101.42, Low: 101.26, Close: 101.40,
	}

	sig := Derive("R_100", 60, candles)

	require.Equal(t, Uptrend, sig.Structure)
	assert.True(t, sig.Sniper.Actionable, "sniper note: %s", sig.Sniper.Note)
	assert.Equal(t, int64(1020), sig.HighlightBucket)
}

func TestDerive_SniperWaitsWithoutPattern(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + 0.1*float64(i)
	}
	sig := Derive("R_100", 60, candlesFromCloses(closes, 60))

	assert.False(t, sig.Sniper.Actionable)
	assert.Zero(t, sig.HighlightBucket)
}

func TestDerive_Deterministic(t *testing.T) {
	closes := []float64{5, 7, 6, 8, 9, 7, 10, 11, 10, 12, 13, 12}
	candles := candlesFromCloses(closes, 30)

	a := Derive("R_100", 30, candles)
	b := Derive("R_100", 30, candles)
	assert.Equal(t, a, b)
}
