package signal

import (
	"fmt"
	"math"

	"synthdesk/internal/indicator"
	"synthdesk/internal/model"
)

const (
	structMinCloses  = 10 // indicator-based classification threshold
	compareLookback  = 6  // close-vs-close fallback lookback
	rangeWindow      = 30 // high/low window for the regular plan
	sniperMinCandles = 18

	// Relative fallbacks used when volatility is unavailable or near zero.
	bufferRatio  = 0.00002
	safeVolRatio = 0.000005
)

// Derive computes a fresh Signal from the candle history for one instrument
// and timeframe. It is a pure function: no hidden state, no side effects.
func Derive(instrument string, timeframe int, candles []model.Candle) Signal {
	sig := Signal{
		Instrument: instrument,
		Timeframe:  timeframe,
		Structure:  Unclear,
		Bias:       BiasWait,
		Regular:    EntryPlan{Note: "waiting for data"},
		Sniper:     EntryPlan{Note: "waiting for data"},
	}
	if len(candles) == 0 {
		return sig
	}

	closes := make([]float64, len(candles))
	for i := range candles {
		closes[i] = candles[i].Close
	}
	snap := indicator.Compute(closes)
	sig.Indicators = snap

	sig.Structure = classify(closes, snap)
	sig.Bias = biasFor(sig.Structure)
	sig.Regular = regularPlan(candles, closes, snap, sig.Structure)
	sig.Sniper, sig.HighlightBucket = sniperPlan(candles, snap, sig.Structure)
	sig.TakeProfit, sig.StopLoss = targetStop(closes, snap, sig.Bias)
	return sig
}

// classify resolves market structure in priority order: full indicator set,
// then a 6-candle close comparison, then Unclear.
func classify(closes []float64, snap indicator.Snapshot) Structure {
	n := len(closes)

	if snap.HasFast && snap.HasSlow && snap.HasSlope && n >= structMinCloses {
		switch {
		case snap.Fast > snap.Slow && snap.Slope > 0:
			return Uptrend
		case snap.Fast < snap.Slow && snap.Slope < 0:
			return Downtrend
		default:
			return Ranging
		}
	}

	if n >= compareLookback {
		ref := closes[n-compareLookback]
		last := closes[n-1]
		switch {
		case last > ref:
			return Uptrend
		case last < ref:
			return Downtrend
		default:
			return Ranging
		}
	}

	return Unclear
}

func biasFor(s Structure) Bias {
	switch s {
	case Uptrend:
		return BiasBuy
	case Downtrend:
		return BiasSell
	default:
		return BiasWait
	}
}

// regularPlan builds the breakout/pullback plan from the recent high/low
// band plus a volatility-derived buffer.
func regularPlan(candles []model.Candle, closes []float64, snap indicator.Snapshot, st Structure) EntryPlan {
	n := len(candles)
	start := n - rangeWindow
	if start < 0 {
		start = 0
	}

	hi := candles[start].High
	lo := candles[start].Low
	for _, c := range candles[start+1:] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}

	last := closes[n-1]
	buffer := bufferRatio * math.Abs(last)
	if snap.HasVolatility {
		buffer = 2 * snap.Volatility
	}

	switch st {
	case Uptrend:
		return EntryPlan{
			Actionable: true,
			Trigger:    hi + buffer,
			Fallback:   hi - buffer,
			Note:       fmt.Sprintf("buy breakout above %.4f, or hold a pullback that stays over %.4f", hi+buffer, hi-buffer),
		}
	case Downtrend:
		return EntryPlan{
			Actionable: true,
			Trigger:    lo - buffer,
			Fallback:   lo + buffer,
			Note:       fmt.Sprintf("sell breakout below %.4f, or fade a rejection under %.4f", lo-buffer, lo+buffer),
		}
	case Ranging:
		return EntryPlan{
			Actionable: true,
			Trigger:    lo + buffer,
			Fallback:   hi - buffer,
			Note:       fmt.Sprintf("range edges: buy near %.4f, sell near %.4f", lo+buffer, hi-buffer),
		}
	default:
		return EntryPlan{Note: "structure unclear, stand aside"}
	}
}

// sniperPlan looks for a full engulfing reversal on the current candle that
// closes near the fast average, in the direction of the current trend. A
// qualifying pattern records the triggering candle's bucket for chart
// highlighting.
func sniperPlan(candles []model.Candle, snap indicator.Snapshot, st Structure) (EntryPlan, int64) {
	n := len(candles)
	if n < sniperMinCandles || !snap.HasFast || !snap.HasVolatility {
		return EntryPlan{Note: "sniper: building history"}, 0
	}

	cur, prev := candles[n-1], candles[n-2]

	bullish := cur.Close > cur.Open && prev.Close < prev.Open &&
		cur.Open <= prev.Close && prev.Close <= cur.Close && cur.Close >= prev.Open
	bearish := cur.Close < cur.Open && prev.Close > prev.Open &&
		cur.Open >= prev.Close && prev.Close >= cur.Close && cur.Close <= prev.Open

	tolerance := math.Max(2.5*snap.Volatility, bufferRatio*math.Abs(snap.Fast))
	nearFast := math.Abs(cur.Close-snap.Fast) <= tolerance

	if st == Uptrend && bullish && nearFast {
		return EntryPlan{
			Actionable: true,
			Trigger:    cur.Close,
			Note:       fmt.Sprintf("sniper BUY: bullish engulfing at %.4f near fast average", cur.Close),
		}, cur.Bucket
	}
	if st == Downtrend && bearish && nearFast {
		return EntryPlan{
			Actionable: true,
			Trigger:    cur.Close,
			Note:       fmt.Sprintf("sniper SELL: bearish engulfing at %.4f near fast average", cur.Close),
		}, cur.Bucket
	}

	switch st {
	case Uptrend:
		return EntryPlan{Note: "sniper: waiting for a bullish engulfing near the fast average"}, 0
	case Downtrend:
		return EntryPlan{Note: "sniper: waiting for a bearish engulfing near the fast average"}, 0
	case Ranging:
		return EntryPlan{Note: "sniper: no reversal setups while ranging"}, 0
	default:
		return EntryPlan{Note: "sniper: structure unclear"}, 0
	}
}

// targetStop derives the take-profit/stop-loss band. A floored volatility
// estimate keeps the risk distance away from zero.
func targetStop(closes []float64, snap indicator.Snapshot, b Bias) (tp, sl float64) {
	n := len(closes)
	last := closes[n-1]

	vol := snap.Volatility
	if !snap.HasVolatility {
		vol = 0
		if n >= 2 {
			vol = math.Abs(last - closes[n-2])
		}
	}
	safeVol := math.Max(vol, safeVolRatio*math.Abs(last))

	risk := clamp(6*safeVol, 2*safeVol, 16*safeVol)
	reward := 1.5 * risk

	if b == BiasSell {
		return last - reward, last + risk
	}
	// BUY and WAIT share the buy-side band centered on the last price
	return last + reward, last - risk
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
