// Package agg folds a time-ordered tick stream into fixed-width OHLC candles
// for one instrument. Exactly one open (mutable) candle exists at a time; all
// earlier candles are immutable. History is bounded and evicts oldest-first.
package agg

import (
	"synthdesk/internal/model"
)

// Aggregator builds timeframe candles from ticks. Designed for
// single-goroutine usage, no locks needed.
type Aggregator struct {
	width   int64 // timeframe width in seconds
	cap     int
	candles []model.Candle

	// Metrics hook (optional, set externally)
	OnLateTick func()
}

// New creates an aggregator for the given timeframe width (seconds) and
// candle history cap.
func New(widthSec, capacity int) *Aggregator {
	if widthSec < 1 {
		widthSec = 1
	}
	if capacity < 2 {
		capacity = 2
	}
	return &Aggregator{
		width:   int64(widthSec),
		cap:     capacity,
		candles: make([]model.Candle, 0, capacity),
	}
}

// Width returns the timeframe width in seconds.
func (a *Aggregator) Width() int { return int(a.width) }

// Apply incorporates a single tick. It returns the candle it landed in and
// whether a new bucket was opened. Ticks whose bucket is older than the open
// candle are dropped (input is expected time-ordered per instrument).
func (a *Aggregator) Apply(t model.Tick) (model.Candle, bool) {
	bucket := t.Epoch - t.Epoch%a.width

	n := len(a.candles)
	if n > 0 && bucket < a.candles[n-1].Bucket {
		// Late tick, belongs to an older bucket: drop it
		if a.OnLateTick != nil {
			a.OnLateTick()
		}
		return a.candles[n-1], false
	}

	if n == 0 || bucket > a.candles[n-1].Bucket {
		c := model.Candle{
			Instrument: t.Instrument,
			Bucket:     bucket,
			Open:       t.Price,
			High:       t.Price,
			Low:        t.Price,
			Close:      t.Price,
		}
		a.candles = append(a.candles, c)
		if len(a.candles) > a.cap {
			// Evict oldest
			copy(a.candles, a.candles[1:])
			a.candles = a.candles[:a.cap]
		}
		return c, true
	}

	// Same bucket: update the open candle in place (open unchanged)
	c := &a.candles[n-1]
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	return *c, false
}

// Candles returns a copy of the candle history, oldest→newest.
func (a *Aggregator) Candles() []model.Candle {
	out := make([]model.Candle, len(a.candles))
	copy(out, a.candles)
	return out
}

// Closes returns the close prices oldest→newest.
func (a *Aggregator) Closes() []float64 {
	out := make([]float64, len(a.candles))
	for i := range a.candles {
		out[i] = a.candles[i].Close
	}
	return out
}

// Len returns the number of retained candles.
func (a *Aggregator) Len() int { return len(a.candles) }

// Reset drops all history and switches to a new timeframe width.
func (a *Aggregator) Reset(widthSec int) {
	if widthSec >= 1 {
		a.width = int64(widthSec)
	}
	a.candles = a.candles[:0]
}
