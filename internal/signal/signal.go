// Package signal derives rules-based trading guidance from candle history.
//
// Derivation is a pure function of (candles, timeframe): identical inputs
// always yield identical output, and no state is carried between calls. The
// output is guidance only: structure classification, a directional bias,
// entry plans, and a target/stop band around the last price.
package signal

import (
	"synthdesk/internal/indicator"
)

// Structure is the qualitative trend classification.
type Structure string

const (
	Uptrend   Structure = "UPTREND"
	Downtrend Structure = "DOWNTREND"
	Ranging   Structure = "RANGE"
	Unclear   Structure = "UNCLEAR"
)

// Bias is the directional stance derived from structure.
type Bias string

const (
	BiasBuy  Bias = "BUY"
	BiasSell Bias = "SELL"
	BiasWait Bias = "WAIT"
)

// EntryPlan describes one entry setup. When Actionable is false the plan is
// a waiting note and the levels are zero.
type EntryPlan struct {
	Actionable bool    `json:"actionable"`
	Trigger    float64 `json:"trigger,omitempty"`
	Fallback   float64 `json:"fallback,omitempty"`
	Note       string  `json:"note"`
}

// Signal is one full derivation pass. Recomputed fresh on every candle
// update and never mutated in place.
type Signal struct {
	Instrument      string             `json:"instrument"`
	Timeframe       int                `json:"timeframe"`
	Structure       Structure          `json:"structure"`
	Bias            Bias               `json:"bias"`
	Regular         EntryPlan          `json:"regular"`
	Sniper          EntryPlan          `json:"sniper"`
	TakeProfit      float64            `json:"take_profit"`
	StopLoss        float64            `json:"stop_loss"`
	HighlightBucket int64              `json:"highlight_bucket,omitempty"` // 0 = none
	Indicators      indicator.Snapshot `json:"indicators"`
}
