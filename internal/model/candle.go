package model

import "encoding/json"

// Candle is an OHLC summary of all ticks inside one fixed time bucket.
// Bucket is the Unix second of the bucket start, always a multiple of the
// timeframe width that produced it.
type Candle struct {
	Instrument string  `json:"instrument"`
	Bucket     int64   `json:"bucket"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
