package model

// Update is one pipeline event: the tick that was applied and the candle it
// landed in. Appended is true when the tick opened a new bucket.
type Update struct {
	Instrument string `json:"instrument"`
	Timeframe  int    `json:"timeframe"` // seconds
	Tick       Tick   `json:"tick"`
	Candle     Candle `json:"candle"`
	Appended   bool   `json:"appended"`
}
