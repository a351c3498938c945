package model

// Tick represents a single price sample for an instrument as delivered
// by the broker tick stream.
type Tick struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
	Epoch      int64   `json:"epoch"` // Unix seconds
}
