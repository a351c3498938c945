package gateway

import "errors"

// Command types accepted from the UI.
const (
	CmdLogin       = "login"
	CmdMode        = "mode"        // switch line/candle rendering
	CmdZoom        = "zoom"        // rescale active viewport
	CmdPanStart    = "pan_start"   // begin a drag gesture
	CmdPan         = "pan"         // drag relative to pan_start
	CmdGoLive      = "go_live"     // snap back to newest data
	CmdInstrument  = "instrument"  // switch instrument
	CmdTimeframe   = "timeframe"   // switch candle width
	CmdOrder       = "order"       // submit a digit contract
	CmdClearOrders = "clear_orders"
	CmdReconnect   = "reconnect" // manual stream reopen
)

// Command is one parsed UI message. Only the fields relevant to Type are set.
type Command struct {
	Type string `json:"type"`

	// login
	User string `json:"user,omitempty"`
	Pass string `json:"pass,omitempty"`
	Code string `json:"code,omitempty"`

	// mode
	Mode string `json:"mode,omitempty"` // "line" or "candles"

	// zoom
	Factor float64 `json:"factor,omitempty"`
	Ratio  float64 `json:"ratio,omitempty"`

	// pan
	DX    float64 `json:"dx,omitempty"`
	Width float64 `json:"width,omitempty"`

	// instrument / timeframe
	Instrument   string `json:"instrument,omitempty"`
	TimeframeSec int    `json:"timeframe_sec,omitempty"`

	// order
	ContractType  string  `json:"contract_type,omitempty"`
	Digit         int     `json:"digit,omitempty"`
	Stake         float64 `json:"stake,omitempty"`
	DurationTicks int     `json:"duration_ticks,omitempty"`
}

// Validate checks the fields required by the command type. Order-level
// validation (connectivity, digit range) stays with the order tracker.
func (c Command) Validate() error {
	switch c.Type {
	case CmdMode:
		if c.Mode != "line" && c.Mode != "candles" {
			return errors.New("mode must be line or candles")
		}
	case CmdZoom:
		if c.Factor <= 0 {
			return errors.New("zoom factor must be positive")
		}
	case CmdPan:
		if c.Width <= 0 {
			return errors.New("pan width must be positive")
		}
	case CmdInstrument:
		if c.Instrument == "" {
			return errors.New("instrument required")
		}
	case CmdTimeframe:
		if c.TimeframeSec < 1 {
			return errors.New("timeframe must be at least 1s")
		}
	case CmdOrder:
		if c.ContractType == "" {
			return errors.New("contract_type required")
		}
	case CmdPanStart, CmdGoLive, CmdClearOrders, CmdReconnect, CmdLogin:
	default:
		return errors.New("unknown command type: " + c.Type)
	}
	return nil
}
