package view

// Mode selects the chart rendering mode. Both modes share the same
// underlying market data; only the viewports differ.
type Mode string

const (
	ModeLine    Mode = "line"
	ModeCandles Mode = "candles"
)

// Controller owns one viewport per chart mode. Switching modes keeps both
// viewports (and all analysis state) intact; switching instrument or
// timeframe resets both to live following.
type Controller struct {
	mode    Mode
	line    *Viewport
	candles *Viewport
}

// NewController creates a controller in candle mode with the given
// per-mode minimum and initial spans.
func NewController(lineMinSpan, lineSpan, candleMinSpan, candleSpan int) *Controller {
	return &Controller{
		mode:    ModeCandles,
		line:    New(lineMinSpan, lineSpan),
		candles: New(candleMinSpan, candleSpan),
	}
}

// Mode returns the active chart mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches the render mode without touching either viewport's state.
func (c *Controller) SetMode(m Mode) {
	if m == ModeLine || m == ModeCandles {
		c.mode = m
	}
}

// Active returns the viewport for the current mode.
func (c *Controller) Active() *Viewport {
	if c.mode == ModeLine {
		return c.line
	}
	return c.candles
}

// Line returns the line-view viewport.
func (c *Controller) Line() *Viewport { return c.line }

// Candles returns the candle-view viewport.
func (c *Controller) Candles() *Viewport { return c.candles }

// Reset puts both viewports back into live following, as required when the
// instrument or timeframe changes.
func (c *Controller) Reset() {
	c.line.GoLive()
	c.candles.GoLive()
}
