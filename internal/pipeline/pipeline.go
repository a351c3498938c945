// Package pipeline composes the per-instrument market state: tick buffer,
// candle aggregator, derived signal and viewport controller. A single
// goroutine owns all mutations; accessors take a snapshot under a lock so
// the gateway can read without racing the tick loop.
package pipeline

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"synthdesk/internal/marketdata/agg"
	"synthdesk/internal/marketdata/tickbuf"
	"synthdesk/internal/model"
	"synthdesk/internal/signal"
	"synthdesk/internal/view"
)

// Default viewport spans, in samples per mode.
const (
	lineMinSpan   = 20
	lineSpan      = 300
	candleMinSpan = 10
	candleSpan    = 120
)

// Config holds the pipeline's per-instrument parameters.
type Config struct {
	Instrument   string
	TimeframeSec int
	PipDigits    int
	TickCap      int
	CandleCap    int
}

// Hooks are optional observation points, set before Run.
type Hooks struct {
	OnBadTick   func()              // non-finite sample dropped
	OnLateTick  func()              // tick behind the open candle dropped
	OnSignal    func(signal.Signal) // every re-derivation
	OnSniper    func(signal.Signal) // new precision entry trigger
	OnDeriveDur func(seconds float64)
}

// Pipeline owns one instrument's streaming state.
type Pipeline struct {
	hooks Hooks

	mu            sync.Mutex
	cfg           Config
	ticks         *tickbuf.Buffer
	candles       *agg.Aggregator
	views         *view.Controller
	last          signal.Signal
	hasSignal     bool
	lastHighlight int64
}

// New creates a pipeline for the configured instrument and timeframe.
func New(cfg Config, hooks Hooks) *Pipeline {
	p := &Pipeline{
		hooks:   hooks,
		cfg:     cfg,
		ticks:   tickbuf.New(cfg.TickCap),
		candles: agg.New(cfg.TimeframeSec, cfg.CandleCap),
		views:   view.NewController(lineMinSpan, lineSpan, candleMinSpan, candleSpan),
	}
	p.candles.OnLateTick = hooks.OnLateTick
	return p
}

// HandleTick applies one tick and returns the resulting update. Invalid
// samples and ticks for other instruments are dropped (ok=false).
func (p *Pipeline) HandleTick(t model.Tick) (model.Update, bool) {
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Epoch <= 0 {
		if p.hooks.OnBadTick != nil {
			p.hooks.OnBadTick()
		}
		return model.Update{}, false
	}

	p.mu.Lock()
	if t.Instrument != p.cfg.Instrument {
		p.mu.Unlock()
		return model.Update{}, false
	}

	p.ticks.Push(t)
	candle, appended := p.candles.Apply(t)

	start := time.Now()
	sig := signal.Derive(p.cfg.Instrument, p.cfg.TimeframeSec, p.candles.Candles())
	if p.hooks.OnDeriveDur != nil {
		p.hooks.OnDeriveDur(time.Since(start).Seconds())
	}
	p.last = sig
	p.hasSignal = true

	sniperFired := sig.Sniper.Actionable && sig.HighlightBucket != p.lastHighlight
	if sniperFired {
		p.lastHighlight = sig.HighlightBucket
	}

	p.views.Line().SetDataLen(p.ticks.Len())
	p.views.Candles().SetDataLen(p.candles.Len())

	upd := model.Update{
		Instrument: p.cfg.Instrument,
		Timeframe:  p.cfg.TimeframeSec,
		Tick:       t,
		Candle:     candle,
		Appended:   appended,
	}
	p.mu.Unlock()

	if p.hooks.OnSignal != nil {
		p.hooks.OnSignal(sig)
	}
	if sniperFired && p.hooks.OnSniper != nil {
		p.hooks.OnSniper(sig)
	}
	return upd, true
}

// Run consumes ticks and emits updates until ctx is cancelled or the input
// closes. Emits are non-blocking; a full output channel drops the update.
func (p *Pipeline) Run(ctx context.Context, in <-chan model.Tick, out chan<- model.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			upd, ok := p.HandleTick(t)
			if !ok {
				continue
			}
			select {
			case out <- upd:
			default:
				log.Printf("[pipeline] output channel full, dropping update %s@%d", upd.Instrument, upd.Tick.Epoch)
			}
		}
	}
}

// SwitchInstrument clears all buffers and retargets the pipeline. Both
// viewports go back to live following.
func (p *Pipeline) SwitchInstrument(instrument string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if instrument == "" || instrument == p.cfg.Instrument {
		return
	}
	p.cfg.Instrument = instrument
	p.reset(p.cfg.TimeframeSec)
}

// SwitchTimeframe clears candle state and rebuilds at the new width. Both
// viewports go back to live following.
func (p *Pipeline) SwitchTimeframe(sec int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sec < 1 || sec == p.cfg.TimeframeSec {
		return
	}
	p.cfg.TimeframeSec = sec
	p.reset(sec)
}

// reset is called under p.mu.
func (p *Pipeline) reset(timeframeSec int) {
	p.ticks.Reset()
	p.candles.Reset(timeframeSec)
	p.views.Reset()
	p.hasSignal = false
	p.last = signal.Signal{}
	p.lastHighlight = 0
	p.views.Line().SetDataLen(0)
	p.views.Candles().SetDataLen(0)
}

// Instrument returns the active instrument.
func (p *Pipeline) Instrument() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.Instrument
}

// TimeframeSec returns the active candle width in seconds.
func (p *Pipeline) TimeframeSec() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.TimeframeSec
}

// Candles returns a copy of the candle history, oldest first.
func (p *Pipeline) Candles() []model.Candle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.candles.Candles()
}

// Prices returns the retained tick prices, oldest first.
func (p *Pipeline) Prices() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks.Prices()
}

// Digits returns the last digit of each retained tick price.
func (p *Pipeline) Digits() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks.Digits(p.cfg.PipDigits)
}

// Signal returns the last derived signal, if any tick has been processed.
func (p *Pipeline) Signal() (signal.Signal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasSignal
}

// ViewState is a copy of the active viewport, safe to hand to renderers.
type ViewState struct {
	Mode       view.Mode `json:"mode"`
	Span       int       `json:"span"`
	Offset     int       `json:"offset"`
	FollowLive bool      `json:"follow_live"`
}

// ViewState snapshots the active viewport.
func (p *Pipeline) ViewState() ViewState {
	p.mu.Lock()
	defer p.mu.Unlock()
	vp := p.views.Active()
	return ViewState{
		Mode:       p.views.Mode(),
		Span:       vp.Span,
		Offset:     vp.Offset,
		FollowLive: vp.FollowLive,
	}
}

// SetMode switches the chart render mode, keeping both viewports intact.
func (p *Pipeline) SetMode(m view.Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views.SetMode(m)
}

// Zoom rescales the active viewport around the focus ratio.
func (p *Pipeline) Zoom(factor, ratio float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views.Active().ZoomAt(factor, ratio)
}

// BeginDrag starts a pan gesture on the active viewport.
func (p *Pipeline) BeginDrag() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views.Active().BeginDrag()
}

// Drag pans the active viewport relative to the drag start.
func (p *Pipeline) Drag(dxPixels, containerWidth float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views.Active().Drag(dxPixels, containerWidth)
}

// GoLive snaps the active viewport back to following the newest data.
func (p *Pipeline) GoLive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views.Active().GoLive()
}
