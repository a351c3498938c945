package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthdesk/internal/model"
	"synthdesk/internal/view"
)

func testConfig() Config {
	return Config{
		Instrument:   "R_100",
		TimeframeSec: 60,
		PipDigits:    2,
		TickCap:      1400,
		CandleCap:    360,
	}
}

func TestHandleTick_BuildsCandlesAndSignal(t *testing.T) {
	p := New(testConfig(), Hooks{})

	upd, ok := p.HandleTick(model.Tick{Instrument: "R_100", Price: 100.25, Epoch: 1700000000})
	require.True(t, ok)
	assert.True(t, upd.Appended)
	assert.Equal(t, 100.25, upd.Candle.Close)

	upd, ok = p.HandleTick(model.Tick{Instrument: "R_100", Price: 100.75, Epoch: 1700000010})
	require.True(t, ok)
	assert.False(t, upd.Appended) // same 60s bucket
	assert.Equal(t, 100.75, upd.Candle.Close)
	assert.Equal(t, 100.25, upd.Candle.Open)

	sig, has := p.Signal()
	require.True(t, has)
	assert.Equal(t, "R_100", sig.Instrument)

	assert.Len(t, p.Candles(), 1)
	assert.Equal(t, []float64{100.25, 100.75}, p.Prices())
	assert.Equal(t, []int{5, 5}, p.Digits())
}

func TestHandleTick_DropsBadSamples(t *testing.T) {
	bad := 0
	p := New(testConfig(), Hooks{OnBadTick: func() { bad++ }})

	_, ok := p.HandleTick(model.Tick{Instrument: "R_100", Price: math.NaN(), Epoch: 1700000000})
	assert.False(t, ok)
	_, ok = p.HandleTick(model.Tick{Instrument: "R_100", Price: math.Inf(1), Epoch: 1700000000})
	assert.False(t, ok)
	_, ok = p.HandleTick(model.Tick{Instrument: "R_100", Price: 100, Epoch: 0})
	assert.False(t, ok)

	assert.Equal(t, 3, bad)
	assert.Empty(t, p.Candles())
}

func TestHandleTick_IgnoresOtherInstruments(t *testing.T) {
	p := New(testConfig(), Hooks{})

	_, ok := p.HandleTick(model.Tick{Instrument: "R_50", Price: 100, Epoch: 1700000000})
	assert.False(t, ok)
	assert.Empty(t, p.Prices())
}

func TestSwitchInstrument_ResetsState(t *testing.T) {
	p := New(testConfig(), Hooks{})
	_, ok := p.HandleTick(model.Tick{Instrument: "R_100", Price: 100, Epoch: 1700000000})
	require.True(t, ok)

	p.Zoom(0.5, 0.5) // leave live mode
	assert.False(t, p.ViewState().FollowLive)

	p.SwitchInstrument("R_50")
	assert.Equal(t, "R_50", p.Instrument())
	assert.Empty(t, p.Candles())
	assert.Empty(t, p.Prices())
	_, has := p.Signal()
	assert.False(t, has)
	assert.True(t, p.ViewState().FollowLive)

	// Ticks for the old instrument no longer apply.
	_, ok = p.HandleTick(model.Tick{Instrument: "R_100", Price: 100, Epoch: 1700000060})
	assert.False(t, ok)
	_, ok = p.HandleTick(model.Tick{Instrument: "R_50", Price: 200, Epoch: 1700000060})
	assert.True(t, ok)
}

func TestSwitchTimeframe_Rebuckets(t *testing.T) {
	p := New(testConfig(), Hooks{})
	_, ok := p.HandleTick(model.Tick{Instrument: "R_100", Price: 100, Epoch: 1700000000})
	require.True(t, ok)

	p.SwitchTimeframe(5)
	assert.Equal(t, 5, p.TimeframeSec())
	assert.Empty(t, p.Candles())

	upd, ok := p.HandleTick(model.Tick{Instrument: "R_100", Price: 100, Epoch: 1700000012})
	require.True(t, ok)
	assert.Equal(t, int64(1700000010), upd.Candle.Bucket)
}

func TestSetMode_KeepsViewports(t *testing.T) {
	p := New(testConfig(), Hooks{})
	_, ok := p.HandleTick(model.Tick{Instrument: "R_100", Price: 100, Epoch: 1700000000})
	require.True(t, ok)

	p.SetMode(view.ModeLine)
	assert.Equal(t, view.ModeLine, p.ViewState().Mode)

	p.SetMode(view.ModeCandles)
	assert.Equal(t, view.ModeCandles, p.ViewState().Mode)
}

func TestRun_EmitsUpdates(t *testing.T) {
	p := New(testConfig(), Hooks{})
	in := make(chan model.Tick, 4)
	out := make(chan model.Update, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, in, out)

	in <- model.Tick{Instrument: "R_100", Price: 101.5, Epoch: 1700000000}
	in <- model.Tick{Instrument: "R_100", Price: math.NaN(), Epoch: 1700000001}
	in <- model.Tick{Instrument: "R_100", Price: 102.5, Epoch: 1700000002}

	var got []model.Update
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case upd := <-out:
			got = append(got, upd)
		case <-timeout:
			t.Fatalf("timed out, received %d updates", len(got))
		}
	}
	assert.Equal(t, 101.5, got[0].Tick.Price)
	assert.Equal(t, 102.5, got[1].Tick.Price)
}
