package agg

import (
	"testing"

	"synthdesk/internal/model"
)

func tick(epoch int64, price float64) model.Tick {
	return model.Tick{Instrument: "R_100", Epoch: epoch, Price: price}
}

func TestAggregator_BasicCandle(t *testing.T) {
	a := New(60, 360)

	a.Apply(tick(120, 500.00))
	a.Apply(tick(130, 505.50))
	c, appended := a.Apply(tick(150, 498.25))

	if appended {
		t.Fatalf("expected same bucket, got appended")
	}
	if c.Bucket != 120 {
		t.Errorf("expected bucket=120, got %d", c.Bucket)
	}
	if c.Open != 500.00 {
		t.Errorf("expected open=500.00, got %v", c.Open)
	}
	if c.High != 505.50 {
		t.Errorf("expected high=505.50, got %v", c.High)
	}
	if c.Low != 498.25 {
		t.Errorf("expected low=498.25, got %v", c.Low)
	}
	if c.Close != 498.25 {
		t.Errorf("expected close=498.25, got %v", c.Close)
	}

	// Next bucket opens a fresh candle seeded from the tick price
	c2, appended := a.Apply(tick(185, 501.00))
	if !appended {
		t.Fatalf("expected new bucket")
	}
	if c2.Bucket != 180 {
		t.Errorf("expected bucket=180, got %d", c2.Bucket)
	}
	if c2.Open != 501.00 || c2.High != 501.00 || c2.Low != 501.00 || c2.Close != 501.00 {
		t.Errorf("new candle not seeded from price: %+v", c2)
	}
	if a.Len() != 2 {
		t.Errorf("expected 2 candles, got %d", a.Len())
	}
}

func TestAggregator_BucketAlignmentAndInvariants(t *testing.T) {
	a := New(15, 360)

	prices := []float64{100, 101.5, 99.2, 100.7, 102.3, 98.9, 101.1}
	epoch := int64(1000)
	for i, p := range prices {
		a.Apply(tick(epoch+int64(i*7), p))
	}

	candles := a.Candles()
	var prev int64 = -1
	for _, c := range candles {
		if c.Bucket%15 != 0 {
			t.Errorf("bucket %d not a multiple of width", c.Bucket)
		}
		if prev >= 0 && c.Bucket <= prev {
			t.Errorf("buckets not strictly increasing: %d after %d", c.Bucket, prev)
		}
		prev = c.Bucket
		if c.Low > c.Open || c.Low > c.Close {
			t.Errorf("low above open/close: %+v", c)
		}
		if c.High < c.Open || c.High < c.Close {
			t.Errorf("high below open/close: %+v", c)
		}
	}
}

func TestAggregator_CapEvictsOldest(t *testing.T) {
	a := New(1, 5)

	for i := int64(0); i < 9; i++ {
		a.Apply(tick(i, float64(100+i)))
	}

	if a.Len() != 5 {
		t.Fatalf("expected 5 candles after eviction, got %d", a.Len())
	}
	candles := a.Candles()
	if candles[0].Bucket != 4 {
		t.Errorf("expected oldest bucket=4, got %d", candles[0].Bucket)
	}
	if candles[4].Bucket != 8 {
		t.Errorf("expected newest bucket=8, got %d", candles[4].Bucket)
	}
}

func TestAggregator_ReplayIdempotent(t *testing.T) {
	a := New(60, 360)

	a.Apply(tick(60, 200))
	a.Apply(tick(70, 205))
	first := a.Candles()[0]

	// Replaying the same sample must not change high/low beyond that price
	a.Apply(tick(70, 205))
	second := a.Candles()[0]

	if first != second {
		t.Errorf("replay changed candle: %+v vs %+v", first, second)
	}
	if a.Len() != 1 {
		t.Errorf("replay grew history: %d candles", a.Len())
	}
}

func TestAggregator_LateTickDropped(t *testing.T) {
	a := New(60, 360)
	dropped := 0
	a.OnLateTick = func() { dropped++ }

	a.Apply(tick(120, 500))
	before := a.Candles()[0]
	a.Apply(tick(50, 999)) // belongs to an earlier bucket

	if dropped != 1 {
		t.Errorf("expected 1 dropped tick, got %d", dropped)
	}
	if a.Candles()[0] != before {
		t.Errorf("late tick mutated candle state")
	}
}

func TestAggregator_Reset(t *testing.T) {
	a := New(60, 360)
	a.Apply(tick(60, 100))
	a.Reset(120)

	if a.Len() != 0 {
		t.Errorf("expected empty history after reset, got %d", a.Len())
	}
	c, appended := a.Apply(tick(250, 100))
	if !appended || c.Bucket != 240 {
		t.Errorf("expected bucket=240 after width change, got %+v", c)
	}
}
