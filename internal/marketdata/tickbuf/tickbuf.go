// Package tickbuf provides a bounded, ordered window of raw price ticks for
// one instrument. Once the cap is exceeded the oldest tick is evicted, so the
// buffer always holds the most recent samples in arrival order. It backs the
// line-view rendering and last-digit extraction.
package tickbuf

import (
	"synthdesk/internal/model"
)

// Buffer is a fixed-capacity ring over model.Tick. Index 0 is the oldest
// retained tick. Not safe for concurrent use; the owning pipeline goroutine
// is the only writer and reader.
type Buffer struct {
	buf   []model.Tick
	head  int // index of the oldest element
	count int
}

// New creates a tick buffer with the given capacity. Minimum capacity is 2.
func New(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{buf: make([]model.Tick, capacity)}
}

// Push appends a tick, evicting the oldest when full.
func (b *Buffer) Push(t model.Tick) {
	if b.count < len(b.buf) {
		b.buf[(b.head+b.count)%len(b.buf)] = t
		b.count++
		return
	}
	b.buf[b.head] = t
	b.head = (b.head + 1) % len(b.buf)
}

// Len returns the number of retained ticks.
func (b *Buffer) Len() int { return b.count }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// At returns the i-th retained tick, oldest first.
func (b *Buffer) At(i int) model.Tick {
	return b.buf[(b.head+i)%len(b.buf)]
}

// Last returns the most recent tick, if any.
func (b *Buffer) Last() (model.Tick, bool) {
	if b.count == 0 {
		return model.Tick{}, false
	}
	return b.At(b.count - 1), true
}

// Prices returns the retained prices oldest→newest, for line-view rendering.
func (b *Buffer) Prices() []float64 {
	out := make([]float64, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.At(i).Price
	}
	return out
}

// Digits returns the last digit of each retained price at the given pip
// precision, oldest→newest.
func (b *Buffer) Digits(pipDigits int) []int {
	out := make([]int, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = model.LastDigit(b.At(i).Price, pipDigits)
	}
	return out
}

// Reset drops all retained ticks.
func (b *Buffer) Reset() {
	b.head = 0
	b.count = 0
}
