// Package view models the pan/zoom window over a growing, bounded time
// series. A viewport is a small state machine with two states, Live (the
// window follows the newest data) and Manual (the user has panned or zoomed
// away), decoupled from data arrival so that view changes never perturb
// analysis state.
package view

import "math"

// Viewport holds the visible window over one chart mode's data series.
// Invariants after every operation: 0 <= Offset, Offset+Span <= data length
// (clamped), and Span stays within [minSpan, length].
type Viewport struct {
	Span       int
	Offset     int
	FollowLive bool

	minSpan    int
	length     int
	dragOffset int // Offset captured at drag start
}

// New creates a live viewport with the given minimum and initial span.
func New(minSpan, span int) *Viewport {
	if minSpan < 1 {
		minSpan = 1
	}
	if span < minSpan {
		span = minSpan
	}
	return &Viewport{Span: span, FollowLive: true, minSpan: minSpan}
}

// SetDataLen records the current series length. While following live the
// window snaps to the right edge.
func (v *Viewport) SetDataLen(n int) {
	if n < 0 {
		n = 0
	}
	v.length = n
	if v.FollowLive {
		v.Offset = v.length - v.Span
	}
	v.clamp()
}

// DataLen returns the last recorded series length.
func (v *Viewport) DataLen() int { return v.length }

// ZoomAt rescales the span by factor, anchored at focus ratio r in [0,1] so
// the index under the cursor keeps its screen position. Zooming switches the
// viewport to manual.
func (v *Viewport) ZoomAt(factor, r float64) {
	if factor <= 0 {
		return
	}
	if r < 0 {
		r = 0
	} else if r > 1 {
		r = 1
	}

	anchor := float64(v.Offset) + r*float64(v.Span)
	newSpan := int(math.Round(float64(v.Span) * factor))
	if newSpan < v.minSpan {
		newSpan = v.minSpan
	}
	if v.length > v.minSpan && newSpan > v.length {
		newSpan = v.length
	}

	v.Span = newSpan
	v.Offset = int(math.Round(anchor - r*float64(newSpan)))
	v.FollowLive = false
	v.clamp()
}

// BeginDrag captures the current offset as the pan reference point.
func (v *Viewport) BeginDrag() {
	v.dragOffset = v.Offset
}

// Drag pans relative to the drag start by a pixel delta over the given
// container width. Panning switches the viewport to manual.
func (v *Viewport) Drag(dxPixels, containerWidth float64) {
	if containerWidth <= 0 {
		return
	}
	deltaIdx := dxPixels / containerWidth * float64(v.Span)
	v.Offset = v.dragOffset - int(math.Round(deltaIdx))
	v.FollowLive = false
	v.clamp()
}

// GoLive re-enables live following and snaps the window to the right edge.
func (v *Viewport) GoLive() {
	v.FollowLive = true
	v.Offset = v.length - v.Span
	v.clamp()
}

func (v *Viewport) clamp() {
	maxSpan := v.length
	if maxSpan < v.minSpan {
		maxSpan = v.minSpan
	}
	if v.Span > maxSpan {
		v.Span = maxSpan
	}
	if v.Span < v.minSpan {
		v.Span = v.minSpan
	}

	maxOffset := v.length - v.Span
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.Offset > maxOffset {
		v.Offset = maxOffset
	}
	if v.Offset < 0 {
		v.Offset = 0
	}
}
