// Package mobilelock keeps the editing surface usable on touch devices.
//
// It fits the canvas into the visible viewport by publishing an AdjustZoom
// event whenever the fitted zoom changes, and it suppresses page pan and
// scroll while an element is being dragged so the gesture moves the element
// instead of the page.
package mobilelock

import (
	"log"
	"math"
	"sync"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/events"
)

// Zoom bounds and the epsilon below which a zoom change is not published
const (
	MinZoom        = 0.1
	MaxZoom        = 1.0
	DefaultPadding = 16.0

	zoomEpsilon = 0.001
)

// Body is the page-level surface the lock toggles
type Body interface {
	SetScrollLocked(locked bool)
	// SetTouchAction sets the CSS touch-action of the page; "" restores the default
	SetTouchAction(value string)
}

// Lock tracks the fitted zoom and the drag lock of one canvas host
type Lock struct {
	mu      sync.Mutex
	body    Body
	bus     *events.Bus
	touch   bool
	padding float64

	zoom   float64
	fitted bool
	locked bool
}

// New creates a lock. body and bus may be nil. padding is the screen margin
// kept around the fitted canvas; a negative padding selects DefaultPadding.
func New(body Body, bus *events.Bus, touch bool, padding float64) *Lock {
	if padding < 0 {
		padding = DefaultPadding
	}
	return &Lock{body: body, bus: bus, touch: touch, padding: padding, zoom: 1}
}

// FitZoom returns the zoom that fits a canvas into a viewport with padding on
// every side, clamped to [MinZoom, MaxZoom]
func FitZoom(viewport, size canvas.Size, padding float64) float64 {
	if size.Width <= 0 || size.Height <= 0 {
		return MaxZoom
	}
	w := viewport.Width - 2*padding
	h := viewport.Height - 2*padding
	if w <= 0 || h <= 0 {
		return MinZoom
	}
	z := math.Min(w/size.Width, h/size.Height)
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Observe recomputes the fitted zoom for the current viewport and canvas.
// AdjustZoom is published only when the zoom actually changes. Non-touch
// hosts keep zoom 1 and publish nothing.
func (l *Lock) Observe(viewport, size canvas.Size) (float64, bool) {
	l.mu.Lock()
	if !l.touch {
		z := l.zoom
		l.mu.Unlock()
		return z, false
	}
	z := FitZoom(viewport, size, l.padding)
	if l.fitted && math.Abs(z-l.zoom) < zoomEpsilon {
		l.mu.Unlock()
		return l.zoom, false
	}
	l.zoom = z
	l.fitted = true
	bus := l.bus
	l.mu.Unlock()

	bus.Emit(events.AdjustZoom{Zoom: z})
	return z, true
}

// Zoom returns the last fitted zoom
func (l *Lock) Zoom() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zoom
}

// Touch reports whether the host is a touch device
func (l *Lock) Touch() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.touch
}

// SetTouch switches the host class. Leaving touch mode releases any lock and
// resets the zoom to 1.
func (l *Lock) SetTouch(touch bool) {
	l.mu.Lock()
	if l.touch == touch {
		l.mu.Unlock()
		return
	}
	l.touch = touch
	l.fitted = false
	resetZoom := !touch && l.zoom != 1
	if !touch {
		l.zoom = 1
	}
	l.mu.Unlock()

	if !touch {
		l.unlock()
		if resetZoom {
			l.bus.Emit(events.AdjustZoom{Zoom: 1})
		}
	}
}

// BeginDrag locks page scroll and touch panning on touch hosts. It reports
// whether a lock was applied.
func (l *Lock) BeginDrag() bool {
	l.mu.Lock()
	if !l.touch || l.locked {
		l.mu.Unlock()
		return false
	}
	l.locked = true
	body := l.body
	l.mu.Unlock()

	if body != nil {
		body.SetScrollLocked(true)
		body.SetTouchAction("none")
	}
	return true
}

// EndDrag releases the drag lock
func (l *Lock) EndDrag() {
	l.unlock()
}

// Locked reports whether scroll is currently locked
func (l *Lock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}

// Close reverts any lock. It must be called when the host goes away so a
// drag interrupted by teardown cannot leave the page locked.
func (l *Lock) Close() {
	if l.unlock() {
		log.Printf("[Mobile Lock] Released scroll lock on close")
	}
}

func (l *Lock) unlock() bool {
	l.mu.Lock()
	if !l.locked {
		l.mu.Unlock()
		return false
	}
	l.locked = false
	body := l.body
	l.mu.Unlock()

	if body != nil {
		body.SetScrollLocked(false)
		body.SetTouchAction("")
	}
	return true
}
