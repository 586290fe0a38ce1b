// Package transform converts between screen pixels and logical canvas units.
//
// A Viewport fits the logical canvas into its container with a uniform
// "contain" scale, centers it, and then applies any extra zoom read from the
// container's transform.
package transform

import (
	"math"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

// Viewport is a fixed mapping between screen and logical coordinates
type Viewport struct {
	Container canvas.Rect
	Logical   canvas.Size
	FitScale  float64
	Zoom      float64
	// Scale is FitScale * Zoom, the number of screen pixels per logical unit
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Fit computes the viewport for a container rectangle (screen space) and a
// logical canvas size. A zoom <= 0 is treated as 1. ok is false when either
// size is degenerate, in which case no conversion is possible.
func Fit(container canvas.Rect, logical canvas.Size, zoom float64) (Viewport, bool) {
	if container.Width <= 0 || container.Height <= 0 || logical.Width <= 0 || logical.Height <= 0 {
		return Viewport{}, false
	}
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	fit := math.Min(container.Width/logical.Width, container.Height/logical.Height)
	scale := fit * zoom
	return Viewport{
		Container: container,
		Logical:   logical,
		FitScale:  fit,
		Zoom:      zoom,
		Scale:     scale,
		OffsetX:   container.X + (container.Width-logical.Width*scale)/2,
		OffsetY:   container.Y + (container.Height-logical.Height*scale)/2,
	}, true
}

// ScreenToLogical converts a screen point into logical canvas units
func (v Viewport) ScreenToLogical(p canvas.Point) canvas.Point {
	return canvas.Point{
		X: (p.X - v.OffsetX) / v.Scale,
		Y: (p.Y - v.OffsetY) / v.Scale,
	}
}

// LogicalToScreen converts a logical point into screen pixels
func (v Viewport) LogicalToScreen(p canvas.Point) canvas.Point {
	return canvas.Point{
		X: p.X*v.Scale + v.OffsetX,
		Y: p.Y*v.Scale + v.OffsetY,
	}
}

// ScreenDelta converts a pixel displacement into logical units
func (v Viewport) ScreenDelta(dx, dy float64) (float64, float64) {
	return dx / v.Scale, dy / v.Scale
}

// RectToLogical converts a screen rectangle into logical units
func (v Viewport) RectToLogical(r canvas.Rect) canvas.Rect {
	p := v.ScreenToLogical(canvas.Point{X: r.X, Y: r.Y})
	return canvas.Rect{X: p.X, Y: p.Y, Width: r.Width / v.Scale, Height: r.Height / v.Scale}
}

// RectToScreen converts a logical rectangle into screen pixels
func (v Viewport) RectToScreen(r canvas.Rect) canvas.Rect {
	p := v.LogicalToScreen(canvas.Point{X: r.X, Y: r.Y})
	return canvas.Rect{X: p.X, Y: p.Y, Width: r.Width * v.Scale, Height: r.Height * v.Scale}
}

// Content returns the on-screen rectangle covered by the logical canvas
func (v Viewport) Content() canvas.Rect {
	return v.RectToScreen(canvas.Rect{Width: v.Logical.Width, Height: v.Logical.Height})
}

// Round returns p rounded to whole units
func Round(p canvas.Point) canvas.Point {
	return canvas.Point{X: math.Round(p.X), Y: math.Round(p.Y)}
}
