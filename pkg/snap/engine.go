// Package snap computes alignment guides for a moving rectangle and pulls its
// position onto the nearest guide in range.
//
// Guides come from three sources: a fixed grid spanning the canvas, the
// edges and centers of other elements, and the canvas center lines. On each
// axis a canvas-center guide always wins over edge guides; among the rest the
// first match wins, element guides before grid lines.
package snap

import (
	"math"
	"sort"
	"sync"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

// Kind is the source of a guide
type Kind string

const (
	KindGrid    Kind = "grid"
	KindElement Kind = "element"
	KindCenter  Kind = "center"
)

// Orientation of a guide line. A vertical guide constrains x.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Guide is an alignment line in logical coordinates
type Guide struct {
	Kind        Kind        `json:"type"`
	Orientation Orientation `json:"orientation"`
	Position    float64     `json:"position"`
	ElementID   string      `json:"elementId,omitempty"`
}

// Target is another element the moving rectangle may align with
type Target struct {
	ID      string
	Rect    canvas.Rect
	Visible bool
}

// Options configures an Engine
type Options struct {
	Canvas   canvas.Size
	GridSize float64
	// Tolerance is the snap distance in logical units at zoom 1
	Tolerance float64
	// MinPixelTolerance bounds the adaptive center tolerance from below, in screen pixels
	MinPixelTolerance float64

	Grid     bool
	Elements bool
	Center   bool
}

// DefaultOptions returns the options used by the editor for a canvas size
func DefaultOptions(size canvas.Size) Options {
	return Options{
		Canvas:            size,
		GridSize:          10,
		Tolerance:         3,
		MinPixelTolerance: 2,
		Grid:              true,
		Elements:          true,
		Center:            true,
	}
}

// Request describes one snap computation
type Request struct {
	Rect    canvas.Rect
	Targets []Target
	// Exclude lists ids that never produce guides, typically the dragged
	// element and its group siblings
	Exclude []string
	Zoom    float64
}

// Result is the snapped position plus the guides in range at that position
type Result struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Guides []Guide `json:"guides"`
}

// Snapped reports whether the position differs from the request
func (r Result) Snapped(req Request) bool {
	return r.X != req.Rect.X || r.Y != req.Rect.Y
}

const (
	// minTolerance keeps the tolerance above the half-unit rounding step so
	// a snapped position stays in range of its own guide
	minTolerance = 0.5
	maxPasses    = 16
)

// Engine computes snaps. It caches grid lines and zoom-derived tolerances and
// is safe for concurrent use.
type Engine struct {
	mu    sync.Mutex
	opts  Options
	cache cache
}

// NewEngine creates an engine, filling zero numeric options with defaults
func NewEngine(opts Options) *Engine {
	def := DefaultOptions(opts.Canvas)
	if opts.GridSize <= 0 {
		opts.GridSize = def.GridSize
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.MinPixelTolerance <= 0 {
		opts.MinPixelTolerance = def.MinPixelTolerance
	}
	return &Engine{opts: opts}
}

// Options returns the engine configuration
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// SetCanvas changes the canvas size, e.g. after a device switch
func (e *Engine) SetCanvas(size canvas.Size) {
	e.mu.Lock()
	e.opts.Canvas = size
	e.mu.Unlock()
}

// SetGridSize changes the grid spacing
func (e *Engine) SetGridSize(size float64) {
	if size <= 0 {
		return
	}
	e.mu.Lock()
	e.opts.GridSize = size
	e.mu.Unlock()
}

// Stats returns how many times cached values were rebuilt
func (e *Engine) Stats() CacheStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.stats
}

// match is a guide in range together with the start position it implies
type match struct {
	guide Guide
	start float64
}

// axisInput is everything needed to snap one axis
type axisInput struct {
	orient    Orientation
	size      float64
	extent    float64
	refs      []refLine
	grid      []float64
	tol       float64
	centerTol float64
}

type refLine struct {
	pos float64
	id  string
}

// Snap computes the snapped position for req.Rect. The result is a fixed
// point: snapping the returned position again yields the same position.
func (e *Engine) Snap(req Request) Result {
	e.mu.Lock()
	opts := e.opts
	zoom := req.Zoom
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		zoom = 1
	}
	var xs, ys []float64
	if opts.Grid {
		xs, ys = e.cache.gridLines(opts.Canvas, opts.GridSize)
	}
	tol := e.cache.tolerance(opts.Tolerance, zoom)
	e.mu.Unlock()

	r := req.Rect
	xIn, yIn := e.axes(opts, req, xs, ys, tol, zoom)

	x, y := r.X, r.Y
	for pass := 0; pass < maxPasses; pass++ {
		nx := roundHalf(snapAxis(x, xIn))
		ny := roundHalf(snapAxis(y, yIn))
		if nx == x && ny == y {
			break
		}
		x, y = nx, ny
	}

	guides := append(collect(x, xIn), collect(y, yIn)...)
	if debugLog != nil && len(guides) > 0 {
		debugLog("[Snap]", len(guides), "guides in range at", x, y)
	}
	return Result{X: x, Y: y, Guides: dedupe(guides)}
}

func (e *Engine) axes(opts Options, req Request, xs, ys []float64, tol, zoom float64) (axisInput, axisInput) {
	r := req.Rect
	xIn := axisInput{orient: Vertical, size: r.Width, extent: opts.Canvas.Width, grid: xs, tol: tol}
	yIn := axisInput{orient: Horizontal, size: r.Height, extent: opts.Canvas.Height, grid: ys, tol: tol}

	if opts.Center {
		xIn.centerTol = centerTolerance(opts, r.Width, zoom)
		yIn.centerTol = centerTolerance(opts, r.Height, zoom)
	}

	if opts.Elements {
		excluded := make(map[string]bool, len(req.Exclude))
		for _, id := range req.Exclude {
			excluded[id] = true
		}
		for _, t := range req.Targets {
			if !t.Visible || excluded[t.ID] {
				continue
			}
			xIn.refs = append(xIn.refs,
				refLine{pos: t.Rect.X, id: t.ID},
				refLine{pos: t.Rect.Right(), id: t.ID},
				refLine{pos: t.Rect.CenterX(), id: t.ID},
			)
			yIn.refs = append(yIn.refs,
				refLine{pos: t.Rect.Y, id: t.ID},
				refLine{pos: t.Rect.Bottom(), id: t.ID},
				refLine{pos: t.Rect.CenterY(), id: t.ID},
			)
		}
	}
	return xIn, yIn
}

// centerTolerance is max(minPx/zoom, min(base, size*0.1)) so small elements
// are not pulled too eagerly and large ones not too loosely
func centerTolerance(opts Options, size, zoom float64) float64 {
	t := math.Max(opts.MinPixelTolerance/zoom, math.Min(opts.Tolerance, size*0.1))
	return math.Max(t, minTolerance)
}

// snapAxis returns the start position implied by the highest priority guide
// in range, or start unchanged
func snapAxis(start float64, in axisInput) float64 {
	if m, ok := first(start, in); ok {
		return m.start
	}
	return start
}

func first(start float64, in axisInput) (match, bool) {
	ms := scan(start, in, true)
	if len(ms) == 0 {
		return match{}, false
	}
	return ms[0], true
}

func collect(start float64, in axisInput) []Guide {
	ms := scan(start, in, false)
	guides := make([]Guide, len(ms))
	for i, m := range ms {
		guides[i] = m.guide
	}
	return guides
}

// scan lists guides in range in priority order: canvas center, element
// lines, grid lines. With firstOnly it stops at the first match.
func scan(start float64, in axisInput, firstOnly bool) []match {
	var out []match
	add := func(m match) bool {
		out = append(out, m)
		return firstOnly
	}

	if in.centerTol > 0 && in.extent > 0 {
		center := in.extent / 2
		if math.Abs(start+in.size/2-center) <= in.centerTol {
			if add(match{guide: Guide{Kind: KindCenter, Orientation: in.orient, Position: center}, start: center - in.size/2}) {
				return out
			}
		}
	}

	features := [3]float64{0, in.size / 2, in.size}
	for _, ref := range in.refs {
		for _, off := range features {
			if math.Abs(start+off-ref.pos) <= in.tol {
				if add(match{guide: Guide{Kind: KindElement, Orientation: in.orient, Position: ref.pos, ElementID: ref.id}, start: ref.pos - off}) {
					return out
				}
			}
		}
	}

	// grid lines attract edges only
	for _, off := range [2]float64{0, in.size} {
		if line, ok := nearest(in.grid, start+off); ok && math.Abs(start+off-line) <= in.tol {
			if add(match{guide: Guide{Kind: KindGrid, Orientation: in.orient, Position: line}, start: line - off}) {
				return out
			}
		}
	}
	return out
}

// nearest returns the closest value to v in the sorted slice lines
func nearest(lines []float64, v float64) (float64, bool) {
	if len(lines) == 0 {
		return 0, false
	}
	i := sort.SearchFloat64s(lines, v)
	switch {
	case i == 0:
		return lines[0], true
	case i == len(lines):
		return lines[len(lines)-1], true
	}
	if v-lines[i-1] <= lines[i]-v {
		return lines[i-1], true
	}
	return lines[i], true
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}

func dedupe(guides []Guide) []Guide {
	if len(guides) == 0 {
		return nil
	}
	type key struct {
		kind   Kind
		orient Orientation
		pos    float64
		id     string
	}
	seen := make(map[key]bool, len(guides))
	out := guides[:0]
	for _, g := range guides {
		k := key{g.Kind, g.Orientation, g.Position, g.ElementID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, g)
	}
	return out
}

// debugLog is set by host code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}
