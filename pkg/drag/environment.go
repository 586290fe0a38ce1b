package drag

import "github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"

// Environment is the host surface a drag reads geometry from and applies
// page-level side effects to. Rect lookups report false when the node is not
// mounted; a drag then silently does nothing.
type Environment interface {
	// ContainerRect is the canvas container in screen pixels
	ContainerRect() (canvas.Rect, bool)
	// ElementRect is the rendered element in screen pixels
	ElementRect(id string) (canvas.Rect, bool)
	// Zoom is the extra zoom applied on top of the contain fit
	Zoom() float64

	LockScroll()
	UnlockScroll()
	SetGrabbing(grabbing bool)
	IsTouch() bool
}

// Source provides the canonical element collection and the logical canvas
// size of the active device
type Source interface {
	Elements() canvas.Elements
	Canvas() canvas.Size
}

// Writer stores a new absolute logical position for an element. Grouped
// elements are translated into their parent's space by the implementation.
type Writer interface {
	MoveTo(id string, x, y float64) error
}

// WriterFunc adapts a function to Writer
type WriterFunc func(id string, x, y float64) error

// MoveTo calls f
func (f WriterFunc) MoveTo(id string, x, y float64) error {
	return f(id, x, y)
}
