package editor

import (
	"sync"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/transform"
)

// surface is the last geometry reported by the host: where the canvas
// container sits on screen and which transforms apply to it
type surface struct {
	mu        sync.Mutex
	container canvas.Rect
	mounted   bool
	css       string
	cssSet    bool
	fitZoom   float64
	grabbing  bool
	zoom      transform.ZoomReader
}

func newSurface() *surface {
	return &surface{fitZoom: 1}
}

func (s *surface) setContainer(r canvas.Rect) {
	s.mu.Lock()
	s.container = r
	s.mounted = r.Width > 0 && r.Height > 0
	s.mu.Unlock()
}

func (s *surface) unmount() {
	s.mu.Lock()
	s.mounted = false
	s.mu.Unlock()
}

func (s *surface) setTransform(css string) {
	s.mu.Lock()
	s.css = css
	s.cssSet = true
	s.mu.Unlock()
}

func (s *surface) setFitZoom(z float64) {
	if z <= 0 {
		z = 1
	}
	s.mu.Lock()
	s.fitZoom = z
	s.cssSet = false
	s.mu.Unlock()
}

func (s *surface) setGrabbing(v bool) {
	s.mu.Lock()
	s.grabbing = v
	s.mu.Unlock()
}

func (s *surface) isGrabbing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grabbing
}

func (s *surface) rect() (canvas.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container, s.mounted
}

// effectiveZoom is the zoom of the latest geometry source. The host applies
// a published auto-fit zoom through its container transform, so the fit zoom
// is used only until the host reports a transform after it; from then on the
// transform alone is authoritative.
func (s *surface) effectiveZoom() float64 {
	s.mu.Lock()
	css, set, fit := s.css, s.cssSet, s.fitZoom
	s.mu.Unlock()
	if !set {
		return fit
	}
	return s.zoom.Read(css)
}

// env exposes an editor and its surface as a drag environment
type env struct {
	e *Editor
}

func (v env) ContainerRect() (canvas.Rect, bool) {
	return v.e.surface.rect()
}

func (v env) ElementRect(id string) (canvas.Rect, bool) {
	vp, ok := v.e.Viewport()
	if !ok {
		return canvas.Rect{}, false
	}
	r, ok := v.e.Elements().AbsoluteRect(id)
	if !ok {
		return canvas.Rect{}, false
	}
	return vp.RectToScreen(r), true
}

func (v env) Zoom() float64 { return v.e.surface.effectiveZoom() }
func (v env) LockScroll() { v.e.lock.BeginDrag() }
func (v env) UnlockScroll() { v.e.lock.EndDrag() }
func (v env) SetGrabbing(grabbing bool) { v.e.surface.setGrabbing(grabbing) }
func (v env) IsTouch() bool { return v.e.lock.Touch() }
