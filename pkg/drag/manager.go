// Package drag runs a single pointer drag from grab to release.
//
// A drag converts pointer positions to logical canvas units, keeps the
// element inside the canvas, pulls it onto snap guides and writes the result
// back through a Writer. Moves are coalesced to frame cadence.
package drag

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/events"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/scheduler"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/transform"
)

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// State of a Manager
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Outcome summarizes a finished drag. Moved is false when the element ended
// where it started, so callers can skip recording history.
type Outcome struct {
	ID    string
	Type  canvas.Type
	From  canvas.Point
	To    canvas.Point
	Moved bool
}

// Config wires a Manager to its collaborators. Scheduler and Bus may be nil:
// without a scheduler every move is applied immediately, without a bus no
// guide notifications are sent.
type Config struct {
	Env       Environment
	Source    Source
	Writer    Writer
	Snap      *snap.Engine
	Scheduler *scheduler.Scheduler
	Bus       *events.Bus
}

// session is the ephemeral state of one drag
type session struct {
	gen     uint64
	id      string
	typ     canvas.Type
	offset  canvas.Point
	size    canvas.Size
	from    canvas.Point
	last    canvas.Point
	locked  bool
	exclude []string
}

// Manager owns the Idle -> Dragging -> Idle state machine
type Manager struct {
	mu sync.Mutex
	// commit is held by a frame from position computation until its write
	// and guide notification land, and by End and Close while they release
	commit sync.Mutex

	cfg   Config
	key   string
	gen   uint64
	cur   *session
	moves uint64
}

// NewManager creates a drag manager
func NewManager(cfg Config) *Manager {
	m := &Manager{cfg: cfg}
	m.key = fmt.Sprintf("drag-move:%p", m)
	return m
}

// State returns the current state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		return Dragging
	}
	return Idle
}

// IsDragging reports whether a drag is active
func (m *Manager) IsDragging() bool {
	return m.State() == Dragging
}

// Active returns the id of the dragged element, or "" when idle
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.id
}

// Moves returns how many move frames have been applied since creation
func (m *Manager) Moves() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moves
}

func (m *Manager) viewport() (transform.Viewport, bool) {
	env := m.cfg.Env
	if env == nil || m.cfg.Source == nil {
		return transform.Viewport{}, false
	}
	container, ok := env.ContainerRect()
	if !ok {
		return transform.Viewport{}, false
	}
	return transform.Fit(container, m.cfg.Source.Canvas(), env.Zoom())
}

// Start begins dragging id with the pointer at screen (x, y). The grab
// offset is captured in logical units. Start is ignored while a drag is
// already active and is a no-op when the container or the element is not
// mounted. It reports whether a drag started.
func (m *Manager) Start(id string, typ canvas.Type, x, y float64) bool {
	m.mu.Lock()
	if m.cur != nil {
		m.mu.Unlock()
		if debugLog != nil {
			debugLog("[Drag] Ignoring start of", id, "while dragging")
		}
		return false
	}
	vp, ok := m.viewport()
	if !ok {
		m.mu.Unlock()
		return false
	}
	screen, ok := m.cfg.Env.ElementRect(id)
	if !ok {
		m.mu.Unlock()
		return false
	}

	rect := vp.RectToLogical(screen)
	pointer := vp.ScreenToLogical(canvas.Point{X: x, Y: y})
	from := canvas.Point{X: rect.X, Y: rect.Y}
	els := m.cfg.Source.Elements()
	if ax, ay, found := els.AbsolutePosition(id); found {
		from = canvas.Point{X: ax, Y: ay}
	}

	m.gen++
	s := &session{
		gen:     m.gen,
		id:      id,
		typ:     typ,
		offset:  canvas.Point{X: pointer.X - rect.X, Y: pointer.Y - rect.Y},
		size:    canvas.Size{Width: rect.Width, Height: rect.Height},
		from:    from,
		last:    from,
		exclude: append([]string{id}, Descendants(els, id)...),
	}
	s.locked = m.cfg.Env.IsTouch()
	m.cur = s
	env := m.cfg.Env
	m.mu.Unlock()

	env.SetGrabbing(true)
	if s.locked {
		env.LockScroll()
	}
	if debugLog != nil {
		debugLog("[Drag] Start", id, "offset", s.offset.X, s.offset.Y)
	}
	return true
}

// Move records a pointer position. The position is applied on the next
// frame; only the latest position of a frame is used.
func (m *Manager) Move(x, y float64) {
	m.mu.Lock()
	s := m.cur
	m.mu.Unlock()
	if s == nil {
		return
	}

	apply := func() { m.apply(s.gen, x, y) }
	if m.cfg.Scheduler == nil {
		apply()
		return
	}
	m.cfg.Scheduler.Request(m.key, apply)
}

// apply computes and writes the position for a pointer at screen (x, y)
func (m *Manager) apply(gen uint64, x, y float64) {
	m.commit.Lock()
	defer m.commit.Unlock()

	m.mu.Lock()
	s := m.cur
	if s == nil || s.gen != gen {
		m.mu.Unlock()
		return
	}
	vp, ok := m.viewport()
	if !ok {
		m.mu.Unlock()
		return
	}
	if _, mounted := m.cfg.Env.ElementRect(s.id); !mounted {
		m.mu.Unlock()
		return
	}

	pointer := vp.ScreenToLogical(canvas.Point{X: x, Y: y})
	bounds := vp.Logical
	pos := Clamp(canvas.Point{X: pointer.X - s.offset.X, Y: pointer.Y - s.offset.Y}, s.size, bounds)

	var guides []snap.Guide
	if m.cfg.Snap != nil {
		res := m.cfg.Snap.Snap(snap.Request{
			Rect:    canvas.Rect{X: pos.X, Y: pos.Y, Width: s.size.Width, Height: s.size.Height},
			Targets: Targets(m.cfg.Source.Elements()),
			Exclude: s.exclude,
			Zoom:    vp.Zoom,
		})
		pos = Clamp(canvas.Point{X: res.X, Y: res.Y}, s.size, bounds)
		guides = res.Guides
	}
	id := s.id
	m.mu.Unlock()

	if m.cfg.Writer != nil {
		if err := m.cfg.Writer.MoveTo(id, pos.X, pos.Y); err != nil {
			log.Printf("[Drag] Failed to move %s: %v", id, err)
			return
		}
	}

	m.mu.Lock()
	s.last = pos
	m.moves++
	m.mu.Unlock()

	m.cfg.Bus.Emit(events.ShowGuides{ElementID: id, Guides: guides, IsDragging: true})
}

// End finishes the drag, committing the latest pointer position if a frame
// is still pending. Scroll and cursor locks are released and guides hidden.
// ok is false when no drag was active.
func (m *Manager) End() (Outcome, bool) {
	if m.cfg.Scheduler != nil {
		m.cfg.Scheduler.RunNow(m.key)
	}

	// a frame already taken by the scheduler loop finishes first
	m.commit.Lock()
	s := m.release()
	m.commit.Unlock()
	if s == nil {
		return Outcome{}, false
	}
	out := Outcome{
		ID:    s.id,
		Type:  s.typ,
		From:  s.from,
		To:    s.last,
		Moved: s.last != s.from,
	}
	if debugLog != nil {
		debugLog("[Drag] End", s.id, "moved", out.Moved)
	}
	return out, true
}

// Close abandons any active drag without applying pending moves and reverts
// every lock. It is safe to call at any time.
func (m *Manager) Close() {
	if m.cfg.Scheduler != nil {
		m.cfg.Scheduler.Cancel(m.key)
	}
	m.commit.Lock()
	m.release()
	m.commit.Unlock()
}

func (m *Manager) release() *session {
	m.mu.Lock()
	s := m.cur
	m.cur = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	if env := m.cfg.Env; env != nil {
		env.SetGrabbing(false)
		if s.locked {
			env.UnlockScroll()
		}
	}
	m.cfg.Bus.Emit(events.HideGuides{ElementID: s.id})
	return s
}

// Clamp keeps a rectangle of size inside [0, bounds]. An element larger than
// the canvas is pinned to the origin on that axis.
func Clamp(p canvas.Point, size canvas.Size, bounds canvas.Size) canvas.Point {
	return canvas.Point{
		X: math.Max(0, math.Min(p.X, bounds.Width-size.Width)),
		Y: math.Max(0, math.Min(p.Y, bounds.Height-size.Height)),
	}
}

// Targets converts a collection into snap targets in absolute coordinates
func Targets(els canvas.Elements) []snap.Target {
	targets := make([]snap.Target, 0, len(els))
	for _, el := range els {
		r, ok := els.AbsoluteRect(el.ID)
		if !ok {
			continue
		}
		targets = append(targets, snap.Target{ID: el.ID, Rect: r, Visible: el.IsVisible()})
	}
	return targets
}

// Descendants lists every element nested under id
func Descendants(els canvas.Elements, id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range els.Children(cur) {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return out
}
