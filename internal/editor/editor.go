// Package editor owns the canonical element collection of one campaign canvas
// and routes every change through it.
//
// All writes replace the whole collection. Discrete actions (add, delete,
// resize, group, ungroup, the end of a drag that moved something) record one
// history entry each; drag frames never do.
package editor

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/drag"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/events"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/group"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/history"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/mobilelock"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/reactive"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/scheduler"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/transform"
)

// ErrInvalidSize is returned by ResizeElement for non-positive sizes
var ErrInvalidSize = errors.New("size must be positive")

// Options configures an Editor. The zero value is a desktop editor with
// default snapping that applies drag moves immediately.
type Options struct {
	Device  device.Device
	Devices *device.Provider
	// Snap is used as is when any field is set; the canvas size is always
	// taken from the active device
	Snap            snap.Options
	HistoryCapacity int
	// Padding around the auto-fitted canvas on touch devices, in screen pixels
	Padding   float64
	Body      mobilelock.Body
	Bus       *events.Bus
	Scheduler *scheduler.Scheduler
}

// Editor is the single writer of an element collection
type Editor struct {
	// mu serializes compound writes; reads go through the reactive state
	mu sync.Mutex

	elements *reactive.State[canvas.Elements]
	device   *reactive.State[device.Device]
	layers   *reactive.Computed[canvas.Elements, []group.Layer]

	devices *device.Provider
	history *history.History
	groups  *group.Manager
	drags   *drag.Manager
	lock    *mobilelock.Lock
	snap    *snap.Engine
	bus     *events.Bus
	surface *surface

	stopZoom func()
}

// New creates an editor with an empty collection
func New(opts Options) *Editor {
	if opts.Devices == nil {
		opts.Devices = device.Default()
	}
	if opts.Device == "" {
		opts.Device = device.Reference
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	size := opts.Devices.Dimensions(opts.Device)
	snapOpts := opts.Snap
	if snapOpts == (snap.Options{}) {
		snapOpts = snap.DefaultOptions(size)
	}
	snapOpts.Canvas = size

	e := &Editor{
		elements: reactive.NewState(canvas.Elements{}),
		device:   reactive.NewState(opts.Device),
		devices:  opts.Devices,
		snap:     snap.NewEngine(snapOpts),
		bus:      opts.Bus,
		surface:  newSurface(),
	}
	e.history = history.New(opts.HistoryCapacity, e.restore)
	e.history.Push(canvas.Elements{}, "init")
	e.groups = group.NewManager(e, e.history)
	e.lock = mobilelock.New(opts.Body, opts.Bus, device.IsTouch(opts.Device), opts.Padding)
	e.drags = drag.NewManager(drag.Config{
		Env:       env{e: e},
		Source:    e,
		Writer:    e,
		Snap:      e.snap,
		Scheduler: opts.Scheduler,
		Bus:       opts.Bus,
	})
	e.layers = reactive.NewComputed(e.elements, group.Hierarchy)
	e.stopZoom = events.On(opts.Bus, func(ev events.AdjustZoom) {
		e.surface.setFitZoom(ev.Zoom)
	})
	return e
}

// Elements returns the current collection. Callers must not modify it.
func (e *Editor) Elements() canvas.Elements {
	return e.elements.Get()
}

// Replace swaps in a new collection without recording history
func (e *Editor) Replace(els canvas.Elements) {
	e.elements.Set(els)
}

// Subscribe registers fn for every new collection
func (e *Editor) Subscribe(fn func(canvas.Elements)) func() {
	return e.elements.Subscribe(fn)
}

// Canvas returns the logical canvas size of the active device
func (e *Editor) Canvas() canvas.Size {
	return e.devices.Dimensions(e.device.Get())
}

// Device returns the active device
func (e *Editor) Device() device.Device {
	return e.device.Get()
}

// Devices returns the dimension provider
func (e *Editor) Devices() *device.Provider {
	return e.devices
}

// Bus returns the event bus guides and zoom changes are published on
func (e *Editor) Bus() *events.Bus {
	return e.bus
}

// SnapEngine returns the snap engine
func (e *Editor) SnapEngine() *snap.Engine {
	return e.snap
}

// Layers returns the layer tree of the current collection
func (e *Editor) Layers() []group.Layer {
	return e.layers.Get()
}

func (e *Editor) restore(els canvas.Elements) {
	e.elements.Set(els)
}

func (e *Editor) commit(els canvas.Elements, action string) {
	e.elements.Set(els)
	e.history.Push(els, action)
}

// Load replaces the collection with a stored document and starts a fresh
// history from it
func (e *Editor) Load(els canvas.Elements) error {
	if err := els.Validate(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	e.drags.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	els = els.Clone()
	e.elements.Set(els)
	e.history.Clear()
	e.history.Push(els, "load")
	return nil
}

// AddElement creates an element of type t at x, y above every existing element
func (e *Editor) AddElement(t canvas.Type, x, y float64) canvas.Element {
	e.mu.Lock()
	defer e.mu.Unlock()

	els := e.Elements()
	el := canvas.New(t, x, y)
	el.ZIndex = canvas.Int(els.MaxZ() + 1)
	el.Visible = canvas.Bool(true)
	e.commit(els.Append(el), "add")
	return el.Clone()
}

// DeleteElements removes elements by id. Deleting a group deletes its
// descendants; a deleted child is dropped from its group and a group left
// without children is removed. It returns how many elements were removed.
func (e *Editor) DeleteElements(ids ...string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	els := e.Elements()
	doomed := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if doomed[id] {
			return
		}
		if _, ok := els.Find(id); !ok {
			return
		}
		doomed[id] = true
		for _, child := range els.Children(id) {
			walk(child.ID)
		}
	}
	for _, id := range ids {
		walk(id)
	}
	if len(doomed) == 0 {
		return 0
	}

	var affected []string
	for id := range doomed {
		el, _ := els.Find(id)
		if el.ParentGroupID != "" && !doomed[el.ParentGroupID] {
			affected = append(affected, el.ParentGroupID)
		}
	}

	next := make(canvas.Elements, 0, len(els))
	for _, el := range els {
		if doomed[el.ID] {
			continue
		}
		if el.IsGroup {
			el = el.Clone()
			kept := el.GroupChildren[:0]
			for _, c := range el.GroupChildren {
				if !doomed[c] {
					kept = append(kept, c)
				}
			}
			el.GroupChildren = kept
		}
		next = append(next, el)
	}
	removed := len(els) - len(next)

	// emptied groups go too
	for _, id := range affected {
		if g, ok := next.Find(id); ok && len(g.GroupChildren) == 0 {
			next = next.Without(id)
			removed++
		}
	}
	e.elements.Set(next)
	for _, id := range affected {
		if _, ok := next.Find(id); ok {
			_ = e.groups.RecomputeBounds(id)
		}
	}
	e.history.Push(e.Elements(), "delete")
	log.Printf("[Editor] Deleted %d element(s)", removed)
	return removed
}

// ResizeElement sets the logical size of an element. A group only changes
// its own box; its children keep their size.
func (e *Editor) ResizeElement(id string, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize %s: %w", id, ErrInvalidSize)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	els := e.Elements()
	el, ok := els.Find(id)
	if !ok {
		return fmt.Errorf("resize %s: %w", id, canvas.ErrNotFound)
	}
	if el.IsGroup {
		if err := e.groups.ResizeGroup(id, canvas.Rect{X: el.X, Y: el.Y, Width: width, Height: height}); err != nil {
			return err
		}
		e.history.Push(e.Elements(), "resize")
		return nil
	}
	next, _ := els.Update(id, func(el *canvas.Element) {
		el.Width = canvas.Float(width)
		el.Height = canvas.Float(height)
	})
	e.commit(next, "resize")
	return nil
}

// SetVisible shows or hides an element
func (e *Editor) SetVisible(id string, visible bool) error {
	return e.edit(id, "visibility", func(el *canvas.Element) { el.Visible = canvas.Bool(visible) })
}

// SetLocked locks or unlocks an element. Locked elements cannot be dragged.
func (e *Editor) SetLocked(id string, locked bool) error {
	return e.edit(id, "lock", func(el *canvas.Element) { el.Locked = locked })
}

// Rename sets the display name of an element
func (e *Editor) Rename(id, name string) error {
	return e.edit(id, "rename", func(el *canvas.Element) { el.Name = name })
}

func (e *Editor) edit(id, action string, fn func(*canvas.Element)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, ok := e.Elements().Update(id, fn)
	if !ok {
		return fmt.Errorf("%s %s: %w", action, id, canvas.ErrNotFound)
	}
	e.commit(next, action)
	return nil
}

// MoveTo writes an absolute logical position. Groups are moved through the
// group manager; grouped children cannot be moved on their own.
func (e *Editor) MoveTo(id string, x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	els := e.Elements()
	el, ok := els.Find(id)
	if !ok {
		return fmt.Errorf("move %s: %w", id, canvas.ErrNotFound)
	}
	if el.IsGroup {
		var px, py float64
		if el.ParentGroupID != "" {
			px, py, _ = els.AbsolutePosition(el.ParentGroupID)
		}
		return e.groups.SetGroupPosition(id, x-px, y-py)
	}
	next, err := els.SetPosition(id, x, y)
	if err != nil {
		return err
	}
	e.elements.Set(next)
	return nil
}

// Nudge moves the top-level unit containing id by dx, dy logical units,
// kept inside the canvas, and records one history entry
func (e *Editor) Nudge(id string, dx, dy float64) error {
	els := e.Elements()
	el, ok := outermost(els, id)
	if !ok {
		return fmt.Errorf("nudge %s: %w", id, canvas.ErrNotFound)
	}
	if el.Locked {
		return fmt.Errorf("nudge %s: element is locked", el.ID)
	}
	r, _ := els.AbsoluteRect(el.ID)
	p := drag.Clamp(canvas.Point{X: r.X + dx, Y: r.Y + dy}, canvas.Size{Width: r.Width, Height: r.Height}, e.Canvas())
	if p.X == r.X && p.Y == r.Y {
		return nil
	}
	if err := e.MoveTo(el.ID, p.X, p.Y); err != nil {
		return err
	}
	e.mu.Lock()
	e.history.Push(e.Elements(), "nudge")
	e.mu.Unlock()
	return nil
}

// outermost resolves id to itself or the outermost group containing it
func outermost(els canvas.Elements, id string) (canvas.Element, bool) {
	el, ok := els.Find(id)
	if !ok {
		return canvas.Element{}, false
	}
	for i := 0; el.ParentGroupID != "" && i < len(els); i++ {
		parent, ok := els.Find(el.ParentGroupID)
		if !ok {
			break
		}
		el = parent
	}
	return el, true
}

// Group groups elements under a new group
func (e *Editor) Group(ids []string, name string) (canvas.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.groups.CreateGroup(ids, name)
}

// Ungroup dissolves a group
func (e *Editor) Ungroup(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.groups.UngroupElements(id)
}

// Undo restores the previous snapshot
func (e *Editor) Undo() bool {
	if e.drags.IsDragging() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Undo()
}

// Redo restores the next snapshot
func (e *Editor) Redo() bool {
	if e.drags.IsDragging() {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Redo()
}

// CanUndo reports whether Undo would change anything
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether Redo would change anything
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// SetDevice switches the active device. Any drag in progress is abandoned.
func (e *Editor) SetDevice(d device.Device) {
	e.drags.Close()
	e.device.Set(d)
	e.snap.SetCanvas(e.devices.Dimensions(d))
	e.lock.SetTouch(device.IsTouch(d))
	log.Printf("[Editor] Device set to %s", d)
}

// SetContainer reports where the canvas container is on screen. An empty
// rectangle unmounts it.
func (e *Editor) SetContainer(r canvas.Rect) {
	e.surface.setContainer(r)
}

// Unmount marks the canvas container as gone. Active drags become no-ops.
func (e *Editor) Unmount() {
	e.surface.unmount()
}

// SetTransform records the CSS transform of the container. The transform
// includes any auto-fit zoom the host applied and supersedes it.
func (e *Editor) SetTransform(css string) {
	e.surface.setTransform(css)
}

// Zoom returns the effective extra zoom of the container
func (e *Editor) Zoom() float64 {
	return e.surface.effectiveZoom()
}

// Observe fits the canvas into a viewport on touch devices
func (e *Editor) Observe(viewport canvas.Size) (float64, bool) {
	return e.lock.Observe(viewport, e.Canvas())
}

// Viewport returns the current screen mapping
func (e *Editor) Viewport() (transform.Viewport, bool) {
	r, ok := e.surface.rect()
	if !ok {
		return transform.Viewport{}, false
	}
	return transform.Fit(r, e.Canvas(), e.surface.effectiveZoom())
}

// HitTest returns the top-level unit under the screen point: an ungrouped
// element or the outermost group containing the hit element
func (e *Editor) HitTest(x, y float64) (string, bool) {
	vp, ok := e.Viewport()
	if !ok {
		return "", false
	}
	p := vp.ScreenToLogical(canvas.Point{X: x, Y: y})
	els := e.Elements()
	for _, l := range e.Layers() {
		if !l.Visible {
			continue
		}
		if r, ok := els.AbsoluteRect(l.ID); ok && r.Contains(p) {
			return l.ID, true
		}
	}
	return "", false
}

// BeginDrag starts dragging id from screen x, y. A grouped element drags its
// outermost group. Locked elements do not drag.
func (e *Editor) BeginDrag(id string, x, y float64) bool {
	el, ok := outermost(e.Elements(), id)
	if !ok {
		return false
	}
	if el.Locked {
		log.Printf("[Editor] Element %s is locked", el.ID)
		return false
	}
	return e.drags.Start(el.ID, el.Type, x, y)
}

// DragTo moves the active drag to screen x, y
func (e *Editor) DragTo(x, y float64) {
	e.drags.Move(x, y)
}

// EndDrag finishes the active drag and records one history entry when the
// element moved
func (e *Editor) EndDrag() (drag.Outcome, bool) {
	out, ok := e.drags.End()
	if !ok || !out.Moved {
		return out, ok
	}
	e.mu.Lock()
	e.history.Push(e.Elements(), "move")
	e.mu.Unlock()
	return out, true
}

// Dragging returns the id being dragged, or ""
func (e *Editor) Dragging() string {
	return e.drags.Active()
}

// Grabbing reports whether the host should show a grabbing cursor
func (e *Editor) Grabbing() bool {
	return e.surface.isGrabbing()
}

// ScrollLocked reports whether page scroll is locked for a touch drag
func (e *Editor) ScrollLocked() bool {
	return e.lock.Locked()
}

// Close abandons any drag and releases every lock
func (e *Editor) Close() {
	e.drags.Close()
	e.lock.Close()
	e.layers.Close()
	e.stopZoom()
}
