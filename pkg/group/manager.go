// Package group creates and dissolves element groups.
//
// Children of a group store their position relative to the group's origin.
// Moving a group therefore only rewrites the group element itself; the
// absolute position of a child is always derived as group origin plus
// relative position (see canvas.Elements.AbsolutePosition).
package group

import (
	"errors"
	"fmt"
	"log"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

var (
	// ErrInvalidGroup is returned when fewer than two distinct existing
	// elements are given to CreateGroup
	ErrInvalidGroup = errors.New("a group needs at least two existing elements")
	// ErrGroupNotFound is returned when an id does not reference a group
	ErrGroupNotFound = errors.New("group not found")
)

// Store owns the canonical element collection. Replace swaps in a whole new
// collection.
type Store interface {
	Elements() canvas.Elements
	Replace(els canvas.Elements)
}

// Recorder receives one snapshot per committed structural change
type Recorder interface {
	Push(els canvas.Elements, action string) bool
}

// Manager performs group operations against a Store
type Manager struct {
	store   Store
	history Recorder
}

// NewManager creates a group manager. history may be nil.
func NewManager(store Store, history Recorder) *Manager {
	return &Manager{store: store, history: history}
}

func (m *Manager) commit(els canvas.Elements, action string) {
	m.store.Replace(els)
	if m.history != nil {
		m.history.Push(els, action)
	}
}

// CreateGroup groups the given elements under a new group element whose
// geometry is their absolute bounding box. Members are rewritten to
// group-relative positions. One history entry is recorded.
func (m *Manager) CreateGroup(ids []string, name string) (canvas.Element, error) {
	els := m.store.Elements()

	members := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	rects := make([]canvas.Rect, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		r, ok := els.AbsoluteRect(id)
		if !ok {
			continue
		}
		members = append(members, id)
		rects = append(rects, r)
	}
	if len(members) < 2 {
		log.Printf("[Group] Cannot group %d element(s): %v", len(members), ErrInvalidGroup)
		return canvas.Element{}, ErrInvalidGroup
	}

	// members must share a parent so the new group can take their place
	parent := ""
	for i, id := range members {
		el, _ := els.Find(id)
		if i == 0 {
			parent = el.ParentGroupID
		} else if el.ParentGroupID != parent {
			log.Printf("[Group] Cannot group elements from different groups")
			return canvas.Element{}, fmt.Errorf("%w: members belong to different groups", ErrInvalidGroup)
		}
	}

	bounds, _ := canvas.Bounds(rects)
	g := canvas.Element{
		ID:            canvas.NewID(),
		Type:          canvas.TypeGroup,
		X:             bounds.X,
		Y:             bounds.Y,
		Width:         canvas.Float(bounds.Width),
		Height:        canvas.Float(bounds.Height),
		ZIndex:        canvas.Int(els.MaxZ() + 1),
		Visible:       canvas.Bool(true),
		IsGroup:       true,
		GroupChildren: members,
		Name:          name,
	}

	var px, py float64
	if parent != "" {
		// the group's stored position is relative to the shared parent
		px, py, _ = els.AbsolutePosition(parent)
		g.X -= px
		g.Y -= py
		g.ParentGroupID = parent
	}

	next := els.Clone()
	for _, id := range members {
		i := next.Index(id)
		abs := rects[indexOf(members, id)]
		next[i].X = abs.X - bounds.X
		next[i].Y = abs.Y - bounds.Y
		next[i].ParentGroupID = g.ID
	}
	if parent != "" {
		if i := next.Index(parent); i >= 0 {
			next[i].GroupChildren = replaceChildren(next[i].GroupChildren, members, g.ID)
		}
	}
	next = append(next, g)

	m.commit(next, "group")
	log.Printf("[Group] Created group %s with %d children", g.ID, len(members))
	return g.Clone(), nil
}

// UngroupElements dissolves a group, restoring its children's positions to
// the group's own coordinate space and removing the group element. Unknown
// ids are logged and ignored.
func (m *Manager) UngroupElements(groupID string) error {
	els := m.store.Elements()
	g, ok := els.Find(groupID)
	if !ok || !g.IsGroup {
		log.Printf("[Group] Ungroup %s: %v", groupID, ErrGroupNotFound)
		return fmt.Errorf("ungroup %s: %w", groupID, ErrGroupNotFound)
	}

	next := els.Clone()
	for _, childID := range g.GroupChildren {
		i := next.Index(childID)
		if i < 0 {
			continue
		}
		next[i].X += g.X
		next[i].Y += g.Y
		next[i].ParentGroupID = g.ParentGroupID
	}
	if g.ParentGroupID != "" {
		if i := next.Index(g.ParentGroupID); i >= 0 {
			next[i].GroupChildren = replaceChild(next[i].GroupChildren, g.ID, g.GroupChildren)
		}
	}
	next = next.Without(groupID)

	m.commit(next, "ungroup")
	log.Printf("[Group] Dissolved group %s", groupID)
	return nil
}

// MoveGroup translates a group by dx, dy. Children are untouched because
// their positions are relative. No history entry is recorded; the caller
// commits once the gesture ends.
func (m *Manager) MoveGroup(groupID string, dx, dy float64) error {
	els := m.store.Elements()
	next, ok := els.Update(groupID, func(g *canvas.Element) {
		g.X += dx
		g.Y += dy
	})
	if !ok || !isGroup(els, groupID) {
		return fmt.Errorf("move %s: %w", groupID, ErrGroupNotFound)
	}
	m.store.Replace(next)
	return nil
}

// SetGroupPosition moves a group so its stored origin is x, y
func (m *Manager) SetGroupPosition(groupID string, x, y float64) error {
	g, ok := m.store.Elements().Find(groupID)
	if !ok || !g.IsGroup {
		return fmt.Errorf("position %s: %w", groupID, ErrGroupNotFound)
	}
	return m.MoveGroup(groupID, x-g.X, y-g.Y)
}

// ResizeGroup replaces the group's own geometry. Children are not scaled;
// proportional resizing of children is the caller's responsibility.
func (m *Manager) ResizeGroup(groupID string, bounds canvas.Rect) error {
	els := m.store.Elements()
	if !isGroup(els, groupID) {
		return fmt.Errorf("resize %s: %w", groupID, ErrGroupNotFound)
	}
	next, _ := els.Update(groupID, func(g *canvas.Element) {
		g.X, g.Y = bounds.X, bounds.Y
		g.Width = canvas.Float(bounds.Width)
		g.Height = canvas.Float(bounds.Height)
	})
	m.store.Replace(next)
	return nil
}

// RecomputeBounds shrinks or grows a group to the bounding box of its
// children's absolute rectangles, keeping every child's absolute position
func (m *Manager) RecomputeBounds(groupID string) error {
	els := m.store.Elements()
	g, ok := els.Find(groupID)
	if !ok || !g.IsGroup {
		return fmt.Errorf("recompute %s: %w", groupID, ErrGroupNotFound)
	}

	rects := make([]canvas.Rect, 0, len(g.GroupChildren))
	for _, id := range g.GroupChildren {
		if r, ok := els.AbsoluteRect(id); ok {
			rects = append(rects, r)
		}
	}
	bounds, ok := canvas.Bounds(rects)
	if !ok {
		return nil
	}
	gx, gy, _ := els.AbsolutePosition(groupID)
	dx, dy := bounds.X-gx, bounds.Y-gy

	next := els.Clone()
	for _, id := range g.GroupChildren {
		if i := next.Index(id); i >= 0 {
			next[i].X -= dx
			next[i].Y -= dy
		}
	}
	i := next.Index(groupID)
	next[i].X += dx
	next[i].Y += dy
	next[i].Width = canvas.Float(bounds.Width)
	next[i].Height = canvas.Float(bounds.Height)

	m.store.Replace(next)
	return nil
}

// LayersHierarchy returns the display-ordered layer tree of the current collection
func (m *Manager) LayersHierarchy() []Layer {
	return Hierarchy(m.store.Elements())
}

func isGroup(els canvas.Elements, id string) bool {
	g, ok := els.Find(id)
	return ok && g.IsGroup
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// replaceChildren removes members from children and inserts groupID where
// the first member was
func replaceChildren(children, members []string, groupID string) []string {
	drop := make(map[string]bool, len(members))
	for _, id := range members {
		drop[id] = true
	}
	out := make([]string, 0, len(children))
	inserted := false
	for _, id := range children {
		if drop[id] {
			if !inserted {
				out = append(out, groupID)
				inserted = true
			}
			continue
		}
		out = append(out, id)
	}
	if !inserted {
		out = append(out, groupID)
	}
	return out
}

// replaceChild substitutes id in children with replacement
func replaceChild(children []string, id string, replacement []string) []string {
	out := make([]string, 0, len(children)+len(replacement))
	for _, c := range children {
		if c == id {
			out = append(out, replacement...)
			continue
		}
		out = append(out, c)
	}
	return out
}
