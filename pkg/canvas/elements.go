package canvas

import (
	"fmt"
)

// Elements is the canonical element collection.
//
// Collections are replaced, never mutated in place: every method that changes
// content returns a new slice and leaves the receiver untouched.
type Elements []Element

// Clone returns a deep copy of the collection
func (els Elements) Clone() Elements {
	if els == nil {
		return nil
	}
	out := make(Elements, len(els))
	for i, el := range els {
		out[i] = el.Clone()
	}
	return out
}

// Index returns the position of id in the collection, or -1
func (els Elements) Index(id string) int {
	for i := range els {
		if els[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the element with the given id
func (els Elements) Find(id string) (Element, bool) {
	if i := els.Index(id); i >= 0 {
		return els[i], true
	}
	return Element{}, false
}

// Replace returns a copy of the collection with el substituted by id.
// The collection is returned unchanged when el.ID is unknown.
func (els Elements) Replace(el Element) Elements {
	i := els.Index(el.ID)
	if i < 0 {
		return els
	}
	out := els.Clone()
	out[i] = el.Clone()
	return out
}

// Update applies fn to a copy of the element with the given id
func (els Elements) Update(id string, fn func(*Element)) (Elements, bool) {
	i := els.Index(id)
	if i < 0 {
		return els, false
	}
	out := els.Clone()
	fn(&out[i])
	return out, true
}

// Append returns a copy of the collection with added appended
func (els Elements) Append(added ...Element) Elements {
	out := make(Elements, 0, len(els)+len(added))
	out = append(out, els.Clone()...)
	for _, el := range added {
		out = append(out, el.Clone())
	}
	return out
}

// Without returns a copy of the collection without the given ids
func (els Elements) Without(ids ...string) Elements {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make(Elements, 0, len(els))
	for _, el := range els {
		if !drop[el.ID] {
			out = append(out, el.Clone())
		}
	}
	return out
}

// MaxZ returns the highest z-index in the collection
func (els Elements) MaxZ() int {
	maxZ := 0
	for _, el := range els {
		if el.Z() > maxZ {
			maxZ = el.Z()
		}
	}
	return maxZ
}

// Children returns the elements owned by the given group, in GroupChildren order
func (els Elements) Children(groupID string) Elements {
	g, ok := els.Find(groupID)
	if !ok {
		return nil
	}
	out := make(Elements, 0, len(g.GroupChildren))
	for _, id := range g.GroupChildren {
		if child, ok := els.Find(id); ok {
			out = append(out, child)
		}
	}
	return out
}

// AbsolutePosition resolves the absolute position of an element by adding the
// origin of every owning group. This is the single accessor rendering and
// hit-testing use.
func (els Elements) AbsolutePosition(id string) (float64, float64, bool) {
	el, ok := els.Find(id)
	if !ok {
		return 0, 0, false
	}
	x, y := el.X, el.Y
	seen := map[string]bool{id: true}
	for parent := el.ParentGroupID; parent != ""; {
		if seen[parent] {
			break
		}
		seen[parent] = true
		g, ok := els.Find(parent)
		if !ok {
			break
		}
		x += g.X
		y += g.Y
		parent = g.ParentGroupID
	}
	return x, y, true
}

// AbsoluteRect returns the absolute logical rectangle of an element
func (els Elements) AbsoluteRect(id string) (Rect, bool) {
	x, y, ok := els.AbsolutePosition(id)
	if !ok {
		return Rect{}, false
	}
	el, _ := els.Find(id)
	w, h := el.Size()
	return Rect{X: x, Y: y, Width: w, Height: h}, true
}

// SetPosition writes an absolute position to a top-level element.
// Grouped children are rejected with ErrGroupMember.
func (els Elements) SetPosition(id string, x, y float64) (Elements, error) {
	el, ok := els.Find(id)
	if !ok {
		return els, fmt.Errorf("set position %s: %w", id, ErrNotFound)
	}
	if el.Grouped() {
		return els, fmt.Errorf("set position %s: %w", id, ErrGroupMember)
	}
	el.X, el.Y = x, y
	return els.Replace(el), nil
}

// Validate checks the bidirectional group invariant
func (els Elements) Validate() error {
	seen := make(map[string]bool, len(els))
	for _, el := range els {
		if seen[el.ID] {
			return fmt.Errorf("duplicate element id %q", el.ID)
		}
		seen[el.ID] = true
	}
	for _, el := range els {
		if el.IsGroup {
			for _, childID := range el.GroupChildren {
				child, ok := els.Find(childID)
				if !ok {
					return fmt.Errorf("group %q references missing child %q", el.ID, childID)
				}
				if child.ParentGroupID != el.ID {
					return fmt.Errorf("child %q of group %q has parent %q", childID, el.ID, child.ParentGroupID)
				}
			}
		}
		if el.ParentGroupID != "" {
			g, ok := els.Find(el.ParentGroupID)
			if !ok || !g.IsGroup {
				return fmt.Errorf("element %q references missing group %q", el.ID, el.ParentGroupID)
			}
			if !g.HasChild(el.ID) {
				return fmt.Errorf("group %q does not list child %q", g.ID, el.ID)
			}
		}
	}
	return nil
}

// DisplayName returns the element's name or a synthetic one derived from its
// type and ordinal, e.g. "Text 2"
func (els Elements) DisplayName(id string) string {
	el, ok := els.Find(id)
	if !ok {
		return ""
	}
	if el.Name != "" {
		return el.Name
	}
	n := 0
	for _, other := range els {
		if other.Type == el.Type {
			n++
		}
		if other.ID == id {
			break
		}
	}
	return fmt.Sprintf("%s %d", typeLabel(el.Type), n)
}

func typeLabel(t Type) string {
	switch t {
	case TypeText:
		return "Text"
	case TypeImage:
		return "Image"
	case TypeShape:
		return "Shape"
	case TypeGroup:
		return "Group"
	}
	return "Element"
}
