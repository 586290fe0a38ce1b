package group

import (
	"sort"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
)

// Layer is one row of the layer list
type Layer struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     canvas.Type `json:"type"`
	ZIndex   int         `json:"zIndex"`
	Visible  bool        `json:"visible"`
	Locked   bool        `json:"locked"`
	Children []Layer     `json:"children,omitempty"`
}

// Hierarchy projects the collection into a layer tree. Top-level units are
// sorted by descending effective z; a group's effective z is the highest z of
// its children, or its own when no child defines one. Children are sorted by
// descending z. Ties keep collection order. els is never modified.
func Hierarchy(els canvas.Elements) []Layer {
	var top []canvas.Element
	for _, el := range els {
		if !el.Grouped() {
			top = append(top, el)
		}
	}
	return layersOf(els, top, map[string]bool{})
}

func layersOf(els canvas.Elements, units []canvas.Element, visiting map[string]bool) []Layer {
	type ranked struct {
		el canvas.Element
		z  int
	}
	rs := make([]ranked, len(units))
	for i, el := range units {
		rs[i] = ranked{el: el, z: effectiveZ(els, el)}
	}
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].z > rs[j].z })

	out := make([]Layer, 0, len(rs))
	for _, r := range rs {
		l := Layer{
			ID:      r.el.ID,
			Name:    els.DisplayName(r.el.ID),
			Type:    r.el.Type,
			ZIndex:  r.z,
			Visible: r.el.IsVisible(),
			Locked:  r.el.Locked,
		}
		if r.el.IsGroup && !visiting[r.el.ID] {
			visiting[r.el.ID] = true
			l.Children = layersOf(els, els.Children(r.el.ID), visiting)
			delete(visiting, r.el.ID)
		}
		out = append(out, l)
	}
	return out
}

func effectiveZ(els canvas.Elements, el canvas.Element) int {
	if !el.IsGroup {
		return el.Z()
	}
	found := false
	maxZ := 0
	for _, child := range els.Children(el.ID) {
		if !child.HasZ() {
			continue
		}
		if !found || child.Z() > maxZ {
			maxZ = child.Z()
			found = true
		}
	}
	if !found {
		return el.Z()
	}
	return maxZ
}
