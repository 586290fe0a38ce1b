package canvas

// Position is where an element is stored: either on the canvas itself or
// relative to an owning group. Resolve it before use.
type Position interface {
	isPosition()
}

// Absolute is a position in canvas coordinates
type Absolute struct {
	X, Y float64
}

// GroupRelative is an offset from the origin of the owning group
type GroupRelative struct {
	GroupID string
	X, Y    float64
}

func (Absolute) isPosition()      {}
func (GroupRelative) isPosition() {}

// PositionOf returns the tagged stored position of an element
func (els Elements) PositionOf(id string) (Position, bool) {
	el, ok := els.Find(id)
	if !ok {
		return nil, false
	}
	if el.Grouped() {
		return GroupRelative{GroupID: el.ParentGroupID, X: el.X, Y: el.Y}, true
	}
	return Absolute{X: el.X, Y: el.Y}, true
}

// Resolve converts a stored position to absolute canvas coordinates
func (els Elements) Resolve(p Position) (float64, float64, bool) {
	switch p := p.(type) {
	case Absolute:
		return p.X, p.Y, true
	case GroupRelative:
		gx, gy, ok := els.AbsolutePosition(p.GroupID)
		if !ok {
			return 0, 0, false
		}
		return gx + p.X, gy + p.Y, true
	}
	return 0, 0, false
}
