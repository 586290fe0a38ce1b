// Package canvas defines the positioned elements of a campaign canvas and the
// helpers that resolve their absolute geometry.
package canvas

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Type is the kind of a canvas element
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeShape Type = "shape"
	TypeGroup Type = "group"
)

// Default sizes applied when an element carries no explicit geometry
const (
	DefaultTextWidth   = 100
	DefaultTextHeight  = 30
	DefaultBlockWidth  = 100
	DefaultBlockHeight = 100
)

var (
	// ErrGroupMember is returned when an absolute position is written to an
	// element owned by a group. Grouped children are moved through the group.
	ErrGroupMember = errors.New("element belongs to a group")
	// ErrNotFound is returned when an id does not reference an element
	ErrNotFound = errors.New("element not found")
)

// Element is a positioned visual unit on the canvas.
//
// X and Y are absolute when ParentGroupID is empty and relative to the owning
// group's origin otherwise. Use Elements.AbsolutePosition to resolve them.
type Element struct {
	ID            string   `json:"id" yaml:"id"`
	Type          Type     `json:"type" yaml:"type"`
	X             float64  `json:"x" yaml:"x"`
	Y             float64  `json:"y" yaml:"y"`
	Width         *float64 `json:"width,omitempty" yaml:"width,omitempty"`
	Height        *float64 `json:"height,omitempty" yaml:"height,omitempty"`
	ZIndex        *int     `json:"zIndex,omitempty" yaml:"zIndex,omitempty"`
	Visible       *bool    `json:"visible,omitempty" yaml:"visible,omitempty"`
	Locked        bool     `json:"locked,omitempty" yaml:"locked,omitempty"`
	ParentGroupID string   `json:"parentGroupId,omitempty" yaml:"parentGroupId,omitempty"`
	IsGroup       bool     `json:"isGroup,omitempty" yaml:"isGroup,omitempty"`
	GroupChildren []string `json:"groupChildren,omitempty" yaml:"groupChildren,omitempty"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
}

// NewID returns a fresh element identifier
func NewID() string {
	return uuid.NewString()
}

// New creates an element of the given type at x, y with its default size
func New(t Type, x, y float64) Element {
	el := Element{
		ID:   NewID(),
		Type: t,
		X:    x,
		Y:    y,
	}
	w, h := defaultSize(t)
	if w > 0 {
		el.Width = Float(w)
		el.Height = Float(h)
	}
	return el
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

func defaultSize(t Type) (float64, float64) {
	switch t {
	case TypeText:
		return DefaultTextWidth, DefaultTextHeight
	case TypeImage, TypeShape:
		return DefaultBlockWidth, DefaultBlockHeight
	}
	return 0, 0
}

// Size returns the element's logical size, applying type defaults when unset
func (e Element) Size() (float64, float64) {
	w, h := defaultSize(e.Type)
	if e.Width != nil {
		w = *e.Width
	}
	if e.Height != nil {
		h = *e.Height
	}
	return w, h
}

// Z returns the z-index, or 0 when none is defined
func (e Element) Z() int {
	if e.ZIndex == nil {
		return 0
	}
	return *e.ZIndex
}

// HasZ reports whether the element carries an explicit z-index
func (e Element) HasZ() bool {
	return e.ZIndex != nil
}

// IsVisible reports whether the element is displayed. Unset means visible.
func (e Element) IsVisible() bool {
	return e.Visible == nil || *e.Visible
}

// Grouped reports whether the element is owned by a group
func (e Element) Grouped() bool {
	return e.ParentGroupID != ""
}

// Clone returns a deep copy of the element
func (e Element) Clone() Element {
	c := e
	if e.Width != nil {
		c.Width = Float(*e.Width)
	}
	if e.Height != nil {
		c.Height = Float(*e.Height)
	}
	if e.ZIndex != nil {
		c.ZIndex = Int(*e.ZIndex)
	}
	if e.Visible != nil {
		c.Visible = Bool(*e.Visible)
	}
	if e.GroupChildren != nil {
		c.GroupChildren = append([]string(nil), e.GroupChildren...)
	}
	return c
}

// HasChild reports whether id is one of the group's children
func (e Element) HasChild(id string) bool {
	for _, child := range e.GroupChildren {
		if child == id {
			return true
		}
	}
	return false
}

func (e Element) String() string {
	w, h := e.Size()
	return fmt.Sprintf("%s(%s @ %.1f,%.1f %.1fx%.1f)", e.Type, e.ID, e.X, e.Y, w, h)
}
