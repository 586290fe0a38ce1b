package canvas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedFixture() Elements {
	return Elements{
		{ID: "g", Type: TypeGroup, X: 10, Y: 20, Width: Float(60), Height: Float(60), IsGroup: true, GroupChildren: []string{"a", "b"}},
		{ID: "a", Type: TypeShape, X: 0, Y: 0, Width: Float(20), Height: Float(20), ParentGroupID: "g"},
		{ID: "b", Type: TypeShape, X: 40, Y: 40, Width: Float(20), Height: Float(20), ParentGroupID: "g"},
		{ID: "c", Type: TypeText, X: 300, Y: 300},
	}
}

func TestElement_SizeDefaults(t *testing.T) {
	tests := []struct {
		name  string
		el    Element
		wantW float64
		wantH float64
	}{
		{"text", Element{Type: TypeText}, 100, 30},
		{"image", Element{Type: TypeImage}, 100, 100},
		{"shape", Element{Type: TypeShape}, 100, 100},
		{"explicit", Element{Type: TypeText, Width: Float(12), Height: Float(7)}, 12, 7},
		{"group without geometry", Element{Type: TypeGroup}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.el.Size()
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestElement_CloneIsDeep(t *testing.T) {
	el := Element{ID: "x", Width: Float(5), ZIndex: Int(2), Visible: Bool(true), GroupChildren: []string{"a"}}
	c := el.Clone()
	*c.Width = 9
	*c.ZIndex = 7
	c.GroupChildren[0] = "z"

	assert.Equal(t, 5.0, *el.Width)
	assert.Equal(t, 2, *el.ZIndex)
	assert.Equal(t, "a", el.GroupChildren[0])
}

func TestElements_ReplaceDoesNotMutate(t *testing.T) {
	els := groupedFixture()
	c, _ := els.Find("c")
	c.X = 1

	next := els.Replace(c)

	orig, _ := els.Find("c")
	moved, _ := next.Find("c")
	assert.Equal(t, 300.0, orig.X)
	assert.Equal(t, 1.0, moved.X)
}

func TestElements_AbsolutePosition(t *testing.T) {
	els := groupedFixture()

	x, y, ok := els.AbsolutePosition("b")
	require.True(t, ok)
	assert.Equal(t, 50.0, x)
	assert.Equal(t, 60.0, y)

	x, y, ok = els.AbsolutePosition("c")
	require.True(t, ok)
	assert.Equal(t, 300.0, x)
	assert.Equal(t, 300.0, y)

	_, _, ok = els.AbsolutePosition("missing")
	assert.False(t, ok)
}

func TestElements_PositionResolve(t *testing.T) {
	els := groupedFixture()

	p, ok := els.PositionOf("a")
	require.True(t, ok)
	rel, isRel := p.(GroupRelative)
	require.True(t, isRel)
	assert.Equal(t, "g", rel.GroupID)

	x, y, ok := els.Resolve(p)
	require.True(t, ok)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)

	p, _ = els.PositionOf("c")
	_, isAbs := p.(Absolute)
	assert.True(t, isAbs)
}

func TestElements_SetPositionRejectsGroupMembers(t *testing.T) {
	els := groupedFixture()

	_, err := els.SetPosition("a", 1, 1)
	assert.True(t, errors.Is(err, ErrGroupMember))

	_, err = els.SetPosition("nope", 1, 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	next, err := els.SetPosition("c", 5, 6)
	require.NoError(t, err)
	c, _ := next.Find("c")
	assert.Equal(t, 5.0, c.X)
	assert.Equal(t, 6.0, c.Y)
}

func TestElements_Validate(t *testing.T) {
	require.NoError(t, groupedFixture().Validate())

	broken := groupedFixture()
	broken[2].ParentGroupID = ""
	assert.Error(t, broken.Validate())

	orphan := groupedFixture().Without("g")
	assert.Error(t, orphan.Validate())

	dup := groupedFixture().Append(Element{ID: "c", Type: TypeShape})
	assert.Error(t, dup.Validate())
}

func TestElements_DisplayName(t *testing.T) {
	els := Elements{
		{ID: "1", Type: TypeText},
		{ID: "2", Type: TypeShape},
		{ID: "3", Type: TypeText},
		{ID: "4", Type: TypeShape, Name: "Logo"},
	}
	assert.Equal(t, "Text 2", els.DisplayName("3"))
	assert.Equal(t, "Shape 1", els.DisplayName("2"))
	assert.Equal(t, "Logo", els.DisplayName("4"))
	assert.Equal(t, "", els.DisplayName("9"))
}

func TestElements_WithoutAndMaxZ(t *testing.T) {
	els := Elements{
		{ID: "a", ZIndex: Int(3)},
		{ID: "b", ZIndex: Int(11)},
		{ID: "c"},
	}
	assert.Equal(t, 11, els.MaxZ())
	assert.Len(t, els.Without("b", "c"), 1)
	assert.Len(t, els, 3)
}

func TestBounds(t *testing.T) {
	b, ok := Bounds([]Rect{{10, 10, 20, 20}, {50, 50, 20, 20}})
	require.True(t, ok)
	assert.Equal(t, Rect{10, 10, 60, 60}, b)

	_, ok = Bounds(nil)
	assert.False(t, ok)
}
