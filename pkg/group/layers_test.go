package group

import (
	"testing"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy_Ordering(t *testing.T) {
	els := canvas.Elements{
		{ID: "t1", Type: canvas.TypeText, ZIndex: canvas.Int(2)},
		{ID: "g", Type: canvas.TypeGroup, IsGroup: true, ZIndex: canvas.Int(1), GroupChildren: []string{"c1", "c2"}},
		{ID: "c1", Type: canvas.TypeShape, ZIndex: canvas.Int(3), ParentGroupID: "g"},
		{ID: "c2", Type: canvas.TypeShape, ZIndex: canvas.Int(9), ParentGroupID: "g"},
		{ID: "i1", Type: canvas.TypeImage, ZIndex: canvas.Int(5)},
	}
	before := els.Clone()

	layers := Hierarchy(els)
	require.Len(t, layers, 3)
	assert.Equal(t, "g", layers[0].ID)
	assert.Equal(t, 9, layers[0].ZIndex)
	assert.Equal(t, "i1", layers[1].ID)
	assert.Equal(t, "t1", layers[2].ID)

	require.Len(t, layers[0].Children, 2)
	assert.Equal(t, "c2", layers[0].Children[0].ID)
	assert.Equal(t, "c1", layers[0].Children[1].ID)
	assert.Equal(t, "Group 1", layers[0].Name)
	assert.Equal(t, "Shape 2", layers[0].Children[0].Name)

	assert.Equal(t, before, els)
}

func TestHierarchy_GroupWithoutChildZ(t *testing.T) {
	els := canvas.Elements{
		{ID: "a", Type: canvas.TypeShape, ZIndex: canvas.Int(4)},
		{ID: "g", Type: canvas.TypeGroup, IsGroup: true, ZIndex: canvas.Int(7), GroupChildren: []string{"c"}},
		{ID: "c", Type: canvas.TypeShape, ParentGroupID: "g"},
	}
	layers := Hierarchy(els)
	require.Len(t, layers, 2)
	assert.Equal(t, "g", layers[0].ID)
	assert.Equal(t, 7, layers[0].ZIndex)
}

func TestHierarchy_TiesKeepCollectionOrder(t *testing.T) {
	els := canvas.Elements{
		{ID: "first", Type: canvas.TypeShape},
		{ID: "second", Type: canvas.TypeShape, Visible: canvas.Bool(false), Locked: true},
	}
	layers := Hierarchy(els)
	require.Len(t, layers, 2)
	assert.Equal(t, "first", layers[0].ID)
	assert.True(t, layers[0].Visible)
	assert.False(t, layers[1].Visible)
	assert.True(t, layers[1].Locked)
}

func TestManager_LayersHierarchyFollowsStore(t *testing.T) {
	store := &memStore{els: canvas.Elements{
		shape("A", 10, 10, 20, 20),
		shape("B", 50, 50, 20, 20),
	}}
	m := NewManager(store, nil)
	assert.Len(t, m.LayersHierarchy(), 2)

	g, err := m.CreateGroup([]string{"A", "B"}, "Pair")
	require.NoError(t, err)
	layers := m.LayersHierarchy()
	require.Len(t, layers, 1)
	assert.Equal(t, g.ID, layers[0].ID)
	assert.Equal(t, "Pair", layers[0].Name)
	assert.Len(t, layers[0].Children, 2)
}
