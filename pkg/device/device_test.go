package device

import (
	"testing"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensions(t *testing.T) {
	assert.Equal(t, canvas.Size{Width: 800, Height: 600}, Dimensions(Desktop))
	assert.Equal(t, canvas.Size{Width: 375, Height: 667}, Dimensions(Mobile))
	assert.Equal(t, Dimensions(Desktop), Dimensions(Device("watch")))
}

func TestScale(t *testing.T) {
	f := Scale(Desktop, Mobile)
	assert.InDelta(t, 0.65, f.X, 1e-9)
	assert.InDelta(t, 0.65, f.Y, 1e-9)

	back := Scale(Mobile, Desktop)
	assert.InDelta(t, 1/0.65, back.X, 1e-9)

	same := Scale(Tablet, Tablet)
	assert.Equal(t, Factor{X: 1, Y: 1}, same)
}

func TestScaleIsNotCanvasScale(t *testing.T) {
	p := Default()
	content := p.Scale(Desktop, Mobile)
	layout := p.CanvasScale(Desktop, Mobile)
	assert.NotEqual(t, content, layout)
	assert.InDelta(t, 375.0/800.0, layout.X, 1e-9)
	assert.InDelta(t, 667.0/600.0, layout.Y, 1e-9)
}

func TestProviderOverrides(t *testing.T) {
	p := NewProvider(map[Device]Profile{
		Mobile:  {Canvas: canvas.Size{Width: 360, Height: 640}},
		Tablet:  {Canvas: canvas.Size{Width: 0, Height: 10}},
		Desktop: {Canvas: canvas.Size{Width: 1000, Height: 500}, Content: 2},
	})
	assert.Equal(t, canvas.Size{Width: 360, Height: 640}, p.Dimensions(Mobile))
	assert.Equal(t, canvas.Size{Width: 768, Height: 1024}, p.Dimensions(Tablet))
	assert.InDelta(t, 0.65/2, p.ScaleValue(1, Desktop, Mobile), 1e-9)
}

func TestParse(t *testing.T) {
	d, err := Parse(" Mobile ")
	require.NoError(t, err)
	assert.Equal(t, Mobile, d)

	_, err = Parse("fridge")
	assert.Error(t, err)
}

func TestNextAndTouch(t *testing.T) {
	assert.Equal(t, Tablet, Next(Desktop))
	assert.Equal(t, Desktop, Next(Mobile))
	assert.True(t, IsTouch(Mobile))
	assert.False(t, IsTouch(Desktop))
}
