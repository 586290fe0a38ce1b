// Package export renders campaign layouts to PNG images.
package export

import (
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/group"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Options controls how a layout is rendered
type Options struct {
	// Output pixels per logical unit; zero means 1
	Scale float64

	// Background color as #rgb or #rrggbb; empty means white
	Background string

	// Grid draws grid lines every GridSize logical units
	Grid     bool
	GridSize float64

	// Labels draws each element's display name
	Labels bool

	// Guides are drawn over the elements
	Guides []snap.Guide
}

var fills = map[canvas.Type]string{
	canvas.TypeText:  "#e8eefc",
	canvas.TypeImage: "#d9f2e6",
	canvas.TypeShape: "#fde9d9",
}

var guideColors = map[snap.Kind]string{
	snap.KindGrid:    "#9aa5b1",
	snap.KindElement: "#ff2d8a",
	snap.KindCenter:  "#2d7fff",
}

func loadFace(size float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func validHex(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 3 && len(s) != 6 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

// Render draws els on a canvas of the given logical size
func Render(els canvas.Elements, size canvas.Size, opts Options) (image.Image, error) {
	dc, err := draw(els, size, opts)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders els and encodes the image to w
func WritePNG(w io.Writer, els canvas.Elements, size canvas.Size, opts Options) error {
	dc, err := draw(els, size, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePNG renders els into the file at path
func SavePNG(path string, els canvas.Elements, size canvas.Size, opts Options) error {
	dc, err := draw(els, size, opts)
	if err != nil {
		return err
	}
	return dc.SavePNG(path)
}

func draw(els canvas.Elements, size canvas.Size, opts Options) (*gg.Context, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %vx%v", size.Width, size.Height)
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if scale < 0 {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	bg := opts.Background
	if bg == "" {
		bg = "#ffffff"
	}
	if !validHex(bg) {
		return nil, fmt.Errorf("invalid background color %q", bg)
	}

	w := int(math.Ceil(size.Width * scale))
	h := int(math.Ceil(size.Height * scale))
	dc := gg.NewContext(w, h)
	dc.SetHexColor(bg)
	dc.Clear()
	dc.Scale(scale, scale)

	if opts.Grid && opts.GridSize > 0 {
		drawGrid(dc, size, opts.GridSize)
	}

	var face font.Face
	if opts.Labels {
		var err error
		if face, err = loadFace(12); err != nil {
			return nil, err
		}
		dc.SetFontFace(face)
	}

	// layers are ordered top first
	layers := group.Hierarchy(els)
	for i := len(layers) - 1; i >= 0; i-- {
		drawLayer(dc, els, layers[i], opts.Labels)
	}

	for _, g := range opts.Guides {
		drawGuide(dc, size, g)
	}
	return dc, nil
}

func drawGrid(dc *gg.Context, size canvas.Size, step float64) {
	dc.SetHexColor("#eef0f3")
	dc.SetLineWidth(0.5)
	for x := step; x < size.Width; x += step {
		dc.DrawLine(x, 0, x, size.Height)
	}
	for y := step; y < size.Height; y += step {
		dc.DrawLine(0, y, size.Width, y)
	}
	dc.Stroke()
}

func drawLayer(dc *gg.Context, els canvas.Elements, l group.Layer, labels bool) {
	if !l.Visible {
		return
	}
	r, ok := els.AbsoluteRect(l.ID)
	if !ok {
		return
	}

	if l.Type == canvas.TypeGroup || len(l.Children) > 0 {
		for i := len(l.Children) - 1; i >= 0; i-- {
			drawLayer(dc, els, l.Children[i], labels)
		}
		dc.SetHexColor("#7a8699")
		dc.SetLineWidth(1)
		dc.SetDash(4, 3)
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.Stroke()
		dc.SetDash()
	} else {
		fill, ok := fills[l.Type]
		if !ok {
			fill = "#eeeeee"
		}
		dc.SetHexColor(fill)
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
		dc.FillPreserve()
		dc.SetHexColor("#333333")
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	if labels {
		dc.SetHexColor("#1f2933")
		dc.DrawStringAnchored(l.Name, r.X+4, r.Y+4, 0, 1)
	}
}

func drawGuide(dc *gg.Context, size canvas.Size, g snap.Guide) {
	c, ok := guideColors[g.Kind]
	if !ok {
		c = "#ff2d8a"
	}
	dc.SetHexColor(c)
	dc.SetLineWidth(1)
	if g.Orientation == snap.Vertical {
		dc.DrawLine(g.Position, 0, g.Position, size.Height)
	} else {
		dc.DrawLine(0, g.Position, size.Width, g.Position)
	}
	dc.Stroke()
}
