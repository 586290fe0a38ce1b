package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/group"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/transform"
	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	primaryColor = lipgloss.Color("#3b82f6")
	guideColor   = lipgloss.Color("#ff2d8a")
	mutedColor   = lipgloss.Color("#94a3b8")
	canvasColor  = lipgloss.Color("#1e293b")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Width(panelWidth - 1).
			PaddingLeft(1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(mutedColor)

	cellStyles = map[cellStyle]lipgloss.Style{
		styleOutside:  lipgloss.NewStyle(),
		styleCanvas:   lipgloss.NewStyle().Background(canvasColor),
		styleElement:  lipgloss.NewStyle().Background(canvasColor).Foreground(lipgloss.Color("#e2e8f0")),
		styleGroup:    lipgloss.NewStyle().Background(canvasColor).Foreground(mutedColor),
		styleSelected: lipgloss.NewStyle().Background(canvasColor).Foreground(primaryColor).Bold(true),
		styleGuide:    lipgloss.NewStyle().Background(canvasColor).Foreground(guideColor),
	}
)

type cellStyle uint8

const (
	styleOutside cellStyle = iota
	styleCanvas
	styleElement
	styleGroup
	styleSelected
	styleGuide
)

// grid is a terminal-cell raster
type grid struct {
	cols, rows int
	runes      [][]rune
	styles     [][]cellStyle
}

func newGrid(cols, rows int) *grid {
	g := &grid{cols: cols, rows: rows}
	g.runes = make([][]rune, rows)
	g.styles = make([][]cellStyle, rows)
	for r := range g.runes {
		g.runes[r] = []rune(strings.Repeat(" ", cols))
		g.styles[r] = make([]cellStyle, cols)
	}
	return g
}

func (g *grid) set(c, r int, ch rune, st cellStyle) {
	if c < 0 || r < 0 || c >= g.cols || r >= g.rows {
		return
	}
	g.runes[r][c] = ch
	g.styles[r][c] = st
}

func (g *grid) fill(c0, r0, c1, r1 int, ch rune, st cellStyle) {
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			g.set(c, r, ch, st)
		}
	}
}

type borders struct {
	tl, tr, bl, br, h, v rune
}

var (
	solid  = borders{'┌', '┐', '└', '┘', '─', '│'}
	dashed = borders{'╭', '╮', '╰', '╯', '┄', '┆'}
)

func (g *grid) box(c0, r0, c1, r1 int, b borders, st cellStyle, label string) {
	if c1 <= c0 || r1 <= r0 {
		g.fill(c0, r0, c1, r1, '▪', st)
		return
	}
	for c := c0 + 1; c < c1; c++ {
		g.set(c, r0, b.h, st)
		g.set(c, r1, b.h, st)
	}
	for r := r0 + 1; r < r1; r++ {
		g.set(c0, r, b.v, st)
		g.set(c1, r, b.v, st)
	}
	g.set(c0, r0, b.tl, st)
	g.set(c1, r0, b.tr, st)
	g.set(c0, r1, b.bl, st)
	g.set(c1, r1, b.br, st)

	c := c0 + 1
	for _, ch := range label {
		if c >= c1 {
			break
		}
		g.set(c, r0, ch, st)
		c++
	}
}

// String renders the grid joining runs of equal style
func (g *grid) String() string {
	var sb strings.Builder
	for r := 0; r < g.rows; r++ {
		start := 0
		for c := 1; c <= g.cols; c++ {
			if c < g.cols && g.styles[r][c] == g.styles[r][start] {
				continue
			}
			sb.WriteString(cellStyles[g.styles[r][start]].Render(string(g.runes[r][start:c])))
			start = c
		}
		if r < g.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// cells converts a screen rectangle to inclusive cell bounds
func cells(r canvas.Rect) (c0, r0, c1, r1 int) {
	c0 = int(math.Floor(r.X))
	r0 = int(math.Floor(r.Y / CellAspect))
	c1 = int(math.Ceil(r.Right())) - 1
	r1 = int(math.Ceil(r.Bottom()/CellAspect)) - 1
	if c1 < c0 {
		c1 = c0
	}
	if r1 < r0 {
		r1 = r0
	}
	return
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	e := m.editor
	size := e.Canvas()
	header := titleStyle.Render(m.opts.Title) + " " +
		mutedStyle.Render(fmt.Sprintf("%s %.0fx%.0f zoom %.2f", e.Device(), size.Width, size.Height, e.Zoom()))

	cols, rows := m.canvasArea()
	body := m.renderCanvas(cols, rows)
	if m.width >= panelWidth*2 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderLayers(rows))
	}

	status := m.view.status
	if e.CanUndo() {
		status = strings.TrimSpace(status + "  ↶")
	}
	if e.CanRedo() {
		status = strings.TrimSpace(status + "  ↷")
	}

	return header + "\n" + body + "\n" + mutedStyle.Render(status) + "\n" + m.help.View(m.keys)
}

func (m Model) renderCanvas(cols, rows int) string {
	g := newGrid(cols, rows)
	vp, ok := m.editor.Viewport()
	if !ok {
		return g.String()
	}
	c0, r0, c1, r1 := cells(vp.Content())
	g.fill(c0, r0, c1, r1, ' ', styleCanvas)

	els := m.editor.Elements()
	selected := make(map[string]bool, len(m.view.selected))
	for _, id := range m.view.selected {
		selected[id] = true
	}
	layers := m.editor.Layers()
	for i := len(layers) - 1; i >= 0; i-- {
		m.drawLayer(g, vp, els, layers[i], selected)
	}

	for _, guide := range m.view.guides {
		if guide.Orientation == snap.Vertical {
			x := vp.LogicalToScreen(canvas.Point{X: guide.Position}).X
			for r := r0; r <= r1; r++ {
				g.set(int(math.Floor(x)), r, '┊', styleGuide)
			}
		} else {
			y := vp.LogicalToScreen(canvas.Point{Y: guide.Position}).Y
			for c := c0; c <= c1; c++ {
				g.set(c, int(math.Floor(y/CellAspect)), '┈', styleGuide)
			}
		}
	}
	return g.String()
}

func (m Model) drawLayer(g *grid, vp transform.Viewport, els canvas.Elements, l group.Layer, selected map[string]bool) {
	if !l.Visible {
		return
	}
	r, ok := els.AbsoluteRect(l.ID)
	if !ok {
		return
	}
	c0, r0, c1, r1 := cells(vp.RectToScreen(r))

	if l.Type == canvas.TypeGroup || len(l.Children) > 0 {
		for i := len(l.Children) - 1; i >= 0; i-- {
			m.drawLayer(g, vp, els, l.Children[i], selected)
		}
		st := styleGroup
		if selected[l.ID] {
			st = styleSelected
		}
		g.box(c0, r0, c1, r1, dashed, st, l.Name)
		return
	}

	st := styleElement
	if selected[l.ID] {
		st = styleSelected
	}
	g.fill(c0+1, r0+1, c1-1, r1-1, ' ', styleCanvas)
	g.box(c0, r0, c1, r1, solid, st, l.Name)
}

func (m Model) renderLayers(rows int) string {
	selected := make(map[string]bool, len(m.view.selected))
	for _, id := range m.view.selected {
		selected[id] = true
	}

	lines := []string{titleStyle.Render("Layers")}
	var walk func(ls []group.Layer, depth int)
	walk = func(ls []group.Layer, depth int) {
		for _, l := range ls {
			marker := "▫"
			if len(l.Children) > 0 {
				marker = "▾"
			}
			text := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depth), marker, l.Name)
			if l.Locked {
				text += " [L]"
			}
			if runes, w := []rune(text), panelWidth-3; len(runes) > w {
				text = string(runes[:w-1]) + "…"
			}
			switch {
			case selected[l.ID]:
				text = selectedStyle.Render(text)
			case !l.Visible:
				text = mutedStyle.Render(text)
			}
			lines = append(lines, text)
			walk(l.Children, depth+1)
		}
	}
	walk(m.editor.Layers(), 0)

	if len(lines) > rows {
		lines = lines[:rows]
	}
	return panelStyle.Height(rows).Render(strings.Join(lines, "\n"))
}
