// Package tui is a terminal front end for the layout editor. Terminal cells
// act as screen pixels: one column is one pixel wide and one row is
// CellAspect pixels tall.
package tui

import (
	"encoding/json"
	"fmt"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/events"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// CellAspect is how many screen pixels one terminal row spans
const CellAspect = 2

const (
	headerRows = 1
	footerRows = 2
	panelWidth = 28
)

// Options configures a Model
type Options struct {
	// Copy writes text to the system clipboard; nil uses atotto/clipboard
	Copy func(string) error

	// Save persists the layout; nil disables the save key
	Save func(d device.Device, els canvas.Elements) error

	// Title is shown in the header
	Title string
}

// view holds state shared by every copy of the Model value
type view struct {
	selected []string
	guides   []snap.Guide
	status   string
	stops    []func()
}

// Model is the bubbletea model of the terminal editor
type Model struct {
	editor *editor.Editor
	opts   Options
	keys   KeyMap
	help   help.Model
	view   *view

	width  int
	height int

	quitting bool
}

// New creates a terminal editor over e
func New(e *editor.Editor, opts Options) Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Title == "" {
		opts.Title = "wizardry"
	}
	v := &view{}
	v.stops = append(v.stops,
		events.On(e.Bus(), func(ev events.ShowGuides) { v.guides = ev.Guides }),
		events.On(e.Bus(), func(events.HideGuides) { v.guides = nil }),
	)
	m := Model{
		editor: e,
		opts:   opts,
		keys:   DefaultKeyMap,
		help:   help.New(),
		view:   v,
	}
	return m.resize(80, 24)
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the selected top-level ids
func (m Model) Selected() []string {
	return append([]string(nil), m.view.selected...)
}

// Status returns the last status line message
func (m Model) Status() string {
	return m.view.status
}

// Close detaches the model from the editor bus
func (m Model) Close() {
	for _, stop := range m.view.stops {
		stop()
	}
	m.view.stops = nil
}

// canvasArea returns the terminal size of the canvas region in cells
func (m Model) canvasArea() (cols, rows int) {
	cols = m.width
	if m.width >= panelWidth*2 {
		cols -= panelWidth
	}
	rows = m.height - headerRows - footerRows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func (m Model) resize(width, height int) Model {
	m.width, m.height = width, height
	m.help.Width = width
	cols, rows := m.canvasArea()
	m.editor.SetContainer(canvas.Rect{Width: float64(cols), Height: float64(rows * CellAspect)})
	return m
}

// screenPoint maps a terminal cell to the screen pixel at its center
func (m Model) screenPoint(col, row int) (canvas.Point, bool) {
	cols, rows := m.canvasArea()
	r := row - headerRows
	if col < 0 || col >= cols || r < 0 || r >= rows {
		return canvas.Point{}, false
	}
	return canvas.Point{X: float64(col) + 0.5, Y: float64(r*CellAspect) + CellAspect/2.0}, true
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	e := m.editor
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m
		}
		p, ok := m.screenPoint(msg.X, msg.Y)
		if !ok {
			return m
		}
		id, hit := e.HitTest(p.X, p.Y)
		if !hit {
			m.view.selected = nil
			return m
		}
		if msg.Shift {
			m.view.selected = toggle(m.view.selected, id)
			return m
		}
		m.view.selected = []string{id}
		e.BeginDrag(id, p.X, p.Y)

	case tea.MouseActionMotion:
		if e.Dragging() == "" {
			return m
		}
		if p, ok := m.screenPoint(msg.X, msg.Y); ok {
			e.DragTo(p.X, p.Y)
		}

	case tea.MouseActionRelease:
		if e.Dragging() == "" {
			return m
		}
		if p, ok := m.screenPoint(msg.X, msg.Y); ok {
			e.DragTo(p.X, p.Y)
		}
		if out, ok := e.EndDrag(); ok && out.Moved {
			m.view.status = fmt.Sprintf("Moved %s to %.0f,%.0f", e.Elements().DisplayName(out.ID), out.To.X, out.To.Y)
		}
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.editor
	v := m.view

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		m.nudge(0, -1)
	case key.Matches(msg, m.keys.Down):
		m.nudge(0, 1)
	case key.Matches(msg, m.keys.Left):
		m.nudge(-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.nudge(1, 0)

	case key.Matches(msg, m.keys.Next):
		layers := e.Layers()
		if len(layers) == 0 {
			v.selected = nil
			break
		}
		next := 0
		if len(v.selected) > 0 {
			for i, l := range layers {
				if l.ID == v.selected[len(v.selected)-1] {
					next = (i + 1) % len(layers)
				}
			}
		}
		v.selected = []string{layers[next].ID}

	case key.Matches(msg, m.keys.Undo):
		if e.Undo() {
			v.status = "Undo"
			v.selected = existing(e.Elements(), v.selected)
		}
	case key.Matches(msg, m.keys.Redo):
		if e.Redo() {
			v.status = "Redo"
			v.selected = existing(e.Elements(), v.selected)
		}

	case key.Matches(msg, m.keys.Group):
		g, err := e.Group(v.selected, "")
		if err != nil {
			v.status = err.Error()
			break
		}
		v.selected = []string{g.ID}
		v.status = "Grouped as " + e.Elements().DisplayName(g.ID)

	case key.Matches(msg, m.keys.Split):
		if len(v.selected) != 1 {
			v.status = "Select one group to ungroup"
			break
		}
		id := v.selected[0]
		if err := e.Ungroup(id); err != nil {
			v.status = err.Error()
			break
		}
		v.selected = nil
		v.status = "Ungrouped"

	case key.Matches(msg, m.keys.Shape):
		m.add(canvas.TypeShape)
	case key.Matches(msg, m.keys.Text):
		m.add(canvas.TypeText)

	case key.Matches(msg, m.keys.Delete):
		if n := e.DeleteElements(v.selected...); n > 0 {
			v.status = fmt.Sprintf("Deleted %d element(s)", n)
		}
		v.selected = nil

	case key.Matches(msg, m.keys.Device):
		d := device.Next(e.Device())
		e.SetDevice(d)
		v.status = "Device: " + string(d)

	case key.Matches(msg, m.keys.Copy):
		m.copySelection()

	case key.Matches(msg, m.keys.Save):
		if m.opts.Save == nil {
			v.status = "No campaign store configured"
			break
		}
		if err := m.opts.Save(e.Device(), e.Elements()); err != nil {
			v.status = "Save failed: " + err.Error()
			break
		}
		v.status = "Saved"
	}
	return m, nil
}

func (m Model) nudge(dx, dy float64) {
	for _, id := range m.view.selected {
		if err := m.editor.Nudge(id, dx, dy); err != nil {
			m.view.status = err.Error()
		}
	}
}

// add places a new element at the canvas center
func (m Model) add(t canvas.Type) {
	size := m.editor.Canvas()
	probe := canvas.New(t, 0, 0)
	w, h := probe.Size()
	el := m.editor.AddElement(t, (size.Width-w)/2, (size.Height-h)/2)
	m.view.selected = []string{el.ID}
	m.view.status = "Added " + m.editor.Elements().DisplayName(el.ID)
}

func (m Model) copySelection() {
	els := m.editor.Elements()
	var out canvas.Elements
	if len(m.view.selected) == 0 {
		out = els
	} else {
		for _, id := range m.view.selected {
			if el, ok := els.Find(id); ok {
				out = append(out, el)
			}
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		m.view.status = err.Error()
		return
	}
	if err := m.opts.Copy(string(data)); err != nil {
		m.view.status = "Copy failed: " + err.Error()
		return
	}
	m.view.status = fmt.Sprintf("Copied %d element(s)", len(out))
}

func toggle(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return append(ids, id)
}

func existing(els canvas.Elements, ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := els.Find(id); ok {
			out = append(out, id)
		}
	}
	return out
}
