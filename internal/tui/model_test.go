package tui

import (
	"strings"
	"testing"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	tea "github.com/charmbracelet/bubbletea"
)

func shape(id string, x, y float64) canvas.Element {
	return canvas.Element{
		ID: id, Type: canvas.TypeShape, X: x, Y: y,
		Width: canvas.Float(100), Height: canvas.Float(100), ZIndex: canvas.Int(1),
	}
}

// newModel sizes the canvas area to 80x30 cells, which maps the 800x600
// desktop canvas at a scale of 0.1 without letterboxing
func newModel(t *testing.T, opts Options, els ...canvas.Element) (Model, *editor.Editor) {
	t.Helper()
	e := editor.New(editor.Options{})
	if err := e.Load(els); err != nil {
		t.Fatal(err)
	}
	if opts.Copy == nil {
		opts.Copy = func(string) error { return nil }
	}
	m := New(e, opts)
	t.Cleanup(func() {
		m.Close()
		e.Close()
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80 + panelWidth, Height: 30 + headerRows + footerRows})
	return next.(Model), e
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mouse(action tea.MouseAction, col, row int) tea.MouseMsg {
	return tea.MouseMsg{X: col, Y: row, Action: action, Button: tea.MouseButtonLeft}
}

func TestModel_MouseDrag(t *testing.T) {
	m, e := newModel(t, Options{}, shape("a", 100, 100))

	// cell (15, 8) is screen (15.5, 15), logical (155, 150)
	m = send(m,
		mouse(tea.MouseActionPress, 15, 8),
		mouse(tea.MouseActionMotion, 20, 8),
		mouse(tea.MouseActionMotion, 25, 8),
		mouse(tea.MouseActionRelease, 25, 8),
	)

	x, y, _ := e.Elements().AbsolutePosition("a")
	if x != 200 || y != 100 {
		t.Errorf("Expected (200,100), got (%v,%v)", x, y)
	}
	if !e.CanUndo() {
		t.Error("Expected the drag to be undoable")
	}
	if got := m.Selected(); len(got) != 1 || got[0] != "a" {
		t.Errorf("Expected a selected, got %v", got)
	}
	if !strings.Contains(m.Status(), "Moved Shape 1") {
		t.Errorf("Unexpected status %q", m.Status())
	}
	if e.Dragging() != "" {
		t.Error("Drag should be finished")
	}
}

func TestModel_ClickOutsideClearsSelection(t *testing.T) {
	m, _ := newModel(t, Options{}, shape("a", 100, 100))
	m = send(m, mouse(tea.MouseActionPress, 15, 8), mouse(tea.MouseActionRelease, 15, 8))
	if len(m.Selected()) != 1 {
		t.Fatal("Expected a selection")
	}
	m = send(m, mouse(tea.MouseActionPress, 70, 25))
	if len(m.Selected()) != 0 {
		t.Errorf("Expected empty selection, got %v", m.Selected())
	}
}

func TestModel_GroupUngroupUndo(t *testing.T) {
	m, e := newModel(t, Options{}, shape("a", 100, 100), shape("b", 300, 100))

	shift := mouse(tea.MouseActionPress, 35, 8)
	shift.Shift = true
	m = send(m,
		mouse(tea.MouseActionPress, 15, 8),
		mouse(tea.MouseActionRelease, 15, 8),
		shift,
		keyMsg("g"),
	)

	sel := m.Selected()
	if len(sel) != 1 {
		t.Fatalf("Expected the new group selected, got %v", sel)
	}
	g, ok := e.Elements().Find(sel[0])
	if !ok || !g.IsGroup || len(g.GroupChildren) != 2 {
		t.Fatalf("Expected a group of two, got %+v", g)
	}

	m = send(m, keyMsg("G"))
	if _, ok := e.Elements().Find(g.ID); ok {
		t.Error("Expected the group to be dissolved")
	}

	m = send(m, keyMsg("u"))
	if _, ok := e.Elements().Find(g.ID); !ok {
		t.Error("Expected undo to restore the group")
	}
	m = send(m, keyMsg("r"))
	if _, ok := e.Elements().Find(g.ID); ok {
		t.Error("Expected redo to dissolve the group again")
	}
}

func TestModel_KeysEditLayout(t *testing.T) {
	var copied string
	var saved canvas.Elements
	m, e := newModel(t, Options{
		Copy: func(s string) error { copied = s; return nil },
		Save: func(d device.Device, els canvas.Elements) error { saved = els; return nil },
	})

	m = send(m, keyMsg("a"))
	if len(e.Elements()) != 1 {
		t.Fatalf("Expected one element, got %d", len(e.Elements()))
	}
	id := m.Selected()[0]
	x, y, _ := e.Elements().AbsolutePosition(id)
	if x != 350 || y != 250 {
		t.Errorf("Expected shape centered at (350,250), got (%v,%v)", x, y)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyUp})
	x, y, _ = e.Elements().AbsolutePosition(id)
	if x != 351 || y != 249 {
		t.Errorf("Expected nudge to (351,249), got (%v,%v)", x, y)
	}

	m = send(m, keyMsg("c"))
	if !strings.Contains(copied, id) {
		t.Errorf("Expected copied JSON to contain %s, got %q", id, copied)
	}

	m = send(m, keyMsg("s"))
	if len(saved) != 1 || m.Status() != "Saved" {
		t.Errorf("Expected save hook call, got %v (%q)", saved, m.Status())
	}

	m = send(m, keyMsg("t"), tea.KeyMsg{Type: tea.KeyTab})
	if len(e.Elements()) != 2 || len(m.Selected()) != 1 {
		t.Fatalf("Unexpected state after adding text: %v", m.Selected())
	}

	m = send(m, keyMsg("x"))
	if len(e.Elements()) != 1 {
		t.Errorf("Expected delete to remove the selection, got %d elements", len(e.Elements()))
	}

	m = send(m, keyMsg("d"))
	if e.Device() != device.Next(device.Desktop) {
		t.Errorf("Expected device cycling, got %s", e.Device())
	}
}

func TestModel_SaveWithoutStore(t *testing.T) {
	m, _ := newModel(t, Options{})
	m = send(m, keyMsg("s"))
	if !strings.Contains(m.Status(), "No campaign store") {
		t.Errorf("Unexpected status %q", m.Status())
	}
}

func TestModel_View(t *testing.T) {
	m, _ := newModel(t, Options{Title: "spring"}, shape("a", 100, 100))
	out := m.View()
	for _, want := range []string{"spring", "desktop 800x600", "Layers", "Shape 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}

	m = send(m, keyMsg("q"))
	if m.View() != "" {
		t.Error("Expected empty view after quit")
	}
}

func TestCells(t *testing.T) {
	c0, r0, c1, r1 := cells(canvas.Rect{X: 10, Y: 10, Width: 10, Height: 10})
	if c0 != 10 || r0 != 5 || c1 != 19 || r1 != 9 {
		t.Errorf("Unexpected cells %d,%d %d,%d", c0, r0, c1, r1)
	}
	c0, r0, c1, r1 = cells(canvas.Rect{X: 3.2, Y: 3, Width: 0.1, Height: 0.1})
	if c0 != 3 || c1 != 3 || r0 != 1 || r1 != 1 {
		t.Errorf("Tiny rects should cover one cell, got %d,%d %d,%d", c0, r0, c1, r1)
	}
}
