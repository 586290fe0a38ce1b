package drag

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/events"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/scheduler"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	els    canvas.Elements
	size   canvas.Size
	writes int
}

func (s *memSource) Elements() canvas.Elements { return s.els }
func (s *memSource) Canvas() canvas.Size { return s.size }

func (s *memSource) MoveTo(id string, x, y float64) error {
	el, ok := s.els.Find(id)
	if !ok {
		return errors.New("missing")
	}
	if el.ParentGroupID != "" {
		px, py, _ := s.els.AbsolutePosition(el.ParentGroupID)
		x, y = x-px, y-py
	}
	s.els, _ = s.els.Update(id, func(e *canvas.Element) { e.X, e.Y = x, y })
	s.writes++
	return nil
}

func (s *memSource) pos(id string) canvas.Point {
	x, y, _ := s.els.AbsolutePosition(id)
	return canvas.Point{X: x, Y: y}
}

type fakeEnv struct {
	src       *memSource
	container canvas.Rect
	noCanvas  bool
	zoom      float64
	unmounted map[string]bool
	touch     bool

	locks    int
	unlocks  int
	grabbing bool
}

func (e *fakeEnv) viewport() transform.Viewport {
	vp, _ := transform.Fit(e.container, e.src.size, e.zoom)
	return vp
}

func (e *fakeEnv) ContainerRect() (canvas.Rect, bool) { return e.container, !e.noCanvas }

func (e *fakeEnv) ElementRect(id string) (canvas.Rect, bool) {
	if e.unmounted[id] {
		return canvas.Rect{}, false
	}
	r, ok := e.src.els.AbsoluteRect(id)
	if !ok {
		return canvas.Rect{}, false
	}
	return e.viewport().RectToScreen(r), true
}

func (e *fakeEnv) Zoom() float64 { return e.zoom }
func (e *fakeEnv) LockScroll() { e.locks++ }
func (e *fakeEnv) UnlockScroll() { e.unlocks++ }
func (e *fakeEnv) SetGrabbing(grabbing bool) { e.grabbing = grabbing }
func (e *fakeEnv) IsTouch() bool { return e.touch }

func box(id string, x, y, w, h float64) canvas.Element {
	return canvas.Element{ID: id, Type: canvas.TypeShape, X: x, Y: y, Width: canvas.Float(w), Height: canvas.Float(h)}
}

type fixture struct {
	src   *memSource
	env   *fakeEnv
	bus   *events.Bus
	sched *scheduler.Scheduler
	m     *Manager
}

func newFixture(withSnap bool, els ...canvas.Element) *fixture {
	size := canvas.Size{Width: 800, Height: 600}
	src := &memSource{els: els, size: size}
	env := &fakeEnv{src: src, container: canvas.Rect{Width: 800, Height: 600}, zoom: 1, unmounted: map[string]bool{}}
	f := &fixture{src: src, env: env, bus: events.NewBus(), sched: scheduler.NewScheduler(0)}
	cfg := Config{Env: env, Source: src, Writer: src, Scheduler: f.sched, Bus: f.bus}
	if withSnap {
		cfg.Snap = snap.NewEngine(snap.DefaultOptions(size))
	}
	f.m = NewManager(cfg)
	return f
}

func TestDrag_BasicScenario(t *testing.T) {
	f := newFixture(true, box("a", 100, 100, 50, 50))

	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	assert.Equal(t, Dragging, f.m.State())
	assert.True(t, f.env.grabbing)

	f.m.Move(200, 160)
	f.sched.Flush()
	assert.Equal(t, canvas.Point{X: 175, Y: 135}, f.src.pos("a"))

	out, ok := f.m.End()
	require.True(t, ok)
	assert.Equal(t, Idle, f.m.State())
	assert.False(t, f.env.grabbing)
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, out.From)
	assert.Equal(t, canvas.Point{X: 175, Y: 135}, out.To)
	assert.True(t, out.Moved)
	assert.Equal(t, "a", out.ID)
}

func TestDrag_GridSnapScenario(t *testing.T) {
	f := newFixture(true, box("a", 100, 100, 50, 50))

	require.True(t, f.m.Start("a", canvas.TypeShape, 100, 100))
	f.m.Move(178, 135)
	f.sched.Flush()
	assert.Equal(t, canvas.Point{X: 180, Y: 135}, f.src.pos("a"))
}

func TestDrag_GrabOffsetInvariantUnderScale(t *testing.T) {
	containers := []canvas.Rect{
		{X: 0, Y: 0, Width: 800, Height: 600},
		{X: 50, Y: 20, Width: 400, Height: 600},
		{X: 13, Y: 7, Width: 1280, Height: 720},
		{X: 0, Y: 0, Width: 375, Height: 667},
	}
	for _, container := range containers {
		for _, zoom := range []float64{0.5, 1, 1.75} {
			f := newFixture(false, box("a", 100, 100, 50, 50))
			f.env.container = container
			f.env.zoom = zoom
			vp := f.env.viewport()

			start := vp.LogicalToScreen(canvas.Point{X: 110, Y: 115})
			require.True(t, f.m.Start("a", canvas.TypeShape, start.X, start.Y))

			to := vp.LogicalToScreen(canvas.Point{X: 260, Y: 215})
			f.m.Move(to.X, to.Y)
			f.sched.Flush()

			got := f.src.pos("a")
			assert.InDelta(t, 250, got.X, 1e-6, "container %v zoom %v", container, zoom)
			assert.InDelta(t, 200, got.Y, 1e-6, "container %v zoom %v", container, zoom)
			f.m.End()
		}
	}
}

func TestDrag_ClampsToCanvas(t *testing.T) {
	f := newFixture(true, box("a", 100, 100, 50, 50))
	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))

	f.m.Move(-500, -500)
	f.sched.Flush()
	assert.Equal(t, canvas.Point{X: 0, Y: 0}, f.src.pos("a"))

	f.m.Move(5000, 5000)
	f.sched.Flush()
	assert.Equal(t, canvas.Point{X: 750, Y: 550}, f.src.pos("a"))

	f.m.Move(797, 301)
	f.sched.Flush()
	p := f.src.pos("a")
	assert.LessOrEqual(t, p.X, 750.0)
	assert.GreaterOrEqual(t, p.Y, 0.0)
}

func TestDrag_OversizedElementPinnedToOrigin(t *testing.T) {
	f := newFixture(false, box("wide", 0, 0, 900, 50))
	require.True(t, f.m.Start("wide", canvas.TypeShape, 10, 10))
	f.m.Move(300, 100)
	f.sched.Flush()
	assert.Equal(t, canvas.Point{X: 0, Y: 90}, f.src.pos("wide"))
}

func TestDrag_MissingRefsAreNoOps(t *testing.T) {
	f := newFixture(true, box("a", 100, 100, 50, 50))

	f.env.noCanvas = true
	assert.False(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	assert.Equal(t, Idle, f.m.State())
	assert.False(t, f.env.grabbing)

	f.env.noCanvas = false
	assert.False(t, f.m.Start("ghost", canvas.TypeShape, 125, 125))
	assert.Equal(t, Idle, f.m.State())

	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	f.env.unmounted["a"] = true
	f.m.Move(300, 300)
	f.sched.Flush()
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, f.src.pos("a"))
	assert.Equal(t, 0, f.src.writes)

	out, ok := f.m.End()
	require.True(t, ok)
	assert.False(t, out.Moved)

	f.m.Move(10, 10)
	assert.Equal(t, 0, f.sched.Pending())
	_, ok = f.m.End()
	assert.False(t, ok)
}

func TestDrag_SecondStartIgnored(t *testing.T) {
	f := newFixture(false, box("a", 100, 100, 50, 50), box("b", 300, 300, 50, 50))
	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	assert.False(t, f.m.Start("b", canvas.TypeShape, 325, 325))
	assert.Equal(t, "a", f.m.Active())
}

func TestDrag_CoalescesMovesPerFrame(t *testing.T) {
	f := newFixture(false, box("a", 100, 100, 50, 50))
	require.True(t, f.m.Start("a", canvas.TypeShape, 100, 100))

	for i := 1; i <= 10; i++ {
		f.m.Move(100+float64(i)*10, 100)
	}
	assert.Equal(t, 1, f.sched.Pending())
	f.sched.Flush()
	assert.Equal(t, 1, f.src.writes)
	assert.Equal(t, 200.0, f.src.pos("a").X)
	assert.Equal(t, uint64(1), f.m.Moves())
}

func TestDrag_EndCommitsPendingMove(t *testing.T) {
	f := newFixture(false, box("a", 100, 100, 50, 50))
	require.True(t, f.m.Start("a", canvas.TypeShape, 100, 100))
	f.m.Move(321, 123)

	out, ok := f.m.End()
	require.True(t, ok)
	assert.Equal(t, canvas.Point{X: 321, Y: 123}, out.To)
	assert.Equal(t, canvas.Point{X: 321, Y: 123}, f.src.pos("a"))
	assert.Equal(t, 0, f.sched.Pending())
}

// gatedWriter blocks every write until release is closed
type gatedWriter struct {
	src     *memSource
	entered chan struct{}
	release chan struct{}
}

func (w *gatedWriter) MoveTo(id string, x, y float64) error {
	close(w.entered)
	<-w.release
	return w.src.MoveTo(id, x, y)
}

func TestDrag_EndWaitsForFrameInFlight(t *testing.T) {
	f := newFixture(false, box("a", 100, 100, 50, 50))
	w := &gatedWriter{src: f.src, entered: make(chan struct{}), release: make(chan struct{})}
	f.m = NewManager(Config{Env: f.env, Source: f.src, Writer: w, Scheduler: f.sched, Bus: f.bus})

	var mu sync.Mutex
	var order []string
	events.On(f.bus, func(events.ShowGuides) { mu.Lock(); order = append(order, "show"); mu.Unlock() })
	events.On(f.bus, func(events.HideGuides) { mu.Lock(); order = append(order, "hide"); mu.Unlock() })

	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	f.m.Move(200, 160)

	flushed := make(chan struct{})
	go func() {
		f.sched.Flush()
		close(flushed)
	}()
	<-w.entered

	type result struct {
		out canvas.Point
		at  canvas.Point
		ok  bool
	}
	ended := make(chan result, 1)
	go func() {
		out, ok := f.m.End()
		ended <- result{out: out.To, at: f.src.pos("a"), ok: ok}
	}()

	select {
	case <-ended:
		t.Fatal("End returned while a frame was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(w.release)
	<-flushed
	res := <-ended
	require.True(t, res.ok)
	assert.Equal(t, canvas.Point{X: 175, Y: 135}, res.out)
	assert.Equal(t, res.out, res.at)
	assert.Equal(t, Idle, f.m.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"show", "hide"}, order)
}

type failingWriter struct{}

func (failingWriter) MoveTo(string, float64, float64) error { return errors.New("read only") }

func TestDrag_FailedWriteIsNotAMove(t *testing.T) {
	f := newFixture(false, box("a", 100, 100, 50, 50))
	f.m = NewManager(Config{Env: f.env, Source: f.src, Writer: failingWriter{}, Scheduler: f.sched, Bus: f.bus})
	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	f.m.Move(200, 160)
	f.sched.Flush()

	out, ok := f.m.End()
	require.True(t, ok)
	assert.False(t, out.Moved)
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, f.src.pos("a"))
}

func TestDrag_ClickWithoutMove(t *testing.T) {
	f := newFixture(true, box("a", 100, 100, 50, 50))
	require.True(t, f.m.Start("a", canvas.TypeShape, 110, 110))
	out, ok := f.m.End()
	require.True(t, ok)
	assert.False(t, out.Moved)
	assert.Equal(t, out.From, out.To)
}

func TestDrag_TouchLocksAndGuides(t *testing.T) {
	f := newFixture(true, box("a", 100, 100, 50, 50), box("b", 300, 100, 50, 50))
	f.env.touch = true

	var shown []events.ShowGuides
	var hidden []events.HideGuides
	events.On(f.bus, func(e events.ShowGuides) { shown = append(shown, e) })
	events.On(f.bus, func(e events.HideGuides) { hidden = append(hidden, e) })

	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	assert.Equal(t, 1, f.env.locks)

	// top edge one unit away from b's top edge
	f.m.Move(225, 126)
	f.sched.Flush()
	require.Len(t, shown, 1)
	assert.True(t, shown[0].IsDragging)
	assert.Equal(t, "a", shown[0].ElementID)
	assert.Equal(t, 100.0, f.src.pos("a").Y)

	var fromB bool
	for _, g := range shown[0].Guides {
		if g.Kind == snap.KindElement && g.ElementID == "b" {
			fromB = true
		}
	}
	assert.True(t, fromB)

	f.m.End()
	assert.Equal(t, 1, f.env.unlocks)
	require.Len(t, hidden, 1)
	assert.Equal(t, "a", hidden[0].ElementID)
}

func TestDrag_CloseReleasesLocks(t *testing.T) {
	f := newFixture(false, box("a", 100, 100, 50, 50))
	f.env.touch = true

	require.True(t, f.m.Start("a", canvas.TypeShape, 125, 125))
	f.m.Move(300, 300)
	f.m.Close()

	assert.Equal(t, Idle, f.m.State())
	assert.Equal(t, 1, f.env.unlocks)
	assert.False(t, f.env.grabbing)
	assert.Equal(t, 0, f.sched.Pending())
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, f.src.pos("a"))

	f.m.Close()
	assert.Equal(t, 1, f.env.unlocks)
}

func TestDrag_GroupIgnoresOwnChildren(t *testing.T) {
	g := box("g", 100, 100, 100, 100)
	g.Type = canvas.TypeGroup
	g.IsGroup = true
	g.GroupChildren = []string{"c1", "c2"}
	c1 := box("c1", 0, 0, 40, 40)
	c1.ParentGroupID = "g"
	c2 := box("c2", 60, 60, 40, 40)
	c2.ParentGroupID = "g"

	f := newFixture(true, g, c1, c2)
	var shown []events.ShowGuides
	events.On(f.bus, func(e events.ShowGuides) { shown = append(shown, e) })

	require.True(t, f.m.Start("g", canvas.TypeGroup, 150, 150))
	f.m.Move(187, 173)
	f.sched.Flush()

	require.Len(t, shown, 1)
	for _, guide := range shown[0].Guides {
		assert.NotContains(t, []string{"g", "c1", "c2"}, guide.ElementID)
	}

	gp := f.src.pos("g")
	c2p := f.src.pos("c2")
	assert.Equal(t, gp.X+60, c2p.X)
	assert.Equal(t, gp.Y+60, c2p.Y)
}

func TestDrag_NoSchedulerAppliesImmediately(t *testing.T) {
	src := &memSource{els: canvas.Elements{box("a", 0, 0, 10, 10)}, size: canvas.Size{Width: 800, Height: 600}}
	env := &fakeEnv{src: src, container: canvas.Rect{Width: 800, Height: 600}, zoom: 1, unmounted: map[string]bool{}}
	m := NewManager(Config{Env: env, Source: src, Writer: src})

	require.True(t, m.Start("a", canvas.TypeShape, 5, 5))
	m.Move(55, 45)
	assert.Equal(t, canvas.Point{X: 50, Y: 40}, src.pos("a"))
}

func TestTargets(t *testing.T) {
	hidden := box("h", 0, 0, 10, 10)
	hidden.Visible = canvas.Bool(false)
	ts := Targets(canvas.Elements{box("a", 5, 5, 10, 10), hidden})
	require.Len(t, ts, 2)
	assert.True(t, ts[0].Visible)
	assert.False(t, ts[1].Visible)
	assert.Equal(t, canvas.Rect{X: 5, Y: 5, Width: 10, Height: 10}, ts[0].Rect)
}
