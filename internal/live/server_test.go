package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/gorilla/websocket"
)

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server, id string) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + PathPrefix + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(msg ClientMessage) {
	c.t.Helper()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("WriteJSON failed: %v", err)
	}
}

// next reads frames until match accepts one
func (c *client) next(match func(kind int, data []byte) bool) []byte {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("ReadMessage failed: %v", err)
		}
		if match(kind, data) {
			return data
		}
	}
}

func (c *client) state(match func(StateMessage) bool) StateMessage {
	c.t.Helper()
	var out StateMessage
	c.next(func(kind int, data []byte) bool {
		if kind != websocket.TextMessage || !strings.Contains(string(data), `"type":"state"`) {
			return false
		}
		var msg StateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return false
		}
		if match(msg) {
			out = msg
			return true
		}
		return false
	})
	return out
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.FrameInterval == 0 {
		opts.FrameInterval = 5 * time.Millisecond
	}
	srv := NewServer(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return srv, ts
}

func TestServer_HelloAndInitialState(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	c := dial(t, ts, "s1")

	c.next(func(kind int, data []byte) bool {
		return kind == websocket.BinaryMessage && data[0] == byte(FrameControl) &&
			strings.Contains(string(data), "HELLO")
	})
	st := c.state(func(StateMessage) bool { return true })
	if st.Device != "desktop" || st.Canvas != (canvas.Size{Width: 800, Height: 600}) {
		t.Errorf("Unexpected initial state %+v", st)
	}
	if len(st.Elements) != 0 || st.CanUndo {
		t.Errorf("Expected empty canvas without history, got %+v", st)
	}
}

func TestServer_DragOverSocket(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	c := dial(t, ts, "drag")

	c.send(ClientMessage{Type: MsgViewport, Container: &canvas.Rect{Width: 800, Height: 600}})
	c.send(ClientMessage{Type: MsgAdd, ElementType: canvas.TypeShape, X: 100, Y: 100})
	st := c.state(func(m StateMessage) bool { return len(m.Elements) == 1 })
	id := st.Elements[0].ID

	c.send(ClientMessage{Type: MsgPointerDown, X: 150, Y: 150})
	c.send(ClientMessage{Type: MsgPointerMove, X: 225, Y: 185})
	c.send(ClientMessage{Type: MsgPointerUp})

	st = c.state(func(m StateMessage) bool {
		return len(m.Elements) == 1 && m.Elements[0].X == 175
	})
	if st.Elements[0].ID != id || st.Elements[0].Y != 135 {
		t.Errorf("Expected %s at (175,135), got %+v", id, st.Elements[0])
	}
	if !st.CanUndo {
		t.Error("Expected the drag to be undoable")
	}

	c.send(ClientMessage{Type: MsgUndo})
	c.state(func(m StateMessage) bool {
		return len(m.Elements) == 1 && m.Elements[0].X == 100 && m.Elements[0].Y == 100
	})
}

func TestServer_BinaryPointerFrames(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	c := dial(t, ts, "binary")

	c.send(ClientMessage{Type: MsgViewport, Container: &canvas.Rect{Width: 800, Height: 600}})
	c.send(ClientMessage{Type: MsgAdd, ElementType: canvas.TypeShape, X: 100, Y: 100})
	st := c.state(func(m StateMessage) bool { return len(m.Elements) == 1 })

	frames := [][]byte{
		EncodePointer(Pointer{Type: PointerDown, X: 150, Y: 150, ID: st.Elements[0].ID}),
		EncodePointer(Pointer{Type: PointerMove, X: 249, Y: 150}),
		EncodePointer(Pointer{Type: PointerUp}),
	}
	for _, f := range frames {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, f); err != nil {
			t.Fatal(err)
		}
	}

	// 199 snaps to the 200 grid line
	c.next(func(kind int, data []byte) bool {
		if kind != websocket.BinaryMessage || data[0] != byte(FrameGuides) {
			return false
		}
		g, err := DecodeGuides(data)
		return err == nil && g.Dragging && len(g.Guides) > 0
	})
	c.state(func(m StateMessage) bool { return len(m.Elements) == 1 && m.Elements[0].X == 200 })
}

func TestServer_ErrorsAreReported(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	c := dial(t, ts, "errors")

	c.send(ClientMessage{Type: "teleport"})
	data := c.next(func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), `"type":"error"`)
	})
	if !strings.Contains(string(data), "teleport") {
		t.Errorf("Unexpected error message %s", data)
	}

	c.send(ClientMessage{Type: MsgSave})
	c.next(func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), "no campaign store")
	})
}

func TestServer_MobileZoomAndBody(t *testing.T) {
	_, ts := newTestServer(t, Options{})
	c := dial(t, ts, "mobile")

	c.send(ClientMessage{Type: MsgDevice, Device: "mobile"})
	c.state(func(m StateMessage) bool { return m.Device == "mobile" })

	c.send(ClientMessage{Type: MsgViewport, Viewport: &canvas.Size{Width: 375, Height: 600}})
	data := c.next(func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), `"type":"zoom"`)
	})
	var zoom ZoomMessage
	json.Unmarshal(data, &zoom)
	// (600-32)/667
	if zoom.Zoom < 0.85 || zoom.Zoom > 0.86 {
		t.Errorf("Unexpected fit zoom %v", zoom.Zoom)
	}

	c.send(ClientMessage{Type: MsgViewport, Container: &canvas.Rect{Width: 375, Height: 667}})
	c.send(ClientMessage{Type: MsgAdd, ElementType: canvas.TypeShape, X: 10, Y: 10})
	st := c.state(func(m StateMessage) bool { return len(m.Elements) == 1 })
	c.send(ClientMessage{Type: MsgPointerDown, ID: st.Elements[0].ID, X: 20, Y: 20})

	data = c.next(func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && strings.Contains(string(data), `"scrollLocked":true`)
	})
	var body BodyMessage
	json.Unmarshal(data, &body)
	if body.ScrollLocked == nil || !*body.ScrollLocked {
		t.Errorf("Expected scroll lock, got %s", data)
	}
}

func TestServer_SessionsLoadAndSave(t *testing.T) {
	var mu sync.Mutex
	saved := map[string]canvas.Elements{}
	srv, ts := newTestServer(t, Options{
		Load: func(id string) (*Campaign, error) {
			if id != "stored" {
				return nil, nil
			}
			return &Campaign{
				Device: device.Tablet,
				Elements: canvas.Elements{{
					ID: "a", Type: canvas.TypeShape, X: 5, Y: 5,
					Width: canvas.Float(10), Height: canvas.Float(10),
				}},
			}, nil
		},
		Save: func(id string, d device.Device, els canvas.Elements) error {
			mu.Lock()
			defer mu.Unlock()
			saved[id] = els
			return nil
		},
	})

	c := dial(t, ts, "stored")
	st := c.state(func(m StateMessage) bool { return len(m.Elements) == 1 })
	if st.Device != "tablet" {
		t.Errorf("Expected tablet, got %s", st.Device)
	}

	c.send(ClientMessage{Type: MsgSave})
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(saved["stored"])
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Save hook not called")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if ok, err := srv.Reload("stored", canvas.Elements{}); !ok || err != nil {
		t.Errorf("Reload failed: %v %v", ok, err)
	}
	c.state(func(m StateMessage) bool { return len(m.Elements) == 0 })

	if ok, _ := srv.Reload("missing", nil); ok {
		t.Error("Reload of unknown session should report false")
	}
	if len(srv.Sessions()) != 1 {
		t.Errorf("Expected one session, got %v", srv.Sessions())
	}
	srv.RemoveSession("stored")
	if _, ok := srv.GetSession("stored"); ok {
		t.Error("Session should be removed")
	}
}

func TestServer_ReconnectKeepsEditor(t *testing.T) {
	srv, ts := newTestServer(t, Options{})
	c := dial(t, ts, "again")
	c.send(ClientMessage{Type: MsgAdd, ElementType: canvas.TypeText, X: 1, Y: 1})
	c.state(func(m StateMessage) bool { return len(m.Elements) == 1 })
	c.conn.Close()

	c2 := dial(t, ts, "again")
	c2.state(func(m StateMessage) bool { return len(m.Elements) == 1 })
	if len(srv.Sessions()) != 1 {
		t.Errorf("Expected the session to be reused, got %v", srv.Sessions())
	}
}

// eventually polls cond for up to two seconds
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServer_EvictsIdleSessions(t *testing.T) {
	srv, ts := newTestServer(t, Options{IdleTimeout: 20 * time.Millisecond})
	for _, id := range []string{"one", "two", "three"} {
		c := dial(t, ts, id)
		c.state(func(StateMessage) bool { return true })
		c.conn.Close()
	}

	if !eventually(func() bool { return len(srv.Sessions()) == 0 }) {
		t.Errorf("Expected disconnected sessions to be evicted, got %v", srv.Sessions())
	}
}

func TestServer_ReconnectCancelsEviction(t *testing.T) {
	srv, ts := newTestServer(t, Options{IdleTimeout: 100 * time.Millisecond})
	c := dial(t, ts, "back")
	c.send(ClientMessage{Type: MsgAdd, ElementType: canvas.TypeShape, X: 1, Y: 1})
	c.state(func(m StateMessage) bool { return len(m.Elements) == 1 })
	c.conn.Close()

	c2 := dial(t, ts, "back")
	c2.state(func(m StateMessage) bool { return len(m.Elements) == 1 })

	time.Sleep(250 * time.Millisecond)
	if _, ok := srv.GetSession("back"); !ok {
		t.Fatal("Expected a connected session to survive the idle timeout")
	}

	c2.conn.Close()
	if !eventually(func() bool { _, ok := srv.GetSession("back"); return !ok }) {
		t.Error("Expected the session to be evicted after its last connection closed")
	}
}

func TestServer_Handler(t *testing.T) {
	_, ts := newTestServer(t, Options{AllowedOrigins: []string{"https://studio.example.com"}})

	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if len(body["id"]) != 36 {
		t.Errorf("Expected a uuid session id, got %v", body)
	}

	resp, err = http.Get(ts.URL + PathPrefix)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without id, got %d", resp.StatusCode)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + PathPrefix + "x"
	header := http.Header{"Origin": {"https://evil.example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("Expected foreign origin to be rejected")
	}
	header = http.Header{"Origin": {"https://studio.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Allowed origin rejected: %v", err)
	}
	conn.Close()
}
