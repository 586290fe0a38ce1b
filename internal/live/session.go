package live

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/events"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/scheduler"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 300 * time.Second
	pingPeriod = 54 * time.Second
)

// Session is one live editing session. It survives reconnects: a new
// connection with the same id takes over the editor.
type Session struct {
	ID     string
	Editor *editor.Editor

	server *Server
	sched  *scheduler.Scheduler
	stops  []func()

	mu           sync.RWMutex
	conn         *websocket.Conn
	lastSeq      uint64
	sendChan     chan []byte
	sendTextChan chan []byte
	closeChan    chan struct{}

	// idle is armed when the current connection drops; idleGen changes on
	// every attach so a stale timer cannot evict a reconnected session
	idle    *time.Timer
	idleGen uint64
}

func newSession(id string, srv *Server) *Session {
	s := &Session{
		ID:           id,
		server:       srv,
		sched:        scheduler.NewScheduler(srv.opts.FrameInterval),
		sendChan:     make(chan []byte, 256),
		sendTextChan: make(chan []byte, 256),
		closeChan:    make(chan struct{}),
	}
	s.sched.SetDefaultErrorHandler(func(key string, err interface{}) {
		log.Printf("[Live Session %s] Task %s failed: %v", id, key, err)
	})

	opts := srv.opts.Editor
	opts.Bus = events.NewBus()
	opts.Scheduler = s.sched
	opts.Body = remoteBody{s: s}
	s.Editor = editor.New(opts)

	s.stops = append(s.stops,
		s.Editor.Subscribe(func(canvas.Elements) { s.sched.Request("state", s.sendState) }),
		events.On(opts.Bus, func(e events.ShowGuides) {
			s.sendBinary(EncodeGuides(GuidesFrame{ElementID: e.ElementID, Dragging: e.IsDragging, Guides: e.Guides}))
		}),
		events.On(opts.Bus, func(e events.HideGuides) {
			s.sendBinary(EncodeGuides(GuidesFrame{ElementID: e.ElementID}))
		}),
		events.On(opts.Bus, func(e events.AdjustZoom) {
			s.sendJSON(ZoomMessage{Type: MsgZoom, Zoom: e.Zoom})
		}),
	)
	return s
}

// attach makes conn the session's connection, closing any previous one
func (s *Session) attach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idleGen++
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
	select {
	case <-s.closeChan:
	default:
		close(s.closeChan)
	}
	s.conn = conn
	s.closeChan = make(chan struct{})
}

// handleConnection manages the WebSocket connection for a session
func (s *Session) handleConnection(conn *websocket.Conn) {
	s.mu.RLock()
	closeChan := s.closeChan
	if s.conn != conn {
		s.mu.RUnlock()
		conn.Close()
		return
	}
	s.sched.Start()
	s.mu.RUnlock()

	var closeOnce sync.Once
	cleanup := func() {
		closeOnce.Do(func() {
			conn.Close()
			s.mu.Lock()
			select {
			case <-closeChan:
			default:
				close(closeChan)
			}
			current := s.conn == conn
			if current {
				s.sched.Stop()
				s.conn = nil
				gen := s.idleGen
				s.idle = time.AfterFunc(s.server.opts.IdleTimeout, func() {
					s.server.evictIdle(s, gen)
				})
			}
			s.mu.Unlock()
			if current {
				// a dropped connection must not leave a drag or scroll lock behind
				s.Editor.EndDrag()
				s.Editor.Unmount()
			}
		})
	}
	defer cleanup()

	go s.writer(conn, closeChan)

	s.sendBinary(EncodeControl("HELLO", s.seq()))
	log.Printf("[Live Session %s] Sent server HELLO", s.ID)
	s.sendState()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Live Session %s] Unexpected close: %v", s.ID, err)
			}
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			s.handleBinaryMessage(data)
		case websocket.TextMessage:
			s.handleTextMessage(data)
		}
	}
}

// writer handles writing frames to the WebSocket
func (s *Session) writer(conn *websocket.Conn, closeChan chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-s.sendChan:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				log.Printf("[Live Session %s] Failed to write frame: %v", s.ID, err)
				return
			}

		case message := <-s.sendTextChan:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Live Session %s] Failed to write text message: %v", s.ID, err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-closeChan:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeq
}

func (s *Session) sendBinary(data []byte) {
	select {
	case s.sendChan <- data:
		s.mu.Lock()
		s.lastSeq++
		s.mu.Unlock()
	default:
		log.Printf("[Live Session %s] Send buffer full, dropping frame", s.ID)
	}
}

func (s *Session) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Live Session %s] Failed to encode message: %v", s.ID, err)
		return
	}
	select {
	case s.sendTextChan <- data:
	default:
		log.Printf("[Live Session %s] Send buffer full, dropping message", s.ID)
	}
}

func (s *Session) sendError(err error) {
	s.sendJSON(ErrorMessage{Type: MsgError, Message: err.Error()})
}

func (s *Session) sendState() {
	e := s.Editor
	s.sendJSON(StateMessage{
		Type:     MsgState,
		Elements: e.Elements(),
		Layers:   e.Layers(),
		Device:   string(e.Device()),
		Canvas:   e.Canvas(),
		CanUndo:  e.CanUndo(),
		CanRedo:  e.CanRedo(),
	})
}

// handleBinaryMessage processes binary protocol frames
func (s *Session) handleBinaryMessage(data []byte) {
	if len(data) == 0 {
		return
	}
	switch MessageType(data[0]) {
	case FramePointer:
		p, err := DecodePointer(data)
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode pointer: %v", s.ID, err)
			return
		}
		switch p.Type {
		case PointerDown:
			s.pointerDown(p.ID, p.X, p.Y)
		case PointerMove:
			s.Editor.DragTo(p.X, p.Y)
		case PointerUp:
			s.Editor.EndDrag()
		}

	case FrameControl:
		dec := NewDecoder(bytes.NewReader(data[1:]))
		msgType, err := dec.ReadString()
		if err != nil {
			log.Printf("[Live Session %s] Failed to decode control message: %v", s.ID, err)
			return
		}
		switch msgType {
		case "HELLO":
			lastSeq, _ := dec.ReadUvarint()
			log.Printf("[Live Session %s] Client hello: lastSeq=%d", s.ID, lastSeq)
		case "PING":
			s.sendBinary(EncodeControl("PONG"))
		}
	}
}

func (s *Session) pointerDown(id string, x, y float64) {
	if id == "" {
		hit, ok := s.Editor.HitTest(x, y)
		if !ok {
			return
		}
		id = hit
	}
	s.Editor.BeginDrag(id, x, y)
}

// handleTextMessage processes JSON client messages
func (s *Session) handleTextMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(fmt.Errorf("invalid message: %w", err))
		return
	}
	if err := s.dispatch(msg); err != nil {
		log.Printf("[Live Session %s] %s: %v", s.ID, msg.Type, err)
		s.sendError(err)
	}
}

func (s *Session) dispatch(msg ClientMessage) error {
	e := s.Editor
	switch msg.Type {
	case MsgPointerDown:
		s.pointerDown(msg.ID, msg.X, msg.Y)
	case MsgPointerMove:
		e.DragTo(msg.X, msg.Y)
	case MsgPointerUp:
		e.EndDrag()
	case MsgViewport:
		if msg.Container != nil {
			e.SetContainer(*msg.Container)
		}
		if msg.Transform != "" {
			e.SetTransform(msg.Transform)
		}
		if msg.Viewport != nil {
			e.Observe(*msg.Viewport)
		}
	case MsgUndo:
		e.Undo()
	case MsgRedo:
		e.Redo()
	case MsgGroup:
		_, err := e.Group(msg.IDs, msg.Name)
		return err
	case MsgUngroup:
		return e.Ungroup(msg.ID)
	case MsgAdd:
		e.AddElement(msg.ElementType, msg.X, msg.Y)
	case MsgDelete:
		e.DeleteElements(msg.IDs...)
	case MsgResize:
		return e.ResizeElement(msg.ID, msg.Width, msg.Height)
	case MsgDevice:
		d, err := device.Parse(msg.Device)
		if err != nil {
			return err
		}
		e.SetDevice(d)
		s.sched.Request("state", s.sendState)
	case MsgLoad:
		var els canvas.Elements
		if err := json.Unmarshal(msg.Elements, &els); err != nil {
			return fmt.Errorf("load: %w", err)
		}
		return e.Load(els)
	case MsgSave:
		if s.server.opts.Save == nil {
			return fmt.Errorf("save: no campaign store configured")
		}
		return s.server.opts.Save(s.ID, e.Device(), e.Elements())
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// close releases the editor and stops the frame loop
// idleSince reports whether the session has stayed disconnected since the
// disconnect of generation gen
func (s *Session) idleSince(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn == nil && s.idleGen == gen
}

func (s *Session) close() {
	s.mu.Lock()
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	conn := s.conn
	s.conn = nil
	select {
	case <-s.closeChan:
	default:
		close(s.closeChan)
	}
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	for _, stop := range s.stops {
		stop()
	}
	s.sched.Stop()
	s.Editor.Close()
}

// remoteBody forwards scroll lock changes to the browser host
type remoteBody struct {
	s *Session
}

func (b remoteBody) SetScrollLocked(locked bool) {
	b.s.sendJSON(BodyMessage{Type: MsgBody, ScrollLocked: &locked})
}

func (b remoteBody) SetTouchAction(value string) {
	b.s.sendJSON(BodyMessage{Type: MsgBody, TouchAction: &value})
}
