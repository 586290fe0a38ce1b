package live

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/internal/editor"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/canvas"
	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/device"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// PathPrefix is the URL prefix of the WebSocket endpoint
const PathPrefix = "/live/"

// DefaultIdleTimeout is how long a disconnected session is kept for a reconnect
const DefaultIdleTimeout = 5 * time.Minute

// Campaign is a stored layout a session can be seeded from
type Campaign struct {
	Device   device.Device
	Elements canvas.Elements
}

// Options configures a Server
type Options struct {
	// Editor is the template for every session editor. Bus, Scheduler and
	// Body are replaced per session.
	Editor editor.Options

	// FrameInterval bounds how often drag moves and state pushes run
	FrameInterval time.Duration

	// IdleTimeout is how long a session outlives its last connection before
	// it is closed and forgotten; zero means DefaultIdleTimeout
	IdleTimeout time.Duration

	// AllowedOrigins lists accepted Origin headers; "*" accepts any. When
	// empty only same-host origins are accepted.
	AllowedOrigins []string

	// Load seeds a new session. A nil campaign starts an empty canvas.
	Load func(id string) (*Campaign, error)

	// Save persists a session on a "save" message
	Save func(id string, d device.Device, els canvas.Elements) error
}

// Server handles WebSocket connections for live editing sessions
type Server struct {
	opts     Options
	upgrader websocket.Upgrader
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewServer creates a new live session server
func NewServer(opts Options) *Server {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	s := &Server{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	if len(s.opts.AllowedOrigins) > 0 {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Handler returns the HTTP handler serving the live endpoints
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathPrefix, s.HandleWebSocket)
	mux.HandleFunc("/sessions", s.handleNewSession)
	return mux
}

// handleNewSession hands out a fresh session id
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": uuid.NewString()})
}

// HandleWebSocket handles WebSocket upgrade and session management
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, PathPrefix)
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Live Server] Failed to upgrade connection: %v", err)
		return
	}

	session := s.getOrCreateSession(sessionID, conn)
	go session.handleConnection(conn)
}

// getOrCreateSession gets an existing session or creates a new one and
// attaches conn to it. Attaching under the server lock keeps an idle
// eviction from closing the session in between.
func (s *Server) getOrCreateSession(sessionID string, conn *websocket.Conn) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, exists := s.sessions[sessionID]; exists {
		session.attach(conn)
		return session
	}

	session := newSession(sessionID, s)
	if s.opts.Load != nil {
		c, err := s.opts.Load(sessionID)
		switch {
		case err != nil:
			log.Printf("[Live Server] Failed to load campaign %s: %v", sessionID, err)
		case c != nil:
			if c.Device != "" {
				session.Editor.SetDevice(c.Device)
			}
			if err := session.Editor.Load(c.Elements); err != nil {
				log.Printf("[Live Server] Campaign %s rejected: %v", sessionID, err)
			}
		}
	}
	s.sessions[sessionID] = session
	session.attach(conn)
	log.Printf("[Live Server] Created session %s", sessionID)
	return session
}

// evictIdle removes session if it is still registered and has had no
// connection since the disconnect that armed generation gen
func (s *Server) evictIdle(session *Session, gen uint64) {
	s.mu.Lock()
	if s.sessions[session.ID] != session || !session.idleSince(gen) {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, session.ID)
	s.mu.Unlock()

	log.Printf("[Live Server] Evicted idle session %s", session.ID)
	session.close()
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// Sessions returns the ids of the open sessions
func (s *Server) Sessions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Reload replaces the layout of an open session. It reports whether the
// session exists.
func (s *Server) Reload(sessionID string, els canvas.Elements) (bool, error) {
	session, ok := s.GetSession(sessionID)
	if !ok {
		return false, nil
	}
	return true, session.Editor.Load(els)
}

// RemoveSession closes and removes a session
func (s *Server) RemoveSession(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if ok {
		session.close()
	}
}

// Shutdown closes every session
func (s *Server) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, session := range sessions {
		session.close()
	}
}
