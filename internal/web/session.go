package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"eventcal/internal/loader"
	appLog "eventcal/internal/log"
	"eventcal/internal/surface"
)

const (
	sessionWriteTimeout = 5 * time.Second
	sessionPingInterval = 30 * time.Second
	sessionPongWait     = 2 * sessionPingInterval
)

var errSessionClosed = errors.New("session closed")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// serverMessage is everything the server pushes to a page.
type serverMessage struct {
	Type    string          `json:"type"`
	Change  *surface.Change `json:"change,omitempty"`
	ID      int64           `json:"id,omitempty"`
	Message string          `json:"message,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
}

// clientMessage is what a page sends back; only acknowledgements for now.
type clientMessage struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// session mirrors one open page. It owns the page's surfaces and replays
// every mutation over the websocket.
type session struct {
	id     string
	conn   *websocket.Conn
	doc    *surface.Document
	loader *loader.Loader

	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	loadMu  sync.Mutex

	ackMu  sync.Mutex
	nextID int64
	acks   map[int64]chan struct{}
}

func newSession(parent context.Context, conn *websocket.Conn, l *loader.Loader) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		id:     uuid.NewString(),
		conn:   conn,
		doc:    surface.NewPage(),
		loader: l,
		ctx:    ctx,
		cancel: cancel,
		acks:   make(map[int64]chan struct{}),
	}
	s.doc.OnChange(func(c surface.Change) {
		if err := s.send(serverMessage{Type: "surface", Change: &c}); err != nil {
			appLog.Debug("surface change not delivered", "session", s.id, "err", err)
		}
	})
	return s
}

func (s *session) send(msg serverMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.ctx.Err() != nil {
		return errSessionClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return s.conn.WriteJSON(msg)
}

// Alert shows msg in the page as a modal dialog and waits for the page to
// acknowledge it.
func (s *session) Alert(ctx context.Context, msg string) error {
	s.ackMu.Lock()
	s.nextID++
	id := s.nextID
	ch := make(chan struct{})
	s.acks[id] = ch
	s.ackMu.Unlock()

	defer func() {
		s.ackMu.Lock()
		delete(s.acks, id)
		s.ackMu.Unlock()
	}()

	if err := s.send(serverMessage{Type: "alert", ID: id, Message: msg}); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errSessionClosed
	}
}

func (s *session) ack(id int64) {
	s.ackMu.Lock()
	defer s.ackMu.Unlock()
	if ch, ok := s.acks[id]; ok {
		close(ch)
		delete(s.acks, id)
	}
}

// reload runs a fresh load cycle: the loader is shown again, the list is
// hidden, and a new load with its own transition runs. Loads in the same
// session never overlap.
func (s *session) reload() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	target := loader.PageTarget(s.doc, s)
	target.Loader.SetOpacity(1)
	target.Loader.SetVisible(true)
	target.Content.SetVisible(false)

	_, err := s.loader.Load(s.ctx, target).Wait(s.ctx)
	if s.ctx.Err() != nil {
		return
	}
	ok := err == nil
	if sendErr := s.send(serverMessage{Type: "ready", OK: &ok}); sendErr != nil {
		appLog.Debug("ready not delivered", "session", s.id, "err", sendErr)
	}
}

// run sends the initial page state, starts the first load and serves the
// connection until it closes.
func (s *session) run() {
	defer s.close()

	for _, c := range s.doc.Snapshot() {
		if err := s.send(serverMessage{Type: "surface", Change: &c}); err != nil {
			return
		}
	}

	go s.reload()
	go s.keepalive()

	_ = s.conn.SetReadDeadline(time.Now().Add(sessionPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(sessionPongWait))
	})

	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				appLog.Error("session read failed", err, "session", s.id)
			}
			return
		}
		if msg.Type == "ack" {
			s.ack(msg.ID)
		}
	}
}

func (s *session) keepalive() {
	ticker := time.NewTicker(sessionPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(sessionWriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.cancel()
				return
			}
		}
	}
}

func (s *session) close() {
	s.cancel()
	s.writeMu.Lock()
	_ = s.conn.Close()
	s.writeMu.Unlock()
}

// Hub tracks open page sessions.
type Hub struct {
	loader *loader.Loader

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHub(l *loader.Loader) *Hub {
	return &Hub{loader: l, sessions: make(map[string]*session)}
}

// Len returns the number of open sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// ReloadAll starts a fresh load in every open session.
func (h *Hub) ReloadAll() {
	h.mu.Lock()
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	appLog.Info("reloading sessions", "count", len(sessions))
	for _, s := range sessions {
		go s.reload()
	}
}

// CloseAll terminates every open session.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("websocket upgrade failed", err)
		return
	}
	sess := newSession(context.Background(), conn, s.loader)
	s.hub.add(sess)
	defer s.hub.remove(sess)

	appLog.Info("session opened", "session", sess.id, "remote", r.RemoteAddr)
	sess.run()
	appLog.Info("session closed", "session", sess.id)
}
