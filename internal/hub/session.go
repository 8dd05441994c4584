package hub

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/swarmdeck/internal/logging"
)

// ErrSessionClosed is returned when sending on a closed session.
var ErrSessionClosed = errors.New("session closed")

// Session is one live transport connection. Sessions are anonymous cursor
// sources until the client sends an identify message attaching an agent id.
type Session struct {
	ConnID      string
	ConnectedAt time.Time

	mu      sync.Mutex
	agentID string
	closed  bool
	sock    *websocket.Conn
	log     *logging.Logger
}

// NewSession wraps an upgraded WebSocket connection.
func NewSession(conn *websocket.Conn, log *logging.Logger) *Session {
	return &Session{
		ConnID:      uuid.New().String(),
		ConnectedAt: time.Now(),
		sock:        conn,
		log:         log,
	}
}

// AgentID returns the agent identity attached to this session, or empty
// for an anonymous session.
func (s *Session) AgentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agentID
}

// SetAgentID attaches an agent identity to the session.
func (s *Session) SetAgentID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentID = id
}

// Send writes an envelope to the socket. Thread-safe.
func (s *Session) Send(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.sock.WriteJSON(env)
}

// Ping writes a control ping frame. Thread-safe.
func (s *Session) Ping(deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.sock.WriteControl(websocket.PingMessage, nil, deadline)
}

// ReadMessage reads the next raw message from the socket. Decoding is the
// hub's concern so malformed payloads can be logged and dropped.
func (s *Session) ReadMessage() ([]byte, error) {
	_, msg, err := s.sock.ReadMessage()
	return msg, err
}

// Close closes the underlying socket. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sock.Close()
}

// SessionList tracks live sessions in registration order so broadcast
// delivery order is deterministic.
type SessionList struct {
	mu     sync.RWMutex
	order  []*Session
	byConn map[string]*Session
	log    *logging.Logger
}

// NewSessionList creates an empty session list.
func NewSessionList(log *logging.Logger) *SessionList {
	return &SessionList{
		byConn: make(map[string]*Session),
		log:    log,
	}
}

// Add registers a connected session.
func (l *SessionList) Add(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, s)
	l.byConn[s.ConnID] = s
	l.log.Info().Str("connId", s.ConnID).Msg("session connected")
}

// Remove unregisters a session by connection id. The associated agent's
// last known position is untouched — disconnect does not imply offline.
func (l *SessionList) Remove(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byConn[connID]; !ok {
		return
	}
	delete(l.byConn, connID)
	l.order = slices.DeleteFunc(l.order, func(s *Session) bool {
		return s.ConnID == connID
	})
	l.log.Info().Str("connId", connID).Msg("session disconnected")
}

// Get returns a session by connection id.
func (l *SessionList) Get(connID string) (*Session, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.byConn[connID]
	return s, ok
}

// Count returns the number of live sessions.
func (l *SessionList) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// BroadcastExcept delivers env to every session except the named one, in
// registration order. Pass an empty connID to reach every session. A
// failed send never aborts the remaining deliveries — the one dead session
// is removed and closed.
func (l *SessionList) BroadcastExcept(exceptConnID string, env Envelope) {
	l.mu.RLock()
	targets := slices.Clone(l.order)
	l.mu.RUnlock()

	var dead []*Session
	for _, s := range targets {
		if s.ConnID == exceptConnID {
			continue
		}
		if err := s.Send(env); err != nil {
			l.log.Warn().Err(err).Str("connId", s.ConnID).Msg("broadcast send failed")
			dead = append(dead, s)
		}
	}

	for _, s := range dead {
		l.Remove(s.ConnID)
		s.Close()
	}
}

// CloseAll closes all live sessions.
func (l *SessionList) CloseAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, s := range l.byConn {
		s.Close()
		delete(l.byConn, id)
	}
	l.order = nil
}
