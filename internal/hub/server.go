package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/swarmdeck/internal/canvas"
	"github.com/soyeahso/swarmdeck/internal/config"
	"github.com/soyeahso/swarmdeck/internal/logging"
	"github.com/soyeahso/swarmdeck/internal/registry"
)

// Server is the swarmdeck hub HTTP + WebSocket server. It owns the set of
// live sessions, routes inbound events to the position store, and fans
// every accepted event out to all other sessions.
type Server struct {
	cfg       config.Config
	log       *logging.Logger
	sessions  *SessionList
	registry  *registry.Registry
	positions *canvas.PositionStore

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a hub server. The registry and position store are
// constructed once at process start and injected here; the server holds
// no other mutable state.
func New(cfg config.Config, reg *registry.Registry, positions *canvas.PositionStore, log *logging.Logger) *Server {
	return &Server{
		cfg:       cfg,
		log:       log.Sub("hub"),
		sessions:  NewSessionList(log.Sub("sessions")),
		registry:  reg,
		positions: positions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Hub.AllowedOrigins),
		},
	}
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin
// headers. If no origins are configured, only same-origin (no Origin
// header) or non-browser clients are allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.HubConfig) string {
	switch cfg.Bind {
	case "loopback":
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Hub)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := withMiddleware(mux, s.log, s.cfg.Hub.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Hub.Bind).
		Str("positionPolicy", string(s.positions.Policy())).
		Msg("hub server ready")

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down hub server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.sessions.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// Sessions exposes the live session list.
func (s *Server) Sessions() *SessionList { return s.sessions }

// handleWebSocket upgrades HTTP to WebSocket and runs the connection loop.
// No authentication happens here: any connecting client is accepted as an
// anonymous cursor source. A reconnecting client is indistinguishable from
// a brand-new one.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(512 * 1024)

	sess := NewSession(conn, s.log.Sub("ws"))
	s.log.Debug().Str("connId", sess.ConnID).Str("remote", r.RemoteAddr).Msg("new websocket connection")

	// Hydrate the new session point-to-point before it joins the broadcast
	// set, so its first received payload is a consistent snapshot with no
	// relayed event ordered ahead of it.
	if err := s.sendSnapshot(sess); err != nil {
		s.log.Warn().Err(err).Str("connId", sess.ConnID).Msg("snapshot send failed")
		sess.Close()
		return
	}

	s.sessions.Add(sess)
	defer func() {
		s.sessions.Remove(sess.ConnID)
		sess.Close()
	}()

	stopPing := s.startHeartbeat(sess, conn)
	defer stopPing()

	s.readLoop(sess)
}

// sendSnapshot sends the current position store and registry contents to
// one session.
func (s *Server) sendSnapshot(sess *Session) error {
	agents, err := s.registry.Agents()
	if err != nil {
		return fmt.Errorf("listing agents: %w", err)
	}
	resources, err := s.registry.Resources()
	if err != nil {
		return fmt.Errorf("listing resources: %w", err)
	}

	env, err := NewEnvelope(TypeSnapshot, SnapshotPayload{
		Positions: s.positions.Snapshot(),
		Agents:    agents,
		Resources: resources,
	}, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return sess.Send(env)
}

// startHeartbeat pings the session on the configured interval and extends
// the read deadline on each pong. Disabled when the interval is zero.
func (s *Server) startHeartbeat(sess *Session, conn *websocket.Conn) func() {
	interval := time.Duration(s.cfg.Hub.PingIntervalSeconds) * time.Second
	if interval <= 0 {
		return func() {}
	}

	conn.SetReadDeadline(time.Now().Add(2 * interval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * interval))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sess.Ping(time.Now().Add(5 * time.Second)); err != nil {
					sess.Close()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

// readLoop processes inbound messages until the connection drops. A bad
// message is never fatal: malformed or unrecognized envelopes are dropped
// and the connection stays open.
func (s *Server) readLoop(sess *Session) {
	for {
		data, err := sess.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", sess.ConnID).Msg("client closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", sess.ConnID).Msg("read error")
			}
			return
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			s.log.Debug().Err(err).Str("connId", sess.ConnID).Msg("dropping undecodable message")
			continue
		}

		s.dispatch(sess, env)
	}
}

// dispatch routes a decoded envelope. Events that mutate shared state do
// so first, then re-broadcast to every other session; the sender never
// receives its own event back.
func (s *Server) dispatch(sess *Session, env Envelope) {
	switch env.Type {
	case TypeCursorMove, TypeCursorUpdate:
		s.handleCursor(sess, env)

	case TypeIdentify:
		s.handleIdentify(sess, env)

	case TypeAgentCreate:
		s.handleAgentCreate(sess, env)

	case TypeAgentStatus:
		s.handleAgentStatus(sess, env)

	case TypeResourceCreate:
		s.handleResourceCreate(sess, env)

	case TypeResourceStatus:
		s.handleResourceStatus(sess, env)

	default:
		s.log.Debug().Str("type", env.Type).Str("connId", sess.ConnID).Msg("dropping unrecognized message type")
	}
}

// handleCursor applies a cursor event to the position store and relays it
// to all other sessions as a cursor_update. The hub does not validate the
// position against canvas bounds and does not coalesce rapid events.
func (s *Server) handleCursor(sess *Session, env Envelope) {
	evt, err := env.Cursor()
	if err != nil {
		s.log.Debug().Err(err).Str("connId", sess.ConnID).Msg("dropping cursor event")
		return
	}

	id := evt.AgentID
	if id == "" {
		id = sess.AgentID()
	}
	if id == "" {
		id = sess.ConnID
	}

	if err := s.positions.SetPosition(id, evt.Position); err != nil {
		s.log.Debug().Err(err).Str("agentId", id).Msg("position update rejected")
		return
	}
	s.registry.SetAgentPosition(id, evt.Position)

	relay := CursorEvent{
		AgentID:   id,
		Position:  evt.Position,
		Timestamp: evt.Timestamp,
		Origin:    OriginRelay,
	}
	s.sessions.BroadcastExcept(sess.ConnID, relay.Envelope())
}

// handleIdentify attaches an agent identity to the session and seeds the
// position store so strict policies accept this agent's updates.
func (s *Server) handleIdentify(sess *Session, env Envelope) {
	sess.SetAgentID(env.AgentID)

	if a, err := s.registry.GetAgent(env.AgentID); err == nil {
		s.positions.Register(a.ID, canvas.Entry{Position: a.Position, Status: a.Status})
	}
	s.log.Info().Str("connId", sess.ConnID).Str("agentId", env.AgentID).Msg("session identified")
}

func (s *Server) handleAgentCreate(sess *Session, env Envelope) {
	var p CreateAgentPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		s.log.Debug().Err(err).Str("connId", sess.ConnID).Msg("dropping agent_create with bad payload")
		return
	}

	a, err := s.registry.CreateAgent(p.Name, p.Kind)
	if err != nil {
		s.log.Debug().Err(err).Str("connId", sess.ConnID).Msg("agent_create rejected")
		return
	}
	s.positions.Register(a.ID, canvas.Entry{Position: a.Position, Status: a.Status})

	out, err := NewEnvelope(TypeAgentCreate, a, env.Timestamp)
	if err != nil {
		return
	}
	out.AgentID = a.ID
	s.sessions.BroadcastExcept(sess.ConnID, out)
}

func (s *Server) handleAgentStatus(sess *Session, env Envelope) {
	var p AgentStatusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || !p.Status.Valid() {
		s.log.Debug().Str("connId", sess.ConnID).Msg("dropping agent_status with bad payload")
		return
	}

	if err := s.positions.SetStatus(env.AgentID, p.Status); err != nil {
		s.log.Debug().Err(err).Str("agentId", env.AgentID).Msg("status update rejected")
		return
	}
	if err := s.registry.SetAgentStatus(env.AgentID, p.Status); err != nil && !errors.Is(err, registry.ErrNotFound) {
		s.log.Warn().Err(err).Str("agentId", env.AgentID).Msg("failed to persist agent status")
	}

	s.sessions.BroadcastExcept(sess.ConnID, env)
}

func (s *Server) handleResourceCreate(sess *Session, env Envelope) {
	var p CreateResourcePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		s.log.Debug().Err(err).Str("connId", sess.ConnID).Msg("dropping resource_create with bad payload")
		return
	}

	res, err := s.registry.CreateResource(p.Name, p.Kind, p.Capacity)
	if err != nil {
		s.log.Debug().Err(err).Str("connId", sess.ConnID).Msg("resource_create rejected")
		return
	}

	out, err := NewEnvelope(TypeResourceCreate, res, env.Timestamp)
	if err != nil {
		return
	}
	s.sessions.BroadcastExcept(sess.ConnID, out)
}

func (s *Server) handleResourceStatus(sess *Session, env Envelope) {
	var p ResourceStatusPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.ID == "" {
		s.log.Debug().Str("connId", sess.ConnID).Msg("dropping resource_status with bad payload")
		return
	}

	var err error
	switch {
	case p.Load != nil:
		err = s.registry.SetResourceLoad(p.ID, *p.Load)
	case p.Status != "":
		err = s.registry.SetResourceStatus(p.ID, p.Status)
	default:
		return
	}
	if err != nil {
		s.log.Debug().Err(err).Str("resourceId", p.ID).Msg("resource update rejected")
		return
	}

	s.sessions.BroadcastExcept(sess.ConnID, env)
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}
