package hub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/swarmdeck/internal/canvas"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/soyeahso/swarmdeck/internal/registry"
	"github.com/soyeahso/swarmdeck/internal/version"
)

// registerRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents", s.handleCreateAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", s.handleDeleteAgent)

	mux.HandleFunc("GET /api/resources", s.handleListResources)
	mux.HandleFunc("POST /api/resources", s.handleCreateResource)
	mux.HandleFunc("DELETE /api/resources/{id}", s.handleDeleteResource)

	mux.HandleFunc("GET /api/connections", s.handleConnections)

	// Catch-all: WebSocket upgrades are also accepted at the root path so
	// simple clients can dial the bare host:port.
	mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && websocket.IsWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}
	writeJSONError(w, http.StatusNotFound, "not found")
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
	Agents   int    `json:"agents"`
	UptimeMs int64  `json:"uptimeMs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	agents, _ := s.registry.Agents()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Version:  version.Version,
		Sessions: s.sessions.Count(),
		Agents:   len(agents),
		UptimeMs: s.Uptime().Milliseconds(),
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.registry.Agents()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

type createAgentRequest struct {
	Name string           `json:"name"`
	Kind domain.AgentKind `json:"type"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	a, err := s.registry.CreateAgent(req.Name, req.Kind)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	s.positions.Register(a.ID, canvas.Entry{Position: a.Position, Status: a.Status})

	if env, err := NewEnvelope(TypeAgentCreate, a, time.Now().UnixMilli()); err == nil {
		env.AgentID = a.ID
		s.sessions.BroadcastExcept("", env)
	}

	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.RemoveAgent(id); err != nil {
		writeRegistryError(w, err)
		return
	}
	s.positions.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.registry.Resources()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resources == nil {
		resources = []domain.Resource{}
	}
	writeJSON(w, http.StatusOK, resources)
}

type createResourceRequest struct {
	Name     string              `json:"name"`
	Kind     domain.ResourceKind `json:"type"`
	Capacity float64             `json:"capacity"`
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req createResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.registry.CreateResource(req.Name, req.Kind, req.Capacity)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	if env, err := NewEnvelope(TypeResourceCreate, res, time.Now().UnixMilli()); err == nil {
		s.sessions.BroadcastExcept("", env)
	}

	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.RemoveResource(id); err != nil {
		writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConnections returns the current proximity adjacency between agents.
// The threshold query parameter overrides the configured default.
func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	threshold := s.cfg.Canvas.ProximityThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeJSONError(w, http.StatusBadRequest, "threshold must be a positive number")
			return
		}
		threshold = v
	}

	conns, err := s.registry.Connections(threshold)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold":   threshold,
		"connections": conns,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeRegistryError maps registry errors onto HTTP status codes.
func writeRegistryError(w http.ResponseWriter, err error) {
	var verr *registry.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSONError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
