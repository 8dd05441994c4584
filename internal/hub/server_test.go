package hub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/swarmdeck/internal/canvas"
	"github.com/soyeahso/swarmdeck/internal/config"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/soyeahso/swarmdeck/internal/logging"
	"github.com/soyeahso/swarmdeck/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, policy canvas.Policy) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Defaults()
	log := logging.New(nil, "silent")

	reg := registry.New(registry.NewMemoryBackend(), domain.Bounds{Width: 1920, Height: 1080}, log)
	positions := canvas.NewPositionStore(policy)

	srv := New(cfg, reg, positions, log)

	mux := http.NewServeMux()
	srv.registerRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// readSnapshot consumes the hydration message every new connection receives.
func readSnapshot(t *testing.T, conn *websocket.Conn) SnapshotPayload {
	t.Helper()
	env := readEnvelope(t, conn)
	require.Equal(t, TypeSnapshot, env.Type)

	var snap SnapshotPayload
	require.NoError(t, json.Unmarshal(env.Payload, &snap))
	return snap
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestNotFoundEndpoint(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshotOnConnect(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)
	srv.positions.Register("ghost-1", canvas.Entry{
		Position: domain.Position{X: 5, Y: 6},
		Status:   domain.AgentActive,
	})

	conn := dial(t, ts)
	snap := readSnapshot(t, conn)

	require.Contains(t, snap.Positions, "ghost-1")
	assert.Equal(t, domain.Position{X: 5, Y: 6}, snap.Positions["ghost-1"].Position)
}

func TestCursorRelay(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		AgentID:  "agent-a",
		Position: &domain.Position{X: 10, Y: 20},
	}))

	// B receives the authoritative relay under the outbound wire name
	env := readEnvelope(t, b)
	assert.Equal(t, TypeCursorUpdate, env.Type)
	assert.Equal(t, "agent-a", env.AgentID)
	require.NotNil(t, env.Position)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, *env.Position)

	// The sender never gets its own event echoed back
	require.NoError(t, a.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := a.ReadMessage()
	require.Error(t, err)

	// The position store recorded the last value
	e, ok := srv.positions.Get("agent-a")
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, e.Position)
}

func TestCursorRelayOrdering(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	for i := 0; i < 5; i++ {
		require.NoError(t, a.WriteJSON(Envelope{
			Type:     TypeCursorMove,
			AgentID:  "agent-a",
			Position: &domain.Position{X: float64(i), Y: 0},
		}))
	}

	// Events from one sender arrive in send order
	for i := 0; i < 5; i++ {
		env := readEnvelope(t, b)
		require.Equal(t, TypeCursorUpdate, env.Type)
		assert.Equal(t, float64(i), env.Position.X)
	}
}

func TestAnonymousCursorFallsBackToConnID(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		Position: &domain.Position{X: 1, Y: 2},
	}))

	env := readEnvelope(t, b)
	assert.Equal(t, TypeCursorUpdate, env.Type)
	assert.NotEmpty(t, env.AgentID)
	_, ok := srv.positions.Get(env.AgentID)
	assert.True(t, ok)
}

func TestMalformedMessagesKeepConnectionOpen(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	// Invalid JSON, unknown type, and a cursor without position are all
	// dropped without closing the connection or producing a broadcast
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{garbage`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"cursor_move","agent_id":"x"}`)))

	// The same connection still relays a valid event afterwards
	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		AgentID:  "agent-a",
		Position: &domain.Position{X: 7, Y: 8},
	}))

	env := readEnvelope(t, b)
	assert.Equal(t, TypeCursorUpdate, env.Type)
	assert.Equal(t, domain.Position{X: 7, Y: 8}, *env.Position)
}

func TestGhostPositionSurvivesDisconnect(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		AgentID:  "agent-a",
		Position: &domain.Position{X: 42, Y: 43},
	}))
	readEnvelope(t, b) // relay confirms the hub processed the event

	a.Close()

	// The session goes away but the last position does not
	require.Eventually(t, func() bool {
		return srv.sessions.Count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	e, ok := srv.positions.Get("agent-a")
	require.True(t, ok)
	assert.Equal(t, domain.Position{X: 42, Y: 43}, e.Position)

	// A later connection sees the ghost in its snapshot
	c := dial(t, ts)
	snap := readSnapshot(t, c)
	assert.Contains(t, snap.Positions, "agent-a")
}

func TestStrictPolicyDropsUnknownIDs(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyStrict)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		AgentID:  "stranger",
		Position: &domain.Position{X: 1, Y: 1},
	}))

	// Rejected updates are not relayed
	require.NoError(t, b.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var env Envelope
	require.Error(t, b.ReadJSON(&env))

	_, ok := srv.positions.Get("stranger")
	assert.False(t, ok)
}

func TestIdentifySeedsStrictStore(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyStrict)

	agent, err := srv.registry.CreateAgent("scout", domain.AgentWorker)
	require.NoError(t, err)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	require.NoError(t, a.WriteJSON(Envelope{Type: TypeIdentify, AgentID: agent.ID}))
	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		Position: &domain.Position{X: 100, Y: 100},
	}))

	env := readEnvelope(t, b)
	assert.Equal(t, TypeCursorUpdate, env.Type)
	assert.Equal(t, agent.ID, env.AgentID)
}

func TestAgentCreateOverWebSocket(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	env, err := NewEnvelope(TypeAgentCreate, CreateAgentPayload{Name: "drone-7", Kind: domain.AgentMonitor}, time.Now().UnixMilli())
	require.NoError(t, err)
	require.NoError(t, a.WriteJSON(env))

	out := readEnvelope(t, b)
	require.Equal(t, TypeAgentCreate, out.Type)

	var created domain.Agent
	require.NoError(t, json.Unmarshal(out.Payload, &created))
	assert.Equal(t, "drone-7", created.Name)
	assert.Equal(t, domain.AgentMonitor, created.Kind)

	agents, err := srv.registry.Agents()
	require.NoError(t, err)
	require.Len(t, agents, 1)
	_, ok := srv.positions.Get(agents[0].ID)
	assert.True(t, ok)
}

func TestAgentStatusOverWebSocket(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	agent, err := srv.registry.CreateAgent("scout", domain.AgentWorker)
	require.NoError(t, err)
	srv.positions.Register(agent.ID, canvas.Entry{Position: agent.Position, Status: agent.Status})

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)

	env, err := NewEnvelope(TypeAgentStatus, AgentStatusPayload{Status: domain.AgentBusy}, time.Now().UnixMilli())
	require.NoError(t, err)
	env.AgentID = agent.ID
	require.NoError(t, a.WriteJSON(env))

	out := readEnvelope(t, b)
	assert.Equal(t, TypeAgentStatus, out.Type)
	assert.Equal(t, agent.ID, out.AgentID)

	got, err := srv.registry.GetAgent(agent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentBusy, got.Status)

	e, _ := srv.positions.Get(agent.ID)
	assert.Equal(t, domain.AgentBusy, e.Status)
}

func TestDisconnectedSessionLeavesBroadcastSet(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	a := dial(t, ts)
	readSnapshot(t, a)
	b := dial(t, ts)
	readSnapshot(t, b)
	c := dial(t, ts)
	readSnapshot(t, c)

	b.Close()
	require.Eventually(t, func() bool {
		return srv.sessions.Count() == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Remaining sessions still receive broadcasts
	require.NoError(t, a.WriteJSON(Envelope{
		Type:     TypeCursorMove,
		AgentID:  "agent-a",
		Position: &domain.Position{X: 3, Y: 3},
	}))
	env := readEnvelope(t, c)
	assert.Equal(t, TypeCursorUpdate, env.Type)
}

func TestRootPathAcceptsWebSocketUpgrade(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readSnapshot(t, conn)
}

func TestRESTAgentLifecycle(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	// Create
	body := bytes.NewBufferString(`{"name":"scout","type":"worker"}`)
	resp, err := http.Post(ts.URL+"/api/agents", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Agent
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)

	// List
	resp2, err := http.Get(ts.URL + "/api/agents")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var agents []domain.Agent
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&agents))
	require.Len(t, agents, 1)

	// Delete
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/agents/"+created.ID, nil)
	require.NoError(t, err)
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp3.StatusCode)

	// Delete again is a 404
	resp4, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp4.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp4.StatusCode)
}

func TestRESTCreateAgentValidation(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	resp, err := http.Post(ts.URL+"/api/agents", "application/json",
		bytes.NewBufferString(`{"name":"","type":"worker"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Contains(t, apiErr["error"], "name")
}

func TestRESTResourceLifecycle(t *testing.T) {
	_, ts := testServer(t, canvas.PolicyPermissive)

	resp, err := http.Post(ts.URL+"/api/resources", "application/json",
		bytes.NewBufferString(`{"name":"gpu-pool","type":"compute","capacity":8}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Resource
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 8.0, created.Capacity)
	assert.Equal(t, domain.ResourceAvailable, created.Status)

	resp2, err := http.Get(ts.URL + "/api/resources")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var resources []domain.Resource
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&resources))
	assert.Len(t, resources, 1)
}

func TestRESTConnections(t *testing.T) {
	srv, ts := testServer(t, canvas.PolicyPermissive)

	a1, err := srv.registry.CreateAgent("near-1", domain.AgentWorker)
	require.NoError(t, err)
	a2, err := srv.registry.CreateAgent("near-2", domain.AgentWorker)
	require.NoError(t, err)
	srv.registry.SetAgentPosition(a1.ID, domain.Position{X: 0, Y: 0})
	srv.registry.SetAgentPosition(a2.ID, domain.Position{X: 30, Y: 40})

	resp, err := http.Get(ts.URL + "/api/connections?threshold=100")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Threshold   float64             `json:"threshold"`
		Connections map[string][]string `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 100.0, out.Threshold)
	assert.Equal(t, []string{a2.ID}, out.Connections[a1.ID])

	resp2, err := http.Get(ts.URL + "/api/connections?threshold=-1")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}
