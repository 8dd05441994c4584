package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/swarmdeck/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionPair opens one WebSocket connection and returns the server-side
// session plus the client side of the same socket.
func sessionPair(t *testing.T) (*Session, *websocket.Conn) {
	t.Helper()
	log := logging.New(nil, "silent")
	upgrader := websocket.Upgrader{}

	serverSide := make(chan *Session, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverSide <- NewSession(conn, log)
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	sess := <-serverSide
	t.Cleanup(func() { sess.Close() })
	return sess, client
}

func TestSessionSendAndClose(t *testing.T) {
	sess, client := sessionPair(t)
	assert.NotEmpty(t, sess.ConnID)

	require.NoError(t, sess.Send(Envelope{Type: TypeCursorUpdate, AgentID: "a1"}))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, client.ReadJSON(&env))
	assert.Equal(t, "a1", env.AgentID)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close()) // idempotent
	assert.ErrorIs(t, sess.Send(Envelope{Type: TypeCursorUpdate}), ErrSessionClosed)
}

func TestSessionAgentID(t *testing.T) {
	sess, _ := sessionPair(t)
	assert.Empty(t, sess.AgentID())
	sess.SetAgentID("agent-9")
	assert.Equal(t, "agent-9", sess.AgentID())
}

func TestSessionListBroadcastExcept(t *testing.T) {
	list := NewSessionList(logging.New(nil, "silent"))

	s1, c1 := sessionPair(t)
	s2, c2 := sessionPair(t)
	s3, c3 := sessionPair(t)
	list.Add(s1)
	list.Add(s2)
	list.Add(s3)
	assert.Equal(t, 3, list.Count())

	list.BroadcastExcept(s2.ConnID, Envelope{Type: TypeCursorUpdate, AgentID: "a1"})

	for _, c := range []*websocket.Conn{c1, c3} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env Envelope
		require.NoError(t, c.ReadJSON(&env))
		assert.Equal(t, "a1", env.AgentID)
	}

	// The excluded session receives nothing
	require.NoError(t, c2.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var env Envelope
	require.Error(t, c2.ReadJSON(&env))
}

func TestSessionListEmptyExceptReachesAll(t *testing.T) {
	list := NewSessionList(logging.New(nil, "silent"))

	s1, c1 := sessionPair(t)
	s2, c2 := sessionPair(t)
	list.Add(s1)
	list.Add(s2)

	list.BroadcastExcept("", Envelope{Type: TypeSnapshot})

	for _, c := range []*websocket.Conn{c1, c2} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env Envelope
		require.NoError(t, c.ReadJSON(&env))
		assert.Equal(t, TypeSnapshot, env.Type)
	}
}

func TestBroadcastPrunesDeadSessions(t *testing.T) {
	list := NewSessionList(logging.New(nil, "silent"))

	s1, c1 := sessionPair(t)
	s2, _ := sessionPair(t)
	list.Add(s1)
	list.Add(s2)

	// Kill s2's socket so its send fails
	require.NoError(t, s2.Close())

	list.BroadcastExcept("", Envelope{Type: TypeCursorUpdate, AgentID: "a1"})

	// The healthy session still got the event
	require.NoError(t, c1.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, c1.ReadJSON(&env))
	assert.Equal(t, "a1", env.AgentID)

	// The dead one was removed
	assert.Equal(t, 1, list.Count())
	_, ok := list.Get(s2.ConnID)
	assert.False(t, ok)
}

func TestRemoveUnknownConnIDIsNoOp(t *testing.T) {
	list := NewSessionList(logging.New(nil, "silent"))
	list.Remove("nope")
	assert.Equal(t, 0, list.Count())
}
