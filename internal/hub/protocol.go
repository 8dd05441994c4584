package hub

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soyeahso/swarmdeck/internal/canvas"
	"github.com/soyeahso/swarmdeck/internal/domain"
)

// Envelope message types. The set is open: an unrecognized type is dropped
// by the hub without closing the connection, so new event kinds can be
// added without breaking old clients.
const (
	TypeCursorMove     = "cursor_move"   // client → hub
	TypeCursorUpdate   = "cursor_update" // hub → other clients (authoritative relay)
	TypeIdentify       = "identify"
	TypeAgentCreate    = "agent_create"
	TypeAgentStatus    = "agent_status"
	TypeResourceCreate = "resource_create"
	TypeResourceStatus = "resource_status"
	TypeSnapshot       = "snapshot"
)

var (
	ErrMalformed       = errors.New("malformed envelope")
	ErrMissingPosition = errors.New("missing position")
	ErrMissingAgentID  = errors.New("missing agent id")
)

// Envelope is the tagged JSON structure exchanged over the persistent
// connection. Type discriminates; the remaining fields are populated per
// type.
type Envelope struct {
	Type      string           `json:"type"`
	AgentID   string           `json:"agent_id,omitempty"`
	Position  *domain.Position `json:"position,omitempty"`
	Timestamp int64            `json:"timestamp,omitempty"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
}

// DecodeEnvelope parses raw bytes and checks the fields required by the
// envelope's type. Unknown types decode successfully; the hub decides
// whether to drop them.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch env.Type {
	case TypeCursorMove, TypeCursorUpdate:
		if env.Position == nil {
			return Envelope{}, ErrMissingPosition
		}
	case TypeIdentify, TypeAgentStatus:
		if env.AgentID == "" {
			return Envelope{}, ErrMissingAgentID
		}
	}
	return env, nil
}

// IsCursor reports whether the envelope carries a cursor event under
// either of its two wire names.
func (e Envelope) IsCursor() bool {
	return e.Type == TypeCursorMove || e.Type == TypeCursorUpdate
}

// Origin tags which direction a cursor event is travelling. The wire uses
// two names for one logical event: cursor_move is a client's own intent,
// cursor_update is the hub's authoritative relay of it.
type Origin string

const (
	OriginClient Origin = "client"
	OriginRelay  Origin = "relay"
)

// CursorEvent is the single internal form of both cursor wire types. It is
// ephemeral: it exists only for the duration of a broadcast cycle and is
// never persisted beyond the position store's last-value entry.
type CursorEvent struct {
	AgentID   string
	Position  domain.Position
	Timestamp int64
	Origin    Origin
}

// Cursor normalizes a cursor envelope into the internal event form.
func (e Envelope) Cursor() (CursorEvent, error) {
	if !e.IsCursor() {
		return CursorEvent{}, fmt.Errorf("%w: type %q is not a cursor event", ErrMalformed, e.Type)
	}
	if e.Position == nil {
		return CursorEvent{}, ErrMissingPosition
	}
	origin := OriginClient
	if e.Type == TypeCursorUpdate {
		origin = OriginRelay
	}
	return CursorEvent{
		AgentID:   e.AgentID,
		Position:  *e.Position,
		Timestamp: e.Timestamp,
		Origin:    origin,
	}, nil
}

// Envelope renders the event back to wire form, choosing the type name
// from its direction of travel.
func (c CursorEvent) Envelope() Envelope {
	t := TypeCursorMove
	if c.Origin == OriginRelay {
		t = TypeCursorUpdate
	}
	pos := c.Position
	return Envelope{
		Type:      t,
		AgentID:   c.AgentID,
		Position:  &pos,
		Timestamp: c.Timestamp,
	}
}

// CreateAgentPayload is the payload of an agent_create envelope.
type CreateAgentPayload struct {
	Name string           `json:"name"`
	Kind domain.AgentKind `json:"type"`
}

// AgentStatusPayload is the payload of an agent_status envelope; the agent
// id rides in the envelope's agent_id field.
type AgentStatusPayload struct {
	Status domain.AgentStatus `json:"status"`
}

// CreateResourcePayload is the payload of a resource_create envelope.
type CreateResourcePayload struct {
	Name     string             `json:"name"`
	Kind     domain.ResourceKind `json:"type"`
	Capacity float64            `json:"capacity"`
}

// ResourceStatusPayload is the payload of a resource_status envelope.
// Either a new load (status re-derived) or an explicit status may be set.
type ResourceStatusPayload struct {
	ID     string                `json:"id"`
	Load   *float64              `json:"currentLoad,omitempty"`
	Status domain.ResourceStatus `json:"status,omitempty"`
}

// SnapshotPayload hydrates a newly connected session with the full current
// state: last known positions plus registry contents.
type SnapshotPayload struct {
	Positions map[string]canvas.Entry `json:"positions"`
	Agents    []domain.Agent          `json:"agents"`
	Resources []domain.Resource       `json:"resources"`
}

// NewEnvelope builds an envelope of the given type with a marshaled payload.
func NewEnvelope(msgType string, payload any, ts int64) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: ts,
	}, nil
}
