package domain

import "time"

// AgentStatus is the lifecycle status of an agent. Status changes are
// explicit messages; a session disconnecting does not flip its agent to
// offline, so the last known state stays visible as a ghost marker.
type AgentStatus string

const (
	AgentActive  AgentStatus = "active"
	AgentIdle    AgentStatus = "idle"
	AgentBusy    AgentStatus = "busy"
	AgentOffline AgentStatus = "offline"
)

// Valid reports whether the status is one of the known values.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentActive, AgentIdle, AgentBusy, AgentOffline:
		return true
	}
	return false
}

// AgentKind categorizes an agent's role on the canvas.
type AgentKind string

const (
	AgentWorker      AgentKind = "worker"
	AgentCoordinator AgentKind = "coordinator"
	AgentMonitor     AgentKind = "monitor"
	AgentSpecialist  AgentKind = "specialist"
)

// Valid reports whether the kind is one of the known values.
func (k AgentKind) Valid() bool {
	switch k {
	case AgentWorker, AgentCoordinator, AgentMonitor, AgentSpecialist:
		return true
	}
	return false
}

// Agent is a tracked entity rendered on the shared canvas. Adjacency to
// other agents is derived from positions on demand and is deliberately not
// a field here — positions are the only source of truth.
type Agent struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      AgentKind   `json:"type"`
	Status    AgentStatus `json:"status"`
	Position  Position    `json:"position"`
	CreatedAt time.Time   `json:"createdAt"`
}
