// Package canvas holds the live per-agent position state shared across
// sessions, and derives proximity adjacency from it.
package canvas

import (
	"errors"
	"sync"

	"github.com/soyeahso/swarmdeck/internal/domain"
)

// ErrUnknownAgent is returned by a strict-policy store for ids it has not seen.
var ErrUnknownAgent = errors.New("unknown agent id")

// Policy controls how the store treats updates for unknown ids.
type Policy string

const (
	// PolicyPermissive silently creates an entry for an unknown id.
	PolicyPermissive Policy = "permissive"
	// PolicyStrict rejects updates for ids that were never registered.
	PolicyStrict Policy = "strict"
)

// Entry is the last known state for a single agent or cursor source.
type Entry struct {
	Position domain.Position    `json:"position"`
	Status   domain.AgentStatus `json:"status"`
}

// PositionStore holds the last known position and status per agent id.
// Safe for concurrent use from multiple connection handlers. Entries
// survive session disconnects so clients can render ghost positions.
type PositionStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	policy  Policy
}

// NewPositionStore creates an empty store. An empty policy defaults to
// permissive, matching the observed upsert-on-unknown-id behavior.
func NewPositionStore(policy Policy) *PositionStore {
	if policy == "" {
		policy = PolicyPermissive
	}
	return &PositionStore{
		entries: make(map[string]Entry),
		policy:  policy,
	}
}

// Policy returns the store's update policy.
func (s *PositionStore) Policy() Policy { return s.policy }

// Register seeds an entry for id so a strict store will accept later
// updates. Registering an existing id overwrites its entry.
func (s *PositionStore) Register(id string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = e
}

// SetPosition records the last known position for id. The position is not
// validated against canvas bounds. Unknown ids create a new entry under the
// permissive policy and return ErrUnknownAgent under strict.
func (s *PositionStore) SetPosition(id string, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		if s.policy == PolicyStrict {
			return ErrUnknownAgent
		}
		e = Entry{Status: domain.AgentActive}
	}
	e.Position = pos
	s.entries[id] = e
	return nil
}

// SetStatus records the status for id, same policy rules as SetPosition.
func (s *PositionStore) SetStatus(id string, status domain.AgentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		if s.policy == PolicyStrict {
			return ErrUnknownAgent
		}
	}
	e.Status = status
	s.entries[id] = e
	return nil
}

// Get returns the entry for id.
func (s *PositionStore) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Remove drops the entry for id.
func (s *PositionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of tracked entries.
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a point-in-time copy of all entries, used to hydrate
// newly connected sessions. The returned map never aliases live store
// state, so concurrent updates cannot tear it.
func (s *PositionStore) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e
	}
	return out
}

// Positions returns a copy of just the positions, keyed by id.
func (s *PositionStore) Positions() map[string]domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Position, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.Position
	}
	return out
}
