package registry

import (
	"slices"
	"strings"
	"sync"

	"github.com/soyeahso/swarmdeck/internal/domain"
)

// MemoryBackend is a mutex-guarded in-memory Backend, used when no durable
// store is configured and in tests.
type MemoryBackend struct {
	mu        sync.RWMutex
	agents    map[string]domain.Agent
	resources map[string]domain.Resource
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		agents:    make(map[string]domain.Agent),
		resources: make(map[string]domain.Resource),
	}
}

// PutAgent inserts or replaces an agent.
func (m *MemoryBackend) PutAgent(a domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.ID] = a
	return nil
}

// GetAgent returns an agent by id.
func (m *MemoryBackend) GetAgent(id string) (domain.Agent, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[id]
	return a, ok, nil
}

// DeleteAgent removes an agent. Returns false if the id was unknown.
func (m *MemoryBackend) DeleteAgent(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return false, nil
	}
	delete(m.agents, id)
	return true, nil
}

// ListAgents returns all agents ordered by creation time, then id.
func (m *MemoryBackend) ListAgents() ([]domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.Agent) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// PutResource inserts or replaces a resource.
func (m *MemoryBackend) PutResource(r domain.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[r.ID] = r
	return nil
}

// GetResource returns a resource by id.
func (m *MemoryBackend) GetResource(id string) (domain.Resource, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	return r, ok, nil
}

// DeleteResource removes a resource. Returns false if the id was unknown.
func (m *MemoryBackend) DeleteResource(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return false, nil
	}
	delete(m.resources, id)
	return true, nil
}

// ListResources returns all resources ordered by creation time, then id.
func (m *MemoryBackend) ListResources() ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Resource) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
