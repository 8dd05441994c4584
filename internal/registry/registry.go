// Package registry is the authoritative store for agent and resource
// entities, independent of transient cursor state.
package registry

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/swarmdeck/internal/canvas"
	"github.com/soyeahso/swarmdeck/internal/domain"
	"github.com/soyeahso/swarmdeck/internal/logging"
)

// ErrNotFound is returned when an entity id does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected create or update. HTTP handlers map
// it to a 400 response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Backend persists registry entities. Implementations must be safe for
// concurrent use.
type Backend interface {
	PutAgent(a domain.Agent) error
	GetAgent(id string) (domain.Agent, bool, error)
	DeleteAgent(id string) (bool, error)
	ListAgents() ([]domain.Agent, error)

	PutResource(r domain.Resource) error
	GetResource(id string) (domain.Resource, bool, error)
	DeleteResource(id string) (bool, error)
	ListResources() ([]domain.Resource, error)
}

// Registry validates entity lifecycle operations on top of a Backend.
// Construct one per process and pass it to handlers explicitly.
type Registry struct {
	backend Backend
	bounds  domain.Bounds
	log     *logging.Logger
}

// New creates a registry over the given backend. New agents receive a
// random initial position within bounds.
func New(backend Backend, bounds domain.Bounds, log *logging.Logger) *Registry {
	return &Registry{
		backend: backend,
		bounds:  bounds,
		log:     log.Sub("registry"),
	}
}

// CreateAgent creates an agent with a fresh id, active status, and a
// random position within the canvas bounds.
func (r *Registry) CreateAgent(name string, kind domain.AgentKind) (domain.Agent, error) {
	if name == "" {
		return domain.Agent{}, &ValidationError{Field: "name", Message: "is required"}
	}
	if !kind.Valid() {
		return domain.Agent{}, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown agent type %q", kind)}
	}

	a := domain.Agent{
		ID:     uuid.New().String(),
		Name:   name,
		Kind:   kind,
		Status: domain.AgentActive,
		Position: domain.Position{
			X: rand.Float64() * r.bounds.Width,
			Y: rand.Float64() * r.bounds.Height,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := r.backend.PutAgent(a); err != nil {
		return domain.Agent{}, fmt.Errorf("storing agent: %w", err)
	}

	r.log.Info().Str("id", a.ID).Str("name", a.Name).Str("type", string(a.Kind)).Msg("agent created")
	return a, nil
}

// CreateResource creates a resource with zero load and a status derived
// from it (zero load is non-busy).
func (r *Registry) CreateResource(name string, kind domain.ResourceKind, capacity float64) (domain.Resource, error) {
	if name == "" {
		return domain.Resource{}, &ValidationError{Field: "name", Message: "is required"}
	}
	if !kind.Valid() {
		return domain.Resource{}, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown resource type %q", kind)}
	}
	if capacity < 0 {
		return domain.Resource{}, &ValidationError{Field: "capacity", Message: fmt.Sprintf("must be >= 0, got %g", capacity)}
	}

	res := domain.Resource{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      kind,
		Capacity:  capacity,
		Load:      0,
		Status:    domain.ResourceAvailable,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.backend.PutResource(res); err != nil {
		return domain.Resource{}, fmt.Errorf("storing resource: %w", err)
	}

	r.log.Info().Str("id", res.ID).Str("name", res.Name).Str("type", string(res.Kind)).Msg("resource created")
	return res, nil
}

// GetAgent returns the agent with the given id.
func (r *Registry) GetAgent(id string) (domain.Agent, error) {
	a, ok, err := r.backend.GetAgent(id)
	if err != nil {
		return domain.Agent{}, err
	}
	if !ok {
		return domain.Agent{}, ErrNotFound
	}
	return a, nil
}

// GetResource returns the resource with the given id.
func (r *Registry) GetResource(id string) (domain.Resource, error) {
	res, ok, err := r.backend.GetResource(id)
	if err != nil {
		return domain.Resource{}, err
	}
	if !ok {
		return domain.Resource{}, ErrNotFound
	}
	return res, nil
}

// Agents lists all agents.
func (r *Registry) Agents() ([]domain.Agent, error) {
	return r.backend.ListAgents()
}

// Resources lists all resources.
func (r *Registry) Resources() ([]domain.Resource, error) {
	return r.backend.ListResources()
}

// RemoveAgent deletes an agent immediately. There is no soft delete.
func (r *Registry) RemoveAgent(id string) error {
	ok, err := r.backend.DeleteAgent(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	r.log.Info().Str("id", id).Msg("agent removed")
	return nil
}

// RemoveResource deletes a resource immediately.
func (r *Registry) RemoveResource(id string) error {
	ok, err := r.backend.DeleteResource(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	r.log.Info().Str("id", id).Msg("resource removed")
	return nil
}

// SetAgentStatus updates an agent's lifecycle status.
func (r *Registry) SetAgentStatus(id string, status domain.AgentStatus) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	a, ok, err := r.backend.GetAgent(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return r.backend.PutAgent(a)
}

// SetAgentPosition records the last relayed position on the agent entity.
// Unknown ids are ignored: anonymous cursor sources are tracked only by
// the position store, not the registry.
func (r *Registry) SetAgentPosition(id string, pos domain.Position) {
	a, ok, err := r.backend.GetAgent(id)
	if err != nil || !ok {
		return
	}
	a.Position = pos
	if err := r.backend.PutAgent(a); err != nil {
		r.log.Warn().Err(err).Str("id", id).Msg("failed to persist agent position")
	}
}

// SetResourceLoad updates a resource's current load and re-derives its
// status from it. The stored load is never clamped to capacity.
func (r *Registry) SetResourceLoad(id string, load float64) error {
	if load < 0 {
		return &ValidationError{Field: "currentLoad", Message: fmt.Sprintf("must be >= 0, got %g", load)}
	}
	res, ok, err := r.backend.GetResource(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	res.Load = load
	if load > 0 {
		res.Status = domain.ResourceBusy
	} else {
		res.Status = domain.ResourceAvailable
	}
	return r.backend.PutResource(res)
}

// SetResourceStatus updates a resource's lifecycle status directly.
func (r *Registry) SetResourceStatus(id string, status domain.ResourceStatus) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	res, ok, err := r.backend.GetResource(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	res.Status = status
	return r.backend.PutResource(res)
}

// Connections derives the adjacency between agents whose Euclidean
// distance is under threshold. The result is recomputed from current
// positions on every call and is never stored.
func (r *Registry) Connections(threshold float64) (map[string][]string, error) {
	agents, err := r.backend.ListAgents()
	if err != nil {
		return nil, err
	}
	points := make(map[string]domain.Position, len(agents))
	for _, a := range agents {
		points[a.ID] = a.Position
	}
	return canvas.Adjacency(points, threshold), nil
}
