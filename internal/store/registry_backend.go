package store

import (
	"fmt"
	"time"

	"github.com/soyeahso/swarmdeck/internal/domain"
)

// SQLiteBackend implements registry.Backend on top of a DB, giving the
// registry durability across hub restarts.
type SQLiteBackend struct {
	db *DB
}

// NewSQLiteBackend creates a registry backend using the given database.
func NewSQLiteBackend(db *DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// PutAgent inserts or replaces an agent.
func (s *SQLiteBackend) PutAgent(a domain.Agent) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO agents (id, name, kind, status, pos_x, pos_y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   kind = excluded.kind,
		   status = excluded.status,
		   pos_x = excluded.pos_x,
		   pos_y = excluded.pos_y`,
		a.ID, a.Name, string(a.Kind), string(a.Status),
		a.Position.X, a.Position.Y,
		a.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("putting agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent returns an agent by id.
func (s *SQLiteBackend) GetAgent(id string) (domain.Agent, bool, error) {
	var a domain.Agent
	var kind, status, createdAt string

	err := s.db.sql.QueryRow(
		`SELECT id, name, kind, status, pos_x, pos_y, created_at
		 FROM agents WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &kind, &status, &a.Position.X, &a.Position.Y, &createdAt)
	if err != nil {
		return domain.Agent{}, false, nil
	}

	a.Kind = domain.AgentKind(kind)
	a.Status = domain.AgentStatus(status)
	a.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return a, true, nil
}

// DeleteAgent removes an agent. Returns false if the id was unknown.
func (s *SQLiteBackend) DeleteAgent(id string) (bool, error) {
	res, err := s.db.sql.Exec(`DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting agent %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListAgents returns all agents ordered by creation time, then id.
func (s *SQLiteBackend) ListAgents() ([]domain.Agent, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, name, kind, status, pos_x, pos_y, created_at
		 FROM agents ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		var a domain.Agent
		var kind, status, createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &kind, &status, &a.Position.X, &a.Position.Y, &createdAt); err != nil {
			continue
		}
		a.Kind = domain.AgentKind(kind)
		a.Status = domain.AgentStatus(status)
		a.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// PutResource inserts or replaces a resource.
func (s *SQLiteBackend) PutResource(r domain.Resource) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO resources (id, name, kind, capacity, load, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   kind = excluded.kind,
		   capacity = excluded.capacity,
		   load = excluded.load,
		   status = excluded.status`,
		r.ID, r.Name, string(r.Kind), r.Capacity, r.Load, string(r.Status),
		r.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("putting resource %s: %w", r.ID, err)
	}
	return nil
}

// GetResource returns a resource by id.
func (s *SQLiteBackend) GetResource(id string) (domain.Resource, bool, error) {
	var r domain.Resource
	var kind, status, createdAt string

	err := s.db.sql.QueryRow(
		`SELECT id, name, kind, capacity, load, status, created_at
		 FROM resources WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &kind, &r.Capacity, &r.Load, &status, &createdAt)
	if err != nil {
		return domain.Resource{}, false, nil
	}

	r.Kind = domain.ResourceKind(kind)
	r.Status = domain.ResourceStatus(status)
	r.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return r, true, nil
}

// DeleteResource removes a resource. Returns false if the id was unknown.
func (s *SQLiteBackend) DeleteResource(id string) (bool, error) {
	res, err := s.db.sql.Exec(`DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting resource %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListResources returns all resources ordered by creation time, then id.
func (s *SQLiteBackend) ListResources() ([]domain.Resource, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, name, kind, capacity, load, status, created_at
		 FROM resources ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		var r domain.Resource
		var kind, status, createdAt string
		if err := rows.Scan(&r.ID, &r.Name, &kind, &r.Capacity, &r.Load, &status, &createdAt); err != nil {
			continue
		}
		r.Kind = domain.ResourceKind(kind)
		r.Status = domain.ResourceStatus(status)
		r.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
