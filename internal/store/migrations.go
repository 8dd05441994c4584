package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create agents and resources",
		SQL: `
			CREATE TABLE agents (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				kind        TEXT NOT NULL,
				status      TEXT NOT NULL,
				pos_x       REAL NOT NULL DEFAULT 0,
				pos_y       REAL NOT NULL DEFAULT 0,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_agents_kind ON agents (kind);
			CREATE INDEX idx_agents_status ON agents (status);

			CREATE TABLE resources (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL,
				kind        TEXT NOT NULL,
				capacity    REAL NOT NULL,
				load        REAL NOT NULL DEFAULT 0,
				status      TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_resources_kind ON resources (kind);
		`,
	},
}
