package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS todos (
	seq         INTEGER PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	title       TEXT,
	details     TEXT,
	priority    TEXT,
	status      TEXT,
	owner       TEXT,
	created_at  TEXT,
	updated_at  TEXT
);

CREATE TABLE IF NOT EXISTS users (
	seq           INTEGER PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_todos_owner ON todos(owner);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
