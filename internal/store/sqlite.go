package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/todolist/internal/codec"
	"github.com/nhle/todolist/internal/model"
)

// SQLiteBackend keeps records in a local SQLite database. Saves rewrite a
// whole table inside one transaction, the same contract as the JSON files.
type SQLiteBackend struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteBackend opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, &StorageError{Op: "open", Path: dbPath, Err: err}
	}
	// A single connection keeps ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, &StorageError{Op: "enable WAL", Path: dbPath, Err: err}
	}

	s := &SQLiteBackend{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, &StorageError{Op: "migrate", Path: dbPath, Err: err}
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteBackend) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// LoadTodos implements TodoBackend, returning records in insertion order.
func (s *SQLiteBackend) LoadTodos(ctx context.Context) ([]codec.Record, error) {
	recs := []codec.Record{}
	err := s.db.SelectContext(ctx, &recs, `
		SELECT id, title, details, priority, status, owner, created_at, updated_at
		FROM todos ORDER BY seq`)
	if err != nil {
		return nil, &StorageError{Op: "load todos", Path: s.path, Err: err}
	}
	return recs, nil
}

// SaveTodos implements TodoBackend.
func (s *SQLiteBackend) SaveTodos(ctx context.Context, recs []codec.Record) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM todos"); err != nil {
		return &StorageError{Op: "clear todos", Path: s.path, Err: err}
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO todos (
			seq, id, title, details, priority, status, owner, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &StorageError{Op: "prepare insert", Path: s.path, Err: err}
	}
	defer stmt.Close()

	for i, r := range recs {
		_, err := stmt.ExecContext(ctx,
			i+1, r.ID, r.Title, r.Details, r.Priority, r.Status, r.Owner,
			r.CreatedAt, r.UpdatedAt,
		)
		if err != nil {
			return &StorageError{Op: "insert todo", Path: s.path, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Path: s.path, Err: err}
	}
	return nil
}

// LoadCredentials implements CredentialBackend.
func (s *SQLiteBackend) LoadCredentials(ctx context.Context) ([]model.Credential, error) {
	creds := []model.Credential{}
	err := s.db.SelectContext(ctx, &creds,
		"SELECT username, password_hash FROM users ORDER BY seq")
	if err != nil {
		return nil, &StorageError{Op: "load users", Path: s.path, Err: err}
	}
	return creds, nil
}

// SaveCredentials implements CredentialBackend.
func (s *SQLiteBackend) SaveCredentials(ctx context.Context, creds []model.Credential) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Path: s.path, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return &StorageError{Op: "clear users", Path: s.path, Err: err}
	}
	for i, c := range creds {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (seq, username, password_hash) VALUES (?, ?, ?)",
			i+1, c.Username, c.PasswordHash,
		)
		if err != nil {
			return &StorageError{Op: "insert user", Path: s.path, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Path: s.path, Err: err}
	}
	return nil
}
