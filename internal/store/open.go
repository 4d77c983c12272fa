package store

import (
	"fmt"
	"os"

	"github.com/nhle/todolist/internal/model"
)

// Open returns the backend selected by cfg.Storage.Backend.
func Open(cfg *model.AppConfig) (Backend, error) {
	switch cfg.Storage.Backend {
	case model.BackendJSON, "":
		return NewJSONFileBackend(cfg.TodosPath(), cfg.UsersPath()), nil
	case model.BackendSQLite:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
			return nil, &StorageError{Op: "create data dir", Path: cfg.Storage.DataDir, Err: err}
		}
		return NewSQLiteBackend(cfg.SQLitePath())
	case model.BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
