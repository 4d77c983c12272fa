package store

import (
	"context"
	"sync"

	"github.com/nhle/todolist/internal/codec"
	"github.com/nhle/todolist/internal/model"
)

// MemoryBackend keeps records in process memory. Saves copy their input so
// later mutation by the caller does not leak into the backend.
type MemoryBackend struct {
	mu    sync.Mutex
	todos []codec.Record
	creds []model.Credential

	// Saves counts successful SaveTodos and SaveCredentials calls.
	Saves int

	// FailSaves makes every save return this error when non-nil.
	FailSaves error
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// LoadTodos implements TodoBackend.
func (m *MemoryBackend) LoadTodos(ctx context.Context) ([]codec.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]codec.Record{}, m.todos...), nil
}

// SaveTodos implements TodoBackend.
func (m *MemoryBackend) SaveTodos(ctx context.Context, recs []codec.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.todos = append([]codec.Record{}, recs...)
	m.Saves++
	return nil
}

// LoadCredentials implements CredentialBackend.
func (m *MemoryBackend) LoadCredentials(ctx context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Credential{}, m.creds...), nil
}

// SaveCredentials implements CredentialBackend.
func (m *MemoryBackend) SaveCredentials(ctx context.Context, creds []model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.creds = append([]model.Credential{}, creds...)
	m.Saves++
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
