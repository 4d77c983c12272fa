// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nhle/todolist/internal/store"
)

// SQLiteBackend creates an in-memory SQLiteBackend with all migrations
// applied. It is closed when the test completes.
func SQLiteBackend(t *testing.T) *store.SQLiteBackend {
	t.Helper()

	b, err := store.NewSQLiteBackend(":memory:")
	if err != nil {
		t.Fatalf("creating test backend: %v", err)
	}

	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("closing test backend: %v", err)
		}
	})

	return b
}

// NewTodoStore returns a TodoStore over a fresh MemoryBackend, driven by a
// stepping clock and sequential ids unless opts override them.
func NewTodoStore(t *testing.T, opts ...store.Option) (*store.TodoStore, *store.MemoryBackend) {
	t.Helper()

	backend := store.NewMemoryBackend()
	defaults := []store.Option{
		store.WithClock(NewClock(Epoch, time.Second).Now),
		store.WithIDGenerator(SequentialIDs("todo")),
	}
	s, err := store.NewTodoStore(context.Background(), backend, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("creating todo store: %v", err)
	}
	return s, backend
}

// NewCredentialStore returns a CredentialStore with the default hasher over
// a fresh MemoryBackend.
func NewCredentialStore(t *testing.T, opts ...store.Option) (*store.CredentialStore, *store.MemoryBackend) {
	t.Helper()

	backend := store.NewMemoryBackend()
	s, err := store.NewCredentialStore(context.Background(), backend, nil, opts...)
	if err != nil {
		t.Fatalf("creating credential store: %v", err)
	}
	return s, backend
}

// Epoch is the first instant reported by clocks built in tests.
var Epoch = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// Clock is a fake clock that advances by Step on every call to Now.
type Clock struct {
	mu   sync.Mutex
	next time.Time
	Step time.Duration
}

// NewClock returns a clock whose first reading is start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{next: start, Step: step}
}

// Now returns the current reading and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.Step)
	return t
}

// SequentialIDs returns a generator of "<prefix>-1", "<prefix>-2", ...
func SequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
