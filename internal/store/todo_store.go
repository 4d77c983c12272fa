package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nhle/todolist/internal/codec"
	"github.com/nhle/todolist/internal/model"
)

// TodoStore owns the todo collection of one process. Items live in an
// ordered in-memory index that is loaded once and flushed to the backend
// after every mutation. A failed flush leaves the index as it was.
type TodoStore struct {
	mu      sync.RWMutex
	backend TodoBackend
	opts    options

	items []model.TodoItem
	index map[string]int
}

// NewTodoStore loads every todo from backend. Corrupt backing data and
// undecodable records are logged and skipped; other load failures are
// returned.
func NewTodoStore(ctx context.Context, backend TodoBackend, opts ...Option) (*TodoStore, error) {
	s := &TodoStore{
		backend: backend,
		opts:    buildOptions(opts),
		index:   make(map[string]int),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TodoStore) load(ctx context.Context) error {
	logger := s.opts.logger
	recs, err := s.backend.LoadTodos(ctx)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			logger.Warn("todo data is corrupt, starting empty", "err", err)
			return nil
		}
		return fmt.Errorf("loading todos: %w", err)
	}

	items, errs := codec.DecodeAll(recs)
	for _, err := range errs {
		logger.Warn("skipping todo record", "err", err)
	}
	for _, it := range items {
		if _, dup := s.index[it.ID]; dup {
			logger.Warn("skipping duplicate todo id", "id", it.ID)
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
	logger.Debug("loaded todos", "count", len(s.items))
	return nil
}

// Create adds a new pending todo owned by owner and persists it.
func (s *TodoStore) Create(ctx context.Context, title, details string, priority model.Priority, owner string) (model.TodoItem, error) {
	title = strings.TrimSpace(title)
	owner = strings.TrimSpace(owner)
	if title == "" {
		return model.TodoItem{}, ErrEmptyTitle
	}
	if owner == "" {
		return model.TodoItem{}, ErrEmptyOwner
	}
	if priority == 0 {
		priority = model.PriorityMid
	}
	if !priority.Valid() {
		return model.TodoItem{}, fmt.Errorf("%w: %s", ErrInvalidPriority, priority)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now().UTC()
	item := model.TodoItem{
		ID:        s.opts.newID(),
		Title:     title,
		Details:   details,
		Priority:  priority,
		Status:    model.StatusPending,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, dup := s.index[item.ID]; dup {
		return model.TodoItem{}, fmt.Errorf("creating todo: id %s already in use", item.ID)
	}

	next := make([]model.TodoItem, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, item)
	if err := s.commit(ctx, "creating todo", next); err != nil {
		return model.TodoItem{}, err
	}
	s.opts.logger.Debug("created todo", "id", item.ID, "owner", owner)
	return item, nil
}

// List returns the todos in insertion order. A non-empty owner restricts
// the result to that owner's items. Owners are compared after trimming,
// the same way Create stores them.
func (s *TodoStore) List(owner string) []model.TodoItem {
	all := owner == ""
	owner = strings.TrimSpace(owner)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TodoItem, 0, len(s.items))
	for _, it := range s.items {
		if all || it.Owner == owner {
			out = append(out, it)
		}
	}
	return out
}

// Get returns the todo with the given id.
func (s *TodoStore) Get(id string) (model.TodoItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return model.TodoItem{}, false
	}
	return s.items[i], true
}

// Counts returns how many of owner's todos are pending and completed.
func (s *TodoStore) Counts(owner string) (pending, completed int) {
	for _, it := range s.List(owner) {
		if it.IsCompleted() {
			completed++
		} else {
			pending++
		}
	}
	return pending, completed
}

// Update replaces the stored todo that has item's id. It does not check who
// is asking; callers that act for a user should use Edit. Owner and status
// cannot change here and CreatedAt is kept from the stored copy.
func (s *TodoStore) Update(ctx context.Context, item model.TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[item.ID]
	if !ok {
		return fmt.Errorf("updating todo %s: %w", item.ID, ErrNotFound)
	}
	cur := s.items[i]
	if item.Owner != cur.Owner {
		return fmt.Errorf("updating todo %s: owner: %w", item.ID, ErrImmutableField)
	}
	if item.Status != cur.Status {
		return fmt.Errorf("updating todo %s: status: %w", item.ID, ErrImmutableField)
	}

	item.CreatedAt = cur.CreatedAt
	return s.replace(ctx, "updating todo", i, item)
}

// Edit applies req to the todo with id on behalf of owner.
func (s *TodoStore) Edit(ctx context.Context, id, owner string, req model.UpdateRequest) (model.TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.authorize(id, owner)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("editing todo %s: %w", id, err)
	}
	if req.IsEmpty() {
		return s.items[i], nil
	}

	item := req.Apply(s.items[i])
	if err := s.replace(ctx, "editing todo", i, item); err != nil {
		return model.TodoItem{}, err
	}
	return s.items[i], nil
}

// MarkCompleted moves the todo to COMPLETED. Only the owner may do this.
// Completing an already completed todo succeeds and refreshes UpdatedAt.
func (s *TodoStore) MarkCompleted(ctx context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.authorize(id, owner)
	if err != nil {
		return fmt.Errorf("completing todo %s: %w", id, err)
	}
	item := s.items[i]
	item.Status = model.StatusCompleted
	return s.replace(ctx, "completing todo", i, item)
}

// Delete removes the todo with id and reports whether it existed. It does
// not check ownership; callers that act for a user should use Remove.
func (s *TodoStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false, nil
	}
	if err := s.removeAt(ctx, i); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the todo with id on behalf of owner.
func (s *TodoStore) Remove(ctx context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.authorize(id, owner)
	if err != nil {
		return fmt.Errorf("deleting todo %s: %w", id, err)
	}
	return s.removeAt(ctx, i)
}

// authorize returns the index of id if owner owns it. Callers hold mu.
func (s *TodoStore) authorize(id, owner string) (int, error) {
	i, ok := s.index[id]
	if !ok {
		return 0, ErrNotFound
	}
	if !s.items[i].OwnedBy(strings.TrimSpace(owner)) {
		return 0, ErrForbidden
	}
	return i, nil
}

// replace validates item, stamps UpdatedAt and writes it at position i.
func (s *TodoStore) replace(ctx context.Context, op string, i int, item model.TodoItem) error {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return ErrEmptyTitle
	}
	if !item.Priority.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidPriority, item.Priority)
	}
	item.UpdatedAt = s.opts.now().UTC()

	next := make([]model.TodoItem, len(s.items))
	copy(next, s.items)
	next[i] = item
	return s.commit(ctx, op, next)
}

func (s *TodoStore) removeAt(ctx context.Context, i int) error {
	next := make([]model.TodoItem, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	return s.commit(ctx, "deleting todo", next)
}

// commit persists next and, only on success, makes it the live index.
func (s *TodoStore) commit(ctx context.Context, op string, next []model.TodoItem) error {
	if err := s.backend.SaveTodos(ctx, codec.EncodeAll(next)); err != nil {
		return fmt.Errorf("%s: %w", op, storageErr("save todos", err))
	}
	index := make(map[string]int, len(next))
	for i, it := range next {
		index[it.ID] = i
	}
	s.items = next
	s.index = index
	return nil
}
