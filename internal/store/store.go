package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nhle/todolist/internal/codec"
	"github.com/nhle/todolist/internal/logging"
	"github.com/nhle/todolist/internal/model"
)

// Todo store errors.
var (
	ErrEmptyTitle      = errors.New("todo title must not be empty")
	ErrEmptyOwner      = errors.New("todo owner must not be empty")
	ErrNotFound        = errors.New("todo not found")
	ErrForbidden       = errors.New("todo belongs to another user")
	ErrImmutableField  = errors.New("field cannot be changed")
	ErrInvalidPriority = errors.New("invalid priority")
)

// Credential store errors.
var (
	ErrEmptyField        = errors.New("username and password must not be empty")
	ErrUsernameTooShort  = errors.New("username is too short")
	ErrPasswordTooShort  = errors.New("password is too short")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrWrongPassword     = errors.New("wrong password")
)

// ErrCorrupt is returned by a backend whose data cannot be parsed.
// The stores treat it as an empty collection.
var ErrCorrupt = errors.New("backing data is corrupt")

// StorageError wraps an I/O failure of a backend. It aborts the current
// operation; the in-memory state is left as it was before the call.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TodoBackend persists the full list of todo records. SaveTodos replaces
// everything previously stored.
type TodoBackend interface {
	LoadTodos(ctx context.Context) ([]codec.Record, error)
	SaveTodos(ctx context.Context, recs []codec.Record) error
}

// CredentialBackend persists the full list of credentials. SaveCredentials
// replaces everything previously stored.
type CredentialBackend interface {
	LoadCredentials(ctx context.Context) ([]model.Credential, error)
	SaveCredentials(ctx context.Context, creds []model.Credential) error
}

// Backend stores both entity kinds.
type Backend interface {
	TodoBackend
	CredentialBackend
	Close() error
}

type options struct {
	logger *log.Logger
	now    func() time.Time
	newID  func() string
	policy Policy
}

// Option configures a TodoStore or CredentialStore.
type Option func(*options)

// WithLogger sets the diagnostic logger. The default discards output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the UUID generator used for new todos.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithPolicy sets the credential length policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logging.Discard(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// storageErr wraps err as a *StorageError unless it already is one.
func storageErr(op string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
