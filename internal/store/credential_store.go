package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/model"
)

// Policy sets minimum credential lengths, counted in characters. A zero
// minimum disables that check.
type Policy struct {
	MinUsernameLen int
	MinPasswordLen int
}

// StrictPolicy requires usernames of 3 and passwords of 6 characters.
var StrictPolicy = Policy{MinUsernameLen: 3, MinPasswordLen: 6}

// PolicyFromConfig builds a Policy from the auth settings.
func PolicyFromConfig(cfg model.AuthConfig) Policy {
	return Policy{MinUsernameLen: cfg.MinUsernameLen, MinPasswordLen: cfg.MinPasswordLen}
}

// CredentialStore registers users and checks their passwords. Only hashes
// are kept, in memory and in the backend.
type CredentialStore struct {
	mu      sync.RWMutex
	backend CredentialBackend
	hasher  credential.Hasher
	opts    options

	creds []model.Credential
	index map[string]int
}

// NewCredentialStore loads every credential from backend. A nil hasher
// means SHA-256 for new passwords. Corrupt backing data is logged and
// treated as an empty store.
func NewCredentialStore(ctx context.Context, backend CredentialBackend, hasher credential.Hasher, opts ...Option) (*CredentialStore, error) {
	if hasher == nil {
		hasher = credential.AutoHasher{Primary: credential.SHA256Hasher{}}
	}
	s := &CredentialStore{
		backend: backend,
		hasher:  hasher,
		opts:    buildOptions(opts),
		index:   make(map[string]int),
	}

	creds, err := backend.LoadCredentials(ctx)
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		s.opts.logger.Warn("credential data is corrupt, starting empty", "err", err)
		creds = nil
	}
	for i, c := range creds {
		if c.Username == "" || c.PasswordHash == "" {
			s.opts.logger.Warn("skipping credential record", "index", i)
			continue
		}
		if _, dup := s.index[c.Username]; dup {
			s.opts.logger.Warn("skipping duplicate username", "index", i, "username", c.Username)
			continue
		}
		s.index[c.Username] = len(s.creds)
		s.creds = append(s.creds, c)
	}
	s.opts.logger.Debug("loaded credentials", "count", len(s.creds))
	return s, nil
}

// Exists reports whether username is registered.
func (s *CredentialStore) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[strings.TrimSpace(username)]
	return ok
}

// Register stores a new user with a hash of password.
func (s *CredentialStore) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return ErrEmptyField
	}
	p := s.opts.policy
	if p.MinUsernameLen > 0 && utf8.RuneCountInString(username) < p.MinUsernameLen {
		return fmt.Errorf("%w: need at least %d characters", ErrUsernameTooShort, p.MinUsernameLen)
	}
	if p.MinPasswordLen > 0 && utf8.RuneCountInString(password) < p.MinPasswordLen {
		return fmt.Errorf("%w: need at least %d characters", ErrPasswordTooShort, p.MinPasswordLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[username]; ok {
		return fmt.Errorf("registering %q: %w", username, ErrDuplicateUsername)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	next := make([]model.Credential, len(s.creds), len(s.creds)+1)
	copy(next, s.creds)
	next = append(next, model.Credential{Username: username, PasswordHash: hash})
	if err := s.backend.SaveCredentials(ctx, next); err != nil {
		return fmt.Errorf("registering %q: %w", username, storageErr("save credentials", err))
	}

	s.index[username] = len(s.creds)
	s.creds = next
	s.opts.logger.Debug("registered user", "username", username)
	return nil
}

// Authenticate checks password against the stored hash for username.
func (s *CredentialStore) Authenticate(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return ErrEmptyField
	}

	s.mu.RLock()
	i, ok := s.index[username]
	var hash string
	if ok {
		hash = s.creds[i].PasswordHash
	}
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%q: %w", username, ErrUserNotFound)
	}
	if err := s.hasher.Verify(hash, password); err != nil {
		if errors.Is(err, credential.ErrMismatch) {
			return ErrWrongPassword
		}
		return fmt.Errorf("verifying password: %w", err)
	}
	return nil
}

// Usernames returns the registered usernames in registration order.
func (s *CredentialStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, c.Username)
	}
	return out
}
