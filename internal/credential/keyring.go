package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
)

const (
	serviceName = "todolist"
	sessionKey  = "session-user"
)

// ErrNoSession is returned when nobody is logged in.
var ErrNoSession = errors.New("not logged in")

// OpenKeyring returns a keyring for the todolist service. The encrypted
// file backend under dataDir is the fallback when no OS keychain exists.
func OpenKeyring(dataDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dataDir, "keyring"),
		FilePasswordFunc:         keyring.FixedStringPrompt("todolist-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Session remembers which user is logged in between invocations.
type Session struct {
	ring keyring.Keyring
}

// NewSession wraps ring. Tests pass keyring.NewArrayKeyring(nil).
func NewSession(ring keyring.Keyring) *Session {
	return &Session{ring: ring}
}

// Current returns the logged-in username, or ErrNoSession.
func (s *Session) Current() (string, error) {
	if s == nil || s.ring == nil {
		return "", ErrNoSession
	}
	item, err := s.ring.Get(sessionKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("getting session: %w", err)
	}
	user := strings.TrimSpace(string(item.Data))
	if user == "" {
		return "", ErrNoSession
	}
	return user, nil
}

// Save records username as the logged-in user.
func (s *Session) Save(username string) error {
	if s == nil || s.ring == nil {
		return nil
	}
	err := s.ring.Set(keyring.Item{
		Key:         sessionKey,
		Data:        []byte(username),
		Label:       "todolist session",
		Description: "user logged in to todolist",
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear logs out. Clearing an empty session is not an error.
func (s *Session) Clear() error {
	if s == nil || s.ring == nil {
		return nil
	}
	if err := s.ring.Remove(sessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
