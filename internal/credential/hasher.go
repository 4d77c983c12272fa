// Package credential hashes passwords and remembers the logged-in user.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/todolist/internal/model"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password does not match")

// Hasher turns a password into a storable one-way hash and checks it later.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// SHA256Hasher stores the lowercase hex SHA-256 digest of the password.
// It is unsalted, which keeps users.json compatible with existing files.
type SHA256Hasher struct{}

// Hash implements Hasher.
func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

// Verify implements Hasher using a constant-time comparison.
func (h SHA256Hasher) Verify(hash, password string) error {
	want, _ := h.Hash(password)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) != 1 {
		return ErrMismatch
	}
	return nil
}

// BcryptHasher stores salted bcrypt hashes.
type BcryptHasher struct {
	Cost int
}

// Hash implements Hasher.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

// Verify implements Hasher.
func (BcryptHasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("bcrypt: %w", err)
	}
	return nil
}

// IsBcrypt reports whether hash looks like a bcrypt hash.
func IsBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

// AutoHasher hashes new passwords with Primary and verifies each stored
// hash with the algorithm its format indicates, so a file holding both
// SHA-256 and bcrypt hashes keeps working after the setting changes.
type AutoHasher struct {
	Primary Hasher
}

// Hash implements Hasher.
func (a AutoHasher) Hash(password string) (string, error) {
	return a.primary().Hash(password)
}

// Verify implements Hasher.
func (a AutoHasher) Verify(hash, password string) error {
	if IsBcrypt(hash) {
		return BcryptHasher{}.Verify(hash, password)
	}
	return SHA256Hasher{}.Verify(hash, password)
}

func (a AutoHasher) primary() Hasher {
	if a.Primary == nil {
		return SHA256Hasher{}
	}
	return a.Primary
}

// NewHasher builds the hasher selected in cfg.
func NewHasher(cfg model.AuthConfig) (Hasher, error) {
	switch cfg.Hasher {
	case "", model.HasherSHA256:
		return AutoHasher{Primary: SHA256Hasher{}}, nil
	case model.HasherBcrypt:
		return AutoHasher{Primary: BcryptHasher{Cost: cfg.BcryptCost}}, nil
	default:
		return nil, fmt.Errorf("unknown hasher %q", cfg.Hasher)
	}
}
