package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/testutil"
)

func TestRegisterStoresHashOnly(t *testing.T) {
	s, backend := testutil.NewCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "  alice ", " secret123 "))
	assert.True(t, s.Exists("alice"))
	assert.False(t, s.Exists("Alice"))

	creds, err := backend.LoadCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 1)

	want, _ := credential.SHA256Hasher{}.Hash("secret123")
	assert.Equal(t, model.Credential{Username: "alice", PasswordHash: want}, creds[0])
	assert.Len(t, creds[0].PasswordHash, 64)
	assert.NotContains(t, creds[0].PasswordHash, "secret123")
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		policy   store.Policy
		username string
		password string
		want     error
	}{
		{"blank username", store.Policy{}, "  ", "secret123", store.ErrEmptyField},
		{"blank password", store.Policy{}, "alice", "\t", store.ErrEmptyField},
		{"short username", store.StrictPolicy, "al", "secret123", store.ErrUsernameTooShort},
		{"short password", store.StrictPolicy, "alice", "12345", store.ErrPasswordTooShort},
		{"multibyte counts runes", store.StrictPolicy, "éé", "secret123", store.ErrUsernameTooShort},
		{"policy off by default", store.Policy{}, "a", "b", nil},
		{"strict minimums pass", store.StrictPolicy, "bob", "123456", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := testutil.NewCredentialStore(t, store.WithPolicy(tt.policy))
			err := s.Register(context.Background(), tt.username, tt.password)
			if tt.want == nil {
				require.NoError(t, err)
				assert.Equal(t, 1, backend.Saves)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, backend.Saves)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s, backend := testutil.NewCredentialStore(t)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, "alice", "secret123"))
	err := s.Register(ctx, "alice", "other-password")
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)
	assert.Equal(t, 1, backend.Saves)
	require.NoError(t, s.Authenticate(ctx, "alice", "secret123"))
}

func TestAuthenticate(t *testing.T) {
	s, _ := testutil.NewCredentialStore(t)
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, "alice", "secret123"))

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"ok", "alice", "secret123", nil},
		{"ok with padding", " alice ", "secret123 ", nil},
		{"wrong password", "alice", "wrong", store.ErrWrongPassword},
		{"unknown user", "bob", "secret123", store.ErrUserNotFound},
		{"blank", "", "", store.ErrEmptyField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Authenticate(ctx, tt.username, tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterFailedSave(t *testing.T) {
	s, backend := testutil.NewCredentialStore(t)
	backend.FailSaves = errors.New("read-only filesystem")

	err := s.Register(context.Background(), "alice", "secret123")
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	assert.False(t, s.Exists("alice"))
	assert.Empty(t, s.Usernames())
}

func TestCredentialStoreWithBcrypt(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	hasher := credential.AutoHasher{Primary: credential.BcryptHasher{Cost: bcrypt.MinCost}}

	s, err := store.NewCredentialStore(ctx, backend, hasher)
	require.NoError(t, err)
	require.NoError(t, s.Register(ctx, "alice", "secret123"))

	creds, _ := backend.LoadCredentials(ctx)
	require.Len(t, creds, 1)
	assert.True(t, credential.IsBcrypt(creds[0].PasswordHash))

	legacy, _ := credential.SHA256Hasher{}.Hash("hunter22")
	require.NoError(t, backend.SaveCredentials(ctx, append(creds, model.Credential{Username: "bob", PasswordHash: legacy})))

	reopened, err := store.NewCredentialStore(ctx, backend, hasher)
	require.NoError(t, err)
	assert.NoError(t, reopened.Authenticate(ctx, "alice", "secret123"))
	assert.NoError(t, reopened.Authenticate(ctx, "bob", "hunter22"))
	assert.ErrorIs(t, reopened.Authenticate(ctx, "bob", "secret123"), store.ErrWrongPassword)
}

func TestCredentialStoreOnJSONFiles(t *testing.T) {
	dir := t.TempDir()
	users := filepath.Join(dir, "users.json")
	backend := store.NewJSONFileBackend(filepath.Join(dir, "todos.json"), users)
	ctx := context.Background()

	t.Run("missing file is empty", func(t *testing.T) {
		s, err := store.NewCredentialStore(ctx, backend, nil)
		require.NoError(t, err)
		assert.Empty(t, s.Usernames())
	})

	t.Run("corrupt file opens empty", func(t *testing.T) {
		require.NoError(t, os.WriteFile(users, []byte("[{\"username\": "), 0o600))
		s, err := store.NewCredentialStore(ctx, backend, nil)
		require.NoError(t, err)
		assert.Empty(t, s.Usernames())
	})

	t.Run("legacy password key", func(t *testing.T) {
		hash, _ := credential.SHA256Hasher{}.Hash("secret123")
		legacy := `[{"username": "alice", "password": "` + hash + `"}]`
		require.NoError(t, os.WriteFile(users, []byte(legacy), 0o600))

		s, err := store.NewCredentialStore(ctx, backend, nil)
		require.NoError(t, err)
		require.NoError(t, s.Authenticate(ctx, "alice", "secret123"))
		require.NoError(t, s.Register(ctx, "bob", "hunter22"))

		data, err := os.ReadFile(users)
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"password":`)
		assert.Contains(t, string(data), `"password_hash": "`+hash+`"`)

		reopened, err := store.NewCredentialStore(ctx, backend, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, reopened.Usernames())
	})
}
