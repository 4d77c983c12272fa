package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/testutil"
	"github.com/nhle/todolist/internal/ui/tasklist"
)

type harness struct {
	app     *App
	todos   *store.TodoStore
	users   *store.CredentialStore
	backend *store.MemoryBackend
	session *credential.Session
	out     *bytes.Buffer
	errOut  *bytes.Buffer
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	todos, backend := testutil.NewTodoStore(t)
	users, _ := testutil.NewCredentialStore(t)
	h := &harness{
		todos:   todos,
		users:   users,
		backend: backend,
		session: credential.NewSession(keyring.NewArrayKeyring(nil)),
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
	}
	base := []Option{
		WithSession(h.session),
		WithIO(strings.NewReader(""), h.out, h.errOut),
	}
	h.app = New(todos, users, append(base, opts...)...)
	return h
}

// run executes one command with stdin as its input.
func (h *harness) run(stdin string, args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	h.app.in = strings.NewReader(stdin)
	return h.app.Run(context.Background(), args)
}

func (h *harness) login(t *testing.T, user, password string) {
	t.Helper()
	require.Equal(t, ExitOK, h.run(password+"\n", "login", user, "--password-stdin"), h.errOut.String())
}

func TestSessionScenario(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))
	assert.Contains(t, h.out.String(), "Registered alice")

	assert.Equal(t, ExitUsage, h.run("wrong\n", "login", "alice", "--password-stdin"))
	assert.Contains(t, h.errOut.String(), store.ErrWrongPassword.Error())

	h.login(t, "alice", "secret123")
	require.Equal(t, ExitOK, h.run("", "whoami"))
	assert.Equal(t, "alice\n", h.out.String())

	require.Equal(t, ExitOK, h.run("", "add", "Buy", "milk", "--details", "2L", "--priority", "high"))
	items := h.todos.List("alice")
	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, "Buy milk", item.Title)
	assert.Equal(t, model.PriorityHigh, item.Priority)
	assert.Equal(t, model.StatusPending, item.Status)

	require.Equal(t, ExitOK, h.run("hunter22\n", "register", "bob", "--password-stdin"))
	h.login(t, "bob", "hunter22")
	assert.Equal(t, ExitUsage, h.run("", "done", item.ID))
	assert.Contains(t, h.errOut.String(), store.ErrNotFound.Error())
	got, _ := h.todos.Get(item.ID)
	assert.Equal(t, model.StatusPending, got.Status)

	h.login(t, "alice", "secret123")
	require.Equal(t, ExitOK, h.run("", "done", item.ID))
	got, _ = h.todos.Get(item.ID)
	assert.Equal(t, model.StatusCompleted, got.Status)

	require.Equal(t, ExitOK, h.run("", "ls"))
	assert.Contains(t, h.out.String(), "Buy milk")
	assert.Contains(t, h.out.String(), "COMPLETED")
	assert.Contains(t, h.out.String(), "0 pending, 1 completed")

	require.Equal(t, ExitOK, h.run("", "rm", item.ID))
	_, ok := h.todos.Get(item.ID)
	assert.False(t, ok)

	require.Equal(t, ExitOK, h.run("", "logout"))
	assert.Equal(t, ExitUsage, h.run("", "ls"))
	assert.Contains(t, h.errOut.String(), "not logged in")
}

func TestUserFlagAuthenticates(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))

	require.Equal(t, ExitOK, h.run("secret123\n", "add", "Walk dog", "--user", "alice", "--password-stdin"))
	assert.Len(t, h.todos.List("alice"), 1)

	assert.Equal(t, ExitUsage, h.run("nope\n", "add", "Walk cat", "-u", "alice", "--password-stdin"))
	assert.Len(t, h.todos.List("alice"), 1)

	assert.Equal(t, ExitUsage, h.run("", "add", "Walk cat", "-u", "alice"),
		"without a prompter the password must come from stdin")
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))
	h.login(t, "alice", "secret123")

	tests := []struct {
		name string
		args []string
		want int
		msg  string
	}{
		{"no command", nil, ExitUsage, ""},
		{"unknown command", []string{"frobnicate"}, ExitUsage, "unknown command"},
		{"bad flag", []string{"ls", "--colour"}, ExitUsage, "unknown flag"},
		{"missing title", []string{"add"}, ExitUsage, "needs a title"},
		{"bad priority", []string{"add", "x", "--priority", "urgent"}, ExitUsage, "invalid enum value"},
		{"unknown id", []string{"done", "nope"}, ExitUsage, "todo not found"},
		{"duplicate user", []string{"register", "alice", "--password-stdin"}, ExitUsage, "already exists"},
		{"edit without changes", []string{"edit", "todo"}, ExitUsage, ""},
		{"help", []string{"help"}, ExitOK, ""},
		{"flag help", []string{"ls", "--help"}, ExitOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := h.run("secret123\n", tt.args...)
			assert.Equal(t, tt.want, code, h.errOut.String())
			if tt.msg != "" {
				assert.Contains(t, h.errOut.String(), tt.msg)
			}
		})
	}
}

func TestStorageFailureExitsWithError(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))
	h.login(t, "alice", "secret123")

	h.backend.FailSaves = errors.New("disk full")
	assert.Equal(t, ExitError, h.run("", "add", "Buy milk"))
	assert.Contains(t, h.errOut.String(), "disk full")
	assert.Empty(t, h.todos.List("alice"))
}

func TestShowEditAndPrefixes(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))
	h.login(t, "alice", "secret123")
	require.Equal(t, ExitOK, h.run("", "add", "Buy milk", "-d", "2L"))
	require.Equal(t, ExitOK, h.run("", "add", "Walk dog"))

	require.Equal(t, ExitOK, h.run("", "show", "todo-1"))
	assert.Contains(t, h.out.String(), "Buy milk")
	assert.Contains(t, h.out.String(), "2L")
	assert.Contains(t, h.out.String(), "alice")

	assert.Equal(t, ExitUsage, h.run("", "show", "todo-"), "ambiguous prefix")

	require.Equal(t, ExitOK, h.run("", "edit", "todo-2", "--title", "Walk the dog", "-p", "low"))
	got, _ := h.todos.Get("todo-2")
	assert.Equal(t, "Walk the dog", got.Title)
	assert.Equal(t, model.PriorityLow, got.Priority)
	assert.Equal(t, "", got.Details)

	require.Equal(t, ExitOK, h.run("hunter22\n", "register", "bob", "--password-stdin"))
	h.login(t, "bob", "hunter22")
	for _, args := range [][]string{
		{"show", "todo-1"},
		{"edit", "todo-1", "--title", "mine now"},
		{"done", "todo-1"},
		{"rm", "todo-1"},
	} {
		assert.Equal(t, ExitUsage, h.run("", args...), args)
		assert.Contains(t, h.errOut.String(), store.ErrNotFound.Error(), args)
		assert.NotContains(t, h.errOut.String(), store.ErrForbidden.Error(), args)
	}
	got, ok := h.todos.Get("todo-1")
	require.True(t, ok)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestPaddedUsernameFlag(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))

	require.Equal(t, ExitOK, h.run("secret123\n", "add", "Buy milk", "--user", " alice", "--password-stdin"), h.errOut.String())
	items := h.todos.List("alice")
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Owner)

	require.Equal(t, ExitOK, h.run("secret123\n", "ls", "--user", " alice", "--password-stdin"))
	assert.Contains(t, h.out.String(), "1 pending, 0 completed")
	assert.Contains(t, h.out.String(), "Buy milk")

	require.Equal(t, ExitOK, h.run("secret123\n", "done", "--user", "alice ", "--password-stdin", "todo-1"), h.errOut.String())
	got, _ := h.todos.Get("todo-1")
	assert.Equal(t, model.StatusCompleted, got.Status)

	require.Equal(t, ExitOK, h.run("secret123\n", "login", " alice", "--password-stdin"))
	current, err := h.session.Current()
	require.NoError(t, err)
	assert.Equal(t, "alice", current)
}

func TestListGroupedAndTUI(t *testing.T) {
	var shown tea.Model
	h := newHarness(t, WithTUIRunner(func(m tea.Model) error {
		shown = m
		return nil
	}))
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))
	h.login(t, "alice", "secret123")

	require.Equal(t, ExitOK, h.run("", "ls"))
	assert.Contains(t, h.out.String(), "No todos yet.")

	require.Equal(t, ExitOK, h.run("", "add", "one"))
	require.Equal(t, ExitOK, h.run("", "add", "two"))
	require.Equal(t, ExitOK, h.run("", "done", "todo-2"))

	require.Equal(t, ExitOK, h.run("", "ls", "--group"))
	out := h.out.String()
	assert.Contains(t, out, "PENDING (1)")
	assert.Contains(t, out, "COMPLETED (1)")
	assert.Less(t, strings.Index(out, "PENDING (1)"), strings.Index(out, "COMPLETED (1)"))

	require.Equal(t, ExitOK, h.run("", "ls", "--tui"))
	assert.IsType(t, tasklist.Model{}, shown)
}

func TestCheck(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.Storage.DataDir = t.TempDir()
	h := newHarness(t, WithConfig(cfg))

	require.Equal(t, ExitOK, h.run("", "check"))
	assert.Contains(t, h.out.String(), "missing, treated as empty")

	bad := `[{"id": "1", "title": "x", "owner": "alice", "priority": "URGENT"}]`
	require.NoError(t, os.WriteFile(cfg.TodosPath(), []byte(bad), 0o600))
	assert.Equal(t, ExitError, h.run("", "check"))
	assert.Contains(t, h.errOut.String(), "[0].priority")

	cfg.Storage.Backend = model.BackendSQLite
	assert.Equal(t, ExitUsage, h.run("", "check"))
	assert.NoFileExists(t, filepath.Join(cfg.Storage.DataDir, cfg.Storage.SQLiteFile))
}

func TestRememberSessionOff(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.Auth.RememberSession = false
	h := newHarness(t, WithConfig(cfg))
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))

	h.login(t, "alice", "secret123")
	_, err := h.session.Current()
	assert.ErrorIs(t, err, credential.ErrNoSession)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitUsage, exitCode(usagef("bad")))
	assert.Equal(t, ExitUsage, exitCode(errNotLoggedIn))
	assert.Equal(t, ExitUsage, exitCode(errors.Join(errors.New("ctx"), store.ErrForbidden)))
	assert.Equal(t, ExitError, exitCode(&store.StorageError{Op: "write", Err: errors.New("disk full")}))
	assert.Equal(t, ExitError, exitCode(errCheckFailed))
}
