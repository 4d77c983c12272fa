package tasklist

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todolist/internal/keys"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/testutil"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// send feeds msg to m and keeps feeding back the messages produced by the
// returned commands until there are none left.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; i < 10 && msg != nil; i++ {
		if _, quit := msg.(tea.QuitMsg); quit {
			break
		}
		next, cmd := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
		if cmd == nil {
			break
		}
		msg = cmd()
	}
	return m
}

func newBrowser(t *testing.T) (Model, *store.TodoStore) {
	t.Helper()
	s, _ := testutil.NewTodoStore(t)
	ctx := context.Background()
	for _, title := range []string{"Buy milk", "Walk dog"} {
		_, err := s.Create(ctx, title, "", model.PriorityMid, "alice")
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "Not mine", "", model.PriorityMid, "bob")
	require.NoError(t, err)

	m := New(s, "alice", keys.DefaultKeyMap(), 80, 24)
	m = send(t, m, m.Init()())
	return m, s
}

func TestBrowserShowsOwnerTodos(t *testing.T) {
	m, _ := newBrowser(t)

	assert.Len(t, m.list.Items(), 2)
	todo, ok := m.SelectedTodo()
	require.True(t, ok)
	assert.Equal(t, "Buy milk", todo.Title)
	assert.Contains(t, m.View(), "2 pending, 0 completed")
}

func TestBrowserCompletesSelected(t *testing.T) {
	m, s := newBrowser(t)

	m = send(t, m, runeKey('x'))

	got, _ := s.Get("todo-1")
	assert.Equal(t, model.StatusCompleted, got.Status)
	msg, err := m.Status()
	assert.NoError(t, err)
	assert.Contains(t, msg, "Buy milk")
}

func TestBrowserDeletesSelected(t *testing.T) {
	m, s := newBrowser(t)

	m = send(t, m, runeKey('d'))
	_, ok := s.Get("todo-1")
	require.True(t, ok, "delete waits for confirmation")
	msg, _ := m.Status()
	assert.Contains(t, msg, "Buy milk")

	m = send(t, m, runeKey('y'))

	_, ok = s.Get("todo-1")
	assert.False(t, ok)
	_, ok = s.Get("todo-3")
	assert.True(t, ok, "other users' todos are untouched")
	assert.Len(t, m.list.Items(), 1)
}

func TestBrowserDeleteCancelled(t *testing.T) {
	m, s := newBrowser(t)

	m = send(t, m, runeKey('d'))
	m = send(t, m, runeKey('n'))

	_, ok := s.Get("todo-1")
	assert.True(t, ok)
	assert.Len(t, m.list.Items(), 2)
	msg, err := m.Status()
	assert.NoError(t, err)
	assert.Equal(t, "delete cancelled", msg)

	// A later "y" on its own deletes nothing.
	m = send(t, m, runeKey('y'))
	_, ok = s.Get("todo-1")
	assert.True(t, ok)
}

func TestBrowserReportsStoreErrors(t *testing.T) {
	m, s := newBrowser(t)

	removed, err := s.Delete(context.Background(), "todo-1")
	require.NoError(t, err)
	require.True(t, removed)

	m = send(t, m, runeKey('x'))
	_, err = m.Status()
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBrowserQuit(t *testing.T) {
	m, _ := newBrowser(t)

	_, cmd := m.Update(runeKey('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEmptyBrowser(t *testing.T) {
	s, _ := testutil.NewTodoStore(t)
	m := New(s, "carol", keys.DefaultKeyMap(), 80, 24)
	m = send(t, m, m.Init()())

	_, ok := m.SelectedTodo()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "No todos yet.")
}
