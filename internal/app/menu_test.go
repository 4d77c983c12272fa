package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/ui/prompt"
)

// scriptedPrompter answers prompts from queues. An exhausted queue
// behaves like the user pressing esc.
type scriptedPrompter struct {
	selects   []string
	creds     [][2]string
	passwords []string
	todos     []prompt.TodoInput
	confirms  []bool

	selectTitles []string
	todoInitial  []prompt.TodoInput
}

func (p *scriptedPrompter) Select(title string, choices []prompt.Choice) (string, error) {
	p.selectTitles = append(p.selectTitles, title)
	if len(p.selects) == 0 {
		return "", prompt.ErrAborted
	}
	v := p.selects[0]
	p.selects = p.selects[1:]
	return v, nil
}

func (p *scriptedPrompter) Credentials(string) (string, string, error) {
	if len(p.creds) == 0 {
		return "", "", prompt.ErrAborted
	}
	c := p.creds[0]
	p.creds = p.creds[1:]
	return c[0], c[1], nil
}

func (p *scriptedPrompter) Password(string) (string, error) {
	if len(p.passwords) == 0 {
		return "", prompt.ErrAborted
	}
	pw := p.passwords[0]
	p.passwords = p.passwords[1:]
	return pw, nil
}

func (p *scriptedPrompter) Todo(_ string, initial prompt.TodoInput) (prompt.TodoInput, error) {
	p.todoInitial = append(p.todoInitial, initial)
	if len(p.todos) == 0 {
		return prompt.TodoInput{}, prompt.ErrAborted
	}
	in := p.todos[0]
	p.todos = p.todos[1:]
	return in, nil
}

func (p *scriptedPrompter) Confirm(string) (bool, error) {
	if len(p.confirms) == 0 {
		return false, prompt.ErrAborted
	}
	ok := p.confirms[0]
	p.confirms = p.confirms[1:]
	return ok, nil
}

func TestMenuSession(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{
			choiceSignup,
			choiceLogin,
			choiceCreate,
			choiceCreate,
			choiceList,
			choiceComplete, "todo-1",
			choiceEdit, "todo-2",
			choiceDelete, "todo-2",
			choiceView, "todo-1",
			choiceLogout,
			choiceExit,
		},
		creds: [][2]string{{"alice", "secret123"}, {"alice", "secret123"}},
		todos: []prompt.TodoInput{
			{Title: "Buy milk", Details: "2L", Priority: model.PriorityHigh},
			{Title: "Walk dog", Priority: model.PriorityMid},
			{Title: "Walk the dog", Details: "twice", Priority: model.PriorityLow},
		},
		confirms: []bool{true},
	}
	h := newHarness(t, WithPrompter(p))

	require.Equal(t, ExitOK, h.run("", "menu"), h.errOut.String())

	assert.True(t, h.users.Exists("alice"))
	items := h.todos.List("alice")
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Title)
	assert.Equal(t, model.StatusCompleted, items[0].Status)

	out := h.out.String()
	assert.Contains(t, out, "Registered alice")
	assert.Contains(t, out, "Welcome, alice")
	assert.Contains(t, out, "Walk the dog")
	assert.Contains(t, out, "Deleted")
	assert.Contains(t, out, "2L")
	assert.Contains(t, out, "Logged out")
	assert.Empty(t, h.errOut.String())

	// The edit form starts from the stored values.
	require.Len(t, p.todoInitial, 3)
	assert.Equal(t, prompt.TodoInput{Title: "Walk dog", Priority: model.PriorityMid}, p.todoInitial[2])
	assert.Contains(t, p.selectTitles, "alice: 1 pending, 1 completed")

	_, err := h.session.Current()
	assert.ErrorIs(t, err, credential.ErrNoSession)
}

func TestMenuReportsErrorsAndContinues(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{
			choiceLogin,
			choiceSignup,
			choiceSignup,
			choiceLogin,
			choiceComplete,
			choiceCreate,
		},
		creds: [][2]string{
			{"ghost", "whatever"},
			{"alice", "secret123"},
			{"alice", "again"},
			{"alice", "secret123"},
		},
		todos: []prompt.TodoInput{{Title: "  ", Priority: model.PriorityMid}},
	}
	h := newHarness(t, WithPrompter(p))

	require.Equal(t, ExitOK, h.run("", "menu"))

	errOut := h.errOut.String()
	assert.Contains(t, errOut, "user not found")
	assert.Contains(t, errOut, "already exists")
	assert.Contains(t, errOut, "title must not be empty")
	assert.Contains(t, h.out.String(), "No todos yet.")
	assert.Empty(t, h.todos.List(""))
}

func TestMenuPaddedUsername(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{
			choiceSignup,
			choiceLogin,
			choiceCreate,
			choiceComplete, "todo-1",
			choiceLogout,
			choiceExit,
		},
		creds: [][2]string{{" alice ", "secret123"}, {"alice  ", "secret123"}},
		todos: []prompt.TodoInput{{Title: "Buy milk", Priority: model.PriorityMid}},
	}
	h := newHarness(t, WithPrompter(p))

	require.Equal(t, ExitOK, h.run("", "menu"), h.errOut.String())
	assert.Empty(t, h.errOut.String())
	assert.Contains(t, h.out.String(), "Welcome, alice\n")

	items := h.todos.List("alice")
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Owner)
	assert.Equal(t, model.StatusCompleted, items[0].Status)
	assert.Contains(t, p.selectTitles, "alice: 1 pending, 0 completed")
}

func TestMenuNeedsPrompter(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, ExitUsage, h.run("", "menu"))
}

func TestEditPromptsWhenNoFlags(t *testing.T) {
	p := &scriptedPrompter{
		todos: []prompt.TodoInput{{Title: "Buy oat milk", Details: "1L", Priority: model.PriorityLow}},
	}
	h := newHarness(t, WithPrompter(p))
	require.Equal(t, ExitOK, h.run("secret123\n", "register", "alice", "--password-stdin"))
	h.login(t, "alice", "secret123")
	require.Equal(t, ExitOK, h.run("", "add", "Buy milk"))

	require.Equal(t, ExitOK, h.run("", "edit", "todo-1"))
	got, _ := h.todos.Get("todo-1")
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.Equal(t, "1L", got.Details)
	assert.Equal(t, model.PriorityLow, got.Priority)
}
