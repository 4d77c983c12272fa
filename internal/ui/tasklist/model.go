// Package tasklist is the interactive browser over one user's todos.
package tasklist

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/keys"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
)

// Store is the part of the todo store the browser needs.
type Store interface {
	List(owner string) []model.TodoItem
	Counts(owner string) (pending, completed int)
	MarkCompleted(ctx context.Context, id, owner string) error
	Remove(ctx context.Context, id, owner string) error
}

// TodosLoadedMsg is sent when the owner's todos have been read from the store.
type TodosLoadedMsg struct {
	Todos []model.TodoItem
}

// ActionDoneMsg reports the outcome of a complete or delete action.
type ActionDoneMsg struct {
	Message string
	Err     error
}

// Model is the todo browser. It implements tea.Model so it can run as a
// standalone program.
type Model struct {
	list   list.Model
	help   help.Model
	store  Store
	owner  string
	keys   *keys.KeyMap
	status string
	err    error

	// confirming holds the todo that the next "y" deletes.
	confirming *model.TodoItem

	width  int
	height int
}

// New creates a browser over owner's todos.
func New(s Store, owner string, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-3)
	l.Title = fmt.Sprintf("%s's todos", owner)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		help:   help.New(),
		store:  s,
		owner:  owner,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the initial set of todos.
func (m Model) Init() tea.Cmd {
	return m.LoadTodos()
}

// Update handles messages for the browser.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case TodosLoadedMsg:
		items := make([]list.Item, len(msg.Todos))
		for i, todo := range msg.Todos {
			items[i] = TodoItem{Todo: todo}
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case ActionDoneMsg:
		m.status = msg.Message
		m.err = msg.Err
		return m, m.LoadTodos()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming != nil {
		todo := *m.confirming
		m.confirming = nil
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.remove(todo)
		}
		m.status = "delete cancelled"
		m.err = nil
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.LoadTodos()

	case key.Matches(msg, m.keys.Complete):
		todo, ok := m.SelectedTodo()
		if !ok {
			return m, nil
		}
		return m, m.markCompleted(todo)

	case key.Matches(msg, m.keys.Delete):
		todo, ok := m.SelectedTodo()
		if !ok {
			return m, nil
		}
		m.confirming = &todo
		m.status = fmt.Sprintf("delete %q? y to confirm, any other key cancels", todo.Title)
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SelectedTodo returns the todo under the cursor.
func (m Model) SelectedTodo() (model.TodoItem, bool) {
	item, ok := m.list.SelectedItem().(TodoItem)
	if !ok {
		return model.TodoItem{}, false
	}
	return item.Todo, true
}

// Status returns the last action message and error, for the status bar.
func (m Model) Status() (string, error) {
	return m.status, m.err
}

// View renders the browser.
func (m Model) View() string {
	var body string
	if len(m.list.Items()) == 0 {
		body = lipgloss.NewStyle().
			Width(m.width).
			Height(m.height-3).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No todos yet.\n\nAdd one with: todolist add <title>")
	} else {
		body = m.list.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar(), m.help.View(m.keys))
}

func (m Model) statusBar() string {
	pending, completed := m.store.Counts(m.owner)
	text := fmt.Sprintf("%d pending, %d completed", pending, completed)
	if m.err != nil {
		text += "  " + theme.ErrorStyle.Render(m.err.Error())
	} else if m.status != "" {
		text += "  " + m.status
	}
	return theme.StatusBarStyle.Width(m.width).Render(text)
}

// LoadTodos returns a tea.Cmd that reads the owner's todos from the store.
func (m Model) LoadTodos() tea.Cmd {
	s := m.store
	owner := m.owner
	return func() tea.Msg {
		return TodosLoadedMsg{Todos: s.List(owner)}
	}
}

func (m Model) markCompleted(todo model.TodoItem) tea.Cmd {
	s := m.store
	owner := m.owner
	return func() tea.Msg {
		if err := s.MarkCompleted(context.Background(), todo.ID, owner); err != nil {
			return ActionDoneMsg{Err: err}
		}
		return ActionDoneMsg{Message: fmt.Sprintf("completed %q", todo.Title)}
	}
}

func (m Model) remove(todo model.TodoItem) tea.Cmd {
	s := m.store
	owner := m.owner
	return func() tea.Msg {
		if err := s.Remove(context.Background(), todo.ID, owner); err != nil {
			return ActionDoneMsg{Err: err}
		}
		return ActionDoneMsg{Message: fmt.Sprintf("deleted %q", todo.Title)}
	}
}

// SetSize updates the browser dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-3)
	m.help.Width = width
}
