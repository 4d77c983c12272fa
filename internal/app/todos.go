package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/keys"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/ui/prompt"
	"github.com/nhle/todolist/internal/ui/tasklist"
)

func (a *App) cmdAdd(ctx context.Context, args []string) error {
	fs := a.newFlagSet("add")
	af := bindAuthFlags(fs)
	details := fs.StringP("details", "d", "", "free-form details")
	priority := fs.StringP("priority", "p", model.PriorityMid.String(), "HIGH, MID or LOW")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	title := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(title) == "" {
		return usagef("add needs a title")
	}
	p, err := model.ParsePriority(*priority)
	if err != nil {
		return err
	}

	user, err := a.currentUser(ctx, af)
	if err != nil {
		return err
	}
	item, err := a.todos.Create(ctx, title, *details, p, user)
	if err != nil {
		return err
	}
	a.ok("Added %q (%s)", item.Title, item.ID)
	return nil
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	fs := a.newFlagSet("ls")
	af := bindAuthFlags(fs)
	group := fs.BoolP("group", "g", false, "group by status")
	tui := fs.Bool("tui", false, "open the interactive browser")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	user, err := a.currentUser(ctx, af)
	if err != nil {
		return err
	}

	if *tui {
		return a.runTUI(tasklist.New(a.todos, user, keys.DefaultKeyMap(), 80, 24))
	}
	a.printTodos(user, *group)
	return nil
}

func (a *App) printTodos(user string, group bool) {
	items := a.todos.List(user)
	pending, completed := a.todos.Counts(user)
	a.info("%s", renderHeader(user, pending, completed))
	if len(items) == 0 {
		a.info("No todos yet.")
		return
	}
	if !group {
		a.info("%s", renderTodoTable(items))
		return
	}
	for _, status := range []model.Status{model.StatusPending, model.StatusCompleted} {
		var section []model.TodoItem
		for _, it := range items {
			if it.Status == status {
				section = append(section, it)
			}
		}
		if len(section) == 0 {
			continue
		}
		a.info("%s", renderSectionTitle(status, len(section)))
		a.info("%s", renderTodoTable(section))
	}
}

func (a *App) cmdShow(ctx context.Context, args []string) error {
	fs := a.newFlagSet("show")
	af := bindAuthFlags(fs)
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("show takes exactly one id")
	}
	user, err := a.currentUser(ctx, af)
	if err != nil {
		return err
	}
	id, err := a.resolveID(user, fs.Arg(0))
	if err != nil {
		return err
	}
	item, _ := a.todos.Get(id)
	if !item.OwnedBy(user) {
		return fmt.Errorf("showing todo %s: %w", id, store.ErrForbidden)
	}
	a.info("%s", renderTodoDetail(item))
	return nil
}

func (a *App) cmdEdit(ctx context.Context, args []string) error {
	fs := a.newFlagSet("edit")
	af := bindAuthFlags(fs)
	title := fs.StringP("title", "t", "", "new title")
	details := fs.StringP("details", "d", "", "new details")
	priority := fs.StringP("priority", "p", "", "new priority")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("edit takes exactly one id")
	}
	user, err := a.currentUser(ctx, af)
	if err != nil {
		return err
	}
	id, err := a.resolveID(user, fs.Arg(0))
	if err != nil {
		return err
	}

	var req model.UpdateRequest
	if fs.Changed("title") {
		req.Title = title
	}
	if fs.Changed("details") {
		req.Details = details
	}
	if fs.Changed("priority") {
		p, err := model.ParsePriority(*priority)
		if err != nil {
			return err
		}
		req.Priority = &p
	}

	if req.IsEmpty() {
		if a.prompt == nil {
			return usagef("nothing to change; pass --title, --details or --priority")
		}
		req, err = a.promptEdit(user, id)
		if err != nil {
			return err
		}
	}

	item, err := a.todos.Edit(ctx, id, user, req)
	if err != nil {
		return err
	}
	a.ok("Updated %q", item.Title)
	return nil
}

// promptEdit opens the todo form pre-filled with the current values.
func (a *App) promptEdit(user, id string) (model.UpdateRequest, error) {
	cur, ok := a.todos.Get(id)
	if !ok {
		return model.UpdateRequest{}, store.ErrNotFound
	}
	if !cur.OwnedBy(user) {
		return model.UpdateRequest{}, store.ErrForbidden
	}
	in, err := a.prompt.Todo("Edit todo", prompt.TodoInput{
		Title:    cur.Title,
		Details:  cur.Details,
		Priority: cur.Priority,
	})
	if err != nil {
		return model.UpdateRequest{}, err
	}
	return model.UpdateRequest{Title: &in.Title, Details: &in.Details, Priority: &in.Priority}, nil
}

func (a *App) cmdDone(ctx context.Context, args []string) error {
	return a.actOnTodo(ctx, "done", args, func(id, user string) error {
		if err := a.todos.MarkCompleted(ctx, id, user); err != nil {
			return err
		}
		a.ok("Completed %s", id)
		return nil
	})
}

func (a *App) cmdRemove(ctx context.Context, args []string) error {
	return a.actOnTodo(ctx, "rm", args, func(id, user string) error {
		if err := a.todos.Remove(ctx, id, user); err != nil {
			return err
		}
		a.ok("Deleted %s", id)
		return nil
	})
}

// actOnTodo parses "<cmd> <id>" and runs fn for the resolved id and user.
func (a *App) actOnTodo(ctx context.Context, name string, args []string, fn func(id, user string) error) error {
	fs := a.newFlagSet(name)
	af := bindAuthFlags(fs)
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("%s takes exactly one id", name)
	}
	user, err := a.currentUser(ctx, af)
	if err != nil {
		return err
	}
	id, err := a.resolveID(user, fs.Arg(0))
	if err != nil {
		return err
	}
	return fn(id, user)
}

// resolveID accepts the full id, or a unique prefix, of one of user's
// todos. Other users' ids resolve like unknown ones.
func (a *App) resolveID(user, ref string) (string, error) {
	var matches []string
	for _, it := range a.todos.List(user) {
		if it.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(it.ID, ref) {
			matches = append(matches, it.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("todo %s: %w", ref, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", usagef("id prefix %q matches %d todos", ref, len(matches))
	}
}
