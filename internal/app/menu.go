package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
	"github.com/nhle/todolist/internal/ui/prompt"
)

// Menu choices.
const (
	choiceLogin    = "login"
	choiceSignup   = "signup"
	choiceExit     = "exit"
	choiceCreate   = "create"
	choiceList     = "list"
	choiceView     = "view"
	choiceEdit     = "edit"
	choiceComplete = "complete"
	choiceDelete   = "delete"
	choiceLogout   = "logout"
)

func (a *App) cmdMenu(ctx context.Context, args []string) error {
	fs := a.newFlagSet("menu")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if a.prompt == nil {
		return usagef("menu needs an interactive terminal")
	}
	return a.runMenu(ctx)
}

// runMenu is the outer loop: log in, sign up or exit. Store errors are
// reported and the loop continues; only a broken prompt ends it early.
func (a *App) runMenu(ctx context.Context) error {
	for {
		choice, err := a.prompt.Select("todolist", []prompt.Choice{
			{Label: "Log in", Value: choiceLogin},
			{Label: "Sign up", Value: choiceSignup},
			{Label: "Exit", Value: choiceExit},
		})
		if errors.Is(err, prompt.ErrAborted) || choice == choiceExit {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case choiceLogin:
			user, password, err := a.prompt.Credentials("Log in")
			if err != nil {
				if errors.Is(err, prompt.ErrAborted) {
					continue
				}
				return err
			}
			user = strings.TrimSpace(user)
			if err := a.users.Authenticate(ctx, user, password); err != nil {
				a.fail(err)
				continue
			}
			a.rememberSession(user)
			a.ok("Welcome, %s", user)
			if err := a.todoMenu(ctx, user); err != nil {
				return err
			}

		case choiceSignup:
			user, password, err := a.prompt.Credentials("Sign up")
			if err != nil {
				if errors.Is(err, prompt.ErrAborted) {
					continue
				}
				return err
			}
			user = strings.TrimSpace(user)
			if err := a.users.Register(ctx, user, password); err != nil {
				a.fail(err)
				continue
			}
			a.ok("Registered %s, you can log in now", user)
		}
	}
}

// todoMenu runs until the user logs out.
func (a *App) todoMenu(ctx context.Context, user string) error {
	for {
		pending, completed := a.todos.Counts(user)
		title := fmt.Sprintf("%s: %d pending, %d completed", user, pending, completed)
		choice, err := a.prompt.Select(title, []prompt.Choice{
			{Label: "Create todo", Value: choiceCreate},
			{Label: "List todos", Value: choiceList},
			{Label: "View details", Value: choiceView},
			{Label: "Edit todo", Value: choiceEdit},
			{Label: "Mark completed", Value: choiceComplete},
			{Label: "Delete todo", Value: choiceDelete},
			{Label: "Log out", Value: choiceLogout},
		})
		if errors.Is(err, prompt.ErrAborted) || choice == choiceLogout {
			if err := a.session.Clear(); err != nil {
				a.logger.Warn("could not clear session", "err", err)
			}
			a.ok("Logged out")
			return nil
		}
		if err != nil {
			return err
		}

		if err := a.runTodoChoice(ctx, user, choice); err != nil {
			if !errors.Is(err, prompt.ErrAborted) {
				a.fail(err)
			}
		}
	}
}

func (a *App) runTodoChoice(ctx context.Context, user, choice string) error {
	if choice == choiceCreate {
		in, err := a.prompt.Todo("New todo", prompt.TodoInput{Priority: model.PriorityMid})
		if err != nil {
			return err
		}
		item, err := a.todos.Create(ctx, in.Title, in.Details, in.Priority, user)
		if err != nil {
			return err
		}
		a.ok("Added %q", item.Title)
		return nil
	}
	if choice == choiceList {
		a.printTodos(user, false)
		return nil
	}

	id, ok, err := a.pickTodo(user, choice)
	if err != nil || !ok {
		return err
	}

	switch choice {
	case choiceView:
		item, _ := a.todos.Get(id)
		a.info("%s", renderTodoDetail(item))

	case choiceEdit:
		req, err := a.promptEdit(user, id)
		if err != nil {
			return err
		}
		item, err := a.todos.Edit(ctx, id, user, req)
		if err != nil {
			return err
		}
		a.ok("Updated %q", item.Title)

	case choiceComplete:
		if err := a.todos.MarkCompleted(ctx, id, user); err != nil {
			return err
		}
		a.ok("Marked completed")

	case choiceDelete:
		sure, err := a.prompt.Confirm("Delete this todo?")
		if err != nil || !sure {
			return err
		}
		if err := a.todos.Remove(ctx, id, user); err != nil {
			return err
		}
		a.ok("Deleted")
	}
	return nil
}

// pickTodo asks which of user's todos an action applies to.
func (a *App) pickTodo(user, action string) (string, bool, error) {
	items := a.todos.List(user)
	if len(items) == 0 {
		a.info("No todos yet.")
		return "", false, nil
	}
	choices := make([]prompt.Choice, len(items))
	for i, it := range items {
		choices[i] = prompt.Choice{
			Label: fmt.Sprintf("%s %s [%s]", theme.StatusIcon(it.Status), it.Title, it.Priority),
			Value: it.ID,
		}
	}
	id, err := a.prompt.Select(fmt.Sprintf("Which todo (%s)?", action), choices)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
