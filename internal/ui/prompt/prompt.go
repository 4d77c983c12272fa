// Package prompt asks the user for input through huh forms.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/todolist/internal/model"
)

// ErrAborted is returned when the user cancels a prompt (esc or ctrl+c).
var ErrAborted = errors.New("prompt aborted")

// Choice is one entry of a Select prompt.
type Choice struct {
	Label string
	Value string
}

// TodoInput holds the editable fields of a todo.
type TodoInput struct {
	Title    string
	Details  string
	Priority model.Priority
}

// Prompter is everything the session controller asks the user.
type Prompter interface {
	Select(title string, choices []Choice) (string, error)
	Credentials(title string) (username, password string, err error)
	Password(title string) (string, error)
	Todo(title string, initial TodoInput) (TodoInput, error)
	Confirm(title string) (bool, error)
}

// Huh implements Prompter with charmbracelet/huh forms.
type Huh struct {
	// Accessible switches huh to plain line prompts, for screen readers
	// and piped input.
	Accessible bool
	Theme      *huh.Theme
}

// New returns a huh-backed Prompter using the named theme.
func New(accessible bool, theme string) *Huh {
	return &Huh{Accessible: accessible, Theme: ThemeByName(theme)}
}

// ThemeByName maps the display.theme setting to a huh theme. Unknown
// names fall back to the charm theme.
func ThemeByName(name string) *huh.Theme {
	switch strings.ToLower(name) {
	case "base":
		return huh.ThemeBase()
	case "base16":
		return huh.ThemeBase16()
	case "dracula":
		return huh.ThemeDracula()
	case "catppuccin":
		return huh.ThemeCatppuccin()
	default:
		return huh.ThemeCharm()
	}
}

// Select implements Prompter.
func (h *Huh) Select(title string, choices []Choice) (string, error) {
	var v string
	opts := make([]huh.Option[string], len(choices))
	for i, c := range choices {
		opts[i] = huh.NewOption(c.Label, c.Value)
	}
	err := h.run(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(opts...).
			Value(&v),
	))
	return v, err
}

// Credentials implements Prompter. The password is masked.
func (h *Huh) Credentials(title string) (string, string, error) {
	var username, password string
	err := h.run(huh.NewGroup(
		huh.NewInput().
			Title("Username").
			Value(&username).
			Validate(validateRequired("Username")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(validateRequired("Password")),
	).Title(title))
	return username, password, err
}

// Password implements Prompter.
func (h *Huh) Password(title string) (string, error) {
	var password string
	err := h.run(huh.NewGroup(
		huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(validateRequired("Password")),
	))
	return password, err
}

// Todo implements Prompter, pre-filling the form with initial.
func (h *Huh) Todo(title string, initial TodoInput) (TodoInput, error) {
	in := initial
	if !in.Priority.Valid() {
		in.Priority = model.PriorityMid
	}
	err := h.run(huh.NewGroup(
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&in.Title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Details").
			Placeholder("Optional details...").
			Value(&in.Details),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(priorityOptions()...).
			Value(&in.Priority),
	).Title(title))
	if err != nil {
		return TodoInput{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	return in, nil
}

// Confirm implements Prompter.
func (h *Huh) Confirm(title string) (bool, error) {
	var ok bool
	err := h.run(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	))
	return ok, err
}

func (h *Huh) run(group *huh.Group) error {
	form := huh.NewForm(group).WithAccessible(h.Accessible)
	if h.Theme != nil {
		form = form.WithTheme(h.Theme)
	}
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("running prompt: %w", err)
	}
	return nil
}

func priorityOptions() []huh.Option[model.Priority] {
	opts := make([]huh.Option[model.Priority], 0, len(model.Priorities()))
	for _, p := range model.Priorities() {
		opts = append(opts, huh.NewOption(priorityLabel(p), p))
	}
	return opts
}

func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "High"
	case model.PriorityMid:
		return "Mid"
	case model.PriorityLow:
		return "Low"
	default:
		return p.String()
	}
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
