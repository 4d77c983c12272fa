// Package app is the session controller: it parses subcommands, prompts
// the user, and dispatches to the credential and todo stores.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/logging"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/theme"
	"github.com/nhle/todolist/internal/ui/prompt"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

var errNotLoggedIn = errors.New("not logged in; run `todolist login <username>` or pass --user")

// usageError marks bad command-line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// App carries the stores and I/O of one session.
type App struct {
	todos   *store.TodoStore
	users   *store.CredentialStore
	session *credential.Session
	prompt  prompt.Prompter
	cfg     *model.AppConfig
	logger  *log.Logger

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	runTUI func(tea.Model) error
}

// Option configures an App.
type Option func(*App)

// WithSession sets where the logged-in user is remembered.
func WithSession(s *credential.Session) Option {
	return func(a *App) { a.session = s }
}

// WithPrompter sets the interactive prompter. Without one, commands that
// need input fail unless it is given through flags or stdin.
func WithPrompter(p prompt.Prompter) Option {
	return func(a *App) { a.prompt = p }
}

// WithConfig sets the application config.
func WithConfig(cfg *model.AppConfig) Option {
	return func(a *App) {
		if cfg != nil {
			a.cfg = cfg
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in = in
		a.out = out
		a.errOut = errOut
	}
}

// WithTUIRunner replaces the function that runs the todo browser.
func WithTUIRunner(run func(tea.Model) error) Option {
	return func(a *App) { a.runTUI = run }
}

// New creates an App over the given stores.
func New(todos *store.TodoStore, users *store.CredentialStore, opts ...Option) *App {
	a := &App{
		todos:  todos,
		users:  users,
		cfg:    model.DefaultAppConfig(),
		logger: logging.Discard(),
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		runTUI: func(m tea.Model) error {
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type command struct {
	usage string
	short string
	run   func(ctx context.Context, args []string) error
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"register": {"register <username> [--password-stdin]", "create an account", a.cmdRegister},
		"login":    {"login <username> [--password-stdin]", "log in and remember the session", a.cmdLogin},
		"logout":   {"logout", "forget the logged-in user", a.cmdLogout},
		"whoami":   {"whoami", "print the logged-in user", a.cmdWhoami},
		"add":      {"add <title...> [--details D] [--priority HIGH|MID|LOW]", "create a todo", a.cmdAdd},
		"ls":       {"ls [--group] [--tui]", "list your todos", a.cmdList},
		"show":     {"show <id>", "show every field of a todo", a.cmdShow},
		"edit":     {"edit <id> [--title T] [--details D] [--priority P]", "change a todo", a.cmdEdit},
		"done":     {"done <id>", "mark a todo completed", a.cmdDone},
		"rm":       {"rm <id>", "delete a todo", a.cmdRemove},
		"check":    {"check", "validate the data files", a.cmdCheck},
		"menu":     {"menu", "interactive session", a.cmdMenu},
	}
}

// Run executes one subcommand and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.printUsage(a.errOut)
		return ExitUsage
	}

	name, rest := args[0], args[1:]
	if name == "help" || name == "-h" || name == "--help" {
		a.printUsage(a.out)
		return ExitOK
	}

	cmd, ok := a.commands()[name]
	if !ok {
		a.fail(usagef("unknown command %q", name))
		a.printUsage(a.errOut)
		return ExitUsage
	}

	a.logger.Debug("running command", "cmd", name, "args", len(rest))
	err := cmd.run(ctx, rest)
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return ExitOK
	}
	a.fail(err)
	return exitCode(err)
}

// exitCode maps an error to ExitUsage for bad input, failed validation and
// refused authorization, and to ExitError for everything else.
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return ExitUsage
	}
	for _, target := range []error{
		errNotLoggedIn,
		model.ErrInvalidEnumValue,
		store.ErrEmptyTitle,
		store.ErrEmptyOwner,
		store.ErrNotFound,
		store.ErrForbidden,
		store.ErrImmutableField,
		store.ErrInvalidPriority,
		store.ErrEmptyField,
		store.ErrUsernameTooShort,
		store.ErrPasswordTooShort,
		store.ErrDuplicateUsername,
		store.ErrUserNotFound,
		store.ErrWrongPassword,
	} {
		if errors.Is(err, target) {
			return ExitUsage
		}
	}
	return ExitError
}

func (a *App) printUsage(w io.Writer) {
	cmds := a.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: todolist [--config FILE] [--data-dir DIR] [--backend json|sqlite|memory] <command>")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-58s %s\n", cmds[name].usage, theme.HelpStyle.Render(cmds[name].short))
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (a *App) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "Usage: todolist %s\n", a.commands()[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func (a *App) parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return &usageError{msg: err.Error()}
	}
	return nil
}

func (a *App) ok(format string, args ...interface{}) {
	fmt.Fprintln(a.out, theme.SuccessStyle.Render("✔")+" "+fmt.Sprintf(format, args...))
}

func (a *App) fail(err error) {
	fmt.Fprintln(a.errOut, theme.ErrorStyle.Render("✖")+" "+err.Error())
}

func (a *App) info(format string, args ...interface{}) {
	fmt.Fprintln(a.out, fmt.Sprintf(format, args...))
}

func trimLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}
