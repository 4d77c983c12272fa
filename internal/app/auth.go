package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/store"
)

// authFlags are shared by every command that acts for a user.
type authFlags struct {
	user          string
	passwordStdin bool
}

func bindAuthFlags(fs *pflag.FlagSet) *authFlags {
	af := &authFlags{}
	fs.StringVarP(&af.user, "user", "u", "", "act as this user instead of the logged-in one")
	fs.BoolVar(&af.passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	return af
}

// currentUser returns the trimmed name of the user a command acts for: the
// --user account after checking its password, or else the remembered session.
func (a *App) currentUser(ctx context.Context, af *authFlags) (string, error) {
	if user := strings.TrimSpace(af.user); user != "" {
		password, err := a.readPassword(af.passwordStdin, fmt.Sprintf("Password for %s", user))
		if err != nil {
			return "", err
		}
		if err := a.users.Authenticate(ctx, user, password); err != nil {
			return "", err
		}
		return user, nil
	}

	user, err := a.session.Current()
	if err != nil {
		if errors.Is(err, credential.ErrNoSession) {
			return "", errNotLoggedIn
		}
		return "", err
	}
	if !a.users.Exists(user) {
		a.logger.Warn("session user is not registered", "user", user)
		return "", errNotLoggedIn
	}
	return user, nil
}

// readPassword reads one line from stdin, or prompts with a masked input.
func (a *App) readPassword(fromStdin bool, title string) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password from stdin: %w", err)
		}
		return trimLine(line), nil
	}
	if a.prompt == nil {
		return "", usagef("no terminal to prompt for a password; use --password-stdin")
	}
	return a.prompt.Password(title)
}

func (a *App) rememberSession(username string) {
	if !a.cfg.Auth.RememberSession {
		return
	}
	if err := a.session.Save(username); err != nil {
		a.logger.Warn("could not remember session", "err", err)
	}
}

func (a *App) cmdRegister(ctx context.Context, args []string) error {
	fs := a.newFlagSet("register")
	stdin := fs.Bool("password-stdin", false, "read the password from the first line of stdin")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("register takes exactly one username")
	}
	username := strings.TrimSpace(fs.Arg(0))

	if a.users.Exists(username) {
		return fmt.Errorf("registering %q: %w", username, store.ErrDuplicateUsername)
	}
	password, err := a.readPassword(*stdin, "Choose a password")
	if err != nil {
		return err
	}
	if err := a.users.Register(ctx, username, password); err != nil {
		return err
	}
	a.ok("Registered %s", username)
	return nil
}

func (a *App) cmdLogin(ctx context.Context, args []string) error {
	fs := a.newFlagSet("login")
	stdin := fs.Bool("password-stdin", false, "read the password from the first line of stdin")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("login takes exactly one username")
	}
	username := strings.TrimSpace(fs.Arg(0))

	password, err := a.readPassword(*stdin, fmt.Sprintf("Password for %s", username))
	if err != nil {
		return err
	}
	if err := a.users.Authenticate(ctx, username, password); err != nil {
		return err
	}
	a.rememberSession(username)
	a.ok("Logged in as %s", username)
	return nil
}

func (a *App) cmdLogout(ctx context.Context, args []string) error {
	fs := a.newFlagSet("logout")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.session.Clear(); err != nil {
		return err
	}
	a.ok("Logged out")
	return nil
}

func (a *App) cmdWhoami(ctx context.Context, args []string) error {
	fs := a.newFlagSet("whoami")
	af := bindAuthFlags(fs)
	if err := a.parse(fs, args); err != nil {
		return err
	}
	user, err := a.currentUser(ctx, af)
	if err != nil {
		return err
	}
	a.info("%s", user)
	return nil
}
