package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/nhle/todolist/internal/app"
	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/logging"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/ui/prompt"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Root flags (apply to every subcommand). Parsing stops at the
	// subcommand so its own flags are left for it.
	root := pflag.NewFlagSet("todolist", pflag.ContinueOnError)
	root.SetInterspersed(false)
	configPath := root.String("config", model.DefaultConfigPath(), "config file")
	dataDir := root.String("data-dir", "", "directory holding the data files")
	backend := root.String("backend", "", "storage backend: json, sqlite or memory")
	logLevel := root.String("log-level", "", "debug, info, warn or error")
	if err := root.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return app.ExitOK
		}
		return app.ExitUsage
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		return app.ExitUsage
	}
	applyOverrides(cfg, *dataDir, *backend, *logLevel)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		return app.ExitUsage
	}

	logger := logging.FromConfig(os.Stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := store.Open(cfg)
	if err != nil {
		logger.Error("opening storage", "backend", cfg.Storage.Backend, "err", err)
		return app.ExitError
	}
	defer b.Close()

	hasher, err := credential.NewHasher(cfg.Auth)
	if err != nil {
		logger.Error("configuring password hasher", "err", err)
		return app.ExitUsage
	}

	storeOpts := []store.Option{
		store.WithLogger(logger),
		store.WithPolicy(store.PolicyFromConfig(cfg.Auth)),
	}
	users, err := store.NewCredentialStore(ctx, b, hasher, storeOpts...)
	if err != nil {
		logger.Error("loading credentials", "err", err)
		return app.ExitError
	}
	todos, err := store.NewTodoStore(ctx, b, storeOpts...)
	if err != nil {
		logger.Error("loading todos", "err", err)
		return app.ExitError
	}

	opts := []app.Option{
		app.WithConfig(cfg),
		app.WithLogger(logger),
	}
	if cfg.Auth.RememberSession {
		ring, err := credential.OpenKeyring(cfg.Storage.DataDir)
		if err != nil {
			logger.Warn("session will not be remembered", "err", err)
		} else {
			opts = append(opts, app.WithSession(credential.NewSession(ring)))
		}
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, app.WithPrompter(prompt.New(false, cfg.Display.Theme)))
	}

	return app.New(todos, users, opts...).Run(ctx, root.Args())
}

// applyOverrides copies the non-empty root flags over the loaded config.
// The data dir gets the same "~" expansion as the config file value.
func applyOverrides(cfg *model.AppConfig, dataDir, backend, logLevel string) {
	if dataDir != "" {
		cfg.Storage.DataDir = model.ExpandHome(dataDir)
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}
