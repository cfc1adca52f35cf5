package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"todosync-cli/internal/config"
	"todosync-cli/internal/engine"
	"todosync-cli/internal/format"
	"todosync-cli/internal/remote"
	"todosync-cli/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	Server     string
	LocalDB    string
	PrettyJSON bool
	Format     string
	LogLevel   string

	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todosync",
		Short:        "Todo lists kept in sync with a list service (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the last used list in the TUI
  todosync

  # Open a list by slug (shortcut for: todosync open <slug>)
  todosync K3QZ8W1D

  # Run the list service locally
  todosync serve --addr 127.0.0.1:8000 --db ./todosync.db

  # Scriptable commands
  todosync lists create "Groceries"
  todosync tasks add K3QZ8W1D "milk" --first
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI on the last list.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runOpen(cmd, app, "")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !format.ValidFormat(app.Format) {
			return writeErr(cmd, fmt.Errorf("unknown format: %s (expected json|edn)", app.Format))
		}
		logger, err := newLogger(cmd.ErrOrStderr(), app.LogLevel)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.log = logger
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", "", "List service base URL (default: $"+config.EnvServer+", config, "+config.DefaultServer+")")
	cmd.PersistentFlags().StringVar(&app.LocalDB, "local-db", envOr("TODOSYNC_LOCAL_DB", ""), "Use a local SQLite list store instead of a server (advanced: fixtures/tests)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr(config.EnvFormat, "json"), "Output format (json|edn)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("TODOSYNC_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newOpenCmd(app))
	cmd.AddCommand(newListsCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q (expected debug|info|warn|error)", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), nil
}

func (app *App) logger() *slog.Logger {
	if app.log == nil {
		return slog.Default()
	}
	return app.log
}

// openRemote picks the list service: an in-process store when --local-db is
// set, otherwise the HTTP API resolved from flag, env and config.
func openRemote(ctx context.Context, app *App) (engine.Remote, func() error, error) {
	if path := strings.TrimSpace(app.LocalDB); path != "" {
		st, err := store.Open(ctx, path, store.Options{Logger: app.logger()})
		if err != nil {
			return nil, nil, err
		}
		return remote.NewLocal(st), st.Close, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	h, err := remote.NewHTTP(cfg.ResolveServer(app.Server), remote.HTTPOptions{})
	if err != nil {
		return nil, nil, err
	}
	return h, func() error { return nil }, nil
}

// withRemote runs fn against the selected list service and closes it after.
func withRemote(cmd *cobra.Command, app *App, fn func(ctx context.Context, r engine.Remote) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	r, closeFn, err := openRemote(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = closeFn() }()
	if err := fn(ctx, r); err != nil {
		return writeErr(cmd, describe(err))
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
