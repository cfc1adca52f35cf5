package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"todosync-cli/internal/config"
	"todosync-cli/internal/engine"
	"todosync-cli/internal/format"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var interval time.Duration
	var showCompleted bool
	var once bool
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "watch <slug>",
		Short: "Poll a list and stream change events as JSON lines",
		Long: strings.TrimSpace(`
Poll a list and write one JSON object per change to stdout:

  {"at":"...","kind":"inserted","event":{"kind":"inserted","id":"...","item":{...},"index":0}}

Kinds: inserted, updated, moved, removed, visibility. The first poll emits
an insert per task; later polls emit only what changed.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return writeErr(cmd, err)
			}
			if !cmd.Flags().Changed("interval") && cfg.PollInterval > 0 {
				interval = cfg.PollInterval.D()
			}
			if !cmd.Flags().Changed("show-completed") {
				showCompleted = cfg.ShowCompleted
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			hooks := engine.HookFunc(func(ev engine.Event) {
				_ = format.WriteEvent(out, string(ev.Kind), ev, time.Now())
			})

			return withRemote(cmd, app, func(_ context.Context, r engine.Remote) error {
				e := engine.New(r, engine.Options{
					Hooks:         hooks,
					Logger:        app.logger(),
					ShowCompleted: showCompleted,
				})
				if err := e.Open(ctx, args[0]); err != nil {
					return err
				}
				if once {
					return nil
				}
				s := engine.NewScheduler(e, engine.SchedulerOptions{
					Interval: interval,
					Logger:   app.logger(),
				})
				app.logger().Info("watching list", slog.String("slug", args[0]), slog.Duration("interval", s.Interval()))
				return s.Run(ctx)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", engine.DefaultPollInterval, "Poll interval")
	cmd.Flags().BoolVar(&showCompleted, "show-completed", false, "Report completed tasks as visible")
	cmd.Flags().BoolVar(&once, "once", false, "Emit the initial snapshot and exit")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (0: until interrupted)")
	return cmd
}
