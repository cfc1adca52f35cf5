package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"todosync-cli/internal/config"
	"todosync-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open [slug]",
		Short: "Open a list in the interactive TUI (default: the last opened list)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := ""
			if len(args) == 1 {
				slug = args[0]
			}
			return runOpen(cmd, app, slug)
		},
	}
}

func runOpen(cmd *cobra.Command, app *App, slug string) error {
	cfg, err := config.Load()
	if err != nil {
		return writeErr(cmd, err)
	}
	if strings.TrimSpace(slug) == "" {
		slug = cfg.LastList
	}

	// The TUI owns the terminal; logs go to the configured file or nowhere.
	logger, closeLog, err := tuiLogger(cfg.LogFile, app.LogLevel)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeLog()
	app.log = logger

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	r, closeRemote, err := openRemote(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() { _ = closeRemote() }()

	last, err := tui.Run(ctx, tui.Options{
		Remote:        r,
		Slug:          slug,
		ShowCompleted: cfg.ShowCompleted,
		PollInterval:  cfg.PollInterval.D(),
		DragGrace:     cfg.DragGrace.D(),
		InputGrace:    cfg.InputGrace.D(),
		Logger:        logger,
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	if last != cfg.LastList {
		cfg.LastList = last
		if err := config.Save(cfg); err != nil {
			logger.Warn("could not remember last list", slog.Any("err", err))
		}
	}
	return nil
}

func tuiLogger(path, level string) (*slog.Logger, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(f, level)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}
