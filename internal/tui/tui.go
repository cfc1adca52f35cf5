package tui

import (
	"context"
	"log/slog"
	"time"

	"todosync-cli/internal/engine"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	Remote engine.Remote
	// Slug is the list opened at start.
	Slug          string
	ShowCompleted bool

	PollInterval time.Duration
	DragGrace    time.Duration
	InputGrace   time.Duration

	// Logger must not write to the terminal the TUI draws on.
	Logger *slog.Logger
}

// Run runs the TUI until the user quits and returns the slug of the list that
// was open at exit.
func Run(ctx context.Context, opts Options) (string, error) {
	applyThemePreference()
	applyColorProfilePreference()

	m := newAppModel(ctx, opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return "", err
	}
	if fm, ok := final.(appModel); ok {
		return fm.eng.Session().Slug, nil
	}
	return m.slug, nil
}
