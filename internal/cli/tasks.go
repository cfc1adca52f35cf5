package cli

import (
	"context"
	"errors"
	"strings"

	"todosync-cli/internal/engine"
	"todosync-cli/internal/model"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Add, edit, complete, move and delete tasks",
	}
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksDoneCmd(app, true))
	cmd.AddCommand(newTasksDoneCmd(app, false))
	cmd.AddCommand(newTasksMoveCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

type placementFlags struct {
	before string
	after  string
	first  bool
	last   bool
}

func (f *placementFlags) bind(cmd *cobra.Command, verb string) {
	cmd.Flags().StringVar(&f.before, "before", "", verb+" before task id")
	cmd.Flags().StringVar(&f.after, "after", "", verb+" after task id")
	cmd.Flags().BoolVar(&f.first, "first", false, verb+" at the top of the list")
	cmd.Flags().BoolVar(&f.last, "last", false, verb+" at the bottom of the list")
}

// resolve returns the placement and target the flags describe. No flag means
// no placement.
func (f placementFlags) resolve() (model.Placement, string, error) {
	var p model.Placement
	var target string
	n := 0
	if v := strings.TrimSpace(f.before); v != "" {
		p, target = model.PlaceBefore, v
		n++
	}
	if v := strings.TrimSpace(f.after); v != "" {
		p, target = model.PlaceAfter, v
		n++
	}
	if f.first {
		p = model.PlaceFirst
		n++
	}
	if f.last {
		p = model.PlaceLast
		n++
	}
	if n > 1 {
		return "", "", errPlacement
	}
	return p, target, nil
}

func newTasksAddCmd(app *App) *cobra.Command {
	var pf placementFlags
	var done bool

	cmd := &cobra.Command{
		Use:   "add <slug> <text>",
		Short: "Add a task (default: at the bottom)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, target, err := pf.resolve()
			if err != nil {
				return writeErr(cmd, err)
			}
			in := model.ItemCreate{Text: args[1], Placement: p, TargetID: target}
			if done {
				in.Done = &done
			}
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				it, err := r.CreateItem(ctx, args[0], in)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": it})
			})
		},
	}
	pf.bind(cmd, "Insert")
	cmd.Flags().BoolVar(&done, "done", false, "Create the task already completed")
	return cmd
}

func newTasksEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <slug> <task-id> <text>",
		Short: "Replace a task's text",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := args[2]
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				it, err := r.UpdateItem(ctx, args[0], args[1], model.ItemPatch{Text: &text})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": it})
			})
		},
	}
}

func newTasksDoneCmd(app *App, done bool) *cobra.Command {
	use, short := "done", "Mark a task completed"
	if !done {
		use, short = "undone", "Mark a task active again"
	}
	return &cobra.Command{
		Use:   use + " <slug> <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := done
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				it, err := r.UpdateItem(ctx, args[0], args[1], model.ItemPatch{Done: &v})
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": it})
			})
		},
	}
}

// newTasksMoveCmd moves a task through the sync engine, the same path a drag
// in the TUI takes: optimistic placement, server confirmation, and a
// corrective refresh when the server refuses.
func newTasksMoveCmd(app *App) *cobra.Command {
	var pf placementFlags

	cmd := &cobra.Command{
		Use:   "move <slug> <task-id>",
		Short: "Reorder a task (exactly one of --before, --after, --first, --last)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, target, err := pf.resolve()
			if err != nil {
				return writeErr(cmd, err)
			}
			if p == "" {
				return writeErr(cmd, errors.New("provide one of --before, --after, --first or --last"))
			}
			slug, id := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				e := engine.New(r, engine.Options{Logger: app.logger(), ShowCompleted: true})
				if err := e.Open(ctx, slug); err != nil {
					return err
				}
				if !hasEntry(e.Entries(), id) {
					return errNotFound("task", id)
				}
				if err := e.Move(ctx, id, target, p); err != nil {
					if errors.Is(err, engine.ErrTargetGone) {
						return errNotFound("task", target)
					}
					return err
				}
				order := []string{}
				var moved *model.Item
				for _, en := range e.Entries() {
					order = append(order, en.Item.ID)
					if en.Item.ID == id {
						it := en.Item
						moved = &it
					}
				}
				if moved == nil {
					return errNotFound("task", id)
				}
				return writeOut(cmd, app, map[string]any{
					"data": moved,
					"meta": map[string]any{"order": order},
				})
			})
		},
	}
	pf.bind(cmd, "Move")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug> <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[1])
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				if err := r.DeleteItem(ctx, args[0], id); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
			})
		},
	}
}

func hasEntry(entries []engine.Entry, id string) bool {
	for _, en := range entries {
		if en.Item.ID == id {
			return true
		}
	}
	return false
}
