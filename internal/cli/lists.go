package cli

import (
	"context"
	"fmt"
	"strings"

	"todosync-cli/internal/engine"
	"todosync-cli/internal/format"
	"todosync-cli/internal/model"

	"github.com/spf13/cobra"
)

func newListsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lists",
		Aliases: []string{"list"},
		Short:   "Create, show, rename and delete lists",
	}
	cmd.AddCommand(newListsCreateCmd(app))
	cmd.AddCommand(newListsShowCmd(app))
	cmd.AddCommand(newListsRenameCmd(app))
	cmd.AddCommand(newListsDeleteCmd(app))
	return cmd
}

func newListsCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				l, err := r.CreateList(ctx, args[0])
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{
					"data":   l,
					"_hints": []string{"todosync " + l.Slug},
				})
			})
		},
	}
}

func newListsShowCmd(app *App) *cobra.Command {
	var markdown bool
	var showCompleted bool
	var width int
	var style string

	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Show a list with its tasks in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				l, err := r.FetchList(ctx, args[0])
				if err != nil {
					return err
				}
				l.Items = model.Sorted(l.Items)
				if markdown {
					out, err := format.RenderMarkdown(format.ListMarkdown(l, showCompleted), width, style)
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(cmd.OutOrStdout(), out)
					return err
				}
				completed := l.CompletedCount()
				hidden := 0
				if !showCompleted {
					l.Items = activeItems(l.Items)
					hidden = completed
				}
				return writeOut(cmd, app, map[string]any{
					"data": l,
					"meta": map[string]any{
						"completed": completed,
						"hidden":    hidden,
						"toggle":    engine.ToggleLabel(completed, showCompleted),
					},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render as a Markdown checklist")
	cmd.Flags().BoolVar(&showCompleted, "show-completed", true, "Include completed tasks")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --markdown")
	cmd.Flags().StringVar(&style, "style", "notty", "Glamour style for --markdown (notty|dark|light|ascii)")
	return cmd
}

func newListsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <slug> <name>",
		Short: "Rename a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				l, err := r.UpdateList(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": l})
			})
		},
	}
}

func newListsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a list and its tasks (the slug may be reused)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := strings.TrimSpace(args[0])
			return withRemote(cmd, app, func(ctx context.Context, r engine.Remote) error {
				if err := r.DeleteList(ctx, slug); err != nil {
					return err
				}
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"slug": slug, "deleted": true}})
			})
		},
	}
}

func activeItems(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if !it.Done {
			out = append(out, it)
		}
	}
	return out
}
