package format

import (
	"bytes"
	"strconv"
	"strings"

	"todosync-cli/internal/model"

	"github.com/charmbracelet/glamour"
)

// ListMarkdown renders a list as a Markdown checklist in display order.
// Completed items are included only when showCompleted is set.
func ListMarkdown(l model.List, showCompleted bool) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	name := strings.TrimSpace(l.Name)
	if name == "" {
		name = l.Slug
	}
	writeLn("# " + name)
	writeLn("")

	items := model.Sorted(l.Items)
	shown := 0
	for _, it := range items {
		if it.Done && !showCompleted {
			continue
		}
		box := "[ ]"
		if it.Done {
			box = "[x]"
		}
		writeLn("- " + box + " " + strings.TrimSpace(it.Text))
		shown++
	}
	if shown == 0 {
		writeLn("_No tasks._")
	}
	if done := l.CompletedCount(); done > 0 && !showCompleted {
		writeLn("")
		writeLn("_" + hiddenNote(done) + "_")
	}
	return buf.String()
}

func hiddenNote(n int) string {
	if n == 1 {
		return "1 completed task hidden"
	}
	return strconv.Itoa(n) + " completed tasks hidden"
}

// RenderMarkdown renders md for a terminal of the given width. style is a
// glamour standard style name ("dark", "light", "notty", ...).
func RenderMarkdown(md string, width int, style string) (string, error) {
	if width < 20 {
		width = 20
	}
	if strings.TrimSpace(style) == "" {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
