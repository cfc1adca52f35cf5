package tui

import (
	"strings"

	"todosync-cli/internal/engine"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type rowState struct {
	selected bool
	// grabbed marks the row being moved; target marks where it would land.
	grabbed bool
	target  bool
}

// renderRow draws one entry on a single line of exactly width columns.
func renderRow(en engine.Entry, st rowState, width int) string {
	if width < 8 {
		width = 8
	}

	box := "[ ]"
	if en.Item.Done {
		box = "[x]"
	}
	marker := "  "
	switch {
	case st.grabbed:
		marker = "≡ "
	case st.target:
		marker = "→ "
	}

	text := strings.TrimSpace(en.Item.Text)
	if en.UI.Editing {
		text = en.UI.Draft + " (editing)"
	}
	if text == "" {
		text = "(empty)"
	}

	var suffix string
	if en.UI.Pending {
		suffix = " " + stylePending().Render("…")
	}

	body := text
	if en.Item.Done {
		body = styleDone().Render(text)
	}
	line := marker + box + " " + body + suffix

	if w := xansi.StringWidth(line); w < width {
		line += strings.Repeat(" ", width-w)
	} else if w > width {
		line = xansi.Truncate(line, width-1, "") + "…"
	}

	style := lipgloss.NewStyle()
	if st.selected {
		style = styleSelected()
	}
	return style.Render(line)
}

// renderInputLine renders a text input as one padded line; newlines in the
// view would otherwise wrap the layout.
func renderInputLine(width int, label, inputView string) string {
	if width < 10 {
		width = 10
	}
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	inputView = strings.ReplaceAll(inputView, "\r", " ")

	line := lipgloss.PlaceHorizontal(
		width,
		lipgloss.Left,
		label+" "+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > width {
		line = xansi.Cut(line, 0, width) + "\x1b[0m"
	}
	return line
}
