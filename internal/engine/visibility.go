package engine

import (
	"fmt"

	"todosync-cli/internal/model"
)

// Filter decides which entries are shown. It never touches keys or positions.
type Filter struct {
	ShowCompleted bool
}

func (f Filter) Visible(it model.Item) bool {
	return !it.Done || f.ShowCompleted
}

// Summary is the aggregate state shown next to the completed toggle.
type Summary struct {
	Completed int
	Hidden    int
	// Label is empty when nothing is completed (the toggle is not offered).
	Label string
}

// Apply recomputes visibility for every entry, firing VisibilityChanged only
// for entries whose visibility flipped.
func (f Filter) Apply(v *View, h Hooks) Summary {
	for _, e := range v.entries {
		vis := f.Visible(e.Item)
		if vis == e.Visible {
			continue
		}
		e.Visible = vis
		h.VisibilityChanged(e.Item.ID, vis)
	}
	return f.Summarize(v)
}

// Toggle flips ShowCompleted and applies it.
func (f *Filter) Toggle(v *View, h Hooks) Summary {
	f.ShowCompleted = !f.ShowCompleted
	return f.Apply(v, h)
}

func (f Filter) Summarize(v *View) Summary {
	s := Summary{Completed: v.completed()}
	if !f.ShowCompleted {
		s.Hidden = s.Completed
	}
	s.Label = ToggleLabel(s.Completed, f.ShowCompleted)
	return s
}

func ToggleLabel(completed int, show bool) string {
	switch {
	case completed == 0:
		return ""
	case show:
		return fmt.Sprintf("Hide completed (%d)", completed)
	default:
		return fmt.Sprintf("Show completed (%d)", completed)
	}
}
