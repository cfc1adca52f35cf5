package engine

import "todosync-cli/internal/model"

// UIState is presentation-only state attached to an entry. Reconciliation
// keeps it for entries that survive a refresh.
type UIState struct {
	Editing bool
	Draft   string
	// Pending marks an optimistic change the server has not confirmed yet.
	Pending bool
}

type Entry struct {
	Item    model.Item
	Visible bool
	UI      UIState
}

// View is the locally displayed sequence of entries. Only reconciliation and
// the optimistic apply step mutate it.
type View struct {
	entries []*Entry
}

func (v *View) Len() int { return len(v.entries) }

// Items returns the displayed items in order.
func (v *View) Items() []model.Item {
	out := make([]model.Item, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, e.Item)
	}
	return out
}

// Snapshot returns copies of the entries.
func (v *View) Snapshot() []Entry {
	out := make([]Entry, 0, len(v.entries))
	for _, e := range v.entries {
		out = append(out, *e)
	}
	return out
}

func (v *View) indexOf(id string) int {
	for i, e := range v.entries {
		if e.Item.ID == id {
			return i
		}
	}
	return -1
}

func (v *View) entry(id string) *Entry {
	if i := v.indexOf(id); i >= 0 {
		return v.entries[i]
	}
	return nil
}

func (v *View) insert(i int, e *Entry) {
	v.entries = append(v.entries, nil)
	copy(v.entries[i+1:], v.entries[i:])
	v.entries[i] = e
}

func (v *View) remove(i int) *Entry {
	e := v.entries[i]
	copy(v.entries[i:], v.entries[i+1:])
	v.entries[len(v.entries)-1] = nil
	v.entries = v.entries[:len(v.entries)-1]
	return e
}

func (v *View) moveTo(from, to int) {
	if from == to {
		return
	}
	v.insert(to, v.remove(from))
}

func (v *View) completed() int {
	n := 0
	for _, e := range v.entries {
		if e.Item.Done {
			n++
		}
	}
	return n
}

// clear removes every entry, firing ItemRemoved for each.
func (v *View) clear(h Hooks) {
	for _, e := range v.entries {
		h.ItemRemoved(e.Item.ID)
	}
	v.entries = nil
}

// resort moves the entry at i to its canonical position and reports the new
// index.
func (v *View) resort(i int, h Hooks) int {
	e := v.remove(i)
	to := 0
	for to < len(v.entries) && model.Less(v.entries[to].Item, e.Item) {
		to++
	}
	v.insert(to, e)
	if to != i {
		h.ItemMoved(e.Item, to)
	}
	return to
}
