package engine

import "todosync-cli/internal/model"

// Stats counts the change operations of one reconciliation pass.
type Stats struct {
	Inserted  int
	Updated   int
	Moved     int
	Removed   int
	Completed int
}

// Changes is the number of operations that fired a hook.
func (s Stats) Changes() int {
	return s.Inserted + s.Updated + s.Moved + s.Removed
}

// Reconcile merges snapshot into v with the fewest operations: absent entries
// are removed, surviving entries are updated only when a field differs and
// moved only when their index differs, and new entries are inserted at their
// sorted position. UI state of surviving entries is kept; the Pending marker
// is cleared because the snapshot is authoritative.
func Reconcile(v *View, snapshot []model.Item, f Filter, h Hooks) Stats {
	if h == nil {
		h = nopHooks{}
	}

	sorted := dedupe(model.Sorted(snapshot))
	present := make(map[string]struct{}, len(sorted))
	for _, it := range sorted {
		present[it.ID] = struct{}{}
	}

	var st Stats
	for i := len(v.entries) - 1; i >= 0; i-- {
		id := v.entries[i].Item.ID
		if _, ok := present[id]; ok {
			continue
		}
		v.remove(i)
		h.ItemRemoved(id)
		st.Removed++
	}

	for i, it := range sorted {
		j := v.indexOf(it.ID)
		if j < 0 {
			e := &Entry{Item: it, Visible: f.Visible(it)}
			v.insert(i, e)
			h.ItemInserted(it, i)
			if !e.Visible {
				h.VisibilityChanged(it.ID, false)
			}
			st.Inserted++
			continue
		}

		e := v.entries[j]
		e.UI.Pending = false
		if e.Item != it {
			e.Item = it
			h.ItemUpdated(it)
			st.Updated++
			if vis := f.Visible(it); vis != e.Visible {
				e.Visible = vis
				h.VisibilityChanged(it.ID, vis)
			}
		}
		if j != i {
			v.moveTo(j, i)
			h.ItemMoved(it, i)
			st.Moved++
		}
	}

	st.Completed = v.completed()
	return st
}

// dedupe keeps the first occurrence of each ID.
func dedupe(items []model.Item) []model.Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
