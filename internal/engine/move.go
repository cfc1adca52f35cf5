package engine

import (
	"todosync-cli/internal/model"
	"todosync-cli/internal/weight"
)

// optimisticMove places draggedID before/after targetID in the displayed
// order and gives it a provisional key from its new neighbors.
//
// Neighbors on the other side of the active/completed boundary count as
// absent. When the neighbors leave no room (equal keys or exhausted
// precision) the lower neighbor's key is used and only the position changes;
// the server computes the real key either way.
func optimisticMove(v *View, draggedID, targetID string, p model.Placement, h Hooks) error {
	from := v.indexOf(draggedID)
	if from < 0 || (p.NeedsTarget() && v.indexOf(targetID) < 0) {
		return ErrTargetGone
	}
	if p.NeedsTarget() && draggedID == targetID {
		return nil
	}

	e := v.remove(from)
	var at int
	switch p {
	case model.PlaceBefore:
		at = v.indexOf(targetID)
	case model.PlaceAfter:
		at = v.indexOf(targetID) + 1
	case model.PlaceFirst:
		at = 0
	default:
		at = len(v.entries)
	}

	// Clamp into the dragged item's partition.
	lo, hi := partition(v, e.Item.Done)
	if at < lo {
		at = lo
	}
	if at > hi {
		at = hi
	}

	var low, high *float64
	if at > lo {
		k := v.entries[at-1].Item.Key
		low = &k
	}
	if at < hi {
		k := v.entries[at].Item.Key
		high = &k
	}
	key, err := weight.Between(low, high)
	if err != nil {
		key = *low
	}

	v.insert(at, e)
	e.UI.Pending = true
	if e.Item.Key != key {
		e.Item.Key = key
		h.ItemUpdated(e.Item)
	}
	if at != from {
		h.ItemMoved(e.Item, at)
	}
	return nil
}

// partition returns the index range [lo, hi) of entries with the given
// completion flag.
func partition(v *View, done bool) (lo, hi int) {
	lo = 0
	for lo < len(v.entries) && !v.entries[lo].Item.Done && done {
		lo++
	}
	hi = lo
	for hi < len(v.entries) && v.entries[hi].Item.Done == done {
		hi++
	}
	return lo, hi
}

// dropPlacement derives the placement for a drop: dragging downward lands
// after the target, otherwise before it.
func dropPlacement(v *View, draggedID, targetID string) model.Placement {
	from, to := v.indexOf(draggedID), v.indexOf(targetID)
	if from >= 0 && to >= 0 && from < to {
		return model.PlaceAfter
	}
	return model.PlaceBefore
}
