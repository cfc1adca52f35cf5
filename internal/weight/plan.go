package weight

import (
	"errors"
	"sort"
	"strings"

	"todosync-cli/internal/model"
)

var ErrTargetNotFound = errors.New("target item not found")

// newSlotID marks the slot of an item that does not exist yet.
const newSlotID = "\x00new"

// Plan describes the keys needed to realize a placement.
// Keys includes other items whose keys were reassigned by a rebalance (never the
// moved item itself).
type Plan struct {
	Key          float64
	Keys         map[string]float64
	UsedFallback bool
}

// PlanPlacement computes the key for an item placed in items.
//
// movingID is empty when a new item is being created. The computation mirrors
// the list service rules:
//   - empty list (or only the moved item) -> InitialKey
//   - moving an item relative to itself -> its current key
//   - first -> min-Step, last/none -> max+Step
//   - before/after -> midpoint with the closest neighbor key, or +/-Step at the edges
//
// When the midpoint has no room (equal neighbor keys, precision exhausted or gap
// below MinGap) the smallest window of items around the insertion point is
// rebalanced.
func PlanPlacement(items []model.Item, movingID string, placement model.Placement, targetID string) (Plan, error) {
	movingID = strings.TrimSpace(movingID)
	targetID = strings.TrimSpace(targetID)

	if len(items) == 0 || (len(items) == 1 && movingID != "" && items[0].ID == movingID) {
		return Plan{Key: InitialKey}, nil
	}
	if movingID != "" && movingID == targetID {
		for _, it := range items {
			if it.ID == movingID {
				return Plan{Key: it.Key}, nil
			}
		}
		return Plan{}, ErrTargetNotFound
	}

	// Work on a key-ordered copy without the moved item.
	rest := make([]model.Item, 0, len(items))
	for _, it := range items {
		if movingID != "" && it.ID == movingID {
			continue
		}
		rest = append(rest, it)
	}
	if len(rest) == 0 {
		return Plan{Key: InitialKey}, nil
	}
	sortByKey(rest)

	var insertAt int
	switch placement {
	case model.PlaceFirst:
		return Plan{Key: rest[0].Key - Step}, nil
	case model.PlaceLast, "":
		return Plan{Key: rest[len(rest)-1].Key + Step}, nil
	case model.PlaceBefore, model.PlaceAfter:
		idx := indexOf(rest, targetID)
		if idx < 0 {
			return Plan{}, ErrTargetNotFound
		}
		insertAt = idx
		if placement == model.PlaceAfter {
			insertAt = idx + 1
		}
	default:
		return Plan{}, errors.New("unknown placement")
	}

	var low, high *float64
	if insertAt > 0 {
		low = &rest[insertAt-1].Key
	}
	if insertAt < len(rest) {
		high = &rest[insertAt].Key
	}
	k, err := Between(low, high)
	if err == nil && gapOK(low, high) {
		return Plan{Key: k}, nil
	}
	if err != nil && !errors.Is(err, ErrNoSpace) && !errors.Is(err, ErrBounds) {
		return Plan{}, err
	}
	return rebalance(rest, movingID, insertAt), nil
}

func gapOK(low, high *float64) bool {
	if low == nil || high == nil {
		return true
	}
	return (*high-*low)/2 >= MinGap
}

// rebalance spreads keys evenly over the smallest contiguous window around the
// insertion point whose outer bounds leave at least MinGap between keys.
func rebalance(rest []model.Item, movingID string, insertAt int) Plan {
	slotID := movingID
	if slotID == "" {
		slotID = newSlotID
	}
	final := make([]model.Item, 0, len(rest)+1)
	final = append(final, rest[:insertAt]...)
	final = append(final, model.Item{ID: slotID})
	final = append(final, rest[insertAt:]...)

	lo, hi := minimalValidWindow(final, insertAt)

	var lower, upper *float64
	if lo > 0 {
		lower = &final[lo-1].Key
	}
	if hi+1 < len(final) {
		upper = &final[hi+1].Key
	}
	size := hi - lo + 1

	res := Plan{Keys: map[string]float64{}, UsedFallback: true}
	for i := lo; i <= hi; i++ {
		n := float64(i - lo + 1)
		var k float64
		switch {
		case lower != nil && upper != nil:
			k = *lower + n*(*upper-*lower)/float64(size+1)
		case lower != nil:
			k = *lower + n*Step
		case upper != nil:
			k = *upper - float64(size+1-int(n))*Step
		default:
			k = n * Step
		}
		if final[i].ID == slotID {
			res.Key = k
			continue
		}
		res.Keys[final[i].ID] = k
	}
	return res
}

func minimalValidWindow(final []model.Item, movedIdx int) (lo, hi int) {
	valid := func(lo, hi int) bool {
		if lo == 0 || hi+1 >= len(final) {
			return true
		}
		lower := final[lo-1].Key
		upper := final[hi+1].Key
		return (upper-lower)/float64(hi-lo+2) >= MinGap
	}

	for size := 1; size <= len(final); size++ {
		startMin := movedIdx - (size - 1)
		if startMin < 0 {
			startMin = 0
		}
		startMax := movedIdx
		if startMax+size > len(final) {
			startMax = len(final) - size
		}
		for lo := startMin; lo <= startMax; lo++ {
			hi := lo + size - 1
			if valid(lo, hi) {
				return lo, hi
			}
		}
	}
	return 0, len(final) - 1
}

func sortByKey(items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Key != items[j].Key {
			return items[i].Key < items[j].Key
		}
		return items[i].ID < items[j].ID
	})
}

func indexOf(items []model.Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
