package weight

import "errors"

const (
	// Step is the distance used when a key only has one neighbor.
	Step = 100.0
	// InitialKey is the key of the first item of an empty list.
	InitialKey = Step
	// MinGap is the smallest gap the planner accepts between adjacent keys
	// before it rebalances a window of items.
	MinGap = 1e-6
)

var (
	ErrBounds  = errors.New("weight: Between requires low < high")
	ErrNoSpace = errors.New("weight: no space between keys")
)

// Between returns a key strictly between low and high.
// Either bound may be nil (no lower bound / no upper bound).
//
// Keys are float64 and the algorithm is a plain midpoint, so repeated inserts
// between the same two neighbors eventually exhaust precision. That shows up
// as ErrNoSpace; callers decide whether to rebalance.
func Between(low, high *float64) (float64, error) {
	switch {
	case low == nil && high == nil:
		return InitialKey, nil
	case low == nil:
		return *high - Step, nil
	case high == nil:
		return *low + Step, nil
	}
	if !(*low < *high) {
		return 0, ErrBounds
	}
	mid := *low + (*high-*low)/2
	if !(*low < mid && mid < *high) {
		return 0, ErrNoSpace
	}
	return mid, nil
}

func After(low float64) float64 {
	k, _ := Between(&low, nil)
	return k
}

func Before(high float64) float64 {
	k, _ := Between(nil, &high)
	return k
}

func Initial() float64 {
	k, _ := Between(nil, nil)
	return k
}
