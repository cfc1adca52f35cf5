package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Item is one entry of a list. JSON names follow the list service wire format.
type Item struct {
	ID   string  `json:"id"`
	Text string  `json:"task"`
	Done bool    `json:"is_done"`
	Key  float64 `json:"weight"`
}

type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Items []Item `json:"tasks"`
}

// Placement says where an item goes relative to a target (before/after) or the
// whole list (first/last).
type Placement string

const (
	PlaceBefore Placement = "before"
	PlaceAfter  Placement = "after"
	PlaceFirst  Placement = "first"
	PlaceLast   Placement = "last"
)

func ParsePlacement(s string) (Placement, error) {
	switch p := Placement(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return "", nil
	case PlaceBefore, PlaceAfter, PlaceFirst, PlaceLast:
		return p, nil
	default:
		return "", fmt.Errorf("invalid placement %q (expected before|after|first|last)", s)
	}
}

// NeedsTarget reports whether the placement is relative to another item.
func (p Placement) NeedsTarget() bool {
	return p == PlaceBefore || p == PlaceAfter
}

type ItemCreate struct {
	Text      string    `json:"task"`
	Done      *bool     `json:"is_done,omitempty"`
	TargetID  string    `json:"target_task,omitempty"`
	Placement Placement `json:"move_position,omitempty"`
}

func (c ItemCreate) Validate() error {
	return validatePlacement(c.Placement, c.TargetID)
}

// ItemPatch is a partial update. Nil fields are left unchanged.
type ItemPatch struct {
	Text      *string   `json:"task,omitempty"`
	Done      *bool     `json:"is_done,omitempty"`
	TargetID  string    `json:"target_task,omitempty"`
	Placement Placement `json:"move_position,omitempty"`
}

func (p ItemPatch) Validate() error {
	if p.Text == nil && p.Done == nil && p.Placement == "" && p.TargetID == "" {
		return errors.New("at least one field must be provided for update")
	}
	return validatePlacement(p.Placement, p.TargetID)
}

func validatePlacement(p Placement, targetID string) error {
	if _, err := ParsePlacement(string(p)); err != nil {
		return err
	}
	targetID = strings.TrimSpace(targetID)
	if p == "" && targetID != "" {
		return errors.New("target_task must be empty when move_position is empty")
	}
	if (p == PlaceFirst || p == PlaceLast) && targetID != "" {
		return errors.New("target_task must be empty when move_position is first or last")
	}
	if p.NeedsTarget() && targetID == "" {
		return fmt.Errorf("move_position %s requires target_task", p)
	}
	return nil
}

type MoveRequest struct {
	ListID    string
	Slug      string
	DraggedID string
	TargetID  string
	Placement Placement
}

type MoveResult struct {
	ID  string  `json:"id"`
	Key float64 `json:"weight"`
}

// Less is the canonical display order: active before completed, then by key.
// ID breaks ties so the order is total.
func Less(a, b Item) bool {
	if a.Done != b.Done {
		return !a.Done
	}
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.ID < b.ID
}

// SortItems sorts items in place using Less.
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Sorted returns a sorted copy of items.
func Sorted(items []Item) []Item {
	out := append([]Item(nil), items...)
	SortItems(out)
	return out
}

func (l List) Find(id string) (Item, bool) {
	for _, it := range l.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

func (l List) CompletedCount() int {
	n := 0
	for _, it := range l.Items {
		if it.Done {
			n++
		}
	}
	return n
}
