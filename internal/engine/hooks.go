package engine

import (
	"sync"

	"todosync-cli/internal/model"
)

// Hooks receives the change events produced by reconciliation and optimistic
// updates. Hooks are called while the engine holds its lock, so
// implementations must not call back into the engine.
type Hooks interface {
	ItemInserted(it model.Item, index int)
	ItemUpdated(it model.Item)
	ItemMoved(it model.Item, newIndex int)
	ItemRemoved(id string)
	VisibilityChanged(id string, visible bool)
}

type EventKind string

const (
	EventInserted   EventKind = "inserted"
	EventUpdated    EventKind = "updated"
	EventMoved      EventKind = "moved"
	EventRemoved    EventKind = "removed"
	EventVisibility EventKind = "visibility"
)

// Event is the structured form of a single hook call.
type Event struct {
	Kind    EventKind   `json:"kind"`
	ID      string      `json:"id"`
	Item    *model.Item `json:"item,omitempty"`
	Index   *int        `json:"index,omitempty"`
	Visible *bool       `json:"visible,omitempty"`
}

// IsOrderChange reports whether the event changes membership or position.
func (ev Event) IsOrderChange() bool {
	switch ev.Kind {
	case EventInserted, EventMoved, EventRemoved:
		return true
	default:
		return false
	}
}

// HookFunc adapts a function receiving events to Hooks.
type HookFunc func(Event)

func (f HookFunc) ItemInserted(it model.Item, index int) {
	f(Event{Kind: EventInserted, ID: it.ID, Item: &it, Index: &index})
}

func (f HookFunc) ItemUpdated(it model.Item) {
	f(Event{Kind: EventUpdated, ID: it.ID, Item: &it})
}

func (f HookFunc) ItemMoved(it model.Item, newIndex int) {
	f(Event{Kind: EventMoved, ID: it.ID, Item: &it, Index: &newIndex})
}

func (f HookFunc) ItemRemoved(id string) {
	f(Event{Kind: EventRemoved, ID: id})
}

func (f HookFunc) VisibilityChanged(id string, visible bool) {
	f(Event{Kind: EventVisibility, ID: id, Visible: &visible})
}

// Recorder buffers events until drained. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) add(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) ItemInserted(it model.Item, index int) { HookFunc(r.add).ItemInserted(it, index) }
func (r *Recorder) ItemUpdated(it model.Item)             { HookFunc(r.add).ItemUpdated(it) }
func (r *Recorder) ItemMoved(it model.Item, newIndex int) { HookFunc(r.add).ItemMoved(it, newIndex) }
func (r *Recorder) ItemRemoved(id string)                 { HookFunc(r.add).ItemRemoved(id) }
func (r *Recorder) VisibilityChanged(id string, visible bool) {
	HookFunc(r.add).VisibilityChanged(id, visible)
}

// Drain returns the buffered events and clears the buffer.
func (r *Recorder) Drain() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

type nopHooks struct{}

func (nopHooks) ItemInserted(model.Item, int)   {}
func (nopHooks) ItemUpdated(model.Item)         {}
func (nopHooks) ItemMoved(model.Item, int)      {}
func (nopHooks) ItemRemoved(string)             {}
func (nopHooks) VisibilityChanged(string, bool) {}
