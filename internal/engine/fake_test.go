package engine

import (
	"context"
	"fmt"
	"sync"

	"todosync-cli/internal/model"
	"todosync-cli/internal/weight"
)

// fakeRemote is an in-memory list store with failure injection.
type fakeRemote struct {
	mu    sync.Mutex
	lists map[string]*model.List
	seq   int

	fetches int
	moves   int
	updates int

	fetchErr  error
	moveErr   error
	updateErr error

	// block holds fetches for a slug until the channel is closed.
	block   map[string]chan struct{}
	started chan string
	// updateBlock holds item updates until the channel is closed.
	updateBlock chan struct{}
	updated     chan string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		lists:   map[string]*model.List{},
		block:   map[string]chan struct{}{},
		started: make(chan string, 16),
		updated: make(chan string, 16),
	}
}

func (f *fakeRemote) seed(slug string, items ...model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[slug] = &model.List{ID: "id-" + slug, Name: slug, Slug: slug, Items: append([]model.Item(nil), items...)}
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeRemote) list(slug string) (*model.List, error) {
	l, ok := f.lists[slug]
	if !ok {
		return nil, &RejectedError{Op: "fetch", Status: 400, Message: "invalid todo list slug"}
	}
	return l, nil
}

func (f *fakeRemote) FetchList(ctx context.Context, slug string) (model.List, error) {
	f.mu.Lock()
	f.fetches++
	wait := f.block[slug]
	f.mu.Unlock()

	select {
	case f.started <- slug:
	default:
	}
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return model.List{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return model.List{}, f.fetchErr
	}
	l, err := f.list(slug)
	if err != nil {
		return model.List{}, err
	}
	out := *l
	out.Items = append([]model.Item(nil), l.Items...)
	return out, nil
}

func (f *fakeRemote) MoveItem(_ context.Context, req model.MoveRequest) (model.MoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves++
	if f.moveErr != nil {
		return model.MoveResult{}, f.moveErr
	}
	l, err := f.list(req.Slug)
	if err != nil {
		return model.MoveResult{}, err
	}
	plan, err := weight.PlanPlacement(l.Items, req.DraggedID, req.Placement, req.TargetID)
	if err != nil {
		return model.MoveResult{}, &RejectedError{Op: "move", Status: 400, Message: err.Error()}
	}
	for i := range l.Items {
		if k, ok := plan.Keys[l.Items[i].ID]; ok {
			l.Items[i].Key = k
		}
		if l.Items[i].ID == req.DraggedID {
			l.Items[i].Key = plan.Key
		}
	}
	return model.MoveResult{ID: req.DraggedID, Key: plan.Key}, nil
}

func (f *fakeRemote) CreateItem(_ context.Context, slug string, in model.ItemCreate) (model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(slug)
	if err != nil {
		return model.Item{}, err
	}
	plan, err := weight.PlanPlacement(l.Items, "", in.Placement, in.TargetID)
	if err != nil {
		return model.Item{}, &RejectedError{Op: "create", Status: 400, Message: err.Error()}
	}
	f.seq++
	it := model.Item{ID: fmt.Sprintf("new%d", f.seq), Text: in.Text, Key: plan.Key}
	l.Items = append(l.Items, it)
	return it, nil
}

func (f *fakeRemote) UpdateItem(ctx context.Context, slug, id string, patch model.ItemPatch) (model.Item, error) {
	f.mu.Lock()
	wait := f.updateBlock
	f.mu.Unlock()
	if wait != nil {
		f.updated <- id
		select {
		case <-wait:
		case <-ctx.Done():
			return model.Item{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return model.Item{}, f.updateErr
	}
	l, err := f.list(slug)
	if err != nil {
		return model.Item{}, err
	}
	for i := range l.Items {
		if l.Items[i].ID != id {
			continue
		}
		if patch.Text != nil {
			l.Items[i].Text = *patch.Text
		}
		if patch.Done != nil {
			l.Items[i].Done = *patch.Done
		}
		return l.Items[i], nil
	}
	return model.Item{}, &RejectedError{Op: "update", Status: 400, Message: "invalid todo task id"}
}

func (f *fakeRemote) DeleteItem(_ context.Context, slug, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(slug)
	if err != nil {
		return err
	}
	for i := range l.Items {
		if l.Items[i].ID == id {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return nil
		}
	}
	return &RejectedError{Op: "delete", Status: 400, Message: "invalid todo task id"}
}

func (f *fakeRemote) CreateList(_ context.Context, name string) (model.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	slug := fmt.Sprintf("L%07d", f.seq)
	l := &model.List{ID: "id-" + slug, Name: name, Slug: slug, Items: []model.Item{}}
	f.lists[slug] = l
	return *l, nil
}

func (f *fakeRemote) UpdateList(_ context.Context, slug, name string) (model.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, err := f.list(slug)
	if err != nil {
		return model.List{}, err
	}
	l.Name = name
	return *l, nil
}

func (f *fakeRemote) DeleteList(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.list(slug); err != nil {
		return err
	}
	delete(f.lists, slug)
	return nil
}

func item(id string, key float64, done bool) model.Item {
	return model.Item{ID: id, Text: "task " + id, Key: key, Done: done}
}

func entryIDs(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Item.ID)
	}
	return out
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
