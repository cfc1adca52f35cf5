package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"todosync-cli/internal/model"
)

// Remote is the authoritative list store as seen by the engine.
type Remote interface {
	FetchList(ctx context.Context, slug string) (model.List, error)
	MoveItem(ctx context.Context, req model.MoveRequest) (model.MoveResult, error)
	CreateItem(ctx context.Context, slug string, in model.ItemCreate) (model.Item, error)
	UpdateItem(ctx context.Context, slug, itemID string, patch model.ItemPatch) (model.Item, error)
	DeleteItem(ctx context.Context, slug, itemID string) error
	CreateList(ctx context.Context, name string) (model.List, error)
	UpdateList(ctx context.Context, slug, name string) (model.List, error)
	DeleteList(ctx context.Context, slug string) error
}

// Session is the explicit UI context: which list is active, whether the user
// is interacting, and whether completed items are shown.
type Session struct {
	ListID string
	Slug   string
	Name   string
	// Generation changes on every Open; responses from an older generation
	// are stale.
	Generation    uint64
	Interacting   bool
	ShowCompleted bool
}

type Options struct {
	Hooks         Hooks
	Logger        *slog.Logger
	ShowCompleted bool
}

// Engine owns the local view of one list and keeps it in sync with a Remote.
// Holding mu is one event-loop turn: the view is only mutated under it, and
// remote calls are made without it.
type Engine struct {
	remote Remote
	hooks  Hooks
	log    *slog.Logger

	mu       sync.Mutex
	session  Session
	view     View
	last     []model.Item  // last applied server snapshot
	inflight chan struct{} // closed when the outstanding fetch finishes

	// mutating counts user actions whose request is outstanding; mutations
	// counts every action ever started. Background fetches are held while
	// mutating > 0 and dropped when mutations moved during the fetch.
	mutating  int
	mutations uint64
}

func New(r Remote, opts Options) *Engine {
	h := opts.Hooks
	if h == nil {
		h = nopHooks{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		remote:  r,
		hooks:   h,
		log:     logger,
		session: Session{ShowCompleted: opts.ShowCompleted},
	}
}

func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Entries returns a copy of the displayed entries, hidden ones included.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.Snapshot()
}

func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter().Summarize(&e.view)
}

func (e *Engine) filter() Filter {
	return Filter{ShowCompleted: e.session.ShowCompleted}
}

// Open makes slug the active list and loads it. Responses still outstanding
// for the previous list become stale.
func (e *Engine) Open(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ErrNoList
	}
	e.mu.Lock()
	e.session.Generation++
	e.session.Slug = slug
	e.session.ListID = ""
	e.session.Name = ""
	e.view.clear(e.hooks)
	e.last = nil
	e.inflight = nil
	e.mu.Unlock()

	_, err := e.refresh(ctx, false)
	return err
}

// Close forgets the active list.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Generation++
	e.session.Slug = ""
	e.session.ListID = ""
	e.session.Name = ""
	e.view.clear(e.hooks)
	e.last = nil
	e.inflight = nil
}

// Refresh fetches and reconciles the active list. It is not gated by
// interaction; when another fetch is outstanding it waits for it and then
// fetches again.
func (e *Engine) Refresh(ctx context.Context) (Stats, error) {
	return e.refresh(ctx, false)
}

// BackgroundRefresh is the scheduled variant: it is skipped while the user
// interacts or while another fetch is outstanding.
func (e *Engine) BackgroundRefresh(ctx context.Context) (Stats, error) {
	return e.refresh(ctx, true)
}

func (e *Engine) refresh(ctx context.Context, background bool) (Stats, error) {
	for {
		e.mu.Lock()
		if e.session.Slug == "" {
			e.mu.Unlock()
			return Stats{}, ErrNoList
		}
		if background && (e.session.Interacting || e.mutating > 0) {
			e.mu.Unlock()
			return Stats{}, errSuspended
		}
		if wait := e.inflight; wait != nil {
			e.mu.Unlock()
			if background {
				return Stats{}, ErrRefreshInFlight
			}
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return Stats{}, ctx.Err()
			}
		}
		done := make(chan struct{})
		e.inflight = done
		gen, slug, muts := e.session.Generation, e.session.Slug, e.mutations
		e.mu.Unlock()

		list, err := e.remote.FetchList(ctx, slug)

		e.mu.Lock()
		if e.inflight == done {
			e.inflight = nil
		}
		close(done)
		if gen != e.session.Generation {
			e.mu.Unlock()
			return Stats{}, ErrStaleContext
		}
		if err != nil {
			e.mu.Unlock()
			return Stats{}, err
		}
		if background && (e.mutating > 0 || muts != e.mutations) {
			// The snapshot may predate a user action; the action's own
			// refresh reconciles instead.
			e.mu.Unlock()
			return Stats{}, errSuspended
		}
		st := e.applyLocked(list)
		e.mu.Unlock()
		return st, nil
	}
}

func (e *Engine) applyLocked(list model.List) Stats {
	e.session.ListID = list.ID
	e.session.Name = list.Name
	e.last = append([]model.Item(nil), list.Items...)
	return Reconcile(&e.view, list.Items, e.filter(), e.hooks)
}

// correct is the failure path of a user action: reconcile against a fresh
// fetch, or against the last server snapshot when the fetch fails too.
func (e *Engine) correct(ctx context.Context, gen uint64) {
	_, err := e.refresh(ctx, false)
	if err == nil || errors.Is(err, ErrStaleContext) {
		return
	}
	e.log.Debug("corrective refresh failed; restoring last snapshot", slog.Any("err", err))
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.session.Generation {
		Reconcile(&e.view, e.last, e.filter(), e.hooks)
	}
}

// settle finishes a user action once the remote call returned: stale
// responses are dropped, failures get a corrective pass, and successes are
// followed by a fresh fetch.
func (e *Engine) settle(ctx context.Context, gen uint64, err error) error {
	e.mu.Lock()
	stale := gen != e.session.Generation
	e.mu.Unlock()
	if stale {
		return ErrStaleContext
	}
	if err != nil {
		e.correct(ctx, gen)
		return err
	}
	if _, ferr := e.refresh(ctx, false); ferr != nil && !errors.Is(ferr, ErrStaleContext) {
		e.log.Debug("refresh after mutation failed", slog.Any("err", ferr))
	}
	return nil
}

// beginLocked captures the active list for a user action and holds
// background refreshes until the returned release is called.
func (e *Engine) beginLocked() (gen uint64, slug string, release func(), err error) {
	if e.session.Slug == "" {
		return 0, "", func() {}, ErrNoList
	}
	e.mutating++
	e.mutations++
	var once sync.Once
	release = func() {
		once.Do(func() {
			e.mu.Lock()
			e.mutating--
			e.mu.Unlock()
		})
	}
	return e.session.Generation, e.session.Slug, release, nil
}

// Mutating reports whether a user action is waiting on the server.
func (e *Engine) Mutating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mutating > 0
}

// Move reorders draggedID relative to targetID: the view is updated
// immediately with a provisional key, then the server is asked for the real
// one.
func (e *Engine) Move(ctx context.Context, draggedID, targetID string, p model.Placement) error {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	defer release()
	if draggedID == targetID && p.NeedsTarget() {
		e.mu.Unlock()
		return nil
	}
	if err := optimisticMove(&e.view, draggedID, targetID, p, e.hooks); err != nil {
		e.mu.Unlock()
		e.correct(ctx, gen)
		return err
	}
	req := model.MoveRequest{
		ListID:    e.session.ListID,
		Slug:      slug,
		DraggedID: draggedID,
		TargetID:  targetID,
		Placement: p,
	}
	e.mu.Unlock()

	res, err := e.remote.MoveItem(ctx, req)
	if err == nil {
		e.mu.Lock()
		if gen == e.session.Generation {
			if en := e.view.entry(res.ID); en != nil && en.Item.Key != res.Key {
				en.Item.Key = res.Key
				e.hooks.ItemUpdated(en.Item)
			}
		}
		e.mu.Unlock()
	}
	return e.settle(ctx, gen, err)
}

// Placement returns the placement a drop of draggedID onto targetID implies.
func (e *Engine) Placement(draggedID, targetID string) model.Placement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return dropPlacement(&e.view, draggedID, targetID)
}

// Toggle flips the completion flag. The flag and the resulting position are
// applied before the server confirms.
func (e *Engine) Toggle(ctx context.Context, id string) error {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	defer release()
	i := e.view.indexOf(id)
	if i < 0 {
		e.mu.Unlock()
		e.correct(ctx, gen)
		return ErrTargetGone
	}
	en := e.view.entries[i]
	done := !en.Item.Done
	en.Item.Done = done
	en.UI.Pending = true
	e.hooks.ItemUpdated(en.Item)
	if vis := e.filter().Visible(en.Item); vis != en.Visible {
		en.Visible = vis
		e.hooks.VisibilityChanged(id, vis)
	}
	e.view.resort(i, e.hooks)
	e.mu.Unlock()

	_, err = e.remote.UpdateItem(ctx, slug, id, model.ItemPatch{Done: &done})
	return e.settle(ctx, gen, err)
}

// Edit replaces the item's text.
func (e *Engine) Edit(ctx context.Context, id, text string) error {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	if en := e.view.entry(id); en != nil {
		en.UI.Editing = false
		en.UI.Draft = ""
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}
	defer release()

	_, err = e.remote.UpdateItem(ctx, slug, id, model.ItemPatch{Text: &text})
	return e.settle(ctx, gen, err)
}

// Create adds an item. An empty placement appends it.
func (e *Engine) Create(ctx context.Context, text string, p model.Placement, targetID string) (model.Item, error) {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	e.mu.Unlock()
	if err != nil {
		return model.Item{}, err
	}
	defer release()

	it, err := e.remote.CreateItem(ctx, slug, model.ItemCreate{Text: text, Placement: p, TargetID: targetID})
	return it, e.settle(ctx, gen, err)
}

func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	defer release()

	err = e.remote.DeleteItem(ctx, slug, id)
	return e.settle(ctx, gen, err)
}

func (e *Engine) RenameList(ctx context.Context, name string) error {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	defer release()

	_, err = e.remote.UpdateList(ctx, slug, name)
	return e.settle(ctx, gen, err)
}

// DeleteList deletes the active list and closes it.
func (e *Engine) DeleteList(ctx context.Context) error {
	e.mu.Lock()
	gen, slug, release, err := e.beginLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	defer release()

	if err := e.remote.DeleteList(ctx, slug); err != nil {
		return e.settle(ctx, gen, err)
	}
	e.mu.Lock()
	stale := gen != e.session.Generation
	e.mu.Unlock()
	if stale {
		return ErrStaleContext
	}
	e.Close()
	return nil
}

// CreateList creates a list and opens it.
func (e *Engine) CreateList(ctx context.Context, name string) (model.List, error) {
	l, err := e.remote.CreateList(ctx, name)
	if err != nil {
		return model.List{}, err
	}
	return l, e.Open(ctx, l.Slug)
}

// SetEditing attaches (or clears) an inline edit draft to an entry. The draft
// survives background reconciliation.
func (e *Engine) SetEditing(id string, editing bool, draft string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	en := e.view.entry(id)
	if en == nil {
		return false
	}
	en.UI.Editing = editing
	en.UI.Draft = draft
	if !editing {
		en.UI.Draft = ""
	}
	return true
}

// ToggleCompleted flips completed-item visibility.
func (e *Engine) ToggleCompleted() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.filter()
	s := f.Toggle(&e.view, e.hooks)
	e.session.ShowCompleted = f.ShowCompleted
	return s
}

func (e *Engine) setInteracting(v bool) {
	e.mu.Lock()
	e.session.Interacting = v
	e.mu.Unlock()
}
