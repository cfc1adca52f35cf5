package remote

import (
	"context"
	"errors"
	"net/http"

	"todosync-cli/internal/engine"
	"todosync-cli/internal/model"
	"todosync-cli/internal/store"
)

// Local serves the engine straight from a store in the same process.
type Local struct {
	st *store.Store
}

func NewLocal(st *store.Store) *Local {
	return &Local{st: st}
}

func (l *Local) FetchList(ctx context.Context, slug string) (model.List, error) {
	out, err := l.st.GetList(ctx, slug)
	return out, classify("fetch", err)
}

func (l *Local) MoveItem(ctx context.Context, req model.MoveRequest) (model.MoveResult, error) {
	it, err := l.st.UpdateTask(ctx, req.Slug, req.DraggedID, model.ItemPatch{TargetID: req.TargetID, Placement: req.Placement})
	if err != nil {
		return model.MoveResult{}, classify("move", err)
	}
	return model.MoveResult{ID: it.ID, Key: it.Key}, nil
}

func (l *Local) CreateItem(ctx context.Context, slug string, in model.ItemCreate) (model.Item, error) {
	out, err := l.st.CreateTask(ctx, slug, in)
	return out, classify("create", err)
}

func (l *Local) UpdateItem(ctx context.Context, slug, itemID string, patch model.ItemPatch) (model.Item, error) {
	out, err := l.st.UpdateTask(ctx, slug, itemID, patch)
	return out, classify("update", err)
}

func (l *Local) DeleteItem(ctx context.Context, slug, itemID string) error {
	return classify("delete", l.st.DeleteTask(ctx, slug, itemID))
}

func (l *Local) CreateList(ctx context.Context, name string) (model.List, error) {
	out, err := l.st.CreateList(ctx, name)
	return out, classify("create list", err)
}

func (l *Local) UpdateList(ctx context.Context, slug, name string) (model.List, error) {
	out, err := l.st.UpdateList(ctx, slug, name)
	return out, classify("rename list", err)
}

func (l *Local) DeleteList(ctx context.Context, slug string) error {
	return classify("delete list", l.st.DeleteList(ctx, slug))
}

// classify maps store errors onto the engine taxonomy using the same status
// codes the HTTP API would answer with.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf store.NotFoundError
	var ve store.ValidationError
	switch {
	case errors.As(err, &nf):
		return &engine.RejectedError{Op: op, Status: http.StatusBadRequest, Message: nf.Error()}
	case errors.As(err, &ve):
		return &engine.RejectedError{Op: op, Status: http.StatusUnprocessableEntity, Message: ve.Msg}
	default:
		return &engine.NetworkError{Op: op, Err: err}
	}
}

var (
	_ engine.Remote = (*Local)(nil)
	_ engine.Remote = (*HTTP)(nil)
)
