package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"todosync-cli/internal/engine"
	"todosync-cli/internal/model"
)

// HTTP talks to the list service API.
type HTTP struct {
	base   string
	client *http.Client
}

type HTTPOptions struct {
	// Client defaults to an *http.Client with a 10s timeout.
	Client *http.Client
}

func NewHTTP(baseURL string, opts HTTPOptions) (*HTTP, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote: empty server URL")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote: unsupported scheme %q", u.Scheme)
	}
	c := opts.Client
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{base: baseURL, client: c}, nil
}

func (h *HTTP) BaseURL() string { return h.base }

func (h *HTTP) FetchList(ctx context.Context, slug string) (model.List, error) {
	var out model.List
	err := h.do(ctx, "fetch", http.MethodGet, listPath(slug), nil, &out)
	return out, err
}

func (h *HTTP) MoveItem(ctx context.Context, req model.MoveRequest) (model.MoveResult, error) {
	body := model.ItemPatch{TargetID: req.TargetID, Placement: req.Placement}
	var it model.Item
	if err := h.do(ctx, "move", http.MethodPut, taskPath(req.Slug, req.DraggedID), body, &it); err != nil {
		return model.MoveResult{}, err
	}
	return model.MoveResult{ID: it.ID, Key: it.Key}, nil
}

func (h *HTTP) CreateItem(ctx context.Context, slug string, in model.ItemCreate) (model.Item, error) {
	var out model.Item
	err := h.do(ctx, "create", http.MethodPost, listPath(slug)+"/tasks", in, &out)
	return out, err
}

func (h *HTTP) UpdateItem(ctx context.Context, slug, itemID string, patch model.ItemPatch) (model.Item, error) {
	var out model.Item
	err := h.do(ctx, "update", http.MethodPut, taskPath(slug, itemID), patch, &out)
	return out, err
}

func (h *HTTP) DeleteItem(ctx context.Context, slug, itemID string) error {
	return h.do(ctx, "delete", http.MethodDelete, taskPath(slug, itemID), nil, nil)
}

func (h *HTTP) CreateList(ctx context.Context, name string) (model.List, error) {
	var out model.List
	err := h.do(ctx, "create list", http.MethodPost, "/lists/", map[string]string{"name": name}, &out)
	return out, err
}

func (h *HTTP) UpdateList(ctx context.Context, slug, name string) (model.List, error) {
	var out model.List
	err := h.do(ctx, "rename list", http.MethodPut, listPath(slug), map[string]string{"name": name}, &out)
	return out, err
}

func (h *HTTP) DeleteList(ctx context.Context, slug string) error {
	return h.do(ctx, "delete list", http.MethodDelete, listPath(slug), nil, nil)
}

func listPath(slug string) string {
	return "/lists/" + url.PathEscape(strings.TrimSpace(slug))
}

func taskPath(slug, id string) string {
	return listPath(slug) + "/tasks/" + url.PathEscape(strings.TrimSpace(id))
}

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// do sends one JSON request. Transport failures become *engine.NetworkError,
// non-2xx answers *engine.RejectedError.
func (h *HTTP) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &engine.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &engine.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &eb) == nil && eb.Message != "" {
			msg = eb.Message
			if eb.Details != "" {
				msg += ": " + eb.Details
			}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &engine.RejectedError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &engine.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
