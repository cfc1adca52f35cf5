package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"todosync-cli/internal/model"
	"todosync-cli/internal/store"
)

func newTestServer(t *testing.T, prefix string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"), store.Options{Logger: logger})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	srv, err := NewServer(st, ServerConfig{Prefix: prefix, Logger: logger})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestServer_ListAndTaskLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")

	var l model.List
	if code := do(t, http.MethodPost, ts.URL+"/lists/", map[string]any{"name": "Groceries"}, &l); code != http.StatusOK {
		t.Fatalf("create list: status %d", code)
	}
	if l.Slug == "" || l.Name != "Groceries" {
		t.Fatalf("unexpected list: %+v", l)
	}

	var a, b model.Item
	do(t, http.MethodPost, ts.URL+"/lists/"+l.Slug+"/tasks", map[string]any{"task": "milk"}, &a)
	do(t, http.MethodPost, ts.URL+"/lists/"+l.Slug+"/tasks", map[string]any{"task": "eggs"}, &b)

	var moved model.Item
	code := do(t, http.MethodPut, ts.URL+"/lists/"+l.Slug+"/tasks/"+a.ID,
		map[string]any{"target_task": b.ID, "move_position": "after"}, &moved)
	if code != http.StatusOK || moved.Key <= b.Key {
		t.Fatalf("move: status %d item %+v", code, moved)
	}

	var got model.List
	do(t, http.MethodGet, ts.URL+"/lists/"+l.Slug, nil, &got)
	if len(got.Items) != 2 || got.Items[0].ID != b.ID || got.Items[1].ID != a.ID {
		t.Fatalf("unexpected order: %+v", got.Items)
	}

	var ok map[string]bool
	if code := do(t, http.MethodDelete, ts.URL+"/lists/"+l.Slug+"/tasks/"+b.ID, nil, &ok); code != http.StatusOK || !ok["success"] {
		t.Fatalf("delete task: status %d body %v", code, ok)
	}
	var renamed model.List
	do(t, http.MethodPut, ts.URL+"/lists/"+l.Slug, map[string]any{"name": "Food"}, &renamed)
	if renamed.Name != "Food" || len(renamed.Items) != 1 {
		t.Fatalf("unexpected renamed list: %+v", renamed)
	}
	if code := do(t, http.MethodDelete, ts.URL+"/lists/"+l.Slug, nil, &ok); code != http.StatusOK {
		t.Fatalf("delete list: status %d", code)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	var l model.List
	do(t, http.MethodPost, ts.URL+"/lists/", map[string]any{"name": "x"}, &l)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{"unknown list", http.MethodGet, "/lists/NOPE0000", nil, 400, "invalid todo list slug"},
		{"unknown task", http.MethodPut, "/lists/" + l.Slug + "/tasks/nope", map[string]any{"is_done": true}, 400, "invalid todo task id"},
		{"unknown target", http.MethodPost, "/lists/" + l.Slug + "/tasks", map[string]any{"task": "t", "target_task": "nope", "move_position": "before"}, 400, "invalid todo task id"},
		{"target without placement", http.MethodPost, "/lists/" + l.Slug + "/tasks", map[string]any{"task": "t", "target_task": "x"}, 422, "validation error"},
		{"bad placement", http.MethodPost, "/lists/" + l.Slug + "/tasks", map[string]any{"task": "t", "move_position": "sideways"}, 422, "validation error"},
		{"empty patch", http.MethodPut, "/lists/" + l.Slug + "/tasks/nope", map[string]any{}, 422, "validation error"},
		{"long name", http.MethodPost, "/lists/", map[string]any{"name": strings.Repeat("n", 101)}, 422, "validation error"},
	}
	for _, tt := range tests {
		var body ErrorBody
		code := do(t, tt.method, ts.URL+tt.path, tt.body, &body)
		if code != tt.status || !body.Error || body.Message != tt.message {
			t.Fatalf("%s: expected %d %q, got %d %+v", tt.name, tt.status, tt.message, code, body)
		}
	}
}

func TestServer_PrefixHealthAndMetrics(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "api/")

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: status %d", resp.StatusCode)
	}

	var l model.List
	if code := do(t, http.MethodPost, ts.URL+"/api/lists/", map[string]any{"name": "p"}, &l); code != http.StatusOK {
		t.Fatalf("create list under prefix: status %d", code)
	}

	resp, err = http.Get(ts.URL + "/api/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `todosync_api_requests_total{code="200",op="create_list"} 1`) {
		t.Fatalf("expected request counter in metrics output, got:\n%s", b)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, "")
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/lists/ABC", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://example.test" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}
}
