package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"todosync-cli/internal/model"
)

func TestWrite_JSONAndEDN(t *testing.T) {
	t.Parallel()
	it := model.Item{ID: "a", Text: "milk", Done: true, Key: 150.5}

	var js bytes.Buffer
	if err := Write(&js, it, "json", false); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got := strings.TrimSpace(js.String()); got != `{"id":"a","task":"milk","is_done":true,"weight":150.5}` {
		t.Fatalf("unexpected json: %s", got)
	}

	var edn bytes.Buffer
	if err := Write(&edn, map[string]any{"data": it, "count": 2, "tags": []string{}}, "edn", false); err != nil {
		t.Fatalf("edn: %v", err)
	}
	want := `{:count 2 :data {:id "a" :is-done true :task "milk" :weight 150.5} :tags []}`
	if got := strings.TrimSpace(edn.String()); got != want {
		t.Fatalf("unexpected edn:\n got %s\nwant %s", got, want)
	}

	if err := Write(&edn, it, "yaml", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if !ValidFormat("EDN") || ValidFormat("xml") {
		t.Fatalf("unexpected ValidFormat results")
	}
}

func TestWriteEDN_Pretty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WriteEDN(&buf, map[string]any{"a": []int{1, 2}}, true); err != nil {
		t.Fatalf("edn: %v", err)
	}
	want := "{\n  :a [\n    1\n    2\n  ]\n}\n"
	if buf.String() != want {
		t.Fatalf("unexpected pretty edn:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestWriteEvent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := WriteEvent(&buf, "moved", map[string]any{"id": "a", "index": 2}, at); err != nil {
		t.Fatalf("event: %v", err)
	}
	if err := WriteEvent(&buf, "tick", nil, at); err != nil {
		t.Fatalf("event: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one line per event, got %q", buf.String())
	}
	var ev struct {
		At    string         `json:"at"`
		Kind  string         `json:"kind"`
		Event map[string]any `json:"event"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.At != "2024-05-01T12:00:00Z" || ev.Kind != "moved" || ev.Event["id"] != "a" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if strings.Contains(lines[1], `"event"`) {
		t.Fatalf("expected empty event to be omitted: %s", lines[1])
	}
}

func TestListMarkdown(t *testing.T) {
	t.Parallel()
	l := model.List{Name: "Chores", Slug: "ABCD1234", Items: []model.Item{
		{ID: "c", Text: "done thing", Done: true, Key: 1},
		{ID: "b", Text: "second", Key: 200},
		{ID: "a", Text: "first", Key: 100},
	}}

	md := ListMarkdown(l, false)
	want := "# Chores\n\n- [ ] first\n- [ ] second\n\n_1 completed task hidden_\n"
	if md != want {
		t.Fatalf("unexpected markdown:\n%q\nwant\n%q", md, want)
	}
	md = ListMarkdown(l, true)
	if !strings.Contains(md, "- [x] done thing") || strings.Contains(md, "hidden") {
		t.Fatalf("expected completed item shown, got:\n%s", md)
	}
	if md := ListMarkdown(model.List{Slug: "EMPTY000"}, false); !strings.Contains(md, "# EMPTY000") || !strings.Contains(md, "_No tasks._") {
		t.Fatalf("unexpected empty markdown:\n%s", md)
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()
	out, err := RenderMarkdown("# Title\n\n- [ ] one\n", 40, "notty")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "one") {
		t.Fatalf("unexpected render output: %q", out)
	}
}
