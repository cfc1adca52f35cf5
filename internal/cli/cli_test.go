package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todosync-cli/internal/api"
	"todosync-cli/internal/store"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Hints []string        `json:"_hints"`
}

type wireTask struct {
	ID     string  `json:"id"`
	Task   string  `json:"task"`
	IsDone bool    `json:"is_done"`
	Weight float64 `json:"weight"`
}

type wireList struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Slug  string     `json:"slug"`
	Tasks []wireTask `json:"tasks"`
}

// mustRun runs the CLI against a local database and decodes the envelope.
func mustRun(t *testing.T, db string, args ...string) envelope {
	t.Helper()
	out, errOut, err := runCLI(t, append([]string{"--local-db", db}, args...))
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, string(errOut))
	}
	var env envelope
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("%v: decode output: %v\n%s", args, err, string(out))
	}
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", string(raw), err)
	}
	return v
}

func seedList(t *testing.T, db string, tasks ...string) (wireList, []wireTask) {
	t.Helper()
	l := decode[wireList](t, mustRun(t, db, "lists", "create", "Chores").Data)
	var out []wireTask
	for _, text := range tasks {
		out = append(out, decode[wireTask](t, mustRun(t, db, "tasks", "add", l.Slug, text).Data))
	}
	return l, out
}

func taskIDs(ts []wireTask) []string {
	out := make([]string, 0, len(ts))
	for _, it := range ts {
		out = append(out, it.ID)
	}
	return out
}

func TestLists_Lifecycle(t *testing.T) {
	t.Parallel()
	db := filepath.Join(t.TempDir(), "todosync.db")

	env := mustRun(t, db, "lists", "create", "Chores")
	l := decode[wireList](t, env.Data)
	if l.Name != "Chores" || len(l.Slug) != store.SlugLen || l.Tasks == nil {
		t.Fatalf("unexpected list: %+v", l)
	}
	if len(env.Hints) != 1 || !strings.Contains(env.Hints[0], l.Slug) {
		t.Fatalf("expected hint with slug, got %v", env.Hints)
	}

	renamed := decode[wireList](t, mustRun(t, db, "lists", "rename", l.Slug, "House").Data)
	if renamed.Name != "House" || renamed.Slug != l.Slug {
		t.Fatalf("unexpected renamed list: %+v", renamed)
	}

	mustRun(t, db, "lists", "delete", l.Slug)
	_, errOut, err := runCLI(t, []string{"--local-db", db, "lists", "show", l.Slug})
	if err == nil {
		t.Fatalf("expected error showing deleted list")
	}
	if !strings.Contains(string(errOut), l.Slug) {
		t.Fatalf("expected slug in error, got %q", string(errOut))
	}
}

func TestTasks_AddWithPlacement(t *testing.T) {
	t.Parallel()
	db := filepath.Join(t.TempDir(), "todosync.db")
	l, ts := seedList(t, db, "a", "b")

	x := decode[wireTask](t, mustRun(t, db, "tasks", "add", l.Slug, "x", "--before", ts[1].ID).Data)
	if x.Weight != 150 {
		t.Fatalf("expected midpoint weight 150, got %v", x.Weight)
	}
	top := decode[wireTask](t, mustRun(t, db, "tasks", "add", l.Slug, "top", "--first").Data)

	got := decode[wireList](t, mustRun(t, db, "lists", "show", l.Slug).Data)
	want := []string{top.ID, ts[0].ID, x.ID, ts[1].ID}
	if g := taskIDs(got.Tasks); strings.Join(g, ",") != strings.Join(want, ",") {
		t.Fatalf("expected order %v, got %v", want, g)
	}

	_, _, err := runCLI(t, []string{"--local-db", db, "tasks", "add", l.Slug, "y", "--first", "--last"})
	if err == nil {
		t.Fatalf("expected conflicting placement flags to fail")
	}
}

func TestTasks_MoveGoesThroughEngine(t *testing.T) {
	t.Parallel()
	db := filepath.Join(t.TempDir(), "todosync.db")
	l, ts := seedList(t, db, "a", "b", "c")

	env := mustRun(t, db, "tasks", "move", l.Slug, ts[0].ID, "--after", ts[2].ID)
	moved := decode[wireTask](t, env.Data)
	if moved.ID != ts[0].ID || moved.Weight != 400 {
		t.Fatalf("unexpected moved task: %+v", moved)
	}
	order, _ := env.Meta["order"].([]any)
	if len(order) != 3 || order[2] != ts[0].ID {
		t.Fatalf("expected moved task last in order, got %v", env.Meta["order"])
	}

	if _, _, err := runCLI(t, []string{"--local-db", db, "tasks", "move", l.Slug, ts[0].ID}); err == nil {
		t.Fatalf("expected move without placement to fail")
	}
	_, errOut, err := runCLI(t, []string{"--local-db", db, "tasks", "move", l.Slug, "nope", "--first"})
	if err == nil || !strings.Contains(string(errOut), "task not found: nope") {
		t.Fatalf("expected not found, got err=%v stderr=%q", err, string(errOut))
	}
}

func TestTasks_DoneEditDelete(t *testing.T) {
	t.Parallel()
	db := filepath.Join(t.TempDir(), "todosync.db")
	l, ts := seedList(t, db, "a", "b")

	done := decode[wireTask](t, mustRun(t, db, "tasks", "done", l.Slug, ts[0].ID).Data)
	if !done.IsDone {
		t.Fatalf("expected task done: %+v", done)
	}
	edited := decode[wireTask](t, mustRun(t, db, "tasks", "edit", l.Slug, ts[1].ID, "B!").Data)
	if edited.Task != "B!" {
		t.Fatalf("expected edited text: %+v", edited)
	}

	env := mustRun(t, db, "lists", "show", l.Slug, "--show-completed=false")
	got := decode[wireList](t, env.Data)
	if len(got.Tasks) != 1 || got.Tasks[0].ID != ts[1].ID {
		t.Fatalf("expected only active task, got %+v", got.Tasks)
	}
	if env.Meta["hidden"] != float64(1) || env.Meta["toggle"] != "Show completed (1)" {
		t.Fatalf("unexpected meta: %v", env.Meta)
	}

	undone := decode[wireTask](t, mustRun(t, db, "tasks", "undone", l.Slug, ts[0].ID).Data)
	if undone.IsDone {
		t.Fatalf("expected task active again: %+v", undone)
	}

	mustRun(t, db, "tasks", "delete", l.Slug, ts[0].ID)
	_, errOut, err := runCLI(t, []string{"--local-db", db, "tasks", "delete", l.Slug, ts[0].ID})
	if err == nil || len(errOut) == 0 {
		t.Fatalf("expected second delete to fail with a message, got err=%v", err)
	}
}

func TestLists_ShowMarkdown(t *testing.T) {
	t.Parallel()
	db := filepath.Join(t.TempDir(), "todosync.db")
	l, ts := seedList(t, db, "alpha", "bravo")
	mustRun(t, db, "tasks", "done", l.Slug, ts[1].ID)

	out, errOut, err := runCLI(t, []string{"--local-db", db, "lists", "show", l.Slug, "--markdown", "--show-completed=false"})
	if err != nil {
		t.Fatalf("show markdown: %v\n%s", err, string(errOut))
	}
	s := string(out)
	if !strings.Contains(s, "Chores") || !strings.Contains(s, "alpha") {
		t.Fatalf("expected list name and task, got:\n%s", s)
	}
	if strings.Contains(s, "bravo") {
		t.Fatalf("expected completed task hidden, got:\n%s", s)
	}
}

func TestRoot_EDNFormat(t *testing.T) {
	t.Parallel()
	db := filepath.Join(t.TempDir(), "todosync.db")

	out, _, err := runCLI(t, []string{"--local-db", db, "--format", "edn", "lists", "create", "Chores"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s := string(out); !strings.HasPrefix(s, "{") || !strings.Contains(s, ":data") || !strings.Contains(s, `:name "Chores"`) {
		t.Fatalf("unexpected edn output: %s", s)
	}

	if _, _, err := runCLI(t, []string{"--local-db", db, "--format", "xml", "lists", "create", "x"}); err == nil {
		t.Fatalf("expected unknown format to fail")
	}
	if _, _, err := runCLI(t, []string{"--local-db", db, "--log-level", "loud", "lists", "create", "x"}); err == nil {
		t.Fatalf("expected invalid log level to fail")
	}
}

func TestRoot_UnreachableServerHint(t *testing.T) {
	t.Setenv("TODOSYNC_CONFIG_DIR", t.TempDir())

	// Nothing listens on a freshly closed port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	_, errOut, err := runCLI(t, []string{"--server", "http://" + addr, "lists", "show", "ABCD1234"})
	if err == nil {
		t.Fatalf("expected network error")
	}
	if !strings.Contains(string(errOut), "todosync serve") {
		t.Fatalf("expected serve hint, got %q", string(errOut))
	}
}

func TestWatch_OnceEmitsSnapshot(t *testing.T) {
	t.Setenv("TODOSYNC_CONFIG_DIR", t.TempDir())
	db := filepath.Join(t.TempDir(), "todosync.db")
	l, ts := seedList(t, db, "a", "b", "c")

	out, errOut, err := runCLI(t, []string{"--local-db", db, "watch", l.Slug, "--once"})
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, string(errOut))
	}

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		var line struct {
			At    string `json:"at"`
			Kind  string `json:"kind"`
			Event struct {
				ID    string `json:"id"`
				Index *int   `json:"index"`
			} `json:"event"`
		}
		if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		if line.Kind != "inserted" || line.At == "" || line.Event.Index == nil {
			t.Fatalf("unexpected event line: %s", sc.Text())
		}
		ids = append(ids, line.Event.ID)
	}
	if strings.Join(ids, ",") != strings.Join(taskIDs(ts), ",") {
		t.Fatalf("expected inserts in order %v, got %v", taskIDs(ts), ids)
	}
}

func TestWatch_StopsAfterDuration(t *testing.T) {
	t.Setenv("TODOSYNC_CONFIG_DIR", t.TempDir())
	db := filepath.Join(t.TempDir(), "todosync.db")
	l, _ := seedList(t, db, "a")

	start := time.Now()
	_, errOut, err := runCLI(t, []string{"--local-db", db, "watch", l.Slug, "--interval", "10ms", "--for", "100ms"})
	if err != nil {
		t.Fatalf("watch: %v\n%s", err, string(errOut))
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("watch did not stop")
	}
}

func TestConfig_SetAndShow(t *testing.T) {
	t.Setenv("TODOSYNC_CONFIG_DIR", t.TempDir())
	t.Setenv("TODOSYNC_SERVER", "")

	out, errOut, err := runCLI(t, []string{"config", "set", "server", "http://lists.internal:9000"})
	if err != nil {
		t.Fatalf("config set: %v\n%s", err, string(errOut))
	}
	if !strings.Contains(string(out), "lists.internal") {
		t.Fatalf("expected updated config in output, got %s", string(out))
	}
	if _, _, err := runCLI(t, []string{"config", "set", "poll_interval", "750ms"}); err != nil {
		t.Fatalf("config set poll_interval: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "set", "colour", "blue"}); err == nil {
		t.Fatalf("expected unknown key to fail")
	}

	out, _, err = runCLI(t, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	cfg := decode[map[string]any](t, env.Data)
	if cfg["server"] != "http://lists.internal:9000" || cfg["poll_interval"] != "750ms" {
		t.Fatalf("unexpected config: %v", cfg)
	}
	if env.Meta["server"] != "http://lists.internal:9000" {
		t.Fatalf("expected resolved server from config, got %v", env.Meta["server"])
	}

	out, _, err = runCLI(t, []string{"--server", "http://flag:1", "config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Meta["server"] != "http://flag:1" {
		t.Fatalf("expected flag to win, got %v", env.Meta["server"])
	}
}

func TestServeUntilDone_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, ":memory:", store.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	srv, err := api.NewServer(st, api.ServerConfig{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- serveUntilDone(ctx, ln, srv.Handler()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestCLI_Docs(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, []string{"docs"})
	if err != nil {
		t.Fatalf("docs: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	topics := decode[struct {
		Topics []string `json:"topics"`
	}](t, env.Data).Topics
	if strings.Join(topics, ",") != "api,sync,tui" {
		t.Fatalf("unexpected topics %v", topics)
	}

	out, _, err = runCLI(t, []string{"docs", "sync", "--raw"})
	if err != nil {
		t.Fatalf("docs sync: %v", err)
	}
	if !strings.HasPrefix(string(out), "#") {
		t.Fatalf("expected raw markdown, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"docs", "../sync"}); err == nil {
		t.Fatalf("expected unknown topic error")
	}
}
