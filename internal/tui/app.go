package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"todosync-cli/internal/engine"
	"todosync-cli/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type mode int

const (
	modeList mode = iota
	modeEdit
	modeAdd
	modeRename
	modeNewList
	modeConfirmDelete
	modeGrab
)

type tickMsg struct{}

type tickDoneMsg struct {
	res engine.TickResult
}

// opDoneMsg reports a finished engine call started from a key press.
type opDoneMsg struct {
	op  string
	err error
}

type appModel struct {
	ctx   context.Context
	eng   *engine.Engine
	sched *engine.Scheduler
	rec   *engine.Recorder
	log   *slog.Logger

	width  int
	height int

	mode mode
	// cursor is the selected item id; cursorIdx is its last known row, used
	// when the item disappears.
	cursor    string
	cursorIdx int

	input    textinput.Model
	editing  string
	deleting string
	drag     *engine.Drag
	target   string
	slug     string

	status    string
	statusErr bool
}

func newAppModel(ctx context.Context, opts Options) appModel {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := &engine.Recorder{}
	eng := engine.New(opts.Remote, engine.Options{
		Hooks:         rec,
		Logger:        logger,
		ShowCompleted: opts.ShowCompleted,
	})
	sched := engine.NewScheduler(eng, engine.SchedulerOptions{
		Interval:   opts.PollInterval,
		DragGrace:  opts.DragGrace,
		InputGrace: opts.InputGrace,
		Logger:     logger,
	})

	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 255

	return appModel{
		ctx:   ctx,
		eng:   eng,
		sched: sched,
		rec:   rec,
		log:   logger,
		slug:  strings.TrimSpace(opts.Slug),
		input: in,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.openCmd(m.slug), m.tickCmd())
}

func (m appModel) tickCmd() tea.Cmd {
	return tea.Tick(m.sched.Interval(), func(time.Time) tea.Msg { return tickMsg{} })
}

func (m appModel) openCmd(slug string) tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: "open", err: eng.Open(ctx, slug)}
	}
}

// engineCmd runs fn off the UI loop and reports back with opDoneMsg.
func (m appModel) engineCmd(op string, fn func(ctx context.Context, e *engine.Engine) error) tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx, eng)}
	}
}

// heldCmd is engineCmd with polling suspended from now until fn returns and
// the input grace delay has passed.
func (m appModel) heldCmd(op string, fn func(ctx context.Context, e *engine.Engine) error) tea.Cmd {
	m.sched.BeginInteraction()
	return m.releaseCmd(op, fn)
}

// releaseCmd runs fn and then ends the interaction already in progress.
func (m appModel) releaseCmd(op string, fn func(ctx context.Context, e *engine.Engine) error) tea.Cmd {
	eng, ctx, sched := m.eng, m.ctx, m.sched
	return func() tea.Msg {
		defer sched.EndInput()
		return opDoneMsg{op: op, err: fn(ctx, eng)}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.bodyWidth() - 12
		return m, nil

	case tickMsg:
		sched, ctx := m.sched, m.ctx
		return m, func() tea.Msg { return tickDoneMsg{res: sched.Tick(ctx)} }

	case tickDoneMsg:
		if n := m.sync(); n > 0 && !m.statusErr {
			m.setStatus(fmt.Sprintf("synced %d change(s)", n), false)
		}
		if msg.res != engine.Fetched {
			m.log.Debug("tick", slog.String("result", msg.res.String()))
		}
		return m, m.tickCmd()

	case opDoneMsg:
		m.sync()
		m.report(msg)
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeEdit, modeAdd, modeRename, modeNewList:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		case modeGrab:
			return m.updateGrab(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "j", "down":
		m.step(1)
	case "k", "up":
		m.step(-1)
	case " ", "space":
		if id := m.cursor; id != "" {
			return m, m.heldCmd("toggle", func(ctx context.Context, e *engine.Engine) error {
				return e.Toggle(ctx, id)
			})
		}
	case "e":
		en, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editing = en.Item.ID
		m.eng.SetEditing(en.Item.ID, true, en.Item.Text)
		return m.beginInput(modeEdit, en.Item.Text)
	case "a":
		return m.beginInput(modeAdd, "")
	case "n":
		if m.eng.Session().Slug == "" {
			return m, nil
		}
		return m.beginInput(modeRename, m.eng.Session().Name)
	case "N":
		return m.beginInput(modeNewList, "")
	case "d":
		if m.cursor != "" {
			m.sched.BeginInteraction()
			m.deleting = m.cursor
			m.mode = modeConfirmDelete
		}
	case "m":
		if m.cursor != "" {
			m.drag = engine.StartDrag(m.eng, m.sched, m.cursor)
			m.target = m.cursor
			m.mode = modeGrab
			m.setStatus("moving: j/k choose position, enter drop, esc cancel", false)
		}
	case "c":
		sum := m.eng.ToggleCompleted()
		m.sync()
		if sum.Completed > 0 {
			m.setStatus(fmt.Sprintf("%d completed, %d hidden", sum.Completed, sum.Hidden), false)
		}
	case "r":
		return m, m.engineCmd("refresh", func(ctx context.Context, e *engine.Engine) error {
			_, err := e.Refresh(ctx)
			return err
		})
	}
	return m, nil
}

func (m appModel) beginInput(md mode, value string) (tea.Model, tea.Cmd) {
	m.sched.BeginInteraction()
	m.mode = md
	m.input.SetValue(value)
	m.input.CursorEnd()
	cmd := m.input.Focus()
	return m, cmd
}

func (m appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.mode == modeEdit {
			m.eng.SetEditing(m.editing, false, "")
		}
		m.closeInput()
		m.sched.EndInput()
		return m, nil
	case "enter":
		md, id, text := m.mode, m.editing, m.input.Value()
		m.closeInput()
		// The input's interaction lasts until the request returns.
		switch md {
		case modeEdit:
			return m, m.releaseCmd("edit", func(ctx context.Context, e *engine.Engine) error {
				return e.Edit(ctx, id, text)
			})
		case modeAdd:
			if strings.TrimSpace(text) == "" {
				m.sched.EndInput()
				return m, nil
			}
			return m, m.releaseCmd("add", func(ctx context.Context, e *engine.Engine) error {
				_, err := e.Create(ctx, text, model.PlaceLast, "")
				return err
			})
		case modeRename:
			return m, m.releaseCmd("rename", func(ctx context.Context, e *engine.Engine) error {
				return e.RenameList(ctx, text)
			})
		case modeNewList:
			return m, m.releaseCmd("open", func(ctx context.Context, e *engine.Engine) error {
				_, err := e.CreateList(ctx, text)
				return err
			})
		}
		m.sched.EndInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeEdit {
		m.eng.SetEditing(m.editing, true, m.input.Value())
	}
	return m, cmd
}

func (m *appModel) closeInput() {
	m.input.Blur()
	m.mode = modeList
	m.editing = ""
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		id := m.deleting
		m.mode = modeList
		m.deleting = ""
		return m, m.releaseCmd("delete", func(ctx context.Context, e *engine.Engine) error {
			return e.Delete(ctx, id)
		})
	case "ctrl+c":
		return m, tea.Quit
	default:
		m.cancelConfirm()
	}
	return m, nil
}

func (m *appModel) cancelConfirm() {
	m.mode = modeList
	m.deleting = ""
	m.sched.EndInteraction()
}

func (m appModel) updateGrab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.moveTarget(1)
	case "k", "up":
		m.moveTarget(-1)
	case "enter":
		d, target := m.drag, m.target
		m.mode = modeList
		m.drag = nil
		m.target = ""
		return m, m.engineCmd("move", func(ctx context.Context, _ *engine.Engine) error {
			defer d.End()
			return d.Drop(ctx, target)
		})
	case "esc":
		m.drag.End()
		m.mode = modeList
		m.drag = nil
		m.target = ""
		m.setStatus("", false)
	case "ctrl+c":
		m.drag.End()
		return m, tea.Quit
	}
	return m, nil
}

func (m *appModel) moveTarget(delta int) {
	vis := m.visible()
	i := indexOf(vis, m.target)
	if i < 0 {
		return
	}
	j := i + delta
	if j < 0 || j >= len(vis) {
		return
	}
	m.drag.Leave(m.target)
	m.target = vis[j].Item.ID
	m.drag.Enter(m.target)
}

func (m *appModel) step(delta int) {
	vis := m.visible()
	if len(vis) == 0 {
		return
	}
	i := indexOf(vis, m.cursor)
	if i < 0 {
		i = 0
	} else {
		i += delta
	}
	i = clamp(i, 0, len(vis)-1)
	m.cursor = vis[i].Item.ID
	m.cursorIdx = i
}

// sync drains buffered change events, keeps the cursor on a visible row and
// returns how many events there were.
func (m *appModel) sync() int {
	n := len(m.rec.Drain())
	vis := m.visible()
	if m.mode == modeConfirmDelete && indexOf(vis, m.deleting) < 0 {
		m.cancelConfirm()
		m.setStatus("task was removed; nothing deleted", true)
	}
	if len(vis) == 0 {
		m.cursor, m.cursorIdx = "", 0
		return n
	}
	if i := indexOf(vis, m.cursor); i >= 0 {
		m.cursorIdx = i
		return n
	}
	i := clamp(m.cursorIdx, 0, len(vis)-1)
	m.cursor = vis[i].Item.ID
	m.cursorIdx = i
	return n
}

func (m *appModel) report(msg opDoneMsg) {
	err := msg.err
	switch {
	case err == nil:
		m.setStatus("", false)
	case errors.Is(err, engine.ErrStaleContext):
	case errors.Is(err, engine.ErrNoList):
		m.setStatus("no list open (press N to create one)", true)
	case engine.IsRejected(err):
		var re *engine.RejectedError
		errors.As(err, &re)
		m.setStatus(msg.op+" rejected: "+re.Message, true)
	case engine.IsNetwork(err):
		m.setStatus(msg.op+" failed: server unreachable", true)
	default:
		m.setStatus(msg.op+" failed: "+err.Error(), true)
	}
	if err != nil {
		m.log.Warn("operation failed", slog.String("op", msg.op), slog.Any("err", err))
	}
}

func (m *appModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m appModel) visible() []engine.Entry {
	var out []engine.Entry
	for _, en := range m.eng.Entries() {
		if en.Visible {
			out = append(out, en)
		}
	}
	return out
}

func (m appModel) selected() (engine.Entry, bool) {
	vis := m.visible()
	if i := indexOf(vis, m.cursor); i >= 0 {
		return vis[i], true
	}
	return engine.Entry{}, false
}

func (m appModel) bodyWidth() int {
	if m.width < 20 {
		return 60
	}
	return m.width
}

func (m appModel) View() string {
	w := m.bodyWidth()
	sess := m.eng.Session()

	name := sess.Name
	if name == "" {
		name = "(no list)"
	}
	header := styleTitle().Render(name) + "  " + styleMuted().Render(sess.Slug)

	vis := m.visible()
	rowsH := m.height - 6
	if rowsH < 3 {
		rowsH = len(vis)
	}
	start, end := window(len(vis), indexOf(vis, m.cursor), rowsH)

	var rows []string
	for _, en := range vis[start:end] {
		st := rowState{selected: en.Item.ID == m.cursor && m.mode != modeGrab}
		if m.mode == modeGrab && m.drag != nil {
			st.grabbed = en.Item.ID == m.drag.Dragged()
			st.target = en.Item.ID == m.target && !st.grabbed
		}
		rows = append(rows, renderRow(en, st, w))
	}
	if len(vis) == 0 {
		rows = append(rows, styleMuted().Render("  No tasks. Press a to add one."))
	}
	if label := engine.ToggleLabel(m.eng.Summary().Completed, sess.ShowCompleted); label != "" {
		rows = append(rows, "", styleMuted().Render("  "+label+" (c)"))
	}

	var prompt string
	switch m.mode {
	case modeEdit:
		prompt = renderInputLine(w, "edit:", m.input.View())
	case modeAdd:
		prompt = renderInputLine(w, "add:", m.input.View())
	case modeRename:
		prompt = renderInputLine(w, "rename list:", m.input.View())
	case modeNewList:
		prompt = renderInputLine(w, "new list:", m.input.View())
	case modeConfirmDelete:
		if i := indexOf(vis, m.deleting); i >= 0 {
			prompt = "Delete " + fmt.Sprintf("%q", vis[i].Item.Text) + "? (y/n)"
		}
	}

	status := m.status
	if m.statusErr {
		status = styleError().Render(status)
	} else if m.sched.Suspended() {
		status = styleMuted().Render(strings.TrimSpace(status + " (sync paused)"))
	}

	help := styleMuted().Render("space: done  e: edit  a: add  d: delete  m: move  c: completed  r: refresh  n: rename  N: new list  q: quit")

	parts := []string{header, "", strings.Join(rows, "\n"), ""}
	if prompt != "" {
		parts = append(parts, prompt)
	}
	parts = append(parts, status, help)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// window returns the [start, end) rows to draw so that cursor stays visible.
func window(n, cursor, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	if cursor < 0 {
		cursor = 0
	}
	start := cursor - height/2
	start = clamp(start, 0, n-height)
	return start, start + height
}

func indexOf(entries []engine.Entry, id string) int {
	if id == "" {
		return -1
	}
	for i, en := range entries {
		if en.Item.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
