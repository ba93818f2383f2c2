package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
)

const noticeDuration = 4 * time.Second

// OutputStream selects which of the job's output files is shown.
type OutputStream int

const (
	StreamStdout OutputStream = iota
	StreamStderr
)

func (s OutputStream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

func (s OutputStream) toggle() OutputStream {
	if s == StreamStdout {
		return StreamStderr
	}
	return StreamStdout
}

// dialog is a modal overlay that captures all key input while open.
type dialog interface {
	title() string
	body() string
}

type confirmCancel struct {
	id string
}

func (d confirmCancel) title() string { return "Confirm" }
func (d confirmCancel) body() string  { return fmt.Sprintf("Cancel job %s?", d.id) }

type focusTarget int

const (
	focusJobs focusTarget = iota
)

var focusOrder = []focusTarget{focusJobs}

func (f focusTarget) step(delta int) focusTarget {
	i := slices.Index(focusOrder, f)
	if i == -1 {
		return focusOrder[0]
	}
	n := len(focusOrder)
	return focusOrder[((i+delta)%n+n)%n]
}

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeAlert
)

type cancelResultMsg struct {
	id  string
	err error
}

type noticeExpiredMsg struct {
	seq int
}

// queueControl retargets the queue watcher.
type queueControl interface {
	SetArgs(args []string)
	Refresh()
}

// fileControl retargets the file watcher.
type fileControl interface {
	SetPath(path string)
}

// Model is the main application model
type Model struct {
	table table.Model
	help  help.Model

	inbox  <-chan tea.Msg
	queue  queueControl
	files  fileControl
	cancel func(id string) error
	logger *slog.Logger

	baseArgs []string
	jobs     []Job
	rows     []DisplayJob
	view     ViewMode
	selected int
	focus    focusTarget
	dialog   dialog
	dragging bool

	anchor ScrollAnchor
	offset int
	wrap   bool
	stream OutputStream

	target    string
	output    string
	outputErr error

	queueErr    error
	lastRefresh time.Time
	loaded      bool

	notice       string
	noticeKind   noticeKind
	noticeSeq    int
	noticeExpiry time.Time

	width  int
	height int
	layout layout
}

// ModelOptions wires the engine to its collaborators.
type ModelOptions struct {
	Inbox  <-chan tea.Msg
	Queue  queueControl
	Files  fileControl
	Cancel func(id string) error
	Logger *slog.Logger
	Args   []string
}

func NewModel(opts ModelOptions) Model {
	t := table.New(
		table.WithColumns(tableColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = tableHeaderStyle
	s.Cell = tableCellStyle
	s.Selected = tableSelectedStyle
	t.SetStyles(s)

	m := Model{
		table:    t,
		help:     help.New(),
		inbox:    opts.Inbox,
		queue:    opts.Queue,
		files:    opts.Files,
		cancel:   opts.Cancel,
		logger:   opts.Logger,
		baseArgs: slices.Clone(opts.Args),
		view:     AllJobs,
		focus:    focusJobs,
		anchor:   AnchorBottom,
		stream:   StreamStdout,
	}
	if m.cancel == nil {
		m.cancel = CancelJob
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}

	width, height := detectTerminalSize()
	m.applyWindowSize(width, height)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.listen()
}

// listen re-arms the wait on the watcher inbox.
func (m Model) listen() tea.Cmd {
	if m.inbox == nil {
		return nil
	}
	return listen(m.inbox)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width, height := msg.Width, msg.Height
		if width <= 0 || height <= 0 {
			width, height = detectTerminalSize()
		}
		m.applyWindowSize(width, height)
		return m, nil

	case jobsMsg:
		m.applyJobs(msg)
		cmds = append(cmds, m.listen())

	case outputMsg:
		m.output, m.outputErr = msg.content, msg.err
		cmds = append(cmds, m.listen())

	case cancelResultMsg:
		if msg.err != nil {
			m.logger.Error("cancel dispatch failed", slog.String("job", msg.id), slog.Any("error", msg.err))
			cmds = append(cmds, m.setNotice(noticeAlert, "Cancel failed: "+msg.err.Error()))
		} else {
			m.logger.Info("cancel dispatched", slog.String("job", msg.id))
			cmds = append(cmds, m.setNotice(noticeInfo, "Cancel requested for "+msg.id))
		}

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.dialog != nil {
			cmds = append(cmds, m.handleDialogKey(msg))
			break
		}
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		cmds = append(cmds, cmd)

	case tea.MouseMsg:
		if m.dialog == nil {
			m.handleMouse(msg)
		}
	}

	m.syncOutputTarget()
	return m, tea.Batch(cmds...)
}

func (m *Model) applyJobs(msg jobsMsg) {
	if msg.err != nil {
		m.queueErr = msg.err
		return
	}
	m.queueErr = nil
	m.loaded = true
	m.lastRefresh = msg.at
	if m.lastRefresh.IsZero() {
		m.lastRefresh = time.Now()
	}
	m.jobs = msg.jobs
	m.recomputeRows()
}

// recomputeRows re-derives the display rows and clamps the selection.
func (m *Model) recomputeRows() {
	m.rows = Project(m.jobs, m.view)
	m.setSelected(m.selected)
}

func (m *Model) setSelected(i int) {
	if i >= len(m.rows) {
		i = len(m.rows) - 1
	}
	if i < 0 {
		i = 0
	}
	m.selected = i
	m.updateTable()
}

func (m *Model) moveSelection(delta int) {
	m.setSelected(m.selected + delta)
}

func (m Model) selectedRow() (DisplayJob, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return DisplayJob{}, false
	}
	return m.rows[m.selected], true
}

func (m *Model) drillIn() bool {
	row, ok := m.selectedRow()
	if !ok || !row.IsArray {
		return false
	}
	if _, inDetails := m.view.ArrayID(); inDetails {
		return false
	}
	m.view = ArrayJobDetails(row.ArrayID)
	if m.queue != nil {
		m.queue.SetArgs([]string{"--job", row.ArrayID})
	}
	m.logger.Debug("expanded array job", slog.String("array", row.ArrayID))
	m.selected = 0
	m.anchor, m.offset = AnchorBottom, 0
	m.recomputeRows()
	return true
}

func (m *Model) drillOut() bool {
	if _, inDetails := m.view.ArrayID(); !inDetails {
		return false
	}
	m.view = AllJobs
	if m.queue != nil {
		m.queue.SetArgs(m.baseArgs)
	}
	m.logger.Debug("returned to all jobs")
	m.selected = 0
	m.recomputeRows()
	return true
}

// outputPath is the file the output pane should show for the current
// selection and stream.
func (m Model) outputPath() string {
	row, ok := m.selectedRow()
	if !ok {
		return ""
	}
	if m.stream == StreamStderr {
		return row.Stderr
	}
	return row.Stdout
}

// syncOutputTarget points the file watcher at the current output path when
// it changed. Content of the previous target is dropped.
func (m *Model) syncOutputTarget() {
	path := m.outputPath()
	if path == m.target {
		return
	}
	m.target = path
	m.output, m.outputErr = "", nil
	if m.files != nil {
		m.files.SetPath(path)
	}
}

func (m *Model) setNotice(kind noticeKind, text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	m.noticeKind = kind
	m.noticeExpiry = time.Now().Add(noticeDuration)
	seq := m.noticeSeq
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m Model) cancelJobCmd(id string) tea.Cmd {
	cancel := m.cancel
	return func() tea.Msg {
		return cancelResultMsg{id: id, err: cancel(id)}
	}
}

func detectTerminalSize() (int, int) {
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}
