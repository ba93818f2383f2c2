package main

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeQueue struct {
	args      [][]string
	refreshes int
}

func (q *fakeQueue) SetArgs(args []string) { q.args = append(q.args, args) }
func (q *fakeQueue) Refresh()              { q.refreshes++ }

type fakeFiles struct {
	paths []string
}

func (f *fakeFiles) SetPath(path string) { f.paths = append(f.paths, path) }

func (f *fakeFiles) last() string {
	if len(f.paths) == 0 {
		return ""
	}
	return f.paths[len(f.paths)-1]
}

type engine struct {
	model   Model
	queue   *fakeQueue
	files   *fakeFiles
	cancels []string
}

func newEngine(t *testing.T, cancelErr error) *engine {
	t.Helper()
	e := &engine{queue: &fakeQueue{}, files: &fakeFiles{}}
	e.model = NewModel(ModelOptions{
		Queue: e.queue,
		Files: e.files,
		Args:  []string{"--user", "alice"},
		Cancel: func(id string) error {
			e.cancels = append(e.cancels, id)
			return cancelErr
		},
	})
	e.model.applyWindowSize(120, 40)
	e.send(jobsMsg{jobs: sampleJobs(), at: time.Now()})
	return e
}

func (e *engine) send(msg tea.Msg) tea.Cmd {
	next, cmd := e.model.Update(msg)
	e.model = next.(Model)
	return cmd
}

func (e *engine) press(keys ...string) {
	for _, k := range keys {
		e.send(keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	case "pgdown":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "ctrl+pgdown":
		return tea.KeyMsg{Type: tea.KeyCtrlPgDown}
	case "alt+pgup":
		return tea.KeyMsg{Type: tea.KeyPgUp, Alt: true}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// runCmd executes cmd synchronously and feeds the resulting messages back
// into the model.
func (e *engine) runCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			e.runCmd(c)
		}
	default:
		e.send(msg)
	}
}

func TestSelectionClampsWithoutWrap(t *testing.T) {
	e := newEngine(t, nil)

	e.press("up", "k")
	if e.model.selected != 0 {
		t.Fatalf("selection should stay at 0, got %d", e.model.selected)
	}
	e.press("down", "j", "down", "down", "down")
	if want := len(e.model.rows) - 1; e.model.selected != want {
		t.Fatalf("selection should stop at %d, got %d", want, e.model.selected)
	}
}

func TestSelectionClampedOnShrinkingJobSet(t *testing.T) {
	e := newEngine(t, nil)
	e.press("down", "down")

	e.send(jobsMsg{jobs: sampleJobs()[:1], at: time.Now()})
	if e.model.selected != 0 || len(e.model.rows) != 1 {
		t.Fatalf("selection should clamp to the remaining row, got %d of %d", e.model.selected, len(e.model.rows))
	}

	e.send(jobsMsg{jobs: nil, at: time.Now()})
	if _, ok := e.model.selectedRow(); ok {
		t.Fatal("no row should be selected in an empty queue")
	}
	if got := e.files.last(); got != "" {
		t.Fatalf("file watcher should be cleared, got %q", got)
	}
}

func TestSelectionKeptAcrossRefresh(t *testing.T) {
	e := newEngine(t, nil)
	e.press("down")
	e.send(jobsMsg{jobs: sampleJobs(), at: time.Now()})
	if e.model.selected != 1 {
		t.Fatalf("selection should be kept, got %d", e.model.selected)
	}
}

func TestDrillInAndOutRestoresQuery(t *testing.T) {
	for start := 0; start < 3; start++ {
		e := newEngine(t, nil)
		for i := 0; i < start; i++ {
			e.press("down")
		}
		// Move to the collapsed array row.
		e.press("down", "down", "down")
		row, _ := e.model.selectedRow()
		if !row.IsArray {
			t.Fatalf("expected the array row to be selected, got %+v", row)
		}

		e.press("enter")
		id, ok := e.model.view.ArrayID()
		if !ok || id != "200" {
			t.Fatalf("expected array details view for 200, got %v", e.model.view)
		}
		if got := e.queue.args[len(e.queue.args)-1]; !reflect.DeepEqual(got, []string{"--job", "200"}) {
			t.Fatalf("queue args = %q", got)
		}
		if e.model.selected != 0 || len(e.model.rows) != 2 {
			t.Fatalf("expected selection 0 of 2 task rows, got %d of %d", e.model.selected, len(e.model.rows))
		}

		e.press("down", "esc")
		if _, ok := e.model.view.ArrayID(); ok {
			t.Fatal("esc should return to all jobs")
		}
		if got := e.queue.args[len(e.queue.args)-1]; !reflect.DeepEqual(got, []string{"--user", "alice"}) {
			t.Fatalf("original query not restored, got %q", got)
		}
		if e.model.selected != 0 {
			t.Fatalf("selection should reset to 0, got %d", e.model.selected)
		}
	}
}

func TestEnterOnStandaloneJobDoesNothing(t *testing.T) {
	e := newEngine(t, nil)
	e.press("enter")
	if _, ok := e.model.view.ArrayID(); ok {
		t.Fatal("enter on a standalone job must not change the view")
	}
	if len(e.queue.args) != 0 {
		t.Fatalf("queue args should be untouched, got %q", e.queue.args)
	}
	e.press("esc")
	if len(e.queue.args) != 0 {
		t.Fatal("esc in all jobs view must not touch the query")
	}
}

func TestOutputScrolling(t *testing.T) {
	e := newEngine(t, nil)
	if e.model.anchor != AnchorBottom || e.model.offset != 0 {
		t.Fatalf("output should start following the bottom, got %s+%d", e.model.anchor, e.model.offset)
	}

	e.press("pgup")
	if e.model.offset != 1 {
		t.Fatalf("pgup at bottom anchor should move 1 line back, got %d", e.model.offset)
	}
	e.press("alt+pgup")
	if e.model.offset != 51 {
		t.Fatalf("alt+pgup should move 50 lines, got %d", e.model.offset)
	}
	e.press("ctrl+pgdown", "ctrl+pgdown")
	if e.model.offset != 0 {
		t.Fatalf("offset should saturate at 0, got %d", e.model.offset)
	}

	e.press("home")
	if e.model.anchor != AnchorTop || e.model.offset != 0 {
		t.Fatalf("home should anchor at the top, got %s+%d", e.model.anchor, e.model.offset)
	}
	e.press("pgdown", "pgdown")
	if e.model.offset != 2 {
		t.Fatalf("pgdown at top anchor should advance, got %d", e.model.offset)
	}
	if title := e.model.outputTitle(); !strings.Contains(title, "[T+2]") {
		t.Fatalf("title should show the offset, got %q", title)
	}
	e.press("end")
	if e.model.anchor != AnchorBottom || e.model.offset != 0 {
		t.Fatalf("end should follow the bottom, got %s+%d", e.model.anchor, e.model.offset)
	}
}

func TestStreamAndWrapToggles(t *testing.T) {
	e := newEngine(t, nil)
	if got := e.files.last(); got != "/home/alice/train-101.out" {
		t.Fatalf("file watcher should follow stdout, got %q", got)
	}

	e.press("o")
	if got := e.files.last(); got != "/home/alice/train-101.err" {
		t.Fatalf("o should switch to stderr, got %q", got)
	}
	e.press("down")
	if got := e.files.last(); got != "" {
		t.Fatalf("job without stderr should clear the target, got %q", got)
	}

	e.press("w")
	if !e.model.wrap {
		t.Fatal("w should enable wrapping")
	}
	e.press("w")
	if e.model.wrap {
		t.Fatal("w should toggle wrapping off")
	}
}

func TestFileWatcherOnlyRetargetedOnChange(t *testing.T) {
	e := newEngine(t, nil)
	before := len(e.files.paths)
	e.send(jobsMsg{jobs: sampleJobs(), at: time.Now()})
	e.press("left", "right", "w")
	if len(e.files.paths) != before {
		t.Fatalf("file watcher retargeted without a change: %q", e.files.paths[before:])
	}
}

func TestOutputMessagesApplied(t *testing.T) {
	e := newEngine(t, nil)
	e.send(outputMsg{path: "/home/alice/train-101.out", content: "hello\n"})
	if e.model.output != "hello\n" || e.model.outputErr != nil {
		t.Fatalf("content not applied: %q %v", e.model.output, e.model.outputErr)
	}

	fileErr := &FileError{Kind: FileNotFound, Path: "/home/alice/train-101.out"}
	e.send(outputMsg{path: "/home/alice/train-101.out", err: fileErr})
	if !errors.Is(e.model.outputErr, fileErr) {
		t.Fatalf("error not applied: %v", e.model.outputErr)
	}

	e.send(outputMsg{path: "/some/other.out", content: "late\n"})
	if e.model.output != "late\n" || e.model.outputErr != nil {
		t.Fatal("late messages for another path are still shown until replaced")
	}
}

func TestCancelDialogConfirm(t *testing.T) {
	e := newEngine(t, nil)
	e.press("down", "down", "c")

	d, ok := e.model.dialog.(confirmCancel)
	if !ok || d.id != "200_[1-2]" {
		t.Fatalf("expected confirm dialog for the array, got %#v", e.model.dialog)
	}

	// Everything but confirm/dismiss is swallowed.
	e.press("q", "up", "o")
	if e.model.dialog == nil || e.model.selected != 2 || e.model.stream != StreamStdout {
		t.Fatal("keys leaked through the dialog")
	}

	cmd := e.send(keyMsg("enter"))
	if e.model.dialog != nil {
		t.Fatal("confirm should close the dialog")
	}
	e.runCmd(cmd)
	if !reflect.DeepEqual(e.cancels, []string{"200_[1-2]"}) {
		t.Fatalf("cancel dispatched for %q", e.cancels)
	}
	if !strings.Contains(e.model.notice, "200_[1-2]") || e.model.noticeKind != noticeInfo {
		t.Fatalf("unexpected notice %q", e.model.notice)
	}
}

func TestCancelDialogDismiss(t *testing.T) {
	for _, k := range []string{"esc", "n"} {
		e := newEngine(t, nil)
		e.press("c")
		if e.model.dialog == nil {
			t.Fatal("c should open the dialog")
		}
		e.press(k)
		if e.model.dialog != nil {
			t.Fatalf("%s should dismiss the dialog", k)
		}
		if len(e.cancels) != 0 {
			t.Fatalf("dismiss must not cancel, got %q", e.cancels)
		}
	}
}

func TestCancelFailureIsRecoverable(t *testing.T) {
	e := newEngine(t, errors.New(`exec: "scancel": executable file not found in $PATH`))
	e.press("c")
	e.runCmd(e.send(keyMsg("y")))

	if e.model.noticeKind != noticeAlert || !strings.Contains(e.model.notice, "Cancel failed") {
		t.Fatalf("expected failure notice, got %q", e.model.notice)
	}
	// The dashboard keeps running.
	e.press("down")
	if e.model.selected != 1 {
		t.Fatal("model stopped handling input after a cancel failure")
	}
}

func TestNoticeExpiry(t *testing.T) {
	e := newEngine(t, nil)
	e.model.setNotice(noticeInfo, "first")
	stale := e.model.noticeSeq
	e.model.setNotice(noticeInfo, "second")

	e.send(noticeExpiredMsg{seq: stale})
	if e.model.notice != "second" {
		t.Fatalf("an older expiry must not clear a newer notice, got %q", e.model.notice)
	}
	e.send(noticeExpiredMsg{seq: e.model.noticeSeq})
	if e.model.notice != "" {
		t.Fatalf("notice should expire, got %q", e.model.notice)
	}
}

func TestQueueFailureKeepsJobs(t *testing.T) {
	e := newEngine(t, nil)
	rows := len(e.model.rows)
	refreshed := e.model.lastRefresh

	e.send(jobsMsg{err: errors.New("squeue: command timed out")})
	if len(e.model.rows) != rows {
		t.Fatalf("rows dropped on failure: %d", len(e.model.rows))
	}
	if e.model.queueErr == nil || !e.model.lastRefresh.Equal(refreshed) {
		t.Fatal("failure should be recorded without touching the refresh time")
	}
	if header := e.model.renderHeader(); !strings.Contains(header, "Stale") {
		t.Fatalf("header should flag stale data, got %q", header)
	}

	e.send(jobsMsg{jobs: sampleJobs(), at: time.Now()})
	if e.model.queueErr != nil {
		t.Fatal("success should clear the error")
	}
}

func TestRefreshAndQuitKeys(t *testing.T) {
	e := newEngine(t, nil)
	e.press("r")
	if e.queue.refreshes != 1 {
		t.Fatalf("r should request a refresh, got %d", e.queue.refreshes)
	}

	for _, k := range []string{"q", "ctrl+c"} {
		cmd := e.send(keyMsg(k))
		if cmd == nil {
			t.Fatalf("%s should quit", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s should quit", k)
		}
	}
}

func TestScrollbarIndex(t *testing.T) {
	tests := []struct {
		name          string
		row, y0, h, n int
		want          int
	}{
		{"top", 5, 5, 11, 21, 0},
		{"middle", 10, 5, 11, 21, 10},
		{"bottom", 15, 5, 11, 21, 20},
		{"above", 0, 5, 11, 21, 0},
		{"below", 40, 5, 11, 21, 20},
		{"rounds", 6, 5, 4, 3, 1},
		{"single row bar", 5, 5, 1, 10, 0},
		{"single job", 9, 5, 11, 1, 0},
	}
	for _, tt := range tests {
		if got := scrollbarIndex(tt.row, tt.y0, tt.h, tt.n); got != tt.want {
			t.Errorf("%s: scrollbarIndex(%d, %d, %d, %d) = %d, want %d", tt.name, tt.row, tt.y0, tt.h, tt.n, got, tt.want)
		}
	}

	for n := 1; n < 30; n++ {
		for h := 1; h < 12; h++ {
			for row := -2; row < h+4; row++ {
				got := scrollbarIndex(row, 0, h, n)
				if got < 0 || got >= n {
					t.Fatalf("scrollbarIndex(%d, 0, %d, %d) = %d out of range", row, h, n, got)
				}
			}
		}
	}
}

func TestMouseInput(t *testing.T) {
	e := newEngine(t, nil)
	jobs := e.model.layout.jobs
	out := e.model.layout.output
	bar := e.model.layout.scrollbar

	e.send(tea.MouseMsg{X: jobs.x + 5, Y: jobs.y + 3, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown})
	if e.model.selected != 1 {
		t.Fatalf("wheel over the list should move the selection, got %d", e.model.selected)
	}

	e.send(tea.MouseMsg{X: out.x + 5, Y: out.y + 3, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if e.model.offset != wheelStep {
		t.Fatalf("wheel over the output should scroll %d lines, got %d", wheelStep, e.model.offset)
	}

	e.send(tea.MouseMsg{X: bar.x, Y: bar.y + bar.h - 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if !e.model.dragging || e.model.selected != len(e.model.rows)-1 {
		t.Fatalf("press at the bottom of the scrollbar should select the last row, got %d", e.model.selected)
	}
	e.send(tea.MouseMsg{X: bar.x + 10, Y: 0, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if e.model.selected != 0 {
		t.Fatalf("dragging above the bar should select the first row, got %d", e.model.selected)
	}
	e.send(tea.MouseMsg{X: bar.x, Y: bar.y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if e.model.dragging {
		t.Fatal("release should end the drag")
	}
	e.send(tea.MouseMsg{X: bar.x, Y: bar.y + bar.h - 1, Action: tea.MouseActionMotion})
	if e.model.selected != 0 {
		t.Fatal("motion without a drag must not move the selection")
	}

	e.send(tea.MouseMsg{X: bar.x + 3, Y: bar.y + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if e.model.dragging {
		t.Fatal("press outside the scrollbar must not start a drag")
	}
}

func TestFocusIsSingleTarget(t *testing.T) {
	e := newEngine(t, nil)
	e.press("h", "l", "left", "right")
	if e.model.focus != focusJobs {
		t.Fatalf("focus moved to %v", e.model.focus)
	}
}
