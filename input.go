package main

import (
	"math"
	"os"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	scrollStep     = 1
	fastScrollStep = 50
	wheelStep      = 3
)

// handleKey applies a key press outside of any dialog. quit is true when the
// program should exit.
func (m *Model) handleKey(msg tea.KeyMsg) (cmd tea.Cmd, quit bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		return nil, true
	case key.Matches(msg, keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, keys.FocusPrev):
		m.focus = m.focus.step(-1)
	case key.Matches(msg, keys.FocusNext):
		m.focus = m.focus.step(1)
	case key.Matches(msg, keys.FastPageUp):
		m.scrollOutput(-fastScrollStep)
	case key.Matches(msg, keys.FastPageDown):
		m.scrollOutput(fastScrollStep)
	case key.Matches(msg, keys.PageUp):
		m.scrollOutput(-scrollStep)
	case key.Matches(msg, keys.PageDown):
		m.scrollOutput(scrollStep)
	case key.Matches(msg, keys.Top):
		m.anchor, m.offset = AnchorTop, 0
	case key.Matches(msg, keys.Bottom):
		m.anchor, m.offset = AnchorBottom, 0
	case key.Matches(msg, keys.ToggleStream):
		m.stream = m.stream.toggle()
	case key.Matches(msg, keys.ToggleWrap):
		m.wrap = !m.wrap
	case key.Matches(msg, keys.Expand):
		m.drillIn()
	case key.Matches(msg, keys.Back):
		m.drillOut()
	case key.Matches(msg, keys.CancelJob):
		if row, ok := m.selectedRow(); ok {
			m.dialog = confirmCancel{id: row.EffectiveID()}
		}
	case key.Matches(msg, keys.Refresh):
		if m.queue != nil {
			m.queue.Refresh()
		}
	case key.Matches(msg, keys.CopyID):
		if row, ok := m.selectedRow(); ok {
			id := row.EffectiveID()
			return tea.Batch(osc52CopyCmd(id), m.setNotice(noticeInfo, "Copied "+id)), false
		}
	case key.Matches(msg, keys.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.applyWindowSize(m.width, m.height)
	}
	return nil, false
}

func (m *Model) handleDialogKey(msg tea.KeyMsg) tea.Cmd {
	switch d := m.dialog.(type) {
	case confirmCancel:
		switch {
		case key.Matches(msg, dialogKeys.Confirm):
			m.dialog = nil
			return m.cancelJobCmd(d.id)
		case key.Matches(msg, dialogKeys.Dismiss):
			m.dialog = nil
		}
	}
	return nil
}

// scrollOutput moves the output view by delta lines towards the end of the
// file (positive) or its beginning (negative), relative to the anchor.
func (m *Model) scrollOutput(delta int) {
	if m.anchor == AnchorBottom {
		delta = -delta
	}
	m.offset += delta
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := msg.X, msg.Y

	switch {
	case isWheelUp(msg):
		if m.layout.jobs.contains(x, y) {
			m.moveSelection(-1)
		} else if m.layout.output.contains(x, y) {
			m.scrollOutput(-wheelStep)
		}

	case isWheelDown(msg):
		if m.layout.jobs.contains(x, y) {
			m.moveSelection(1)
		} else if m.layout.output.contains(x, y) {
			m.scrollOutput(wheelStep)
		}

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if m.layout.scrollbar.contains(x, y) {
			m.dragging = true
			m.dragTo(y)
		}

	case msg.Action == tea.MouseActionMotion:
		if m.dragging {
			m.dragTo(y)
		}

	case msg.Action == tea.MouseActionRelease:
		m.dragging = false
	}
}

func (m *Model) dragTo(row int) {
	if len(m.rows) == 0 {
		return
	}
	bar := m.layout.scrollbar
	m.setSelected(scrollbarIndex(row, bar.y, bar.h, len(m.rows)))
}

// scrollbarIndex maps a pointer row onto a row index for a scrollbar of
// height h starting at y0. Rows above the bar select the first entry and rows
// below it the last.
func scrollbarIndex(row, y0, h, n int) int {
	if n <= 0 {
		return 0
	}
	var p float64
	switch {
	case row < y0:
		p = 0
	case row >= y0+h:
		p = 1
	case h <= 1:
		p = 0
	default:
		p = float64(row-y0) / float64(h-1)
	}
	i := int(math.Round(p * float64(n-1)))
	return min(max(i, 0), n-1)
}

func isWheelUp(msg tea.MouseMsg) bool {
	return msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonWheelUp
}

func isWheelDown(msg tea.MouseMsg) bool {
	return msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonWheelDown
}

func osc52CopyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		seq := osc52.New(text).Limit(100 * 1024)

		term := strings.ToLower(os.Getenv("TERM"))
		if tmux := os.Getenv("TMUX"); tmux != "" || strings.HasPrefix(term, "tmux") {
			seq = seq.Tmux()
		} else if strings.HasPrefix(term, "screen") {
			seq = seq.Screen()
		}

		_, _ = seq.WriteTo(os.Stdout)
		return nil
	}
}
