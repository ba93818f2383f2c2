package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const (
	headerHeight     = 1
	detailsHeight    = 8
	minJobsWidth     = 50
	stackBelowWidth  = 90
	minScreenWidth   = 30
	minBodyHeight    = 9
	minSideBySide    = detailsHeight + 6
	stackedJobsShare = 0.4
)

// rect is a screen region in cells.
type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// layout is the geometry of the last layout pass. The mouse handler hit-tests
// against it.
type layout struct {
	tooSmall  bool
	stacked   bool
	jobs      rect
	scrollbar rect
	details   rect
	output    rect
	help      int
}

func computeLayout(width, height, helpHeight int) layout {
	l := layout{help: helpHeight}
	bodyY := headerHeight
	bodyH := height - headerHeight - helpHeight
	if width < minScreenWidth || bodyH < minBodyHeight {
		l.tooSmall = true
		return l
	}

	if width < stackBelowWidth || bodyH < minSideBySide {
		l.stacked = true
		jobsH := max(int(float64(bodyH)*stackedJobsShare), 5)
		l.jobs = rect{0, bodyY, width, jobsH}
		l.output = rect{0, bodyY + jobsH, width, bodyH - jobsH}
	} else {
		jobsW := max(width-width*70/100, minJobsWidth)
		l.jobs = rect{0, bodyY, jobsW, bodyH}
		l.details = rect{jobsW, bodyY, width - jobsW, detailsHeight}
		l.output = rect{jobsW, bodyY + detailsHeight, width - jobsW, bodyH - detailsHeight}
	}

	// Inside the jobs border: a title row, then the scrollbar column on the
	// left of the table.
	l.scrollbar = rect{l.jobs.x + 1, l.jobs.y + 2, 1, max(l.jobs.h-3, 0)}
	return l
}

func (m *Model) applyWindowSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width
	helpHeight := lipgloss.Height(m.help.View(keys))
	m.layout = computeLayout(width, height, helpHeight)
	m.updateTable()
}

// jobColumn is one column of the job list.
type jobColumn struct {
	title string
	width int
	value func(DisplayJob) string
}

var (
	stateColumn     = jobColumn{"ST", 2, func(d DisplayJob) string { return d.State() }}
	idColumn        = jobColumn{"Job ID", 14, DisplayJob.ListID}
	partitionColumn = jobColumn{"Partition", 9, func(d DisplayJob) string { return d.Partition }}
	userColumn      = jobColumn{"User", 8, func(d DisplayJob) string { return d.User }}
	timeColumn      = jobColumn{"Time", 10, func(d DisplayJob) string { return d.Time }}
	nameColumn      = jobColumn{"Name", 0, func(d DisplayJob) string { return d.Name }}
)

const (
	cellPadding = 2
	nameMin     = 6
)

// jobColumns picks the columns that fit into width, dropping the optional
// ones first. Name absorbs whatever is left.
func jobColumns(width int) []jobColumn {
	optional := []jobColumn{partitionColumn, userColumn, timeColumn}
	for {
		used := 0
		for _, c := range append([]jobColumn{stateColumn, idColumn}, optional...) {
			used += c.width + cellPadding
		}
		nameW := width - used - cellPadding
		if nameW >= nameMin || len(optional) == 0 {
			name := nameColumn
			name.width = max(nameW, 1)
			cols := []jobColumn{stateColumn, idColumn}
			for _, c := range []jobColumn{partitionColumn, userColumn, timeColumn} {
				for _, kept := range optional {
					if kept.title == c.title {
						cols = append(cols, c)
					}
				}
			}
			return append(cols, name)
		}
		optional = optional[1:]
	}
}

func tableColumns(width int) []table.Column {
	cols := jobColumns(width)
	out := make([]table.Column, len(cols))
	for i, c := range cols {
		out[i] = table.Column{Title: c.title, Width: c.width}
	}
	return out
}

func (m Model) tableWidth() int {
	return max(m.layout.jobs.w-2-1, 1)
}

func (m Model) tableHeight() int {
	return max(m.layout.jobs.h-3, 1)
}

func (m *Model) updateTable() {
	cols := jobColumns(m.tableWidth())
	rows := make([]table.Row, len(m.rows))
	for i, d := range m.rows {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			row[j] = sanitizeDetailValue(c.value(d))
		}
		rows[i] = row
	}

	m.table.SetRows(nil)
	m.table.SetColumns(tableColumns(m.tableWidth()))
	m.table.SetWidth(m.tableWidth())
	m.table.SetHeight(m.tableHeight())
	m.table.SetRows(rows)
	m.table.SetCursor(m.selected)
}

func (m Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	if m.dialog != nil {
		view := lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			m.renderDialog(),
		)
		return clampViewWidth(clampViewHeight(view, m.height), m.width)
	}

	if m.layout.tooSmall {
		msg := placeholderStyle.Render("Window too small")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, clampViewWidth(msg, m.width))
	}

	jobs := m.renderJobsPanel()
	right := m.renderOutputPanel()
	if !m.layout.stacked {
		right = lipgloss.JoinVertical(lipgloss.Left, m.renderDetailsPanel(), right)
	}

	var body string
	if m.layout.stacked {
		body = lipgloss.JoinVertical(lipgloss.Left, jobs, right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, jobs, right)
	}

	fullView := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.help.View(keys))
	fullView = clampViewHeight(fullView, m.height)
	fullView = clampViewWidth(fullView, m.width)
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, fullView)
}

func (m Model) renderHeader() string {
	required := []string{appPillStyle.Render("jobtail")}
	if id, ok := m.view.ArrayID(); ok {
		required = append(required, metaPillStyle.Foreground(accentCyan).Render("Array "+id))
	} else {
		required = append(required, metaPillStyle.Render("All jobs"))
	}
	if m.queueErr != nil {
		stale := "Stale " + shortenText(m.queueErr.Error(), 40)
		if !m.lastRefresh.IsZero() {
			stale += fmt.Sprintf(" (%s ago)", time.Since(m.lastRefresh).Truncate(time.Second))
		}
		required = append(required, metaAlertPillStyle.Render(stale))
	}
	if m.notice != "" {
		style := noticePillStyle
		if m.noticeKind == noticeAlert {
			style = metaAlertPillStyle
		}
		required = append(required, style.Render(shortenText(m.notice, 60)))
	}

	var optional []string
	if stats := collectJobStats(m.jobs); stats.total > 0 {
		optional = append(optional, metaMutedPillStyle.Render(
			fmt.Sprintf("R%d P%d O%d", stats.running, stats.pending, stats.other)))
	}
	if !m.lastRefresh.IsZero() {
		optional = append(optional, metaMutedPillStyle.Render("Updated "+m.lastRefresh.Format("15:04:05")))
	}

	// Keep a one-line header by dropping optional items until it fits.
	parts := append([]string{}, required...)
	parts = append(parts, optional...)
	for len(parts) > 1 && lipgloss.Width(joinWithGap(parts, 1)) > m.width {
		parts = parts[:len(parts)-1]
	}
	return clampViewWidth(joinWithGap(parts, 1), m.width)
}

func (m Model) jobsTitle() string {
	var title string
	if id, ok := m.view.ArrayID(); ok {
		title = fmt.Sprintf("Array %s (%d tasks)", id, len(m.rows))
	} else {
		title = fmt.Sprintf("Jobs (%d)", len(m.rows))
	}
	title = panelTitleStyle.Render(title)
	if m.focus == focusJobs {
		title = lipgloss.JoinHorizontal(lipgloss.Left, title, focusTagStyle.Render("Focused"))
	}
	return title
}

func (m Model) renderJobsPanel() string {
	r := m.layout.jobs
	innerW, innerH := r.w-2, r.h-2

	var list string
	if len(m.rows) == 0 {
		text := "No jobs in queue"
		if !m.loaded {
			text = "Waiting for squeue…"
		}
		list = placeholderStyle.Render(text)
	} else {
		list = m.table.View()
	}
	list = fitBlock(list, innerW-1, innerH-1)
	bar := renderScrollbar(m.selected, len(m.rows), innerH-1)
	content := lipgloss.JoinVertical(lipgloss.Left,
		fitBlock(m.jobsTitle(), innerW, 1),
		lipgloss.JoinHorizontal(lipgloss.Top, bar, list),
	)

	style := listStyle
	if m.focus == focusJobs {
		style = style.BorderForeground(highlight)
	}
	return style.Width(innerW).Height(innerH).Render(content)
}

// renderScrollbar draws a one-column track with a thumb at the selection.
func renderScrollbar(selected, n, height int) string {
	if height <= 0 {
		return ""
	}
	thumb := -1
	if n > 0 {
		thumb = 0
		if n > 1 && height > 1 {
			thumb = int(math.Round(float64(selected) / float64(n-1) * float64(height-1)))
		}
	}
	cells := make([]string, height)
	for i := range cells {
		if i == thumb {
			cells[i] = scrollThumbStyle.Render("█")
		} else {
			cells[i] = scrollTrackStyle.Render("│")
		}
	}
	return strings.Join(cells, "\n")
}

func (m Model) renderDetailsPanel() string {
	r := m.layout.details
	innerW, innerH := r.w-4, r.h-2

	row, ok := m.selectedRow()
	var content string
	if !ok {
		content = placeholderStyle.Render("Details will appear here once a job is selected.")
	} else {
		labelW := 9
		valueW := max(innerW-labelW, 1)
		field := func(label, value string) string {
			return detailLabelStyle.Width(labelW).Render(label) + trimDetailValueToWidth(sanitizeDetailValue(value), valueW)
		}

		state := row.Status
		if state == "" {
			state = row.State()
		}
		stateLine := detailLabelStyle.Width(labelW).Render("State") +
			lipgloss.NewStyle().Foreground(statusColor(row.State())).Bold(true).Render(state)
		if row.Reason != "" {
			stateLine += dimStyle.Render(" (" + row.Reason + ")")
		}

		pathLabel, path := "stdout", row.Stdout
		if m.stream == StreamStderr {
			pathLabel, path = "stderr", row.Stderr
		}
		if path == "" {
			path = "none"
		}

		content = lipgloss.JoinVertical(lipgloss.Left,
			panelTitleStyle.Render(fmt.Sprintf("%s  %s", row.EffectiveID(), sanitizeDetailValue(row.Name))),
			stateLine,
			field("Command", row.Command),
			field("Nodes", row.NodeList),
			field("TRES", row.TRES),
			field(pathLabel, path),
		)
	}
	return detailsStyle.Width(innerW + 2).Height(innerH).Render(fitBlock(content, innerW, innerH))
}

// outputTitle names the stream and the scroll position: [T] at the top,
// [T+n] / [B-n] when scrolled away from an anchor.
func (m Model) outputTitle() string {
	title := m.stream.String()
	switch {
	case m.anchor == AnchorTop && m.offset == 0:
		title += " [T]"
	case m.anchor == AnchorTop:
		title += fmt.Sprintf(" [T+%d]", m.offset)
	case m.offset > 0:
		title += fmt.Sprintf(" [B-%d]", m.offset)
	}
	if m.wrap {
		title += " · wrap"
	}
	return title
}

func (m Model) renderOutputPanel() string {
	r := m.layout.output
	innerW, innerH := r.w-4, r.h-2
	rows, cols := innerH-1, innerW

	title := panelTitleStyle.Render(ansi.Truncate(m.outputTitle(), innerW, "…"))
	var body string
	switch {
	case m.outputErr != nil:
		body = errorTextStyle.Render(wordwrap.String(m.outputErr.Error(), max(cols, 1)))
	case m.target == "":
		body = placeholderStyle.Render("No " + m.stream.String() + " file for this job")
	default:
		lines := FitText(m.output, rows, cols, m.anchor, m.offset, m.wrap)
		rendered := make([]string, len(lines))
		for i, l := range lines {
			rendered[i] = renderOutputLine(l)
		}
		body = strings.Join(rendered, "\n")
	}

	content := title
	if rows > 0 {
		content = lipgloss.JoinVertical(lipgloss.Left, title, fitBlock(body, innerW, rows))
	}
	return logStyle.Width(innerW + 2).Height(innerH).Render(content)
}

func renderOutputLine(l RenderedLine) string {
	text := ansi.Strip(l.Text)
	if l.Truncated {
		text = strings.TrimSuffix(text, ellipsis) + dimStyle.Render(ellipsis)
	}
	if l.Continuation {
		return dimStyle.Render(continuationMarker) + text
	}
	return text
}

func (m Model) renderDialog() string {
	width := min(50, max(m.width-4, 10))
	text := lipgloss.JoinVertical(lipgloss.Center,
		dialogTitleStyle.Render(m.dialog.title()),
		"",
		m.dialog.body(),
		"",
		filterHintStyle.Render("enter/y confirm · esc/n dismiss"),
	)
	return dialogStyle.Width(width).Render(text)
}

// fitBlock pads or cuts s to exactly height lines, each at most width cells.
func fitBlock(s string, width, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		if width > 0 && lipgloss.Width(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func sanitizeDetailValue(value string) string {
	value = strings.ReplaceAll(value, "\r\n", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	return strings.TrimSpace(value)
}

func trimDetailValueToWidth(value string, width int) string {
	if width <= 0 || lipgloss.Width(value) <= width {
		return value
	}
	if width == 1 {
		return runewidth.Truncate(value, 1, "")
	}
	return runewidth.Truncate(value, width, "…")
}

func clampViewWidth(view string, width int) string {
	if width <= 0 {
		return view
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	return strings.Join(lines, "\n")
}

func clampViewHeight(view string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	if len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:height], "\n")
}

func joinWithGap(parts []string, gap int) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	if len(filtered) == 0 {
		return ""
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	if gap <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Left, filtered...)
	}
	spacer := lipgloss.NewStyle().Width(gap).Render(" ")
	row := filtered[0]
	for _, part := range filtered[1:] {
		row = lipgloss.JoinHorizontal(lipgloss.Left, row, spacer, part)
	}
	return row
}

func shortenText(s string, max int) string {
	if max <= 0 || runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "...")
}
