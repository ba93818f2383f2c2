package main

import "github.com/charmbracelet/lipgloss"

var (
	subtle       lipgloss.TerminalColor
	highlight    lipgloss.TerminalColor
	panelBorder  lipgloss.TerminalColor
	accentPink   lipgloss.TerminalColor
	accentCyan   lipgloss.TerminalColor
	accentOrange lipgloss.TerminalColor
	accentGreen  lipgloss.TerminalColor
	accentBlue   lipgloss.TerminalColor
	danger       lipgloss.TerminalColor
	textStrong   lipgloss.TerminalColor
	textOnAccent lipgloss.TerminalColor
	selectionBg  lipgloss.TerminalColor
	selectionFg  lipgloss.TerminalColor

	// Header
	appPillStyle       lipgloss.Style
	metaPillStyle      lipgloss.Style
	metaMutedPillStyle lipgloss.Style
	metaAlertPillStyle lipgloss.Style
	noticePillStyle    lipgloss.Style

	// Panels
	listStyle        lipgloss.Style
	detailsStyle     lipgloss.Style
	logStyle         lipgloss.Style
	panelTitleStyle  lipgloss.Style
	focusTagStyle    lipgloss.Style
	detailLabelStyle lipgloss.Style
	placeholderStyle lipgloss.Style
	filterHintStyle  lipgloss.Style
	dimStyle         lipgloss.Style
	errorTextStyle   lipgloss.Style
	scrollThumbStyle lipgloss.Style
	scrollTrackStyle lipgloss.Style

	dialogStyle      lipgloss.Style
	dialogTitleStyle lipgloss.Style

	// Table
	tableHeaderStyle   lipgloss.Style
	tableCellStyle     lipgloss.Style
	tableSelectedStyle lipgloss.Style
)

func init() {
	applyStyles()
}

// applyStyles rebuilds every style from the current theme.
func applyStyles() {
	subtle = theme.TextMuted
	highlight = theme.Accent
	panelBorder = theme.Border
	accentPink = theme.AccentPink
	accentCyan = theme.AccentCyan
	accentOrange = theme.AccentOrange
	accentGreen = theme.AccentGreen
	accentBlue = theme.AccentBlue
	danger = theme.Danger
	textStrong = theme.TextStrong
	textOnAccent = theme.TextOnAccent
	selectionBg = theme.SelectionBg
	selectionFg = theme.SelectionFg

	appPillStyle = lipgloss.NewStyle().
		Foreground(textOnAccent).
		Background(highlight).
		Padding(0, 1).
		Bold(true)

	metaPillStyle = lipgloss.NewStyle().
		Foreground(highlight).
		Padding(0, 1).
		Bold(true)

	metaMutedPillStyle = metaPillStyle.
		Foreground(subtle).
		Bold(false)

	metaAlertPillStyle = metaPillStyle.
		Background(accentPink).
		Foreground(textOnAccent)

	noticePillStyle = metaPillStyle.
		Foreground(accentGreen)

	listStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(panelBorder).
		Background(theme.SurfaceAlt)

	detailsStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(panelBorder).
		Background(theme.SurfaceAlt).
		Padding(0, 1)

	logStyle = detailsStyle

	panelTitleStyle = lipgloss.NewStyle().
		Foreground(subtle).
		Bold(true)

	focusTagStyle = lipgloss.NewStyle().
		Foreground(textOnAccent).
		Background(highlight).
		Padding(0, 1).
		Bold(true).
		MarginLeft(1)

	detailLabelStyle = lipgloss.NewStyle().
		Foreground(subtle).
		Bold(true)

	placeholderStyle = lipgloss.NewStyle().
		Foreground(subtle).
		Italic(true)

	filterHintStyle = lipgloss.NewStyle().
		Foreground(subtle)

	dimStyle = lipgloss.NewStyle().
		Foreground(theme.TextDim)

	errorTextStyle = lipgloss.NewStyle().
		Foreground(danger)

	scrollThumbStyle = lipgloss.NewStyle().
		Foreground(highlight)

	scrollTrackStyle = lipgloss.NewStyle().
		Foreground(panelBorder)

	dialogStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentPink).
		Background(theme.Surface).
		Padding(1, 2).
		Align(lipgloss.Center)

	dialogTitleStyle = lipgloss.NewStyle().
		Foreground(accentPink).
		Bold(true)

	tableHeaderStyle = lipgloss.NewStyle().
		Foreground(subtle).
		Bold(true).
		Align(lipgloss.Left).
		Padding(0, 1)

	tableCellStyle = lipgloss.NewStyle().
		Padding(0, 1)

	tableSelectedStyle = lipgloss.NewStyle().
		Foreground(selectionFg).
		Background(selectionBg).
		Bold(true)
}

func statusColor(state string) lipgloss.TerminalColor {
	switch state {
	case "R", "CG":
		return accentGreen
	case "PD", "CF", "PR", "RQ", "RS", "S", "ST", "RH", "RF":
		return accentOrange
	case "CD":
		return accentBlue
	case "CA":
		return accentPink
	case "F", "TO", "NF", "OOM", "BF", "DL":
		return danger
	default:
		return theme.TextDim
	}
}
