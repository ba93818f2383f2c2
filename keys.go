package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings
type KeyMap struct {
	Quit         key.Binding
	Up           key.Binding
	Down         key.Binding
	FocusPrev    key.Binding
	FocusNext    key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	FastPageUp   key.Binding
	FastPageDown key.Binding
	Top          key.Binding
	Bottom       key.Binding
	ToggleStream key.Binding
	ToggleWrap   key.Binding
	Expand       key.Binding
	Back         key.Binding
	CancelJob    key.Binding
	Refresh      key.Binding
	CopyID       key.Binding
	ToggleHelp   key.Binding
}

var keys = KeyMap{
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	FocusPrev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev panel")),
	FocusNext:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next panel")),
	PageUp:       key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll log up")),
	PageDown:     key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll log down")),
	FastPageUp:   key.NewBinding(key.WithKeys("ctrl+pgup", "alt+pgup", "shift+pgup"), key.WithHelp("^pgup", "scroll log up 50")),
	FastPageDown: key.NewBinding(key.WithKeys("ctrl+pgdown", "alt+pgdown", "shift+pgdown"), key.WithHelp("^pgdn", "scroll log down 50")),
	Top:          key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "log top")),
	Bottom:       key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "follow log")),
	ToggleStream: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "stdout/stderr")),
	ToggleWrap:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "wrap")),
	Expand:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand array")),
	Back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to jobs")),
	CancelJob:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel job")),
	Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	CopyID:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
	ToggleHelp:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

// dialogKeys apply while the cancel confirmation is open.
var dialogKeys = struct {
	Confirm key.Binding
	Dismiss key.Binding
}{
	Confirm: key.NewBinding(key.WithKeys("enter", "y", "Y"), key.WithHelp("enter/y", "confirm")),
	Dismiss: key.NewBinding(key.WithKeys("esc", "n", "N"), key.WithHelp("esc/n", "dismiss")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Up, k.Down, k.Expand, k.Back, k.CancelJob, k.ToggleStream, k.ToggleWrap, k.ToggleHelp}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.FocusPrev, k.FocusNext, k.Expand, k.Back},
		{k.PageUp, k.PageDown, k.FastPageUp, k.FastPageDown, k.Top, k.Bottom},
		{k.ToggleStream, k.ToggleWrap, k.CancelJob, k.CopyID, k.Refresh},
		{k.ToggleHelp, k.Quit},
	}
}
