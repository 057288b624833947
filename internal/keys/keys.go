// Package keys contains the editor's own keybindings: the few keys the
// terminal host handles before anything reaches the modal engine.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the host-level keybindings.
type KeyMap struct {
	// Quit always exits, whatever mode the engine is in.
	Quit key.Binding

	// Command line prompt
	Submit      key.Binding
	Cancel      key.Binding
	HistoryUp   key.Binding
	HistoryDown key.Binding

	// ToggleLog shows or hides the debug log pane.
	ToggleLog key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run command"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+["),
			key.WithHelp("esc", "close prompt"),
		),
		HistoryUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "previous command"),
		),
		HistoryDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "next command"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "toggle debug log"),
		),
	}
}

// ShortHelp returns the bindings shown in the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.ToggleLog}
}

// FullHelp returns every binding, grouped for the help listing.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.ToggleLog},
		{k.Submit, k.Cancel, k.HistoryUp, k.HistoryDown},
	}
}
