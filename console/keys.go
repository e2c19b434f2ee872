package console

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the operator console.
type KeyMap struct {
	Submit        key.Binding
	Next          key.Binding // Presenting view only.
	ToggleScanner key.Binding
	Quit          key.Binding
}

var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "check ticket"),
	),
	Next: key.NewBinding(
		key.WithKeys("enter", "n"),
		key.WithHelp("enter/n", "scan next ticket"),
	),
	ToggleScanner: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "camera on/off"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
