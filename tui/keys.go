package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Previous key.Binding
	Reset    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n", " ", "space", "enter"),
			key.WithHelp("→/space", "next patch"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h", "p", "backspace"),
			key.WithHelp("←/bksp", "previous patch"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r", "home"),
			key.WithHelp("r", "reset to first patch"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Previous, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous, k.Reset},
		{k.Help, k.Quit},
	}
}
