package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Split      key.Binding
	Start      key.Binding
	Pause      key.Binding
	Reset      key.Binding
	SavePB     key.Binding
	UndoSplit  key.Binding
	UndoPB     key.Binding
	PrevPage   key.Binding
	NextPage   key.Binding
	ToggleHelp key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Split: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("space", "split"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		SavePB: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save pb"),
		),
		UndoSplit: key.NewBinding(
			key.WithKeys("ctrl+z"),
			key.WithHelp("ctrl+z", "undo split"),
		),
		UndoPB: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "restore backup"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next page"),
		),
		ToggleHelp: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Split, k.Pause, k.Reset, k.ToggleHelp, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Split, k.Start, k.Pause, k.Reset},
		{k.SavePB, k.UndoSplit, k.UndoPB},
		{k.PrevPage, k.NextPage, k.ToggleHelp, k.Quit},
	}
}
