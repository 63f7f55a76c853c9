package browser

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the keybindings for the project browser
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	GoToTop     key.Binding
	GoToBottom  key.Binding
	Open        key.Binding
	Toggle      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Deselect    key.Binding
	Edit        key.Binding
	NewFolder   key.Binding
	NewDoc      key.Binding
	NewChar     key.Binding
	Delete      key.Binding
	Save        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Edit, k.NewDoc, k.Delete, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.GoToTop, k.GoToBottom},
		{k.Open, k.Toggle, k.ExpandAll, k.CollapseAll, k.Deselect},
		{k.Edit, k.Save, k.NewFolder, k.NewDoc, k.NewChar, k.Delete},
		{k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	GoToTop: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "go to top"),
	),
	GoToBottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "go to bottom"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter", "l"),
		key.WithHelp("enter", "open / toggle folder"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle folder"),
	),
	ExpandAll: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "expand all"),
	),
	CollapseAll: key.NewBinding(
		key.WithKeys("M"),
		key.WithHelp("M", "collapse all"),
	),
	Deselect: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close document"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "i"),
		key.WithHelp("e", "edit document"),
	),
	NewFolder: key.NewBinding(
		key.WithKeys("N"),
		key.WithHelp("N", "new folder"),
	),
	NewDoc: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new document"),
	),
	NewChar: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "new character"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "x"),
		key.WithHelp("d", "delete"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save now"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
