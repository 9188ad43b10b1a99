package menu

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Choose  key.Binding
	Toggle  key.Binding
	Cancel  key.Binding
	Yes     key.Binding
	No      key.Binding
	Confirm key.Binding
}

var keys = keyMap{
	Choose: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "ok"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "select"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", "esc", "ctrl+c"),
		key.WithHelp("n", "no"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "yes"),
	),
}
