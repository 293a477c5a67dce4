package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	detach key.Binding
}

var keys = keyMap{
	detach: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}
