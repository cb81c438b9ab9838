package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	refresh  key.Binding
	signOut  key.Binding
	projects key.Binding
	enter    key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh credits")),
		signOut:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		projects: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "projects")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "export")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.refresh, k.signOut, k.projects, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.refresh, k.signOut, k.projects},
		{k.enter, k.back, k.yes, k.no},
		{k.quit},
	}
}
