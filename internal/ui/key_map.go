package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	yes       key.Binding
	no        key.Binding
	search    key.Binding
	filter    key.Binding
	sort      key.Binding
	order     key.Binding
	toggle    key.Binding
	selectAll key.Binding
	add       key.Binding
	remove    key.Binding
	importCSV key.Binding
	refresh   key.Binding
	logout    key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:        key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "dates")),
		sort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		order:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
		toggle:    key.NewBinding(key.WithKeys(" ", "space", "x"), key.WithHelp("space", "select")),
		selectAll: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "all/none")),
		add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		importCSV: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.add, k.remove, k.importCSV, k.search, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle, k.selectAll},
		{k.search, k.filter, k.sort, k.order},
		{k.add, k.remove, k.importCSV, k.refresh},
		{k.logout, k.help, k.quit},
	}
}
