package tui

import "github.com/Veraticus/guild-ledger/internal/roster"

// correctedMsg carries the outcome of one rename.
type correctedMsg struct {
	err  error
	view *roster.View
	from string
	to   string
}
