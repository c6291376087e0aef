package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/guild-ledger/internal/roster"
)

// Run shows the reconcile screen until the user quits and returns the
// number of saved renames.
func Run(ctx context.Context, corrector Corrector, view *roster.View, cfg Config) (int, error) {
	if corrector == nil {
		return 0, errors.New("corrector is required")
	}
	if view == nil {
		return 0, errors.New("view is required")
	}

	p := tea.NewProgram(New(ctx, corrector, view, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return 0, fmt.Errorf("reconcile screen failed: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Corrections(), nil
	}
	return 0, nil
}
