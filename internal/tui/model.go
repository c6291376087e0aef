// Package tui is the interactive reconcile screen: it shows a reconciled
// record side by side and renames entries through the correction path.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
	"github.com/Veraticus/guild-ledger/internal/tui/themes"
)

// Corrector renames one entry of a reconciled record and returns the
// refreshed view.
type Corrector interface {
	Correct(ctx context.Context, module model.Module, date model.Date, entry roster.Entry, name string) (*roster.View, error)
}

// Config holds the TUI options.
type Config struct {
	Theme  themes.Theme
	Width  int
	Height int
}

// DefaultConfig returns the default TUI options.
func DefaultConfig() Config {
	return Config{Theme: themes.Default, Width: 100, Height: 30}
}

// Model holds the reconcile screen state.
type Model struct {
	ctx         context.Context
	corrector   Corrector
	lastError   error
	view        *roster.View
	theme       themes.Theme
	keymap      KeyMap
	focus       model.ListName
	status      string
	help        help.Model
	input       textinput.Model
	cursor      int
	corrections int
	width       int
	height      int
	editing     bool
	saving      bool
	quitting    bool
}

// New creates the reconcile model for view.
func New(ctx context.Context, corrector Corrector, view *roster.View, cfg Config) Model {
	input := textinput.New()
	input.Prompt = "New name: "
	input.CharLimit = 64

	m := Model{
		ctx:       ctx,
		corrector: corrector,
		view:      view,
		theme:     cfg.Theme,
		keymap:    DefaultKeyMap(),
		focus:     model.ListParticipants,
		help:      help.New(),
		input:     input,
		width:     cfg.Width,
		height:    cfg.Height,
	}
	if len(view.Participants) == 0 && len(view.NonParticipants) > 0 {
		m.focus = model.ListNonParticipants
	}
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Corrections returns how many renames were saved.
func (m Model) Corrections() int { return m.corrections }

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case correctedMsg:
		m.saving = false
		if msg.err != nil {
			m.lastError = msg.err
			m.status = ""
			return m, nil
		}
		m.lastError = nil
		m.view = msg.view
		m.corrections++
		m.status = "Renamed " + msg.from + " to " + msg.to
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.editing = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keymap.Confirm):
		entry, ok := m.selected()
		m.editing = false
		m.input.Blur()
		if !ok {
			return m, nil
		}
		name := strings.TrimSpace(m.input.Value())
		if name == entry.SourceName {
			return m, nil
		}
		m.saving = true
		m.status = "Saving..."
		return m, m.correct(entry, name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.entries())-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.SwitchList):
		if m.focus == model.ListParticipants {
			m.focus = model.ListNonParticipants
		} else {
			m.focus = model.ListParticipants
		}
		m.clampCursor()

	case key.Matches(msg, m.keymap.NextUnmatched):
		m.nextUnmatched()

	case key.Matches(msg, m.keymap.Edit):
		entry, ok := m.selected()
		if !ok || m.saving {
			return m, nil
		}
		m.editing = true
		m.lastError = nil
		m.input.SetValue(entry.SourceName)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) correct(entry roster.Entry, name string) tea.Cmd {
	ctx, corrector := m.ctx, m.corrector
	module, date := m.view.Module, m.view.Date
	return func() tea.Msg {
		view, err := corrector.Correct(ctx, module, date, entry, name)
		return correctedMsg{view: view, err: err, from: entry.SourceName, to: name}
	}
}

func (m Model) entries() []roster.Entry {
	return m.view.Entries(m.focus)
}

func (m Model) selected() (roster.Entry, bool) {
	entries := m.entries()
	if m.cursor < 0 || m.cursor >= len(entries) {
		return roster.Entry{}, false
	}
	return entries[m.cursor], true
}

func (m *Model) clampCursor() {
	if n := len(m.entries()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// nextUnmatched moves to the next unmatched entry after the cursor,
// switching lists when the focused one has none left.
func (m *Model) nextUnmatched() {
	lists := []model.ListName{m.focus, other(m.focus)}
	for i, list := range lists {
		start := 0
		if i == 0 {
			start = m.cursor + 1
		}
		entries := m.view.Entries(list)
		for j := start; j < len(entries); j++ {
			if !entries[j].Matched() {
				m.focus, m.cursor = list, j
				return
			}
		}
	}
}

func other(list model.ListName) model.ListName {
	if list == model.ListParticipants {
		return model.ListNonParticipants
	}
	return model.ListParticipants
}
