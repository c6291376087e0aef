package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := m.theme.Title.Render(fmt.Sprintf("%s %s", strings.ToUpper(string(m.view.Module)), m.view.Date))
	sub := m.theme.Subtitle.Render(fmt.Sprintf("%d eligible, %d unmatched, %d renamed",
		m.view.Eligible, len(m.view.Unmatched), m.corrections))

	colWidth := max((m.width-6)/2, 20)
	lists := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderList("Participants", model.ListParticipants, colWidth),
		m.renderList("Non-participants", model.ListNonParticipants, colWidth),
	)

	sections := []string{title, sub, lists}
	if m.editing {
		sections = append(sections, m.input.View())
	}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, status)
	}
	sections = append(sections, m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderList(title string, list model.ListName, width int) string {
	entries := m.view.Entries(list)
	header := m.theme.Header
	if list == m.focus {
		header = m.theme.FocusedHeader
	}

	lines := []string{header.Render(fmt.Sprintf("%s (%d)", title, len(entries)))}
	start, window := visible(entries, m.cursorIn(list), m.listHeight())
	for i, e := range window {
		lines = append(lines, m.renderEntry(e, list == m.focus && start+i == m.cursor))
	}
	return m.theme.RoundedBox.Width(width).Render(strings.Join(lines, "\n"))
}

func (m Model) renderEntry(e roster.Entry, selected bool) string {
	label := e.SourceName
	style := m.theme.Normal
	switch {
	case e.Derived:
		style = m.theme.Derived
	case !e.Matched():
		label += " ?"
		style = m.theme.Unmatched
	case e.Member.Name != e.SourceName:
		label += " (" + e.Member.Name + ")"
	}
	if selected {
		return m.theme.Selected.Render("> " + label)
	}
	return style.Render("  " + label)
}

func (m Model) renderStatus() string {
	switch {
	case m.lastError != nil:
		return m.theme.StatusError.Render("Error: " + m.lastError.Error())
	case m.saving:
		return m.theme.StatusInfo.Render(m.status)
	case m.status != "":
		return m.theme.StatusSuccess.Render(m.status)
	default:
		return ""
	}
}

func (m Model) cursorIn(list model.ListName) int {
	if list == m.focus {
		return m.cursor
	}
	return 0
}

func (m Model) listHeight() int {
	return max(m.height-10, 5)
}

// visible returns the window of entries that keeps cursor in view and the
// index of its first entry.
func visible(entries []roster.Entry, cursor, height int) (int, []roster.Entry) {
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(entries))
	return start, entries[start:end]
}
