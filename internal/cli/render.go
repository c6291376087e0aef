package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/guild-ledger/internal/ledger"
	"github.com/Veraticus/guild-ledger/internal/model"
	"github.com/Veraticus/guild-ledger/internal/roster"
)

// EntryLabel renders one view entry. Derived entries are marked, unmatched
// stored entries are shown as errors.
func EntryLabel(e roster.Entry) string {
	switch {
	case e.Derived:
		return SubtleStyle.Render(DerivedIcon) + " " + e.SourceName
	case !e.Matched():
		return ErrorStyle.Render(e.SourceName + " " + ErrorIcon)
	case e.Member.Name != e.SourceName:
		return e.SourceName + SubtleStyle.Render(" ("+e.Member.Name+")")
	default:
		return e.SourceName
	}
}

// RenderView renders a reconciled record as two side-by-side columns.
func RenderView(v *roster.View) string {
	column := func(title string, entries []roster.Entry) string {
		lines := []string{TableHeaderStyle.Render(fmt.Sprintf("%s (%d)", title, len(entries)))}
		for i, e := range entries {
			lines = append(lines, TableCellStyle.Render(fmt.Sprintf("%3d. %s", i+1, EntryLabel(e))))
		}
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		column("Participants", v.Participants),
		"    ",
		column("Non-participants", v.NonParticipants),
	)

	footer := SubtleStyle.Render(fmt.Sprintf("%d eligible members", v.Eligible))
	if n := len(v.Unmatched); n > 0 {
		footer += "  " + WarningStyle.Render(fmt.Sprintf("%d unmatched", n))
	}

	title := fmt.Sprintf("%s %s", strings.ToUpper(string(v.Module)), v.Date)
	return RenderBox(title, lipgloss.JoinVertical(lipgloss.Left, body, "", footer))
}

// RenderRecords renders one summary row per record.
func RenderRecords(records []model.Record) string {
	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-12s %-6s %12s", "Date", "Module", "Participants")))
	b.WriteString("\n")
	for _, rec := range records {
		b.WriteString(TableCellStyle.Render(fmt.Sprintf("%-12s %-6s %12d",
			rec.Key(), rec.Module(), rec.ParticipantCount())))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderStatistics renders a module's aggregate statistics.
func RenderStatistics(s ledger.Statistics) string {
	if s.Records == 0 {
		return FormatInfo(fmt.Sprintf("No %s records stored", s.Module))
	}
	lines := []string{
		fmt.Sprintf("%s %d", BoldStyle.Render("Records:"), s.Records),
		fmt.Sprintf("%s %s to %s", BoldStyle.Render("Range:"), s.First, s.Last),
		fmt.Sprintf("%s %d", BoldStyle.Render("Participants:"), s.TotalParticipants),
		fmt.Sprintf("%s %s", BoldStyle.Render("Average:"), s.Average.StringFixed(2)),
	}
	return RenderBox(strings.ToUpper(string(s.Module))+" statistics", strings.Join(lines, "\n"))
}
