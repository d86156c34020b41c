package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/earnx/internal/models"
	"github.com/desertthunder/earnx/internal/shared"
	"github.com/desertthunder/earnx/internal/tasks"
)

var earningsColumns = []table.Column{
	{Title: " ", Width: 1},
	{Title: "Song ID", Width: 16},
	{Title: "Stake Address", Width: 22},
	{Title: "Amount (USD)", Width: 16},
	{Title: "Claimed", Width: 7},
	{Title: "Memo", Width: 18},
	{Title: "Created", Width: 10},
}

func newEarningsTable() table.Model {
	t := table.New(
		table.WithColumns(earningsColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFDF5")).
		Background(lipgloss.Color("#7D56F4"))
	t.SetStyles(s)
	return t
}

// earningRows renders visible in table order, marking selected ids.
func earningRows(visible []models.Earning, view *tasks.EarningsView) []table.Row {
	rows := make([]table.Row, len(visible))
	for i, e := range visible {
		mark := " "
		if view.IsSelected(e.Key()) {
			mark = "●"
		}
		claimed := "no"
		if e.Claimed {
			claimed = "yes"
		}
		day, _, _ := strings.Cut(e.CreatedAt, "T")

		rows[i] = table.Row{
			mark,
			orDash(e.Song()),
			e.StakeAddress,
			shared.FormatAmount(e.Amount),
			claimed,
			orDash(e.Note()),
			day,
		}
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// totalsLine summarizes the visible rows.
func totalsLine(t tasks.Totals, selected int) string {
	line := fmt.Sprintf("%d earnings • total $%s • claimed $%s • unclaimed $%s",
		t.Count, shared.FormatAmount(t.Total), shared.FormatAmount(t.Claimed), shared.FormatAmount(t.Unclaimed))
	if selected > 0 {
		line += fmt.Sprintf(" • %d selected", selected)
	}
	return line
}

// sortLine describes the active sort and filters.
func sortLine(v *tasks.EarningsView) string {
	order := "asc"
	if v.Descending {
		order = "desc"
	}
	parts := []string{fmt.Sprintf("sort: %s %s", v.Sort, order)}
	if v.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", v.Search))
	}
	if v.From != "" || v.To != "" {
		parts = append(parts, fmt.Sprintf("dates: %s..%s", orDash(v.From), orDash(v.To)))
	}
	return strings.Join(parts, " • ")
}

// nextSort cycles through the sortable columns.
func nextSort(c tasks.SortColumn) tasks.SortColumn {
	switch c {
	case tasks.SortCreatedAt:
		return tasks.SortAmount
	case tasks.SortAmount:
		return tasks.SortClaimed
	default:
		return tasks.SortCreatedAt
	}
}
