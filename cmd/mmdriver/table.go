package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joshuapare/segalloc/mem/driver"
)

var (
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	mutedColor   = lipgloss.Color("#666666")
	borderColor  = lipgloss.Color("#383838")

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor).
				Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	totalStyle = cellStyle.Bold(true)
)

var resultHeaders = []string{"Trace", "Ops", "Heap", "Peak live", "Util", "Ops/s", "Grows", "Moves"}

// renderResults lays out one row per trace plus a summary row.
func renderResults(results []*driver.Result, sum summary, color bool) string {
	rows := make([][]string, 0, len(results)+1)
	for _, r := range results {
		rows = append(rows, []string{
			r.Trace,
			formatCount(r.Ops),
			formatCount(r.HeapSize),
			formatCount(r.PeakLive),
			formatPercent(r.Util),
			formatRate(r.Throughput),
			formatCount(r.Stats.GrowCalls),
			formatCount(r.Stats.ReallocCopy),
		})
	}
	rows = append(rows, []string{
		"total", formatCount(sum.Ops), "", "", formatPercent(sum.MeanUtil), formatRate(sum.Throughput), "", "",
	})
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(resultHeaders...).
		Rows(rows...)

	if !color {
		return t.Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style { return cellStyle }).
			String()
	}

	return t.BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case row == last:
				return totalStyle
			case col == 4 && row < len(results):
				if results[row].Util >= 0.7 {
					return cellStyle.Foreground(successColor)
				}
				return cellStyle.Foreground(warningColor)
			case col >= 6:
				return cellStyle.Foreground(mutedColor)
			default:
				return cellStyle
			}
		}).
		String()
}
