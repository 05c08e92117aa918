package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table is a simple column-aligned listing.
type Table struct {
	Headers []string
	Rows    [][]string
	// Right lists the columns aligned to the right.
	Right map[int]bool
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

func (t *Table) line(cells []string, widths []int) string {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", w-lipgloss.Width(cell))
		if t.Right[i] {
			b.WriteString(pad + cell)
		} else {
			b.WriteString(cell + pad)
		}
		if i < len(widths)-1 {
			b.WriteString(strings.Repeat(" ", ColumnGap))
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Render returns the table text. Headers are styled when styled is set.
func (t *Table) Render(styled bool) string {
	widths := t.widths()
	var lines []string
	if len(t.Headers) > 0 {
		lines = append(lines, render(styled, TableHeaderStyle, t.line(t.Headers, widths)))
	}
	for _, row := range t.Rows {
		lines = append(lines, t.line(row, widths))
	}
	return strings.Join(lines, "\n") + "\n"
}
