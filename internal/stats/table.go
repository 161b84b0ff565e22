package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// table accumulates rows and renders them as aligned plain-text lines.
// Columns listed in numeric are right-aligned.
type table struct {
	headers []string
	numeric map[int]bool
	rows    [][]string
}

func newTable(headers []string, numeric ...int) *table {
	t := &table{headers: headers, numeric: map[int]bool{}}
	for _, col := range numeric {
		t.numeric[col] = true
	}
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) lines() []string {
	widths := t.columnWidths()
	if len(widths) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.rows)+1)
	if len(t.headers) > 0 {
		out = append(out, t.renderRow(t.headers, widths))
	}
	for _, row := range t.rows {
		out = append(out, t.renderRow(row, widths))
	}
	return out
}

func (t *table) columnWidths() []int {
	count := len(t.headers)
	for _, row := range t.rows {
		if len(row) > count {
			count = len(row)
		}
	}
	widths := make([]int, count)
	measure := func(row []string) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func (t *table) renderRow(row []string, widths []int) string {
	var b strings.Builder
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		pad := width - runewidth.StringWidth(cell)
		if pad < 0 {
			pad = 0
		}
		if t.numeric[i] {
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(cell)
		} else {
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	return b.String()
}
