package sheet

import (
	"errors"
	"strings"
)

// ErrNoRows is returned when a source holds a header but no data rows.
var ErrNoRows = errors.New("sheet: no data rows")

// Table is a header row plus data rows, all cells trimmed and padded to the
// header width.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// NewTable builds a Table from raw records. Blank records are skipped and the
// first remaining record becomes the header.
func NewTable(name string, records [][]string) *Table {
	t := &Table{Name: name}
	width := 0
	var kept [][]string
	for _, rec := range records {
		row := make([]string, len(rec))
		blank := true
		for i, cell := range rec {
			row[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
			if row[i] != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		if len(row) > width {
			width = len(row)
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return t
	}
	for i := range kept {
		for len(kept[i]) < width {
			kept[i] = append(kept[i], "")
		}
	}
	t.Header = kept[0]
	t.Rows = kept[1:]
	return t
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Width is the number of columns.
func (t *Table) Width() int {
	return len(t.Header)
}

// Cell returns the trimmed cell at row, col or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Values returns every header and cell value, used for content scoring.
func (t *Table) Values() []string {
	out := make([]string, 0, len(t.Header)*(len(t.Rows)+1))
	out = append(out, t.Header...)
	for _, r := range t.Rows {
		out = append(out, r...)
	}
	return out
}
