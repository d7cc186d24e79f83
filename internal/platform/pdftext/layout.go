package pdftext

import (
	"math"
	"sort"
	"strings"
)

// Table is a block of consecutive page rows that split into two or more cells.
type Table [][]string

// glyph is a positioned run of text, a single character or a whole string.
type glyph struct {
	X, Y, W float64
	Size    float64
	S       string
}

// cellGapEm is the horizontal gap, in font-size units, that separates cells.
const cellGapEm = 1.0

// wordGapEm is the gap above which adjacent runs are joined with a space.
const wordGapEm = 0.15

// splitCells merges the glyphs of one row into cells, left to right.
func splitCells(row []glyph) []string {
	if len(row) == 0 {
		return nil
	}
	sorted := make([]glyph, len(row))
	copy(sorted, row)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var cells []string
	var cur strings.Builder
	prevEnd := math.Inf(-1)
	for _, g := range sorted {
		size := g.Size
		if size <= 0 {
			size = 10
		}
		gap := g.X - prevEnd
		switch {
		case cur.Len() > 0 && gap > size*cellGapEm:
			cells = appendCell(cells, cur.String())
			cur.Reset()
		case cur.Len() > 0 && gap > size*wordGapEm:
			cur.WriteByte(' ')
		}
		cur.WriteString(g.S)
		if end := g.X + g.W; end > prevEnd {
			prevEnd = end
		}
	}
	return appendCell(cells, cur.String())
}

func appendCell(cells []string, s string) []string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return cells
	}
	return append(cells, s)
}

// groupRows buckets glyphs into rows by baseline, top of page first.
func groupRows(glyphs []glyph) [][]glyph {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows [][]glyph
	rowY := sorted[0].Y
	var cur []glyph
	for _, g := range sorted {
		tol := g.Size * 0.5
		if tol < 2 {
			tol = 2
		}
		if len(cur) > 0 && math.Abs(g.Y-rowY) > tol {
			rows = append(rows, cur)
			cur = nil
			rowY = g.Y
		}
		if len(cur) == 0 {
			rowY = g.Y
		}
		cur = append(cur, g)
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}
	return rows
}

// tablesFromRows collects runs of multi-cell rows. Runs shorter than two rows
// are not tables.
func tablesFromRows(rows [][]string) []Table {
	var tables []Table
	var cur Table
	flush := func() {
		if len(cur) >= 2 {
			tables = append(tables, cur)
		}
		cur = nil
	}
	for _, r := range rows {
		if len(r) < 2 {
			flush()
			continue
		}
		cur = append(cur, r)
	}
	flush()
	return tables
}

// rowsText renders rows as lines with cells separated by two spaces.
func rowsText(rows [][]string) string {
	var b strings.Builder
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		b.WriteString(strings.Join(r, "  "))
		b.WriteByte('\n')
	}
	return b.String()
}
