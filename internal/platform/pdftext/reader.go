// Package pdftext pulls text and table-shaped rows out of text-layer PDFs.
//
// Two independent back-ends are offered: LayoutTables walks ledongthuc/pdf
// text rows and StreamTables tokenizes page content streams decoded by pdfcpu.
// PlainText returns the document text layer.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a document has no extractable text layer.
var ErrNoText = errors.New("pdftext: no text layer")

func openReader(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

// LayoutTables groups each page's text rows into cells and returns the tables
// found along with the row text of the whole document.
func LayoutTables(data []byte) (tables []Table, text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			tables, text, err = nil, "", fmt.Errorf("pdf layout: %v", r)
		}
	}()

	r, err := openReader(data)
	if err != nil {
		return nil, "", err
	}

	var all strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var cellRows [][]string
		for _, row := range rows {
			glyphs := make([]glyph, 0, len(row.Content))
			for _, t := range row.Content {
				glyphs = append(glyphs, glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
			}
			cellRows = append(cellRows, splitCells(glyphs))
		}
		tables = append(tables, tablesFromRows(cellRows)...)
		all.WriteString(rowsText(cellRows))
	}
	if strings.TrimSpace(all.String()) == "" {
		return nil, "", ErrNoText
	}
	return tables, all.String(), nil
}

// PlainText returns the concatenated text layer of every page.
func PlainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf text: %v", r)
		}
	}()

	r, err := openReader(data)
	if err != nil {
		return "", err
	}
	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("read text layer: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", ErrNoText
	}
	return string(b), nil
}
