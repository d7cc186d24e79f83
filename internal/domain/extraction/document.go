package extraction

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/pdftext"
)

const (
	MethodPDFLayout     = "pdf-layout"
	MethodPDFLayoutText = "pdf-layout-text"
	MethodPDFStream     = "pdf-content-stream"
	MethodPDFPlainText  = "pdf-plain-text"
)

var (
	parameterColumnTerms = []string{"test", "parameter", "investigation"}
	valueColumnTerms     = []string{"result", "value", "finding"}
)

// reportColumns finds the parameter-name and value columns of a report table
// by header keywords. A header naming a parameter column is never the value
// column.
func reportColumns(header []string) (param, value int, ok bool) {
	param, value = -1, -1
	for i, h := range header {
		lower := strings.ToLower(h)
		switch {
		case containsAny(lower, parameterColumnTerms):
			if param < 0 {
				param = i
			}
		case containsAny(lower, valueColumnTerms):
			if value < 0 {
				value = i
			}
		}
	}
	return param, value, param >= 0 && value >= 0
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// RowTableReader reads tables that list one parameter per row, the layout of
// most printed lab reports.
type RowTableReader struct {
	norm   *cbc.Normalizer
	logger zerolog.Logger
}

func NewRowTableReader(norm *cbc.Normalizer, logger zerolog.Logger) *RowTableReader {
	return &RowTableReader{norm: norm, logger: logger}
}

// Candidate reads one table. Without recognizable headers the first two
// columns are taken as name and value, and the first row is read as data.
func (r *RowTableReader) Candidate(table [][]string) *cbc.Candidate {
	c := cbc.NewCandidate(MethodRows)
	r.read(c, table)
	return c
}

// FromTables reads every table into a single candidate. Earlier tables win
// when a parameter repeats.
func (r *RowTableReader) FromTables(tables []pdftext.Table, method string) *cbc.Candidate {
	c := cbc.NewCandidate(method)
	for _, t := range tables {
		r.read(c, t)
	}
	return c
}

func (r *RowTableReader) read(c *cbc.Candidate, table [][]string) {
	if len(table) < 2 {
		return
	}
	param, value, ok := reportColumns(table[0])
	body := table[1:]
	if !ok {
		if param < 0 && value < 0 {
			body = table
		}
		if param < 0 {
			param = 0
			if value == 0 {
				param = 1
			}
		}
		if value < 0 {
			value = 1
			if param == 1 {
				value = 0
			}
		}
	}

	for _, row := range body {
		if param >= len(row) || value >= len(row) {
			continue
		}
		name, raw := strings.TrimSpace(row[param]), strings.TrimSpace(row[value])
		if name == "" || raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "none") {
			continue
		}
		missing := c.Missing()
		if len(missing) == 0 {
			return
		}
		for _, hit := range cbc.MatchAll(name, cbc.HeaderThreshold, missing...) {
			if v, ok := r.norm.Normalize(hit.ID, raw, name+" "+strings.Join(row, " ")); ok {
				addValue(c, v)
				break
			}
		}
	}
}

// DocumentExtractor reads text-layer PDFs with three methods in turn: layout
// tables (falling back to that back-end's text), content-stream tables, and
// the plain text layer.
type DocumentExtractor struct {
	rows   *RowTableReader
	text   *TextExtractor
	logger zerolog.Logger
}

func NewDocumentExtractor(rows *RowTableReader, text *TextExtractor, logger zerolog.Logger) *DocumentExtractor {
	return &DocumentExtractor{rows: rows, text: text, logger: logger}
}

type pdfMethod struct {
	name string
	run  func(data []byte) (*cbc.Candidate, error)
}

func (x *DocumentExtractor) methods() []pdfMethod {
	return []pdfMethod{
		{MethodPDFLayout, func(data []byte) (*cbc.Candidate, error) {
			tables, text, err := pdftext.LayoutTables(data)
			if err != nil {
				return nil, err
			}
			if c := x.rows.FromTables(tables, MethodPDFLayout); !c.Empty() {
				return c, nil
			}
			c := x.text.Extract(text)
			c.Method = MethodPDFLayoutText
			return c, nil
		}},
		{MethodPDFStream, func(data []byte) (*cbc.Candidate, error) {
			tables, _, err := pdftext.StreamTables(data)
			if err != nil {
				return nil, err
			}
			return x.rows.FromTables(tables, MethodPDFStream), nil
		}},
		{MethodPDFPlainText, func(data []byte) (*cbc.Candidate, error) {
			text, err := pdftext.PlainText(data)
			if err != nil {
				return nil, err
			}
			c := x.text.Extract(text)
			c.Method = MethodPDFPlainText
			return c, nil
		}},
	}
}

// Extract returns the first non-empty candidate. When every method fails the
// failure says whether any text was readable at all.
func (x *DocumentExtractor) Extract(ctx context.Context, data []byte) (*cbc.Candidate, error) {
	readable := false
	for _, m := range x.methods() {
		if err := ctx.Err(); err != nil {
			return nil, cbc.Failf(cbc.ReasonTimeout, "pdf extraction interrupted before %s", m.name)
		}
		c, err := runMethod(m.name, func() (*cbc.Candidate, error) { return m.run(data) })
		if err != nil {
			x.logger.Debug().Err(err).Str("method", m.name).Msg("pdf method failed")
			continue
		}
		readable = true
		if c.Empty() {
			x.logger.Debug().Str("method", m.name).Msg("pdf method found no parameters")
			continue
		}
		return c, nil
	}
	if readable {
		return nil, cbc.Failf(cbc.ReasonNoParameters, "no CBC parameters found in pdf")
	}
	return nil, cbc.Failf(cbc.ReasonUnreadable, "could not extract readable content from pdf")
}
