package extraction

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/sheet"
)

const (
	MethodColumns = "table-columns"
	MethodRows    = "table-rows"
)

// scoreAliases is how many preferred aliases count toward a table's score.
const scoreAliases = 3

var matchTiers = []cbc.Tier{cbc.TierExact, cbc.TierContains, cbc.TierFuzzy}

// TabularExtractor reads delimited text and spreadsheets.
type TabularExtractor struct {
	norm   *cbc.Normalizer
	rows   *RowTableReader
	logger zerolog.Logger
}

func NewTabularExtractor(norm *cbc.Normalizer, logger zerolog.Logger) *TabularExtractor {
	return &TabularExtractor{norm: norm, rows: NewRowTableReader(norm, logger), logger: logger}
}

// ReadTable parses data of a tabular kind. Workbooks yield their best sheet.
// Bytes that excelize cannot open are retried as delimited text, which covers
// legacy .xls exports that are really CSV or TSV.
func (x *TabularExtractor) ReadTable(data []byte, kind Kind) (*sheet.Table, error) {
	if kind.Family() != FamilySpreadsheet {
		return sheet.ReadDelimited(data)
	}
	tables, err := sheet.ReadWorkbook(data)
	if errors.Is(err, sheet.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		x.logger.Debug().Err(err).Str("kind", string(kind)).Msg("workbook unreadable, trying delimited text")
		return sheet.ReadDelimited(data)
	}
	best := BestTable(tables)
	if best == nil {
		return nil, sheet.ErrNoRows
	}
	x.logger.Debug().Str("sheet", best.Name).Int("rows", best.Len()).Msg("sheet selected")
	return best, nil
}

// ScoreTable counts the parameters whose preferred aliases appear verbatim as
// a cell or header.
func ScoreTable(t *sheet.Table) int {
	values := make(map[string]bool)
	for _, v := range t.Values() {
		values[strings.ToLower(v)] = true
	}
	score := 0
	for _, id := range cbc.IDs() {
		for _, a := range cbc.TopAliases(id, scoreAliases) {
			if values[a] {
				score++
				break
			}
		}
	}
	return score
}

// BestTable picks the highest-scoring table with data rows. The first such
// table wins ties, including when nothing scores.
func BestTable(tables []*sheet.Table) *sheet.Table {
	var best *sheet.Table
	bestScore := -1
	for _, t := range tables {
		if t == nil || t.Len() == 0 {
			continue
		}
		if s := ScoreTable(t); s > bestScore {
			best, bestScore = t, s
		}
	}
	return best
}

// Extract turns t into a candidate or, for multi-row tables without a row
// selector, a listing of records.
func (x *TabularExtractor) Extract(t *sheet.Table, row *int) (*cbc.Candidate, *cbc.Listing, error) {
	if row != nil {
		if *row < 0 || *row >= t.Len() {
			return nil, nil, cbc.Failf(cbc.ReasonRowOutOfRange, "row %d requested, document has %d records", *row, t.Len())
		}
		return x.Row(t, *row), nil, nil
	}
	if _, _, ok := reportColumns(t.Header); ok {
		if c := x.rows.Candidate(append([][]string{t.Header}, t.Rows...)); !c.Empty() {
			return c, nil, nil
		}
	}
	if l := DetectRecords(t); l != nil {
		return nil, l, nil
	}
	return x.Row(t, 0), nil, nil
}

type headerColumn struct {
	idx   int
	label string
	hits  []cbc.Match
	ident bool
}

// Row extracts one record whose parameters are laid out as columns. Columns
// are assigned in tier passes so an exact header is never claimed by a
// weaker match elsewhere. Within a pass the first hit whose cell validates
// takes the column. Identifier columns never match fuzzily.
func (x *TabularExtractor) Row(t *sheet.Table, idx int) *cbc.Candidate {
	c := cbc.NewCandidate(MethodColumns)

	var cols []headerColumn
	for i, h := range t.Header {
		if t.Cell(idx, i) == "" {
			continue
		}
		hits := cbc.MatchAll(h, cbc.HeaderThreshold)
		if len(hits) == 0 {
			continue
		}
		cols = append(cols, headerColumn{idx: i, label: h, hits: hits, ident: isIdentifierHeader(h)})
	}

	assigned := make(map[int]bool, len(cols))
	for _, tier := range matchTiers {
		for _, col := range cols {
			if assigned[col.idx] || (tier == cbc.TierFuzzy && col.ident) {
				continue
			}
			cell := t.Cell(idx, col.idx)
			for _, h := range col.hits {
				if h.Tier != tier || c.Has(h.ID) {
					continue
				}
				v, ok := x.norm.Normalize(h.ID, cell, col.label+" "+cell)
				if !ok {
					continue
				}
				addValue(c, v)
				assigned[col.idx] = true
				x.logger.Debug().Str("column", col.label).Str("param", string(h.ID)).Str("tier", tier.String()).Msg("column assigned")
				break
			}
		}
	}
	return c
}

// addValue stores v and records low-confidence acceptances on the candidate.
func addValue(c *cbc.Candidate, v cbc.ExtractedValue) {
	if c.Has(v.Parameter) {
		return
	}
	if v.Confidence == cbc.ConfidenceLenient {
		c.Warn("%s=%g accepted outside the expected range", v.Parameter, v.Value)
	}
	c.Add(v)
}
