package extraction

import (
	"fmt"
	"strings"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/sheet"
)

var identifierTerms = []string{"patient", "id", "name", "mrn", "accession", "sample"}

func isIdentifierHeader(h string) bool {
	lower := strings.ToLower(h)
	for _, term := range identifierTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// identifierColumns returns the columns whose header names a record. Headers
// that are themselves CBC labels, such as "Patient Age", are passed over
// unless nothing else qualifies.
func identifierColumns(t *sheet.Table) []int {
	var keyword, labels []int
	for i, h := range t.Header {
		if !isIdentifierHeader(h) {
			continue
		}
		keyword = append(keyword, i)
		if m, ok := cbc.BestMatch(h, cbc.HeaderThreshold); ok && m.Tier >= cbc.TierContains {
			continue
		}
		labels = append(labels, i)
	}
	if len(labels) == 0 {
		return keyword
	}
	return labels
}

// DetectRecords returns a listing when t holds more than one data row, one
// entry per row labelled from its first non-empty identifier cell.
func DetectRecords(t *sheet.Table) *cbc.Listing {
	if t.Len() <= 1 {
		return nil
	}
	cols := identifierColumns(t)
	l := &cbc.Listing{
		Entries:      make([]cbc.ListingEntry, 0, t.Len()),
		TotalRecords: t.Len(),
		Message:      fmt.Sprintf("Found %d records. Please select which record to diagnose.", t.Len()),
	}
	for i := 0; i < t.Len(); i++ {
		label := fmt.Sprintf("Patient %d (Row %d)", i+1, i+1)
		for _, col := range cols {
			if v := t.Cell(i, col); v != "" {
				label = fmt.Sprintf("Patient %s (Row %d)", v, i+1)
				break
			}
		}
		l.Entries = append(l.Entries, cbc.ListingEntry{RowIndex: i, Label: label})
	}
	return l
}
