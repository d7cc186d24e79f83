package extraction

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/cbclab/cbclab/internal/domain/cbc"
	"github.com/cbclab/cbclab/internal/platform/sheet"
)

const fivePatientCSV = `Patient ID,WBC,HGB,PLT
P001,7.2,13.5,250
P002,5.1,12.1,180
P003,9.8,15.0,320
P004,4.4,11.2,150
P005,6.6,14.3,275
`

func newTestTabular() *TabularExtractor {
	return NewTabularExtractor(newTestNormalizer(), zerolog.Nop())
}

func readCSV(t *testing.T, data string) *sheet.Table {
	t.Helper()
	tbl, err := sheet.ReadDelimited([]byte(data))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return tbl
}

func intPtr(i int) *int { return &i }

func TestTabularExtractor_ListsRecords(t *testing.T) {
	c, l, err := newTestTabular().Extract(readCSV(t, fivePatientCSV), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != nil {
		t.Fatalf("expected listing, got candidate %v", c.Values)
	}
	if l.TotalRecords != 5 || len(l.Entries) != 5 {
		t.Fatalf("expected 5 records, got %d/%d", l.TotalRecords, len(l.Entries))
	}
	for i, e := range l.Entries {
		if e.RowIndex != i {
			t.Errorf("entry %d: row index %d", i, e.RowIndex)
		}
	}
	if l.Entries[0].Label != "Patient P001 (Row 1)" {
		t.Errorf("unexpected label %q", l.Entries[0].Label)
	}
}

func TestTabularExtractor_SelectsRow(t *testing.T) {
	c, l, err := newTestTabular().Extract(readCSV(t, fivePatientCSV), intPtr(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != nil {
		t.Fatal("expected no listing when a row is selected")
	}
	assertValue(t, c, cbc.WBC, 9.8)
	assertValue(t, c, cbc.HGB, 15.0)
	assertValue(t, c, cbc.PLT, 320)
	if c.Has(cbc.Age) {
		t.Error("identifier column must not be read as age")
	}
}

func TestTabularExtractor_RowOutOfRange(t *testing.T) {
	for _, row := range []int{-1, 5, 99} {
		_, _, err := newTestTabular().Extract(readCSV(t, fivePatientCSV), intPtr(row))
		f, ok := cbc.AsFailure(err)
		if !ok || f.Reason != cbc.ReasonRowOutOfRange {
			t.Errorf("row %d: expected row_out_of_range, got %v", row, err)
		}
	}
}

func TestTabularExtractor_SingleRow(t *testing.T) {
	data := "WBC,LY%,NE%,HGB,Gender,Age\n7.5,30,60,14.1,Female,52\n"
	c, l, err := newTestTabular().Extract(readCSV(t, data), nil)
	if err != nil || l != nil {
		t.Fatalf("expected candidate, got listing=%v err=%v", l, err)
	}
	if c.Method != MethodColumns {
		t.Errorf("expected %s, got %s", MethodColumns, c.Method)
	}
	assertValue(t, c, cbc.LYPct, 30)
	assertValue(t, c, cbc.NEPct, 60)
	assertValue(t, c, cbc.Gender, 0)
	assertValue(t, c, cbc.Age, 52)
}

func TestTabularExtractor_VerticalReport(t *testing.T) {
	data := "Test,Result,Unit\nHemoglobin,13.2,g/dL\nWBC,6.1,10^3/uL\nPlatelet Count,240,10^3/uL\n"
	c, l, err := newTestTabular().Extract(readCSV(t, data), nil)
	if err != nil || l != nil {
		t.Fatalf("expected candidate, got listing=%v err=%v", l, err)
	}
	if c.Method != MethodRows {
		t.Errorf("expected %s, got %s", MethodRows, c.Method)
	}
	assertValue(t, c, cbc.HGB, 13.2)
	assertValue(t, c, cbc.WBC, 6.1)
	assertValue(t, c, cbc.PLT, 240)
}

func TestTabularExtractor_ExactHeaderBeatsContainment(t *testing.T) {
	// "Lymphocytes" is an alias of LY% while "LY#" names the absolute count.
	data := "LY#,Lymphocytes\n2.1,31\n"
	c, _, err := newTestTabular().Extract(readCSV(t, data), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValue(t, c, cbc.LYAbs, 2.1)
	assertValue(t, c, cbc.LYPct, 31)
}

func TestBestTable(t *testing.T) {
	notes := sheet.NewTable("Notes", [][]string{{"Comment"}, {"fasting sample"}})
	results := sheet.NewTable("Results", [][]string{{"WBC", "HGB", "PLT"}, {"7", "13", "250"}})
	empty := sheet.NewTable("Empty", [][]string{{"WBC"}})

	if got := BestTable([]*sheet.Table{notes, empty, results}); got != results {
		t.Errorf("expected Results sheet, got %v", got)
	}
	if got := BestTable([]*sheet.Table{notes}); got != notes {
		t.Errorf("expected first table with rows on a zero score, got %v", got)
	}
	if got := BestTable([]*sheet.Table{empty}); got != nil {
		t.Errorf("expected nil for tables without rows, got %v", got)
	}
}

func TestDetectRecords_FallbackLabels(t *testing.T) {
	tbl := sheet.NewTable("csv", [][]string{{"WBC", "HGB"}, {"7", "13"}, {"6", "12"}})
	l := DetectRecords(tbl)
	if l == nil || len(l.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %v", l)
	}
	if l.Entries[1].Label != "Patient 2 (Row 2)" {
		t.Errorf("unexpected label %q", l.Entries[1].Label)
	}

	single := sheet.NewTable("csv", [][]string{{"WBC"}, {"7"}})
	if DetectRecords(single) != nil {
		t.Error("expected no listing for a single record")
	}
}
