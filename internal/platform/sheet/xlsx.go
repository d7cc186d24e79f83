package sheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// maxWorkbookSize caps the unpacked workbook size and keeps every part in memory.
const maxWorkbookSize = 64 << 20

// ReadWorkbook returns one Table per non-empty worksheet, in workbook order.
func ReadWorkbook(data []byte) ([]*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		UnzipSizeLimit:    maxWorkbookSize,
		UnzipXMLSizeLimit: maxWorkbookSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var tables []*Table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		t := NewTable(name, rows)
		if t.Width() == 0 {
			continue
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil, ErrNoRows
	}
	return tables, nil
}
