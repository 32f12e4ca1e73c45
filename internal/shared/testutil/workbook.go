package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// SheetFixture describes one worksheet of a generated workbook. Rows are
// written starting at A1; nil cells are left empty.
type SheetFixture struct {
	Name string
	Rows [][]interface{}
}

// WorkbookBytes builds an .xlsx workbook in memory and returns its bytes.
// The default "Sheet1" is removed unless a fixture uses that name.
func WorkbookBytes(t testing.TB, sheets ...SheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	keepDefault := false
	for _, s := range sheets {
		if s.Name == "Sheet1" {
			keepDefault = true
			continue
		}
		if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("create sheet %q: %v", s.Name, err)
		}
	}

	for _, s := range sheets {
		for i, row := range s.Rows {
			if len(row) == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(s.Name, cell, &row); err != nil {
				t.Fatalf("write row %d of %q: %v", i+1, s.Name, err)
			}
		}
	}

	if !keepDefault && len(sheets) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			t.Fatalf("delete default sheet: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
