package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/schema"
)

// MappedColumn ties a header cell to the column schema it resolved to.
type MappedColumn struct {
	Index  int
	Header string
	Column schema.ColumnSchema
}

// ColumnMapping is the resolved header row, in header order.
type ColumnMapping struct {
	Columns []MappedColumn
}

// CanonicalNames returns the schema names of the mapped columns in header
// order.
func (m *ColumnMapping) CanonicalNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Column.CanonicalName
	}
	return names
}

// ColumnMapper resolves header rows against a sheet schema.
type ColumnMapper struct{}

// Map resolves headers against sheet. For each header the first schema
// column in declaration order that matches wins; a column already claimed
// by an earlier header is not claimed again and the later header is
// ignored. Headers that match nothing are dropped.
func (ColumnMapper) Map(headers []string, sheet schema.SheetSchema) (*ColumnMapping, []string, error) {
	claimed := make([]bool, len(sheet.Columns))
	mapping := &ColumnMapping{}
	var warnings []string
	var present []string

	for i, header := range headers {
		h := strings.TrimSpace(header)
		if h == "" {
			continue
		}
		present = append(present, h)

		for j, col := range sheet.Columns {
			if !col.Matches(h) {
				continue
			}
			if claimed[j] {
				warnings = append(warnings, fmt.Sprintf("duplicate column %q ignored; %q is already mapped", h, col.CanonicalName))
			} else {
				claimed[j] = true
				mapping.Columns = append(mapping.Columns, MappedColumn{Index: i, Header: h, Column: col})
			}
			break
		}
	}

	for j, col := range sheet.Columns {
		if claimed[j] {
			continue
		}
		if col.Required {
			return nil, warnings, apperrors.NewMissingColumnError(sheet.CanonicalName, col.CanonicalName, present)
		}
		warnings = append(warnings, fmt.Sprintf("optional column %q not found", col.CanonicalName))
	}

	return mapping, warnings, nil
}
