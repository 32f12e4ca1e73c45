package domain

import (
	"fmt"
	"strings"
)

// Category is the kind of workbook an upload carries.
type Category string

const (
	CategoryInventory Category = "inventory"
	CategoryOSR       Category = "osr"
)

// Categories lists every supported category in a stable order.
var Categories = []Category{CategoryInventory, CategoryOSR}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryInventory, CategoryOSR:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q: expected inventory or osr", s)
	}
}

// Row is one normalized record keyed by canonical column name. Values are
// string, float64 or time.Time.
type Row map[string]interface{}

// NormalizedSheet is the typed content of one worksheet after validation
// and coercion. It only ever contains columns declared by its schema and is
// not modified after it is produced.
type NormalizedSheet struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	RowCount    int      `json:"row_count"`
	ColumnCount int      `json:"column_count"`
	Columns     []string `json:"columns"`
	Rows        []Row    `json:"rows"`
	Warnings    []string `json:"warnings,omitempty"`
	// SuppressedWarnings counts warnings past the per-sheet cap that are
	// only summarized in Warnings.
	SuppressedWarnings int `json:"suppressed_warnings,omitempty"`
}
