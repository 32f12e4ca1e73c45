package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/schema"
)

// SheetMatch pairs a sheet schema with the worksheet that satisfies it.
type SheetMatch struct {
	Schema    schema.SheetSchema
	SheetName string
}

// WorkbookValidator checks that a workbook carries the sheets its category
// requires.
type WorkbookValidator struct {
	logger *slog.Logger
}

// NewWorkbookValidator creates a validator
func NewWorkbookValidator(logger *slog.Logger) *WorkbookValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookValidator{logger: logger.With(slog.String("component", "workbook_validator"))}
}

// Validate matches actual sheet names against cfg.Sheets in declaration
// order. Each worksheet satisfies at most one schema. The first missing
// required sheet fails the run; missing optional sheets become warnings.
func (v *WorkbookValidator) Validate(ctx context.Context, sheetNames []string, cfg schema.SchemaConfig) ([]SheetMatch, []string, error) {
	claimed := make([]bool, len(sheetNames))
	var matches []SheetMatch
	var warnings []string

	for _, sheet := range cfg.Sheets {
		idx := -1
		for i, name := range sheetNames {
			if !claimed[i] && sheet.Matches(name) {
				idx = i
				break
			}
		}

		if idx < 0 {
			if !sheet.Optional {
				v.logger.WarnContext(ctx, "required_sheet_missing",
					slog.String("sheet", sheet.CanonicalName),
					slog.Any("available", sheetNames))
				return nil, warnings, apperrors.NewMissingSheetError(sheet.CanonicalName, sheetNames)
			}
			warnings = append(warnings, fmt.Sprintf("optional sheet %q not found", sheet.CanonicalName))
			continue
		}

		claimed[idx] = true
		matches = append(matches, SheetMatch{Schema: sheet, SheetName: sheetNames[idx]})
		v.logger.DebugContext(ctx, "sheet_matched",
			slog.String("sheet", sheet.CanonicalName),
			slog.String("actual", sheetNames[idx]))
	}

	if len(matches) == 0 {
		return nil, warnings, apperrors.NewNoValidSheetsError(sheetNames)
	}

	return matches, warnings, nil
}
