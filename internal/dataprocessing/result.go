package dataprocessing

import (
	"time"

	apperrors "stockpulse/internal/errors"
	"stockpulse/pkg/contracts/domain"
)

// BuildResult assembles the successful outcome of a run.
func BuildResult(u Upload, sheets []domain.NormalizedSheet, warnings []string, started, finished time.Time) *domain.ProcessingResult {
	stats := &domain.ProcessingStats{
		ProcessingTimeMs: finished.Sub(started).Milliseconds(),
		SheetsProcessed:  len(sheets),
		WarningCount:     len(warnings),
	}

	var categories []domain.Category
	seen := make(map[domain.Category]bool)
	for _, s := range sheets {
		stats.TotalRows += s.RowCount
		stats.TotalColumns += s.ColumnCount
		if s.SuppressedWarnings > 0 {
			// the summary line stands in for the suppressed warnings
			stats.WarningCount += s.SuppressedWarnings - 1
		}
		if !seen[s.Category] {
			seen[s.Category] = true
			categories = append(categories, s.Category)
		}
	}
	if sheets == nil {
		sheets = []domain.NormalizedSheet{}
	}
	if categories == nil {
		categories = []domain.Category{}
	}

	return &domain.ProcessingResult{
		Success: true,
		Data: &domain.ResultData{
			FileName:           u.FileName,
			FileSize:           u.Size(),
			ProcessedAt:        finished.UTC(),
			Sheets:             sheets,
			DetectedCategories: categories,
		},
		Warnings: warnings,
		Stats:    stats,
	}
}

// FailedResult converts a pipeline error into a failed outcome. Errors that
// are not ProcessingErrors are reported as the generic parsing failure so
// their text never reaches the uploader.
func FailedResult(err error, warnings []string, started, finished time.Time) *domain.ProcessingResult {
	pe, ok := apperrors.AsProcessingError(err)
	if !ok {
		pe = apperrors.NewCorruptFileError(err)
	}

	return &domain.ProcessingResult{
		Success: false,
		Error: &domain.ResultError{
			Type:    string(pe.Kind),
			Message: pe.Message,
			Details: pe.Detail,
		},
		Warnings: warnings,
		Stats: &domain.ProcessingStats{
			ProcessingTimeMs: finished.Sub(started).Milliseconds(),
			WarningCount:     len(warnings),
		},
	}
}
