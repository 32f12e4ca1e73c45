package domain

import "time"

// ProcessingResult is the terminal outcome of one ingestion run.
type ProcessingResult struct {
	Success  bool             `json:"success"`
	Data     *ResultData      `json:"data,omitempty"`
	Error    *ResultError     `json:"error,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
	Stats    *ProcessingStats `json:"stats,omitempty"`
}

// ResultData is the normalized content of a successfully processed file.
type ResultData struct {
	FileName           string            `json:"file_name"`
	FileSize           int64             `json:"file_size"`
	ProcessedAt        time.Time         `json:"processed_at"`
	Sheets             []NormalizedSheet `json:"sheets"`
	DetectedCategories []Category        `json:"detected_categories"`
}

// ResultError is the user-facing part of a failed run.
type ResultError struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ProcessingStats summarizes a run.
type ProcessingStats struct {
	TotalRows        int   `json:"total_rows"`
	TotalColumns     int   `json:"total_columns"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	SheetsProcessed  int   `json:"sheets_processed"`
	WarningCount     int   `json:"warning_count"`
}

// SheetsByCategory returns the sheets of one category in result order.
func (d *ResultData) SheetsByCategory(category Category) []NormalizedSheet {
	if d == nil {
		return nil
	}
	var out []NormalizedSheet
	for _, s := range d.Sheets {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}
