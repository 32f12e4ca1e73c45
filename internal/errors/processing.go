package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure of the ingestion pipeline.
type Kind string

const (
	KindSize       Kind = "size"
	KindFormat     Kind = "format"
	KindSheets     Kind = "sheets"
	KindColumns    Kind = "columns"
	KindParsing    Kind = "parsing"
	KindValidation Kind = "validation"
)

// ErrNoValidSheets is wrapped by the error returned when a workbook
// contains none of the sheets its category expects.
var ErrNoValidSheets = errors.New("no valid sheets found")

// ProcessingError is the single error shape produced by the ingestion
// pipeline. Message is always safe to show to the uploader; Cause holds the
// internal error and is only logged.
type ProcessingError struct {
	Kind    Kind        `json:"type"`
	Message string      `json:"message"`
	Detail  interface{} `json:"details,omitempty"`
	Cause   error       `json:"-"`
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	return e.Message
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// NewProcessingError creates a processing error of the given kind
func NewProcessingError(kind Kind, message string, detail interface{}, cause error) *ProcessingError {
	return &ProcessingError{
		Kind:    kind,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// AsProcessingError extracts a ProcessingError from an error chain
func AsProcessingError(err error) (*ProcessingError, bool) {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// SizeDetail describes a rejected file size
type SizeDetail struct {
	Size  int64 `json:"size"`
	Limit int64 `json:"limit"`
}

// FormatDetail describes a rejected file extension
type FormatDetail struct {
	Extension string   `json:"extension"`
	Allowed   []string `json:"allowed"`
}

// SheetsDetail describes a workbook that does not carry the expected sheets
type SheetsDetail struct {
	Missing   string   `json:"missing,omitempty"`
	Available []string `json:"available"`
}

// ColumnsDetail describes a sheet whose header lacks a required column
type ColumnsDetail struct {
	Sheet   string   `json:"sheet"`
	Missing string   `json:"missing"`
	Headers []string `json:"headers"`
}

// NewSizeError reports a file larger than the configured limit
func NewSizeError(size, limit int64) *ProcessingError {
	return NewProcessingError(KindSize,
		fmt.Sprintf("file size %s exceeds the %s limit", formatBytes(size), formatBytes(limit)),
		SizeDetail{Size: size, Limit: limit}, nil)
}

// NewFormatError reports a file extension outside the allowed set
func NewFormatError(ext string, allowed []string) *ProcessingError {
	shown := ext
	if shown == "" {
		shown = "(none)"
	}
	return NewProcessingError(KindFormat,
		fmt.Sprintf("unsupported file type %s; allowed types: %s", shown, strings.Join(allowed, ", ")),
		FormatDetail{Extension: ext, Allowed: allowed}, nil)
}

// NewMissingSheetError reports a required sheet that is absent. The message
// lists every sheet the workbook does contain.
func NewMissingSheetError(sheet string, available []string) *ProcessingError {
	return NewProcessingError(KindSheets,
		fmt.Sprintf("required sheet %q not found; available sheets: %s", sheet, listOrNone(available)),
		SheetsDetail{Missing: sheet, Available: available}, nil)
}

// NewNoValidSheetsError reports a workbook without any recognised sheet
func NewNoValidSheetsError(available []string) *ProcessingError {
	return NewProcessingError(KindSheets,
		fmt.Sprintf("no valid sheets found; available sheets: %s", listOrNone(available)),
		SheetsDetail{Available: available}, ErrNoValidSheets)
}

// NewMissingColumnError reports a required column absent from a header row
func NewMissingColumnError(sheet, column string, headers []string) *ProcessingError {
	return NewProcessingError(KindColumns,
		fmt.Sprintf("sheet %q: required column %q not found; headers present: %s", sheet, column, listOrNone(headers)),
		ColumnsDetail{Sheet: sheet, Missing: column, Headers: headers}, nil)
}

// NewCorruptFileError hides the decoder failure behind a generic message
func NewCorruptFileError(cause error) *ProcessingError {
	return NewProcessingError(KindParsing, "processing failed", nil, cause)
}

// NewTimeoutError reports a run that exceeded its processing timeout
func NewTimeoutError(timeout time.Duration, cause error) *ProcessingError {
	return NewProcessingError(KindParsing,
		fmt.Sprintf("processing timed out after %s", timeout), nil, cause)
}

// NewParsingError creates a parsing error with a custom message
func NewParsingError(message string, cause error) *ProcessingError {
	return NewProcessingError(KindParsing, message, nil, cause)
}

// NewInvalidInputError reports input rejected before any file work starts
func NewInvalidInputError(message string) *ProcessingError {
	return NewProcessingError(KindValidation, message, nil, nil)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	}
	if n >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	}
	return fmt.Sprintf("%dB", n)
}
