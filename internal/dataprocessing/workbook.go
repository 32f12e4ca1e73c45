package dataprocessing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// Upload is a file handed to the pipeline together with its category.
type Upload struct {
	FileName string
	Category domain.Category
	Content  []byte
}

// Size returns the upload size in bytes
func (u Upload) Size() int64 {
	return int64(len(u.Content))
}

// RawSheet holds the uncoerced cell text of one worksheet.
type RawSheet struct {
	Name string
	Rows [][]string
}

// Workbook is the decoded content of an upload, in workbook sheet order.
type Workbook struct {
	Sheets []RawSheet
}

// SheetNames returns the worksheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the worksheet with the exact given name.
func (w *Workbook) Sheet(name string) (RawSheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return RawSheet{}, false
}

// CheckUpload rejects uploads whose extension or size the schema does not
// allow, before any decoding work is done.
func CheckUpload(u Upload, cfg schema.SchemaConfig) error {
	ext := strings.ToLower(filepath.Ext(u.FileName))
	allowed := false
	for _, a := range cfg.AllowedExtensions {
		if strings.EqualFold(ext, a) {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.NewFormatError(ext, cfg.AllowedExtensions)
	}

	if u.Size() > cfg.MaxFileSize {
		return apperrors.NewSizeError(u.Size(), cfg.MaxFileSize)
	}
	if u.Size() == 0 {
		return apperrors.NewInvalidInputError("file is empty")
	}
	return nil
}

// WorkbookReader decodes spreadsheet files with excelize.
type WorkbookReader struct {
	logger *slog.Logger
}

// NewWorkbookReader creates a reader
func NewWorkbookReader(logger *slog.Logger) *WorkbookReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookReader{logger: logger.With(slog.String("component", "workbook_reader"))}
}

// Open parses the container of an upload. Any decoder failure is reported
// as the generic parsing error so internals never reach the uploader.
func (r *WorkbookReader) Open(ctx context.Context, content []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		r.logger.WarnContext(ctx, "workbook_open_failed", slog.String("error", err.Error()))
		return nil, apperrors.NewCorruptFileError(fmt.Errorf("failed to open workbook: %w", err))
	}
	return f, nil
}

// Extract reads every worksheet of an opened file. Cells are read as raw
// values so dates arrive as serial numbers rather than locale-formatted text.
func (r *WorkbookReader) Extract(ctx context.Context, f *excelize.File) (*Workbook, error) {
	names := f.GetSheetList()
	wb := &Workbook{Sheets: make([]RawSheet, 0, len(names))}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			r.logger.WarnContext(ctx, "sheet_read_failed",
				slog.String("sheet", name),
				slog.String("error", err.Error()))
			return nil, apperrors.NewCorruptFileError(fmt.Errorf("failed to read sheet %q: %w", name, err))
		}

		wb.Sheets = append(wb.Sheets, RawSheet{Name: name, Rows: rows})
		r.logger.DebugContext(ctx, "sheet_read",
			slog.String("sheet", name),
			slog.Int("row_count", len(rows)))
	}

	return wb, nil
}

// Read opens and extracts in one call.
func (r *WorkbookReader) Read(ctx context.Context, content []byte) (*Workbook, error) {
	f, err := r.Open(ctx, content)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.Extract(ctx, f)
}
