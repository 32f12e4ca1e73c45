package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// SheetState is the position of a SheetProcessor within one sheet.
type SheetState string

const (
	StateReading      SheetState = "reading"
	StateHeaderDetect SheetState = "header-detect"
	StateRowExtract   SheetState = "row-extract"
	StateDone         SheetState = "done"
)

const (
	// rows between context checks
	cancelCheckInterval = 500
	// per-sheet cap on recorded cell warnings
	maxSheetWarnings = 1000
)

// SheetProcessor turns one raw worksheet into a NormalizedSheet.
type SheetProcessor struct {
	coercer       *RowCoercer
	mapper        ColumnMapper
	skipEmptyRows bool
	logger        *slog.Logger
}

// NewSheetProcessor creates a processor configured from cfg.
func NewSheetProcessor(cfg schema.SchemaConfig, logger *slog.Logger) *SheetProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetProcessor{
		coercer:       NewRowCoercer(cfg.TrimStrings),
		skipEmptyRows: cfg.SkipEmptyRows,
		logger:        logger.With(slog.String("component", "sheet_processor")),
	}
}

// sheetRun carries the state of a single Process call.
type sheetRun struct {
	state    SheetState
	warnings []string
	dropped  int
}

func (r *sheetRun) warn(sheet, msg string) {
	if len(r.warnings) >= maxSheetWarnings {
		r.dropped++
		return
	}
	r.warnings = append(r.warnings, fmt.Sprintf("sheet %q: %s", sheet, msg))
}

func (r *sheetRun) finish(sheet string) []string {
	if r.dropped > 0 {
		r.warnings = append(r.warnings, fmt.Sprintf("sheet %q: ... and %d more warnings", sheet, r.dropped))
	}
	r.state = StateDone
	return r.warnings
}

// Process normalizes raw according to sheet. A sheet without a header row
// yields a nil result and a warning. A missing required column is returned
// as an error and aborts the run.
func (p *SheetProcessor) Process(ctx context.Context, raw RawSheet, sheet schema.SheetSchema) (*domain.NormalizedSheet, []string, error) {
	run := &sheetRun{state: StateReading}
	logger := p.logger.With(
		slog.String("sheet", sheet.CanonicalName),
		slog.String("actual_sheet", raw.Name))

	run.state = StateHeaderDetect
	headerIdx := -1
	for i, row := range raw.Rows {
		if !blankRow(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		run.warn(raw.Name, "no header row found")
		logger.WarnContext(ctx, "no_header_row")
		return nil, run.finish(raw.Name), nil
	}

	mapping, mapWarnings, err := p.mapper.Map(raw.Rows[headerIdx], sheet)
	for _, w := range mapWarnings {
		run.warn(raw.Name, w)
	}
	if err != nil {
		return nil, run.finish(raw.Name), err
	}

	run.state = StateRowExtract
	out := &domain.NormalizedSheet{
		Name:     sheet.CanonicalName,
		Category: sheet.Category,
		Columns:  mapping.CanonicalNames(),
		Rows:     make([]domain.Row, 0, len(raw.Rows)-headerIdx-1),
	}
	out.ColumnCount = len(out.Columns)

	for i := headerIdx + 1; i < len(raw.Rows); i++ {
		if (i-headerIdx)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, run.finish(raw.Name), err
			}
		}

		cells := raw.Rows[i]
		if p.skipEmptyRows && blankRow(cells) {
			continue
		}

		rowNum := i + 1
		row := make(domain.Row, len(mapping.Columns))
		for _, mc := range mapping.Columns {
			var cell interface{}
			if mc.Index < len(cells) {
				cell = cells[mc.Index]
			}
			value, ok, warning := p.coercer.Field(cell, mc.Column, rowNum)
			if warning != "" {
				run.warn(raw.Name, warning)
			}
			if ok {
				row[mc.Column.CanonicalName] = value
			}
		}

		if len(row) == 0 {
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	out.RowCount = len(out.Rows)
	if out.RowCount == 0 {
		run.warn(raw.Name, "no data rows found")
	}
	out.Warnings = run.finish(raw.Name)
	out.SuppressedWarnings = run.dropped

	logger.DebugContext(ctx, "sheet_processed",
		slog.Int("row_count", out.RowCount),
		slog.Int("column_count", out.ColumnCount),
		slog.Int("warning_count", len(out.Warnings)))

	return out, out.Warnings, nil
}

// ProcessMatched normalizes every matched sheet of wb in match order.
// onSheet, when set, is called after each sheet with the number done.
func (p *SheetProcessor) ProcessMatched(ctx context.Context, wb *Workbook, matches []SheetMatch, onSheet func(done, total int)) ([]domain.NormalizedSheet, []string, error) {
	var sheets []domain.NormalizedSheet
	var warnings []string

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, warnings, err
		}

		raw, ok := wb.Sheet(m.SheetName)
		if !ok {
			return nil, warnings, fmt.Errorf("matched sheet %q is not in the workbook", m.SheetName)
		}

		ns, sheetWarnings, err := p.Process(ctx, raw, m.Schema)
		warnings = append(warnings, sheetWarnings...)
		if err != nil {
			return nil, warnings, err
		}
		if ns != nil {
			sheets = append(sheets, *ns)
		}

		if onSheet != nil {
			onSheet(i+1, len(matches))
		}
	}

	return sheets, warnings, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if !isBlank(c) {
			return false
		}
	}
	return true
}
