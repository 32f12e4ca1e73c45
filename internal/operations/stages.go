package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"stockpulse/internal/dataprocessing"
	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// ReadingStage checks the upload against the schema limits and opens it
// as a workbook.
type ReadingStage struct {
	BaseStage
	reader *dataprocessing.WorkbookReader
}

// NewReadingStage creates the reading stage
func NewReadingStage(reader *dataprocessing.WorkbookReader) *ReadingStage {
	return &ReadingStage{
		BaseStage: NewBaseStage(StageIDReading, StageNameReading, nil),
		reader:    reader,
	}
}

// Validate requires the upload and its schema
func (s *ReadingStage) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyUpload, ContextKeySchema)
}

// Execute rejects oversized or foreign files before decoding them
func (s *ReadingStage) Execute(ctx context.Context, state *OperationState) error {
	upload, err := contextValue[dataprocessing.Upload](state, ContextKeyUpload)
	if err != nil {
		return err
	}
	cfg, err := contextValue[schema.SchemaConfig](state, ContextKeySchema)
	if err != nil {
		return err
	}

	state.Report(s.ID(), 0, "checking upload")
	if err := dataprocessing.CheckUpload(upload, cfg); err != nil {
		return err
	}

	state.Report(s.ID(), 0.3, "opening workbook")
	f, err := s.reader.Open(ctx, upload.Content)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyFile, f)
	setStageMetadata(state, s.ID(), "file_size", upload.Size())

	state.Report(s.ID(), 1, "workbook opened")
	return nil
}

// ParsingStage decodes every worksheet into raw cell text.
type ParsingStage struct {
	BaseStage
	reader *dataprocessing.WorkbookReader
}

// NewParsingStage creates the parsing stage
func NewParsingStage(reader *dataprocessing.WorkbookReader) *ParsingStage {
	return &ParsingStage{
		BaseStage: NewBaseStage(StageIDParsing, StageNameParsing, []string{StageIDReading}),
		reader:    reader,
	}
}

// Validate requires an opened workbook
func (s *ParsingStage) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyFile)
}

// Execute extracts the rows of every sheet
func (s *ParsingStage) Execute(ctx context.Context, state *OperationState) error {
	f, err := contextValue[*excelize.File](state, ContextKeyFile)
	if err != nil {
		return err
	}

	state.Report(s.ID(), 0, "reading sheets")
	wb, err := s.reader.Extract(ctx, f)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyWorkbook, wb)
	setStageMetadata(state, s.ID(), "sheet_count", len(wb.Sheets))

	state.Report(s.ID(), 1, fmt.Sprintf("%d sheets read", len(wb.Sheets)))
	return nil
}

// ValidatingStage matches the workbook's sheets against the schema.
type ValidatingStage struct {
	BaseStage
	validator *dataprocessing.WorkbookValidator
}

// NewValidatingStage creates the validating stage
func NewValidatingStage(validator *dataprocessing.WorkbookValidator) *ValidatingStage {
	return &ValidatingStage{
		BaseStage: NewBaseStage(StageIDValidating, StageNameValidating, []string{StageIDParsing}),
		validator: validator,
	}
}

// Validate requires the decoded workbook and schema
func (s *ValidatingStage) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyWorkbook, ContextKeySchema)
}

// Execute fails on the first missing required sheet
func (s *ValidatingStage) Execute(ctx context.Context, state *OperationState) error {
	wb, err := contextValue[*dataprocessing.Workbook](state, ContextKeyWorkbook)
	if err != nil {
		return err
	}
	cfg, err := contextValue[schema.SchemaConfig](state, ContextKeySchema)
	if err != nil {
		return err
	}

	state.Report(s.ID(), 0, "matching sheets")
	matches, warnings, err := s.validator.Validate(ctx, wb.SheetNames(), cfg)
	state.AddWarnings(warnings...)
	if err != nil {
		return err
	}
	state.SetContext(ContextKeyMatches, matches)
	setStageMetadata(state, s.ID(), "matched_sheets", len(matches))

	state.Report(s.ID(), 1, fmt.Sprintf("%d sheets matched", len(matches)))
	return nil
}

// ProcessingStage maps, coerces and normalizes every matched sheet.
type ProcessingStage struct {
	BaseStage
	logger *slog.Logger
}

// NewProcessingStage creates the processing stage
func NewProcessingStage(logger *slog.Logger) *ProcessingStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingStage{
		BaseStage: NewBaseStage(StageIDProcessing, StageNameProcessing, []string{StageIDValidating}),
		logger:    logger,
	}
}

// Validate requires the workbook, the sheet matches and the schema
func (s *ProcessingStage) Validate(state *OperationState) error {
	return requireContext(state, ContextKeyWorkbook, ContextKeyMatches, ContextKeySchema)
}

// Execute produces the normalized sheets
func (s *ProcessingStage) Execute(ctx context.Context, state *OperationState) error {
	wb, err := contextValue[*dataprocessing.Workbook](state, ContextKeyWorkbook)
	if err != nil {
		return err
	}
	matches, err := contextValue[[]dataprocessing.SheetMatch](state, ContextKeyMatches)
	if err != nil {
		return err
	}
	cfg, err := contextValue[schema.SchemaConfig](state, ContextKeySchema)
	if err != nil {
		return err
	}

	processor := dataprocessing.NewSheetProcessor(cfg, s.logger)
	tracker := NewProgressTracker(s.ID(), len(matches))

	state.Report(s.ID(), 0, fmt.Sprintf("normalizing %d sheets", len(matches)))
	sheets, warnings, err := processor.ProcessMatched(ctx, wb, matches, func(done, total int) {
		tracker.Update(done, "")
		state.Report(s.ID(), tracker.Fraction(),
			fmt.Sprintf("sheet %d of %d normalized, %s remaining", done, total, tracker.GetETA()))
	})
	state.AddWarnings(warnings...)
	if err != nil {
		return err
	}
	if sheets == nil {
		sheets = []domain.NormalizedSheet{}
	}
	state.SetContext(ContextKeySheets, sheets)

	rows := 0
	for _, sh := range sheets {
		rows += sh.RowCount
	}
	setStageMetadata(state, s.ID(), "row_count", rows)

	state.Report(s.ID(), 1, fmt.Sprintf("%d sheets normalized", len(sheets)))
	return nil
}

// NewIngestionStages returns the four ingestion stages in execution order.
func NewIngestionStages(logger *slog.Logger) []Step {
	reader := dataprocessing.NewWorkbookReader(logger)
	return []Step{
		NewReadingStage(reader),
		NewParsingStage(reader),
		NewValidatingStage(dataprocessing.NewWorkbookValidator(logger)),
		NewProcessingStage(logger),
	}
}

// RegisterIngestionStages registers the four ingestion stages
func RegisterIngestionStages(registry *Registry, logger *slog.Logger) error {
	for _, step := range NewIngestionStages(logger) {
		if err := registry.Register(step); err != nil {
			return err
		}
	}
	return nil
}

func contextValue[T any](state *OperationState, key string) (T, error) {
	var zero T
	raw, ok := state.GetContext(key)
	if !ok {
		return zero, fmt.Errorf("missing %s in operation context", key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected %T for %s in operation context", raw, key)
	}
	return v, nil
}

func setStageMetadata(state *OperationState, stageID, key string, value interface{}) {
	if st := state.GetStage(stageID); st != nil {
		st.SetMetadata(key, value)
	}
}
