package operations

import (
	"time"

	"stockpulse/internal/dataprocessing"
	"stockpulse/pkg/contracts/domain"
)

// ingestion stage identifiers
const (
	StageIDReading    = "reading"
	StageIDParsing    = "parsing"
	StageIDValidating = "validating"
	StageIDProcessing = "processing"
)

// ingestion stage names
const (
	StageNameReading    = "Reading Upload"
	StageNameParsing    = "Parsing Workbook"
	StageNameValidating = "Validating Sheets"
	StageNameProcessing = "Normalizing Rows"
)

// StageIDs lists the ingestion stages in execution order.
var StageIDs = []string{StageIDReading, StageIDParsing, StageIDValidating, StageIDProcessing}

// StageName returns the display name of a stage, or id when unknown.
func StageName(id string) string {
	switch id {
	case StageIDReading:
		return StageNameReading
	case StageIDParsing:
		return StageNameParsing
	case StageIDValidating:
		return StageNameValidating
	case StageIDProcessing:
		return StageNameProcessing
	}
	return id
}

// Context keys for operation state
const (
	ContextKeyUpload   = "upload"
	ContextKeySchema   = "schema"
	ContextKeyFile     = "file"
	ContextKeyWorkbook = "workbook"
	ContextKeyMatches  = "matches"
	ContextKeySheets   = "sheets"
)

// WebSocket event types
const (
	EventTypeOperationSnapshot = "operation:snapshot"
)

// DefaultProcessingTimeout bounds a whole run when the schema sets none.
const DefaultProcessingTimeout = 5 * time.Minute

// OperationRequest asks the manager to ingest one upload.
type OperationRequest struct {
	ID     string
	Upload dataprocessing.Upload

	// OnProgress receives every accepted progress event in order.
	OnProgress func(ProgressEvent)
}

// OperationResponse represents the outcome of one run
type OperationResponse struct {
	ID       string                   `json:"id"`
	Status   OperationStatusValue     `json:"status"`
	Duration time.Duration            `json:"duration"`
	Steps    map[string]*StepState    `json:"steps"`
	Result   *domain.ProcessingResult `json:"result"`
	Error    string                   `json:"error,omitempty"`
}
