package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"stockpulse/internal/dataprocessing"
	"stockpulse/internal/operations"
	"stockpulse/internal/schema"
	ws "stockpulse/internal/websocket"
	"stockpulse/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockUploadQueue is a mock for UploadQueue
type MockUploadQueue struct {
	mock.Mock
}

func (m *MockUploadQueue) Enqueue(ctx context.Context, upload dataprocessing.Upload) (*operations.Job, error) {
	args := m.Called(ctx, upload)
	job, _ := args.Get(0).(*operations.Job)
	return job, args.Error(1)
}

func (m *MockUploadQueue) GetJob(id string) (*operations.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*operations.Job)
	return job, args.Error(1)
}

func (m *MockUploadQueue) ListJobs(filter operations.JobFilter) ([]*operations.Job, error) {
	args := m.Called(filter)
	jobs, _ := args.Get(0).([]*operations.Job)
	return jobs, args.Error(1)
}

func (m *MockUploadQueue) CancelJob(id string) error {
	return m.Called(id).Error(0)
}

// MockPinger is a mock for Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type staticQueueStats operations.QueueStats

func (s staticQueueStats) GetQueueStats() operations.QueueStats {
	return operations.QueueStats(s)
}

type staticHubStats ws.HubStats

func (s staticHubStats) Stats() ws.HubStats {
	return ws.HubStats(s)
}

func inventoryResult(rows ...domain.Row) *domain.ResultData {
	return &domain.ResultData{
		FileName: "inventory.xlsx",
		Sheets: []domain.NormalizedSheet{{
			Name:     "FG value",
			Category: domain.CategoryInventory,
			RowCount: len(rows),
			Rows:     rows,
		}},
		DetectedCategories: []domain.Category{domain.CategoryInventory},
	}
}

func osrResult(rows ...domain.Row) *domain.ResultData {
	return &domain.ResultData{
		FileName: "osr.xlsx",
		Sheets: []domain.NormalizedSheet{{
			Name:     "OSR Issues",
			Category: domain.CategoryOSR,
			RowCount: len(rows),
			Rows:     rows,
		}},
		DetectedCategories: []domain.Category{domain.CategoryOSR},
	}
}

func inventoryRow(material, region string, value float64) domain.Row {
	return domain.Row{
		schema.ColMaterial: material,
		schema.ColRegion:   region,
		schema.ColValue:    value,
	}
}

func osrRow(id, severity string, impact, effort float64) domain.Row {
	return domain.Row{
		schema.ColIssueID:  id,
		schema.ColSeverity: severity,
		schema.ColImpact:   impact,
		schema.ColEffort:   effort,
	}
}
