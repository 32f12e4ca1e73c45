package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockpulse/internal/dataprocessing"
	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/operations"
	"stockpulse/internal/schema"
	"stockpulse/internal/storage"
	"stockpulse/pkg/contracts/domain"
)

func smallSchemas(t *testing.T, maxSize int64) *schema.Registry {
	t.Helper()
	cfg := schema.Default()
	cfg.MaxFileSize = maxSize
	registry, err := schema.NewRegistry(cfg)
	require.NoError(t, err)
	return registry
}

func TestUploadServiceSubmitRejects(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		content  string
		wantKind apperrors.Kind
	}{
		{name: "unsupported extension", fileName: "report.csv", content: "a,b", wantKind: apperrors.KindFormat},
		{name: "too large", fileName: "report.xlsx", content: strings.Repeat("x", 65), wantKind: apperrors.KindSize},
		{name: "empty", fileName: "report.xlsx", content: "", wantKind: apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &MockUploadQueue{}
			svc := NewUploadService(storage.NewMemoryStore(), smallSchemas(t, 64), discardLogger())
			svc.SetQueue(queue)

			job, err := svc.Submit(context.Background(), tt.fileName, domain.CategoryInventory, strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Nil(t, job)

			pe, ok := apperrors.AsProcessingError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, pe.Kind)
			queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
		})
	}
}

func TestUploadServiceSubmitQueues(t *testing.T) {
	queue := &MockUploadQueue{}
	svc := NewUploadService(storage.NewMemoryStore(), nil, discardLogger())
	svc.SetQueue(queue)

	content := []byte("not really a workbook")
	want := &operations.Job{ID: "job-1", Status: operations.JobStatusPending}
	queue.On("Enqueue", mock.Anything, dataprocessing.Upload{
		FileName: "stock.xlsx",
		Category: domain.CategoryOSR,
		Content:  content,
	}).Return(want, nil).Once()

	job, err := svc.Submit(context.Background(), "stock.xlsx", domain.CategoryOSR, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, want, job)
	queue.AssertExpectations(t)
}

func TestUploadServiceSubmitQueueFull(t *testing.T) {
	queue := &MockUploadQueue{}
	svc := NewUploadService(storage.NewMemoryStore(), nil, discardLogger())
	svc.SetQueue(queue)
	queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil, operations.ErrQueueFull)

	_, err := svc.Submit(context.Background(), "stock.xlsx", domain.CategoryInventory, strings.NewReader("data"))
	assert.ErrorIs(t, err, operations.ErrQueueFull)
}

func TestUploadServiceJobsAndCancel(t *testing.T) {
	queue := &MockUploadQueue{}
	svc := NewUploadService(storage.NewMemoryStore(), nil, discardLogger())
	svc.SetQueue(queue)
	ctx := context.Background()

	queue.On("GetJob", "job-1").Return(&operations.Job{ID: "job-1"}, nil)
	queue.On("ListJobs", operations.JobFilter{Limit: 5}).Return([]*operations.Job{{ID: "job-1"}}, nil)
	queue.On("CancelJob", "job-1").Return(nil)
	queue.On("CancelJob", "missing").Return(operations.ErrJobNotFound)

	job, err := svc.Job(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	jobs, err := svc.Jobs(ctx, operations.JobFilter{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	require.NoError(t, svc.Cancel(ctx, "job-1"))
	assert.ErrorIs(t, svc.Cancel(ctx, "missing"), operations.ErrJobNotFound)
	queue.AssertExpectations(t)
}

func TestUploadServicePersist(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewUploadService(store, nil, discardLogger())
	ctx := context.Background()

	job := &operations.Job{ID: "job-1", Category: domain.CategoryInventory}
	upload := dataprocessing.Upload{FileName: "inventory.xlsx", Category: domain.CategoryInventory, Content: []byte("raw")}

	first, err := svc.Persist(ctx, job, upload, &domain.ProcessingResult{Success: true, Data: inventoryResult(inventoryRow("A", "EU", 10))})
	require.NoError(t, err)
	second, err := svc.Persist(ctx, job, upload, &domain.ProcessingResult{Success: true, Data: inventoryResult(inventoryRow("B", "US", 20))})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	active, err := store.GetActive(ctx, domain.CategoryInventory)
	require.NoError(t, err)
	assert.Equal(t, second, active.ID)
	assert.Equal(t, "inventory.xlsx", active.FileName)
	assert.Equal(t, storage.Checksum([]byte("raw")), active.Checksum)

	_, err = svc.Persist(ctx, job, upload, &domain.ProcessingResult{Success: true})
	assert.ErrorIs(t, err, storage.ErrInvalidDataset)
}
