package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/storage"
	"stockpulse/pkg/contracts/domain"
)

func saveDataset(t *testing.T, store storage.Store, category domain.Category, data *domain.ResultData) string {
	t.Helper()
	id, err := store.Save(context.Background(), domain.RawFile{Name: data.FileName, Content: []byte(data.FileName)}, data, category)
	require.NoError(t, err)
	return id
}

func TestDatasetServiceActiveAndHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewDatasetService(store, nil, discardLogger())
	ctx := context.Background()

	_, err := svc.Active(ctx, domain.CategoryInventory)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, saveDataset(t, store, domain.CategoryInventory, inventoryResult(inventoryRow("A", "EU", float64(i+1)))))
	}

	active, err := svc.Active(ctx, domain.CategoryInventory)
	require.NoError(t, err)
	assert.Equal(t, ids[2], active.ID)

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "all", limit: 0, want: 3},
		{name: "limited", limit: 2, want: 2},
		{name: "limit above size", limit: 10, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := svc.History(ctx, domain.CategoryInventory, tt.limit)
			require.NoError(t, err)
			assert.Len(t, history, tt.want)
		})
	}

	osrHistory, err := svc.History(ctx, domain.CategoryOSR, 0)
	require.NoError(t, err)
	assert.Empty(t, osrHistory)
}

func TestDatasetServiceMetrics(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewDatasetService(store, nil, discardLogger())
	ctx := context.Background()

	t.Run("no data", func(t *testing.T) {
		_, err := svc.Metrics(ctx)
		assert.ErrorIs(t, err, apperrors.ErrNoMetricsData)
	})

	saveDataset(t, store, domain.CategoryInventory, inventoryResult(
		inventoryRow("A", "EU", 100),
		inventoryRow("B", "US", 50),
	))

	t.Run("inventory only is partial", func(t *testing.T) {
		report, err := svc.Metrics(ctx)
		require.NoError(t, err)
		assert.True(t, report.Partial)
		assert.Equal(t, []domain.Category{domain.CategoryInventory}, report.Sources)
		require.NotNil(t, report.Inventory)
		assert.Nil(t, report.OSR)
	})

	saveDataset(t, store, domain.CategoryOSR, osrResult(
		osrRow("I-1", "critical", 9, 3),
		osrRow("I-2", "major", 6, 6),
	))

	t.Run("both sources", func(t *testing.T) {
		report, err := svc.Metrics(ctx)
		require.NoError(t, err)
		assert.False(t, report.Partial)
		assert.Equal(t, []domain.Category{domain.CategoryInventory, domain.CategoryOSR}, report.Sources)
	})

	t.Run("single category", func(t *testing.T) {
		report, err := svc.CategoryMetrics(ctx, domain.CategoryOSR)
		require.NoError(t, err)
		assert.Equal(t, []domain.Category{domain.CategoryOSR}, report.Sources)
		require.NotNil(t, report.OSR)
		assert.Equal(t, 1, report.OSR.SeverityScore.CriticalIssues)
	})
}

func TestDatasetServiceSchema(t *testing.T) {
	svc := NewDatasetService(storage.NewMemoryStore(), nil, discardLogger())

	cfg, err := svc.Schema(domain.CategoryOSR)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Sheets)
	for _, s := range cfg.Sheets {
		assert.Equal(t, domain.CategoryOSR, s.Category)
	}
}
