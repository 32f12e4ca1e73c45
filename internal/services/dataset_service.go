package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stockpulse/internal/infrastructure"
	"stockpulse/internal/metrics"
	"stockpulse/internal/schema"
	"stockpulse/internal/storage"
	"stockpulse/pkg/contracts/domain"
)

// DatasetService answers questions about stored datasets: which one is
// active, what came before it and what the active data says.
type DatasetService struct {
	store   storage.Store
	schemas *schema.Registry
	engine  *metrics.Engine
	logger  *slog.Logger
}

// NewDatasetService creates a dataset service
func NewDatasetService(store storage.Store, schemas *schema.Registry, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if schemas == nil {
		schemas = schema.DefaultRegistry()
	}
	return &DatasetService{
		store:   store,
		schemas: schemas,
		engine:  metrics.NewEngine(schemas.Config().Metrics, logger),
		logger:  infrastructure.WithComponent(logger, "dataset_service"),
	}
}

// Active returns the active dataset of category, or storage.ErrNotFound
func (s *DatasetService) Active(ctx context.Context, category domain.Category) (*domain.Dataset, error) {
	return s.store.GetActive(ctx, category)
}

// History returns at most limit dataset descriptions of category, newest
// first. A limit of zero or less returns everything.
func (s *DatasetService) History(ctx context.Context, category domain.Category, limit int) ([]domain.DatasetMeta, error) {
	history, err := s.store.ListHistory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// Metrics computes the combined metrics of the active inventory and OSR
// datasets. A missing category makes the report partial; with neither
// present ErrNoMetricsData is returned.
func (s *DatasetService) Metrics(ctx context.Context) (*domain.MetricsReport, error) {
	inventory, err := s.activeSheets(ctx, domain.CategoryInventory)
	if err != nil {
		return nil, err
	}
	osr, err := s.activeSheets(ctx, domain.CategoryOSR)
	if err != nil {
		return nil, err
	}
	return s.engine.Compute(ctx, inventory, osr)
}

// CategoryMetrics computes metrics from the active dataset of one category
func (s *DatasetService) CategoryMetrics(ctx context.Context, category domain.Category) (*domain.MetricsReport, error) {
	sheets, err := s.activeSheets(ctx, category)
	if err != nil {
		return nil, err
	}

	switch category {
	case domain.CategoryInventory:
		return s.engine.Compute(ctx, sheets, nil)
	case domain.CategoryOSR:
		return s.engine.Compute(ctx, nil, sheets)
	}
	return nil, fmt.Errorf("unsupported category %q", category)
}

// activeSheets returns the sheets of category in its active dataset. No
// active dataset yields no sheets.
func (s *DatasetService) activeSheets(ctx context.Context, category domain.Category) ([]domain.NormalizedSheet, error) {
	ds, err := s.store.GetActive(ctx, category)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.DebugContext(ctx, "no_active_dataset", slog.String("category", string(category)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active %s dataset: %w", category, err)
	}
	if ds.Data == nil {
		return nil, nil
	}
	return ds.Data.SheetsByCategory(category), nil
}

// Schema returns the schema of one category
func (s *DatasetService) Schema(category domain.Category) (schema.SchemaConfig, error) {
	return s.schemas.For(category)
}
