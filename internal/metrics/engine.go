package metrics

import (
	"context"
	"log/slog"
	"time"

	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// Engine runs the three calculators over normalized sheets.
type Engine struct {
	inventory InventoryCalculator
	osr       OSRCalculator
	combined  CombinedCalculator
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an engine using defaults for missing OSR scores
func NewEngine(defaults schema.MetricsDefaults, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		osr:    NewOSRCalculator(defaults),
		logger: logger.With(slog.String("component", "metrics_engine")),
		now:    time.Now,
	}
}

// Compute derives metrics from inventory and OSR sheets. A source counts as
// present when at least one of its sheets has rows. With neither present
// ErrNoMetricsData is returned.
func (e *Engine) Compute(ctx context.Context, inventory, osr []domain.NormalizedSheet) (*domain.MetricsReport, error) {
	report := &domain.MetricsReport{Sources: []domain.Category{}}

	if hasRows(inventory) {
		m := e.inventory.Calculate(inventory)
		report.Inventory = &m
		report.Sources = append(report.Sources, domain.CategoryInventory)
	}
	if hasRows(osr) {
		m := e.osr.Calculate(osr)
		report.OSR = &m
		report.Sources = append(report.Sources, domain.CategoryOSR)
	}

	combined, err := e.combined.Calculate(report.Inventory, report.OSR)
	if err != nil {
		e.logger.WarnContext(ctx, "metrics_unavailable", slog.String("error", err.Error()))
		return nil, err
	}
	report.Combined = combined
	report.Partial = len(report.Sources) == 1
	report.GeneratedAt = e.now().UTC()

	e.logger.InfoContext(ctx, "metrics_computed",
		slog.Any("sources", report.Sources),
		slog.Float64("overall_portfolio_health", combined.OverallPortfolioHealth),
		slog.Float64("risk_exposure", combined.RiskExposure),
		slog.Int("recommendations", len(combined.RecommendedActions)))

	return report, nil
}

// ComputeResult splits a single processing result by category and computes
// its metrics.
func (e *Engine) ComputeResult(ctx context.Context, data *domain.ResultData) (*domain.MetricsReport, error) {
	return e.Compute(ctx,
		data.SheetsByCategory(domain.CategoryInventory),
		data.SheetsByCategory(domain.CategoryOSR))
}

func hasRows(sheets []domain.NormalizedSheet) bool {
	for _, s := range sheets {
		if len(s.Rows) > 0 {
			return true
		}
	}
	return false
}
