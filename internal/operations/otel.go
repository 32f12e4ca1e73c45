package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "stockpulse/internal/errors"
	"stockpulse/internal/infrastructure"
	"stockpulse/pkg/contracts/domain"
)

const (
	TracerName = "stockpulse.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for ingestion
// runs. Every method is safe on a nil receiver, which turns it into a no-op.
type OperationTracer struct {
	tracer          trace.Tracer
	businessMetrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a new operation tracer
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	var meter metric.Meter
	tracer := otel.Tracer(TracerName)
	if providers != nil {
		meter = providers.Meter
		if providers.TracerProvider != nil {
			tracer = providers.TracerProvider.Tracer(TracerName)
		}
	}

	businessMetrics, err := infrastructure.CreateBusinessMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &OperationTracer{
		tracer:          tracer,
		businessMetrics: businessMetrics,
	}, nil
}

// Metrics returns the business metrics the tracer records into
func (pt *OperationTracer) Metrics() *infrastructure.BusinessMetrics {
	if pt == nil {
		return nil
	}
	return pt.businessMetrics
}

// TraceOperationExecution creates a span for a whole ingestion run
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID, category string) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, noop.Span{}
	}

	ctx, span := pt.tracer.Start(ctx, "operation.ingest",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("category", category),
		),
	)

	attrs := metric.WithAttributes(attribute.String("category", category))
	pt.businessMetrics.OperationExecutionsTotal.Add(ctx, 1, attrs)
	pt.businessMetrics.OperationActiveOperations.Add(ctx, 1, attrs)

	return ctx, span
}

// TraceStageExecution creates a span for one stage
func (pt *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stageID string) (context.Context, trace.Span) {
	if pt == nil {
		return ctx, noop.Span{}
	}

	ctx, span := pt.tracer.Start(ctx, fmt.Sprintf("operation.stage.%s", stageID),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("stage.id", stageID),
		),
	)

	pt.businessMetrics.OperationStepsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage_id", stageID)))

	return ctx, span
}

// RecordStageProgress records an accepted progress event on the run span
func (pt *OperationTracer) RecordStageProgress(ctx context.Context, operationID string, ev ProgressEvent) {
	if pt == nil {
		return
	}
	infrastructure.AddSpanEvent(ctx, "stage.progress",
		attribute.String("phase", string(ev.Phase)),
		attribute.Int("percent", ev.Percent),
		attribute.String("message", ev.Message),
	)
}

// RecordStageCompletion ends the bookkeeping of one stage
func (pt *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, operationID, stageID string, duration time.Duration, err error) {
	if pt == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Float64("stage.duration_seconds", duration.Seconds()),
	)
	pt.businessMetrics.OperationStepDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage_id", stageID),
			attribute.String("status", status),
		),
	)

	if err != nil {
		span.SetAttributes(attribute.String("error.kind", errorKind(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "stage failed")
		return
	}
	span.SetStatus(codes.Ok, "")
}

// RecordOperationCompletion records the outcome of a run with its upload
// counters and ends the run's active gauge.
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, operationID, category string, duration time.Duration, result *domain.ProcessingResult) {
	if pt == nil {
		return
	}

	status := "failure"
	if result != nil && result.Success {
		status = "success"
	}
	catAttr := attribute.String("category", category)

	span.SetAttributes(
		attribute.String("operation.status", status),
		attribute.Float64("operation.duration_seconds", duration.Seconds()),
	)

	pt.businessMetrics.OperationActiveOperations.Add(ctx, -1, metric.WithAttributes(catAttr))
	pt.businessMetrics.OperationExecutionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(catAttr, attribute.String("status", status)))
	pt.businessMetrics.UploadsTotal.Add(ctx, 1,
		metric.WithAttributes(catAttr, attribute.String("status", status)))

	if result == nil {
		return
	}

	if result.Success {
		if result.Stats != nil {
			pt.businessMetrics.UploadRowsProcessed.Add(ctx, int64(result.Stats.TotalRows), metric.WithAttributes(catAttr))
			pt.businessMetrics.UploadSheetsProcessed.Add(ctx, int64(result.Stats.SheetsProcessed), metric.WithAttributes(catAttr))
		}
		if result.Data != nil {
			pt.businessMetrics.OperationDataProcessed.Add(ctx, result.Data.FileSize, metric.WithAttributes(catAttr))
		}
		span.SetStatus(codes.Ok, "")
		return
	}

	kind := "unknown"
	if result.Error != nil {
		kind = result.Error.Type
		span.SetStatus(codes.Error, result.Error.Message)
	}
	pt.businessMetrics.OperationErrors.Add(ctx, 1, metric.WithAttributes(catAttr))
	pt.businessMetrics.ProcessingErrors.Add(ctx, 1,
		metric.WithAttributes(catAttr, attribute.String("kind", kind)))
}

// RecordCancellation counts a run stopped by its caller
func (pt *OperationTracer) RecordCancellation(ctx context.Context, category string) {
	if pt == nil {
		return
	}
	pt.businessMetrics.OperationCancellations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)))
}

// RecordQueueRejection counts an upload turned away by a full queue
func (pt *OperationTracer) RecordQueueRejection(ctx context.Context, category string) {
	if pt == nil {
		return
	}
	pt.businessMetrics.QueueRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)))
}

// RecordDatasetStored counts a persisted dataset
func (pt *OperationTracer) RecordDatasetStored(ctx context.Context, category string, err error) {
	if pt == nil {
		return
	}
	if err != nil {
		pt.businessMetrics.SystemErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("component", "dataset_store")))
		return
	}
	pt.businessMetrics.DatasetsStored.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)))
}

// errorKind names the error class recorded on spans
func errorKind(err error) string {
	if pe, ok := apperrors.AsProcessingError(err); ok {
		return string(pe.Kind)
	}
	var oe *OperationError
	if errors.As(err, &oe) {
		return string(oe.Type)
	}
	return "unknown"
}
