package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTerminal  = "terminal"
)

// Metrics records provider calls, batch outcomes and query executions.
// The zero value is a no-op recorder.
type Metrics struct {
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	batchItemsTotal metric.Int64Counter
	batchSize       metric.Int64Histogram

	queryExecutionsTotal metric.Int64Counter

	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.batchItemsTotal, err = meter.Int64Counter(
		"batch_items_total",
		metric.WithDescription("Total number of items processed by batch operations"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_items_total counter: %w", err)
	}

	m.batchSize, err = meter.Int64Histogram(
		"batch_size",
		metric.WithDescription("Number of items per batch operation"),
		metric.WithUnit("{item}"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 1000),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_size histogram: %w", err)
	}

	m.queryExecutionsTotal, err = meter.Int64Counter(
		"query_executions_total",
		metric.WithDescription("Total number of query builder terminal calls"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query_executions_total counter: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)

	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBatch records the outcome of one batch operation.
// The operation label is only attached with detailed labels enabled.
func (m *Metrics) RecordBatch(ctx context.Context, service, operation string, total, failed int) {
	if m == nil || m.batchItemsTotal == nil || m.batchSize == nil {
		return
	}

	base := []attribute.KeyValue{attribute.String(attrService, service)}
	if m.detailedLabels {
		base = append(base, attribute.String(attrOperation, operation))
	}

	withResult := func(result string) metric.AddOption {
		attrs := append(append([]attribute.KeyValue{}, base...), attribute.String(attrResult, result))
		return metric.WithAttributes(attrs...)
	}

	if ok := total - failed; ok > 0 {
		m.batchItemsTotal.Add(ctx, int64(ok), withResult(ResultSuccess))
	}
	if failed > 0 {
		m.batchItemsTotal.Add(ctx, int64(failed), withResult(ResultFailure))
	}
	m.batchSize.Record(ctx, int64(total), metric.WithAttributes(base...))
}

// RecordQuery records a query builder terminal call (execute, count, first, exists, threads).
func (m *Metrics) RecordQuery(ctx context.Context, service, terminal, status string) {
	if m == nil || m.queryExecutionsTotal == nil {
		return
	}

	m.queryExecutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrTerminal, terminal),
		attribute.String(attrStatus, status),
	))
}
