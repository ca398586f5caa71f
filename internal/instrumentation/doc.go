// Package instrumentation provides OpenTelemetry metrics and tracing for
// workspacekit.
//
// # Metrics
//
//   - google_api_operations_total: Google API requests by service, operation, status
//   - google_api_operation_duration_seconds: request latency histogram
//   - batch_items_total: batch items by service and result (success, failure)
//   - batch_size: items per batch call
//   - query_executions_total: query builder terminal calls by service, terminal, status
//
// Metrics are exported through Prometheus (scraped from the metrics server),
// OTLP, or stdout for debugging.
//
// # Tracing
//
// Every provider request runs in a client span named google.<service>.<operation>;
// batch fan-outs get an enclosing batch.<service>.<operation> span.
//
// # Configuration
//
//	INSTRUMENTATION_ENABLED=true
//	METRICS_EXPORTER=prometheus|otlp|stdout
//	TRACING_EXPORTER=otlp|stdout|none
//	OTEL_EXPORTER_OTLP_ENDPOINT=localhost:4318
//	OTEL_TRACES_SAMPLER_ARG=0.1
package instrumentation
