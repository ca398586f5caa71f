// Package server runs the optional metrics endpoint of the CLI.
//
// MetricsServer routes /metrics to the Prometheus registry the OTel exporter
// writes to, plus /healthz and /readyz probes, on a gorilla/mux router. It is
// started only when a metrics address is configured and is drained on
// shutdown after readiness turns unavailable.
package server
