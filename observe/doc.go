// Package observe provides the telemetry primitives shared by the query cache,
// the HTTP client and the CLI: a zap-backed structured logger with field
// redaction, OpenTelemetry metrics and spans, and a Middleware that wraps
// fetch functions with all three.
//
// It performs no I/O beyond exporter setup and log output.
package observe
