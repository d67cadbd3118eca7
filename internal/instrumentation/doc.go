// Package instrumentation wires OpenTelemetry metrics and tracing for the
// MCP server: tool invocation counters, Slack API operation timings, OAuth
// flow outcomes, and active session counts. Metrics export through
// Prometheus by default; OTLP and stdout exporters are available for both
// signals.
package instrumentation
