package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics provides instruments for recording MCP server telemetry.
// A zero-value Metrics is a no-op recorder.
type Metrics struct {
	toolInvocations metric.Int64Counter
	toolDuration    metric.Float64Histogram
	slackOps        metric.Int64Counter
	slackDuration   metric.Float64Histogram
	oauthAttempts   metric.Int64Counter
	activeSessions  metric.Int64UpDownCounter
}

// NewMetrics creates the metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.toolInvocations, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool invocations counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("Duration of MCP tool invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	m.slackOps, err = meter.Int64Counter(
		"slack_api_operations_total",
		metric.WithDescription("Total number of Slack Web API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slack operations counter: %w", err)
	}

	m.slackDuration, err = meter.Float64Histogram(
		"slack_api_operation_duration_seconds",
		metric.WithDescription("Duration of Slack Web API operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slack duration histogram: %w", err)
	}

	m.oauthAttempts, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authorization attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth counter: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"mcp_active_sessions",
		metric.WithDescription("Number of active MCP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active sessions counter: %w", err)
	}

	return m, nil
}

// RecordToolInvocation records a tool invocation with its duration and status.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocations == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", toolName),
		attribute.String("status", status),
	)
	m.toolInvocations.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSlackOperation records a Slack Web API call with its duration and status.
func (m *Metrics) RecordSlackOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.slackOps == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.slackOps.Add(ctx, 1, attrs)
	m.slackDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthAttempt records the outcome of an OAuth authorization flow.
func (m *Metrics) RecordOAuthAttempt(ctx context.Context, result string) {
	if m == nil || m.oauthAttempts == nil {
		return
	}
	m.oauthAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// SessionStarted increments the active session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// SessionEnded decrements the active session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
