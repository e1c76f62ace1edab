package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrOperation = "operation"
	attrStatus    = "status"
	attrTool      = "tool"
)

// Cycle operation values.
const (
	OpProcess = "process"
	OpSweep   = "sweep"
	OpRule    = "rule"
	OpAnalyze = "analyze"
)

// Metrics records organizer metrics. The zero value is a no-op
// recorder, which is what a disabled provider hands out.
type Metrics struct {
	cyclesTotal   metric.Int64Counter
	cycleDuration metric.Float64Histogram

	messagesProcessedTotal metric.Int64Counter
	messagesTrashedTotal   metric.Int64Counter
	bytesFreedTotal        metric.Int64Counter

	suggestionsTotal metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates all instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.cyclesTotal, err = meter.Int64Counter(
		"organizer_cycles_total",
		metric.WithDescription("Total number of organizer cycles by operation and status"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create organizer_cycles_total counter: %w", err)
	}

	m.cycleDuration, err = meter.Float64Histogram(
		"organizer_cycle_duration_seconds",
		metric.WithDescription("Organizer cycle duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create organizer_cycle_duration_seconds histogram: %w", err)
	}

	m.messagesProcessedTotal, err = meter.Int64Counter(
		"organizer_messages_processed_total",
		metric.WithDescription("Total number of messages a rule was applied to"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create organizer_messages_processed_total counter: %w", err)
	}

	m.messagesTrashedTotal, err = meter.Int64Counter(
		"organizer_messages_trashed_total",
		metric.WithDescription("Total number of messages trashed by retention sweeps"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create organizer_messages_trashed_total counter: %w", err)
	}

	m.bytesFreedTotal, err = meter.Int64Counter(
		"organizer_bytes_freed_total",
		metric.WithDescription("Estimated bytes freed by retention sweeps"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create organizer_bytes_freed_total counter: %w", err)
	}

	m.suggestionsTotal, err = meter.Int64Counter(
		"analyzer_suggestions_total",
		metric.WithDescription("Total number of sender suggestions produced"),
		metric.WithUnit("{suggestion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer_suggestions_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordCycle records one organizer cycle.
func (m *Metrics) RecordCycle(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.cyclesTotal == nil || m.cycleDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	m.cyclesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// AddProcessed adds to the processed-messages counter.
func (m *Metrics) AddProcessed(ctx context.Context, n int64) {
	if m == nil || m.messagesProcessedTotal == nil || n <= 0 {
		return
	}
	m.messagesProcessedTotal.Add(ctx, n)
}

// AddTrashed adds to the trashed-messages and bytes-freed counters.
func (m *Metrics) AddTrashed(ctx context.Context, n, bytes int64) {
	if m == nil || m.messagesTrashedTotal == nil {
		return
	}
	if n > 0 {
		m.messagesTrashedTotal.Add(ctx, n)
	}
	if bytes > 0 {
		m.bytesFreedTotal.Add(ctx, bytes)
	}
}

// AddSuggestions adds to the suggestions counter.
func (m *Metrics) AddSuggestions(ctx context.Context, n int64) {
	if m == nil || m.suggestionsTotal == nil || n <= 0 {
		return
	}
	m.suggestionsTotal.Add(ctx, n)
}

// RecordToolInvocation records one MCP tool invocation.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
