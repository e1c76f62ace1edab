// Package instrumentation provides OpenTelemetry metrics for the
// organizer. The provider selects an exporter (prometheus, otlp,
// stdout) from configuration; a disabled provider hands out a no-op
// metrics recorder so call sites never branch on whether metrics are
// on.
package instrumentation
