package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SyncMetrics records run and batch instruments. The zero value is not
// usable; create one with NewSyncMetrics after Init.
type SyncMetrics struct {
	tracer        trace.Tracer
	runsStarted   metric.Int64Counter
	runsFinished  metric.Int64Counter
	tickets       metric.Int64Counter
	batchFailures metric.Int64Counter
	pageDuration  metric.Float64Histogram
}

func NewSyncMetrics() *SyncMetrics {
	m := Meter()
	runsStarted, _ := m.Int64Counter("ticketsync.runs.started",
		metric.WithDescription("Sync runs started"),
	)
	runsFinished, _ := m.Int64Counter("ticketsync.runs.finished",
		metric.WithDescription("Sync runs that reached a terminal status"),
	)
	tickets, _ := m.Int64Counter("ticketsync.tickets.persisted",
		metric.WithDescription("Tickets written to the store"),
	)
	batchFailures, _ := m.Int64Counter("ticketsync.batches.failed",
		metric.WithDescription("Ticket batches rolled back"),
	)
	pageDuration, _ := m.Float64Histogram("ticketsync.page.duration",
		metric.WithDescription("Time to persist one page of tickets"),
		metric.WithUnit("ms"),
	)
	return &SyncMetrics{
		tracer:        Tracer(),
		runsStarted:   runsStarted,
		runsFinished:  runsFinished,
		tickets:       tickets,
		batchFailures: batchFailures,
		pageDuration:  pageDuration,
	}
}

// StartRun opens the span covering a whole run.
func (m *SyncMetrics) StartRun(ctx context.Context, runID, syncType string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("sync.type", syncType)}
	m.runsStarted.Add(ctx, 1, metric.WithAttributes(attrs...))
	return m.tracer.Start(ctx, "sync.run", trace.WithAttributes(
		append(attrs, attribute.String("sync.id", runID))...,
	))
}

// FinishRun ends the run span with its terminal status.
func (m *SyncMetrics) FinishRun(ctx context.Context, span trace.Span, syncType, status string, err error) {
	m.runsFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sync.type", syncType),
		attribute.String("sync.status", status),
	))
	span.SetAttributes(attribute.String("sync.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RecordPage records one persisted page of a project.
func (m *SyncMetrics) RecordPage(ctx context.Context, project string, processed, failedBatches int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("project", project))
	m.tickets.Add(ctx, int64(processed), attrs)
	if failedBatches > 0 {
		m.batchFailures.Add(ctx, int64(failedBatches), attrs)
	}
	m.pageDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
