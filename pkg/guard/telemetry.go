package guard

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName is the name used for OTEL instrumentation.
const InstrumentationName = "github.com/fyrsmithlabs/rotguard/pkg/guard"

// Metrics provides OpenTelemetry metrics for session operations.
type Metrics struct {
	sessionsOpened  metric.Int64Counter
	messagesTotal   metric.Int64Counter
	chunksIngested  metric.Int64Counter
	healthChecks    metric.Int64Counter
	autoCompactions metric.Int64Counter

	driftScore metric.Float64Histogram

	// initialized tracks if metrics were successfully initialized
	initialized bool
}

// NewMetrics creates a new Metrics instance with the provided meter.
// If meter is nil, uses the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(InstrumentationName)
	}

	m := &Metrics{}
	var err error

	m.sessionsOpened, err = meter.Int64Counter(
		"guard.sessions.opened.total",
		metric.WithDescription("Total number of sessions opened"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	m.messagesTotal, err = meter.Int64Counter(
		"guard.messages.total",
		metric.WithDescription("Total number of conversation messages recorded"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	m.chunksIngested, err = meter.Int64Counter(
		"guard.chunks.ingested.total",
		metric.WithDescription("Total number of context chunks ingested"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		return nil, err
	}

	m.healthChecks, err = meter.Int64Counter(
		"guard.health.evaluations.total",
		metric.WithDescription("Total number of health evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, err
	}

	m.autoCompactions, err = meter.Int64Counter(
		"guard.compactions.auto.total",
		metric.WithDescription("Total number of automatic compactions"),
		metric.WithUnit("{compaction}"),
	)
	if err != nil {
		return nil, err
	}

	m.driftScore, err = meter.Float64Histogram(
		"guard.drift.score",
		metric.WithDescription("Composite drift score per evaluation"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.6, 0.8, 1.0),
	)
	if err != nil {
		return nil, err
	}

	m.initialized = true
	return m, nil
}

// RecordSessionOpened records a session open.
func (m *Metrics) RecordSessionOpened(ctx context.Context, backend string) {
	if m == nil || !m.initialized {
		return
	}
	m.sessionsOpened.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
	))
}

// RecordMessage records one conversation message.
// Note: session_id is intentionally omitted from metrics to prevent
// cardinality explosion. Session correlation is available via trace
// context and structured logs.
func (m *Metrics) RecordMessage(ctx context.Context, role string) {
	if m == nil || !m.initialized {
		return
	}
	m.messagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
	))
}

// RecordChunk records one ingested context chunk.
func (m *Metrics) RecordChunk(ctx context.Context, chunkType string) {
	if m == nil || !m.initialized {
		return
	}
	m.chunksIngested.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", chunkType),
	))
}

// RecordDrift records one drift evaluation.
func (m *Metrics) RecordDrift(ctx context.Context, score float64, detected bool) {
	if m == nil || !m.initialized {
		return
	}
	m.driftScore.Record(ctx, score, metric.WithAttributes(
		attribute.Bool("detected", detected),
	))
}

// RecordHealth records one health evaluation.
func (m *Metrics) RecordHealth(ctx context.Context, status string) {
	if m == nil || !m.initialized {
		return
	}
	m.healthChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordAutoCompaction records one automatic compaction.
func (m *Metrics) RecordAutoCompaction(ctx context.Context, strategy string) {
	if m == nil || !m.initialized {
		return
	}
	m.autoCompactions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("strategy", strategy),
	))
}

// Tracer returns a tracer for the guard package.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// sessionAttributes returns the span attributes every session span
// carries.
func sessionAttributes(sessionID, project string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("session_id", sessionID),
		attribute.String("project", project),
	}
}
