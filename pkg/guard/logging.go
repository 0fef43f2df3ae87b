package guard

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rotguard/pkg/compaction"
	"github.com/fyrsmithlabs/rotguard/pkg/critical"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// Logger wraps zap.Logger with session-event structured logging.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates a new Logger. If logger is nil, uses a no-op logger.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("guard")}
}

// SessionOpened logs a session open event.
func (l *Logger) SessionOpened(ctx context.Context, sessionID, project, backend string, pinned int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("backend", backend),
		zap.Int("pinned_items", pinned),
	)
	l.logger.Info("session opened", fields...)
}

// SessionClosed logs a session close event.
func (l *Logger) SessionClosed(ctx context.Context, sessionID, project string, messages, chunks int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.Int("messages", messages),
		zap.Int("chunks", chunks),
	)
	l.logger.Info("session closed", fields...)
}

// MessageRecorded logs one conversation turn.
func (l *Logger) MessageRecorded(ctx context.Context, sessionID, project, role string, chunkTokens, promoted int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("role", role),
		zap.Int("tokens", chunkTokens),
	)
	if promoted > 0 {
		fields = append(fields, zap.Int("promoted", promoted))
	}
	l.logger.Debug("message recorded", fields...)
}

// ChunkIngested logs one context chunk ingestion.
func (l *Logger) ChunkIngested(ctx context.Context, sessionID, project string, chunk health.Chunk) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("chunk_id", chunk.ID),
		zap.String("type", string(chunk.Type)),
		zap.Int("tokens", chunk.Tokens),
		zap.Float64("relevance", chunk.RelevanceScore),
		zap.Bool("critical", chunk.Critical),
	)
	l.logger.Debug("chunk ingested", fields...)
}

// HealthEvaluated logs a health evaluation. Good health logs at debug
// level; degraded health logs at warn level.
func (l *Logger) HealthEvaluated(ctx context.Context, sessionID, project string, h health.ContextHealth) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("status", string(h.Health)),
		zap.Float64("utilization_percent", h.UtilizationPercent),
		zap.Float64("drift_score", h.DriftScore),
		zap.Bool("compaction_needed", h.CompactionNeeded),
	)
	if h.Health == health.StatusGood {
		l.logger.Debug("health evaluated", fields...)
		return
	}
	l.logger.Warn("context health degraded", fields...)
}

// DriftDetected logs a drift detection event.
func (l *Logger) DriftDetected(ctx context.Context, sessionID, project string, score float64, missing, contradictions int) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.Float64("drift_score", score),
		zap.Int("missing_requirements", missing),
		zap.Int("contradictions", contradictions),
	)
	l.logger.Warn("drift detected", fields...)
}

// CompactionApplied logs a completed compaction.
func (l *Logger) CompactionApplied(ctx context.Context, sessionID, project string, auto bool, res compaction.Result) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("strategy", string(res.Strategy)),
		zap.Bool("auto", auto),
		zap.Int("tokens_before", res.TokensBefore),
		zap.Int("tokens_after", res.TokensAfter),
		zap.Int("tokens_saved", res.TokensSaved()),
		zap.Int("chunks_before", res.ChunksBefore),
		zap.Int("chunks_after", res.ChunksAfter),
		zap.Int("escalations", res.Escalations),
		zap.Float64("utilization_after", res.UtilizationAfter),
		zap.Duration("duration", res.Duration),
	)
	l.logger.Info("compaction applied", fields...)
}

// CriticalPinned logs a pinned item.
func (l *Logger) CriticalPinned(ctx context.Context, sessionID, project string, item critical.Item) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("item_id", item.ID),
		zap.String("type", string(item.Type)),
		zap.String("source", item.Source),
		zap.Bool("never_compress", item.NeverCompress),
	)
	l.logger.Info("critical context pinned", fields...)
}

// CriticalRemoved logs an unpinned item.
func (l *Logger) CriticalRemoved(ctx context.Context, sessionID, project, itemID string) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields, zap.String("item_id", itemID))
	l.logger.Info("critical context removed", fields...)
}

// PersistenceDegraded logs a failed storage write-through. The session
// keeps serving from in-memory state.
func (l *Logger) PersistenceDegraded(ctx context.Context, sessionID, project, op string, err error) {
	if l == nil || l.logger == nil {
		return
	}
	fields := l.baseFields(ctx, sessionID, project)
	fields = append(fields,
		zap.String("op", op),
		zap.Error(err),
	)
	l.logger.Warn("persistence degraded", fields...)
}

// Error logs an error with context.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if l == nil || l.logger == nil {
		return
	}
	allFields := l.traceFields(ctx)
	allFields = append(allFields, zap.Error(err))
	allFields = append(allFields, fields...)
	l.logger.Error(msg, allFields...)
}

// baseFields returns common fields for session events.
func (l *Logger) baseFields(ctx context.Context, sessionID, project string) []zap.Field {
	fields := []zap.Field{
		zap.String("session_id", sessionID),
		zap.String("project", project),
	}
	return append(fields, l.traceFields(ctx)...)
}

// traceFields extracts trace context from the context.
func (l *Logger) traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	fields := []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
	if sc.IsSampled() {
		fields = append(fields, zap.Bool("trace_sampled", true))
	}
	return fields
}
