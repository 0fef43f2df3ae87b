package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestContextFields_Empty(t *testing.T) {
	fields := ContextFields(context.Background())
	assert.Empty(t, fields)
}

func TestContextFields_OTELTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)
	tracer := provider.Tracer("test")

	ctx, span := tracer.Start(context.Background(), "test-operation")
	defer span.End()

	fields := ContextFields(ctx)

	var hasTraceID, hasSpanID bool
	for _, f := range fields {
		if f.Key == "trace_id" {
			hasTraceID = true
			assert.NotEmpty(t, f.String, "trace_id should not be empty")
		}
		if f.Key == "span_id" {
			hasSpanID = true
			assert.NotEmpty(t, f.String, "span_id should not be empty")
		}
	}
	assert.True(t, hasTraceID, "trace_id field missing from context fields")
	assert.True(t, hasSpanID, "span_id field missing from context fields")
}

func TestContextFields_OTELSampling(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithBatcher(exporter),
	)
	tracer := provider.Tracer("test")

	ctx, span := tracer.Start(context.Background(), "sampled-operation")
	defer span.End()

	fields := ContextFields(ctx)

	assertBoolFieldExists(t, fields, "trace_sampled", true)
}

func TestContextFields_Session(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess_123")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 1)
	assertFieldExists(t, fields, "session.id", "sess_123")
}

func TestContextFields_Project(t *testing.T) {
	ctx := WithProject(context.Background(), "billing-service")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 1)
	assertFieldExists(t, fields, "project", "billing-service")
}

func TestContextFields_SessionAndProject(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess_abc")
	ctx = WithProject(ctx, "api")

	fields := ContextFields(ctx)

	assert.Len(t, fields, 2)
	assertFieldExists(t, fields, "session.id", "sess_abc")
	assertFieldExists(t, fields, "project", "api")
}

func assertFieldExists(t *testing.T, fields []zap.Field, key, expected string) {
	t.Helper()
	for _, field := range fields {
		if field.Key == key && field.String == expected {
			return
		}
	}
	t.Errorf("field %q with value %q not found", key, expected)
}

func assertBoolFieldExists(t *testing.T, fields []zap.Field, key string, expected bool) {
	t.Helper()
	for _, field := range fields {
		if field.Key == key {
			// zap.Bool stores the value in Integer (1 for true, 0 for false)
			if expected && field.Integer == 1 {
				return
			} else if !expected && field.Integer == 0 {
				return
			}
		}
	}
	t.Errorf("bool field %q with value %v not found", key, expected)
}

func TestWithSessionID_RoundTrip(t *testing.T) {
	ctx := WithSessionID(context.Background(), "sess_9fd2c81a")
	assert.Equal(t, "sess_9fd2c81a", SessionIDFromContext(ctx))
}

func TestWithSessionID_EmptyIgnored(t *testing.T) {
	ctx := WithSessionID(context.Background(), "")
	assert.Empty(t, SessionIDFromContext(ctx))
	assert.Empty(t, ContextFields(ctx))
}

func TestWithProject_RoundTrip(t *testing.T) {
	ctx := WithProject(context.Background(), "payments")
	assert.Equal(t, "payments", ProjectFromContext(ctx))
}

func TestWithProject_EmptyIgnored(t *testing.T) {
	ctx := WithProject(context.Background(), "")
	assert.Empty(t, ProjectFromContext(ctx))
	assert.Empty(t, ContextFields(ctx))
}

func TestLogger_InContext(t *testing.T) {
	logger := &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
	ctx := WithLogger(context.Background(), logger)

	retrieved := FromContext(ctx)
	assert.Equal(t, logger, retrieved)
}

func TestLogger_FromContextMissing(t *testing.T) {
	retrieved := FromContext(context.Background())

	// Falls back to a nop logger rather than nil.
	assert.NotNil(t, retrieved)
	assert.NotNil(t, retrieved.zap)
}
