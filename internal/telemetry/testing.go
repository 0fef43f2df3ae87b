package telemetry

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Installed once per test binary. Tracers and meters obtained from the
// otel globals delegate only to the first provider registered, so a
// per-test install would lose spans from every test after the first.
var (
	installOnce sync.Once
	recorder    *tracetest.SpanRecorder
	reader      *sdkmetric.ManualReader
)

// TestTelemetry observes spans and metrics recorded through the otel globals.
type TestTelemetry struct {
	recorder *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
	baseline int
}

// NewTestTelemetry installs in-memory providers as the otel globals and
// returns a view over them. Spans ended before the call are excluded from
// Spans and the assertion helpers; metrics are cumulative for the binary.
func NewTestTelemetry() *TestTelemetry {
	installOnce.Do(func() {
		recorder = tracetest.NewSpanRecorder()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(recorder),
		))

		reader = sdkmetric.NewManualReader()
		otel.SetMeterProvider(sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(reader),
		))
	})

	return &TestTelemetry{
		recorder: recorder,
		reader:   reader,
		baseline: len(recorder.Ended()),
	}
}

// Spans returns spans ended since this instance was created.
func (t *TestTelemetry) Spans() []sdktrace.ReadOnlySpan {
	return t.recorder.Ended()[t.baseline:]
}

// SpanByName finds a span by name, or nil if not found.
func (t *TestTelemetry) SpanByName(name string) sdktrace.ReadOnlySpan {
	for _, span := range t.Spans() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

// AssertSpanExists verifies a span with the given name was recorded.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) == nil {
		tb.Errorf("expected span %q not found, got: %v", name, t.spanNames())
	}
}

// AssertSpanAttribute verifies a span has the expected attribute.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName string, key string, expected interface{}) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("span %q not found, got: %v", spanName, t.spanNames())
	}

	if i, ok := expected.(int); ok {
		expected = int64(i)
	}

	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			got := attrValue(attr.Value)
			if got != expected {
				tb.Errorf("span %q attribute %q: got %v, want %v", spanName, key, got, expected)
			}
			return
		}
	}
	tb.Errorf("span %q missing attribute %q", spanName, key)
}

// spanNames returns names of all spans in this instance's view.
func (t *TestTelemetry) spanNames() []string {
	spans := t.Spans()
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name()
	}
	return names
}

// attrValue extracts the value from an attribute.
func attrValue(v attribute.Value) interface{} {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}

// CollectMetrics gathers everything recorded through the global meter so far.
func (t *TestTelemetry) CollectMetrics(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := t.reader.Collect(ctx, &rm)
	return rm, err
}

// AssertMetricRecorded verifies an instrument with the given name has data.
func (t *TestTelemetry) AssertMetricRecorded(tb testing.TB, name string) {
	tb.Helper()
	rm, err := t.CollectMetrics(context.Background())
	if err != nil {
		tb.Fatalf("collecting metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return
			}
		}
	}
	tb.Errorf("metric %q not recorded", name)
}
