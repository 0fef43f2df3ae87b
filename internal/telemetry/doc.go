// Package telemetry provides an in-memory OpenTelemetry harness for tests.
//
// # Overview
//
// The engine packages instrument themselves through the otel globals
// (otel.Tracer, otel.Meter). Provider lifecycle, exporters, and sampling
// belong to the process embedding the library, so this package does not
// configure any; it only captures what the instrumentation emits so tests
// can assert on it.
//
// # Usage
//
//	tt := telemetry.NewTestTelemetry()
//
//	// ... run the code under test ...
//
//	tt.AssertSpanExists(t, "guard.add_message")
//	tt.AssertSpanAttribute(t, "guard.add_message", "session.id", sessionID)
//	tt.AssertMetricRecorded(t, "rotguard.compaction.passes")
//
// The first NewTestTelemetry call in a test binary installs a recording
// TracerProvider and a manual-reader MeterProvider as the otel globals.
// Package-level tracers and meters delegate only to the first provider
// registered, so the install happens once and each TestTelemetry instance
// scopes its span view to what ended after it was created.
package telemetry
