// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// Logging wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry log bridge)
//   - Automatic context field injection (trace_id, span_id, session.id, project)
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithSessionID(ctx, "sess_1a2b3c4d")
//	logger.Info(ctx, "compaction applied", zap.Int("tokens_saved", saved))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-08-22T10:15:30Z",
//	  "level": "info",
//	  "msg": "compaction applied",
//	  "trace_id": "abc123",
//	  "session.id": "sess_1a2b3c4d",
//	  "tokens_saved": 1421
//	}
//
// Engine packages do not import this package; they accept a plain
// *zap.Logger through their options. The guard façade builds its default
// logger here and hands the Underlying() zap logger down.
//
// # Testing
//
// Use TestLogger for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
