// Package guard is the session facade over the context health engines.
//
// A Session wires the health monitor, drift detector, critical store,
// and compaction engine together for one conversation and serializes
// access to them: ingestion and compaction take the write lock,
// evaluations share the read lock. Sessions are independent; two open
// sessions never share state, and there is no package-level mutable
// state behind them.
//
// The typical loop feeds every conversation turn through AddMessage and
// every out-of-band context block through AddContextChunk, then asks
// GetContextHealth or GetContextSummaryForAI before building the next
// prompt. When health degrades, AutoCompact picks a strategy from the
// current status and rewrites the chunk collection, preserving pinned
// critical context.
//
//	sess, err := guard.Open("billing-service")
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
//	_ = sess.AddMessage(ctx, drift.RoleUser, "Always use parameterized queries.")
//	h, _ := sess.GetContextHealth(ctx)
//	if h.CompactionNeeded {
//		_, _ = sess.AutoCompact(ctx)
//	}
//	prompt := sess.GetContextSummaryForAI(ctx) + "\n\n" + userInput
//
// Pinned critical context and health snapshots persist through the
// configured store. The sqlite backend survives process restarts;
// reopening a session for the same path rehydrates its pinned items.
// Persistence failures after Open never fail an operation, they degrade
// to warnings on the session logger.
package guard
