// Package compaction reduces the token cost of a chunk collection through
// removal and extractive summarization.
//
// The engine offers a non-destructive plan (SuggestCompaction) and an
// applied rewrite (Compact). Both respect the same invariant: a chunk
// marked critical is never removed, summarized, or altered while critical
// preservation is on, under every strategy and at every utilization level.
// The newest PreserveRecent chunks are likewise always carried verbatim.
//
// Summarization is extractive sentence selection. Chunks slated for
// summarization are grouped by type, concatenated, and reduced to their
// highest-scoring sentences, re-ordered to the original sequence. No new
// text is generated beyond the group tag.
//
// Compact rewrites the monitor's collection in place. Callers that ingest
// chunks concurrently must serialize ingestion against Compact; the
// session facade does this with a single writer lock.
package compaction
