// Package critical pins context items that compaction must never touch.
//
// Items are classified with an ordered table of linguistic pattern rules.
// Explicit instructions outrank decisions, decisions outrank requirements,
// and anything marked without a matching pattern falls back to the custom
// type. The store keeps items in memory for the lifetime of a session and
// writes through to an optional persister; persistence failures are logged
// and swallowed so already-pinned items stay protected even when the store
// backend is unavailable.
package critical
