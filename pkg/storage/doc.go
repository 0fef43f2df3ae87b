// Package storage persists session state that must outlive the process:
// pinned critical context and the health snapshot history.
//
// Two implementations are provided. MemoryStore keeps everything in
// process and is the default for ephemeral sessions. SQLiteStore writes
// to a single database file and survives restarts.
//
// Both satisfy critical.Persister, so either can back a critical store's
// write-through directly.
package storage
