// Package health tracks consumption of an LLM agent's context budget.
//
// The Monitor owns the ordered collection of context chunks currently in
// scope, the token budget, and a rolling history of health snapshots. It
// classifies health from budget utilization and a supplied drift score:
//
//	critical  utilization >= 90% or drift >= 0.6
//	warning   utilization >= 70% or drift >= 0.3
//	good      otherwise
//
// The monitor measures; it does not log, persist, or compact. Recording
// snapshots and triggering compaction are orchestration concerns that
// belong to the caller.
package health
