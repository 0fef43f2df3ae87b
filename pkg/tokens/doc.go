// Package tokens provides deterministic token estimation for context
// budgeting. The heuristic estimator is the default: a fixed
// characters-per-token ratio that is cheap, dependency-free, and stable
// across runs. The BPE estimator is an opt-in alternative for callers that
// want counts closer to a real model tokenizer; it falls back to the
// heuristic when encoding fails.
package tokens
