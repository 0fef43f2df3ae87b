// Package drift scores how far a conversation has wandered from the
// requirements stated at the start of a session.
//
// A detector accumulates the rolling message history and captures an
// initial requirement list from the first user messages. DetectDrift then
// combines three signals into a composite score in [0,1]:
//
//   - requirement adherence, measured by keyword overlap between each
//     captured requirement and the recent assistant messages
//   - contradictions between earlier and later assistant statements,
//     matched against a fixed table of opposing templates
//   - topic shift, the Jaccard distance between the theme sets of the
//     earliest and most recent message windows
//
// Requirement adherence carries the largest weight because it is the only
// signal tied to explicit user intent. The other two are heuristic
// corroboration and their contributions are capped.
package drift
