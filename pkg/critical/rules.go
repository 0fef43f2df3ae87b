package critical

import (
	"regexp"
	"strings"
)

// classifierRule maps a linguistic pattern to the type it implies. Rules
// are evaluated in order and the first match wins, so instruction phrasing
// outranks decision phrasing, which outranks requirement phrasing.
type classifierRule struct {
	typ     Type
	pattern *regexp.Regexp
}

var classifierRules = []classifierRule{
	// Imperative modals, prohibitions, and emphasis markers.
	{TypeInstruction, regexp.MustCompile(`(?i)\bmust\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\balways\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bnever\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bmake sure\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bensure\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bdo not\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bdon'?t\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bimportant\b`)},
	{TypeInstruction, regexp.MustCompile(`(?i)\bremember\b`)},

	// Decision verbs.
	{TypeDecision, regexp.MustCompile(`(?i)\bdecided?\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bdecision\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bwill use\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bchose(?:n)?\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bgoing with\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bswitched to\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bselected\b`)},
	{TypeDecision, regexp.MustCompile(`(?i)\bagreed\b`)},

	// Obligation and necessity phrasing.
	{TypeRequirement, regexp.MustCompile(`(?i)\brequire(?:s|d|ment|ments)?\b`)},
	{TypeRequirement, regexp.MustCompile(`(?i)\bneeds? to\b`)},
	{TypeRequirement, regexp.MustCompile(`(?i)\bshould\b`)},
	{TypeRequirement, regexp.MustCompile(`(?i)\bha(?:s|ve) to\b`)},
	{TypeRequirement, regexp.MustCompile(`(?i)\bmandatory\b`)},
}

// InferType classifies text against the rule table. Text matching no rule
// is custom.
func InferType(text string) Type {
	for _, rule := range classifierRules {
		if rule.pattern.MatchString(text) {
			return rule.typ
		}
	}
	return TypeCustom
}

// IsCriticalText reports whether text matches any classifier rule. The
// custom fallback does not count; plain prose is not critical on its own.
func IsCriticalText(text string) bool {
	for _, rule := range classifierRules {
		if rule.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractCandidates splits text into sentences and returns each sentence
// that matches a classifier rule, tagged with its inferred type.
func ExtractCandidates(text string) []Candidate {
	var out []Candidate
	for _, sentence := range splitSentences(text) {
		if !IsCriticalText(sentence) {
			continue
		}
		out = append(out, Candidate{Content: sentence, Type: InferType(sentence)})
	}
	return out
}

// splitSentences breaks text on terminal punctuation and newlines,
// returning trimmed non-empty sentences.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}
