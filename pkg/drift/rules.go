package drift

import (
	"regexp"
	"strings"
	"unicode"
)

// obligationPatterns mark a sentence as a stated requirement when it
// appears in an early user message.
var obligationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmust\b`),
	regexp.MustCompile(`(?i)\bshould\b`),
	regexp.MustCompile(`(?i)\bneeds? to\b`),
	regexp.MustCompile(`(?i)\bmake sure\b`),
	regexp.MustCompile(`(?i)\bdon'?t\b`),
	regexp.MustCompile(`(?i)\bnever\b`),
	regexp.MustCompile(`(?i)\bavoid\b`),
}

// contradictionTemplate pairs an earlier-statement pattern with a
// later-statement pattern. Both capture a subject; a contradiction is
// recorded when the two captured subjects differ.
type contradictionTemplate struct {
	name    string
	earlier *regexp.Regexp
	later   *regexp.Regexp
}

var contradictionTemplates = []contradictionTemplate{
	{
		name:    "replacement",
		earlier: regexp.MustCompile(`(?i)\bwill use\s+([A-Za-z0-9_./-]+)`),
		later:   regexp.MustCompile(`(?i)\buse\s+([A-Za-z0-9_./-]+)\s+instead\b`),
	},
	{
		name:    "reversal",
		earlier: regexp.MustCompile(`(?i)\bdecided on\s+([A-Za-z0-9_./-]+)`),
		later:   regexp.MustCompile(`(?i)\bswitched to\s+([A-Za-z0-9_./-]+)`),
	},
	{
		name:    "polarity",
		earlier: regexp.MustCompile(`(?i)\balways\s+([A-Za-z0-9_./-]+(?:\s+[A-Za-z0-9_./-]+)?)`),
		later:   regexp.MustCompile(`(?i)\bnever\s+([A-Za-z0-9_./-]+(?:\s+[A-Za-z0-9_./-]+)?)`),
	},
}

// themeVocabulary groups topic keywords into the fixed themes used for
// topic-shift comparison. Matching is whole-word against lowercased text.
var themeVocabulary = map[string][]string{
	"authentication": {"auth", "authentication", "login", "logout", "password", "token", "oauth", "jwt", "credential", "credentials"},
	"database":       {"database", "db", "sql", "query", "queries", "schema", "migration", "migrations", "postgres", "mysql", "sqlite", "table", "index"},
	"api":            {"api", "endpoint", "endpoints", "rest", "grpc", "http", "request", "response", "route", "routes", "handler", "handlers"},
	"frontend":       {"frontend", "ui", "component", "components", "react", "css", "html", "render", "browser", "dom"},
	"testing":        {"test", "tests", "testing", "mock", "mocks", "assert", "assertion", "coverage", "fixture", "fixtures"},
	"deployment":     {"deploy", "deployment", "docker", "kubernetes", "k8s", "release", "ci", "cd", "pipeline", "rollout"},
	"security":       {"security", "secure", "vulnerability", "encrypt", "encryption", "sanitize", "injection", "xss", "csrf"},
	"performance":    {"performance", "latency", "cache", "caching", "optimize", "optimization", "profiling", "throughput", "benchmark"},
}

// hasObligation reports whether the sentence states a requirement.
func hasObligation(sentence string) bool {
	for _, p := range obligationPatterns {
		if p.MatchString(sentence) {
			return true
		}
	}
	return false
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

// extractKeywords returns the unique lowercased words in text strictly
// longer than minLen, in first-seen order.
func extractKeywords(text string, minLen int) []string {
	words := splitWords(text)
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if len(w) <= minLen {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// splitWords lowercases text and splits it into letter/digit runs.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// themesIn returns the set of themes whose vocabulary appears in text.
func themesIn(text string) map[string]struct{} {
	words := splitWords(text)
	wordSet := make(map[string]struct{}, len(words))
	for _, w := range words {
		wordSet[w] = struct{}{}
	}

	themes := make(map[string]struct{})
	for theme, vocab := range themeVocabulary {
		for _, kw := range vocab {
			if _, ok := wordSet[kw]; ok {
				themes[theme] = struct{}{}
				break
			}
		}
	}
	return themes
}

// jaccard computes set similarity. Two empty sets are identical, so the
// similarity is 1 and no shift is reported for topic-free conversations.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}
