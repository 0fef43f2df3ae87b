package compaction

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/rotguard/pkg/critical"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// technicalPatterns flag sentences that reference code: camel and Pascal
// case identifiers, call syntax, and inline code spans.
var technicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[a-z][a-z0-9]*[A-Z]\w*`),
	regexp.MustCompile(`\b[A-Z][a-z0-9]+[A-Z]\w*`),
	regexp.MustCompile(`\w+\(`),
	regexp.MustCompile("`[^`]+`"),
}

// Summary is the extractive reduction of one chunk-type group.
type Summary struct {
	Type health.ChunkType `json:"type"`
	Text string           `json:"text"`
}

// Summarizer reduces grouped chunk content to its highest-scoring
// sentences. Scoring is deterministic, so the same input always produces
// the same summary.
type Summarizer struct {
	cfg Config
}

// NewSummarizer creates a summarizer from engine config.
func NewSummarizer(cfg Config) *Summarizer {
	return &Summarizer{cfg: cfg}
}

// Summarize groups chunks by type in first-seen order, concatenates each
// group's content, and extracts its top sentences. Groups without a usable
// sentence are dropped.
func (s *Summarizer) Summarize(chunks []health.Chunk) []Summary {
	if len(chunks) == 0 {
		return nil
	}

	var order []health.ChunkType
	groups := make(map[health.ChunkType][]string)
	for _, c := range chunks {
		if _, ok := groups[c.Type]; !ok {
			order = append(order, c.Type)
		}
		groups[c.Type] = append(groups[c.Type], c.Content)
	}

	var out []Summary
	for _, typ := range order {
		text := s.summarizeText(strings.Join(groups[typ], " "))
		if text == "" {
			continue
		}
		out = append(out, Summary{
			Type: typ,
			Text: fmt.Sprintf("[Summary - %s] %s", typ, text),
		})
	}
	return out
}

// summarizeText selects the top-scoring sentences of text and re-orders
// them to their original sequence for readability.
func (s *Summarizer) summarizeText(text string) string {
	sentences := s.splitIntoSentences(text)
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) <= s.cfg.SummarySentences {
		return strings.Join(sentences, " ")
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sentence := range sentences {
		ranked[i] = scored{index: i, score: s.scoreSentence(sentence)}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	top := ranked[:s.cfg.SummarySentences]
	sort.Slice(top, func(a, b int) bool {
		return top[a].index < top[b].index
	})

	parts := make([]string, len(top))
	for i, r := range top {
		parts[i] = sentences[r.index]
	}
	return strings.Join(parts, " ")
}

// splitIntoSentences breaks text on terminal punctuation, keeping the
// punctuation with its sentence. Fragments at or below the minimum length
// accumulate into the following sentence rather than standing alone.
func (s *Summarizer) splitIntoSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if len(sentence) > s.cfg.MinSentenceLength {
				sentences = append(sentences, sentence)
				current.Reset()
			}
		}
	}

	if rest := strings.TrimSpace(current.String()); len(rest) > s.cfg.MinSentenceLength {
		sentences = append(sentences, rest)
	}
	return sentences
}

// scoreSentence rates a sentence by word count, decision and obligation
// vocabulary, and technical markers. Weights come from the scoring policy.
func (s *Summarizer) scoreSentence(sentence string) float64 {
	policy := s.cfg.Scoring
	score := 0.0

	words := len(strings.Fields(sentence))
	if words >= policy.SweetSpotMin && words <= policy.SweetSpotMax {
		score += policy.LengthWeight
	}

	if critical.IsCriticalText(sentence) {
		score += policy.KeywordWeight
	}

	for _, p := range technicalPatterns {
		if p.MatchString(sentence) {
			score += policy.TechnicalWeight
			break
		}
	}
	return score
}
