package drift

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Detector accumulates conversation history and scores drift on demand.
// All methods are safe for concurrent use.
type Detector struct {
	mu sync.RWMutex

	cfg Config

	messages            []Message
	initialRequirements []string
	userSeen            int

	criticalSource func(limit int) []string
}

// Option configures a Detector.
type Option func(*Detector)

// WithCriticalSource supplies the pinned-context lookup used to render
// reminder suggestions. The function receives the maximum number of items
// wanted and returns their content strings, newest first.
func WithCriticalSource(fn func(limit int) []string) Option {
	return func(d *Detector) {
		d.criticalSource = fn
	}
}

// NewDetector creates a detector from config.
func NewDetector(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid drift config: %w", err)
	}
	d := &Detector{cfg: cfg}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// AddMessage appends a message to the rolling history. Obligation phrasing
// in the leading user messages is captured as the session's initial
// requirement list.
func (d *Detector) AddMessage(role Role, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.messages = append(d.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})

	if role != RoleUser || d.userSeen >= d.cfg.InitialUserMessages {
		return
	}
	d.userSeen++
	for _, sentence := range splitSentences(content) {
		if hasObligation(sentence) {
			d.initialRequirements = append(d.initialRequirements, sentence)
		}
	}
}

// InitialRequirements returns a copy of the captured requirement list.
func (d *Detector) InitialRequirements() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.initialRequirements))
	copy(out, d.initialRequirements)
	return out
}

// MessageCount returns the size of the rolling history.
func (d *Detector) MessageCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.messages)
}

// DetectDrift recomputes the drift assessment from the current history.
// Degenerate inputs produce neutral zero results, never errors.
func (d *Detector) DetectDrift() Result {
	d.mu.RLock()
	messages := make([]Message, len(d.messages))
	copy(messages, d.messages)
	requirements := make([]string, len(d.initialRequirements))
	copy(requirements, d.initialRequirements)
	criticalSource := d.criticalSource
	d.mu.RUnlock()

	var assistant []string
	for _, m := range messages {
		if m.Role == RoleAssistant {
			assistant = append(assistant, m.Content)
		}
	}

	adherence, missing := d.requirementAdherence(requirements, assistant)
	contradictions, totalContradictions := d.findContradictions(assistant)
	topicShift := d.topicShift(messages)

	contradictionSignal := d.cfg.PerContradiction * float64(totalContradictions)
	if contradictionSignal > 1 {
		contradictionSignal = 1
	}
	score := d.cfg.AdherenceWeight*(1-adherence) +
		d.cfg.ContradictionWeight*contradictionSignal +
		d.cfg.TopicWeight*topicShift
	if score > 1 {
		score = 1
	}

	return Result{
		DriftScore:          score,
		DriftDetected:       score >= d.cfg.DetectionThreshold,
		MissingRequirements: missing,
		Contradictions:      contradictions,
		SuggestedReminders:  d.reminders(missing, criticalSource),
		TopicShift:          topicShift,
	}
}

// requirementAdherence checks each captured requirement for keyword overlap
// with the recent assistant messages. A requirement whose keywords reach the
// configured overlap counts as followed. With no requirements captured the
// score is 1.
func (d *Detector) requirementAdherence(requirements, assistant []string) (float64, []string) {
	if len(requirements) == 0 {
		return 1, nil
	}

	recent := assistant
	if len(recent) > d.cfg.RecentAssistantWindow {
		recent = recent[len(recent)-d.cfg.RecentAssistantWindow:]
	}
	recentWords := make(map[string]struct{})
	for _, msg := range recent {
		for _, w := range splitWords(msg) {
			recentWords[w] = struct{}{}
		}
	}

	followed := 0
	var missing []string
	for _, req := range requirements {
		kws := extractKeywords(req, d.cfg.KeywordMinLength)
		if len(kws) == 0 {
			followed++
			continue
		}
		matched := 0
		for _, kw := range kws {
			if _, ok := recentWords[kw]; ok {
				matched++
			}
		}
		if float64(matched) >= d.cfg.KeywordOverlap*float64(len(kws)) {
			followed++
		} else {
			missing = append(missing, req)
		}
	}
	return float64(followed) / float64(len(requirements)), missing
}

// findContradictions scans every ordered pair of assistant messages against
// the opposing templates. It returns the most recent retained contradictions
// in chronological order plus the total number found, which feeds the score
// before the retention cap applies.
func (d *Detector) findContradictions(assistant []string) ([]Contradiction, int) {
	type hit struct {
		c     Contradiction
		later int
	}
	var hits []hit

	for _, tmpl := range contradictionTemplates {
		for i := 0; i < len(assistant); i++ {
			em := tmpl.earlier.FindStringSubmatch(assistant[i])
			if em == nil {
				continue
			}
			for j := i + 1; j < len(assistant); j++ {
				lm := tmpl.later.FindStringSubmatch(assistant[j])
				if lm == nil {
					continue
				}
				if normalizeSubject(em[1]) == normalizeSubject(lm[1]) {
					continue
				}
				hits = append(hits, hit{
					c: Contradiction{
						Earlier:  assistant[i],
						Later:    assistant[j],
						Severity: severityByDistance(j - i),
					},
					later: j,
				})
			}
		}
	}

	total := len(hits)
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].later < hits[b].later })
	if len(hits) > d.cfg.MaxContradictions {
		hits = hits[len(hits)-d.cfg.MaxContradictions:]
	}

	var out []Contradiction
	for _, h := range hits {
		out = append(out, h.c)
	}
	return out, total
}

// severityByDistance grades a contradiction by how many assistant messages
// separate the two statements.
func severityByDistance(distance int) Severity {
	switch {
	case distance > 10:
		return SeverityHigh
	case distance > 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// topicShift compares the theme sets of the earliest and most recent
// message windows.
func (d *Detector) topicShift(messages []Message) float64 {
	if len(messages) == 0 {
		return 0
	}

	window := d.cfg.TopicWindow
	earliest := messages
	if len(earliest) > window {
		earliest = earliest[:window]
	}
	recent := messages
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	early := themesIn(joinContents(earliest))
	late := themesIn(joinContents(recent))
	return 1 - jaccard(early, late)
}

// reminders renders up to the configured number of missing requirements and
// pinned critical items as imperative reminder strings.
func (d *Detector) reminders(missing []string, criticalSource func(limit int) []string) []string {
	var out []string
	for i, req := range missing {
		if i >= d.cfg.MaxReminderRequirements {
			break
		}
		out = append(out, "Remember: "+req)
	}
	if criticalSource != nil {
		items := criticalSource(d.cfg.MaxReminderCritical)
		if len(items) > d.cfg.MaxReminderCritical {
			items = items[:d.cfg.MaxReminderCritical]
		}
		for _, item := range items {
			out = append(out, "Keep in mind: "+item)
		}
	}
	return out
}

func joinContents(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(m.Content)
	}
	return b.String()
}

func normalizeSubject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
