package drift

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the rolling conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Severity grades a contradiction by how far apart the two statements are.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Contradiction pairs an earlier assistant statement with a later one that
// reverses it.
type Contradiction struct {
	Earlier  string   `json:"earlier"`
	Later    string   `json:"later"`
	Severity Severity `json:"severity"`
}

// Result is a point-in-time drift assessment. It is recomputed on demand
// and never persisted.
type Result struct {
	DriftScore          float64         `json:"drift_score"`
	DriftDetected       bool            `json:"drift_detected"`
	MissingRequirements []string        `json:"missing_requirements"`
	Contradictions      []Contradiction `json:"contradictions"`
	SuggestedReminders  []string        `json:"suggested_reminders"`
	TopicShift          float64         `json:"topic_shift"`
}

// Config holds detector windows, weights, and thresholds.
type Config struct {
	// InitialUserMessages is how many leading user messages are scanned
	// for requirement phrasing.
	InitialUserMessages int `koanf:"initial_user_messages" json:"initial_user_messages"`
	// RecentAssistantWindow is how many trailing assistant messages
	// adherence is checked against.
	RecentAssistantWindow int `koanf:"recent_assistant_window" json:"recent_assistant_window"`
	// TopicWindow is how many messages each end of the history
	// contributes to topic-shift comparison.
	TopicWindow int `koanf:"topic_window" json:"topic_window"`
	// KeywordMinLength is the shortest word counted as a requirement
	// keyword. Words of exactly this length are dropped.
	KeywordMinLength int `koanf:"keyword_min_length" json:"keyword_min_length"`
	// KeywordOverlap is the fraction of a requirement's keywords that
	// must appear in recent assistant text for it to count as followed.
	KeywordOverlap float64 `koanf:"keyword_overlap" json:"keyword_overlap"`
	// MaxContradictions caps how many of the most recent contradictions
	// are retained in a result.
	MaxContradictions int `koanf:"max_contradictions" json:"max_contradictions"`
	// DetectionThreshold is the composite score at which DriftDetected
	// flips on.
	DetectionThreshold float64 `koanf:"detection_threshold" json:"detection_threshold"`

	// AdherenceWeight, ContradictionWeight, and TopicWeight combine the
	// three signals into the composite score.
	AdherenceWeight     float64 `koanf:"adherence_weight" json:"adherence_weight"`
	ContradictionWeight float64 `koanf:"contradiction_weight" json:"contradiction_weight"`
	TopicWeight         float64 `koanf:"topic_weight" json:"topic_weight"`
	// PerContradiction is each contradiction's contribution before the
	// ContradictionWeight cap applies.
	PerContradiction float64 `koanf:"per_contradiction" json:"per_contradiction"`

	// MaxReminderRequirements and MaxReminderCritical bound the two halves
	// of the suggested-reminder list.
	MaxReminderRequirements int `koanf:"max_reminder_requirements" json:"max_reminder_requirements"`
	MaxReminderCritical     int `koanf:"max_reminder_critical" json:"max_reminder_critical"`
}

// DefaultConfig returns the reference detector tuning.
func DefaultConfig() Config {
	return Config{
		InitialUserMessages:     5,
		RecentAssistantWindow:   10,
		TopicWindow:             10,
		KeywordMinLength:        3,
		KeywordOverlap:          0.5,
		MaxContradictions:       5,
		DetectionThreshold:      0.3,
		AdherenceWeight:         0.4,
		ContradictionWeight:     0.3,
		TopicWeight:             0.3,
		PerContradiction:        0.15,
		MaxReminderRequirements: 3,
		MaxReminderCritical:     3,
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.InitialUserMessages <= 0 || c.RecentAssistantWindow <= 0 || c.TopicWindow <= 0 {
		return ErrInvalidWindow
	}
	if c.KeywordOverlap <= 0 || c.KeywordOverlap > 1 {
		return ErrInvalidWeights
	}
	if c.AdherenceWeight < 0 || c.ContradictionWeight < 0 || c.TopicWeight < 0 ||
		c.PerContradiction <= 0 {
		return ErrInvalidWeights
	}
	if c.DetectionThreshold <= 0 || c.DetectionThreshold > 1 {
		return ErrInvalidWeights
	}
	if c.MaxContradictions <= 0 {
		return ErrInvalidWindow
	}
	return nil
}
