package health

import (
	"time"

	"github.com/google/uuid"
)

// ChunkType categorizes a unit of context.
type ChunkType string

const (
	ChunkTypeMessage     ChunkType = "message"
	ChunkTypeDecision    ChunkType = "decision"
	ChunkTypeRequirement ChunkType = "requirement"
	ChunkTypeInstruction ChunkType = "instruction"
	ChunkTypeCode        ChunkType = "code"
)

// IsValid reports whether t is a known chunk type.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeMessage, ChunkTypeDecision, ChunkTypeRequirement,
		ChunkTypeInstruction, ChunkTypeCode:
		return true
	}
	return false
}

// Chunk is a token-costed unit of context counted against the budget.
// Tokens is the estimator's output for Content at insertion time and is
// never recomputed. A chunk is immutable once added except for Critical
// promotion.
type Chunk struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Tokens         int       `json:"tokens"`
	Timestamp      time.Time `json:"timestamp"`
	Type           ChunkType `json:"type"`
	RelevanceScore float64   `json:"relevance_score"`
	Critical       bool      `json:"is_critical"`
}

// NewChunk builds a chunk with a generated ID and the current timestamp.
// The caller supplies the token count so the cached value always reflects
// the estimator used at insertion.
func NewChunk(content string, chunkTokens int, typ ChunkType, relevance float64, critical bool) Chunk {
	return Chunk{
		ID:             "ch_" + uuid.New().String()[:8],
		Content:        content,
		Tokens:         chunkTokens,
		Timestamp:      time.Now(),
		Type:           typ,
		RelevanceScore: relevance,
		Critical:       critical,
	}
}

// Status classifies overall context health.
type Status string

const (
	StatusGood     Status = "good"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// ContextHealth is a derived, point-in-time view of budget and drift state.
type ContextHealth struct {
	TokensUsed         int      `json:"tokens_used"`
	TokensLimit        int      `json:"tokens_limit"`
	UtilizationPercent float64  `json:"utilization_percent"`
	Health             Status   `json:"health"`
	DriftScore         float64  `json:"drift_score"`
	DriftDetected      bool     `json:"drift_detected"`
	CompactionNeeded   bool     `json:"compaction_needed"`
	Suggestions        []string `json:"suggestions,omitempty"`
}

// Snapshot is one recorded health observation, kept for trend display.
type Snapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	Health              Status    `json:"health"`
	UtilizationPercent  float64   `json:"utilization_percent"`
	DriftScore          float64   `json:"drift_score"`
	CompactionTriggered bool      `json:"compaction_triggered"`
}

// Config holds monitor thresholds and limits.
type Config struct {
	// TokenLimit is the initial context budget in tokens.
	TokenLimit int `koanf:"token_limit" json:"token_limit"`
	// WarningUtilization and CriticalUtilization are percentages.
	WarningUtilization  float64 `koanf:"warning_utilization" json:"warning_utilization"`
	CriticalUtilization float64 `koanf:"critical_utilization" json:"critical_utilization"`
	// WarningDrift and CriticalDrift are drift scores in [0,1].
	WarningDrift  float64 `koanf:"warning_drift" json:"warning_drift"`
	CriticalDrift float64 `koanf:"critical_drift" json:"critical_drift"`
	// HistorySize caps the in-memory snapshot ring.
	HistorySize int `koanf:"history_size" json:"history_size"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		TokenLimit:          100000,
		WarningUtilization:  70,
		CriticalUtilization: 90,
		WarningDrift:        0.3,
		CriticalDrift:       0.6,
		HistorySize:         100,
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.TokenLimit <= 0 {
		return ErrInvalidTokenLimit
	}
	if c.WarningUtilization <= 0 || c.WarningUtilization >= c.CriticalUtilization {
		return ErrInvalidThresholds
	}
	if c.WarningDrift <= 0 || c.WarningDrift >= c.CriticalDrift || c.CriticalDrift > 1 {
		return ErrInvalidThresholds
	}
	if c.HistorySize <= 0 {
		return ErrInvalidHistorySize
	}
	return nil
}
