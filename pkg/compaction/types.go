package compaction

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// Strategy selects how hard compaction cuts.
type Strategy string

const (
	// StrategySummarize keeps everything at or above its threshold and
	// summarizes the band just below it.
	StrategySummarize Strategy = "summarize"
	// StrategySelective lowers the keep threshold, discarding more of the
	// low-relevance tail.
	StrategySelective Strategy = "selective"
	// StrategyAggressive keeps nothing old verbatim except critical
	// chunks; survivors above threshold are summarized instead.
	StrategyAggressive Strategy = "aggressive"
)

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategySummarize, StrategySelective, StrategyAggressive:
		return true
	}
	return false
}

// escalationOrder is the path Compact walks when a target utilization is
// not reached: each step cuts harder than the previous.
var escalationOrder = []Strategy{StrategySummarize, StrategySelective, StrategyAggressive}

// Options control one Compact call.
type Options struct {
	// Strategy selects the relevance threshold regime. Empty defaults to
	// StrategySummarize.
	Strategy Strategy `json:"strategy"`
	// PreserveRecent is how many of the newest chunks are carried
	// verbatim under every strategy.
	PreserveRecent int `json:"preserve_recent"`
	// TargetUtilization, when positive, is the utilization percentage the
	// engine keeps escalating toward until the strategy list is
	// exhausted.
	TargetUtilization float64 `json:"target_utilization,omitempty"`
	// DropCritical disables critical preservation. It exists for
	// diagnostics and data-loss tooling; leave false in normal operation.
	DropCritical bool `json:"drop_critical,omitempty"`
}

// ApplyDefaults fills zero values.
func (o *Options) ApplyDefaults() {
	if o.Strategy == "" {
		o.Strategy = StrategySummarize
	}
}

// Validate checks options for errors.
func (o *Options) Validate() error {
	if !o.Strategy.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, o.Strategy)
	}
	if o.PreserveRecent < 0 {
		return fmt.Errorf("%w: preserve_recent must not be negative", ErrInvalidOptions)
	}
	if o.TargetUtilization < 0 || o.TargetUtilization > 100 {
		return fmt.Errorf("%w: target_utilization must be within [0,100]", ErrInvalidOptions)
	}
	return nil
}

// Result reports an applied compaction. With escalation, Summarized and
// Removed sum the actions of every pass while Kept counts the chunks
// carried verbatim into the final collection.
type Result struct {
	Strategy         Strategy      `json:"strategy"`
	TokensBefore     int           `json:"tokens_before"`
	TokensAfter      int           `json:"tokens_after"`
	ChunksBefore     int           `json:"chunks_before"`
	ChunksAfter      int           `json:"chunks_after"`
	Kept             int           `json:"kept"`
	Summarized       int           `json:"summarized"`
	Removed          int           `json:"removed"`
	Summaries        []string      `json:"summaries,omitempty"`
	UtilizationAfter float64       `json:"utilization_after"`
	Escalations      int           `json:"escalations"`
	Duration         time.Duration `json:"duration"`
}

// TokensSaved is the net reduction achieved.
func (r Result) TokensSaved() int {
	return r.TokensBefore - r.TokensAfter
}

// Suggestion is a non-destructive compaction plan: the three relevance
// buckets plus the projected effect of applying them.
type Suggestion struct {
	Critical       []health.Chunk `json:"critical"`
	Summarizable   []health.Chunk `json:"summarizable"`
	Removable      []health.Chunk `json:"removable"`
	TokensSaved    int            `json:"tokens_saved"`
	NewUtilization float64        `json:"new_utilization"`
}

// ScoringPolicy weights the extractive sentence scorer. The weights are
// relative; only their ordering is meaningful.
type ScoringPolicy struct {
	// SweetSpotMin and SweetSpotMax bound the preferred sentence word
	// count.
	SweetSpotMin int `koanf:"sweet_spot_min" json:"sweet_spot_min"`
	SweetSpotMax int `koanf:"sweet_spot_max" json:"sweet_spot_max"`
	// LengthWeight scores sentences inside the sweet spot.
	LengthWeight float64 `koanf:"length_weight" json:"length_weight"`
	// KeywordWeight scores decision and obligation vocabulary.
	KeywordWeight float64 `koanf:"keyword_weight" json:"keyword_weight"`
	// TechnicalWeight scores identifiers, call syntax, and inline code.
	TechnicalWeight float64 `koanf:"technical_weight" json:"technical_weight"`
}

// Config holds engine thresholds and the summarizer tuning.
type Config struct {
	// SummarizeThreshold, SelectiveThreshold, and AggressiveThreshold are
	// the per-strategy relevance cutoffs.
	SummarizeThreshold  float64 `koanf:"summarize_threshold" json:"summarize_threshold"`
	SelectiveThreshold  float64 `koanf:"selective_threshold" json:"selective_threshold"`
	AggressiveThreshold float64 `koanf:"aggressive_threshold" json:"aggressive_threshold"`

	// CriticalRelevance is the score at or above which SuggestCompaction
	// buckets a chunk with the critical set.
	CriticalRelevance float64 `koanf:"critical_relevance" json:"critical_relevance"`
	// SummarizableFloor is the score below which SuggestCompaction
	// considers a chunk removable.
	SummarizableFloor float64 `koanf:"summarizable_floor" json:"summarizable_floor"`
	// SummaryCompression is the fraction of summarizable tokens assumed
	// reclaimed when estimating savings.
	SummaryCompression float64 `koanf:"summary_compression" json:"summary_compression"`

	// MaxPasses caps the escalation loop, counting the initial pass.
	MaxPasses int `koanf:"max_passes" json:"max_passes"`

	// SummarySentences is how many sentences each group summary keeps.
	SummarySentences int `koanf:"summary_sentences" json:"summary_sentences"`
	// MinSentenceLength drops fragments below this many characters.
	MinSentenceLength int `koanf:"min_sentence_length" json:"min_sentence_length"`

	Scoring ScoringPolicy `koanf:"scoring" json:"scoring"`
}

// DefaultConfig returns the reference engine tuning.
func DefaultConfig() Config {
	return Config{
		SummarizeThreshold:  0.5,
		SelectiveThreshold:  0.3,
		AggressiveThreshold: 0.2,
		CriticalRelevance:   0.5,
		SummarizableFloor:   0.3,
		SummaryCompression:  0.7,
		MaxPasses:           3,
		SummarySentences:    3,
		MinSentenceLength:   10,
		Scoring: ScoringPolicy{
			SweetSpotMin:    5,
			SweetSpotMax:    30,
			LengthWeight:    1.0,
			KeywordWeight:   0.5,
			TechnicalWeight: 0.3,
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	for _, th := range []float64{c.SummarizeThreshold, c.SelectiveThreshold, c.AggressiveThreshold} {
		if th <= 0 || th > 1 {
			return fmt.Errorf("%w: thresholds must be within (0,1]", ErrInvalidConfig)
		}
	}
	if c.AggressiveThreshold >= c.SelectiveThreshold || c.SelectiveThreshold >= c.SummarizeThreshold {
		return fmt.Errorf("%w: thresholds must tighten strictly from summarize to aggressive", ErrInvalidConfig)
	}
	if c.SummarizableFloor <= 0 || c.SummarizableFloor >= c.CriticalRelevance || c.CriticalRelevance > 1 {
		return fmt.Errorf("%w: suggestion buckets must satisfy 0 < floor < critical <= 1", ErrInvalidConfig)
	}
	if c.SummaryCompression <= 0 || c.SummaryCompression >= 1 {
		return fmt.Errorf("%w: summary_compression must be within (0,1)", ErrInvalidConfig)
	}
	if c.MaxPasses < 1 {
		return fmt.Errorf("%w: max_passes must be at least 1", ErrInvalidConfig)
	}
	if c.SummarySentences < 1 {
		return fmt.Errorf("%w: summary_sentences must be at least 1", ErrInvalidConfig)
	}
	if c.MinSentenceLength < 1 {
		return fmt.Errorf("%w: min_sentence_length must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// thresholdFor maps a strategy to its relevance cutoff.
func (c *Config) thresholdFor(s Strategy) float64 {
	switch s {
	case StrategySelective:
		return c.SelectiveThreshold
	case StrategyAggressive:
		return c.AggressiveThreshold
	default:
		return c.SummarizeThreshold
	}
}
