package guard

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fyrsmithlabs/rotguard/internal/logging"
	"github.com/fyrsmithlabs/rotguard/pkg/compaction"
	"github.com/fyrsmithlabs/rotguard/pkg/drift"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

const (
	// envPrefix namespaces environment overrides:
	// ROTGUARD_HEALTH_TOKEN_LIMIT -> health.token_limit.
	envPrefix = "ROTGUARD_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Storage backends selectable through StorageConfig.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// LoggingConfig shapes the logger a session builds when none is
// supplied through WithLogger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level" json:"level"`
	// Format is json or console.
	Format string `koanf:"format" json:"format"`
}

// StorageConfig selects where pinned items and health snapshots persist.
type StorageConfig struct {
	// Backend is memory or sqlite.
	Backend string `koanf:"backend" json:"backend"`
	// Path is the database file for the sqlite backend.
	Path string `koanf:"path" json:"path,omitempty"`
}

// Config aggregates the tuning of every engine a session wires together.
type Config struct {
	Logging    LoggingConfig     `koanf:"logging" json:"logging"`
	Health     health.Config     `koanf:"health" json:"health"`
	Drift      drift.Config      `koanf:"drift" json:"drift"`
	Compaction compaction.Config `koanf:"compaction" json:"compaction"`
	Storage    StorageConfig     `koanf:"storage" json:"storage"`
}

// DefaultConfig returns the reference tuning for every engine, an
// in-memory store, and info-level JSON logging.
func DefaultConfig() Config {
	return Config{
		Logging:    LoggingConfig{Level: "info", Format: "json"},
		Health:     health.DefaultConfig(),
		Drift:      drift.DefaultConfig(),
		Compaction: compaction.DefaultConfig(),
		Storage:    StorageConfig{Backend: BackendMemory},
	}
}

// Validate checks the aggregate and every engine section.
func (c *Config) Validate() error {
	if _, err := logging.LevelFromString(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging: format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage: %w", ErrMissingPath)
		}
	default:
		return fmt.Errorf("storage: %w, got %q", ErrInvalidBackend, c.Storage.Backend)
	}
	if err := c.Health.Validate(); err != nil {
		return fmt.Errorf("health: %w", err)
	}
	if err := c.Drift.Validate(); err != nil {
		return fmt.Errorf("drift: %w", err)
	}
	if err := c.Compaction.Validate(); err != nil {
		return fmt.Errorf("compaction: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file, then overrides with
// ROTGUARD_* environment variables and fills defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ROTGUARD_HEALTH_TOKEN_LIMIT, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// An empty path skips the file and loads from environment and defaults
// alone. The file must have 0600 or 0400 permissions and be under 1MB;
// validation uses the opened descriptor so the checked file is the file
// read.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return Config{}, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFile(info); err != nil {
			return Config{}, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	return finishLoad(k)
}

// LoadConfigBytes parses raw YAML, then applies the same environment
// overrides and defaults as LoadConfig.
func LoadConfigBytes(data []byte) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return finishLoad(k)
}

func finishLoad(k *koanf.Koanf) (Config, error) {
	// Environment variables use underscore separator and are uppercased.
	// Split on the first underscore only (section.field_name pattern):
	//   ROTGUARD_HEALTH_TOKEN_LIMIT -> health.token_limit
	//   ROTGUARD_STORAGE_BACKEND    -> storage.backend
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills zero values so a partial file or environment set
// does not have to restate the reference tuning. Every engine field is
// strictly positive when set, so zero always means unset.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}

	if cfg.Health.TokenLimit == 0 {
		cfg.Health.TokenLimit = def.Health.TokenLimit
	}
	if cfg.Health.WarningUtilization == 0 {
		cfg.Health.WarningUtilization = def.Health.WarningUtilization
	}
	if cfg.Health.CriticalUtilization == 0 {
		cfg.Health.CriticalUtilization = def.Health.CriticalUtilization
	}
	if cfg.Health.WarningDrift == 0 {
		cfg.Health.WarningDrift = def.Health.WarningDrift
	}
	if cfg.Health.CriticalDrift == 0 {
		cfg.Health.CriticalDrift = def.Health.CriticalDrift
	}
	if cfg.Health.HistorySize == 0 {
		cfg.Health.HistorySize = def.Health.HistorySize
	}

	if cfg.Drift.InitialUserMessages == 0 {
		cfg.Drift.InitialUserMessages = def.Drift.InitialUserMessages
	}
	if cfg.Drift.RecentAssistantWindow == 0 {
		cfg.Drift.RecentAssistantWindow = def.Drift.RecentAssistantWindow
	}
	if cfg.Drift.TopicWindow == 0 {
		cfg.Drift.TopicWindow = def.Drift.TopicWindow
	}
	if cfg.Drift.KeywordMinLength == 0 {
		cfg.Drift.KeywordMinLength = def.Drift.KeywordMinLength
	}
	if cfg.Drift.KeywordOverlap == 0 {
		cfg.Drift.KeywordOverlap = def.Drift.KeywordOverlap
	}
	if cfg.Drift.MaxContradictions == 0 {
		cfg.Drift.MaxContradictions = def.Drift.MaxContradictions
	}
	if cfg.Drift.DetectionThreshold == 0 {
		cfg.Drift.DetectionThreshold = def.Drift.DetectionThreshold
	}
	if cfg.Drift.AdherenceWeight == 0 {
		cfg.Drift.AdherenceWeight = def.Drift.AdherenceWeight
	}
	if cfg.Drift.ContradictionWeight == 0 {
		cfg.Drift.ContradictionWeight = def.Drift.ContradictionWeight
	}
	if cfg.Drift.TopicWeight == 0 {
		cfg.Drift.TopicWeight = def.Drift.TopicWeight
	}
	if cfg.Drift.PerContradiction == 0 {
		cfg.Drift.PerContradiction = def.Drift.PerContradiction
	}
	if cfg.Drift.MaxReminderRequirements == 0 {
		cfg.Drift.MaxReminderRequirements = def.Drift.MaxReminderRequirements
	}
	if cfg.Drift.MaxReminderCritical == 0 {
		cfg.Drift.MaxReminderCritical = def.Drift.MaxReminderCritical
	}

	if cfg.Compaction.SummarizeThreshold == 0 {
		cfg.Compaction.SummarizeThreshold = def.Compaction.SummarizeThreshold
	}
	if cfg.Compaction.SelectiveThreshold == 0 {
		cfg.Compaction.SelectiveThreshold = def.Compaction.SelectiveThreshold
	}
	if cfg.Compaction.AggressiveThreshold == 0 {
		cfg.Compaction.AggressiveThreshold = def.Compaction.AggressiveThreshold
	}
	if cfg.Compaction.CriticalRelevance == 0 {
		cfg.Compaction.CriticalRelevance = def.Compaction.CriticalRelevance
	}
	if cfg.Compaction.SummarizableFloor == 0 {
		cfg.Compaction.SummarizableFloor = def.Compaction.SummarizableFloor
	}
	if cfg.Compaction.SummaryCompression == 0 {
		cfg.Compaction.SummaryCompression = def.Compaction.SummaryCompression
	}
	if cfg.Compaction.MaxPasses == 0 {
		cfg.Compaction.MaxPasses = def.Compaction.MaxPasses
	}
	if cfg.Compaction.SummarySentences == 0 {
		cfg.Compaction.SummarySentences = def.Compaction.SummarySentences
	}
	if cfg.Compaction.MinSentenceLength == 0 {
		cfg.Compaction.MinSentenceLength = def.Compaction.MinSentenceLength
	}
	if cfg.Compaction.Scoring.SweetSpotMin == 0 {
		cfg.Compaction.Scoring.SweetSpotMin = def.Compaction.Scoring.SweetSpotMin
	}
	if cfg.Compaction.Scoring.SweetSpotMax == 0 {
		cfg.Compaction.Scoring.SweetSpotMax = def.Compaction.Scoring.SweetSpotMax
	}
	if cfg.Compaction.Scoring.LengthWeight == 0 {
		cfg.Compaction.Scoring.LengthWeight = def.Compaction.Scoring.LengthWeight
	}
	if cfg.Compaction.Scoring.KeywordWeight == 0 {
		cfg.Compaction.Scoring.KeywordWeight = def.Compaction.Scoring.KeywordWeight
	}
	if cfg.Compaction.Scoring.TechnicalWeight == 0 {
		cfg.Compaction.Scoring.TechnicalWeight = def.Compaction.Scoring.TechnicalWeight
	}
}

// validateConfigFile checks permissions and size on the opened file's
// info, avoiding a TOCTOU race between check and read.
func validateConfigFile(info os.FileInfo) error {
	// Permission bits mean nothing on Windows.
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
