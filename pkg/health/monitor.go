package health

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fyrsmithlabs/rotguard/pkg/tokens"
)

// Monitor owns the ordered chunk collection and the token budget.
// All methods are safe for concurrent use; the multi-step rebuild done by
// compaction goes through ReplaceChunks so it stays atomic with respect to
// concurrent AddChunk calls.
type Monitor struct {
	mu sync.RWMutex

	cfg       Config
	estimator tokens.Estimator

	chunks        []Chunk
	tokenLimit    int
	currentTokens int

	history []Snapshot
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithEstimator overrides the default heuristic token estimator.
func WithEstimator(e tokens.Estimator) Option {
	return func(m *Monitor) {
		if e != nil {
			m.estimator = e
		}
	}
}

// NewMonitor creates a monitor from config.
func NewMonitor(cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid health config: %w", err)
	}

	m := &Monitor{
		cfg:        cfg,
		estimator:  tokens.NewDefaultEstimator(),
		tokenLimit: cfg.TokenLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// SetTokenLimit configures the context budget. A non-positive limit is a
// caller error and is rejected, never clamped.
func (m *Monitor) SetTokenLimit(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTokenLimit, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenLimit = n
	return nil
}

// SetCurrentTokens overrides the consumed-token count, for hosts that track
// real context usage outside the chunk collection.
func (m *Monitor) SetCurrentTokens(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTokenCount, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTokens = n
	return nil
}

// AddChunk appends a chunk to the end of the collection and counts its
// tokens against the budget. The monitor never caps the collection; capping
// is a compaction concern.
func (m *Monitor) AddChunk(chunk Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunk)
	m.currentTokens += chunk.Tokens
}

// PromoteCritical marks the chunk with the given ID as critical. This is
// the only in-place mutation a chunk supports.
func (m *Monitor) PromoteCritical(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.chunks {
		if m.chunks[i].ID == id {
			m.chunks[i].Critical = true
			return true
		}
	}
	return false
}

// Chunks returns a copy of the current collection in insertion order.
func (m *Monitor) Chunks() []Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// ChunkCount returns the number of chunks in scope.
func (m *Monitor) ChunkCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// ClearChunks empties the collection and resets the consumed-token count.
func (m *Monitor) ClearChunks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.currentTokens = 0
}

// ReplaceChunks atomically swaps the collection for the given chunks,
// recounting consumed tokens. Compaction uses this for its clear-and-readd
// rebuild so readers never observe a partially rebuilt collection.
func (m *Monitor) ReplaceChunks(chunks []Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make([]Chunk, len(chunks))
	copy(m.chunks, chunks)
	total := 0
	for _, c := range chunks {
		total += c.Tokens
	}
	m.currentTokens = total
}

// CurrentTokens returns the consumed-token count.
func (m *Monitor) CurrentTokens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentTokens
}

// TokenLimit returns the configured budget.
func (m *Monitor) TokenLimit() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokenLimit
}

// EstimateTokens delegates to the configured token estimator.
func (m *Monitor) EstimateTokens(text string) int {
	return m.estimator.Estimate(text)
}

// GetHealth classifies current health from budget utilization and the
// supplied drift score. It never errors for normal inputs.
func (m *Monitor) GetHealth(driftScore float64) ContextHealth {
	m.mu.RLock()
	used := m.currentTokens
	limit := m.tokenLimit
	m.mu.RUnlock()

	utilization := 0.0
	if limit > 0 {
		utilization = roundTenth(float64(used) / float64(limit) * 100)
	}

	status := StatusGood
	switch {
	case utilization >= m.cfg.CriticalUtilization || driftScore >= m.cfg.CriticalDrift:
		status = StatusCritical
	case utilization >= m.cfg.WarningUtilization || driftScore >= m.cfg.WarningDrift:
		status = StatusWarning
	}

	return ContextHealth{
		TokensUsed:         used,
		TokensLimit:        limit,
		UtilizationPercent: utilization,
		Health:             status,
		DriftScore:         driftScore,
		DriftDetected:      driftScore >= m.cfg.WarningDrift,
		CompactionNeeded:   status != StatusGood,
		Suggestions:        m.suggestions(utilization, driftScore),
	}
}

// suggestions renders next actions for each tripped threshold, most severe
// first.
func (m *Monitor) suggestions(utilization, driftScore float64) []string {
	var out []string
	switch {
	case utilization >= m.cfg.CriticalUtilization:
		out = append(out, "Trigger compaction immediately: context is nearly full")
	case utilization >= m.cfg.WarningUtilization:
		out = append(out, "Consider compacting older low-relevance context")
	}
	switch {
	case driftScore >= m.cfg.CriticalDrift:
		out = append(out, "Severe drift: re-anchor on the original requirements")
	case driftScore >= m.cfg.WarningDrift:
		out = append(out, "Review drift reminders and refocus on stated requirements")
	}
	return out
}

// RecordSnapshot appends a health observation to the rolling history ring.
// The caller decides when an observation is worth recording; measurement
// itself stays side-effect free.
func (m *Monitor) RecordSnapshot(s Snapshot) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, s)
	if over := len(m.history) - m.cfg.HistorySize; over > 0 {
		m.history = m.history[over:]
	}
}

// GetHealthHistory returns the most recent limit snapshots in chronological
// order. A non-positive limit returns the full retained history.
func (m *Monitor) GetHealthHistory(limit int) []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Snapshot, n)
	copy(out, m.history[len(m.history)-n:])
	return out
}

// roundTenth rounds to one decimal place.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
