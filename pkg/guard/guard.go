package guard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/rotguard/internal/logging"
	"github.com/fyrsmithlabs/rotguard/pkg/compaction"
	"github.com/fyrsmithlabs/rotguard/pkg/critical"
	"github.com/fyrsmithlabs/rotguard/pkg/drift"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
	"github.com/fyrsmithlabs/rotguard/pkg/storage"
)

// defaultChunkRelevance scores chunks whose caller gave no relevance.
const defaultChunkRelevance = 0.5

// autoPromoteSource tags pinned items extracted from user messages.
const autoPromoteSource = "user message"

// Session ties the four engines together for one conversation: health
// monitor, drift detector, critical store, and compaction engine. All
// state is per-session; independent sessions never share anything.
//
// Ingestion and compaction serialize on the session's write lock while
// evaluations run concurrently under the read lock. After Close,
// mutating and evaluating operations fail with ErrSessionClosed; plain
// accessors keep serving the final in-memory state.
type Session struct {
	id      string
	project string

	mu     sync.RWMutex
	closed bool

	monitor   *health.Monitor
	detector  *drift.Detector
	pinned    *critical.Store
	engine    *compaction.Engine
	store     storage.Store
	ownsStore bool

	messages int

	events  *Logger
	tracer  trace.Tracer
	metrics *Metrics
	attrs   []attribute.KeyValue
}

// Open builds a session for project from the default configuration,
// adjusted by options. The critical store hydrates from storage before
// the session is returned; hydration failure degrades to a warning and
// an empty store.
func Open(project string, opts ...Option) (*Session, error) {
	if strings.TrimSpace(project) == "" {
		return nil, ErrEmptyProject
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := DefaultConfig()
	if o.cfg != nil {
		cfg = *o.cfg
		applyDefaults(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		built, err := newDefaultLogger(cfg.Logging)
		if err != nil {
			return nil, err
		}
		logger = built
	}

	st := o.store
	backend := "external"
	ownsStore := false
	if st == nil {
		backend = cfg.Storage.Backend
		switch cfg.Storage.Backend {
		case BackendSQLite:
			sq, err := storage.OpenSQLite(cfg.Storage.Path)
			if err != nil {
				return nil, fmt.Errorf("opening sqlite store: %w", err)
			}
			st = sq
		default:
			st = storage.NewMemoryStore()
		}
		ownsStore = true
	}
	fail := func(err error) (*Session, error) {
		if ownsStore {
			_ = st.Close()
		}
		return nil, err
	}

	pinned := critical.NewStore(
		critical.WithPersister(st),
		critical.WithLogger(logger),
	)

	detector, err := drift.NewDetector(cfg.Drift, drift.WithCriticalSource(pinned.RecentContent))
	if err != nil {
		return fail(fmt.Errorf("building drift detector: %w", err))
	}

	var monitorOpts []health.Option
	if o.estimator != nil {
		monitorOpts = append(monitorOpts, health.WithEstimator(o.estimator))
	}
	monitor, err := health.NewMonitor(cfg.Health, monitorOpts...)
	if err != nil {
		return fail(fmt.Errorf("building health monitor: %w", err))
	}

	engine, err := compaction.NewEngine(cfg.Compaction, monitor)
	if err != nil {
		return fail(fmt.Errorf("building compaction engine: %w", err))
	}

	metrics, merr := NewMetrics(nil)
	if merr != nil {
		logger.Warn("guard metrics disabled", zap.Error(merr))
	}

	s := &Session{
		id:        "sess_" + uuid.New().String()[:8],
		project:   project,
		monitor:   monitor,
		detector:  detector,
		pinned:    pinned,
		engine:    engine,
		store:     st,
		ownsStore: ownsStore,
		events:    NewLogger(logger),
		tracer:    Tracer(),
		metrics:   metrics,
	}
	s.attrs = sessionAttributes(s.id, project)

	ctx := context.Background()
	if err := pinned.Load(ctx); err != nil {
		s.events.PersistenceDegraded(ctx, s.id, project, "load critical items", err)
	}

	s.events.SessionOpened(ctx, s.id, project, backend, pinned.Len())
	s.metrics.RecordSessionOpened(ctx, backend)
	return s, nil
}

// newDefaultLogger builds the session logger from Config.Logging.
func newDefaultLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	lcfg := logging.NewDefaultConfig()
	lcfg.Level = level
	lcfg.Format = cfg.Format
	l, err := logging.NewLogger(lcfg, nil)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l.Underlying(), nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Project returns the project the session was opened for.
func (s *Session) Project() string {
	return s.project
}

// AddMessage records one conversation turn. The drift detector sees it
// and it joins the chunk collection as a message chunk. Critical
// phrasing in user messages is pinned automatically, and a user message
// containing any is itself a critical chunk.
func (s *Session) AddMessage(ctx context.Context, role drift.Role, content string) error {
	if role != drift.RoleUser && role != drift.RoleAssistant {
		return fmt.Errorf("%w, got %q", ErrInvalidRole, role)
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	ctx, span := s.startSpan(ctx, "guard.add_message")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.detector.AddMessage(role, content)
	s.messages++

	promoted := 0
	if role == drift.RoleUser {
		for _, cand := range s.pinned.ExtractFromText(content) {
			_, err := s.pinned.Mark(ctx, cand.Content,
				critical.WithType(cand.Type),
				critical.WithSource(autoPromoteSource),
			)
			if err == nil {
				promoted++
			}
		}
	}

	chunk := health.NewChunk(content, s.monitor.EstimateTokens(content),
		health.ChunkTypeMessage, defaultChunkRelevance, promoted > 0)
	s.monitor.AddChunk(chunk)

	span.SetAttributes(
		attribute.String("role", string(role)),
		attribute.Int("tokens", chunk.Tokens),
		attribute.Int("promoted", promoted),
	)
	s.metrics.RecordMessage(ctx, string(role))
	s.events.MessageRecorded(ctx, s.id, s.project, string(role), chunk.Tokens, promoted)
	return nil
}

// AddContextChunk ingests a block of context outside the conversation
// flow, such as a file read or tool output. Non-positive chunkTokens
// are estimated from content.
func (s *Session) AddContextChunk(ctx context.Context, content string, chunkTokens int, typ health.ChunkType, opts ...ChunkOption) (health.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return health.Chunk{}, ErrEmptyContent
	}
	if !typ.IsValid() {
		return health.Chunk{}, fmt.Errorf("%w: %q", ErrInvalidChunkType, typ)
	}
	co := chunkOptions{relevance: defaultChunkRelevance}
	for _, opt := range opts {
		opt(&co)
	}
	if co.relevance < 0 || co.relevance > 1 {
		return health.Chunk{}, fmt.Errorf("%w, got %v", ErrInvalidRelevance, co.relevance)
	}

	ctx, span := s.startSpan(ctx, "guard.add_chunk")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return health.Chunk{}, ErrSessionClosed
	}

	if chunkTokens <= 0 {
		chunkTokens = s.monitor.EstimateTokens(content)
	}
	chunk := health.NewChunk(content, chunkTokens, typ, co.relevance, co.critical)
	s.monitor.AddChunk(chunk)

	span.SetAttributes(
		attribute.String("type", string(typ)),
		attribute.Int("tokens", chunk.Tokens),
	)
	s.metrics.RecordChunk(ctx, string(typ))
	s.events.ChunkIngested(ctx, s.id, s.project, chunk)
	return chunk, nil
}

// DetectDrift recomputes the drift assessment over the rolling history.
func (s *Session) DetectDrift(ctx context.Context) (drift.Result, error) {
	ctx, span := s.startSpan(ctx, "guard.detect_drift")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return drift.Result{}, ErrSessionClosed
	}

	res := s.detector.DetectDrift()
	span.SetAttributes(
		attribute.Float64("drift_score", res.DriftScore),
		attribute.Bool("drift_detected", res.DriftDetected),
	)
	s.metrics.RecordDrift(ctx, res.DriftScore, res.DriftDetected)
	if res.DriftDetected {
		s.events.DriftDetected(ctx, s.id, s.project, res.DriftScore,
			len(res.MissingRequirements), len(res.Contradictions))
	}
	return res, nil
}

// GetContextHealth evaluates utilization and health against the live
// drift score.
func (s *Session) GetContextHealth(ctx context.Context) (health.ContextHealth, error) {
	ctx, span := s.startSpan(ctx, "guard.health")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return health.ContextHealth{}, ErrSessionClosed
	}

	_, h := s.assess(ctx)
	span.SetAttributes(
		attribute.String("status", string(h.Health)),
		attribute.Float64("utilization_percent", h.UtilizationPercent),
	)
	return h, nil
}

// MarkCritical pins content permanently. Content matching an existing
// chunk verbatim promotes that chunk to critical as well.
func (s *Session) MarkCritical(ctx context.Context, content string, opts ...critical.MarkOption) (critical.Item, error) {
	ctx, span := s.startSpan(ctx, "guard.mark_critical")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return critical.Item{}, ErrSessionClosed
	}

	item, err := s.pinned.Mark(ctx, content, opts...)
	if err != nil {
		return critical.Item{}, err
	}

	for _, chunk := range s.monitor.Chunks() {
		if chunk.Content == content && !chunk.Critical {
			s.monitor.PromoteCritical(chunk.ID)
		}
	}

	span.SetAttributes(
		attribute.String("item_id", item.ID),
		attribute.String("item_type", string(item.Type)),
	)
	s.events.CriticalPinned(ctx, s.id, s.project, item)
	return item, nil
}

// GetCriticalContext lists pinned items newest first, optionally
// filtered by type. An empty filter returns everything.
func (s *Session) GetCriticalContext(filter critical.Type) []critical.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinned.List(filter)
}

// GetAllCriticalContent renders every pinned item into a grouped block
// suitable for direct inclusion in a prompt.
func (s *Session) GetAllCriticalContent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinned.FormatContext()
}

// RemoveCritical unpins an item. It reports whether the id was present.
func (s *Session) RemoveCritical(ctx context.Context, id string) (bool, error) {
	ctx, span := s.startSpan(ctx, "guard.remove_critical")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrSessionClosed
	}

	removed := s.pinned.Remove(ctx, id)
	if removed {
		s.events.CriticalRemoved(ctx, s.id, s.project, id)
	}
	return removed, nil
}

// SuggestCompaction previews what compaction would reclaim without
// touching the chunk collection.
func (s *Session) SuggestCompaction(ctx context.Context) (compaction.Suggestion, error) {
	ctx, span := s.startSpan(ctx, "guard.suggest_compaction")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return compaction.Suggestion{}, ErrSessionClosed
	}
	return s.engine.SuggestCompaction(ctx), nil
}

// TriggerCompaction runs one compaction with explicit options and
// records the resulting health snapshot.
func (s *Session) TriggerCompaction(ctx context.Context, opts compaction.Options) (compaction.Result, error) {
	ctx, span := s.startSpan(ctx, "guard.compact")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return compaction.Result{}, ErrSessionClosed
	}

	res, err := s.engine.Compact(ctx, opts)
	if err != nil {
		return compaction.Result{}, err
	}
	s.recordSnapshot(ctx, true)
	s.events.CompactionApplied(ctx, s.id, s.project, false, res)
	return res, nil
}

// AutoCompact evaluates health with the live drift score and applies
// the strategy it calls for. A healthy context compacts gently; a
// critical one compacts aggressively toward a low target utilization.
func (s *Session) AutoCompact(ctx context.Context) (compaction.Result, error) {
	ctx, span := s.startSpan(ctx, "guard.auto_compact")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return compaction.Result{}, ErrSessionClosed
	}

	score := s.detector.DetectDrift().DriftScore
	res, err := s.engine.AutoCompact(ctx, score)
	if err != nil {
		return compaction.Result{}, err
	}
	s.recordSnapshot(ctx, true)
	s.metrics.RecordAutoCompaction(ctx, string(res.Strategy))
	s.events.CompactionApplied(ctx, s.id, s.project, true, res)
	return res, nil
}

// GetHealthHistory returns the most recent snapshots in chronological
// order. A non-positive limit returns the full ring.
func (s *Session) GetHealthHistory(limit int) []health.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.monitor.GetHealthHistory(limit)
}

// SetTokenLimit adjusts the context budget mid-session, for example
// after a model switch.
func (s *Session) SetTokenLimit(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.monitor.SetTokenLimit(n)
}

// SetCurrentTokens overrides the derived token count with a measured
// one, such as a provider-reported usage figure.
func (s *Session) SetCurrentTokens(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.monitor.SetCurrentTokens(n)
}

// GetContextSummaryForAI renders the status block an agent injects at
// the top of its prompt: health, drift warnings, and all pinned
// context. It never fails; a closed session renders an empty string.
func (s *Session) GetContextSummaryForAI(ctx context.Context) string {
	ctx, span := s.startSpan(ctx, "guard.summary")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ""
	}

	res, h := s.assess(ctx)
	return buildSummary(s.project, h, res, s.pinned.FormatContext())
}

// Close flushes a final health snapshot and, when the session owns the
// store, closes it. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	ctx := context.Background()
	s.recordSnapshot(ctx, false)
	s.closed = true

	s.events.SessionClosed(ctx, s.id, s.project, s.messages, s.monitor.ChunkCount())
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			return fmt.Errorf("closing store: %w", err)
		}
	}
	return nil
}

// assess computes the live drift and health view, recording the
// evaluation. Callers hold at least the read lock.
func (s *Session) assess(ctx context.Context) (drift.Result, health.ContextHealth) {
	res := s.detector.DetectDrift()
	h := s.monitor.GetHealth(res.DriftScore)
	s.metrics.RecordHealth(ctx, string(h.Health))
	s.events.HealthEvaluated(ctx, s.id, s.project, h)
	return res, h
}

// recordSnapshot appends the current assessment to the monitor's ring
// and writes it through to storage. Persistence failure degrades to a
// warning. Callers hold the write lock.
func (s *Session) recordSnapshot(ctx context.Context, compacted bool) {
	score := s.detector.DetectDrift().DriftScore
	h := s.monitor.GetHealth(score)
	snap := health.Snapshot{
		Timestamp:           time.Now(),
		Health:              h.Health,
		UtilizationPercent:  h.UtilizationPercent,
		DriftScore:          score,
		CompactionTriggered: compacted,
	}
	s.monitor.RecordSnapshot(snap)
	if err := s.store.AppendHealth(ctx, snap); err != nil {
		s.events.PersistenceDegraded(ctx, s.id, s.project, "append health snapshot", err)
	}
}

func (s *Session) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(s.attrs...))
}
