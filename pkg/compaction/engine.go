package compaction

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

const tracerName = "github.com/fyrsmithlabs/rotguard/pkg/compaction"
const meterName = "compaction"

// autoPreserveRecent is the verbatim tail AutoCompact always keeps.
const autoPreserveRecent = 10

// summaryRelevance places generated summaries at the keep boundary, so a
// later escalation pass may re-summarize them but never silently drops
// them with the low-relevance tail.
const summaryRelevance = 0.5

// Engine produces compaction plans and applies them against the monitor's
// chunk collection.
type Engine struct {
	cfg        Config
	monitor    *health.Monitor
	summarizer *Summarizer

	tracer trace.Tracer
	meter  metric.Meter

	compactionCounter  metric.Int64Counter
	compactionDuration metric.Float64Histogram
	tokensReclaimed    metric.Int64Counter
	chunksRemoved      metric.Int64Counter
	escalationCounter  metric.Int64Counter
}

// NewEngine creates an engine bound to monitor.
func NewEngine(cfg Config, monitor *health.Monitor) (*Engine, error) {
	if monitor == nil {
		return nil, ErrNilMonitor
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		monitor:    monitor,
		summarizer: NewSummarizer(cfg),
		tracer:     otel.Tracer(tracerName),
		meter:      otel.Meter(meterName),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return e, nil
}

// SuggestCompaction partitions the current chunks into critical,
// summarizable, and removable buckets and projects the savings of applying
// them. It never mutates state.
func (e *Engine) SuggestCompaction(ctx context.Context) Suggestion {
	_, span := e.tracer.Start(ctx, "compaction.suggest")
	defer span.End()

	var s Suggestion
	summarizableTokens := 0
	for _, c := range e.monitor.Chunks() {
		switch {
		case c.Critical || c.RelevanceScore >= e.cfg.CriticalRelevance:
			s.Critical = append(s.Critical, c)
		case c.RelevanceScore >= e.cfg.SummarizableFloor:
			s.Summarizable = append(s.Summarizable, c)
			summarizableTokens += c.Tokens
		default:
			s.Removable = append(s.Removable, c)
			s.TokensSaved += c.Tokens
		}
	}
	s.TokensSaved += int(float64(summarizableTokens) * e.cfg.SummaryCompression)
	s.NewUtilization = e.utilization(e.monitor.CurrentTokens() - s.TokensSaved)

	span.SetAttributes(
		attribute.Int("critical_chunks", len(s.Critical)),
		attribute.Int("summarizable_chunks", len(s.Summarizable)),
		attribute.Int("removable_chunks", len(s.Removable)),
		attribute.Int("tokens_saved", s.TokensSaved),
		attribute.Float64("new_utilization", s.NewUtilization),
	)
	return s
}

// Compact applies the given options, rewriting the monitor's collection.
// When TargetUtilization is positive and not reached, the engine escalates
// through the strategy order, one extra pass per level, bounded by
// MaxPasses. The result reports the final strategy used.
func (e *Engine) Compact(ctx context.Context, opts Options) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "compaction.compact",
		trace.WithAttributes(
			attribute.String("strategy", string(opts.Strategy)),
			attribute.Int("preserve_recent", opts.PreserveRecent),
			attribute.Float64("target_utilization", opts.TargetUtilization),
		),
	)
	defer span.End()

	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	res := Result{
		Strategy:     opts.Strategy,
		TokensBefore: e.monitor.CurrentTokens(),
		ChunksBefore: e.monitor.ChunkCount(),
	}

	strategy := opts.Strategy
	passes := 0
	for {
		pass := e.compactOnce(opts, strategy)
		passes++

		res.Strategy = strategy
		res.Kept = pass.kept
		res.Summarized += pass.summarized
		res.Removed += pass.removed
		res.Summaries = append(res.Summaries, pass.summaries...)
		res.TokensAfter = e.monitor.CurrentTokens()
		res.UtilizationAfter = e.utilization(res.TokensAfter)

		if opts.TargetUtilization <= 0 || res.UtilizationAfter <= opts.TargetUtilization {
			break
		}
		next, ok := escalate(strategy)
		if !ok || passes >= e.cfg.MaxPasses {
			break
		}
		strategy = next
		res.Escalations++
	}

	res.ChunksAfter = e.monitor.ChunkCount()
	res.Duration = time.Since(start)

	e.recordCompaction(ctx, span, res)
	return res, nil
}

// AutoCompact selects strategy and target from the current health status
// and applies compaction. The caller supplies the drift score so health
// here matches what it last observed.
func (e *Engine) AutoCompact(ctx context.Context, driftScore float64) (Result, error) {
	h := e.monitor.GetHealth(driftScore)

	opts := Options{PreserveRecent: autoPreserveRecent}
	switch h.Health {
	case health.StatusCritical:
		opts.Strategy = StrategyAggressive
		opts.TargetUtilization = 40
	case health.StatusWarning:
		opts.Strategy = StrategySelective
		opts.TargetUtilization = 50
	default:
		opts.Strategy = StrategySummarize
		opts.TargetUtilization = 60
	}
	return e.Compact(ctx, opts)
}

type passResult struct {
	kept       int
	summarized int
	removed    int
	summaries  []string
}

// compactOnce applies one strategy pass and rebuilds the collection
// atomically: kept older chunks, then generated summaries, then the
// preserved recent tail.
func (e *Engine) compactOnce(opts Options, strategy Strategy) passResult {
	chunks := e.monitor.Chunks()
	if len(chunks) == 0 {
		return passResult{}
	}

	recentStart := len(chunks) - opts.PreserveRecent
	if recentStart < 0 {
		recentStart = 0
	}
	older := chunks[:recentStart]
	recent := chunks[recentStart:]

	threshold := e.cfg.thresholdFor(strategy)
	summarizeFloor := threshold * 0.5
	preserveCritical := !opts.DropCritical

	var kept, toSummarize []health.Chunk
	removed := 0
	for _, c := range older {
		switch {
		case preserveCritical && c.Critical:
			kept = append(kept, c)
		case c.RelevanceScore >= threshold:
			if strategy == StrategyAggressive {
				toSummarize = append(toSummarize, c)
			} else {
				kept = append(kept, c)
			}
		case strategy != StrategyAggressive && c.RelevanceScore >= summarizeFloor:
			toSummarize = append(toSummarize, c)
		default:
			removed++
		}
	}

	summaries := e.summarizer.Summarize(toSummarize)

	rebuilt := make([]health.Chunk, 0, len(kept)+len(summaries)+len(recent))
	rebuilt = append(rebuilt, kept...)
	for _, sum := range summaries {
		rebuilt = append(rebuilt, health.NewChunk(
			sum.Text,
			e.monitor.EstimateTokens(sum.Text),
			sum.Type,
			summaryRelevance,
			false,
		))
	}
	rebuilt = append(rebuilt, recent...)
	e.monitor.ReplaceChunks(rebuilt)

	pr := passResult{
		kept:       len(kept) + len(recent),
		summarized: len(toSummarize),
		removed:    removed,
	}
	for _, sum := range summaries {
		pr.summaries = append(pr.summaries, sum.Text)
	}
	return pr
}

// escalate returns the next harder strategy, or false from the last one.
func escalate(s Strategy) (Strategy, bool) {
	for i, candidate := range escalationOrder {
		if candidate == s && i+1 < len(escalationOrder) {
			return escalationOrder[i+1], true
		}
	}
	return s, false
}

// utilization computes the rounded utilization percentage for a token
// count against the monitor's limit.
func (e *Engine) utilization(used int) float64 {
	limit := e.monitor.TokenLimit()
	if limit <= 0 {
		return 0
	}
	pct := float64(used) / float64(limit) * 100
	return math.Round(pct*10) / 10
}

// recordCompaction emits metrics and span attributes for an applied
// compaction.
func (e *Engine) recordCompaction(ctx context.Context, span trace.Span, res Result) {
	strategyAttr := metric.WithAttributes(attribute.String("strategy", string(res.Strategy)))

	e.compactionCounter.Add(ctx, 1, strategyAttr)
	e.compactionDuration.Record(ctx, res.Duration.Seconds(), strategyAttr)
	if saved := res.TokensSaved(); saved > 0 {
		e.tokensReclaimed.Add(ctx, int64(saved), strategyAttr)
	}
	if res.Removed > 0 {
		e.chunksRemoved.Add(ctx, int64(res.Removed), strategyAttr)
	}
	if res.Escalations > 0 {
		e.escalationCounter.Add(ctx, int64(res.Escalations), strategyAttr)
	}

	span.SetAttributes(
		attribute.String("final_strategy", string(res.Strategy)),
		attribute.Int("tokens_before", res.TokensBefore),
		attribute.Int("tokens_after", res.TokensAfter),
		attribute.Int("chunks_kept", res.Kept),
		attribute.Int("chunks_summarized", res.Summarized),
		attribute.Int("chunks_removed", res.Removed),
		attribute.Int("escalations", res.Escalations),
		attribute.Float64("utilization_after", res.UtilizationAfter),
	)
}

// initMetrics initializes OpenTelemetry metrics.
func (e *Engine) initMetrics() error {
	var err error

	e.compactionCounter, err = e.meter.Int64Counter(
		"compaction.operations_total",
		metric.WithDescription("Total number of applied compactions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compaction counter: %w", err)
	}

	e.compactionDuration, err = e.meter.Float64Histogram(
		"compaction.duration_seconds",
		metric.WithDescription("Time spent applying compaction"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create compaction duration histogram: %w", err)
	}

	e.tokensReclaimed, err = e.meter.Int64Counter(
		"compaction.tokens_reclaimed_total",
		metric.WithDescription("Total tokens reclaimed by compaction"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tokens reclaimed counter: %w", err)
	}

	e.chunksRemoved, err = e.meter.Int64Counter(
		"compaction.chunks_removed_total",
		metric.WithDescription("Total chunks removed outright by compaction"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create chunks removed counter: %w", err)
	}

	e.escalationCounter, err = e.meter.Int64Counter(
		"compaction.escalations_total",
		metric.WithDescription("Total strategy escalations taken to reach a target utilization"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create escalation counter: %w", err)
	}

	return nil
}
