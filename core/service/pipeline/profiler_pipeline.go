// Package pipeline orchestrates one batch run: parallel per-message
// extraction fanned out over a worker pool, a synchronization barrier, then a
// single sequential consolidation pass. Results land in an index-ordered
// slice so worker completion order can never change the output.
package pipeline

import (
	"context"
	"runtime"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
	"mailprofiler/core/service/consolidation"
	"mailprofiler/core/service/extraction"
	"mailprofiler/pkg/metrics"
)

// Stage names in the latency registry.
const (
	StageExtract     = "extract"
	StageConsolidate = "consolidate"
)

// =============================================================================
// Configuration
// =============================================================================

// Config holds the batch execution knobs.
type Config struct {
	Workers        int // extraction parallelism
	BatchSize      int // jobs accumulated per worker before processing
	WorkerChanSize int // per-worker channel buffer
}

// DefaultConfig sizes the pool to the machine.
func DefaultConfig() Config {
	return Config{
		Workers:        runtime.NumCPU(),
		BatchSize:      10,
		WorkerChanSize: 64,
	}
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline runs batches of raw messages through extraction and consolidation.
type Pipeline struct {
	cfg          Config
	extractor    *extraction.Extractor
	consolidator *consolidation.Consolidator
	latency      *metrics.StageRegistry
	log          zerolog.Logger
}

// New wires a pipeline from its two stages.
func New(cfg Config, extractor *extraction.Extractor, consolidator *consolidation.Consolidator, latency *metrics.StageRegistry, log zerolog.Logger) *Pipeline {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.WorkerChanSize < 1 {
		cfg.WorkerChanSize = 64
	}
	if latency == nil {
		latency = metrics.NewStageRegistry(1000)
	}
	return &Pipeline{
		cfg:          cfg,
		extractor:    extractor,
		consolidator: consolidator,
		latency:      latency,
		log:          log.With().Str("component", "pipeline").Logger(),
	}
}

// RunStats summarizes one batch run.
type RunStats struct {
	Messages          int            `json:"messages"`
	Profiles          int            `json:"profiles"`
	FailedMessages    int            `json:"failed_messages"`
	StrategyFailures  int            `json:"strategy_failures"`
	AggregationErrors int            `json:"aggregation_errors"`
	Workers           int            `json:"workers"`
	Elapsed           time.Duration  `json:"elapsed"`
	ExtractLatency    map[string]any `json:"extract_latency,omitempty"`
}

// RunResult is the batch output: the consolidated profile table plus run
// accounting.
type RunResult struct {
	RunID    string                       `json:"run_id"`
	Profiles []domain.ConsolidatedProfile `json:"profiles"`
	Stats    RunStats                     `json:"stats"`
}

type extractJob struct {
	index int
	msg   *domain.RawMessage
}

// extractWorker implements pool.Worker. Each job writes its own slice slot,
// so workers never contend.
type extractWorker struct {
	p       *Pipeline
	results []domain.ExtractionResult
}

// Do implements pool.Worker.
func (w *extractWorker) Do(ctx context.Context, j extractJob) error {
	start := time.Now()
	w.results[j.index] = w.p.extractor.Extract(ctx, j.msg)
	w.p.latency.Record(StageExtract, time.Since(start))
	return nil
}

// Run processes one batch. Identical input always yields identical output
// regardless of worker count. Cancellation aborts the run and returns the
// context error; per-message failures never do.
func (p *Pipeline) Run(ctx context.Context, messages []*domain.RawMessage) (*RunResult, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := p.log.With().Str("run_id", runID).Logger()
	log.Info().
		Int("messages", len(messages)).
		Int("workers", p.cfg.Workers).
		Msg("batch run started")

	results := make([]domain.ExtractionResult, len(messages))
	if len(messages) > 0 {
		worker := &extractWorker{p: p, results: results}
		group := pool.New[extractJob](p.cfg.Workers, worker).
			WithBatchSize(p.cfg.BatchSize).
			WithWorkerChanSize(p.cfg.WorkerChanSize).
			WithContinueOnError()
		if err := group.Go(ctx); err != nil {
			return nil, err
		}
		for i, msg := range messages {
			if ctx.Err() != nil {
				break
			}
			group.Submit(extractJob{index: i, msg: msg})
		}
		// Close is the stage barrier: consolidation must never see a
		// partially filled batch.
		if err := group.Close(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	consolidateStart := time.Now()
	profiles := p.consolidator.Consolidate(results)
	p.latency.Record(StageConsolidate, time.Since(consolidateStart))

	stats := RunStats{
		Messages: len(messages),
		Profiles: len(profiles),
		Workers:  p.cfg.Workers,
		Elapsed:  time.Since(start),
	}
	for _, r := range results {
		if r.Failed {
			stats.FailedMessages++
		}
		stats.StrategyFailures += r.StrategyFailures
	}
	for _, prof := range profiles {
		stats.AggregationErrors += len(prof.Errors)
	}
	stats.ExtractLatency = p.latency.Stats(StageExtract).ToMap()

	log.Info().
		Int("profiles", stats.Profiles).
		Int("failed_messages", stats.FailedMessages).
		Int("strategy_failures", stats.StrategyFailures).
		Int("aggregation_errors", stats.AggregationErrors).
		Dur("elapsed", stats.Elapsed).
		Msg("batch run finished")

	return &RunResult{RunID: runID, Profiles: profiles, Stats: stats}, nil
}

// Latency exposes the stage registry for the results API.
func (p *Pipeline) Latency() *metrics.StageRegistry {
	return p.latency
}
