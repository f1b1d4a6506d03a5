package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer runs the analysis a raw request describes. An error means the
// message could not be turned into a result at all.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.AnalysisResult, error)
}

// BatchLoader writes multiple analysis results to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.AnalysisResult) error
}

// MultiLoader fans a batch out to every loader in order, stopping at the first error.
type MultiLoader []BatchLoader

// LoadBatch implements BatchLoader.
func (m MultiLoader) LoadBatch(ctx context.Context, results []domain.AnalysisResult) error {
	for _, l := range m {
		if err := l.LoadBatch(ctx, results); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline orchestrates the extract-analyse-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has published at least one result,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any results yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled. A batch whose
// results cannot be loaded is retried in place: a consumer-group reader only
// moves forward, so fetching further would commit past the failed requests.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	bo := newBackoff()
	for ctx.Err() == nil {
		rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("extract batch failed", "error", err)
			bo.wait(ctx)
			continue
		}
		bo.reset()
		if len(rawBatch) > 0 {
			p.handleBatch(ctx, rawBatch, bo)
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// handleBatch analyses every request, loads the results and then commits the
// whole batch in order. Requests that do not decode are skipped but still
// committed with it. Nothing is committed when ctx ends first, so those
// requests are redelivered after restart.
func (p *Pipeline) handleBatch(ctx context.Context, rawBatch []domain.RawEvent, bo *backoff) {
	start := time.Now()
	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))

	results := make([]domain.AnalysisResult, 0, len(rawBatch))
	for _, raw := range rawBatch {
		result, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		results = append(results, result)
	}

	if len(results) > 0 {
		if !p.load(ctx, results, bo) {
			return
		}
		p.metrics.MessagesProduced.Add(float64(len(results)))
		p.ready.Store(true)
	}
	// A committed offset covers every earlier offset in the partition.
	for _, raw := range rawBatch {
		p.commitOffset(ctx, raw)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
}

// load retries LoadBatch with backoff until it succeeds or ctx ends. Loaders
// must tolerate a repeated batch; results are keyed by analysis ID.
func (p *Pipeline) load(ctx context.Context, results []domain.AnalysisResult, bo *backoff) bool {
	for attempt := 1; ; attempt++ {
		err := p.loader.LoadBatch(ctx, results)
		if err == nil {
			bo.reset()
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed, retrying",
			"error", err, "batch_size", len(results), "attempt", attempt)
		if !bo.wait(ctx) {
			return false
		}
	}
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// Transport failures back off from 200ms, doubling up to 5s.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

type backoff struct {
	next time.Duration
}

func newBackoff() *backoff { return &backoff{next: initialBackoff} }

func (b *backoff) reset() { b.next = initialBackoff }

// wait sleeps for the current delay and doubles it. It returns false if ctx
// ended first.
func (b *backoff) wait(ctx context.Context) bool {
	if !retry.SleepWithContext(ctx, b.next) {
		return false
	}
	b.next = retry.NextBackoff(b.next, maxBackoff)
	return true
}
