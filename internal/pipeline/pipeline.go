// Package pipeline drives the chunked, checkpointed enrichment run over the
// primary incident stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emberwatch/incident-enrich/internal/checkpoint"
	"github.com/emberwatch/incident-enrich/internal/domain"
	"github.com/emberwatch/incident-enrich/internal/match"
	"github.com/emberwatch/incident-enrich/internal/observability"
)

// RecordSource streams primary records in bounded chunks. It returns io.EOF
// (possibly alongside a final short chunk) once the stream is exhausted.
type RecordSource interface {
	ReadChunk(ctx context.Context, n int) ([]domain.Incident, error)
}

// Sink writes the consolidated output at the end of a run.
type Sink interface {
	WriteAll(records []domain.EnrichedIncident) error
}

// Publisher forwards enriched records to a downstream stream. Optional.
type Publisher interface {
	PublishBatch(ctx context.Context, records []domain.EnrichedIncident) error
}

// ImpactAssessor computes the economic-impact scores for a location.
// Optional; failures degrade gracefully to an un-assessed record.
type ImpactAssessor interface {
	Assess(ctx context.Context, geo domain.Geo) (domain.ImpactResult, error)
}

// Options bundles the run parameters.
type Options struct {
	ChunkSize       int
	CheckpointEvery int
	Workers         int
	Resume          bool
}

// Pipeline orchestrates load-match-merge-checkpoint across the primary
// stream.
type Pipeline struct {
	source    RecordSource
	pools     []*match.Pool
	scorer    match.Scorer
	sink      Sink
	store     *checkpoint.Store
	assessor  ImpactAssessor
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	ready     atomic.Bool
}

// New creates a Pipeline. assessor and publisher may be nil.
func New(
	source RecordSource,
	pools []*match.Pool,
	scorer match.Scorer,
	sink Sink,
	store *checkpoint.Store,
	assessor ImpactAssessor,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{
		source:    source,
		pools:     pools,
		scorer:    scorer,
		sink:      sink,
		store:     store,
		assessor:  assessor,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// chunk, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any chunks yet")
	}
	return nil
}

// Run executes the full enrichment pass. Cancellation flushes a checkpoint
// and returns nil: an interrupted run is a resumable outcome, not a failure.
func (p *Pipeline) Run(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	state, startChunk, err := p.restore(ctx)
	if err != nil {
		return err
	}

	p.logger.Info("pipeline started",
		"chunk_size", p.opts.ChunkSize,
		"workers", p.opts.Workers,
		"start_chunk", startChunk,
		"pools", len(p.pools),
	)

	chunkIndex := startChunk
	for {
		chunk, readErr := p.source.ReadChunk(ctx, p.opts.ChunkSize)
		eof := errors.Is(readErr, io.EOF)
		if readErr != nil && !eof {
			if ctx.Err() != nil {
				return p.interrupt(state, chunkIndex-1)
			}
			return fmt.Errorf("read chunk %d: %w", chunkIndex, readErr)
		}

		if len(chunk) > 0 {
			start := time.Now()
			p.processChunk(ctx, state, chunk)
			p.metrics.ChunkSize.Observe(float64(len(chunk)))
			p.metrics.ChunkDuration.Observe(time.Since(start).Seconds())
			p.ready.Store(true)

			processed, enriched, _ := state.Counters()
			p.logger.Info("chunk processed",
				"chunk", chunkIndex,
				"records", len(chunk),
				"processed_total", processed,
				"enriched_total", enriched,
			)

			if (chunkIndex+1)%p.opts.CheckpointEvery == 0 {
				if err := p.saveCheckpoint(state, chunkIndex); err != nil {
					return err
				}
			}
		}

		if eof {
			break
		}
		if ctx.Err() != nil {
			return p.interrupt(state, chunkIndex)
		}
		chunkIndex++
	}

	return p.finalize(ctx, state)
}

// restore loads the last committed snapshot when resuming and fast-forwards
// the source past the chunks it covers.
func (p *Pipeline) restore(ctx context.Context) (*RunState, int, error) {
	if !p.opts.Resume {
		return NewRunState(), 0, nil
	}

	snap, ok, err := p.store.Latest()
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		p.logger.Info("resume requested but no checkpoint found, starting fresh")
		return NewRunState(), 0, nil
	}

	for i := 0; i <= snap.ChunkIndex; i++ {
		if _, err := p.source.ReadChunk(ctx, p.opts.ChunkSize); err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("fast-forward past chunk %d: %w", i, err)
		}
	}

	p.logger.Info("resuming from checkpoint",
		"chunk_index", snap.ChunkIndex,
		"processed", snap.Processed,
		"saved_at", snap.SavedAt,
	)
	return Restore(snap), snap.ChunkIndex + 1, nil
}

// processChunk scores a chunk across a bounded worker pool and folds the
// results into state in input order, keeping the output deterministic
// regardless of scheduling.
func (p *Pipeline) processChunk(ctx context.Context, state *RunState, chunk []domain.Incident) {
	type outcome struct {
		record   domain.EnrichedIncident
		rejected []string
	}

	results := make([]outcome, len(chunk))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				rec, rejected := p.processRecord(ctx, chunk[i])
				results[i] = outcome{record: rec, rejected: rejected}
			}
		}()
	}
	for i := range chunk {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		state.Add(r.record, r.rejected)
		p.metrics.RecordsProcessed.Inc()
		if r.record.Enriched() {
			p.metrics.RecordsEnriched.Inc()
		}
		for _, reason := range r.rejected {
			p.metrics.RecordsRejected.WithLabelValues(reason).Inc()
		}
	}
}

// processRecord matches one incident against every pool and merges the
// winners. Returned flags describe candidates that were considered and
// rejected; an unmatched record is a normal outcome.
func (p *Pipeline) processRecord(ctx context.Context, inc domain.Incident) (domain.EnrichedIncident, []string) {
	var (
		matches  []domain.Match
		rejected []string
	)

	if !inc.Geo.Valid() {
		rejected = append(rejected, domain.FlagMissingCoordinates)
	} else {
		for _, pool := range p.pools {
			best, ref, flags, ok := p.scorer.BestMatch(inc, pool)
			rejected = append(rejected, flags...)
			if !ok {
				continue
			}
			best.Enrichment = p.enrichmentFor(pool.Source(), best, ref)
			matches = append(matches, best)
			p.metrics.MatchesFound.WithLabelValues(pool.Source()).Inc()
			p.metrics.MatchConfidence.Observe(best.Confidence)
		}
	}

	enriched := domain.MergeMatches(inc, matches)

	if p.assessor != nil && inc.Geo.Valid() {
		result, err := p.assessor.Assess(ctx, inc.Geo)
		if err != nil {
			p.logger.Warn("impact assessment failed, continuing without it",
				"record_id", inc.ID, "error", err)
		} else {
			domain.ApplyImpact(&enriched, result)
		}
	}

	return enriched, rejected
}

func (p *Pipeline) enrichmentFor(source string, m domain.Match, ref domain.ReferenceRecord) map[string]any {
	switch source {
	case domain.SourceEvacuationZones:
		return domain.EvacuationEnrichment(m, ref)
	case domain.SourcePulsepoint:
		return domain.PulsepointEnrichment(m, ref)
	default:
		return nil
	}
}

func (p *Pipeline) saveCheckpoint(state *RunState, chunkIndex int) error {
	if err := p.store.Save(state.Snapshot(chunkIndex)); err != nil {
		return fmt.Errorf("save checkpoint after chunk %d: %w", chunkIndex, err)
	}
	p.metrics.CheckpointsSaved.Inc()
	p.logger.Info("checkpoint saved", "chunk", chunkIndex)
	return nil
}

// interrupt flushes a final checkpoint so the run can resume, then reports a
// clean stop.
func (p *Pipeline) interrupt(state *RunState, lastChunk int) error {
	if lastChunk >= 0 {
		if err := p.saveCheckpoint(state, lastChunk); err != nil {
			p.logger.Error("checkpoint flush on shutdown failed", "error", err)
		}
	}
	processed, enriched, _ := state.Counters()
	p.logger.Info("pipeline interrupted",
		"processed", processed, "enriched", enriched, "last_chunk", lastChunk)
	return nil
}

// finalize writes the consolidated output, publishes it downstream, and
// retires the checkpoint. The summary is logged even when nothing matched.
func (p *Pipeline) finalize(ctx context.Context, state *RunState) error {
	records := state.Records()

	if err := p.sink.WriteAll(records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if p.publisher != nil && len(records) > 0 {
		if err := p.publisher.PublishBatch(ctx, records); err != nil {
			return fmt.Errorf("publish enriched records: %w", err)
		}
	}

	if err := p.store.Purge(); err != nil {
		p.logger.Warn("checkpoint purge failed", "error", err)
	}

	processed, enriched, rejected := state.Counters()
	p.logger.Info("pipeline complete",
		"processed", processed,
		"enriched", enriched,
		"rejected", rejected,
	)
	return nil
}
