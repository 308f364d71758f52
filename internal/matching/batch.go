package matching

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/oracle"
)

type pairState int

const (
	statePending pairState = iota
	stateScored
	stateFailed
)

type pair struct {
	profile Profile
	posting Posting
}

type pairOutcome struct {
	state   pairState
	result  MatchResult
	failure PairFailure
}

// MatchBatch scores every profile against one posting and returns the ranked
// results above threshold. Per-pair problems are reported in the batch; the
// error is reserved for configuration problems found before any pair runs.
func (e *Engine) MatchBatch(ctx context.Context, profiles []Profile, posting Posting, threshold float64, mode Mode, weights Weights) (*MatchBatch, error) {
	pairs := make([]pair, 0, len(profiles))
	for _, profile := range profiles {
		pairs = append(pairs, pair{profile: profile, posting: posting})
	}
	return e.run(ctx, pairs, threshold, mode, weights)
}

// MatchPostings scores one profile against every posting. It behaves like MatchBatch.
func (e *Engine) MatchPostings(ctx context.Context, profile Profile, postings []Posting, threshold float64, mode Mode, weights Weights) (*MatchBatch, error) {
	pairs := make([]pair, 0, len(postings))
	for _, posting := range postings {
		pairs = append(pairs, pair{profile: profile, posting: posting})
	}
	return e.run(ctx, pairs, threshold, mode, weights)
}

func (e *Engine) run(ctx context.Context, pairs []pair, threshold float64, mode Mode, weights Weights) (*MatchBatch, error) {
	if math.IsNaN(threshold) {
		return nil, &ConfigurationError{Reason: "threshold is NaN"}
	}

	agg, err := NewAggregator(mode, weights)
	if err != nil {
		return nil, err
	}

	batch := &MatchBatch{ID: uuid.NewString()}
	log := e.logger.With(zap.String("batch_id", batch.ID))

	var sim oracle.Oracle
	var cache *oracle.Cache
	if e.oracle != nil {
		cache = oracle.NewCache(e.oracle)
		sim = cache
	}

	log.Debug("batch started",
		zap.Int("pairs", len(pairs)),
		zap.String("mode", string(agg.Mode())),
		zap.Float64("threshold", threshold),
		zap.Int("workers", e.workers),
	)

	outcomes := make([]pairOutcome, len(pairs))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i := range pairs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = e.runPair(ctx, agg, sim, pairs[i], log)
			return nil
		})
	}

	// Workers never return errors; failures are kept per pair.
	_ = g.Wait()

	scored := make([]MatchResult, 0, len(pairs))
	for _, out := range outcomes {
		switch out.state {
		case stateScored:
			scored = append(scored, out.result)
		case stateFailed:
			batch.Failures = append(batch.Failures, out.failure)
		default:
			batch.Skipped++
		}
	}

	batch.Cancelled = ctx.Err() != nil
	batch.Results = Rank(scored, threshold)
	batch.Dropped = len(scored) - len(batch.Results)

	fields := []zap.Field{
		zap.Int("pairs", len(pairs)),
		zap.Int("scored", len(scored)),
		zap.Int("failed", len(batch.Failures)),
		zap.Int("dropped", batch.Dropped),
		zap.Int("ranked", len(batch.Results)),
	}
	if cache != nil {
		fields = append(fields, zap.Int("oracle_cache_entries", cache.Len()))
	}
	if batch.Cancelled {
		fields = append(fields, zap.Int("skipped", batch.Skipped))
		log.Warn("batch cancelled, returning partial results", fields...)
	} else {
		log.Info("batch finished", fields...)
	}

	return batch, nil
}

func (e *Engine) runPair(ctx context.Context, agg *Aggregator, sim oracle.Oracle, p pair, log *zap.Logger) (out pairOutcome) {
	failure := PairFailure{ProfileID: p.profile.ID, PostingID: p.posting.ID}

	defer func() {
		if r := recover(); r != nil {
			failure.Kind = FailurePanic
			failure.Message = fmt.Sprint(r)
			log.Error("pair scoring panicked", append(logger.PairFields(failure.ProfileID, failure.PostingID), zap.Any("panic", r))...)
			out = pairOutcome{state: stateFailed, failure: failure}
		}
	}()

	result, err := e.score(ctx, agg, sim, p.profile, p.posting, log)
	if err != nil {
		failure.Kind = FailureInvalidInput
		failure.Message = err.Error()
		log.Warn("pair could not be scored", append(logger.PairFields(failure.ProfileID, failure.PostingID), zap.Error(err))...)
		return pairOutcome{state: stateFailed, failure: failure}
	}

	// A pair whose oracle call was cut short by the batch cancellation is
	// abandoned, not scored. The per-pair timeout leaves ctx alive.
	if ctx.Err() != nil && result.OracleFailed() {
		return pairOutcome{state: statePending}
	}

	return pairOutcome{state: stateScored, result: result}
}
