package matching

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-matcher/internal/oracle"
)

func TestMatchBatchOracleFailureDoesNotAbort(t *testing.T) {
	profiles := []Profile{sampleProfile("c1"), sampleProfile("c2"), sampleProfile("c3")}
	profiles[1].Description = "Python developer, Django"

	sim := oracle.Func(func(_ context.Context, a, _ string) (float32, error) {
		if a == profiles[1].Description {
			return 0, errors.New("upstream unavailable")
		}
		return 0.9, nil
	})

	batch, err := New(sim, WithWorkers(2)).MatchBatch(context.Background(), profiles, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	assert.Empty(t, batch.Failures)
	assert.False(t, batch.Cancelled)
	require.Equal(t, 3, batch.Len())

	var failed *MatchResult
	for i := range batch.Results {
		if batch.Results[i].ProfileID == "c2" {
			failed = &batch.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.True(t, failed.OracleFailed())
	semantic, _ := failed.Score(LabelSemantic)
	assert.Zero(t, semantic)
	assert.Equal(t, 3, failed.Rank, "lost semantic signal ranks last")
}

func TestMatchBatchCachesOraclePerDistinctPair(t *testing.T) {
	var calls atomic.Int32
	sim := oracle.Func(func(context.Context, string, string) (float32, error) {
		calls.Add(1)
		return 0.6, nil
	})

	profiles := make([]Profile, 0, 12)
	for i := 0; i < 12; i++ {
		p := sampleProfile(string(rune('a' + i)))
		if i%2 == 1 {
			p.Description = "Java developer,   Spring "
		}
		profiles = append(profiles, p)
	}

	batch, err := New(sim, WithWorkers(6)).MatchBatch(context.Background(), profiles, samplePosting("v1"), 0, ModeTwoFactor, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, batch.Len())
	assert.Equal(t, int32(2), calls.Load())

	_, err = New(sim).MatchBatch(context.Background(), profiles[:1], samplePosting("v1"), 0, ModeTwoFactor, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "cache does not outlive a batch")
}

func TestMatchBatchThresholdAndRanking(t *testing.T) {
	scores := map[string]float32{"strong": 0.95, "medium": 0.5, "weak": 0.05}
	sim := oracle.Func(func(_ context.Context, a, _ string) (float32, error) {
		return scores[a], nil
	})

	var profiles []Profile
	for _, id := range []string{"weak", "strong", "medium"} {
		p := sampleProfile(id)
		p.Description = id
		profiles = append(profiles, p)
	}

	batch, err := New(sim).MatchBatch(context.Background(), profiles, samplePosting("v1"), 0.2, ModeTwoFactor, nil)
	require.NoError(t, err)

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, 1, batch.Dropped)
	assert.Equal(t, "strong", batch.Results[0].ProfileID)
	assert.Equal(t, "medium", batch.Results[1].ProfileID)
	assert.Equal(t, []int{1, 2}, []int{batch.Results[0].Rank, batch.Results[1].Rank})
	for _, r := range batch.Results {
		assert.GreaterOrEqual(t, r.TotalScore, 0.2)
	}
}

func TestMatchBatchInvalidRecordsBecomeFailures(t *testing.T) {
	profiles := []Profile{sampleProfile("c1"), sampleProfile(""), sampleProfile("c3")}

	batch, err := New(constOracle(0.5)).MatchBatch(context.Background(), profiles, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Len())
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, FailureInvalidInput, batch.Failures[0].Kind)
	assert.Equal(t, "v1", batch.Failures[0].PostingID)
	assert.Contains(t, batch.Failures[0].Message, ErrInvalidRecord.Error())
}

func TestMatchBatchConfigurationErrors(t *testing.T) {
	engine := New(constOracle(0.5))
	profiles := []Profile{sampleProfile("c1")}
	var cfgErr *ConfigurationError

	_, err := engine.MatchBatch(context.Background(), profiles, samplePosting("v1"), math.NaN(), ModeFull, nil)
	assert.ErrorAs(t, err, &cfgErr)

	_, err = engine.MatchBatch(context.Background(), profiles, samplePosting("v1"), 0, ModeFull, Weights{LabelAge: 0.5})
	assert.ErrorAs(t, err, &cfgErr)

	_, err = engine.MatchBatch(context.Background(), profiles, samplePosting("v1"), 0, Mode("weird"), nil)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMatchBatchEmpty(t *testing.T) {
	batch, err := New(constOracle(0.5)).MatchBatch(context.Background(), nil, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)
	assert.Zero(t, batch.Len())
	assert.Zero(t, batch.Dropped)
	assert.False(t, batch.Cancelled)
}

func TestMatchBatchCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	profiles := []Profile{sampleProfile("c1"), sampleProfile("c2")}
	batch, err := New(constOracle(0.5)).MatchBatch(ctx, profiles, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)

	assert.True(t, batch.Cancelled)
	assert.Equal(t, 2, batch.Skipped)
	assert.Zero(t, batch.Len())
}

func TestMatchBatchCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, logs := observer.New(zap.InfoLevel)
	sim := oracle.Func(func(context.Context, string, string) (float32, error) {
		cancel()
		return 0.5, nil
	})

	profiles := []Profile{sampleProfile("c1"), sampleProfile("c2"), sampleProfile("c3")}
	for i := range profiles {
		profiles[i].Description = profiles[i].ID
	}

	batch, err := New(sim, WithWorkers(1), WithLogger(zap.New(core))).MatchBatch(ctx, profiles, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)

	assert.True(t, batch.Cancelled)
	assert.Equal(t, 1, batch.Len())
	assert.Equal(t, 2, batch.Skipped)
	assert.Equal(t, 1, logs.FilterMessage("batch cancelled, returning partial results").Len())
}

func TestMatchBatchCancelledWhileOracleWaits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 3)
	sim := oracle.Func(func(ctx context.Context, _, _ string) (float32, error) {
		started <- struct{}{}
		<-ctx.Done()
		return 0, ctx.Err()
	})

	go func() {
		<-started
		<-started
		cancel()
	}()

	profiles := []Profile{sampleProfile("c1"), sampleProfile("c2"), sampleProfile("c3")}
	for i := range profiles {
		profiles[i].Description = profiles[i].ID
	}

	core, logs := observer.New(zap.InfoLevel)
	batch, err := New(sim, WithWorkers(2), WithLogger(zap.New(core))).MatchBatch(ctx, profiles, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)

	assert.True(t, batch.Cancelled)
	assert.Zero(t, batch.Len())
	assert.Empty(t, batch.Failures)
	assert.Equal(t, 3, batch.Skipped)
	assert.Zero(t, logs.FilterMessage("semantic oracle failed, substituting 0").Len())
}

func TestMatchBatchPairTimeoutIsScored(t *testing.T) {
	sim := oracle.Func(func(ctx context.Context, _, _ string) (float32, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	engine := New(sim, WithPairTimeout(10*time.Millisecond))
	batch, err := engine.MatchBatch(context.Background(), []Profile{sampleProfile("c1")}, samplePosting("v1"), 0, ModeFull, nil)
	require.NoError(t, err)

	assert.False(t, batch.Cancelled)
	assert.Zero(t, batch.Skipped)
	require.Equal(t, 1, batch.Len())
	assert.True(t, batch.Results[0].OracleFailed())
	semantic, ok := batch.Results[0].Score(LabelSemantic)
	require.True(t, ok)
	assert.Zero(t, semantic)
}

func TestMatchPostings(t *testing.T) {
	postings := []Posting{samplePosting("v2"), samplePosting("v1")}
	postings[0].Attributes.WorkFormat = "office"

	batch, err := New(constOracle(0.7)).MatchPostings(context.Background(), sampleProfile("c1"), postings, 0, ModeFull, nil)
	require.NoError(t, err)

	require.Equal(t, 2, batch.Len())
	assert.Equal(t, "v1", batch.Results[0].PostingID)
	assert.Equal(t, "v2", batch.Results[1].PostingID)
	for _, r := range batch.Results {
		assert.Equal(t, "c1", r.ProfileID)
	}
}

func TestMatchBatchLogsSummary(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	engine := New(constOracle(0.5), WithLogger(zap.New(core)))

	batch, err := engine.MatchBatch(context.Background(), []Profile{sampleProfile("c1")}, samplePosting("v1"), 0.99, ModeFull, nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("batch finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, batch.ID, fields["batch_id"])
	assert.Equal(t, int64(1), fields["dropped"])
	assert.Equal(t, int64(1), fields["oracle_cache_entries"])
}

func TestMatchBatchDumpToTmpFile(t *testing.T) {
	batch, err := New(constOracle(0.5)).MatchBatch(context.Background(), []Profile{sampleProfile("c1")}, samplePosting("v1"), 0, ModeTwoFactor, nil)
	require.NoError(t, err)

	name, err := batch.DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(name) })

	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var decoded MatchBatch
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, batch.ID, decoded.ID)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, 1, decoded.Results[0].Rank)
	assert.Equal(t, batch.Results[0].Breakdown, decoded.Results[0].Breakdown)
}
