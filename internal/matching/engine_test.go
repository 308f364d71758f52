package matching

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/hh-matcher/internal/oracle"
)

func constOracle(score float32) oracle.Oracle {
	return oracle.Func(func(context.Context, string, string) (float32, error) {
		return score, nil
	})
}

func sampleProfile(id string) Profile {
	return Profile{
		ID:          id,
		Description: "Go developer with Docker and Kubernetes experience",
		Attributes: Attributes{
			Title:      "Go Developer",
			Experience: "between3And6",
			Education:  "higher",
			WorkFormat: "remote",
			Area:       "Moscow",
			Salary:     &SalaryRange{From: 250000, To: 300000},
			Age:        AgeRange{From: "30", To: "30"},
		},
	}
}

func samplePosting(id string) Posting {
	return Posting{
		ID:          id,
		Description: "We need a Go engineer who knows Docker and AWS",
		Attributes: Attributes{
			Title:      "Go Developer",
			Experience: "between1And3",
			Education:  "higher",
			WorkFormat: "remote",
			Area:       "Moscow",
			Salary:     &SalaryRange{From: 200000, To: 350000},
			Age:        AgeRange{From: "25", To: "40"},
		},
	}
}

func TestMatchOneFullBreakdown(t *testing.T) {
	engine := New(constOracle(0.8))

	result, err := engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeFull, nil)
	require.NoError(t, err)

	assert.Equal(t, "c1", result.ProfileID)
	assert.Equal(t, "v1", result.PostingID)
	require.Len(t, result.Breakdown, len(Labels))
	for i, label := range Labels {
		assert.Equal(t, label, result.Breakdown[i].Label)
	}
	assert.Empty(t, result.Diagnostics)

	semantic, ok := result.Score(LabelSemantic)
	require.True(t, ok)
	assert.InDelta(t, 0.8, semantic, 1e-6)

	skills, _ := result.Score(LabelSkills)
	assert.InDelta(t, 0.5, skills, 1e-9, "docker is shared, aws is missing from the profile")

	for _, label := range []Label{LabelExperience, LabelEducation, LabelWorkFormat, LabelLocation, LabelSalary, LabelAge, LabelTitle} {
		v, _ := result.Score(label)
		assert.Equal(t, 1.0, v, label)
	}

	want := 0.0
	for _, s := range result.Breakdown {
		want += DefaultWeights[s.Label] * s.Value
	}
	assert.InDelta(t, want, result.TotalScore, 1e-9)
}

func TestMatchOneTwoFactor(t *testing.T) {
	engine := New(constOracle(0.8))

	result, err := engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeTwoFactor, nil)
	require.NoError(t, err)

	require.Len(t, result.Breakdown, 2)
	assert.InDelta(t, 0.7*0.8+0.3*0.5, result.TotalScore, 1e-6)
}

func TestMatchOneOracleFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := oracle.Func(func(context.Context, string, string) (float32, error) {
		return 0, errors.New("quota exceeded")
	})
	engine := New(failing, WithLogger(zap.New(core)))

	result, err := engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeFull, nil)
	require.NoError(t, err)

	semantic, _ := result.Score(LabelSemantic)
	assert.Zero(t, semantic)
	assert.True(t, result.OracleFailed())
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagnosticOracleUnavailable, result.Diagnostics[0].Kind)
	assert.Contains(t, result.Diagnostics[0].Message, "quota exceeded")

	entries := logs.FilterMessage("semantic oracle failed, substituting 0").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].ContextMap()["profile_id"])
	assert.Equal(t, "v1", entries[0].ContextMap()["posting_id"])
}

func TestMatchOneMalformedOracleScore(t *testing.T) {
	engine := New(constOracle(1.7))

	result, err := engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeTwoFactor, nil)
	require.NoError(t, err)
	assert.True(t, result.OracleFailed())
	assert.Contains(t, result.Diagnostics[0].Message, oracle.ErrMalformedScore.Error())
}

func TestMatchOneNilOracle(t *testing.T) {
	result, err := New(nil).MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeFull, nil)
	require.NoError(t, err)
	assert.True(t, result.OracleFailed())
}

func TestMatchOneEmptyText(t *testing.T) {
	var calls atomic.Int32
	counting := oracle.Func(func(context.Context, string, string) (float32, error) {
		calls.Add(1)
		return 1, nil
	})

	profile := sampleProfile("c1")
	profile.Description = "   "

	result, err := New(counting).MatchOne(context.Background(), profile, samplePosting("v1"), ModeFull, nil)
	require.NoError(t, err)

	assert.Zero(t, calls.Load(), "oracle must not be asked about empty text")
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, DiagnosticEmptyText, result.Diagnostics[0].Kind)
	assert.False(t, result.OracleFailed())
}

func TestMatchOneOraclePanicIsContained(t *testing.T) {
	panicking := oracle.Func(func(context.Context, string, string) (float32, error) {
		panic("boom")
	})

	result, err := New(panicking).MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeFull, nil)
	require.NoError(t, err)
	assert.True(t, result.OracleFailed())
	assert.Contains(t, result.Diagnostics[0].Message, "boom")
}

func TestMatchOnePairTimeout(t *testing.T) {
	slow := oracle.Func(func(ctx context.Context, _, _ string) (float32, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	engine := New(slow, WithPairTimeout(20*time.Millisecond))

	result, err := engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeFull, nil)
	require.NoError(t, err)
	assert.True(t, result.OracleFailed())
	assert.Contains(t, result.Diagnostics[0].Message, context.DeadlineExceeded.Error())
}

func TestMatchOneInvalidInput(t *testing.T) {
	engine := New(constOracle(0.5))

	_, err := engine.MatchOne(context.Background(), sampleProfile(""), samplePosting("v1"), ModeFull, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting(" "), ModeFull, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = engine.MatchOne(context.Background(), sampleProfile("c1"), samplePosting("v1"), ModeFull, Weights{LabelSemantic: 2})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMatchOneMissingAttributesStayInRange(t *testing.T) {
	result, err := New(constOracle(0.5)).MatchOne(context.Background(), Profile{ID: "c"}, Posting{ID: "v"}, ModeFull, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.TotalScore, 0.0)
	assert.LessOrEqual(t, result.TotalScore, 1.0)
	for _, s := range result.Breakdown {
		assert.GreaterOrEqual(t, s.Value, 0.0, s.Label)
		assert.LessOrEqual(t, s.Value, 1.0, s.Label)
	}
}

func TestMatchOneCustomVocabulary(t *testing.T) {
	vocab := NewVocabulary([]string{"cobol"})
	profile := sampleProfile("c1")
	profile.Description = "COBOL mainframe veteran"
	posting := samplePosting("v1")
	posting.Description = "Maintain cobol batch jobs"

	result, err := New(constOracle(0.5), WithVocabulary(vocab)).MatchOne(context.Background(), profile, posting, ModeTwoFactor, nil)
	require.NoError(t, err)

	skills, _ := result.Score(LabelSkills)
	assert.Equal(t, 1.0, skills)
}
