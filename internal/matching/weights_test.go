package matching

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, label := range Labels {
		w, ok := DefaultWeights[label]
		require.True(t, ok, "default table misses %s", label)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, weightTolerance)
}

func TestConfigureWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{name: "default", weights: DefaultWeights},
		{name: "subset summing to one", weights: Weights{LabelSemantic: 0.5, LabelSalary: 0.5}},
		{name: "within tolerance", weights: Weights{LabelSemantic: 0.3333333, LabelSkills: 0.3333333, LabelTitle: 0.3333334}},
		{name: "zero weight is allowed", weights: Weights{LabelSemantic: 1, LabelAge: 0}},
		{name: "empty", weights: Weights{}, wantErr: true},
		{name: "does not sum to one", weights: Weights{LabelSemantic: 0.5, LabelSkills: 0.4}, wantErr: true},
		{name: "negative", weights: Weights{LabelSemantic: 1.2, LabelSkills: -0.2}, wantErr: true},
		{name: "unknown label", weights: Weights{LabelSemantic: 0.5, Label("charisma"): 0.5}, wantErr: true},
		{name: "nan", weights: Weights{LabelSemantic: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ConfigureWeights(tt.weights)
			if tt.wantErr {
				var cfgErr *ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
				return
			}
			require.NoError(t, err)
			for label, w := range tt.weights {
				assert.Equal(t, w, table.Weight(label))
			}
		})
	}
}

func TestWeightTableAccessors(t *testing.T) {
	table, err := ConfigureWeights(Weights{LabelSkills: 0.25, LabelSemantic: 0.75, LabelAge: 0})
	require.NoError(t, err)

	assert.Equal(t, []Label{LabelSkills, LabelSemantic}, table.Labels())
	assert.Zero(t, table.Weight(LabelExperience))
	assert.Equal(t, "age=0 semantic=0.75 skills=0.25", table.String())

	copied := table.Weights()
	copied[LabelSkills] = 1
	assert.Equal(t, 0.25, table.Weight(LabelSkills))
}

func TestParseWeights(t *testing.T) {
	w := ParseWeights(map[string]float64{" Semantic ": 0.6, "WORK_FORMAT": 0.4})
	assert.Equal(t, Weights{LabelSemantic: 0.6, LabelWorkFormat: 0.4}, w)
	assert.Nil(t, ParseWeights(nil))
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{
		"":           ModeFull,
		"full":       ModeFull,
		"Two-Factor": ModeTwoFactor,
		"two_factor": ModeTwoFactor,
		"text":       ModeTwoFactor,
	} {
		got, err := ParseMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseMode("fuzzy")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewAggregator(t *testing.T) {
	agg, err := NewAggregator(ModeFull, nil)
	require.NoError(t, err)
	assert.Equal(t, Labels, agg.Labels())
	assert.Equal(t, 0.30, agg.Table().Weight(LabelSemantic))

	agg, err = NewAggregator(ModeTwoFactor, Weights{LabelAge: 5})
	require.NoError(t, err, "two-factor mode ignores caller weights")
	assert.Equal(t, []Label{LabelSkills, LabelSemantic}, agg.Labels())
	assert.Equal(t, ModeTwoFactor, agg.Mode())

	_, err = NewAggregator(ModeFull, Weights{LabelSemantic: 0.9})
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = NewAggregator(Mode("median"), nil)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestAggregateTwoFactor(t *testing.T) {
	agg, err := NewAggregator(ModeTwoFactor, nil)
	require.NoError(t, err)

	total := agg.Aggregate([]SubScore{
		newSubScore(LabelSkills, 0.5),
		newSubScore(LabelSemantic, 0.8),
	})
	assert.InDelta(t, 0.71, total, 1e-9)
}

func TestAggregateIsWeightedSum(t *testing.T) {
	tables := []Weights{
		DefaultWeights,
		{LabelSemantic: 0.5, LabelExperience: 0.25, LabelAge: 0.25},
		{LabelTitle: 1},
	}
	breakdown := []SubScore{
		newSubScore(LabelExperience, 0.7),
		newSubScore(LabelEducation, 1),
		newSubScore(LabelWorkFormat, 0.5),
		newSubScore(LabelLocation, 0.3),
		newSubScore(LabelSalary, 1),
		newSubScore(LabelAge, 0.5),
		newSubScore(LabelTitle, 0.82),
		newSubScore(LabelSkills, 0.25),
		newSubScore(LabelSemantic, 0.6),
	}

	for _, w := range tables {
		agg, err := NewAggregator(ModeFull, w)
		require.NoError(t, err)

		want := 0.0
		for _, s := range breakdown {
			want += w[s.Label] * s.Value
		}
		assert.InDelta(t, want, agg.Aggregate(breakdown), 1e-9)
	}
}

func TestNewSubScoreClamps(t *testing.T) {
	assert.Equal(t, 0.0, newSubScore(LabelAge, -3).Value)
	assert.Equal(t, 1.0, newSubScore(LabelAge, 1.5).Value)
	assert.Equal(t, 0.5, newSubScore(LabelAge, math.NaN()).Value)
}
