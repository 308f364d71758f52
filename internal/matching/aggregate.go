package matching

import (
	"fmt"
	"strings"
)

// Mode selects how sub-scores are combined.
type Mode string

const (
	// ModeTwoFactor blends the semantic and skill signals only: 0.7*semantic + 0.3*skills.
	ModeTwoFactor Mode = "two-factor"
	// ModeFull weighs every field matcher together with the semantic and skill signals.
	ModeFull Mode = "full"
)

// ParseMode accepts the CLI and config spellings of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "two-factor", "two_factor", "twofactor", "text":
		return ModeTwoFactor, nil
	case "full", "full-field", "full_field", "":
		return ModeFull, nil
	default:
		return "", &ConfigurationError{Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// Aggregator turns a breakdown into a total score.
type Aggregator struct {
	mode  Mode
	table WeightTable
}

// NewAggregator validates the configuration up front. weights is ignored in
// two-factor mode; in full mode nil selects DefaultWeights.
func NewAggregator(mode Mode, weights Weights) (*Aggregator, error) {
	switch mode {
	case ModeTwoFactor:
		return &Aggregator{mode: mode, table: twoFactorTable}, nil
	case ModeFull:
		if weights == nil {
			return &Aggregator{mode: mode, table: defaultTable}, nil
		}
		table, err := ConfigureWeights(weights)
		if err != nil {
			return nil, err
		}
		return &Aggregator{mode: mode, table: table}, nil
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
}

// Mode returns the aggregation mode.
func (a *Aggregator) Mode() Mode {
	return a.mode
}

// Table returns the weights in use.
func (a *Aggregator) Table() WeightTable {
	return a.table
}

// Labels returns the sub-scores this aggregator needs, in breakdown order.
func (a *Aggregator) Labels() []Label {
	if a.mode == ModeTwoFactor {
		return []Label{LabelSkills, LabelSemantic}
	}
	return Labels
}

// Aggregate returns the weighted sum of the clamped sub-scores.
// Labels missing from the table contribute nothing.
func (a *Aggregator) Aggregate(breakdown []SubScore) float64 {
	total := 0.0
	for _, s := range breakdown {
		total += a.table.Weight(s.Label) * clamp(s.Value)
	}
	return clamp(total)
}
