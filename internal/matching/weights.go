package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// weightTolerance bounds the accepted deviation of a weight sum from 1.0.
const weightTolerance = 1e-6

// ConfigurationError reports an invalid weight table or aggregation mode.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid matching configuration: " + e.Reason
}

// Weights is a caller supplied label to weight mapping.
type Weights map[Label]float64

// WeightTable is a validated set of weights. The zero value is not usable;
// build one with ConfigureWeights.
type WeightTable struct {
	weights map[Label]float64
}

// DefaultWeights is the table used in full mode when the caller supplies none.
var DefaultWeights = Weights{
	LabelSemantic:   0.30,
	LabelSkills:     0.15,
	LabelExperience: 0.12,
	LabelSalary:     0.10,
	LabelEducation:  0.08,
	LabelLocation:   0.08,
	LabelWorkFormat: 0.07,
	LabelTitle:      0.07,
	LabelAge:        0.03,
}

// twoFactorWeights blends the semantic and keyword signals only.
var twoFactorWeights = Weights{
	LabelSemantic: 0.7,
	LabelSkills:   0.3,
}

// ConfigureWeights validates w: every label must be known, every weight
// non-negative and the weights must sum to 1.0. Labels left out weigh 0.
func ConfigureWeights(w Weights) (WeightTable, error) {
	if len(w) == 0 {
		return WeightTable{}, &ConfigurationError{Reason: "weight table is empty"}
	}

	table := WeightTable{weights: make(map[Label]float64, len(w))}
	sum := 0.0
	for label, weight := range w {
		if !label.known() {
			return WeightTable{}, &ConfigurationError{Reason: fmt.Sprintf("unknown label %q", label)}
		}
		if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
			return WeightTable{}, &ConfigurationError{Reason: fmt.Sprintf("weight for %q must be a non-negative number, got %v", label, weight)}
		}
		table.weights[label] = weight
		sum += weight
	}

	if math.Abs(sum-1.0) > weightTolerance {
		return WeightTable{}, &ConfigurationError{Reason: fmt.Sprintf("weights sum to %.6f, must sum to 1.0", sum)}
	}

	return table, nil
}

// ParseWeights converts string keys, as found in config files, into Weights.
func ParseWeights(raw map[string]float64) Weights {
	if raw == nil {
		return nil
	}
	w := make(Weights, len(raw))
	for key, value := range raw {
		w[Label(normalizeLabel(key))] = value
	}
	return w
}

// Weight returns the weight for label, 0 when the table omits it.
func (t WeightTable) Weight(label Label) float64 {
	return t.weights[label]
}

// Labels returns the labels with a non-zero weight in breakdown order.
func (t WeightTable) Labels() []Label {
	labels := make([]Label, 0, len(t.weights))
	for _, label := range Labels {
		if t.weights[label] > 0 {
			labels = append(labels, label)
		}
	}
	return labels
}

// Weights returns a copy of the table.
func (t WeightTable) Weights() Weights {
	w := make(Weights, len(t.weights))
	for label, weight := range t.weights {
		w[label] = weight
	}
	return w
}

func (t WeightTable) String() string {
	keys := make([]string, 0, len(t.weights))
	for label := range t.weights {
		keys = append(keys, string(label))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.4g", key, t.weights[Label(key)]))
	}
	return strings.Join(parts, " ")
}

func mustConfigure(w Weights) WeightTable {
	table, err := ConfigureWeights(w)
	if err != nil {
		panic(err)
	}
	return table
}

var (
	defaultTable   = mustConfigure(DefaultWeights)
	twoFactorTable = mustConfigure(twoFactorWeights)
)
