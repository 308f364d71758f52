package matching

import (
	"math"
	"strings"
)

// Label identifies the matcher that produced a sub-score.
type Label string

const (
	LabelExperience Label = "experience"
	LabelEducation  Label = "education"
	LabelWorkFormat Label = "work_format"
	LabelLocation   Label = "location"
	LabelSalary     Label = "salary"
	LabelAge        Label = "age"
	LabelTitle      Label = "title"
	LabelSkills     Label = "skills"
	LabelSemantic   Label = "semantic"
)

// Labels lists every known label in breakdown order.
var Labels = []Label{
	LabelExperience,
	LabelEducation,
	LabelWorkFormat,
	LabelLocation,
	LabelSalary,
	LabelAge,
	LabelTitle,
	LabelSkills,
	LabelSemantic,
}

func (l Label) known() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// neutralScore is substituted when a sub-score cannot be computed from the input.
const neutralScore = 0.5

// SalaryRange is an inclusive salary range in currency minor units.
// A zero To leaves the range open above From ("from 200000"); a single
// amount is written with From equal to To.
type SalaryRange struct {
	From int `json:"from" mapstructure:"from" validate:"gte=0"`
	To   int `json:"to" mapstructure:"to" validate:"gte=0"`
}

func (r SalaryRange) bounds() (int, int) {
	if r.To == 0 {
		return r.From, math.MaxInt
	}
	return r.From, r.To
}

// AgeRange keeps the raw bounds; they are parsed at match time.
type AgeRange struct {
	From string `json:"from" mapstructure:"from"`
	To   string `json:"to" mapstructure:"to"`
}

// Attributes are the structured fields shared by profiles and postings.
type Attributes struct {
	Title      string       `json:"title,omitempty" mapstructure:"title"`
	Experience string       `json:"experience,omitempty" mapstructure:"experience"`
	Education  string       `json:"education,omitempty" mapstructure:"education"`
	WorkFormat string       `json:"work_format,omitempty" mapstructure:"work_format"`
	Area       string       `json:"area,omitempty" mapstructure:"area"`
	Salary     *SalaryRange `json:"salary,omitempty" mapstructure:"salary"`
	Age        AgeRange     `json:"age" mapstructure:"age"`
}

// Profile is a candidate record.
type Profile struct {
	ID          string     `json:"id" mapstructure:"id" validate:"required"`
	Description string     `json:"description,omitempty" mapstructure:"description"`
	Attributes  Attributes `json:"attributes" mapstructure:",squash"`
	Skills      []string   `json:"skills,omitempty" mapstructure:"skills"`
}

// Posting is a job/vacancy record.
type Posting struct {
	ID                string     `json:"id" mapstructure:"id" validate:"required"`
	Description       string     `json:"description,omitempty" mapstructure:"description"`
	Attributes        Attributes `json:"attributes" mapstructure:",squash"`
	Skills            []string   `json:"skills,omitempty" mapstructure:"skills"`
	RelocationAllowed bool       `json:"relocation_allowed,omitempty" mapstructure:"relocation_allowed"`
}

// SubScore is one named component of a match.
type SubScore struct {
	Label Label   `json:"label"`
	Value float64 `json:"value"`
}

func newSubScore(label Label, value float64) SubScore {
	return SubScore{Label: label, Value: clamp(value)}
}

// clamp maps a score into [0,1]; NaN becomes the neutral score.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return neutralScore
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// DiagnosticKind classifies a warning attached to a result.
type DiagnosticKind string

const (
	// DiagnosticOracleUnavailable means the semantic score is a substitute, not a measurement.
	DiagnosticOracleUnavailable DiagnosticKind = "oracle_unavailable"
	// DiagnosticEmptyText means one side had no free text to compare.
	DiagnosticEmptyText DiagnosticKind = "empty_text"
)

// Diagnostic is a warning about how a sub-score was produced.
type Diagnostic struct {
	Label   Label          `json:"label"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

// MatchResult is the scored comparison of one profile with one posting.
type MatchResult struct {
	ProfileID   string       `json:"profile_id"`
	PostingID   string       `json:"posting_id"`
	TotalScore  float64      `json:"total_score"`
	Breakdown   []SubScore   `json:"breakdown"`
	Rank        int          `json:"rank,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Score returns the value for label and whether it is part of the breakdown.
func (r MatchResult) Score(label Label) (float64, bool) {
	for _, s := range r.Breakdown {
		if s.Label == label {
			return s.Value, true
		}
	}
	return 0, false
}

// OracleFailed reports whether the semantic sub-score is a substitute for an oracle failure.
func (r MatchResult) OracleFailed() bool {
	for _, d := range r.Diagnostics {
		if d.Kind == DiagnosticOracleUnavailable {
			return true
		}
	}
	return false
}

// FailureKind classifies a pair that could not be scored.
type FailureKind string

const (
	FailureInvalidInput FailureKind = "invalid_input"
	FailurePanic        FailureKind = "panic"
)

// PairFailure records a pair that could not be scored.
type PairFailure struct {
	ProfileID string      `json:"profile_id"`
	PostingID string      `json:"posting_id"`
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
}

// MatchBatch is the outcome of a batch run.
type MatchBatch struct {
	ID       string        `json:"id"`
	Results  []MatchResult `json:"results"`
	Failures []PairFailure `json:"failures,omitempty"`
	// Dropped counts scored results removed by the threshold.
	Dropped int `json:"dropped"`
	// Cancelled is set when the context ended while the batch was running.
	Cancelled bool `json:"cancelled,omitempty"`
	// Skipped counts pairs never dispatched because of cancellation.
	Skipped int `json:"skipped,omitempty"`
}

// Len returns the number of ranked results.
func (b *MatchBatch) Len() int {
	return len(b.Results)
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
