package matching

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/oracle"
)

// ErrInvalidRecord is returned for a profile or posting that cannot be matched at all.
var ErrInvalidRecord = errors.New("invalid record")

const defaultPairTimeout = 30 * time.Second

// Engine scores profiles against postings.
type Engine struct {
	oracle      oracle.Oracle
	logger      *zap.Logger
	vocabulary  Vocabulary
	workers     int
	pairTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.WithFields(l)
	}
}

// WithVocabulary replaces DefaultVocabulary.
func WithVocabulary(v Vocabulary) Option {
	return func(e *Engine) {
		e.vocabulary = v
	}
}

// WithWorkers bounds the number of pairs scored concurrently in a batch.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPairTimeout bounds one oracle call. Zero disables the bound.
func WithPairTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.pairTimeout = d
		}
	}
}

// New creates an Engine backed by the given oracle. A nil oracle makes every
// semantic sub-score an oracle failure.
func New(o oracle.Oracle, opts ...Option) *Engine {
	e := &Engine{
		oracle:      o,
		logger:      zap.NewNop(),
		vocabulary:  DefaultVocabulary,
		workers:     runtime.NumCPU(),
		pairTimeout: defaultPairTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MatchOne scores a single pair. The only errors are *ConfigurationError and ErrInvalidRecord.
func (e *Engine) MatchOne(ctx context.Context, profile Profile, posting Posting, mode Mode, weights Weights) (MatchResult, error) {
	agg, err := NewAggregator(mode, weights)
	if err != nil {
		return MatchResult{}, err
	}
	return e.score(ctx, agg, e.oracle, profile, posting, e.logger)
}

func (e *Engine) score(ctx context.Context, agg *Aggregator, sim oracle.Oracle, profile Profile, posting Posting, log *zap.Logger) (MatchResult, error) {
	if strings.TrimSpace(profile.ID) == "" {
		return MatchResult{}, fmt.Errorf("%w: profile id is empty", ErrInvalidRecord)
	}
	if strings.TrimSpace(posting.ID) == "" {
		return MatchResult{}, fmt.Errorf("%w: posting id is empty", ErrInvalidRecord)
	}

	result := MatchResult{
		ProfileID: profile.ID,
		PostingID: posting.ID,
	}

	c, p := profile.Attributes, posting.Attributes
	for _, label := range agg.Labels() {
		var value float64
		switch label {
		case LabelExperience:
			value = MatchExperience(c.Experience, p.Experience)
		case LabelEducation:
			value = MatchEducation(c.Education, p.Education)
		case LabelWorkFormat:
			value = MatchWorkFormat(c.WorkFormat, p.WorkFormat)
		case LabelLocation:
			value = MatchLocation(c.Area, p.Area, posting.RelocationAllowed)
		case LabelSalary:
			value = MatchSalary(c.Salary, p.Salary)
		case LabelAge:
			value = MatchAge(c.Age, p.Age)
		case LabelTitle:
			value = MatchTitle(c.Title, p.Title)
		case LabelSkills:
			value = SkillOverlap(
				e.vocabulary.Extract(profile.Description, profile.Skills...),
				e.vocabulary.Extract(posting.Description, posting.Skills...),
			)
		case LabelSemantic:
			var diag *Diagnostic
			value, diag = e.semantic(ctx, sim, profile, posting, log)
			if diag != nil {
				result.Diagnostics = append(result.Diagnostics, *diag)
			}
		}
		result.Breakdown = append(result.Breakdown, newSubScore(label, value))
	}

	result.TotalScore = agg.Aggregate(result.Breakdown)
	return result, nil
}

// semantic asks the oracle for a similarity score. Any failure yields 0 and a diagnostic.
func (e *Engine) semantic(ctx context.Context, sim oracle.Oracle, profile Profile, posting Posting, log *zap.Logger) (float64, *Diagnostic) {
	if strings.TrimSpace(profile.Description) == "" || strings.TrimSpace(posting.Description) == "" {
		return 0, &Diagnostic{Label: LabelSemantic, Kind: DiagnosticEmptyText, Message: "profile or posting has no description"}
	}

	score, err := e.askOracle(ctx, sim, profile.Description, posting.Description)
	if err == nil {
		err = oracle.Check(score)
	}
	if err != nil && ctx.Err() != nil {
		log.Debug("semantic oracle abandoned", append(logger.PairFields(profile.ID, posting.ID), zap.Error(err))...)
		return 0, &Diagnostic{Label: LabelSemantic, Kind: DiagnosticOracleUnavailable, Message: err.Error()}
	}
	if err != nil {
		log.Warn("semantic oracle failed, substituting 0",
			append(logger.PairFields(profile.ID, posting.ID), zap.Error(err))...,
		)
		return 0, &Diagnostic{Label: LabelSemantic, Kind: DiagnosticOracleUnavailable, Message: err.Error()}
	}

	return float64(score), nil
}

func (e *Engine) askOracle(ctx context.Context, sim oracle.Oracle, a, b string) (score float32, err error) {
	if sim == nil {
		return 0, errors.New("no semantic oracle configured")
	}

	if e.pairTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.pairTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("oracle panicked: %v", r)
		}
	}()

	return sim.Similarity(ctx, a, b)
}
