// Package filtering drops hh.ru vacancies that should never reach matching.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/headhunter"
)

// Filter represents a single filtering step applied to vacancies.
type Filter interface {
	Name() string
	Apply(ctx context.Context, v *headhunter.Vacancies) (*headhunter.Vacancies, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Filtering runs filters in order.
type Filtering struct {
	steps  []Filter
	logger *zap.Logger
}

func New(steps []Filter, logger *zap.Logger) *Filtering {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filtering{steps: steps, logger: logger}
}

// RunFilters executes the filters sequentially and returns the remaining vacancies.
func (f *Filtering) RunFilters(ctx context.Context, v *headhunter.Vacancies) (*headhunter.Vacancies, error) {
	for _, step := range f.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, info, err := step.Apply(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		f.logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		v = next
		if v.Len() == 0 {
			break
		}
	}

	return v, nil
}

// Names lists the configured steps.
func (f *Filtering) Names() []string {
	names := make([]string, 0, len(f.steps))
	for _, step := range f.steps {
		names = append(names, step.Name())
	}
	return names
}
