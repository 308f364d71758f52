package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/oracle"
)

// Oracle serves scores from the store and asks inner for the rest.
// Only successful, valid scores are written back.
type Oracle struct {
	store     *Store
	inner     oracle.Oracle
	namespace string
	logger    *zap.Logger
}

var _ oracle.Oracle = (*Oracle)(nil)

// Wrap returns an oracle backed by s. namespace separates scores of different
// providers or models.
func (s *Store) Wrap(namespace string, inner oracle.Oracle, l *zap.Logger) *Oracle {
	return &Oracle{
		store:     s,
		inner:     inner,
		namespace: namespace,
		logger:    logger.WithFields(l, zap.String("store_namespace", namespace)),
	}
}

func (o *Oracle) Similarity(ctx context.Context, a, b string) (float32, error) {
	key := oracle.Key(a, b)

	score, ok, err := o.store.Get(ctx, o.namespace, key)
	switch {
	case err != nil:
		o.logger.Warn("similarity store read failed, asking oracle", zap.Error(err))
	case ok:
		return score, nil
	}

	score, err = o.inner.Similarity(ctx, a, b)
	if err != nil {
		return 0, err
	}
	if err := oracle.Check(score); err != nil {
		return 0, err
	}

	if err := o.store.Put(ctx, o.namespace, key, score); err != nil {
		o.logger.Warn("similarity store write failed", zap.Error(err))
	}

	return score, nil
}
