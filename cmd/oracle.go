package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/oracle"
	"github.com/spigell/hh-matcher/internal/oracle/gemini"
	"github.com/spigell/hh-matcher/internal/oracle/lexical"
	"github.com/spigell/hh-matcher/internal/oracle/store"
	"github.com/spigell/hh-matcher/internal/secrets"
)

const lexicalModel = "tfidf"

// newOracle builds the configured provider, wrapped by the similarity store
// when one is configured. The returned func releases the store.
func newOracle(ctx context.Context, cfg OracleConfig, l *zap.Logger) (oracle.Oracle, func(), error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	var (
		sim   oracle.Oracle
		model string
	)

	switch provider {
	case "", "lexical":
		provider, model = "lexical", lexicalModel
		var opts []lexical.Option
		if len(cfg.Lexical.StopWords) > 0 {
			opts = append(opts, lexical.WithStopWords(cfg.Lexical.StopWords...))
		}
		sim = lexical.New(opts...)
	case "gemini":
		g, err := newGeminiOracle(ctx, cfg.Gemini, l)
		if err != nil {
			return nil, nil, err
		}
		sim, model = g, g.model
	default:
		return nil, nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}

	l.Info("similarity oracle ready", logger.CommonFields(provider, model)...)

	if strings.TrimSpace(cfg.Store.Path) == "" {
		return sim, func() {}, nil
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening similarity store: %w", err)
	}

	release := func() {
		if err := st.Close(); err != nil {
			l.Warn("closing similarity store", zap.Error(err))
		}
	}

	namespace := provider + "/" + model
	cached, err := st.Count(ctx, namespace)
	if err != nil {
		release()
		return nil, nil, err
	}
	l.Info("similarity store opened",
		zap.String("path", cfg.Store.Path),
		zap.String("namespace", namespace),
		zap.Int("cached_scores", cached),
	)

	return st.Wrap(namespace, sim, l), release, nil
}

type geminiOracle struct {
	*gemini.Oracle
	model string
}

func newGeminiOracle(ctx context.Context, cfg GeminiConfig, l *zap.Logger) (*geminiOracle, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set oracle.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model,
		gemini.WithGeneratorLogger(l.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))),
		gemini.WithMaxRetries(cfg.MaxRetries),
		gemini.WithRequestsPerSecond(cfg.RequestsPerSecond),
	)
	if err != nil {
		return nil, err
	}

	return &geminiOracle{
		Oracle: gemini.NewOracle(generator, l, cfg.MaxLogLength),
		model:  generator.Model(),
	}, nil
}
