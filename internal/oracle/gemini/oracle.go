package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/oracle"
	"github.com/spigell/hh-matcher/internal/utils"
)

// ErrMalformedResponse is returned when the model answer carries no usable probability.
var ErrMalformedResponse = errors.New("gemini response has no probability")

const systemInstruction = "You are a recruiting assistant that scores how well a candidate fits a job posting. " +
	"You always answer with strict JSON and never add commentary."

const defaultMaxLogLength = 200

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Oracle asks a Gemini model for the probability that a profile fits a posting.
type Oracle struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ oracle.Oracle = (*Oracle)(nil)

// NewOracle wraps generator. A non-positive maxLogLength uses the default preview length.
func NewOracle(generator contentGenerator, l *zap.Logger, maxLogLength int) *Oracle {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Oracle{
		generator: generator,
		logger:    logger.WithCommonFields(l, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Similarity implements oracle.Oracle. The first text is the profile, the second the posting.
func (o *Oracle) Similarity(ctx context.Context, profile, posting string) (float32, error) {
	prompt := buildPrompt(profile, posting)

	o.logger.Debug("gemini similarity request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, o.maxLogLen)),
	)

	raw, err := o.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return 0, err
	}

	o.logger.Debug("gemini similarity response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, o.maxLogLen)),
	)

	probability, err := parseResponse(raw)
	if err != nil {
		return 0, err
	}

	score := float32(probability)
	if err := oracle.Check(score); err != nil {
		return 0, err
	}

	return score, nil
}

func buildPrompt(profile, posting string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE}}\n\nPosting:\n{{POSTING}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PROFILE}}", strings.TrimSpace(profile))
	prompt = strings.ReplaceAll(prompt, "{{POSTING}}", strings.TrimSpace(posting))
	return prompt
}

func parseResponse(raw string) (float64, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return 0, fmt.Errorf("parse gemini response: %w", err)
	}

	value, ok := data["probability"]
	if !ok {
		value, ok = data["score"]
	}
	if !ok {
		return 0, ErrMalformedResponse
	}

	probability := coerceFloat(value)
	if math.IsNaN(probability) {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, value)
	}

	return probability, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// Models occasionally wrap the object in prose.
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}

	return raw
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		if strings.HasSuffix(strings.TrimSpace(val), "%") {
			f /= 100
		}
		return f
	default:
		return math.NaN()
	}
}
