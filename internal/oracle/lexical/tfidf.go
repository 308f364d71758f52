// Package lexical scores text similarity offline with TF-IDF vectors.
package lexical

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/spigell/hh-matcher/internal/oracle"
)

// englishStopWords is a compact subset of the common English stop word list.
var englishStopWords = []string{
	"a", "about", "above", "after", "again", "all", "also", "am", "an", "and",
	"any", "are", "as", "at", "be", "been", "being", "both", "but", "by",
	"can", "could", "do", "does", "doing", "each", "for", "from", "had", "has",
	"have", "having", "he", "her", "here", "his", "how", "if", "in", "into",
	"is", "it", "its", "just", "me", "more", "most", "my", "no", "nor",
	"not", "of", "on", "once", "only", "or", "other", "our", "out", "over",
	"own", "same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "them", "then", "there", "these", "they", "this", "those", "through", "to",
	"too", "under", "until", "up", "very", "was", "we", "were", "what", "when",
	"where", "which", "while", "who", "whom", "why", "will", "with", "would", "you",
	"your",
}

// Oracle computes the cosine similarity of smoothed TF-IDF vectors fitted on
// the two compared texts.
type Oracle struct {
	stopWords map[string]struct{}
}

var _ oracle.Oracle = (*Oracle)(nil)

// Option configures an Oracle.
type Option func(*Oracle)

// WithStopWords replaces the English stop word list. No words disables filtering.
func WithStopWords(words ...string) Option {
	return func(o *Oracle) {
		o.stopWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			o.stopWords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// New returns an Oracle with English stop words.
func New(opts ...Option) *Oracle {
	o := &Oracle{}
	WithStopWords(englishStopWords...)(o)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Similarity implements oracle.Oracle. Texts without any indexable term score 0.
func (o *Oracle) Similarity(ctx context.Context, a, b string) (float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tfA, tfB := o.counts(a), o.counts(b)
	if len(tfA) == 0 || len(tfB) == 0 {
		return 0, nil
	}

	// Smoothed idf over a two document corpus: ln((1+n)/(1+df)) + 1.
	idf := func(term string) float64 {
		df := 0
		if _, ok := tfA[term]; ok {
			df++
		}
		if _, ok := tfB[term]; ok {
			df++
		}
		return math.Log(3/float64(1+df)) + 1
	}

	var dot, normA, normB float64
	for term, count := range tfA {
		w := float64(count) * idf(term)
		normA += w * w
		if other, ok := tfB[term]; ok {
			dot += w * float64(other) * idf(term)
		}
	}
	for term, count := range tfB {
		w := float64(count) * idf(term)
		normB += w * w
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32(math.Min(1, math.Max(0, sim))), nil
}

// counts tokenizes text into lowercase words of at least two letters or digits.
func (o *Oracle) counts(text string) map[string]int {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	counts := make(map[string]int, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := o.stopWords[w]; stop {
			continue
		}
		counts[w]++
	}
	return counts
}
