package matching

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultVocabulary is the built-in list of technical terms recognised in free text.
var DefaultVocabulary = NewVocabulary([]string{
	"python", "java", "javascript", "react", "angular", "vue",
	"node.js", "sql", "mongodb", "docker", "kubernetes", "aws",
	"git", "ci/cd", "agile", "scrum",
})

// Vocabulary is a fixed set of lower-cased terms.
type Vocabulary struct {
	terms      []string
	index      map[string]struct{}
	wholeWords bool
}

// VocabularyOption changes how a vocabulary finds terms in text.
type VocabularyOption func(*Vocabulary)

// WithWholeWords makes a term count only when it is not part of a longer word,
// so "java" is not found in "javascript" and "sql" is not found in "postgresql".
func WithWholeWords() VocabularyOption {
	return func(v *Vocabulary) {
		v.wholeWords = true
	}
}

// NewVocabulary builds a vocabulary; terms are lower-cased, trimmed and deduplicated.
// By default a term is found anywhere in the text, including inside longer words.
func NewVocabulary(terms []string, opts ...VocabularyOption) Vocabulary {
	v := Vocabulary{index: make(map[string]struct{}, len(terms))}
	for _, opt := range opts {
		opt(&v)
	}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if _, ok := v.index[term]; ok {
			continue
		}
		v.index[term] = struct{}{}
		v.terms = append(v.terms, term)
	}
	sort.Strings(v.terms)
	return v
}

// Terms returns the vocabulary in sorted order.
func (v Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Len returns the number of terms.
func (v Vocabulary) Len() int {
	return len(v.terms)
}

// WholeWords reports whether terms must stand alone in text.
func (v Vocabulary) WholeWords() bool {
	return v.wholeWords
}

// Extract returns the set of vocabulary terms mentioned in text and in the explicit skills.
func (v Vocabulary) Extract(text string, explicit ...string) map[string]struct{} {
	found := make(map[string]struct{})
	lower := strings.ToLower(text)
	for _, term := range v.terms {
		if v.contains(lower, term) {
			found[term] = struct{}{}
		}
	}
	for _, skill := range explicit {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if _, ok := v.index[skill]; ok {
			found[skill] = struct{}{}
		}
	}
	return found
}

// SkillOverlap is the share of posting skills also held by the candidate.
// A posting with no recognised skills scores 0.
func SkillOverlap(candidate, posting map[string]struct{}) float64 {
	if len(posting) == 0 {
		return 0
	}
	matched := 0
	for skill := range posting {
		if _, ok := candidate[skill]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(posting))
}

func (v Vocabulary) contains(text, term string) bool {
	if v.wholeWords {
		return containsWord(text, term)
	}
	return strings.Contains(text, term)
}

func containsWord(text, term string) bool {
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
