package matching

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// salaryTolerance is the largest endpoint gap still considered a near miss.
const salaryTolerance = 50000

var experienceLevels = map[string]int{
	"no_experience": 0,
	"1-3":           1,
	"3-5":           2,
	"5+":            3,
	// hh.ru dictionary ids
	"noexperience": 0,
	"between1and3": 1,
	"between3and6": 2,
	"morethan6":    3,
}

var educationLevels = map[string]int{
	"secondary": 0,
	"higher":    1,
	"bachelor":  1,
	"master":    2,
	"phd":       3,
	// hh.ru dictionary ids
	"special_secondary": 0,
	"unfinished_higher": 0,
	"candidate":         3,
	"doctor":            3,
}

// ExperienceLevel maps a bucket label to its ordinal level. Unknown labels are level 0.
func ExperienceLevel(label string) int {
	return experienceLevels[normalizeLabel(label)]
}

// EducationLevel maps an education label to its ordinal level. Unknown labels are level 0.
func EducationLevel(label string) int {
	return educationLevels[normalizeLabel(label)]
}

// MatchExperience scores candidate experience against the posting requirement.
func MatchExperience(candidate, posting string) float64 {
	c, p := ExperienceLevel(candidate), ExperienceLevel(posting)
	switch {
	case c >= p:
		return 1.0
	case c+1 == p:
		return 0.7
	default:
		return 0.3
	}
}

// MatchEducation scores candidate education against the posting requirement.
func MatchEducation(candidate, posting string) float64 {
	if EducationLevel(candidate) >= EducationLevel(posting) {
		return 1.0
	}
	return 0.5
}

const (
	WorkFormatOffice = "office"
	WorkFormatRemote = "remote"
	WorkFormatHybrid = "hybrid"
)

// MatchWorkFormat scores work format compatibility.
func MatchWorkFormat(candidate, posting string) float64 {
	c, p := normalizeLabel(candidate), normalizeLabel(posting)
	switch {
	case c == p:
		return 1.0
	case p == WorkFormatHybrid:
		return 0.8
	case c == WorkFormatOffice && p == WorkFormatRemote:
		return 0.7
	default:
		return 0.5
	}
}

// MatchLocation scores the candidate area against the posting area.
func MatchLocation(candidate, posting string, relocation bool) float64 {
	if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(posting)) {
		return 1.0
	}
	if relocation {
		return 0.8
	}
	return 0.3
}

// MatchSalary scores salary expectations against the offered range.
// A missing range on either side yields the neutral score.
func MatchSalary(candidate, posting *SalaryRange) float64 {
	if candidate == nil || posting == nil {
		return neutralScore
	}

	cFrom, cTo := candidate.bounds()
	pFrom, pTo := posting.bounds()

	if cFrom <= pTo && cTo >= pFrom {
		return 1.0
	}
	if abs(cFrom-pTo) <= salaryTolerance || abs(cTo-pFrom) <= salaryTolerance {
		return 0.7
	}
	return 0.3
}

// MatchAge scores the candidate age range against the posting age range.
// Any bound that is not an integer yields the neutral score.
func MatchAge(candidate, posting AgeRange) float64 {
	bounds := make([]int, 0, 4)
	for _, raw := range []string{candidate.From, candidate.To, posting.From, posting.To} {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return neutralScore
		}
		bounds = append(bounds, v)
	}
	cFrom, cTo, pFrom, pTo := bounds[0], bounds[1], bounds[2], bounds[3]

	if cFrom <= pTo && cTo >= pFrom {
		if cFrom >= pFrom && cTo <= pTo {
			return 1.0
		}
		return 0.8
	}
	return 0.5
}

// MatchTitle returns the cosine similarity of the term frequency vectors of two titles.
// An empty title on either side yields 0.
func MatchTitle(candidate, posting string) float64 {
	a, b := termFrequencies(candidate), termFrequencies(posting)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, n := range a {
		normA += float64(n * n)
		dot += float64(n * b[term])
	}
	for _, n := range b {
		normB += float64(n * n)
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFrequencies(text string) map[string]int {
	tf := make(map[string]int)
	for _, token := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	}) {
		tf[token]++
	}
	return tf
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
