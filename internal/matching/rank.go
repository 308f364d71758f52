package matching

import "sort"

// Rank drops results scoring below threshold, orders the rest by total score
// descending with ties broken by profile id then posting id, and assigns
// 1-based ranks. The input slice is left untouched.
func Rank(results []MatchResult, threshold float64) []MatchResult {
	kept := make([]MatchResult, 0, len(results))
	for _, r := range results {
		if r.TotalScore < threshold {
			continue
		}
		kept = append(kept, r)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.ProfileID != b.ProfileID {
			return a.ProfileID < b.ProfileID
		}
		return a.PostingID < b.PostingID
	})

	for i := range kept {
		kept[i].Rank = i + 1
	}

	return kept
}
