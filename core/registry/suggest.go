package registry

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance bounds the edit distance of a typo suggestion.
const maxSuggestDistance = 4

// Suggest returns the registered id closest to an unknown id, or "" when
// nothing is close.
func Suggest(reg Registry, id string) string {
	if reg == nil || id == "" {
		return ""
	}
	candidates := reg.IDs()
	if len(candidates) == 0 {
		return ""
	}

	// Abbreviations: the unknown id is a subsequence of a known one.
	ranks := fuzzy.RankFindFold(id, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	// Typos: smallest edit distance within bounds.
	best, bestDistance := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(id, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}
