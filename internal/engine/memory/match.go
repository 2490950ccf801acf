package memory

import (
	"github.com/ammadakrram/storefront-search/internal/engine"
)

// Name terms are indexed as edge n-grams of this length range.
const (
	minGram = 2
	maxGram = 20
)

// Field boosts, matching the weighting used by the other backends.
const (
	nameBoost        = 3.0
	descriptionBoost = 1.0
)

// termScore is 1 for an exact hit, less for a fuzzy one, 0 for a miss.
func termScore(distance, budget int) float64 {
	if distance > budget {
		return 0
	}
	return 1 / float64(1+distance)
}

// nameTermScore matches term against the edge n-grams of every name token.
func nameTermScore(term string, nameTokens []string) float64 {
	budget := engine.AutoFuzziness(term)
	best := 0.0
	for _, tok := range nameTokens {
		runes := []rune(tok)
		upper := len(runes)
		if upper > maxGram {
			upper = maxGram
		}
		for n := minGram; n <= upper; n++ {
			if s := termScore(levenshtein(term, string(runes[:n])), budget); s > best {
				best = s
				if best == 1 {
					return best
				}
			}
		}
	}
	return best
}

// wordTermScore matches term against whole tokens.
func wordTermScore(term string, tokens []string) float64 {
	budget := engine.AutoFuzziness(term)
	best := 0.0
	for _, tok := range tokens {
		if s := termScore(levenshtein(term, tok), budget); s > best {
			best = s
		}
	}
	return best
}

// fieldScore sums per-term scores. Any matching term is enough for a hit.
func fieldScore(terms []string, match func(string) float64) float64 {
	total := 0.0
	for _, t := range terms {
		total += match(t)
	}
	return total
}

// levenshtein is the edit distance between a and b, counted in runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
