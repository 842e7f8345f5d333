package errors

import (
	"sort"
	"strings"
)

// MaxSuggestionDistance is the widest edit distance ever offered as a
// suggestion, reached only for long identifiers.
const MaxSuggestionDistance = 3

// MaxSuggestions caps how many candidates a single diagnostic offers.
const MaxSuggestions = 3

// Suggestion pairs a candidate correction with its edit distance from the
// misspelled input.
type Suggestion struct {
	Value    string
	Distance int
}

// suggestionThreshold returns the edit distance tolerated for an input of
// n characters. DASL keywords are short ("fn", "let", "msg"), so short
// inputs only match near-exact candidates; otherwise almost every keyword
// would be within range of every typo.
func suggestionThreshold(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 5:
		return 2
	default:
		return MaxSuggestionDistance
	}
}

// SuggestSimilar ranks candidates by edit distance from input and returns
// the closest ones, up to MaxSuggestions. Comparison is case-insensitive
// and an exact match is never suggested back.
func SuggestSimilar(input string, candidates []string) []Suggestion {
	if input == "" || len(candidates) == 0 {
		return nil
	}

	lowered := strings.ToLower(input)
	threshold := suggestionThreshold(len(lowered))

	var matches []Suggestion
	for _, candidate := range candidates {
		if candidate == "" || strings.EqualFold(candidate, input) {
			continue
		}
		// Distance is at least the length difference; skip the DP for
		// candidates that cannot make the threshold.
		if diff := len(candidate) - len(lowered); diff > threshold || -diff > threshold {
			continue
		}
		if dist := levenshteinDistance(lowered, strings.ToLower(candidate)); dist <= threshold {
			matches = append(matches, Suggestion{Value: candidate, Distance: dist})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Value < matches[j].Value
	})
	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	return matches
}

// FormatSuggestions renders suggestions as a single hint line, or "" when
// there is nothing to offer.
func FormatSuggestions(suggestions []Suggestion) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "Did you mean '" + suggestions[0].Value + "'?"
	}

	quoted := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		quoted = append(quoted, "'"+s.Value+"'")
	}
	return "Did you mean one of: " + strings.Join(quoted, ", ") + "?"
}

// levenshteinDistance computes the edit distance between a and b, keeping
// a single row of the DP table plus the diagonal.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			sub := diag
			if ra[i-1] != rb[j-1] {
				sub++
			}
			diag = row[j]
			row[j] = min(row[j]+1, row[j-1]+1, sub)
		}
	}
	return row[len(rb)]
}
