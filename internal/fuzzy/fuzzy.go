// Package fuzzy provides Levenshtein-distance best-match lookup over labeled
// candidates. It backs duplicate detection and name-based item resolution.
package fuzzy

import "strings"

// DefaultThreshold is the tolerance used for general lookups. The duplicate
// workflow passes a stricter value.
const DefaultThreshold = 0.6

// Candidate is one labeled entry to match against.
type Candidate struct {
	ID   string
	Text string
}

// Match is an accepted best match.
type Match struct {
	ID       string
	Text     string
	Distance int
}

// FindBestMatch returns the candidate whose text has the smallest edit
// distance to query, if that distance is within threshold as a fraction of
// the longer string's length. Short strings are therefore matched strictly
// while long strings tolerate proportionally more edits. Ties keep the
// first-seen minimum. Returns nil when nothing clears the threshold, the
// query is empty, or there are no candidates.
func FindBestMatch(candidates []Candidate, query string, threshold float64) *Match {
	if query == "" || len(candidates) == 0 {
		return nil
	}

	needle := strings.ToLower(query)
	best := -1
	bestDistance := 0
	for i, c := range candidates {
		d := levenshtein(needle, strings.ToLower(c.Text))
		if best == -1 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	longer := len([]rune(needle))
	if l := len([]rune(strings.ToLower(candidates[best].Text))); l > longer {
		longer = l
	}
	if float64(bestDistance) > float64(longer)*threshold {
		return nil
	}
	return &Match{ID: candidates[best].ID, Text: candidates[best].Text, Distance: bestDistance}
}

// levenshtein computes edit distance with the classic two-row DP.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
