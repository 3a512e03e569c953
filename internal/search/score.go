package search

import "strings"

const (
	ScoreExact     = 100.0
	ScorePrefix    = 80.0
	ScoreSubstring = 50.0
	ScoreNone      = 0.0

	// SecondaryWeight discounts matches on a secondary field (artist, description).
	SecondaryWeight = 0.8
)

// Score rates how well text matches query, ignoring case.
//
// An exact match scores 100, a prefix 80, any other substring 50 and everything else 0. Empty text
// or an empty query scores 0.
func Score(text, query string) float64 {
	if text == "" || query == "" {
		return ScoreNone
	}

	t, q := strings.ToLower(text), strings.ToLower(query)
	switch {
	case t == q:
		return ScoreExact
	case strings.HasPrefix(t, q):
		return ScorePrefix
	case strings.Contains(t, q):
		return ScoreSubstring
	default:
		return ScoreNone
	}
}

// weighted combines a primary and a secondary field score.
func weighted(primary, secondary, query string) float64 {
	return max(Score(primary, query), SecondaryWeight*Score(secondary, query))
}
