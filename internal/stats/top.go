// Package stats contains statistics calculations and reporting.
package stats

import "sort"

// MissedWord is one word ranked by how often it contained an error.
type MissedWord struct {
	Word  string
	Count int
}

// RankMissedWords orders missed-word counts by descending miss count
// and returns the top n. n <= 0 returns the full ranking.
func RankMissedWords(missed map[string]int, n int) []MissedWord {
	if len(missed) == 0 {
		return nil
	}
	ranked := make([]MissedWord, 0, len(missed))
	for word, count := range missed {
		ranked = append(ranked, MissedWord{Word: word, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count == ranked[j].Count {
			return ranked[i].Word < ranked[j].Word
		}
		return ranked[i].Count > ranked[j].Count
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// SelectMissedWords returns the top-n missed words as a weight map for
// practice-text generation.
func SelectMissedWords(missed map[string]int, n int) map[string]int {
	selected := map[string]int{}
	for _, mw := range RankMissedWords(missed, n) {
		selected[mw.Word] = mw.Count
	}
	return selected
}
