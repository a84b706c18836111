// Package metrics measures how much a correction changed a chapter.
package metrics

import "strings"

// ChangeStats compares a chapter before and after correction at word level
type ChangeStats struct {
	OriginalWords  int     `json:"original_words" yaml:"originalwords"`
	CorrectedWords int     `json:"corrected_words" yaml:"correctedwords"`
	WordEdits      int     `json:"word_edits" yaml:"wordedits"`
	Similarity     float64 `json:"similarity" yaml:"similarity"`
}

// CompareText counts the word insertions, deletions and substitutions that
// turn original into corrected. Similarity is 1.0 for identical texts and
// 0.0 when nothing is shared.
func CompareText(original, corrected string) ChangeStats {
	a := strings.Fields(original)
	b := strings.Fields(corrected)

	edits := levenshteinDistance(a, b)
	return ChangeStats{
		OriginalWords:  len(a),
		CorrectedWords: len(b),
		WordEdits:      edits,
		Similarity:     similarity(edits, len(a), len(b)),
	}
}

// AverageSimilarity returns the mean similarity, or 0 for no stats
func AverageSimilarity(stats []ChangeStats) float64 {
	if len(stats) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, s := range stats {
		sum += s.Similarity
	}
	return sum / float64(len(stats))
}

func similarity(distance, lenA, lenB int) float64 {
	maxLen := max(lenA, lenB)
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// levenshteinDistance works on word slices and keeps only two rows, since
// chapters can run to thousands of words.
func levenshteinDistance(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			deletion := prev[j] + 1
			insertion := curr[j-1] + 1
			substitution := prev[j-1] + cost

			curr[j] = min(deletion, insertion, substitution)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
