package metrics

import (
	"math"
	"testing"
)

func TestCompareText(t *testing.T) {
	tests := []struct {
		name       string
		original   string
		corrected  string
		edits      int
		similarity float64
	}{
		{"identical", "Era una noche.", "Era una  noche.", 0, 1.0},
		{"one substitution", "Era una noxe oscura", "Era una noche oscura", 1, 0.75},
		{"insertion", "Hola mundo", "Hola, querido mundo", 2, 1.0 / 3.0},
		{"everything new", "abc", "xyz", 1, 0.0},
		{"both empty", "", "  ", 0, 1.0},
		{"empty correction", "uno dos", "", 2, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareText(tt.original, tt.corrected)
			if got.WordEdits != tt.edits {
				t.Errorf("Expected %d edits, got %d", tt.edits, got.WordEdits)
			}
			if math.Abs(got.Similarity-tt.similarity) > 1e-9 {
				t.Errorf("Expected similarity %.3f, got %.3f", tt.similarity, got.Similarity)
			}
		})
	}
}

func TestAverageSimilarity(t *testing.T) {
	if got := AverageSimilarity(nil); got != 0.0 {
		t.Errorf("Expected 0 for no stats, got %f", got)
	}
	stats := []ChangeStats{{Similarity: 1.0}, {Similarity: 0.5}}
	if got := AverageSimilarity(stats); got != 0.75 {
		t.Errorf("Expected 0.75, got %f", got)
	}
}
