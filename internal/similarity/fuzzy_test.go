package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSimilarityIdenticalTokenSets(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{name: "same string", a: "Ashwini Kumar", b: "Ashwini Kumar"},
		{name: "reordered tokens", a: "Kumar Ashwini", b: "Ashwini Kumar"},
		{name: "duplicated tokens", a: "Ashwini Ashwini Kumar", b: "Ashwini Kumar"},
		{name: "case insensitive", a: "ASHWINI KUMAR", b: "ashwini kumar"},
		{name: "punctuation stripped", a: "Ashwini Kumar.", b: "Ashwini, Kumar"},
		{name: "ocr shouting with trailing dot", a: "ASHWINI KUMAR.", b: "Ashwini Kumar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 100, NameSimilarity(tt.a, tt.b))
		})
	}
}

func TestNameSimilarityDisjointTokens(t *testing.T) {
	assert.Equal(t, 0, NameSimilarity("abcd", "wxyz"))
}

func TestNameSimilaritySymmetry(t *testing.T) {
	pairs := [][2]string{
		{"Ashwini K", "Ashwini Kumar"},
		{"Ravi Shankar Prasad", "R S Prasad"},
		{"priya", "Priya Sharma"},
	}

	for _, p := range pairs {
		assert.Equal(t, NameSimilarity(p[0], p[1]), NameSimilarity(p[1], p[0]),
			"score must be symmetric for %q / %q", p[0], p[1])
	}
}

func TestNameSimilarityRange(t *testing.T) {
	pairs := [][2]string{
		{"Ashwini K", "Ashwini Kumar"},
		{"abcd", "wxyz"},
		{"partial overlap here", "overlap"},
	}

	for _, p := range pairs {
		score := NameSimilarity(p[0], p[1])
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestNameSimilarityAbbreviatedSurname(t *testing.T) {
	// Receipt apps often truncate surnames; the token-set ratio should
	// still clear the default 75 threshold.
	score := NameSimilarity("Ashwini K", "Ashwini Kumar")
	assert.GreaterOrEqual(t, score, 75)
}

func TestNameSimilarityUppercaseVariantClearsThreshold(t *testing.T) {
	// Ride-hailing receipts often carry the rider name in caps with an
	// abbreviated surname. Normalization must keep these above 75.
	score := NameSimilarity("ASHWINI K.", "Ashwini Kumar")
	assert.GreaterOrEqual(t, score, 75)
}
