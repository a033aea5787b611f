package similarity

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectorEncoder returns canned vectors per input text.
type vectorEncoder struct {
	vectors map[string][]float32
	calls   int
}

func (e *vectorEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	e.calls++
	v, ok := e.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1.0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0.0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1.0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0.0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 2}, want: 0.0},
		{name: "empty", a: nil, b: nil, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineScale_Invariant(t *testing.T) {
	a := []float32{0.3, 0.8, 0.1}
	b := []float32{0.6, 1.6, 0.2} // 2*a
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
}

func TestAddressSimilarityEmptyInputIsNoSignal(t *testing.T) {
	enc := &vectorEncoder{}

	for _, pair := range [][2]string{{"", "MG Road"}, {"MG Road", ""}, {"", ""}} {
		score, err := AddressSimilarity(context.Background(), enc, pair[0], pair[1])
		require.NoError(t, err)
		assert.Zero(t, score)
	}
	assert.Zero(t, enc.calls, "empty input must not reach the encoder")
}

func TestAddressSimilarityUsesEncoderVectors(t *testing.T) {
	enc := &vectorEncoder{vectors: map[string][]float32{
		"Whitefield":                 {1, 0},
		"Gate 1, Forum Mall, Whitefield": {0.9, 0.1},
	}}

	score, err := AddressSimilarity(context.Background(), enc, "Whitefield", "Gate 1, Forum Mall, Whitefield")
	require.NoError(t, err)

	want := Cosine([]float32{1, 0}, []float32{0.9, 0.1})
	assert.InDelta(t, want, score, 1e-9)
	assert.False(t, math.IsNaN(score))
}

func TestAddressSimilarityPropagatesEncoderError(t *testing.T) {
	enc := &vectorEncoder{vectors: map[string][]float32{"known": {1}}}

	_, err := AddressSimilarity(context.Background(), enc, "known", "unknown")
	require.Error(t, err)
}
