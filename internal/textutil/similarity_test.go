package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "python tutorial", "python tutorial", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "python", "", 0.0},
		{"disjoint", "abc", "xyz", 0.0},
		{"partial", "abcd", "bcde", 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestRatioSymmetricRange(t *testing.T) {
	pairs := [][2]string{
		{"best python web framework", "top python web frameworks"},
		{"tata steel share price", "tata motors share price"},
		{"how to install playwright", "how to install selenium"},
	}
	for _, p := range pairs {
		ab := Ratio(p[0], p[1])
		ba := Ratio(p[1], p[0])
		assert.InDelta(t, ab, ba, 1e-9)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestTokenOverlap(t *testing.T) {
	a := []string{"tata", "steel", "share", "price"}
	b := []string{"tata", "motors", "share", "price"}
	assert.InDelta(t, 3.0/5.0, TokenOverlap(a, b), 1e-9)

	assert.Equal(t, 1.0, TokenOverlap(a, a))
	assert.Equal(t, 0.0, TokenOverlap(a, nil))
	assert.Equal(t, 1.0, TokenOverlap(nil, nil))
}
