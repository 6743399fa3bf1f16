package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{name: "dollar amount", text: "$19.99", want: 19.99, found: true},
		{name: "euro with label", text: "Price: €45.00", want: 45, found: true},
		{name: "pound without cents", text: "£120", want: 120, found: true},
		{name: "thousands with comma", text: "$1,299", want: 1299, found: true},
		{name: "thousands with cents", text: "$1,299.99", found: false},
		{name: "surrounding whitespace", text: "\n   $ 24.50  \n", want: 24.5, found: true},
		{name: "two values take the larger", text: "Was $50 now $39.95", want: 50, found: true},
		{name: "three values take the middle", text: "10 20 30", want: 20, found: true},
		{name: "no number", text: "free shipping", found: false},
		{name: "empty", text: "", found: false},
		{name: "trailing punctuation", text: "$50,", found: false},
		{name: "glued to a word", text: "abc123", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePrice(tt.text)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNormalizePriceIsDeterministic(t *testing.T) {
	first, ok := NormalizePrice("Was $50 now $39.95")
	assert.True(t, ok)
	for range 10 {
		again, _ := NormalizePrice("Was $50 now $39.95")
		assert.InDelta(t, first, again, 0)
	}
}
