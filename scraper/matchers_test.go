package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"pricefinder/logger"
)

func TestSelectorMatcher(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		want  float64
		found bool
	}{
		{
			name:  "price class",
			html:  `<html><body><span class="price">$24.99</span></body></html>`,
			want:  24.99,
			found: true,
		},
		{
			name:  "itemprop wins over class",
			html:  `<div class="price">$10.00</div><span itemprop="price">$12.00</span>`,
			want:  12,
			found: true,
		},
		{
			name:  "later selector after unparseable earlier one",
			html:  `<div class="price">Call us</div><div class="amount">$7.25</div>`,
			want:  7.25,
			found: true,
		},
		{
			name:  "only the first element per selector is tried",
			html:  `<div class="price">Call us</div><div class="price">$5.00</div>`,
			found: false,
		},
		{
			name:  "no price markup",
			html:  `<p>Nothing to see</p>`,
			found: false,
		},
	}

	m := NewSelectorMatcher(DefaultVocabulary(), logger.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Extract(context.Background(), &Page{Doc: mustParse(tt.html)})
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestSelectorMatcherNilDocument(t *testing.T) {
	m := NewSelectorMatcher(DefaultVocabulary(), logger.NewNop())
	_, ok := m.Extract(context.Background(), &Page{})
	assert.False(t, ok)
}

func TestSemanticMatcher(t *testing.T) {
	tests := []struct {
		name  string
		html  string
		want  float64
		found bool
	}{
		{
			name:  "itemprop meta",
			html:  `<html><head><meta itemprop="price" content="45.00"></head><body></body></html>`,
			want:  45,
			found: true,
		},
		{
			name:  "open graph meta",
			html:  `<head><meta property="product:price:amount" content="18.40"></head>`,
			want:  18.4,
			found: true,
		},
		{
			name: "json-ld string price",
			html: `<script type="application/ld+json">
				{"@type":"Product","name":"Kettle","offers":{"@type":"Offer","price":"129.50"}}
			</script>`,
			want:  129.5,
			found: true,
		},
		{
			name:  "json-ld numeric price",
			html:  `<script type="application/ld+json">{"offers":{"price":12.5}}</script>`,
			want:  12.5,
			found: true,
		},
		{
			name:  "json-ld offer list",
			html:  `<script type="application/ld+json">{"offers":[{"price":"9.99"}]}</script>`,
			want:  9.99,
			found: true,
		},
		{
			name: "invalid json-ld is skipped",
			html: `<script type="application/ld+json">{not json</script>
				<script type="application/ld+json">{"offers":{"price":"3.00"}}</script>`,
			want:  3,
			found: true,
		},
		{
			name:  "price label in text",
			html:  `<body><p>Our Price: 33.10</p></body>`,
			want:  33.1,
			found: true,
		},
		{
			name:  "currency in text",
			html:  `<body><p>Yours for $ 8.75</p></body>`,
			want:  8.75,
			found: true,
		},
		{
			name:  "script text is not visible",
			html:  `<body><script>var price = "$99.00";</script><p>Sold out</p></body>`,
			found: false,
		},
		{
			name:  "nothing",
			html:  `<body><p>Sold out</p></body>`,
			found: false,
		},
	}

	m := NewSemanticMatcher(DefaultVocabulary(), logger.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Extract(context.Background(), &Page{Doc: mustParse(tt.html)})
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestSemanticMatcherSkipsInvalidPatterns(t *testing.T) {
	vocab := DefaultVocabulary()
	vocab.TextPatterns = []string{`(unclosed`, `cost (\d+)`}

	m := NewSemanticMatcher(vocab, logger.NewNop())
	assert.Len(t, m.patterns, 1)

	got, ok := m.Extract(context.Background(), &Page{Doc: mustParse(`<p>cost 15 today</p>`)})
	assert.True(t, ok)
	assert.InDelta(t, 15, got, 0)
}
