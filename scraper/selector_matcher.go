package scraper

import (
	"context"

	"pricefinder/logger"
)

// SelectorMatcher looks up well-known price markup conventions with CSS selectors.
type SelectorMatcher struct {
	selectors []string
	log       logger.Logger
}

// NewSelectorMatcher creates a matcher over the vocabulary's price selectors.
func NewSelectorMatcher(vocab Vocabulary, log logger.Logger) *SelectorMatcher {
	return &SelectorMatcher{selectors: vocab.PriceSelectors, log: log}
}

// Name implements Strategy.
func (m *SelectorMatcher) Name() string { return StrategySelector }

// Extract normalizes the text of the first element matched by each selector in
// turn and returns the first value that parses.
func (m *SelectorMatcher) Extract(_ context.Context, page *Page) (float64, bool) {
	if page.Doc == nil {
		return 0, false
	}

	for _, selector := range m.selectors {
		el := page.Doc.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if price, ok := NormalizePrice(el.Text()); ok {
			m.log.Debug("Selector matched price",
				logger.String("selector", selector),
				logger.Float64("price", price),
			)
			return price, true
		}
	}

	return 0, false
}
