package scraper

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"pricefinder/logger"
)

const structuredDataSelector = `script[type="application/ld+json"]`

// SemanticMatcher reads prices from structured metadata: meta tags, JSON-LD
// blocks and price-labelled text patterns, in that order.
type SemanticMatcher struct {
	metaRules []MetaRule
	jsonPaths []string
	patterns  []*regexp.Regexp
	log       logger.Logger
}

// NewSemanticMatcher creates a matcher from the vocabulary. Invalid text
// patterns are skipped.
func NewSemanticMatcher(vocab Vocabulary, log logger.Logger) *SemanticMatcher {
	m := &SemanticMatcher{
		metaRules: vocab.MetaRules,
		jsonPaths: vocab.StructuredDataPaths,
		log:       log,
	}
	for _, p := range vocab.TextPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			log.Warn("Skipping invalid price text pattern", logger.String("pattern", p), logger.Error(err))
			continue
		}
		m.patterns = append(m.patterns, re)
	}
	return m
}

// Name implements Strategy.
func (m *SemanticMatcher) Name() string { return StrategySemantic }

// Extract implements Strategy.
func (m *SemanticMatcher) Extract(_ context.Context, page *Page) (float64, bool) {
	if page.Doc == nil {
		return 0, false
	}

	if price, ok := m.fromMeta(page.Doc); ok {
		return price, true
	}
	if price, ok := m.fromStructuredData(page.Doc); ok {
		return price, true
	}
	return m.fromText(page.Doc)
}

func (m *SemanticMatcher) fromMeta(doc *Document) (float64, bool) {
	for _, rule := range m.metaRules {
		var (
			price float64
			found bool
		)
		doc.Find(rule.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			content, exists := s.Attr(rule.Attr)
			if !exists {
				return true
			}
			price, found = NormalizePrice(content)
			return !found
		})
		if found {
			m.log.Debug("Meta tag matched price", logger.String("selector", rule.Selector), logger.Float64("price", price))
			return price, true
		}
	}
	return 0, false
}

func (m *SemanticMatcher) fromStructuredData(doc *Document) (float64, bool) {
	var (
		price float64
		found bool
	)
	doc.Find(structuredDataSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		block := strings.TrimSpace(s.Text())
		if !gjson.Valid(block) {
			return true
		}
		for _, path := range m.jsonPaths {
			price, found = priceFromJSON(gjson.Get(block, path))
			if found {
				m.log.Debug("Structured data matched price", logger.String("path", path), logger.Float64("price", price))
				return false
			}
		}
		return true
	})
	return price, found
}

// priceFromJSON accepts a JSON number directly and normalizes a JSON string.
func priceFromJSON(value gjson.Result) (float64, bool) {
	switch value.Type {
	case gjson.Number:
		f := value.Float()
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case gjson.String:
		return NormalizePrice(value.String())
	default:
		return 0, false
	}
}

func (m *SemanticMatcher) fromText(doc *Document) (float64, bool) {
	text := doc.VisibleText()
	for _, re := range m.patterns {
		match := re.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		if price, ok := NormalizePrice(match[1]); ok {
			m.log.Debug("Text pattern matched price", logger.String("pattern", re.String()), logger.Float64("price", price))
			return price, true
		}
	}
	return 0, false
}
