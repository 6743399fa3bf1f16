package scraper

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// priceShape matches an optional currency symbol followed by 1-3 leading digits,
// an optional 2-3 digit decimal group and repeated 3 digit groups. The number
// must start after whitespace or the start of the text and end before
// whitespace or the end of the text, so "$1,299.99" has no match.
var priceShape = regexp.MustCompile(`(?:^|\s)(?:[$€£]?\s*)?(\d{1,3}(?:[.,]\d{2,3})?(?:[.,]\d{3})*)(?:\s|$)`)

// NormalizePrice turns free-form text into a single price value.
//
// Every price-shaped number in text is collected and the median of the sorted
// values is returned. With two values the larger one wins, so a text such as
// "Was $50 now $39.95" resolves to 50. That is a known limitation of the
// median rule and is kept on purpose.
func NormalizePrice(text string) (float64, bool) {
	prices := matchPrices(text)
	if len(prices) == 0 {
		return 0, false
	}

	sort.Float64s(prices)
	return prices[len(prices)/2], true
}

// matchPrices returns every parseable price-shaped number in text in document order.
func matchPrices(text string) []float64 {
	var prices []float64

	pos := 0
	for pos < len(text) {
		loc := priceShape.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}

		raw := strings.ReplaceAll(text[pos+loc[2]:pos+loc[3]], ",", "")
		if value, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(value, 0) && !math.IsNaN(value) {
			prices = append(prices, value)
		}

		end := pos + loc[1]
		// A trailing whitespace boundary is shared with the next number.
		if end > pos && isSpace(text[end-1]) {
			end--
		}
		if end <= pos {
			end = pos + 1
		}
		pos = end
	}

	return prices
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}
