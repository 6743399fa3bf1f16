package scraper

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Signal weights used by the heuristic scorer.
const (
	currencyWeight   = 10
	priceClassWeight = 8
	promoWeight      = 5
	keywordWeight    = 3
	aggregatePenalty = 8
	comparePenalty   = 5
)

var (
	currencyNumber = regexp.MustCompile(`[$€£]\s*\d+`)
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// PriceCandidate is an element that plausibly holds the product price.
type PriceCandidate struct {
	Text   string `json:"text"`
	Markup string `json:"markup"`
	Score  int    `json:"score"`
}

// Scorer ranks page elements by how likely they are to hold the product price.
type Scorer struct {
	vocab Vocabulary
}

// NewScorer creates a scorer over the vocabulary.
func NewScorer(vocab Vocabulary) *Scorer {
	return &Scorer{vocab: vocab}
}

// Score returns the positively scored candidates of doc, highest first. Ties
// keep document order. The list is capped at the vocabulary's MaxCandidates.
func (s *Scorer) Score(doc *Document, productName string) []PriceCandidate {
	if doc == nil {
		return nil
	}

	scrubbed := doc.Scrubbed(s.vocab.NoiseTags)
	keywords := s.keywords(productName)

	var candidates []PriceCandidate
	scrubbed.Find(strings.Join(s.vocab.CandidateTags, ", ")).Each(func(_ int, el *goquery.Selection) {
		text := elementText(el)
		if text == "" || utf8.RuneCountInString(text) > s.vocab.MaxCandidateText {
			return
		}

		score := s.scoreElement(el, text, keywords)
		if score <= 0 {
			return
		}

		markup, err := goquery.OuterHtml(el)
		if err != nil {
			markup = text
		}
		candidates = append(candidates, PriceCandidate{Text: text, Markup: markup, Score: score})
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if s.vocab.MaxCandidates > 0 && len(candidates) > s.vocab.MaxCandidates {
		candidates = candidates[:s.vocab.MaxCandidates]
	}
	return candidates
}

func (s *Scorer) scoreElement(el *goquery.Selection, text string, keywords []string) int {
	lower := strings.ToLower(text)
	score := 0

	if currencyNumber.MatchString(text) {
		score += currencyWeight
	}
	if hasClass(el, s.vocab.PriceClass) {
		score += priceClassWeight
	}
	if containsAny(lower, s.vocab.PromoWords) {
		score += promoWeight
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			score += keywordWeight
		}
	}
	if containsAny(lower, s.vocab.AggregateWords) {
		score -= aggregatePenalty
	}
	if containsAny(lower, s.vocab.ComparisonWords) {
		score -= comparePenalty
	}

	return score
}

// keywords returns the distinct lower-cased tokens of name longer than the
// vocabulary's minimum keyword length.
func (s *Scorer) keywords(name string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, word := range wordPattern.FindAllString(name, -1) {
		if utf8.RuneCountInString(word) <= s.vocab.MinKeywordLength {
			continue
		}
		word = strings.ToLower(word)
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}

func hasClass(el *goquery.Selection, class string) bool {
	if class == "" {
		return false
	}
	attr, _ := el.Attr("class")
	for _, c := range strings.Fields(attr) {
		if c == class {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
