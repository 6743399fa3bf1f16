package scraper

// MetaRule names a meta tag selector and the attribute holding its price.
type MetaRule struct {
	Selector string
	Attr     string
}

// Vocabulary is the read-only configuration shared by the static strategies
// and the heuristic scorer. Tests substitute smaller fixtures.
type Vocabulary struct {
	// PriceSelectors are tried in order by the selector matcher.
	PriceSelectors []string
	// MetaRules are tried in order by the semantic matcher.
	MetaRules []MetaRule
	// StructuredDataPaths are gjson paths into JSON-LD blocks.
	StructuredDataPaths []string
	// TextPatterns are regular expressions over the visible page text; the
	// first capture group holds the number.
	TextPatterns []string

	// NoiseTags are removed before heuristic scoring.
	NoiseTags []string
	// CandidateTags are the elements the heuristic scorer inspects.
	CandidateTags []string
	// MaxCandidateText skips elements whose text is longer than this many characters.
	MaxCandidateText int
	// PriceClass is the class token that earns the class bonus.
	PriceClass string

	PromoWords      []string
	AggregateWords  []string
	ComparisonWords []string

	// MinKeywordLength: product name tokens must be longer than this to count.
	MinKeywordLength int
	// MaxCandidates caps the list handed to the disambiguator.
	MaxCandidates int

	// SalePriceXPath and RegularPriceXPath are probed in a rendered page.
	SalePriceXPath    string
	RegularPriceXPath string
}

// DefaultVocabulary returns the built-in selector lists and signal words.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		PriceSelectors: []string{
			"product-price", `[itemprop="price"]`, `[itemprop="priceCurrency"]`,
			".price", ".product-price", ".price-current", ".current-price",
			".final-price", ".sales-price", ".price--large", ".productPrice",
			".amount", ".value", ".pricing", ".product__price",
			".price-container", ".price-wrapper", "value",
		},
		MetaRules: []MetaRule{
			{Selector: `meta[itemprop="price"]`, Attr: "content"},
			{Selector: `meta[property="product:price:amount"]`, Attr: "content"},
		},
		StructuredDataPaths: []string{"offers.price", "offers.0.price"},
		TextPatterns: []string{
			`(?i)price[\s:]*[$€£]?\s*(\d+[.,]?\d*)`,
			`[$€£]\s*(\d+[.,]?\d*)`,
		},

		NoiseTags:        []string{"script", "style", "nav", "footer", "header", "iframe", "img"},
		CandidateTags:    []string{"span", "div", "p", "td", "li", "h1", "h2", "h3", "h4"},
		MaxCandidateText: 100,
		PriceClass:       "price",
		PromoWords:       []string{"only", "now", "special"},
		AggregateWords:   []string{"total", "subtotal", "tax", "shipping"},
		ComparisonWords:  []string{"original", "was"},
		MinKeywordLength: 3,
		MaxCandidates:    5,

		SalePriceXPath:    `//div[@data-bind="text: '$' + _source.currentPrice"]`,
		RegularPriceXPath: `//div[@data-bind="price: _source.regularPrice"]`,
	}
}
