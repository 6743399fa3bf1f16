package scraper

import (
	"context"
	"fmt"
	"strings"

	"pricefinder/logger"
)

const (
	unknownProduct = "unknown product"
	// maxPromptMarkup bounds the markup of each candidate in the prompt.
	maxPromptMarkup = 500
)

// InferenceOptions are the scalar sampling options sent with a prompt.
type InferenceOptions struct {
	Temperature   float64
	ContextWindow int
}

// Inferencer sends a prompt to a language model and returns its response text.
type Inferencer interface {
	Infer(ctx context.Context, prompt string, opts InferenceOptions) (string, error)
}

// Disambiguator asks a language model to pick the product price among the
// scored candidates.
type Disambiguator struct {
	inferencer Inferencer
	opts       InferenceOptions
	log        logger.Logger
}

// NewDisambiguator creates a disambiguator.
func NewDisambiguator(inferencer Inferencer, opts InferenceOptions, log logger.Logger) *Disambiguator {
	return &Disambiguator{inferencer: inferencer, opts: opts, log: log}
}

// Choose returns the price the model selected. Any inference failure, and any
// answer without a number (including "Not found"), is a miss.
func (d *Disambiguator) Choose(ctx context.Context, candidates []PriceCandidate, productName string) (float64, bool) {
	if d.inferencer == nil {
		return 0, false
	}
	if len(candidates) == 0 {
		d.log.Debug("No price candidates, skipping inference")
		return 0, false
	}

	response, err := d.inferencer.Infer(ctx, BuildPrompt(candidates, productName), d.opts)
	if err != nil {
		d.log.Warn("Price inference failed", logger.Error(err))
		return 0, false
	}

	d.log.Debug("Price inference answered", logger.String("response", strings.TrimSpace(response)))
	return NormalizePrice(response)
}

// BuildPrompt renders the candidates and selection rules into a single prompt.
func BuildPrompt(candidates []PriceCandidate, productName string) string {
	if strings.TrimSpace(productName) == "" {
		productName = unknownProduct
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these webpage elements and extract JUST the current price for the product: %s.\n\n", productName)
	b.WriteString("IMPORTANT RULES:\n")
	b.WriteString("1. Match the price that most closely relates to the product name\n")
	b.WriteString("2. Prioritize prices near product names or images\n")
	b.WriteString("3. Ignore crossed-out prices (e.g., \"~~$50~~\") or comparison prices\n")
	b.WriteString("4. Reject prices that appear in unrelated sections (cart totals, shipping fees)\n")
	b.WriteString("5. If multiple valid prices exist, choose the one with strongest product association\n")
	b.WriteString("6. Return ONLY the numeric value (e.g., 19.99) or 'Not found' if uncertain\n\n")
	b.WriteString("ANALYSIS CONTEXT:\n")
	b.WriteString("Potential price elements from webpage:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "\nCandidate %d (score: %d):\n", i+1, c.Score)
		fmt.Fprintf(&b, "Text: %s\n", c.Text)
		fmt.Fprintf(&b, "HTML: %s\n", truncate(c.Markup, maxPromptMarkup))
	}
	b.WriteString("\nFINAL PRICE DECISION:")
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
