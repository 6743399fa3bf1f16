package scraper

import (
	"context"
	"time"

	"pricefinder/logger"
)

// RenderedProbe renders the page and reads the sale or regular price node at
// fixed XPath locations. It runs only after the static strategies missed.
type RenderedProbe struct {
	renderer     Renderer
	saleXPath    string
	regularXPath string
	bodyTimeout  time.Duration
	nodeTimeout  time.Duration
	log          logger.Logger
}

// NewRenderedProbe creates a probe. bodyTimeout bounds the wait for the page
// body and nodeTimeout bounds the wait for the sale price node.
func NewRenderedProbe(
	renderer Renderer,
	vocab Vocabulary,
	bodyTimeout, nodeTimeout time.Duration,
	log logger.Logger,
) *RenderedProbe {
	return &RenderedProbe{
		renderer:     renderer,
		saleXPath:    vocab.SalePriceXPath,
		regularXPath: vocab.RegularPriceXPath,
		bodyTimeout:  bodyTimeout,
		nodeTimeout:  nodeTimeout,
		log:          log,
	}
}

// Name implements Strategy.
func (p *RenderedProbe) Name() string { return StrategyRendered }

// Extract implements Strategy.
func (p *RenderedProbe) Extract(ctx context.Context, page *Page) (float64, bool) {
	if p.renderer == nil || page.URL == "" {
		return 0, false
	}

	var (
		price float64
		found bool
	)
	err := WithSession(ctx, p.renderer, page.URL, func(s RenderSession) error {
		if err := s.WaitBody(p.bodyTimeout); err != nil {
			return err
		}

		probes := []struct {
			label   string
			xpath   string
			timeout time.Duration
		}{
			{"sale", p.saleXPath, p.nodeTimeout},
			{"regular", p.regularXPath, 0},
		}
		for _, probe := range probes {
			if probe.xpath == "" {
				continue
			}
			text, err := s.TextAt(probe.xpath, probe.timeout)
			if err != nil {
				p.log.Debug("Rendered price node missing", logger.String("node", probe.label), logger.Error(err))
				continue
			}
			if value, ok := NormalizePrice(text); ok {
				p.log.Debug("Rendered price node matched", logger.String("node", probe.label), logger.Float64("price", value))
				price, found = value, true
				return nil
			}
		}
		return nil
	})

	if found {
		return price, true
	}
	if err != nil {
		p.log.Warn("Rendered probe failed", logger.String("url", page.URL), logger.Error(err))
	}
	return 0, false
}
