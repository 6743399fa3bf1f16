package scraper

import (
	"context"
	"fmt"
	"time"

	"pricefinder/logger"
)

// PriceService is the application's entry point into the cascade. It owns
// page acquisition; the resolver only ever sees HTML.
type PriceService struct {
	resolver    *Resolver
	fetcher     PageFetcher
	renderer    Renderer
	bodyTimeout time.Duration
	log         logger.Logger
}

// NewPriceService creates a service. renderer may be nil, in which case pages
// that cannot be fetched resolve against an empty document.
func NewPriceService(
	resolver *Resolver,
	fetcher PageFetcher,
	renderer Renderer,
	bodyTimeout time.Duration,
	log logger.Logger,
) *PriceService {
	return &PriceService{
		resolver:    resolver,
		fetcher:     fetcher,
		renderer:    renderer,
		bodyTimeout: bodyTimeout,
		log:         log,
	}
}

// ResolveURL fetches url and resolves its price. When the plain fetch fails
// the page is rendered and its rendered source is used instead.
func (s *PriceService) ResolveURL(ctx context.Context, url, productName string) Resolution {
	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("Page fetch failed, rendering instead", logger.String("url", url), logger.Error(err))
		html = s.rendered(ctx, url)
	}
	return s.resolver.Resolve(ctx, Request{URL: url, HTML: html, ProductName: productName})
}

// ResolveHTML resolves caller-supplied HTML for url.
func (s *PriceService) ResolveHTML(ctx context.Context, url, html, productName string) Resolution {
	return s.resolver.Resolve(ctx, Request{URL: url, HTML: html, ProductName: productName})
}

// ValidateURL loads url in a rendering session and waits for the body.
func (s *PriceService) ValidateURL(ctx context.Context, url string) error {
	if s.renderer == nil {
		return nil
	}
	err := WithSession(ctx, s.renderer, url, func(session RenderSession) error {
		return session.WaitBody(s.bodyTimeout)
	})
	if err != nil {
		return fmt.Errorf("validate %s: %w", url, err)
	}
	return nil
}

func (s *PriceService) rendered(ctx context.Context, url string) string {
	if s.renderer == nil {
		return ""
	}
	html, err := RenderHTML(ctx, s.renderer, url, s.bodyTimeout)
	if err != nil {
		s.log.Warn("Page render failed", logger.String("url", url), logger.Error(err))
		return ""
	}
	return html
}
