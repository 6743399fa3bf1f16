package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pricefinder/logger"
)

var (
	// ErrUnexpectedStatus is returned when a page fetch does not answer 200.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrBotWall is returned when the fetched page is an anti-bot interstitial.
	ErrBotWall = errors.New("bot wall detected")
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// maxPageBytes caps how much of a response body is read.
	maxPageBytes = 10 << 20
)

// PageFetcher retrieves the raw HTML of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher fetches pages with a plain GET.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	detector  *BotDetector
	log       logger.Logger
}

// NewHTTPFetcher creates a fetcher. An empty userAgent uses a desktop Chrome
// identity.
func NewHTTPFetcher(timeout time.Duration, userAgent string, detector *BotDetector, log logger.Logger) *HTTPFetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		detector:  detector,
		log:       log,
	}
}

// Fetch returns the body of url. Non-200 answers and detected bot walls are
// errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: %w: %d", url, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	html := string(body)

	if f.detector != nil {
		doc, parseErr := ParseDocument(html)
		if parseErr == nil {
			if verdict := f.detector.Inspect(doc); verdict.Blocked {
				f.log.Warn("Bot wall detected",
					logger.String("url", url),
					logger.String("kind", verdict.Kind),
					logger.Float64("score", verdict.Score),
					logger.String("reason", verdict.Reason()),
				)
				return "", fmt.Errorf("fetch %s: %w (%s)", url, ErrBotWall, verdict.Kind)
			}
		}
	}

	f.log.Debug("Fetched page", logger.String("url", url), logger.Int("bytes", len(body)))
	return html, nil
}
