package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"pricefinder/logger"
)

const (
	defaultNavigationTimeout = 30 * time.Second

	systemChromium   = "/usr/bin/chromium-browser"
	desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// RodRenderer launches a dedicated headless Chromium per session.
type RodRenderer struct {
	bin        string
	navTimeout time.Duration
	log        logger.Logger
}

// NewRodRenderer creates a renderer. An empty bin uses the system Chromium when
// it is installed (Docker images) and rod's auto-detected browser otherwise.
// navTimeout bounds page navigation; zero uses 30s.
func NewRodRenderer(bin string, navTimeout time.Duration, log logger.Logger) *RodRenderer {
	if navTimeout <= 0 {
		navTimeout = defaultNavigationTimeout
	}
	if bin == "" {
		if _, err := os.Stat(systemChromium); err == nil {
			bin = systemChromium
		}
	}
	if bin != "" {
		log.Info("Using configured Chromium binary", logger.String("bin", bin))
	} else {
		log.Info("Using auto-detected Chromium")
	}
	return &RodRenderer{bin: bin, navTimeout: navTimeout, log: log}
}

// Open implements Renderer. The returned session owns the browser process.
func (r *RodRenderer) Open(ctx context.Context, url string) (RenderSession, error) {
	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage")
	if r.bin != "" {
		l = l.Bin(r.bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	session := &rodSession{launcher: l, log: r.log}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	session.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	session.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		r.log.Debug("Failed to set viewport", logger.Error(err))
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: desktopUserAgent}); err != nil {
		r.log.Debug("Failed to set user agent", logger.Error(err))
	}

	err = navigate(ctx, url, r.navTimeout, func(navCtx context.Context) error {
		return page.Context(navCtx).Navigate(url)
	})
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	return session, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	log      logger.Logger
}

func (s *rodSession) WaitBody(timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	if _, err := p.Element("body"); err != nil {
		return fmt.Errorf("%w: %v", ErrBodyTimeout, err)
	}
	return nil
}

func (s *rodSession) TextAt(xpath string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		has, el, err := s.page.HasX(xpath)
		if err != nil {
			return "", fmt.Errorf("query %s: %w", xpath, err)
		}
		if !has {
			return "", fmt.Errorf("%w: %s", ErrNodeNotFound, xpath)
		}
		return el.Text()
	}

	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.ElementX(xpath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNodeNotFound, xpath, err)
	}
	return el.Text()
}

func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

// Close closes the page and browser and kills the browser process.
func (s *rodSession) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}

	err := errors.Join(errs...)
	if err != nil {
		s.log.Debug("Render session closed with errors", logger.Error(err))
	}
	return err
}
