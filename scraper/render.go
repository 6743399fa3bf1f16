package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBodyTimeout is returned when a rendered page never produced a body element.
	ErrBodyTimeout = errors.New("timed out waiting for page body")
	// ErrNodeNotFound is returned when an XPath location has no node.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNavigationTimeout is returned when a page did not load in time.
	ErrNavigationTimeout = errors.New("timed out loading page")
)

// RenderSession is a live, queryable rendered page.
type RenderSession interface {
	// WaitBody blocks until the body element exists or the timeout elapses.
	WaitBody(timeout time.Duration) error
	// TextAt returns the text of the node at xpath. A zero timeout checks once
	// without waiting.
	TextAt(xpath string, timeout time.Duration) (string, error)
	// HTML returns the rendered page source.
	HTML() (string, error)
	// Close tears the session down, including the browser process.
	Close() error
}

// Renderer opens isolated rendering sessions.
type Renderer interface {
	Open(ctx context.Context, url string) (RenderSession, error)
}

// WithSession opens a session for url, runs fn and always closes the session,
// whether fn returns normally, returns an error or panics. Teardown errors are
// the session's to report; they never mask the result of fn.
func WithSession(ctx context.Context, r Renderer, url string, fn func(RenderSession) error) error {
	session, err := r.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("open render session: %w", err)
	}
	defer func() { _ = session.Close() }()

	return fn(session)
}

// navigate runs load with a deadline of timeout; zero means no deadline. An
// expired deadline is reported as ErrNavigationTimeout.
func navigate(ctx context.Context, url string, timeout time.Duration, load func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := load(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrNavigationTimeout, url, timeout)
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// RenderHTML renders url, waits for the body and returns the page source.
func RenderHTML(ctx context.Context, r Renderer, url string, bodyTimeout time.Duration) (string, error) {
	var source string
	err := WithSession(ctx, r, url, func(s RenderSession) error {
		if err := s.WaitBody(bodyTimeout); err != nil {
			return err
		}
		var err error
		source, err = s.HTML()
		return err
	})
	if err != nil {
		return "", err
	}
	return source, nil
}
