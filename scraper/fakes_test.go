package scraper

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

// fakeInferencer answers every prompt with a fixed response.
type fakeInferencer struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	prompts  []string
	opts     InferenceOptions
}

func (f *fakeInferencer) Infer(_ context.Context, prompt string, opts InferenceOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.opts = opts
	return f.response, f.err
}

// fakeSession serves node texts keyed by XPath.
type fakeSession struct {
	mu          sync.Mutex
	bodyErr     error
	nodes       map[string]string
	html        string
	closed      int
	textTimeout map[string]time.Duration
}

func (s *fakeSession) WaitBody(time.Duration) error { return s.bodyErr }

func (s *fakeSession) TextAt(xpath string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.textTimeout == nil {
		s.textTimeout = make(map[string]time.Duration)
	}
	s.textTimeout[xpath] = timeout
	text, ok := s.nodes[xpath]
	if !ok {
		return "", ErrNodeNotFound
	}
	return text, nil
}

func (s *fakeSession) HTML() (string, error) { return s.html, nil }

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// fakeRenderer hands out a single session. A hanging renderer never finishes
// loading the page, so Open only returns once navTimeout expires.
type fakeRenderer struct {
	session    *fakeSession
	openErr    error
	hanging    bool
	navTimeout time.Duration
	opened     int
	urls       []string
}

func (r *fakeRenderer) Open(ctx context.Context, url string) (RenderSession, error) {
	r.opened++
	r.urls = append(r.urls, url)
	if r.openErr != nil {
		return nil, r.openErr
	}
	if r.hanging {
		err := navigate(ctx, url, r.navTimeout, func(navCtx context.Context) error {
			<-navCtx.Done()
			return navCtx.Err()
		})
		return nil, err
	}
	return r.session, nil
}

// fakeFetcher returns a fixed page or error.
type fakeFetcher struct {
	html  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(context.Context, string) (string, error) {
	f.calls++
	return f.html, f.err
}

// stubStrategy returns a fixed outcome and counts its invocations.
type stubStrategy struct {
	name  string
	price float64
	hit   bool
	panic bool
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(context.Context, *Page) (float64, bool) {
	s.calls++
	if s.panic {
		panic("strategy exploded")
	}
	return s.price, s.hit
}

// recordingRecorder captures observed strategy labels.
type recordingRecorder struct {
	strategies []string
}

func (r *recordingRecorder) ObserveResolution(strategy string, _ time.Duration) {
	r.strategies = append(r.strategies, strategy)
}

func mustParse(html string) *Document {
	doc, err := ParseDocument(html)
	if err != nil {
		panic(err)
	}
	return doc
}
