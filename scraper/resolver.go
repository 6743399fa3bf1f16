package scraper

import (
	"context"
	"math"
	"time"

	"pricefinder/logger"
)

// Strategy names, in default cascade order.
const (
	StrategySelector    = "selector"
	StrategySemantic    = "semantic"
	StrategyRendered    = "rendered"
	StrategyHeuristicAI = "heuristic_ai"
	// Unresolved labels a resolution no strategy produced.
	Unresolved = "unresolved"
)

// Page is the input every strategy works on.
type Page struct {
	URL         string
	Doc         *Document
	ProductName string
}

// Strategy is one stage of the price cascade. A false second return value is
// a miss and advances the cascade; strategies never fail the resolution.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, page *Page) (float64, bool)
}

// Resolution is the outcome of a cascade run.
type Resolution struct {
	Price    float64 `json:"price"`
	Resolved bool    `json:"resolved"`
	// Strategy names the stage that produced the price, or Unresolved.
	Strategy string `json:"strategy"`
}

// Recorder observes resolutions. metrics.Recorder implements it.
type Recorder interface {
	ObserveResolution(strategy string, elapsed time.Duration)
}

// Resolver runs strategies in order and stops at the first price.
type Resolver struct {
	strategies []Strategy
	recorder   Recorder
	log        logger.Logger
}

// NewResolver creates a resolver over an explicit strategy list.
func NewResolver(strategies []Strategy, recorder Recorder, log logger.Logger) *Resolver {
	return &Resolver{strategies: strategies, recorder: recorder, log: log}
}

// Request is a single resolution request.
type Request struct {
	URL         string
	HTML        string
	ProductName string
}

// Resolve parses the HTML once and runs the cascade against it. Unparseable
// HTML leaves an empty document, so only URL-driven strategies can still hit.
func (r *Resolver) Resolve(ctx context.Context, req Request) Resolution {
	doc, err := ParseDocument(req.HTML)
	if err != nil {
		r.log.Debug("Falling back to empty document", logger.Error(err))
		doc = emptyDocument()
	}
	return r.ResolvePage(ctx, &Page{URL: req.URL, Doc: doc, ProductName: req.ProductName})
}

// ResolvePage runs the cascade against an already parsed page.
func (r *Resolver) ResolvePage(ctx context.Context, page *Page) Resolution {
	start := time.Now()
	log := r.log.With(logger.String("url", page.URL), logger.String("product", page.ProductName))

	for _, strategy := range r.strategies {
		if ctx.Err() != nil {
			log.Warn("Resolution cancelled", logger.Error(ctx.Err()))
			break
		}

		price, ok := r.run(ctx, strategy, page)
		if !ok {
			log.Debug("Strategy missed", logger.String("strategy", strategy.Name()))
			continue
		}

		log.Info("Price resolved",
			logger.String("strategy", strategy.Name()),
			logger.Float64("price", price),
			logger.Duration("elapsed", time.Since(start)),
		)
		r.observe(strategy.Name(), start)
		return Resolution{Price: price, Resolved: true, Strategy: strategy.Name()}
	}

	log.Info("Price unresolved", logger.Duration("elapsed", time.Since(start)))
	r.observe(Unresolved, start)
	return Resolution{Strategy: Unresolved}
}

// run executes one strategy, turning a panic or an invalid value into a miss.
func (r *Resolver) run(ctx context.Context, strategy Strategy, page *Page) (price float64, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Strategy panicked", logger.String("strategy", strategy.Name()), logger.Any("panic", rec))
			price, ok = 0, false
		}
	}()

	price, ok = strategy.Extract(ctx, page)
	if ok && !validPrice(price) {
		return 0, false
	}
	return price, ok
}

func (r *Resolver) observe(strategy string, start time.Time) {
	if r.recorder != nil {
		r.recorder.ObserveResolution(strategy, time.Since(start))
	}
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// HeuristicAI scores candidate elements and hands the best ones to the
// disambiguator.
type HeuristicAI struct {
	scorer        *Scorer
	disambiguator *Disambiguator
	log           logger.Logger
}

// NewHeuristicAI creates the final cascade stage.
func NewHeuristicAI(scorer *Scorer, disambiguator *Disambiguator, log logger.Logger) *HeuristicAI {
	return &HeuristicAI{scorer: scorer, disambiguator: disambiguator, log: log}
}

// Name implements Strategy.
func (h *HeuristicAI) Name() string { return StrategyHeuristicAI }

// Extract implements Strategy.
func (h *HeuristicAI) Extract(ctx context.Context, page *Page) (float64, bool) {
	candidates := h.scorer.Score(page.Doc, page.ProductName)
	h.log.Debug("Scored price candidates", logger.Int("count", len(candidates)))
	return h.disambiguator.Choose(ctx, candidates, page.ProductName)
}

// DefaultStrategies builds the standard cascade: selector lookup, semantic
// lookup, rendered probe, then heuristic scoring with AI disambiguation.
func DefaultStrategies(
	vocab Vocabulary,
	probe *RenderedProbe,
	disambiguator *Disambiguator,
	log logger.Logger,
) []Strategy {
	strategies := []Strategy{
		NewSelectorMatcher(vocab, log),
		NewSemanticMatcher(vocab, log),
	}
	if probe != nil {
		strategies = append(strategies, probe)
	}
	if disambiguator != nil {
		strategies = append(strategies, NewHeuristicAI(NewScorer(vocab), disambiguator, log))
	}
	return strategies
}
