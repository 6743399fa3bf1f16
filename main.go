package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"pricefinder/config"
	"pricefinder/database"
	"pricefinder/handlers"
	"pricefinder/llm"
	"pricefinder/logger"
	"pricefinder/metrics"
	"pricefinder/middleware"
	"pricefinder/repository"
	"pricefinder/scheduler"
	"pricefinder/scraper"
	"pricefinder/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLog.Sync() }()

	if err := run(cfg, appLog); err != nil {
		appLog.Fatal("Server failed", logger.Error(err))
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := database.CreateTables(ctx, db); err != nil {
		return err
	}
	log.Info("Database ready")

	recorder := metrics.New(nil)
	prices, err := newPriceService(cfg, recorder, log)
	if err != nil {
		return err
	}

	products := services.NewProductService(repository.NewProductRepository(db), prices, recorder, log)

	if cfg.Scheduler.Enabled {
		refresher := scheduler.NewPriceRefresher(cfg.Scheduler.Schedule, products, cfg.Scheduler.Timeout, log)
		if err := refresher.Start(); err != nil {
			return err
		}
		defer refresher.Stop()
	}

	tasks := scheduler.NewTaskManager(products, cfg.Scheduler.Timeout, log)
	defer tasks.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newRouter(cfg, handlers.NewHandlers(products, tasks, log), recorder, log),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPriceService assembles the strategy cascade. The rendered probe needs the
// browser and the heuristic stage needs the model; each is left out when
// disabled.
func newPriceService(cfg *config.Config, recorder scraper.Recorder, log logger.Logger) (*scraper.PriceService, error) {
	vocab := scraper.DefaultVocabulary()

	var (
		renderer      scraper.Renderer
		probe         *scraper.RenderedProbe
		disambiguator *scraper.Disambiguator
	)
	if cfg.Browser.Enabled {
		renderer = scraper.NewRodRenderer(cfg.Browser.Bin, cfg.Browser.NavigationTimeout, log)
		probe = scraper.NewRenderedProbe(renderer, vocab, cfg.Browser.BodyTimeout, cfg.Browser.NodeTimeout, log)
	}
	if cfg.LLM.Enabled {
		client, err := llm.NewOllamaClient(llm.Config{
			Host:    cfg.LLM.Host,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, log)
		if err != nil {
			return nil, err
		}
		disambiguator = scraper.NewDisambiguator(client, scraper.InferenceOptions{
			Temperature:   cfg.LLM.Temperature,
			ContextWindow: cfg.LLM.ContextWindow,
		}, log)
	}

	resolver := scraper.NewResolver(scraper.DefaultStrategies(vocab, probe, disambiguator, log), recorder, log)
	fetcher := scraper.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, scraper.NewBotDetector(), log)
	return scraper.NewPriceService(resolver, fetcher, renderer, cfg.Browser.BodyTimeout, log), nil
}

func newRouter(cfg *config.Config, h *handlers.Handlers, recorder *metrics.Recorder, log logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.RateLimit(cfg.Server.RateLimitPerSecond))
	r.Use(middleware.APIKey(cfg.Server.APIKeys))
	r.Use(middleware.MaxBodySize(cfg.Server.MaxRequestSize))

	r.Handle("/metrics", recorder.Handler()).Methods(http.MethodGet)
	h.RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
