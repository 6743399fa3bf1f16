package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pricefinder/logger"
	"pricefinder/models"
)

// Refresher refreshes product prices. An empty id list means every product.
type Refresher interface {
	Refresh(ctx context.Context, ids []int) (*models.RefreshSummary, error)
}

// PriceRefresher runs a full price refresh on a cron schedule.
type PriceRefresher struct {
	cron      *cron.Cron
	schedule  string
	refresher Refresher
	timeout   time.Duration
	log       logger.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewPriceRefresher creates a refresher for a seconds-precision cron
// schedule. timeout bounds a single run; zero means no bound.
func NewPriceRefresher(schedule string, refresher Refresher, timeout time.Duration, log logger.Logger) *PriceRefresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &PriceRefresher{
		cron:      cron.New(cron.WithSeconds()),
		schedule:  schedule,
		refresher: refresher,
		timeout:   timeout,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the refresh job and starts the cron runner.
func (r *PriceRefresher) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.RunOnce); err != nil {
		return fmt.Errorf("schedule price refresh %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.log.Info("Price refresh scheduled", logger.String("schedule", r.schedule))
	return nil
}

// Stop cancels a running refresh and waits for the cron runner to finish.
func (r *PriceRefresher) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.log.Info("Price refresh stopped")
}

// RunOnce refreshes every product. A run that starts while another is still
// in progress is skipped.
func (r *PriceRefresher) RunOnce() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.log.Warn("Previous price refresh still running, skipping")
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	r.log.Info("Starting scheduled price refresh")
	summary, err := r.refresher.Refresh(ctx, nil)
	if err != nil {
		r.log.Error("Scheduled price refresh failed", logger.Error(err))
		return
	}
	r.log.Info("Scheduled price refresh finished",
		logger.Int("updated", summary.Updated),
		logger.Int("total", summary.Total),
		logger.Duration("elapsed", time.Since(start)),
	)
}
