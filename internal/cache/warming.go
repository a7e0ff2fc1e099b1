package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/breatheasy/aqi-service/internal/models"
	"github.com/breatheasy/aqi-service/internal/observability"
)

// ReportFetcher is implemented by the service layer. Used by Warmer to avoid
// a circular dependency on the service package.
type ReportFetcher interface {
	GetCurrent(ctx context.Context, coord models.Coordinate) (models.Report, error)
}

// Warmer prefetches current-conditions reports for a fixed set of
// coordinates so the first user request for a tracked location is a hit.
type Warmer struct {
	fetcher   ReportFetcher
	logger    *zap.Logger
	scheduler *gocron.Scheduler
}

// NewWarmer creates a Warmer that uses the given fetcher and logger.
func NewWarmer(fetcher ReportFetcher, logger *zap.Logger) *Warmer {
	return &Warmer{
		fetcher:   fetcher,
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Warm fetches current AQI for each coordinate concurrently, populating the
// cache via the fetcher. Returns an aggregated error if any location failed.
func (w *Warmer) Warm(ctx context.Context, coords []models.Coordinate) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("locations", len(coords)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(coords))
	for _, coord := range coords {
		coord := coord
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.GetCurrent(ctx, coord); err != nil {
				errCh <- fmt.Errorf("warm %.4f,%.4f: %w", coord.Latitude, coord.Longitude, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete",
			zap.Int("locations", len(coords)),
			zap.Int("errors", len(errs)),
			zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// Schedule runs an initial Warm, then registers a recurring refresh at the
// given interval on the internal scheduler. Call Stop during shutdown.
func (w *Warmer) Schedule(coords []models.Coordinate, interval time.Duration) error {
	if len(coords) == 0 {
		if w.logger != nil {
			w.logger.Info("no warm locations configured; nothing to schedule")
		}
		return nil
	}

	minutes := int(interval.Minutes())
	if minutes <= 0 {
		minutes = 5
	}

	job := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.Warm(ctx, coords); err != nil && w.logger != nil {
			w.logger.Warn("periodic cache warm failed", zap.Error(err))
		}
	}
	job()

	if _, err := w.scheduler.Every(minutes).Minutes().Do(job); err != nil {
		return fmt.Errorf("schedule cache warming: %w", err)
	}
	w.scheduler.StartAsync()
	return nil
}

// Stop stops the warming scheduler and cancels future refreshes.
func (w *Warmer) Stop() {
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}
