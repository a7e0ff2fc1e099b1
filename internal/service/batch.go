package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/breatheasy/aqi-service/internal/models"
	"github.com/breatheasy/aqi-service/internal/observability"
	"github.com/breatheasy/aqi-service/internal/validation"
)

// DefaultBatchWorkers bounds concurrent upstream fan-out for a batch request.
const DefaultBatchWorkers = 8

// BatchResult is the per-location outcome of a batch query. Exactly one of
// Report/Error is set.
type BatchResult struct {
	Coordinate models.Coordinate `json:"location"`
	Report     *models.Report    `json:"report,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// GetBatch resolves reports for multiple coordinates concurrently. Results
// come back in input order, and one location's failure never discards the
// others; each failed slot carries its own error message instead.
func (s *AQIService) GetBatch(ctx context.Context, coords []models.Coordinate, q Query, workers int) []BatchResult {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	start := time.Now()
	observability.BatchRequests.Inc()
	observability.BatchLocations.Add(float64(len(coords)))

	results := make([]BatchResult, len(coords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, coord := range coords {
		results[i].Coordinate = coord

		// Reject bad coordinates up front; no worker slot, no upstream call.
		if _, err := validation.ValidateCoordinate(coord.Latitude, coord.Longitude); err != nil {
			results[i].Error = err.Error()
			observability.BatchFailures.Inc()
			continue
		}

		i, coord := i, coord
		g.Go(func() error {
			report, err := s.GetReport(gctx, coord, q)
			if err != nil {
				results[i].Error = err.Error()
				observability.BatchFailures.Inc()
				return nil
			}
			results[i].Report = &report
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	observability.BatchDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("batch resolved",
		zap.Int("locations", len(coords)),
		zap.Duration("elapsed", time.Since(start)))
	return results
}
