package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/breatheasy/aqi-service/internal/aqi"
	"github.com/breatheasy/aqi-service/internal/cache"
	"github.com/breatheasy/aqi-service/internal/client"
	"github.com/breatheasy/aqi-service/internal/models"
	"github.com/breatheasy/aqi-service/internal/observability"
	"github.com/breatheasy/aqi-service/internal/validation"
)

// DefaultTTL is how long a report stays fresh in cache.
const DefaultTTL = 300 * time.Second

// Query selects the granularity and window of a report request.
type Query struct {
	Kind  models.QueryKind
	Hours int
	Days  int
}

// AQIService produces air-quality reports with cache-aside memoization.
// Concurrent misses for the same key are collapsed into a single upstream
// call when coalescing is enabled.
type AQIService struct {
	client   client.AirQualityClient
	cache    cache.Cache
	ttl      time.Duration
	coalesce bool
	group    singleflight.Group
	logger   *zap.Logger
}

// NewAQIService creates the service. A zero ttl falls back to DefaultTTL.
func NewAQIService(c client.AirQualityClient, store cache.Cache, ttl time.Duration, coalesce bool, logger *zap.Logger) *AQIService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AQIService{
		client:   c,
		cache:    store,
		ttl:      ttl,
		coalesce: coalesce,
		logger:   logger,
	}
}

// GetReport returns the air-quality report for a coordinate, serving from
// cache when a fresh entry exists. Cache read/write failures degrade to an
// upstream fetch; upstream failures surface to the caller.
func (s *AQIService) GetReport(ctx context.Context, coord models.Coordinate, q Query) (models.Report, error) {
	if _, err := validation.ValidateCoordinate(coord.Latitude, coord.Longitude); err != nil {
		return models.Report{}, err
	}
	if err := validation.ValidateWindow(q.Kind, q.Hours, q.Days); err != nil {
		return models.Report{}, err
	}

	key := cache.Key(coord, q.Kind, q.Hours, q.Days)

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache read failed, falling through to upstream",
				zap.String("key", key), zap.Error(err))
		} else if found {
			observability.CacheHits.Inc()
			cached.Cached = true
			return cached, nil
		}
		observability.CacheMisses.Inc()
	}

	if s.coalesce {
		result, err, _ := s.group.Do(key, func() (interface{}, error) {
			return s.fetchAndStore(ctx, key, coord, q)
		})
		if err != nil {
			return models.Report{}, err
		}
		return result.(models.Report), nil
	}
	return s.fetchAndStore(ctx, key, coord, q)
}

// GetCurrent is a convenience wrapper used by cache warming.
func (s *AQIService) GetCurrent(ctx context.Context, coord models.Coordinate) (models.Report, error) {
	return s.GetReport(ctx, coord, Query{Kind: models.KindCurrent})
}

func (s *AQIService) fetchAndStore(ctx context.Context, key string, coord models.Coordinate, q Query) (models.Report, error) {
	report, err := s.fetch(ctx, coord, q)
	if err != nil {
		s.logger.Error("upstream fetch failed",
			zap.String("kind", string(q.Kind)),
			zap.Float64("lat", coord.Latitude),
			zap.Float64("lon", coord.Longitude),
			zap.String("errorCategory", string(client.CategorizeError(err))),
			zap.Error(err))
		return models.Report{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.ttl); err != nil {
			// A failed write only costs a future cache hit.
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}

func (s *AQIService) fetch(ctx context.Context, coord models.Coordinate, q Query) (models.Report, error) {
	report := models.Report{
		Coordinate: coord,
		Kind:       q.Kind,
		FetchedAt:  time.Now().UTC(),
	}

	switch q.Kind {
	case models.KindCurrent:
		conditions, err := s.client.FetchCurrent(ctx, coord)
		if err != nil {
			return models.Report{}, err
		}
		obs := conditions.Observation
		report.Timezone = conditions.Timezone
		report.Current = &obs

		assessment, err := buildAssessment(obs)
		if err != nil {
			if errors.Is(err, aqi.ErrNoData) {
				s.logger.Warn("no pollutant data for assessment",
					zap.Float64("lat", coord.Latitude), zap.Float64("lon", coord.Longitude))
			} else {
				return models.Report{}, fmt.Errorf("assess reading: %w", err)
			}
		} else {
			report.Assessment = &assessment
		}

	case models.KindHourly:
		forecast, err := s.client.FetchHourly(ctx, coord, q.Hours)
		if err != nil {
			return models.Report{}, err
		}
		series := forecast.Series
		series.AQI = aqi.SeriesIndices(series)
		report.Timezone = forecast.Timezone
		report.Hourly = &series

	case models.KindDaily:
		forecast, err := s.client.FetchDaily(ctx, coord, q.Days)
		if err != nil {
			return models.Report{}, err
		}
		series := forecast.Series
		series.AQI = aqi.SeriesIndices(series)
		report.Timezone = forecast.Timezone
		report.Daily = &series

	default:
		return models.Report{}, fmt.Errorf("%w: %q", validation.ErrInvalidKind, q.Kind)
	}

	return report, nil
}

// buildAssessment computes the AQI summary for an observation. The provider's
// own US AQI value wins for the headline number when present; sub-indices and
// the dominant pollutant always come from our own breakpoint computation.
func buildAssessment(obs models.Observation) (models.Assessment, error) {
	assessment, err := aqi.Evaluate(obs.Concentrations)
	if err != nil {
		if !errors.Is(err, aqi.ErrNoData) || obs.USAQI == nil {
			return models.Assessment{}, err
		}
		assessment = models.Assessment{}
	}

	if obs.USAQI != nil {
		index := int(math.Round(*obs.USAQI))
		category := aqi.CategoryFor(index)
		assessment.AQI = index
		assessment.Category = category.Name
		assessment.Color = category.Color
		assessment.HealthAdvice = category.HealthAdvice
		assessment.Source = "provider"
	}
	return assessment, nil
}
