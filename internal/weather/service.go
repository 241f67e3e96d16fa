package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paddyguard/internal/models"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

const (
	KindAgro    = "agro"
	KindOutlook = "outlook"
)

// Provider fetches live forecasts
type Provider interface {
	AgroForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherDay, error)
	Outlook(ctx context.Context, lat, lon float64, days int) (*models.Outlook, error)
}

// UnavailableError means the provider failed and no cached copy exists
type UnavailableError struct {
	Kind string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s forecast unavailable: %v", e.Kind, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsTransient returns true; the provider may recover
func (e *UnavailableError) IsTransient() bool { return true }

// Service wraps a Provider with a cache. Live data always wins; the cache
// is only read when the provider fails.
type Service struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewService creates a forecast service
func NewService(provider Provider, cache Cache, ttl time.Duration, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// CacheKey identifies a forecast by kind, coordinates rounded to 2 decimals and length
func CacheKey(kind string, lat, lon float64, days int) string {
	return fmt.Sprintf("forecast:%s:%.2f:%.2f:%d", kind, lat, lon, days)
}

// AgroForecast returns days of WeatherDay for scoring. stale is true when
// the result came from the cache after a provider failure.
func (s *Service) AgroForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherDay, bool, error) {
	var out []models.WeatherDay
	stale, err := s.fetch(ctx, KindAgro, CacheKey(KindAgro, lat, lon, days), &out, func() (interface{}, error) {
		return s.provider.AgroForecast(ctx, lat, lon, days)
	})
	if err != nil {
		return nil, false, err
	}
	return out, stale, nil
}

// Outlook returns the display forecast; Outlook.Stale marks cached data
func (s *Service) Outlook(ctx context.Context, lat, lon float64, days int) (*models.Outlook, error) {
	var out models.Outlook
	stale, err := s.fetch(ctx, KindOutlook, CacheKey(KindOutlook, lat, lon, days), &out, func() (interface{}, error) {
		return s.provider.Outlook(ctx, lat, lon, days)
	})
	if err != nil {
		return nil, err
	}
	out.Stale = stale
	return &out, nil
}

func (s *Service) fetch(ctx context.Context, kind, key string, out interface{}, live func() (interface{}, error)) (bool, error) {
	timer := s.metrics.NewTimer(s.metrics.ForecastFetchDuration.WithLabelValues(kind))
	value, fetchErr := live()
	duration := timer.ObserveDuration()
	if fetchErr == nil {
		data, err := json.Marshal(value)
		if err != nil {
			return false, fmt.Errorf("failed to encode %s forecast: %w", kind, err)
		}
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn(ctx, "[FORECAST_CACHE] Failed to store forecast", logging.Fields{
				"kind":  kind,
				"key":   key,
				"error": err.Error(),
			})
		}
		s.metrics.RecordForecastFetch(kind, "live")
		s.logger.Debug(ctx, "[FORECAST_FETCH] Live forecast retrieved", logging.Fields{
			"kind":        kind,
			"duration_ms": duration.Milliseconds(),
		})
		return false, json.Unmarshal(data, out)
	}

	s.metrics.RecordForecastError(errorType(fetchErr))
	s.logger.Warn(ctx, "[FORECAST_FETCH_ERROR] Provider failed, trying cache", logging.Fields{
		"kind":        kind,
		"key":         key,
		"error":       fetchErr.Error(),
		"duration_ms": duration.Milliseconds(),
	})

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Error(ctx, "[FORECAST_CACHE] Cache read failed", logging.Fields{"kind": kind, "key": key}, err)
	}
	if !ok || err != nil {
		return false, &UnavailableError{Kind: kind, Err: fetchErr}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, &UnavailableError{Kind: kind, Err: fmt.Errorf("corrupt cache entry: %w", err)}
	}

	s.metrics.RecordForecastFetch(kind, "cache")
	s.logger.Info(ctx, "[FORECAST_STALE] Serving cached forecast", logging.Fields{
		"kind": kind,
		"key":  key,
	})
	return true, nil
}

func errorType(err error) string {
	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return "invalid_payload"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "provider"
	}
}
