package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"paddyguard/internal/models"
	"paddyguard/internal/repository"
	"paddyguard/internal/risk"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// Forecaster supplies forecasts; *weather.Service satisfies it
type Forecaster interface {
	AgroForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherDay, bool, error)
	Outlook(ctx context.Context, lat, lon float64, days int) (*models.Outlook, error)
}

// MonitoringOptions controls forecast lengths and the fallback outlook location
type MonitoringOptions struct {
	RiskDays         int
	OutlookDays      int
	DefaultLatitude  float64
	DefaultLongitude float64
}

// FieldRisk is the ranked multi-day risk for one field
type FieldRisk struct {
	FieldID   *uuid.UUID       `json:"field_id,omitempty"`
	FieldName string           `json:"field_name,omitempty"`
	Days      []models.DayRisk `json:"days"`
	Stale     bool             `json:"stale"`
}

// MonitoringService joins forecasts with the risk engine
type MonitoringService struct {
	fields   repository.FieldRepository
	forecast Forecaster
	opts     MonitoringOptions
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewMonitoringService creates a monitoring service. fields may be nil when
// no field store is configured.
func NewMonitoringService(fields repository.FieldRepository, forecast Forecaster, opts MonitoringOptions, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *MonitoringService {
	if opts.RiskDays < 1 {
		opts.RiskDays = 3
	}
	if opts.OutlookDays < 1 {
		opts.OutlookDays = 5
	}
	return &MonitoringService{
		fields:   fields,
		forecast: forecast,
		opts:     opts,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// AssessDay ranks the given codes against one day's conditions
func (s *MonitoringService) AssessDay(ctx context.Context, day models.WeatherDay, codes []string) []models.RiskResult {
	results := risk.Assess(day, codes)
	s.record(results)
	return results
}

// AssessLocation fetches the risk forecast for coordinates and ranks codes for each day
func (s *MonitoringService) AssessLocation(ctx context.Context, lat, lon float64, codes []string) (*FieldRisk, error) {
	days, stale, err := s.forecast.AgroForecast(ctx, lat, lon, s.opts.RiskDays)
	if err != nil {
		return nil, err
	}

	assessed := risk.AssessDays(days, codes)
	for _, d := range assessed {
		s.record(d.Results)
	}

	s.logger.Info(ctx, "[RISK_ASSESS] Forecast risk ranked", logging.Fields{
		"days":  len(assessed),
		"codes": codes,
		"stale": stale,
	})

	return &FieldRisk{Days: assessed, Stale: stale}, nil
}

// AssessField ranks a stored field's monitored codes over the risk horizon
func (s *MonitoringService) AssessField(ctx context.Context, id uuid.UUID) (*FieldRisk, error) {
	if s.fields == nil {
		return nil, &repository.NotFoundError{Resource: "field", ID: id.String()}
	}
	ctx = logging.WithFieldID(ctx, id.String())

	field, err := s.fields.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if field.Location == nil {
		return nil, &models.ValidationError{
			Field:   "location",
			Message: "field has no location to forecast for",
		}
	}

	result, err := s.AssessLocation(ctx, field.Location.Latitude, field.Location.Longitude, field.MonitoredDiseases)
	if err != nil {
		return nil, err
	}
	fieldID := field.ID
	result.FieldID = &fieldID
	result.FieldName = field.Name
	return result, nil
}

// Outlook returns the display forecast for coords when given, otherwise for
// the active field, otherwise for the configured default location.
func (s *MonitoringService) Outlook(ctx context.Context, coords *models.FieldLocation) (*models.Outlook, error) {
	lat, lon := s.opts.DefaultLatitude, s.opts.DefaultLongitude

	switch {
	case coords != nil:
		lat, lon = coords.Latitude, coords.Longitude
	case s.fields != nil:
		active, err := s.fields.GetActive(ctx)
		var notFound *repository.NotFoundError
		switch {
		case err == nil && active.Location != nil:
			lat, lon = active.Location.Latitude, active.Location.Longitude
		case err != nil && !errors.As(err, &notFound):
			return nil, err
		}
	}

	return s.forecast.Outlook(ctx, lat, lon, s.opts.OutlookDays)
}

func (s *MonitoringService) record(results []models.RiskResult) {
	for _, r := range results {
		code := r.Code
		if _, ok := risk.Lookup(code); !ok {
			code = "unknown"
		}
		s.metrics.RecordRiskResult(code, string(r.Risk))
	}
}
