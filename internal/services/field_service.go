package services

import (
	"context"

	"github.com/google/uuid"

	"paddyguard/internal/models"
	"paddyguard/internal/repository"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// FieldService manages monitored fields
type FieldService struct {
	repo    repository.FieldRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFieldService creates a new field service
func NewFieldService(repo repository.FieldRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FieldService {
	return &FieldService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Save validates and stores a field. Disease codes are kept in the given
// order and are not checked against the catalog.
func (s *FieldService) Save(ctx context.Context, field *models.Field) error {
	if err := field.Validate(); err != nil {
		return err
	}
	if field.MonitoredDiseases == nil {
		field.MonitoredDiseases = []string{}
	}
	return s.repo.Save(ctx, field)
}

func (s *FieldService) Get(ctx context.Context, id uuid.UUID) (*models.Field, error) {
	return s.repo.Get(ctx, id)
}

func (s *FieldService) List(ctx context.Context) ([]*models.Field, error) {
	return s.repo.List(ctx)
}

func (s *FieldService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *FieldService) Activate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Activate(ctx, id)
}

func (s *FieldService) Active(ctx context.Context) (*models.Field, error) {
	return s.repo.GetActive(ctx)
}
