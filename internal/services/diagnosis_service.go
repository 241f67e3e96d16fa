package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"paddyguard/internal/capture"
	"paddyguard/internal/classifier"
	"paddyguard/internal/inference"
	"paddyguard/internal/models"
	"paddyguard/internal/repository"
	"paddyguard/internal/tensor"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// ModelRunner executes the classifier graph. *inference.Host satisfies it.
type ModelRunner interface {
	Run(ctx context.Context, t *tensor.Tensor) ([]float32, error)
	State() inference.State
}

// Diagnosis is a classification with its advice, as returned to clients
type Diagnosis struct {
	ScanID     uuid.UUID        `json:"scan_id"`
	Label      string           `json:"label"`
	Confidence float32          `json:"confidence"`
	Treatment  models.Treatment `json:"treatment"`
	CreatedAt  time.Time        `json:"created_at"`
}

// DiagnosisService turns leaf photos into severity labels
type DiagnosisService struct {
	model   ModelRunner
	history repository.HistoryRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDiagnosisService creates a diagnosis service. history may be nil, in
// which case scans are not recorded.
func NewDiagnosisService(model ModelRunner, history repository.HistoryRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DiagnosisService {
	return &DiagnosisService{
		model:   model,
		history: history,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ModelState reports the model host lifecycle state
func (s *DiagnosisService) ModelState() inference.State {
	return s.model.State()
}

// Classify runs the graph on a prepared tensor and decodes the output
func (s *DiagnosisService) Classify(ctx context.Context, t *tensor.Tensor) (models.ClassificationResult, error) {
	output, err := s.model.Run(ctx, t)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	result := classifier.Decode(output)
	s.metrics.RecordClassification(result.Label)
	return result, nil
}

// Diagnose decodes a photo, fits it to the classifier input, classifies it
// and records the scan. A history write failure is logged, not returned.
func (s *DiagnosisService) Diagnose(ctx context.Context, r io.Reader, imageRef string) (*Diagnosis, error) {
	scanID := uuid.New()
	ctx = logging.WithScanID(ctx, scanID.String())

	img, format, err := capture.Prepare(r)
	if err != nil {
		s.logger.Warn(ctx, "[DIAGNOSIS_DECODE_ERROR] Photo could not be decoded", logging.Fields{
			"image_ref": imageRef,
			"error":     err.Error(),
		})
		return nil, err
	}

	t, err := tensor.FromImage(img)
	if err != nil {
		return nil, err
	}

	result, err := s.Classify(ctx, t)
	if err != nil {
		return nil, err
	}

	diagnosis := &Diagnosis{
		ScanID:     scanID,
		Label:      result.Label,
		Confidence: result.Confidence,
		Treatment:  classifier.TreatmentFor(result.Label),
		CreatedAt:  time.Now().UTC(),
	}

	s.logger.Info(ctx, "[DIAGNOSIS] Leaf classified", logging.Fields{
		"label":      result.Label,
		"confidence": result.Confidence,
		"format":     format,
		"image_ref":  imageRef,
	})

	if s.history != nil {
		record := &models.ScanRecord{
			ID:         scanID,
			CreatedAt:  diagnosis.CreatedAt,
			ImageRef:   imageRef,
			Label:      result.Label,
			Confidence: result.Confidence,
		}
		if err := s.history.Save(ctx, record); err != nil {
			s.logger.Error(ctx, "[HISTORY_SAVE_ERROR] Failed to record scan", logging.Fields{
				"label": result.Label,
			}, err)
		}
	}

	return diagnosis, nil
}

// History returns recorded scans, newest first
func (s *DiagnosisService) History(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	if s.history == nil {
		return []*models.ScanRecord{}, nil
	}
	return s.history.List(ctx, limit)
}

// ClearHistory removes every recorded scan
func (s *DiagnosisService) ClearHistory(ctx context.Context) (int64, error) {
	if s.history == nil {
		return 0, nil
	}
	return s.history.Clear(ctx)
}
