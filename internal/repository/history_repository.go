package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"paddyguard/internal/models"
	"paddyguard/pkg/database"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// HistoryLimit is how many scans are retained
const HistoryLimit = 50

// HistoryRepository stores classification history
type HistoryRepository interface {
	// Save records a scan and trims history to the newest HistoryLimit entries
	Save(ctx context.Context, record *models.ScanRecord) error
	// List returns up to limit scans, newest first
	List(ctx context.Context, limit int) ([]*models.ScanRecord, error)
	// Clear removes all scans and returns how many were deleted
	Clear(ctx context.Context) (int64, error)
}

type historyRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewHistoryRepository creates a new scan history repository
func NewHistoryRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) HistoryRepository {
	return &historyRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (r *historyRepository) Save(ctx context.Context, record *models.ScanRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	insert := `
		INSERT INTO scan_history (id, created_at, image_ref, label, confidence)
		VALUES (:id, :created_at, :image_ref, :label, :confidence)
	`
	trim := `
		DELETE FROM scan_history
		WHERE id NOT IN (
			SELECT id FROM scan_history
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		)
	`

	var trimmed int64
	err := r.db.InTx(ctx, "insert_scan", func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insert, record); err != nil {
			return fmt.Errorf("failed to insert scan: %w", err)
		}
		result, err := tx.ExecContext(ctx, trim, HistoryLimit)
		if err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
		trimmed, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug(ctx, "[HISTORY_SAVE] Scan recorded", logging.Fields{
		"scan_id": record.ID.String(),
		"label":   record.Label,
		"trimmed": trimmed,
	})
	return nil
}

func (r *historyRepository) List(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}

	query := `
		SELECT id, created_at, image_ref, label, confidence
		FROM scan_history
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	records := []*models.ScanRecord{}
	if err := r.db.SelectContext(ctx, "list_scans", &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return records, nil
}

func (r *historyRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "clear_scans", `DELETE FROM scan_history`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	deleted, _ := result.RowsAffected()
	r.logger.Info(ctx, "[HISTORY_CLEAR] Scan history cleared", logging.Fields{
		"deleted": deleted,
	})
	return deleted, nil
}
