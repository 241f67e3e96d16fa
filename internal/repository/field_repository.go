package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"paddyguard/internal/models"
	"paddyguard/pkg/database"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// FieldRepository stores monitored fields. At most one field is active;
// the first field ever saved becomes active, and deleting the active field
// hands activity to the oldest remaining one.
type FieldRepository interface {
	Save(ctx context.Context, field *models.Field) error
	Get(ctx context.Context, id uuid.UUID) (*models.Field, error)
	List(ctx context.Context) ([]*models.Field, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
	GetActive(ctx context.Context) (*models.Field, error)
}

type fieldRow struct {
	ID                uuid.UUID       `db:"id"`
	Name              string          `db:"name"`
	Area              string          `db:"area"`
	SowingDate        sql.NullTime    `db:"sowing_date"`
	Latitude          sql.NullFloat64 `db:"latitude"`
	Longitude         sql.NullFloat64 `db:"longitude"`
	Address           sql.NullString  `db:"address"`
	MonitoredDiseases pq.StringArray  `db:"monitored_diseases"`
	Active            bool            `db:"active"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (row *fieldRow) toModel() *models.Field {
	f := &models.Field{
		ID:                row.ID,
		Name:              row.Name,
		Area:              row.Area,
		MonitoredDiseases: []string(row.MonitoredDiseases),
		Active:            row.Active,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if f.MonitoredDiseases == nil {
		f.MonitoredDiseases = []string{}
	}
	if row.SowingDate.Valid {
		f.SowingDate = row.SowingDate.Time.Format(models.DateLayout)
	}
	if row.Latitude.Valid && row.Longitude.Valid {
		f.Location = &models.FieldLocation{
			Latitude:  row.Latitude.Float64,
			Longitude: row.Longitude.Float64,
			Address:   row.Address.String,
		}
	}
	return f
}

const fieldColumns = `id, name, area, sowing_date, latitude, longitude, address,
	monitored_diseases, active, created_at, updated_at`

type fieldRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFieldRepository creates a new field repository
func NewFieldRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) FieldRepository {
	return &fieldRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Save inserts a new field or updates an existing one. Activity is never
// changed by an update; use Activate for that.
func (r *fieldRepository) Save(ctx context.Context, field *models.Field) error {
	if field.ID == uuid.Nil {
		field.ID = uuid.New()
	}
	now := time.Now().UTC()
	field.UpdatedAt = now

	var sowing interface{}
	if field.SowingDate != "" {
		sowing = field.SowingDate
	}
	var lat, lon, address interface{}
	if field.Location != nil {
		lat = field.Location.Latitude
		lon = field.Location.Longitude
		if field.Location.Address != "" {
			address = field.Location.Address
		}
	}
	codes := field.MonitoredDiseases
	if codes == nil {
		codes = []string{}
	}

	query := `
		INSERT INTO fields (id, name, area, sowing_date, latitude, longitude, address,
			monitored_diseases, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			NOT EXISTS (SELECT 1 FROM fields WHERE active), $9, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			area = EXCLUDED.area,
			sowing_date = EXCLUDED.sowing_date,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			address = EXCLUDED.address,
			monitored_diseases = EXCLUDED.monitored_diseases,
			updated_at = EXCLUDED.updated_at
		RETURNING active, created_at
	`

	var saved struct {
		Active    bool      `db:"active"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := r.db.GetContext(ctx, "upsert_field", &saved, query,
		field.ID,
		field.Name,
		field.Area,
		sowing,
		lat,
		lon,
		address,
		pq.Array(codes),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save field: %w", err)
	}

	field.Active = saved.Active
	field.CreatedAt = saved.CreatedAt

	r.logger.Info(logging.WithFieldID(ctx, field.ID.String()), "[FIELD_SAVE] Field saved", logging.Fields{
		"field_name":      field.Name,
		"active":          field.Active,
		"monitored_codes": len(codes),
	})
	return nil
}

func (r *fieldRepository) Get(ctx context.Context, id uuid.UUID) (*models.Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE id = $1`

	var row fieldRow
	err := r.db.GetContext(ctx, "get_field", &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "field", ID: id.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return row.toModel(), nil
}

func (r *fieldRepository) List(ctx context.Context) ([]*models.Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields ORDER BY created_at, id`

	var rows []fieldRow
	if err := r.db.SelectContext(ctx, "list_fields", &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}

	fields := make([]*models.Field, 0, len(rows))
	for i := range rows {
		fields = append(fields, rows[i].toModel())
	}
	return fields, nil
}

func (r *fieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	promote := `
		UPDATE fields SET active = TRUE, updated_at = NOW()
		WHERE id = (SELECT id FROM fields ORDER BY created_at, id LIMIT 1)
	`

	var wasActive bool
	err := r.db.InTx(ctx, "delete_field", func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &wasActive, `DELETE FROM fields WHERE id = $1 RETURNING active`, id); err != nil {
			return err
		}
		if !wasActive {
			return nil
		}
		_, err := tx.ExecContext(ctx, promote)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: "field", ID: id.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}

	r.logger.Info(logging.WithFieldID(ctx, id.String()), "[FIELD_DELETE] Field deleted", logging.Fields{
		"was_active": wasActive,
	})
	return nil
}

func (r *fieldRepository) Activate(ctx context.Context, id uuid.UUID) error {
	err := r.db.InTx(ctx, "activate_field", func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM fields WHERE id = $1)`, id); err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}
		// clear first: the partial unique index allows one active row
		if _, err := tx.ExecContext(ctx, `UPDATE fields SET active = FALSE WHERE active AND id <> $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE fields SET active = TRUE, updated_at = NOW() WHERE id = $1`, id)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: "field", ID: id.String()}
	}
	if err != nil {
		return fmt.Errorf("failed to activate field: %w", err)
	}

	r.logger.Info(logging.WithFieldID(ctx, id.String()), "[FIELD_ACTIVATE] Active field changed", logging.Fields{})
	return nil
}

func (r *fieldRepository) GetActive(ctx context.Context) (*models.Field, error) {
	query := `SELECT ` + fieldColumns + ` FROM fields WHERE active LIMIT 1`

	var row fieldRow
	err := r.db.GetContext(ctx, "get_active_field", &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "field", ID: "active"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active field: %w", err)
	}
	return row.toModel(), nil
}
