package repository

import (
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"paddyguard/pkg/database"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

type testStore struct {
	db      *database.PostgresDB
	mock    sqlmock.Sqlmock
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	logger := logging.NewStructuredLogger("test", "0.0.0", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	db := database.NewFromDB(sqlx.NewDb(conn, "postgres"), &database.Config{Database: "test"}, logger, collector)
	return &testStore{db: db, mock: mock, logger: logger, metrics: collector}
}

func (s *testStore) verify(t *testing.T) {
	t.Helper()
	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet database expectations: %v", err)
	}
}
