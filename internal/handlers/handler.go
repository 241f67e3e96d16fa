package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"paddyguard/internal/inference"
	"paddyguard/internal/models"
	"paddyguard/internal/repository"
	"paddyguard/internal/services"
	"paddyguard/internal/tensor"
	"paddyguard/internal/weather"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves the diagnosis, field and risk API
type Handler struct {
	diagnosis  *services.DiagnosisService
	fields     *services.FieldService
	monitoring *services.MonitoringService
	db         HealthChecker
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewHandler creates the API handler. db may be nil.
func NewHandler(
	diagnosis *services.DiagnosisService,
	fields *services.FieldService,
	monitoring *services.MonitoringService,
	db HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *Handler {
	return &Handler{
		diagnosis:  diagnosis,
		fields:     fields,
		monitoring: monitoring,
		db:         db,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.Use(h.instrument)

	router.HandleFunc("/api/diagnose", h.Diagnose).Methods("POST")
	router.HandleFunc("/api/history", h.GetHistory).Methods("GET")
	router.HandleFunc("/api/history", h.ClearHistory).Methods("DELETE")

	router.HandleFunc("/api/diseases", h.ListDiseases).Methods("GET")
	router.HandleFunc("/api/risk", h.AssessRisk).Methods("POST")
	router.HandleFunc("/api/weather/outlook", h.GetOutlook).Methods("GET")

	router.HandleFunc("/api/fields", h.ListFields).Methods("GET")
	router.HandleFunc("/api/fields", h.SaveField).Methods("POST")
	router.HandleFunc("/api/fields/active", h.GetActiveField).Methods("GET")
	router.HandleFunc("/api/fields/{id:"+uuidPattern+"}", h.GetField).Methods("GET")
	router.HandleFunc("/api/fields/{id:"+uuidPattern+"}", h.DeleteField).Methods("DELETE")
	router.HandleFunc("/api/fields/{id:"+uuidPattern+"}/activate", h.ActivateField).Methods("POST")
	router.HandleFunc("/api/fields/{id:"+uuidPattern+"}/risk", h.GetFieldRisk).Methods("GET")

	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":      "healthy",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"model_state": h.diagnosis.ModelState().String(),
	}
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK] Database unreachable", logging.Fields{"error": err.Error()})
			status["status"] = "degraded"
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per route template
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := routeTemplate(r)
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// sendJSON sends a JSON response
func (h *Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// classifyError maps a service error to an HTTP status and a metrics error type
func classifyError(err error) (int, string) {
	var (
		decodeErr   *tensor.DecodeError
		dimErr      *tensor.DimensionError
		validErr    *models.ValidationError
		notFoundErr *repository.NotFoundError
		loadErr     *inference.ModelLoadError
		inferErr    *inference.InferenceError
		forecastErr *weather.UnavailableError
		maxBytesErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, "invalid_image"
	case errors.As(err, &dimErr):
		return http.StatusBadRequest, "invalid_dimensions"
	case errors.As(err, &validErr):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &loadErr), errors.Is(err, inference.ErrClosed):
		return http.StatusServiceUnavailable, "model_unavailable"
	case errors.As(err, &inferErr):
		return http.StatusInternalServerError, "inference_error"
	case errors.As(err, &forecastErr):
		return http.StatusBadGateway, "forecast_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// handleError logs err, counts it and writes the mapped response. A 500
// carries fallback instead of the error text.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	ctx := r.Context()
	status, errorType := classifyError(err)
	endpoint := routeTemplate(r)

	h.metrics.RecordAPIError(errorType, endpoint)

	log := h.logger.WithFields(logging.Fields{
		"endpoint":   endpoint,
		"method":     r.Method,
		"error_type": errorType,
		"status":     status,
	})

	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "[API_ERROR] Request failed", nil, err)
		if status == http.StatusInternalServerError {
			message = fallback
		}
	} else {
		log.Warn(ctx, "[API_REJECTED] Request rejected", logging.Fields{"error": err.Error()})
	}

	h.sendError(w, message, status)
}
