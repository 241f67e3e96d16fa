package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"paddyguard/internal/models"
)

const uuidPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

func fieldID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &models.ValidationError{Field: "id", Value: raw, Message: "invalid field id"}
	}
	return id, nil
}

// ListFields handles GET /api/fields
func (h *Handler) ListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.fields.List(r.Context())
	if err != nil {
		h.handleError(w, r, err, "failed to list fields")
		return
	}
	h.sendJSON(w, fields, http.StatusOK)
}

// SaveField handles POST /api/fields. A body without id creates a field;
// a body with id updates that field.
func (h *Handler) SaveField(w http.ResponseWriter, r *http.Request) {
	var field models.Field
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&field); err != nil {
		h.handleError(w, r, &models.ValidationError{Field: "body", Message: "invalid JSON body: " + err.Error()}, "")
		return
	}

	created := field.ID == uuid.Nil
	if err := h.fields.Save(r.Context(), &field); err != nil {
		h.handleError(w, r, err, "failed to save field")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.sendJSON(w, field, status)
}

// GetActiveField handles GET /api/fields/active
func (h *Handler) GetActiveField(w http.ResponseWriter, r *http.Request) {
	field, err := h.fields.Active(r.Context())
	if err != nil {
		h.handleError(w, r, err, "failed to get active field")
		return
	}
	h.sendJSON(w, field, http.StatusOK)
}

// GetField handles GET /api/fields/{id}
func (h *Handler) GetField(w http.ResponseWriter, r *http.Request) {
	id, err := fieldID(r)
	if err != nil {
		h.handleError(w, r, err, "")
		return
	}

	field, err := h.fields.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "failed to get field")
		return
	}
	h.sendJSON(w, field, http.StatusOK)
}

// DeleteField handles DELETE /api/fields/{id}
func (h *Handler) DeleteField(w http.ResponseWriter, r *http.Request) {
	id, err := fieldID(r)
	if err != nil {
		h.handleError(w, r, err, "")
		return
	}

	if err := h.fields.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err, "failed to delete field")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateField handles POST /api/fields/{id}/activate
func (h *Handler) ActivateField(w http.ResponseWriter, r *http.Request) {
	id, err := fieldID(r)
	if err != nil {
		h.handleError(w, r, err, "")
		return
	}

	if err := h.fields.Activate(r.Context(), id); err != nil {
		h.handleError(w, r, err, "failed to activate field")
		return
	}

	field, err := h.fields.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "failed to get field")
		return
	}
	h.sendJSON(w, field, http.StatusOK)
}

// GetFieldRisk handles GET /api/fields/{id}/risk
func (h *Handler) GetFieldRisk(w http.ResponseWriter, r *http.Request) {
	id, err := fieldID(r)
	if err != nil {
		h.handleError(w, r, err, "")
		return
	}

	result, err := h.monitoring.AssessField(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err, "failed to assess field risk")
		return
	}
	h.sendJSON(w, result, http.StatusOK)
}
