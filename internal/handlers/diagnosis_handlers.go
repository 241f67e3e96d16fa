package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"paddyguard/internal/capture"
	"paddyguard/internal/models"
)

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

// Diagnose handles POST /api/diagnose. The photo is read from the multipart
// field "image", or from the raw body when Content-Type is image/*.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, capture.MaxUploadBytes+formOverhead)

	var (
		photo    io.Reader
		imageRef string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		photo = r.Body
		imageRef = r.URL.Query().Get("ref")
	default:
		if err := r.ParseMultipartForm(capture.MaxUploadBytes); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				h.handleError(w, r, err, "")
				return
			}
			h.handleError(w, r, &models.ValidationError{
				Field:   "image",
				Message: "expected a multipart form with an image field",
			}, "")
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			h.handleError(w, r, &models.ValidationError{
				Field:   "image",
				Message: "image file is required",
			}, "")
			return
		}
		defer file.Close()
		photo = file
		imageRef = header.Filename
	}

	diagnosis, err := h.diagnosis.Diagnose(ctx, photo, imageRef)
	if err != nil {
		h.handleError(w, r, err, "failed to classify image")
		return
	}

	h.sendJSON(w, diagnosis, http.StatusOK)
}

// GetHistory handles GET /api/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.handleError(w, r, &models.ValidationError{
				Field:   "limit",
				Value:   s,
				Message: "limit must be a positive integer",
			}, "")
			return
		}
		limit = n
	}

	records, err := h.diagnosis.History(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, err, "failed to retrieve history")
		return
	}

	h.sendJSON(w, records, http.StatusOK)
}

// ClearHistory handles DELETE /api/history
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.diagnosis.ClearHistory(r.Context())
	if err != nil {
		h.handleError(w, r, err, "failed to clear history")
		return
	}

	h.sendJSON(w, map[string]int64{"deleted": deleted}, http.StatusOK)
}
