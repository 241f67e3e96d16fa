package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"paddyguard/internal/models"
	"paddyguard/internal/risk"
)

// RiskRequest is the body of POST /api/risk. Omitting codes scores the
// whole catalog; an empty list scores nothing.
type RiskRequest struct {
	Day   *models.WeatherDayInput `json:"day"`
	Codes []string                `json:"codes"`
}

// RiskResponse carries the ranked results for one day
type RiskResponse struct {
	Date    string              `json:"date,omitempty"`
	Results []models.RiskResult `json:"results"`
}

// ListDiseases handles GET /api/diseases
func (h *Handler) ListDiseases(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, risk.Profiles(), http.StatusOK)
}

// AssessRisk handles POST /api/risk
func (h *Handler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req RiskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.handleError(w, r, &models.ValidationError{Field: "body", Message: "invalid JSON body: " + err.Error()}, "")
		return
	}
	if req.Day == nil {
		h.handleError(w, r, &models.ValidationError{Field: "day", Message: "day is required"}, "")
		return
	}

	day, err := req.Day.ToWeatherDay()
	if err != nil {
		h.handleError(w, r, err, "")
		return
	}

	codes := req.Codes
	if codes == nil {
		for _, p := range risk.Profiles() {
			codes = append(codes, p.Code)
		}
	}

	results := h.monitoring.AssessDay(r.Context(), day, codes)
	h.sendJSON(w, RiskResponse{Date: day.Date, Results: results}, http.StatusOK)
}

// GetOutlook handles GET /api/weather/outlook. lat and lon must be given
// together; without them the active field, then the default location, is used.
func (h *Handler) GetOutlook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")

	var coords *models.FieldLocation
	if latStr != "" || lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat != nil || errLon != nil {
			h.handleError(w, r, &models.ValidationError{
				Field:   "lat,lon",
				Message: "lat and lon must both be numbers",
			}, "")
			return
		}
		// reuse the field coordinate rules
		probe := models.Field{Name: "outlook", Location: &models.FieldLocation{Latitude: lat, Longitude: lon}}
		if err := probe.Validate(); err != nil {
			h.handleError(w, r, err, "")
			return
		}
		coords = probe.Location
	}

	outlook, err := h.monitoring.Outlook(r.Context(), coords)
	if err != nil {
		h.handleError(w, r, err, "failed to retrieve outlook")
		return
	}

	h.sendJSON(w, outlook, http.StatusOK)
}
