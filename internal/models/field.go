package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldLocation is the coordinate used to fetch forecasts for a field
type FieldLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Field is a monitored paddy field. MonitoredDiseases keeps the order the
// farmer chose; risk ranking ties fall back to this order.
type Field struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"field_name"`
	Area              string         `json:"field_area"`
	SowingDate        string         `json:"sowing_date"`
	Location          *FieldLocation `json:"location"`
	MonitoredDiseases []string       `json:"monitored_diseases"`
	Active            bool           `json:"active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Validate checks required fields and coordinate ranges.
// Monitored codes are not checked against the catalog: unknown codes score LOW.
func (f *Field) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "field_name", Message: "field_name is required"}
	}

	if f.SowingDate != "" {
		if _, err := time.Parse(DateLayout, f.SowingDate); err != nil {
			return &ValidationError{
				Field:   "sowing_date",
				Value:   f.SowingDate,
				Message: "invalid sowing_date format, expected YYYY-MM-DD",
			}
		}
	}

	if f.Location != nil {
		if f.Location.Latitude < -90 || f.Location.Latitude > 90 {
			return &ValidationError{
				Field:   "latitude",
				Value:   fmt.Sprintf("%g", f.Location.Latitude),
				Message: "latitude must be between -90 and 90",
			}
		}
		if f.Location.Longitude < -180 || f.Location.Longitude > 180 {
			return &ValidationError{
				Field:   "longitude",
				Value:   fmt.Sprintf("%g", f.Location.Longitude),
				Message: "longitude must be between -180 and 180",
			}
		}
	}

	return nil
}
