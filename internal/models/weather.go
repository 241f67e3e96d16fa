package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-day format used by forecasts and WeatherDay.Date
const DateLayout = "2006-01-02"

// WeatherDay is one forecast day's aggregated conditions, as consumed by risk scoring.
// LeafWetnessHours is a derived approximation (hours with RH >= 90), not sensor data.
type WeatherDay struct {
	Date             string  `json:"date"`
	TempMax          float64 `json:"temp_max"`
	TempMin          float64 `json:"temp_min"`
	RHAvg            float64 `json:"rh_avg"`
	RainSum          float64 `json:"rain_sum"`
	DewpointAvg      float64 `json:"dewpoint_avg"`
	LeafWetnessHours float64 `json:"leaf_wetness_hours"`
}

// WeatherDayInput is the loosely-typed form of a WeatherDay received at an API boundary.
// Pointers distinguish a missing field from a zero reading.
type WeatherDayInput struct {
	Date             string   `json:"date"`
	TempMax          *float64 `json:"temp_max"`
	TempMin          *float64 `json:"temp_min"`
	RHAvg            *float64 `json:"rh_avg"`
	RainSum          *float64 `json:"rain_sum"`
	DewpointAvg      *float64 `json:"dewpoint_avg"`
	LeafWetnessHours *float64 `json:"leaf_wetness_hours"`
}

// ToWeatherDay converts the input into a strict WeatherDay.
// Every numeric field is required; scoring never sees a partially filled day.
func (in *WeatherDayInput) ToWeatherDay() (WeatherDay, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"temp_max", in.TempMax},
		{"temp_min", in.TempMin},
		{"rh_avg", in.RHAvg},
		{"rain_sum", in.RainSum},
		{"dewpoint_avg", in.DewpointAvg},
		{"leaf_wetness_hours", in.LeafWetnessHours},
	}
	for _, f := range fields {
		if f.value == nil {
			return WeatherDay{}, &ValidationError{
				Field:   f.name,
				Message: f.name + " is required",
			}
		}
	}

	day := WeatherDay{
		Date:             in.Date,
		TempMax:          *in.TempMax,
		TempMin:          *in.TempMin,
		RHAvg:            *in.RHAvg,
		RainSum:          *in.RainSum,
		DewpointAvg:      *in.DewpointAvg,
		LeafWetnessHours: *in.LeafWetnessHours,
	}
	if err := day.Validate(); err != nil {
		return WeatherDay{}, err
	}
	return day, nil
}

// Validate checks the date layout (when set) and that all readings are finite
func (d WeatherDay) Validate() error {
	if d.Date != "" {
		if _, err := time.Parse(DateLayout, d.Date); err != nil {
			return &ValidationError{
				Field:   "date",
				Value:   d.Date,
				Message: "invalid date format, expected YYYY-MM-DD",
			}
		}
	}

	readings := map[string]float64{
		"temp_max":           d.TempMax,
		"temp_min":           d.TempMin,
		"rh_avg":             d.RHAvg,
		"rain_sum":           d.RainSum,
		"dewpoint_avg":       d.DewpointAvg,
		"leaf_wetness_hours": d.LeafWetnessHours,
	}
	for name, v := range readings {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{
				Field:   name,
				Message: name + " must be a finite number",
			}
		}
	}
	return nil
}

// OutlookDay is one day of the display forecast
type OutlookDay struct {
	Date                     string  `json:"date"`
	WeatherCode              int     `json:"weather_code"`
	Description              string  `json:"description"`
	Icon                     string  `json:"icon"`
	RainSum                  float64 `json:"rain_sum"`
	PrecipitationProbability float64 `json:"precipitation_probability_max"`
	TempMax                  float64 `json:"temp_max"`
	TempMin                  float64 `json:"temp_min"`
}

// Outlook is the short-range display forecast for a location
type Outlook struct {
	CurrentTemp        float64      `json:"current_temp"`
	CurrentWeatherCode int          `json:"current_weather_code"`
	CurrentDescription string       `json:"current_description"`
	CurrentIcon        string       `json:"current_icon"`
	Days               []OutlookDay `json:"days"`
	Stale              bool         `json:"stale"`
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
