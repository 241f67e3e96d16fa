// Package weather fetches short-range forecasts from Open-Meteo and turns
// them into the strict WeatherDay records the risk engine consumes.
package weather

import (
	"fmt"
	"time"

	"paddyguard/internal/models"
)

const (
	hoursPerDay = 24
	// WetHumidity is the hourly RH at or above which a leaf counts as wet
	WetHumidity = 90.0
)

// AgroResponse is the Open-Meteo payload requested for risk scoring.
// Slices of pointers let JSON nulls be detected instead of read as zero.
type AgroResponse struct {
	Hourly struct {
		Time             []string   `json:"time"`
		RelativeHumidity []*float64 `json:"relative_humidity_2m"`
		DewPoint         []*float64 `json:"dew_point_2m"`
	} `json:"hourly"`
	Daily struct {
		Time    []string   `json:"time"`
		TempMax []*float64 `json:"temperature_2m_max"`
		TempMin []*float64 `json:"temperature_2m_min"`
		RainSum []*float64 `json:"rain_sum"`
	} `json:"daily"`
}

// OutlookResponse is the Open-Meteo payload requested for display
type OutlookResponse struct {
	Current struct {
		Temperature *float64 `json:"temperature_2m"`
		WeatherCode *float64 `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Time                     []string   `json:"time"`
		WeatherCode              []*float64 `json:"weather_code"`
		RainSum                  []*float64 `json:"rain_sum"`
		PrecipitationProbability []*float64 `json:"precipitation_probability_max"`
		TempMax                  []*float64 `json:"temperature_2m_max"`
		TempMin                  []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func at(series []*float64, i int, name string) (float64, error) {
	if i >= len(series) {
		return 0, &models.ValidationError{
			Field:   name,
			Value:   fmt.Sprintf("len=%d", len(series)),
			Message: fmt.Sprintf("%s has %d values, need index %d", name, len(series), i),
		}
	}
	if series[i] == nil {
		return 0, &models.ValidationError{
			Field:   name,
			Value:   "null",
			Message: fmt.Sprintf("%s[%d] is null", name, i),
		}
	}
	return *series[i], nil
}

func dateAt(times []string, i int) (string, error) {
	if i >= len(times) {
		return "", &models.ValidationError{
			Field:   "daily.time",
			Message: fmt.Sprintf("daily.time has %d values, need index %d", len(times), i),
		}
	}
	if _, err := time.Parse(models.DateLayout, times[i]); err != nil {
		return "", &models.ValidationError{
			Field:   "daily.time",
			Value:   times[i],
			Message: "invalid date format, expected YYYY-MM-DD",
		}
	}
	return times[i], nil
}

// ToWeatherDays aggregates the first n days. Day i uses hours [24i, 24i+24):
// RH and dew point are averaged, leaf wetness counts hours with RH >= 90.
// Any missing, short or null series rejects the whole payload.
func (r *AgroResponse) ToWeatherDays(n int) ([]models.WeatherDay, error) {
	if n < 1 {
		return nil, &models.ValidationError{Field: "days", Message: "at least one forecast day is required"}
	}

	days := make([]models.WeatherDay, 0, n)
	for i := 0; i < n; i++ {
		date, err := dateAt(r.Daily.Time, i)
		if err != nil {
			return nil, err
		}

		var day models.WeatherDay
		day.Date = date
		if day.TempMax, err = at(r.Daily.TempMax, i, "daily.temperature_2m_max"); err != nil {
			return nil, err
		}
		if day.TempMin, err = at(r.Daily.TempMin, i, "daily.temperature_2m_min"); err != nil {
			return nil, err
		}
		if day.RainSum, err = at(r.Daily.RainSum, i, "daily.rain_sum"); err != nil {
			return nil, err
		}

		var rhSum, dewSum float64
		wet := 0
		for h := i * hoursPerDay; h < (i+1)*hoursPerDay; h++ {
			rh, err := at(r.Hourly.RelativeHumidity, h, "hourly.relative_humidity_2m")
			if err != nil {
				return nil, err
			}
			dew, err := at(r.Hourly.DewPoint, h, "hourly.dew_point_2m")
			if err != nil {
				return nil, err
			}
			rhSum += rh
			dewSum += dew
			if rh >= WetHumidity {
				wet++
			}
		}
		day.RHAvg = rhSum / hoursPerDay
		day.DewpointAvg = dewSum / hoursPerDay
		day.LeafWetnessHours = float64(wet)

		if err := day.Validate(); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

// ToOutlook converts the first n display days
func (r *OutlookResponse) ToOutlook(n int) (*models.Outlook, error) {
	if n < 1 {
		return nil, &models.ValidationError{Field: "days", Message: "at least one forecast day is required"}
	}

	out := &models.Outlook{Days: make([]models.OutlookDay, 0, n)}
	if r.Current.Temperature == nil || r.Current.WeatherCode == nil {
		return nil, &models.ValidationError{Field: "current", Message: "current conditions missing"}
	}
	out.CurrentTemp = *r.Current.Temperature
	out.CurrentWeatherCode = int(*r.Current.WeatherCode)
	out.CurrentDescription = Describe(out.CurrentWeatherCode)
	out.CurrentIcon = Icon(out.CurrentWeatherCode)

	for i := 0; i < n; i++ {
		date, err := dateAt(r.Daily.Time, i)
		if err != nil {
			return nil, err
		}
		code, err := at(r.Daily.WeatherCode, i, "daily.weather_code")
		if err != nil {
			return nil, err
		}

		day := models.OutlookDay{
			Date:        date,
			WeatherCode: int(code),
			Description: Describe(int(code)),
			Icon:        Icon(int(code)),
		}
		if day.RainSum, err = at(r.Daily.RainSum, i, "daily.rain_sum"); err != nil {
			return nil, err
		}
		if day.PrecipitationProbability, err = at(r.Daily.PrecipitationProbability, i, "daily.precipitation_probability_max"); err != nil {
			return nil, err
		}
		if day.TempMax, err = at(r.Daily.TempMax, i, "daily.temperature_2m_max"); err != nil {
			return nil, err
		}
		if day.TempMin, err = at(r.Daily.TempMin, i, "daily.temperature_2m_min"); err != nil {
			return nil, err
		}
		out.Days = append(out.Days, day)
	}
	return out, nil
}

// Describe maps a WMO weather interpretation code to text
func Describe(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code >= 1 && code <= 3:
		return "Mainly clear, partly cloudy, and overcast"
	case code == 45 || code == 48:
		return "Fog and depositing rime fog"
	case code >= 51 && code <= 55:
		return "Drizzle: Light, moderate, and dense intensity"
	case code >= 61 && code <= 65:
		return "Rain: Slight, moderate and heavy intensity"
	case code >= 80 && code <= 82:
		return "Rain showers: Slight, moderate, and violent"
	case code >= 95:
		return "Thunderstorm: Slight or moderate"
	default:
		return "Unknown"
	}
}

// Icon maps a WMO weather code to a display emoji. Drizzle and rain share
// one icon across 51-67, including the freezing variants Describe leaves
// as Unknown.
func Icon(code int) string {
	switch {
	case code == 0:
		return "\u2600\ufe0f"
	case code >= 1 && code <= 3:
		return "\U0001F325\ufe0f"
	case code == 45 || code == 48:
		return "\U0001F32B\ufe0f"
	case code >= 51 && code <= 67:
		return "\U0001F327\ufe0f"
	case code >= 80 && code <= 82:
		return "\U0001F326\ufe0f"
	case code >= 95:
		return "\u26C8\ufe0f"
	default:
		return "\u2753"
	}
}
