package weather

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paddyguard/internal/models"
)

// agroPayload builds an Open-Meteo style body for n days. Hour h of day d
// has RH rh(d, h) and dew point 20+d.
func agroPayload(n int, rh func(d, h int) float64) map[string]interface{} {
	var hourTimes []string
	var rhs, dews []interface{}
	for d := 0; d < n; d++ {
		for h := 0; h < 24; h++ {
			hourTimes = append(hourTimes, "t")
			rhs = append(rhs, rh(d, h))
			dews = append(dews, 20.0+float64(d))
		}
	}

	var dates []string
	var maxes, mins, rains []interface{}
	for d := 0; d < n; d++ {
		dates = append(dates, time.Date(2024, 7, 1+d, 0, 0, 0, 0, time.UTC).Format(models.DateLayout))
		maxes = append(maxes, 30.0)
		mins = append(mins, 22.0)
		rains = append(rains, 4.5)
	}

	return map[string]interface{}{
		"hourly": map[string]interface{}{
			"time":                 hourTimes,
			"relative_humidity_2m": rhs,
			"dew_point_2m":         dews,
		},
		"daily": map[string]interface{}{
			"time":               dates,
			"temperature_2m_max": maxes,
			"temperature_2m_min": mins,
			"rain_sum":           rains,
		},
	}
}

func serve(t *testing.T, status int, body interface{}, seen *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = *r.Clone(context.Background())
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AgroForecast(t *testing.T) {
	// day 0: 10 wet hours at 95, 14 at 80; day 1: all 60; day 2: exactly 90 everywhere
	payload := agroPayload(3, func(d, h int) float64 {
		switch d {
		case 0:
			if h < 10 {
				return 95
			}
			return 80
		case 1:
			return 60
		default:
			return 90
		}
	})

	var seen http.Request
	srv := serve(t, http.StatusOK, payload, &seen)
	client := NewClient(srv.URL, 5*time.Second, 0)

	days, err := client.AgroForecast(context.Background(), 14.5995, 120.9842, 3)
	if err != nil {
		t.Fatalf("AgroForecast() error = %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("got %d days, want 3", len(days))
	}

	checkValues := func(d models.WeatherDay, date string, rh, dew, wet float64) {
		t.Helper()
		if d.Date != date {
			t.Errorf("Date = %s, want %s", d.Date, date)
		}
		if math.Abs(d.RHAvg-rh) > 1e-9 {
			t.Errorf("%s RHAvg = %v, want %v", date, d.RHAvg, rh)
		}
		if d.DewpointAvg != dew {
			t.Errorf("%s DewpointAvg = %v, want %v", date, d.DewpointAvg, dew)
		}
		if d.LeafWetnessHours != wet {
			t.Errorf("%s LeafWetnessHours = %v, want %v", date, d.LeafWetnessHours, wet)
		}
		if d.TempMax != 30 || d.TempMin != 22 || d.RainSum != 4.5 {
			t.Errorf("%s daily values = %v/%v/%v", date, d.TempMax, d.TempMin, d.RainSum)
		}
	}
	checkValues(days[0], "2024-07-01", (10*95.0+14*80.0)/24, 20, 10)
	checkValues(days[1], "2024-07-02", 60, 21, 0)
	checkValues(days[2], "2024-07-03", 90, 22, 24)

	q := seen.URL.Query()
	if seen.URL.Path != "/v1/forecast" {
		t.Errorf("path = %s", seen.URL.Path)
	}
	if q.Get("forecast_days") != "3" {
		t.Errorf("forecast_days = %q", q.Get("forecast_days"))
	}
	if q.Get("hourly") != "relative_humidity_2m,dew_point_2m" {
		t.Errorf("hourly = %q", q.Get("hourly"))
	}
	if q.Get("latitude") != "14.5995" || q.Get("longitude") != "120.9842" {
		t.Errorf("coords = %s,%s", q.Get("latitude"), q.Get("longitude"))
	}
}

func TestAgroResponse_StrictParsing(t *testing.T) {
	flat := func(d, h int) float64 { return 85 }

	tests := []struct {
		name   string
		mutate func(p map[string]interface{})
		field  string
	}{
		{
			name: "null humidity",
			mutate: func(p map[string]interface{}) {
				p["hourly"].(map[string]interface{})["relative_humidity_2m"].([]interface{})[30] = nil
			},
			field: "hourly.relative_humidity_2m",
		},
		{
			name: "short hourly series",
			mutate: func(p map[string]interface{}) {
				h := p["hourly"].(map[string]interface{})
				h["dew_point_2m"] = h["dew_point_2m"].([]interface{})[:40]
			},
			field: "hourly.dew_point_2m",
		},
		{
			name: "missing rain array",
			mutate: func(p map[string]interface{}) {
				delete(p["daily"].(map[string]interface{}), "rain_sum")
			},
			field: "daily.rain_sum",
		},
		{
			name: "malformed date",
			mutate: func(p map[string]interface{}) {
				p["daily"].(map[string]interface{})["time"].([]string)[1] = "07/02/2024"
			},
			field: "daily.time",
		},
		{
			name: "null max temperature",
			mutate: func(p map[string]interface{}) {
				p["daily"].(map[string]interface{})["temperature_2m_max"].([]interface{})[0] = nil
			},
			field: "daily.temperature_2m_max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := agroPayload(2, flat)
			tt.mutate(p)

			raw, err := json.Marshal(p)
			if err != nil {
				t.Fatal(err)
			}
			var resp AgroResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				t.Fatal(err)
			}

			days, err := resp.ToWeatherDays(2)
			if err == nil {
				t.Fatalf("expected error, got %d days", len(days))
			}
			var vErr *models.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %T, want *models.ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestAgroResponse_ZeroDays(t *testing.T) {
	var resp AgroResponse
	if _, err := resp.ToWeatherDays(0); err == nil {
		t.Error("expected error for zero days")
	}
}

func TestClient_Outlook(t *testing.T) {
	body := map[string]interface{}{
		"current": map[string]interface{}{"temperature_2m": 29.4, "weather_code": 61},
		"daily": map[string]interface{}{
			"time":                          []string{"2024-07-01", "2024-07-02"},
			"weather_code":                  []interface{}{0, 95},
			"rain_sum":                      []interface{}{0.0, 12.3},
			"precipitation_probability_max": []interface{}{5, 80},
			"temperature_2m_max":            []interface{}{31.0, 28.0},
			"temperature_2m_min":            []interface{}{24.0, 23.5},
		},
	}
	srv := serve(t, http.StatusOK, body, nil)
	client := NewClient(srv.URL, 5*time.Second, 0)

	out, err := client.Outlook(context.Background(), 10, 120, 2)
	if err != nil {
		t.Fatalf("Outlook() error = %v", err)
	}
	if out.CurrentTemp != 29.4 || out.CurrentWeatherCode != 61 {
		t.Errorf("current = %v/%d", out.CurrentTemp, out.CurrentWeatherCode)
	}
	if out.CurrentDescription != "Rain: Slight, moderate and heavy intensity" {
		t.Errorf("CurrentDescription = %q", out.CurrentDescription)
	}
	if out.CurrentIcon != Icon(61) {
		t.Errorf("CurrentIcon = %q, want %q", out.CurrentIcon, Icon(61))
	}
	if len(out.Days) != 2 {
		t.Fatalf("got %d days, want 2", len(out.Days))
	}
	if out.Days[1].Description != "Thunderstorm: Slight or moderate" || out.Days[1].Icon != Icon(95) || out.Days[1].PrecipitationProbability != 80 {
		t.Errorf("day 2 = %+v", out.Days[1])
	}
	if out.Stale {
		t.Error("live outlook marked stale")
	}
}

func TestClient_ProviderError(t *testing.T) {
	srv := serve(t, http.StatusBadRequest, map[string]interface{}{"error": true, "reason": "bad latitude"}, nil)
	client := NewClient(srv.URL, 5*time.Second, 0)

	if _, err := client.AgroForecast(context.Background(), 999, 0, 3); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{2, "Mainly clear, partly cloudy, and overcast"},
		{48, "Fog and depositing rime fog"},
		{53, "Drizzle: Light, moderate, and dense intensity"},
		{81, "Rain showers: Slight, moderate, and violent"},
		{99, "Thunderstorm: Slight or moderate"},
		{71, "Unknown"},
		{-1, "Unknown"},
	}
	for _, tt := range tests {
		if got := Describe(tt.code); got != tt.want {
			t.Errorf("Describe(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIcon(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "\u2600\ufe0f"},
		{3, "\U0001F325\ufe0f"},
		{45, "\U0001F32B\ufe0f"},
		{51, "\U0001F327\ufe0f"},
		{66, "\U0001F327\ufe0f"},
		{82, "\U0001F326\ufe0f"},
		{95, "\u26C8\ufe0f"},
		{71, "\u2753"},
		{-1, "\u2753"},
	}
	for _, tt := range tests {
		if got := Icon(tt.code); got != tt.want {
			t.Errorf("Icon(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
