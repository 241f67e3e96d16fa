package weather

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"paddyguard/internal/models"
)

// Client talks to the Open-Meteo forecast API
type Client struct {
	http *resty.Client
}

// NewClient creates an Open-Meteo client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, retries int) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}
}

func coords(lat, lon float64) map[string]string {
	return map[string]string{
		"latitude":  strconv.FormatFloat(lat, 'f', 4, 64),
		"longitude": strconv.FormatFloat(lon, 'f', 4, 64),
		"timezone":  "auto",
	}
}

func (c *Client) get(ctx context.Context, params map[string]string, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get("/v1/forecast")
	if err != nil {
		return fmt.Errorf("forecast request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("forecast provider returned %s", resp.Status())
	}
	return nil
}

// AgroForecast fetches hourly humidity and dew point plus daily temperature
// and rain, aggregated into n WeatherDays.
func (c *Client) AgroForecast(ctx context.Context, lat, lon float64, n int) ([]models.WeatherDay, error) {
	params := coords(lat, lon)
	params["hourly"] = "relative_humidity_2m,dew_point_2m"
	params["daily"] = "temperature_2m_max,temperature_2m_min,rain_sum"
	params["forecast_days"] = strconv.Itoa(n)

	var payload AgroResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}
	return payload.ToWeatherDays(n)
}

// Outlook fetches current conditions and n days of display forecast
func (c *Client) Outlook(ctx context.Context, lat, lon float64, n int) (*models.Outlook, error) {
	params := coords(lat, lon)
	params["current"] = "temperature_2m,weather_code"
	params["daily"] = "weather_code,rain_sum,precipitation_probability_max,temperature_2m_max,temperature_2m_min"
	params["forecast_days"] = strconv.Itoa(n)

	var payload OutlookResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}
	return payload.ToOutlook(n)
}
