package weather

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"paddyguard/internal/models"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

type fakeProvider struct {
	days    []models.WeatherDay
	outlook *models.Outlook
	err     error
	calls   int
}

func (f *fakeProvider) AgroForecast(ctx context.Context, lat, lon float64, days int) ([]models.WeatherDay, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.days, nil
}

func (f *fakeProvider) Outlook(ctx context.Context, lat, lon float64, days int) (*models.Outlook, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.outlook, nil
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func newTestService(p Provider, c Cache) (*Service, *metrics.Collector) {
	logger := logging.NewStructuredLogger("weather-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	return NewService(p, c, time.Hour, logger, collector), collector
}

func TestService_AgroForecast(t *testing.T) {
	ctx := context.Background()
	live := []models.WeatherDay{
		{Date: "2024-07-01", TempMax: 30, TempMin: 22, RHAvg: 88, RainSum: 3, DewpointAvg: 21, LeafWetnessHours: 9},
		{Date: "2024-07-02", TempMax: 31, TempMin: 23, RHAvg: 70, RainSum: 0, DewpointAvg: 19, LeafWetnessHours: 0},
	}
	provider := &fakeProvider{days: live}
	cache := NewMemoryCache(16)
	svc, collector := newTestService(provider, cache)

	days, stale, err := svc.AgroForecast(ctx, 14.60, 120.98, 2)
	if err != nil {
		t.Fatalf("live AgroForecast() error = %v", err)
	}
	if stale {
		t.Error("live result marked stale")
	}
	if len(days) != 2 || days[0] != live[0] {
		t.Errorf("days = %+v", days)
	}

	// provider goes down: the cached copy is served and marked stale
	provider.err = errors.New("503 Service Unavailable")
	days, stale, err = svc.AgroForecast(ctx, 14.601, 120.979, 2)
	if err != nil {
		t.Fatalf("fallback AgroForecast() error = %v", err)
	}
	if !stale {
		t.Error("cached result not marked stale")
	}
	if len(days) != 2 || days[1] != live[1] {
		t.Errorf("cached days = %+v", days)
	}

	// different location has no cache entry
	_, _, err = svc.AgroForecast(ctx, -6.2, 106.8, 2)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want *UnavailableError", err)
	}
	if !unavailable.IsTransient() {
		t.Error("UnavailableError should be transient")
	}
	if unavailable.Kind != KindAgro {
		t.Errorf("Kind = %q", unavailable.Kind)
	}

	if got := testutil.ToFloat64(collector.ForecastFetchesTotal.WithLabelValues(KindAgro, "live")); got != 1 {
		t.Errorf("live fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ForecastFetchesTotal.WithLabelValues(KindAgro, "cache")); got != 1 {
		t.Errorf("cache fetches = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.ForecastErrorsTotal.WithLabelValues("provider")); got != 2 {
		t.Errorf("provider errors = %v, want 2", got)
	}

	// every provider call is timed, failed ones included
	var m dto.Metric
	if err := collector.ForecastFetchDuration.WithLabelValues(KindAgro).(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := m.GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("fetch duration samples = %d, want 3", got)
	}
}

func TestService_Outlook(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{outlook: &models.Outlook{
		CurrentTemp:        28,
		CurrentWeatherCode: 2,
		CurrentDescription: Describe(2),
		Days:               []models.OutlookDay{{Date: "2024-07-01", WeatherCode: 2}},
	}}
	svc, _ := newTestService(provider, NewMemoryCache(4))

	out, err := svc.Outlook(ctx, 1, 2, 5)
	if err != nil {
		t.Fatalf("Outlook() error = %v", err)
	}
	if out.Stale || out.CurrentTemp != 28 {
		t.Errorf("live outlook = %+v", out)
	}

	provider.err = context.DeadlineExceeded
	out, err = svc.Outlook(ctx, 1, 2, 5)
	if err != nil {
		t.Fatalf("fallback Outlook() error = %v", err)
	}
	if !out.Stale || len(out.Days) != 1 {
		t.Errorf("cached outlook = %+v", out)
	}
}

func TestService_BrokenCache(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{days: []models.WeatherDay{{Date: "2024-07-01"}}}
	svc, _ := newTestService(provider, brokenCache{})

	if _, _, err := svc.AgroForecast(ctx, 0, 0, 1); err != nil {
		t.Fatalf("cache write failure should not fail a live fetch: %v", err)
	}

	provider.err = errors.New("down")
	_, _, err := svc.AgroForecast(ctx, 0, 0, 1)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("error = %v, want *UnavailableError", err)
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey(KindAgro, 14.59951, 120.98421, 3); got != "forecast:agro:14.60:120.98:3" {
		t.Errorf("CacheKey() = %q", got)
	}
	if CacheKey(KindAgro, 1, 1, 3) == CacheKey(KindOutlook, 1, 1, 3) {
		t.Error("kinds share a key")
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&models.ValidationError{Field: "daily.time"}, "invalid_payload"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "provider"},
	}
	for _, tt := range tests {
		if got := errorType(tt.err); got != tt.want {
			t.Errorf("errorType(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(2)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "a", []byte("1"), time.Minute)
	now = now.Add(time.Second)
	cache.Set(ctx, "b", []byte("2"), time.Minute)
	now = now.Add(time.Second)

	// touch a so b becomes least recently used
	if v, ok, _ := cache.Get(ctx, "a"); !ok || string(v) != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	now = now.Add(time.Second)
	cache.Set(ctx, "c", []byte("3"), time.Minute)

	if _, ok, _ := cache.Get(ctx, "b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok, _ := cache.Get(ctx, "c"); !ok {
		t.Error("c missing")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "a"); ok {
		t.Error("a should have expired")
	}
}
