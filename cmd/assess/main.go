package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"paddyguard/internal/capture"
	"paddyguard/internal/config"
	"paddyguard/internal/inference"
	"paddyguard/internal/risk"
	"paddyguard/internal/services"
	"paddyguard/internal/weather"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	imagePath := flag.String("image", "", "Leaf photo (JPEG or PNG) to classify")
	savePrepared := flag.String("save-prepared", "", "Write the 224x224 prepared photo to this path")
	modelPath := flag.String("model", cfg.Model.Path, "ONNX classifier graph")
	libPath := flag.String("lib", cfg.Model.SharedLibraryPath, "ONNX Runtime shared library")
	forecast := flag.Bool("forecast", false, "Rank disease and pest risk from the weather forecast")
	lat := flag.Float64("lat", cfg.Weather.DefaultLatitude, "Field latitude")
	lon := flag.Float64("lon", cfg.Weather.DefaultLongitude, "Field longitude")
	days := flag.Int("days", cfg.Weather.RiskDays, "Forecast days to assess (1-16)")
	diseases := flag.String("diseases", "", "Comma-separated codes to assess (default: whole catalog)")
	flag.Parse()

	if *days < 1 || *days > 16 {
		fmt.Fprintf(os.Stderr, "Invalid -days %d: expected 1-16\n", *days)
		os.Exit(2)
	}
	if *imagePath == "" && !*forecast {
		fmt.Fprintln(os.Stderr, "Nothing to do: pass -image and/or -forecast")
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.NewStructuredLogger("paddyguard-assess", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("paddyguard_assess", prometheus.NewRegistry())
	ctx := context.Background()

	failed := false

	if *imagePath != "" {
		if err := diagnose(ctx, *imagePath, *savePrepared, &inference.ONNXLoader{
			ModelPath:         *modelPath,
			SharedLibraryPath: *libPath,
		}, logger, metricsCollector); err != nil {
			logger.Error(ctx, "[ASSESS_ERROR] Diagnosis failed", logging.Fields{"image": *imagePath}, err)
			fmt.Printf("Diagnosis failed: %v\n", err)
			failed = true
		}
	}

	if *forecast {
		codes := parseCodes(*diseases)
		if err := assessForecast(ctx, cfg, *lat, *lon, *days, codes, logger, metricsCollector); err != nil {
			logger.Error(ctx, "[ASSESS_ERROR] Risk assessment failed", logging.Fields{
				"latitude":  *lat,
				"longitude": *lon,
			}, err)
			fmt.Printf("Risk assessment failed: %v\n", err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

func parseCodes(s string) []string {
	if strings.TrimSpace(s) == "" {
		var codes []string
		for _, p := range risk.Profiles() {
			codes = append(codes, p.Code)
		}
		return codes
	}

	var codes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

func diagnose(ctx context.Context, path, savePath string, loader inference.Loader, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) error {
	photo, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if savePath != "" {
		img, _, err := capture.Prepare(bytes.NewReader(photo))
		if err != nil {
			return err
		}
		prepared, err := capture.EncodeJPEG(img)
		if err != nil {
			return err
		}
		if err := os.WriteFile(savePath, prepared, 0o644); err != nil {
			return err
		}
	}

	host := inference.NewHost(loader, logger, metricsCollector)
	defer func() {
		host.Close()
		inference.ShutdownRuntime()
	}()

	svc := services.NewDiagnosisService(host, nil, logger, metricsCollector)
	d, err := svc.Diagnose(ctx, bytes.NewReader(photo), path)
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("LEAF DIAGNOSIS")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Image:        %s\n", path)
	fmt.Printf("Label:        %s\n", d.Label)
	fmt.Printf("Confidence:   %.4f\n", d.Confidence)
	fmt.Printf("Assessment:   %s\n", d.Treatment.Title)
	fmt.Printf("              %s\n", d.Treatment.Description)
	for _, step := range d.Treatment.Treatment {
		fmt.Printf("  - %s\n", step)
	}
	if savePath != "" {
		fmt.Printf("Prepared:     %s\n", savePath)
	}
	fmt.Println()
	return nil
}

func assessForecast(ctx context.Context, cfg *config.Config, lat, lon float64, days int, codes []string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) error {
	client := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, cfg.Weather.Retries)
	forecastService := weather.NewService(client, weather.NewMemoryCache(16), cfg.Weather.CacheTTL, logger, metricsCollector)
	monitoring := services.NewMonitoringService(nil, forecastService, services.MonitoringOptions{
		RiskDays: days,
	}, logger, metricsCollector)

	result, err := monitoring.AssessLocation(ctx, lat, lon, codes)
	if err != nil {
		return err
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("RISK FORECAST  lat=%.4f lon=%.4f\n", lat, lon)
	fmt.Println(strings.Repeat("=", 80))

	for _, day := range result.Days {
		w := day.Weather
		fmt.Printf("\n%s  T %.1f-%.1f C  RH %.0f%%  rain %.1f mm  dew %.1f C  wet %.0f h\n",
			day.Date, w.TempMin, w.TempMax, w.RHAvg, w.RainSum, w.DewpointAvg, w.LeafWetnessHours)
		fmt.Println(strings.Repeat("-", 80))
		for _, r := range day.Results {
			name := r.Code
			if p, ok := risk.Lookup(r.Code); ok {
				name = p.Name
			}
			fmt.Printf("  %-28s %-9s %d/%d conditions\n", name, r.Risk, r.MatchCount, r.TotalConditions)
		}
	}
	fmt.Println()
	return nil
}
