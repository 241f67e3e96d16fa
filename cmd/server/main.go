package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paddyguard/internal/config"
	"paddyguard/internal/handlers"
	"paddyguard/internal/inference"
	"paddyguard/internal/repository"
	"paddyguard/internal/services"
	"paddyguard/internal/weather"
	"paddyguard/pkg/database"
	"paddyguard/pkg/logging"
	"paddyguard/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("paddyguard-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting PaddyGuard API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Database,
		"model_path":  cfg.Model.Path,
	})

	metricsCollector := metrics.NewCollector("paddyguard", prometheus.DefaultRegisterer)

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	historyRepo := repository.NewHistoryRepository(db, logger, metricsCollector)
	fieldRepo := repository.NewFieldRepository(db, logger, metricsCollector)

	// Classifier graph; loaded lazily unless preload is set
	host := inference.NewHost(&inference.ONNXLoader{
		ModelPath:         cfg.Model.Path,
		SharedLibraryPath: cfg.Model.SharedLibraryPath,
	}, logger, metricsCollector)
	defer func() {
		host.Close()
		if err := inference.ShutdownRuntime(); err != nil {
			logger.Error(ctx, "[SHUTDOWN_ERROR] Failed to release ONNX runtime", logging.Fields{}, err)
		}
	}()

	if cfg.Model.Preload {
		go func() {
			if err := host.Load(ctx); err != nil {
				logger.Warn(ctx, "[MODEL_PRELOAD] Preload failed; the next diagnosis will retry", logging.Fields{
					"error": err.Error(),
				})
			}
		}()
	}

	// Forecast cache
	var cache weather.Cache
	if cfg.Redis.Address != "" {
		redisCache := weather.NewRedisCache(
			weather.NewRedisPool(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.MaxIdle),
			cfg.Redis.Prefix,
		)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn(ctx, "[STARTUP] Redis unreachable; forecasts will not be cached until it recovers", logging.Fields{
				"address": cfg.Redis.Address,
				"error":   err.Error(),
			})
		}
		cache = redisCache
	} else {
		cache = weather.NewMemoryCache(256)
	}

	forecastClient := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, cfg.Weather.Retries)
	forecastService := weather.NewService(forecastClient, cache, cfg.Weather.CacheTTL, logger, metricsCollector)

	// Initialize services
	diagnosisService := services.NewDiagnosisService(host, historyRepo, logger, metricsCollector)
	fieldService := services.NewFieldService(fieldRepo, logger, metricsCollector)
	monitoringService := services.NewMonitoringService(fieldRepo, forecastService, services.MonitoringOptions{
		RiskDays:         cfg.Weather.RiskDays,
		OutlookDays:      cfg.Weather.OutlookDays,
		DefaultLatitude:  cfg.Weather.DefaultLatitude,
		DefaultLongitude: cfg.Weather.DefaultLongitude,
	}, logger, metricsCollector)

	handler := handlers.NewHandler(diagnosisService, fieldService, monitoringService, db, logger, metricsCollector)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
