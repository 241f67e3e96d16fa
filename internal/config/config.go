package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Model    ModelConfig
	Weather  WeatherConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// ModelConfig locates the classifier graph and the ONNX Runtime library
type ModelConfig struct {
	Path              string
	SharedLibraryPath string
	// Preload loads the graph at startup instead of on the first diagnosis
	Preload bool
}

// WeatherConfig holds forecast provider settings
type WeatherConfig struct {
	BaseURL     string
	Timeout     time.Duration
	Retries     int
	CacheTTL    time.Duration
	RiskDays    int
	OutlookDays int
	// Default coordinates for the outlook when no field is active
	DefaultLatitude  float64
	DefaultLongitude float64
}

// RedisConfig holds forecast cache settings. An empty Address selects the in-memory cache.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	MaxIdle  int
	Prefix   string
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory, if present, seeds variables that are not already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []string
	p := &parser{errs: &errs}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         p.int("SERVER_PORT", 8080),
			ReadTimeout:  p.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: p.duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  p.duration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            p.int("DB_PORT", 5432),
			User:            getEnv("DB_USER", "paddyguard"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "paddyguard"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: p.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Model: ModelConfig{
			Path:              getEnv("MODEL_PATH", "assets/leaf_classifier.onnx"),
			SharedLibraryPath: getEnv("ONNXRUNTIME_LIB", ""),
			Preload:           p.bool("MODEL_PRELOAD", false),
		},
		Weather: WeatherConfig{
			BaseURL:          getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
			Timeout:          p.duration("WEATHER_TIMEOUT", 10*time.Second),
			Retries:          p.int("WEATHER_RETRIES", 1),
			CacheTTL:         p.duration("WEATHER_CACHE_TTL", 6*time.Hour),
			RiskDays:         p.int("WEATHER_RISK_DAYS", 3),
			OutlookDays:      p.int("WEATHER_OUTLOOK_DAYS", 5),
			DefaultLatitude:  p.float("WEATHER_DEFAULT_LAT", 14.5995),
			DefaultLongitude: p.float("WEATHER_DEFAULT_LON", 120.9842),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
			MaxIdle:  p.int("REDIS_MAX_IDLE", 4),
			Prefix:   getEnv("REDIS_PREFIX", "paddyguard:"),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database max open connections must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database max idle connections (%d) exceeds max open (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model path is required")
	}
	if c.Weather.BaseURL == "" {
		return fmt.Errorf("weather base URL is required")
	}
	if c.Weather.RiskDays < 1 || c.Weather.RiskDays > 16 {
		return fmt.Errorf("weather risk days must be between 1 and 16")
	}
	if c.Weather.OutlookDays < 1 || c.Weather.OutlookDays > 16 {
		return fmt.Errorf("weather outlook days must be between 1 and 16")
	}
	if c.Weather.CacheTTL <= 0 {
		return fmt.Errorf("weather cache TTL must be positive")
	}
	if c.Weather.Retries < 0 {
		return fmt.Errorf("weather retries cannot be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// parser collects every malformed variable instead of stopping at the first
type parser struct {
	errs *[]string
}

func (p *parser) fail(key, value, kind string) {
	*p.errs = append(*p.errs, fmt.Sprintf("%s=%q is not a valid %s", key, value, kind))
}

func (p *parser) int(key string, defaultValue int) int {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, "integer")
		return defaultValue
	}
	return n
}

func (p *parser) float(key string, defaultValue float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, "number")
		return defaultValue
	}
	return f
}

func (p *parser) bool(key string, defaultValue bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, "boolean")
		return defaultValue
	}
	return b
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, "duration")
		return defaultValue
	}
	return d
}
