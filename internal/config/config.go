// Package config provides configuration loading and validation for the ranking server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the ranking server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Storage. Both are optional; without them the server runs on the
	// built-in catalog and an uncached forecast client.
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// JWT Authentication. Required in production.
	JWTSecret string `koanf:"jwt_secret"`

	// Catalog source. CatalogPath wins over S3, S3 wins over Postgres.
	CatalogPath              string        `koanf:"catalog_path"`
	CatalogS3Bucket          string        `koanf:"catalog_s3_bucket"`
	CatalogS3Key             string        `koanf:"catalog_s3_key"`
	CatalogS3Endpoint        string        `koanf:"catalog_s3_endpoint"`
	CatalogS3AccessKeyID     string        `koanf:"catalog_s3_access_key_id"`
	CatalogS3SecretAccessKey string        `koanf:"catalog_s3_secret_access_key"`
	CatalogRefreshInterval   time.Duration `koanf:"catalog_refresh_interval"` // 0 disables refresh

	// Scoring policy calibration file (JSON)
	CalibrationPath string `koanf:"calibration_path"`

	// Weather forecast
	WeatherBaseURL  string        `koanf:"weather_base_url"`
	WeatherTimeout  time.Duration `koanf:"weather_timeout"`
	WeatherCacheTTL time.Duration `koanf:"weather_cache_ttl"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	TracingExporter   string  `koanf:"tracing_exporter"` // otlp-grpc or otlp-http
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`

	// Ranking overrides applied on top of the calibrated policy
	MinAltitude float64 `koanf:"min_altitude"`
	TopN        int     `koanf:"top_n"`
	DefaultSeed int64   `koanf:"default_seed"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret           = errors.New("JWT_SECRET is required in production")
	ErrMissingCatalogS3Bucket     = errors.New("CATALOG_S3_BUCKET is required")
	ErrMissingCatalogS3Key        = errors.New("CATALOG_S3_KEY is required")
	ErrMissingCatalogS3Credential = errors.New("CATALOG_S3_ACCESS_KEY_ID and CATALOG_S3_SECRET_ACCESS_KEY must be set together")
	ErrInvalidPort                = errors.New("PORT must be a valid integer")
	ErrInvalidDuration            = errors.New("must be a valid duration")
	ErrInvalidNumber              = errors.New("must be a valid number")
	ErrInvalidTracingExporter     = errors.New("TRACING_EXPORTER must be otlp-grpc or otlp-http")
	ErrInvalidSampleRate          = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrInvalidMinAltitude         = errors.New("MIN_ALTITUDE must be between -90 and 90")
	ErrInvalidTopN                = errors.New("TOP_N must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultWeatherBaseURL    = "https://api.open-meteo.com/v1/forecast"
	DefaultWeatherTimeout    = 3 * time.Second
	DefaultWeatherCacheTTL   = 30 * time.Minute
	DefaultTracingExporter   = "otlp-http"
	DefaultTracingSampleRate = 0.1
	DefaultMinAltitude       = 7.5
	DefaultTopN              = 5
	DefaultSeed              = 42
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// Try SKYRANK_PORT first, then PORT
	port, err := getEnvIntOrDefaultMulti([]string{"SKYRANK_PORT", "PORT"}, k.Int("port"), DefaultPort)
	collect(err)

	topN, err := getEnvIntOrDefault("TOP_N", k.Int("top_n"), DefaultTopN)
	collect(err)
	seed, err := getEnvIntOrDefault("DEFAULT_SEED", k.Int("default_seed"), DefaultSeed)
	collect(err)
	minAltitude, err := getEnvFloatOrDefault("MIN_ALTITUDE", k.Float64("min_altitude"), DefaultMinAltitude)
	collect(err)
	sampleRate, err := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k.Float64("tracing_sample_rate"), DefaultTracingSampleRate)
	collect(err)

	refresh, err := getEnvDurationOrDefault("CATALOG_REFRESH_INTERVAL", k.String("catalog_refresh_interval"), 0)
	collect(err)
	weatherTimeout, err := getEnvDurationOrDefault("WEATHER_TIMEOUT", k.String("weather_timeout"), DefaultWeatherTimeout)
	collect(err)
	cacheTTL, err := getEnvDurationOrDefault("WEATHER_CACHE_TTL", k.String("weather_cache_ttl"), DefaultWeatherCacheTTL)
	collect(err)

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                     port,
		Env:                      getEnvOrDefaultMulti([]string{"SKYRANK_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:              getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:                 getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:                getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		CatalogPath:              getEnvOrKoanf("CATALOG_PATH", k, "catalog_path"),
		CatalogS3Bucket:          getEnvOrKoanf("CATALOG_S3_BUCKET", k, "catalog_s3_bucket"),
		CatalogS3Key:             getEnvOrKoanf("CATALOG_S3_KEY", k, "catalog_s3_key"),
		CatalogS3Endpoint:        getEnvOrKoanf("CATALOG_S3_ENDPOINT", k, "catalog_s3_endpoint"),
		CatalogS3AccessKeyID:     getEnvOrKoanf("CATALOG_S3_ACCESS_KEY_ID", k, "catalog_s3_access_key_id"),
		CatalogS3SecretAccessKey: getEnvOrKoanf("CATALOG_S3_SECRET_ACCESS_KEY", k, "catalog_s3_secret_access_key"),
		CatalogRefreshInterval:   refresh,
		CalibrationPath:          getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		WeatherBaseURL:           getEnvOrDefault("WEATHER_BASE_URL", k.String("weather_base_url"), DefaultWeatherBaseURL),
		WeatherTimeout:           weatherTimeout,
		WeatherCacheTTL:          cacheTTL,
		TracingEnabled:           getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporter:          getEnvOrDefault("TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		OTLPEndpoint:             getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TracingSampleRate:        sampleRate,
		MinAltitude:              minAltitude,
		TopN:                     topN,
		DefaultSeed:              int64(seed),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CatalogSource names the configured catalog source: file, s3, postgres or
// static.
func (c *Config) CatalogSource() string {
	switch {
	case c.CatalogPath != "":
		return "file"
	case c.CatalogS3Bucket != "":
		return "s3"
	case c.DatabaseURL != "":
		return "postgres"
	default:
		return "static"
	}
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// A zero value from the file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s %w", envKey, ErrInvalidNumber)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s %w", envKey, ErrInvalidNumber)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration string ("90s", "5m") from the
// environment, then the file, then falls back to default.
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s %w", envKey, ErrInvalidDuration)
	}
	return d, nil
}

// getEnvBoolOrDefault accepts true/1/yes/on and false/0/no/off from the
// environment. Unrecognized values leave the file or default value in place.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		// Env var takes precedence over file config
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// Validate checks cross-field constraints.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	// S3 configuration is optional. Only validate fields if any S3 value is set.
	if c.CatalogS3Bucket != "" || c.CatalogS3Key != "" || c.CatalogS3Endpoint != "" ||
		c.CatalogS3AccessKeyID != "" || c.CatalogS3SecretAccessKey != "" {
		if c.CatalogS3Bucket == "" {
			errs = append(errs, ErrMissingCatalogS3Bucket)
		}
		if c.CatalogS3Key == "" {
			errs = append(errs, ErrMissingCatalogS3Key)
		}
		if (c.CatalogS3AccessKeyID == "") != (c.CatalogS3SecretAccessKey == "") {
			errs = append(errs, ErrMissingCatalogS3Credential)
		}
	}

	if c.TracingExporter != "otlp-grpc" && c.TracingExporter != "otlp-http" {
		errs = append(errs, ErrInvalidTracingExporter)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}
	if c.MinAltitude < -90 || c.MinAltitude > 90 {
		errs = append(errs, ErrInvalidMinAltitude)
	}
	if c.TopN < 1 {
		errs = append(errs, ErrInvalidTopN)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                         strconv.Itoa(c.Port),
		"env":                          c.Env,
		"database_url":                 maskDatabaseURL(c.DatabaseURL),
		"redis_url":                    maskDatabaseURL(c.RedisURL),
		"jwt_secret":                   maskSecret(c.JWTSecret),
		"catalog_source":               c.CatalogSource(),
		"catalog_path":                 c.CatalogPath,
		"catalog_s3_bucket":            c.CatalogS3Bucket,
		"catalog_s3_key":               c.CatalogS3Key,
		"catalog_s3_endpoint":          c.CatalogS3Endpoint,
		"catalog_s3_access_key_id":     maskSecret(c.CatalogS3AccessKeyID),
		"catalog_s3_secret_access_key": maskSecret(c.CatalogS3SecretAccessKey),
		"catalog_refresh_interval":     c.CatalogRefreshInterval.String(),
		"calibration_path":             c.CalibrationPath,
		"weather_base_url":             c.WeatherBaseURL,
		"weather_timeout":              c.WeatherTimeout.String(),
		"weather_cache_ttl":            c.WeatherCacheTTL.String(),
		"tracing_enabled":              strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":             c.TracingExporter,
		"otlp_endpoint":                c.OTLPEndpoint,
		"tracing_sample_rate":          strconv.FormatFloat(c.TracingSampleRate, 'f', -1, 64),
		"min_altitude":                 strconv.FormatFloat(c.MinAltitude, 'f', -1, 64),
		"top_n":                        strconv.Itoa(c.TopN),
		"default_seed":                 strconv.FormatInt(c.DefaultSeed, 10),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Works for postgres://, postgresql:// and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
