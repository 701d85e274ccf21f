// Package config defines the configuration of the HeatWatch dashboard service.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// Any invalid value aborts startup (fail fast).
package config

import (
	"time"

	"heatwatch/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for credential fields.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"heatwatch-dashboard"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	Server        ServerConfig
	Regions       RegionsConfig
	Feed          FeedConfig
	Heat          HeatConfig
	Providers     ProvidersConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// RegionsConfig selects which catalog regions the session tracks.
type RegionsConfig struct {
	IDs []string `envconfig:"REGION_IDS" default:"SP,GO" validate:"required,min=1,dive,required"`
}

// FeedConfig holds the cadence of the session timers and the fetch limits.
type FeedConfig struct {
	PollInterval     time.Duration `envconfig:"TEMPERATURE_POLL_INTERVAL" default:"1s" validate:"gt=0"`
	HeatInterval     time.Duration `envconfig:"HEAT_REFRESH_INTERVAL" default:"1s" validate:"gt=0"`
	ClockInterval    time.Duration `envconfig:"CLOCK_TICK_INTERVAL" default:"1s" validate:"gt=0"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s" validate:"gt=0"`
	FetchConcurrency int           `envconfig:"FETCH_CONCURRENCY" default:"8" validate:"min=1"`
	DisplayTimezone  string        `envconfig:"DISPLAY_TIMEZONE" default:"America/Sao_Paulo" validate:"required,timezone"`
}

// HeatConfig parameterizes the synthetic heat field.
type HeatConfig struct {
	PointsPerRegion    int     `envconfig:"HEAT_POINTS_PER_REGION" default:"200" validate:"min=1"`
	JitterDegrees      float64 `envconfig:"HEAT_JITTER_DEGREES" default:"0.1" validate:"gte=0"`
	IntensityMinFactor float64 `envconfig:"HEAT_INTENSITY_MIN_FACTOR" default:"0.8" validate:"gte=0"`
	IntensityMaxFactor float64 `envconfig:"HEAT_INTENSITY_MAX_FACTOR" default:"1.2" validate:"gtefield=IntensityMinFactor"`
	TempMin            float64 `envconfig:"HEAT_TEMP_MIN" default:"10"`
	TempMax            float64 `envconfig:"HEAT_TEMP_MAX" default:"40" validate:"gtfield=TempMin"`
	DefaultTemp        float64 `envconfig:"HEAT_DEFAULT_TEMP" default:"20"`
	// Seed of the point generator; 0 seeds from the wall clock.
	Seed uint64 `envconfig:"HEAT_SEED" default:"0"`
}

// ProvidersConfig holds the endpoints and resilience knobs of the geometry and
// weather providers.
type ProvidersConfig struct {
	GeometryBaseURL    string        `envconfig:"GEOMETRY_BASE_URL" default:"https://servicodados.ibge.gov.br/api/v3/malhas/estados" validate:"required,url"`
	WeatherBaseURL     string        `envconfig:"WEATHER_BASE_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"required,url"`
	WeatherAPIKey      SecretString  `envconfig:"WEATHER_API_KEY"`
	WeatherTimezone    string        `envconfig:"WEATHER_TIMEZONE" default:"America/Sao_Paulo"`
	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	UserAgent          string        `envconfig:"HTTP_USER_AGENT" default:"HeatWatch/1.0"`
	MaxRetries         int           `envconfig:"HTTP_MAX_RETRIES" default:"0" validate:"gte=0,lte=5"`
	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5" validate:"min=1"`
	// BreakerOpenTimeout is capped at half the poll interval so every tick
	// reaches the provider again.
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"500ms" validate:"gt=0"`
	// BreakerMaxRequests of 0 means one half-open request per region.
	BreakerMaxRequests uint32 `envconfig:"BREAKER_MAX_REQUESTS" default:"0"`
}

// ObservabilityConfig selects the metrics backend.
type ObservabilityConfig struct {
	MetricsBackend  string `envconfig:"METRICS_BACKEND" default:"none" validate:"oneof=none prometheus cloudwatch"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"HeatWatch"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"us-east-1"`
	// LocalStack Support (Empty in Prod)
	AWSEndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
