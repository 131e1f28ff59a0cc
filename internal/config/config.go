package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `envconfig:"DB_HOST"`
	Port               string `envconfig:"DB_PORT" default:"5432"`
	User               string `envconfig:"DB_USER"`
	Password           string `envconfig:"DB_PASSWORD"`
	Name               string `envconfig:"DB_NAME"`
	SSLMode            string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns       int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns       int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetimeSec int    `envconfig:"DB_CONN_MAX_LIFETIME_SEC" default:"300"`
	AutoMigrate        bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	AppName            string `envconfig:"DB_APP_NAME" default:"reqdesk"`
	ConnectTimeoutSec  int    `envconfig:"DB_CONNECT_TIMEOUT_SEC" default:"5"`
	// ConnectRetries is how many extra pings startup makes before giving up.
	ConnectRetries int `envconfig:"DB_CONNECT_RETRIES" default:"5"`
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// LifecycleConfig tunes the request lifecycle rules.
type LifecycleConfig struct {
	// MinAttachments is the composition floor for a request's attachment set. It can only be raised above 2.
	MinAttachments int `envconfig:"LIFECYCLE_MIN_ATTACHMENTS" default:"2"`
	// StrictAttachments rejects candidate ids that do not resolve instead of dropping them.
	StrictAttachments bool `envconfig:"LIFECYCLE_STRICT_ATTACHMENTS" default:"false"`
}

// UploadConfig limits attachment uploads.
type UploadConfig struct {
	MaxBytes int `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
}

// TracingConfig mirrors the standard OTEL_* variables the exporter setup reads.
type TracingConfig struct {
	Disabled       bool   `envconfig:"OTEL_SDK_DISABLED" default:"false"`
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"reqdesk"`
	Protocol       string `envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc"`
	Endpoint       string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracesEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	Sampler        string `envconfig:"OTEL_TRACES_SAMPLER" default:"parentbased_traceidratio"`
	SamplerArg     string `envconfig:"OTEL_TRACES_SAMPLER_ARG" default:"1.0"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string `envconfig:"APP_HOST" default:"localhost:8080"`
	Port      string `envconfig:"PORT" default:"8080"`
	Timezone  string `envconfig:"APP_TIMEZONE" default:"UTC"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Lifecycle LifecycleConfig
	Upload    UploadConfig
	Tracing   TracingConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Lifecycle.MinAttachments < 2 {
		return nil, fmt.Errorf("LIFECYCLE_MIN_ATTACHMENTS must be at least 2, got %d", cfg.Lifecycle.MinAttachments)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves APP_TIMEZONE. It decides what "today" means for civil id expiry.
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
