package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Metadata and blob backends
const (
	MetadataBackendPostgres = "postgres"
	MetadataBackendBadger   = "badger"

	BlobBackendS3     = "s3"
	BlobBackendMemory = "memory"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string

	// Auth: JWKS URL for asymmetric tokens, or a shared secret for HS256 (dev/test)
	AuthJWKSURL   string
	AuthJWTSecret string

	// Metadata store
	MetadataBackend string
	DatabaseURL     string
	BadgerDir       string

	// Blob store
	BlobBackend       string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3MaxRetries      int
	BlobPublicURL     string

	// Backing store call budget and cascade fan-out
	StoreCallTimeout   time.Duration
	CascadeConcurrency int
	CascadeMaxAttempts int
	BlobOpsPerSecond   float64

	// Per-user request limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Optional log file sink
	LogDir      string
	LogMaxFiles int

	// Prometheus metrics on /metrics
	MetricsEnabled bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		AuthJWKSURL:   getEnv("AUTH_JWKS_URL", ""),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		MetadataBackend: getEnv("METADATA_BACKEND", MetadataBackendPostgres),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BadgerDir:       getEnv("BADGER_DIR", "./data/metadata"),

		BlobBackend:       getEnv("BLOB_BACKEND", BlobBackendS3),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3MaxRetries:      getEnvInt("S3_MAX_RETRIES", 10),
		BlobPublicURL:     getEnv("BLOB_PUBLIC_URL", ""),

		StoreCallTimeout:   getEnvDuration("STORE_CALL_TIMEOUT", 15*time.Second),
		CascadeConcurrency: getEnvInt("CASCADE_CONCURRENCY", 8),
		CascadeMaxAttempts: getEnvInt("CASCADE_MAX_ATTEMPTS", 3),
		BlobOpsPerSecond:   getEnvFloat("BLOB_OPS_PER_SECOND", 100),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: getEnvInt("LOG_MAX_FILES", 10),

		MetricsEnabled: getEnv("METRICS_ENABLED", "true") == "true",
	}
}

// Validate checks that the selected backends have what they need to start.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Environment, validation.Required, validation.In("dev", "test", "prod")),
		validation.Field(&c.MetadataBackend, validation.Required,
			validation.In(MetadataBackendPostgres, MetadataBackendBadger)),
		validation.Field(&c.DatabaseURL,
			validation.When(c.MetadataBackend == MetadataBackendPostgres,
				validation.Required.Error("is required for the postgres metadata backend"))),
		validation.Field(&c.BadgerDir,
			validation.When(c.MetadataBackend == MetadataBackendBadger, validation.Required)),
		validation.Field(&c.BlobBackend, validation.Required, validation.In(BlobBackendS3, BlobBackendMemory)),
		validation.Field(&c.S3Bucket,
			validation.When(c.BlobBackend == BlobBackendS3,
				validation.Required.Error("is required for the s3 blob backend"))),
		validation.Field(&c.S3Region, validation.When(c.BlobBackend == BlobBackendS3, validation.Required)),
		validation.Field(&c.AuthJWKSURL,
			validation.When(c.AuthJWTSecret == "",
				validation.Required.Error("AUTH_JWKS_URL or AUTH_JWT_SECRET must be set"))),
		validation.Field(&c.StoreCallTimeout, validation.Min(time.Second)),
		validation.Field(&c.CascadeConcurrency, validation.Min(1), validation.Max(MaxCascadeConcurrency)),
		validation.Field(&c.CascadeMaxAttempts, validation.Min(1)),
		validation.Field(&c.BlobOpsPerSecond, validation.Min(float64(1))),
		validation.Field(&c.RateLimitRPS, validation.Min(float64(1))),
		validation.Field(&c.RateLimitBurst, validation.Min(1)),
	)
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %d\n", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %g\n", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: invalid %s=%q, using %s\n", key, value, defaultValue)
		return defaultValue
	}
	return d
}
