package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("STORE_CALL_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "dev_", cfg.TablePrefix)
	assert.Equal(t, MetadataBackendPostgres, cfg.MetadataBackend)
	assert.Equal(t, BlobBackendS3, cfg.BlobBackend)
	assert.Equal(t, 15*time.Second, cfg.StoreCallTimeout)
	assert.Equal(t, 8, cfg.CascadeConcurrency)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("CASCADE_CONCURRENCY", "4")
	t.Setenv("STORE_CALL_TIMEOUT", "3s")
	t.Setenv("BLOB_OPS_PER_SECOND", "12.5")

	cfg := Load()

	assert.Equal(t, "prod_", cfg.TablePrefix)
	assert.Equal(t, 4, cfg.CascadeConcurrency)
	assert.Equal(t, 3*time.Second, cfg.StoreCallTimeout)
	assert.InDelta(t, 12.5, cfg.BlobOpsPerSecond, 0.0001)
}

func TestLoad_InvalidNumberFallsBack(t *testing.T) {
	t.Setenv("CASCADE_MAX_ATTEMPTS", "three")
	assert.Equal(t, 3, Load().CascadeMaxAttempts)
}

func validConfig() *Config {
	return &Config{
		Port:               "8080",
		Environment:        "test",
		AuthJWTSecret:      "secret",
		MetadataBackend:    MetadataBackendBadger,
		BadgerDir:          "/tmp/meta",
		BlobBackend:        BlobBackendMemory,
		StoreCallTimeout:   5 * time.Second,
		CascadeConcurrency: 4,
		CascadeMaxAttempts: 3,
		BlobOpsPerSecond:   50,
		RateLimitRPS:       10,
		RateLimitBurst:     20,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid badger + memory", mutate: func(c *Config) {}},
		{
			name:    "postgres without database url",
			mutate:  func(c *Config) { c.MetadataBackend = MetadataBackendPostgres },
			wantErr: true,
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.BlobBackend = BlobBackendS3; c.S3Region = "us-east-1" },
			wantErr: true,
		},
		{
			name: "s3 with bucket",
			mutate: func(c *Config) {
				c.BlobBackend = BlobBackendS3
				c.S3Bucket = "files"
				c.S3Region = "us-east-1"
			},
		},
		{
			name:    "no auth configured",
			mutate:  func(c *Config) { c.AuthJWTSecret = "" },
			wantErr: true,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.MetadataBackend = "mongo" },
			wantErr: true,
		},
		{
			name:    "fan-out above cap",
			mutate:  func(c *Config) { c.CascadeConcurrency = MaxCascadeConcurrency + 1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetupLogFile_KeepsNewest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"filespace-2024-01-01T00-00-00.log",
		"filespace-2024-01-02T00-00-00.log",
		"filespace-2024-01-03T00-00-00.log",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	f, err := SetupLogFile(dir, 2)
	require.NoError(t, err)
	defer f.Close()

	files, err := filepath.Glob(filepath.Join(dir, "filespace-*.log"))
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.NotContains(t, files, filepath.Join(dir, "filespace-2024-01-01T00-00-00.log"))
}
