package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	viper.Reset()
	once = sync.Once{}
	t.Setenv("CONFIG_NAME", "nonexistent-config-file")

	cfg, err := NewConfig()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	// Test singleton behavior
	cfg2, err := NewConfig()
	assert.NoError(t, err)
	assert.Equal(t, cfg, cfg2, "Expected NewConfig to return the same instance")
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	configContent := `log_level: debug
default_algorithm: ES256
store:
  type: file
  path: /var/lib/jencoder
  key: team-config
  persist_key_material: true
  ttl: 24h
server:
  port: 9000
  max_body_bytes: 1048576
log_to_s3: true
log_bucket: audit-bucket
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jencoder.yaml"), []byte(configContent), 0o600))

	t.Setenv("CONFIG_NAME", "jencoder")
	t.Setenv("CONFIG_PATH", dir)

	cfg := &Config{}
	require.NoError(t, cfg.LoadConfig())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ES256", cfg.DefaultAlgorithm)
	assert.Equal(t, StoreFile, cfg.Store.Type)
	assert.Equal(t, "/var/lib/jencoder", cfg.Store.Path)
	assert.Equal(t, "team-config", cfg.Store.Key)
	assert.True(t, cfg.Store.PersistKeyMaterial)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(1048576), cfg.Server.MaxBodyBytes)
	assert.True(t, cfg.LogToS3)
	assert.Equal(t, "audit-bucket", cfg.LogBucket)
	assert.Equal(t, "jencoder-logs", cfg.LogPrefix)
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("CONFIG_NAME", "non-existent-config")
	t.Setenv("CONFIG_PATH", "/tmp/non-existent-path")

	cfg := &Config{}
	err := cfg.LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "HS256", cfg.DefaultAlgorithm)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "jencoder-config", cfg.Store.Key)
	assert.False(t, cfg.Store.PersistKeyMaterial)
	assert.Equal(t, time.Duration(0), cfg.Store.TTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(2<<20), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.LogToS3)
}

// TestLoadConfigFromEnvVars verifies that configuration can be properly loaded from environment variables
func TestLoadConfigFromEnvVars(t *testing.T) {
	viper.Reset()
	once = sync.Once{}

	t.Setenv("CONFIG_NAME", "nonexistent-config-file")
	t.Setenv("JENC_LOG_LEVEL", "warn")
	t.Setenv("JENC_DEFAULT_ALGORITHM", "EdDSA")
	t.Setenv("JENC_STORE_TYPE", "dynamodb")
	t.Setenv("JENC_STORE_DYNAMODB_TABLE", "env-settings-table")
	t.Setenv("JENC_STORE_S3_BUCKET", "env-settings-bucket")
	t.Setenv("JENC_STORE_S3_PREFIX", "env-settings/")
	t.Setenv("JENC_STORE_KEY", "env-key")
	t.Setenv("JENC_STORE_PERSIST_KEY_MATERIAL", "true")
	t.Setenv("JENC_STORE_TTL", "2h")
	t.Setenv("JENC_SERVER_PORT", "9999")
	t.Setenv("JENC_SERVER_MAX_BODY_BYTES", "4096")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "EdDSA", cfg.DefaultAlgorithm)
	assert.Equal(t, "dynamodb", cfg.Store.Type)
	assert.Equal(t, "env-settings-table", cfg.Store.DynamoDBTable)
	assert.Equal(t, "env-settings-bucket", cfg.Store.S3Bucket)
	assert.Equal(t, "env-settings/", cfg.Store.S3Prefix)
	assert.Equal(t, "env-key", cfg.Store.Key)
	assert.True(t, cfg.Store.PersistKeyMaterial)
	assert.Equal(t, 2*time.Hour, cfg.Store.TTL)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, int64(4096), cfg.Server.MaxBodyBytes)
}

func TestLoadConfigPlainLogLevelEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("CONFIG_NAME", "nonexistent-config-file")
	t.Setenv("LOG_LEVEL", "error")

	cfg := &Config{}
	require.NoError(t, cfg.LoadConfig())
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "empty config gets defaults",
			cfg:  Config{},
		},
		{
			name:    "invalid log level",
			cfg:     Config{LogLevel: "chatty"},
			wantErr: "invalid log level",
		},
		{
			name:    "unknown algorithm",
			cfg:     Config{DefaultAlgorithm: "none"},
			wantErr: "invalid default algorithm",
		},
		{
			name:    "unsupported store",
			cfg:     Config{Store: &Store{Type: "redis"}},
			wantErr: "unsupported store type",
		},
		{
			name:    "file store without path",
			cfg:     Config{Store: &Store{Type: StoreFile}},
			wantErr: "store path is required",
		},
		{
			name:    "s3 store without bucket",
			cfg:     Config{Store: &Store{Type: StoreS3}},
			wantErr: "S3 bucket name is required",
		},
		{
			name: "s3 store",
			cfg:  Config{Store: &Store{Type: StoreS3, S3Bucket: "bucket"}},
		},
		{
			name:    "dynamodb store without table",
			cfg:     Config{Store: &Store{Type: StoreDynamoDB}},
			wantErr: "DynamoDB table name is required",
		},
		{
			name:    "negative ttl",
			cfg:     Config{Store: &Store{TTL: -time.Second}},
			wantErr: "ttl cannot be negative",
		},
		{
			name:    "bad port",
			cfg:     Config{Server: &Server{Port: 70000, MaxBodyBytes: 1}},
			wantErr: "invalid server port",
		},
		{
			name:    "log shipping without bucket",
			cfg:     Config{LogToS3: true},
			wantErr: "log bucket is required",
		},
		{
			name:    "zero body limit",
			cfg:     Config{Server: &Server{Port: 8080}},
			wantErr: "max body bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.cfg.Store.Type)
			assert.NotEmpty(t, tt.cfg.Store.Key)
			assert.NotNil(t, tt.cfg.Server)
		})
	}
}
