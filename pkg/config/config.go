package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/utils"
	"github.com/spf13/viper"
)

// Store types
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreS3       = "s3"
	StoreDynamoDB = "dynamodb"
)

var (
	once             sync.Once
	instance         *Config
	logLevel         = "info"            // Default log level
	defaultAlgorithm = algorithm.HS256   // Algorithm used when settings do not name one
	storeType        = StoreMemory       // Default settings store
	storePath        = ".jencoder"       // Directory of the file store
	storeKey         = "jencoder-config" // Key the settings are saved under
	storeTTL         = "0s"              // Settings never expire unless set
	serverPort       = 8080              // Port of the local HTTP server
	serverMaxBody    = int64(2 << 20)    // Request body limit of the HTTP front ends (2MB)
	logPrefix        = "jencoder-logs"   // Key prefix of shipped request logs
)

type Store struct {
	Type               string        `mapstructure:"type"`                 // Store type ("memory", "file", "s3", "dynamodb")
	Path               string        `mapstructure:"path"`                 // Directory for the file store
	S3Bucket           string        `mapstructure:"s3_bucket"`            // S3 bucket name (if using S3 store)
	S3Prefix           string        `mapstructure:"s3_prefix"`            // S3 key prefix (if using S3 store)
	DynamoDBTable      string        `mapstructure:"dynamodb_table"`       // DynamoDB table name (if using DynamoDB store)
	Key                string        `mapstructure:"key"`                  // Key the settings are saved under
	PersistKeyMaterial bool          `mapstructure:"persist_key_material"` // Save secrets and private keys along with the settings
	TTL                time.Duration `mapstructure:"ttl"`                  // Expiry of saved settings, 0 keeps them forever
}

type Server struct {
	Port         int   `mapstructure:"port"`           // Listen port of cmd/local
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"` // Maximum accepted request body
}

type Config struct {
	LogLevel         string  `mapstructure:"log_level"`         // debug, info, warn or error
	DefaultAlgorithm string  `mapstructure:"default_algorithm"` // Algorithm preselected for new settings
	Store            *Store  `mapstructure:"store"`             // Settings store configuration
	Server           *Server `mapstructure:"server"`            // HTTP front end configuration
	LogToS3          bool    `mapstructure:"log_to_s3"`         // Ship Lambda request logs to S3
	LogBucket        string  `mapstructure:"log_bucket"`        // Bucket receiving the shipped logs
	LogPrefix        string  `mapstructure:"log_prefix"`        // Key prefix of the shipped logs
}

// NewConfig initializes and returns the configuration. It ensures that the config is loaded only once.
func NewConfig() (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		err = instance.LoadConfig()
	})
	return instance, err
}

// LoadConfig attempts to load configuration from a file or uses default values if not found.
func (c *Config) LoadConfig() error {
	// Set default config file name and path (yaml, json or toml or ...)
	configName := utils.GetEnv("CONFIG_NAME", "config") // Configuration file name without extension
	configPath := utils.GetEnv("CONFIG_PATH", ".")      // Configuration file path, default to current directory

	viper.SetEnvPrefix("jenc") // ex: "JENC_LOG_LEVEL"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("/etc/jencoder/")
	viper.AddConfigPath(configPath)
	viper.SetConfigName(configName)

	SetDefaults(viper.GetViper())

	_ = viper.BindEnv("log_level", "JENC_LOG_LEVEL", "LOG_LEVEL")
	_ = viper.BindEnv("default_algorithm") // JENC_DEFAULT_ALGORITHM
	_ = viper.BindEnv("log_to_s3")         // JENC_LOG_TO_S3
	_ = viper.BindEnv("log_bucket")        // JENC_LOG_BUCKET
	_ = viper.BindEnv("log_prefix")        // JENC_LOG_PREFIX

	// Store settings
	_ = viper.BindEnv("store.type")                 // JENC_STORE_TYPE
	_ = viper.BindEnv("store.path")                 // JENC_STORE_PATH
	_ = viper.BindEnv("store.s3_bucket")            // JENC_STORE_S3_BUCKET
	_ = viper.BindEnv("store.s3_prefix")            // JENC_STORE_S3_PREFIX
	_ = viper.BindEnv("store.dynamodb_table")       // JENC_STORE_DYNAMODB_TABLE
	_ = viper.BindEnv("store.key")                  // JENC_STORE_KEY
	_ = viper.BindEnv("store.persist_key_material") // JENC_STORE_PERSIST_KEY_MATERIAL
	_ = viper.BindEnv("store.ttl")                  // JENC_STORE_TTL

	// Server settings
	_ = viper.BindEnv("server.port")           // JENC_SERVER_PORT
	_ = viper.BindEnv("server.max_body_bytes") // JENC_SERVER_MAX_BODY_BYTES

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("problem reading config file: %w", err)
		}
		// Config file not found; rely on defaults
	}

	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return c.Validate()
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", logLevel)
	v.SetDefault("default_algorithm", defaultAlgorithm)
	v.SetDefault("store.type", storeType)
	v.SetDefault("store.path", storePath)
	v.SetDefault("store.key", storeKey)
	v.SetDefault("store.persist_key_material", false)
	v.SetDefault("store.ttl", storeTTL)
	v.SetDefault("server.port", serverPort)
	v.SetDefault("server.max_body_bytes", serverMaxBody)
	v.SetDefault("log_to_s3", false)
	v.SetDefault("log_prefix", logPrefix)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = logLevel
	}
	if _, err := utils.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.DefaultAlgorithm == "" {
		c.DefaultAlgorithm = defaultAlgorithm
	}
	if _, err := algorithm.Lookup(c.DefaultAlgorithm); err != nil {
		return fmt.Errorf("invalid default algorithm: %w", err)
	}

	if c.Store == nil {
		c.Store = &Store{Type: storeType, Path: storePath, Key: storeKey}
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}

	if c.Server == nil {
		c.Server = &Server{Port: serverPort, MaxBodyBytes: serverMaxBody}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server max body bytes must be positive")
	}

	if c.LogToS3 && c.LogBucket == "" {
		return errors.New("log bucket is required when log_to_s3 is enabled")
	}

	return nil
}

// Validate checks the store section
func (s *Store) Validate() error {
	if s.Type == "" {
		s.Type = storeType
	}
	if s.Key == "" {
		s.Key = storeKey
	}
	if s.TTL < 0 {
		return errors.New("store ttl cannot be negative")
	}

	switch s.Type {
	case StoreMemory:
	case StoreFile:
		if s.Path == "" {
			return errors.New("store path is required for the file store")
		}
	case StoreS3:
		if s.S3Bucket == "" {
			return errors.New("S3 bucket name is required for the S3 store")
		}
	case StoreDynamoDB:
		if s.DynamoDBTable == "" {
			return errors.New("DynamoDB table name is required for the DynamoDB store")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", s.Type)
	}
	return nil
}
