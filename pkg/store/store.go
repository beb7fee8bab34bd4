package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boogy/jencoder/pkg/config"
)

// ErrNotFound is returned by Get when nothing is stored under the key or the entry expired
var ErrNotFound = errors.New("store: key not found")

// ErrTooLarge is returned by Set when the value exceeds the backend size limit
var ErrTooLarge = errors.New("store: value too large")

// StoreDefaults holds the default values shared by the store implementations
type StoreDefaults struct {
	Timeout time.Duration

	// Size limits
	MaxItemSize         int64
	DynamoDBMaxItemSize int64
	S3MaxObjectSize     int64
}

// Defaults provides the default configuration values for all store implementations
var Defaults = StoreDefaults{
	Timeout:             10 * time.Second, // Timeout of a single store operation
	MaxItemSize:         512 * 1024,       // Maximum size of a stored value (512KB)
	DynamoDBMaxItemSize: 400 * 1024,       // DynamoDB item size limit (400KB)
	S3MaxObjectSize:     1024 * 1024,      // Maximum object size read from S3 (1MB)
}

// Store keeps opaque values by key. A ttl of zero keeps the value until it is deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// NewStore creates the store implementation selected by the configuration
func NewStore(ctx context.Context, cfg *config.Store) (Store, error) {
	if cfg == nil {
		return NewMemoryStore(), nil
	}

	storeType := cfg.Type
	if storeType == "" {
		storeType = config.StoreMemory
	}

	switch storeType {
	case config.StoreMemory:
		return NewMemoryStore(), nil

	case config.StoreFile:
		if cfg.Path == "" {
			return nil, errors.New("store path is required for the file store")
		}
		return NewFileStore(cfg.Path)

	case config.StoreS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3 bucket name is required for the S3 store")
		}
		return NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix)

	case config.StoreDynamoDB:
		if cfg.DynamoDBTable == "" {
			return nil, errors.New("DynamoDB table name is required for the DynamoDB store")
		}
		return NewDynamoDBStore(ctx, cfg.DynamoDBTable)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}

// expiration returns the absolute expiry of a value written at now, zero for no expiry
func expiration(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, exp time.Time) bool {
	return !exp.IsZero() && now.After(exp)
}

func checkSize(key string, value []byte, limit int64) error {
	if int64(len(value)) > limit {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, key, len(value), limit)
	}
	return nil
}
