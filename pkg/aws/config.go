// Package aws loads the AWS SDK configuration shared by the S3 and DynamoDB
// backed settings stores and the S3 log shipper.
package aws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultRetries is the maximum number of attempts of an AWS API call
const DefaultRetries = 3

var (
	mu     sync.Mutex
	loaded *aws.Config

	loadDefaultConfig = config.LoadDefaultConfig
)

// LoadConfig returns the process wide AWS configuration, loading it on first
// use. A failed load is not cached.
func LoadConfig(ctx context.Context) (aws.Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if loaded != nil {
		return *loaded, nil
	}

	cfg, err := loadDefaultConfig(ctx, config.WithRetryMaxAttempts(DefaultRetries))
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	loaded = &cfg
	return cfg, nil
}
