package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsconf "github.com/boogy/jencoder/pkg/aws"
)

// s3API is the subset of the S3 client used by the store
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Store implements Store with one JSON object per key
type s3Store struct {
	client     s3API
	bucketName string
	prefix     string
	now        func() time.Time
}

// NewS3Store creates an S3 backed store using the default AWS configuration
func NewS3Store(ctx context.Context, bucketName, prefix string) (Store, error) {
	cfg, err := awsconf.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	return newS3Store(s3.NewFromConfig(cfg), bucketName, prefix), nil
}

func newS3Store(client s3API, bucketName, prefix string) *s3Store {
	return &s3Store{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.TrimSuffix(prefix, "/"),
		now:        time.Now,
	}
}

// formatKey creates a consistent S3 object key from the store key
func (c *s3Store) formatKey(key string) string {
	if c.prefix == "" {
		return key + ".json"
	}
	return fmt.Sprintf("%s/%s.json", c.prefix, key)
}

func (c *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	objectKey := c.formatKey(key)

	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(objectKey),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", Defaults.S3MaxObjectSize)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			slog.Debug("Store miss in S3", "key", key)
			return nil, ErrNotFound
		}
		slog.Error("Failed to get object from S3", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", c.bucketName, objectKey, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Error closing S3 response body", "error", err)
		}
	}()

	if resp.ContentLength != nil && *resp.ContentLength > Defaults.S3MaxObjectSize {
		slog.Warn("S3 object exceeds maximum allowed size",
			"key", key,
			"size", *resp.ContentLength,
			"maxAllowed", Defaults.S3MaxObjectSize)
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrTooLarge, c.bucketName, objectKey)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, Defaults.S3MaxObjectSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}

	it, err := decodeItem(key, body)
	if err != nil {
		return nil, err
	}
	if expired(c.now(), it.Expiration) {
		slog.Debug("S3 entry expired", "key", key)
		if err := c.deleteObject(ctx, objectKey); err != nil {
			slog.Warn("Failed to delete expired object from S3", "key", key, "error", err)
		}
		return nil, ErrNotFound
	}

	slog.Debug("S3 store hit", "key", key)
	return it.Value, nil
}

func (c *s3Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkSize(key, value, Defaults.MaxItemSize); err != nil {
		return err
	}

	it := newItem(value, c.now(), ttl)
	data, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", key, err)
	}
	if err := checkSize(key, data, Defaults.S3MaxObjectSize); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()

	metadata := map[string]string{
		"CreatedAt": it.CreatedAt.Format(time.RFC3339),
		"Size":      fmt.Sprintf("%d", len(value)),
	}
	if !it.Expiration.IsZero() {
		metadata["Expiration"] = it.Expiration.Format(time.RFC3339)
	}

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(c.formatKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    metadata,
	})
	if err != nil {
		slog.Error("Failed to put object in S3", "key", key, "error", err)
		return fmt.Errorf("failed to put s3://%s/%s: %w", c.bucketName, c.formatKey(key), err)
	}

	slog.Debug("Stored value in S3", "key", key, "ttl", ttl, "size", len(value))
	return nil
}

func (c *s3Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, Defaults.Timeout)
	defer cancel()
	return c.deleteObject(ctx, c.formatKey(key))
}

func (c *s3Store) deleteObject(ctx context.Context, objectKey string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", c.bucketName, objectKey, err)
	}
	slog.Debug("Deleted object from S3", "key", objectKey)
	return nil
}
