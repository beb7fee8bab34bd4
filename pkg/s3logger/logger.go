package s3logger

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	awsconf "github.com/boogy/jencoder/pkg/aws"
	"github.com/boogy/jencoder/pkg/config"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the default timeout for S3 operations
	DefaultTimeout = 10 * time.Second

	// MaxBufferSize caps the buffered log data of a single invocation (4MB)
	MaxBufferSize = 4 << 20
)

// s3ClientInterface defines the subset of S3 API methods used by this logger
type s3ClientInterface interface {
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Logger buffers the JSON log lines of a Lambda invocation and ships them
// to S3 as one gzip object when Flush is called. It is an io.Writer so it
// can sit behind the slog handler next to stdout.
type S3Logger struct {
	bucket  string
	prefix  string
	client  s3ClientInterface
	timeNow func() time.Time

	mu      sync.Mutex
	buf     bytes.Buffer
	dropped int
}

// NewS3Logger returns a logger that ships to cfg.LogBucket, or a disabled
// logger that discards everything when cfg.LogToS3 is false.
func NewS3Logger(ctx context.Context, cfg *config.Config) (*S3Logger, error) {
	l := &S3Logger{timeNow: time.Now}
	if cfg == nil || !cfg.LogToS3 {
		return l, nil
	}

	awsCfg, err := awsconf.LoadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("S3 logger: %w", err)
	}

	l.bucket = cfg.LogBucket
	l.prefix = cfg.LogPrefix
	l.client = s3.NewFromConfig(awsCfg)
	return l, nil
}

// Enabled reports whether logs are shipped
func (l *S3Logger) Enabled() bool {
	return l.client != nil
}

// Write buffers p. Data beyond MaxBufferSize is counted and dropped.
func (l *S3Logger) Write(p []byte) (int, error) {
	if !l.Enabled() {
		return len(p), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Len()+len(p) > MaxBufferSize {
		l.dropped++
		return len(p), nil
	}
	return l.buf.Write(p)
}

// Flush writes the buffered logs to S3 and resets the buffer
func (l *S3Logger) Flush(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}

	l.mu.Lock()
	data := bytes.Clone(l.buf.Bytes())
	dropped := l.dropped
	l.buf.Reset()
	l.dropped = 0
	l.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	compressed, err := compressGzip(data)
	if err != nil {
		return fmt.Errorf("failed to compress log data: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	key := l.objectKey()
	_, err = l.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(l.bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(compressed),
		ContentType:       aws.String("application/json"),
		ContentEncoding:   aws.String("gzip"),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
		Metadata: map[string]string{
			"source":        "jencoder",
			"created-at":    l.timeNow().UTC().Format(time.RFC3339),
			"dropped-lines": fmt.Sprintf("%d", dropped),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write logs to s3://%s/%s: %w", l.bucket, key, err)
	}

	slog.Debug("Shipped logs to S3",
		slog.String("bucket", l.bucket),
		slog.String("key", key),
		slog.Int("bytes", len(compressed)))
	return nil
}

// objectKey returns <prefix>/YYYY/MM/DD/<uuid>-YYYYMMDD-HHMMSS.json.gz
func (l *S3Logger) objectKey() string {
	now := l.timeNow().UTC()
	name := fmt.Sprintf("%s-%s.json.gz", uuid.New().String(), now.Format("20060102-150405"))

	parts := []string{now.Format("2006/01/02"), name}
	if prefix := strings.Trim(l.prefix, "/"); prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, "/")
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	if _, err := gz.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write to gzip writer: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}
