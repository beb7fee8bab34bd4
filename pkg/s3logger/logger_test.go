package s3logger

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/boogy/jencoder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockS3Client is a mock implementation of the S3 client
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func newTestLogger(client s3ClientInterface, prefix string) *S3Logger {
	return &S3Logger{
		bucket: "log-bucket",
		prefix: prefix,
		client: client,
		timeNow: func() time.Time {
			return time.Date(2025, 5, 19, 12, 30, 45, 0, time.UTC)
		},
	}
}

func decompressGzip(t *testing.T, r io.Reader) []byte {
	reader, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer func() {
		if err := reader.Close(); err != nil {
			t.Logf("Failed to close gzip reader: %v", err)
		}
	}()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return data
}

func TestDisabledLogger(t *testing.T) {
	l, err := NewS3Logger(context.Background(), &config.Config{LogToS3: false, LogBucket: "bucket"})
	require.NoError(t, err)
	assert.False(t, l.Enabled())

	n, err := l.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.NoError(t, l.Flush(context.Background()))

	l, err = NewS3Logger(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, l.Enabled())
}

func TestFlush(t *testing.T) {
	client := new(MockS3Client)
	l := newTestLogger(client, "/jencoder-logs/")

	keyPattern := regexp.MustCompile(`^jencoder-logs/2025/05/19/[0-9a-f-]{36}-20250519-123045\.json\.gz$`)

	var shipped []byte
	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "log-bucket" &&
			keyPattern.MatchString(aws.ToString(in.Key)) &&
			aws.ToString(in.ContentEncoding) == "gzip"
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		shipped = decompressGzip(t, in.Body)
		assert.Equal(t, "jencoder", in.Metadata["source"])
		assert.Equal(t, "0", in.Metadata["dropped-lines"])
	}).Return(&s3.PutObjectOutput{}, nil).Once()

	_, _ = l.Write([]byte(`{"msg":"Token signed"}` + "\n"))
	_, _ = l.Write([]byte(`{"msg":"Response successful"}` + "\n"))

	require.NoError(t, l.Flush(context.Background()))
	client.AssertExpectations(t)
	assert.Equal(t, "{\"msg\":\"Token signed\"}\n{\"msg\":\"Response successful\"}\n", string(shipped))

	// The buffer is empty after a flush, nothing more is written
	require.NoError(t, l.Flush(context.Background()))
	client.AssertNumberOfCalls(t, "PutObject", 1)
}

func TestFlushError(t *testing.T) {
	client := new(MockS3Client)
	l := newTestLogger(client, "")

	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, _ = l.Write([]byte("line\n"))
	err := l.Flush(context.Background())
	assert.ErrorContains(t, err, "access denied")
	assert.ErrorContains(t, err, "s3://log-bucket/2025/05/19/")
}

func TestWriteDropsOverflow(t *testing.T) {
	client := new(MockS3Client)
	l := newTestLogger(client, "logs")

	_, err := l.Write(bytes.Repeat([]byte("a"), MaxBufferSize))
	require.NoError(t, err)
	n, err := l.Write([]byte("overflow"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return in.Metadata["dropped-lines"] == "1"
	})).Return(&s3.PutObjectOutput{}, nil)

	require.NoError(t, l.Flush(context.Background()))
	client.AssertExpectations(t)
}
