package handler

import (
	"bytes"
	"context"
	"crypto/elliptic"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/boogy/jencoder/internal/testkeys"
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/generator"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/store"
	"github.com/boogy/jencoder/pkg/token"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const jwtIOToken = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
	"eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ." +
	"SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c"

// MockTokenGenerator is a mock implementation of generator.TokenGeneratorInterface
type MockTokenGenerator struct {
	mock.Mock
}

func (m *MockTokenGenerator) Sign(ctx context.Context, req generator.SigningRequest) (*generator.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generator.Result), args.Error(1)
}

func (m *MockTokenGenerator) DecodeForDisplay(tokenString string) (*token.Decoded, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Decoded), args.Error(1)
}

func (m *MockTokenGenerator) PublicKey(ctx context.Context, req generator.KeyRequest) (*types.PublicKey, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PublicKey), args.Error(1)
}

// MockSettingsManager is a mock implementation of SettingsManager
type MockSettingsManager struct {
	mock.Mock
}

func (m *MockSettingsManager) Load(ctx context.Context) (settings.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(settings.Settings), args.Error(1)
}

func (m *MockSettingsManager) Save(ctx context.Context, s settings.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSettingsManager) Reset(ctx context.Context) (settings.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(settings.Settings), args.Error(1)
}

func newTestProcessor() *RequestProcessor {
	gen := generator.NewTokenGenerator(generator.WithClock(claims.FixedUnix(1700000000)))
	return NewRequestProcessor(gen, settings.NewManager(store.NewMemoryStore(), nil))
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestGenerate(t *testing.T) {
	var logs bytes.Buffer
	p := newTestProcessor()

	resp, err := p.Generate(context.Background(), &GenerateRequest{
		Algorithm:     "HS256",
		Payload:       `{"sub":"1234567890"}`,
		Key:           "your-256-bit-secret",
		AddExp:        true,
		ExpOffset:     3600,
		IncludeBearer: true,
	}, testLogger(&logs))
	require.NoError(t, err)

	assert.Contains(t, resp.Token, "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.")
	assert.Equal(t, "Bearer "+resp.Token, resp.Bearer)
	assert.Equal(t, "RAW", resp.Encoding)
	assert.Contains(t, resp.Payload, `"exp": 1700003600`)
	assert.Contains(t, resp.Header, `"typ": "JWT"`)
	assert.NotEmpty(t, resp.Signature)

	assert.Contains(t, logs.String(), "Token generated")
	assert.NotContains(t, logs.String(), "your-256-bit-secret")
	assert.NotContains(t, logs.String(), resp.Token)
}

func TestGenerateWithoutBearer(t *testing.T) {
	p := newTestProcessor()

	resp, err := p.Generate(context.Background(), &GenerateRequest{
		Algorithm: "ES256",
		Payload:   `{}`,
		Key:       testkeys.ECKey(t, elliptic.P256()).SEC1,
	}, slog.Default())
	require.NoError(t, err)
	assert.Empty(t, resp.Bearer)
	assert.Equal(t, "SEC1_EC", resp.Encoding)
}

func TestGenerateErrors(t *testing.T) {
	var logs bytes.Buffer
	p := newTestProcessor()

	tests := []struct {
		name    string
		req     GenerateRequest
		wantErr error
	}{
		{"unsupported algorithm", GenerateRequest{Algorithm: "none", Payload: "{}"}, types.ErrUnsupportedAlgorithm},
		{"invalid payload", GenerateRequest{Algorithm: "HS256", Payload: `{"sub": }`, Key: "k"}, types.ErrInvalidPayload},
		{"key format", GenerateRequest{Algorithm: "RS256", Payload: "{}", Key: "top-secret-value"}, types.ErrKeyFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := p.Generate(context.Background(), &tt.req, testLogger(&logs))
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.NotContains(t, logs.String(), "top-secret-value")
	assert.Contains(t, logs.String(), "[redacted 16 bytes]")
}

func TestGenerateSigningFailure(t *testing.T) {
	gen := new(MockTokenGenerator)
	p := NewRequestProcessor(gen, nil)

	gen.On("Sign", mock.Anything, generator.SigningRequest{
		Algorithm: "HS256",
		Key:       "k",
		Payload:   "{}",
		Expiry:    claims.Expiry{Offset: 900},
	}).Return(nil, fmt.Errorf("%w: boom", types.ErrSigningFailure))

	_, err := p.Generate(context.Background(), &GenerateRequest{
		Algorithm: "HS256",
		Key:       "k",
		Payload:   "{}",
		ExpOffset: 900,
	}, slog.Default())

	assert.ErrorIs(t, err, types.ErrSigningFailure)
	gen.AssertExpectations(t)
}

func TestFormat(t *testing.T) {
	gen := new(MockTokenGenerator)
	p := NewRequestProcessor(gen, nil)

	resp, err := p.Format(context.Background(), &FormatRequest{Payload: `{'exp': 1700000000, "sub": "42",}`}, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"exp\": 1700000000,\n  \"sub\": \"42\"\n}", resp.Payload)

	_, err = p.Format(context.Background(), &FormatRequest{Payload: `"not an object"`}, slog.Default())
	assert.ErrorIs(t, err, types.ErrInvalidPayload)

	gen.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestDecode(t *testing.T) {
	p := newTestProcessor()

	resp, err := p.Decode(context.Background(), &DecodeRequest{Token: "Bearer " + jwtIOToken}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "HS256", resp.Algorithm)
	assert.Equal(t, "SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c", resp.Signature)
	assert.Contains(t, resp.Payload, `"name": "John Doe"`)
	assert.Contains(t, resp.Payload, `"iat": 1516239022`)

	_, err = p.Decode(context.Background(), &DecodeRequest{Token: "a.b"}, slog.Default())
	assert.ErrorIs(t, err, types.ErrMalformedToken)
}

func TestPublicKey(t *testing.T) {
	p := newTestProcessor()

	resp, err := p.PublicKey(context.Background(), &PublicKeyRequest{
		Algorithm: "EdDSA",
		Key:       testkeys.Ed25519Key(t).PKCS8,
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "EdDSA", resp.Algorithm)
	assert.Contains(t, resp.PEM, "BEGIN PUBLIC KEY")
	require.Len(t, resp.JWKS.Keys, 1)
	assert.Equal(t, "OKP", resp.JWKS.Keys[0].KeyType)
	assert.Equal(t, "Ed25519", resp.JWKS.Keys[0].Crv)

	_, err = p.PublicKey(context.Background(), &PublicKeyRequest{Algorithm: "HS256", Key: "k"}, slog.Default())
	assert.ErrorIs(t, err, types.ErrUnsupportedAlgorithm)
}

func TestAlgorithms(t *testing.T) {
	algs := newTestProcessor().Algorithms()

	require.Len(t, algs, 11)
	assert.Equal(t, "HS256", algs[0].ID)
	assert.Equal(t, "Secret", algs[0].KeyLabel)
	assert.Equal(t, []string{"RAW"}, algs[0].AcceptedEncodings)
	assert.Equal(t, "EdDSA", algs[10].ID)
	assert.Equal(t, []string{"PKCS8"}, algs[10].AcceptedEncodings)
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProcessor()

	s, err := p.SaveSettings(ctx, `{"algorithm":"RS256","privateKey":"pem","addIat":true}`, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "RS256", s.Algorithm)
	assert.Empty(t, s.PrivateKey)
	assert.Empty(t, s.Secret)

	loaded, err := p.LoadSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "RS256", loaded.Algorithm)
	assert.True(t, loaded.AddIat)

	reset, err := p.ResetSettings(ctx, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "HS256", reset.Algorithm)
	assert.Empty(t, reset.Secret)
}

func TestSettingsStoreFailure(t *testing.T) {
	sm := new(MockSettingsManager)
	p := NewRequestProcessor(new(MockTokenGenerator), sm)
	storeErr := errors.New("dial tcp: connection refused")

	sm.On("Load", mock.Anything).Return(settings.Default(), storeErr)
	sm.On("Reset", mock.Anything).Return(settings.Default(), storeErr)

	_, err := p.LoadSettings(context.Background())
	assert.ErrorIs(t, err, ErrSettingsStore)
	assert.ErrorIs(t, err, storeErr)

	_, err = p.SaveSettings(context.Background(), `{}`, slog.Default())
	assert.ErrorIs(t, err, ErrSettingsStore)
	sm.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	_, err = p.ResetSettings(context.Background(), slog.Default())
	assert.ErrorIs(t, err, ErrSettingsStore)
}
