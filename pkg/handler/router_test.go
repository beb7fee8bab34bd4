package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/boogy/jencoder/pkg/metrics"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/generate", RouteGenerate},
		{"/prod/generate", RouteGenerate},
		{"/prod/generate/", RouteGenerate},
		{"decode", RouteDecode},
		{"", "/"},
		{"/", "/"},
		{"/v1/../pubkey", RoutePublicKey},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, routeOf(tt.in))
		})
	}
}

func TestRouteMetricLabelsBounded(t *testing.T) {
	p := newTestProcessor()
	metrics.HTTPRequestsTotal.Reset()
	metrics.HTTPRequestDuration.Reset()

	for i := 0; i < 100; i++ {
		ctx, cancel := newRequestContext(context.Background(), "", "127.0.0.1", "test")
		status, _ := p.Route(ctx, http.MethodGet, fmt.Sprintf("/unknown-%d", i), "", slog.Default())
		cancel()
		require.Equal(t, http.StatusNotFound, status)
	}

	ctx, cancel := newRequestContext(context.Background(), "", "127.0.0.1", "test")
	defer cancel()
	status, _ := p.Route(ctx, http.MethodGet, "/prod/health", "", slog.Default())
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, 2, testutil.CollectAndCount(metrics.HTTPRequestsTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.HTTPRequestDuration))
	assert.Equal(t, 100.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(metrics.RouteOther, "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(RouteHealth, "200")))
}

func TestMetricRoute(t *testing.T) {
	for _, route := range []string{RouteGenerate, RouteDecode, RoutePublicKey, RouteAlgorithms, RouteSettings, RouteHealth, RouteFormat} {
		assert.Equal(t, route, metricRoute(route))
	}
	assert.Equal(t, metrics.RouteOther, metricRoute("/"))
	assert.Equal(t, metrics.RouteOther, metricRoute("/verify"))
}

func TestRoute(t *testing.T) {
	p := newTestProcessor()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK, ""},
		{"algorithms", http.MethodGet, "/algorithms", "", http.StatusOK, ""},
		{"algorithms wrong method", http.MethodPost, "/algorithms", "", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"generate", http.MethodPost, "/generate", `{"algorithm":"HS256","payload":"{}","key":"s"}`, http.StatusOK, ""},
		{"generate with stage", http.MethodPost, "/prod/generate", `{"algorithm":"HS384","payload":"{}","key":"s"}`, http.StatusOK, ""},
		{"generate lower case method", "post", "/generate", `{"algorithm":"HS256","payload":"{}","key":"s"}`, http.StatusOK, ""},
		{"generate wrong method", http.MethodGet, "/generate", "", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"generate empty body", http.MethodPost, "/generate", "", http.StatusBadRequest, "invalid_request"},
		{"generate bad json", http.MethodPost, "/generate", `{"algorithm":`, http.StatusBadRequest, "invalid_request"},
		{"generate missing algorithm", http.MethodPost, "/generate", `{"payload":"{}"}`, http.StatusBadRequest, "invalid_request"},
		{"generate unsupported algorithm", http.MethodPost, "/generate", `{"algorithm":"none","payload":"{}"}`, http.StatusBadRequest, "unsupported_algorithm"},
		{"generate invalid payload", http.MethodPost, "/generate", `{"algorithm":"HS256","payload":"[1,2]","key":"s"}`, http.StatusBadRequest, "invalid_payload"},
		{"generate expiry overflow", http.MethodPost, "/generate", `{"algorithm":"HS256","payload":"{}","key":"s","addExp":true,"expOffset":9223372036854775807}`, http.StatusBadRequest, "invalid_request"},
		{"generate custom minutes overflow", http.MethodPost, "/generate", `{"algorithm":"HS256","payload":"{}","key":"s","addExp":true,"expOffset":-1,"customExpMinutes":307445734561825860}`, http.StatusBadRequest, "invalid_request"},
		{"generate key format", http.MethodPost, "/generate", `{"algorithm":"ES256","payload":"{}","key":"secret"}`, http.StatusUnprocessableEntity, "key_format_error"},
		{"decode", http.MethodPost, "/decode", `{"token":"` + jwtIOToken + `"}`, http.StatusOK, ""},
		{"decode malformed", http.MethodPost, "/decode", `{"token":"a.b"}`, http.StatusBadRequest, "malformed_token"},
		{"decode empty token", http.MethodPost, "/decode", `{"token":"  "}`, http.StatusBadRequest, "invalid_request"},
		{"format", http.MethodPost, "/format", `{"payload":"{sub: '42',}"}`, http.StatusOK, ""},
		{"format wrong method", http.MethodGet, "/format", "", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"format empty payload", http.MethodPost, "/format", `{"payload":" "}`, http.StatusBadRequest, "invalid_request"},
		{"format not an object", http.MethodPost, "/format", `{"payload":"[1, 2,]"}`, http.StatusBadRequest, "invalid_payload"},
		{"pubkey hmac", http.MethodPost, "/pubkey", `{"algorithm":"HS256","key":"s"}`, http.StatusBadRequest, "unsupported_algorithm"},
		{"settings get", http.MethodGet, "/settings", "", http.StatusOK, ""},
		{"settings invalid", http.MethodPut, "/settings", `{"algorithm":"XS256"}`, http.StatusBadRequest, "invalid_settings"},
		{"settings wrong method", http.MethodPatch, "/settings", "", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"unknown route", http.MethodGet, "/verify", "", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := newRequestContext(context.Background(), "req-"+tt.name, "127.0.0.1", "test")
			defer cancel()

			status, resp := p.Route(ctx, tt.method, tt.path, tt.body, slog.Default())

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "req-"+tt.name, resp.RequestID)
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
			assert.Equal(t, tt.wantCode == "", resp.Success)
		})
	}
}

func TestRouteGenerateData(t *testing.T) {
	p := newTestProcessor()

	body := `{"algorithm":"HS256","payload":"{\"sub\":\"42\"}","key":"s","addIat":true,"includeBearer":true}`
	status, resp := p.Route(context.Background(), http.MethodPost, "/generate", body, slog.Default())
	require.Equal(t, http.StatusOK, status)

	data, ok := resp.Data.(*GenerateResponse)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(data.Bearer, "Bearer eyJ"))
	assert.Contains(t, data.Payload, `"iat": 1700000000`)
	assert.NotEmpty(t, resp.RequestID)
}

func TestRouteFormatData(t *testing.T) {
	p := newTestProcessor()

	body := `{"payload":"{sub: '42', admin: true, // comment\n}"}`
	status, resp := p.Route(context.Background(), http.MethodPost, "/prod/format", body, slog.Default())
	require.Equal(t, http.StatusOK, status)

	data, ok := resp.Data.(*FormatResponse)
	require.True(t, ok)
	assert.Equal(t, "{\n  \"admin\": true,\n  \"sub\": \"42\"\n}", data.Payload)
}

func TestRouteSettingsDisabled(t *testing.T) {
	p := NewRequestProcessor(new(MockTokenGenerator), nil)

	status, resp := p.Route(context.Background(), http.MethodGet, "/settings", "", slog.Default())

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", resp.ErrorCode)
}

func TestRouteSettingsNeverReturnsSecrets(t *testing.T) {
	p := newTestProcessor()
	ctx := context.Background()

	status, resp := p.Route(ctx, http.MethodPut, "/settings", `{"algorithm":"HS512","secret":"hunter2"}`, slog.Default())
	require.Equal(t, http.StatusOK, status)
	saved := resp.Data.(*settings.Settings)
	assert.Equal(t, "HS512", saved.Algorithm)
	assert.Empty(t, saved.Secret)

	status, body := encodeResponse(p.Route(ctx, http.MethodGet, "/settings", "", slog.Default()))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"algorithm":"HS512"`)
	assert.NotContains(t, body, "hunter2")

	status, resp = p.Route(ctx, http.MethodDelete, "/settings", "", slog.Default())
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "HS256", resp.Data.(*settings.Settings).Algorithm)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"payload too large", ErrPayloadTooLarge, http.StatusBadRequest, "invalid_request"},
		{"key too large", ErrKeyTooLarge, http.StatusBadRequest, "invalid_request"},
		{"expiry out of range", fmt.Errorf("%w: offset", ErrInvalidExpiry), http.StatusBadRequest, "invalid_request"},
		{"wrapped invalid json", fmt.Errorf("body: %w", ErrInvalidJSON), http.StatusBadRequest, "invalid_request"},
		{"invalid settings", settings.ErrInvalidSettings, http.StatusBadRequest, "invalid_settings"},
		{"store", fmt.Errorf("%w: refused", ErrSettingsStore), http.StatusServiceUnavailable, "settings_unavailable"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"signing failure", fmt.Errorf("%w: rand", types.ErrSigningFailure), http.StatusInternalServerError, "signing_failure"},
		{"key format", &types.KeyFormatError{Algorithm: "RS256", Detected: "none"}, http.StatusUnprocessableEntity, "key_format_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, msg := classifyError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestRequestInfo(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDContextKey, "abc")
	ctx = context.WithValue(ctx, StartTimeContextKey, time.Now().Add(-50*time.Millisecond))

	id, ms := requestInfo(ctx)
	assert.Equal(t, "abc", id)
	assert.GreaterOrEqual(t, ms, int64(50))

	id, ms = requestInfo(context.Background())
	assert.Len(t, id, 36)
	assert.Zero(t, ms)
}

func TestNewRequestContext(t *testing.T) {
	ctx, cancel := newRequestContext(context.Background(), "", "10.0.0.1", "curl/8.0")
	defer cancel()

	id, _ := ctx.Value(RequestIDContextKey).(string)
	assert.Len(t, id, 36)
	assert.Equal(t, "10.0.0.1", ctx.Value(SourceIPContextKey))
	assert.Equal(t, "curl/8.0", ctx.Value(UserAgentContextKey))

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(DefaultTimeout), deadline, time.Second)
}
