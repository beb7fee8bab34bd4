package handler

import (
	"encoding/base64"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/boogy/jencoder/pkg/claims"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGenerateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerateRequest
		wantErr error
	}{
		{"valid", GenerateRequest{Algorithm: "HS256", Payload: "{}", Key: "s"}, nil},
		{"empty key is left to the engine", GenerateRequest{Algorithm: "HS256", Payload: "{}"}, nil},
		{"empty algorithm", GenerateRequest{Payload: "{}"}, ErrEmptyAlgorithm},
		{"blank algorithm", GenerateRequest{Algorithm: "  ", Payload: "{}"}, ErrEmptyAlgorithm},
		{"long algorithm", GenerateRequest{Algorithm: strings.Repeat("H", MaxAlgorithmLength+1), Payload: "{}"}, ErrAlgorithmTooLong},
		{"empty payload", GenerateRequest{Algorithm: "HS256", Payload: " \n"}, ErrEmptyPayload},
		{"large payload", GenerateRequest{Algorithm: "HS256", Payload: strings.Repeat("a", MaxPayloadLength+1)}, ErrPayloadTooLarge},
		{"large key", GenerateRequest{Algorithm: "RS256", Payload: "{}", Key: strings.Repeat("k", MaxKeyLength+1)}, ErrKeyTooLarge},
		{"custom expiry", GenerateRequest{Algorithm: "HS256", Payload: "{}", ExpOffset: -1, CustomExpMinutes: 90}, nil},
		{"largest offset", GenerateRequest{Algorithm: "HS256", Payload: "{}", ExpOffset: int64(claims.MaxExpiry / time.Second)}, nil},
		{"offset too large", GenerateRequest{Algorithm: "HS256", Payload: "{}", AddExp: true, ExpOffset: math.MaxInt64}, ErrInvalidExpiry},
		{"negative offset", GenerateRequest{Algorithm: "HS256", Payload: "{}", ExpOffset: -7}, ErrInvalidExpiry},
		{"custom minutes too large", GenerateRequest{Algorithm: "HS256", Payload: "{}", ExpOffset: -1, CustomExpMinutes: math.MaxInt64 / 30}, ErrInvalidExpiry},
		{"negative custom minutes", GenerateRequest{Algorithm: "HS256", Payload: "{}", ExpOffset: -1, CustomExpMinutes: -1}, ErrInvalidExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGenerateRequest(&tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateToken(t *testing.T) {
	assert.NoError(t, ValidateToken(jwtIOToken))
	assert.ErrorIs(t, ValidateToken(""), ErrEmptyToken)
	assert.ErrorIs(t, ValidateToken("\t"), ErrEmptyToken)
	assert.ErrorIs(t, ValidateToken(strings.Repeat("a", MaxTokenLength+1)), ErrTokenTooLarge)
}

func TestParseGenerateRequest(t *testing.T) {
	req, err := ParseGenerateRequest(`{"algorithm":"ES256","payload":"{\"a\":1}","key":"k","addExp":true,"expOffset":-1,"customExpMinutes":5}`)
	require.NoError(t, err)
	assert.Equal(t, "ES256", req.Algorithm)
	assert.Equal(t, `{"a":1}`, req.Payload)
	assert.True(t, req.AddExp)
	assert.Equal(t, int64(-1), req.ExpOffset)
	assert.Equal(t, int64(5), req.CustomExpMinutes)

	_, err = ParseGenerateRequest(`{"algorithm":"HS256"}`)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ParseGenerateRequest(`{"algorithm":"HS256","payload":"{}","addExp":true,"expOffset":9223372036854775807}`)
	assert.ErrorIs(t, err, ErrInvalidExpiry)
	assert.ErrorIs(t, err, claims.ErrExpiryOutOfRange)
}

func TestParseBody(t *testing.T) {
	var req DecodeRequest

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"empty", "", "request body is empty"},
		{"whitespace", "   ", "request body is empty"},
		{"too large", strings.Repeat(" ", MaxBodyLength) + "{}", "request body too large"},
		{"not json", "token=abc", "invalid JSON format"},
		{"wrong type", `{"token":42}`, "invalid JSON format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseBody(tt.body, &req)
			assert.ErrorIs(t, err, ErrInvalidJSON)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestParsePublicKeyRequest(t *testing.T) {
	req, err := ParsePublicKeyRequest(`{"algorithm":"RS256","key":"pem"}`)
	require.NoError(t, err)
	assert.Equal(t, "pem", req.Key)

	_, err = ParsePublicKeyRequest(`{"key":"pem"}`)
	assert.ErrorIs(t, err, ErrEmptyAlgorithm)

	_, err = ParsePublicKeyRequest(`{"algorithm":"RS256","key":"` + strings.Repeat("k", MaxKeyLength+1) + `"}`)
	assert.ErrorIs(t, err, ErrKeyTooLarge)
}

func TestParseFormatRequest(t *testing.T) {
	req, err := ParseFormatRequest(`{"payload":"{a: 1}"}`)
	require.NoError(t, err)
	assert.Equal(t, "{a: 1}", req.Payload)

	_, err = ParseFormatRequest(`{}`)
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, err = ParseFormatRequest(`{"payload":"` + strings.Repeat("a", MaxPayloadLength+1) + `"}`)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = ParseFormatRequest(`payload`)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDecodeEventBody(t *testing.T) {
	body, err := decodeEventBody(`{"token":"x"}`, false)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"x"}`, body)

	body, err = decodeEventBody(base64.StdEncoding.EncodeToString([]byte(`{"token":"x"}`)), true)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"x"}`, body)

	_, err = decodeEventBody("%%%", true)
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = decodeEventBody(strings.Repeat("A", MaxBodyLength*2), true)
	assert.ErrorIs(t, err, ErrInvalidJSON)
	assert.ErrorContains(t, err, "too large")
}
