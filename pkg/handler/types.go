package handler

import (
	"errors"
	"time"

	"github.com/boogy/jencoder/pkg/types"
)

// Constants for handler configuration
const (
	// DefaultTimeout is the maximum time to process a request
	DefaultTimeout = 10 * time.Second

	// MaxPayloadLength is the maximum allowed length of the claims JSON
	MaxPayloadLength = 1 << 20 // 1MB

	// MaxKeyLength is the maximum allowed length of a secret or PEM key
	MaxKeyLength = 64 << 10 // 64KB

	// MaxTokenLength is the maximum allowed length for a JWT token
	MaxTokenLength = 16384 // 16KB

	// MaxAlgorithmLength bounds the algorithm id echoed in logs and metrics
	MaxAlgorithmLength = 16
)

// Routes served by every front end. Lambda paths are matched on their last segment
// so that API Gateway stage prefixes are ignored.
const (
	RouteGenerate   = "/generate"
	RouteDecode     = "/decode"
	RoutePublicKey  = "/pubkey"
	RouteAlgorithms = "/algorithms"
	RouteSettings   = "/settings"
	RouteHealth     = "/health"
	RouteFormat     = "/format"
)

// Context key types to avoid string collision in context values
type contextKey string

const (
	RequestIDContextKey contextKey = "requestId"
	StartTimeContextKey contextKey = "startTime"
	SourceIPContextKey  contextKey = "sourceIp"
	UserAgentContextKey contextKey = "userAgent"
)

// Custom error types for more precise error reporting
var (
	ErrEmptyToken       = errors.New("token is empty")
	ErrTokenTooLarge    = errors.New("token exceeds maximum allowed size")
	ErrEmptyAlgorithm   = errors.New("algorithm is empty")
	ErrAlgorithmTooLong = errors.New("algorithm exceeds maximum allowed size")
	ErrEmptyPayload     = errors.New("payload is empty")
	ErrPayloadTooLarge  = errors.New("payload exceeds maximum allowed size")
	ErrKeyTooLarge      = errors.New("key exceeds maximum allowed size")
	ErrInvalidExpiry    = errors.New("expiry is out of range")
	ErrInvalidJSON      = errors.New("invalid JSON in request body")
	ErrRouteNotFound    = errors.New("route not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrSettingsStore    = errors.New("settings store unavailable")
)

// ResponseHeaders common headers to include in all API responses
var ResponseHeaders = map[string]string{
	"Content-Type":           "application/json",
	"Cache-Control":          "no-store",
	"X-Content-Type-Options": "nosniff",
}

// GenerateRequest is the body of a signing request. Field names follow the
// saved settings so a settings export can be posted as is.
type GenerateRequest struct {
	Algorithm        string `json:"algorithm"`
	Payload          string `json:"payload"`
	Key              string `json:"key"`
	AddIat           bool   `json:"addIat"`
	AddExp           bool   `json:"addExp"`
	ExpOffset        int64  `json:"expOffset"`
	CustomExpMinutes int64  `json:"customExpMinutes"`
	IncludeBearer    bool   `json:"includeBearer"`
}

// DecodeRequest is the body of a decode request
type DecodeRequest struct {
	Token string `json:"token"`
}

// FormatRequest is the body of a payload format request
type FormatRequest struct {
	Payload string `json:"payload"`
}

// PublicKeyRequest is the body of a public key request
type PublicKeyRequest struct {
	Algorithm string `json:"algorithm"`
	Key       string `json:"key"`
}

// GenerateResponse is returned in Response.Data for a signed token
type GenerateResponse struct {
	Token     string `json:"token"`
	Bearer    string `json:"bearer,omitempty"`
	Header    string `json:"header"`  // Indented JSON
	Payload   string `json:"payload"` // Indented JSON
	Signature string `json:"signature"`
	Encoding  string `json:"keyEncoding"`
}

// DecodeResponse is returned in Response.Data for a decoded token. The
// signature is shown, never checked.
type DecodeResponse struct {
	Algorithm string `json:"algorithm,omitempty"`
	Header    string `json:"header"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// FormatResponse is returned in Response.Data for a formatted payload
type FormatResponse struct {
	Payload string `json:"payload"` // Indented JSON
}

// AlgorithmInfo describes a supported algorithm
type AlgorithmInfo struct {
	ID                string   `json:"id"`
	Family            string   `json:"family"`
	Description       string   `json:"description"`
	KeyLabel          string   `json:"keyLabel"`
	AcceptedEncodings []string `json:"acceptedEncodings"`
}

// PublicKeyResponse is returned in Response.Data for a public key request
type PublicKeyResponse struct {
	Algorithm string     `json:"algorithm"`
	PEM       string     `json:"pem"`
	JWKS      types.JWKS `json:"jwks"`
}

// Response represents a standardized API response
type Response struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode,omitempty"`
	RequestID    string `json:"requestId"`
	ProcessingMS int64  `json:"processingMs,omitempty"`

	// For successful responses
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`

	// For error responses
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}
