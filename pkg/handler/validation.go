package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/utils"
)

// MaxBodyLength is the sanity limit of a request body, above the largest field limits
const MaxBodyLength = MaxPayloadLength + MaxKeyLength + 4096

// ValidateGenerateRequest validates the fields of a signing request. The
// algorithm and payload contents are left to the engine so its error kinds
// reach the client unchanged.
func ValidateGenerateRequest(req *GenerateRequest) error {
	if err := validateAlgorithm(req.Algorithm); err != nil {
		return err
	}

	if strings.TrimSpace(req.Payload) == "" {
		return ErrEmptyPayload
	}
	if len(req.Payload) > MaxPayloadLength {
		return ErrPayloadTooLarge
	}

	if len(req.Key) > MaxKeyLength {
		return ErrKeyTooLarge
	}

	expiry := claims.Expiry{Offset: req.ExpOffset, CustomMinutes: req.CustomExpMinutes}
	if err := expiry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpiry, err)
	}
	return nil
}

// ValidateToken checks the token of a decode request
func ValidateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}

	// Check token length for security (prevent DoS)
	if len(token) > MaxTokenLength {
		return ErrTokenTooLarge
	}
	return nil
}

func validateAlgorithm(alg string) error {
	if strings.TrimSpace(alg) == "" {
		return ErrEmptyAlgorithm
	}
	if len(alg) > MaxAlgorithmLength {
		return ErrAlgorithmTooLong
	}
	return nil
}

// ParseGenerateRequest parses and validates a signing request body
func ParseGenerateRequest(body string) (*GenerateRequest, error) {
	var req GenerateRequest
	if err := parseBody(body, &req); err != nil {
		return nil, err
	}
	if err := ValidateGenerateRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParseDecodeRequest parses and validates a decode request body
func ParseDecodeRequest(body string) (*DecodeRequest, error) {
	var req DecodeRequest
	if err := parseBody(body, &req); err != nil {
		return nil, err
	}
	if err := ValidateToken(req.Token); err != nil {
		return nil, err
	}
	return &req, nil
}

// ParseFormatRequest parses and validates a payload format request body
func ParseFormatRequest(body string) (*FormatRequest, error) {
	var req FormatRequest
	if err := parseBody(body, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Payload) == "" {
		return nil, ErrEmptyPayload
	}
	if len(req.Payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}
	return &req, nil
}

// ParsePublicKeyRequest parses and validates a public key request body
func ParsePublicKeyRequest(body string) (*PublicKeyRequest, error) {
	var req PublicKeyRequest
	if err := parseBody(body, &req); err != nil {
		return nil, err
	}
	if err := validateAlgorithm(req.Algorithm); err != nil {
		return nil, err
	}
	if len(req.Key) > MaxKeyLength {
		return nil, ErrKeyTooLarge
	}
	return &req, nil
}

// parseBody unmarshals a JSON request body into v
func parseBody(body string, v any) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("request body is empty: %w", ErrInvalidJSON)
	}

	// Check if body exceeds maximum allowed size (sanity check)
	if len(body) > MaxBodyLength {
		return fmt.Errorf("request body too large: %w", ErrInvalidJSON)
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		// The body may carry key material: log its size only
		slog.Error("Failed to unmarshal request body",
			slog.String("error", err.Error()),
			slog.String("body", utils.RedactSecret(body)))
		return fmt.Errorf("invalid JSON format: %w", ErrInvalidJSON)
	}
	return nil
}

// decodeEventBody returns the request body of a Lambda event, decoding it
// when the integration marked it as base64
func decodeEventBody(body string, isBase64 bool) (string, error) {
	if !isBase64 {
		return body, nil
	}
	if base64.StdEncoding.DecodedLen(len(body)) > MaxBodyLength {
		return "", fmt.Errorf("request body too large: %w", ErrInvalidJSON)
	}
	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", fmt.Errorf("invalid base64 body: %w", ErrInvalidJSON)
	}
	return string(decoded), nil
}
