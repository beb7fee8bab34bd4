package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds returned by the signing engine. Every error that leaves
// generator.Sign or generator.DecodeForDisplay wraps exactly one of these.
var (
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrKeyFormat            = errors.New("key format error")
	ErrSigningFailure       = errors.New("signing failure")
	ErrMalformedToken       = errors.New("malformed token")
)

// Stable error codes, used in API responses and metric labels
const (
	CodeInvalidPayload       = "invalid_payload"
	CodeUnsupportedAlgorithm = "unsupported_algorithm"
	CodeKeyFormat            = "key_format_error"
	CodeSigningFailure       = "signing_failure"
	CodeMalformedToken       = "malformed_token"
	CodeInternal             = "internal_error"
)

// KeyFormatError reports key material that cannot be used with the selected
// algorithm. It matches ErrKeyFormat with errors.Is.
type KeyFormatError struct {
	Algorithm string   // Algorithm id the key was imported for
	Detected  string   // Detected encoding, "none" when no PEM framing was found
	Accepted  []string // Encodings accepted by the algorithm family, in priority order
	Err       error    // Underlying parse error, if any
}

func (e *KeyFormatError) Error() string {
	msg := fmt.Sprintf("%s: algorithm %s cannot use key with encoding %s (accepted: %s)",
		ErrKeyFormat, e.Algorithm, e.Detected, strings.Join(e.Accepted, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *KeyFormatError) Is(target error) bool {
	return target == ErrKeyFormat
}

func (e *KeyFormatError) Unwrap() error {
	return e.Err
}

// ErrorKind maps an engine error to its stable code
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return CodeUnsupportedAlgorithm
	case errors.Is(err, ErrKeyFormat):
		return CodeKeyFormat
	case errors.Is(err, ErrSigningFailure):
		return CodeSigningFailure
	case errors.Is(err, ErrMalformedToken):
		return CodeMalformedToken
	default:
		return CodeInternal
	}
}
