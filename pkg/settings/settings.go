// Package settings persists the last used signing form between sessions.
// The signing engine never reads or writes it.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/generator"
	"gopkg.in/yaml.v3"
)

// StorageKey is the default key the settings are saved under
const StorageKey = "jencoder-config"

var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the saved state of the signing form
type Settings struct {
	Algorithm        string `json:"algorithm" yaml:"algorithm"`
	Payload          string `json:"payload" yaml:"payload"`
	Secret           string `json:"secret" yaml:"secret"`
	PrivateKey       string `json:"privateKey" yaml:"privateKey"`
	PublicKey        string `json:"publicKey" yaml:"publicKey"`
	AddIat           bool   `json:"addIat" yaml:"addIat"`
	AddExp           bool   `json:"addExp" yaml:"addExp"`
	ExpOffset        int64  `json:"expOffset" yaml:"expOffset"`
	CustomExpMinutes int64  `json:"customExpMinutes" yaml:"customExpMinutes"`
	IncludeBearer    bool   `json:"includeBearer" yaml:"includeBearer"`
}

const defaultPayload = `{
  "sub": "1234567890",
  "name": "John Doe",
  "iat": 1516239022
}`

// Default returns the settings of a fresh installation
func Default() Settings {
	return Settings{
		Algorithm:        algorithm.HS256,
		Payload:          defaultPayload,
		Secret:           "your-256-bit-secret",
		ExpOffset:        3600,
		CustomExpMinutes: 60,
		IncludeBearer:    true,
	}
}

// Validate checks values a front end cannot recover from
func (s Settings) Validate() error {
	if s.Algorithm != "" {
		if _, err := algorithm.Lookup(s.Algorithm); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	if err := s.Expiry().Validate(); err != nil {
		return fmt.Errorf("%w: expOffset %d, customExpMinutes %d: %w",
			ErrInvalidSettings, s.ExpOffset, s.CustomExpMinutes, err)
	}
	return nil
}

// Key returns the key text for the selected algorithm: the secret for HMAC,
// the private key otherwise.
func (s Settings) Key() string {
	if family, err := algorithm.FamilyOf(s.Algorithm); err == nil && family.Symmetric() {
		return s.Secret
	}
	return s.PrivateKey
}

// Expiry returns the exp offset selection
func (s Settings) Expiry() claims.Expiry {
	return claims.Expiry{Offset: s.ExpOffset, CustomMinutes: s.CustomExpMinutes}
}

// SigningRequest builds the engine request the form describes
func (s Settings) SigningRequest() generator.SigningRequest {
	return generator.SigningRequest{
		Algorithm: s.Algorithm,
		Key:       s.Key(),
		Payload:   s.Payload,
		AddIat:    s.AddIat,
		AddExp:    s.AddExp,
		Expiry:    s.Expiry(),
	}
}

// WithoutKeyMaterial returns a copy with the secret and private key removed
func (s Settings) WithoutKeyMaterial() Settings {
	s.Secret = ""
	s.PrivateKey = ""
	return s
}

// Format is a settings file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml, case insensitive. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported settings format: %s", s)
	}
}

// FormatFromPath picks the format from a file extension, JSON by default
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Export encodes settings for download or backup
func Export(s Settings, format Format, includeKeyMaterial bool) ([]byte, error) {
	if !includeKeyMaterial {
		s = s.WithoutKeyMaterial()
	}

	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported settings format: %s", format)
	}
}

// Import decodes data over current: fields present in data replace the
// current values, absent fields are kept.
func Import(current Settings, data []byte, format Format) (Settings, error) {
	merged := current

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &merged); err != nil {
			return current, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &merged); err != nil {
			return current, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	default:
		return current, fmt.Errorf("unsupported settings format: %s", format)
	}

	if err := merged.Validate(); err != nil {
		return current, err
	}
	return merged, nil
}
