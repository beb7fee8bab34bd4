// Package algorithm holds the static catalogue of JOSE signing algorithms the
// engine can produce tokens for.
package algorithm

import (
	"crypto"
	"fmt"
	"strings"

	"github.com/boogy/jencoder/pkg/types"
)

// Family groups algorithms that share a key type and signature primitive
type Family int

const (
	FamilyHMAC Family = iota + 1
	FamilyRSA
	FamilyRSAPSS
	FamilyECDSA
	FamilyEdDSA
)

func (f Family) String() string {
	switch f {
	case FamilyHMAC:
		return "HMAC"
	case FamilyRSA:
		return "RSA"
	case FamilyRSAPSS:
		return "RSA-PSS"
	case FamilyECDSA:
		return "ECDSA"
	case FamilyEdDSA:
		return "EdDSA"
	default:
		return "Unknown"
	}
}

// Symmetric reports whether the family signs with a shared secret
func (f Family) Symmetric() bool {
	return f == FamilyHMAC
}

// AcceptedEncodings returns the key encodings the family accepts, in priority order
func (f Family) AcceptedEncodings() []types.KeyEncoding {
	switch f {
	case FamilyHMAC:
		return []types.KeyEncoding{types.EncodingRaw}
	case FamilyRSA, FamilyRSAPSS:
		return []types.KeyEncoding{types.EncodingPKCS1RSA, types.EncodingPKCS8}
	case FamilyECDSA:
		return []types.KeyEncoding{types.EncodingSEC1EC, types.EncodingPKCS8}
	case FamilyEdDSA:
		return []types.KeyEncoding{types.EncodingPKCS8}
	default:
		return nil
	}
}

// Algorithm identifiers, in catalogue order
const (
	HS256 = "HS256"
	HS384 = "HS384"
	HS512 = "HS512"
	RS256 = "RS256"
	RS384 = "RS384"
	RS512 = "RS512"
	PS256 = "PS256"
	ES256 = "ES256"
	ES384 = "ES384"
	ES512 = "ES512"
	EdDSA = "EdDSA"
)

// Spec describes a single algorithm. Values are immutable once the registry is built.
type Spec struct {
	ID                string
	Family            Family
	AcceptedEncodings []types.KeyEncoding
	Description       string
	KeyLabel          string      // "Secret" or "Private Key"
	Hash              crypto.Hash // Zero for EdDSA, where the digest is part of the scheme
	Curve             string      // Named curve for ECDSA, empty otherwise
}

// Accepts reports whether the spec accepts the given key encoding
func (s Spec) Accepts(enc types.KeyEncoding) bool {
	for _, e := range s.AcceptedEncodings {
		if e == enc {
			return true
		}
	}
	return false
}

// AcceptedNames returns the accepted encoding names, for error messages
func (s Spec) AcceptedNames() []string {
	return types.EncodingNames(s.AcceptedEncodings)
}

type entry struct {
	id          string
	description string
	hash        crypto.Hash
	curve       string
}

var catalogue = []entry{
	{HS256, "HMAC using SHA-256", crypto.SHA256, ""},
	{HS384, "HMAC using SHA-384", crypto.SHA384, ""},
	{HS512, "HMAC using SHA-512", crypto.SHA512, ""},
	{RS256, "RSA using SHA-256", crypto.SHA256, ""},
	{RS384, "RSA using SHA-384", crypto.SHA384, ""},
	{RS512, "RSA using SHA-512", crypto.SHA512, ""},
	{PS256, "RSA-PSS using SHA-256", crypto.SHA256, ""},
	{ES256, "ECDSA using P-256 and SHA-256", crypto.SHA256, "P-256"},
	{ES384, "ECDSA using P-384 and SHA-384", crypto.SHA384, "P-384"},
	{ES512, "ECDSA using P-521 and SHA-512", crypto.SHA512, "P-521"},
	{EdDSA, "EdDSA signature algorithms", 0, ""},
}

var (
	registry = make(map[string]Spec, len(catalogue))
	ordered  = make([]Spec, 0, len(catalogue))
)

func init() {
	for _, e := range catalogue {
		family, err := familyFromID(e.id)
		if err != nil {
			panic(err)
		}

		keyLabel := "Private Key"
		if family.Symmetric() {
			keyLabel = "Secret"
		}

		spec := Spec{
			ID:                e.id,
			Family:            family,
			AcceptedEncodings: family.AcceptedEncodings(),
			Description:       e.description,
			KeyLabel:          keyLabel,
			Hash:              e.hash,
			Curve:             e.curve,
		}
		registry[e.id] = spec
		ordered = append(ordered, spec)
	}
}

// familyFromID applies the JOSE naming rule. It only runs while the registry is built.
func familyFromID(id string) (Family, error) {
	switch {
	case id == EdDSA:
		return FamilyEdDSA, nil
	case strings.HasPrefix(id, "HS"):
		return FamilyHMAC, nil
	case strings.HasPrefix(id, "RS"):
		return FamilyRSA, nil
	case strings.HasPrefix(id, "PS"):
		return FamilyRSAPSS, nil
	case strings.HasPrefix(id, "ES"):
		return FamilyECDSA, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrUnsupportedAlgorithm, id)
	}
}

// Lookup returns the spec registered for id. Ids are case sensitive, as in JOSE.
func Lookup(id string) (Spec, error) {
	spec, ok := registry[id]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", types.ErrUnsupportedAlgorithm, id)
	}
	return spec, nil
}

// FamilyOf returns the family of a registered algorithm
func FamilyOf(id string) (Family, error) {
	spec, err := Lookup(id)
	if err != nil {
		return 0, err
	}
	return spec.Family, nil
}

// All returns every registered algorithm in catalogue order
func All() []Spec {
	out := make([]Spec, len(ordered))
	copy(out, ordered)
	return out
}

// IDs returns the registered algorithm identifiers in catalogue order
func IDs() []string {
	ids := make([]string, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ID
	}
	return ids
}
