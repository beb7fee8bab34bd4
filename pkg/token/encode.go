// Package token builds compact JWS tokens and decodes them for display.
//
// DecodeForDisplay does not verify signatures. Its output shows what a token
// claims to be and must never be used to make a trust decision.
package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/keys"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// Type is the typ header value of every token produced here
const Type = "JWT"

// BearerPrefix is the Authorization header scheme prefix
const BearerPrefix = "Bearer "

var errVerifyUnsupported = errors.New("signing keys cannot verify")

// SignedToken holds the three base64url segments of a compact token
type SignedToken struct {
	Header    string
	Payload   string
	Signature string
}

// String returns the compact serialization
func (t SignedToken) String() string {
	return t.SigningInput() + "." + t.Signature
}

// SigningInput returns the header and payload segments the signature covers
func (t SignedToken) SigningInput() string {
	return t.Header + "." + t.Payload
}

// Bearer returns the token in Authorization header form
func (t SignedToken) Bearer() string {
	return BearerPrefix + t.String()
}

// keyMethod lets golang-jwt sign through an imported key handle
type keyMethod struct {
	key *keys.SigningKey
}

func (m keyMethod) Alg() string {
	return m.key.Algorithm()
}

func (m keyMethod) Sign(signingString string, _ any) ([]byte, error) {
	return m.key.Sign(signingString)
}

func (m keyMethod) Verify(string, []byte, any) error {
	return errVerifyUnsupported
}

// Encode serializes the header {alg, typ} and the claims, and signs them with
// key. The key must have been imported for spec.
func Encode(spec algorithm.Spec, key *keys.SigningKey, c claims.Document) (SignedToken, error) {
	if key == nil {
		return SignedToken{}, fmt.Errorf("%w: no signing key", types.ErrSigningFailure)
	}
	if key.Algorithm() != spec.ID {
		return SignedToken{}, fmt.Errorf("%w: key imported for %s cannot sign %s",
			types.ErrSigningFailure, key.Algorithm(), spec.ID)
	}
	if c == nil {
		c = claims.Document{}
	}

	tok := jwt.NewWithClaims(keyMethod{key: key}, jwt.MapClaims(c))
	tok.Header["typ"] = Type

	compact, err := tok.SignedString(nil)
	if err != nil {
		if errors.Is(err, types.ErrSigningFailure) {
			return SignedToken{}, err
		}
		return SignedToken{}, fmt.Errorf("%w: %s: %w", types.ErrSigningFailure, spec.ID, err)
	}

	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return SignedToken{}, fmt.Errorf("%w: encoder produced %d segments", types.ErrSigningFailure, len(parts))
	}
	return SignedToken{Header: parts[0], Payload: parts[1], Signature: parts[2]}, nil
}
