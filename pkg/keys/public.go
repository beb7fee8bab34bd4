package keys

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/boogy/jencoder/pkg/types"
	"github.com/cloudflare/circl/sign/ed448"
	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var errNoPublicKey = errors.New("symmetric keys have no public key")

// okpThumbprintTemplate is the RFC 7638 member order for OKP keys (RFC 8037)
const okpThumbprintTemplate = `{"crv":"%s","kty":"OKP","x":"%s"}`

// PublicPEM returns the PKIX "PUBLIC KEY" PEM block of the key's public half
func (k *SigningKey) PublicPEM() (string, error) {
	if k == nil || k.public == nil {
		return "", errNoPublicKey
	}

	der, err := marshalPKIX(k.public)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: types.PEMTypePublicKey, Bytes: der})), nil
}

// PublicJWK returns the public half as a JWK whose kid is its SHA-256 thumbprint
func (k *SigningKey) PublicJWK() (types.JSONWebKey, error) {
	if k == nil || k.public == nil {
		return types.JSONWebKey{}, errNoPublicKey
	}

	if pub, ok := k.public.(ed448.PublicKey); ok {
		return okpJWK(k.spec.ID, "Ed448", pub), nil
	}

	jwk := jose.JSONWebKey{Key: k.public, Algorithm: k.spec.ID, Use: "sig"}
	thumb, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return types.JSONWebKey{}, fmt.Errorf("jwk thumbprint: %w", err)
	}
	jwk.KeyID = base64.RawURLEncoding.EncodeToString(thumb)

	data, err := jwk.MarshalJSON()
	if err != nil {
		return types.JSONWebKey{}, fmt.Errorf("marshal jwk: %w", err)
	}
	var out types.JSONWebKey
	if err := json.Unmarshal(data, &out); err != nil {
		return types.JSONWebKey{}, fmt.Errorf("unmarshal jwk: %w", err)
	}
	return out, nil
}

// okpJWK builds an Ed448 OKP key by hand: go-jose does not know Ed448.
func okpJWK(alg, crv string, pub []byte) types.JSONWebKey {
	x := base64.RawURLEncoding.EncodeToString(pub)
	sum := sha256.Sum256([]byte(fmt.Sprintf(okpThumbprintTemplate, crv, x)))
	return types.JSONWebKey{
		Algorithm: alg,
		KeyID:     base64.RawURLEncoding.EncodeToString(sum[:]),
		KeyType:   "OKP",
		Use:       "sig",
		Crv:       crv,
		X:         x,
	}
}

func marshalPKIX(pub crypto.PublicKey) ([]byte, error) {
	edPub, ok := pub.(ed448.PublicKey)
	if !ok {
		return x509.MarshalPKIXPublicKey(pub)
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidEd448)
		})
		b.AddASN1BitString(edPub)
	})
	return b.Bytes()
}
