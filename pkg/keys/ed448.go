package keys

import (
	"encoding/asn1"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// RFC 8410 algorithm identifiers
var (
	oidEd25519 = asn1.ObjectIdentifier{1, 3, 101, 112}
	oidEd448   = asn1.ObjectIdentifier{1, 3, 101, 113}
)

var errMalformedPKCS8 = errors.New("malformed PKCS#8 structure")

// pkcs8Algorithm reads the private key algorithm OID of a PKCS#8 PrivateKeyInfo
func pkcs8Algorithm(der []byte) (asn1.ObjectIdentifier, error) {
	input := cryptobyte.String(der)
	var (
		pki, algID cryptobyte.String
		version    int64
		oid        asn1.ObjectIdentifier
	)
	if !input.ReadASN1(&pki, cbasn1.SEQUENCE) ||
		!pki.ReadASN1Integer(&version) ||
		!pki.ReadASN1(&algID, cbasn1.SEQUENCE) ||
		!algID.ReadASN1ObjectIdentifier(&oid) {
		return nil, errMalformedPKCS8
	}
	return oid, nil
}

// parseEd448PrivateKey parses a PKCS#8 wrapped Ed448 key. The standard library
// only understands Ed25519 in PKCS#8.
func parseEd448PrivateKey(der []byte) (ed448.PrivateKey, error) {
	input := cryptobyte.String(der)
	var (
		pki, algID, wrapped, seed cryptobyte.String
		version                   int64
		oid                       asn1.ObjectIdentifier
	)
	if !input.ReadASN1(&pki, cbasn1.SEQUENCE) ||
		!pki.ReadASN1Integer(&version) ||
		!pki.ReadASN1(&algID, cbasn1.SEQUENCE) ||
		!algID.ReadASN1ObjectIdentifier(&oid) ||
		!pki.ReadASN1(&wrapped, cbasn1.OCTET_STRING) ||
		!wrapped.ReadASN1(&seed, cbasn1.OCTET_STRING) {
		return nil, errMalformedPKCS8
	}
	if !oid.Equal(oidEd448) {
		return nil, fmt.Errorf("PKCS#8 algorithm %s is not Ed448", oid)
	}
	if len(seed) != ed448.SeedSize {
		return nil, fmt.Errorf("invalid Ed448 seed length %d", len(seed))
	}
	return ed448.NewKeyFromSeed(seed), nil
}

// signingMethodEd448 signs EdDSA tokens with Ed448 keys. golang-jwt only ships Ed25519.
type signingMethodEd448 struct{}

var ed448Method jwt.SigningMethod = signingMethodEd448{}

func (signingMethodEd448) Alg() string {
	return "EdDSA"
}

func (signingMethodEd448) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(ed448.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	if len(priv) != ed448.PrivateKeySize {
		return nil, jwt.ErrInvalidKey
	}
	return ed448.Sign(priv, []byte(signingString), ""), nil
}

func (signingMethodEd448) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(ed448.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}
	if len(pub) != ed448.PublicKeySize {
		return jwt.ErrInvalidKey
	}
	if !ed448.Verify(pub, []byte(signingString), sig, "") {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}
