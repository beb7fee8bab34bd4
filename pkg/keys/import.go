package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/cloudflare/circl/sign/ed448"
	"github.com/golang-jwt/jwt/v5"
	"github.com/youmark/pkcs8"
)

var (
	errEmptySecret  = errors.New("secret is empty")
	errKeyDestroyed = errors.New("signing key has been destroyed")
)

// SigningKey is an imported key bound to a single algorithm. The key itself
// never leaves this package; callers sign through Sign.
type SigningKey struct {
	spec   algorithm.Spec
	method jwt.SigningMethod
	key    any
	public crypto.PublicKey
}

// Algorithm returns the algorithm id the key was imported for
func (k *SigningKey) Algorithm() string {
	return k.spec.ID
}

// Family returns the algorithm family of the key
func (k *SigningKey) Family() algorithm.Family {
	return k.spec.Family
}

// Public returns the public half of an asymmetric key, nil for HMAC secrets
func (k *SigningKey) Public() crypto.PublicKey {
	return k.public
}

// Sign computes the JWS signature of signingInput
func (k *SigningKey) Sign(signingInput string) ([]byte, error) {
	if k == nil || k.key == nil {
		return nil, fmt.Errorf("%w: %w", types.ErrSigningFailure, errKeyDestroyed)
	}

	sig, err := k.method.Sign(signingInput, k.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrSigningFailure, k.spec.ID, err)
	}
	return sig, nil
}

// Destroy drops the key and zeroes secret bytes. The key cannot sign afterwards.
func (k *SigningKey) Destroy() {
	if k == nil {
		return
	}
	switch secret := k.key.(type) {
	case []byte:
		clear(secret)
	case ed25519.PrivateKey:
		clear(secret)
	case ed448.PrivateKey:
		clear(secret)
	}
	k.key = nil
	k.public = nil
}

// Import parses normalized key material for the given algorithm. Every failure
// is a *types.KeyFormatError except for unknown algorithm families.
func Import(m Material, spec algorithm.Spec) (*SigningKey, error) {
	method := jwt.GetSigningMethod(spec.ID)
	if method == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedAlgorithm, spec.ID)
	}

	switch spec.Family {
	case algorithm.FamilyHMAC:
		return importHMAC(m, spec, method)
	case algorithm.FamilyRSA, algorithm.FamilyRSAPSS:
		return importRSA(m, spec, method)
	case algorithm.FamilyECDSA:
		return importECDSA(m, spec, method)
	case algorithm.FamilyEdDSA:
		return importEdDSA(m, spec, method)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedAlgorithm, spec.ID)
	}
}

// importHMAC uses the text exactly as supplied: trimming would change the secret.
func importHMAC(m Material, spec algorithm.Spec, method jwt.SigningMethod) (*SigningKey, error) {
	if m.Raw == "" {
		return nil, keyFormatError(spec, m.Encoding, errEmptySecret)
	}
	return &SigningKey{
		spec:   spec,
		method: method,
		key:    []byte(m.Raw),
	}, nil
}

func importRSA(m Material, spec algorithm.Spec, method jwt.SigningMethod) (*SigningKey, error) {
	der, err := decodeBlock(m, spec)
	if err != nil {
		return nil, err
	}
	defer clear(der)

	var key *rsa.PrivateKey
	switch m.Encoding {
	case types.EncodingPKCS1RSA:
		key, err = x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, keyFormatError(spec, m.Encoding, err)
		}
	case types.EncodingPKCS8:
		parsed, err := pkcs8.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, keyFormatError(spec, m.Encoding, err)
		}
		var ok bool
		if key, ok = parsed.(*rsa.PrivateKey); !ok {
			return nil, keyFormatError(spec, m.Encoding, fmt.Errorf("PKCS8 key is %s, not RSA", keyTypeName(parsed)))
		}
	}

	return &SigningKey{spec: spec, method: method, key: key, public: &key.PublicKey}, nil
}

func importECDSA(m Material, spec algorithm.Spec, method jwt.SigningMethod) (*SigningKey, error) {
	der, err := decodeBlock(m, spec)
	if err != nil {
		return nil, err
	}
	defer clear(der)

	var key *ecdsa.PrivateKey
	switch m.Encoding {
	case types.EncodingSEC1EC:
		key, err = x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, keyFormatError(spec, m.Encoding, err)
		}
	case types.EncodingPKCS8:
		parsed, err := pkcs8.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, keyFormatError(spec, m.Encoding, err)
		}
		var ok bool
		if key, ok = parsed.(*ecdsa.PrivateKey); !ok {
			return nil, keyFormatError(spec, m.Encoding, fmt.Errorf("PKCS8 key is %s, not ECDSA", keyTypeName(parsed)))
		}
	}

	if curve := key.Curve.Params().Name; curve != spec.Curve {
		return nil, keyFormatError(spec, m.Encoding, fmt.Errorf("key curve %s does not match %s", curve, spec.Curve))
	}

	return &SigningKey{spec: spec, method: method, key: key, public: &key.PublicKey}, nil
}

func importEdDSA(m Material, spec algorithm.Spec, method jwt.SigningMethod) (*SigningKey, error) {
	der, err := decodeBlock(m, spec)
	if err != nil {
		return nil, err
	}
	defer clear(der)

	oid, err := pkcs8Algorithm(der)
	if err != nil {
		return nil, keyFormatError(spec, m.Encoding, err)
	}

	switch {
	case oid.Equal(oidEd448):
		key, err := parseEd448PrivateKey(der)
		if err != nil {
			return nil, keyFormatError(spec, m.Encoding, err)
		}
		return &SigningKey{spec: spec, method: ed448Method, key: key, public: key.Public()}, nil

	case oid.Equal(oidEd25519):
		parsed, err := pkcs8.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, keyFormatError(spec, m.Encoding, err)
		}
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, keyFormatError(spec, m.Encoding, fmt.Errorf("PKCS8 key is %s, not Ed25519", keyTypeName(parsed)))
		}
		return &SigningKey{spec: spec, method: method, key: key, public: key.Public()}, nil

	default:
		return nil, keyFormatError(spec, m.Encoding, fmt.Errorf("PKCS8 key algorithm %s is not an EdDSA curve", oid))
	}
}

// decodeBlock checks the detected encoding against the spec and returns the
// DER bytes of the first PEM block carrying that encoding. PEM input can hold
// several blocks, e.g. "EC PARAMETERS" ahead of "EC PRIVATE KEY".
func decodeBlock(m Material, spec algorithm.Spec) ([]byte, error) {
	if !spec.Accepts(m.Encoding) {
		return nil, keyFormatError(spec, m.Encoding, nil)
	}

	want := m.Encoding.PEMType()
	rest := []byte(m.Text)
	defer clear(rest)

	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, keyFormatError(spec, m.Encoding, fmt.Errorf("no valid %q PEM block found", want))
		}
		if block.Type != want {
			clear(block.Bytes)
			continue
		}
		if len(block.Headers) > 0 {
			clear(block.Bytes)
			return nil, keyFormatError(spec, m.Encoding, errors.New("encrypted PEM blocks are not supported"))
		}
		return block.Bytes, nil
	}
}

func keyFormatError(spec algorithm.Spec, detected types.KeyEncoding, err error) error {
	return &types.KeyFormatError{
		Algorithm: spec.ID,
		Detected:  detected.Detected(),
		Accepted:  spec.AcceptedNames(),
		Err:       err,
	}
}

func keyTypeName(key any) string {
	switch key.(type) {
	case *rsa.PrivateKey:
		return "RSA"
	case *ecdsa.PrivateKey:
		return "ECDSA"
	case ed25519.PrivateKey:
		return "Ed25519"
	case ed448.PrivateKey:
		return "Ed448"
	default:
		return fmt.Sprintf("%T", key)
	}
}
