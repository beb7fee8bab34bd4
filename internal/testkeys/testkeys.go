// Package testkeys generates PEM encoded private keys for tests.
package testkeys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"strings"
	"sync"
	"testing"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var oidEd448 = asn1.ObjectIdentifier{1, 3, 101, 113}

// RSA holds an RSA key and its PEM encodings
type RSA struct {
	Key   *rsa.PrivateKey
	PKCS1 string
	PKCS8 string
}

// EC holds an ECDSA key and its PEM encodings
type EC struct {
	Key   *ecdsa.PrivateKey
	SEC1  string
	PKCS8 string
}

// Ed25519 holds an Ed25519 key and its PKCS#8 PEM encoding
type Ed25519 struct {
	Key   ed25519.PrivateKey
	PKCS8 string
}

// Ed448 holds an Ed448 key and its PKCS#8 PEM encoding
type Ed448 struct {
	Key   ed448.PrivateKey
	PKCS8 string
}

var (
	rsaOnce sync.Once
	rsaKey  RSA
	rsaErr  error
)

// RSAKey returns a 2048 bit RSA key, generated once per test binary
func RSAKey(t testing.TB) RSA {
	t.Helper()
	rsaOnce.Do(func() {
		var key *rsa.PrivateKey
		key, rsaErr = rsa.GenerateKey(rand.Reader, 2048)
		if rsaErr != nil {
			return
		}
		var der []byte
		der, rsaErr = pkcs8.MarshalPrivateKey(key, nil, nil)
		if rsaErr != nil {
			return
		}
		rsaKey = RSA{
			Key:   key,
			PKCS1: encode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)),
			PKCS8: encode("PRIVATE KEY", der),
		}
	})
	if rsaErr != nil {
		t.Fatalf("generate RSA key: %v", rsaErr)
	}
	return rsaKey
}

// ECKey returns a fresh ECDSA key on the given curve
func ECKey(t testing.TB, curve elliptic.Curve) EC {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generate EC key: %v", err)
	}
	sec1, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal SEC1: %v", err)
	}
	der, err := pkcs8.MarshalPrivateKey(key, nil, nil)
	if err != nil {
		t.Fatalf("marshal PKCS8: %v", err)
	}
	return EC{
		Key:   key,
		SEC1:  encode("EC PRIVATE KEY", sec1),
		PKCS8: encode("PRIVATE KEY", der),
	}
}

// Ed25519Key returns a fresh Ed25519 key
func Ed25519Key(t testing.TB) Ed25519 {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate Ed25519 key: %v", err)
	}
	der, err := pkcs8.MarshalPrivateKey(key, nil, nil)
	if err != nil {
		t.Fatalf("marshal PKCS8: %v", err)
	}
	return Ed25519{Key: key, PKCS8: encode("PRIVATE KEY", der)}
}

// Ed448Key returns a fresh Ed448 key
func Ed448Key(t testing.TB) Ed448 {
	t.Helper()
	_, key, err := ed448.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate Ed448 key: %v", err)
	}
	return Ed448{Key: key, PKCS8: encode("PRIVATE KEY", MarshalEd448PKCS8(key.Seed()))}
}

// MarshalEd448PKCS8 wraps an Ed448 seed in an RFC 8410 PrivateKeyInfo
func MarshalEd448PKCS8(seed []byte) []byte {
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oidEd448)
		})
		b.AddASN1(cbasn1.OCTET_STRING, func(b *cryptobyte.Builder) {
			b.AddASN1OctetString(seed)
		})
	})
	return b.BytesOrPanic()
}

// OneLine joins a PEM document into a single line, the way keys end up when
// pasted into a single line input.
func OneLine(pemText string) string {
	return strings.ReplaceAll(strings.TrimSpace(pemText), "\n", "")
}

// Escaped replaces newlines with literal "\n" sequences, as found in JSON or env values
func Escaped(pemText string) string {
	return strings.ReplaceAll(strings.TrimSpace(pemText), "\n", `\n`)
}

func encode(blockType string, der []byte) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}
