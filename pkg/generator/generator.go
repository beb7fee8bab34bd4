// Package generator is the signing engine: it turns a SigningRequest into a
// signed compact token and decodes tokens back for display.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/keys"
	"github.com/boogy/jencoder/pkg/token"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/boogy/jencoder/pkg/utils"
)

type TokenGeneratorInterface interface {
	Sign(ctx context.Context, req SigningRequest) (*Result, error)
	DecodeForDisplay(tokenString string) (*token.Decoded, error)
	PublicKey(ctx context.Context, req KeyRequest) (*types.PublicKey, error)
}

// SigningRequest is everything needed for one Generate action
type SigningRequest struct {
	Algorithm string
	Key       string // Shared secret for HS*, PEM private key otherwise
	Payload   string // JSON object text
	AddIat    bool
	AddExp    bool
	Expiry    claims.Expiry
}

// KeyRequest selects a private key to derive a public key from
type KeyRequest struct {
	Algorithm string
	Key       string
}

// Result is a signed token along with what a UI displays for it
type Result struct {
	Token    token.SignedToken
	Claims   claims.Document // Assembled claims that were signed
	Decoded  *token.Decoded
	Encoding types.KeyEncoding // Detected encoding of the supplied key
}

type TokenGenerator struct {
	clock  claims.Clock
	logger *slog.Logger
}

type Option func(*TokenGenerator)

// WithClock sets the clock used for iat and exp
func WithClock(c claims.Clock) Option {
	return func(g *TokenGenerator) {
		if c != nil {
			g.clock = c
		}
	}
}

// WithLogger sets the logger, slog.Default() otherwise
func WithLogger(l *slog.Logger) Option {
	return func(g *TokenGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewTokenGenerator(opts ...Option) *TokenGenerator {
	g := &TokenGenerator{
		clock:  claims.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sign builds and signs a token. Steps run in a fixed order: algorithm lookup,
// claims assembly, key import, encoding, then decoding for display. Payload
// errors are reported before any key material is looked at. Nothing is
// returned unless the whole token was produced.
func (g *TokenGenerator) Sign(ctx context.Context, req SigningRequest) (*Result, error) {
	start := time.Now()

	spec, err := algorithm.Lookup(req.Algorithm)
	if err != nil {
		g.logger.Debug("Rejected signing request", "algorithm", req.Algorithm, "error_kind", types.ErrorKind(err))
		return nil, err
	}
	log := g.logger.With("algorithm", spec.ID, "family", spec.Family.String())

	doc, err := claims.Parse(req.Payload)
	if err != nil {
		log.Debug("Rejected payload", "error", err)
		return nil, err
	}
	assembled := claims.Assemble(doc, claims.Options{
		AddIat: req.AddIat,
		AddExp: req.AddExp,
		Expiry: req.Expiry,
	}, g.clock)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	material := keys.Normalize(req.Key)
	key, err := keys.Import(material, spec)
	if err != nil {
		// Import errors describe the encoding, never the key itself
		log.Info("Key import failed", "encoding", material.Encoding.String(), "error_kind", types.ErrorKind(err))
		return nil, err
	}
	defer key.Destroy()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tok, err := token.Encode(spec, key, assembled)
	if err != nil {
		log.Error("Failed to sign token", "encoding", material.Encoding.String(), "error", err)
		return nil, err
	}

	decoded, err := token.DecodeForDisplay(tok.String())
	if err != nil {
		return nil, fmt.Errorf("%w: produced token does not decode: %v", types.ErrSigningFailure, err)
	}

	log.Info("Token signed",
		"encoding", material.Encoding.String(),
		"token", utils.RedactToken(tok.String(), 10, 6),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Token:    tok,
		Claims:   assembled,
		Decoded:  decoded,
		Encoding: material.Encoding,
	}, nil
}

// DecodeForDisplay parses a token's header and payload without verifying it.
// See token.DecodeForDisplay.
func (g *TokenGenerator) DecodeForDisplay(tokenString string) (*token.Decoded, error) {
	decoded, err := token.DecodeForDisplay(tokenString)
	if err != nil {
		g.logger.Debug("Failed to decode token", "error_kind", types.ErrorKind(err))
		return nil, err
	}
	return decoded, nil
}

// PublicKey derives the public key of an asymmetric private key, as PEM and
// as a JWK carrying its thumbprint as kid.
func (g *TokenGenerator) PublicKey(ctx context.Context, req KeyRequest) (*types.PublicKey, error) {
	spec, err := algorithm.Lookup(req.Algorithm)
	if err != nil {
		return nil, err
	}
	if spec.Family.Symmetric() {
		return nil, fmt.Errorf("%w: %s signs with a shared secret and has no public key",
			types.ErrUnsupportedAlgorithm, spec.ID)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := keys.Import(keys.Normalize(req.Key), spec)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	pemText, err := key.PublicPEM()
	if err != nil {
		return nil, err
	}
	jwk, err := key.PublicJWK()
	if err != nil {
		return nil, err
	}

	g.logger.Debug("Derived public key", "algorithm", spec.ID, "kid", jwk.KeyID)

	return &types.PublicKey{Algorithm: spec.ID, PEM: pemText, JWK: jwk}, nil
}
