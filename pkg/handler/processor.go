package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/generator"
	"github.com/boogy/jencoder/pkg/metrics"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/boogy/jencoder/pkg/utils"
)

// SettingsManager loads and saves the signing form settings
type SettingsManager interface {
	Load(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, s settings.Settings) error
	Reset(ctx context.Context) (settings.Settings, error)
}

// RequestProcessor contains the logic shared by every front end
type RequestProcessor struct {
	generator generator.TokenGeneratorInterface
	settings  SettingsManager
}

// NewRequestProcessor creates a new instance of request processor. A nil
// settings manager disables the settings route.
func NewRequestProcessor(gen generator.TokenGeneratorInterface, sm SettingsManager) *RequestProcessor {
	return &RequestProcessor{
		generator: gen,
		settings:  sm,
	}
}

// Generate signs the claims of req
func (r *RequestProcessor) Generate(ctx context.Context, req *GenerateRequest, log *slog.Logger) (*GenerateResponse, error) {
	start := time.Now()

	res, err := r.generator.Sign(ctx, generator.SigningRequest{
		Algorithm: req.Algorithm,
		Key:       req.Key,
		Payload:   req.Payload,
		AddIat:    req.AddIat,
		AddExp:    req.AddExp,
		Expiry:    claims.Expiry{Offset: req.ExpOffset, CustomMinutes: req.CustomExpMinutes},
	})
	metrics.RecordOperation(metrics.OpSign, req.Algorithm, err, time.Since(start))
	if err != nil {
		log.Warn("Token generation failed",
			slog.String("algorithm", req.Algorithm),
			slog.String("errorCode", types.ErrorKind(err)),
			slog.String("key", utils.RedactSecret(req.Key)))
		return nil, err
	}

	header, payload, err := res.Decoded.Pretty()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSigningFailure, err)
	}

	resp := &GenerateResponse{
		Token:     res.Token.String(),
		Header:    header,
		Payload:   payload,
		Signature: res.Token.Signature,
		Encoding:  res.Encoding.String(),
	}
	if req.IncludeBearer {
		resp.Bearer = res.Token.Bearer()
	}

	log.Info("Token generated",
		slog.String("algorithm", req.Algorithm),
		slog.String("keyEncoding", resp.Encoding),
		slog.String("token", utils.RedactToken(resp.Token, 10, 6)))

	return resp, nil
}

// Decode splits a token for display. The signature is not verified.
func (r *RequestProcessor) Decode(ctx context.Context, req *DecodeRequest, log *slog.Logger) (*DecodeResponse, error) {
	start := time.Now()

	decoded, err := r.generator.DecodeForDisplay(req.Token)
	if err != nil {
		metrics.RecordOperation(metrics.OpDecode, "", err, time.Since(start))
		log.Debug("Token decode failed",
			slog.String("errorCode", types.ErrorKind(err)),
			slog.String("token", utils.RedactToken(req.Token, 10, 6)))
		return nil, err
	}

	alg := decoded.Algorithm()
	if _, lookupErr := algorithm.Lookup(alg); lookupErr != nil {
		alg = "unknown"
	}
	metrics.RecordOperation(metrics.OpDecode, alg, nil, time.Since(start))

	header, payload, err := decoded.Pretty()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedToken, err)
	}

	return &DecodeResponse{
		Algorithm: decoded.Algorithm(),
		Header:    header,
		Payload:   payload,
		Signature: decoded.Signature,
	}, nil
}

// Format repairs and indents a claims payload without signing it
func (r *RequestProcessor) Format(ctx context.Context, req *FormatRequest, log *slog.Logger) (*FormatResponse, error) {
	payload, err := settings.FormatPayload(req.Payload)
	if err != nil {
		log.Debug("Payload format failed",
			slog.String("errorCode", types.ErrorKind(err)),
			slog.Int("payloadBytes", len(req.Payload)))
		return nil, err
	}
	return &FormatResponse{Payload: payload}, nil
}

// PublicKey derives the public key of an asymmetric private key
func (r *RequestProcessor) PublicKey(ctx context.Context, req *PublicKeyRequest, log *slog.Logger) (*PublicKeyResponse, error) {
	start := time.Now()

	pub, err := r.generator.PublicKey(ctx, generator.KeyRequest{Algorithm: req.Algorithm, Key: req.Key})
	metrics.RecordOperation(metrics.OpPublicKey, req.Algorithm, err, time.Since(start))
	if err != nil {
		log.Warn("Public key derivation failed",
			slog.String("algorithm", req.Algorithm),
			slog.String("errorCode", types.ErrorKind(err)))
		return nil, err
	}

	return &PublicKeyResponse{
		Algorithm: pub.Algorithm,
		PEM:       pub.PEM,
		JWKS:      pub.JWKS(),
	}, nil
}

// Algorithms lists the supported algorithms in catalogue order
func (r *RequestProcessor) Algorithms() []AlgorithmInfo {
	specs := algorithm.All()
	out := make([]AlgorithmInfo, 0, len(specs))
	for _, s := range specs {
		out = append(out, AlgorithmInfo{
			ID:                s.ID,
			Family:            s.Family.String(),
			Description:       s.Description,
			KeyLabel:          s.KeyLabel,
			AcceptedEncodings: s.AcceptedNames(),
		})
	}
	return out
}

// LoadSettings returns the saved settings without key material
func (r *RequestProcessor) LoadSettings(ctx context.Context) (*settings.Settings, error) {
	s, err := r.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettingsStore, err)
	}
	s = s.WithoutKeyMaterial()
	return &s, nil
}

// SaveSettings merges body over the saved settings and stores the result
func (r *RequestProcessor) SaveSettings(ctx context.Context, body string, log *slog.Logger) (*settings.Settings, error) {
	current, err := r.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettingsStore, err)
	}

	merged, err := settings.Import(current, []byte(body), settings.FormatJSON)
	if err != nil {
		return nil, err
	}
	if err := r.settings.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettingsStore, err)
	}

	log.Info("Settings saved", slog.String("algorithm", merged.Algorithm))
	merged = merged.WithoutKeyMaterial()
	return &merged, nil
}

// ResetSettings removes the saved settings
func (r *RequestProcessor) ResetSettings(ctx context.Context, log *slog.Logger) (*settings.Settings, error) {
	s, err := r.settings.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettingsStore, err)
	}

	log.Info("Settings reset")
	s = s.WithoutKeyMaterial()
	return &s, nil
}
