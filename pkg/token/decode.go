package token

import (
	"fmt"
	"strings"

	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/types"
	"github.com/golang-jwt/jwt/v5"
)

// Decoded is the unverified content of a compact token
type Decoded struct {
	Header    claims.Document
	Payload   claims.Document
	Signature string // base64url, as found in the token
}

// Algorithm returns the alg header, empty when absent
func (d *Decoded) Algorithm() string {
	alg, _ := d.Header["alg"].(string)
	return alg
}

// Pretty renders header and payload as indented JSON
func (d *Decoded) Pretty() (header, payload string, err error) {
	if header, err = d.Header.Indent(); err != nil {
		return "", "", err
	}
	if payload, err = d.Payload.Indent(); err != nil {
		return "", "", err
	}
	return header, payload, nil
}

var segmentParser = jwt.NewParser()

// DecodeForDisplay splits a compact token and parses its header and payload.
// The signature is returned as is and is NOT verified. A leading "Bearer "
// scheme is ignored.
func DecodeForDisplay(s string) (*Decoded, error) {
	s = stripBearer(strings.TrimSpace(s))

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", types.ErrMalformedToken, len(parts))
	}

	header, err := decodeSegment("header", parts[0])
	if err != nil {
		return nil, err
	}
	payload, err := decodeSegment("payload", parts[1])
	if err != nil {
		return nil, err
	}

	return &Decoded{Header: header, Payload: payload, Signature: parts[2]}, nil
}

func decodeSegment(name, seg string) (claims.Document, error) {
	raw, err := segmentParser.DecodeSegment(seg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not base64url: %v", types.ErrMalformedToken, name, err)
	}
	doc, err := claims.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON object: %v", types.ErrMalformedToken, name, err)
	}
	return doc, nil
}

func stripBearer(s string) string {
	if len(s) >= len(BearerPrefix) && strings.EqualFold(s[:len(BearerPrefix)], BearerPrefix) {
		return strings.TrimSpace(s[len(BearerPrefix):])
	}
	return s
}
