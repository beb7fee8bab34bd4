// Package claims parses JWT claim sets and injects the registered time claims.
package claims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/boogy/jencoder/pkg/types"
)

// Registered time claims set by Assemble
const (
	IssuedAt  = "iat"
	ExpiresAt = "exp"
)

// Document is a parsed JSON object of claims. Numbers are kept as
// json.Number so they are written back exactly as they were read.
type Document map[string]any

// Parse parses text as a JSON object. Anything else, including trailing data
// after the object, is an ErrInvalidPayload.
func Parse(text string) (Document, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: payload is empty", types.ErrInvalidPayload)
		}
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after JSON object", types.ErrInvalidPayload)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload must be a JSON object, got %s", types.ErrInvalidPayload, kind(v))
	}
	return Document(obj), nil
}

// Clone returns a shallow copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// Int64 returns a numeric claim as an int64
func (d Document) Int64(name string) (int64, bool) {
	switch v := d[name].(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Indent renders the document as indented JSON
func (d Document) Indent() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Options controls which time claims Assemble sets
type Options struct {
	AddIat bool
	AddExp bool
	Expiry Expiry
}

// Assemble returns a shallow copy of doc with iat and exp set as requested.
// The clock is read once so iat and exp agree. Existing claims are overwritten.
func Assemble(doc Document, opts Options, clock Clock) Document {
	out := doc.Clone()
	if !opts.AddIat && !opts.AddExp {
		return out
	}

	if clock == nil {
		clock = SystemClock{}
	}
	now := clock.Now().Unix()

	if opts.AddIat {
		out[IssuedAt] = number(now)
	}
	if opts.AddExp {
		out[ExpiresAt] = number(addSeconds(now, opts.Expiry.Seconds()))
	}
	return out
}

// addSeconds saturates instead of wrapping past math.MaxInt64
func addSeconds(now, secs int64) int64 {
	if secs > 0 && now > math.MaxInt64-secs {
		return math.MaxInt64
	}
	return now + secs
}

func number(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
