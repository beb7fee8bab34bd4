// Package keys turns user supplied key text into signing keys. Normalize and
// Classify clean up and tag the text; Import parses it for one algorithm.
//
// Key material handled here is transient: it is never logged, cached or
// persisted, and buffers holding decoded key bytes are cleared before
// Import returns.
package keys

import (
	"strings"

	"github.com/boogy/jencoder/pkg/types"
)

const (
	pemBegin = "-----BEGIN "
	pemEnd   = "-----END "
	pemDash  = "-----"
)

// recognized lists the private key PEM types in classification priority
var recognized = []struct {
	pemType  string
	encoding types.KeyEncoding
}{
	{types.PEMTypeRSAPrivateKey, types.EncodingPKCS1RSA},
	{types.PEMTypePrivateKey, types.EncodingPKCS8},
	{types.PEMTypeECPrivateKey, types.EncodingSEC1EC},
}

// Material is user supplied key text along with its normalized form and detected encoding
type Material struct {
	Raw      string            // Text exactly as supplied
	Text     string            // Normalized text
	Encoding types.KeyEncoding // Derived from Text
}

// Normalize trims the input, repairs line breaks of pasted PEM keys and
// classifies the result. It never fails: unrecognized text is tagged RAW or
// UNKNOWN and left to Import to reject.
func Normalize(raw string) Material {
	text := strings.TrimSpace(raw)

	if strings.Contains(text, pemBegin) {
		text = strings.ReplaceAll(text, "\r\n", "\n")
		if !strings.Contains(text, "\n") && strings.Contains(text, `\n`) {
			text = strings.ReplaceAll(text, `\n`, "\n")
		}
		text = insertLineBreaks(text)
	}

	return Material{
		Raw:      raw,
		Text:     text,
		Encoding: Classify(text),
	}
}

// Classify tags text by the private key PEM header it contains
func Classify(text string) types.KeyEncoding {
	for _, r := range recognized {
		if strings.Contains(text, header(r.pemType)) {
			return r.encoding
		}
	}
	if strings.Contains(text, pemBegin) {
		return types.EncodingUnknown
	}
	return types.EncodingRaw
}

// insertLineBreaks puts a newline after the header and before the footer of a
// recognized PEM block written on a single line. The base64 body is not touched.
func insertLineBreaks(text string) string {
	if strings.Contains(text, "\n") {
		return text
	}

	for _, r := range recognized {
		h, f := header(r.pemType), footer(r.pemType)
		start := strings.Index(text, h)
		if start < 0 {
			continue
		}
		bodyStart := start + len(h)
		end := strings.LastIndex(text, f)
		if end < bodyStart {
			continue
		}

		var b strings.Builder
		b.Grow(len(text) + 2)
		b.WriteString(text[:bodyStart])
		b.WriteByte('\n')
		b.WriteString(text[bodyStart:end])
		b.WriteByte('\n')
		b.WriteString(text[end:])
		return b.String()
	}

	return text
}

func header(pemType string) string {
	return pemBegin + pemType + pemDash
}

func footer(pemType string) string {
	return pemEnd + pemType + pemDash
}
