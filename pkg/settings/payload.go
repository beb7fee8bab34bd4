package settings

import (
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/kaptinlin/jsonrepair"
)

// FormatPayload repairs hand-typed JSON in a claims payload (single quotes,
// unquoted keys, trailing commas, comments, missing brackets) and returns it
// indented. When the repair gives up the text is parsed as is, so the error is
// the parse error of the original payload. The result must be a JSON object.
func FormatPayload(text string) (string, error) {
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		repaired = text
	}

	doc, err := claims.Parse(repaired)
	if err != nil {
		return "", err
	}
	return doc.Indent()
}
