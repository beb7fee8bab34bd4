package cli

import (
	"fmt"
	"strings"

	"github.com/boogy/jencoder/pkg/claims"
	"github.com/spf13/cobra"
)

type decodeOutput struct {
	Algorithm string          `json:"algorithm,omitempty"`
	Header    claims.Document `json:"header"`
	Payload   claims.Document `json:"payload"`
	Signature string          `json:"signature"`
}

func (a *app) newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [token]",
		Short: "Decode a token without verifying it",
		Long: `Decode the header and payload of a compact JWT for display.

The signature is printed as found and is NOT verified. The token is read from
standard input when no argument is given. A "Bearer " prefix is ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tokenString string
			if len(args) == 1 {
				tokenString = args[0]
			} else {
				text, err := readInput(cmd.InOrStdin(), "-")
				if err != nil {
					return err
				}
				tokenString = strings.TrimSpace(text)
			}

			decoded, err := a.gen.DecodeForDisplay(tokenString)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				return printJSON(w, decodeOutput{
					Algorithm: decoded.Algorithm(),
					Header:    decoded.Header,
					Payload:   decoded.Payload,
					Signature: decoded.Signature,
				})
			}

			header, payload, err := decoded.Pretty()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Header:\n%s\n\nPayload:\n%s\n\nSignature (not verified): %s\n",
				header, payload, decoded.Signature)
			return nil
		},
	}
}
