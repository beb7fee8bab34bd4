package cli

import (
	"fmt"
	"strings"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/generator"
	"github.com/spf13/cobra"
)

type algorithmOutput struct {
	ID                string   `json:"id"`
	Family            string   `json:"family"`
	Description       string   `json:"description"`
	KeyLabel          string   `json:"keyLabel"`
	AcceptedEncodings []string `json:"acceptedEncodings"`
}

func (a *app) newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the supported signing algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := algorithm.All()
			w := cmd.OutOrStdout()

			if a.output == OutputJSON {
				out := make([]algorithmOutput, 0, len(specs))
				for _, s := range specs {
					out = append(out, algorithmOutput{
						ID:                s.ID,
						Family:            s.Family.String(),
						Description:       s.Description,
						KeyLabel:          s.KeyLabel,
						AcceptedEncodings: s.AcceptedNames(),
					})
				}
				return printJSON(w, out)
			}

			fmt.Fprintf(w, "%-7s %-8s %-12s %-20s %s\n", "ID", "FAMILY", "KEY", "ENCODINGS", "DESCRIPTION")
			fmt.Fprintln(w, strings.Repeat("-", 80))
			for _, s := range specs {
				fmt.Fprintf(w, "%-7s %-8s %-12s %-20s %s\n",
					s.ID, s.Family, s.KeyLabel, strings.Join(s.AcceptedNames(), ","), s.Description)
			}
			return nil
		},
	}
}

func (a *app) newPublicKeyCmd() *cobra.Command {
	var (
		alg     string
		key     string
		keyFile string
		jwks    bool
	)

	cmd := &cobra.Command{
		Use:   "pubkey",
		Short: "Print the public key of a private key",
		Long: `Derive the public key of an RSA, ECDSA or EdDSA private key and print it
as PEM, or as a JSON web key set with --jwks. Without --key or --key-file the
saved private key is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.loadSettings(cmd.Context())
			if cmd.Flags().Changed("alg") {
				s.Algorithm = alg
			}

			req := generator.KeyRequest{Algorithm: s.Algorithm, Key: s.PrivateKey}
			switch {
			case cmd.Flags().Changed("key"):
				req.Key = key
			case keyFile != "":
				text, err := readInput(cmd.InOrStdin(), keyFile)
				if err != nil {
					return err
				}
				req.Key = text
			}

			pub, err := a.gen.PublicKey(cmd.Context(), req)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case jwks:
				return printJSON(w, pub.JWKS())
			case a.output == OutputJSON:
				return printJSON(w, pub)
			default:
				fmt.Fprint(w, pub.PEM)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&alg, "alg", "a", "", "algorithm the key is used with")
	cmd.Flags().StringVarP(&key, "key", "k", "", "PEM private key")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "read the private key from a file, - for standard input")
	cmd.Flags().BoolVar(&jwks, "jwks", false, "print a JSON web key set")
	cmd.MarkFlagsMutuallyExclusive("key", "key-file")

	return cmd
}
