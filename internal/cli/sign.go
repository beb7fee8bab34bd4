package cli

import (
	"fmt"
	"io"

	"github.com/boogy/jencoder/pkg/algorithm"
	"github.com/boogy/jencoder/pkg/claims"
	"github.com/boogy/jencoder/pkg/generator"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type signOptions struct {
	algorithm   string
	payload     string
	payloadFile string
	key         string
	keyFile     string
	addIat      bool
	addExp      bool
	expOffset   int64
	expMinutes  int64
	bearer      bool
	showDecoded bool
	save        bool
}

type signOutput struct {
	Token       string          `json:"token"`
	Bearer      string          `json:"bearer,omitempty"`
	KeyEncoding string          `json:"keyEncoding"`
	Header      claims.Document `json:"header"`
	Payload     claims.Document `json:"payload"`
	Signature   string          `json:"signature"`
}

func (a *app) newSignCmd() *cobra.Command {
	var o signOptions

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a claims payload",
		Long: `Sign a JSON claims payload into a compact JWT.

Values not given as flags come from the saved settings, so running sign with
no flags repeats the last saved form.

The token is printed as "Bearer <token>" unless the saved settings turn the
prefix off. Pass --bearer=false to print the bare token, for example when
piping it into another tool.`,
		Example: `  jencoder sign --alg HS256 --key your-256-bit-secret --payload '{"sub":"42"}'
  jencoder sign --alg ES256 --key-file ec.pem --payload-file claims.json --exp --exp-offset 900
  cat claims.json | jencoder sign --payload-file - --save
  TOKEN=$(jencoder sign --key "$SECRET" --bearer=false)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.apply(a.loadSettings(cmd.Context()), cmd.Flags(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := s.Validate(); err != nil {
				return err
			}

			res, err := a.gen.Sign(cmd.Context(), s.SigningRequest())
			if err != nil {
				return err
			}

			if o.save {
				if err := a.settings.Save(cmd.Context(), s); err != nil {
					return err
				}
			}

			return a.printSigned(cmd.OutOrStdout(), res, s.IncludeBearer, o.showDecoded)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.algorithm, "alg", "a", "", "signing algorithm (see 'jencoder algorithms')")
	flags.StringVarP(&o.payload, "payload", "p", "", "claims as a JSON object")
	flags.StringVar(&o.payloadFile, "payload-file", "", "read the claims from a file, - for standard input")
	flags.StringVarP(&o.key, "key", "k", "", "HMAC secret or PEM private key")
	flags.StringVar(&o.keyFile, "key-file", "", "read the secret or private key from a file")
	flags.BoolVar(&o.addIat, "iat", false, "set iat to the current time")
	flags.BoolVar(&o.addExp, "exp", false, "set exp relative to the current time")
	flags.Int64Var(&o.expOffset, "exp-offset", 3600, "exp offset in seconds (300, 900, 3600, 21600, 86400, or -1 for --exp-minutes)")
	flags.Int64Var(&o.expMinutes, "exp-minutes", 60, "custom exp offset in minutes")
	flags.BoolVar(&o.bearer, "bearer", true, `print the token with a "Bearer " prefix, --bearer=false for the bare token`)
	flags.BoolVar(&o.showDecoded, "show-decoded", false, "also print the decoded header and payload")
	flags.BoolVar(&o.save, "save", false, "save the resulting form to the settings store")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	cmd.MarkFlagsMutuallyExclusive("key", "key-file")

	return cmd
}

// apply overrides s with the flags set on the command line
func (o *signOptions) apply(s settings.Settings, flags *pflag.FlagSet, stdin io.Reader) (settings.Settings, error) {
	if flags.Changed("alg") {
		s.Algorithm = o.algorithm
	}

	switch {
	case flags.Changed("payload"):
		s.Payload = o.payload
	case o.payloadFile != "":
		payload, err := readInput(stdin, o.payloadFile)
		if err != nil {
			return s, err
		}
		s.Payload = payload
	}

	key, keySet := o.key, flags.Changed("key")
	if o.keyFile != "" {
		text, err := readInput(stdin, o.keyFile)
		if err != nil {
			return s, err
		}
		key, keySet = trimLineEnd(text), true
	}
	if keySet {
		if family, err := algorithm.FamilyOf(s.Algorithm); err == nil && family.Symmetric() {
			s.Secret = key
		} else {
			s.PrivateKey = key
		}
	}

	if flags.Changed("iat") {
		s.AddIat = o.addIat
	}
	if flags.Changed("exp") {
		s.AddExp = o.addExp
	}
	if flags.Changed("exp-offset") {
		s.ExpOffset = o.expOffset
	}
	if flags.Changed("exp-minutes") {
		s.CustomExpMinutes = o.expMinutes
		if !flags.Changed("exp-offset") {
			s.ExpOffset = claims.ExpiryCustom
		}
	}
	if flags.Changed("bearer") {
		s.IncludeBearer = o.bearer
	}
	return s, nil
}

func (a *app) printSigned(w io.Writer, res *generator.Result, bearer, showDecoded bool) error {
	if a.output == OutputJSON {
		out := signOutput{
			Token:       res.Token.String(),
			KeyEncoding: res.Encoding.String(),
			Header:      res.Decoded.Header,
			Payload:     res.Decoded.Payload,
			Signature:   res.Token.Signature,
		}
		if bearer {
			out.Bearer = res.Token.Bearer()
		}
		return printJSON(w, out)
	}

	if bearer {
		fmt.Fprintln(w, res.Token.Bearer())
	} else {
		fmt.Fprintln(w, res.Token.String())
	}
	if !showDecoded {
		return nil
	}

	header, payload, err := res.Decoded.Pretty()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nHeader:\n%s\n\nPayload:\n%s\n\nSignature: %s\nKey encoding: %s\n",
		header, payload, res.Token.Signature, res.Encoding)
	return nil
}
