package cli

import (
	"fmt"

	"github.com/boogy/jencoder/pkg/settings"
	"github.com/spf13/cobra"
)

type formatOutput struct {
	Payload string `json:"payload"`
}

func (a *app) newFormatCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "fmt-payload [file|-]",
		Short: "Repair and indent a claims payload",
		Long: `Repair common hand-typed JSON mistakes in a claims payload and print it
indented. Single quotes, unquoted keys, trailing commas, comments and missing
closing brackets are fixed. The result must be a JSON object.

The payload is read from standard input when no file is given. With --save the
formatted payload replaces the payload of the saved settings.`,
		Example: `  echo "{sub: '42', admin: true,}" | jencoder fmt-payload
  jencoder fmt-payload claims.json --save`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			payload, err := settings.FormatPayload(text)
			if err != nil {
				return err
			}

			if save {
				s := a.loadSettings(cmd.Context())
				s.Payload = payload
				if err := a.settings.Save(cmd.Context(), s); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if a.output == OutputJSON {
				return printJSON(w, formatOutput{Payload: payload})
			}
			fmt.Fprintln(w, payload)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the formatted payload in the saved settings")
	return cmd
}
