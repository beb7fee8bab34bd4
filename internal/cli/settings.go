package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/utils"
	"github.com/spf13/cobra"
)

func (a *app) newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show, export, import or reset the saved settings",
	}

	cmd.AddCommand(a.newSettingsShowCmd())
	cmd.AddCommand(a.newSettingsExportCmd())
	cmd.AddCommand(a.newSettingsImportCmd())
	cmd.AddCommand(a.newSettingsResetCmd())
	return cmd
}

func (a *app) newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved settings without key material",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.loadSettings(cmd.Context())
			w := cmd.OutOrStdout()

			if a.output == OutputJSON {
				data, err := settings.Export(s, settings.FormatJSON, false)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			}

			payload := strings.Join(strings.Fields(s.Payload), " ")
			fmt.Fprintf(w, "Algorithm:       %s\n", s.Algorithm)
			fmt.Fprintf(w, "Key:             %s\n", keyState(s.Key()))
			fmt.Fprintf(w, "Add iat:         %t\n", s.AddIat)
			fmt.Fprintf(w, "Add exp:         %t (%s)\n", s.AddExp, s.Expiry())
			fmt.Fprintf(w, "Include Bearer:  %t\n", s.IncludeBearer)
			fmt.Fprintf(w, "Payload:         %s\n", utils.TruncateString(payload, 60))
			return nil
		},
	}
}

func keyState(key string) string {
	if key == "" {
		return "not set"
	}
	return "set"
}

func (a *app) newSettingsExportCmd() *cobra.Command {
	var (
		file        string
		format      string
		includeKeys bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved settings as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := settingsFormat(format, file)
			if err != nil {
				return err
			}

			data, err := settings.Export(a.loadSettings(cmd.Context()), f, includeKeys)
			if err != nil {
				return err
			}

			if file == "" || file == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(file, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Settings exported to %s\n", file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "write to this file instead of standard output")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from the file extension, else json)")
	cmd.Flags().BoolVar(&includeKeys, "include-keys", false, "include the secret and private key")
	return cmd
}

func (a *app) newSettingsImportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge settings from a JSON or YAML file and save them",
		Long: `Merge settings from a file over the saved settings and save the result.
Fields absent from the file keep their saved value. Use - to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := settingsFormat(format, args[0])
			if err != nil {
				return err
			}

			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			merged, err := settings.Import(a.loadSettings(cmd.Context()), []byte(data), f)
			if err != nil {
				return err
			}
			if err := a.settings.Save(cmd.Context(), merged); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Settings imported from %s (algorithm %s)\n", displayName(args[0]), merged.Algorithm)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from the file extension, else json)")
	return cmd
}

func (a *app) newSettingsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings.Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings reset to defaults (algorithm %s)\n", s.Algorithm)
			return nil
		},
	}
}

// settingsFormat resolves the --format flag, falling back to the file extension
func settingsFormat(flag, path string) (settings.Format, error) {
	if flag != "" {
		return settings.ParseFormat(flag)
	}
	return settings.FormatFromPath(path), nil
}
