// Package cli implements the jencoder command line tool.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/boogy/jencoder/pkg/config"
	"github.com/boogy/jencoder/pkg/generator"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/store"
	"github.com/boogy/jencoder/pkg/utils"
	"github.com/spf13/cobra"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

type settingsManager interface {
	Load(ctx context.Context) (settings.Settings, error)
	Save(ctx context.Context, s settings.Settings) error
	Reset(ctx context.Context) (settings.Settings, error)
}

type app struct {
	gen      generator.TokenGeneratorInterface
	settings settingsManager

	configPath string
	storeDir   string
	output     string
	verbose    bool
}

// Option configures the root command
type Option func(*app)

// WithGenerator replaces the token generator built from the configuration
func WithGenerator(g generator.TokenGeneratorInterface) Option {
	return func(a *app) { a.gen = g }
}

// WithSettings replaces the settings manager built from the configuration
func WithSettings(m settingsManager) Option {
	return func(a *app) { a.settings = m }
}

// NewRootCmd builds the jencoder command tree
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "jencoder",
		Short: "Build, sign and inspect JSON Web Tokens",
		Long: `jencoder signs a JSON claims payload into a compact JWT and decodes
existing tokens for display.

Supported algorithms:
  - HS256, HS384, HS512:  HMAC with a shared secret
  - RS256, RS384, RS512:  RSA PKCS#1 v1.5 (PKCS#1 or PKCS#8 PEM key)
  - PS256:                RSA-PSS (PKCS#1 or PKCS#8 PEM key)
  - ES256, ES384, ES512:  ECDSA (SEC1 or PKCS#8 PEM key)
  - EdDSA:                Ed25519 or Ed448 (PKCS#8 PEM key)

The last used form is kept in the settings store and reused by sign.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"directory holding the config file (default is . then /etc/jencoder)")
	root.PersistentFlags().StringVar(&a.storeDir, "store-dir", "",
		"keep settings in this directory, overriding the configured store")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", OutputText,
		"output format (text, json)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false,
		"log debug output to stderr")

	root.AddCommand(a.newSignCmd())
	root.AddCommand(a.newDecodeCmd())
	root.AddCommand(a.newFormatCmd())
	root.AddCommand(a.newAlgorithmsCmd())
	root.AddCommand(a.newPublicKeyCmd())
	root.AddCommand(a.newSettingsCmd())
	root.AddCommand(a.newVersionCmd())

	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// setup builds the generator and the settings manager from the configuration
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.checkOutput(); err != nil {
		return err
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger, _ := utils.NewJSONLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)

	if a.gen != nil && a.settings != nil {
		return nil
	}

	if a.configPath != "" {
		if err := os.Setenv("CONFIG_PATH", a.configPath); err != nil {
			return fmt.Errorf("failed to set config path: %w", err)
		}
	}
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if a.settings == nil {
		storeCfg := *cfg.Store
		if a.storeDir != "" {
			storeCfg.Type = config.StoreFile
			storeCfg.Path = a.storeDir
		}
		if storeCfg.Type == config.StoreMemory {
			slog.Debug("Settings are not kept between runs with the memory store")
		}

		st, err := store.NewStore(cmd.Context(), &storeCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize settings store: %w", err)
		}
		a.settings = settings.NewManager(st, cfg)
	}

	if a.gen == nil {
		a.gen = generator.NewTokenGenerator(generator.WithLogger(logger))
	}
	return nil
}

func (a *app) checkOutput() error {
	switch a.output {
	case OutputText, OutputJSON:
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", a.output)
	}
}

// loadSettings returns the saved settings, the defaults when the store fails
func (a *app) loadSettings(ctx context.Context) settings.Settings {
	s, err := a.settings.Load(ctx)
	if err != nil {
		slog.Warn("Using default settings", slog.String("error", err.Error()))
	}
	return s
}
