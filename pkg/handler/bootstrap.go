package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/boogy/jencoder/pkg/config"
	"github.com/boogy/jencoder/pkg/generator"
	s3logger "github.com/boogy/jencoder/pkg/s3logger"
	"github.com/boogy/jencoder/pkg/settings"
	"github.com/boogy/jencoder/pkg/store"
	"github.com/boogy/jencoder/pkg/utils"
	"github.com/boogy/jencoder/pkg/version"
)

// Bootstrap contains all the initialized components needed by handlers
type Bootstrap struct {
	Config    *config.Config
	Generator generator.TokenGeneratorInterface
	Store     store.Store
	Settings  *settings.Manager
	Processor *RequestProcessor
	S3Logger  *s3logger.S3Logger
	Logger    *slog.Logger
}

// NewBootstrap initializes all common components needed by the front ends
func NewBootstrap(ctx context.Context) (*Bootstrap, error) {
	versionInfo := version.Get()

	// Stdout logger until the configuration is known
	logger, err := utils.NewJSONLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
	if err != nil {
		logger.Warn("Invalid LOG_LEVEL, defaulting to info", slog.String("error", err.Error()))
	}
	slog.SetDefault(logger)

	logger.Info(
		fmt.Sprintf("Starting %s", versionInfo.BinName),
		slog.String("version", versionInfo.Version),
		slog.String("commit", versionInfo.Commit),
		slog.String("date", versionInfo.Date),
	)

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	s3log, err := s3logger.NewS3Logger(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize S3 logger", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize S3 logger: %w", err)
	}

	// Validate already checked the configured level
	logger, _ = utils.NewJSONLogger(io.MultiWriter(os.Stdout, s3log), cfg.LogLevel)
	slog.SetDefault(logger)

	settingsStore, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("Failed to initialize settings store", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}
	manager := settings.NewManager(settingsStore, cfg)

	gen := generator.NewTokenGenerator(generator.WithLogger(logger))

	logger.Debug("Bootstrap complete",
		slog.String("store", cfg.Store.Type),
		slog.Bool("logToS3", s3log.Enabled()))

	return &Bootstrap{
		Config:    cfg,
		Generator: gen,
		Store:     settingsStore,
		Settings:  manager,
		Processor: NewRequestProcessor(gen, manager),
		S3Logger:  s3log,
		Logger:    logger,
	}, nil
}

// Flush ships the buffered logs of the current invocation
func (b *Bootstrap) Flush(ctx context.Context) {
	if err := b.S3Logger.Flush(ctx); err != nil {
		b.Logger.Error("Failed to write logs to S3", slog.String("error", err.Error()))
	}
}

// NewAwsApiGatewayFromBootstrap creates a new API Gateway handler using bootstrap
func NewAwsApiGatewayFromBootstrap(bootstrap *Bootstrap) *AwsApiGateway {
	return NewAwsApiGateway(bootstrap.Processor)
}

// NewAwsLambdaUrlFromBootstrap creates a new Lambda URL handler using bootstrap
func NewAwsLambdaUrlFromBootstrap(bootstrap *Bootstrap) *AwsLambdaUrl {
	return NewAwsLambdaUrl(bootstrap.Processor)
}

// NewAwsApplicationLoadBalancerFromBootstrap creates a new ALB handler using bootstrap
func NewAwsApplicationLoadBalancerFromBootstrap(bootstrap *Bootstrap) *AwsApplicationLoadBalancer {
	return NewAwsApplicationLoadBalancer(bootstrap.Processor)
}

// NewHTTPHandlerFromBootstrap creates a net/http handler using bootstrap
func NewHTTPHandlerFromBootstrap(bootstrap *Bootstrap) *HTTPHandler {
	return NewHTTPHandler(bootstrap.Processor, bootstrap.Config.Server.MaxBodyBytes)
}
